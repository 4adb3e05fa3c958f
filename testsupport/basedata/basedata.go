package basedata

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kartrace/kartrace-go/pkg/model"
	profilerepos "github.com/kartrace/kartrace-go/pkg/repository/profile"
)

func SampleProfile(username string) *model.DbProfile {
	pbs := make(map[string]string, model.NumTracks)
	for i := 1; i <= model.NumTracks; i++ {
		pbs[model.TrackKey(i)] = model.NoPersonalBest
	}
	pbs[model.TrackKey(1)] = "0:42.17"
	return &model.DbProfile{
		Username: username,
		Data: model.UserProfile{
			Username: username,
			Password: "$2a$10$0123456789012345678901uJ9f6Yc3oQ5a2vQ7z8x9y0z1a2b3c4d",
			Friends:  []string{"bob"},
			PBs:      pbs,
			Keybinds: model.DefaultKeybinds(),
		},
	}
}

// CreateSampleProfile stores SampleProfile(username) in a transaction.
func CreateSampleProfile(pool *pgxpool.Pool, username string) *model.DbProfile {
	p := SampleProfile(username)
	err := pgx.BeginFunc(context.Background(), pool, func(tx pgx.Tx) error {
		return profilerepos.Create(context.Background(), tx, p)
	})
	if err != nil {
		log.Fatalf("CreateSampleProfile: %v\n", err)
	}
	return p
}
