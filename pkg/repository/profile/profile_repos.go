//nolint:whitespace //can't make both the linter and editor happy :(
package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/kartrace/kartrace-go/pkg/model"
	"github.com/kartrace/kartrace-go/pkg/repository"
)

var ErrNotFound = errors.New("profile not found")

// Create stores a new profile. An empty ID is replaced by a new v7 uuid.
func Create(ctx context.Context, conn repository.Querier, p *model.DbProfile) error {
	if p.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		p.ID = id
	}
	_, err := conn.Exec(ctx,
		"insert into profile (id, username, data) values ($1,$2,$3)",
		p.ID, p.Username, p.Data)
	return err
}

func LoadByUsername(
	ctx context.Context,
	conn repository.Querier,
	username string,
) (*model.DbProfile, error) {
	row := conn.QueryRow(ctx,
		fmt.Sprintf("%s where username=$1", selector), username)
	var item model.DbProfile
	if err := scan(&item, row); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

func LoadAll(ctx context.Context, conn repository.Querier) ([]*model.DbProfile, error) {
	rows, err := conn.Query(ctx, fmt.Sprintf("%s order by username", selector))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ret := make([]*model.DbProfile, 0)
	for rows.Next() {
		var item model.DbProfile
		if err := scan(&item, rows); err != nil {
			return nil, err
		}
		ret = append(ret, &item)
	}
	return ret, rows.Err()
}

// Update replaces the profile data, returns number of rows updated.
func Update(
	ctx context.Context,
	conn repository.Querier,
	p *model.DbProfile,
) (int, error) {
	cmdTag, err := conn.Exec(ctx,
		"update profile set data=$1, updated_at=now() where username=$2",
		p.Data, p.Username)
	if err != nil {
		return 0, err
	}
	return int(cmdTag.RowsAffected()), nil
}

// deletes an entry from the database, returns number of rows deleted.
func DeleteByUsername(ctx context.Context, conn repository.Querier, username string) (
	int, error,
) {
	cmdTag, err := conn.Exec(ctx, "delete from profile where username=$1", username)
	if err != nil {
		return 0, err
	}
	return int(cmdTag.RowsAffected()), nil
}

// little helper
const selector = string(`select id,username,data from profile`)

func scan(e *model.DbProfile, row pgx.Row) error {
	return row.Scan(&e.ID, &e.Username, &e.Data)
}
