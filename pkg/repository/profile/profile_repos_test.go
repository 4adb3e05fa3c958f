//nolint:dupl,funlen,errcheck //ok for this test code
package profile_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"

	"github.com/kartrace/kartrace-go/pkg/model"
	"github.com/kartrace/kartrace-go/pkg/repository/profile"
	"github.com/kartrace/kartrace-go/testsupport/basedata"
	"github.com/kartrace/kartrace-go/testsupport/testdb"
)

func initTestDb() *pgxpool.Pool {
	return testdb.InitTestDb()
}

func TestCreate(t *testing.T) {
	pool := initTestDb()
	basedata.CreateSampleProfile(pool, "alice")
	tests := []struct {
		name    string
		profile *model.DbProfile
		wantErr bool
	}{
		{
			name:    "new entry",
			profile: basedata.SampleProfile("bob"),
		},
		{
			name:    "duplicate username",
			profile: basedata.SampleProfile("alice"),
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := pool.AcquireFunc(context.Background(), func(c *pgxpool.Conn) error {
				return profile.Create(context.Background(), c.Conn(), tt.profile)
			})
			if (err != nil) != tt.wantErr {
				t.Errorf("Create error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadByUsername(t *testing.T) {
	pool := initTestDb()
	sample := basedata.CreateSampleProfile(pool, "alice")

	got, err := profile.LoadByUsername(context.Background(), pool, "alice")
	assert.NoError(t, err)
	if diff := cmp.Diff(sample, got); diff != "" {
		t.Errorf("profile.LoadByUsername() mismatch (-want +got):\n%s", diff)
	}

	_, err = profile.LoadByUsername(context.Background(), pool, "nobody")
	assert.ErrorIs(t, err, profile.ErrNotFound)
}

func TestUpdate(t *testing.T) {
	pool := initTestDb()
	sample := basedata.CreateSampleProfile(pool, "alice")
	sample.Data.PBs["track2"] = "1:02.50"
	sample.Data.Friends = append(sample.Data.Friends, "carol")

	n, err := profile.Update(context.Background(), pool, sample)
	assert.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := profile.LoadByUsername(context.Background(), pool, "alice")
	assert.NoError(t, err)
	assert.Equal(t, "1:02.50", got.Data.PBs["track2"])
	assert.Equal(t, []string{"bob", "carol"}, got.Data.Friends)
}

func TestDeleteAndLoadAll(t *testing.T) {
	pool := initTestDb()
	basedata.CreateSampleProfile(pool, "bob")
	basedata.CreateSampleProfile(pool, "alice")

	all, err := profile.LoadAll(context.Background(), pool)
	assert.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, "alice", all[0].Username)

	n, err := profile.DeleteByUsername(context.Background(), pool, "bob")
	assert.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = profile.DeleteByUsername(context.Background(), pool, "bob")
	assert.NoError(t, err)
	assert.Equal(t, 0, n)
}
