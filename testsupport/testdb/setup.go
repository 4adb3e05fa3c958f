package testdb

import (
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	tcpg "github.com/kartrace/kartrace-go/testsupport/tcpostgres"
)

// InitTestDb returns a pool with all tables cleared. TESTDB_URL selects an
// external database instead of a container.
func InitTestDb() *pgxpool.Pool {
	var pool *pgxpool.Pool
	if os.Getenv("TESTDB_URL") != "" {
		pool = tcpg.SetupExternalTestDb()
	} else {
		pool = tcpg.SetupTestDb()
	}
	tcpg.ClearAllTables(pool)
	return pool
}
