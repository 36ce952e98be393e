package migrations

import (
	"database/sql"
	"embed"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed *.sql
var FS embed.FS

// New opens a migrator over the embedded migrations on a dedicated connection.
// Closing the migrator closes that connection.
func New(dsn string) (*migrate.Migrate, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	driver, err := pgx.WithInstance(db, &pgx.Config{})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	src, err := iofs.New(FS, ".")
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return migrate.NewWithInstance("iofs", src, "pgx5", driver)
}
