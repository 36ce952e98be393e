package storage

import (
	"errors"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/practice-sem-2/chat-rooms-service/migrations"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type PostgresTestSuite struct {
	suite.Suite
	db *sqlx.DB
	m  *migrate.Migrate
}

func (s *PostgresTestSuite) SetupSuite() {
	var err error
	viper.AutomaticEnv()
	dbDsn := viper.GetString("DB_DSN")
	if len(dbDsn) == 0 {
		s.T().Skip("DB_DSN is not defined")
	}

	s.db, err = sqlx.Connect("pgx", dbDsn)
	require.NoError(s.T(), err, "failed to connect to database")

	s.m, err = migrations.New(dbDsn)
	require.NoError(s.T(), err, "failed to open migrations")

	err = s.m.Up()
	if !errors.Is(err, migrate.ErrNoChange) {
		require.NoError(s.T(), err, "failed to migrate database")
	}
}

func (s *PostgresTestSuite) TearDownSuite() {
	if s.m != nil {
		_ = s.m.Down()
		_, _ = s.m.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
}
