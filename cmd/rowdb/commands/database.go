package commands

import (
	"database/sql"

	"github.com/spf13/cobra"

	"github.com/teranos/rowdb/am"
	"github.com/teranos/rowdb/db"
	"github.com/teranos/rowdb/errors"
	"github.com/teranos/rowdb/logger"
)

// openDatabase opens the database named by --db, or by am config.
// Uses logger.Logger for db operations.
func openDatabase(cmd *cobra.Command) (*sql.DB, *am.Config, error) {
	cfg, err := am.Load()
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, errors.Wrap(err, "invalid configuration")
	}

	path := cfg.GetDatabasePath()
	if flag, _ := cmd.Flags().GetString("db"); flag != "" {
		path = flag
	}

	database, err := db.OpenWith(db.Options{
		Path:          path,
		BusyTimeoutMS: cfg.Database.BusyTimeoutMS,
		Readonly:      cfg.Database.Readonly,
	}, logger.Logger)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to open database at %s", path)
	}
	return database, cfg, nil
}
