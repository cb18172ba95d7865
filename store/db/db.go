// Package db selects the storage driver for the local metadata store.
package db

import (
	"github.com/pkg/errors"

	"github.com/autogenz/movieai/internal/profile"
	"github.com/autogenz/movieai/store"
	"github.com/autogenz/movieai/store/db/postgres"
	"github.com/autogenz/movieai/store/db/sqlite"
)

// NewDBDriver creates a new database driver based on the profile.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	switch profile.Driver {
	case "postgres":
		return postgres.NewDB(profile)
	case "sqlite":
		return sqlite.NewDB(profile)
	default:
		return nil, errors.Errorf("unsupported driver %q", profile.Driver)
	}
}
