package local

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/formportal/core"
	memstorage "github.com/trezcool/formportal/storage/local/memory"
	redisstorage "github.com/trezcool/formportal/storage/local/redis"
	sqlitestorage "github.com/trezcool/formportal/storage/local/sqlite"
)

// Drivers
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

var ErrUnknownDriver = errors.New("unknown storage driver")

// Open returns the LocalStorage selected by conf.Driver.
func Open(ctx context.Context, conf core.StorageConfig) (core.LocalStorage, error) {
	switch conf.Driver {
	case DriverMemory:
		return memstorage.New(), nil
	case DriverSQLite, "":
		return sqlitestorage.Open(ctx, conf.Path)
	case DriverRedis:
		return redisstorage.Open(ctx, conf)
	default:
		return nil, errors.Wrap(ErrUnknownDriver, conf.Driver)
	}
}
