// Package store selects the collection backend named in the configuration.
package store

import (
	"context"
	"fmt"

	"github.com/matthieukhl/bakehouse/internal/config"
	"github.com/matthieukhl/bakehouse/internal/database"
	"github.com/matthieukhl/bakehouse/internal/store/file"
	"github.com/matthieukhl/bakehouse/internal/store/firebase"
	"github.com/matthieukhl/bakehouse/internal/store/memory"
	"github.com/matthieukhl/bakehouse/internal/store/mysql"
	"github.com/matthieukhl/bakehouse/internal/types"
)

// NewStore creates a store based on configuration
func NewStore(ctx context.Context, cfg *config.StoreConfig) (types.Store, error) {
	switch cfg.Provider {
	case "firebase":
		return firebase.Open(ctx, cfg.Firebase)
	case "mysql":
		db, err := database.NewConnection(&cfg.DB)
		if err != nil {
			return nil, err
		}
		return mysql.New(db), nil
	case "file":
		return file.Open(cfg.File.Path, cfg.File.ReadOnly)
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported store provider: %s", cfg.Provider)
	}
}
