package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/osse101/BrandishDuels_Go/internal/catalog"
	"github.com/osse101/BrandishDuels_Go/internal/config"
)

// LoadCatalog loads the duel catalog from cfg.CatalogPath, or the embedded
// default when no path is configured
func LoadCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	var (
		cat    *catalog.Catalog
		err    error
		source = CatalogSourceEmbedded
	)
	if cfg.CatalogPath != "" {
		source = cfg.CatalogPath
		cat, err = catalog.Load(cfg.CatalogPath)
	} else {
		cat, err = catalog.Default()
	}
	if err != nil {
		return nil, fmt.Errorf("%s from %s: %w", ErrMsgFailedLoadCatalog, source, err)
	}

	slog.Info(LogMsgCatalogLoaded, "source", source, "version", cat.Version())
	return cat, nil
}
