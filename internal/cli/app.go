package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cast"

	"github.com/mrlokans/feedimport/internal/config"
	"github.com/mrlokans/feedimport/internal/entrypoint"
)

// openApp builds the import services from the environment, pointing them
// at dbPath when it is set.
func openApp(ctx context.Context, dbPath string) (*entrypoint.App, error) {
	cfg := config.NewConfig()
	if dbPath != "" {
		absDBPath, err := filepath.Abs(dbPath)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for database: %w", err)
		}
		cfg.Database.Path = absDBPath
	}

	app, err := entrypoint.NewApp(ctx, cfg, os.Stdout)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize: %w", err)
	}
	return app, nil
}

// parsePages turns "1,2,5" into page numbers.
func parsePages(value string) ([]int, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	var pages []int
	for _, part := range strings.Split(value, ",") {
		page, err := cast.ToIntE(strings.TrimSpace(part))
		if err != nil || page < 0 {
			return nil, fmt.Errorf("invalid page %q", part)
		}
		pages = append(pages, page)
	}
	return pages, nil
}
