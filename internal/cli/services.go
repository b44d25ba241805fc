package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/PrimaryFunction/Arkos/internal/leveling"
	"github.com/PrimaryFunction/Arkos/internal/proxy"
	"github.com/PrimaryFunction/Arkos/internal/store"
)

// services are the components the offline commands operate on. No gateway
// session is opened; level-ups are not announced.
type services struct {
	store  *store.Store
	access *proxy.AccessControl
	xp     *leveling.Engine
	out    *OutputFormatter
}

// withServices opens the configured database, runs fn and closes it.
func withServices(opts *RootOptions, cmd *cobra.Command, fn func(ctx context.Context, s *services) error) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	logger := newLogger(opts.Verbose)
	logger.Debug("opening database", "path", cfg.Database.Path)
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s := &services{
		store:  st,
		access: proxy.NewAccessControl(st, logger),
		xp: leveling.New(st, cfg.Curve(), nil,
			leveling.WithTimeout(cfg.IO.Timeout),
			leveling.WithLogger(logger),
		),
		out: newFormatter(opts, cmd),
	}
	return fn(ctx, s)
}
