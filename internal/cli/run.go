package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/discordgo"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/PrimaryFunction/Arkos/internal/discord"
	"github.com/PrimaryFunction/Arkos/internal/leveling"
	"github.com/PrimaryFunction/Arkos/internal/metrics"
	"github.com/PrimaryFunction/Arkos/internal/proxy"
	"github.com/PrimaryFunction/Arkos/internal/store"
)

// Gateway is the part of a Discord session the run command drives.
type Gateway interface {
	discord.API
	AddHandler(handler any) func()
	Open() error
	Close() error
}

var _ Gateway = (*discordgo.Session)(nil)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions

	// NewGateway overrides session creation (for testing). If nil, a
	// discordgo session is created from the token.
	NewGateway func(token string) (Gateway, error)
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to Discord and serve commands",
		Long: `Connect the bot to the Discord gateway and serve the proxy and XP
commands until interrupted.

The bot token is read from ARKOS_DISCORD_TOKEN, DISCORD_TOKEN or the
discord.token config key. The database is created if it does not exist.

Example:
  arkos run --config arkos.yaml
  DISCORD_TOKEN=... arkos run --db ./arkos.db --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(opts, cmd)
		},
	}

	return cmd
}

func runBot(opts *RunOptions, cmd *cobra.Command) error {
	logger := newLogger(opts.Verbose)
	slog.SetDefault(logger)

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	if err := cfg.RequireToken(); err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	logger.Info("opening database", "path", cfg.Database.Path)
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	newGateway := opts.NewGateway
	if newGateway == nil {
		newGateway = func(token string) (Gateway, error) {
			s, err := discord.NewSession(token)
			if err != nil {
				return nil, err
			}
			return s, nil
		}
	}
	session, err := newGateway(cfg.Discord.Token)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create session", err)
	}

	platform := discord.NewPlatform(session, cfg.Discord.ParentCacheSize, cfg.Discord.ParentCacheTTL, logger)
	notifier := leveling.NewNotifier(platform, cfg.XP.NotifyQueue, cfg.IO.Timeout, logger)
	xp := leveling.New(st, cfg.Curve(), notifier,
		leveling.WithTimeout(cfg.IO.Timeout),
		leveling.WithLogger(logger),
	)
	access := proxy.NewAccessControl(st, logger)
	relayer := proxy.NewRelayer(access, platform, xp,
		proxy.WithIOTimeout(cfg.IO.Timeout),
		proxy.WithLogger(logger),
	)
	router := discord.NewRouter(cfg.Discord.CommandPrefix, access, relayer, xp,
		platform, discord.NewSessionDirectory(session, logger), logger,
		discord.WithReplyTimeout(cfg.IO.Timeout))
	dispatcher := discord.NewDispatcher(router, cfg.IO.Timeout)
	session.AddHandler(dispatcher.Handle)

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := session.Open(); err != nil {
		return WrapExitError(ExitCommandError, "failed to connect to discord", err)
	}
	logger.Info("connected to discord", "prefix", cfg.Discord.CommandPrefix)
	fmt.Fprintln(cmd.OutOrStdout(), "Bot running. Press Ctrl-C to stop.")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// Drain queued level-ups once the gateway is gone.
		return notifier.Run(context.WithoutCancel(gctx))
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		if err := session.Close(); err != nil {
			logger.Warn("error closing session", "error", err)
		}
		waitCtx, cancel := context.WithTimeout(context.Background(), discord.CommandDeadline(cfg.IO.Timeout)+cfg.IO.Timeout)
		defer cancel()
		if err := dispatcher.Shutdown(waitCtx); err != nil {
			logger.Warn("command handlers still running", "error", err)
		}
		notifier.Close()
		return nil
	})
	if cfg.Metrics.Addr != "" {
		g.Go(func() error {
			return metrics.Serve(gctx, cfg.Metrics.Addr, st.Ping, logger)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "bot error", err)
	}
	logger.Info("bot stopped gracefully")
	return nil
}
