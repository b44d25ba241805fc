package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// ProxyOptions holds flags shared by the proxy subcommands.
type ProxyOptions struct {
	*RootOptions
	As string // acting user ID
}

// NewProxyCommand creates the proxy command group.
func NewProxyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProxyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "proxy",
		Short: "Manage proxy identities offline",
		Long: `Create, grant, list and delete proxy identities directly in the
database, without connecting to Discord.

Users are Discord user IDs. Commands that act on behalf of a member take
--as <user-id>; delete is an operator command and needs none.`,
	}

	cmd.PersistentFlags().StringVar(&opts.As, "as", "", "user ID performing the operation")

	cmd.AddCommand(newProxyCreateCommand(opts))
	cmd.AddCommand(newProxyGrantCommand(opts))
	cmd.AddCommand(newProxyDeleteCommand(opts))
	cmd.AddCommand(newProxyListCommand(opts))
	cmd.AddCommand(newProxyAccessCommand(opts))

	return cmd
}

func requireActor(opts *ProxyOptions) error {
	if opts.As == "" {
		return NewExitError(ExitCommandError, "--as <user-id> is required")
	}
	return nil
}

func newProxyCreateCommand(opts *ProxyOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "create <key> <name> [avatar-url]",
		Short: "Create a proxy; the --as user becomes its first holder",
		Example: `  arkos proxy create nemo "Captain Nemo" --as 1234
  arkos proxy create nemo "Captain Nemo" https://example.com/nemo.png --as 1234`,
		Args:          cobra.RangeArgs(2, 3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireActor(opts); err != nil {
				return err
			}
			avatar := ""
			if len(args) == 3 {
				avatar = args[2]
			}
			return withServices(opts.RootOptions, cmd, func(ctx context.Context, s *services) error {
				p, err := s.access.CreateProxy(ctx, args[0], args[1], avatar, opts.As)
				if err != nil {
					return s.out.Failure(err)
				}
				return s.out.Success(p, fmt.Sprintf("Proxy '%s' created with key '%s'", p.Name, p.Key))
			})
		},
	}
}

func newProxyGrantCommand(opts *ProxyOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "grant <key> <grantee-id>",
		Short:         "Grant a proxy to another user; the --as user must hold it",
		Example:       `  arkos proxy grant nemo 5678 --as 1234`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireActor(opts); err != nil {
				return err
			}
			key, grantee := args[0], args[1]
			return withServices(opts.RootOptions, cmd, func(ctx context.Context, s *services) error {
				if err := s.access.GrantAccess(ctx, key, opts.As, grantee); err != nil {
					return s.out.Failure(err)
				}
				data := map[string]string{"proxy_key": key, "user_id": grantee}
				return s.out.Success(data, fmt.Sprintf("Granted access to %s for proxy '%s'", grantee, key))
			})
		},
	}
}

func newProxyDeleteCommand(opts *ProxyOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <key>",
		Short:         "Delete a proxy and every grant of it",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			return withServices(opts.RootOptions, cmd, func(ctx context.Context, s *services) error {
				n, err := s.access.DeleteProxy(ctx, key)
				if err != nil {
					return s.out.Failure(err)
				}
				data := map[string]any{"proxy_key": key, "grants_removed": n}
				return s.out.Success(data, fmt.Sprintf("Proxy '%s' and all associated access have been deleted (%d grants).", key, n))
			})
		},
	}
}

func newProxyListCommand(opts *ProxyOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list <user-id>",
		Short:         "List the proxies a user may speak as",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(opts.RootOptions, cmd, func(ctx context.Context, s *services) error {
				proxies, err := s.access.ListAccessible(ctx, args[0])
				if err != nil {
					return s.out.Failure(err)
				}
				if len(proxies) == 0 {
					return s.out.Success(proxies, "No proxies.")
				}
				var b strings.Builder
				for i, p := range proxies {
					if i > 0 {
						b.WriteByte('\n')
					}
					fmt.Fprintf(&b, "%s\t%s", p.Key, p.Name)
				}
				return s.out.Success(proxies, b.String())
			})
		},
	}
}

func newProxyAccessCommand(opts *ProxyOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "access <key>",
		Short:         "List the users holding a proxy",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			return withServices(opts.RootOptions, cmd, func(ctx context.Context, s *services) error {
				users, err := s.access.ListGrantees(ctx, key)
				if err != nil {
					return s.out.Failure(err)
				}
				if len(users) == 0 {
					return s.out.Success(users, fmt.Sprintf("No known holders for '%s'.", key))
				}
				return s.out.Success(users, strings.Join(users, "\n"))
			})
		},
	}
}
