package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// XPReport is the JSON form of the xp command.
type XPReport struct {
	UserID    string `json:"user_id"`
	XP        int64  `json:"xp"`
	Level     int64  `json:"level"`
	NextLevel int64  `json:"next_level_at"`
}

// NewXPCommand creates the xp command.
func NewXPCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "xp <user-id>",
		Short: "Show a user's XP and level",
		Long: `Show the XP and level stored for a user. Users who never relayed a
message report level 1 with 0 XP.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(rootOpts, cmd, func(ctx context.Context, s *services) error {
				rec, err := s.xp.Query(ctx, args[0])
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to read xp", err)
				}
				report := XPReport{
					UserID:    args[0],
					XP:        rec.XP,
					Level:     rec.Level,
					NextLevel: s.xp.Curve().Threshold(rec.Level),
				}
				text := fmt.Sprintf("%s - Level: %d, XP: %d (next level at %d)",
					report.UserID, report.Level, report.XP, report.NextLevel)
				return s.out.Success(report, text)
			})
		},
	}
}
