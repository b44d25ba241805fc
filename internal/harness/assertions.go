package harness

import (
	"context"
	"fmt"
	"slices"
)

// evaluate checks every assertion and returns a message per failure.
func (h *Harness) evaluate(ctx context.Context, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		if err := h.check(ctx, a); err != nil {
			failures = append(failures, fmt.Sprintf("assertion %d (%s): %v", i+1, a.Type, err))
		}
	}
	return failures
}

func (h *Harness) check(ctx context.Context, a Assertion) error {
	switch a.Type {
	case AssertXP:
		rec, err := h.engine.Query(ctx, a.User)
		if err != nil {
			return fmt.Errorf("query xp of %s: %w", a.User, err)
		}
		if rec.XP != *a.XP || rec.Level != *a.Level {
			return fmt.Errorf("user %s: expected xp=%d level=%d, got xp=%d level=%d",
				a.User, *a.XP, *a.Level, rec.XP, rec.Level)
		}

	case AssertGrantees:
		users, err := h.access.ListGrantees(ctx, a.Key)
		if err != nil {
			return fmt.Errorf("list grantees of %s: %w", a.Key, err)
		}
		want := a.Users
		if want == nil {
			want = []string{}
		}
		if !slices.Equal(users, want) {
			return fmt.Errorf("proxy %s: expected holders %v, got %v", a.Key, want, users)
		}

	case AssertActiveBindings:
		active := h.platform.ActiveBindings(a.Channel)
		if len(active) != a.Count {
			return fmt.Errorf("channel %q: expected %d active bindings, got %v", a.Channel, a.Count, active)
		}

	case AssertCallCount:
		got := len(h.platform.CallsOf(a.Call))
		if got != a.Count {
			return fmt.Errorf("expected %d %s calls, got %d", a.Count, a.Call, got)
		}

	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
