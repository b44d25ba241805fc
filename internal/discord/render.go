package discord

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PrimaryFunction/Arkos/internal/model"
	"github.com/PrimaryFunction/Arkos/internal/proxy"
)

// Reply texts shared by several commands.
const (
	replyNoAccess      = "You do not have access to this proxy."
	replyNotFound      = "Proxy not found."
	replyDuplicate     = "That proxy key already exists."
	replyNotAdmin      = "You need administrator permission to delete proxies."
	replyNoProxies     = "You don't have access to any proxies."
	replyStoreFailure  = "Something went wrong while saving. Try again later."
	replyUnknownMember = "I could not find that member."
)

func renderCreated(p model.Proxy) string {
	return fmt.Sprintf("Proxy '%s' created with key '%s'", p.Name, p.Key)
}

func renderGranted(userID, key string) string {
	return fmt.Sprintf("Granted access to %s for proxy '%s'", mention(userID), key)
}

func renderDeleted(key string, grants int64) string {
	return fmt.Sprintf("Proxy '%s' and all associated access have been deleted (%d grants).", key, grants)
}

func renderRelayFailed(key string) string {
	return fmt.Sprintf("Could not relay message as '%s'.", key)
}

func renderProxyList(proxies []model.Proxy) string {
	if len(proxies) == 0 {
		return replyNoProxies
	}
	var b strings.Builder
	b.WriteString("Your proxies:")
	for _, p := range proxies {
		fmt.Fprintf(&b, "\nKey: %s, Name: %s", p.Key, p.Name)
	}
	return b.String()
}

func renderGrantees(key string, userIDs []string) string {
	if len(userIDs) == 0 {
		return fmt.Sprintf("No known holders for '%s'.", key)
	}
	mentions := make([]string, len(userIDs))
	for i, id := range userIDs {
		mentions[i] = mention(id)
	}
	return fmt.Sprintf("Access to '%s': %s", key, strings.Join(mentions, ", "))
}

func renderXP(display string, rec model.XPRecord) string {
	return fmt.Sprintf("%s - Level: %d, XP: %d", display, rec.Level, rec.XP)
}

func renderUsage(prefix, usage string) string {
	return fmt.Sprintf("Usage: %s%s", prefix, usage)
}

// renderError maps an operation error to the reply the invoking user sees.
func renderError(err error, key string) string {
	switch proxy.CodeOf(err) {
	case proxy.ErrCodeDuplicateKey:
		return replyDuplicate
	case proxy.ErrCodeUnauthorized:
		return replyNoAccess
	case proxy.ErrCodeProxyNotFound:
		return replyNotFound
	case proxy.ErrCodeInfrastructure:
		return renderRelayFailed(key)
	case proxy.ErrCodeInvalidInput:
		var pe *proxy.Error
		if errors.As(err, &pe) {
			return capitalize(pe.Message) + "."
		}
	}
	return replyStoreFailure
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
