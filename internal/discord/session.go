package discord

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Intents the bot needs: guild messages with their content, and guild
// channel state for thread parents and permission checks.
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsMessageContent

// NewSession creates an unopened gateway session authenticated as a bot.
func NewSession(token string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	s.Identify.Intents = Intents
	return s, nil
}

// commandSteps is the most external calls one command makes in sequence
// (a relay: authorize, load proxy, parent, provision, send, release,
// delete). Each call is bounded by the I/O timeout on its own, so a command
// gets that many timeouts in total.
const commandSteps = 7

// CommandDeadline is the time one command may take when each external call
// is bounded by timeout.
func CommandDeadline(timeout time.Duration) time.Duration {
	return commandSteps * timeout
}

// Dispatcher feeds gateway messages to a Router and tracks the handlers
// still running, so shutdown can wait for them before closing what they
// use.
type Dispatcher struct {
	router  *Router
	timeout time.Duration

	mu      sync.Mutex
	closed  bool
	running sync.WaitGroup
}

// NewDispatcher creates a Dispatcher whose commands each run under
// CommandDeadline(timeout).
func NewDispatcher(r *Router, timeout time.Duration) *Dispatcher {
	return &Dispatcher{router: r, timeout: timeout}
}

// Handle is the discordgo MessageCreate handler. Messages arriving after
// Shutdown are dropped.
func (d *Dispatcher) Handle(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Message == nil || m.Author == nil {
		return
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.running.Add(1)
	d.mu.Unlock()
	defer d.running.Done()

	ctx, cancel := context.WithTimeout(context.Background(), CommandDeadline(d.timeout))
	defer cancel()
	d.router.Handle(ctx, toMessage(m.Message))
}

// Shutdown stops accepting messages and waits for running handlers, or
// until ctx is done.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.running.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for command handlers: %w", ctx.Err())
	}
}

func toMessage(m *discordgo.Message) Message {
	msg := Message{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		GuildID:   m.GuildID,
		WebhookID: m.WebhookID,
		Content:   m.Content,
	}
	if m.Author != nil {
		msg.AuthorID = m.Author.ID
		msg.AuthorBot = m.Author.Bot
	}
	return msg
}

// SessionDirectory implements Directory over the REST API.
type SessionDirectory struct {
	api    API
	logger *slog.Logger
}

// NewSessionDirectory creates a SessionDirectory.
func NewSessionDirectory(api API, logger *slog.Logger) *SessionDirectory {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionDirectory{api: api, logger: logger}
}

// IsAdmin implements Directory.
func (d *SessionDirectory) IsAdmin(ctx context.Context, _, channelID, userID string) (bool, error) {
	perms, err := d.api.UserChannelPermissions(userID, channelID, discordgo.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("permissions of %s in %s: %w", userID, channelID, err)
	}
	return perms&discordgo.PermissionAdministrator != 0, nil
}

// DisplayName implements Directory: guild nickname, then global display
// name, then username.
func (d *SessionDirectory) DisplayName(ctx context.Context, guildID, userID string) (string, error) {
	if guildID == "" {
		return "", fmt.Errorf("no guild for member %s", userID)
	}
	m, err := d.api.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("member %s: %w", userID, err)
	}
	return memberDisplayName(m), nil
}

func memberDisplayName(m *discordgo.Member) string {
	if m.Nick != "" {
		return m.Nick
	}
	if m.User == nil {
		return ""
	}
	if m.User.GlobalName != "" {
		return m.User.GlobalName
	}
	return m.User.Username
}
