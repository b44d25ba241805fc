package discord

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/PrimaryFunction/Arkos/internal/leveling"
	"github.com/PrimaryFunction/Arkos/internal/proxy"
)

// Message is an incoming chat message, reduced to what commands need.
type Message struct {
	ID        string
	ChannelID string
	GuildID   string
	AuthorID  string
	AuthorBot bool
	WebhookID string
	Content   string
}

// Replier posts a command's answer.
type Replier interface {
	Reply(ctx context.Context, channelID, text string) error
}

// Directory answers questions about guild members.
type Directory interface {
	// IsAdmin reports whether userID holds the Administrator permission in
	// channelID.
	IsAdmin(ctx context.Context, guildID, channelID, userID string) (bool, error)

	// DisplayName returns the member's name as shown in the guild.
	DisplayName(ctx context.Context, guildID, userID string) (string, error)
}

// command handles one invocation and returns the reply, "" for none.
type command func(ctx context.Context, msg Message, args string) string

// Router dispatches prefix commands.
type Router struct {
	prefix   string
	access   *proxy.AccessControl
	relayer  *proxy.Relayer
	xp       *leveling.Engine
	replier  Replier
	dir      Directory
	logger   *slog.Logger
	commands map[string]command

	replyTimeout time.Duration
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithReplyTimeout bounds posting a command's reply. The reply gets its own
// budget, detached from the command's context, so a command that ran out of
// time can still report its failure.
func WithReplyTimeout(d time.Duration) RouterOption {
	return func(r *Router) {
		if d > 0 {
			r.replyTimeout = d
		}
	}
}

// NewRouter creates a Router for commands starting with prefix.
func NewRouter(prefix string, access *proxy.AccessControl, relayer *proxy.Relayer, xp *leveling.Engine, replier Replier, dir Directory, logger *slog.Logger, opts ...RouterOption) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{
		prefix:  prefix,
		access:  access,
		relayer: relayer,
		xp:      xp,
		replier: replier,
		dir:     dir,
		logger:  logger,

		replyTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.commands = map[string]command{
		"createproxy": r.createProxy,
		"grantproxy":  r.grantProxy,
		"proxysay":    r.proxySay,
		"listproxies": r.listProxies,
		"proxyaccess": r.proxyAccess,
		"deleteproxy": r.deleteProxy,
		"xp":          r.showXP,
	}
	return r
}

// Handle runs msg if it is a known command. It returns false for anything
// else, including messages from bots and webhooks (relayed proxy messages
// must never trigger commands).
func (r *Router) Handle(ctx context.Context, msg Message) bool {
	if msg.AuthorBot || msg.WebhookID != "" {
		return false
	}
	body, ok := strings.CutPrefix(msg.Content, r.prefix)
	if !ok {
		return false
	}
	name, args, err := cutArg(body)
	if err != nil || name == "" {
		return false
	}
	cmd, ok := r.commands[strings.ToLower(name)]
	if !ok {
		return false
	}

	r.logger.Debug("command received",
		"command", name,
		"user_id", msg.AuthorID,
		"channel_id", msg.ChannelID,
	)
	reply := cmd(ctx, msg, args)
	if reply == "" {
		return true
	}
	replyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.replyTimeout)
	defer cancel()
	if err := r.replier.Reply(replyCtx, msg.ChannelID, reply); err != nil {
		r.logger.Warn("command reply failed", "command", name, "channel_id", msg.ChannelID, "error", err)
	}
	return true
}

func (r *Router) createProxy(ctx context.Context, msg Message, args string) string {
	const usage = "createproxy <key> <name> [avatar_url]"
	parts, err := splitArgs(args, 3)
	if err != nil || len(parts) < 2 {
		return renderUsage(r.prefix, usage)
	}
	avatar := ""
	if len(parts) == 3 {
		avatar = parts[2]
	}

	p, err := r.access.CreateProxy(ctx, parts[0], parts[1], avatar, msg.AuthorID)
	if err != nil {
		r.logFailure("createproxy", msg, parts[0], err)
		return renderError(err, parts[0])
	}
	return renderCreated(p)
}

func (r *Router) grantProxy(ctx context.Context, msg Message, args string) string {
	const usage = "grantproxy <key> @member"
	parts, err := splitArgs(args, 2)
	if err != nil || len(parts) < 2 {
		return renderUsage(r.prefix, usage)
	}
	grantee, ok := parseUserRef(parts[1])
	if !ok {
		return replyUnknownMember
	}

	if err := r.access.GrantAccess(ctx, parts[0], msg.AuthorID, grantee); err != nil {
		r.logFailure("grantproxy", msg, parts[0], err)
		return renderError(err, parts[0])
	}
	return renderGranted(grantee, parts[0])
}

func (r *Router) proxySay(ctx context.Context, msg Message, args string) string {
	const usage = "proxysay <key> <message>"
	key, text, err := cutArg(args)
	text = strings.TrimSpace(text)
	if err != nil || key == "" || text == "" {
		return renderUsage(r.prefix, usage)
	}

	_, err = r.relayer.Relay(ctx, proxy.Request{
		ProxyKey:  key,
		UserID:    msg.AuthorID,
		ChannelID: msg.ChannelID,
		MessageID: msg.ID,
		Text:      text,
	})
	if err != nil {
		r.logFailure("proxysay", msg, key, err)
		return renderError(err, key)
	}
	return ""
}

func (r *Router) listProxies(ctx context.Context, msg Message, _ string) string {
	proxies, err := r.access.ListAccessible(ctx, msg.AuthorID)
	if err != nil {
		r.logFailure("listproxies", msg, "", err)
		return renderError(err, "")
	}
	return renderProxyList(proxies)
}

func (r *Router) proxyAccess(ctx context.Context, msg Message, args string) string {
	const usage = "proxyaccess <key>"
	parts, err := splitArgs(args, 1)
	if err != nil || len(parts) < 1 {
		return renderUsage(r.prefix, usage)
	}

	holders, err := r.access.ListGrantees(ctx, parts[0])
	if err != nil {
		r.logFailure("proxyaccess", msg, parts[0], err)
		return renderError(err, parts[0])
	}
	return renderGrantees(parts[0], holders)
}

func (r *Router) deleteProxy(ctx context.Context, msg Message, args string) string {
	const usage = "deleteproxy <key>"
	admin, err := r.dir.IsAdmin(ctx, msg.GuildID, msg.ChannelID, msg.AuthorID)
	if err != nil {
		r.logger.Warn("permission lookup failed", "user_id", msg.AuthorID, "channel_id", msg.ChannelID, "error", err)
		admin = false
	}
	if !admin {
		return replyNotAdmin
	}

	parts, err := splitArgs(args, 1)
	if err != nil || len(parts) < 1 {
		return renderUsage(r.prefix, usage)
	}
	n, err := r.access.DeleteProxy(ctx, parts[0])
	if err != nil {
		r.logFailure("deleteproxy", msg, parts[0], err)
		return renderError(err, parts[0])
	}
	return renderDeleted(parts[0], n)
}

func (r *Router) showXP(ctx context.Context, msg Message, args string) string {
	const usage = "xp [@member]"
	target := msg.AuthorID
	parts, err := splitArgs(args, 1)
	if err != nil {
		return renderUsage(r.prefix, usage)
	}
	if len(parts) == 1 {
		id, ok := parseUserRef(parts[0])
		if !ok {
			return replyUnknownMember
		}
		target = id
	}

	rec, err := r.xp.Query(ctx, target)
	if err != nil {
		r.logger.Error("xp query failed", "user_id", target, "error", err)
		return replyStoreFailure
	}

	display, err := r.dir.DisplayName(ctx, msg.GuildID, target)
	if err != nil || display == "" {
		r.logger.Debug("display name lookup failed", "user_id", target, "error", err)
		display = mention(target)
	}
	return renderXP(display, rec)
}

func (r *Router) logFailure(cmd string, msg Message, key string, err error) {
	level := slog.LevelDebug
	switch proxy.CodeOf(err) {
	case proxy.ErrCodeInfrastructure, proxy.ErrCodeStore, "":
		level = slog.LevelWarn
	}
	r.logger.Log(context.Background(), level, "command failed",
		"command", cmd,
		"proxy_key", key,
		"user_id", msg.AuthorID,
		"channel_id", msg.ChannelID,
		"error", err,
	)
}
