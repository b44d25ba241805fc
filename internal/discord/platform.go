package discord

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/PrimaryFunction/Arkos/internal/leveling"
	"github.com/PrimaryFunction/Arkos/internal/proxy"
)

// maxWebhookName is Discord's limit on webhook and username length.
const maxWebhookName = 80

// Platform implements proxy.Platform and leveling.Sender over the Discord
// REST API.
type Platform struct {
	api     API
	parents *expirable.LRU[string, string]
	logger  *slog.Logger
}

var (
	_ proxy.Platform  = (*Platform)(nil)
	_ leveling.Sender = (*Platform)(nil)
)

// NewPlatform creates a Platform. Channel parents are cached for ttl; a
// channel never changes between thread and top-level, but may be deleted.
func NewPlatform(api API, cacheSize int, ttl time.Duration, logger *slog.Logger) *Platform {
	if cacheSize < 1 {
		cacheSize = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Platform{
		api:     api,
		parents: expirable.NewLRU[string, string](cacheSize, nil, ttl),
		logger:  logger,
	}
}

// ChannelParent returns the parent of a thread or forum post, "" otherwise.
func (p *Platform) ChannelParent(ctx context.Context, channelID string) (string, error) {
	if parent, ok := p.parents.Get(channelID); ok {
		return parent, nil
	}
	ch, err := p.api.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("fetch channel %s: %w", channelID, err)
	}
	parent := ""
	if isThread(ch) {
		parent = ch.ParentID
	}
	p.parents.Add(channelID, parent)
	return parent, nil
}

// isThread reports whether ch is a sub-channel. Forum posts are public
// threads. A regular channel's ParentID is its category, not a host.
func isThread(ch *discordgo.Channel) bool {
	switch ch.Type {
	case discordgo.ChannelTypeGuildPublicThread,
		discordgo.ChannelTypeGuildPrivateThread,
		discordgo.ChannelTypeGuildNewsThread:
		return ch.ParentID != ""
	}
	return false
}

// ProvisionBinding creates a webhook named after the proxy.
func (p *Platform) ProvisionBinding(ctx context.Context, channelID, name, avatarURL string) (proxy.Binding, error) {
	wh, err := p.api.WebhookCreate(channelID, clip(name, maxWebhookName), "", discordgo.WithContext(ctx))
	if err != nil {
		return proxy.Binding{}, fmt.Errorf("create webhook in %s: %w", channelID, err)
	}
	return proxy.Binding{
		ID:        wh.ID,
		Token:     wh.Token,
		ChannelID: channelID,
		Name:      name,
		AvatarURL: avatarURL,
	}, nil
}

// SendAs executes the webhook with the proxy's name and avatar. Only user
// mentions are resolved; a proxy cannot ping roles or @everyone.
func (p *Platform) SendAs(ctx context.Context, b proxy.Binding, threadID, text string) error {
	params := &discordgo.WebhookParams{
		Content:   text,
		Username:  clip(b.Name, maxWebhookName),
		AvatarURL: b.AvatarURL,
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Parse: []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeUsers},
		},
	}

	var err error
	if threadID != "" {
		_, err = p.api.WebhookThreadExecute(b.ID, b.Token, true, threadID, params, discordgo.WithContext(ctx))
	} else {
		_, err = p.api.WebhookExecute(b.ID, b.Token, true, params, discordgo.WithContext(ctx))
	}
	if err != nil {
		return fmt.Errorf("execute webhook %s: %w", b.ID, err)
	}
	return nil
}

// ReleaseBinding deletes the webhook.
func (p *Platform) ReleaseBinding(ctx context.Context, b proxy.Binding) error {
	if err := p.api.WebhookDelete(b.ID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("delete webhook %s: %w", b.ID, err)
	}
	return nil
}

// DeleteMessage deletes a message.
func (p *Platform) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	if err := p.api.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("delete message %s: %w", messageID, err)
	}
	return nil
}

// Notify posts text as the bot.
func (p *Platform) Notify(ctx context.Context, channelID, text string) error {
	if _, err := p.api.ChannelMessageSend(channelID, text, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("send message to %s: %w", channelID, err)
	}
	return nil
}

// Reply posts a command reply. It is Notify under the Replier contract.
func (p *Platform) Reply(ctx context.Context, channelID, text string) error {
	return p.Notify(ctx, channelID, text)
}

// Mention renders a user mention.
func (p *Platform) Mention(userID string) string {
	return mention(userID)
}

func mention(userID string) string {
	return "<@" + userID + ">"
}

// clip truncates s to n runes.
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
