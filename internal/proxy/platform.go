package proxy

import "context"

// Binding is a transient named sender provisioned on a top-level channel.
// On Discord it is a webhook.
type Binding struct {
	ID        string
	Token     string
	ChannelID string // Host channel the binding was provisioned on
	Name      string // Sender name messages appear under
	AvatarURL string
}

// Platform is what the relay needs from the chat platform. Implementations
// must honour ctx deadlines so no call hangs.
type Platform interface {
	// ChannelParent returns the parent of a thread or forum post, or "" for
	// a top-level channel.
	ChannelParent(ctx context.Context, channelID string) (string, error)

	// ProvisionBinding creates a named sender on a top-level channel.
	ProvisionBinding(ctx context.Context, channelID, name, avatarURL string) (Binding, error)

	// SendAs emits text through the binding. threadID addresses a
	// sub-channel of the binding's host; "" posts in the host itself.
	SendAs(ctx context.Context, b Binding, threadID, text string) error

	// ReleaseBinding removes a binding.
	ReleaseBinding(ctx context.Context, b Binding) error

	// DeleteMessage removes a message from a channel.
	DeleteMessage(ctx context.Context, channelID, messageID string) error
}

// Awarder receives the relayed activity of a user. Implementations absorb
// their own failures.
type Awarder interface {
	Award(ctx context.Context, userID, channelID, text string)
}

// NopAwarder discards awards.
type NopAwarder struct{}

// Award does nothing.
func (NopAwarder) Award(context.Context, string, string, string) {}
