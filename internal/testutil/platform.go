package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/PrimaryFunction/Arkos/internal/proxy"
)

// Platform call names recorded by RecordingPlatform.
const (
	OpParent    = "parent"
	OpProvision = "provision"
	OpSend      = "send"
	OpRelease   = "release"
	OpDelete    = "delete_message"
	OpNotify    = "notify"
)

// Call is one recorded platform call.
type Call struct {
	Op        string `json:"op" yaml:"op"`
	ChannelID string `json:"channel_id,omitempty" yaml:"channel_id,omitempty"`
	ThreadID  string `json:"thread_id,omitempty" yaml:"thread_id,omitempty"`
	BindingID string `json:"binding_id,omitempty" yaml:"binding_id,omitempty"`
	Name      string `json:"name,omitempty" yaml:"name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty" yaml:"avatar_url,omitempty"`
	MessageID string `json:"message_id,omitempty" yaml:"message_id,omitempty"`
	Text      string `json:"text,omitempty" yaml:"text,omitempty"`
	Err       string `json:"error,omitempty" yaml:"error,omitempty"`
}

// RecordingPlatform is an in-memory chat platform. It records every call in
// order, tracks which bindings are still provisioned, and can be told to fail
// individual operations.
//
// It implements proxy.Platform and the leveling notification sender.
// Thread-safety: safe for concurrent use.
type RecordingPlatform struct {
	mu       sync.Mutex
	parents  map[string]string
	active   map[string]proxy.Binding
	failures map[string]error
	calls    []Call
	next     int
}

// NewRecordingPlatform creates an empty platform where every channel is
// top-level.
func NewRecordingPlatform() *RecordingPlatform {
	return &RecordingPlatform{
		parents:  make(map[string]string),
		active:   make(map[string]proxy.Binding),
		failures: make(map[string]error),
	}
}

// SetParent makes channelID a sub-channel of parentID.
func (p *RecordingPlatform) SetParent(channelID, parentID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.parents[channelID] = parentID
}

// FailOn makes every later call of op return err. A nil err clears it.
func (p *RecordingPlatform) FailOn(op string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err == nil {
		delete(p.failures, op)
		return
	}
	p.failures[op] = err
}

// ChannelParent implements proxy.Platform.
func (p *RecordingPlatform) ChannelParent(ctx context.Context, channelID string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	call := Call{Op: OpParent, ChannelID: channelID}
	if err := p.failLocked(ctx, call); err != nil {
		return "", err
	}
	p.calls = append(p.calls, call)
	return p.parents[channelID], nil
}

// ProvisionBinding implements proxy.Platform.
func (p *RecordingPlatform) ProvisionBinding(ctx context.Context, channelID, name, avatarURL string) (proxy.Binding, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	call := Call{Op: OpProvision, ChannelID: channelID, Name: name, AvatarURL: avatarURL}
	if err := p.failLocked(ctx, call); err != nil {
		return proxy.Binding{}, err
	}
	p.next++
	b := proxy.Binding{
		ID:        fmt.Sprintf("binding-%d", p.next),
		Token:     fmt.Sprintf("token-%d", p.next),
		ChannelID: channelID,
		Name:      name,
		AvatarURL: avatarURL,
	}
	if _, isSub := p.parents[channelID]; isSub {
		// A sub-channel cannot host a binding.
		call.Err = "sub-channel cannot host a binding"
		p.calls = append(p.calls, call)
		return proxy.Binding{}, fmt.Errorf("channel %s: %s", channelID, call.Err)
	}
	call.BindingID = b.ID
	p.calls = append(p.calls, call)
	p.active[b.ID] = b
	return b, nil
}

// SendAs implements proxy.Platform.
func (p *RecordingPlatform) SendAs(ctx context.Context, b proxy.Binding, threadID, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	call := Call{Op: OpSend, ChannelID: b.ChannelID, ThreadID: threadID, BindingID: b.ID, Name: b.Name, Text: text}
	if err := p.failLocked(ctx, call); err != nil {
		return err
	}
	if _, ok := p.active[b.ID]; !ok {
		call.Err = "unknown binding"
		p.calls = append(p.calls, call)
		return fmt.Errorf("binding %s: %s", b.ID, call.Err)
	}
	p.calls = append(p.calls, call)
	return nil
}

// ReleaseBinding implements proxy.Platform.
func (p *RecordingPlatform) ReleaseBinding(ctx context.Context, b proxy.Binding) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	call := Call{Op: OpRelease, ChannelID: b.ChannelID, BindingID: b.ID}
	if err := p.failLocked(ctx, call); err != nil {
		return err
	}
	delete(p.active, b.ID)
	p.calls = append(p.calls, call)
	return nil
}

// DeleteMessage implements proxy.Platform.
func (p *RecordingPlatform) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	call := Call{Op: OpDelete, ChannelID: channelID, MessageID: messageID}
	if err := p.failLocked(ctx, call); err != nil {
		return err
	}
	p.calls = append(p.calls, call)
	return nil
}

// Notify sends a plain message into a channel.
func (p *RecordingPlatform) Notify(ctx context.Context, channelID, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	call := Call{Op: OpNotify, ChannelID: channelID, Text: text}
	if err := p.failLocked(ctx, call); err != nil {
		return err
	}
	p.calls = append(p.calls, call)
	return nil
}

// Mention renders a user mention.
func (p *RecordingPlatform) Mention(userID string) string {
	return "<@" + userID + ">"
}

// failLocked records call as failed and returns the injected or context
// error, if any. Caller holds p.mu.
func (p *RecordingPlatform) failLocked(ctx context.Context, call Call) error {
	err := ctx.Err()
	if err == nil {
		err = p.failures[call.Op]
	}
	if err == nil {
		return nil
	}
	call.Err = err.Error()
	p.calls = append(p.calls, call)
	return err
}

// Calls returns a copy of every recorded call in order.
func (p *RecordingPlatform) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Call, len(p.calls))
	copy(out, p.calls)
	return out
}

// CallsOf returns the recorded calls of one op, failed ones included.
func (p *RecordingPlatform) CallsOf(op string) []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []Call
	for _, c := range p.calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// ActiveBindings returns the IDs of bindings provisioned on channelID and
// not yet released. An empty channelID matches every channel.
func (p *RecordingPlatform) ActiveBindings(channelID string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var ids []string
	for id, b := range p.active {
		if channelID == "" || b.ChannelID == channelID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Reset forgets recorded calls and provisioned bindings. Parents and
// injected failures stay.
func (p *RecordingPlatform) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = nil
	p.active = make(map[string]proxy.Binding)
}
