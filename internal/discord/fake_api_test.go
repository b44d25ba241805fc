package discord

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// fakeAPI is an in-memory API. Channels and members are seeded by tests;
// webhook and message calls are recorded.
type fakeAPI struct {
	mu           sync.Mutex
	channels     map[string]*discordgo.Channel
	members      map[string]*discordgo.Member
	perms        map[string]int64
	channelCalls int
	webhooks     map[string]*discordgo.Webhook
	executed     []executed
	deleted      []string
	sent         []sentMessage
	failExecute  error
	nextWebhook  int
}

type executed struct {
	WebhookID string
	ThreadID  string
	Params    discordgo.WebhookParams
}

type sentMessage struct {
	ChannelID, Content string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		channels: make(map[string]*discordgo.Channel),
		members:  make(map[string]*discordgo.Member),
		perms:    make(map[string]int64),
		webhooks: make(map[string]*discordgo.Webhook),
	}
}

func (f *fakeAPI) addChannel(ch *discordgo.Channel) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channels[ch.ID] = ch
}

func (f *fakeAPI) Channel(channelID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channelCalls++
	ch, ok := f.channels[channelID]
	if !ok {
		return nil, fmt.Errorf("HTTP 404 Not Found: unknown channel %s", channelID)
	}
	return ch, nil
}

func (f *fakeAPI) WebhookCreate(channelID, name, _ string, _ ...discordgo.RequestOption) (*discordgo.Webhook, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ch, ok := f.channels[channelID]; ok && isThread(ch) {
		return nil, errors.New("HTTP 400 Bad Request: cannot create webhook in thread")
	}
	f.nextWebhook++
	wh := &discordgo.Webhook{
		ID:        fmt.Sprintf("wh-%d", f.nextWebhook),
		Token:     fmt.Sprintf("tok-%d", f.nextWebhook),
		ChannelID: channelID,
		Name:      name,
	}
	f.webhooks[wh.ID] = wh
	return wh, nil
}

func (f *fakeAPI) WebhookExecute(webhookID, token string, _ bool, data *discordgo.WebhookParams, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	return f.execute(webhookID, token, "", data)
}

func (f *fakeAPI) WebhookThreadExecute(webhookID, token string, _ bool, threadID string, data *discordgo.WebhookParams, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	return f.execute(webhookID, token, threadID, data)
}

func (f *fakeAPI) execute(webhookID, token, threadID string, data *discordgo.WebhookParams) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failExecute != nil {
		return nil, f.failExecute
	}
	wh, ok := f.webhooks[webhookID]
	if !ok || wh.Token != token {
		return nil, errors.New("HTTP 404 Not Found: unknown webhook")
	}
	f.executed = append(f.executed, executed{WebhookID: webhookID, ThreadID: threadID, Params: *data})
	return &discordgo.Message{ID: "sent", WebhookID: webhookID, Content: data.Content}, nil
}

func (f *fakeAPI) WebhookDelete(webhookID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.webhooks[webhookID]; !ok {
		return errors.New("HTTP 404 Not Found: unknown webhook")
	}
	delete(f.webhooks, webhookID)
	return nil
}

func (f *fakeAPI) ChannelMessageSend(channelID string, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{channelID, content})
	return &discordgo.Message{ChannelID: channelID, Content: content}, nil
}

func (f *fakeAPI) ChannelMessageDelete(channelID, messageID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, channelID+"/"+messageID)
	return nil
}

func (f *fakeAPI) UserChannelPermissions(userID, channelID string, _ ...discordgo.RequestOption) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.perms[userID]
	if !ok {
		return 0, nil
	}
	return p, nil
}

func (f *fakeAPI) GuildMember(guildID, userID string, _ ...discordgo.RequestOption) (*discordgo.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[userID]
	if !ok {
		return nil, fmt.Errorf("HTTP 404 Not Found: unknown member %s", userID)
	}
	return m, nil
}

func (f *fakeAPI) liveWebhooks() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.webhooks)
}
