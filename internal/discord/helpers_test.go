package discord

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/require"

	"github.com/PrimaryFunction/Arkos/internal/leveling"
	"github.com/PrimaryFunction/Arkos/internal/proxy"
	"github.com/PrimaryFunction/Arkos/internal/store"
	"github.com/PrimaryFunction/Arkos/internal/testutil"
)

// recordingReplier records replies.
type recordingReplier struct {
	mu      sync.Mutex
	replies []sentMessage
	ctxErrs []error
}

func (r *recordingReplier) Reply(ctx context.Context, channelID, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replies = append(r.replies, sentMessage{channelID, text})
	r.ctxErrs = append(r.ctxErrs, ctx.Err())
	return nil
}

func (r *recordingReplier) texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.replies))
	for i, m := range r.replies {
		out[i] = m.Content
	}
	return out
}

func (r *recordingReplier) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.replies) == 0 {
		return ""
	}
	return r.replies[len(r.replies)-1].Content
}

type routerFixture struct {
	api      *fakeAPI
	store    *store.Store
	access   *proxy.AccessControl
	relayer  *proxy.Relayer
	notifier *leveling.Notifier
	engine   *leveling.Engine
	replier  *recordingReplier
	router   *Router
}

func newRouterFixture(t *testing.T, api *fakeAPI) *routerFixture {
	t.Helper()
	if api == nil {
		api = newFakeAPI()
	}
	if _, ok := api.channels["general"]; !ok {
		api.addChannel(&discordgo.Channel{ID: "general", Type: discordgo.ChannelTypeGuildText})
	}
	st, err := store.Open(filepath.Join(t.TempDir(), "bot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	logger := discardLogger()
	platform := newTestPlatform(api)
	access := proxy.NewAccessControl(st, logger)
	notifier := leveling.NewNotifier(platform, 16, time.Second, logger)
	engine := leveling.New(st, leveling.DefaultCurve(), notifier, leveling.WithLogger(logger))
	relayer := proxy.NewRelayer(access, platform, engine,
		proxy.WithLogger(logger),
		proxy.WithIDGenerator(testutil.NewFixedIDGenerator("")),
	)
	replier := &recordingReplier{}
	router := NewRouter("!", access, relayer, engine, replier, NewSessionDirectory(api, logger), logger)

	return &routerFixture{
		api:      api,
		store:    st,
		access:   access,
		relayer:  relayer,
		notifier: notifier,
		engine:   engine,
		replier:  replier,
		router:   router,
	}
}

func (f *routerFixture) createProxy(t *testing.T, key, name, avatar, creator string) {
	t.Helper()
	_, err := f.access.CreateProxy(context.Background(), key, name, avatar, creator)
	require.NoError(t, err)
}

// say runs content as a command from userID in "general".
func (f *routerFixture) say(userID, content string) bool {
	return f.router.Handle(context.Background(), Message{
		ID:        "msg-" + userID,
		ChannelID: "general",
		GuildID:   "guild-1",
		AuthorID:  userID,
		Content:   content,
	})
}

func (f *routerFixture) makeAdmin(userID string) {
	f.api.mu.Lock()
	defer f.api.mu.Unlock()
	f.api.perms[userID] = discordgo.PermissionAdministrator | discordgo.PermissionSendMessages
}

func (f *routerFixture) addMember(m *discordgo.Member) {
	f.api.mu.Lock()
	defer f.api.mu.Unlock()
	f.api.members[m.User.ID] = m
}
