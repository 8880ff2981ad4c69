package service

import (
	"context"
	"testing"
	"unicode/utf8"

	"chat-relay-be/internal/pkg/logger"
	"chat-relay-be/internal/repository/file"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSessionName(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{"already canonical", "mean_robot_chat", "mean_robot_chat", true},
		{"spaced and punctuated", "Mean Robot Chat.", "mean_robot_chat", true},
		{"quoted reply", `"weather in oslo"`, "weather_in_oslo", true},
		{"two words", "quick question", "quick_question", true},
		{"five words", "a b c d e", "a_b_c_d_e", true},
		{"single word rejected", "one", "", false},
		{"six words rejected", "a b c d e f", "", false},
		{"word too long", "supercalifragilistic chat", "", false},
		{"non alphanumeric word", "robo-chat fun", "", false},
		{"empty", "", "", false},
		{"only punctuation", `"...!"`, "", false},
		{"reasoning scratchpad stripped", "<think>the user asked about robots</think>\nmean_robot_chat", "mean_robot_chat", true},
		{"digits allowed", "top 10 movies", "top_10_movies", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := normalizeSessionName(tc.raw)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab", truncate("abcdef", 2))
	assert.Equal(t, "", truncate("", 10))
	assert.Equal(t, "", truncate("abc", 0))
}

func TestTruncateCountsRunesNotBytes(t *testing.T) {
	// Multi-byte input must never be cut mid-rune.
	assert.Equal(t, "héllo", truncate("héllo wörld", 5))
	assert.Equal(t, "日本", truncate("日本語のテキスト", 2))

	got := truncate("héllo", 2)
	assert.Equal(t, "hé", got)
	assert.True(t, utf8.ValidString(got))
}

func newNamingFixture(t *testing.T, provider *fakeProvider) (*namingService, *file.SessionRepository) {
	t.Helper()
	repo, err := file.NewSessionRepository(t.TempDir(), 100, logger.NewNopLogger())
	require.NoError(t, err)
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	svc := NewNamingService(pubSub, repo, provider, "", logger.NewNopLogger()).(*namingService)
	return svc, repo
}

func TestNameSessionRenames(t *testing.T) {
	svc, repo := newNamingFixture(t, &fakeProvider{genReply: "Mean Robot Chat."})

	session, err := repo.Create("")
	require.NoError(t, err)
	require.NoError(t, repo.AppendMessage(session.Id, "user", "tell me about mean robots"))
	require.NoError(t, repo.AppendMessage(session.Id, "assistant", "gladly, here goes"))

	svc.nameSession(context.Background(), session.Id)

	loaded, err := repo.Load(session.Id)
	require.NoError(t, err)
	assert.Equal(t, "mean_robot_chat", loaded.Name)
}

func TestNameSessionSkipsAlreadyNamed(t *testing.T) {
	svc, repo := newNamingFixture(t, &fakeProvider{genReply: "fresh new name"})

	session, err := repo.Create("")
	require.NoError(t, err)
	require.NoError(t, repo.AppendMessage(session.Id, "user", "q"))
	require.NoError(t, repo.AppendMessage(session.Id, "assistant", "a"))
	require.NoError(t, repo.Rename(session.Id, "user picked this"))

	svc.nameSession(context.Background(), session.Id)

	loaded, err := repo.Load(session.Id)
	require.NoError(t, err)
	assert.Equal(t, "user picked this", loaded.Name, "manual rename wins the race")
}

func TestNameSessionSkipsShortSessions(t *testing.T) {
	svc, repo := newNamingFixture(t, &fakeProvider{genReply: "some valid name"})

	session, err := repo.Create("")
	require.NoError(t, err)
	require.NoError(t, repo.AppendMessage(session.Id, "user", "only one message"))

	svc.nameSession(context.Background(), session.Id)

	loaded, err := repo.Load(session.Id)
	require.NoError(t, err)
	assert.Equal(t, session.Id, loaded.Name)
}

func TestNameSessionKeepsPlaceholderOnBadReply(t *testing.T) {
	svc, repo := newNamingFixture(t, &fakeProvider{genReply: "I'd suggest calling this conversation something fun!"})

	session, err := repo.Create("")
	require.NoError(t, err)
	require.NoError(t, repo.AppendMessage(session.Id, "user", "q"))
	require.NoError(t, repo.AppendMessage(session.Id, "assistant", "a"))

	svc.nameSession(context.Background(), session.Id)

	loaded, err := repo.Load(session.Id)
	require.NoError(t, err)
	assert.Equal(t, session.Id, loaded.Name, "unusable reply leaves the placeholder")
}

func TestNameSessionSurvivesMissingSession(t *testing.T) {
	svc, _ := newNamingFixture(t, &fakeProvider{genReply: "valid name"})

	// Must not panic when the session vanished before the worker ran.
	svc.nameSession(context.Background(), "999999")
}
