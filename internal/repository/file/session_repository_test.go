package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"chat-relay-be/internal/pkg/logger"
	"chat-relay-be/internal/repository/contract"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *SessionRepository {
	t.Helper()
	repo, err := NewSessionRepository(t.TempDir(), 100, logger.NewNopLogger())
	require.NoError(t, err)
	return repo
}

func TestCreateAndLoad(t *testing.T) {
	repo := newTestRepo(t)

	session, err := repo.Create("be helpful")
	require.NoError(t, err)
	assert.Equal(t, session.Id, session.Name, "fresh session wears its id as name")
	assert.Equal(t, "be helpful", session.SystemPrompt)
	assert.Empty(t, session.Messages)

	loaded, err := repo.Load(session.Id)
	require.NoError(t, err)
	assert.Equal(t, session.Id, loaded.Id)
	assert.Equal(t, "be helpful", loaded.SystemPrompt)
}

func TestLoadUnknownSession(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.Load("12345")
	assert.ErrorIs(t, err, contract.ErrSessionNotFound)
}

func TestAppendThenLoadTail(t *testing.T) {
	repo := newTestRepo(t)
	session, err := repo.Create("")
	require.NoError(t, err)

	require.NoError(t, repo.AppendMessage(session.Id, "user", "hello"))
	require.NoError(t, repo.AppendMessage(session.Id, "assistant", "hi!"))

	loaded, err := repo.Load(session.Id)
	require.NoError(t, err)
	require.Len(t, loaded.Messages, 2)
	tail := loaded.Messages[len(loaded.Messages)-1]
	assert.Equal(t, "assistant", tail.Role)
	assert.Equal(t, "hi!", tail.Content)
	assert.False(t, tail.Timestamp.IsZero())
}

func TestUpdateMessage(t *testing.T) {
	repo := newTestRepo(t)
	session, _ := repo.Create("")
	require.NoError(t, repo.AppendMessage(session.Id, "user", "tpyo"))

	require.NoError(t, repo.UpdateMessage(session.Id, 0, "typo"))

	loaded, err := repo.Load(session.Id)
	require.NoError(t, err)
	assert.Equal(t, "typo", loaded.Messages[0].Content)

	assert.ErrorIs(t, repo.UpdateMessage(session.Id, 5, "x"), contract.ErrMessageIndex)
	assert.ErrorIs(t, repo.UpdateMessage(session.Id, -1, "x"), contract.ErrMessageIndex)
}

func TestTruncateMessagesClamps(t *testing.T) {
	repo := newTestRepo(t)
	session, _ := repo.Create("")
	for i := 0; i < 4; i++ {
		require.NoError(t, repo.AppendMessage(session.Id, "user", "m"))
	}

	deleted, err := repo.TruncateMessages(session.Id, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)

	// Overshoot empties the list and reports the prior length.
	deleted, err = repo.TruncateMessages(session.Id, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	loaded, err := repo.Load(session.Id)
	require.NoError(t, err)
	assert.Empty(t, loaded.Messages)
}

func TestTruncateMessagesNonPositiveCount(t *testing.T) {
	repo := newTestRepo(t)
	session, _ := repo.Create("")
	require.NoError(t, repo.AppendMessage(session.Id, "user", "q"))
	require.NoError(t, repo.AppendMessage(session.Id, "assistant", "a"))

	// Negative and zero counts delete nothing.
	deleted, err := repo.TruncateMessages(session.Id, -1)
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)

	deleted, err = repo.TruncateMessages(session.Id, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)

	loaded, err := repo.Load(session.Id)
	require.NoError(t, err)
	assert.Len(t, loaded.Messages, 2)
}

func TestRenameRelocatesFileAndRoundTrips(t *testing.T) {
	dir := t.TempDir()
	repo, err := NewSessionRepository(dir, 100, logger.NewNopLogger())
	require.NoError(t, err)

	session, err := repo.Create("")
	require.NoError(t, err)

	require.NoError(t, repo.Rename(session.Id, "Foo Bar"))

	// The backing file moved to the sanitized-name composite.
	wantFile := filepath.Join(dir, "Foo_Bar_"+session.Id+".json")
	_, statErr := os.Stat(wantFile)
	assert.NoError(t, statErr)
	_, statErr = os.Stat(filepath.Join(dir, session.Id+".json"))
	assert.True(t, os.IsNotExist(statErr), "old file should be gone")

	// Lookup by id still resolves.
	loaded, err := repo.Load(session.Id)
	require.NoError(t, err)
	assert.Equal(t, "Foo Bar", loaded.Name)
	assert.Equal(t, session.Id, loaded.Id)
}

func TestRenamedSessionSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	repo, err := NewSessionRepository(dir, 100, logger.NewNopLogger())
	require.NoError(t, err)

	session, err := repo.Create("")
	require.NoError(t, err)
	require.NoError(t, repo.Rename(session.Id, "weather talk"))

	// Fresh repository rebuilds the id→path index from a directory scan.
	reopened, err := NewSessionRepository(dir, 100, logger.NewNopLogger())
	require.NoError(t, err)

	loaded, err := reopened.Load(session.Id)
	require.NoError(t, err)
	assert.Equal(t, "weather talk", loaded.Name)
}

func TestListOrdersByLastActiveDesc(t *testing.T) {
	repo := newTestRepo(t)

	first, err := repo.Create("")
	require.NoError(t, err)
	second, err := repo.Create("")
	require.NoError(t, err)

	// Touch the older session so it becomes the most recent.
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, repo.AppendMessage(first.Id, "user", "bump"))

	summaries, err := repo.List()
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, first.Id, summaries[0].Id)
	assert.Equal(t, second.Id, summaries[1].Id)
	assert.Equal(t, 1, summaries[0].MessageCount)
}

func TestDeleteSession(t *testing.T) {
	repo := newTestRepo(t)
	session, _ := repo.Create("")

	require.NoError(t, repo.Delete(session.Id))
	assert.ErrorIs(t, repo.Delete(session.Id), contract.ErrSessionNotFound)

	_, err := repo.Load(session.Id)
	assert.ErrorIs(t, err, contract.ErrSessionNotFound)
}

func TestClearSession(t *testing.T) {
	repo := newTestRepo(t)
	session, _ := repo.Create("")
	require.NoError(t, repo.AppendMessage(session.Id, "user", "hello"))

	require.NoError(t, repo.Clear(session.Id))

	loaded, err := repo.Load(session.Id)
	require.NoError(t, err)
	assert.Empty(t, loaded.Messages)
}

func TestMaxHistoryCapsStoredMessages(t *testing.T) {
	repo, err := NewSessionRepository(t.TempDir(), 4, logger.NewNopLogger())
	require.NoError(t, err)
	session, _ := repo.Create("")

	for i := 0; i < 6; i++ {
		require.NoError(t, repo.AppendMessage(session.Id, "user", string(rune('a'+i))))
	}

	loaded, err := repo.Load(session.Id)
	require.NoError(t, err)
	require.Len(t, loaded.Messages, 4)
	assert.Equal(t, "c", loaded.Messages[0].Content, "newest messages win")
}

func TestSanitizeName(t *testing.T) {
	cases := map[string]string{
		"Foo Bar":          "Foo_Bar",
		"a/b\\c":           "a_b_c",
		"hello, world!":    "hello_world",
		"já_было-tested":   "j_-tested",
		"":                 "",
		"under_score-keep": "under_score-keep",
	}
	for in, want := range cases {
		assert.Equal(t, want, sanitizeName(in), "input %q", in)
	}
}
