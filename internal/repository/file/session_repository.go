package file

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"chat-relay-be/internal/repository/contract"

	"chat-relay-be/internal/pkg/logger"

	"github.com/patrickmn/go-cache"
)

const sessionFileExt = ".json"

// SessionRepository stores one JSON document per session under dir. The
// id→filename index is rebuilt from a directory scan at startup so renamed
// files (<sanitized-name>_<id>.json) resolve without globbing on every call.
type SessionRepository struct {
	dir        string
	maxHistory int
	index      *cache.Cache
	logger     logger.ILogger
	mu         sync.Mutex
}

var _ contract.ISessionRepository = &SessionRepository{}

func NewSessionRepository(dir string, maxHistory int, log logger.ILogger) (*SessionRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create sessions dir: %w", err)
	}

	repo := &SessionRepository{
		dir:        dir,
		maxHistory: maxHistory,
		index:      cache.New(cache.NoExpiration, 0),
		logger:     log,
	}
	repo.rebuildIndex()
	return repo, nil
}

func (r *SessionRepository) rebuildIndex() {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		r.logger.Warn("session_store", "Failed to scan sessions dir", map[string]interface{}{"dir": r.dir, "error": err.Error()})
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), sessionFileExt) {
			continue
		}
		session, err := r.readFile(filepath.Join(r.dir, entry.Name()))
		if err != nil {
			r.logger.Warn("session_store", "Skipping unreadable session file", map[string]interface{}{"file": entry.Name(), "error": err.Error()})
			continue
		}
		r.index.Set(session.Id, entry.Name(), cache.NoExpiration)
	}
}

func (r *SessionRepository) Create(systemPrompt string) (*contract.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Time-based id like the legacy store; bump on collision within the
	// same second.
	id := time.Now().Unix()
	for {
		if _, err := os.Stat(filepath.Join(r.dir, strconv.FormatInt(id, 10)+sessionFileExt)); os.IsNotExist(err) {
			break
		}
		id++
	}
	sessionId := strconv.FormatInt(id, 10)

	now := time.Now()
	session := &contract.Session{
		Id:           sessionId,
		Name:         sessionId, // Placeholder until the naming task replaces it
		SystemPrompt: systemPrompt,
		CreatedAt:    now,
		LastActive:   now,
		Messages:     []contract.Message{},
	}

	filename := sessionId + sessionFileExt
	if err := r.writeFile(filename, session); err != nil {
		return nil, err
	}
	r.index.Set(sessionId, filename, cache.NoExpiration)

	r.logger.Info("session_store", "Created new session", map[string]interface{}{"session_id": sessionId})
	return session, nil
}

func (r *SessionRepository) Load(id string) (*contract.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, filename, err := r.read(id)
	if err != nil {
		return nil, err
	}

	session.LastActive = time.Now()
	if err := r.writeFile(filename, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (r *SessionRepository) List() ([]contract.SessionSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("scan sessions dir: %w", err)
	}

	summaries := make([]contract.SessionSummary, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), sessionFileExt) {
			continue
		}
		session, err := r.readFile(filepath.Join(r.dir, entry.Name()))
		if err != nil {
			r.logger.Warn("session_store", "Failed to read session file", map[string]interface{}{"file": entry.Name(), "error": err.Error()})
			continue
		}
		summaries = append(summaries, contract.SessionSummary{
			Id:           session.Id,
			Name:         session.Name,
			CreatedAt:    session.CreatedAt,
			LastActive:   session.LastActive,
			MessageCount: len(session.Messages),
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].LastActive.After(summaries[j].LastActive)
	})
	return summaries, nil
}

func (r *SessionRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	filename, err := r.resolve(id)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(r.dir, filename)); err != nil {
		return fmt.Errorf("remove session file: %w", err)
	}
	r.index.Delete(id)

	r.logger.Info("session_store", "Deleted session", map[string]interface{}{"session_id": id})
	return nil
}

func (r *SessionRepository) Rename(id, newName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, oldFilename, err := r.read(id)
	if err != nil {
		return err
	}

	session.Name = newName
	session.LastActive = time.Now()

	// Relocate the backing file to <sanitized-name>_<id>.json. The id stays
	// in the filename so lookup by id keeps working.
	newFilename := sanitizeName(newName) + "_" + id + sessionFileExt
	if err := r.writeFile(newFilename, session); err != nil {
		return err
	}
	if newFilename != oldFilename {
		if err := os.Remove(filepath.Join(r.dir, oldFilename)); err != nil {
			r.logger.Warn("session_store", "Failed to remove old session file", map[string]interface{}{"file": oldFilename, "error": err.Error()})
		}
	}
	r.index.Set(id, newFilename, cache.NoExpiration)

	r.logger.Info("session_store", "Renamed session", map[string]interface{}{"session_id": id, "name": newName})
	return nil
}

func (r *SessionRepository) AppendMessage(id, role, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, filename, err := r.read(id)
	if err != nil {
		return err
	}

	session.Messages = append(session.Messages, contract.Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	})
	session.LastActive = time.Now()
	return r.writeFile(filename, session)
}

func (r *SessionRepository) UpdateMessage(id string, index int, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, filename, err := r.read(id)
	if err != nil {
		return err
	}

	if index < 0 || index >= len(session.Messages) {
		return contract.ErrMessageIndex
	}
	session.Messages[index].Content = content
	session.LastActive = time.Now()
	return r.writeFile(filename, session)
}

func (r *SessionRepository) TruncateMessages(id string, count int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, filename, err := r.read(id)
	if err != nil {
		return 0, err
	}

	// Clamp to the available range on both ends; truncation never fails.
	deleted := count
	if deleted < 0 {
		deleted = 0
	}
	if deleted >= len(session.Messages) {
		deleted = len(session.Messages)
		session.Messages = []contract.Message{}
	} else {
		session.Messages = session.Messages[:len(session.Messages)-deleted]
	}
	session.LastActive = time.Now()

	if err := r.writeFile(filename, session); err != nil {
		return 0, err
	}
	return deleted, nil
}

func (r *SessionRepository) Clear(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, filename, err := r.read(id)
	if err != nil {
		return err
	}

	session.Messages = []contract.Message{}
	session.LastActive = time.Now()
	return r.writeFile(filename, session)
}

// --- file plumbing ---

func (r *SessionRepository) read(id string) (*contract.Session, string, error) {
	filename, err := r.resolve(id)
	if err != nil {
		return nil, "", err
	}
	session, err := r.readFile(filepath.Join(r.dir, filename))
	if err != nil {
		return nil, "", err
	}
	return session, filename, nil
}

// resolve maps a session id to its current filename: index hit, exact
// id-named file, then any file ending in _<id>.json.
func (r *SessionRepository) resolve(id string) (string, error) {
	if cached, found := r.index.Get(id); found {
		filename := cached.(string)
		if _, err := os.Stat(filepath.Join(r.dir, filename)); err == nil {
			return filename, nil
		}
		r.index.Delete(id)
	}

	exact := id + sessionFileExt
	if _, err := os.Stat(filepath.Join(r.dir, exact)); err == nil {
		r.index.Set(id, exact, cache.NoExpiration)
		return exact, nil
	}

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return "", fmt.Errorf("scan sessions dir: %w", err)
	}
	suffix := "_" + id + sessionFileExt
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), suffix) {
			r.index.Set(id, entry.Name(), cache.NoExpiration)
			return entry.Name(), nil
		}
	}

	return "", contract.ErrSessionNotFound
}

func (r *SessionRepository) readFile(path string) (*contract.Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, contract.ErrSessionNotFound
		}
		return nil, fmt.Errorf("read session file: %w", err)
	}

	var session contract.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session file: %w", err)
	}
	if session.Messages == nil {
		session.Messages = []contract.Message{}
	}
	return &session, nil
}

func (r *SessionRepository) writeFile(filename string, session *contract.Session) error {
	// Stored history is capped separately from the outbound request window;
	// the newest messages win.
	if r.maxHistory > 0 && len(session.Messages) > r.maxHistory {
		session.Messages = session.Messages[len(session.Messages)-r.maxHistory:]
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := os.WriteFile(filepath.Join(r.dir, filename), data, 0o644); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

// sanitizeName turns a display name into a filename stem: spaces and path
// separators to underscores, everything but alphanumerics/_/- stripped,
// capped at 50 chars.
func sanitizeName(name string) string {
	replaced := strings.NewReplacer(" ", "_", "/", "_", "\\", "_").Replace(name)

	var b strings.Builder
	for _, r := range replaced {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	safe := b.String()
	if len(safe) > 50 {
		safe = safe[:50]
	}
	return safe
}
