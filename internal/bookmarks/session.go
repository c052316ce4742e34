package bookmarks

import (
	"sync"
	"time"

	"github.com/arashthr/markcentral/internal/types"
)

// ImportBatch describes one imported file within an open session.
type ImportBatch struct {
	Source    Source    `json:"source"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

// ImportSession is derived bookkeeping for the import screen: the master
// batch plus the merge batches applied on top of it. It is not persisted.
type ImportSession struct {
	Master *ImportBatch  `json:"master"`
	Merges []ImportBatch `json:"merges"`
}

// SessionTracker records import batches per user. A master import resets the
// session.
type SessionTracker struct {
	mu       sync.Mutex
	sessions map[types.UserId]*ImportSession
}

func NewSessionTracker() *SessionTracker {
	return &SessionTracker{
		sessions: make(map[types.UserId]*ImportSession),
	}
}

func (t *SessionTracker) RecordMaster(userId types.UserId, source Source, count int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessions[userId] = &ImportSession{
		Master: &ImportBatch{Source: source, Count: count, Timestamp: time.Now()},
	}
}

func (t *SessionTracker) RecordMerge(userId types.UserId, source Source, count int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	session, ok := t.sessions[userId]
	if !ok {
		session = &ImportSession{}
		t.sessions[userId] = session
	}
	session.Merges = append(session.Merges, ImportBatch{Source: source, Count: count, Timestamp: time.Now()})
}

// Summary returns a copy of the user's session, empty when none is open.
func (t *SessionTracker) Summary(userId types.UserId) ImportSession {
	t.mu.Lock()
	defer t.mu.Unlock()
	session, ok := t.sessions[userId]
	if !ok {
		return ImportSession{Merges: []ImportBatch{}}
	}
	out := ImportSession{Merges: make([]ImportBatch, len(session.Merges))}
	copy(out.Merges, session.Merges)
	if session.Master != nil {
		master := *session.Master
		out.Master = &master
	}
	return out
}
