package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/itsneelabh/sushichat/ai"
	"github.com/itsneelabh/sushichat/core"
)

// SessionStore keeps recent chat turns per session id in core.Memory.
// Concurrent appends to the same session may drop one of the turns.
type SessionStore struct {
	memory   core.Memory
	ttl      time.Duration
	maxTurns int
}

// NewSessionStore creates a store keeping at most maxTurns user/assistant
// exchanges for ttl after the last write.
func NewSessionStore(memory core.Memory, ttl time.Duration, maxTurns int) *SessionStore {
	if maxTurns <= 0 {
		maxTurns = 20
	}
	return &SessionStore{memory: memory, ttl: ttl, maxTurns: maxTurns}
}

func sessionKey(id string) string { return "session:" + id }

// History returns the stored messages of a session, oldest first.
func (s *SessionStore) History(ctx context.Context, id string) ([]ai.Message, error) {
	raw, err := s.memory.Get(ctx, sessionKey(id))
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	if raw == "" {
		return nil, nil
	}
	var msgs []ai.Message
	if err := json.Unmarshal([]byte(raw), &msgs); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return msgs, nil
}

// Append adds messages to a session, dropping the oldest beyond the limit.
func (s *SessionStore) Append(ctx context.Context, id string, msgs ...ai.Message) error {
	history, err := s.History(ctx, id)
	if err != nil {
		history = nil
	}
	history = append(history, msgs...)
	if limit := s.maxTurns * 2; len(history) > limit {
		history = history[len(history)-limit:]
	}
	raw, err := json.Marshal(history)
	if err != nil {
		return err
	}
	return s.memory.Set(ctx, sessionKey(id), string(raw), s.ttl)
}

// Clear forgets a session.
func (s *SessionStore) Clear(ctx context.Context, id string) error {
	return s.memory.Delete(ctx, sessionKey(id))
}
