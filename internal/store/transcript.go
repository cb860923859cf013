package store

import (
	"sync"
	"time"

	"chat-widget/internal/types"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one transcript entry. Intent is only set on assistant replies
// that carried an annotation from the backend.
type Message struct {
	Role      Role          `json:"role"`
	Content   string        `json:"content"`
	Intent    *types.Intent `json:"intent,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// Transcript is an ordered, append-only message log scoped to one client.
// Entries are never mutated or removed.
type Transcript struct {
	mu   sync.RWMutex
	msgs []Message
	now  func() time.Time
}

func NewTranscript() *Transcript {
	return &Transcript{now: time.Now}
}

// Append stamps msg if needed and returns the stored copy.
func (t *Transcript) Append(msg Message) Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = t.now()
	}
	if msg.Intent != nil {
		in := *msg.Intent
		msg.Intent = &in
	}
	t.msgs = append(t.msgs, msg)
	return msg
}

// Messages returns a snapshot; callers may not mutate the log through it.
func (t *Transcript) Messages() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Message, len(t.msgs))
	for i, m := range t.msgs {
		if m.Intent != nil {
			in := *m.Intent
			m.Intent = &in
		}
		out[i] = m
	}
	return out
}

func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.msgs)
}

// LastUser returns the most recent user message.
func (t *Transcript) LastUser() (Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for i := len(t.msgs) - 1; i >= 0; i-- {
		if t.msgs[i].Role == RoleUser {
			return t.msgs[i], true
		}
	}
	return Message{}, false
}
