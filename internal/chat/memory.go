package chat

import (
	"context"
	"sync"
)

// Sent records one delivered message.
type Sent struct {
	ID       int
	ChatID   int64
	Text     string
	Keyboard Keyboard
}

// Memory is a thread-safe in-process Sender that records all traffic.
// Tests drive the dispatcher through it instead of a live transport.
type Memory struct {
	mu      sync.Mutex
	nextID  int
	sent    []Sent
	deleted []int
}

// NewMemory creates an empty in-memory sender.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Send(ctx context.Context, out Outgoing) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	m.sent = append(m.sent, Sent{
		ID:       m.nextID,
		ChatID:   out.ChatID,
		Text:     out.Text,
		Keyboard: out.Keyboard,
	})
	return m.nextID, nil
}

func (m *Memory) Delete(ctx context.Context, chatID int64, messageID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.deleted = append(m.deleted, messageID)
	return nil
}

// Sent returns a copy of every message delivered so far, in order.
func (m *Memory) Messages() []Sent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Sent(nil), m.sent...)
}

// MessagesTo returns the messages delivered to one chat, in order.
func (m *Memory) MessagesTo(chatID int64) []Sent {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Sent
	for _, s := range m.sent {
		if s.ChatID == chatID {
			out = append(out, s)
		}
	}
	return out
}

// Last returns the most recent message delivered to chatID, or nil.
func (m *Memory) Last(chatID int64) *Sent {
	msgs := m.MessagesTo(chatID)
	if len(msgs) == 0 {
		return nil
	}
	return &msgs[len(msgs)-1]
}

// Deleted returns the ids of deleted messages, in deletion order.
func (m *Memory) Deleted() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.deleted...)
}

// Reset clears recorded traffic but keeps the id counter running.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = nil
	m.deleted = nil
}
