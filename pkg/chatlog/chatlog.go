// Package chatlog keeps the in-memory history of conversations. Each
// chat is an ordered list of completed turns; the newest chat sits at
// the front of the list and exactly one chat is active at a time.
package chatlog

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arilabs/go-ari/pkg/turns"
)

// DefaultTitle names a chat until its first turn arrives.
const DefaultTitle = "New Chat"

// ErrNotFound is returned when a chat ID is unknown.
var ErrNotFound = errors.New("chatlog: chat not found")

// Chat is one conversation session.
type Chat struct {
	ID        string
	Title     string
	Turns     []turns.Turn
	CreatedAt time.Time
}

// Log holds all chats, newest first. Safe for concurrent use.
type Log struct {
	mu       sync.Mutex
	chats    []*Chat
	activeID string
}

// New creates a log with one fresh active chat.
func New() *Log {
	l := &Log{}
	l.NewChat()
	return l
}

// NewChat prepends an empty chat and makes it active.
func (l *Log) NewChat() *Chat {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.newChatLocked()
}

func (l *Log) newChatLocked() *Chat {
	c := &Chat{
		ID:        uuid.NewString(),
		Title:     DefaultTitle,
		CreatedAt: time.Now(),
	}
	l.chats = append([]*Chat{c}, l.chats...)
	l.activeID = c.ID
	return snapshot(c)
}

// Select makes the chat with the given ID active.
func (l *Log) Select(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.findLocked(id) == nil {
		return ErrNotFound
	}
	l.activeID = id
	return nil
}

// Delete removes a chat. Deleting the active chat activates the next
// remaining one; deleting the last chat creates a fresh empty chat.
func (l *Log) Delete(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := -1
	for i, c := range l.chats {
		if c.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrNotFound
	}
	l.chats = append(l.chats[:idx], l.chats[idx+1:]...)

	if l.activeID == id {
		if len(l.chats) > 0 {
			l.activeID = l.chats[0].ID
		} else {
			l.newChatLocked()
		}
	}
	return nil
}

// AppendTurn adds a completed turn to the active chat. The first turn
// of a chat sets its title from the user prompt.
func (l *Log) AppendTurn(turn turns.Turn) {
	l.mu.Lock()
	defer l.mu.Unlock()

	c := l.findLocked(l.activeID)
	if c == nil {
		if len(l.chats) == 0 {
			return
		}
		c = l.chats[0]
	}
	if len(c.Turns) == 0 && turn.User != "" {
		c.Title = deriveTitle(turn.User)
	}
	c.Turns = append(c.Turns, turn)
}

// Active returns a copy of the active chat.
func (l *Log) Active() *Chat {
	l.mu.Lock()
	defer l.mu.Unlock()
	return snapshot(l.findLocked(l.activeID))
}

// Chats returns copies of all chats, newest first.
func (l *Log) Chats() []*Chat {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*Chat, len(l.chats))
	for i, c := range l.chats {
		out[i] = snapshot(c)
	}
	return out
}

func (l *Log) findLocked(id string) *Chat {
	for _, c := range l.chats {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// deriveTitle truncates long prompts to 27 characters plus an ellipsis.
func deriveTitle(prompt string) string {
	runes := []rune(prompt)
	if len(runes) > 30 {
		return string(runes[:27]) + "..."
	}
	return prompt
}

func snapshot(c *Chat) *Chat {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Turns = append([]turns.Turn(nil), c.Turns...)
	return &cp
}
