package chatbot

import (
	"container/list"
	"sync"
	"time"
)

const (
	// maxTurnsPerUser is how many turns are kept for each user.
	maxTurnsPerUser = 10
	// historyWindow is how many recent turns the router reads.
	historyWindow = 6
	// defaultMaxUsers caps how many users are remembered at once.
	defaultMaxUsers = 1000
)

// Turn is one user message and the reply it got.
type Turn struct {
	UserText  string    `json:"user"`
	AgentText string    `json:"bot"`
	Agent     string    `json:"agent"`
	Timestamp time.Time `json:"timestamp"`
}

type conversation struct {
	userID   uint
	turns    []Turn
	lastSeen time.Time
}

// Memory keeps recent turns per user. When more than maxUsers users are tracked the least
// recently used conversation is evicted.
type Memory struct {
	mu       sync.Mutex
	maxUsers int
	order    *list.List
	byUser   map[uint]*list.Element
	now      func() time.Time
}

// NewMemory creates a Memory holding at most maxUsers conversations. maxUsers <= 0 uses 1000.
func NewMemory(maxUsers int) *Memory {
	if maxUsers <= 0 {
		maxUsers = defaultMaxUsers
	}
	return &Memory{
		maxUsers: maxUsers,
		order:    list.New(),
		byUser:   make(map[uint]*list.Element),
		now:      time.Now,
	}
}

// History returns a copy of the user's most recent turns, oldest first.
func (m *Memory) History(userID uint) []Turn {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.byUser[userID]
	if !ok {
		return nil
	}
	m.order.MoveToFront(el)
	turns := el.Value.(*conversation).turns
	if len(turns) > historyWindow {
		turns = turns[len(turns)-historyWindow:]
	}
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}

// Add records a turn for userID, dropping the oldest turn past the per-user limit.
func (m *Memory) Add(userID uint, userText, agentText, agent string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	el, ok := m.byUser[userID]
	if !ok {
		el = m.order.PushFront(&conversation{userID: userID})
		m.byUser[userID] = el
		m.evictLocked()
	} else {
		m.order.MoveToFront(el)
	}

	conv := el.Value.(*conversation)
	conv.turns = append(conv.turns, Turn{UserText: userText, AgentText: agentText, Agent: agent, Timestamp: now})
	if len(conv.turns) > maxTurnsPerUser {
		conv.turns = append([]Turn(nil), conv.turns[len(conv.turns)-maxTurnsPerUser:]...)
	}
	conv.lastSeen = now
}

// Clear forgets the user's conversation.
func (m *Memory) Clear(userID uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if el, ok := m.byUser[userID]; ok {
		m.order.Remove(el)
		delete(m.byUser, userID)
	}
}

// ClearAll forgets every conversation and returns how many there were.
func (m *Memory) ClearAll() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.order.Len()
	m.order.Init()
	m.byUser = make(map[uint]*list.Element)
	return n
}

// Prune drops conversations with no new turn for longer than maxIdle and returns how many
// were dropped.
func (m *Memory) Prune(maxIdle time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-maxIdle)
	removed := 0
	for el := m.order.Back(); el != nil; {
		prev := el.Prev()
		conv := el.Value.(*conversation)
		if conv.lastSeen.Before(cutoff) {
			m.order.Remove(el)
			delete(m.byUser, conv.userID)
			removed++
		}
		el = prev
	}
	return removed
}

// Len returns the number of tracked users.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}

func (m *Memory) evictLocked() {
	for m.order.Len() > m.maxUsers {
		el := m.order.Back()
		m.order.Remove(el)
		delete(m.byUser, el.Value.(*conversation).userID)
	}
}
