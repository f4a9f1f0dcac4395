package service

import (
	"sync"

	"golang.org/x/time/rate"
)

const (
	messageRate  rate.Limit = 1
	messageBurst            = 5
)

// limiterSet holds one token bucket per room and session for chat and emoji
// sends.
type limiterSet struct {
	mu    sync.Mutex
	rooms map[string]map[string]*rate.Limiter
}

func newLimiterSet() *limiterSet {
	return &limiterSet{rooms: make(map[string]map[string]*rate.Limiter)}
}

func (l *limiterSet) allow(roomID, sessionID string) bool {
	l.mu.Lock()
	sessions, ok := l.rooms[roomID]
	if !ok {
		sessions = make(map[string]*rate.Limiter)
		l.rooms[roomID] = sessions
	}
	lim, ok := sessions[sessionID]
	if !ok {
		lim = rate.NewLimiter(messageRate, messageBurst)
		sessions[sessionID] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}

func (l *limiterSet) forget(roomID string) {
	l.mu.Lock()
	delete(l.rooms, roomID)
	l.mu.Unlock()
}

func (l *limiterSet) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, sessions := range l.rooms {
		n += len(sessions)
	}
	return n
}
