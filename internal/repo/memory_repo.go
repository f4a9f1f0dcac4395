package repo

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/OmarAlex24/impostor-game/internal/models"
)

// MemoryRoomRepo keeps everything in process memory. Writers to the same room
// are serialized by a per-room lock; readers only see committed state.
type MemoryRoomRepo struct {
	mu         sync.RWMutex
	rooms      map[string]models.Room
	codes      map[string]string
	players    map[string][]models.Player
	playerRoom map[string]string
	messages   map[string][]models.Message

	locks roomLocks
}

func NewMemoryRoomRepo() *MemoryRoomRepo {
	return &MemoryRoomRepo{
		rooms:      make(map[string]models.Room),
		codes:      make(map[string]string),
		players:    make(map[string][]models.Player),
		playerRoom: make(map[string]string),
		messages:   make(map[string][]models.Message),
		locks:      roomLocks{m: make(map[string]*roomLock)},
	}
}

func (mr *MemoryRoomRepo) CreateRoom(ctx context.Context, room models.Room, host models.Player) error {
	mr.mu.Lock()
	defer mr.mu.Unlock()

	if _, taken := mr.codes[room.Code]; taken {
		return ErrCodeTaken
	}
	mr.rooms[room.ID] = cloneRoom(room)
	mr.codes[room.Code] = room.ID
	mr.players[room.ID] = []models.Player{host}
	mr.playerRoom[host.ID] = room.ID
	return nil
}

func (mr *MemoryRoomRepo) GetRoom(ctx context.Context, roomID string) (models.Room, bool, error) {
	mr.mu.RLock()
	defer mr.mu.RUnlock()

	r, ok := mr.rooms[roomID]
	if !ok {
		return models.Room{}, false, nil
	}
	return cloneRoom(r), true, nil
}

func (mr *MemoryRoomRepo) FindRoomByCode(ctx context.Context, code string) (models.Room, bool, error) {
	mr.mu.RLock()
	id, ok := mr.codes[code]
	mr.mu.RUnlock()
	if !ok {
		return models.Room{}, false, nil
	}
	return mr.GetRoom(ctx, id)
}

func (mr *MemoryRoomRepo) FindPlayerRoom(ctx context.Context, playerID string) (string, bool, error) {
	mr.mu.RLock()
	defer mr.mu.RUnlock()

	id, ok := mr.playerRoom[playerID]
	return id, ok, nil
}

func (mr *MemoryRoomRepo) ListPlayers(ctx context.Context, roomID string) ([]models.Player, error) {
	mr.mu.RLock()
	ps := slices.Clone(mr.players[roomID])
	mr.mu.RUnlock()

	if ps == nil {
		ps = []models.Player{}
	}
	sortPlayers(ps)
	return ps, nil
}

func (mr *MemoryRoomRepo) ListMessages(ctx context.Context, roomID string) ([]models.Message, error) {
	mr.mu.RLock()
	ms := slices.Clone(mr.messages[roomID])
	mr.mu.RUnlock()

	if ms == nil {
		ms = []models.Message{}
	}
	sortMessages(ms)
	return ms, nil
}

func (mr *MemoryRoomRepo) Update(ctx context.Context, roomID string, fn func(*Snapshot) error) error {
	unlock := mr.locks.lock(roomID)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	mr.mu.RLock()
	room, ok := mr.rooms[roomID]
	var snap *Snapshot
	if ok {
		snap = newSnapshot(cloneRoom(room), slices.Clone(mr.players[roomID]))
	}
	mr.mu.RUnlock()
	if !ok {
		return ErrRoomNotFound
	}

	if err := fn(snap); err != nil {
		return err
	}

	mr.mu.Lock()
	defer mr.mu.Unlock()

	if snap.deleted {
		mr.deleteLocked(roomID)
		return nil
	}
	for _, id := range snap.removed {
		delete(mr.playerRoom, id)
	}
	for _, p := range snap.Players {
		mr.playerRoom[p.ID] = roomID
	}
	mr.rooms[roomID] = cloneRoom(snap.Room)
	mr.players[roomID] = slices.Clone(snap.Players)
	if snap.purge {
		delete(mr.messages, roomID)
	}
	if len(snap.appended) > 0 {
		mr.messages[roomID] = append(mr.messages[roomID], snap.appended...)
	}
	return nil
}

func (mr *MemoryRoomRepo) deleteLocked(roomID string) {
	if r, ok := mr.rooms[roomID]; ok {
		delete(mr.codes, r.Code)
	}
	for _, p := range mr.players[roomID] {
		delete(mr.playerRoom, p.ID)
	}
	delete(mr.players, roomID)
	delete(mr.messages, roomID)
	delete(mr.rooms, roomID)
}

func (mr *MemoryRoomRepo) IdleRooms(ctx context.Context, before time.Time) ([]string, error) {
	mr.mu.RLock()
	defer mr.mu.RUnlock()

	var ids []string
	for id, r := range mr.rooms {
		if !r.LastActivityAt.After(before) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

// roomLocks hands out one mutex per room id and forgets it once nobody holds
// or waits for it.
type roomLocks struct {
	mu sync.Mutex
	m  map[string]*roomLock
}

type roomLock struct {
	sync.Mutex
	refs int
}

func (rl *roomLocks) lock(key string) (unlock func()) {
	rl.mu.Lock()
	l, ok := rl.m[key]
	if !ok {
		l = &roomLock{}
		rl.m[key] = l
	}
	l.refs++
	rl.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		rl.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(rl.m, key)
		}
		rl.mu.Unlock()
	}
}
