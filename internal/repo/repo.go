// Package repo persists rooms, their players and their messages.
package repo

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/OmarAlex24/impostor-game/internal/models"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrCodeTaken    = errors.New("room code already in use")
	ErrTxConflict   = errors.New("too many concurrent updates")
)

// RoomRepo stores the room+players record set. Update is the only write path
// for an existing room and runs fn atomically: either the whole snapshot is
// committed or nothing is.
type RoomRepo interface {
	CreateRoom(ctx context.Context, room models.Room, host models.Player) error
	GetRoom(ctx context.Context, roomID string) (models.Room, bool, error)
	FindRoomByCode(ctx context.Context, code string) (models.Room, bool, error)
	FindPlayerRoom(ctx context.Context, playerID string) (string, bool, error)
	ListPlayers(ctx context.Context, roomID string) ([]models.Player, error)
	ListMessages(ctx context.Context, roomID string) ([]models.Message, error)
	Update(ctx context.Context, roomID string, fn func(*Snapshot) error) error
	IdleRooms(ctx context.Context, before time.Time) ([]string, error)
}

// Snapshot is a private copy of one room and its players handed to Update.
type Snapshot struct {
	Room    models.Room
	Players []models.Player

	removed  []string
	deleted  bool
	purge    bool
	appended []models.Message
}

func newSnapshot(room models.Room, players []models.Player) *Snapshot {
	sortPlayers(players)
	return &Snapshot{Room: room, Players: players}
}

func sortPlayers(ps []models.Player) {
	slices.SortStableFunc(ps, func(a, b models.Player) int {
		if c := a.JoinedAt.Compare(b.JoinedAt); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
}

// Player returns the player seated with sessionID, or nil.
func (s *Snapshot) Player(sessionID string) *models.Player {
	for i := range s.Players {
		if s.Players[i].SessionID == sessionID {
			return &s.Players[i]
		}
	}
	return nil
}

func (s *Snapshot) PlayerByID(id string) *models.Player {
	for i := range s.Players {
		if s.Players[i].ID == id {
			return &s.Players[i]
		}
	}
	return nil
}

// Active returns the non-eliminated players in join order.
func (s *Snapshot) Active() []*models.Player {
	out := make([]*models.Player, 0, len(s.Players))
	for i := range s.Players {
		if !s.Players[i].IsEliminated {
			out = append(out, &s.Players[i])
		}
	}
	return out
}

// ActiveSessions returns the session ids of Active.
func (s *Snapshot) ActiveSessions() []string {
	active := s.Active()
	ids := make([]string, len(active))
	for i, p := range active {
		ids[i] = p.SessionID
	}
	return ids
}

// AddPlayer seats p. Pointers previously returned by the snapshot may be
// invalidated.
func (s *Snapshot) AddPlayer(p models.Player) {
	s.Players = append(s.Players, p)
	sortPlayers(s.Players)
}

// RemovePlayer drops the player with id. Pointers previously returned by the
// snapshot may be invalidated.
func (s *Snapshot) RemovePlayer(id string) bool {
	i := slices.IndexFunc(s.Players, func(p models.Player) bool { return p.ID == id })
	if i < 0 {
		return false
	}
	s.Players = slices.Delete(s.Players, i, i+1)
	s.removed = append(s.removed, id)
	return true
}

// DeleteRoom removes the room, its players and its messages on commit.
func (s *Snapshot) DeleteRoom() { s.deleted = true }

func (s *Snapshot) Deleted() bool { return s.deleted }

// AppendMessage queues m to be stored with the commit.
func (s *Snapshot) AppendMessage(m models.Message) {
	s.appended = append(s.appended, m)
}

// PurgeMessages drops every stored message of the room on commit.
func (s *Snapshot) PurgeMessages() {
	s.purge = true
	s.appended = nil
}

func cloneRoom(r models.Room) models.Room {
	r.UsedWords = slices.Clone(r.UsedWords)
	r.TurnOrder = slices.Clone(r.TurnOrder)
	r.CallToVoteBy = slices.Clone(r.CallToVoteBy)
	if t, ok := r.ModeState.Teams(); ok {
		t.TeamA = slices.Clone(t.TeamA)
		t.TeamB = slices.Clone(t.TeamB)
		r.ModeState = models.NewModeState(t)
	}
	return r
}

func sortMessages(ms []models.Message) {
	slices.SortStableFunc(ms, func(a, b models.Message) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
}
