// Package service implements the room and game state machine. Every mutation
// runs as one atomic repo.Update over the room and its players.
package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/OmarAlex24/impostor-game/internal/idgen"
	"github.com/OmarAlex24/impostor-game/internal/models"
	"github.com/OmarAlex24/impostor-game/internal/repo"
	"github.com/OmarAlex24/impostor-game/internal/words"
	"github.com/rs/zerolog/log"
)

// IDGenerator produces candidate room codes.
type IDGenerator interface {
	New() (string, error)
}

type roomCodeGen struct{}

func (roomCodeGen) New() (string, error) { return idgen.NewRoomCode() }

func NewRoomCodeGenerator() IDGenerator {
	return roomCodeGen{}
}

// Notifier is told about every committed change so connected clients can
// refetch.
type Notifier interface {
	RoomChanged(roomID, event string)
	RoomDeleted(roomID string)
}

// TurnScheduler fires AutoPassTurn for a room once its turn deadline passes.
type TurnScheduler interface {
	Schedule(roomID string, at time.Time)
	Cancel(roomID string)
}

type Options struct {
	IdleTimeout     time.Duration
	TurnDuration    time.Duration
	VotingWindow    time.Duration
	RoundsPerVoting int
}

func DefaultOptions() Options {
	return Options{
		IdleTimeout:     10 * time.Minute,
		TurnDuration:    30 * time.Second,
		VotingWindow:    30 * time.Second,
		RoundsPerVoting: 2,
	}
}

const (
	turnGrace                = time.Second
	defaultDiscussionMinutes = 3
	maxNameLength            = 24
	maxClueLength            = 100
	maxMessageLength         = 500
	recentEmojiLimit         = 20
)

// RoomService holds the game rules. It keeps no room state of its own.
type RoomService struct {
	repo     repo.RoomRepo
	words    *words.Bank
	idg      IDGenerator
	opts     Options
	now      func() time.Time
	rng      *lockedRand
	notifier Notifier
	timers   TurnScheduler
	limiters *limiterSet
}

type Option func(*RoomService)

func WithClock(now func() time.Time) Option {
	return func(s *RoomService) { s.now = now }
}

func WithRand(r *rand.Rand) Option {
	return func(s *RoomService) { s.rng = &lockedRand{r: r} }
}

func WithCodeGenerator(g IDGenerator) Option {
	return func(s *RoomService) { s.idg = g }
}

func WithNotifier(n Notifier) Option {
	return func(s *RoomService) { s.notifier = n }
}

func WithTurnScheduler(t TurnScheduler) Option {
	return func(s *RoomService) { s.timers = t }
}

func NewRoomService(r repo.RoomRepo, bank *words.Bank, opts Options, options ...Option) *RoomService {
	s := &RoomService{
		repo:     r,
		words:    bank,
		idg:      NewRoomCodeGenerator(),
		opts:     opts,
		now:      time.Now,
		rng:      &lockedRand{r: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))},
		notifier: nopNotifier{},
		timers:   nopScheduler{},
		limiters: newLimiterSet(),
	}
	for _, o := range options {
		o(s)
	}
	return s
}

// SetNotifier replaces the notifier after construction, for wiring cycles
// where the notifier itself needs the service.
func (s *RoomService) SetNotifier(n Notifier) { s.notifier = n }

func (s *RoomService) SetTurnScheduler(t TurnScheduler) { s.timers = t }

// errUnchanged aborts an Update without writing and without failing the call.
var errUnchanged = errors.New("unchanged")

// mutate runs fn as one atomic update of roomID. On success it touches
// lastActivityAt, keeps the turn timer in sync and notifies subscribers.
func (s *RoomService) mutate(ctx context.Context, roomID, event string, fn func(snap *repo.Snapshot, now time.Time) error) error {
	var (
		final   models.Room
		deleted bool
	)
	err := s.repo.Update(ctx, roomID, func(snap *repo.Snapshot) error {
		now := s.now()
		if err := fn(snap, now); err != nil {
			return err
		}
		deleted = snap.Deleted()
		if !deleted {
			snap.Room.LastActivityAt = now
		}
		final = snap.Room
		return nil
	})
	switch {
	case errors.Is(err, errUnchanged):
		return nil
	case errors.Is(err, repo.ErrRoomNotFound):
		return ErrRoomNotFound
	case err != nil:
		var se *Error
		if errors.As(err, &se) {
			return err
		}
		return fmt.Errorf("update room %s: %w", roomID, err)
	}

	if deleted {
		s.timers.Cancel(roomID)
		s.limiters.forget(roomID)
		s.notifier.RoomDeleted(roomID)
		log.Info().Str("room", roomID).Str("event", event).Msg("room deleted")
		return nil
	}

	if final.Status == models.StatusPlaying && final.CurrentTurn() != "" {
		s.timers.Schedule(roomID, final.TurnDeadline())
	} else {
		s.timers.Cancel(roomID)
	}
	s.notifier.RoomChanged(roomID, event)
	log.Debug().Str("room", roomID).Str("event", event).Str("status", string(final.Status)).Msg("room updated")
	return nil
}

// roomOfPlayer resolves the room a player id is seated in.
func (s *RoomService) roomOfPlayer(ctx context.Context, playerID string) (string, error) {
	roomID, ok, err := s.repo.FindPlayerRoom(ctx, playerID)
	if err != nil {
		return "", fmt.Errorf("find player %s: %w", playerID, err)
	}
	if !ok {
		return "", ErrPlayerNotFound
	}
	return roomID, nil
}

func (s *RoomService) openVoting(room *models.Room, now time.Time) {
	room.Status = models.StatusVoting
	room.VotingEndTime = now.Add(s.opts.VotingWindow)
}

func requireHost(room *models.Room, sessionID string) error {
	if room.HostID != sessionID {
		return ErrNotHost
	}
	return nil
}

// lockedRand serializes access to a *rand.Rand shared by concurrent requests.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}

// Shuffled returns a uniformly permuted copy of ids (Fisher-Yates).
func (l *lockedRand) Shuffled(ids []string) []string {
	out := make([]string, len(ids))
	copy(out, ids)
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(out) - 1; i > 0; i-- {
		j := l.r.IntN(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func (l *lockedRand) Pick(ids []string) string {
	return ids[l.IntN(len(ids))]
}

type nopNotifier struct{}

func (nopNotifier) RoomChanged(string, string) {}
func (nopNotifier) RoomDeleted(string)         {}

type nopScheduler struct{}

func (nopScheduler) Schedule(string, time.Time) {}
func (nopScheduler) Cancel(string)              {}
