// Package scheduler expires discussion turns and sweeps idle rooms without
// waiting for a client to ask.
package scheduler

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/OmarAlex24/impostor-game/internal/models"
	"github.com/OmarAlex24/impostor-game/internal/service"
	"github.com/rs/zerolog/log"
)

// Target is the part of the room service the scheduler drives.
type Target interface {
	AutoPassTurn(ctx context.Context, roomID string) (service.TurnResult, error)
	SweepIdleRooms(ctx context.Context) (int, error)
}

// TickerCreator hands out periodic channels and the func that stops them.
type TickerCreator interface {
	Create(d time.Duration) (<-chan time.Time, func())
}

type timeTickers struct{}

func (timeTickers) Create(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

func NewTickerCreator() TickerCreator { return timeTickers{} }

type Scheduler struct {
	target  Target
	tickers TickerCreator
	tick    time.Duration
	sweep   time.Duration

	mu        sync.Mutex
	deadlines map[string]time.Time
}

func New(target Target, tickers TickerCreator, tick, sweep time.Duration) *Scheduler {
	return &Scheduler{
		target:    target,
		tickers:   tickers,
		tick:      tick,
		sweep:     sweep,
		deadlines: make(map[string]time.Time),
	}
}

// Schedule sets the turn deadline of roomID, replacing any earlier one.
func (s *Scheduler) Schedule(roomID string, at time.Time) {
	s.mu.Lock()
	s.deadlines[roomID] = at
	s.mu.Unlock()
}

func (s *Scheduler) Cancel(roomID string) {
	s.mu.Lock()
	delete(s.deadlines, roomID)
	s.mu.Unlock()
}

// Pending returns the number of rooms with a deadline.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.deadlines)
}

// due removes and returns the rooms whose deadline is not after now, earliest
// first.
func (s *Scheduler) due(now time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, at := range s.deadlines {
		if !at.After(now) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := s.deadlines[ids[i]], s.deadlines[ids[j]]
		if a.Equal(b) {
			return ids[i] < ids[j]
		}
		return a.Before(b)
	})
	for _, id := range ids {
		delete(s.deadlines, id)
	}
	return ids
}

// Run blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	tick, stopTick := s.tickers.Create(s.tick)
	defer stopTick()
	sweep, stopSweep := s.tickers.Create(s.sweep)
	defer stopSweep()

	log.Info().Dur("tick", s.tick).Dur("sweep", s.sweep).Msg("scheduler started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("scheduler stopped")
			return
		case now := <-tick:
			s.Expire(ctx, now)
		case <-sweep:
			s.Sweep(ctx)
		}
	}
}

// Expire fires AutoPassTurn for every room due at now. The service schedules
// the next deadline itself when the turn advances; a room that was not ready
// yet is retried on the next tick.
func (s *Scheduler) Expire(ctx context.Context, now time.Time) {
	for _, id := range s.due(now) {
		res, err := s.target.AutoPassTurn(ctx, id)
		switch {
		case errors.Is(err, service.ErrNotFound):
			continue
		case err != nil:
			log.Error().Err(err).Str("room", id).Msg("auto pass failed")
			s.retry(id, now)
		case res.Skipped && res.Status == models.StatusPlaying:
			s.retry(id, now)
		}
	}
}

// retry re-arms id one tick later unless a newer deadline was set meanwhile.
func (s *Scheduler) retry(id string, now time.Time) {
	s.mu.Lock()
	if _, ok := s.deadlines[id]; !ok {
		s.deadlines[id] = now.Add(s.tick)
	}
	s.mu.Unlock()
}

func (s *Scheduler) Sweep(ctx context.Context) {
	n, err := s.target.SweepIdleRooms(ctx)
	if err != nil {
		log.Error().Err(err).Msg("idle sweep failed")
		return
	}
	log.Debug().Int("deleted", n).Msg("idle sweep")
}
