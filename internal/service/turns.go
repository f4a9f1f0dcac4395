package service

import (
	"context"
	"slices"
	"time"

	"github.com/OmarAlex24/impostor-game/internal/models"
	"github.com/OmarAlex24/impostor-game/internal/repo"
)

type TurnResult struct {
	Skipped          bool              `json:"skipped"`
	Status           models.RoomStatus `json:"status"`
	CurrentTurn      string            `json:"currentTurn,omitempty"`
	CurrentTurnIndex int               `json:"currentTurnIndex"`
	RoundNumber      int               `json:"roundNumber"`
}

func turnResult(room *models.Room) TurnResult {
	return TurnResult{
		Status:           room.Status,
		CurrentTurn:      room.CurrentTurn(),
		CurrentTurnIndex: room.CurrentTurnIndex,
		RoundNumber:      room.RoundNumber,
	}
}

// advanceTurn moves to the next speaker. Past the last speaker a new round
// starts, and past the last round the room goes to voting.
func (s *RoomService) advanceTurn(room *models.Room, now time.Time) {
	room.CurrentTurnIndex++
	if room.CurrentTurnIndex >= len(room.TurnOrder) {
		if room.RoundNumber+1 > room.TotalRoundsPerVoting {
			s.openVoting(room, now)
			return
		}
		room.RoundNumber++
		room.CurrentTurnIndex = 0
	}
	room.TurnStartTime = now
}

func canAdvance(room *models.Room) error {
	if room.Status != models.StatusPlaying {
		return ErrNotPlaying
	}
	if len(room.TurnOrder) == 0 {
		return ErrTurnOrderUnset
	}
	return nil
}

// PassTurn ends the caller's turn early.
func (s *RoomService) PassTurn(ctx context.Context, roomID, sessionID string) (TurnResult, error) {
	var res TurnResult
	err := s.mutate(ctx, roomID, "turn_passed", func(snap *repo.Snapshot, now time.Time) error {
		room := &snap.Room
		if err := canAdvance(room); err != nil {
			return err
		}
		if room.CurrentTurn() != sessionID {
			return ErrNotYourTurn
		}
		s.advanceTurn(room, now)
		res = turnResult(room)
		return nil
	})
	return res, err
}

// AutoPassTurn advances the turn once its deadline has passed. It needs no
// caller identity and is a no-op (Skipped) when the room is not playing or
// the turn is still running, so any number of observers may call it.
func (s *RoomService) AutoPassTurn(ctx context.Context, roomID string) (TurnResult, error) {
	res := TurnResult{Skipped: true}
	err := s.mutate(ctx, roomID, "turn_expired", func(snap *repo.Snapshot, now time.Time) error {
		room := &snap.Room
		if canAdvance(room) != nil {
			res.Status = room.Status
			return errUnchanged
		}
		limit := time.Duration(room.TurnDurationSeconds)*time.Second - turnGrace
		if now.Sub(room.TurnStartTime) < limit {
			res = turnResult(room)
			res.Skipped = true
			return errUnchanged
		}
		s.advanceTurn(room, now)
		res = turnResult(room)
		return nil
	})
	return res, err
}

type CallToVoteResult struct {
	Current   int  `json:"current"`
	Needed    int  `json:"needed"`
	Triggered bool `json:"triggered"`
}

// CallToVote records the caller's request for early voting. The host's call,
// or a strict majority of active players, opens voting at once.
func (s *RoomService) CallToVote(ctx context.Context, roomID, sessionID string) (CallToVoteResult, error) {
	var res CallToVoteResult
	err := s.mutate(ctx, roomID, "call_to_vote", func(snap *repo.Snapshot, now time.Time) error {
		room := &snap.Room
		if room.Status != models.StatusPlaying {
			return ErrNotPlaying
		}
		p := snap.Player(sessionID)
		if p == nil {
			return ErrPlayerNotFound
		}
		if p.IsEliminated {
			return ErrSpectator
		}
		if slices.Contains(room.CallToVoteBy, sessionID) {
			return ErrAlreadyCalledVote
		}
		room.CallToVoteBy = append(room.CallToVoteBy, sessionID)

		active := len(snap.Active())
		res.Current = len(room.CallToVoteBy)
		res.Needed = active/2 + 1
		if sessionID == room.HostID || res.Current*2 > active {
			s.openVoting(room, now)
			res.Triggered = true
		}
		return nil
	})
	return res, err
}

// StartVoting lets the host end the discussion immediately.
func (s *RoomService) StartVoting(ctx context.Context, roomID, sessionID string) error {
	return s.mutate(ctx, roomID, "voting_started", func(snap *repo.Snapshot, now time.Time) error {
		room := &snap.Room
		if err := requireHost(room, sessionID); err != nil {
			return err
		}
		if room.Status != models.StatusPlaying {
			return ErrNotPlaying
		}
		s.openVoting(room, now)
		return nil
	})
}
