package service

import (
	"context"
	"time"

	"github.com/OmarAlex24/impostor-game/internal/models"
	"github.com/OmarAlex24/impostor-game/internal/repo"
	"github.com/rs/zerolog/log"
)

const (
	pointsCorrectVote     = 100
	pointsImpostorSurvive = 50
	pointsSurvivor        = 25
	pointsImpostorWin     = 150
	pointsPayasoWin       = 200
)

type VotingResult struct {
	MostVotedSessionID string         `json:"mostVotedSessionId,omitempty"`
	VoteCounts         map[string]int `json:"voteCounts"`
	ImpostorCaught     bool           `json:"impostorCaught"`
	GameOver           bool           `json:"gameOver"`
	Winner             models.Winner  `json:"winner,omitempty"`
	PayasoWinner       string         `json:"payasoWinner,omitempty"`
}

// Vote records the player's vote. secondTarget is only accepted from a
// double voter and must name a different player.
func (s *RoomService) Vote(ctx context.Context, playerID, target, secondTarget string) error {
	roomID, err := s.roomOfPlayer(ctx, playerID)
	if err != nil {
		return err
	}
	return s.mutate(ctx, roomID, "vote_cast", func(snap *repo.Snapshot, _ time.Time) error {
		p := snap.PlayerByID(playerID)
		if p == nil {
			return ErrPlayerNotFound
		}
		if snap.Room.Status != models.StatusVoting {
			return ErrNotVoting
		}
		if p.IsEliminated {
			return ErrSpectator
		}
		if err := validTarget(snap, p.SessionID, target); err != nil {
			return err
		}
		if secondTarget != "" {
			if p.SecretRole != models.RoleDoubleVoter {
				return ErrWrongRole
			}
			if secondTarget == target {
				return ErrInvalidTarget
			}
			if err := validTarget(snap, p.SessionID, secondTarget); err != nil {
				return err
			}
		}
		p.VotedFor = target
		p.SecondVote = secondTarget
		return nil
	})
}

func validTarget(snap *repo.Snapshot, self, target string) error {
	t := snap.Player(target)
	if t == nil {
		return ErrTargetNotFound
	}
	if t.IsEliminated || target == self {
		return ErrInvalidTarget
	}
	return nil
}

// tally counts the active players' votes for active targets. A double
// voter's main vote weighs two and its second vote one. In combat mode only
// votes for the combatants count.
func tally(snap *repo.Snapshot) map[string]int {
	room := &snap.Room
	_, combat := room.ModeState.Combat()
	counts := make(map[string]int)
	add := func(target string, w int) {
		if t := snap.Player(target); t == nil || t.IsEliminated {
			return
		}
		if combat && !room.ModeState.IsCombatant(target) {
			return
		}
		counts[target] += w
	}
	for _, p := range snap.Active() {
		if p.VotedFor == "" {
			continue
		}
		if p.SecretRole == models.RoleDoubleVoter {
			add(p.VotedFor, 2)
			if p.SecondVote != p.VotedFor {
				add(p.SecondVote, 1)
			}
			continue
		}
		add(p.VotedFor, 1)
	}
	return counts
}

// plurality returns the most voted session. Ties go to the lowest session id.
func plurality(counts map[string]int) string {
	best, bestN := "", 0
	for id, n := range counts {
		if n > bestN || (n == bestN && id < best) {
			best, bestN = id, n
		}
	}
	return best
}

// ProcessVotingResults resolves the voting phase: it eliminates the most
// voted player, awards points and either ends the game or starts the next
// discussion cycle.
func (s *RoomService) ProcessVotingResults(ctx context.Context, roomID, sessionID string) (VotingResult, error) {
	var res VotingResult
	err := s.mutate(ctx, roomID, "voting_resolved", func(snap *repo.Snapshot, now time.Time) error {
		room := &snap.Room
		if err := requireHost(room, sessionID); err != nil {
			return err
		}
		if room.Status != models.StatusVoting {
			return ErrNotVoting
		}

		res = VotingResult{VoteCounts: tally(snap)}
		target := plurality(res.VoteCounts)
		res.MostVotedSessionID = target
		voted := snap.Player(target)

		if room.GameMode == models.ModeSecretRoles && voted != nil && voted.SecretRole == models.RolePayaso {
			voted.Stats.Points += pointsPayasoWin
			room.ModeState = models.NewModeState(models.SecretRoles{PayasoWinner: target})
			finishGame(room, models.WinnerPayaso)
			res.GameOver = true
			res.Winner = models.WinnerPayaso
			res.PayasoWinner = target
			return nil
		}

		caught := room.IsImpostor(target)
		res.ImpostorCaught = caught
		for _, p := range snap.Active() {
			switch {
			case caught:
				if room.IsImpostor(p.VotedFor) {
					p.Stats.Points += pointsCorrectVote
					p.Stats.CorrectVotes++
				}
			case room.IsImpostor(p.SessionID):
				p.Stats.Points += pointsImpostorSurvive
			case p.SessionID != target:
				p.Stats.Points += pointsSurvivor
				p.Stats.SurvivedRounds++
			}
		}
		if voted != nil {
			voted.IsEliminated = true
		}

		var impostorsLeft, othersLeft int
		for _, p := range snap.Active() {
			if room.IsImpostor(p.SessionID) {
				impostorsLeft++
			} else {
				othersLeft++
			}
		}

		switch room.GameMode {
		case models.ModeDoubleAgent, models.ModeTeams:
			res.GameOver = impostorsLeft == 0
		default:
			res.GameOver = caught
		}
		if res.GameOver {
			finishGame(room, models.WinnerInnocents)
			res.Winner = models.WinnerInnocents
			return nil
		}

		if othersLeft <= impostorsLeft {
			for _, p := range snap.Active() {
				if room.IsImpostor(p.SessionID) {
					p.Stats.Points += pointsImpostorWin
					p.Stats.ImpostorWins++
				}
			}
			finishGame(room, models.WinnerImpostors)
			res.GameOver = true
			res.Winner = models.WinnerImpostors
			return nil
		}

		s.nextCycle(snap, now)
		return nil
	})
	if err != nil {
		return VotingResult{}, err
	}
	log.Info().Str("room", roomID).Str("eliminated", res.MostVotedSessionID).Bool("caught", res.ImpostorCaught).Str("winner", string(res.Winner)).Msg("voting resolved")
	return res, nil
}

func finishGame(room *models.Room, w models.Winner) {
	room.Status = models.StatusResults
	room.Winner = w
	room.VotingEndTime = time.Time{}
	room.CallToVoteBy = nil
}

// nextCycle starts another discussion among the survivors of a vote.
func (s *RoomService) nextCycle(snap *repo.Snapshot, now time.Time) {
	room := &snap.Room
	active := snap.ActiveSessions()

	room.TurnOrder = s.rng.Shuffled(active)
	room.CurrentTurnIndex = 0
	room.RoundNumber = 1
	room.TurnStartTime = now
	room.CallToVoteBy = nil
	room.VotingEndTime = time.Time{}
	room.DiscussionEndTime = now.Add(time.Duration(room.DiscussionMinutes) * time.Minute)
	for i := range snap.Players {
		snap.Players[i].VotedFor = ""
		snap.Players[i].SecondVote = ""
	}
	if _, ok := room.ModeState.Combat(); ok && len(active) >= 2 {
		sh := s.rng.Shuffled(active)
		room.ModeState = models.NewModeState(models.Combat{Combatants: [2]string{sh[0], sh[1]}})
	}
	room.Status = models.StatusPlaying
}
