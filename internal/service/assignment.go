package service

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/OmarAlex24/impostor-game/internal/models"
	"github.com/OmarAlex24/impostor-game/internal/modes"
	"github.com/OmarAlex24/impostor-game/internal/repo"
	"github.com/OmarAlex24/impostor-game/internal/words"
	"github.com/rs/zerolog/log"
)

type StartGameParams struct {
	Category          string
	DiscussionMinutes int
	GameMode          models.GameMode
}

// StartGameResult lets the host render the new round without waiting for a
// refetch.
type StartGameResult struct {
	Word        string `json:"word"`
	ImpostorID  string `json:"impostorId"`
	ImpostorID2 string `json:"impostorId2,omitempty"`
}

// StartGame deals a new game, or restarts the discussion of the running one.
//
// From waiting or results a fresh game is dealt: eliminations are cleared, a
// word is drawn avoiding the room's used words and impostors, teams,
// combatants and secret roles are assigned for the requested mode. While
// playing, the current word, mode and identities are kept and only the turn
// order and per-round state are reset.
func (s *RoomService) StartGame(ctx context.Context, roomID, sessionID string, p StartGameParams) (StartGameResult, error) {
	var res StartGameResult
	err := s.mutate(ctx, roomID, "game_started", func(snap *repo.Snapshot, now time.Time) error {
		room := &snap.Room
		if err := requireHost(room, sessionID); err != nil {
			return err
		}
		if room.Status == models.StatusVoting {
			return ErrVotingInProgress
		}
		continuing := room.Status == models.StatusPlaying && room.CurrentWord != ""

		mode := room.GameMode
		if !continuing {
			mode = modes.Get(p.GameMode).ID
			for i := range snap.Players {
				snap.Players[i].IsEliminated = false
			}
		}
		cfg := modes.Get(mode)

		active := snap.ActiveSessions()
		if len(active) < cfg.MinPlayers {
			return newError(ErrPreconditionFailed, "%s needs at least %d active players (have %d)", cfg.Name, cfg.MinPlayers, len(active))
		}

		word := room.CurrentWord
		category := room.Category
		if !continuing {
			var err error
			category, word, err = s.drawWord(p.Category, room.UsedWords)
			if err != nil {
				return err
			}
			if !slices.Contains(room.UsedWords, word) {
				room.UsedWords = append(room.UsedWords, word)
			}
		}

		for i := range snap.Players {
			snap.Players[i].ClearRound()
		}
		if !continuing {
			for i := range snap.Players {
				snap.Players[i].SecretRole = models.RoleNone
				snap.Players[i].Team = models.TeamNone
			}
			s.assign(snap, mode, active)
			for _, id := range room.ImpostorIDs() {
				snap.Player(id).Stats.TimesAsImpostor++
			}
		}

		minutes := p.DiscussionMinutes
		if continuing {
			minutes = room.DiscussionMinutes
		}
		if minutes <= 0 {
			minutes = defaultDiscussionMinutes
		}

		room.GameMode = mode
		room.Category = category
		room.CurrentWord = word
		room.TurnOrder = s.rng.Shuffled(active)
		room.CurrentTurnIndex = 0
		room.RoundNumber = 1
		room.TotalRoundsPerVoting = s.opts.RoundsPerVoting
		room.TurnDurationSeconds = int(s.opts.TurnDuration / time.Second)
		room.TurnStartTime = now
		room.DiscussionMinutes = minutes
		room.DiscussionEndTime = now.Add(time.Duration(minutes) * time.Minute)
		room.VotingEndTime = time.Time{}
		room.CallToVoteBy = nil
		room.Winner = models.WinnerNone
		room.Status = models.StatusPlaying

		res = StartGameResult{Word: word, ImpostorID: room.ImpostorID, ImpostorID2: room.ModeState.SecondImpostor()}
		return nil
	})
	if err != nil {
		return StartGameResult{}, err
	}
	log.Info().Str("room", roomID).Str("session", sessionID).Msg("game started")
	return res, nil
}

func (s *RoomService) drawWord(category string, used []string) (string, string, error) {
	if category == "" {
		category = words.DefaultCategory
	}
	name, ok := s.words.Resolve(category)
	if !ok {
		return "", "", ErrUnknownCategory
	}
	word, err := s.words.PickWeighted(s.rng.IntN, name, used)
	if errors.Is(err, words.ErrUnknownCategory) {
		return "", "", ErrUnknownCategory
	}
	if err != nil {
		return "", "", err
	}
	return name, word, nil
}

// assign picks impostors and mode specific identities among the active
// sessions and writes them to the room and players.
func (s *RoomService) assign(snap *repo.Snapshot, mode models.GameMode, active []string) {
	room := &snap.Room

	switch mode {
	case models.ModeDoubleAgent:
		sh := s.rng.Shuffled(active)
		room.ImpostorID = sh[0]
		room.ModeState = models.NewModeState(models.DoubleAgent{SecondImpostorID: sh[1]})

	case models.ModeTeams:
		sh := s.rng.Shuffled(active)
		mid := len(sh) / 2
		teams := models.Teams{
			TeamA: slices.Clone(sh[:mid]),
			TeamB: slices.Clone(sh[mid:]),
		}
		teams.ImpostorA = s.rng.Pick(teams.TeamA)
		teams.ImpostorB = s.rng.Pick(teams.TeamB)
		for _, id := range teams.TeamA {
			snap.Player(id).Team = models.TeamA
		}
		for _, id := range teams.TeamB {
			snap.Player(id).Team = models.TeamB
		}
		room.ImpostorID = teams.ImpostorA
		room.ModeState = models.NewModeState(teams)

	case models.ModeCombat:
		sh := s.rng.Shuffled(active)
		room.ModeState = models.NewModeState(models.Combat{Combatants: [2]string{sh[0], sh[1]}})
		room.ImpostorID = s.rng.Pick(active)

	case models.ModeSecretRoles:
		room.ImpostorID = s.rng.Pick(active)
		room.ModeState = models.NewModeState(models.SecretRoles{})
		next := 0
		for _, id := range active {
			if id == room.ImpostorID {
				continue
			}
			p := snap.Player(id)
			if next < len(modes.RoleSequence) {
				p.SecretRole = modes.RoleSequence[next]
				next++
			} else {
				p.SecretRole = models.RoleNone
			}
		}

	default:
		room.ImpostorID = s.rng.Pick(active)
		room.ModeState = models.NewModeState(models.VariantFor(mode))
	}
}
