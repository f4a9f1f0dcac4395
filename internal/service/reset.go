package service

import (
	"context"
	"time"

	"github.com/OmarAlex24/impostor-game/internal/models"
	"github.com/OmarAlex24/impostor-game/internal/modes"
	"github.com/OmarAlex24/impostor-game/internal/repo"
)

// ResetRoom sends the room back to the lobby. Lifetime stats survive unless
// resetStats is set; used words always survive so later games avoid them.
func (s *RoomService) ResetRoom(ctx context.Context, roomID, sessionID string, resetStats bool) error {
	return s.mutate(ctx, roomID, "room_reset", func(snap *repo.Snapshot, _ time.Time) error {
		room := &snap.Room
		if err := requireHost(room, sessionID); err != nil {
			return err
		}

		for i := range snap.Players {
			p := &snap.Players[i]
			p.ClearRound()
			p.IsReady = false
			p.IsEliminated = false
			p.SecretRole = models.RoleNone
			p.Team = models.TeamNone
			if resetStats {
				p.Stats = models.PlayerStats{}
			}
		}

		room.Status = models.StatusWaiting
		room.Category = ""
		room.CurrentWord = ""
		room.ImpostorID = ""
		room.ModeState = models.NewModeState(models.VariantFor(room.GameMode))
		room.TurnOrder = nil
		room.CurrentTurnIndex = 0
		room.RoundNumber = 0
		room.TurnStartTime = time.Time{}
		room.DiscussionEndTime = time.Time{}
		room.VotingEndTime = time.Time{}
		room.CallToVoteBy = nil
		room.Winner = models.WinnerNone
		snap.PurgeMessages()
		return nil
	})
}

// Categories lists the word categories a game can be started with.
func (s *RoomService) Categories() []string {
	return s.words.Categories()
}

func (s *RoomService) Modes() []modes.Config {
	return modes.All()
}

// Roles lists the secret roles a player can be dealt in secret roles mode.
func (s *RoomService) Roles() []modes.RoleInfo {
	return modes.Roles()
}
