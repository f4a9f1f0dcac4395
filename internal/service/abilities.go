package service

import (
	"context"
	"strings"
	"time"

	"github.com/OmarAlex24/impostor-game/internal/models"
	"github.com/OmarAlex24/impostor-game/internal/modes"
	"github.com/OmarAlex24/impostor-game/internal/repo"
)

func requireMode(room *models.Room, mode models.GameMode) error {
	if room.GameMode != mode {
		return newError(ErrModeMismatch, "only available in %s mode", modes.Get(mode).Name)
	}
	return nil
}

func inGame(room *models.Room) bool {
	return room.Status == models.StatusPlaying || room.Status == models.StatusVoting
}

// abilityHolder returns the caller if they hold role, are still in the game
// and have not used their ability yet.
func abilityHolder(snap *repo.Snapshot, sessionID string, role models.SecretRole) (*models.Player, error) {
	p := snap.Player(sessionID)
	if p == nil {
		return nil, ErrPlayerNotFound
	}
	if p.SecretRole != role {
		return nil, ErrWrongRole
	}
	if p.IsEliminated {
		return nil, ErrSpectator
	}
	if p.HasUsedAbility {
		return nil, ErrAbilityUsed
	}
	return p, nil
}

// DetectiveInvestigate tells the detective whether target is an impostor. The
// answer is returned to the caller only; the room records just that the
// ability was spent.
func (s *RoomService) DetectiveInvestigate(ctx context.Context, roomID, sessionID, target string) (bool, error) {
	var isImpostor bool
	err := s.mutate(ctx, roomID, "ability_used", func(snap *repo.Snapshot, _ time.Time) error {
		room := &snap.Room
		if err := requireMode(room, models.ModeSecretRoles); err != nil {
			return err
		}
		if !inGame(room) {
			return ErrNotInGame
		}
		p, err := abilityHolder(snap, sessionID, models.RoleDetective)
		if err != nil {
			return err
		}
		if snap.Player(target) == nil {
			return ErrTargetNotFound
		}
		if target == sessionID {
			return ErrInvalidTarget
		}
		p.HasUsedAbility = true
		isImpostor = room.IsImpostor(target)
		return nil
	})
	return isImpostor, err
}

// FiscalCallVote spends the fiscal's ability to open voting immediately.
func (s *RoomService) FiscalCallVote(ctx context.Context, roomID, sessionID string) error {
	return s.mutate(ctx, roomID, "voting_started", func(snap *repo.Snapshot, now time.Time) error {
		room := &snap.Room
		if err := requireMode(room, models.ModeSecretRoles); err != nil {
			return err
		}
		if room.Status != models.StatusPlaying {
			return ErrNotPlaying
		}
		p, err := abilityHolder(snap, sessionID, models.RoleFiscal)
		if err != nil {
			return err
		}
		p.HasUsedAbility = true
		s.openVoting(room, now)
		return nil
	})
}

// SetGhostClue stores the single clue an eliminated ghost may leave.
func (s *RoomService) SetGhostClue(ctx context.Context, roomID, sessionID, clue string) error {
	clue = truncate(strings.TrimSpace(clue), maxClueLength)
	return s.mutate(ctx, roomID, "ghost_clue", func(snap *repo.Snapshot, _ time.Time) error {
		if err := requireMode(&snap.Room, models.ModeSecretRoles); err != nil {
			return err
		}
		p := snap.Player(sessionID)
		if p == nil {
			return ErrPlayerNotFound
		}
		if p.SecretRole != models.RoleGhost {
			return ErrWrongRole
		}
		if !p.IsEliminated {
			return ErrGhostAlive
		}
		if clue == "" {
			return ErrEmptyContent
		}
		if p.GhostClue != "" {
			return ErrClueAlreadySet
		}
		p.GhostClue = clue
		return nil
	})
}
