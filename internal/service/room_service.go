package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/OmarAlex24/impostor-game/internal/idgen"
	"github.com/OmarAlex24/impostor-game/internal/models"
	"github.com/OmarAlex24/impostor-game/internal/repo"
	"github.com/rs/zerolog/log"
)

type CreateRoomResult struct {
	RoomID   string `json:"roomId"`
	Code     string `json:"code"`
	PlayerID string `json:"playerId"`
}

type JoinRoomResult struct {
	RoomID   string `json:"roomId"`
	PlayerID string `json:"playerId"`
}

func cleanName(name string) string {
	return truncate(strings.TrimSpace(name), maxNameLength)
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

// CreateRoom opens a waiting room with the caller seated as host.
// The code is redrawn on collision, at most maxRetries times.
func (s *RoomService) CreateRoom(ctx context.Context, hostName, sessionID string) (CreateRoomResult, error) {
	const maxRetries = 10

	name := cleanName(hostName)
	sessionID = strings.TrimSpace(sessionID)
	if name == "" {
		return CreateRoomResult{}, ErrNameRequired
	}
	if sessionID == "" {
		return CreateRoomResult{}, ErrSessionRequired
	}

	s.sweepQuietly(ctx)

	for i := 0; i < maxRetries; i++ {
		code, err := s.idg.New()
		if err != nil {
			return CreateRoomResult{}, err
		}

		now := s.now()
		room := models.Room{
			ID:                   idgen.NewULID(),
			Code:                 code,
			HostID:               sessionID,
			Status:               models.StatusWaiting,
			GameMode:             models.ModeClassic,
			UsedWords:            []string{},
			TotalRoundsPerVoting: s.opts.RoundsPerVoting,
			TurnDurationSeconds:  int(s.opts.TurnDuration / time.Second),
			CreatedAt:            now,
			LastActivityAt:       now,
		}
		host := models.Player{
			ID:         idgen.NewPlayerID(),
			RoomID:     room.ID,
			SessionID:  sessionID,
			Name:       name,
			IsHost:     true,
			JoinedAt:   now,
			SecretRole: models.RoleNone,
		}

		err = s.repo.CreateRoom(ctx, room, host)
		if errors.Is(err, repo.ErrCodeTaken) {
			continue
		}
		if err != nil {
			return CreateRoomResult{}, fmt.Errorf("create room: %w", err)
		}

		log.Info().Str("room", room.ID).Str("code", code).Str("session", sessionID).Msg("room created")
		return CreateRoomResult{RoomID: room.ID, Code: code, PlayerID: host.ID}, nil
	}
	return CreateRoomResult{}, ErrRoomCodeGenerationFailed
}

// JoinRoom seats the caller in the waiting room with code. Joining twice with
// the same session returns the existing seat.
func (s *RoomService) JoinRoom(ctx context.Context, code, playerName, sessionID string) (JoinRoomResult, error) {
	name := cleanName(playerName)
	sessionID = strings.TrimSpace(sessionID)
	if name == "" {
		return JoinRoomResult{}, ErrNameRequired
	}
	if sessionID == "" {
		return JoinRoomResult{}, ErrSessionRequired
	}

	s.sweepQuietly(ctx)

	room, err := s.GetRoomByCode(ctx, code)
	if err != nil {
		return JoinRoomResult{}, err
	}

	res := JoinRoomResult{RoomID: room.ID}
	err = s.mutate(ctx, room.ID, "player_joined", func(snap *repo.Snapshot, now time.Time) error {
		if snap.Room.Status != models.StatusWaiting {
			return ErrRoomNotWaiting
		}
		if p := snap.Player(sessionID); p != nil {
			res.PlayerID = p.ID
			return nil
		}
		p := models.Player{
			ID:         idgen.NewPlayerID(),
			RoomID:     room.ID,
			SessionID:  sessionID,
			Name:       name,
			JoinedAt:   now,
			SecretRole: models.RoleNone,
		}
		snap.AddPlayer(p)
		res.PlayerID = p.ID
		return nil
	})
	if err != nil {
		return JoinRoomResult{}, err
	}
	return res, nil
}

func (s *RoomService) GetRoomByCode(ctx context.Context, code string) (models.Room, error) {
	code = idgen.NormalizeCode(code)
	if !idgen.ValidCode(code) {
		return models.Room{}, ErrRoomNotFound
	}
	room, ok, err := s.repo.FindRoomByCode(ctx, code)
	if err != nil {
		return models.Room{}, fmt.Errorf("find room by code: %w", err)
	}
	if !ok {
		return models.Room{}, ErrRoomNotFound
	}
	return room, nil
}

func (s *RoomService) GetRoom(ctx context.Context, roomID string) (models.Room, error) {
	room, ok, err := s.repo.GetRoom(ctx, roomID)
	if err != nil {
		return models.Room{}, fmt.Errorf("get room: %w", err)
	}
	if !ok {
		return models.Room{}, ErrRoomNotFound
	}
	return room, nil
}

// GetPlayersByRoom lists the room's players by join order.
func (s *RoomService) GetPlayersByRoom(ctx context.Context, roomID string) ([]models.Player, error) {
	if _, err := s.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}
	players, err := s.repo.ListPlayers(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	return players, nil
}

// GetRoomView returns the room as sessionID may see it. A session that is
// not seated in the room sees what an anonymous client sees.
func (s *RoomService) GetRoomView(ctx context.Context, roomID, sessionID string) (models.Room, error) {
	room, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return models.Room{}, err
	}
	return s.viewOf(ctx, room, sessionID)
}

func (s *RoomService) GetRoomByCodeView(ctx context.Context, code, sessionID string) (models.Room, error) {
	room, err := s.GetRoomByCode(ctx, code)
	if err != nil {
		return models.Room{}, err
	}
	return s.viewOf(ctx, room, sessionID)
}

func (s *RoomService) viewOf(ctx context.Context, room models.Room, sessionID string) (models.Room, error) {
	if sessionID != "" {
		players, err := s.repo.ListPlayers(ctx, room.ID)
		if err != nil {
			return models.Room{}, fmt.Errorf("list players: %w", err)
		}
		if !slices.ContainsFunc(players, func(p models.Player) bool { return p.SessionID == sessionID }) {
			sessionID = ""
		}
	}
	return room.ViewFor(sessionID), nil
}

// GetPlayersView lists the players with everyone else's secret role hidden
// until the results.
func (s *RoomService) GetPlayersView(ctx context.Context, roomID, sessionID string) ([]models.Player, error) {
	room, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	players, err := s.repo.ListPlayers(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	for i := range players {
		players[i] = players[i].ViewFor(sessionID, room.Status)
	}
	return players, nil
}

func (s *RoomService) GetPlayerBySession(ctx context.Context, roomID, sessionID string) (models.Player, error) {
	players, err := s.GetPlayersByRoom(ctx, roomID)
	if err != nil {
		return models.Player{}, err
	}
	for _, p := range players {
		if p.SessionID == sessionID {
			return p, nil
		}
	}
	return models.Player{}, ErrPlayerNotFound
}

// ToggleReady flips the player's ready flag and returns the new value.
func (s *RoomService) ToggleReady(ctx context.Context, playerID string) (bool, error) {
	roomID, err := s.roomOfPlayer(ctx, playerID)
	if err != nil {
		return false, err
	}
	var ready bool
	err = s.mutate(ctx, roomID, "ready_toggled", func(snap *repo.Snapshot, _ time.Time) error {
		p := snap.PlayerByID(playerID)
		if p == nil {
			return ErrPlayerNotFound
		}
		p.IsReady = !p.IsReady
		ready = p.IsReady
		return nil
	})
	return ready, err
}

// KickPlayer removes a player from a waiting room on the host's behalf.
func (s *RoomService) KickPlayer(ctx context.Context, playerID, kickerSessionID string) error {
	roomID, err := s.roomOfPlayer(ctx, playerID)
	if err != nil {
		return err
	}
	return s.mutate(ctx, roomID, "player_kicked", func(snap *repo.Snapshot, _ time.Time) error {
		target := snap.PlayerByID(playerID)
		if target == nil {
			return ErrPlayerNotFound
		}
		if err := requireHost(&snap.Room, kickerSessionID); err != nil {
			return err
		}
		if target.SessionID == kickerSessionID {
			return ErrCannotKickSelf
		}
		if snap.Room.Status != models.StatusWaiting {
			return ErrRoomNotWaiting
		}
		snap.RemovePlayer(playerID)
		return nil
	})
}

// LeavePlayer removes a player. A departing host hands over to the
// longest-seated player; the last player out deletes the room.
func (s *RoomService) LeavePlayer(ctx context.Context, playerID string) error {
	roomID, err := s.roomOfPlayer(ctx, playerID)
	if err != nil {
		return err
	}
	return s.mutate(ctx, roomID, "player_left", func(snap *repo.Snapshot, now time.Time) error {
		p := snap.PlayerByID(playerID)
		if p == nil {
			return ErrPlayerNotFound
		}
		sessionID := p.SessionID
		wasHost := snap.Room.HostID == sessionID

		snap.RemovePlayer(playerID)
		if len(snap.Players) == 0 {
			snap.DeleteRoom()
			return nil
		}
		s.dropFromRound(snap, sessionID, now)
		if wasHost {
			next := &snap.Players[0]
			next.IsHost = true
			snap.Room.HostID = next.SessionID
		}
		return nil
	})
}

// dropFromRound removes a departed session from the turn order, the
// call-to-vote tally and every ballot naming it, keeping the current turn
// pointing at a seated player.
func (s *RoomService) dropFromRound(snap *repo.Snapshot, sessionID string, now time.Time) {
	room := &snap.Room
	for i := range snap.Players {
		p := &snap.Players[i]
		if p.VotedFor == sessionID {
			p.VotedFor = ""
		}
		if p.SecondVote == sessionID {
			p.SecondVote = ""
		}
	}
	room.CallToVoteBy = slices.DeleteFunc(room.CallToVoteBy, func(id string) bool { return id == sessionID })

	i := slices.Index(room.TurnOrder, sessionID)
	if i < 0 {
		return
	}
	room.TurnOrder = slices.Delete(room.TurnOrder, i, i+1)
	if room.Status != models.StatusPlaying {
		if i < room.CurrentTurnIndex {
			room.CurrentTurnIndex--
		}
		return
	}
	switch {
	case i < room.CurrentTurnIndex:
		room.CurrentTurnIndex--
	case i == room.CurrentTurnIndex:
		if room.CurrentTurnIndex >= len(room.TurnOrder) {
			room.CurrentTurnIndex--
			s.advanceTurn(room, now)
		} else {
			room.TurnStartTime = now
		}
	}
}

// SweepIdleRooms deletes every room whose last activity is older than the
// idle timeout, players and messages included. It returns how many went.
func (s *RoomService) SweepIdleRooms(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.opts.IdleTimeout)
	ids, err := s.repo.IdleRooms(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list idle rooms: %w", err)
	}

	n := 0
	for _, id := range ids {
		removed := false
		err := s.mutate(ctx, id, "room_expired", func(snap *repo.Snapshot, _ time.Time) error {
			if snap.Room.LastActivityAt.After(cutoff) {
				return errUnchanged
			}
			snap.DeleteRoom()
			removed = true
			return nil
		})
		if errors.Is(err, ErrRoomNotFound) {
			continue
		}
		if err != nil {
			return n, err
		}
		if removed {
			n++
		}
	}
	return n, nil
}

func (s *RoomService) sweepQuietly(ctx context.Context) {
	n, err := s.SweepIdleRooms(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("idle room sweep failed")
		return
	}
	if n > 0 {
		log.Info().Int("rooms", n).Msg("idle rooms removed")
	}
}
