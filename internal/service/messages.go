package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/OmarAlex24/impostor-game/internal/idgen"
	"github.com/OmarAlex24/impostor-game/internal/models"
	"github.com/OmarAlex24/impostor-game/internal/modes"
	"github.com/OmarAlex24/impostor-game/internal/repo"
)

// SendEmoji posts a reaction in silent mode, where it replaces the chat.
func (s *RoomService) SendEmoji(ctx context.Context, roomID, sessionID, emoji string) (models.Message, error) {
	var (
		msg     models.Message
		granted bool
	)
	err := s.mutate(ctx, roomID, "emoji_sent", func(snap *repo.Snapshot, now time.Time) error {
		if err := requireMode(&snap.Room, models.ModeSilent); err != nil {
			return err
		}
		if !modes.IsSilentEmoji(emoji) {
			return ErrInvalidEmoji
		}
		if !inGame(&snap.Room) {
			return ErrNotInGame
		}
		p := snap.Player(sessionID)
		if p == nil {
			return ErrPlayerNotFound
		}
		if err := s.takeToken(&granted, roomID, sessionID); err != nil {
			return err
		}
		msg = newMessage(roomID, p, emoji, now)
		msg.IsEmoji = true
		snap.AppendMessage(msg)
		return nil
	})
	return msg, err
}

// SendSpectatorMessage posts to the chat reserved for eliminated players.
func (s *RoomService) SendSpectatorMessage(ctx context.Context, roomID, sessionID, content string) (models.Message, error) {
	content = truncate(strings.TrimSpace(content), maxMessageLength)
	if content == "" {
		return models.Message{}, ErrEmptyContent
	}

	var (
		msg     models.Message
		granted bool
	)
	err := s.mutate(ctx, roomID, "spectator_message", func(snap *repo.Snapshot, now time.Time) error {
		p := snap.Player(sessionID)
		if p == nil {
			return ErrPlayerNotFound
		}
		if !p.IsEliminated {
			return ErrNotSpectator
		}
		if err := s.takeToken(&granted, roomID, sessionID); err != nil {
			return err
		}
		msg = newMessage(roomID, p, content, now)
		msg.IsSpectatorChat = true
		snap.AppendMessage(msg)
		return nil
	})
	return msg, err
}

// takeToken spends one send token once per call, however many times a
// conflicting transaction replays the closure.
func (s *RoomService) takeToken(granted *bool, roomID, sessionID string) error {
	if *granted {
		return nil
	}
	if !s.limiters.allow(roomID, sessionID) {
		return ErrRateLimited
	}
	*granted = true
	return nil
}

func newMessage(roomID string, p *models.Player, content string, now time.Time) models.Message {
	return models.Message{
		ID:              idgen.NewULID(),
		RoomID:          roomID,
		SenderSessionID: p.SessionID,
		SenderName:      p.Name,
		Content:         content,
		Timestamp:       now,
	}
}

func (s *RoomService) messages(ctx context.Context, roomID string, keep func(models.Message) bool) ([]models.Message, error) {
	if _, err := s.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}
	all, err := s.repo.ListMessages(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	out := make([]models.Message, 0, len(all))
	for _, m := range all {
		if keep(m) {
			out = append(out, m)
		}
	}
	return out, nil
}

// GetEmojis returns the most recent reactions, newest first.
func (s *RoomService) GetEmojis(ctx context.Context, roomID string) ([]models.Message, error) {
	out, err := s.messages(ctx, roomID, func(m models.Message) bool { return m.IsEmoji })
	if err != nil {
		return nil, err
	}
	slices.Reverse(out)
	if len(out) > recentEmojiLimit {
		out = out[:recentEmojiLimit]
	}
	return out, nil
}

// GetSpectatorMessages returns the spectator chat, oldest first.
func (s *RoomService) GetSpectatorMessages(ctx context.Context, roomID string) ([]models.Message, error) {
	return s.messages(ctx, roomID, func(m models.Message) bool { return m.IsSpectatorChat })
}
