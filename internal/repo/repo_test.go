package repo

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/OmarAlex24/impostor-game/internal/idgen"
	"github.com/OmarAlex24/impostor-game/internal/models"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func seedRoom(t *testing.T, r RoomRepo) (models.Room, models.Player) {
	t.Helper()
	code, err := idgen.NewRoomCode()
	require.NoError(t, err)

	room := models.Room{
		ID:             idgen.NewULID(),
		Code:           code,
		HostID:         "host-session",
		Status:         models.StatusWaiting,
		GameMode:       models.ModeClassic,
		CreatedAt:      base,
		LastActivityAt: base,
	}
	host := models.Player{
		ID:        idgen.NewPlayerID(),
		RoomID:    room.ID,
		SessionID: "host-session",
		Name:      "Ana",
		IsHost:    true,
		JoinedAt:  base,
	}
	require.NoError(t, r.CreateRoom(context.Background(), room, host))
	return room, host
}

func runRepoContract(t *testing.T, newRepo func(t *testing.T) RoomRepo) {
	ctx := context.Background()

	t.Run("create and look up", func(t *testing.T) {
		r := newRepo(t)
		room, host := seedRoom(t, r)

		got, ok, err := r.FindRoomByCode(ctx, room.Code)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, room.ID, got.ID)

		rid, ok, err := r.FindPlayerRoom(ctx, host.ID)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, room.ID, rid)

		err = r.CreateRoom(ctx, models.Room{ID: idgen.NewULID(), Code: room.Code}, models.Player{ID: idgen.NewPlayerID()})
		assert.ErrorIs(t, err, ErrCodeTaken)
	})

	t.Run("update commits players and messages", func(t *testing.T) {
		r := newRepo(t)
		room, host := seedRoom(t, r)
		guest := models.Player{ID: idgen.NewPlayerID(), RoomID: room.ID, SessionID: "guest", Name: "Beto", JoinedAt: base.Add(time.Second)}

		err := r.Update(ctx, room.ID, func(s *Snapshot) error {
			s.AddPlayer(guest)
			s.Room.Status = models.StatusPlaying
			s.Room.ModeState = models.NewModeState(models.Combat{Combatants: [2]string{"host-session", "guest"}})
			s.AppendMessage(models.Message{ID: "m2", RoomID: room.ID, Timestamp: base.Add(2 * time.Second)})
			s.AppendMessage(models.Message{ID: "m1", RoomID: room.ID, Timestamp: base.Add(time.Second)})
			return nil
		})
		require.NoError(t, err)

		players, err := r.ListPlayers(ctx, room.ID)
		require.NoError(t, err)
		require.Len(t, players, 2)
		assert.Equal(t, host.ID, players[0].ID)
		assert.Equal(t, guest.ID, players[1].ID)

		got, _, err := r.GetRoom(ctx, room.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusPlaying, got.Status)
		assert.True(t, got.ModeState.IsCombatant("guest"))

		msgs, err := r.ListMessages(ctx, room.ID)
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, "m1", msgs[0].ID)

		require.NoError(t, r.Update(ctx, room.ID, func(s *Snapshot) error {
			s.RemovePlayer(guest.ID)
			s.PurgeMessages()
			return nil
		}))
		_, ok, err := r.FindPlayerRoom(ctx, guest.ID)
		require.NoError(t, err)
		assert.False(t, ok)
		msgs, err = r.ListMessages(ctx, room.ID)
		require.NoError(t, err)
		assert.Empty(t, msgs)
	})

	t.Run("failed update leaves state untouched", func(t *testing.T) {
		r := newRepo(t)
		room, _ := seedRoom(t, r)
		boom := errors.New("boom")

		err := r.Update(ctx, room.ID, func(s *Snapshot) error {
			s.Room.Status = models.StatusVoting
			s.Players[0].Stats.Points = 900
			return boom
		})
		assert.ErrorIs(t, err, boom)

		got, _, _ := r.GetRoom(ctx, room.ID)
		assert.Equal(t, models.StatusWaiting, got.Status)
		players, _ := r.ListPlayers(ctx, room.ID)
		assert.Zero(t, players[0].Stats.Points)
	})

	t.Run("delete cascades", func(t *testing.T) {
		r := newRepo(t)
		room, host := seedRoom(t, r)

		require.NoError(t, r.Update(ctx, room.ID, func(s *Snapshot) error {
			s.DeleteRoom()
			return nil
		}))

		_, ok, err := r.GetRoom(ctx, room.ID)
		require.NoError(t, err)
		assert.False(t, ok)
		_, ok, _ = r.FindRoomByCode(ctx, room.Code)
		assert.False(t, ok)
		_, ok, _ = r.FindPlayerRoom(ctx, host.ID)
		assert.False(t, ok)
		players, _ := r.ListPlayers(ctx, room.ID)
		assert.Empty(t, players)

		err = r.Update(ctx, room.ID, func(*Snapshot) error { return nil })
		assert.ErrorIs(t, err, ErrRoomNotFound)
	})

	t.Run("idle rooms", func(t *testing.T) {
		r := newRepo(t)
		room, _ := seedRoom(t, r)

		ids, err := r.IdleRooms(ctx, base.Add(-time.Minute))
		require.NoError(t, err)
		assert.NotContains(t, ids, room.ID)

		ids, err = r.IdleRooms(ctx, base.Add(time.Minute))
		require.NoError(t, err)
		assert.Contains(t, ids, room.ID)
	})

	t.Run("concurrent updates do not lose writes", func(t *testing.T) {
		r := newRepo(t)
		room, _ := seedRoom(t, r)

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, r.Update(ctx, room.ID, func(s *Snapshot) error {
					s.Players[0].Stats.Points += 10
					return nil
				}))
			}()
		}
		wg.Wait()

		players, err := r.ListPlayers(ctx, room.ID)
		require.NoError(t, err)
		assert.Equal(t, 100, players[0].Stats.Points)
	})
}

func TestMemoryRoomRepo(t *testing.T) {
	t.Parallel()
	runRepoContract(t, func(*testing.T) RoomRepo { return NewMemoryRoomRepo() })
}

func TestMemoryRoomRepo_LocksAreReleased(t *testing.T) {
	t.Parallel()

	r := NewMemoryRoomRepo()
	room, _ := seedRoom(t, r)
	require.NoError(t, r.Update(context.Background(), room.ID, func(*Snapshot) error { return nil }))

	r.locks.mu.Lock()
	defer r.locks.mu.Unlock()
	assert.Empty(t, r.locks.m)
}

// TestRedisRoomRepo runs the contract against an in-process miniredis, or
// against a real server when TEST_REDIS_ADDR is set.
func TestRedisRoomRepo(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")

	runRepoContract(t, func(t *testing.T) RoomRepo {
		target := addr
		if target == "" {
			target = miniredis.RunT(t).Addr()
		}
		rdb := redis.NewClient(&redis.Options{Addr: target})
		t.Cleanup(func() { rdb.Close() })
		require.NoError(t, rdb.FlushDB(context.Background()).Err())
		return NewRedisRoomRepo(rdb)
	})
}

func TestRedisRoomRepo_DeleteCascades(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	rdb := redis.NewClient(&redis.Options{Addr: miniredis.RunT(t).Addr()})
	t.Cleanup(func() { rdb.Close() })
	r := NewRedisRoomRepo(rdb)

	room, host := seedRoom(t, r)
	require.NoError(t, r.Update(ctx, room.ID, func(s *Snapshot) error {
		s.AppendMessage(models.Message{ID: idgen.NewULID(), RoomID: room.ID, Content: "hola", Timestamp: base})
		return nil
	}))
	n, err := rdb.Exists(ctx, roomKey(room.ID), messagesKey(room.ID)).Result()
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	require.NoError(t, r.Update(ctx, room.ID, func(s *Snapshot) error {
		s.DeleteRoom()
		return nil
	}))

	n, err = rdb.Exists(ctx, roomKey(room.ID), playersKey(room.ID), messagesKey(room.ID)).Result()
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.False(t, rdb.HExists(ctx, codesKey, room.Code).Val())
	assert.False(t, rdb.HExists(ctx, playerIndex, host.ID).Val())
	assert.ErrorIs(t, rdb.ZScore(ctx, activityKey, room.ID).Err(), redis.Nil)
}
