package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/OmarAlex24/impostor-game/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	codesKey    = "rooms:codes"
	activityKey = "rooms:activity"
	playerIndex = "players:index"

	maxTxRetries = 20
)

// RedisRoomRepo stores a room as a JSON string, its players in a hash keyed
// by player id and its messages in a list. Update uses WATCH/MULTI so several
// API instances can share one Redis.
type RedisRoomRepo struct{ rdb *redis.Client }

func NewRedisRoomRepo(rdb *redis.Client) *RedisRoomRepo {
	return &RedisRoomRepo{rdb: rdb}
}

func roomKey(id string) string {
	return fmt.Sprintf("rooms:%s", id)
}
func playersKey(id string) string {
	return fmt.Sprintf("rooms:%s:players", id)
}
func messagesKey(id string) string {
	return fmt.Sprintf("rooms:%s:messages", id)
}

// deleteRoomScript removes a room with everything hanging off it, including
// its entries in the global indexes.
const deleteRoomScript = `
	local room_key = KEYS[1]
	local players_key = KEYS[2]
	local messages_key = KEYS[3]
	local codes_key = KEYS[4]
	local index_key = KEYS[5]
	local activity_key = KEYS[6]
	local room_id = ARGV[1]

	local raw = redis.call('GET', room_key)
	if raw then
		local room = cjson.decode(raw)
		if room.code then
			redis.call('HDEL', codes_key, room.code)
		end
	end

	local player_ids = redis.call('HKEYS', players_key)
	for _, pid in ipairs(player_ids) do
		redis.call('HDEL', index_key, pid)
	end

	redis.call('DEL', room_key, players_key, messages_key)
	redis.call('ZREM', activity_key, room_id)
	return 'OK'
`

func deleteKeys(roomID string) []string {
	return []string{roomKey(roomID), playersKey(roomID), messagesKey(roomID), codesKey, playerIndex, activityKey}
}

func (rr *RedisRoomRepo) CreateRoom(ctx context.Context, room models.Room, host models.Player) error {
	rb, err := json.Marshal(room)
	if err != nil {
		return err
	}
	pb, err := json.Marshal(host)
	if err != nil {
		return err
	}

	// claim the code first; HSETNX makes it unique across instances
	ok, err := rr.rdb.HSetNX(ctx, codesKey, room.Code, room.ID).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrCodeTaken
	}

	pipe := rr.rdb.TxPipeline()
	pipe.Set(ctx, roomKey(room.ID), rb, 0)
	pipe.HSet(ctx, playersKey(room.ID), host.ID, pb)
	pipe.HSet(ctx, playerIndex, host.ID, room.ID)
	pipe.ZAdd(ctx, activityKey, redis.Z{Score: activityScore(room.LastActivityAt), Member: room.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		// release the code so it can be drawn again
		_ = rr.rdb.HDel(ctx, codesKey, room.Code).Err()
		return err
	}
	return nil
}

// snapshotReader is the subset of commands shared by *redis.Client and
// *redis.Tx that loading a snapshot needs.
type snapshotReader interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

func activityScore(t time.Time) float64 {
	return float64(t.UnixMilli())
}

func (rr *RedisRoomRepo) GetRoom(ctx context.Context, roomID string) (models.Room, bool, error) {
	return getRoom(ctx, rr.rdb, roomID)
}

func getRoom(ctx context.Context, c snapshotReader, roomID string) (models.Room, bool, error) {
	val, err := c.Get(ctx, roomKey(roomID)).Bytes()
	if err == redis.Nil {
		return models.Room{}, false, nil
	}
	if err != nil {
		return models.Room{}, false, err
	}
	var r models.Room
	if err := json.Unmarshal(val, &r); err != nil {
		return models.Room{}, false, fmt.Errorf("decode room %s: %w", roomID, err)
	}
	return r, true, nil
}

func (rr *RedisRoomRepo) FindRoomByCode(ctx context.Context, code string) (models.Room, bool, error) {
	id, err := rr.rdb.HGet(ctx, codesKey, code).Result()
	if err == redis.Nil {
		return models.Room{}, false, nil
	}
	if err != nil {
		return models.Room{}, false, err
	}
	return rr.GetRoom(ctx, id)
}

func (rr *RedisRoomRepo) FindPlayerRoom(ctx context.Context, playerID string) (string, bool, error) {
	id, err := rr.rdb.HGet(ctx, playerIndex, playerID).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

func (rr *RedisRoomRepo) ListPlayers(ctx context.Context, roomID string) ([]models.Player, error) {
	return listPlayers(ctx, rr.rdb, roomID)
}

func listPlayers(ctx context.Context, c snapshotReader, roomID string) ([]models.Player, error) {
	vals, err := c.HGetAll(ctx, playersKey(roomID)).Result()
	if err != nil {
		return nil, err
	}
	res := make([]models.Player, 0, len(vals))
	for id, raw := range vals {
		var p models.Player
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, fmt.Errorf("decode player %s: %w", id, err)
		}
		res = append(res, p)
	}
	sortPlayers(res)
	return res, nil
}

func (rr *RedisRoomRepo) ListMessages(ctx context.Context, roomID string) ([]models.Message, error) {
	vals, err := rr.rdb.LRange(ctx, messagesKey(roomID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	res := make([]models.Message, 0, len(vals))
	for _, raw := range vals {
		var m models.Message
		if json.Unmarshal([]byte(raw), &m) == nil {
			res = append(res, m)
		}
	}
	sortMessages(res)
	return res, nil
}

func (rr *RedisRoomRepo) Update(ctx context.Context, roomID string, fn func(*Snapshot) error) error {
	txf := func(tx *redis.Tx) error {
		room, ok, err := getRoom(ctx, tx, roomID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrRoomNotFound
		}
		players, err := listPlayers(ctx, tx, roomID)
		if err != nil {
			return err
		}

		snap := newSnapshot(room, players)
		if err := fn(snap); err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			return writeSnapshot(ctx, pipe, roomID, snap)
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := rr.rdb.Watch(ctx, txf, roomKey(roomID), playersKey(roomID))
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrTxConflict
}

func writeSnapshot(ctx context.Context, pipe redis.Pipeliner, roomID string, snap *Snapshot) error {
	if snap.deleted {
		return pipe.Eval(ctx, deleteRoomScript, deleteKeys(roomID), roomID).Err()
	}

	rb, err := json.Marshal(snap.Room)
	if err != nil {
		return err
	}
	pipe.Set(ctx, roomKey(roomID), rb, 0)

	pipe.Del(ctx, playersKey(roomID))
	if len(snap.removed) > 0 {
		pipe.HDel(ctx, playerIndex, snap.removed...)
	}
	if len(snap.Players) > 0 {
		fields := make([]any, 0, len(snap.Players)*2)
		index := make([]any, 0, len(snap.Players)*2)
		for _, p := range snap.Players {
			pb, err := json.Marshal(p)
			if err != nil {
				return err
			}
			fields = append(fields, p.ID, pb)
			index = append(index, p.ID, roomID)
		}
		pipe.HSet(ctx, playersKey(roomID), fields...)
		pipe.HSet(ctx, playerIndex, index...)
	}

	pipe.ZAdd(ctx, activityKey, redis.Z{Score: activityScore(snap.Room.LastActivityAt), Member: roomID})

	if snap.purge {
		pipe.Del(ctx, messagesKey(roomID))
	}
	if len(snap.appended) > 0 {
		msgs := make([]any, 0, len(snap.appended))
		for _, m := range snap.appended {
			mb, err := json.Marshal(m)
			if err != nil {
				return err
			}
			msgs = append(msgs, mb)
		}
		pipe.RPush(ctx, messagesKey(roomID), msgs...)
	}
	return nil
}

func (rr *RedisRoomRepo) IdleRooms(ctx context.Context, before time.Time) ([]string, error) {
	return rr.rdb.ZRangeByScore(ctx, activityKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(before.UnixMilli(), 10),
	}).Result()
}
