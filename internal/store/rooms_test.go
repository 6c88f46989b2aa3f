package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/spin-rooms-backend/internal/engine"
)

func newRedisKV(t *testing.T) (*RedisKV, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisKV(client, "test:"), mr
}

func backends(t *testing.T) map[string]KV {
	kv, _ := newRedisKV(t)
	return map[string]KV{
		"memory": NewMemoryKV(),
		"redis":  kv,
	}
}

func TestRoomStore_LoadSeedsDefaults(t *testing.T) {
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := NewRoomStore(kv)

			rooms, err := s.Load(ctx)
			require.NoError(t, err)
			require.Len(t, rooms, engine.DefaultRoomCount)
			assert.Equal(t, 1, rooms[0].ID)
			assert.Equal(t, engine.StatusWaiting, rooms[0].Status)

			// defaults were persisted, not regenerated
			raw, err := kv.Get(ctx, RoomsKey)
			require.NoError(t, err)
			assert.Contains(t, string(raw), `"maxParticipants":200`)

			again, err := s.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, rooms[0].CreatedAt.Unix(), again[0].CreatedAt.Unix())
		})
	}
}

func TestRoomStore_UpdateReplacesByID(t *testing.T) {
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := NewRoomStore(kv)
			_, err := s.Load(ctx)
			require.NoError(t, err)

			room := engine.NewRoom(3, time.Now())
			room.Participants = append(room.Participants, engine.Participant{UserID: "alice", NumbersPurchased: []int{9}})
			room.PrizePoolCents = room.EntryFeeCents
			require.NoError(t, s.Update(ctx, room))

			rooms, err := s.Load(ctx)
			require.NoError(t, err)
			require.Len(t, rooms, engine.DefaultRoomCount)
			assert.Equal(t, 3, rooms[2].ID)
			require.Len(t, rooms[2].Participants, 1)
			assert.Equal(t, "alice", rooms[2].Participants[0].UserID)
			assert.Empty(t, rooms[1].Participants)
		})
	}
}

func TestRoomStore_UpdateUnknownRoom(t *testing.T) {
	ctx := context.Background()
	s := NewRoomStore(NewMemoryKV())

	err := s.Update(ctx, engine.NewRoom(1, time.Now()))
	assert.ErrorIs(t, err, ErrRoomNotFound)

	_, err = s.Load(ctx)
	require.NoError(t, err)
	err = s.Update(ctx, engine.NewRoom(99, time.Now()))
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestRoomStore_CorruptDataIsNotReplaced(t *testing.T) {
	ctx := context.Background()
	kv, mr := newRedisKV(t)
	mr.Set("test:"+RoomsKey, "{not json")
	s := NewRoomStore(kv)

	_, err := s.Load(ctx)
	require.Error(t, err)

	got, err := mr.Get("test:" + RoomsKey)
	require.NoError(t, err)
	assert.Equal(t, "{not json", got)
}

func TestRoomStore_ResetAndSave(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	s := NewRoomStore(kv)

	require.NoError(t, s.Save(ctx, []engine.Room{engine.NewRoom(7, time.Now())}))
	rooms, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, 7, rooms[0].ID)

	require.NoError(t, s.Reset(ctx))
	_, err = kv.Get(ctx, RoomsKey)
	assert.ErrorIs(t, err, ErrKeyNotFound)

	rooms, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, rooms, engine.DefaultRoomCount)
}

func TestMemoryKV_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	buf := []byte("abc")
	require.NoError(t, kv.Set(ctx, "k", buf))
	buf[0] = 'z'

	got, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}
