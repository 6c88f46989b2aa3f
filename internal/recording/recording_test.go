package recording

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/DoyleJ11/spin-rooms-backend/internal/engine"
	"github.com/DoyleJ11/spin-rooms-backend/internal/store"
)

func finishedRoom(id int) engine.Room {
	r := engine.NewRoom(id, time.Now())
	r.MaxParticipants = 3
	for i := 1; i <= 3; i++ {
		r.Participants = append(r.Participants, engine.Participant{
			UserID:           fmt.Sprintf("u%d", i),
			NumbersPurchased: []int{i},
		})
	}
	for i := 1; i <= r.TotalSpins; i++ {
		var err error
		_, r, err = engine.Apply(r, engine.Command{Type: engine.CmdSpin, WinningNumber: i})
		if err != nil {
			panic(err)
		}
	}
	return r
}

func TestNew_SummarisesRoom(t *testing.T) {
	room := finishedRoom(5)
	at := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)

	rec := New(room, at)

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, 5, rec.RoomID)
	assert.Len(t, rec.Results, 3)
	assert.Len(t, rec.Participants, 3)
	assert.Equal(t, 3*SecondsPerSpin, rec.DurationSec)
	assert.Equal(t, at, rec.Date)

	room.Participants[0].UserID = "changed"
	assert.Equal(t, "u1", rec.Participants[0].UserID)
}

func logs(t *testing.T) map[string]Log {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return map[string]Log{
		"kv-memory": NewKVLog(store.NewMemoryKV()),
		"kv-redis":  NewKVLog(store.NewRedisKV(client, "kv:")),
		"redis":     NewRedisLog(client, "list:"),
	}
}

func TestLog_AppendNeverDeduplicates(t *testing.T) {
	for name, l := range logs(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			empty, err := l.List(ctx)
			require.NoError(t, err)
			assert.Empty(t, empty)

			rec := New(finishedRoom(1), time.Now())
			require.NoError(t, l.Append(ctx, rec))
			require.NoError(t, l.Append(ctx, rec))
			require.NoError(t, l.Append(ctx, New(finishedRoom(2), time.Now())))

			got, err := l.List(ctx)
			require.NoError(t, err)
			require.Len(t, got, 3)
			assert.Equal(t, got[0].ID, got[1].ID)
			assert.Equal(t, 2, got[2].RoomID)
			assert.Len(t, got[2].Results, 3)
		})
	}
}

func TestGormRowRoundTrip(t *testing.T) {
	rec := New(finishedRoom(9), time.Unix(100, 0).UTC())
	assert.Equal(t, rec, fromRow(toRow(rec)))
	assert.Equal(t, "recordings", recordingRow{}.TableName())
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func TestKafkaLog_PublishesAfterAppend(t *testing.T) {
	ctx := context.Background()
	inner := NewKVLog(store.NewMemoryKV())
	w := &fakeWriter{}
	l := NewKafkaLog(inner, w, zap.NewNop())

	rec := New(finishedRoom(3), time.Now())
	require.NoError(t, l.Append(ctx, rec))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "3", string(w.msgs[0].Key))
	assert.Contains(t, string(w.msgs[0].Value), rec.ID)

	got, err := l.List(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestKafkaLog_PublishFailureKeepsAppend(t *testing.T) {
	ctx := context.Background()
	inner := NewKVLog(store.NewMemoryKV())
	l := NewKafkaLog(inner, &fakeWriter{err: errors.New("broker down")}, zap.NewNop())

	require.NoError(t, l.Append(ctx, New(finishedRoom(3), time.Now())))

	got, err := inner.List(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
