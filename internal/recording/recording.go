package recording

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/DoyleJ11/spin-rooms-backend/internal/engine"
	"github.com/DoyleJ11/spin-rooms-backend/internal/store"
)

// RecordingsKey is where the append-only recording list lives.
const RecordingsKey = "recordings"

// SecondsPerSpin approximates countdown plus wheel animation for one spin.
const SecondsPerSpin = 11

type Recording struct {
	ID           string               `json:"id"`
	RoomID       int                  `json:"roomId"`
	Results      []engine.SpinResult  `json:"results"`
	Participants []engine.Participant `json:"participants"`
	Date         time.Time            `json:"date"`
	DurationSec  int                  `json:"durationSec"`
}

// Log is append-only: entries are never updated or deduplicated.
type Log interface {
	Append(ctx context.Context, rec Recording) error
	List(ctx context.Context) ([]Recording, error)
}

// New summarises a finished room.
func New(room engine.Room, at time.Time) Recording {
	r := engine.Clone(room)
	return Recording{
		ID:           uuid.NewString(),
		RoomID:       r.ID,
		Results:      r.Results,
		Participants: r.Participants,
		Date:         at,
		DurationSec:  r.TotalSpins * SecondsPerSpin,
	}
}

// KVLog stores the recordings as one JSON list, the same way the rooms are kept.
type KVLog struct {
	mu sync.Mutex
	kv store.KV
}

func NewKVLog(kv store.KV) *KVLog {
	return &KVLog{kv: kv}
}

func (l *KVLog) Append(ctx context.Context, rec Recording) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	recs, err := l.read(ctx)
	if err != nil {
		return err
	}
	recs = append(recs, rec)
	b, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("encode %s: %w", RecordingsKey, err)
	}
	return l.kv.Set(ctx, RecordingsKey, b)
}

func (l *KVLog) List(ctx context.Context) ([]Recording, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	recs, err := l.read(ctx)
	if err != nil {
		return nil, err
	}
	return recs, nil
}

func (l *KVLog) read(ctx context.Context) ([]Recording, error) {
	b, err := l.kv.Get(ctx, RecordingsKey)
	if errors.Is(err, store.ErrKeyNotFound) {
		return []Recording{}, nil
	}
	if err != nil {
		return nil, err
	}
	var recs []Recording
	if err := json.Unmarshal(b, &recs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", RecordingsKey, err)
	}
	return recs, nil
}
