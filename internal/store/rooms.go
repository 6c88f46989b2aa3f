package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/DoyleJ11/spin-rooms-backend/internal/engine"
)

// RoomsKey is where the ordered room list lives.
const RoomsKey = "rooms"

var ErrRoomNotFound = errors.New("room not found")

type Store interface {
	Load(ctx context.Context) ([]engine.Room, error)
	Save(ctx context.Context, rooms []engine.Room) error
	Update(ctx context.Context, room engine.Room) error
	Reset(ctx context.Context) error
}

// RoomStore keeps the whole room list as one JSON document.
// Writes within a process are serialised; separate processes sharing a KV
// overwrite each other (last save wins).
type RoomStore struct {
	mu  sync.Mutex
	kv  KV
	now func() time.Time
}

func NewRoomStore(kv KV) *RoomStore {
	return &RoomStore{kv: kv, now: time.Now}
}

// Load returns the persisted rooms, seeding the defaults on empty storage.
// Malformed data is an error and is never replaced.
func (s *RoomStore) Load(ctx context.Context) ([]engine.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rooms, err := s.read(ctx)
	if errors.Is(err, ErrKeyNotFound) {
		rooms = engine.DefaultRooms(s.now().UTC())
		if err := s.write(ctx, rooms); err != nil {
			return nil, err
		}
		return rooms, nil
	}
	if err != nil {
		return nil, err
	}
	return rooms, nil
}

func (s *RoomStore) Save(ctx context.Context, rooms []engine.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(ctx, rooms)
}

// Update replaces the room with the same id and persists the entire list.
func (s *RoomStore) Update(ctx context.Context, room engine.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rooms, err := s.read(ctx)
	if errors.Is(err, ErrKeyNotFound) {
		return fmt.Errorf("update room %d: %w", room.ID, ErrRoomNotFound)
	}
	if err != nil {
		return err
	}

	found := false
	for i := range rooms {
		if rooms[i].ID == room.ID {
			rooms[i] = room
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("update room %d: %w", room.ID, ErrRoomNotFound)
	}
	return s.write(ctx, rooms)
}

func (s *RoomStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kv.Delete(ctx, RoomsKey)
}

func (s *RoomStore) read(ctx context.Context) ([]engine.Room, error) {
	b, err := s.kv.Get(ctx, RoomsKey)
	if err != nil {
		return nil, err
	}
	var rooms []engine.Room
	if err := json.Unmarshal(b, &rooms); err != nil {
		return nil, fmt.Errorf("decode %s: %w", RoomsKey, err)
	}
	return rooms, nil
}

func (s *RoomStore) write(ctx context.Context, rooms []engine.Room) error {
	b, err := json.Marshal(rooms)
	if err != nil {
		return fmt.Errorf("encode %s: %w", RoomsKey, err)
	}
	return s.kv.Set(ctx, RoomsKey, b)
}
