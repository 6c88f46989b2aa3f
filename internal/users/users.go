package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/DoyleJ11/spin-rooms-backend/internal/store"
)

var ErrUserNotFound = errors.New("user not found")

const EarningWin = "win"

type Earning struct {
	ID          int64     `json:"id"`
	AmountCents int64     `json:"amountCents"`
	RoomID      int       `json:"roomId"`
	Date        time.Time `json:"date"`
	Type        string    `json:"type"`
}

type User struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	BalanceCents       int64     `json:"balanceCents"`
	TotalEarningsCents int64     `json:"totalEarningsCents"`
	TotalWins          int       `json:"totalWins"`
	TotalGames         int       `json:"totalGames"`
	EarningsHistory    []Earning `json:"earningsHistory"`
}

type Store interface {
	Get(ctx context.Context, id string) (User, error)
	GetOrCreate(ctx context.Context, id, name string) (User, error)
	Update(ctx context.Context, u User) error
	CreditWin(ctx context.Context, userID string, amountCents int64, roomID int, at time.Time) (User, error)
}

// KVStore keeps one JSON document per user under "users:<id>".
type KVStore struct {
	mu sync.Mutex
	kv store.KV
}

func NewKVStore(kv store.KV) *KVStore {
	return &KVStore{kv: kv}
}

func userKey(id string) string { return "users:" + id }

func (s *KVStore) Get(ctx context.Context, id string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(ctx, id)
}

func (s *KVStore) GetOrCreate(ctx context.Context, id, name string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.get(ctx, id)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return User{}, err
	}
	u = User{ID: id, Name: name, EarningsHistory: []Earning{}}
	if err := s.put(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *KVStore) Update(ctx context.Context, u User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put(ctx, u)
}

// CreditWin pays a prize into the user's balance and appends an earnings entry.
func (s *KVStore) CreditWin(ctx context.Context, userID string, amountCents int64, roomID int, at time.Time) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.get(ctx, userID)
	if err != nil {
		return User{}, err
	}
	u.BalanceCents += amountCents
	u.TotalEarningsCents += amountCents
	u.TotalWins++
	u.TotalGames++
	u.EarningsHistory = append(u.EarningsHistory, Earning{
		ID:          at.UnixMilli(),
		AmountCents: amountCents,
		RoomID:      roomID,
		Date:        at,
		Type:        EarningWin,
	})
	if err := s.put(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *KVStore) get(ctx context.Context, id string) (User, error) {
	b, err := s.kv.Get(ctx, userKey(id))
	if errors.Is(err, store.ErrKeyNotFound) {
		return User{}, fmt.Errorf("user %q: %w", id, ErrUserNotFound)
	}
	if err != nil {
		return User{}, err
	}
	var u User
	if err := json.Unmarshal(b, &u); err != nil {
		return User{}, fmt.Errorf("decode user %q: %w", id, err)
	}
	return u, nil
}

func (s *KVStore) put(ctx context.Context, u User) error {
	b, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode user %q: %w", u.ID, err)
	}
	return s.kv.Set(ctx, userKey(u.ID), b)
}
