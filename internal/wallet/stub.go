package wallet

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/DoyleJ11/spin-rooms-backend/internal/engine"
)

// Stub simulates a browser wallet: connecting always succeeds and a
// configurable share of payments fail as a simulated network error.
type Stub struct {
	mu          sync.Mutex
	accounts    map[string]string
	rejected    map[string]bool
	failureRate float64
	src         engine.Source
	latency     time.Duration
}

func NewStub(failureRate float64, src engine.Source) *Stub {
	return &Stub{
		accounts:    make(map[string]string),
		rejected:    make(map[string]bool),
		failureRate: failureRate,
		src:         src,
	}
}

// WithLatency delays every payment, to mimic a confirmation round-trip.
func (s *Stub) WithLatency(d time.Duration) *Stub {
	s.latency = d
	return s
}

// Reject makes every payment from userID's account fail.
func (s *Stub) Reject(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejected[addressFor(userID)] = true
}

func (s *Stub) Account(userID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[userID]
	return a, ok
}

func (s *Stub) Connect(ctx context.Context, userID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if userID == "" {
		return "", ErrNotConnected
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a := addressFor(userID)
	s.accounts[userID] = a
	return a, nil
}

func (s *Stub) SendPayment(ctx context.Context, account string, amountCents int64, roomID int) (string, error) {
	if account == "" {
		return "", fmt.Errorf("room %d: %w: %w", roomID, ErrPaymentFailed, ErrNotConnected)
	}
	if amountCents <= 0 {
		return "", fmt.Errorf("room %d: %w: invalid amount %d", roomID, ErrPaymentFailed, amountCents)
	}
	if s.latency > 0 {
		select {
		case <-time.After(s.latency):
		case <-ctx.Done():
			return "", fmt.Errorf("room %d: %w: %w", roomID, ErrPaymentFailed, ctx.Err())
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rejected[account] {
		return "", fmt.Errorf("room %d: %w: transfer rejected", roomID, ErrPaymentFailed)
	}
	if s.failureRate > 0 && float64(s.src.IntN(10000)) < s.failureRate*10000 {
		return "", fmt.Errorf("room %d: %w: simulated network error", roomID, ErrPaymentFailed)
	}
	return "0x" + strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", ""), nil
}

// Commit is a no-op: stub payments settle immediately.
func (s *Stub) Commit(ctx context.Context, account string, roomID int) error {
	return nil
}

// Refund is a no-op for the same reason.
func (s *Stub) Refund(ctx context.Context, account string, roomID int) error {
	return nil
}

func addressFor(userID string) string {
	sum := sha256.Sum256([]byte(userID))
	return "0x" + hex.EncodeToString(sum[:20])
}
