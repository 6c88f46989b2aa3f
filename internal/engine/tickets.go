package engine

import (
	"math/rand/v2"
	"sync"
)

// Source is the random source used for ticket assignment and wheel draws.
type Source interface {
	IntN(n int) int
}

type lockedSource struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewSource returns a deterministic PCG-backed source. It is safe for
// concurrent use and is not suitable where fairness must be provable.
func NewSource(seed uint64) Source {
	return &lockedSource{rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *lockedSource) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.IntN(n)
}

// AvailableNumbers returns the unclaimed numbers of r in ascending order.
func AvailableNumbers(r Room) []int {
	taken := claimedNumbers(r)
	free := make([]int, 0, r.MaxParticipants-len(taken))
	for n := 1; n <= r.MaxParticipants; n++ {
		if !taken[n] {
			free = append(free, n)
		}
	}
	return free
}

// AssignNumber picks one unclaimed number uniformly at random.
func AssignNumber(r Room, src Source) (int, error) {
	free := AvailableNumbers(r)
	if len(free) == 0 {
		return 0, ErrRoomFull
	}
	return free[src.IntN(len(free))], nil
}

// DrawWinningNumber spins the wheel over [1, MaxParticipants].
func DrawWinningNumber(r Room, src Source) (int, error) {
	if r.MaxParticipants <= 0 {
		return 0, ErrNumberOutOfRange
	}
	return src.IntN(r.MaxParticipants) + 1, nil
}
