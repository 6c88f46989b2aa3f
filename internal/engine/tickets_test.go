package engine

import (
	"errors"
	"fmt"
	"testing"
)

type fixedSource int

func (f fixedSource) IntN(n int) int { return int(f) % n }

func TestAvailableNumbers_Complement(t *testing.T) {
	r := NewRoom(1, testNow)
	r.MaxParticipants = 5
	r.Participants = []Participant{
		{UserID: "a", NumbersPurchased: []int{2}},
		{UserID: "b", NumbersPurchased: []int{4, 5}},
	}

	got := AvailableNumbers(r)
	want := []int{1, 3}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestAssignNumber_UsesSource(t *testing.T) {
	r := NewRoom(1, testNow)
	r.MaxParticipants = 5
	r.Participants = []Participant{{UserID: "a", NumbersPurchased: []int{1}}}

	n, err := AssignNumber(r, fixedSource(2))
	if err != nil {
		t.Fatalf("unexpected err %v", err)
	}
	if n != 4 {
		t.Fatalf("got %d, want 4", n)
	}
}

func TestAssignNumber_FullRoom(t *testing.T) {
	_, err := AssignNumber(fullRoom(4), fixedSource(0))
	if !errors.Is(err, ErrRoomFull) {
		t.Fatalf("want ErrRoomFull, got %v", err)
	}
}

// Filling a room one join at a time never duplicates or leaves the range.
func TestAssignNumber_FillsRoomBijectively(t *testing.T) {
	src := NewSource(42)
	r := NewRoom(1, testNow)

	for i := 0; i < DefaultMaxParticipants; i++ {
		n, err := AssignNumber(r, src)
		if err != nil {
			t.Fatalf("join %d: %v", i, err)
		}
		_, r, err = Apply(r, joinCmd(fmt.Sprintf("u%d", i), n))
		if err != nil {
			t.Fatalf("join %d: %v", i, err)
		}
	}

	seen := map[int]bool{}
	for _, p := range r.Participants {
		for _, n := range p.NumbersPurchased {
			if n < 1 || n > DefaultMaxParticipants || seen[n] {
				t.Fatalf("bad number %d", n)
			}
			seen[n] = true
		}
	}
	if len(seen) != DefaultMaxParticipants {
		t.Fatalf("got %d distinct numbers", len(seen))
	}
	if _, err := AssignNumber(r, src); !errors.Is(err, ErrRoomFull) {
		t.Fatalf("want ErrRoomFull, got %v", err)
	}
}

func TestNewSource_Deterministic(t *testing.T) {
	a, b := NewSource(7), NewSource(7)
	for i := 0; i < 50; i++ {
		if a.IntN(200) != b.IntN(200) {
			t.Fatalf("sources with same seed diverged at %d", i)
		}
	}
}

func TestDrawWinningNumber_Range(t *testing.T) {
	r := NewRoom(1, testNow)
	src := NewSource(1)
	for i := 0; i < 500; i++ {
		n, err := DrawWinningNumber(r, src)
		if err != nil {
			t.Fatalf("unexpected err %v", err)
		}
		if n < 1 || n > r.MaxParticipants {
			t.Fatalf("out of range: %d", n)
		}
	}
}
