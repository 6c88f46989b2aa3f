package engine

import (
	"slices"
	"time"
)

const (
	DefaultMaxParticipants = 200
	DefaultTotalSpins      = 3
	DefaultEntryFeeCents   = 50
	DefaultRoomCount       = 10
)

func NewRoom(id int, createdAt time.Time) Room {
	return Room{
		ID:              id,
		Participants:    []Participant{},
		Status:          StatusWaiting,
		MaxParticipants: DefaultMaxParticipants,
		EntryFeeCents:   DefaultEntryFeeCents,
		CurrentSpin:     0,
		TotalSpins:      DefaultTotalSpins,
		CreatedAt:       createdAt,
		Results:         []SpinResult{},
		PrizesCents:     slices.Clone(PrizeSchedule),
	}
}

// DefaultRooms returns the rooms seeded into an empty store, ids 1..DefaultRoomCount.
func DefaultRooms(createdAt time.Time) []Room {
	rooms := make([]Room, 0, DefaultRoomCount)
	for i := 0; i < DefaultRoomCount; i++ {
		rooms = append(rooms, NewRoom(i+1, createdAt))
	}
	return rooms
}

// Clone deep-copies r so callers can mutate the result freely.
func Clone(r Room) Room {
	c := r
	c.Participants = make([]Participant, len(r.Participants))
	for i, p := range r.Participants {
		p.NumbersPurchased = slices.Clone(p.NumbersPurchased)
		c.Participants[i] = p
	}
	c.Results = slices.Clone(r.Results)
	c.PrizesCents = slices.Clone(r.PrizesCents)
	if r.LastWinner != nil {
		w := *r.LastWinner
		w.NumbersPurchased = slices.Clone(w.NumbersPurchased)
		c.LastWinner = &w
	}
	return c
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

// CurrentPrize is the payout of the next spin, or 0 once every spin is paid.
func CurrentPrize(r Room) int64 {
	if r.CurrentSpin >= len(r.PrizesCents) || r.CurrentSpin >= r.TotalSpins {
		return 0
	}
	return r.PrizesCents[r.CurrentSpin]
}
