package engine

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

var testNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

// fullRoom returns a room where participant user-N owns number N.
func fullRoom(max int) Room {
	r := NewRoom(1, testNow)
	r.MaxParticipants = max
	for i := 1; i <= max; i++ {
		r.Participants = append(r.Participants, Participant{
			UserID:           fmt.Sprintf("user-%d", i),
			Name:             fmt.Sprintf("User %d", i),
			WalletAddress:    fmt.Sprintf("0x%040d", i),
			NumbersPurchased: []int{i},
			TransactionHash:  fmt.Sprintf("0xtx%d", i),
		})
		r.PrizePoolCents += r.EntryFeeCents
	}
	return r
}

func joinCmd(userID string, number int) Command {
	return Command{Type: CmdJoin, Participant: Participant{
		UserID:           userID,
		Name:             userID,
		NumbersPurchased: []int{number},
		TransactionHash:  "0xabc",
	}}
}

func TestJoinIsRejected(t *testing.T) {
	finished := fullRoom(3)
	finished.Status = StatusFinished

	partial := NewRoom(1, testNow)
	partial.Participants = []Participant{{UserID: "alice", NumbersPurchased: []int{7}}}

	cases := []struct {
		name    string
		setup   Room
		cmd     Command
		wantErr error
	}{
		{
			name:    "room full",
			setup:   fullRoom(3),
			cmd:     joinCmd("late", 1),
			wantErr: ErrRoomFull,
		},
		{
			name:    "room finished",
			setup:   finished,
			cmd:     joinCmd("late", 1),
			wantErr: ErrRoomFinished,
		},
		{
			name:    "same user twice",
			setup:   partial,
			cmd:     joinCmd("alice", 8),
			wantErr: ErrAlreadyJoined,
		},
		{
			name:    "number already claimed",
			setup:   partial,
			cmd:     joinCmd("bob", 7),
			wantErr: ErrNumberTaken,
		},
		{
			name:    "number above range",
			setup:   partial,
			cmd:     joinCmd("bob", 201),
			wantErr: ErrNumberOutOfRange,
		},
		{
			name:    "number zero",
			setup:   partial,
			cmd:     joinCmd("bob", 0),
			wantErr: ErrNumberOutOfRange,
		},
		{
			name:    "no numbers",
			setup:   partial,
			cmd:     Command{Type: CmdJoin, Participant: Participant{UserID: "bob"}},
			wantErr: ErrInvalidParticipant,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, got, err := Apply(tc.setup, tc.cmd)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("want %v, got %v", tc.wantErr, err)
			}
			if len(got.Participants) != len(tc.setup.Participants) {
				t.Fatalf("participants changed on rejected join")
			}
		})
	}
}

func TestJoin_AddsParticipantAndFee(t *testing.T) {
	r := NewRoom(4, testNow)

	events, next, err := Apply(r, joinCmd("alice", 42))
	if err != nil {
		t.Fatalf("unexpected err %v", err)
	}
	if len(next.Participants) != 1 || next.Participants[0].NumbersPurchased[0] != 42 {
		t.Fatalf("participant not added: %+v", next.Participants)
	}
	if next.PrizePoolCents != DefaultEntryFeeCents {
		t.Fatalf("prize pool: got %d, want %d", next.PrizePoolCents, DefaultEntryFeeCents)
	}
	if !ContainsEvent(events, EvtParticipantJoined) || ContainsEvent(events, EvtRoomFilled) {
		t.Fatalf("unexpected events %+v", events)
	}
	if len(r.Participants) != 0 {
		t.Fatalf("input room was mutated")
	}
}

func TestJoin_LastSeatEmitsRoomFilled(t *testing.T) {
	r := fullRoom(3)
	r.Participants = r.Participants[:2]

	events, next, err := Apply(r, joinCmd("user-3", 3))
	if err != nil {
		t.Fatalf("unexpected err %v", err)
	}
	if !IsFull(next) {
		t.Fatalf("room should be full")
	}
	if !ContainsEvent(events, EvtRoomFilled) {
		t.Fatalf("expected EvtRoomFilled")
	}
}

func TestSpin_FirstSpinPaysFirstPrize(t *testing.T) {
	r := fullRoom(DefaultMaxParticipants)

	events, next, err := Apply(r, Command{Type: CmdSpin, WinningNumber: 37, At: testNow})
	if err != nil {
		t.Fatalf("unexpected err %v", err)
	}
	if next.CurrentSpin != 1 {
		t.Fatalf("currentSpin: got %d, want 1", next.CurrentSpin)
	}
	if next.Status == StatusFinished {
		t.Fatalf("room finished after one spin")
	}
	if len(next.Results) != 1 {
		t.Fatalf("results: got %d, want 1", len(next.Results))
	}
	res := next.Results[0]
	if res.Spin != 1 || res.WinningNumber != 37 || res.AmountCents != 1000 || res.Winner.UserID != "user-37" {
		t.Fatalf("unexpected result %+v", res)
	}
	if next.LastWinner == nil || next.LastWinner.UserID != "user-37" {
		t.Fatalf("lastWinner not set: %+v", next.LastWinner)
	}
	if ContainsEvent(events, EvtRoomFinished) {
		t.Fatalf("unexpected EvtRoomFinished")
	}
	if len(r.Results) != 0 || r.CurrentSpin != 0 {
		t.Fatalf("input room was mutated")
	}
}

func TestSpin_ThirdSpinFinishes(t *testing.T) {
	r := fullRoom(DefaultMaxParticipants)
	numbers := []int{5, 6, 7}
	var events []Event
	var err error
	for _, n := range numbers {
		events, r, err = Apply(r, Command{Type: CmdSpin, WinningNumber: n, At: testNow})
		if err != nil {
			t.Fatalf("spin %d: unexpected err %v", n, err)
		}
	}

	if r.Status != StatusFinished || r.CurrentSpin != r.TotalSpins {
		t.Fatalf("want finished with currentSpin=%d, got %s/%d", r.TotalSpins, r.Status, r.CurrentSpin)
	}
	if len(r.Results) != r.TotalSpins {
		t.Fatalf("results: got %d, want %d", len(r.Results), r.TotalSpins)
	}
	if r.Results[2].AmountCents != 5000 {
		t.Fatalf("third prize: got %d", r.Results[2].AmountCents)
	}
	if !ContainsEvent(events, EvtRoomFinished) {
		t.Fatalf("expected EvtRoomFinished")
	}

	_, _, err = Apply(r, Command{Type: CmdSpin, WinningNumber: 1})
	if !errors.Is(err, ErrRoomFinished) {
		t.Fatalf("want ErrRoomFinished on fourth spin, got %v", err)
	}
}

func TestSpinIsRejected(t *testing.T) {
	notFull := fullRoom(3)
	notFull.Participants = notFull.Participants[:2]

	gap := fullRoom(3)
	gap.Participants[2].NumbersPurchased = []int{2}
	gap.Participants[1].NumbersPurchased = []int{1}
	gap.Participants[0].NumbersPurchased = []int{1}

	cases := []struct {
		name    string
		setup   Room
		number  int
		wantErr error
	}{
		{name: "room not full", setup: notFull, number: 1, wantErr: ErrRoomNotFull},
		{name: "number out of range", setup: fullRoom(3), number: 4, wantErr: ErrNumberOutOfRange},
		{name: "unowned number", setup: gap, number: 3, wantErr: ErrNoWinner},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Apply(tc.setup, Command{Type: CmdSpin, WinningNumber: tc.number})
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("want %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestFinishedIffAllSpinsPaid(t *testing.T) {
	r := fullRoom(10)
	for spin := 0; spin < r.TotalSpins; spin++ {
		if r.Status == StatusFinished {
			t.Fatalf("finished early at spin %d", spin)
		}
		var err error
		_, r, err = Apply(r, Command{Type: CmdSpin, WinningNumber: spin + 1})
		if err != nil {
			t.Fatalf("unexpected err %v", err)
		}
		if (r.Status == StatusFinished) != (r.CurrentSpin == r.TotalSpins) {
			t.Fatalf("status %s with currentSpin %d", r.Status, r.CurrentSpin)
		}
	}
}

func TestUnsupportedCommand(t *testing.T) {
	_, _, err := Apply(NewRoom(1, testNow), Command{Type: "Bogus"})
	if !errors.Is(err, ErrUnsupportedCommand) {
		t.Fatalf("want ErrUnsupportedCommand, got %v", err)
	}
}

func TestDefaultRooms(t *testing.T) {
	rooms := DefaultRooms(testNow)
	if len(rooms) != DefaultRoomCount {
		t.Fatalf("got %d rooms", len(rooms))
	}
	for i, r := range rooms {
		if r.ID != i+1 || r.Status != StatusWaiting || r.TotalSpins != 3 || len(r.PrizesCents) != 3 {
			t.Fatalf("unexpected default room %+v", r)
		}
	}
	rooms[0].PrizesCents[0] = 1
	if PrizeSchedule[0] != 1000 {
		t.Fatalf("default rooms share the prize schedule slice")
	}
}

func TestCurrentPrize_FollowsSchedule(t *testing.T) {
	r := fullRoom(3)
	want := []int64{1000, 1000, 5000, 0}
	for spin, prize := range want {
		if got := CurrentPrize(r); got != prize {
			t.Fatalf("before spin %d: got %d, want %d", spin+1, got, prize)
		}
		if spin < r.TotalSpins {
			var err error
			_, r, err = Apply(r, Command{Type: CmdSpin, WinningNumber: spin + 1})
			if err != nil {
				t.Fatalf("unexpected err %v", err)
			}
		}
	}
}
