package engine

import (
	"errors"
	"slices"
	"time"
)

var ErrRoomFull = errors.New("room full")
var ErrRoomFinished = errors.New("room already finished")
var ErrRoomNotFull = errors.New("room not full")
var ErrAlreadyJoined = errors.New("user already joined")
var ErrNumberTaken = errors.New("number already taken")
var ErrNumberOutOfRange = errors.New("number out of range")
var ErrNoWinner = errors.New("no participant owns winning number")
var ErrInvalidParticipant = errors.New("invalid participant")
var ErrUnsupportedCommand = errors.New("unsupported command")

type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusSpinning Status = "spinning"
	StatusFinished Status = "finished"
)

type Participant struct {
	UserID           string `json:"userId"`
	Name             string `json:"name"`
	WalletAddress    string `json:"walletAddress"`
	NumbersPurchased []int  `json:"numbersPurchased"`
	TransactionHash  string `json:"transactionHash"`
}

type SpinResult struct {
	Spin          int         `json:"spin"`
	Winner        Participant `json:"winner"`
	WinningNumber int         `json:"winningNumber"`
	AmountCents   int64       `json:"amountCents"`
	Date          time.Time   `json:"date"`
}

type Room struct {
	ID              int           `json:"id"`
	Participants    []Participant `json:"participants"`
	Status          Status        `json:"status"`
	MaxParticipants int           `json:"maxParticipants"`
	EntryFeeCents   int64         `json:"entryFeeCents"`
	PrizePoolCents  int64         `json:"prizePoolCents"`
	CurrentSpin     int           `json:"currentSpin"`
	TotalSpins      int           `json:"totalSpins"`
	CreatedAt       time.Time     `json:"createdAt"`
	Results         []SpinResult  `json:"results"`
	PrizesCents     []int64       `json:"prizesCents"`
	LastWinner      *Participant  `json:"lastWinner,omitempty"`
}

type CommandType string

const (
	CmdJoin CommandType = "Join"
	CmdSpin CommandType = "Spin"
)

/*
	CmdJoin -> EvtParticipantJoined -> EvtRoomFilled (when the last seat is taken)
	CmdSpin -> EvtSpinResolved -> EvtRoomFinished (when the last spin is paid)
*/

type Command struct {
	Type          CommandType
	Participant   Participant
	WinningNumber int
	At            time.Time
}

type EventType string

const (
	EvtParticipantJoined EventType = "ParticipantJoined"
	EvtRoomFilled        EventType = "RoomFilled"
	EvtSpinResolved      EventType = "SpinResolved"
	EvtRoomFinished      EventType = "RoomFinished"
)

type Event struct {
	Type          EventType
	UserID        string
	Number        int
	Spin          int
	AmountCents   int64
	WinningNumber int
}

// Apply validates cmd against r and returns the resulting events and room.
// The input room is never modified; on error it is returned unchanged.
func Apply(r Room, cmd Command) ([]Event, Room, error) {
	if r.Status == StatusFinished {
		return nil, r, ErrRoomFinished
	}

	switch cmd.Type {
	case CmdJoin:
		p := cmd.Participant
		if err := CanJoin(r, p.UserID); err != nil {
			return nil, r, err
		}
		if len(p.NumbersPurchased) == 0 {
			return nil, r, ErrInvalidParticipant
		}
		taken := claimedNumbers(r)
		for _, n := range p.NumbersPurchased {
			if n < 1 || n > r.MaxParticipants {
				return nil, r, ErrNumberOutOfRange
			}
			if taken[n] {
				return nil, r, ErrNumberTaken
			}
			taken[n] = true
		}

		newRoom := Clone(r)
		p.NumbersPurchased = slices.Clone(p.NumbersPurchased)
		newRoom.Participants = append(newRoom.Participants, p)
		newRoom.PrizePoolCents += r.EntryFeeCents

		events := []Event{{Type: EvtParticipantJoined, UserID: p.UserID, Number: p.NumbersPurchased[0]}}
		if IsFull(newRoom) {
			events = append(events, Event{Type: EvtRoomFilled})
		}
		return events, newRoom, nil

	case CmdSpin:
		if !IsFull(r) {
			return nil, r, ErrRoomNotFull
		}
		if r.CurrentSpin >= r.TotalSpins || r.CurrentSpin >= len(r.PrizesCents) {
			return nil, r, ErrRoomFinished
		}
		if cmd.WinningNumber < 1 || cmd.WinningNumber > r.MaxParticipants {
			return nil, r, ErrNumberOutOfRange
		}
		winner, ok := FindOwner(r, cmd.WinningNumber)
		if !ok {
			return nil, r, ErrNoWinner
		}

		amount := r.PrizesCents[r.CurrentSpin]
		newRoom := Clone(r)
		newRoom.Results = append(newRoom.Results, SpinResult{
			Spin:          r.CurrentSpin + 1,
			Winner:        winner,
			WinningNumber: cmd.WinningNumber,
			AmountCents:   amount,
			Date:          cmd.At,
		})
		newRoom.CurrentSpin++
		newRoom.LastWinner = &winner

		events := []Event{{
			Type:          EvtSpinResolved,
			UserID:        winner.UserID,
			Spin:          newRoom.CurrentSpin,
			AmountCents:   amount,
			WinningNumber: cmd.WinningNumber,
		}}
		if newRoom.CurrentSpin >= newRoom.TotalSpins {
			newRoom.Status = StatusFinished
			events = append(events, Event{Type: EvtRoomFinished})
		} else {
			newRoom.Status = StatusSpinning
		}
		return events, newRoom, nil

	default:
		return nil, r, ErrUnsupportedCommand
	}
}

// CanJoin reports whether userID may be charged for a seat in r.
func CanJoin(r Room, userID string) error {
	if userID == "" {
		return ErrInvalidParticipant
	}
	if r.Status == StatusFinished {
		return ErrRoomFinished
	}
	if _, ok := FindParticipant(r, userID); ok {
		return ErrAlreadyJoined
	}
	if IsFull(r) {
		return ErrRoomFull
	}
	return nil
}

func IsFull(r Room) bool {
	return len(r.Participants) >= r.MaxParticipants
}

func FindParticipant(r Room, userID string) (Participant, bool) {
	for _, p := range r.Participants {
		if p.UserID == userID {
			return p, true
		}
	}
	return Participant{}, false
}

func FindOwner(r Room, number int) (Participant, bool) {
	for _, p := range r.Participants {
		if slices.Contains(p.NumbersPurchased, number) {
			return p, true
		}
	}
	return Participant{}, false
}

func claimedNumbers(r Room) map[int]bool {
	taken := make(map[int]bool, r.MaxParticipants)
	for _, p := range r.Participants {
		for _, n := range p.NumbersPurchased {
			taken[n] = true
		}
	}
	return taken
}
