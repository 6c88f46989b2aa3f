package types

import (
	"github.com/DoyleJ11/spin-rooms-backend/internal/engine"
	"github.com/DoyleJ11/spin-rooms-backend/internal/lobby"
	wire "github.com/DoyleJ11/spin-rooms-backend/pkg/types"
)

// ClientMessage is what a WebSocket client may send.
type ClientMessage struct {
	Type   string `json:"type"` // "Join" | "GetState"
	UserID string `json:"userId,omitempty"`
	Name   string `json:"name,omitempty"`
}

type ServerMessage struct {
	Type  string             `json:"type"` // "RoomSnapshot" | "Joined" | "Error"
	Room  *wire.RoomSnapshot `json:"room,omitempty"`
	Join  *wire.JoinResponse `json:"join,omitempty"`
	Error string             `json:"error,omitempty"`
}

func FromSnapshot(s lobby.Snapshot) wire.RoomSnapshot {
	return wire.RoomSnapshot{
		Version:           s.Version,
		Room:              s.Room,
		Phase:             string(s.Timer.Phase),
		SecondsLeft:       s.Timer.SecondsLeft,
		NumbersLeft:       len(engine.AvailableNumbers(s.Room)),
		CurrentPrizeCents: engine.CurrentPrize(s.Room),
	}
}

func FromView(v lobby.View) wire.RoomSnapshot {
	return FromSnapshot(lobby.Snapshot{Version: v.Version, Room: v.Room, Timer: v.Timer})
}

func FromJoin(res lobby.JoinResult, view wire.RoomSnapshot) wire.JoinResponse {
	out := wire.JoinResponse{
		RoomID:          res.Room.ID,
		Existing:        res.Existing,
		TransactionHash: res.Participant.TransactionHash,
		Participant:     res.Participant,
		Room:            view,
	}
	if len(res.Participant.NumbersPurchased) > 0 {
		out.Number = res.Participant.NumbersPurchased[0]
	}
	return out
}
