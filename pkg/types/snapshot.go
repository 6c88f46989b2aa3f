package types

import "github.com/DoyleJ11/spin-rooms-backend/internal/engine"

// RoomSnapshot:
//
//	version: number              // bumps on every broadcast of the room
//	room: Room                    // participants, results, prize pool, status
//	phase: "idle" | "counting" | "spinning" | "done"
//	secondsLeft: number           // until the next spin while counting
//	numbersLeft: number           // free ticket numbers
//	currentPrizeCents: number     // payout of the next spin, 0 when finished
type RoomSnapshot struct {
	Version           int         `json:"version"`
	Room              engine.Room `json:"room"`
	Phase             string      `json:"phase"`
	SecondsLeft       int         `json:"secondsLeft"`
	NumbersLeft       int         `json:"numbersLeft"`
	CurrentPrizeCents int64       `json:"currentPrizeCents"`
}
