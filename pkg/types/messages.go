package types

import "github.com/DoyleJ11/spin-rooms-backend/internal/engine"

// HTTP
//
// POST /rooms/{id}/join
//   request:  JoinRequest
//   response: JoinResponse (200), ErrorResponse otherwise
//     400 bad json / missing userId
//     402 payment failed
//     404 room not found
//     409 room full | room finished | join in flight
//
// GET /rooms            -> []RoomSnapshot
// GET /rooms/{id}       -> RoomSnapshot
// GET /recordings       -> []recording.Recording
// GET /users/{id}       -> users.User

type JoinRequest struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
}

type JoinResponse struct {
	RoomID          int                `json:"roomId"`
	Number          int                `json:"number"`
	Existing        bool               `json:"existing"`
	TransactionHash string             `json:"transactionHash,omitempty"`
	Participant     engine.Participant `json:"participant"`
	Room            RoomSnapshot       `json:"room"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
