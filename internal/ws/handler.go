package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/spin-rooms-backend/internal/hub"
	"github.com/DoyleJ11/spin-rooms-backend/internal/lobby"
	"github.com/DoyleJ11/spin-rooms-backend/internal/types"
)

// Handler streams room snapshots to a client and accepts Join and GetState
// messages from it.
func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(r.URL.Query().Get("room"))
		if err != nil {
			http.Error(w, "missing or bad room", http.StatusBadRequest)
			return
		}

		lb, err := h.Get(r.Context(), id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		if lb == nil {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		clientID := uuid.NewString()
		log := log.With(zap.Int("roomId", id), zap.String("clientId", clientID))
		out := make(chan lobby.Snapshot, 8)

		select {
		case lb.Inbox() <- lobby.Subscribe{ClientID: clientID, Outbox: out}:
		case <-lb.Done():
			conn.Close(websocket.StatusGoingAway, "room closed")
			return
		}
		defer func() {
			select {
			case lb.Inbox() <- lobby.Unsubscribe{ClientID: clientID}:
			case <-lb.Done():
			}
		}()

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for {
				select {
				case snap, ok := <-out:
					if !ok {
						// dropped as a slow client, or the room shut down
						conn.Close(websocket.StatusGoingAway, "stream ended")
						return
					}
					view := types.FromSnapshot(snap)
					if err := write(writeCtx, conn, types.ServerMessage{Type: "RoomSnapshot", Room: &view}); err != nil {
						log.Debug("write snapshot", zap.Error(err))
					}
				case <-writeCtx.Done():
					return
				}
			}
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					log.Debug("read", zap.Error(err))
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				_ = write(r.Context(), conn, types.ServerMessage{Type: "Error", Error: "bad json"})
				continue
			}
			_ = write(r.Context(), conn, handle(r.Context(), lb, cm))
		}
	}
}

func handle(ctx context.Context, lb *lobby.Lobby, cm types.ClientMessage) types.ServerMessage {
	switch cm.Type {
	case "Join":
		res, err := lb.Join(ctx, lobby.JoinRequest{UserID: cm.UserID, Name: cm.Name})
		if err != nil {
			return types.ServerMessage{Type: "Error", Error: err.Error()}
		}
		view, err := lb.State(ctx)
		if err != nil {
			return types.ServerMessage{Type: "Error", Error: err.Error()}
		}
		resp := types.FromJoin(res, types.FromView(view))
		return types.ServerMessage{Type: "Joined", Join: &resp}

	case "GetState":
		view, err := lb.State(ctx)
		if err != nil {
			return types.ServerMessage{Type: "Error", Error: err.Error()}
		}
		snap := types.FromView(view)
		return types.ServerMessage{Type: "RoomSnapshot", Room: &snap}

	default:
		return types.ServerMessage{Type: "Error", Error: "unknown type"}
	}
}

func write(ctx context.Context, conn *websocket.Conn, msg types.ServerMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, payload)
}
