package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/spin-rooms-backend/internal/engine"
	"github.com/DoyleJ11/spin-rooms-backend/internal/hub"
	"github.com/DoyleJ11/spin-rooms-backend/internal/lobby"
	"github.com/DoyleJ11/spin-rooms-backend/internal/recording"
	"github.com/DoyleJ11/spin-rooms-backend/internal/store"
	"github.com/DoyleJ11/spin-rooms-backend/internal/types"
	"github.com/DoyleJ11/spin-rooms-backend/internal/users"
	"github.com/DoyleJ11/spin-rooms-backend/internal/wallet"
	wire "github.com/DoyleJ11/spin-rooms-backend/pkg/types"
)

var errRoomNotFound = errors.New("room not found")

// API holds what the HTTP handlers read from.
type API struct {
	Hub        *hub.Hub
	Recordings recording.Log
	Users      users.Store
	Log        *zap.Logger
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func ListRooms(api API) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lbs, err := api.Hub.List(r.Context())
		if err != nil {
			writeError(w, api.Log, err)
			return
		}
		out := make([]wire.RoomSnapshot, 0, len(lbs))
		for _, lb := range lbs {
			v, err := lb.State(r.Context())
			if err != nil {
				writeError(w, api.Log, err)
				return
			}
			out = append(out, types.FromView(v))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func GetRoom(api API) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lb, err := roomFromPath(api, r)
		if err != nil {
			writeError(w, api.Log, err)
			return
		}
		v, err := lb.State(r.Context())
		if err != nil {
			writeError(w, api.Log, err)
			return
		}
		writeJSON(w, http.StatusOK, types.FromView(v))
	}
}

func JoinRoom(api API) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lb, err := roomFromPath(api, r)
		if err != nil {
			writeError(w, api.Log, err)
			return
		}

		var req wire.JoinRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, wire.ErrorResponse{Error: "bad json"})
			return
		}
		if req.UserID == "" {
			writeJSON(w, http.StatusBadRequest, wire.ErrorResponse{Error: "userId required"})
			return
		}

		res, err := lb.Join(r.Context(), lobby.JoinRequest{UserID: req.UserID, Name: req.Name})
		if err != nil {
			writeError(w, api.Log, err)
			return
		}
		v, err := lb.State(r.Context())
		if err != nil {
			writeError(w, api.Log, err)
			return
		}
		writeJSON(w, http.StatusOK, types.FromJoin(res, types.FromView(v)))
	}
}

func ListRecordings(api API) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recs, err := api.Recordings.List(r.Context())
		if err != nil {
			writeError(w, api.Log, err)
			return
		}
		if recs == nil {
			recs = []recording.Recording{}
		}
		writeJSON(w, http.StatusOK, recs)
	}
}

func GetUser(api API) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := api.Users.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, api.Log, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}

func roomFromPath(api API, r *http.Request) (*lobby.Lobby, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		return nil, errRoomNotFound
	}
	lb, err := api.Hub.Get(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if lb == nil {
		return nil, errRoomNotFound
	}
	return lb, nil
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errRoomNotFound),
		errors.Is(err, store.ErrRoomNotFound),
		errors.Is(err, users.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrInvalidParticipant):
		return http.StatusBadRequest
	case errors.Is(err, wallet.ErrPaymentFailed),
		errors.Is(err, wallet.ErrNotConnected):
		return http.StatusPaymentRequired
	case errors.Is(err, engine.ErrRoomFull),
		errors.Is(err, engine.ErrRoomFinished),
		errors.Is(err, engine.ErrAlreadyJoined),
		errors.Is(err, lobby.ErrJoinInFlight):
		return http.StatusConflict
	case errors.Is(err, lobby.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		if log != nil {
			log.Error("request failed", zap.Error(err))
		}
		msg = "internal error"
	}
	writeJSON(w, status, wire.ErrorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
