package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/spin-rooms-backend/internal/ws"
)

func SetupRoutes(api API) http.Handler {
	if api.Log == nil {
		api.Log = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/healthz", Healthz)
	r.Get("/rooms", ListRooms(api))
	r.Get("/rooms/{id}", GetRoom(api))
	r.Post("/rooms/{id}/join", JoinRoom(api))
	r.Get("/recordings", ListRecordings(api))
	r.Get("/users/{id}", GetUser(api))
	r.Get("/ws", ws.Handler(api.Hub, api.Log))
	return r
}
