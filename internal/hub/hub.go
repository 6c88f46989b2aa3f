package hub

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/DoyleJ11/spin-rooms-backend/internal/lobby"
)

type HubMsg interface{ isHubMsg() }

type GetRoom struct {
	ID    int
	Reply chan *lobby.Lobby
}

type ListRooms struct {
	Reply chan []*lobby.Lobby
}

type ShutdownHub struct{}

func (GetRoom) isHubMsg()     {}
func (ListRooms) isHubMsg()   {}
func (ShutdownHub) isHubMsg() {}

// Hub owns one lobby per persisted room.
type Hub struct {
	inbox   chan HubMsg
	lobbies map[int]*lobby.Lobby
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewHub loads every room from deps.Store and starts its lobby. Rooms that
// were persisted full and unfinished resume their countdown.
func NewHub(parent context.Context, deps lobby.Deps) (*Hub, error) {
	if deps.Store == nil || deps.Wallet == nil {
		return nil, lobby.ErrMissingDeps
	}
	rooms, err := deps.Store.Load(parent)
	if err != nil {
		return nil, fmt.Errorf("load rooms: %w", err)
	}

	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		lobbies: make(map[int]*lobby.Lobby, len(rooms)),
		log:     log.Named("hub"),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	for _, r := range rooms {
		h.lobbies[r.ID] = lobby.NewLobby(ctx, r, deps)
	}
	h.log.Info("rooms loaded", zap.Int("rooms", len(rooms)))

	go h.loop()
	return h, nil
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Done is closed once the hub and all of its lobbies have stopped.
func (h *Hub) Done() <-chan struct{} { return h.done }

// Get returns the lobby for a room id, or nil when there is none.
func (h *Hub) Get(ctx context.Context, id int) (*lobby.Lobby, error) {
	reply := make(chan *lobby.Lobby, 1)
	if err := h.send(ctx, GetRoom{ID: id, Reply: reply}); err != nil {
		return nil, err
	}
	select {
	case lb := <-reply:
		return lb, nil
	case <-h.done:
		return nil, lobby.ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// List returns every lobby ordered by room id.
func (h *Hub) List(ctx context.Context) ([]*lobby.Lobby, error) {
	reply := make(chan []*lobby.Lobby, 1)
	if err := h.send(ctx, ListRooms{Reply: reply}); err != nil {
		return nil, err
	}
	select {
	case lbs := <-reply:
		return lbs, nil
	case <-h.done:
		return nil, lobby.ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Hub) send(ctx context.Context, m HubMsg) error {
	select {
	case h.inbox <- m:
		return nil
	case <-h.ctx.Done():
		return lobby.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) loop() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case GetRoom:
				msg.Reply <- h.lobbies[msg.ID] // May be nil

			case ListRooms:
				lbs := make([]*lobby.Lobby, 0, len(h.lobbies))
				for _, lb := range h.lobbies {
					lbs = append(lbs, lb)
				}
				sort.Slice(lbs, func(i, j int) bool { return lbs[i].ID() < lbs[j].ID() })
				msg.Reply <- lbs

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

// shutdown stops every lobby and waits for them to exit.
func (h *Hub) shutdown() {
	for _, lb := range h.lobbies {
		select {
		case lb.Inbox() <- lobby.Shutdown{}:
		case <-lb.Done():
		}
	}
	for id, lb := range h.lobbies {
		<-lb.Done()
		delete(h.lobbies, id)
	}
	h.cancel()
	h.log.Info("hub stopped")
}
