package lobby

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/spin-rooms-backend/internal/engine"
	"github.com/DoyleJ11/spin-rooms-backend/internal/metrics"
	"github.com/DoyleJ11/spin-rooms-backend/internal/notify"
	"github.com/DoyleJ11/spin-rooms-backend/internal/recording"
	"github.com/DoyleJ11/spin-rooms-backend/internal/store"
	"github.com/DoyleJ11/spin-rooms-backend/internal/users"
	"github.com/DoyleJ11/spin-rooms-backend/internal/wallet"
)

var ErrClosed = errors.New("room closed")
var ErrJoinInFlight = errors.New("join already in progress")

type Msg interface{ isLobbyMsg() }

type Subscribe struct {
	ClientID string
	Outbox   chan Snapshot // where this client wants to receive snapshots
}

func (Subscribe) isLobbyMsg() {}

type Unsubscribe struct{ ClientID string }

func (Unsubscribe) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

// PrimeTimer arms the spin countdown if the room is full and unfinished.
type PrimeTimer struct{}

func (PrimeTimer) isLobbyMsg() {}

type reserveSeat struct {
	UserID string
	Reply  chan reservation
}

func (reserveSeat) isLobbyMsg() {}

type commitSeat struct {
	Participant engine.Participant
	Reply       chan commitResult
}

func (commitSeat) isLobbyMsg() {}

type releaseSeat struct{ UserID string }

func (releaseSeat) isLobbyMsg() {}

type timerFired struct{ Gen int }

func (timerFired) isLobbyMsg() {}

type reservation struct {
	Existing *engine.Participant
	FeeCents int64
	Room     engine.Room
	Err      error
}

type commitResult struct {
	Participant engine.Participant
	Room        engine.Room
	Err         error
}

// Export fields
type Snapshot struct {
	Version int
	Room    engine.Room
	Timer   TimerState
}

type View struct {
	Version    int
	NumClients int
	Pending    int
	Room       engine.Room
	Timer      TimerState
}

// Deps are the collaborators a room actor works with.
type Deps struct {
	Store      store.Store
	Recordings recording.Log
	Users      users.Store
	Wallet     wallet.Wallet
	Notifier   notify.Sink
	Metrics    *metrics.Metrics
	Log        *zap.Logger

	Tickets engine.Source // ticket assignment
	Wheel   engine.Source // winning numbers

	Countdown    int           // seconds between spins
	Tick         time.Duration // length of one countdown second
	StoreTimeout time.Duration
	Now          func() time.Time
}

var ErrMissingDeps = errors.New("lobby: Store and Wallet are required")

func (d Deps) validate() error {
	if d.Store == nil || d.Wallet == nil {
		return ErrMissingDeps
	}
	return nil
}

func (d Deps) withDefaults() Deps {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Notifier == nil {
		d.Notifier = notify.Multi{}
	}
	if d.Users == nil || d.Recordings == nil {
		kv := store.NewMemoryKV()
		if d.Users == nil {
			d.Users = users.NewKVStore(kv)
		}
		if d.Recordings == nil {
			d.Recordings = recording.NewKVLog(kv)
		}
	}
	if d.Countdown <= 0 {
		d.Countdown = 7
	}
	if d.Tick <= 0 {
		d.Tick = time.Second
	}
	if d.StoreTimeout <= 0 {
		d.StoreTimeout = 5 * time.Second
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	seed := uint64(d.Now().UnixNano())
	if d.Tickets == nil {
		d.Tickets = engine.NewSource(seed)
	}
	if d.Wheel == nil {
		d.Wheel = engine.NewSource(seed + 1)
	}
	return d
}

// Lobby owns one room: every join, tick and spin for it runs on its goroutine.
type Lobby struct {
	id      int
	inbox   chan Msg
	room    engine.Room
	version int
	clients map[string]chan Snapshot
	pending map[string]struct{}

	timer    *spinTimer
	timerGen int
	clock    TimerState

	owedCredits   []owedCredit
	owedRecording *recording.Recording

	deps   Deps
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewLobby starts the actor for one room. deps.Store and deps.Wallet are
// required; every other collaborator has a default.
func NewLobby(parent context.Context, initial engine.Room, deps Deps) *Lobby {
	if err := deps.validate(); err != nil {
		panic(err)
	}
	ctx, cancel := context.WithCancel(parent)
	deps = deps.withDefaults()

	l := &Lobby{
		id:      initial.ID,
		inbox:   make(chan Msg, 64), // Small buffer
		room:    initial,
		version: 0,
		clients: make(map[string]chan Snapshot),
		pending: make(map[string]struct{}),
		clock:   TimerState{Phase: PhaseIdle},
		deps:    deps,
		log:     deps.Log.With(zap.Int("roomId", initial.ID)),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	if initial.Status == engine.StatusFinished {
		l.clock = TimerState{Phase: PhaseDone}
	}

	go l.loop()
	return l
}

func (l *Lobby) ID() int { return l.id }

// Expose the inbox so tests or WS layer can send messages.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

// Done is closed once the actor has stopped.
func (l *Lobby) Done() <-chan struct{} { return l.done }

func (l *Lobby) loop() {
	defer close(l.done)

	// a room persisted full but unfinished resumes its countdown
	l.armTimer()

	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Subscribe:
				// Register client + send current snapshot immediately
				l.clients[msg.ClientID] = msg.Outbox
				msg.Outbox <- l.snapshot()

			case Unsubscribe:
				delete(l.clients, msg.ClientID)

			case reserveSeat:
				msg.Reply <- l.reserve(msg.UserID)

			case releaseSeat:
				delete(l.pending, msg.UserID)

			case commitSeat:
				msg.Reply <- l.commit(msg.Participant)

			case PrimeTimer:
				l.armTimer()

			case timerFired:
				if l.timer == nil || msg.Gen != l.timer.gen {
					break // stale tick from a stopped timer
				}
				l.onTick()

			case GetState:
				// reflect internal state without data races
				msg.Reply <- View{
					Version:    l.version,
					NumClients: len(l.clients),
					Pending:    len(l.pending),
					Room:       l.room,
					Timer:      l.clock,
				}

			case Shutdown:
				l.shutdown()
				return
			}
		}
	}
}

func (l *Lobby) shutdown() {
	if l.owesWrites() {
		l.log.Warn("stopping with unsettled writes",
			zap.Int("credits", len(l.owedCredits)),
			zap.Bool("recording", l.owedRecording != nil),
		)
	}
	l.stopTimer()
	for id, ch := range l.clients {
		close(ch) // Tell client no more snapshots
		delete(l.clients, id)
	}
	l.cancel()
}

func (l *Lobby) snapshot() Snapshot {
	return Snapshot{Version: l.version, Room: l.room, Timer: l.clock}
}

func (l *Lobby) publish() {
	l.version++
	l.broadcast(l.snapshot())
}

func (l *Lobby) broadcast(snap Snapshot) {
	for id, ch := range l.clients {
		select {
		case ch <- snap:
			//ok
		default:
			// Client is slow/full - drop them.
			close(ch)
			delete(l.clients, id)
		}
	}
}

// reserve holds a seat for userID while its payment is in flight. Capacity
// counts pending seats, so a fee is never charged for a seat that cannot exist.
func (l *Lobby) reserve(userID string) reservation {
	if p, ok := engine.FindParticipant(l.room, userID); ok {
		return reservation{Existing: &p, Room: l.room}
	}
	if _, ok := l.pending[userID]; ok {
		return reservation{Err: ErrJoinInFlight}
	}
	if err := engine.CanJoin(l.room, userID); err != nil {
		return reservation{Err: err}
	}
	if len(l.room.Participants)+len(l.pending) >= l.room.MaxParticipants {
		return reservation{Err: engine.ErrRoomFull}
	}
	l.pending[userID] = struct{}{}
	return reservation{FeeCents: l.room.EntryFeeCents, Room: l.room}
}

func (l *Lobby) commit(p engine.Participant) commitResult {
	if _, ok := l.pending[p.UserID]; !ok {
		return commitResult{Err: errors.New("no seat reserved for user " + p.UserID)}
	}
	delete(l.pending, p.UserID)

	n, err := engine.AssignNumber(l.room, l.deps.Tickets)
	if err != nil {
		return commitResult{Err: err}
	}
	p.NumbersPurchased = []int{n}

	events, next, err := engine.Apply(l.room, engine.Command{Type: engine.CmdJoin, Participant: p})
	if err != nil {
		return commitResult{Err: err}
	}
	if err := l.persist(next); err != nil {
		return commitResult{Err: err}
	}
	l.room = next
	l.publish()

	if engine.ContainsEvent(events, engine.EvtRoomFilled) {
		l.log.Info("room filled", zap.Int("participants", len(next.Participants)))
		l.armTimer()
	}
	return commitResult{Participant: p, Room: next}
}

func (l *Lobby) persist(r engine.Room) error {
	ctx, cancel := context.WithTimeout(l.ctx, l.deps.StoreTimeout)
	defer cancel()
	return l.deps.Store.Update(ctx, r)
}
