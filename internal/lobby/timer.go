package lobby

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/spin-rooms-backend/internal/engine"
	"github.com/DoyleJ11/spin-rooms-backend/internal/recording"
)

type TimerPhase string

const (
	PhaseIdle     TimerPhase = "idle"
	PhaseCounting TimerPhase = "counting"
	PhaseSpinning TimerPhase = "spinning"
	PhaseDone     TimerPhase = "done"
)

type TimerState struct {
	Phase       TimerPhase `json:"phase"`
	SecondsLeft int        `json:"secondsLeft"`
}

// spinTimer is the single running countdown of a lobby. Each one carries a
// generation so ticks still queued after stop are recognised and dropped.
type spinTimer struct {
	gen  int
	stop chan struct{}
}

// armTimer starts counting down when the room is full and unfinished.
// It is a no-op while a timer is already running.
func (l *Lobby) armTimer() {
	if l.timer != nil || l.room.Status == engine.StatusFinished || !engine.IsFull(l.room) {
		return
	}

	l.timerGen++
	t := &spinTimer{gen: l.timerGen, stop: make(chan struct{})}
	l.timer = t
	l.clock = TimerState{Phase: PhaseCounting, SecondsLeft: l.deps.Countdown}
	l.deps.Metrics.TimerStarted()
	l.publish()

	go func() {
		ticker := time.NewTicker(l.deps.Tick)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				select {
				case l.inbox <- timerFired{Gen: t.gen}:
				case <-t.stop:
					return
				case <-l.ctx.Done():
					return
				}
			case <-t.stop:
				return
			case <-l.ctx.Done():
				return
			}
		}
	}()
}

func (l *Lobby) stopTimer() {
	if l.timer == nil {
		return
	}
	close(l.timer.stop)
	l.timer = nil
	l.deps.Metrics.TimerStopped()
}

func (l *Lobby) onTick() {
	l.settle()
	if l.clock.Phase != PhaseCounting {
		// a finished room keeps ticking only to retry what it still owes
		if !l.owesWrites() {
			l.stopTimer()
		}
		return
	}
	if l.clock.SecondsLeft > 1 {
		l.clock.SecondsLeft--
		l.publish()
		return
	}

	l.clock = TimerState{Phase: PhaseSpinning}
	l.publish()

	l.spin()

	if l.room.Status == engine.StatusFinished {
		l.clock = TimerState{Phase: PhaseDone}
		if !l.owesWrites() {
			l.stopTimer()
		}
	} else {
		l.clock = TimerState{Phase: PhaseCounting, SecondsLeft: l.deps.Countdown}
	}
	l.publish()
}

// owedCredit is a prize already decided by a persisted spin but not yet
// credited to the winner.
type owedCredit struct {
	evt engine.Event
	at  time.Time
}

// spin draws a winning number, pays the owner and, on the last spin,
// appends the room's recording. The finish transition happens once, so
// the recording is owed once; failed writes stay owed and are retried on
// the following ticks.
func (l *Lobby) spin() {
	number, err := engine.DrawWinningNumber(l.room, l.deps.Wheel)
	if err != nil {
		l.log.Error("draw winning number", zap.Error(err))
		return
	}
	now := l.deps.Now().UTC()

	events, next, err := engine.Apply(l.room, engine.Command{Type: engine.CmdSpin, WinningNumber: number, At: now})
	if err != nil {
		l.log.Error("resolve spin", zap.Int("winningNumber", number), zap.Error(err))
		return
	}
	if err := l.persist(next); err != nil {
		l.log.Error("persist spin", zap.Int("winningNumber", number), zap.Error(err))
		return
	}
	l.room = next

	for _, evt := range events {
		switch evt.Type {
		case engine.EvtSpinResolved:
			l.log.Info("spin resolved",
				zap.Int("spin", evt.Spin),
				zap.Int("winningNumber", evt.WinningNumber),
				zap.String("winner", evt.UserID),
				zap.Int64("amountCents", evt.AmountCents),
			)
			l.deps.Metrics.Spin(evt.Spin, evt.AmountCents)
			l.owedCredits = append(l.owedCredits, owedCredit{evt: evt, at: now})

		case engine.EvtRoomFinished:
			rec := recording.New(next, now)
			l.owedRecording = &rec
		}
	}
	l.settle()
}

func (l *Lobby) owesWrites() bool {
	return len(l.owedCredits) > 0 || l.owedRecording != nil
}

// settle retries every owed credit and the owed recording.
func (l *Lobby) settle() {
	kept := l.owedCredits[:0]
	for _, c := range l.owedCredits {
		if err := l.creditWinner(c.evt, c.at); err != nil {
			l.log.Error("credit winner", zap.String("userId", c.evt.UserID), zap.Int64("amountCents", c.evt.AmountCents), zap.Error(err))
			kept = append(kept, c)
		}
	}
	l.owedCredits = kept

	if l.owedRecording != nil {
		if err := l.record(*l.owedRecording); err != nil {
			l.log.Error("append recording", zap.String("recordingId", l.owedRecording.ID), zap.Error(err))
			return
		}
		l.owedRecording = nil
	}
}

func (l *Lobby) creditWinner(evt engine.Event, at time.Time) error {
	ctx, cancel := context.WithTimeout(l.ctx, l.deps.StoreTimeout)
	defer cancel()

	// rooms restored from storage may hold participants this process never saw
	winner, _ := engine.FindParticipant(l.room, evt.UserID)
	if _, err := l.deps.Users.GetOrCreate(ctx, evt.UserID, winner.Name); err != nil {
		return err
	}
	if _, err := l.deps.Users.CreditWin(ctx, evt.UserID, evt.AmountCents, l.id, at); err != nil {
		return err
	}
	l.deps.Notifier.Success(evt.UserID, "You won!",
		fmt.Sprintf("number %d won spin %d in room %d", evt.WinningNumber, evt.Spin, l.id))
	return nil
}

func (l *Lobby) record(rec recording.Recording) error {
	ctx, cancel := context.WithTimeout(l.ctx, l.deps.StoreTimeout)
	defer cancel()

	if err := l.deps.Recordings.Append(ctx, rec); err != nil {
		return err
	}
	l.deps.Metrics.Recorded()
	l.log.Info("room finished", zap.String("recordingId", rec.ID), zap.Int("results", len(rec.Results)))
	return nil
}
