package lobby

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/DoyleJ11/spin-rooms-backend/internal/engine"
	"github.com/DoyleJ11/spin-rooms-backend/internal/wallet"
)

type JoinRequest struct {
	UserID string
	Name   string
}

type JoinResult struct {
	Participant engine.Participant
	Room        engine.Room
	Existing    bool // the user was already in the room; nothing was charged
}

// Join buys a ticket for the user: reserve a seat, pay the entry fee, then
// assign a free number. Capacity and duplicate checks happen before any
// payment, and a failed payment releases the seat without touching the room.
func (l *Lobby) Join(ctx context.Context, req JoinRequest) (JoinResult, error) {
	if req.UserID == "" {
		return JoinResult{}, engine.ErrInvalidParticipant
	}
	if _, err := l.deps.Users.GetOrCreate(ctx, req.UserID, req.Name); err != nil {
		return JoinResult{}, fmt.Errorf("load user %q: %w", req.UserID, err)
	}

	// once the actor takes the reservation the seat is held, so the reply
	// must be read even if the caller gives up
	rs, err := request(context.WithoutCancel(ctx), l, func(reply chan reservation) Msg {
		return reserveSeat{UserID: req.UserID, Reply: reply}
	})
	if err != nil {
		return JoinResult{}, err
	}
	if rs.Err != nil {
		l.deps.Metrics.Join(outcome(rs.Err))
		if errors.Is(rs.Err, engine.ErrRoomFull) {
			l.deps.Notifier.Error(req.UserID, "Room full", "no numbers left in this room")
		}
		return JoinResult{}, rs.Err
	}
	if rs.Existing != nil {
		l.deps.Metrics.Join("existing")
		return JoinResult{Participant: *rs.Existing, Room: rs.Room, Existing: true}, nil
	}

	if err := ctx.Err(); err != nil {
		l.release(req.UserID)
		l.deps.Metrics.Join("cancelled")
		return JoinResult{}, err
	}

	account, txHash, err := l.pay(ctx, req.UserID, rs.FeeCents)
	if err != nil {
		l.release(req.UserID)
		l.deps.Metrics.Join("payment_failed")
		l.deps.Notifier.Error(req.UserID, "Error", "the payment could not be processed")
		l.log.Warn("join payment failed", zap.String("userId", req.UserID), zap.Error(err))
		return JoinResult{}, err
	}

	// the fee is already paid, so the commit outlives a cancelled caller
	cr, err := request(context.WithoutCancel(ctx), l, func(reply chan commitResult) Msg {
		return commitSeat{
			Participant: engine.Participant{
				UserID:          req.UserID,
				Name:            req.Name,
				WalletAddress:   account,
				TransactionHash: txHash,
			},
			Reply: reply,
		}
	})
	if err == nil {
		err = cr.Err
	}
	settleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.deps.StoreTimeout)
	defer cancel()

	if err != nil {
		l.release(req.UserID)
		l.deps.Metrics.Join("error")
		if rerr := l.deps.Wallet.Refund(settleCtx, account, l.id); rerr != nil {
			// the hash is what support needs to refund by hand
			l.log.Error("refund after failed join",
				zap.String("userId", req.UserID),
				zap.String("transactionHash", txHash),
				zap.Error(rerr),
			)
		}
		l.log.Error("join commit failed after payment", zap.String("userId", req.UserID), zap.Error(err))
		l.deps.Notifier.Error(req.UserID, "Error", "the seat could not be saved; the entry fee was refunded")
		return JoinResult{}, err
	}

	if err := l.deps.Wallet.Commit(settleCtx, account, l.id); err != nil {
		// the seat stands; the wallet still holds the fee for reconciliation
		l.log.Error("commit entry fee",
			zap.String("userId", req.UserID),
			zap.String("transactionHash", txHash),
			zap.Error(err),
		)
	}

	number := cr.Participant.NumbersPurchased[0]
	l.deps.Metrics.Join("ok")
	l.deps.Notifier.Success(req.UserID, "Joined", fmt.Sprintf("you were assigned number %d", number))
	l.log.Info("participant joined", zap.String("userId", req.UserID), zap.Int("number", number))
	return JoinResult{Participant: cr.Participant, Room: cr.Room}, nil
}

// pay connects the user's wallet when needed and sends the entry fee.
func (l *Lobby) pay(ctx context.Context, userID string, feeCents int64) (string, string, error) {
	account, ok := l.deps.Wallet.Account(userID)
	if !ok {
		var err error
		account, err = l.deps.Wallet.Connect(ctx, userID)
		if err != nil {
			return "", "", fmt.Errorf("%w: %w", wallet.ErrPaymentFailed, err)
		}
	}

	txHash, err := l.deps.Wallet.SendPayment(ctx, account, feeCents, l.id)
	if err != nil {
		if !errors.Is(err, wallet.ErrPaymentFailed) {
			err = fmt.Errorf("%w: %w", wallet.ErrPaymentFailed, err)
		}
		return "", "", err
	}
	if txHash == "" {
		return "", "", fmt.Errorf("%w: empty transaction hash", wallet.ErrPaymentFailed)
	}
	return account, txHash, nil
}

// release frees a reserved seat. It must reach the actor even when the
// caller's context is already cancelled.
func (l *Lobby) release(userID string) {
	select {
	case l.inbox <- releaseSeat{UserID: userID}:
	case <-l.ctx.Done():
	}
}

// State returns the room as the actor currently sees it.
func (l *Lobby) State(ctx context.Context) (View, error) {
	return request(ctx, l, func(reply chan View) Msg { return GetState{Reply: reply} })
}

// request sends a message built around a fresh reply channel and waits for the answer.
func request[T any](ctx context.Context, l *Lobby, build func(chan T) Msg) (T, error) {
	var zero T
	reply := make(chan T, 1)

	select {
	case l.inbox <- build(reply):
	case <-l.ctx.Done():
		return zero, ErrClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	select {
	case v := <-reply:
		return v, nil
	case <-l.done:
		return zero, ErrClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func outcome(err error) string {
	switch {
	case errors.Is(err, engine.ErrRoomFull):
		return "room_full"
	case errors.Is(err, engine.ErrRoomFinished):
		return "room_finished"
	case errors.Is(err, ErrJoinInFlight):
		return "in_flight"
	default:
		return "rejected"
	}
}
