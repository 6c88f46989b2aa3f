package wallet

import (
	"context"
	"errors"
	"fmt"
)

var ErrNotConnected = errors.New("wallet not connected")
var ErrPaymentFailed = errors.New("payment failed")

// Wallet is the payment collaborator used when a user joins a room.
// SendPayment holds the entry fee and returns a transaction hash; any failure
// wraps ErrPaymentFailed. The hold is settled with Commit once the seat is
// saved, or given back with Refund when it cannot be.
type Wallet interface {
	Account(userID string) (string, bool)
	Connect(ctx context.Context, userID string) (string, error)
	SendPayment(ctx context.Context, account string, amountCents int64, roomID int) (string, error)
	Commit(ctx context.Context, account string, roomID int) error
	Refund(ctx context.Context, account string, roomID int) error
}

// ExternalRef identifies one entry fee on the wallet side.
func ExternalRef(account string, roomID int) string {
	return fmt.Sprintf("room:%d:user:%s", roomID, account)
}
