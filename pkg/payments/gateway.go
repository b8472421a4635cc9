package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Gateway charges a customer for an order. ok=false is a decline (a business
// outcome), an error is a gateway failure (transport, timeout).
type Gateway interface {
	Charge(ctx context.Context, orderID int64, amount decimal.Decimal) (paymentID string, ok bool, err error)
}

// SimulatedGateway approves every charge up to its limit and declines above
// it. Zero limit means approve everything.
type SimulatedGateway struct {
	DeclineAbove decimal.Decimal
	now          func() time.Time
}

func NewSimulatedGateway() *SimulatedGateway {
	return &SimulatedGateway{now: time.Now}
}

func (g *SimulatedGateway) Charge(ctx context.Context, orderID int64, amount decimal.Decimal) (string, bool, error) {
	if !g.DeclineAbove.IsZero() && amount.GreaterThan(g.DeclineAbove) {
		return "", false, nil
	}
	now := g.now
	if now == nil {
		now = time.Now
	}
	return fmt.Sprintf("pay_%d_%d", orderID, now().Unix()), true, nil
}
