package execution

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gamesbykevin/TradingBot/internal/model"
)

// PriceSource supplies the reference price used to fill paper orders.
type PriceSource interface {
	CurrentPrice(ctx context.Context, productID string) (float64, error)
}

// PaperVenue simulates a venue without real exchange calls. Orders are
// accepted as pending and fill on the FillAfter'th poll.
type PaperVenue struct {
	mu       sync.Mutex
	orders   map[string]*paperOrder
	fills    []model.Order
	orderSeq int64

	prices PriceSource
	now    func() time.Time

	// Simulation parameters
	feeRate     float64 // fraction of notional charged per fill
	slippageBps int64   // basis points of slippage (e.g., 5 = 0.05%)
	fillAfter   int     // polls before the order fills
}

type paperOrder struct {
	order model.Order
	req   model.OrderRequest
	polls int
}

// PaperOption tunes the simulation.
type PaperOption func(*PaperVenue)

// WithSlippage sets simulated slippage in basis points.
func WithSlippage(bps int64) PaperOption {
	return func(p *PaperVenue) { p.slippageBps = bps }
}

// WithFillAfter delays fills until the nth poll (default 1).
func WithFillAfter(n int) PaperOption {
	return func(p *PaperVenue) {
		if n > 0 {
			p.fillAfter = n
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) PaperOption {
	return func(p *PaperVenue) { p.now = now }
}

// NewPaperVenue creates a paper venue charging feeRate on every fill.
// prices is consulted when a request carries no reference price.
func NewPaperVenue(prices PriceSource, feeRate float64, opts ...PaperOption) *PaperVenue {
	p := &PaperVenue{
		orders:    make(map[string]*paperOrder),
		fills:     make([]model.Order, 0, 100),
		prices:    prices,
		now:       time.Now,
		feeRate:   feeRate,
		fillAfter: 1,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// SubmitOrder accepts a market order as pending.
func (p *PaperVenue) SubmitOrder(ctx context.Context, req model.OrderRequest) (model.Order, error) {
	price := req.Price
	if price <= 0 && p.prices != nil {
		var err error
		if price, err = p.prices.CurrentPrice(ctx, req.ProductID); err != nil {
			return model.Order{}, fmt.Errorf("paper: reference price: %w", err)
		}
	}
	if price <= 0 {
		return model.Order{}, fmt.Errorf("%w: paper: no reference price for %s", model.ErrOrderRejected, req.ProductID)
	}
	req.Price = price

	p.mu.Lock()
	defer p.mu.Unlock()

	p.orderSeq++
	now := p.now()
	o := model.Order{
		ID:        fmt.Sprintf("PAPER-%d", p.orderSeq),
		ClientOID: req.ClientOID,
		ProductID: req.ProductID,
		Side:      req.Side,
		Status:    model.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	switch req.Side {
	case model.SideBuy:
		if req.Funds <= 0 {
			o.Status = model.StatusRejected
			o.RejectReason = "funds must be positive"
		}
	case model.SideSell:
		if req.Size <= 0 {
			o.Status = model.StatusRejected
			o.RejectReason = "size must be positive"
		}
	default:
		o.Status = model.StatusRejected
		o.RejectReason = fmt.Sprintf("unknown side %q", req.Side)
	}

	p.orders[o.ID] = &paperOrder{order: o, req: req}
	log.Printf("[paper] %s %s funds=%.8f size=%.8f ref=%.8f order=%s status=%s",
		req.Side, req.ProductID, req.Funds, req.Size, price, o.ID, o.Status)
	return o, nil
}

// PollOrder returns the order, filling it once enough polls have passed.
func (p *PaperVenue) PollOrder(ctx context.Context, orderID string) (model.Order, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	po, ok := p.orders[orderID]
	if !ok {
		return model.Order{}, fmt.Errorf("paper: unknown order %s", orderID)
	}
	if po.order.Status != model.StatusPending {
		return po.order, nil
	}
	po.polls++
	if po.polls < p.fillAfter {
		return po.order, nil
	}
	p.fill(po)
	return po.order, nil
}

// fill prices the order with fees taken out of the notional, the way a
// funds-denominated market buy settles.
func (p *PaperVenue) fill(po *paperOrder) {
	ref := decimal.NewFromFloat(po.req.Price)
	slip := ref.Mul(decimal.NewFromInt(p.slippageBps)).Div(decimal.NewFromInt(10000))
	rate := decimal.NewFromFloat(p.feeRate)

	var price, size, fee decimal.Decimal
	if po.req.Side == model.SideBuy {
		price = ref.Add(slip) // buy higher
		funds := decimal.NewFromFloat(po.req.Funds)
		fee = funds.Mul(rate).Div(decimal.NewFromInt(1).Add(rate)).Round(8)
		size = funds.Sub(fee).Div(price).Truncate(8)
	} else {
		price = ref.Sub(slip) // sell lower
		size = decimal.NewFromFloat(po.req.Size)
		fee = price.Mul(size).Mul(rate).Round(8)
	}

	po.order.Status = model.StatusFilled
	po.order.Price = price.String()
	po.order.Size = size.String()
	po.order.FilledSize = size.String()
	po.order.FillFees = fee.String()
	po.order.UpdatedAt = p.now()
	p.fills = append(p.fills, po.order)

	log.Printf("[paper] filled %s %s %s @ %s fee=%s order=%s",
		po.order.Side, po.order.ProductID, po.order.Size, po.order.Price, po.order.FillFees, po.order.ID)
}

// CancelOrder cancels a still-pending order.
func (p *PaperVenue) CancelOrder(ctx context.Context, orderID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	po, ok := p.orders[orderID]
	if !ok {
		return fmt.Errorf("paper: unknown order %s", orderID)
	}
	switch po.order.Status {
	case model.StatusPending:
	case model.StatusCancelled:
		return fmt.Errorf("%w: paper order %s", model.ErrOrderCancelled, orderID)
	default:
		return fmt.Errorf("paper: order %s already %s", orderID, po.order.Status)
	}
	po.order.Status = model.StatusCancelled
	po.order.UpdatedAt = p.now()
	return nil
}

// GetFills returns a snapshot of all fills.
func (p *PaperVenue) GetFills() []model.Order {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := make([]model.Order, len(p.fills))
	copy(cp, p.fills)
	return cp
}
