// Package execution places orders on a venue and records what happened.
//
// Executor decorates any model.OrderVenue (the Coinbase client or the
// paper venue) with client order ids, logging and metrics. Journal
// persists closed trades to SQLite.
package execution

import (
	"context"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/gamesbykevin/TradingBot/internal/metrics"
	"github.com/gamesbykevin/TradingBot/internal/model"
)

// Executor is a model.OrderVenue that delegates to another venue.
type Executor struct {
	venue   model.OrderVenue
	metrics *metrics.Metrics
}

// NewExecutor wraps venue. m may be nil.
func NewExecutor(venue model.OrderVenue, m *metrics.Metrics) *Executor {
	return &Executor{venue: venue, metrics: m}
}

// SubmitOrder assigns a client order id when missing and submits.
func (e *Executor) SubmitOrder(ctx context.Context, req model.OrderRequest) (model.Order, error) {
	if req.ClientOID == "" {
		req.ClientOID = uuid.NewString()
	}
	o, err := e.venue.SubmitOrder(ctx, req)
	if err != nil {
		log.Printf("[executor] submit %s %s failed: %v", req.Side, req.ProductID, err)
		e.metrics.Order(string(req.Side), "error")
		return o, err
	}
	log.Printf("[executor] submitted %s %s order=%s client_oid=%s status=%s",
		req.Side, req.ProductID, o.ID, req.ClientOID, o.Status)
	e.metrics.Order(string(req.Side), "submitted")
	return o, nil
}

// PollOrder polls and counts terminal statuses.
func (e *Executor) PollOrder(ctx context.Context, orderID string) (model.Order, error) {
	o, err := e.venue.PollOrder(ctx, orderID)
	if err != nil {
		return o, err
	}
	if o.Status.Terminal() {
		e.metrics.Order(string(o.Side), string(o.Status))
		if o.Status == model.StatusRejected {
			log.Printf("[executor] order %s rejected: %s", o.ID, strings.TrimSpace(o.RejectReason))
		}
	}
	return o, nil
}

// CancelOrder cancels a pending order.
func (e *Executor) CancelOrder(ctx context.Context, orderID string) error {
	if err := e.venue.CancelOrder(ctx, orderID); err != nil {
		log.Printf("[executor] cancel %s failed: %v", orderID, err)
		return err
	}
	log.Printf("[executor] cancelled %s", orderID)
	return nil
}
