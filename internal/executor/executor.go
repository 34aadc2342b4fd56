// Package executor turns validated orders into marketplace listings.
package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"auctionbot/agent/internal/auction"
	"auctionbot/agent/internal/items"
	"auctionbot/agent/internal/market"
	"auctionbot/agent/internal/metrics"
	"auctionbot/agent/internal/store"
)

type Status int

const (
	StatusFailed Status = iota
	StatusCreated
)

func (s Status) String() string {
	if s == StatusCreated {
		return "created"
	}
	return "failed"
}

type Result struct {
	Status    Status
	ListingID int64
	Order     auction.Order
	Err       error
}

// DefaultLimit allows one listing per minute with no burst.
var DefaultLimit = rate.Every(time.Minute)

type Executor struct {
	market  market.Marketplace
	ledger  *store.Ledger
	limiter *rate.Limiter
	log     *zap.Logger

	mu  sync.RWMutex
	cfg auction.BotConfig
}

// New builds an executor. A nil limiter gets DefaultLimit; a nil ledger gets
// a fresh one.
func New(m market.Marketplace, ledger *store.Ledger, cfg auction.BotConfig, limiter *rate.Limiter, log *zap.Logger) *Executor {
	if ledger == nil {
		ledger = store.NewLedger(0)
	}
	if limiter == nil {
		limiter = rate.NewLimiter(DefaultLimit, 1)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Executor{market: m, ledger: ledger, limiter: limiter, log: log, cfg: cfg}
}

func (e *Executor) SetConfig(cfg auction.BotConfig) {
	e.mu.Lock()
	e.cfg = cfg
	e.mu.Unlock()
}

func (e *Executor) config() auction.BotConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg
}

// Ledger exposes the attempt record for stats.
func (e *Executor) Ledger() *store.Ledger {
	return e.ledger
}

// Execute submits order on behalf of account. At most one attempt is made per
// cycleID; there is no retry.
func (e *Executor) Execute(ctx context.Context, cycleID string, order auction.Order, account market.Account) Result {
	cfg := e.config()
	mode := "standard"
	if cfg.VirtualMode {
		mode = "virtual"
	}

	if order.Bidding && !cfg.AllowBidding {
		e.log.Info("bidding disabled, listing at fixed price",
			zap.String("cycle_id", cycleID),
			zap.String("item", string(order.Kind)),
		)
		order.Bidding = false
	}

	if !e.ledger.Reserve(cycleID, time.Now()) {
		return e.fail(mode, order, fmt.Errorf("%w: cycle %s already attempted a listing", auction.ErrExecutionFailed, cycleID))
	}
	if !e.limiter.Allow() {
		err := fmt.Errorf("%w: execution rate limit reached", auction.ErrExecutionFailed)
		e.complete(cycleID, order, nil, err)
		return e.fail(mode, order, err)
	}
	if e.market == nil {
		err := fmt.Errorf("%w: no marketplace configured", auction.ErrExecutionFailed)
		e.complete(cycleID, order, nil, err)
		return e.fail(mode, order, err)
	}

	listing, err := e.submit(ctx, cycleID, cfg, order, account)
	if err == nil && listing == nil {
		err = fmt.Errorf("%w: marketplace returned no listing", auction.ErrExecutionFailed)
	}
	e.complete(cycleID, order, listing, err)
	if err != nil {
		return e.fail(mode, order, err)
	}

	metrics.Executions.WithLabelValues(mode, StatusCreated.String()).Inc()
	e.log.Info("listing created",
		zap.String("cycle_id", cycleID),
		zap.Int64("listing_id", listing.ID),
		zap.String("item", items.DisplayName(order.Kind)),
		zap.Int("quantity", order.Quantity),
		zap.Float64("price", order.Price),
		zap.Bool("bidding", order.Bidding),
		zap.String("reason", order.Reason),
	)
	return Result{Status: StatusCreated, ListingID: listing.ID, Order: order}
}

func (e *Executor) submit(ctx context.Context, cycleID string, cfg auction.BotConfig, order auction.Order, account market.Account) (*market.Listing, error) {
	provider, err := e.market.DefaultItemProvider(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: default provider: %v", auction.ErrExecutionFailed, err)
	}
	price := decimal.NewFromFloat(order.Price).Round(2)

	var listing *market.Listing
	if cfg.VirtualMode {
		listing, err = e.market.CreateListing(ctx, market.CreateListingRequest{
			Price:          price,
			AccountID:      account.ID,
			Product:        provider.SetupProduct(string(order.Kind), order.Quantity),
			Bidding:        order.Bidding,
			IdempotencyKey: cycleID,
		})
	} else {
		durationMs := cfg.AuctionDuration.Milliseconds()
		listing, err = e.market.CreateListingWithDuration(ctx, market.SafeListingRequest{
			Price:          price,
			DurationMs:     &durationMs,
			AccountID:      account.ID,
			ProviderID:     provider.ID,
			Bidding:        order.Bidding,
			IdempotencyKey: cycleID,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", auction.ErrExecutionFailed, err)
	}
	return listing, nil
}

func (e *Executor) complete(cycleID string, order auction.Order, listing *market.Listing, err error) {
	r := store.Receipt{
		CycleID:  cycleID,
		Kind:     string(order.Kind),
		Quantity: order.Quantity,
		Price:    order.Price,
		Reason:   order.Reason,
	}
	if err == nil && listing != nil {
		r.ListingID = listing.ID
		r.Created = true
	} else if err != nil {
		r.Reason = err.Error()
	}
	e.ledger.Complete(r)
}

func (e *Executor) fail(mode string, order auction.Order, err error) Result {
	metrics.Executions.WithLabelValues(mode, StatusFailed.String()).Inc()
	e.log.Error("listing creation failed",
		zap.String("item", string(order.Kind)),
		zap.Int("quantity", order.Quantity),
		zap.Float64("price", order.Price),
		zap.Error(err),
	)
	return Result{Status: StatusFailed, Order: order, Err: err}
}
