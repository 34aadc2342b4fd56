package runtime

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"auctionbot/agent/internal/auction"
	"auctionbot/agent/internal/decision"
	"auctionbot/agent/internal/executor"
	"auctionbot/agent/internal/items"
	"auctionbot/agent/internal/market"
	"auctionbot/agent/internal/metrics"
	"auctionbot/agent/internal/store"
)

const (
	defaultStartDelay = 10 * time.Second
	defaultInterval   = 30 * time.Minute
	cycleKey          = "cycle"
)

type Decider interface {
	Decide(ctx context.Context, prompt string) decision.Decision
}

type Validator interface {
	Validate(p auction.Proposal, listings []auction.ListingSnapshot, account market.Account) (*auction.Order, error)
}

type Executor interface {
	Execute(ctx context.Context, cycleID string, order auction.Order, account market.Account) executor.Result
}

// configurable collaborators receive reloaded limits.
type configurable interface {
	SetConfig(auction.BotConfig)
}

type Deps struct {
	Market    market.Marketplace
	Decider   Decider
	Validator Validator
	Executor  Executor
	Working   *store.WorkingSet
	Ledger    *store.Ledger
	Log       *zap.Logger
}

// Stats is the snapshot served to the host.
type Stats struct {
	TotalListings   int       `json:"total_listings"`
	BotListings     int       `json:"bot_listings"`
	CachedEntries   int       `json:"cached_entries"`
	CreatedListings int       `json:"created_listings"`
	LastCheck       time.Time `json:"last_check"`
	Running         bool      `json:"running"`
}

// CycleReport describes what one monitor cycle saw and did.
type CycleReport struct {
	CycleID   string                `json:"cycle_id"`
	StartedAt time.Time             `json:"started_at"`
	Duration  time.Duration         `json:"duration"`
	Listings  int                   `json:"listings"`
	Purged    int                   `json:"purged"`
	Proposal  auction.Proposal      `json:"-"`
	Order     *auction.Order        `json:"-"`
	Result    *executor.Result      `json:"-"`
	Err       error                 `json:"-"`
	Outcome   string                `json:"outcome"`
	Summary   []auction.KindSummary `json:"-"`
}

type Runner struct {
	AccountID  string
	StartDelay time.Duration

	market    market.Marketplace
	decider   Decider
	validator Validator
	executor  Executor
	working   *store.WorkingSet
	ledger    *store.Ledger
	log       *zap.Logger

	cfg   atomic.Pointer[auction.BotConfig]
	group singleflight.Group
	busy  atomic.Bool

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	statsMu sync.RWMutex
	stats   Stats
}

func NewRunner(accountID string, cfg auction.BotConfig, deps Deps) *Runner {
	if deps.Working == nil {
		deps.Working = store.NewWorkingSet()
	}
	if deps.Ledger == nil {
		deps.Ledger = store.NewLedger(0)
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	r := &Runner{
		AccountID:  accountID,
		StartDelay: defaultStartDelay,
		market:     deps.Market,
		decider:    deps.Decider,
		validator:  deps.Validator,
		executor:   deps.Executor,
		working:    deps.Working,
		ledger:     deps.Ledger,
		log:        deps.Log,
	}
	r.cfg.Store(&cfg)
	return r
}

func (r *Runner) Config() auction.BotConfig {
	return *r.cfg.Load()
}

// SetConfig replaces the limits used from the next cycle on and forwards them
// to collaborators that accept reloads.
func (r *Runner) SetConfig(cfg auction.BotConfig) {
	r.cfg.Store(&cfg)
	for _, c := range []any{r.validator, r.executor, r.decider} {
		if target, ok := c.(configurable); ok {
			target.SetConfig(cfg)
		}
	}
	r.log.Info("configuration reloaded",
		zap.Duration("interval", cfg.MonitorInterval),
		zap.Strings("available_items", cfg.AllowedItems),
		zap.Bool("virtual_mode", cfg.VirtualMode),
	)
}

// Start launches the monitor loop. The first cycle runs after StartDelay and
// then every MonitorInterval. Calling Start on a running runner is a no-op.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	r.running = true
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.loop(loopCtx, r.done)

	cfg := r.Config()
	r.log.Info("monitor started",
		zap.Duration("start_delay", r.StartDelay),
		zap.Duration("interval", interval(cfg)),
	)
}

// Stop ends the loop. A cycle already in flight finishes on its own.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return
	}
	r.cancel()
	r.running = false
	r.log.Info("monitor stopped")
}

// Done is closed when the loop started by the last Start exits.
func (r *Runner) Done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return r.done
}

func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *Runner) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer func() {
		r.mu.Lock()
		if r.done == done {
			r.running = false
		}
		r.mu.Unlock()
	}()

	delay := r.StartDelay
	if delay < 0 {
		delay = 0
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	current := interval(r.Config())
	ticker := time.NewTicker(current)
	defer ticker.Stop()
	r.tick(ctx)
	skipOverrun(ticker)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick(ctx)
			skipOverrun(ticker)
			if next := interval(r.Config()); next != current {
				current = next
				ticker.Reset(current)
			}
		}
	}
}

// skipOverrun discards a tick that fired while the cycle was running.
func skipOverrun(ticker *time.Ticker) {
	select {
	case <-ticker.C:
	default:
	}
}

func (r *Runner) tick(ctx context.Context) {
	if r.busy.Load() {
		r.log.Debug("cycle in progress, tick dropped")
		return
	}
	r.RunCycle(ctx)
}

// RunCycle runs one monitor cycle and returns its report. Concurrent callers
// share the cycle already in flight. Cancelling ctx does not abort a cycle
// that has started.
func (r *Runner) RunCycle(ctx context.Context) CycleReport {
	cycleCtx := context.WithoutCancel(ctx)
	v, _, _ := r.group.Do(cycleKey, func() (any, error) {
		r.busy.Store(true)
		defer r.busy.Store(false)
		return r.runCycle(cycleCtx, uuid.NewString()), nil
	})
	return v.(CycleReport)
}

// TriggerCycle starts a cycle in the background and returns immediately.
func (r *Runner) TriggerCycle(ctx context.Context) {
	go r.RunCycle(ctx)
}

func (r *Runner) Stats() Stats {
	r.statsMu.RLock()
	s := r.stats
	r.statsMu.RUnlock()
	s.CachedEntries = r.working.Len()
	s.CreatedListings = r.ledger.Created()
	s.Running = r.IsRunning()
	return s
}

func (r *Runner) runCycle(ctx context.Context, cycleID string) (report CycleReport) {
	start := time.Now()
	report = CycleReport{CycleID: cycleID, StartedAt: start}
	log := r.log.With(zap.String("cycle_id", cycleID))

	defer func() {
		if rec := recover(); rec != nil {
			report.Err = fmt.Errorf("cycle panic: %v", rec)
			report.Outcome = "panic"
			log.Error("cycle panicked", zap.Any("panic", rec), zap.ByteString("stack", debug.Stack()))
		}
		report.Duration = time.Since(start)
		metrics.CycleDuration.Observe(report.Duration.Seconds())
		metrics.Cycles.WithLabelValues(report.Outcome).Inc()
		metrics.WorkingSetSize.Set(float64(r.working.Len()))
		log.Debug("cycle finished", zap.String("outcome", report.Outcome), zap.Duration("duration", report.Duration))
	}()

	cfg := r.Config()
	report.Purged = r.working.Purge(start, cfg.DataRetention)
	if report.Purged > 0 {
		log.Debug("purged stale listings", zap.Int("count", report.Purged))
	}

	if r.market == nil {
		report.Err = fmt.Errorf("%w: no marketplace configured", auction.ErrCollaboratorUnavailable)
		report.Outcome = auction.ErrorKind(report.Err)
		log.Error("cycle aborted", zap.Error(report.Err))
		return report
	}

	account, err := r.market.ResolveAccount(ctx, r.AccountID)
	if err != nil {
		report.Err = fmt.Errorf("%w: resolve account %s: %v", auction.ErrCollaboratorUnavailable, r.AccountID, err)
		report.Outcome = auction.ErrorKind(report.Err)
		log.Error("cycle aborted", zap.Error(report.Err))
		return report
	}

	raw, err := r.market.ListActiveListings(ctx)
	if err != nil {
		report.Err = fmt.Errorf("%w: list listings: %v", auction.ErrCollaboratorUnavailable, err)
		report.Outcome = auction.ErrorKind(report.Err)
		log.Error("cycle aborted", zap.Error(report.Err))
		return report
	}

	listings := auction.Observe(raw, start, r.working)
	report.Listings = len(listings)
	report.Summary = auction.Summarize(listings)
	r.recordStats(listings, account, start)
	r.logMarket(log, report.Summary, listings, account)

	if r.decider == nil || r.validator == nil || r.executor == nil {
		report.Err = fmt.Errorf("%w: decision pipeline not wired", auction.ErrCollaboratorUnavailable)
		report.Outcome = auction.ErrorKind(report.Err)
		log.Error("cycle aborted", zap.Error(report.Err))
		return report
	}

	prompt := auction.CompilePrompt(listings, account, cfg)
	llmStart := time.Now()
	d := r.decider.Decide(ctx, prompt)
	metrics.ObserveSince(metrics.LLMLatency, llmStart)
	report.Proposal = d.Proposal
	if d.Err != nil {
		report.Err = d.Err
		report.Outcome = auction.ErrorKind(d.Err)
		metrics.Decisions.WithLabelValues(d.Proposal.Action.String(), report.Outcome).Inc()
		log.Warn("decision degraded to wait", zap.Error(d.Err))
		return report
	}

	order, err := r.validator.Validate(d.Proposal, listings, account)
	if err != nil {
		report.Err = err
		report.Outcome = auction.ErrorKind(err)
		metrics.Decisions.WithLabelValues(d.Proposal.Action.String(), report.Outcome).Inc()
		log.Warn("proposal rejected", zap.Stringer("proposal", d.Proposal), zap.Error(err))
		return report
	}
	if order == nil {
		report.Outcome = "wait"
		metrics.Decisions.WithLabelValues(d.Proposal.Action.String(), "accepted").Inc()
		log.Info("no action this cycle", zap.String("reason", d.Proposal.Reason))
		return report
	}
	metrics.Decisions.WithLabelValues(d.Proposal.Action.String(), "accepted").Inc()
	report.Order = order
	warnThinMargin(log, *order, cfg)

	res := r.executor.Execute(ctx, cycleID, *order, account)
	report.Result = &res
	report.Err = res.Err
	report.Outcome = res.Status.String()
	return report
}

func (r *Runner) recordStats(listings []auction.ListingSnapshot, account market.Account, at time.Time) {
	own := 0
	for _, l := range listings {
		if account.Owns(l.SellerID, l.Seller) {
			own++
		}
	}
	metrics.ActiveListings.Set(float64(len(listings)))

	r.statsMu.Lock()
	r.stats.TotalListings = len(listings)
	r.stats.BotListings = own
	r.stats.LastCheck = at
	r.statsMu.Unlock()
}

func (r *Runner) logMarket(log *zap.Logger, summary []auction.KindSummary, listings []auction.ListingSnapshot, account market.Account) {
	s := r.Stats()
	log.Info("market stats",
		zap.Int("total_listings", s.TotalListings),
		zap.Int("bot_listings", s.BotListings),
		zap.Int("cached_entries", s.CachedEntries),
		zap.Int("created_listings", s.CreatedListings),
		zap.Int("kinds", len(summary)),
	)
	for _, k := range summary {
		log.Debug("market kind",
			zap.String("item", k.Kind),
			zap.Int("listings", k.Count),
			zap.Int("quantity", k.TotalQuantity),
			zap.Float64("avg_unit_price", k.AvgUnitPrice),
			zap.Int("owned", auction.CountOwned(listings, account, k.Kind, true)),
		)
	}
}

// warnThinMargin logs when the unit price sits below the reference value plus
// the configured margin. The order still goes through.
func warnThinMargin(log *zap.Logger, order auction.Order, cfg auction.BotConfig) {
	if order.Quantity <= 0 {
		return
	}
	unit := order.Price / float64(order.Quantity)
	floor := items.EstimatedValue(order.Kind) * (1 + cfg.MinProfitMargin/100)
	if unit < floor {
		log.Warn("unit price below estimated value plus margin",
			zap.String("item", string(order.Kind)),
			zap.Float64("unit_price", unit),
			zap.Float64("floor", floor),
		)
	}
}

func interval(cfg auction.BotConfig) time.Duration {
	if cfg.MonitorInterval <= 0 {
		return defaultInterval
	}
	return cfg.MonitorInterval
}
