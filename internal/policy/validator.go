// Package policy vets LLM proposals against the bot's business rules before
// anything reaches the marketplace.
package policy

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"auctionbot/agent/internal/auction"
	"auctionbot/agent/internal/items"
	"auctionbot/agent/internal/market"
)

// MaxPrice is the absolute structural ceiling for any proposal.
const MaxPrice = 1_000_000

type Validator struct {
	log *zap.Logger

	mu        sync.RWMutex
	cfg       auction.BotConfig
	inventory Availability
}

func NewValidator(cfg auction.BotConfig, log *zap.Logger) *Validator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Validator{cfg: cfg, inventory: Inventory(cfg), log: log}
}

// SetConfig swaps the limits used by subsequent validations.
func (v *Validator) SetConfig(cfg auction.BotConfig) {
	v.mu.Lock()
	v.cfg = cfg
	v.inventory = Inventory(cfg)
	v.mu.Unlock()
}

// Validate runs the proposal through every check in order and returns the
// executable order, or the first rejection. A wait proposal yields (nil, nil).
func (v *Validator) Validate(p auction.Proposal, listings []auction.ListingSnapshot, account market.Account) (*auction.Order, error) {
	if !p.IsCreate() {
		return nil, nil
	}

	v.mu.RLock()
	cfg, inventory := v.cfg, v.inventory
	v.mu.RUnlock()

	if err := structural(p); err != nil {
		return nil, err
	}

	kind, ok := items.Resolve(p.ItemKind)
	if !ok {
		return nil, fmt.Errorf("%w: %s", auction.ErrUnknownItem, p.ItemKind)
	}

	if !cfg.Allows(kind) {
		v.log.Error("llm proposed item outside available items",
			zap.String("item", string(kind)),
			zap.Strings("available", cfg.AllowedItems),
		)
		return nil, fmt.Errorf("%w: %s", auction.ErrDisallowedItem, kind)
	}

	owned := auction.CountOwned(listings, account, string(kind), true)
	if owned >= cfg.MaxListingsPerItem {
		return nil, fmt.Errorf("%w: %s has %d/%d listings", auction.ErrListingCapExceeded, kind, owned, cfg.MaxListingsPerItem)
	}

	if !inventory.Available(kind, p.Quantity) {
		return nil, fmt.Errorf("%w: %dx %s", auction.ErrInsufficientInventory, p.Quantity, kind)
	}

	price := decimal.NewFromFloat(p.Price)
	if cfg.MaxTotalPrice > 0 && price.GreaterThan(decimal.NewFromFloat(cfg.MaxTotalPrice)) {
		return nil, fmt.Errorf("%w: %s > %.2f", auction.ErrPriceCeilingExceeded, price.StringFixed(2), cfg.MaxTotalPrice)
	}

	return &auction.Order{
		Kind:     kind,
		Quantity: p.Quantity,
		Price:    p.Price,
		Bidding:  p.Bidding,
		Reason:   p.Reason,
	}, nil
}

func structural(p auction.Proposal) error {
	switch {
	case strings.TrimSpace(p.ItemKind) == "":
		return fmt.Errorf("%w: missing item type", auction.ErrInvalidDecision)
	case p.Quantity <= 0 || p.Quantity > items.MaxStack:
		return fmt.Errorf("%w: quantity %d outside 1..%d", auction.ErrInvalidDecision, p.Quantity, items.MaxStack)
	case math.IsNaN(p.Price) || p.Price <= 0 || p.Price > MaxPrice:
		return fmt.Errorf("%w: price %v outside (0, %d]", auction.ErrInvalidDecision, p.Price, MaxPrice)
	}
	return nil
}
