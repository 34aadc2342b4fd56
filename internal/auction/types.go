// Package auction holds the bot's domain model and the pure parts of the
// decision pipeline: snapshot building and prompt compilation.
package auction

import (
	"fmt"
	"time"

	"auctionbot/agent/internal/items"
)

// ListingSnapshot is one marketplace listing as observed during a cycle.
type ListingSnapshot struct {
	ID          int64
	Kind        string
	DisplayName string
	Quantity    int
	Price       float64
	UnitPrice   float64
	SellerID    string
	Seller      string
	Bidding     bool
	Remaining   time.Duration
	Categories  []string
	ObservedAt  time.Time
}

// Expired reports whether the listing had no time left when observed.
func (l ListingSnapshot) Expired() bool {
	return l.Remaining <= 0
}

// ExpiresAt is the wall clock time the listing ends.
func (l ListingSnapshot) ExpiresAt() time.Time {
	return l.ObservedAt.Add(l.Remaining)
}

type Action int

const (
	ActionWait Action = iota
	ActionCreate
)

func (a Action) String() string {
	if a == ActionCreate {
		return "create"
	}
	return "wait"
}

// Proposal is the unvalidated recommendation produced by the decision client.
type Proposal struct {
	Action   Action
	ItemKind string
	Quantity int
	Price    float64
	Bidding  bool
	Reason   string
}

func NoAction(reason string) Proposal {
	return Proposal{Action: ActionWait, Reason: reason}
}

func CreateListing(itemKind string, quantity int, price float64, bidding bool, reason string) Proposal {
	return Proposal{
		Action:   ActionCreate,
		ItemKind: itemKind,
		Quantity: quantity,
		Price:    price,
		Bidding:  bidding,
		Reason:   reason,
	}
}

func (p Proposal) IsCreate() bool {
	return p.Action == ActionCreate
}

func (p Proposal) String() string {
	if !p.IsCreate() {
		return fmt.Sprintf("wait (%s)", p.Reason)
	}
	return fmt.Sprintf("create %dx %s for %.2f bidding=%t (%s)", p.Quantity, p.ItemKind, p.Price, p.Bidding, p.Reason)
}

// Order is a proposal that passed every validation stage.
type Order struct {
	Kind     items.Kind
	Quantity int
	Price    float64
	Bidding  bool
	Reason   string
}

// BotConfig is the per-cycle view of the bot's business limits.
type BotConfig struct {
	Budget             float64
	MinProfitMargin    float64
	VirtualMode        bool
	AllowedItems       []string
	MaxListingsPerItem int
	MaxTotalPrice      float64
	MaxQuantity        int
	AuctionDuration    time.Duration
	AllowBidding       bool
	MonitorInterval    time.Duration
	Debug              bool
	DataRetention      time.Duration
}

// Allows reports whether kind is in the configured allowed set.
func (c BotConfig) Allows(kind items.Kind) bool {
	for _, allowed := range c.AllowedItems {
		if k, ok := items.Resolve(allowed); ok && k == kind {
			return true
		}
	}
	return false
}
