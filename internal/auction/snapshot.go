package auction

import (
	"strings"
	"time"

	"auctionbot/agent/internal/items"
	"auctionbot/agent/internal/market"
)

// Recorder receives every snapshot built during a cycle.
type Recorder interface {
	Put(ListingSnapshot)
}

// BuildSnapshot converts raw marketplace listings into snapshots, keeping
// source order.
func BuildSnapshot(raw []market.RawListing, now time.Time) []ListingSnapshot {
	out := make([]ListingSnapshot, 0, len(raw))
	for _, listing := range raw {
		out = append(out, snapshotOf(listing, now))
	}
	return out
}

// Observe builds the snapshot and records each entry, replacing any earlier
// entry with the same listing ID.
func Observe(raw []market.RawListing, now time.Time, rec Recorder) []ListingSnapshot {
	snaps := BuildSnapshot(raw, now)
	if rec == nil {
		return snaps
	}
	for _, s := range snaps {
		rec.Put(s)
	}
	return snaps
}

func snapshotOf(l market.RawListing, now time.Time) ListingSnapshot {
	price := l.Price.InexactFloat64()
	divisor := l.Quantity
	if divisor < 1 {
		divisor = 1
	}
	categories := make([]string, 0, len(l.Categories))
	for _, c := range l.Categories {
		categories = append(categories, c.Name)
	}
	kind := strings.ToUpper(strings.TrimSpace(l.Item.Type))
	if k, ok := items.Resolve(l.Item.Type); ok {
		kind = string(k)
	}
	display := strings.TrimSpace(l.DisplayName)
	if display == "" {
		display = l.Item.Name
	}
	return ListingSnapshot{
		ID:          l.ID,
		Kind:        kind,
		DisplayName: display,
		Quantity:    l.Quantity,
		Price:       price,
		UnitPrice:   price / float64(divisor),
		SellerID:    l.Seller.ID,
		Seller:      l.Seller.Name,
		Bidding:     l.Bidding,
		Remaining:   time.UnixMilli(l.ExpiresAt).Sub(now),
		Categories:  categories,
		ObservedAt:  now,
	}
}

// CountOwned counts listings of kind sold by account. When activeOnly is set,
// expired listings are skipped.
func CountOwned(listings []ListingSnapshot, account market.Account, kind string, activeOnly bool) int {
	n := 0
	for _, l := range listings {
		if l.Kind != kind || !account.Owns(l.SellerID, l.Seller) {
			continue
		}
		if activeOnly && l.Expired() {
			continue
		}
		n++
	}
	return n
}
