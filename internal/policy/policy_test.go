package policy

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"auctionbot/agent/internal/auction"
	"auctionbot/agent/internal/items"
	"auctionbot/agent/internal/market"
)

var bot = market.Account{ID: "acc-bot", Name: "AuctionBot"}

func testConfig() auction.BotConfig {
	return auction.BotConfig{
		Budget:             10000,
		MinProfitMargin:    15,
		VirtualMode:        true,
		AllowedItems:       []string{"WHEAT", "DIAMOND", "OAK_LOG"},
		MaxListingsPerItem: 2,
		MaxTotalPrice:      5000,
		MaxQuantity:        64,
		AuctionDuration:    24 * time.Hour,
		AllowBidding:       true,
	}
}

func listing(id int64, kind string, sellerID string, remaining time.Duration) auction.ListingSnapshot {
	return auction.ListingSnapshot{ID: id, Kind: kind, Quantity: 16, Price: 80, UnitPrice: 5, SellerID: sellerID, Remaining: remaining}
}

func TestValidateWaitYieldsNothing(t *testing.T) {
	v := NewValidator(testConfig(), zaptest.NewLogger(t))
	order, err := v.Validate(auction.NoAction("nothing to do"), nil, bot)
	require.NoError(t, err)
	assert.Nil(t, order)
}

func TestValidateAcceptsGapFill(t *testing.T) {
	v := NewValidator(testConfig(), zaptest.NewLogger(t))
	order, err := v.Validate(auction.CreateListing("wheat", 64, 320, false, "gap"), nil, bot)
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, auction.Order{Kind: "WHEAT", Quantity: 64, Price: 320, Reason: "gap"}, *order)
}

func TestValidateRejections(t *testing.T) {
	full := []auction.ListingSnapshot{
		listing(1, "DIAMOND", "acc-bot", time.Hour),
		listing(2, "DIAMOND", "acc-bot", time.Hour),
	}
	cases := []struct {
		name     string
		p        auction.Proposal
		listings []auction.ListingSnapshot
		want     error
	}{
		{"missing kind", auction.CreateListing("", 1, 10, false, ""), nil, auction.ErrInvalidDecision},
		{"zero quantity", auction.CreateListing("WHEAT", 0, 10, false, ""), nil, auction.ErrInvalidDecision},
		{"oversized stack", auction.CreateListing("WHEAT", 65, 10, false, ""), nil, auction.ErrInvalidDecision},
		{"zero price", auction.CreateListing("WHEAT", 32, 0, false, ""), nil, auction.ErrInvalidDecision},
		{"absurd price", auction.CreateListing("WHEAT", 32, 2_000_000, false, ""), nil, auction.ErrInvalidDecision},
		{"unknown item", auction.CreateListing("UNOBTAINIUM", 1, 10, false, ""), nil, auction.ErrUnknownItem},
		{"disallowed", auction.CreateListing("EMERALD", 1, 10, false, ""), nil, auction.ErrDisallowedItem},
		{"cap reached", auction.CreateListing("DIAMOND", 1, 100, false, ""), full, auction.ErrListingCapExceeded},
		{"ceiling", auction.CreateListing("DIAMOND", 64, 6400, false, ""), nil, auction.ErrPriceCeilingExceeded},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := NewValidator(testConfig(), zaptest.NewLogger(t))
			order, err := v.Validate(tc.p, tc.listings, bot)
			assert.Nil(t, order)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
			assert.True(t, auction.IsRejection(err))
		})
	}
}

func TestValidateIgnoresExpiredAndForeignListingsForCap(t *testing.T) {
	listings := []auction.ListingSnapshot{
		listing(1, "DIAMOND", "acc-bot", time.Hour),
		listing(2, "DIAMOND", "acc-bot", -time.Minute),
		listing(3, "DIAMOND", "acc-other", time.Hour),
	}
	v := NewValidator(testConfig(), zaptest.NewLogger(t))
	order, err := v.Validate(auction.CreateListing("minecraft:diamond", 2, 300, true, "one slot left"), listings, bot)
	require.NoError(t, err)
	assert.Equal(t, items.Kind("DIAMOND"), order.Kind)
	assert.True(t, order.Bidding)
}

func TestValidateCapCountsNamespacedMarketKinds(t *testing.T) {
	owned := func(id int64, itemType string) market.RawListing {
		return market.RawListing{
			ID:        id,
			Item:      market.Item{Type: itemType},
			Quantity:  16,
			Price:     decimal.NewFromInt(80),
			Seller:    bot,
			ExpiresAt: time.Now().Add(time.Hour).UnixMilli(),
		}
	}
	listings := auction.BuildSnapshot([]market.RawListing{
		owned(1, "minecraft:wheat"),
		owned(2, "minecraft:wheat"),
	}, time.Now())

	v := NewValidator(testConfig(), zaptest.NewLogger(t))
	order, err := v.Validate(auction.CreateListing("WHEAT", 64, 320, false, "gap"), listings, bot)
	assert.Nil(t, order)
	assert.True(t, errors.Is(err, auction.ErrListingCapExceeded), "got %v", err)
}

func TestValidateStandardModeRequiresCommonItem(t *testing.T) {
	cfg := testConfig()
	cfg.VirtualMode = false
	v := NewValidator(cfg, zaptest.NewLogger(t))

	_, err := v.Validate(auction.CreateListing("DIAMOND", 1, 100, false, ""), nil, bot)
	assert.True(t, errors.Is(err, auction.ErrInsufficientInventory))

	order, err := v.Validate(auction.CreateListing("oak log", 16, 60, false, ""), nil, bot)
	require.NoError(t, err)
	assert.Equal(t, items.Kind("OAK_LOG"), order.Kind)
}

func TestInventoryHonoursQuantityCap(t *testing.T) {
	cfg := testConfig()
	cfg.MaxQuantity = 16
	inv := Inventory(cfg)
	assert.IsType(t, VirtualInventory{}, inv)
	assert.True(t, inv.Available("WHEAT", 16))
	assert.False(t, inv.Available("WHEAT", 17))
	assert.False(t, inv.Available("EMERALD", 1))

	cfg.VirtualMode = false
	cfg.MaxQuantity = 0
	inv = Inventory(cfg)
	assert.IsType(t, StandardInventory{}, inv)
	assert.True(t, inv.Available("COBBLESTONE", 64))
	assert.False(t, inv.Available("COBBLESTONE", 65))
	assert.False(t, inv.Available("NETHER_STAR", 1))
}
