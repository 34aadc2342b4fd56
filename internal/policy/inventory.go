package policy

import (
	"auctionbot/agent/internal/auction"
	"auctionbot/agent/internal/items"
)

// Availability answers whether the bot can supply quantity units of kind.
type Availability interface {
	Available(kind items.Kind, quantity int) bool
}

// VirtualInventory treats every allowed kind as available up to the cap.
type VirtualInventory struct {
	cfg auction.BotConfig
	cap int
}

func (v VirtualInventory) Available(kind items.Kind, quantity int) bool {
	return v.cfg.Allows(kind) && quantity > 0 && quantity <= v.cap
}

// StandardInventory only supplies common items.
type StandardInventory struct {
	cap int
}

func (s StandardInventory) Available(kind items.Kind, quantity int) bool {
	return items.IsCommon(kind) && quantity > 0 && quantity <= s.cap
}

// Inventory picks the availability policy for the configured mode.
func Inventory(cfg auction.BotConfig) Availability {
	limit := quantityCap(cfg)
	if cfg.VirtualMode {
		return VirtualInventory{cfg: cfg, cap: limit}
	}
	return StandardInventory{cap: limit}
}

func quantityCap(cfg auction.BotConfig) int {
	if cfg.MaxQuantity > 0 && cfg.MaxQuantity < items.MaxStack {
		return cfg.MaxQuantity
	}
	return items.MaxStack
}
