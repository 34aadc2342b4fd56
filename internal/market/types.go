package market

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
)

// Marketplace is the auction house the bot observes and lists into.
type Marketplace interface {
	ListActiveListings(ctx context.Context) ([]RawListing, error)
	ResolveAccount(ctx context.Context, id string) (Account, error)
	DefaultItemProvider(ctx context.Context) (Provider, error)
	// CreateListing lists a prepared product with the marketplace default
	// duration. A nil listing with a nil error means the marketplace declined.
	CreateListing(ctx context.Context, req CreateListingRequest) (*Listing, error)
	// CreateListingWithDuration is the "safe" entry point: the provider pulls
	// the item from the account and the caller picks the duration.
	CreateListingWithDuration(ctx context.Context, req SafeListingRequest) (*Listing, error)
}

type Item struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

type Category struct {
	Name string `json:"name"`
}

type RawListing struct {
	ID          int64           `json:"id"`
	Item        Item            `json:"item"`
	DisplayName string          `json:"display_name"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Seller      Account         `json:"seller"`
	Bidding     bool            `json:"bidding"`
	ExpiresAt   int64           `json:"expires_at"`
	Categories  []Category      `json:"categories"`
}

type Account struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Owns reports whether a listing sold by seller belongs to this account. IDs
// win when both sides carry one; otherwise names are compared.
func (a Account) Owns(sellerID, sellerName string) bool {
	id := strings.TrimSpace(a.ID)
	sid := strings.TrimSpace(sellerID)
	if id != "" && sid != "" {
		return strings.EqualFold(id, sid)
	}
	name := strings.TrimSpace(a.Name)
	return name != "" && name == strings.TrimSpace(sellerName)
}

type Provider struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Product is a synthetic item stack prepared by a provider.
type Product struct {
	ProviderID string `json:"provider_id"`
	ItemType   string `json:"item_type"`
	Quantity   int    `json:"quantity"`
}

func (p Provider) SetupProduct(itemType string, quantity int) Product {
	return Product{ProviderID: p.ID, ItemType: itemType, Quantity: quantity}
}

type Listing struct {
	ID int64 `json:"id"`
}

type CreateListingRequest struct {
	Price     decimal.Decimal `json:"price"`
	AccountID string          `json:"account_id"`
	Product   Product         `json:"product"`
	Bidding   bool            `json:"bidding"`
	// IdempotencyKey is sent as a header, not in the body.
	IdempotencyKey string `json:"-"`
}

type SafeListingRequest struct {
	Price          decimal.Decimal `json:"price"`
	DurationMs     *int64          `json:"duration_ms"`
	AccountID      string          `json:"account_id"`
	ProviderID     string          `json:"provider_id"`
	Bidding        bool            `json:"bidding"`
	IdempotencyKey string          `json:"-"`
}
