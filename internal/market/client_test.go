package market

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSigner struct{}

func (stubSigner) Address() string                 { return "auction1bot" }
func (stubSigner) PubKeyHex() string               { return "02ab" }
func (stubSigner) Sign(msg []byte) ([]byte, error) { return []byte{0xde, 0xad}, nil }

func TestListActiveListingsDecodesWireFormat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/listings", r.URL.Path)
		_, _ = io.WriteString(w, `[{"id":7,"item":{"type":"WHEAT"},"display_name":"Wheat","quantity":32,
			"price":"160.5","seller":{"id":"u1","name":"Steve"},"bidding":true,"expires_at":1700000000000,
			"categories":[{"name":"Farming"}]}]`)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, nil)
	listings, err := c.ListActiveListings(context.Background())
	require.NoError(t, err)
	require.Len(t, listings, 1)
	l := listings[0]
	assert.Equal(t, int64(7), l.ID)
	assert.Equal(t, "WHEAT", l.Item.Type)
	assert.True(t, l.Price.Equal(decimal.RequireFromString("160.5")))
	assert.Equal(t, "Steve", l.Seller.Name)
	assert.True(t, l.Bidding)
	assert.Equal(t, []Category{{Name: "Farming"}}, l.Categories)
}

func TestErrorStatusIncludesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down for maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second, nil).ListActiveListings(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "down for maintenance")
	assert.Contains(t, err.Error(), "status 503")
}

func TestCreateListingSignsAndSendsIdempotencyKey(t *testing.T) {
	var got CreateListingRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/listings", r.URL.Path)
		assert.Equal(t, "cycle-1", r.Header.Get("Idempotency-Key"))
		assert.Equal(t, "auction1bot", r.Header.Get("X-Bot-Address"))
		assert.Equal(t, "dead", r.Header.Get("X-Bot-Signature"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"id":99}`)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, stubSigner{})
	listing, err := c.CreateListing(context.Background(), CreateListingRequest{
		Price:          decimal.NewFromFloat(320),
		AccountID:      "bot",
		Product:        Provider{ID: "default"}.SetupProduct("WHEAT", 64),
		IdempotencyKey: "cycle-1",
	})
	require.NoError(t, err)
	require.NotNil(t, listing)
	assert.Equal(t, int64(99), listing.ID)
	assert.Equal(t, "WHEAT", got.Product.ItemType)
	assert.Equal(t, 64, got.Product.Quantity)
	assert.True(t, got.Price.Equal(decimal.NewFromInt(320)))
}

func TestCreateListingWithDurationNullResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/listings/safe", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.EqualValues(t, 86400000, body["duration_ms"])
		_, _ = io.WriteString(w, "null")
	}))
	defer srv.Close()

	ms := int64(86400000)
	listing, err := New(srv.URL, time.Second, nil).CreateListingWithDuration(context.Background(), SafeListingRequest{
		Price:      decimal.NewFromInt(10),
		DurationMs: &ms,
		ProviderID: "default",
	})
	require.NoError(t, err)
	assert.Nil(t, listing)
}

func TestCreateListingWithoutIDIsNoResult(t *testing.T) {
	for _, reply := range []string{"{}", `{"id":0}`} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, reply)
		}))
		listing, err := New(srv.URL, time.Second, nil).CreateListing(context.Background(), CreateListingRequest{
			Price:     decimal.NewFromInt(10),
			AccountID: "acc-bot",
		})
		srv.Close()
		require.NoError(t, err, reply)
		assert.Nil(t, listing, reply)
	}
}

func TestResolveAccountRejectsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second, nil).ResolveAccount(context.Background(), "missing")
	require.Error(t, err)
}

func TestAccountOwns(t *testing.T) {
	a := Account{ID: "u-1", Name: "AuctionBot"}
	assert.True(t, a.Owns("U-1", "someone else"))
	assert.False(t, a.Owns("u-2", "AuctionBot"))
	assert.True(t, a.Owns("", "AuctionBot"))
	assert.False(t, Account{}.Owns("", ""))
}
