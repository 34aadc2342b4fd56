package decision

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"auctionbot/agent/internal/auction"
	"auctionbot/agent/internal/llm"
)

type fakeLLM struct {
	reply  string
	err    error
	delay  time.Duration
	prompt llm.Prompt
	calls  int
}

func (f *fakeLLM) Generate(ctx context.Context, prompt llm.Prompt) (string, error) {
	f.calls++
	f.prompt = prompt
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.reply, f.err
}

func (f *fakeLLM) Provider() string { return "fake" }
func (f *fakeLLM) Model() string    { return "fake-1" }

func TestParseReplyCreate(t *testing.T) {
	p, err := ParseReply(`{"action":"create","itemType":"WHEAT","quantity":64,"price":320.0,"bidding":false,"reasoning":"gap"}`)
	require.NoError(t, err)
	assert.Equal(t, auction.CreateListing("WHEAT", 64, 320.0, false, "gap"), p)
}

func TestParseReplyToleratesProse(t *testing.T) {
	p, err := ParseReply("Sure! Here is my decision:\n```json\n{\"action\": \"CREATE\", \"itemType\": \"diamond\", \"quantity\": \"8\", \"price\": \"1200\", \"bidding\": true}\n```\nGood luck.")
	require.NoError(t, err)
	assert.True(t, p.IsCreate())
	assert.Equal(t, "diamond", p.ItemKind)
	assert.Equal(t, 8, p.Quantity)
	assert.InDelta(t, 1200.0, p.Price, 1e-9)
	assert.True(t, p.Bidding)
	assert.Equal(t, "", p.Reason)
}

func TestParseReplyDefaults(t *testing.T) {
	p, err := ParseReply(`{"action":"create"}`)
	require.NoError(t, err)
	assert.Equal(t, auction.CreateListing("", 0, 0, false, ""), p)

	p, err = ParseReply(`{"reasoning":"market saturated"}`)
	require.NoError(t, err)
	assert.Equal(t, auction.NoAction("market saturated"), p)

	p, err = ParseReply(`{"action":" Create ","itemType":"WHEAT","quantity":1,"price":1}`)
	require.NoError(t, err)
	assert.True(t, p.IsCreate())

	p, err = ParseReply(`{"action":"hold","itemType":"WHEAT","quantity":1,"price":1}`)
	require.NoError(t, err)
	assert.False(t, p.IsCreate())
}

func TestParseReplyWithoutBracesIsMalformed(t *testing.T) {
	for _, raw := range []string{"", "no json here", "} backwards {", "{", "}"} {
		_, err := ParseReply(raw)
		require.Error(t, err, raw)
		assert.True(t, errors.Is(err, auction.ErrMalformedResponse), raw)
	}
}

func TestParseReplyInvalidJSONIsMalformed(t *testing.T) {
	_, err := ParseReply(`{"action": create}`)
	require.Error(t, err)
	assert.True(t, errors.Is(err, auction.ErrMalformedResponse))
}

func TestExtractJSONRewritesPriceExpressions(t *testing.T) {
	cases := map[string]string{
		`{"price": 1.41 * 32 * 1.15, "quantity": 32}`:    `{"price": 0.0, "quantity": 32}`,
		`{"price":5*64}`:                                 `{"price": 0.0}`,
		`{"price":"1.41 * 32 * 1.15","action":"create"}`: `{"price": 0.0,"action":"create"}`,
		`{"price": 320.0}`:                               `{"price": 320.0}`,
	}
	for in, want := range cases {
		got, err := ExtractJSON(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestParseReplyArithmeticPriceBecomesZero(t *testing.T) {
	p, err := ParseReply(`{"action":"create","itemType":"WHEAT","quantity":32,"price":"1.41 * 32 * 1.15","bidding":false,"reasoning":"calc"}`)
	require.NoError(t, err)
	assert.True(t, p.IsCreate())
	assert.Equal(t, 0.0, p.Price)
}

func TestDecideReturnsProposalAndSendsSystemInstruction(t *testing.T) {
	f := &fakeLLM{reply: `{"action":"create","itemType":"WHEAT","quantity":64,"price":320.0,"bidding":false,"reasoning":"gap"}`}
	c := New(f, time.Second, zaptest.NewLogger(t))
	d := c.Decide(context.Background(), "market prompt")
	require.NoError(t, d.Err)
	assert.True(t, d.Proposal.IsCreate())
	assert.Equal(t, "market prompt", f.prompt.User)
	assert.Contains(t, f.prompt.System, "valid JSON only")
}

func TestDecideDegradesOnServiceError(t *testing.T) {
	f := &fakeLLM{err: errors.New("connection refused")}
	d := New(f, time.Second, zaptest.NewLogger(t)).Decide(context.Background(), "p")
	require.Error(t, d.Err)
	assert.True(t, errors.Is(d.Err, auction.ErrServiceError))
	assert.False(t, d.Proposal.IsCreate())
	assert.Contains(t, d.Proposal.Reason, "connection refused")
}

func TestDecideHonoursTimeout(t *testing.T) {
	f := &fakeLLM{reply: `{"action":"create"}`, delay: time.Second}
	start := time.Now()
	d := New(f, 20*time.Millisecond, zaptest.NewLogger(t)).Decide(context.Background(), "p")
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.True(t, errors.Is(d.Err, auction.ErrServiceError))
	assert.False(t, d.Proposal.IsCreate())
}

func TestDecideDegradesOnMalformedReply(t *testing.T) {
	f := &fakeLLM{reply: "I think you should wait."}
	d := New(f, time.Second, nil).Decide(context.Background(), "p")
	assert.True(t, errors.Is(d.Err, auction.ErrMalformedResponse))
	assert.Equal(t, "I think you should wait.", d.Raw)
	assert.False(t, d.Proposal.IsCreate())
}

func TestDecideWithoutClient(t *testing.T) {
	d := New(nil, 0, nil).Decide(context.Background(), "p")
	assert.True(t, errors.Is(d.Err, auction.ErrServiceError))
	assert.False(t, d.Proposal.IsCreate())
}

func TestCheck(t *testing.T) {
	ok := &fakeLLM{reply: `{"status": "ok", "message": "test successful"}`}
	require.NoError(t, New(ok, time.Second, nil).Check(context.Background()))

	bad := &fakeLLM{reply: `{"status": "nope"}`}
	require.Error(t, New(bad, time.Second, nil).Check(context.Background()))
}
