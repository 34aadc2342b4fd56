// Package decision turns a compiled market prompt into a typed proposal by
// asking the configured LLM. Every failure degrades to a wait proposal.
package decision

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"auctionbot/agent/internal/auction"
	"auctionbot/agent/internal/llm"
)

const systemInstruction = "You are an expert auction bot. Analyze market data and make strategic listing decisions. " +
	"Always respond with valid JSON only."

const defaultTimeout = 30 * time.Second

// priceExpr matches a price field holding an unevaluated two or three term
// product, quoted or bare.
var priceExpr = regexp.MustCompile(`"price"\s*:\s*"?\s*[0-9.]+\s*\*\s*[0-9.]+(?:\s*\*\s*[0-9.]+)?\s*"?`)

// Decision is the outcome of one model consultation. Proposal is always set;
// Err explains why it degraded to a wait.
type Decision struct {
	Proposal auction.Proposal
	Raw      string
	Err      error
}

type Client struct {
	llm     llm.Client
	timeout time.Duration
	log     *zap.Logger
}

func New(client llm.Client, timeout time.Duration, log *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{llm: client, timeout: timeout, log: log}
}

// Decide sends prompt to the model and parses its reply. It never panics and
// never returns without a proposal.
func (c *Client) Decide(ctx context.Context, prompt string) (d Decision) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: panic during decision: %v", auction.ErrMalformedResponse, r)
			d = Decision{Proposal: auction.NoAction(err.Error()), Raw: d.Raw, Err: err}
		}
	}()

	if c.llm == nil {
		err := fmt.Errorf("%w: no llm configured", auction.ErrServiceError)
		return Decision{Proposal: auction.NoAction(err.Error()), Err: err}
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.llm.Generate(callCtx, llm.Prompt{System: systemInstruction, User: prompt})
	if err != nil {
		err = fmt.Errorf("%w: %s/%s: %v", auction.ErrServiceError, c.llm.Provider(), c.llm.Model(), err)
		c.log.Warn("llm call failed", zap.Error(err))
		return Decision{Proposal: auction.NoAction(err.Error()), Err: err}
	}
	c.log.Debug("llm reply", zap.String("provider", c.llm.Provider()), zap.String("raw", raw))

	proposal, err := ParseReply(raw)
	if err != nil {
		c.log.Warn("llm reply rejected", zap.Error(err))
		return Decision{Proposal: auction.NoAction(err.Error()), Raw: raw, Err: err}
	}
	return Decision{Proposal: proposal, Raw: raw}
}

// Check asks the model to echo a fixed object, verifying credentials and
// connectivity.
func (c *Client) Check(ctx context.Context) error {
	if c.llm == nil {
		return fmt.Errorf("%w: no llm configured", auction.ErrServiceError)
	}
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	raw, err := c.llm.Generate(callCtx, llm.Prompt{
		System: systemInstruction,
		User:   `Respond with this exact JSON: {"status": "ok", "message": "test successful"}`,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", auction.ErrServiceError, err)
	}
	if !strings.Contains(raw, "test successful") {
		return fmt.Errorf("%w: unexpected reply %q", auction.ErrMalformedResponse, raw)
	}
	return nil
}

// ExtractJSON returns the substring between the first '{' and the last '}'
// with arithmetic price expressions replaced by 0.0.
func ExtractJSON(raw string) (string, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < 0 || start >= end {
		return "", fmt.Errorf("%w: no JSON object in reply: %s", auction.ErrMalformedResponse, trimForLog(raw, 120))
	}
	return priceExpr.ReplaceAllString(raw[start:end+1], `"price": 0.0`), nil
}

// ParseReply converts raw model output into a proposal.
func ParseReply(raw string) (auction.Proposal, error) {
	clean, err := ExtractJSON(raw)
	if err != nil {
		return auction.Proposal{}, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(clean), &fields); err != nil {
		return auction.Proposal{}, fmt.Errorf("%w: %v", auction.ErrMalformedResponse, err)
	}

	// "create" in any case counts; anything else is a wait.
	action := strings.ToLower(strings.TrimSpace(asString(fields["action"])))
	reason := asString(fields["reasoning"])
	if action != "create" {
		return auction.NoAction(reason), nil
	}
	return auction.CreateListing(
		strings.TrimSpace(asString(fields["itemType"])),
		asInt(fields["quantity"]),
		asFloat(fields["price"]),
		asBool(fields["bidding"]),
		reason,
	), nil
}

func asString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	text := strings.TrimSpace(string(raw))
	if text == "null" {
		return ""
	}
	return text
}

func asFloat(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return v
		}
	}
	return 0
}

func asInt(raw json.RawMessage) int {
	return int(asFloat(raw))
}

func asBool(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.EqualFold(strings.TrimSpace(s), "true")
	}
	return false
}

func trimForLog(text string, max int) string {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) <= max {
		return trimmed
	}
	return trimmed[:max-3] + "..."
}
