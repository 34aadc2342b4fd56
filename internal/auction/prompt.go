package auction

import (
	"fmt"
	"strings"

	"auctionbot/agent/internal/items"
	"auctionbot/agent/internal/market"
)

const examplesPerKind = 3

// KindSummary aggregates the listings of one item kind.
type KindSummary struct {
	Kind          string
	Count         int
	TotalQuantity int
	AvgUnitPrice  float64
	Listings      []ListingSnapshot
}

// Summarize groups listings by kind in first-seen order.
func Summarize(listings []ListingSnapshot) []KindSummary {
	index := map[string]int{}
	out := []KindSummary{}
	for _, l := range listings {
		i, ok := index[l.Kind]
		if !ok {
			i = len(out)
			index[l.Kind] = i
			out = append(out, KindSummary{Kind: l.Kind})
		}
		out[i].Count++
		out[i].TotalQuantity += l.Quantity
		out[i].Listings = append(out[i].Listings, l)
	}
	for i := range out {
		if out[i].Count == 0 {
			continue
		}
		sum := 0.0
		for _, l := range out[i].Listings {
			sum += l.UnitPrice
		}
		out[i].AvgUnitPrice = sum / float64(out[i].Count)
	}
	return out
}

// CompilePrompt renders the market snapshot and bot limits into the request
// sent to the model. Identical inputs always produce identical text.
func CompilePrompt(listings []ListingSnapshot, bot market.Account, cfg BotConfig) string {
	var b strings.Builder
	summaries := Summarize(listings)
	allowed := allowedKinds(cfg.AllowedItems)
	allowedList := strings.Join(allowed, ", ")

	b.WriteString("Analyze this auction market data and decide whether to create a new listing or wait:\n\n")

	b.WriteString("Current Market Status:\n")
	if len(summaries) == 0 {
		b.WriteString("- No active listings found\n")
	}
	for _, s := range summaries {
		fmt.Fprintf(&b, "- %s: %d listings, %d total items, avg price: %.2f coins/item\n",
			s.Kind, s.Count, s.TotalQuantity, s.AvgUnitPrice)
		for i, l := range s.Listings {
			if i >= examplesPerKind {
				break
			}
			mode := "Fixed"
			if l.Bidding {
				mode = "Bidding"
			}
			fmt.Fprintf(&b, "  * #%d %dx %s @ %.2f/item by %s (%s)\n",
				l.ID, l.Quantity, l.DisplayName, l.UnitPrice, l.Seller, mode)
		}
	}

	b.WriteString("\nBot Configuration:\n")
	fmt.Fprintf(&b, "- Budget: %.2f coins\n", cfg.Budget)
	fmt.Fprintf(&b, "- Available items: %s\n", allowedList)
	fmt.Fprintf(&b, "- Min profit margin: %.2f%%\n", cfg.MinProfitMargin)
	fmt.Fprintf(&b, "- MAX LISTINGS PER ITEM: %d (CRITICAL LIMIT!)\n", cfg.MaxListingsPerItem)

	b.WriteString("\nCURRENT BOT LISTING STATUS:\n")
	for _, kind := range allowed {
		own := CountOwned(listings, bot, kind, false)
		total := 0
		for _, s := range summaries {
			if s.Kind == kind {
				total = s.Count
			}
		}
		status := "AVAILABLE"
		if own >= cfg.MaxListingsPerItem {
			status = "FULL"
		}
		fmt.Fprintf(&b, "- %s: %d/%d listings (%s) [Market total: %d listings]\n",
			kind, own, cfg.MaxListingsPerItem, status, total)
	}

	b.WriteString("\nDECISION RULES:\n")
	b.WriteString("1. NEVER create a listing for items marked as FULL\n")
	fmt.Fprintf(&b, "2. ONLY create listings for items in the available-items list: %s\n", allowedList)
	b.WriteString("3. PREFER items with 0 listings (new market opportunities)\n")
	b.WriteString("4. Consider items with status AVAILABLE but not FULL\n")
	fmt.Fprintf(&b, "5. Ensure a minimum profit margin of %.2f%%\n", cfg.MinProfitMargin)
	b.WriteString("6. Price competitively based on existing market data\n")
	b.WriteString("7. CRITICAL: itemType MUST be from the available-items list, no exceptions!\n")

	b.WriteString("\nRespond with a JSON object containing:\n")
	b.WriteString("- 'action': 'create' or 'wait'\n")
	b.WriteString("- 'itemType': item kind name (e.g., 'DIAMOND', 'IRON_INGOT')\n")
	fmt.Fprintf(&b, "- 'quantity': number of items (1-%d)\n", items.MaxStack)
	b.WriteString("- 'price': total price for the listing (MUST BE A NUMBER, NO MATH EXPRESSIONS!)\n")
	b.WriteString("- 'bidding': true/false for listing type\n")
	b.WriteString("- 'reasoning': explanation of your decision\n")
	b.WriteString("\nIMPORTANT: price MUST be a single calculated number, NOT a math expression like '1.41 * 32 * 1.15'\n")
	b.WriteString("Calculate the final price yourself and provide only the result number!\n")

	b.WriteString("\nExamples:\n")
	b.WriteString(`- Gap opportunity: {"action": "create", "itemType": "WHEAT", "quantity": 64, "price": 320.0, "bidding": false, "reasoning": "WHEAT has no current market presence - opportunity to establish pricing without competition"}` + "\n")
	b.WriteString(`- Existing market: {"action": "create", "itemType": "DIAMOND", "quantity": 8, "price": 1200.0, "bidding": true, "reasoning": "Diamonds are in high demand with limited supply"}`)

	return b.String()
}

func allowedKinds(configured []string) []string {
	out := make([]string, 0, len(configured))
	seen := map[string]bool{}
	for _, raw := range configured {
		kind := strings.ToUpper(strings.TrimSpace(raw))
		if k, ok := items.Resolve(raw); ok {
			kind = string(k)
		}
		if kind == "" || seen[kind] {
			continue
		}
		seen[kind] = true
		out = append(out, kind)
	}
	return out
}
