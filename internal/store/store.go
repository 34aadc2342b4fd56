package store

import (
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"auctionbot/agent/internal/auction"
)

const shardCount = 16

type shard struct {
	mu      sync.RWMutex
	entries map[int64]auction.ListingSnapshot
}

// WorkingSet caches the most recent snapshot of every observed listing. Each
// shard has its own lock so stats readers never wait on a whole cycle.
type WorkingSet struct {
	shards [shardCount]*shard
}

func NewWorkingSet() *WorkingSet {
	ws := &WorkingSet{}
	for i := range ws.shards {
		ws.shards[i] = &shard{entries: map[int64]auction.ListingSnapshot{}}
	}
	return ws
}

func (ws *WorkingSet) shardFor(id int64) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strconv.FormatInt(id, 10)))
	return ws.shards[h.Sum32()%shardCount]
}

func (ws *WorkingSet) Put(s auction.ListingSnapshot) {
	sh := ws.shardFor(s.ID)
	sh.mu.Lock()
	sh.entries[s.ID] = s
	sh.mu.Unlock()
}

func (ws *WorkingSet) Get(id int64) (auction.ListingSnapshot, bool) {
	sh := ws.shardFor(id)
	sh.mu.RLock()
	s, ok := sh.entries[id]
	sh.mu.RUnlock()
	return s, ok
}

func (ws *WorkingSet) Delete(id int64) {
	sh := ws.shardFor(id)
	sh.mu.Lock()
	delete(sh.entries, id)
	sh.mu.Unlock()
}

func (ws *WorkingSet) Len() int {
	n := 0
	for _, sh := range ws.shards {
		sh.mu.RLock()
		n += len(sh.entries)
		sh.mu.RUnlock()
	}
	return n
}

// Range calls fn for every entry until fn returns false. fn must not call
// back into the working set.
func (ws *WorkingSet) Range(fn func(auction.ListingSnapshot) bool) {
	for _, sh := range ws.shards {
		sh.mu.RLock()
		for _, s := range sh.entries {
			if !fn(s) {
				sh.mu.RUnlock()
				return
			}
		}
		sh.mu.RUnlock()
	}
}

// Purge drops entries whose listing ended more than retention before now and
// returns how many were removed.
func (ws *WorkingSet) Purge(now time.Time, retention time.Duration) int {
	removed := 0
	for _, sh := range ws.shards {
		sh.mu.Lock()
		for id, s := range sh.entries {
			if now.Sub(s.ExpiresAt()) > retention {
				delete(sh.entries, id)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

// Receipt records one listing attempt made by the bot.
type Receipt struct {
	CycleID   string
	ListingID int64
	Kind      string
	Quantity  int
	Price     float64
	Created   bool
	Reason    string
	AttemptAt time.Time
}

// Ledger is the in-memory record of listing attempts, keyed by cycle.
type Ledger struct {
	mu       sync.Mutex
	receipts []Receipt
	byCycle  map[string]int
	limit    int
}

func NewLedger(limit int) *Ledger {
	if limit <= 0 {
		limit = 256
	}
	return &Ledger{byCycle: map[string]int{}, limit: limit}
}

// Reserve claims cycleID for a single attempt. It returns false when the
// cycle already attempted a listing.
func (l *Ledger) Reserve(cycleID string, at time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.byCycle[cycleID]; ok {
		return false
	}
	l.receipts = append(l.receipts, Receipt{CycleID: cycleID, AttemptAt: at})
	if len(l.receipts) > l.limit {
		l.receipts = l.receipts[len(l.receipts)-l.limit:]
	}
	l.reindex()
	return true
}

// Complete fills in the outcome of a reserved attempt.
func (l *Ledger) Complete(r Receipt) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i, ok := l.byCycle[r.CycleID]; ok {
		at := l.receipts[i].AttemptAt
		l.receipts[i] = r
		if r.AttemptAt.IsZero() {
			l.receipts[i].AttemptAt = at
		}
	}
}

func (l *Ledger) reindex() {
	l.byCycle = make(map[string]int, len(l.receipts))
	for i, r := range l.receipts {
		l.byCycle[r.CycleID] = i
	}
}

func (l *Ledger) Created() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, r := range l.receipts {
		if r.Created {
			n++
		}
	}
	return n
}

func (l *Ledger) Receipts() []Receipt {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Receipt, len(l.receipts))
	copy(out, l.receipts)
	return out
}
