package ranking

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/okian/podium/pkg/metrics"
)

// Treap-based, in-memory Index implementation.
//
// Ordering: score DESC, then id ASC (deterministic).
// "less" means ranks earlier, so in-order traversal yields the leaderboard
// from best to worst. Every node carries its subtree size, which turns rank
// lookup and rank-range selection into O(log n) walks.

// scoreScale controls fixed-point scaling from float64. Nine decimal places
// keep the 1e-5 reset offsets exact; magnitudes saturate near 9.2e9.
const scoreScale = 1_000_000_000

type scoreFP int64

func toFixedPoint(x float64) (scoreFP, error) {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidScore, x)
	}
	scaled := math.Round(x * scoreScale)
	if scaled >= math.MaxInt64 {
		return scoreFP(math.MaxInt64), nil
	}
	if scaled <= math.MinInt64 {
		return scoreFP(math.MinInt64), nil
	}
	return scoreFP(scaled), nil
}

// toDelta converts an additive update. A non-zero delta that rounds to zero
// is rejected rather than dropped.
func toDelta(x float64) (scoreFP, error) {
	d, err := toFixedPoint(x)
	if err != nil {
		return 0, err
	}
	if d == 0 && x != 0 {
		return 0, fmt.Errorf("%w: delta %v is below resolution %v", ErrInvalidScore, x, 1.0/scoreScale)
	}
	return d, nil
}

func toFloat(x scoreFP) float64 {
	return float64(x) / scoreScale
}

// addSaturating adds b to a, clamping at the int64 bounds.
func addSaturating(a, b scoreFP) scoreFP {
	s := a + b
	if b > 0 && s < a {
		return scoreFP(math.MaxInt64)
	}
	if b < 0 && s > a {
		return scoreFP(math.MinInt64)
	}
	return s
}

// treap node
type node struct {
	id    string
	score scoreFP
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if (aScore, aID) should appear before (bScore, bID)
// in the leaderboard (higher ranks first).
func less(aScore scoreFP, aID string, bScore scoreFP, bID string) bool {
	if aScore != bScore {
		return aScore > bScore // higher score ranks earlier
	}
	return aID < bID // tie-breaker by id asc
}

func rotateRight(y *node) *node {
	x := y.left
	t2 := x.right
	x.right = y
	y.left = t2
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	t2 := y.left
	y.left = x
	x.right = t2
	fix(x)
	fix(y)
	return y
}

func insert(n *node, id string, score scoreFP, prio uint64) *node {
	if n == nil {
		return &node{id: id, score: score, prio: prio, size: 1}
	}
	if less(score, id, n.score, n.id) {
		n.left = insert(n.left, id, score, prio)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, score, prio)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id string, score scoreFP) *node {
	if n == nil {
		return nil
	}
	if score == n.score && id == n.id {
		// Merge children by rotating highest priority up until leaf.
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, score)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, score)
		}
	} else if less(score, id, n.score, n.id) {
		n.left = deleteNode(n.left, id, score)
	} else {
		n.right = deleteNode(n.right, id, score)
	}
	fix(n)
	return n
}

// rankOf returns the 0-based position of (score, id), or -1.
func rankOf(n *node, id string, score scoreFP) int {
	r := 0
	for n != nil {
		switch {
		case n.id == id && n.score == score:
			return r + nsize(n.left)
		case less(score, id, n.score, n.id):
			n = n.left
		default:
			r += nsize(n.left) + 1
			n = n.right
		}
	}
	return -1
}

// collectRange appends the nodes at positions [lo, hi] in rank order.
// base is the position of the leftmost node of the subtree rooted at n.
func collectRange(n *node, lo, hi, base int, out *[]Entry) {
	if n == nil {
		return
	}
	pos := base + nsize(n.left)
	if lo < pos {
		collectRange(n.left, lo, hi, base, out)
	}
	if lo <= pos && pos <= hi {
		*out = append(*out, Entry{ID: n.id, Score: toFloat(n.score), Rank: pos})
	}
	if hi > pos {
		collectRange(n.right, lo, hi, pos+1, out)
	}
}

// TreapIndex is an in-memory Index safe for many concurrent readers.
type TreapIndex struct {
	mu   sync.RWMutex
	root *node
	byID map[string]scoreFP
	seed uint64
	rng  *rand.Rand
}

// NewTreapIndex constructs an empty treap index.
func NewTreapIndex(opts ...Option) *TreapIndex {
	t := &TreapIndex{
		byID: make(map[string]scoreFP),
		seed: rand.Uint64(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.rng = rand.New(rand.NewPCG(t.seed, t.seed>>1|1))
	return t
}

// UpsertAdd implements Index.UpsertAdd in O(log n) expected time.
func (t *TreapIndex) UpsertAdd(ctx context.Context, id string, delta float64) error {
	start := time.Now()
	defer func() {
		metrics.RecordIndexLatency("upsert_add", float64(time.Since(start).Microseconds())/1000)
	}()

	d, err := toDelta(delta)
	if err != nil {
		metrics.RecordErrorByComponent("ranking", "invalid_score")
		return err
	}

	t.mu.Lock()
	old, ok := t.byID[id]
	if ok {
		t.root = deleteNode(t.root, id, old)
	}
	ns := addSaturating(old, d)
	t.byID[id] = ns
	t.root = insert(t.root, id, ns, t.rng.Uint64())
	total := len(t.byID)
	t.mu.Unlock()

	if !ok {
		metrics.UpdateRankedPlayers(total)
	}
	return nil
}

// RangeByRankDesc implements Index.RangeByRankDesc.
func (t *TreapIndex) RangeByRankDesc(ctx context.Context, start, end int) ([]Entry, error) {
	began := time.Now()
	defer func() {
		metrics.RecordIndexLatency("range", float64(time.Since(began).Microseconds())/1000)
	}()

	t.mu.RLock()
	defer t.mu.RUnlock()

	lo, hi, ok := clip(start, end, len(t.byID))
	if !ok {
		return []Entry{}, nil
	}
	out := make([]Entry, 0, hi-lo+1)
	collectRange(t.root, lo, hi, 0, &out)
	return out, nil
}

// ReverseRankOf implements Index.ReverseRankOf in O(log n).
func (t *TreapIndex) ReverseRankOf(ctx context.Context, id string) (int, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	score, ok := t.byID[id]
	if !ok {
		return 0, ErrNotFound
	}
	r := rankOf(t.root, id, score)
	if r < 0 {
		return 0, ErrNotFound
	}
	return r, nil
}

// ScoreOf implements Index.ScoreOf.
func (t *TreapIndex) ScoreOf(ctx context.Context, id string) (float64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	score, ok := t.byID[id]
	if !ok {
		return 0, ErrNotFound
	}
	return toFloat(score), nil
}

// Count returns the number of ranked players.
func (t *TreapIndex) Count(ctx context.Context) (int, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byID), nil
}

// SetScores implements Index.SetScores. Scores are validated before the
// write lock is taken so a bad entry leaves the index unchanged.
func (t *TreapIndex) SetScores(ctx context.Context, entries []Entry) error {
	start := time.Now()
	defer func() {
		metrics.RecordIndexLatency("set_scores", float64(time.Since(start).Microseconds())/1000)
	}()

	fixed := make([]scoreFP, len(entries))
	for i, e := range entries {
		fp, err := toFixedPoint(e.Score)
		if err != nil {
			metrics.RecordErrorByComponent("ranking", "invalid_score")
			return fmt.Errorf("set score for %s: %w", e.ID, err)
		}
		fixed[i] = fp
	}

	t.mu.Lock()
	for i, e := range entries {
		if old, ok := t.byID[e.ID]; ok {
			t.root = deleteNode(t.root, e.ID, old)
		}
		t.byID[e.ID] = fixed[i]
		t.root = insert(t.root, e.ID, fixed[i], t.rng.Uint64())
	}
	total := len(t.byID)
	t.mu.Unlock()

	metrics.UpdateRankedPlayers(total)
	return nil
}
