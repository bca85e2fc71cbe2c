package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultHighlightWindow is how long the recent-change set stays populated.
const DefaultHighlightWindow = 5 * time.Second

// DefaultChangeLogLimit bounds the per-site change log.
const DefaultChangeLogLimit = 200

var (
	ErrItemNotFound  = errors.New("boq item not found")
	ErrNotOverridden = errors.New("boq item has no manual override")
)

// Edit describes the input change that triggered a recompute.
type Edit struct {
	Field    string `json:"field"`
	OldValue any    `json:"oldValue"`
	NewValue any    `json:"newValue"`
}

// Input is the immutable data a recompute reads.
type Input struct {
	Cells     []RawCellRecord `json:"cells"`
	PowerCalc *PowerCalc      `json:"powerCalc"`
}

// Stored is the persisted state a controller is hydrated from.
type Stored struct {
	Items     []BOQItem
	ChangeLog []ChangeLogEntry
	Input     Input
}

// Publisher receives every published snapshot together with the input it
// was derived from. It runs inside the controller's serialized section, so
// calls arrive in publish order.
type Publisher func(snap Snapshot, in Input) error

// ChangeLogEntry summarizes one edit. ItemsChanged counts added, changed
// and removed rule items.
type ChangeLogEntry struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Field        string    `json:"field"`
	OldValue     any       `json:"oldValue"`
	NewValue     any       `json:"newValue"`
	ItemsChanged int       `json:"itemsChanged"`
}

// Snapshot is a published, read-only view of a site's BOQ state.
type Snapshot struct {
	SiteID         string           `json:"siteId"`
	Items          []BOQItem        `json:"items"`
	RecentChanges  []string         `json:"recentChanges"`
	ChangeLog      []ChangeLogEntry `json:"changeLog"`
	Classification Classification   `json:"classification"`
	MountGroups    []MountGroup     `json:"mountGroups"`
	Warnings       []Warning        `json:"warnings"`
	ComputedAt     time.Time        `json:"computedAt,omitzero"`
}

// IsRecent reports whether id is in the recent-change set.
func (s Snapshot) IsRecent(id string) bool {
	return slices.Contains(s.RecentChanges, id)
}

// RecomputeObserver receives per-pass measurements.
type RecomputeObserver interface {
	ObserveRecompute(outcome string, d time.Duration, itemsChanged int)
	ObserveRuleEmitted(rule string, n int)
}

// Recompute outcomes reported to the observer.
const (
	OutcomeOK        = "ok"
	OutcomeCancelled = "cancelled"
	OutcomeError     = "error"
)

type nopObserver struct{}

func (nopObserver) ObserveRecompute(string, time.Duration, int) {}
func (nopObserver) ObserveRuleEmitted(string, int)              {}

// Option configures a Controller.
type Option func(*Controller)

func WithHighlightWindow(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.window = d
		}
	}
}

func WithChangeLogLimit(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.logLimit = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

func WithRegistry(r Registry) Option {
	return func(c *Controller) { c.registry = r }
}

func WithCatalog(cat Catalog) Option {
	return func(c *Controller) { c.catalog = cat }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

func WithObserver(o RecomputeObserver) Option {
	return func(c *Controller) {
		if o != nil {
			c.obs = o
		}
	}
}

// WithPublisher registers fn to be called after every publish. A publisher
// error is logged; the in-memory state stays authoritative.
func WithPublisher(fn Publisher) Option {
	return func(c *Controller) { c.publish = fn }
}

// Controller owns the live BOQ of one site. Passes are serialized by runMu;
// published state is guarded by mu and only ever replaced, never mutated.
type Controller struct {
	siteID   string
	window   time.Duration
	logLimit int
	now      func() time.Time
	registry Registry
	catalog  Catalog
	log      *zap.Logger
	obs      RecomputeObserver
	publish  Publisher

	runMu sync.Mutex

	mu         sync.Mutex
	items      []BOQItem
	recent     []string
	changeLog  []ChangeLogEntry
	input      Input
	site       SiteInput
	warnings   []Warning
	computedAt time.Time
	timer      *time.Timer
	timerGen   uint64
	closed     bool
}

// NewController creates a controller with an empty BOQ.
func NewController(siteID string, opts ...Option) *Controller {
	c := &Controller{
		siteID:   siteID,
		window:   DefaultHighlightWindow,
		logLimit: DefaultChangeLogLimit,
		now:      time.Now,
		registry: DefaultRegistry(),
		log:      zap.NewNop(),
		obs:      nopObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With(zap.String("site", siteID))
	return c
}

// SiteID returns the site this controller serves.
func (c *Controller) SiteID() string { return c.siteID }

// Snapshot returns the currently published state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		SiteID:         c.siteID,
		Items:          slices.Clone(c.items),
		RecentChanges:  slices.Clone(c.recent),
		ChangeLog:      slices.Clone(c.changeLog),
		Classification: c.site.Classification,
		MountGroups:    slices.Clone(c.site.MountGroups),
		Warnings:       slices.Clone(c.warnings),
		ComputedAt:     c.computedAt,
	}
}

// Input returns the input of the last published pass.
func (c *Controller) Input() Input {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input
}

// Load hydrates persisted state. Nothing is logged, highlighted or
// published.
func (c *Controller) Load(s Stored) {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = slices.Clone(s.Items)
	c.input = Input{Cells: slices.Clone(s.Input.Cells), PowerCalc: s.Input.PowerCalc}
	c.changeLog = slices.Clone(s.ChangeLog)
	if len(c.changeLog) > c.logLimit {
		c.changeLog = c.changeLog[:c.logLimit]
	}
	c.recent = nil
}

// Recompute re-derives the whole rule BOQ from in, keeps manual-override
// items verbatim, diffs by id against the published items and publishes the
// result. If ctx is done before publish, the pass is discarded and the
// previous state stays in place.
func (c *Controller) Recompute(ctx context.Context, edit Edit, in Input) (Snapshot, error) {
	return c.RecomputeWith(ctx, func(Input) (Edit, Input, error) { return edit, in, nil })
}

// RecomputeWith is Recompute with the input derived from the last published
// input. next runs after earlier passes have published, so partial edits
// merge against current state rather than a stale read.
func (c *Controller) RecomputeWith(ctx context.Context, next func(last Input) (Edit, Input, error)) (Snapshot, error) {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	edit, in, err := next(c.Input())
	if err != nil {
		return c.Snapshot(), err
	}
	return c.recomputeLocked(ctx, edit, in, "")
}

// recomputeLocked runs one pass. An item whose id is drop is left out of
// the carried-over set, which is how a cleared override falls back to its
// rule value. Nothing is visible to readers until the final swap.
func (c *Controller) recomputeLocked(ctx context.Context, edit Edit, in Input, drop string) (Snapshot, error) {
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return c.discard(start, err)
	}

	site, err := BuildSiteInput(in.Cells)
	if err != nil {
		c.obs.ObserveRecompute(OutcomeError, time.Since(start), 0)
		c.log.Error("recompute failed", zap.String("field", edit.Field), zap.Error(err))
		return c.Snapshot(), fmt.Errorf("recompute site %s: %w", c.siteID, err)
	}
	ev := c.registry.Evaluate(site, in.PowerCalc)
	fresh := EnrichItems(ev.Items, c.catalog)

	c.mu.Lock()
	prevItems := c.items
	c.mu.Unlock()

	overrides := make([]BOQItem, 0)
	overrideIDs := make(map[string]bool)
	prev := make(map[string]BOQItem, len(prevItems))
	for _, it := range prevItems {
		if it.ID == drop {
			continue
		}
		if it.ManualOverride {
			overrides = append(overrides, it)
			overrideIDs[it.ID] = true
			continue
		}
		prev[it.ID] = it
	}

	ts := c.now()
	next := make([]BOQItem, 0, len(fresh)+len(overrides))
	var recent []string
	changed := 0
	for _, it := range fresh {
		if overrideIDs[it.ID] {
			continue
		}
		old, ok := prev[it.ID]
		switch {
		case !ok:
			it.IsNew = true
			it.ChangedAt = ts
			recent = append(recent, it.ID)
			changed++
		case old.Quantity != it.Quantity:
			q := old.Quantity
			it.PreviousQuantity = &q
			it.ChangedAt = ts
			recent = append(recent, it.ID)
			changed++
		}
		delete(prev, it.ID)
		next = append(next, it)
	}
	changed += len(prev)
	next = append(next, overrides...)

	warnings := CrossCheck(site, in.PowerCalc, next)

	if err := ctx.Err(); err != nil {
		return c.discard(start, err)
	}

	c.mu.Lock()
	c.items = next
	c.input = in
	c.site = site
	c.warnings = warnings
	c.computedAt = ts
	c.recent = recent
	c.appendLogLocked(ChangeLogEntry{
		ID:           uuid.NewString(),
		Timestamp:    ts,
		Field:        edit.Field,
		OldValue:     edit.OldValue,
		NewValue:     edit.NewValue,
		ItemsChanged: changed,
	})
	c.scheduleExpiryLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	d := time.Since(start)
	c.obs.ObserveRecompute(OutcomeOK, d, changed)
	for _, rc := range ev.Counts {
		c.obs.ObserveRuleEmitted(rc.Rule, rc.Emitted)
	}
	c.log.Info("boq recomputed",
		zap.String("field", edit.Field),
		zap.Int("items", len(next)),
		zap.Int("items_changed", changed),
		zap.Int("warnings", len(warnings)),
		zap.Duration("duration", d),
	)
	c.emit(snap, in)
	return snap, nil
}

// emit hands a published snapshot to the publisher. Callers hold runMu.
func (c *Controller) emit(snap Snapshot, in Input) {
	if c.publish == nil {
		return
	}
	if err := c.publish(snap, in); err != nil {
		c.log.Error("publish failed", zap.Error(err))
	}
}

func (c *Controller) discard(start time.Time, err error) (Snapshot, error) {
	c.obs.ObserveRecompute(OutcomeCancelled, time.Since(start), 0)
	c.log.Debug("recompute discarded", zap.Error(err))
	return c.Snapshot(), err
}

// Override replaces an item's quantity and marks it manual. Later
// recomputes never touch it.
func (c *Controller) Override(id string, quantity float64) (Snapshot, error) {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	c.mu.Lock()

	idx := slices.IndexFunc(c.items, func(it BOQItem) bool { return it.ID == id })
	if idx < 0 {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, fmt.Errorf("override %s: %w", id, ErrItemNotFound)
	}
	ts := c.now()
	next := slices.Clone(c.items)
	it := next[idx]
	old := it.Quantity
	it.Quantity = quantity
	it.ManualOverride = true
	it.PreviousQuantity = &old
	it.IsNew = false
	it.ChangedAt = ts
	next[idx] = it

	c.items = next
	c.recent = []string{id}
	c.appendLogLocked(ChangeLogEntry{
		ID:           uuid.NewString(),
		Timestamp:    ts,
		Field:        "override:" + id,
		OldValue:     old,
		NewValue:     quantity,
		ItemsChanged: 1,
	})
	c.scheduleExpiryLocked()
	snap, in := c.snapshotLocked(), c.input
	c.mu.Unlock()

	c.log.Info("boq item overridden", zap.String("item", id), zap.Float64("quantity", quantity))
	c.emit(snap, in)
	return snap, nil
}

// AddManualItem appends a user-entered line. Manual lines are always
// override items.
func (c *Controller) AddManualItem(r RuleResult) (Snapshot, error) {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	c.mu.Lock()

	ts := c.now()
	it := BOQItem{
		ID:             "manual-" + uuid.NewString(),
		RuleResult:     r,
		Rule:           "manual",
		ManualOverride: true,
		IsNew:          true,
		ChangedAt:      ts,
	}
	c.items = append(slices.Clone(c.items), it)
	c.recent = []string{it.ID}
	c.appendLogLocked(ChangeLogEntry{
		ID:           uuid.NewString(),
		Timestamp:    ts,
		Field:        "manual:" + r.ProductCode,
		NewValue:     r.Quantity,
		ItemsChanged: 1,
	})
	c.scheduleExpiryLocked()
	snap, in := c.snapshotLocked(), c.input
	c.mu.Unlock()

	c.log.Info("manual boq item added", zap.String("item", it.ID), zap.String("product", r.ProductCode))
	c.emit(snap, in)
	return snap, nil
}

// ClearOverride drops the override on id and recomputes from the last
// published input so the rule value comes back. Manual items are removed
// outright. If the pass fails or ctx is cancelled the override stays.
func (c *Controller) ClearOverride(ctx context.Context, id string) (Snapshot, error) {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	c.mu.Lock()
	idx := slices.IndexFunc(c.items, func(it BOQItem) bool { return it.ID == id })
	if idx < 0 {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, fmt.Errorf("clear override %s: %w", id, ErrItemNotFound)
	}
	if !c.items[idx].ManualOverride {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, fmt.Errorf("clear override %s: %w", id, ErrNotOverridden)
	}
	old, in := c.items[idx].Quantity, c.input
	c.mu.Unlock()

	return c.recomputeLocked(ctx, Edit{Field: "override:" + id, OldValue: old}, in, id)
}

func (c *Controller) appendLogLocked(e ChangeLogEntry) {
	log := make([]ChangeLogEntry, 0, min(len(c.changeLog)+1, c.logLimit))
	log = append(log, e)
	log = append(log, c.changeLog...)
	if len(log) > c.logLimit {
		log = log[:c.logLimit]
	}
	c.changeLog = log
}

// scheduleExpiryLocked replaces any pending expiry with one for the current
// recent set. The generation check drops a timer that fired while a newer
// edit was being published.
func (c *Controller) scheduleExpiryLocked() {
	c.timerGen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if len(c.recent) == 0 || c.closed {
		return
	}
	gen := c.timerGen
	c.timer = time.AfterFunc(c.window, func() { c.expire(gen) })
}

func (c *Controller) expire(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.timerGen {
		return
	}
	c.recent = nil
	c.timer = nil
}

// Close stops the highlight timer.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.timerGen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// Pool hands out one controller per site.
type Pool struct {
	mu      sync.Mutex
	opts    []Option
	entries map[string]*poolEntry
	closed  bool
}

// poolEntry is a controller that may still be loading. ready is closed once
// c or err is set.
type poolEntry struct {
	ready chan struct{}
	c     *Controller
	err   error
}

func NewPool(opts ...Option) *Pool {
	return &Pool{opts: opts, entries: make(map[string]*poolEntry)}
}

// Get returns the site's controller, creating it on first use. created is
// true when the caller should hydrate it with Load.
func (p *Pool) Get(siteID string) (c *Controller, created bool) {
	c, created, _ = p.acquire(siteID, nil, nil)
	return c, created
}

// GetOrLoad returns the site's controller. A new controller is hydrated
// from load before any other caller can see it; if load fails the
// controller is discarded. opts apply on top of the pool's options and only
// when the controller is created by this call.
func (p *Pool) GetOrLoad(siteID string, load func() (Stored, error), opts ...Option) (*Controller, error) {
	c, _, err := p.acquire(siteID, load, opts)
	return c, err
}

// acquire registers a placeholder under p.mu and runs load outside it, so a
// slow load only blocks callers for the same site.
func (p *Pool) acquire(siteID string, load func() (Stored, error), opts []Option) (*Controller, bool, error) {
	p.mu.Lock()
	if e, ok := p.entries[siteID]; ok {
		p.mu.Unlock()
		<-e.ready
		return e.c, false, e.err
	}
	e := &poolEntry{ready: make(chan struct{})}
	p.entries[siteID] = e
	p.mu.Unlock()
	defer close(e.ready)

	c := NewController(siteID, append(slices.Clone(p.opts), opts...)...)
	if load != nil {
		s, err := load()
		if err != nil {
			c.Close()
			e.err = fmt.Errorf("load site %s: %w", siteID, err)
			p.mu.Lock()
			if p.entries[siteID] == e {
				delete(p.entries, siteID)
			}
			p.mu.Unlock()
			return nil, false, e.err
		}
		c.Load(s)
	}

	p.mu.Lock()
	if p.closed {
		c.Close()
	}
	e.c = c
	p.mu.Unlock()
	return c, true, nil
}

// Close stops every controller's timer. Controllers still loading are
// closed when their load finishes.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	for id, e := range p.entries {
		if e.c != nil {
			e.c.Close()
		}
		delete(p.entries, id)
	}
}
