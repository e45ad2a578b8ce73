// Package syncer keeps the local donation state in step with the remote
// service. All donations live in one normalized map keyed by id; the tab
// views only hold ordered id lists over that map, so a status change made
// in one place is visible from every view that still references the id.
package syncer

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"foodbridge/internal/api"
	"foodbridge/internal/donation"
	"foodbridge/internal/logging"
	"foodbridge/internal/query"
)

// View names one paginated listing. Each registered view owns its query
// state and its slice of the normalized store.
type View string

const (
	ViewAll       View = "all"
	ViewAvailable View = "available"
	ViewClaimed   View = "claimed"
	ViewCompleted View = "completed"
)

// Service is the slice of the API client the engine drives.
type Service interface {
	FilterDonations(ctx context.Context, q query.State) (api.Page, error)
	CountByStatus(ctx context.Context, st donation.Status) (int, error)
	CreateDonation(ctx context.Context, d donation.Draft) (donation.Donation, error)
	UpdateDonation(ctx context.Context, id int64, d donation.Draft) (donation.Donation, error)
	DeleteDonation(ctx context.Context, id int64) error
	ClaimDonation(ctx context.Context, id, claimantID int64) (donation.Donation, error)
	CompleteDonation(ctx context.Context, id, claimantID int64) (donation.Donation, error)
}

// Identity supplies the acting user for claim/complete calls and for the
// provisional claimant shown while a claim is in flight.
type Identity interface {
	User() (donation.User, bool)
}

type viewState struct {
	query   query.State
	ids     []int64
	total   int
	pages   int
	loading bool
	err     error

	// gen increments on every new fetch; a response carrying an older
	// generation lost the race and is discarded.
	gen    uint64
	cancel context.CancelFunc
}

// Snapshot is a read-only copy of one view, safe to render from.
type Snapshot struct {
	Items   []donation.Donation
	Query   query.State
	Total   int
	Pages   int
	Loading bool
	Err     error
}

// Engine is the collection synchronizer. Methods are safe for concurrent
// use; fetches and mutations block and are meant to run off the UI loop.
type Engine struct {
	mu  sync.Mutex
	svc Service
	who Identity

	records map[int64]donation.Donation
	views   map[View]*viewState

	counts    donation.Counts
	countsGen uint64
}

// NewEngine builds an engine over the given service and identity. Views
// must be registered before their first fetch.
func NewEngine(svc Service, who Identity) *Engine {
	return &Engine{
		svc:     svc,
		who:     who,
		records: make(map[int64]donation.Donation),
		views:   make(map[View]*viewState),
	}
}

// RegisterView installs a view with its initial query state. Registering
// an existing view resets it.
func (e *Engine) RegisterView(v View, st query.State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if old, ok := e.views[v]; ok && old.cancel != nil {
		old.cancel()
	}
	e.views[v] = &viewState{query: st}
}

// Query returns a copy of the view's query state.
func (e *Engine) Query(v View) query.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if vs, ok := e.views[v]; ok {
		return vs.query
	}
	return query.New()
}

// UpdateQuery applies fn to the view's query state. The caller is expected
// to follow up with FetchPage; the transition itself fetches nothing.
func (e *Engine) UpdateQuery(v View, fn func(*query.State)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if vs, ok := e.views[v]; ok {
		fn(&vs.query)
	}
}

// Snapshot materializes the view: ids resolved against the normalized
// store, dropped silently if the record was deleted underneath.
func (e *Engine) Snapshot(v View) Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	vs, ok := e.views[v]
	if !ok {
		return Snapshot{Query: query.New()}
	}
	items := make([]donation.Donation, 0, len(vs.ids))
	for _, id := range vs.ids {
		if rec, ok := e.records[id]; ok {
			items = append(items, rec)
		}
	}
	return Snapshot{
		Items:   items,
		Query:   vs.query,
		Total:   vs.total,
		Pages:   vs.pages,
		Loading: vs.loading,
		Err:     vs.err,
	}
}

// Record returns the normalized record for id, if present.
func (e *Engine) Record(id int64) (donation.Donation, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, ok := e.records[id]
	return rec, ok
}

// Counts returns the current dashboard counts, speculative drift included.
func (e *Engine) Counts() donation.Counts {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.counts
}

// FetchPage loads the view's current page. Starting a fetch cancels any
// in-flight fetch for the same view; a response that lost the race is
// discarded. On failure the previously shown page is retained and the
// error is recorded on the view.
func (e *Engine) FetchPage(ctx context.Context, v View) error {
	e.mu.Lock()
	vs, ok := e.views[v]
	if !ok {
		e.mu.Unlock()
		return nil
	}
	if vs.cancel != nil {
		vs.cancel()
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	vs.cancel = cancel
	vs.gen++
	gen := vs.gen
	vs.loading = true
	q := vs.query
	e.mu.Unlock()

	defer cancel()
	page, err := e.svc.FilterDonations(fetchCtx, q)

	e.mu.Lock()
	defer e.mu.Unlock()
	if vs.gen != gen {
		// Superseded while in flight.
		logging.SyncDebug("view %s: discarding stale page response (gen %d < %d)", v, gen, vs.gen)
		return nil
	}
	vs.loading = false
	if err != nil {
		vs.err = err
		logging.SyncError("view %s: page fetch failed: %v", v, err)
		return err
	}
	vs.err = nil
	vs.total = page.TotalElements
	vs.pages = page.TotalPages
	vs.ids = vs.ids[:0]
	for _, rec := range page.Items {
		e.records[rec.ID] = rec
		vs.ids = append(vs.ids, rec.ID)
	}
	logging.SyncDebug("view %s: page %d loaded, %d items of %d", v, q.Page, len(page.Items), page.TotalElements)
	return nil
}

// FetchCounts pulls the authoritative per-status totals, one size=1 query
// per status in parallel. Server truth overwrites any speculative drift.
func (e *Engine) FetchCounts(ctx context.Context) error {
	e.mu.Lock()
	e.countsGen++
	gen := e.countsGen
	e.mu.Unlock()

	var fresh donation.Counts
	var freshMu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, st := range donation.AllStatuses {
		g.Go(func() error {
			n, err := e.svc.CountByStatus(gctx, st)
			if err != nil {
				return err
			}
			freshMu.Lock()
			fresh.SetStatus(st, n)
			freshMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logging.SyncError("count refresh failed: %v", err)
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.countsGen != gen {
		return nil
	}
	e.counts = fresh
	return nil
}

// removeFromViewLocked drops id from a view's id list if present, keeping
// the remaining order.
func (e *Engine) removeFromViewLocked(v View, id int64) {
	vs, ok := e.views[v]
	if !ok {
		return
	}
	for i, got := range vs.ids {
		if got == id {
			vs.ids = append(vs.ids[:i], vs.ids[i+1:]...)
			return
		}
	}
}

// prependToViewLocked puts id at the head of a view's list, deduplicating.
func (e *Engine) prependToViewLocked(v View, id int64) {
	vs, ok := e.views[v]
	if !ok {
		return
	}
	e.removeFromViewLocked(v, id)
	vs.ids = append([]int64{id}, vs.ids...)
}

// viewForStatus maps a lifecycle state to its tab view.
func viewForStatus(st donation.Status) View {
	switch st {
	case donation.StatusAvailable:
		return ViewAvailable
	case donation.StatusClaimed:
		return ViewClaimed
	case donation.StatusCompleted:
		return ViewCompleted
	}
	return ViewAll
}
