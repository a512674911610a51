package listview

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// ListPage is one window of rows plus the total count matching the
// active filter.
type ListPage struct {
	Rows      []Row
	TotalRows int
}

// QueryClient is the network boundary the controller drives. page is
// 1-based at this boundary, matching the listing endpoints.
type QueryClient interface {
	ListRows(ctx context.Context, page, rowsPerPage int) (*ListPage, error)
	SearchRows(ctx context.Context, searchTerm string, page, rowsPerPage int) (*ListPage, error)
	DeleteRow(ctx context.Context, id int) error
	DeleteRows(ctx context.Context, ids []int) error
	Autocomplete(ctx context.Context, searchTerm string) ([]Row, error)
}

// ErrRowsPerPage is returned for a page size outside AllowedRowsPerPage.
var ErrRowsPerPage = errors.New("listview: rows per page not in allowed set")

// Option configures a Controller.
type Option func(*Controller)

// WithMode selects paginated or infinite-scroll merging.
func WithMode(m Mode) Option {
	return func(c *Controller) { c.mode = m }
}

// WithRowsPerPage sets the initial page size. Values outside the allowed
// set are ignored.
func WithRowsPerPage(n int) Option {
	return func(c *Controller) {
		if rowsPerPageAllowed(n) {
			c.rowsPerPage = n
		}
	}
}

// WithOnChange registers a callback invoked with a state snapshot after
// every transition. Called outside the controller lock.
func WithOnChange(fn func(State)) Option {
	return func(c *Controller) { c.onChange = fn }
}

// WithSuggestions toggles the debounced autocomplete refresh.
func WithSuggestions(enabled bool) Option {
	return func(c *Controller) { c.suggestEnabled = enabled }
}

// WithDebounce overrides the search and suggestion quiescence windows.
func WithDebounce(search, suggest time.Duration) Option {
	return func(c *Controller) {
		c.searchDelay = search
		c.suggestDelay = suggest
	}
}

// Controller owns the list view state exclusively. Presentation code reads
// snapshots and feeds intents in; every mutation happens under one lock, so
// transitions are serialized the way a single-threaded event loop would be.
//
// Every fetch carries the state version it was issued for; a response is
// applied only while its version is still current, so a slow early reply
// can never overwrite the effect of a newer one.
type Controller struct {
	client QueryClient

	mu          sync.Mutex
	ctx         context.Context
	mode        Mode
	phase       Phase
	page        int // zero-based
	rowsPerPage int
	searchTerm  string
	rows        []Row
	totalRows   int
	selected    map[int]struct{}
	hasMore     bool
	err         error
	version     uint64
	suggestions []Row

	suggestEnabled bool
	searchDelay    time.Duration
	suggestDelay   time.Duration
	search         *debouncer
	suggest        *debouncer
	onChange       func(State)
}

// NewController builds an idle controller; call Mount to load the first page.
func NewController(client QueryClient, opts ...Option) *Controller {
	c := &Controller{
		client:         client,
		ctx:            context.Background(),
		mode:           ModePaginated,
		phase:          PhaseIdle,
		rowsPerPage:    DefaultRowsPerPage,
		selected:       make(map[int]struct{}),
		hasMore:        true,
		suggestEnabled: true,
		searchDelay:    SearchDebounce,
		suggestDelay:   SuggestDebounce,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.search = newDebouncer(c.searchDelay)
	c.suggest = newDebouncer(c.suggestDelay)
	return c
}

// Mount starts the controller: Idle -> Loading, fetching the first page.
// ctx bounds the lifetime of every fetch the controller issues.
func (c *Controller) Mount(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseIdle {
		return
	}
	if ctx != nil {
		c.ctx = ctx
	}
	c.beginFetch()
}

// Close drops any pending debounced work.
func (c *Controller) Close() {
	c.search.Cancel()
	c.suggest.Cancel()
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Suggestions returns the last autocomplete results.
func (c *Controller) Suggestions() []Row {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Row, len(c.suggestions))
	copy(out, c.suggestions)
	return out
}

// SetPage moves the view to a zero-based page and refetches. Pages past
// the last one are legal and come back empty.
func (c *Controller) SetPage(page int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if page < 0 || page == c.page || c.phase == PhaseIdle {
		return
	}
	c.page = page
	c.beginFetch()
}

// SetRowsPerPage changes the page size, resets to the first page and
// discards any accumulated rows.
func (c *Controller) SetRowsPerPage(n int) error {
	if !rowsPerPageAllowed(n) {
		return ErrRowsPerPage
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if n == c.rowsPerPage || c.phase == PhaseIdle {
		return nil
	}
	c.rowsPerPage = n
	c.page = 0
	c.hasMore = true
	c.rows = nil
	c.beginFetch()
	return nil
}

// SetSearchTerm records the typed term and schedules a debounced fetch.
// Clearing the term is a reset, not a refinement, and fetches immediately.
func (c *Controller) SetSearchTerm(term string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == PhaseIdle {
		return
	}
	c.searchTerm = term
	c.page = 0
	c.hasMore = true
	// Invalidate any in-flight fetch for the superseded window
	c.version++

	if term == "" {
		c.search.Cancel()
		c.suggest.Cancel()
		c.suggestions = nil
		c.beginFetch()
		return
	}

	c.search.Trigger(func() { c.fireSearch(term) })
	if c.suggestEnabled {
		c.suggest.Trigger(func() { c.fireSuggest(term) })
	}
}

// fireSearch runs when the search input has quiesced.
func (c *Controller) fireSearch(term string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.searchTerm != term {
		// A newer keystroke superseded this trigger
		return
	}
	c.beginFetch()
}

// fireSuggest refreshes the autocomplete list. Failures are non-fatal to
// the listing and leave the previous suggestions in place.
func (c *Controller) fireSuggest(term string) {
	c.mu.Lock()
	if c.searchTerm != term {
		c.mu.Unlock()
		return
	}
	ctx := c.ctx
	c.mu.Unlock()

	values, err := c.client.Autocomplete(ctx, term)
	if err != nil {
		return
	}

	c.mu.Lock()
	if c.searchTerm == term {
		c.suggestions = values
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// ToggleRow flips the selection of a loaded row. Unknown ids are ignored:
// selection is scoped to currently loaded rows.
func (c *Controller) ToggleRow(id int) {
	c.mu.Lock()
	loaded := false
	for _, r := range c.rows {
		if r.ID == id {
			loaded = true
			break
		}
	}
	if !loaded {
		c.mu.Unlock()
		return
	}
	if _, ok := c.selected[id]; ok {
		delete(c.selected, id)
	} else {
		c.selected[id] = struct{}{}
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// ToggleSelectAll selects every loaded row, or clears the selection when
// all loaded rows are already selected.
func (c *Controller) ToggleSelectAll() {
	c.mu.Lock()
	if len(c.rows) > 0 && len(c.selected) == len(c.rows) {
		c.selected = make(map[int]struct{})
	} else {
		c.selected = make(map[int]struct{}, len(c.rows))
		for _, r := range c.rows {
			c.selected[r.ID] = struct{}{}
		}
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// DeleteRow deletes one row, clears it from the selection and refetches
// the current page. The page does not auto-decrement when the last row of
// the final page is removed.
func (c *Controller) DeleteRow(id int) {
	c.mu.Lock()
	if c.phase == PhaseIdle {
		c.mu.Unlock()
		return
	}
	c.phase = PhaseLoading
	c.err = nil
	c.version++
	ctx := c.ctx
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)

	go func() {
		err := c.client.DeleteRow(ctx, id)
		c.mu.Lock()
		if err != nil {
			c.phase = PhaseError
			c.err = err
			snap := c.snapshotLocked()
			c.mu.Unlock()
			c.notify(snap)
			return
		}
		delete(c.selected, id)
		c.beginFetch()
		c.mu.Unlock()
	}()
}

// DeleteSelected bulk-deletes the selected rows in one call, clears the
// selection and refetches the current page.
func (c *Controller) DeleteSelected() {
	c.mu.Lock()
	if c.phase == PhaseIdle || len(c.selected) == 0 {
		c.mu.Unlock()
		return
	}
	ids := selectedIDs(c.selected)
	c.phase = PhaseLoading
	c.err = nil
	c.version++
	ctx := c.ctx
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)

	go func() {
		err := c.client.DeleteRows(ctx, ids)
		c.mu.Lock()
		if err != nil {
			c.phase = PhaseError
			c.err = err
			snap := c.snapshotLocked()
			c.mu.Unlock()
			c.notify(snap)
			return
		}
		for _, id := range ids {
			delete(c.selected, id)
		}
		c.beginFetch()
		c.mu.Unlock()
	}()
}

// ScrollHitBottom advances to the next page in infinite-scroll mode.
// Ignored while a fetch is in flight, so one scroll gesture cannot
// trigger twice, and once the filtered set is exhausted.
func (c *Controller) ScrollHitBottom() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != ModeInfinite || c.phase != PhaseLoaded || !c.hasMore {
		return
	}
	c.page++
	c.beginFetch()
}

// Reload refetches the current window, e.g. after an error.
func (c *Controller) Reload() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == PhaseIdle {
		return
	}
	c.beginFetch()
}

// beginFetch invalidates any in-flight fetch, marks the view Loading and
// starts a request for the current window. Caller must hold c.mu.
func (c *Controller) beginFetch() {
	c.version++
	version := c.version
	c.phase = PhaseLoading
	c.err = nil
	page, rowsPerPage, term := c.page, c.rowsPerPage, c.searchTerm
	ctx := c.ctx
	go c.fetch(ctx, version, page, rowsPerPage, term)
}

func (c *Controller) fetch(ctx context.Context, version uint64, page, rowsPerPage int, term string) {
	var result *ListPage
	var err error
	if term == "" {
		result, err = c.client.ListRows(ctx, page+1, rowsPerPage)
	} else {
		result, err = c.client.SearchRows(ctx, term, page+1, rowsPerPage)
	}

	c.mu.Lock()
	if version != c.version {
		// Stale response: the window was redefined after this fetch left
		c.mu.Unlock()
		return
	}
	if err != nil {
		// Rows are retained so the view never blanks on failure
		c.phase = PhaseError
		c.err = err
	} else {
		if c.mode == ModeInfinite && page > 0 {
			c.rows = append(c.rows, result.Rows...)
		} else {
			c.rows = result.Rows
		}
		c.totalRows = result.TotalRows
		c.hasMore = result.TotalRows > (page+1)*rowsPerPage
		c.phase = PhaseLoaded
		c.err = nil
		c.reconcileSelection()
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// reconcileSelection drops selected ids that are no longer loaded, keeping
// the invariant SelectedIDs ⊆ loaded row ids. Caller must hold c.mu.
func (c *Controller) reconcileSelection() {
	if len(c.selected) == 0 {
		return
	}
	loaded := make(map[int]struct{}, len(c.rows))
	for _, r := range c.rows {
		loaded[r.ID] = struct{}{}
	}
	for id := range c.selected {
		if _, ok := loaded[id]; !ok {
			delete(c.selected, id)
		}
	}
}

func (c *Controller) snapshotLocked() State {
	rows := make([]Row, len(c.rows))
	copy(rows, c.rows)
	return State{
		Phase:       c.phase,
		Page:        c.page,
		RowsPerPage: c.rowsPerPage,
		SearchTerm:  c.searchTerm,
		Rows:        rows,
		TotalRows:   c.totalRows,
		SelectedIDs: selectedIDs(c.selected),
		HasMore:     c.hasMore,
		Err:         c.err,
	}
}

func (c *Controller) notify(s State) {
	if c.onChange != nil {
		c.onChange(s)
	}
}

func selectedIDs(set map[int]struct{}) []int {
	ids := make([]int, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
