// Package listview implements the client-side state machine behind the
// paginated, searchable, multi-select user table: page and search state,
// debounced fetches, versioned responses and selection reconciliation.
package listview

import "time"

// Phase is the lifecycle phase of the list view.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseLoaded
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseLoaded:
		return "loaded"
	case PhaseError:
		return "error"
	}
	return "unknown"
}

// Mode selects how fetched pages are merged into the view.
type Mode int

const (
	// ModePaginated keeps exactly one page in view at a time.
	ModePaginated Mode = iota
	// ModeInfinite appends pages as the viewport scrolls.
	ModeInfinite
)

// AllowedRowsPerPage is the fixed set of page sizes the view offers.
var AllowedRowsPerPage = []int{5, 10, 25, 50, 100}

// DefaultRowsPerPage is the initial page size.
const DefaultRowsPerPage = 25

// Debounce intervals for search input. The suggestion path waits longer
// because it also refreshes the autocomplete list.
const (
	SearchDebounce  = 300 * time.Millisecond
	SuggestDebounce = 500 * time.Millisecond
)

// Row is one user record as served by the listing endpoints.
type Row struct {
	ID           int        `json:"id"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Email        string     `json:"email"`
	Gender       string     `json:"gender"`
	Age          int        `json:"age"`
	Country      string     `json:"country"`
	Bio          string     `json:"bio"`
	DOB          *time.Time `json:"dob"`
	Notification string     `json:"notification"`
}

// State is a snapshot of the list view. The controller owns the live copy;
// snapshots are safe to read from any goroutine.
type State struct {
	Phase       Phase
	Page        int // zero-based
	RowsPerPage int
	SearchTerm  string
	Rows        []Row
	TotalRows   int
	SelectedIDs []int // ascending; always a subset of loaded row ids
	HasMore     bool
	Err         error
}

// Selected reports whether the row id is in the selection set.
func (s State) Selected(id int) bool {
	for _, v := range s.SelectedIDs {
		if v == id {
			return true
		}
	}
	return false
}

func rowsPerPageAllowed(n int) bool {
	for _, v := range AllowedRowsPerPage {
		if v == n {
			return true
		}
	}
	return false
}
