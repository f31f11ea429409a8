// Package engine wires the directory screen together: criteria in,
// URL + fetches out, one consistent snapshot back. The screen is the
// single writer of its FilterCriteria, every mutation updates the
// address bar and the in-flight request from the same criteria value
// so the two can never disagree.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/alumninet/directory-finder/pkg/fetch"
	"github.com/alumninet/directory-finder/pkg/paging"
	"github.com/alumninet/directory-finder/pkg/query"
	"github.com/alumninet/directory-finder/pkg/session"
	"github.com/alumninet/directory-finder/pkg/types"
	"github.com/alumninet/directory-finder/pkg/view"
)

type Options struct {
	PageSize      int
	URLDebounce   time.Duration
	FetchDebounce time.Duration
	Session       *session.Context
	// OnUpdate fires after every completed fetch with a fresh snapshot.
	OnUpdate func(Snapshot)
}

// Snapshot is one consistent view of the screen.
type Snapshot struct {
	Criteria types.FilterCriteria
	Paging   paging.PageInfo
	Cards    []view.GridCard
	Rows     []view.ListRow
	Stats    view.QuickStats
	Loading  bool
	Error    *types.FetchError
}

type DirectoryScreen struct {
	mu       sync.Mutex
	criteria types.FilterCriteria
	result   types.ResultPage
	info     paging.PageInfo
	loading  bool

	sess     *session.Context
	urls     *query.Synchronizer
	fetcher  *fetch.Fetcher
	onUpdate func(Snapshot)
}

func NewDirectoryScreen(client fetch.SearchClient, hist query.History, opts Options) *DirectoryScreen {
	if opts.PageSize < 1 {
		opts.PageSize = types.DefaultPageSize
	}
	if opts.URLDebounce <= 0 {
		opts.URLDebounce = 300 * time.Millisecond
	}
	sess := opts.Session
	if sess == nil {
		sess = session.Anonymous()
	}
	s := &DirectoryScreen{
		criteria: types.DefaultCriteria(opts.PageSize),
		info:     paging.New(0, opts.PageSize, 1),
		sess:     sess,
		urls:     query.NewSynchronizer(hist, opts.URLDebounce),
		onUpdate: opts.OnUpdate,
	}
	s.fetcher = fetch.NewFetcher(client, opts.FetchDebounce, s.apply)
	return s
}

func (s *DirectoryScreen) Session() *session.Context {
	return s.sess
}

// Mount merges the incoming URL into the defaults and issues the first
// fetch. Also the entry point for back/forward navigation.
func (s *DirectoryScreen) Mount(ctx context.Context, rawQuery string) {
	s.mu.Lock()
	s.criteria = s.urls.Restore(rawQuery, types.DefaultCriteria(s.criteria.PageSize))
	c := s.criteria
	s.loading = true
	s.mu.Unlock()
	s.fetcher.Request(ctx, c)
}

// mutate applies fn atomically and pushes the result to both the URL
// and the fetcher.
func (s *DirectoryScreen) mutate(ctx context.Context, debounced bool, fn func(types.FilterCriteria) types.FilterCriteria) {
	s.mu.Lock()
	s.criteria = fn(s.criteria)
	c := s.criteria
	s.loading = true
	s.mu.Unlock()

	s.urls.CriteriaChanged(c)
	if debounced {
		s.fetcher.RequestFreeText(ctx, c)
	} else {
		s.fetcher.Request(ctx, c)
	}
}

func (s *DirectoryScreen) SetFreeText(ctx context.Context, q string) {
	s.mutate(ctx, true, func(c types.FilterCriteria) types.FilterCriteria {
		return c.WithFreeText(q)
	})
}

func (s *DirectoryScreen) ToggleFilter(ctx context.Context, field types.SetField, value string) error {
	s.mu.Lock()
	next, err := s.criteria.ToggleSetMember(field, value)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.criteria = next
	s.loading = true
	s.mu.Unlock()

	s.urls.CriteriaChanged(next)
	s.fetcher.Request(ctx, next)
	return nil
}

func (s *DirectoryScreen) SetVerifiedOnly(ctx context.Context, v bool) {
	s.mutate(ctx, false, func(c types.FilterCriteria) types.FilterCriteria {
		return c.WithVerifiedOnly(v)
	})
}

func (s *DirectoryScreen) SetYearRange(ctx context.Context, r *types.YearRange) error {
	s.mu.Lock()
	next, err := s.criteria.WithYearRange(r)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.criteria = next
	s.loading = true
	s.mu.Unlock()

	s.urls.CriteriaChanged(next)
	s.fetcher.Request(ctx, next)
	return nil
}

func (s *DirectoryScreen) SetSort(ctx context.Context, key types.SortKey) {
	s.mutate(ctx, false, func(c types.FilterCriteria) types.FilterCriteria {
		return c.WithSort(key)
	})
}

func (s *DirectoryScreen) ClearAll(ctx context.Context) {
	s.mutate(ctx, false, func(c types.FilterCriteria) types.FilterCriteria {
		return c.ClearAll()
	})
}

// GoToPage reports false when n is out of range, the request is
// ignored rather than clamped or failed.
func (s *DirectoryScreen) GoToPage(ctx context.Context, n int) bool {
	s.mu.Lock()
	next, ok := s.info.GoTo(n)
	if !ok {
		s.mu.Unlock()
		return false
	}
	s.info = next
	s.criteria = s.criteria.WithPage(n)
	c := s.criteria
	s.loading = true
	s.mu.Unlock()

	s.urls.CriteriaChanged(c)
	s.fetcher.Request(ctx, c)
	return true
}

// apply receives completed fetches, winners of the request race only.
func (s *DirectoryScreen) apply(page types.ResultPage) {
	s.mu.Lock()
	s.result = page
	s.loading = false

	refetch := false
	var c types.FilterCriteria
	if page.Available() {
		s.info = paging.New(page.TotalCount, s.criteria.PageSize, s.criteria.Page)
		if s.info.Page != s.criteria.Page {
			// a narrowed result set pulled the current page back into
			// range, reflect that in criteria + URL and reload the rows
			s.criteria = s.criteria.WithPage(s.info.Page)
			c = s.criteria
			refetch = len(page.Rows) == 0 && page.TotalCount > 0
		}
	} else {
		s.info = paging.New(0, s.criteria.PageSize, 1)
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if refetch {
		s.urls.CriteriaChanged(c)
		s.fetcher.Request(context.Background(), c)
		return
	}
	if c.PageSize != 0 {
		s.urls.CriteriaChanged(c)
	}
	if s.onUpdate != nil {
		s.onUpdate(snap)
	}
}

func (s *DirectoryScreen) snapshotLocked() Snapshot {
	return Snapshot{
		Criteria: s.criteria,
		Paging:   s.info,
		Cards:    view.GridCards(s.result.Rows),
		Rows:     view.ListRows(s.result.Rows),
		Stats:    view.Stats(s.result.Rows),
		Loading:  s.loading,
		Error:    s.result.Error,
	}
}

func (s *DirectoryScreen) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// StaleDiscards is test observability for the request race.
func (s *DirectoryScreen) StaleDiscards() uint64 {
	return s.fetcher.StaleDiscards()
}

// Close flushes any pending URL write and stops outstanding fetches.
func (s *DirectoryScreen) Close() {
	s.fetcher.Close()
	s.urls.Flush()
}
