package fetch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/alumninet/directory-finder/pkg/types"
)

var (
	noSearches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "directory_searches_total",
		Help: "The total number of issued directory searches",
	})
	noSearchErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "directory_search_errors_total",
		Help: "The total number of directory searches that came back unavailable",
	})
	noStaleDiscards = promauto.NewCounter(prometheus.CounterOpts{
		Name: "directory_stale_responses_total",
		Help: "The total number of responses discarded for losing a request race",
	})
)

// DefaultDebounce is how long free-text input has to be quiet before a
// fetch goes out. Other filter changes fetch immediately.
const DefaultDebounce = 250 * time.Millisecond

// Fetcher turns criteria into result pages with last-issued-wins
// semantics. Each dispatched request gets a monotonically increasing
// token, a response is delivered only while its token is still the
// newest, so a slow request A can never overwrite a later request B.
type Fetcher struct {
	client   SearchClient
	debounce time.Duration
	onResult func(types.ResultPage)

	seq   atomic.Uint64
	stale atomic.Uint64

	mu      sync.Mutex
	timer   *time.Timer
	pending *pendingText
	cancel  context.CancelFunc

	// deliverMu serializes onResult and orders deliveries by token. It
	// is separate from mu so a callback may issue a new request.
	deliverMu sync.Mutex
	delivered uint64
}

type pendingText struct {
	ctx      context.Context
	criteria types.FilterCriteria
}

// NewFetcher delivers every completed fetch through onResult, either a
// real page or an explicit unavailable one. onResult is called from the
// fetch goroutine, one call at a time.
func NewFetcher(client SearchClient, debounce time.Duration, onResult func(types.ResultPage)) *Fetcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Fetcher{
		client:   client,
		debounce: debounce,
		onResult: onResult,
	}
}

// Request fetches immediately. Used for every criteria change except
// free-text typing.
func (f *Fetcher) Request(ctx context.Context, c types.FilterCriteria) {
	f.mu.Lock()
	f.stopTimerLocked()
	f.mu.Unlock()
	f.dispatch(ctx, c)
}

// RequestFreeText debounces, a burst of keystrokes becomes one request
// carrying the final criteria.
func (f *Fetcher) RequestFreeText(ctx context.Context, c types.FilterCriteria) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = &pendingText{ctx: ctx, criteria: c}
	if f.timer == nil {
		f.timer = time.AfterFunc(f.debounce, f.firePending)
	} else {
		f.timer.Reset(f.debounce)
	}
}

func (f *Fetcher) firePending() {
	f.mu.Lock()
	p := f.pending
	f.pending = nil
	f.mu.Unlock()
	if p == nil {
		return
	}
	f.dispatch(p.ctx, p.criteria)
}

func (f *Fetcher) stopTimerLocked() {
	if f.timer != nil {
		f.timer.Stop()
	}
	f.pending = nil
}

func (f *Fetcher) dispatch(ctx context.Context, c types.FilterCriteria) {
	noSearches.Inc()

	if ctx == nil {
		ctx = context.Background()
	}
	cctx, cancel := context.WithCancel(ctx)

	// token and cancel swap happen under the same lock so the request
	// holding the newest token is never the one that got cancelled
	f.mu.Lock()
	token := f.seq.Add(1)
	if f.cancel != nil {
		// aborting the superseded request is an optimization, the token
		// check below is what guarantees correctness
		f.cancel()
	}
	f.cancel = cancel
	f.mu.Unlock()

	go func() {
		page, err := f.client.Search(cctx, ParamsFromCriteria(c))
		if err != nil {
			var fe *types.FetchError
			if !errors.As(err, &fe) {
				fe = &types.FetchError{Kind: types.FetchErrorNetwork, Err: err}
			}
			page = types.UnavailablePage(fe.Kind, fe.Err)
		}

		f.deliverMu.Lock()
		defer f.deliverMu.Unlock()
		if token != f.seq.Load() || token <= f.delivered {
			f.stale.Add(1)
			noStaleDiscards.Inc()
			return
		}
		f.delivered = token
		if !page.Available() {
			noSearchErrors.Inc()
		}
		f.onResult(page)
	}()
}

// StaleDiscards reports how many responses lost a request race, kept
// for test observability.
func (f *Fetcher) StaleDiscards() uint64 {
	return f.stale.Load()
}

// Close drops any pending debounced request and aborts the in-flight one.
func (f *Fetcher) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopTimerLocked()
	if f.cancel != nil {
		f.cancel()
	}
}
