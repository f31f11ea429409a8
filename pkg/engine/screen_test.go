package engine

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alumninet/directory-finder/pkg/fetch"
	"github.com/alumninet/directory-finder/pkg/types"
)

// scriptedClient answers each call from a queue and records the params.
type scriptedClient struct {
	mu      sync.Mutex
	params  []fetch.SearchParams
	answers []types.ResultPage
}

func (sc *scriptedClient) Search(ctx context.Context, p fetch.SearchParams) (types.ResultPage, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.params = append(sc.params, p)
	if len(sc.answers) == 0 {
		return types.ResultPage{Rows: []types.ProfileSummary{}, Page: 1, PageCount: 1}, nil
	}
	page := sc.answers[0]
	sc.answers = sc.answers[1:]
	return page, nil
}

func (sc *scriptedClient) push(pages ...types.ResultPage) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.answers = append(sc.answers, pages...)
}

func (sc *scriptedClient) recorded() []fetch.SearchParams {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return append([]fetch.SearchParams(nil), sc.params...)
}

type recordingHistory struct {
	mu      sync.Mutex
	entries []string
}

func (h *recordingHistory) Replace(query string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, query)
}

func (h *recordingHistory) last() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) == 0 {
		return "", false
	}
	return h.entries[len(h.entries)-1], true
}

func rowsOf(t *testing.T, n int) []types.ProfileSummary {
	t.Helper()
	out := make([]types.ProfileSummary, 0, n)
	for i := 0; i < n; i++ {
		var p types.ProfileSummary
		data := []byte(`{"id":"p","name":"P","verified":true}`)
		if err := json.Unmarshal(data, &p); err != nil {
			t.Fatal(err)
		}
		out = append(out, p)
	}
	return out
}

func newTestScreen(t *testing.T, client *scriptedClient, hist *recordingHistory) (*DirectoryScreen, chan Snapshot) {
	t.Helper()
	updates := make(chan Snapshot, 16)
	s := NewDirectoryScreen(client, hist, Options{
		PageSize:      12,
		URLDebounce:   time.Millisecond,
		FetchDebounce: 5 * time.Millisecond,
		OnUpdate:      func(snap Snapshot) { updates <- snap },
	})
	t.Cleanup(s.Close)
	return s, updates
}

func waitUpdate(t *testing.T, updates chan Snapshot) Snapshot {
	t.Helper()
	select {
	case snap := <-updates:
		return snap
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for screen update")
		return Snapshot{}
	}
}

func TestMountMergesURLAndFetches(t *testing.T) {
	client := &scriptedClient{}
	client.push(types.ResultPage{Rows: rowsOf(t, 12), TotalCount: 50, Page: 2, PageCount: 5})
	s, updates := newTestScreen(t, client, &recordingHistory{})

	s.Mount(context.Background(), "?skill=go&page=2")
	snap := waitUpdate(t, updates)

	if len(snap.Criteria.Skills) != 1 || snap.Criteria.Page != 2 {
		t.Errorf("URL not merged: %+v", snap.Criteria)
	}
	if snap.Paging.Page != 2 || snap.Paging.PageCount != 5 {
		t.Errorf("paging: %+v", snap.Paging)
	}
	if len(snap.Cards) != 12 || len(snap.Rows) != 12 {
		t.Errorf("view models missing: %d cards, %d rows", len(snap.Cards), len(snap.Rows))
	}
	if snap.Stats.Verified != 12 {
		t.Errorf("stats should describe the current page, got %+v", snap.Stats)
	}
	params := client.recorded()
	if len(params) != 1 || params[0].Skills != "go" || params[0].Page != 2 {
		t.Errorf("fetch params: %+v", params)
	}
}

func TestFilterChangeSyncsURLAndRequest(t *testing.T) {
	client := &scriptedClient{}
	hist := &recordingHistory{}
	client.push(
		types.ResultPage{Rows: rowsOf(t, 5), TotalCount: 5, Page: 1, PageCount: 1},
		types.ResultPage{Rows: rowsOf(t, 2), TotalCount: 2, Page: 1, PageCount: 1},
	)
	s, updates := newTestScreen(t, client, hist)

	s.Mount(context.Background(), "")
	waitUpdate(t, updates)

	if err := s.ToggleFilter(context.Background(), types.FieldCompanies, "Acme"); err != nil {
		t.Fatal(err)
	}
	waitUpdate(t, updates)
	time.Sleep(10 * time.Millisecond) // let the debounced URL write land

	last, ok := hist.last()
	if !ok || last != "company=Acme" {
		t.Errorf("address bar out of sync: %q", last)
	}
	params := client.recorded()
	if got := params[len(params)-1]; got.Company != "Acme" || got.Page != 1 {
		t.Errorf("request out of sync: %+v", got)
	}
}

func TestStaleURLPageClampsAndRefetches(t *testing.T) {
	client := &scriptedClient{}
	client.push(
		// a shared link asks for page 3, but the filter only matches 8
		// profiles by now, so the requested page comes back empty
		types.ResultPage{Rows: []types.ProfileSummary{}, TotalCount: 8, Page: 3, PageCount: 1},
		// the follow-up reload of page 1
		types.ResultPage{Rows: rowsOf(t, 8), TotalCount: 8, Page: 1, PageCount: 1},
	)
	hist := &recordingHistory{}
	s, updates := newTestScreen(t, client, hist)

	s.Mount(context.Background(), "?company=Acme&page=3")
	snap := waitUpdate(t, updates)

	if snap.Paging.Page != 1 || snap.Paging.PageCount != 1 {
		t.Errorf("expected clamp to page 1 of 1, got %+v", snap.Paging)
	}
	if snap.Criteria.Page != 1 {
		t.Errorf("criteria should reflect the clamped page: %+v", snap.Criteria)
	}
	if len(snap.Rows) != 8 {
		t.Errorf("expected reloaded rows, got %d", len(snap.Rows))
	}

	params := client.recorded()
	if len(params) != 2 || params[0].Page != 3 || params[1].Page != 1 {
		t.Errorf("expected a page 3 fetch then a page 1 reload, got %+v", params)
	}

	time.Sleep(10 * time.Millisecond) // let the debounced URL write land
	if last, ok := hist.last(); !ok || last != "company=Acme" {
		t.Errorf("address bar should drop the stale page, got %q", last)
	}
}

func TestGoToPageIgnoredOutsideRange(t *testing.T) {
	client := &scriptedClient{}
	client.push(types.ResultPage{Rows: rowsOf(t, 12), TotalCount: 50, Page: 1, PageCount: 5})
	s, updates := newTestScreen(t, client, &recordingHistory{})

	s.Mount(context.Background(), "")
	waitUpdate(t, updates)

	if s.GoToPage(context.Background(), 9) {
		t.Error("page 9 of 5 must be ignored")
	}
	if s.GoToPage(context.Background(), 0) {
		t.Error("page 0 must be ignored")
	}
	if got := len(client.recorded()); got != 1 {
		t.Errorf("ignored page changes must not fetch, got %d calls", got)
	}

	client.push(types.ResultPage{Rows: rowsOf(t, 12), TotalCount: 50, Page: 3, PageCount: 5})
	if !s.GoToPage(context.Background(), 3) {
		t.Fatal("page 3 of 5 is valid")
	}
	snap := waitUpdate(t, updates)
	if snap.Criteria.Page != 3 || snap.Paging.Page != 3 {
		t.Errorf("page change lost: %+v", snap.Paging)
	}
}

func TestInvalidYearRangeLeavesScreenUntouched(t *testing.T) {
	client := &scriptedClient{}
	client.push(types.ResultPage{Rows: rowsOf(t, 3), TotalCount: 3, Page: 1, PageCount: 1})
	s, updates := newTestScreen(t, client, &recordingHistory{})

	s.Mount(context.Background(), "")
	before := waitUpdate(t, updates)

	if err := s.SetYearRange(context.Background(), &types.YearRange{Min: 2020, Max: 2001}); err == nil {
		t.Fatal("inverted range must be rejected")
	}
	after := s.Snapshot()
	if !after.Criteria.Equal(before.Criteria) {
		t.Error("rejected mutation changed criteria")
	}
	if got := len(client.recorded()); got != 1 {
		t.Errorf("rejected mutation must not fetch, got %d calls", got)
	}
}

func TestUnavailableStateSurfaced(t *testing.T) {
	updates := make(chan Snapshot, 1)
	s := NewDirectoryScreen(&failingClient{}, &recordingHistory{}, Options{
		PageSize:      12,
		URLDebounce:   time.Millisecond,
		FetchDebounce: time.Millisecond,
		OnUpdate:      func(snap Snapshot) { updates <- snap },
	})
	defer s.Close()

	s.Mount(context.Background(), "")
	snap := waitUpdate(t, updates)
	if snap.Error == nil || snap.Error.Kind != types.FetchErrorNetwork {
		t.Fatalf("expected network error surfaced, got %+v", snap.Error)
	}
	if snap.Paging.PageCount != 1 || len(snap.Rows) != 0 {
		t.Errorf("unavailable snapshot should be empty: %+v", snap.Paging)
	}
}

type failingClient struct{}

func (fc *failingClient) Search(ctx context.Context, p fetch.SearchParams) (types.ResultPage, error) {
	return types.ResultPage{}, &types.FetchError{Kind: types.FetchErrorNetwork}
}
