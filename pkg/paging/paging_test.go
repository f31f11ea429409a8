package paging

import "testing"

func TestNewClamps(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		pageSize  int
		requested int
		wantPage  int
		wantCount int
	}{
		{"empty directory", 0, 12, 1, 1, 1},
		{"empty directory high request", 0, 12, 9, 1, 1},
		{"exact fit", 24, 12, 2, 2, 2},
		{"partial last page", 25, 12, 3, 3, 3},
		{"filter narrows below current", 8, 12, 3, 1, 1},
		{"request below range", 100, 12, 0, 1, 9},
		{"request above range", 100, 12, 50, 9, 9},
		{"negative total", -5, 12, 1, 1, 1},
		{"degenerate page size", 10, 0, 1, 1, 10},
	}
	for _, tc := range tests {
		got := New(tc.total, tc.pageSize, tc.requested)
		if got.Page != tc.wantPage {
			t.Errorf("%s: page = %d, want %d", tc.name, got.Page, tc.wantPage)
		}
		if got.PageCount != tc.wantCount {
			t.Errorf("%s: pageCount = %d, want %d", tc.name, got.PageCount, tc.wantCount)
		}
	}
}

func TestClampPropertySweep(t *testing.T) {
	for total := 0; total <= 60; total += 7 {
		for _, size := range []int{1, 5, 12} {
			for requested := -2; requested <= 10; requested++ {
				p := New(total, size, requested)
				if p.Page < 1 || p.Page > p.PageCount {
					t.Fatalf("page %d outside [1,%d] for total=%d size=%d requested=%d",
						p.Page, p.PageCount, total, size, requested)
				}
				if p.PageCount < 1 {
					t.Fatalf("pageCount %d < 1", p.PageCount)
				}
			}
		}
	}
}

func TestGoTo(t *testing.T) {
	p := New(50, 12, 1) // 5 pages

	next, ok := p.GoTo(3)
	if !ok || next.Page != 3 {
		t.Errorf("GoTo(3) = %v, %v", next.Page, ok)
	}
	same, ok := p.GoTo(0)
	if ok || same.Page != p.Page {
		t.Error("out of range GoTo must be an ignored no-op")
	}
	same, ok = p.GoTo(6)
	if ok || same.Page != p.Page {
		t.Error("past-the-end GoTo must be an ignored no-op")
	}
}

func TestOffsetAndNeighbours(t *testing.T) {
	p := New(50, 12, 2)
	if p.Offset() != 12 {
		t.Errorf("offset = %d", p.Offset())
	}
	if !p.HasPrev() || !p.HasNext() {
		t.Error("page 2 of 5 has both neighbours")
	}
	last := New(50, 12, 5)
	if last.HasNext() {
		t.Error("last page has no next")
	}
}
