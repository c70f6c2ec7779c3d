package dms

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/dom999/emeralddb-go/pkg/document"
)

func tempEnginePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.dms")
}

func encodeDoc(t *testing.T, fields map[string]any) []byte {
	t.Helper()
	doc := document.New()
	if _, ok := fields["_id"]; !ok {
		doc.Set("_id", document.NewObjectID())
	}
	for k, v := range fields {
		doc.Set(k, v)
	}
	data, err := document.Encode(doc)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return data
}

func TestOpenCreatesFreshFile(t *testing.T) {
	path := tempEnginePath(t)
	e, err := Open(path, WithPageSize(4096), WithPagesPerSegment(4))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer e.Close()

	stats := e.Stats()
	if stats.PageCount != 0 {
		t.Fatalf("fresh engine should have 0 pages, got %d", stats.PageCount)
	}
}

func TestInsertFindRemove(t *testing.T) {
	path := tempEnginePath(t)
	e, err := Open(path, WithPageSize(4096), WithPagesPerSegment(4), WithStrict(true))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer e.Close()

	data := encodeDoc(t, map[string]any{"name": "alice"})

	rid, err := e.Insert(data)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := e.Find(rid)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if string(got) != string(data) {
		t.Fatalf("Find returned different bytes than Insert stored")
	}

	if err := e.Remove(rid); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	if _, err := e.Find(rid); Code(err) != ErrNotFound {
		t.Fatalf("Find after Remove: want NOT_FOUND, got %v", err)
	}

	if err := e.Remove(rid); Code(err) != ErrNotFound {
		t.Fatalf("double Remove: want NOT_FOUND, got %v", err)
	}
}

func TestInsertRejectsOversizeRecord(t *testing.T) {
	path := tempEnginePath(t)
	e, err := Open(path, WithPageSize(4096), WithPagesPerSegment(4), WithMaxRecord(64))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer e.Close()

	data := encodeDoc(t, map[string]any{"blob": make([]byte, 1024)})
	if _, err := e.Insert(data); Code(err) != ErrInvalidArg {
		t.Fatalf("Insert oversize: want INVALID_ARG, got %v", err)
	}
}

func TestInsertRejectsMissingID(t *testing.T) {
	path := tempEnginePath(t)
	e, err := Open(path, WithPageSize(4096), WithPagesPerSegment(4))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer e.Close()

	doc := document.New()
	doc.Set("name", "no id here")
	data, err := document.Encode(doc)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	if _, err := e.Insert(data); Code(err) != ErrInvalidArg {
		t.Fatalf("Insert without _id: want INVALID_ARG, got %v", err)
	}
}

func TestInsertFillsPageThenGrowsSegment(t *testing.T) {
	path := tempEnginePath(t)
	// One page per segment, so once enough small records fill the first
	// page a later insert forces a real segment extension. PageSize must
	// stay a multiple of the OS mmap granularity (segments are mapped
	// back-to-back right after the file header), so we shrink the page
	// count per segment rather than the page size itself.
	e, err := Open(path, WithPageSize(4096), WithPagesPerSegment(1), WithStrict(true))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer e.Close()

	var rids []RID
	for i := 0; i < 120; i++ {
		data := encodeDoc(t, map[string]any{"i": int64(i), "pad": "xxxxxxxxxx"})
		rid, err := e.Insert(data)
		if err != nil {
			t.Fatalf("Insert #%d: %v", i, err)
		}
		rids = append(rids, rid)
	}

	stats := e.Stats()
	if stats.SegmentCount < 2 {
		t.Fatalf("expected segment growth across 120 small inserts into 1-page segments, got %d segments", stats.SegmentCount)
	}

	for i, rid := range rids {
		if _, err := e.Find(rid); err != nil {
			t.Fatalf("Find record %d after growth: %v", i, err)
		}
	}
}

// Slot reuse is compaction-driven (spec §4.5 step 1 threads SLOT_EMPTY
// entries onto the freelist; §4.6.1 step 7 only pops from it), not
// remove-driven: a delete by itself just sets the slot to SLOT_EMPTY and
// leaves the freelist alone. This test removes enough non-adjacent records
// to cross compact.go's fragmentation threshold, so Remove's own
// needsCompaction check runs the compactor and actually populates the
// freelist before the next insert.
func TestDeleteThenInsertReusesSlot(t *testing.T) {
	path := tempEnginePath(t)
	e, err := Open(path, WithPageSize(4096), WithPagesPerSegment(1), WithStrict(true))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer e.Close()

	pad := strings.Repeat("x", 600)
	var rids []RID
	for i := 0; i < 3; i++ {
		rid, err := e.Insert(encodeDoc(t, map[string]any{"n": int64(i), "pad": pad}))
		if err != nil {
			t.Fatalf("Insert #%d: %v", i, err)
		}
		rids = append(rids, rid)
	}

	// Remove the two earliest-inserted records, which sit farthest from
	// the page's contiguous free region; rids[2] (the most recent insert)
	// stays live and adjacent to it. Their combined span crosses the 25%
	// fragmentation threshold, so the second Remove call compacts the
	// page and threads both freed slots onto the reuse freelist.
	freed := map[uint32]bool{}
	for _, rid := range rids[:2] {
		if err := e.Remove(rid); err != nil {
			t.Fatalf("Remove %+v: %v", rid, err)
		}
		freed[rid.SlotID] = true
	}

	rid3, err := e.Insert(encodeDoc(t, map[string]any{"n": int64(99)}))
	if err != nil {
		t.Fatalf("Insert after remove: %v", err)
	}
	if !freed[rid3.SlotID] {
		t.Fatalf("expected insert to reuse one of the freed slots %v, got slot %d", freed, rid3.SlotID)
	}

	got, err := e.Find(rid3)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	view, err := document.AsView(got)
	if err != nil {
		t.Fatalf("AsView: %v", err)
	}
	n, _ := view.Get("n")
	if n != int64(99) {
		t.Fatalf("expected reused slot to hold the new record, got n=%v", n)
	}

	if _, err := e.Find(rids[2]); err != nil {
		t.Fatalf("surviving record lost after compaction: %v", err)
	}
}

func TestReopenRoundTrip(t *testing.T) {
	path := tempEnginePath(t)
	opts := []Option{WithPageSize(4096), WithPagesPerSegment(2)}

	e1, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	rid, err := e1.Insert(encodeDoc(t, map[string]any{"durable": true}))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := e1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	e2, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer e2.Close()

	data, err := e2.Find(rid)
	if err != nil {
		t.Fatalf("Find after reopen: %v", err)
	}
	if !document.HasTopLevelField(data, "durable") {
		t.Fatalf("record lost its fields across reopen")
	}
}

func TestFindRejectsOutOfRangeRID(t *testing.T) {
	path := tempEnginePath(t)
	e, err := Open(path, WithPageSize(4096), WithPagesPerSegment(1))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer e.Close()

	if _, err := e.Find(RID{PageID: 99, SlotID: 0}); Code(err) != ErrNotFound {
		t.Fatalf("Find on unmapped page: want NOT_FOUND, got %v", err)
	}

	rid, err := e.Insert(encodeDoc(t, map[string]any{"x": int64(1)}))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if _, err := e.Find(RID{PageID: rid.PageID, SlotID: rid.SlotID + 50}); Code(err) != ErrInvalidArg {
		t.Fatalf("Find with slot past num_slots: want INVALID_ARG, got %v", err)
	}
}

func TestConcurrentInsertsAcrossSegmentGrowth(t *testing.T) {
	path := tempEnginePath(t)
	e, err := Open(path, WithPageSize(4096), WithPagesPerSegment(1), WithStrict(true))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer e.Close()

	const n = 150
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			data := encodeDoc(t, map[string]any{"worker": int64(i)})
			_, err := e.Insert(data)
			errs <- err
		}(i)
	}
	for i := 0; i < n; i++ {
		if err := <-errs; err != nil {
			t.Errorf("concurrent Insert: %v", err)
		}
	}

	stats := e.Stats()
	if stats.PageCount == 0 {
		t.Fatal("expected pages to be allocated")
	}
}
