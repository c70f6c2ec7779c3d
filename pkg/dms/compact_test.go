package dms

import "testing"

func TestCompactSlidesLiveRecordsAndPreservesData(t *testing.T) {
	p := newTestPage(t, 1024)

	s0 := insertTestRecord(p, []byte("first-record"))
	s1 := insertTestRecord(p, []byte("second-record"))
	s2 := insertTestRecord(p, []byte("third-record"))

	// Drop the middle record, leaving a hole between s0 and s2.
	off1 := p.rawSlot(s1)
	p.setRecordFlag(off1, recordFlagDropped)
	span1 := p.recordSpan(off1)
	p.setFreeSpace(p.freeSpace() + span1)

	beforeFree := p.freeSpace()
	p.compact()

	if p.freeSpace() != beforeFree {
		t.Fatalf("compact must not change total free_space: before=%d after=%d", beforeFree, p.freeSpace())
	}
	if p.contiguousFreeSpace() != p.freeSpace() {
		t.Fatalf("compact should leave no fragmentation: contiguous=%d free_space=%d",
			p.contiguousFreeSpace(), p.freeSpace())
	}

	if p.reuseSlotHead() != s1 {
		t.Fatalf("dropped slot %d should be threaded onto the reuse freelist, head=%d", s1, p.reuseSlotHead())
	}

	off0 := p.rawSlot(s0)
	if string(p.payload(off0)) != "first-record" {
		t.Fatalf("s0 payload corrupted after compact: %q", p.payload(off0))
	}
	off2 := p.rawSlot(s2)
	if string(p.payload(off2)) != "third-record" {
		t.Fatalf("s2 payload corrupted after compact: %q", p.payload(off2))
	}
}

func TestNeedsCompactionThreshold(t *testing.T) {
	p := newTestPage(t, 4096)
	if p.needsCompaction() {
		t.Fatal("a fresh page should never need compaction")
	}

	// Insert a large record and a small one, then drop the large one (the
	// higher-addressed of the two): its span is added to free_space but
	// not to the contiguous run below free_offset, so the page is
	// fragmented by about 3 KiB, well past the 25% threshold.
	s0 := insertTestRecord(p, make([]byte, 3000))
	s1 := insertTestRecord(p, make([]byte, 100))
	off0 := p.rawSlot(s0)
	p.setRecordFlag(off0, recordFlagDropped)
	p.setFreeSpace(p.freeSpace() + p.recordSpan(off0))
	_ = s1

	if !p.needsCompaction() {
		t.Fatal("a large dropped record fragmenting most of the page should trigger compaction")
	}
}
