package dms

import "sort"

// compactionThreshold: a page is only worth compacting once fragmentation
// (contiguous free space short of total free space) reaches this fraction
// of the page.
const compactionThreshold = 0.25

// needsCompaction reports whether p's fragmented space (total free space
// minus the contiguous free run below the slot directory) makes it worth
// sliding records.
func (p page) needsCompaction() bool {
	total := p.freeSpace()
	contig := p.contiguousFreeSpace()
	if total <= contig {
		return false
	}
	frag := total - contig
	return float64(frag) >= compactionThreshold*float64(p.pageSize())
}

// contiguousFreeSpace is the single free run between the end of the slot
// directory and the lowest-addressed record, live or dropped.
func (p page) contiguousFreeSpace() uint32 {
	return p.freeOffset() - p.slotEndOffset()
}

// looksLikeRecord reports whether off is a plausible record offset within
// p: inside the record region (between the slot directory and the end of
// the page) with a header whose size stays in bounds and whose flag is one
// of the two record states. A slot entry whose stored value fails this
// check isn't pointing at a record at all — it's either the SLOT_EMPTY
// sentinel or a freelist link left over from the page's reuse chain, and
// compact's first pass (below) treats both the same way: thread the slot
// onto a freshly rebuilt freelist.
func (p page) looksLikeRecord(off uint32) bool {
	low, high := p.slotEndOffset(), p.pageSize()
	if off < low || off >= high {
		return false
	}
	size := p.recordSize(off)
	if off+RecordHeaderSize+size > high {
		return false
	}
	flag := p.recordFlag(off)
	return flag == recordFlagNormal || flag == recordFlagDropped
}

// compact reclaims fragmented space by sliding every live record toward
// the high end of the page, in ascending-offset order, and rewriting each
// surviving slot to point at its record's new location. It rebuilds the
// reuse freelist from scratch in the same pass: every slot whose stored
// value isn't a record offset (a removed slot set to SLOT_EMPTY, or a link
// left over from the previous freelist) is rethreaded via freeSlot, and a
// slot pointing at a DROPPED record is discarded the same way. Rebuilding
// rather than appending to the existing chain is what makes this safe to
// call more than once on the same page: SLOT_EMPTY and REUSE_EMPTY share
// the same sentinel value, so a stale freelist tail link is indistinguishable
// from a fresh SLOT_EMPTY entry by value alone, and re-threading it onto a
// freelist that already contains it would corrupt the chain into a cycle.
//
// This deliberately does not reproduce the original's compaction loop,
// which walks slot indices from num_slots down through an unsigned
// comparison against >= 0 — a bound that never naturally terminates for
// an unsigned counter. Collecting live offsets into a slice and sorting
// them is both correct and simpler.
func (p page) compact() {
	type liveSlot struct {
		id  uint32
		off uint32
	}

	n := p.numSlots()
	live := make([]liveSlot, 0, n)
	count := p.slotCount()

	p.setReuseSlotHead(ReuseEmpty)
	for id := uint32(0); id < count; id++ {
		off := p.rawSlot(id)
		if !p.looksLikeRecord(off) {
			p.freeSlot(id)
			continue
		}
		if p.recordDropped(off) {
			p.freeSlot(id)
			continue
		}
		live = append(live, liveSlot{id: id, off: off})
	}

	sort.Slice(live, func(i, j int) bool { return live[i].off < live[j].off })

	writeAt := p.pageSize()
	for i := len(live) - 1; i >= 0; i-- {
		ls := live[i]
		span := p.recordSpan(ls.off)
		writeAt -= span
		if writeAt != ls.off {
			copy(p.buf[writeAt:writeAt+span], p.buf[ls.off:ls.off+span])
		}
		p.claimSlot(ls.id, writeAt)
	}

	p.setFreeOffset(writeAt)
}
