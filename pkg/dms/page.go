package dms

import "encoding/binary"

// page is a thin, stateless view over one fixed-size page buffer. It never
// copies; every accessor reads or writes directly into buf, which is backed
// by a mapped segment.
type page struct {
	buf []byte
}

func pageView(buf []byte) page { return page{buf: buf} }

// pageSize is the size of the page this view covers, taken from the
// buffer itself so a single Engine's geometry (set once at Open time via
// Config) governs every page it maps, while other Engines — in other
// tests — can use a different page size freely.
func (p page) pageSize() uint32 { return uint32(len(p.buf)) }

// --- page header accessors ---

func (p page) eyeCatcherOK() bool {
	return string(p.buf[pageHdrOffEyeCatcher:pageHdrOffEyeCatcher+pageEyeCatcherLen]) == pageEyeCatcher
}

func (p page) setEyeCatcher() {
	copy(p.buf[pageHdrOffEyeCatcher:pageHdrOffEyeCatcher+pageEyeCatcherLen], pageEyeCatcher)
}

func (p page) size() uint32 { return binary.LittleEndian.Uint32(p.buf[pageHdrOffSize:]) }
func (p page) setSize(v uint32) {
	binary.LittleEndian.PutUint32(p.buf[pageHdrOffSize:], v)
}

func (p page) flag() uint32 { return binary.LittleEndian.Uint32(p.buf[pageHdrOffFlag:]) }
func (p page) setFlag(v uint32) {
	binary.LittleEndian.PutUint32(p.buf[pageHdrOffFlag:], v)
}

func (p page) numSlots() uint32 { return binary.LittleEndian.Uint32(p.buf[pageHdrOffNumSlots:]) }
func (p page) setNumSlots(v uint32) {
	binary.LittleEndian.PutUint32(p.buf[pageHdrOffNumSlots:], v)
}

func (p page) slotEndOffset() uint32 {
	return binary.LittleEndian.Uint32(p.buf[pageHdrOffSlotEndOffset:])
}
func (p page) setSlotEndOffset(v uint32) {
	binary.LittleEndian.PutUint32(p.buf[pageHdrOffSlotEndOffset:], v)
}

func (p page) freeSpace() uint32 { return binary.LittleEndian.Uint32(p.buf[pageHdrOffFreeSpace:]) }
func (p page) setFreeSpace(v uint32) {
	binary.LittleEndian.PutUint32(p.buf[pageHdrOffFreeSpace:], v)
}

func (p page) freeOffset() uint32 { return binary.LittleEndian.Uint32(p.buf[pageHdrOffFreeOffset:]) }
func (p page) setFreeOffset(v uint32) {
	binary.LittleEndian.PutUint32(p.buf[pageHdrOffFreeOffset:], v)
}

func (p page) reuseSlotHead() uint32 {
	return binary.LittleEndian.Uint32(p.buf[pageHdrOffReuseSlotHead:])
}
func (p page) setReuseSlotHead(v uint32) {
	binary.LittleEndian.PutUint32(p.buf[pageHdrOffReuseSlotHead:], v)
}

// init stamps a brand-new, empty page header into buf.
func (p page) init() {
	sz := p.pageSize()
	p.setEyeCatcher()
	p.setSize(sz)
	p.setFlag(pageFlagNormal)
	p.setNumSlots(0)
	p.setSlotEndOffset(PageHeaderSize)
	p.setFreeOffset(sz)
	p.setFreeSpace(sz - PageHeaderSize)
	p.setReuseSlotHead(ReuseEmpty)
}

// --- slot directory ---
//
// Slot entries live immediately after the page header and grow toward high
// addresses as slots are appended; each is a single u32. A live slot holds
// the byte offset, within the page, of its record header. A removed slot
// holds SlotEmpty until compaction threads it onto the reuse freelist;
// from then on the slot entry itself stores the next freelist link (or
// ReuseEmpty at the tail) — see freeSlot/popReuseSlot below, matching the
// C++ original's slot-entry-doubles-as-freelist-link trick.

func slotOffset(slotID uint32) uint32 {
	return PageHeaderSize + slotID*SlotEntrySize
}

func (p page) slotCount() uint32 {
	return (p.slotEndOffset() - PageHeaderSize) / SlotEntrySize
}

func (p page) rawSlot(slotID uint32) uint32 {
	off := slotOffset(slotID)
	return binary.LittleEndian.Uint32(p.buf[off:])
}

func (p page) setRawSlot(slotID uint32, v uint32) {
	off := slotOffset(slotID)
	binary.LittleEndian.PutUint32(p.buf[off:], v)
}

// --- record header + payload ---

func (p page) recordSize(recOff uint32) uint32 {
	return binary.LittleEndian.Uint32(p.buf[recOff+recHdrOffSize:])
}

func (p page) setRecordSize(recOff, v uint32) {
	binary.LittleEndian.PutUint32(p.buf[recOff+recHdrOffSize:], v)
}

func (p page) recordFlag(recOff uint32) uint32 {
	return binary.LittleEndian.Uint32(p.buf[recOff+recHdrOffFlag:])
}

func (p page) setRecordFlag(recOff, v uint32) {
	binary.LittleEndian.PutUint32(p.buf[recOff+recHdrOffFlag:], v)
}

func (p page) recordDropped(recOff uint32) bool {
	return p.recordFlag(recOff) == recordFlagDropped
}

func (p page) payload(recOff uint32) []byte {
	size := p.recordSize(recOff)
	start := recOff + RecordHeaderSize
	return p.buf[start : start+size]
}

// appendSlot allocates a brand-new slot entry (not a reused one) pointing at
// recOff, growing the slot directory. Caller must have already verified
// there is room (SlotEntrySize + record bytes <= contiguous free space).
func (p page) appendSlot(recOff uint32) uint32 {
	id := p.slotCount()
	p.setSlotEndOffset(p.slotEndOffset() + SlotEntrySize)
	p.setRawSlot(id, recOff)
	p.setNumSlots(p.numSlots() + 1)
	return id
}

// popReuseSlot pops a free slot id off the reuse freelist, advancing the
// head to the link stored in that slot, and returns it with true, or
// (0, false) if the freelist is empty.
func (p page) popReuseSlot() (uint32, bool) {
	head := p.reuseSlotHead()
	if head == ReuseEmpty {
		return 0, false
	}
	next := p.rawSlot(head)
	p.setReuseSlotHead(next)
	return head, true
}

// claimSlot points slot id at recOff, taking it out of the reuse freelist.
func (p page) claimSlot(id, recOff uint32) {
	p.setRawSlot(id, recOff)
}

// freeSlot pushes slot id onto the reuse freelist, threading the link
// through the slot entry itself (the slot no longer points at a record).
func (p page) freeSlot(id uint32) {
	p.setRawSlot(id, p.reuseSlotHead())
	p.setReuseSlotHead(id)
}

// writeRecord writes a record header + payload at offset off.
func (p page) writeRecord(off uint32, data []byte) {
	p.setRecordSize(off, uint32(len(data)))
	p.setRecordFlag(off, recordFlagNormal)
	copy(p.buf[off+RecordHeaderSize:], data)
}

// recordSpan is the total on-page byte span (header+payload) of the record
// at off.
func (p page) recordSpan(off uint32) uint32 {
	return RecordHeaderSize + p.recordSize(off)
}
