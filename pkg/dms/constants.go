// Package dms implements the core of a single-file document storage
// engine: a slotted-page heap file that persists variable-length,
// self-describing documents keyed by a mandatory _id field.
package dms

const (
	// PageSize is the fixed size of every page in bytes.
	PageSize = 64 * 1024

	// PagesPerSegment is the number of pages grouped into one segment.
	PagesPerSegment = 1024

	// SegmentSize is the size in bytes of one segment.
	SegmentSize = PagesPerSegment * PageSize

	// MaxRecord is the largest payload (not counting the record header)
	// that insert will accept.
	MaxRecord = 4 * 1024 * 1024

	// ExtendUnit is the chunk size used when zero-filling file growth.
	ExtendUnit = 4 * 1024

	// HeaderSize is the size in bytes of the file header region at offset 0.
	HeaderSize = 4 * 1024
)

// Sentinel values, all the maximum value of a uint32.
const (
	SlotEmpty     uint32 = 0xFFFFFFFF
	ReuseEmpty    uint32 = 0xFFFFFFFF
	InvalidPageID uint32 = 0xFFFFFFFF
)

// File header layout (HeaderSize bytes at offset 0).
const (
	fileEyeCatcherLen = 8
	fileEyeCatcher    = "EDMSFIL1"

	fileHdrOffEyeCatcher = 0
	fileHdrOffPageCount  = fileHdrOffEyeCatcher + fileEyeCatcherLen // u32
	fileHdrOffFlag       = fileHdrOffPageCount + 4                 // u8
	fileHdrOffVersion    = fileHdrOffFlag + 2                      // u16, 1 byte pad before it

	fileHeaderVersion = 1
	fileFlagNormal    = 0
)

// Page header layout (start of every page).
const (
	pageEyeCatcherLen = 8
	pageEyeCatcher    = "EDMSPAG1"

	pageHdrOffEyeCatcher    = 0
	pageHdrOffSize          = pageHdrOffEyeCatcher + pageEyeCatcherLen // u32
	pageHdrOffFlag          = pageHdrOffSize + 4                      // u8
	pageHdrOffNumSlots      = pageHdrOffFlag + 4                      // u32, 3 bytes pad before it
	pageHdrOffSlotEndOffset = pageHdrOffNumSlots + 4                  // u32
	pageHdrOffFreeSpace     = pageHdrOffSlotEndOffset + 4             // u32
	pageHdrOffFreeOffset    = pageHdrOffFreeSpace + 4                 // u32
	pageHdrOffReuseSlotHead = pageHdrOffFreeOffset + 4                // u32

	// PageHeaderSize is the fixed size, in bytes, of the page header.
	PageHeaderSize = 64

	pageFlagNormal = 0
)

// SlotEntrySize is the fixed width, in bytes, of one slot directory entry.
const SlotEntrySize = 4

// Record header layout, immediately preceding a record's payload.
const (
	recHdrOffSize = 0 // u32
	recHdrOffFlag = 4 // u8

	// RecordHeaderSize is the fixed size, in bytes, of a record header.
	RecordHeaderSize = 8

	recordFlagNormal  = 0
	recordFlagDropped = 1
)
