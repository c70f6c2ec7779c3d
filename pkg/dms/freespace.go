package dms

import "sort"

// freeSpaceIndex is an ordered multimap from a page's free-byte count to
// the set of page ids currently holding that much free space. It answers
// "give me a page with strictly more than N free bytes" without scanning
// every page, mirroring the original's std::multimap<uint32,PageID> keyed
// by free_space and queried with upper_bound.
//
// Go's standard library has no ordered map; the closest idiomatic
// equivalent used here is a sorted slice of distinct keys searched with
// sort.Search, each key holding the (small, usually single-element) set of
// pages presently at that free-space level.
type freeSpaceIndex struct {
	keys    []uint32            // sorted ascending, distinct
	buckets map[uint32][]uint32 // free_space -> page ids
}

func newFreeSpaceIndex() *freeSpaceIndex {
	return &freeSpaceIndex{buckets: make(map[uint32][]uint32)}
}

// insert records that pageID currently has freeBytes of contiguous-ish
// free space available (the value the page header's free_space field
// tracks).
func (idx *freeSpaceIndex) insert(pageID, freeBytes uint32) {
	bucket, ok := idx.buckets[freeBytes]
	if !ok {
		idx.insertKey(freeBytes)
	}
	idx.buckets[freeBytes] = append(bucket, pageID)
}

// remove deletes the (pageID, freeBytes) entry. It is a no-op if the entry
// is not present, mirroring the original's tolerant erase-by-scan.
func (idx *freeSpaceIndex) remove(pageID, freeBytes uint32) {
	bucket, ok := idx.buckets[freeBytes]
	if !ok {
		return
	}
	for i, id := range bucket {
		if id == pageID {
			bucket[i] = bucket[len(bucket)-1]
			bucket = bucket[:len(bucket)-1]
			break
		}
	}
	if len(bucket) == 0 {
		delete(idx.buckets, freeBytes)
		idx.removeKey(freeBytes)
		return
	}
	idx.buckets[freeBytes] = bucket
}

// update moves pageID from its old free-space key to its new one.
func (idx *freeSpaceIndex) update(pageID, oldFree, newFree uint32) {
	if oldFree == newFree {
		return
	}
	idx.remove(pageID, oldFree)
	idx.insert(pageID, newFree)
}

// findPage returns a page id with strictly more than required free bytes,
// and true, or (0, false) if none exists. The search uses the smallest
// qualifying key, matching upper_bound(required) on the original multimap.
func (idx *freeSpaceIndex) findPage(required uint32) (uint32, bool) {
	i := sort.Search(len(idx.keys), func(i int) bool { return idx.keys[i] > required })
	if i == len(idx.keys) {
		return 0, false
	}
	bucket := idx.buckets[idx.keys[i]]
	if len(bucket) == 0 {
		return 0, false
	}
	return bucket[0], true
}

func (idx *freeSpaceIndex) insertKey(k uint32) {
	i := sort.Search(len(idx.keys), func(i int) bool { return idx.keys[i] >= k })
	idx.keys = append(idx.keys, 0)
	copy(idx.keys[i+1:], idx.keys[i:])
	idx.keys[i] = k
}

func (idx *freeSpaceIndex) removeKey(k uint32) {
	i := sort.Search(len(idx.keys), func(i int) bool { return idx.keys[i] >= k })
	if i < len(idx.keys) && idx.keys[i] == k {
		idx.keys = append(idx.keys[:i], idx.keys[i+1:]...)
	}
}
