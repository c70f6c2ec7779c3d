package dms

import "testing"

func TestFreeSpaceIndexStrictUpperBound(t *testing.T) {
	idx := newFreeSpaceIndex()
	idx.insert(1, 100)
	idx.insert(2, 200)
	idx.insert(3, 200)

	pid, ok := idx.findPage(150)
	if !ok || pid != 2 {
		t.Fatalf("findPage(150): want page 2, got %d ok=%v", pid, ok)
	}

	// Strict bound: a page with exactly the required amount does not qualify.
	if _, ok := idx.findPage(200); ok {
		t.Fatalf("findPage(200) should find nothing: free_space must be strictly greater than required")
	}

	if _, ok := idx.findPage(1000); ok {
		t.Fatalf("findPage(1000) should find nothing: no page has that much space")
	}
}

func TestFreeSpaceIndexUpdateAndRemove(t *testing.T) {
	idx := newFreeSpaceIndex()
	idx.insert(1, 100)
	idx.update(1, 100, 500)

	if _, ok := idx.buckets[100]; ok {
		t.Fatal("page 1 should no longer be indexed at its old free_space value")
	}
	if len(idx.keys) != 1 || idx.keys[0] != 500 {
		t.Fatalf("expected only the new key 500 after move away from the old key, got keys %v", idx.keys)
	}

	pid, ok := idx.findPage(400)
	if !ok || pid != 1 {
		t.Fatalf("expected page 1 at its new key, got %d ok=%v", pid, ok)
	}

	idx.remove(1, 500)
	if _, ok := idx.findPage(0); ok {
		t.Fatal("expected empty index after removing the only entry")
	}
}

func TestFreeSpaceIndexMultiplePagesSameKey(t *testing.T) {
	idx := newFreeSpaceIndex()
	idx.insert(5, 300)
	idx.insert(6, 300)

	idx.remove(5, 300)
	pid, ok := idx.findPage(200)
	if !ok || pid != 6 {
		t.Fatalf("expected remaining page 6 at shared key, got %d ok=%v", pid, ok)
	}
}
