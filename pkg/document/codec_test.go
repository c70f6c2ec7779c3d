package document

import "testing"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	doc := New()
	id := NewObjectID()
	doc.Set("_id", id)
	doc.Set("name", "alice")
	doc.Set("age", int64(30))
	doc.Set("active", true)
	doc.Set("score", 3.5)
	doc.Set("tags", []any{"a", "b", "c"})
	doc.Set("nested", map[string]any{"x": int64(1)})

	data, err := Encode(doc)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	view, err := AsView(data)
	if err != nil {
		t.Fatalf("AsView: %v", err)
	}

	gotID, ok := view.Get("_id")
	if !ok || gotID.(ObjectID) != id {
		t.Fatalf("round-tripped _id mismatch: got %v", gotID)
	}
	if name, _ := view.Get("name"); name != "alice" {
		t.Fatalf("round-tripped name mismatch: got %v", name)
	}
	if age, _ := view.Get("age"); age != int64(30) {
		t.Fatalf("round-tripped age mismatch: got %v", age)
	}
	tags, _ := view.Get("tags")
	arr, ok := tags.([]any)
	if !ok || len(arr) != 3 || arr[0] != "a" {
		t.Fatalf("round-tripped tags mismatch: got %v", tags)
	}
}

func TestHasTopLevelField(t *testing.T) {
	doc := New()
	doc.Set("_id", NewObjectID())
	doc.Set("name", "bob")
	data, err := Encode(doc)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	if !HasTopLevelField(data, "_id") {
		t.Fatal("expected _id to be found")
	}
	if !HasTopLevelField(data, "name") {
		t.Fatal("expected name to be found")
	}
	if HasTopLevelField(data, "missing") {
		t.Fatal("did not expect to find a field that isn't there")
	}
}

func TestHasTopLevelFieldSkipsNestedDocuments(t *testing.T) {
	doc := New()
	doc.Set("_id", NewObjectID())
	doc.Set("address", map[string]any{"city": "nowhere"})
	data, err := Encode(doc)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	if HasTopLevelField(data, "city") {
		t.Fatal("city is nested inside address, not a top-level field")
	}
	if !HasTopLevelField(data, "address") {
		t.Fatal("address itself is a top-level field")
	}
}

func TestObjectIDHexRoundTrip(t *testing.T) {
	id := NewObjectID()
	parsed, err := ObjectIDFromHex(id.Hex())
	if err != nil {
		t.Fatalf("ObjectIDFromHex: %v", err)
	}
	if parsed != id {
		t.Fatalf("hex round trip mismatch: %v != %v", parsed, id)
	}
}
