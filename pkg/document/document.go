// Package document implements the self-describing, BSON-like record
// format that the dms engine treats as an opaque byte blob: a document is
// an ordered set of named, typed fields, one of which (_id) the engine
// requires to be present before it will store a record.
package document

import "fmt"

// Type is the wire tag of one field's value, matching the single-byte
// type tag of the BSON element format this package encodes.
type Type byte

const (
	TypeFloat64  Type = 0x01
	TypeString   Type = 0x02
	TypeDocument Type = 0x03
	TypeArray    Type = 0x04
	TypeBinary   Type = 0x05
	TypeObjectID Type = 0x07
	TypeBoolean  Type = 0x08
	TypeNull     Type = 0x0A
	TypeInt32    Type = 0x10
	TypeInt64    Type = 0x12
)

func (t Type) String() string {
	switch t {
	case TypeNull:
		return "null"
	case TypeBoolean:
		return "boolean"
	case TypeInt32:
		return "int32"
	case TypeInt64:
		return "int64"
	case TypeFloat64:
		return "float64"
	case TypeString:
		return "string"
	case TypeBinary:
		return "binary"
	case TypeObjectID:
		return "objectid"
	case TypeArray:
		return "array"
	case TypeDocument:
		return "document"
	default:
		return "unknown"
	}
}

// Value is a typed field value.
type Value struct {
	Type Type
	Data any
}

// NewValue infers a wire Type from a Go value. Unrecognized types become
// null (their data is discarded) rather than failing, keeping this
// constructor panic-free; Encode then writes them as null.
func NewValue(data any) *Value {
	v := &Value{Data: data}
	switch x := data.(type) {
	case nil:
		v.Type = TypeNull
	case bool:
		v.Type = TypeBoolean
	case int32:
		v.Type = TypeInt32
	case int64:
		v.Type = TypeInt64
	case int:
		v.Type = TypeInt64
		v.Data = int64(x)
	case float64:
		v.Type = TypeFloat64
	case string:
		v.Type = TypeString
	case []byte:
		v.Type = TypeBinary
	case ObjectID:
		v.Type = TypeObjectID
	case []any:
		v.Type = TypeArray
	case map[string]any:
		v.Type = TypeDocument
	case *Document:
		v.Type = TypeDocument
	default:
		v.Type = TypeNull
		v.Data = nil
	}
	return v
}

// Document is an ordered set of named fields.
type Document struct {
	fields map[string]*Value
	order  []string
}

// New returns an empty Document.
func New() *Document {
	return &Document{fields: make(map[string]*Value)}
}

// FromMap builds a Document from a plain map. Field order is the map's
// iteration order, which Go randomizes; callers that need deterministic
// ordering should build the Document with Set calls instead.
func FromMap(m map[string]any) *Document {
	d := New()
	for k, v := range m {
		d.Set(k, v)
	}
	return d
}

// Set assigns a field, appending it to the order if new.
func (d *Document) Set(key string, value any) {
	if _, exists := d.fields[key]; !exists {
		d.order = append(d.order, key)
	}
	d.fields[key] = NewValue(value)
}

// Get returns a field's raw Go value.
func (d *Document) Get(key string) (any, bool) {
	v, ok := d.fields[key]
	if !ok {
		return nil, false
	}
	return v.Data, true
}

// GetValue returns a field's typed Value.
func (d *Document) GetValue(key string) (*Value, bool) {
	v, ok := d.fields[key]
	return v, ok
}

// Has reports whether key is present.
func (d *Document) Has(key string) bool {
	_, ok := d.fields[key]
	return ok
}

// Keys returns field names in insertion order.
func (d *Document) Keys() []string { return d.order }

// Len returns the number of fields.
func (d *Document) Len() int { return len(d.fields) }

// ToMap flattens the document into a plain map, recursing into nested
// documents and arrays.
func (d *Document) ToMap() map[string]any {
	m := make(map[string]any, len(d.fields))
	for k, v := range d.fields {
		m[k] = valueToAny(v)
	}
	return m
}

func valueToAny(v *Value) any {
	switch v.Type {
	case TypeDocument:
		if doc, ok := v.Data.(*Document); ok {
			return doc.ToMap()
		}
	case TypeArray:
		if arr, ok := v.Data.([]any); ok {
			out := make([]any, len(arr))
			for i, item := range arr {
				if val, ok := item.(*Value); ok {
					out[i] = valueToAny(val)
				} else {
					out[i] = item
				}
			}
			return out
		}
	}
	return v.Data
}

func (d *Document) String() string { return fmt.Sprintf("%v", d.ToMap()) }
