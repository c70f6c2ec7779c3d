package document

import (
	"bytes"
	"errors"
	"io"
)

var errUnknownType = errors.New("document: unknown element type while skipping")

// Encode serializes doc to its wire representation. The dms engine treats
// the result as an opaque blob; len(result) is the record's objsize.
func Encode(doc *Document) ([]byte, error) {
	return (&encoder{}).encode(doc)
}

// AsView decodes data into a Document for callers that want structured
// field access. The dms engine itself never calls this — it only moves
// bytes — but callers reading a record back from Engine.Find do.
func AsView(data []byte) (*Document, error) {
	return (&decoder{r: bytes.NewReader(data)}).decode()
}

// HasTopLevelField reports whether data's top-level element list contains
// a field named name, without decoding any nested values. This is the
// precondition check dms.Insert runs before accepting a record: every
// stored document must declare a top-level _id.
func HasTopLevelField(data []byte, name string) bool {
	if len(data) < 5 {
		return false
	}
	r := bytes.NewReader(data[4:]) // skip the 4-byte size prefix
	for {
		tb, err := r.ReadByte()
		if err != nil || tb == 0x00 {
			return false
		}
		key, err := readKey(r)
		if err != nil {
			return false
		}
		if key == name {
			return true
		}
		if err := skipValue(r, Type(tb)); err != nil {
			return false
		}
	}
}

func readKey(r *bytes.Reader) (string, error) {
	var buf bytes.Buffer
	for {
		b, err := r.ReadByte()
		if err != nil {
			return "", err
		}
		if b == 0x00 {
			return buf.String(), nil
		}
		buf.WriteByte(b)
	}
}

// skipValue advances r past one element's value without interpreting it,
// using only the length each wire type self-describes.
func skipValue(r *bytes.Reader, t Type) error {
	readLen := func(n int) (int64, error) {
		buf := make([]byte, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			return 0, err
		}
		var v int64
		for i := n - 1; i >= 0; i-- {
			v = v<<8 | int64(buf[i])
		}
		return v, nil
	}

	switch t {
	case TypeNull:
		return nil
	case TypeBoolean:
		_, err := r.ReadByte()
		return err
	case TypeInt32:
		_, err := readLen(4)
		return err
	case TypeInt64, TypeFloat64:
		_, err := readLen(8)
		return err
	case TypeObjectID:
		_, err := r.Seek(12, 1)
		return err
	case TypeString:
		n, err := readLen(4)
		if err != nil {
			return err
		}
		_, err = r.Seek(n, 1)
		return err
	case TypeBinary:
		n, err := readLen(4)
		if err != nil {
			return err
		}
		if _, err := r.Seek(1, 1); err != nil { // subtype byte
			return err
		}
		_, err = r.Seek(n, 1)
		return err
	case TypeArray, TypeDocument:
		pos, _ := r.Seek(0, 1)
		n, err := readLen(4)
		if err != nil {
			return err
		}
		_, err = r.Seek(pos+n, 0)
		return err
	default:
		return errUnknownType
	}
}
