package document

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Wire format: [4-byte size][elements...][0x00 terminator]
// Element format: [1-byte type][cstring key][value]

type encoder struct {
	buf bytes.Buffer
}

func (e *encoder) encode(doc *Document) ([]byte, error) {
	e.buf.Reset()
	binary.Write(&e.buf, binary.LittleEndian, int32(0))

	for _, key := range doc.Keys() {
		value, _ := doc.GetValue(key)
		if err := e.encodeElement(key, value); err != nil {
			return nil, fmt.Errorf("document: encode field %q: %w", key, err)
		}
	}
	e.buf.WriteByte(0x00)

	data := e.buf.Bytes()
	binary.LittleEndian.PutUint32(data[0:], uint32(len(data)))

	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (e *encoder) encodeElement(key string, value *Value) error {
	e.buf.WriteByte(byte(value.Type))
	e.buf.WriteString(key)
	e.buf.WriteByte(0x00)

	switch value.Type {
	case TypeNull:
	case TypeBoolean:
		if value.Data.(bool) {
			e.buf.WriteByte(0x01)
		} else {
			e.buf.WriteByte(0x00)
		}
	case TypeInt32:
		binary.Write(&e.buf, binary.LittleEndian, value.Data.(int32))
	case TypeInt64:
		binary.Write(&e.buf, binary.LittleEndian, value.Data.(int64))
	case TypeFloat64:
		binary.Write(&e.buf, binary.LittleEndian, value.Data.(float64))
	case TypeString:
		s := value.Data.(string)
		binary.Write(&e.buf, binary.LittleEndian, int32(len(s)+1))
		e.buf.WriteString(s)
		e.buf.WriteByte(0x00)
	case TypeBinary:
		b := value.Data.([]byte)
		binary.Write(&e.buf, binary.LittleEndian, int32(len(b)))
		e.buf.WriteByte(0x00)
		e.buf.Write(b)
	case TypeObjectID:
		id := value.Data.(ObjectID)
		e.buf.Write(id[:])
	case TypeArray:
		arr := value.Data.([]any)
		arrDoc := New()
		for i, item := range arr {
			arrDoc.Set(fmt.Sprintf("%d", i), item)
		}
		sub := &encoder{}
		data, err := sub.encode(arrDoc)
		if err != nil {
			return err
		}
		e.buf.Write(data)
	case TypeDocument:
		var subDoc *Document
		switch v := value.Data.(type) {
		case *Document:
			subDoc = v
		case map[string]any:
			subDoc = FromMap(v)
		default:
			return fmt.Errorf("document: invalid nested document type %T", value.Data)
		}
		sub := &encoder{}
		data, err := sub.encode(subDoc)
		if err != nil {
			return err
		}
		e.buf.Write(data)
	default:
		return fmt.Errorf("document: unsupported type %v", value.Type)
	}
	return nil
}

type decoder struct {
	r *bytes.Reader
}

func (d *decoder) decode() (*Document, error) {
	doc := New()

	var size int32
	if err := binary.Read(d.r, binary.LittleEndian, &size); err != nil {
		return nil, fmt.Errorf("document: read size: %w", err)
	}

	for {
		tb, err := d.r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("document: read element type: %w", err)
		}
		if tb == 0x00 {
			break
		}
		elemType := Type(tb)

		key, err := d.readCString()
		if err != nil {
			return nil, fmt.Errorf("document: read key: %w", err)
		}

		value, err := d.decodeValue(elemType)
		if err != nil {
			return nil, fmt.Errorf("document: decode value for %q: %w", key, err)
		}
		doc.Set(key, value)
	}
	return doc, nil
}

func (d *decoder) readCString() (string, error) {
	var buf bytes.Buffer
	for {
		b, err := d.r.ReadByte()
		if err != nil {
			return "", err
		}
		if b == 0x00 {
			break
		}
		buf.WriteByte(b)
	}
	return buf.String(), nil
}

func (d *decoder) decodeValue(t Type) (any, error) {
	switch t {
	case TypeNull:
		return nil, nil
	case TypeBoolean:
		b, err := d.r.ReadByte()
		return b != 0x00, err
	case TypeInt32:
		var v int32
		err := binary.Read(d.r, binary.LittleEndian, &v)
		return v, err
	case TypeInt64:
		var v int64
		err := binary.Read(d.r, binary.LittleEndian, &v)
		return v, err
	case TypeFloat64:
		var v float64
		err := binary.Read(d.r, binary.LittleEndian, &v)
		return v, err
	case TypeString:
		var n int32
		if err := binary.Read(d.r, binary.LittleEndian, &n); err != nil {
			return nil, err
		}
		b := make([]byte, n-1)
		if _, err := io.ReadFull(d.r, b); err != nil {
			return nil, err
		}
		d.r.ReadByte()
		return string(b), nil
	case TypeBinary:
		var n int32
		if err := binary.Read(d.r, binary.LittleEndian, &n); err != nil {
			return nil, err
		}
		d.r.ReadByte()
		b := make([]byte, n)
		if _, err := io.ReadFull(d.r, b); err != nil {
			return nil, err
		}
		return b, nil
	case TypeObjectID:
		var id ObjectID
		if _, err := io.ReadFull(d.r, id[:]); err != nil {
			return nil, err
		}
		return id, nil
	case TypeArray:
		sub, err := d.decodeSub()
		if err != nil {
			return nil, err
		}
		arr := make([]any, sub.Len())
		for i := 0; i < sub.Len(); i++ {
			if v, ok := sub.Get(fmt.Sprintf("%d", i)); ok {
				arr[i] = v
			}
		}
		return arr, nil
	case TypeDocument:
		return d.decodeSub()
	default:
		return nil, fmt.Errorf("document: unsupported type %v", t)
	}
}

func (d *decoder) decodeSub() (*Document, error) {
	pos, _ := d.r.Seek(0, io.SeekCurrent)
	var size int32
	binary.Read(d.r, binary.LittleEndian, &size)
	d.r.Seek(pos, io.SeekStart)

	b := make([]byte, size)
	if _, err := io.ReadFull(d.r, b); err != nil {
		return nil, err
	}
	return (&decoder{r: bytes.NewReader(b)}).decode()
}
