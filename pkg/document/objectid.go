package document

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"
)

// ObjectID is a 12-byte identifier: a 4-byte timestamp, a 5-byte
// process-unique value generated once at startup, and a 3-byte atomic
// counter. It is the default value callers use to populate a document's
// required _id field.
type ObjectID [12]byte

var processUnique [5]byte
var idCounter uint32

func init() {
	if _, err := rand.Read(processUnique[:]); err != nil {
		panic("document: failed to seed ObjectID process-unique bytes: " + err.Error())
	}
}

// NewObjectID generates a fresh ObjectID.
func NewObjectID() ObjectID {
	var id ObjectID
	binary.BigEndian.PutUint32(id[0:4], uint32(time.Now().Unix()))
	copy(id[4:9], processUnique[:])
	n := atomic.AddUint32(&idCounter, 1)
	id[9] = byte(n >> 16)
	id[10] = byte(n >> 8)
	id[11] = byte(n)
	return id
}

// ObjectIDFromHex parses a 24-character hex ObjectID.
func ObjectIDFromHex(s string) (ObjectID, error) {
	var id ObjectID
	if len(s) != 24 {
		return id, fmt.Errorf("document: invalid ObjectID length %d", len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("document: invalid ObjectID hex: %w", err)
	}
	copy(id[:], b)
	return id, nil
}

func (id ObjectID) Hex() string    { return hex.EncodeToString(id[:]) }
func (id ObjectID) String() string { return id.Hex() }

func (id ObjectID) Timestamp() time.Time {
	return time.Unix(int64(binary.BigEndian.Uint32(id[0:4])), 0)
}

func (id ObjectID) IsZero() bool { return id == ObjectID{} }
