package escrow

import (
	"encoding/binary"

	"github.com/hashgate/hashgate"
	"github.com/hashgate/hashgate/errors"
	"github.com/hashgate/hashgate/orm"
)

// EventType names a journal entry kind.
type EventType uint8

const (
	EventCreated   EventType = 1
	EventWithdrawn EventType = 2
	EventCancelled EventType = 3
	EventRescued   EventType = 4
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventWithdrawn:
		return "withdrawn"
	case EventCancelled:
		return "cancelled"
	case EventRescued:
		return "rescued"
	}
	return "unknown"
}

// Entry is one record of the per-escrow journal. The journal is append
// only and the sole externally observable signal of escrow activity: in
// particular, the Withdrawn entry carries the revealed secret, which is
// the only way the secret ever reaches the counterpart ledger.
type Entry struct {
	// Seq is the position in this escrow journal, starting at 1.
	Seq int64

	Type   EventType
	Escrow hashgate.Address

	// Hashlock identifies the swap this escrow belongs to.
	Hashlock [HashlockSize]byte

	// Caller executed the transition.
	Caller hashgate.Address

	// Secret is only set on Withdrawn entries.
	Secret []byte

	// Time is the instant the transition was executed.
	Time hashgate.UnixTime
}

var _ orm.Model = (*Entry)(nil)

// Validate ensures the entry is complete.
func (e *Entry) Validate() error {
	if e.Seq <= 0 {
		return errors.Field("Seq", errors.ErrInput, "sequence starts at 1")
	}
	switch e.Type {
	case EventCreated, EventWithdrawn, EventCancelled, EventRescued:
	default:
		return errors.Field("Type", errors.ErrInput, "unknown event type %d", e.Type)
	}
	if err := e.Escrow.Validate(); err != nil {
		return errors.Field("Escrow", err, "")
	}
	if err := e.Caller.Validate(); err != nil {
		return errors.Field("Caller", err, "")
	}
	if e.Type == EventWithdrawn && len(e.Secret) != SecretSize {
		return errors.Field("Secret", errors.ErrInput, "withdrawn entry must reveal the %d byte secret", SecretSize)
	}
	if e.Type != EventWithdrawn && len(e.Secret) != 0 {
		return errors.Field("Secret", errors.ErrInput, "only withdrawn entries carry a secret")
	}
	return nil
}

// Marshal returns the deterministic binary encoding of the entry.
func (e *Entry) Marshal() ([]byte, error) {
	var out fieldBuffer
	var seq [8]byte
	binary.BigEndian.PutUint64(seq[:], uint64(e.Seq))
	appendField(&out, seq[:])
	appendField(&out, []byte{byte(e.Type)})
	appendField(&out, e.Escrow)
	appendField(&out, e.Hashlock[:])
	appendField(&out, e.Caller)
	appendField(&out, e.Secret)
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(e.Time))
	appendField(&out, ts[:])
	return out.data, nil
}

// Unmarshal loads the entry from its binary encoding.
func (e *Entry) Unmarshal(data []byte) error {
	fields, err := splitFields(data, 7)
	if err != nil {
		return errors.Wrap(err, "journal entry")
	}
	if len(fields[0]) != 8 || len(fields[1]) != 1 || len(fields[3]) != HashlockSize || len(fields[6]) != 8 {
		return errors.Wrap(errors.ErrInput, "journal entry: bad field size")
	}
	e.Seq = int64(binary.BigEndian.Uint64(fields[0]))
	e.Type = EventType(fields[1][0])
	e.Escrow = hashgate.Address(fields[2]).Clone()
	copy(e.Hashlock[:], fields[3])
	e.Caller = hashgate.Address(fields[4]).Clone()
	if len(fields[5]) > 0 {
		e.Secret = append([]byte{}, fields[5]...)
	} else {
		e.Secret = nil
	}
	e.Time = hashgate.UnixTime(binary.BigEndian.Uint64(fields[6]))
	return nil
}

// Journal is the append-only, replayable event log. Entries are keyed by
// escrow address and sequence number, so iteration order equals append
// order and a consumer can resume from any sequence number it has seen,
// which gives at-least-once, order-preserving delivery.
type Journal struct {
	bucket orm.Bucket
}

// NewJournal returns a journal stored in the "journal" bucket.
func NewJournal() Journal {
	return Journal{bucket: orm.NewBucket("journal")}
}

// Append assigns the next sequence number for the entry escrow and
// persists the entry. The entry Seq field is set by this call.
func (j Journal) Append(db hashgate.KVStore, entry *Entry) error {
	seq := orm.NewSequence("journal", entry.Escrow.String())
	entry.Seq = seq.NextInt(db)
	return j.bucket.Save(db, j.key(entry.Escrow, entry.Seq), entry)
}

// Replay returns all entries of given escrow with sequence >= fromSeq in
// append order. Use fromSeq of 1 (or 0) for the full history.
//
// Keys are escrow address followed by the big endian sequence number, so
// the walk seeks straight to the first requested entry and never touches
// another escrow's history.
func (j Journal) Replay(db hashgate.ReadOnlyKVStore, escrowAddr hashgate.Address, fromSeq int64) ([]Entry, error) {
	if fromSeq < 1 {
		fromSeq = 1
	}
	var out []Entry
	it := j.bucket.PrefixIterator(db, escrowAddr, orm.EncodeSequence(fromSeq))
	defer it.Close()
	for ; it.Valid(); it.Next() {
		var entry Entry
		if err := entry.Unmarshal(it.Value()); err != nil {
			return nil, errors.Wrap(err, "corrupted journal")
		}
		out = append(out, entry)
	}
	return out, nil
}

func (j Journal) key(escrowAddr hashgate.Address, seq int64) []byte {
	key := make([]byte, 0, len(escrowAddr)+8)
	key = append(key, escrowAddr...)
	return append(key, orm.EncodeSequence(seq)...)
}
