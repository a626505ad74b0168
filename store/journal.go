package store

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/util"

	"messagic/wire"
)

type Direction uint8

const (
	Inbound Direction = iota
	Outbound
)

func (d Direction) String() string {
	switch d {
	case Inbound:
		return "in"
	case Outbound:
		return "out"
	default:
		return "unknown"
	}
}

// Record is one journaled message.
type Record struct {
	Session   string    `cbor:"session"`
	Seq       uint64    `cbor:"seq"`
	Direction Direction `cbor:"direction"`
	Kind      wire.Kind `cbor:"kind"`
	Payload   []byte    `cbor:"payload"`
	Timestamp time.Time `cbor:"timestamp"`
}

func (r *Record) Message() wire.Message {
	switch r.Kind {
	case wire.KindBinary:
		return wire.Binary(r.Payload)
	case wire.KindError:
		return wire.Error(r.Payload)
	default:
		return wire.Text(r.Payload)
	}
}

var (
	framesPrefix   = Prefixer("frames")
	sessionsPrefix = Prefixer("sessions")
)

var encMode cbor.EncMode

func init() {
	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	em, err := opts.EncMode()
	if err != nil {
		panic("store: CBOR encoder initialization failed: " + err.Error())
	}
	encMode = em
}

// Journal persists every message of one channel session. It implements
// ipc.Tap.
type Journal struct {
	db      *leveldb.DB
	session string
	seq     uint64
}

func NewJournal(db *leveldb.DB) (*Journal, error) {
	session := uuid.New().String()
	started, err := encMode.Marshal(time.Now())
	if err != nil {
		return nil, errors.Wrap(err, "error encoding session start")
	}
	if err := db.Put(sessionsPrefix(session), started, nil); err != nil {
		return nil, errors.Wrap(err, "error writing session")
	}
	return &Journal{
		db:      db,
		session: session,
	}, nil
}

func (j *Journal) Session() string {
	return j.session
}

func (j *Journal) Inbound(msg wire.Message) {
	j.record(Inbound, msg)
}

func (j *Journal) Outbound(msg wire.Message) {
	j.record(Outbound, msg)
}

func (j *Journal) record(dir Direction, msg wire.Message) {
	if err := j.Append(dir, msg); err != nil {
		logger.Error("error journaling message", "session", j.session, "direction", dir, "err", err)
	}
}

func (j *Journal) Append(dir Direction, msg wire.Message) error {
	rec := &Record{
		Session:   j.session,
		Seq:       atomic.AddUint64(&j.seq, 1),
		Direction: dir,
		Kind:      msg.Kind(),
		Payload:   payloadOf(msg),
		Timestamp: time.Now(),
	}
	data, err := encMode.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "error encoding record")
	}
	if err := j.db.Put(recordKey(j.session, rec.Seq), data, nil); err != nil {
		return errors.Wrap(err, "error writing record")
	}
	return nil
}

func recordKey(session string, seq uint64) []byte {
	return framesPrefix(session, fmt.Sprintf("%020d", seq))
}

func payloadOf(msg wire.Message) []byte {
	switch m := msg.(type) {
	case wire.Text:
		return []byte(m)
	case wire.Binary:
		return []byte(m)
	case wire.Error:
		return []byte(m)
	default:
		return nil
	}
}

type Session struct {
	ID        string
	StartedAt time.Time
}

func ListSessions(db *leveldb.DB) ([]Session, error) {
	iter := db.NewIterator(util.BytesPrefix(sessionsPrefix("")), nil)
	defer iter.Release()

	var out []Session
	prefixLen := len(sessionsPrefix(""))
	for iter.Next() {
		var started time.Time
		if err := cbor.Unmarshal(iter.Value(), &started); err != nil {
			return nil, errors.Wrap(err, "error decoding session")
		}
		out = append(out, Session{
			ID:        string(iter.Key()[prefixLen:]),
			StartedAt: started,
		})
	}
	if err := iter.Error(); err != nil {
		return nil, errors.Wrap(err, "error iterating sessions")
	}
	return out, nil
}

// RecordStream iterates a session's records in sequence order.
type RecordStream struct {
	iter iterator.Iterator
}

func StreamRecords(db *leveldb.DB, session string) *RecordStream {
	return &RecordStream{
		iter: db.NewIterator(util.BytesPrefix(framesPrefix(session, "")), nil),
	}
}

// Next returns nil, nil once the stream is exhausted.
func (rs *RecordStream) Next() (*Record, error) {
	if !rs.iter.Next() {
		return nil, errors.Wrap(rs.iter.Error(), "error iterating records")
	}
	rec := new(Record)
	if err := cbor.Unmarshal(rs.iter.Value(), rec); err != nil {
		return nil, errors.Wrap(err, "error decoding record")
	}
	return rec, nil
}

func (rs *RecordStream) Close() error {
	rs.iter.Release()
	return nil
}
