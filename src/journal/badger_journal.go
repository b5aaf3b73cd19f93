package journal

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dgraph-io/badger"
	"github.com/ugorji/go/codec"
)

const recordPrefix = "record"

var msgpackHandle = &codec.MsgpackHandle{WriteExt: true}

// BadgerJournal stores records in a badger database, so that they survive
// the harness and can be inspected after a failed run.
type BadgerJournal struct {
	db   *badger.DB
	path string

	mu   sync.Mutex
	next int
}

func openBadger(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path)
	opts.SyncWrites = false
	return badger.Open(opts)
}

// NewBadgerJournal creates a brand new journal in path.
func NewBadgerJournal(path string) (*BadgerJournal, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, err
	}
	db, err := openBadger(path)
	if err != nil {
		return nil, err
	}
	return &BadgerJournal{db: db, path: path}, nil
}

// LoadBadgerJournal opens an existing journal. New records are appended after
// the existing ones.
func LoadBadgerJournal(path string) (*BadgerJournal, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	db, err := openBadger(path)
	if err != nil {
		return nil, err
	}
	j := &BadgerJournal{db: db, path: path}

	records, err := j.Records()
	if err != nil {
		db.Close()
		return nil, err
	}
	j.next = len(records)
	return j, nil
}

func recordKey(index int) []byte {
	// Zero padding keeps the iteration order equal to the insertion order
	return []byte(fmt.Sprintf("%s_%020d", recordPrefix, index))
}

// Append implements the Journal interface.
func (j *BadgerJournal) Append(r Record) (Record, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	r.Index = j.next
	if r.Time.IsZero() {
		r.Time = time.Now()
	}

	var val []byte
	if err := codec.NewEncoderBytes(&val, msgpackHandle).Encode(&r); err != nil {
		return r, err
	}

	err := j.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(r.Index), val)
	})
	if err != nil {
		return r, err
	}

	j.next++
	return r, nil
}

// Records implements the Journal interface.
func (j *BadgerJournal) Records() ([]Record, error) {
	var res []Record
	err := j.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(recordPrefix)

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var r Record
			if err := codec.NewDecoderBytes(val, msgpackHandle).Decode(&r); err != nil {
				return err
			}
			res = append(res, r)
		}
		return nil
	})
	return res, err
}

// Filter implements the Journal interface.
func (j *BadgerJournal) Filter(kind Kind) ([]Record, error) {
	records, err := j.Records()
	if err != nil {
		return nil, err
	}
	return filter(records, kind), nil
}

// Path implements the Journal interface.
func (j *BadgerJournal) Path() string {
	return j.path
}

// Close implements the Journal interface.
func (j *BadgerJournal) Close() error {
	return j.db.Close()
}
