// Package audit keeps an append-only record of admin code decisions in a
// badger key-value store. Entries are keyed by time so listing returns them
// in the order they were recorded.
package audit

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"scrapeguard/pkg/logger"
)

const prefixEntry = "audit:entry:"

// Entry is one recorded verification outcome. It never carries key material
// or plaintext.
type Entry struct {
	Time     time.Time `json:"time"`
	Username string    `json:"username"`
	State    string    `json:"state"`
	DeniedAt string    `json:"denied_at,omitempty"`
	Reason   string    `json:"reason,omitempty"`
	Granted  bool      `json:"granted"`
	Purged   []string  `json:"purged,omitempty"`
}

// Log is a badger backed audit trail
type Log struct {
	db  *badger.DB
	mu  sync.Mutex
	seq uint32
	now func() time.Time
}

// Option configures a Log
type Option func(*badger.Options)

// WithLogger routes badger's internal messages to l
func WithLogger(l logger.Logger) Option {
	return func(o *badger.Options) {
		*o = o.WithLogger(badgerLogger{l.WithField("component", "audit")})
	}
}

// Open opens or creates the audit store at path
func Open(path string, opts ...Option) (*Log, error) {
	o := badger.DefaultOptions(path).WithLogger(nil)
	return open(o, opts)
}

// OpenInMemory creates an audit store that lives only in memory
func OpenInMemory(opts ...Option) (*Log, error) {
	o := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	return open(o, opts)
}

func open(o badger.Options, opts []Option) (*Log, error) {
	for _, opt := range opts {
		opt(&o)
	}
	db, err := badger.Open(o)
	if err != nil {
		return nil, fmt.Errorf("open audit store: %w", err)
	}
	return &Log{db: db, now: time.Now}, nil
}

// Close flushes and closes the store
func (l *Log) Close() error {
	return l.db.Close()
}

// entryKey orders entries by time, then by insertion for equal timestamps
func (l *Log) entryKey(t time.Time) []byte {
	l.mu.Lock()
	l.seq++
	seq := l.seq
	l.mu.Unlock()

	key := make([]byte, 0, len(prefixEntry)+12)
	key = append(key, prefixEntry...)
	key = binary.BigEndian.AppendUint64(key, uint64(t.UnixNano()))
	key = binary.BigEndian.AppendUint32(key, seq)
	return key
}

// Record appends e. A zero Time is replaced with the current time.
func (l *Log) Record(e Entry) error {
	if e.Time.IsZero() {
		e.Time = l.now()
	}
	e.Time = e.Time.UTC()

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("serialize audit entry: %w", err)
	}

	key := l.entryKey(e.Time)
	err = l.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
	if err != nil {
		return fmt.Errorf("persist audit entry: %w", err)
	}
	return nil
}

// List returns up to limit entries, newest first. A limit of zero or less
// returns everything.
func (l *Log) List(limit int) ([]Entry, error) {
	var entries []Entry

	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(prefixEntry)
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration starts from the largest key under the prefix
		seek := append([]byte(prefixEntry), 0xff)
		for it.Seek(seek); it.ValidForPrefix(opts.Prefix); it.Next() {
			if limit > 0 && len(entries) >= limit {
				break
			}
			err := it.Item().Value(func(v []byte) error {
				var e Entry
				if err := json.Unmarshal(v, &e); err != nil {
					return err
				}
				entries = append(entries, e)
				return nil
			})
			if err != nil {
				return fmt.Errorf("decode audit entry: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterate audit log: %w", err)
	}
	return entries, nil
}

// Count returns the number of recorded entries
func (l *Log) Count() (int, error) {
	n := 0
	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefixEntry)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// badgerLogger adapts logger.Logger to badger.Logger
type badgerLogger struct {
	l logger.Logger
}

func (b badgerLogger) Errorf(format string, args ...interface{}) {
	b.l.Error(fmt.Sprintf(format, args...))
}

func (b badgerLogger) Warningf(format string, args ...interface{}) {
	b.l.Warn(fmt.Sprintf(format, args...))
}

func (b badgerLogger) Infof(format string, args ...interface{}) {
	b.l.Debug(fmt.Sprintf(format, args...))
}

func (b badgerLogger) Debugf(format string, args ...interface{}) {
	b.l.Debug(fmt.Sprintf(format, args...))
}
