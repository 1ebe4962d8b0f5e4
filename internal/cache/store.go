package cache

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	bolt "go.etcd.io/bbolt"
	berrors "go.etcd.io/bbolt/errors"

	"github.com/leonardcser/objcache-mcp/internal/compress"
	"github.com/leonardcser/objcache-mcp/internal/value"
)

const (
	DefaultQuotaBytes    = 3 << 20
	DefaultStoreName     = "objcache"
	DefaultContainer     = "records"
	DefaultSchemaVersion = 1

	defaultOpenTimeout = 1 * time.Second
)

var (
	metaBucket = []byte("_meta")
	versionKey = []byte("schema_version")

	// empty is the value of every index entry.
	empty = []byte{}
)

// Store is a persistent record cache on a bbolt file with per-record TTLs and
// a size quota. It is safe for concurrent use by multiple goroutines.
//
// The file is opened lazily by the first operation (or Init) and reopened
// transparently after Close.
type Store struct {
	opts      Options
	path      string
	records   []byte
	byCreated []byte
	byExpiry  []byte
	comp      *compress.Compressor

	mu sync.Mutex // guards db
	db *bolt.DB
}

type Options struct {
	// Dir holds the store file. Defaults to the working directory.
	Dir string
	// StoreName names the store file (<Dir>/<StoreName>.bbolt).
	StoreName string
	// Container is the bucket holding the records; its two indexes live in
	// sibling buckets.
	Container string
	// SchemaVersion triggers the upgrade path when raised.
	SchemaVersion int
	// QuotaBytes caps the estimated size of a record's data.
	QuotaBytes int64
	// MaxDimension and Quality tune image compression.
	MaxDimension int
	Quality      float64
	// Codec decodes and encodes images. Defaults to compress.ImageCodec.
	Codec compress.Codec
	// Now is the store clock. Defaults to time.Now.
	Now func() time.Time
	// OpenTimeout bounds waiting for the file lock.
	OpenTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Dir == "" {
		o.Dir = "."
	}
	if o.StoreName == "" {
		o.StoreName = DefaultStoreName
	}
	if o.Container == "" {
		o.Container = DefaultContainer
	}
	if o.SchemaVersion <= 0 {
		o.SchemaVersion = DefaultSchemaVersion
	}
	if o.QuotaBytes <= 0 {
		o.QuotaBytes = DefaultQuotaBytes
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.OpenTimeout <= 0 {
		o.OpenTimeout = defaultOpenTimeout
	}
	return o
}

// New returns a Store without touching the disk.
func New(opts Options) *Store {
	opts = opts.withDefaults()
	return &Store{
		opts:      opts,
		path:      filepath.Join(opts.Dir, opts.StoreName+".bbolt"),
		records:   []byte(opts.Container),
		byCreated: []byte(opts.Container + ".createdAt"),
		byExpiry:  []byte(opts.Container + ".expiresAt"),
		comp: compress.New(opts.Codec, compress.Options{
			MaxSizeBytes: opts.QuotaBytes,
			MaxDimension: opts.MaxDimension,
			Quality:      opts.Quality,
		}),
	}
}

// Open creates a Store and initializes it.
func Open(ctx context.Context, opts Options) (*Store, error) {
	s := New(opts)
	if err := s.Init(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the store file location.
func (s *Store) Path() string { return s.path }

// Quota returns the per-record size limit in bytes.
func (s *Store) Quota() int64 { return s.opts.QuotaBytes }

// Init opens the store file, applies schema upgrades and sweeps expired
// records. Calls on an open store are no-ops; concurrent callers wait for and
// share the same handle.
func (s *Store) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.handle()
	return err
}

// Close releases the file. It is safe to call more than once.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) handle() (*bolt.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db, nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return nil, &ConnectionError{Op: "open", Err: err}
	}
	db, err := bolt.Open(s.path, 0o600, &bolt.Options{Timeout: s.opts.OpenTimeout})
	if err != nil {
		return nil, &ConnectionError{Op: "open", Err: err}
	}
	if err := db.Update(s.migrate); err != nil {
		_ = db.Close()
		return nil, &ConnectionError{Op: "open", Err: err}
	}
	s.db = db

	n, err := s.sweep(db)
	if err != nil {
		log.Warn().Err(err).Str("store", s.opts.StoreName).Msg("initial sweep failed")
	}
	log.Info().Str("store", s.opts.StoreName).Str("path", s.path).Int("swept", n).Msg("store opened")
	return db, nil
}

// migrate brings the file up to the configured schema version. Upgrades
// rebuild both indexes from the records.
func (s *Store) migrate(tx *bolt.Tx) error {
	meta, err := tx.CreateBucketIfNotExists(metaBucket)
	if err != nil {
		return err
	}
	current := 0
	if v := meta.Get(versionKey); len(v) == 8 {
		current = int(binary.BigEndian.Uint64(v))
	}
	want := s.opts.SchemaVersion
	if current > want {
		return fmt.Errorf("stored schema version %d is newer than %d", current, want)
	}

	if _, err := tx.CreateBucketIfNotExists(s.records); err != nil {
		return err
	}
	if current == want {
		for _, name := range [][]byte{s.byCreated, s.byExpiry} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	}

	for _, name := range [][]byte{s.byCreated, s.byExpiry} {
		if err := tx.DeleteBucket(name); err != nil && !errors.Is(err, berrors.ErrBucketNotFound) {
			return err
		}
		if _, err := tx.CreateBucket(name); err != nil {
			return err
		}
	}
	n := 0
	if err := tx.Bucket(s.records).ForEach(func(_, v []byte) error {
		var rec Record
		if err := json.Unmarshal(v, &rec); err != nil {
			return err
		}
		n++
		return s.index(tx, rec)
	}); err != nil {
		return err
	}

	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(want))
	if err := meta.Put(versionKey, buf); err != nil {
		return err
	}
	log.Info().Str("store", s.opts.StoreName).Int("from", current).Int("to", want).Int("reindexed", n).Msg("schema upgraded")
	return nil
}

// engineErr maps a failure of an open handle onto the error taxonomy.
func engineErr(op string, err error) error {
	if errors.Is(err, berrors.ErrDatabaseNotOpen) || errors.Is(err, berrors.ErrTimeout) {
		return &ConnectionError{Op: op, Err: err}
	}
	return err
}

// indexKey is an 8-byte big-endian unix-nano timestamp followed by the
// record key, so a cursor walks an index in time order.
func indexKey(t time.Time, k Key) []byte {
	ek := k.encode()
	b := make([]byte, 8+len(ek))
	binary.BigEndian.PutUint64(b, uint64(t.UnixNano()))
	copy(b[8:], ek)
	return b
}

func indexTime(b []byte) time.Time {
	return time.Unix(0, int64(binary.BigEndian.Uint64(b[:8])))
}

func (s *Store) index(tx *bolt.Tx, rec Record) error {
	if err := tx.Bucket(s.byCreated).Put(indexKey(rec.CreatedAt, rec.ID), empty); err != nil {
		return err
	}
	if rec.ExpiresAt.IsZero() {
		return nil
	}
	return tx.Bucket(s.byExpiry).Put(indexKey(rec.ExpiresAt, rec.ID), empty)
}

func (s *Store) unindex(tx *bolt.Tx, rec Record) error {
	if err := tx.Bucket(s.byCreated).Delete(indexKey(rec.CreatedAt, rec.ID)); err != nil {
		return err
	}
	if rec.ExpiresAt.IsZero() {
		return nil
	}
	return tx.Bucket(s.byExpiry).Delete(indexKey(rec.ExpiresAt, rec.ID))
}

func (s *Store) load(tx *bolt.Tx, id Key) (Record, bool, error) {
	v := tx.Bucket(s.records).Get(id.encode())
	if v == nil {
		return Record{}, false, nil
	}
	var rec Record
	if err := json.Unmarshal(v, &rec); err != nil {
		return Record{}, false, fmt.Errorf("decode record %s: %w", id, err)
	}
	return rec, true, nil
}

// put writes rec and its index entries, dropping those of prev if given.
func (s *Store) put(tx *bolt.Tx, rec Record, prev *Record) error {
	if prev != nil {
		if err := s.unindex(tx, *prev); err != nil {
			return err
		}
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", rec.ID, err)
	}
	if err := tx.Bucket(s.records).Put(rec.ID.encode(), b); err != nil {
		return err
	}
	return s.index(tx, rec)
}

// remove deletes a record and its index entries. A record that cannot be
// decoded is still removed; its index entries are left for the sweeper.
func (s *Store) remove(tx *bolt.Tx, id Key) (bool, error) {
	rec, ok, err := s.load(tx, id)
	if !ok && err == nil {
		return false, nil
	}
	if err == nil {
		if err := s.unindex(tx, rec); err != nil {
			return false, err
		}
	} else {
		log.Warn().Err(err).Str("id", id.String()).Msg("removing undecodable record")
	}
	return true, tx.Bucket(s.records).Delete(id.encode())
}

// process compresses every binary leaf of data and enforces the quota.
func (s *Store) process(data value.Value) (value.Value, error) {
	out, err := s.compressLeaves(data)
	if err != nil {
		return value.Value{}, err
	}
	return out, s.checkQuota(out)
}

func (s *Store) compressLeaves(data value.Value) (value.Value, error) {
	return value.Transform(data, s.comp.Compress)
}

func (s *Store) checkQuota(data value.Value) error {
	if size := value.EstimateSize(data); size > s.opts.QuotaBytes {
		return &QuotaExceededError{Size: size, Quota: s.opts.QuotaBytes}
	}
	return nil
}
