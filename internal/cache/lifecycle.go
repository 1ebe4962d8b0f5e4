package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	bolt "go.etcd.io/bbolt"

	"github.com/leonardcser/objcache-mcp/internal/value"
)

var _ Cache = (*Store)(nil)

// Add compresses oversized binary leaves of data, enforces the quota and
// inserts a new record. It fails with ErrDuplicateID if a live record with
// the same id exists; an expired one is replaced.
func (s *Store) Add(ctx context.Context, id Key, data value.Value, opts PutOptions) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	db, err := s.handle()
	if err != nil {
		return Record{}, err
	}
	data, err = s.process(data)
	if err != nil {
		return Record{}, fmt.Errorf("cache: add %s: %w", id, err)
	}

	now := s.opts.Now()
	rec := Record{
		ID:        id,
		Data:      data,
		CreatedAt: now,
		Metadata:  mergeMetadata(nil, opts.Metadata),
	}
	if opts.ExpiresIn != 0 {
		rec.ExpiresAt = now.Add(opts.ExpiresIn)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		prev, ok, err := s.load(tx, id)
		if err != nil {
			return err
		}
		if !ok {
			return s.put(tx, rec, nil)
		}
		if !prev.Expired(now) {
			return fmt.Errorf("cache: add %s: %w", id, ErrDuplicateID)
		}
		return s.put(tx, rec, &prev)
	})
	if err != nil {
		return Record{}, engineErr("add", err)
	}
	log.Debug().Str("id", id.String()).Int64("size", value.EstimateSize(data)).Msg("record added")
	return rec, nil
}

// Get returns the record for id. The boolean is false when the record does
// not exist or has expired; an expired record is deleted as part of the call.
func (s *Store) Get(ctx context.Context, id Key) (Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, false, err
	}
	db, err := s.handle()
	if err != nil {
		return Record{}, false, err
	}

	var (
		rec   Record
		found bool
	)
	if err := db.View(func(tx *bolt.Tx) error {
		rec, found, err = s.load(tx, id)
		return err
	}); err != nil {
		return Record{}, false, engineErr("get", err)
	}
	if !found {
		return Record{}, false, nil
	}
	if rec.Expired(s.opts.Now()) {
		if _, err := s.evict(db, []Key{id}); err != nil {
			return Record{}, false, engineErr("get", err)
		}
		return Record{}, false, nil
	}
	return rec, true, nil
}

// GetAll returns the live records in key order. Expired records seen by the
// scan are deleted before GetAll returns; records written concurrently are
// not affected.
func (s *Store) GetAll(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	now := s.opts.Now()
	var (
		live    []Record
		expired []Key
	)
	if err := db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(s.records).ForEach(func(k, v []byte) error {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode record: %w", err)
			}
			if rec.Expired(now) {
				expired = append(expired, rec.ID)
				return nil
			}
			live = append(live, rec)
			return nil
		})
	}); err != nil {
		return nil, engineErr("getAll", err)
	}

	if len(expired) > 0 {
		if _, err := s.evict(db, expired); err != nil {
			return nil, engineErr("getAll", err)
		}
	}
	return live, nil
}

// Update merges the top-level fields of data into the record's data, then
// checks the quota again. Binary leaves of data are compressed before the
// write; the merge itself runs inside the write transaction so concurrent
// updates all land. ExpiresIn replaces the expiry only when set; Metadata is
// shallow-merged when non-nil. An expired record counts as missing and is
// deleted.
func (s *Store) Update(ctx context.Context, id Key, data value.Value, opts PutOptions) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	db, err := s.handle()
	if err != nil {
		return Record{}, err
	}
	patch, err := s.compressLeaves(data)
	if err != nil {
		return Record{}, fmt.Errorf("cache: update %s: %w", id, err)
	}

	now := s.opts.Now()
	var (
		next    Record
		expired bool
	)
	err = db.Update(func(tx *bolt.Tx) error {
		prev, ok, err := s.load(tx, id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("cache: update %s: %w", id, ErrNotFound)
		}
		if prev.Expired(now) {
			expired = true
			_, err := s.remove(tx, id)
			return err
		}

		next = prev
		next.Data = value.Merge(prev.Data, patch)
		next.Metadata = mergeMetadata(prev.Metadata, opts.Metadata)
		if opts.ExpiresIn != 0 {
			next.ExpiresAt = now.Add(opts.ExpiresIn)
		}
		if err := s.checkQuota(next.Data); err != nil {
			return fmt.Errorf("cache: update %s: %w", id, err)
		}
		return s.put(tx, next, &prev)
	})
	if err != nil {
		return Record{}, engineErr("update", err)
	}
	if expired {
		log.Debug().Str("id", id.String()).Msg("evicted expired record on update")
		return Record{}, fmt.Errorf("cache: update %s: %w", id, ErrNotFound)
	}
	log.Debug().Str("id", id.String()).Msg("record updated")
	return next, nil
}

// Delete removes the record for id. Missing ids are not an error.
func (s *Store) Delete(ctx context.Context, id Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	db, err := s.handle()
	if err != nil {
		return err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := s.remove(tx, id)
		return err
	})
	return engineErr("delete", err)
}

// Clear removes every record.
func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	db, err := s.handle()
	if err != nil {
		return err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{s.records, s.byCreated, s.byExpiry} {
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return engineErr("clear", err)
	}
	log.Info().Str("store", s.opts.StoreName).Msg("store cleared")
	return nil
}

// evict deletes the given records if they are still expired when the write
// transaction runs, so a concurrent rewrite survives.
func (s *Store) evict(db *bolt.DB, ids []Key) (int, error) {
	n := 0
	err := db.Update(func(tx *bolt.Tx) error {
		now := s.opts.Now()
		for _, id := range ids {
			rec, ok, err := s.load(tx, id)
			if err != nil {
				return err
			}
			if !ok || !rec.Expired(now) {
				continue
			}
			if _, err := s.remove(tx, id); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if n > 0 {
		log.Debug().Int("count", n).Msg("evicted expired records on read")
	}
	return n, err
}
