package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	bolt "go.etcd.io/bbolt"

	"github.com/leonardcser/objcache-mcp/internal/value"
)

// CleanupExpired deletes every record whose expiry has passed and returns
// the number removed. Init runs it once; callers may run it periodically.
func (s *Store) CleanupExpired(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	db, err := s.handle()
	if err != nil {
		return 0, err
	}
	n, err := s.sweep(db)
	if err != nil {
		return 0, engineErr("cleanupExpired", err)
	}
	return n, nil
}

// sweep walks the expiry index up to now.
func (s *Store) sweep(db *bolt.DB) (int, error) {
	n := 0
	err := db.Update(func(tx *bolt.Tx) error {
		now := s.opts.Now()
		idx := tx.Bucket(s.byExpiry)

		var due [][]byte
		c := idx.Cursor()
		for k, _ := c.First(); k != nil && len(k) > 8 && !indexTime(k).After(now); k, _ = c.Next() {
			due = append(due, append([]byte(nil), k...))
		}

		for _, k := range due {
			id, err := decodeKey(k[8:])
			if err != nil {
				return err
			}
			rec, ok, err := s.load(tx, id)
			if err != nil {
				return err
			}
			if !ok || !rec.Expired(now) {
				// stale entry
				if err := idx.Delete(k); err != nil {
					return err
				}
				continue
			}
			if _, err := s.remove(tx, id); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Info().Str("store", s.opts.StoreName).Int("count", n).Msg("swept expired records")
	}
	return n, nil
}

// Stats counts live records and their estimated size, and the expired
// records still waiting to be swept. It does not delete anything.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}
	db, err := s.handle()
	if err != nil {
		return Stats{}, err
	}

	now := s.opts.Now()
	var st Stats
	err = db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(s.records).ForEach(func(_, v []byte) error {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode record: %w", err)
			}
			if rec.Expired(now) {
				st.ExpiredItemsPending++
				return nil
			}
			st.TotalItems++
			st.TotalSizeBytes += value.EstimateSize(rec.Data)
			return nil
		})
	})
	if err != nil {
		return Stats{}, engineErr("stats", err)
	}
	return st, nil
}
