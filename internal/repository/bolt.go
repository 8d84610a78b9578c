package repository

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/joseph-ayodele/codesnap/internal/common"
	"github.com/joseph-ayodele/codesnap/internal/entity"
)

var (
	// scansBucket keys are created_at (big-endian unix nanos) followed by the id,
	// so cursor order is chronological.
	scansBucket = []byte("scans")
	// idsBucket maps id -> scansBucket key.
	idsBucket = []byte("scan_ids")
)

type boltStore struct {
	db     *bolt.DB
	logger *slog.Logger
}

// OpenBolt opens (creating if needed) the bbolt file at path.
func OpenBolt(path string, timeout time.Duration, logger *slog.Logger) (Store, error) {
	logger.Info("connecting to database", "backend", BackendBolt, "path", path)
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory for bolt: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		logger.Error("failed to open bolt database", "error", err)
		return nil, fmt.Errorf("failed to open bolt: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(scansBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(idsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}
	logger.Info("successfully connected to database", "backend", BackendBolt)
	return &boltStore{db: db, logger: logger}, nil
}

func (b *boltStore) Backend() string { return BackendBolt }

func (b *boltStore) Ping(context.Context) error {
	return b.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(scansBucket) == nil {
			return fmt.Errorf("bucket %q missing", scansBucket)
		}
		return nil
	})
}

func (b *boltStore) Close() error { return b.db.Close() }

func scanKey(s *entity.Scan) []byte {
	k := make([]byte, 8+16)
	binary.BigEndian.PutUint64(k, uint64(s.CreatedAt.UnixNano()))
	copy(k[8:], s.ID[:])
	return k
}

func (b *boltStore) Save(_ context.Context, s *entity.Scan) error {
	if err := prepare(s); err != nil {
		return err
	}
	s.CreatedAt = s.CreatedAt.UTC()
	s.Suggestions = nonNil(s.Suggestions)
	val, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode scan: %w", err)
	}
	key := scanKey(s)
	err = b.db.Update(func(tx *bolt.Tx) error {
		ids := tx.Bucket(idsBucket)
		scans := tx.Bucket(scansBucket)
		if old := ids.Get(s.ID[:]); old != nil {
			if err := scans.Delete(old); err != nil {
				return err
			}
		}
		if err := scans.Put(key, val); err != nil {
			return err
		}
		return ids.Put(s.ID[:], key)
	})
	if err != nil {
		b.logger.Error("failed to save scan", "scan_id", s.ID, "error", err)
		return fmt.Errorf("%w: save scan: %v", common.ErrDatabase, err)
	}
	return nil
}

func (b *boltStore) Get(_ context.Context, id uuid.UUID) (*entity.Scan, error) {
	var out *entity.Scan
	err := b.db.View(func(tx *bolt.Tx) error {
		key := tx.Bucket(idsBucket).Get(id[:])
		if key == nil {
			return nil
		}
		v := tx.Bucket(scansBucket).Get(key)
		if v == nil {
			return nil
		}
		var s entity.Scan
		if err := json.Unmarshal(v, &s); err != nil {
			return err
		}
		out = &s
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: get scan: %v", common.ErrDatabase, err)
	}
	if out == nil {
		return nil, fmt.Errorf("scan %s: %w", id, common.ErrNotFound)
	}
	return out, nil
}

func (b *boltStore) List(ctx context.Context, f ListFilter) ([]*entity.Scan, error) {
	limit := f.limit()
	var out []*entity.Scan
	err := b.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(scansBucket).Cursor()
		var k, v []byte
		if f.To != nil {
			// seek past every key at or before To, then step back
			seek := make([]byte, 8)
			binary.BigEndian.PutUint64(seek, uint64(f.To.UnixNano())+1)
			if k, v = c.Seek(seek); k == nil {
				k, v = c.Last()
			} else {
				k, v = c.Prev()
			}
		} else {
			k, v = c.Last()
		}
		for ; k != nil && len(out) < limit; k, v = c.Prev() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var s entity.Scan
			if err := json.Unmarshal(v, &s); err != nil {
				return err
			}
			if f.From != nil && s.CreatedAt.Before(*f.From) {
				break
			}
			if !f.match(s.CreatedAt) {
				continue
			}
			out = append(out, &s)
		}
		return nil
	})
	if err != nil {
		b.logger.Error("failed to list scans", "error", err)
		return nil, fmt.Errorf("%w: list scans: %v", common.ErrDatabase, err)
	}
	return out, nil
}
