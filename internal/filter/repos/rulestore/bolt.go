package rulestore

import (
	"encoding/binary"
	"strings"
	"time"

	bbolt "go.etcd.io/bbolt"

	"github.com/surfgate/filterd/internal/filter/domain"
)

var (
	bucketSnapshot = []byte("snapshot")
	bucketMeta     = []byte("meta")

	keyLines   = []byte("lines")
	keySource  = []byte("source")
	keyUpdated = []byte("updated")
)

// snapshotDB persists the most recent ruleset as a single blob plus metadata,
// so a restart can serve the last good generation before the list supplier
// delivers fresh text.
type snapshotDB struct {
	db *bbolt.DB
}

func openSnapshotDB(path string) (*snapshotDB, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketSnapshot); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketMeta)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &snapshotDB{db: db}, nil
}

func (s *snapshotDB) close() error { return s.db.Close() }

// save overwrites the snapshot with the given ruleset.
func (s *snapshotDB) save(rs *domain.RuleSet) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		snap := tx.Bucket(bucketSnapshot)
		if err := snap.Put(keyLines, []byte(strings.Join(rs.Lines, "\n"))); err != nil {
			return err
		}
		meta := tx.Bucket(bucketMeta)
		if err := meta.Put(keySource, []byte(rs.Source)); err != nil {
			return err
		}
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(rs.FetchedAt.Unix()))
		return meta.Put(keyUpdated, buf)
	})
}

// load reads the snapshot back; ok is false when none was ever saved.
func (s *snapshotDB) load() (lines []string, source string, fetchedAt time.Time, ok bool, err error) {
	err = s.db.View(func(tx *bbolt.Tx) error {
		snap := tx.Bucket(bucketSnapshot)
		blob := snap.Get(keyLines)
		if blob == nil {
			return nil
		}
		lines = strings.Split(string(blob), "\n")
		ok = true
		meta := tx.Bucket(bucketMeta)
		source = string(meta.Get(keySource))
		if v := meta.Get(keyUpdated); len(v) == 8 {
			fetchedAt = time.Unix(int64(binary.BigEndian.Uint64(v)), 0)
		}
		return nil
	})
	return lines, source, fetchedAt, ok, err
}
