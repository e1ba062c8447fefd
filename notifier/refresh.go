package notifier

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

var refreshBucket = []byte("needs_refresh")

type MarkedFn func(mediaId string)

// RefreshStore tracks items whose server copy changed since they were last
// fetched. The sync side marks them, fetches clear them.
type RefreshStore struct {
	db *bolt.DB

	listenersLock sync.Mutex
	listeners     []MarkedFn
}

func Open(dbPath string) (*RefreshStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open refresh db")
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(refreshBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &RefreshStore{db: db, listeners: make([]MarkedFn, 0)}, nil
}

// OnMarked registers fn to run after an item is flagged.
func (s *RefreshStore) OnMarked(fn MarkedFn) {
	s.listenersLock.Lock()
	defer s.listenersLock.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *RefreshStore) MarkForRefresh(mediaId string) error {
	stamp := make([]byte, 8)
	binary.BigEndian.PutUint64(stamp, uint64(time.Now().UnixMilli()))
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(refreshBucket).Put([]byte(mediaId), stamp)
	})
	if err != nil {
		return err
	}

	s.listenersLock.Lock()
	listeners := make([]MarkedFn, len(s.listeners))
	copy(listeners, s.listeners)
	s.listenersLock.Unlock()
	for _, fn := range listeners {
		fn(mediaId)
	}
	return nil
}

func (s *RefreshStore) NeedsRefresh(mediaId string) bool {
	marked := false
	err := s.db.View(func(tx *bolt.Tx) error {
		marked = tx.Bucket(refreshBucket).Get([]byte(mediaId)) != nil
		return nil
	})
	if err != nil {
		logrus.Warn("Error reading refresh flag: ", err)
		return false
	}
	return marked
}

// MarkedAt is when mediaId was last flagged, or the zero time.
func (s *RefreshStore) MarkedAt(mediaId string) time.Time {
	var at time.Time
	_ = s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(refreshBucket).Get([]byte(mediaId))
		if len(v) == 8 {
			at = time.UnixMilli(int64(binary.BigEndian.Uint64(v)))
		}
		return nil
	})
	return at
}

func (s *RefreshStore) Clear(mediaId string) {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(refreshBucket).Delete([]byte(mediaId))
	})
	if err != nil {
		sentry.CaptureException(err)
		logrus.Error("Error clearing refresh flag for ", mediaId, ": ", err)
	}
}

func (s *RefreshStore) Pending() int {
	n := 0
	_ = s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(refreshBucket).Stats().KeyN
		return nil
	})
	return n
}

func (s *RefreshStore) Close() error {
	return s.db.Close()
}
