package notifier

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *RefreshStore {
	s, err := Open(filepath.Join(t.TempDir(), "sub", "refresh.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func TestMarkAndClear(t *testing.T) {
	s := openStore(t)

	assert.False(t, s.NeedsRefresh("a"))
	require.NoError(t, s.MarkForRefresh("a"))
	assert.True(t, s.NeedsRefresh("a"))
	assert.False(t, s.NeedsRefresh("b"))
	assert.Equal(t, 1, s.Pending())

	s.Clear("a")
	assert.False(t, s.NeedsRefresh("a"))
	assert.Equal(t, 0, s.Pending())

	// clearing an unmarked item is harmless
	s.Clear("a")
}

func TestMarkedAt(t *testing.T) {
	s := openStore(t)
	assert.True(t, s.MarkedAt("a").IsZero())

	before := time.Now().Add(-time.Second)
	require.NoError(t, s.MarkForRefresh("a"))
	assert.True(t, s.MarkedAt("a").After(before))
}

func TestListenersSeeMarks(t *testing.T) {
	s := openStore(t)

	lock := &sync.Mutex{}
	seen := make([]string, 0)
	s.OnMarked(func(mediaId string) {
		lock.Lock()
		defer lock.Unlock()
		seen = append(seen, mediaId)
	})

	require.NoError(t, s.MarkForRefresh("x"))
	require.NoError(t, s.MarkForRefresh("y"))
	s.Clear("x")

	lock.Lock()
	defer lock.Unlock()
	assert.Equal(t, []string{"x", "y"}, seen)
}

func TestFlagsSurviveReopen(t *testing.T) {
	p := filepath.Join(t.TempDir(), "refresh.db")
	s, err := Open(p)
	require.NoError(t, err)
	require.NoError(t, s.MarkForRefresh("keep"))
	require.NoError(t, s.Close())

	s, err = Open(p)
	require.NoError(t, err)
	defer s.Close()
	assert.True(t, s.NeedsRefresh("keep"))
}
