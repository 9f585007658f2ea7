package audit

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrapeguard/pkg/logger"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()
	l, err := OpenInMemory(WithLogger(logger.NewTestLogger()))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestRecordAndList(t *testing.T) {
	l := openTestLog(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, l.Record(Entry{Time: base, Username: "alice", State: "GRANTED", Granted: true}))
	require.NoError(t, l.Record(Entry{Time: base.Add(time.Second), Username: "bob", State: "DENIED", DeniedAt: "COMPARING"}))
	require.NoError(t, l.Record(Entry{Time: base.Add(2 * time.Second), Username: "mallory", State: "DENIED", DeniedAt: "LOADED", Reason: "not_found"}))

	entries, err := l.List(0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "mallory", entries[0].Username)
	assert.Equal(t, "bob", entries[1].Username)
	assert.Equal(t, "alice", entries[2].Username)
	assert.True(t, entries[2].Granted)
	assert.Equal(t, base, entries[2].Time)

	latest, err := l.List(1)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, "mallory", latest[0].Username)
	assert.Equal(t, "not_found", latest[0].Reason)

	n, err := l.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestRecordSameTimestamp(t *testing.T) {
	l := openTestLog(t)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for _, name := range []string{"first", "second", "third"} {
		require.NoError(t, l.Record(Entry{Time: at, Username: name}))
	}

	entries, err := l.List(0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, []string{"third", "second", "first"}, []string{entries[0].Username, entries[1].Username, entries[2].Username})
}

func TestRecordFillsTime(t *testing.T) {
	l := openTestLog(t)
	fixed := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	require.NoError(t, l.Record(Entry{Username: "alice"}))

	entries, err := l.List(0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, fixed, entries[0].Time)
}

func TestEmptyLog(t *testing.T) {
	l := openTestLog(t)

	entries, err := l.List(10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestOpenOnDiskPersists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "audit")

	l, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, l.Record(Entry{Username: "alice", State: "GRANTED", Granted: true}))
	require.NoError(t, l.Close())

	reopened, err := Open(dir)
	require.NoError(t, err)
	defer reopened.Close()

	entries, err := reopened.List(0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "alice", entries[0].Username)
}
