package aof

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dhrubo326/imds/internal/protocol"
	"github.com/stretchr/testify/require"
)

func setupLog(t *testing.T, policy SyncPolicy) (*Log, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "appendonly.aof")
	l, err := Open(path, policy)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l, path
}

func TestAppendReplayRoundTrip(t *testing.T) {
	l, path := setupLog(t, SyncAlways)

	records := [][]string{
		{"SET", "foo", "bar"},
		{"ZADD", "zs", "1.5", "a"},
		{"ZREM", "zs", "1.5", "a"},
		{"DEL", "foo"},
	}
	for _, r := range records {
		require.NoError(t, l.Append(r))
	}
	require.NoError(t, l.Close())

	reopened, err := Open(path, SyncAlways)
	require.NoError(t, err)
	defer reopened.Close()

	var got [][]string
	count, err := reopened.Replay(func(args []string) error {
		got = append(got, args)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, len(records), count)
	require.Equal(t, records, got)
}

func TestReplayStopsAtTruncatedRecord(t *testing.T) {
	l, path := setupLog(t, SyncAlways)
	require.NoError(t, l.Append([]string{"SET", "a", "1"}))
	require.NoError(t, l.Append([]string{"SET", "b", "2"}))
	require.NoError(t, l.Close())

	// Simulate a crash mid-append: a partial frame at the tail.
	partial := protocol.EncodeRequest([]string{"SET", "c", "3"})
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.Write(partial[:len(partial)-4])
	require.NoError(t, err)
	require.NoError(t, f.Close())

	dirty, err := os.Stat(path)
	require.NoError(t, err)

	reopened, err := Open(path, SyncAlways)
	require.NoError(t, err)
	defer reopened.Close()

	var keys []string
	count, err := reopened.Replay(func(args []string) error {
		keys = append(keys, args[1])
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 2, count, "partial record must not be applied")
	require.Equal(t, []string{"a", "b"}, keys)

	// The file is cut back to the last complete frame.
	clean, err := os.Stat(path)
	require.NoError(t, err)
	require.Less(t, clean.Size(), dirty.Size())

	// Appends after repair land on a clean frame boundary.
	require.NoError(t, reopened.Append([]string{"SET", "c", "3"}))
	count, err = reopened.Replay(func([]string) error { return nil })
	require.NoError(t, err)
	require.Equal(t, 3, count)
}

func TestReplayEmptyLog(t *testing.T) {
	l, _ := setupLog(t, SyncNever)
	count, err := l.Replay(func([]string) error { return nil })
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestStats(t *testing.T) {
	l, _ := setupLog(t, SyncNever)
	require.NoError(t, l.Append([]string{"SET", "k", "v"}))
	require.NoError(t, l.Append([]string{"DEL", "k"}))

	appends, bytes := l.Stats()
	require.EqualValues(t, 2, appends)
	require.Greater(t, bytes, int64(0))
}

func TestEverySecondPolicyClosesCleanly(t *testing.T) {
	l, _ := setupLog(t, SyncEverySecond)
	require.NoError(t, l.Append([]string{"SET", "k", "v"}))
	require.NoError(t, l.Close())
	// Close is idempotent.
	require.NoError(t, l.Close())
}

func TestParseSyncPolicy(t *testing.T) {
	cases := map[string]SyncPolicy{
		"always":   SyncAlways,
		"everysec": SyncEverySecond,
		"no":       SyncNever,
	}
	for token, want := range cases {
		got, err := ParseSyncPolicy(token)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := ParseSyncPolicy("sometimes")
	require.Error(t, err)
}
