package channel_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/antonkass/eventsink/internal/channel"
	"github.com/antonkass/eventsink/internal/event"
)

func openFileChannel(t *testing.T, dir string) *channel.FileChannel {
	t.Helper()
	ch, err := channel.OpenFile(zaptest.NewLogger(t), &channel.FileConfig{
		Dir:       dir,
		SyncOnPut: true,
	})
	require.NoError(t, err)
	return ch
}

func TestFile_CommitConsumesInOrder(t *testing.T) {
	t.Parallel()

	ch := openFileChannel(t, t.TempDir())
	defer ch.Close()
	putAll(t, ch, "a", "b", "c")

	tx, err := ch.BeginTx()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, takeAll(t, tx))
	require.NoError(t, tx.Commit())
	tx.Close()

	assert.Equal(t, 0, ch.Depth())
}

func TestFile_RollbackKeepsEvents(t *testing.T) {
	t.Parallel()

	ch := openFileChannel(t, t.TempDir())
	defer ch.Close()
	putAll(t, ch, "a", "b")

	tx, err := ch.BeginTx()
	require.NoError(t, err)
	takeAll(t, tx)
	require.NoError(t, tx.Rollback())
	tx.Close()

	assert.Equal(t, 2, ch.Depth())

	tx2, err := ch.BeginTx()
	require.NoError(t, err)
	defer tx2.Close()
	assert.Equal(t, []string{"a", "b"}, takeAll(t, tx2))
}

func TestFile_SnapshotHidesConcurrentPuts(t *testing.T) {
	t.Parallel()

	ch := openFileChannel(t, t.TempDir())
	defer ch.Close()
	putAll(t, ch, "a")

	tx, err := ch.BeginTx()
	require.NoError(t, err)
	defer tx.Close()

	putAll(t, ch, "b")

	assert.Equal(t, []string{"a"}, takeAll(t, tx))
	require.NoError(t, tx.Commit())

	assert.Equal(t, 1, ch.Depth())
}

func TestFile_SurvivesReopen(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	ch := openFileChannel(t, dir)
	putAll(t, ch, "a", "b")
	require.NoError(t, ch.Close())

	ch2 := openFileChannel(t, dir)
	defer ch2.Close()
	putAll(t, ch2, "c")

	tx, err := ch2.BeginTx()
	require.NoError(t, err)
	defer tx.Close()
	assert.Equal(t, []string{"a", "b", "c"}, takeAll(t, tx))
}

func TestFile_HeadersRoundTrip(t *testing.T) {
	t.Parallel()

	ch := openFileChannel(t, t.TempDir())
	defer ch.Close()

	require.NoError(t, ch.Put(event.New([]byte("x")).WithHeader("source", "test")))

	tx, err := ch.BeginTx()
	require.NoError(t, err)
	defer tx.Close()

	ev, ok, err := tx.Take()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "test", ev.Headers["source"])
}
