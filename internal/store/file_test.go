package store

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFileStore_AppendAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "readings.json")

	s, err := NewFileStore(discardLogger(), path, DefaultCapacity)
	require.NoError(t, err)

	for i := 1; i <= 5; i++ {
		_, err := s.Append(testReading(i))
		require.NoError(t, err)
	}

	reopened, err := NewFileStore(discardLogger(), path, DefaultCapacity)
	require.NoError(t, err)

	assert.Equal(t, 5, reopened.Size())
	assert.Equal(t, s.All(), reopened.All())

	latest, ok := reopened.Latest()
	require.True(t, ok)
	assert.Equal(t, testReading(5), latest)
}

func TestFileStore_Retention(t *testing.T) {
	path := filepath.Join(t.TempDir(), "readings.json")

	s, err := NewFileStore(discardLogger(), path, DefaultCapacity)
	require.NoError(t, err)

	for i := 1; i <= 150; i++ {
		_, err := s.Append(testReading(i))
		require.NoError(t, err)
	}

	assert.Equal(t, 100, s.Size())
	all := s.All()
	assert.Equal(t, testReading(51), all[0])
	assert.Equal(t, testReading(150), all[99])
}

func TestFileStore_LoadTruncatesToCapacity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "readings.json")

	big, err := NewFileStore(discardLogger(), path, 10)
	require.NoError(t, err)
	for i := 1; i <= 10; i++ {
		_, err := big.Append(testReading(i))
		require.NoError(t, err)
	}

	// Reopen with a smaller bound: only the newest readings survive.
	small, err := NewFileStore(discardLogger(), path, 4)
	require.NoError(t, err)

	assert.Equal(t, 4, small.Size())
	assert.Equal(t, testReading(7), small.All()[0])
	assert.Equal(t, testReading(10), small.All()[3])
}

func TestFileStore_AppendRollsBackOnWriteFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "readings.json")

	s, err := NewFileStore(discardLogger(), path, DefaultCapacity)
	require.NoError(t, err)

	_, err = s.Append(testReading(1))
	require.NoError(t, err)

	// Occupy the temp path with a directory so the next write cannot land.
	require.NoError(t, os.Mkdir(path+".tmp", 0755))

	_, err = s.Append(testReading(2))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersistenceFailure)

	// The failed append must not leave an in-memory-only reading behind.
	assert.Equal(t, 1, s.Size())
	latest, ok := s.Latest()
	require.True(t, ok)
	assert.Equal(t, testReading(1), latest)

	require.NoError(t, os.Remove(path+".tmp"))

	_, err = s.Append(testReading(2))
	require.NoError(t, err)
	assert.Equal(t, 2, s.Size())
}

func TestFileStore_ClearPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "readings.json")

	s, err := NewFileStore(discardLogger(), path, DefaultCapacity)
	require.NoError(t, err)

	_, err = s.Append(testReading(1))
	require.NoError(t, err)
	require.NoError(t, s.Clear())

	reopened, err := NewFileStore(discardLogger(), path, DefaultCapacity)
	require.NoError(t, err)
	assert.Equal(t, 0, reopened.Size())
}

func TestFileStore_CorruptFileRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "readings.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0644))

	_, err := NewFileStore(discardLogger(), path, DefaultCapacity)
	require.Error(t, err)
}
