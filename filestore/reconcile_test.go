package filestore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/rowdb/errors"
)

func TestReconcileDeletesUnreferenced(t *testing.T) {
	s := newStore(t, JSONCodec{})
	keep, err := s.Store("keep")
	require.NoError(t, err)
	stale, err := s.Store("stale")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(s.Folder(), "abc.tmp"), []byte("partial"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(s.Folder(), "notes.txt"), []byte("left alone"), 0o644))

	report, err := s.Reconcile([]LiveRef{{Row: "id=1", Ref: keep}})
	require.NoError(t, err)
	assert.Equal(t, Report{Live: 1, Deleted: []string{stale}, TempRemoved: 1}, report)

	refs, err := s.Refs()
	require.NoError(t, err)
	assert.Equal(t, []string{keep}, refs)
	assert.FileExists(t, filepath.Join(s.Folder(), "notes.txt"), "foreign files are not ours to delete")

	report, err = s.Reconcile([]LiveRef{{Row: "id=1", Ref: keep}})
	require.NoError(t, err)
	assert.Empty(t, report.Deleted, "second run is a no-op")
	assert.Zero(t, report.TempRemoved)
}

func TestReconcileDanglingDeletesNothing(t *testing.T) {
	s := newStore(t, JSONCodec{})
	orphan, err := s.Store("orphan")
	require.NoError(t, err)

	gone := "4c1d7f0e-8a55-4d9e-b1a0-3f3b2c9d1e77.json"
	_, err = s.Reconcile([]LiveRef{{Row: "id=7", Ref: gone}, {Row: "id=8", Ref: gone}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDanglingReference))
	assert.True(t, errors.IsDomainError(err))
	assert.Contains(t, errors.FlattenDetails(err), "id=7")
	assert.Contains(t, errors.FlattenDetails(err), "id=8")

	assert.FileExists(t, filepath.Join(s.Folder(), orphan))
}

func TestReconcileEmpty(t *testing.T) {
	s := newStore(t, CBORCodec{})
	for range 3 {
		_, err := s.Store(map[string]int{"n": 1})
		require.NoError(t, err)
	}

	report, err := s.Reconcile(nil)
	require.NoError(t, err)
	assert.Len(t, report.Deleted, 3)

	refs, err := s.Refs()
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestReconcileInvalidReference(t *testing.T) {
	s := newStore(t, JSONCodec{})
	_, err := s.Reconcile([]LiveRef{{Row: "id=1", Ref: "../escape.json"}})
	assert.True(t, errors.Is(err, errors.ErrInvalidReference))
}
