package state

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history", "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecordAndReadBuild(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	started := time.Now().Add(-time.Minute).Truncate(time.Second)
	build := BuildRecord{
		ID:        "build-1",
		Started:   started,
		Finished:  started.Add(30 * time.Second),
		Outcome:   "success",
		Converted: 2,
		Skipped:   1,
	}
	files := []FileRecord{
		{BuildID: "build-1", Notebook: "cavity.ipynb", Status: "converted", Duration: 12 * time.Second},
		{BuildID: "build-1", Notebook: "lattice.ipynb", Status: "converted", Duration: 9 * time.Second},
		{BuildID: "build-1", Notebook: "ramsey.ipynb", Status: "skipped"},
	}
	require.NoError(t, s.RecordBuild(ctx, build, files))

	builds, err := s.RecentBuilds(ctx, 10)
	require.NoError(t, err)
	require.Len(t, builds, 1)
	assert.Equal(t, "build-1", builds[0].ID)
	assert.Equal(t, "success", builds[0].Outcome)
	assert.Equal(t, 2, builds[0].Converted)
	assert.Equal(t, 1, builds[0].Skipped)
	assert.Equal(t, started.Unix(), builds[0].Started.Unix())

	got, err := s.BuildFiles(ctx, "build-1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "cavity.ipynb", got[0].Notebook)
	assert.Equal(t, 12*time.Second, got[0].Duration)
}

func TestRecentBuildsOrderAndLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		b := BuildRecord{
			ID:       string(rune('a' + i)),
			Started:  base.Add(time.Duration(i) * time.Minute),
			Finished: base.Add(time.Duration(i)*time.Minute + 10*time.Second),
			Outcome:  "success",
		}
		require.NoError(t, s.RecordBuild(ctx, b, nil))
	}

	builds, err := s.RecentBuilds(ctx, 3)
	require.NoError(t, err)
	require.Len(t, builds, 3)
	assert.Equal(t, "e", builds[0].ID, "newest first")
	assert.Equal(t, "d", builds[1].ID)
	assert.Equal(t, "c", builds[2].ID)
}

func TestFailureRecordsError(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	build := BuildRecord{ID: "b", Started: time.Now(), Finished: time.Now(), Outcome: "failure", Failed: 1}
	files := []FileRecord{{BuildID: "b", Notebook: "broken.ipynb", Status: "failed", Error: "exit status 1"}}
	require.NoError(t, s.RecordBuild(ctx, build, files))

	got, err := s.BuildFiles(ctx, "b")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "exit status 1", got[0].Error)
}

func TestNilStoreIsNoOp(t *testing.T) {
	var s *Store
	ctx := context.Background()

	assert.NoError(t, s.RecordBuild(ctx, BuildRecord{}, nil))
	builds, err := s.RecentBuilds(ctx, 5)
	assert.NoError(t, err)
	assert.Nil(t, builds)
	assert.NoError(t, s.Close())
}

func TestClosedStore(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Close())

	err := s.RecordBuild(context.Background(), BuildRecord{ID: "x", Started: time.Now(), Finished: time.Now(), Outcome: "success"}, nil)
	assert.ErrorIs(t, err, ErrStoreClosed)
}
