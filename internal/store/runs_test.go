package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odooscope/odooscope/internal/testutil"
)

func setupStore(t *testing.T) *Store {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(db.Close)

	s := &Store{pool: db.Pool}
	require.NoError(t, s.Migrate(context.Background()))
	db.Cleanup(t)
	t.Cleanup(func() { db.Cleanup(t) })

	return s
}

func sampleRun() *AnalysisRun {
	return &AnalysisRun{
		ID:         uuid.New(),
		ModuleName: "Library Management",
		ModulePath: "/tmp/library_app",
		CommitSHA:  "abc123def456",
		ModelCount: 4,
		ViewCount:  3,
		RuleCount:  7,
		MenuCount:  3,
		Snapshot:   json.RawMessage(`{"module_name":"Library Management"}`),
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestSaveAndGetRun(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	run := sampleRun()
	require.NoError(t, s.SaveRun(ctx, run))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, run.ModuleName, got.ModuleName)
	assert.Equal(t, run.CommitSHA, got.CommitSHA)
	assert.Equal(t, run.ModelCount, got.ModelCount)
	assert.Equal(t, run.RuleCount, got.RuleCount)
	assert.JSONEq(t, string(run.Snapshot), string(got.Snapshot))
}

func TestGetRun_Absent(t *testing.T) {
	s := setupStore(t)

	got, err := s.GetRun(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestListRuns(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	older := sampleRun()
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)
	newer := sampleRun()

	require.NoError(t, s.SaveRun(ctx, older))
	require.NoError(t, s.SaveRun(ctx, newer))

	runs, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, newer.ID, runs[0].ID, "newest first")
	assert.Equal(t, older.ID, runs[1].ID)

	limited, err := s.ListRuns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
