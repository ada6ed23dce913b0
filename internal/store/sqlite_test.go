package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/solar-engine/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_SaveAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	a := sampleAssessment("a1", time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, st.SaveAssessment(ctx, a))

	got, err := st.GetAssessment(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "a1", got.ID)
	assert.Equal(t, a.Address, got.Address)
	assert.Equal(t, 82, got.Recommendation.SuitabilityScore)
	assert.True(t, a.CreatedAt.Equal(got.CreatedAt))
}

func TestSQLite_GetMissing(t *testing.T) {
	st := newTestSQLiteStore(t)
	_, err := st.GetAssessment(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_SaveAssignsID(t *testing.T) {
	st := newTestSQLiteStore(t)
	a := sampleAssessment("", time.Time{})
	require.NoError(t, st.SaveAssessment(context.Background(), a))
	assert.NotEmpty(t, a.ID)

	_, err := st.GetAssessment(context.Background(), a.ID)
	assert.NoError(t, err)
}

func TestSQLite_SaveTwiceUpdates(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	a := sampleAssessment("a1", time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, st.SaveAssessment(ctx, a))
	a.Recommendation.SuitabilityScore = 60
	a.Recommendation.Grade = "C"
	require.NoError(t, st.SaveAssessment(ctx, a))

	list, err := st.ListAssessments(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 60, list[0].Score)
	assert.Equal(t, "C", list[0].Grade)
}

func TestSQLite_List(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"old", "mid", "new"} {
		a := sampleAssessment(id, base.Add(time.Duration(i)*time.Hour))
		if id == "mid" {
			a.PropertyType = model.PropertyFarm
		}
		require.NoError(t, st.SaveAssessment(ctx, a))
	}

	all, err := st.ListAssessments(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "new", all[0].ID)
	assert.Equal(t, "old", all[2].ID)
	assert.Equal(t, "165 Richmond St, Charlottetown, C1A 1J1, Canada", all[0].Address)
	assert.InDelta(t, 7.2, all[0].SystemSizeKW, 1e-9)

	farms, err := st.ListAssessments(ctx, ListFilter{PropertyType: model.PropertyFarm})
	require.NoError(t, err)
	require.Len(t, farms, 1)
	assert.Equal(t, "mid", farms[0].ID)

	page, err := st.ListAssessments(ctx, ListFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "mid", page[0].ID)
}

func TestSQLite_ListEmpty(t *testing.T) {
	st := newTestSQLiteStore(t)
	list, err := st.ListAssessments(context.Background(), ListFilter{})
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}
