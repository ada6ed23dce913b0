package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/solar-engine/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

var summaryColumns = []string{"id", "address", "property_type", "score", "grade", "system_size_kw", "created_at"}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS assessments`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveAssessment(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	created := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO assessments .* ON CONFLICT \(id\) DO UPDATE`).
		WithArgs("a1", "165 Richmond St, Charlottetown, C1A 1J1, Canada", "residential", 82, "B", 7.2, pgxmock.AnyArg(), created).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.SaveAssessment(context.Background(), sampleAssessment("a1", created)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveAssessment_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO assessments`).
		WillReturnError(errors.New("connection reset"))

	err := s.SaveAssessment(context.Background(), sampleAssessment("a1", time.Now()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: save assessment a1")
}

func TestPostgresStore_GetAssessment(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	payload, err := json.Marshal(sampleAssessment("a1", time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT payload FROM assessments WHERE id = \$1`).
		WithArgs("a1").
		WillReturnRows(pgxmock.NewRows([]string{"payload"}).AddRow(payload))

	got, err := s.GetAssessment(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, "B", got.Recommendation.Grade)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetAssessment_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT payload FROM assessments WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetAssessment(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListAssessments(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	created := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, address, property_type, score, grade, system_size_kw, created_at FROM assessments ORDER BY created_at DESC LIMIT \$1 OFFSET \$2`).
		WithArgs(DefaultListLimit, 0).
		WillReturnRows(pgxmock.NewRows(summaryColumns).
			AddRow("a2", "2 Main St", "farm", 70, "B", 10.0, created.Add(time.Hour)).
			AddRow("a1", "1 Main St", "residential", 82, "B", 7.2, created))

	list, err := s.ListAssessments(context.Background(), ListFilter{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a2", list[0].ID)
	assert.Equal(t, model.PropertyFarm, list[0].PropertyType)
	assert.Equal(t, 82, list[1].Score)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListAssessments_Filtered(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`WHERE property_type = \$1 ORDER BY created_at DESC LIMIT \$2 OFFSET \$3`).
		WithArgs("business", 10, 20).
		WillReturnRows(pgxmock.NewRows(summaryColumns))

	list, err := s.ListAssessments(context.Background(), ListFilter{PropertyType: model.PropertyBusiness, Limit: 10, Offset: 20})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NoError(t, mock.ExpectationsWereMet())
}
