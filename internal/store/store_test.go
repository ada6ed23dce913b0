package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/solar-engine/internal/config"
	"github.com/sells-group/solar-engine/internal/model"
)

func sampleAssessment(id string, created time.Time) *model.Assessment {
	return &model.Assessment{
		ID: id,
		Address: model.Address{
			Street:     "165 Richmond St",
			City:       "Charlottetown",
			PostalCode: "C1A 1J1",
			Country:    "Canada",
		},
		PropertyType: model.PropertyResidential,
		Location:     model.GeocodedLocation{Latitude: 46.235, Longitude: -63.126},
		Recommendation: model.SolarRecommendation{
			SuitabilityScore: 82,
			Grade:            "B",
			SystemSizeKW:     7.2,
		},
		CreatedAt: created,
	}
}

func TestOpen(t *testing.T) {
	s, err := Open(context.Background(), config.StoreConfig{})
	require.NoError(t, err)
	assert.Nil(t, s)

	_, err = Open(context.Background(), config.StoreConfig{Driver: "mongo"})
	assert.Error(t, err)
}

func TestListFilterLimit(t *testing.T) {
	assert.Equal(t, DefaultListLimit, ListFilter{}.limit())
	assert.Equal(t, DefaultListLimit, ListFilter{Limit: 10000}.limit())
	assert.Equal(t, 5, ListFilter{Limit: 5}.limit())
}

func TestPrepare(t *testing.T) {
	a := &model.Assessment{}
	prepare(a)
	assert.Len(t, a.ID, 36)
	assert.False(t, a.CreatedAt.IsZero())

	b := &model.Assessment{ID: "fixed"}
	prepare(b)
	assert.Equal(t, "fixed", b.ID)
}
