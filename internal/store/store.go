// Package store persists completed assessments so they can be retrieved
// later by id or listed.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/solar-engine/internal/config"
	"github.com/sells-group/solar-engine/internal/model"
)

// ErrNotFound is returned when an assessment id is unknown.
var ErrNotFound = eris.New("store: assessment not found")

// DefaultListLimit bounds ListAssessments when no limit is given.
const DefaultListLimit = 50

// ListFilter specifies criteria for listing assessments.
type ListFilter struct {
	PropertyType model.PropertyType `json:"propertyType,omitempty"`
	Limit        int                `json:"limit,omitempty"`
	Offset       int                `json:"offset,omitempty"`
}

func (f ListFilter) limit() int {
	if f.Limit <= 0 || f.Limit > 500 {
		return DefaultListLimit
	}
	return f.Limit
}

// Summary is the list view of a stored assessment.
type Summary struct {
	ID           string             `json:"id"`
	Address      string             `json:"address"`
	PropertyType model.PropertyType `json:"propertyType"`
	Score        int                `json:"suitabilityScore"`
	Grade        string             `json:"grade"`
	SystemSizeKW float64            `json:"systemSizeKw"`
	CreatedAt    time.Time          `json:"createdAt"`
}

// Store defines assessment history persistence.
type Store interface {
	SaveAssessment(ctx context.Context, a *model.Assessment) error
	GetAssessment(ctx context.Context, id string) (*model.Assessment, error)
	ListAssessments(ctx context.Context, filter ListFilter) ([]Summary, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Open connects the backend named by cfg.Driver. An empty driver disables
// history and returns a nil Store.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "":
		return nil, nil
	case "sqlite":
		return NewSQLite(cfg.DatabaseURL)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}

func summaryOf(a *model.Assessment) Summary {
	return Summary{
		ID:           a.ID,
		Address:      a.Address.OneLine(),
		PropertyType: a.PropertyType,
		Score:        a.Recommendation.SuitabilityScore,
		Grade:        a.Recommendation.Grade,
		SystemSizeKW: a.Recommendation.SystemSizeKW,
		CreatedAt:    a.CreatedAt,
	}
}
