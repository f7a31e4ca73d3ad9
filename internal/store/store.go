// Package store persists trained model artifacts and generated forecast
// tables. Artifact sets are immutable generations published under a fresh
// ID with an atomically swapped current pointer, so readers never observe
// a half-written model.
package store

import (
	"context"
	"time"

	"github.com/lankastats/tourcast/pkg/models"
)

// ArtifactSet bundles everything a serving process needs to forecast
// without retraining. TreeModel and SeqModel are opaque JSON blobs owned
// by their packages; FeatureColumns preserves the exact training-time
// column order.
type ArtifactSet struct {
	GenerationID   string              `json:"generation_id"`
	CreatedAt      time.Time           `json:"created_at"`
	FeatureColumns []string            `json:"feature_columns"`
	TreeModel      []byte              `json:"tree_model,omitempty"`
	SeqModel       []byte              `json:"seq_model,omitempty"`
	Scaler         []byte              `json:"scaler,omitempty"`
	TreeMetrics    *models.EvalMetrics `json:"tree_metrics,omitempty"`
	SeqMetrics     *models.EvalMetrics `json:"seq_metrics,omitempty"`
}

// ArtifactStore is the persistence contract for trained artifacts.
// Load returns a NotFound error when no generation has been published,
// which callers treat as "model not yet trained".
type ArtifactStore interface {
	// Publish writes the set as a new generation and makes it current.
	// The returned ID identifies the generation.
	Publish(ctx context.Context, set *ArtifactSet) (string, error)

	// Load returns the current generation.
	Load(ctx context.Context) (*ArtifactSet, error)

	// LoadGeneration returns a specific generation by ID.
	LoadGeneration(ctx context.Context, id string) (*ArtifactSet, error)
}

// ForecastStore is the persistence contract for the generated forecast
// table consumed by the query layer.
type ForecastStore interface {
	Save(ctx context.Context, rows []models.ForecastRow) error
	Load(ctx context.Context) ([]models.ForecastRow, error)
}
