// Package store defines the complaint record store consumed by the
// services layer, with a MongoDB implementation for production and an
// in-memory implementation for tests and local development.
package store

import (
	"context"

	"github.com/nagarseva/civic-server/internal/models"
)

// Filter narrows authority/admin listings. Zero values mean "any";
// page and limit are clamped to the store's page bounds.
type Filter struct {
	Status     models.Status
	Category   models.Category
	AssigneeID string
	Page       int
	Limit      int
}

// GeoFilter keeps only complaints within RadiusKm of the given point.
// Complaints without a full coordinate pair never match.
type GeoFilter struct {
	Latitude  float64
	Longitude float64
	RadiusKm  float64
}

// PublicFilter narrows the public read-only listing.
type PublicFilter struct {
	Status   models.Status
	Category models.Category
	Near     *GeoFilter
	Page     int
	Limit    int
}

// Mutation is a tagged, single-shot change to one complaint. Exactly one
// field is set per call; the store applies it atomically so concurrent
// readers never observe a partial write.
type Mutation struct {
	SetStatus   *StatusChange
	AddComment  *models.Comment
	SetAssignee *models.UserRef
}

// StatusChange moves a complaint to a new status. Resolution fields are
// written only when the target status is resolving, and only when supplied;
// previously stored values are otherwise left untouched.
type StatusChange struct {
	Status           models.Status
	ResolutionNotes  string
	ResolutionPhotos []string
}

// ComplaintStore is the persistence boundary of the core. Implementations
// guarantee per-record atomicity: concurrent mutations to the same
// complaint serialize, and a mutation is either fully applied or not at
// all. Lookup misses surface models.ErrNotFound; transient backend
// failures surface wrapped models.ErrStoreUnavailable.
type ComplaintStore interface {
	Create(ctx context.Context, c *models.Complaint) (string, error)
	GetByID(ctx context.Context, id string) (*models.Complaint, error)
	ListByCreator(ctx context.Context, creatorID string) ([]models.Complaint, error)
	ListAll(ctx context.Context, f Filter) ([]models.Complaint, error)
	ListPublic(ctx context.Context, f PublicFilter) ([]models.Complaint, error)
	CountByStatus(ctx context.Context) (models.PublicStats, error)
	ApplyMutation(ctx context.Context, id string, m Mutation) (*models.Complaint, error)
}
