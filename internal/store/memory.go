package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/nagarseva/civic-server/internal/models"
)

// MemoryStore is an in-process ComplaintStore used by tests and local
// development without a MongoDB instance. A single mutex serializes all
// mutations; records are deep-copied across the boundary so callers can
// never observe or corrupt a half-applied change.
type MemoryStore struct {
	mu         sync.RWMutex
	complaints map[string]*models.Complaint
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{complaints: make(map[string]*models.Complaint)}
}

func (s *MemoryStore) Create(_ context.Context, c *models.Complaint) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	s.complaints[c.ID.Hex()] = clone(c)
	return c.ID.Hex(), nil
}

func (s *MemoryStore) GetByID(_ context.Context, id string) (*models.Complaint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.complaints[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return clone(c), nil
}

func (s *MemoryStore) ListByCreator(_ context.Context, creatorID string) ([]models.Complaint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := []models.Complaint{}
	for _, c := range s.complaints {
		if c.CreatedBy.ID == creatorID {
			matched = append(matched, *clone(c))
		}
	}
	sortNewestFirst(matched)
	return matched, nil
}

func (s *MemoryStore) ListAll(_ context.Context, f Filter) ([]models.Complaint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := []models.Complaint{}
	for _, c := range s.complaints {
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		if f.Category != "" && c.Category != f.Category {
			continue
		}
		if f.AssigneeID != "" && (c.AssignedTo == nil || c.AssignedTo.ID != f.AssigneeID) {
			continue
		}
		matched = append(matched, *clone(c))
	}
	sortNewestFirst(matched)
	return paginate(matched, f.Page, f.Limit), nil
}

func (s *MemoryStore) ListPublic(_ context.Context, f PublicFilter) ([]models.Complaint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := []models.Complaint{}
	for _, c := range s.complaints {
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		if f.Category != "" && c.Category != f.Category {
			continue
		}
		if f.Near != nil && !withinRadius(c.Location, *f.Near) {
			continue
		}
		matched = append(matched, *clone(c))
	}
	sortNewestFirst(matched)
	return paginate(matched, f.Page, f.Limit), nil
}

func (s *MemoryStore) CountByStatus(_ context.Context) (models.PublicStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats models.PublicStats
	for _, c := range s.complaints {
		stats.Total++
		switch c.Status {
		case models.StatusPending:
			stats.Pending++
		case models.StatusInProgress:
			stats.InProgress++
		case models.StatusResolved:
			stats.Resolved++
		case models.StatusRejected:
			stats.Rejected++
		}
	}
	return stats, nil
}

func (s *MemoryStore) ApplyMutation(_ context.Context, id string, m Mutation) (*models.Complaint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.complaints[id]
	if !ok {
		return nil, models.ErrNotFound
	}

	now := time.Now()
	switch {
	case m.SetStatus != nil:
		if c.Status.Terminal() {
			return nil, models.ErrInvalidTransition
		}
		c.Status = m.SetStatus.Status
		if m.SetStatus.Status.Resolving() {
			if m.SetStatus.ResolutionNotes != "" {
				c.ResolutionNotes = m.SetStatus.ResolutionNotes
			}
			if len(m.SetStatus.ResolutionPhotos) > 0 {
				c.ResolutionPhotos = append([]string{}, m.SetStatus.ResolutionPhotos...)
			}
		}
		c.UpdatedAt = now
	case m.AddComment != nil:
		c.Comments = append(c.Comments, *m.AddComment)
		c.UpdatedAt = now
	case m.SetAssignee != nil:
		ref := *m.SetAssignee
		c.AssignedTo = &ref
		c.UpdatedAt = now
	default:
		return nil, fmt.Errorf("%w: empty mutation", models.ErrInvalidInput)
	}

	return clone(c), nil
}

func sortNewestFirst(complaints []models.Complaint) {
	sort.Slice(complaints, func(i, j int) bool {
		return complaints[i].CreatedAt.After(complaints[j].CreatedAt)
	})
}

func clone(c *models.Complaint) *models.Complaint {
	dup := *c
	dup.Photos = append([]string{}, c.Photos...)
	dup.Comments = append([]models.Comment{}, c.Comments...)
	dup.ResolutionPhotos = append([]string{}, c.ResolutionPhotos...)
	if c.AssignedTo != nil {
		ref := *c.AssignedTo
		dup.AssignedTo = &ref
	}
	if c.Location.Latitude != nil {
		lat := *c.Location.Latitude
		dup.Location.Latitude = &lat
	}
	if c.Location.Longitude != nil {
		lng := *c.Location.Longitude
		dup.Location.Longitude = &lng
	}
	if len(dup.Photos) == 0 {
		dup.Photos = nil
	}
	if len(dup.ResolutionPhotos) == 0 {
		dup.ResolutionPhotos = nil
	}
	return &dup
}
