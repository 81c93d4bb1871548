package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nagarseva/civic-server/internal/models"
	"github.com/nagarseva/civic-server/internal/store"
)

// transitions is the complaint state machine. Resolved and Rejected are
// terminal: they have no outgoing edges, and any request for one fails
// with ErrInvalidTransition rather than silently doing nothing.
var transitions = map[models.Status]map[models.Status]bool{
	models.StatusPending: {
		models.StatusInProgress: true,
		models.StatusResolved:   true,
		models.StatusRejected:   true,
	},
	models.StatusInProgress: {
		models.StatusPending:  true,
		models.StatusResolved: true,
		models.StatusRejected: true,
	},
	models.StatusResolved: {},
	models.StatusRejected: {},
}

// LifecycleService validates and applies complaint mutations, enforcing
// role capabilities and the status state machine. Every operation checks
// all preconditions before touching the store, so a failed call never
// leaves a partial write behind.
type LifecycleService struct {
	store     store.ComplaintStore
	directory IdentityDirectory
	logger    *zap.SugaredLogger
}

// NewLifecycleService creates a new lifecycle service.
func NewLifecycleService(s store.ComplaintStore, d IdentityDirectory, logger *zap.SugaredLogger) *LifecycleService {
	return &LifecycleService{store: s, directory: d, logger: logger}
}

// CreateComplaint files a new complaint for the actor. Status is forced
// to Pending and the creator is the actor, whatever the draft says.
func (s *LifecycleService) CreateComplaint(ctx context.Context, draft models.ComplaintDraft, actor *models.Identity) (*models.Complaint, error) {
	if err := requireCapability(actor, models.CapCreateComplaint); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(draft.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", models.ErrInvalidInput)
	}
	if len(draft.Photos) > models.MaxPhotos {
		return nil, fmt.Errorf("%w: at most %d photos allowed", models.ErrTooManyPhotos, models.MaxPhotos)
	}

	now := time.Now()
	complaint := &models.Complaint{
		Title:       title,
		Description: strings.TrimSpace(draft.Description),
		Category:    models.NormalizeCategory(draft.Category),
		Location:    draft.Location,
		Photos:      draft.Photos,
		Status:      models.StatusPending,
		CreatedBy:   actor.Ref(),
		Comments:    []models.Comment{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	id, err := s.store.Create(ctx, complaint)
	if err != nil {
		return nil, err
	}

	s.logger.Infow("Complaint created",
		"id", id,
		"category", complaint.Category,
		"creator", actor.ID,
	)
	return complaint, nil
}

// UpdateStatus moves a complaint to the target status. Resolution notes
// and photos are stored only when the target is Resolved or Rejected.
// Repeating the current non-terminal status is a no-op success.
func (s *LifecycleService) UpdateStatus(ctx context.Context, id string, target models.Status, notes string, photos []string, actor *models.Identity) (*models.Complaint, error) {
	if err := requireCapability(actor, models.CapUpdateStatus); err != nil {
		return nil, err
	}
	if _, ok := models.ParseStatus(string(target)); !ok {
		return nil, fmt.Errorf("%w: unknown status %q", models.ErrInvalidInput, target)
	}

	current, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status.Terminal() {
		return nil, fmt.Errorf("%w: complaint is %s", models.ErrInvalidTransition, current.Status)
	}
	if current.Status == target {
		// Idempotent repeat: nothing changes, updatedAt stays put.
		return current, nil
	}
	if !transitions[current.Status][target] {
		return nil, fmt.Errorf("%w: %s -> %s", models.ErrInvalidTransition, current.Status, target)
	}

	change := &store.StatusChange{Status: target}
	if target.Resolving() {
		change.ResolutionNotes = strings.TrimSpace(notes)
		change.ResolutionPhotos = photos
	}

	updated, err := s.store.ApplyMutation(ctx, id, store.Mutation{SetStatus: change})
	if err != nil {
		return nil, err
	}

	s.logger.Infow("Complaint status updated",
		"id", id,
		"from", current.Status,
		"to", target,
		"actor", actor.ID,
	)
	return updated, nil
}

// Assign sets the complaint's assignee. The assignee must resolve to an
// authority or admin; reassignment over an existing assignee is allowed.
func (s *LifecycleService) Assign(ctx context.Context, id, assigneeID string, actor *models.Identity) (*models.Complaint, error) {
	if err := requireCapability(actor, models.CapAssign); err != nil {
		return nil, err
	}

	assignee, err := s.directory.FindByID(ctx, assigneeID)
	if err != nil {
		return nil, err
	}
	if !assignee.Role.Can(models.CapUpdateStatus) {
		return nil, fmt.Errorf("%w: %s has role %s", models.ErrInvalidAssignee, assignee.Name, assignee.Role)
	}

	ref := assignee.Ref()
	updated, err := s.store.ApplyMutation(ctx, id, store.Mutation{SetAssignee: &ref})
	if err != nil {
		return nil, err
	}

	s.logger.Infow("Complaint assigned", "id", id, "assignee", assignee.ID, "actor", actor.ID)
	return updated, nil
}

// AddComment appends a comment with a server-assigned timestamp. Comments
// are never reordered or deduplicated.
func (s *LifecycleService) AddComment(ctx context.Context, id, message string, actor *models.Identity) (*models.Complaint, error) {
	if err := requireCapability(actor, models.CapComment); err != nil {
		return nil, err
	}

	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("%w: comment message is required", models.ErrInvalidInput)
	}

	comment := &models.Comment{
		By:        actor.Ref(),
		Message:   message,
		CreatedAt: time.Now(),
	}
	return s.store.ApplyMutation(ctx, id, store.Mutation{AddComment: comment})
}

// GetByID returns a complaint for an authenticated actor.
func (s *LifecycleService) GetByID(ctx context.Context, id string, actor *models.Identity) (*models.Complaint, error) {
	if actor == nil {
		return nil, models.ErrUnauthenticated
	}
	return s.store.GetByID(ctx, id)
}

// ListMine returns the actor's own complaints, newest first.
func (s *LifecycleService) ListMine(ctx context.Context, actor *models.Identity) ([]models.Complaint, error) {
	if err := requireCapability(actor, models.CapViewOwnComplaints); err != nil {
		return nil, err
	}
	return s.store.ListByCreator(ctx, actor.ID.String())
}

// ListAll returns complaints matching the filter for authority/admin views.
func (s *LifecycleService) ListAll(ctx context.Context, f store.Filter, actor *models.Identity) ([]models.Complaint, error) {
	if err := requireCapability(actor, models.CapViewAllComplaints); err != nil {
		return nil, err
	}
	return s.store.ListAll(ctx, f)
}

// ListPublic returns the public read-only listing. User ids are redacted
// from every embedded reference; display names stay.
func (s *LifecycleService) ListPublic(ctx context.Context, f store.PublicFilter) ([]models.Complaint, error) {
	complaints, err := s.store.ListPublic(ctx, f)
	if err != nil {
		return nil, err
	}
	for i := range complaints {
		redact(&complaints[i])
	}
	return complaints, nil
}

// PublicStats returns the status breakdown for the public dashboard.
func (s *LifecycleService) PublicStats(ctx context.Context) (models.PublicStats, error) {
	return s.store.CountByStatus(ctx)
}

func requireCapability(actor *models.Identity, c models.Capability) error {
	if actor == nil {
		return models.ErrUnauthenticated
	}
	if !actor.Role.Can(c) {
		return fmt.Errorf("%w: role %s lacks %s", models.ErrForbidden, actor.Role, c)
	}
	return nil
}

func redact(c *models.Complaint) {
	c.CreatedBy.ID = ""
	if c.AssignedTo != nil {
		c.AssignedTo.ID = ""
	}
	for i := range c.Comments {
		c.Comments[i].By.ID = ""
	}
}
