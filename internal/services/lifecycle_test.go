package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nagarseva/civic-server/internal/models"
	"github.com/nagarseva/civic-server/internal/store"
)

// stubDirectory resolves assignees from a fixed map of identities.
type stubDirectory struct {
	users map[string]*models.Identity
}

func (d *stubDirectory) FindByID(_ context.Context, id string) (*models.Identity, error) {
	u, ok := d.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return u, nil
}

func newIdentity(t *testing.T, name string, role models.Role) *models.Identity {
	t.Helper()
	return &models.Identity{
		ID:        uuid.New(),
		Name:      name,
		Email:     name + "@example.com",
		Role:      role,
		CreatedAt: time.Now(),
	}
}

func newLifecycle(t *testing.T, users ...*models.Identity) (*LifecycleService, *store.MemoryStore) {
	t.Helper()
	dir := &stubDirectory{users: make(map[string]*models.Identity)}
	for _, u := range users {
		dir.users[u.ID.String()] = u
	}
	st := store.NewMemoryStore()
	return NewLifecycleService(st, dir, zap.NewNop().Sugar()), st
}

func TestCreateComplaintForcesPendingAndCreator(t *testing.T) {
	citizen := newIdentity(t, "asha", models.RoleCitizen)
	svc, _ := newLifecycle(t, citizen)

	c, err := svc.CreateComplaint(context.Background(), models.ComplaintDraft{
		Title:    "  Broken streetlight on 5th Ave  ",
		Category: "Streetlight",
		Photos:   []string{"a.jpg", "b.jpg", "c.jpg"},
	}, citizen)
	require.NoError(t, err)

	assert.Equal(t, "Broken streetlight on 5th Ave", c.Title)
	assert.Equal(t, models.StatusPending, c.Status)
	assert.Equal(t, models.Category("streetlight"), c.Category)
	assert.Equal(t, citizen.ID.String(), c.CreatedBy.ID)
	assert.Equal(t, citizen.Name, c.CreatedBy.Name)
	assert.Len(t, c.Photos, 3)
	assert.NotNil(t, c.Comments)
	assert.Empty(t, c.Comments)
}

func TestCreateComplaintValidation(t *testing.T) {
	citizen := newIdentity(t, "asha", models.RoleCitizen)
	authority := newIdentity(t, "officer", models.RoleAuthority)
	svc, _ := newLifecycle(t, citizen, authority)
	ctx := context.Background()

	_, err := svc.CreateComplaint(ctx, models.ComplaintDraft{Title: "   "}, citizen)
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = svc.CreateComplaint(ctx, models.ComplaintDraft{
		Title:  "Too many photos",
		Photos: []string{"1", "2", "3", "4", "5", "6"},
	}, citizen)
	assert.ErrorIs(t, err, models.ErrTooManyPhotos)

	_, err = svc.CreateComplaint(ctx, models.ComplaintDraft{Title: "Pothole"}, nil)
	assert.ErrorIs(t, err, models.ErrUnauthenticated)

	// Authorities track complaints, they do not file them.
	_, err = svc.CreateComplaint(ctx, models.ComplaintDraft{Title: "Pothole"}, authority)
	assert.ErrorIs(t, err, models.ErrForbidden)

	c, err := svc.CreateComplaint(ctx, models.ComplaintDraft{Title: "Weird one", Category: "???"}, citizen)
	require.NoError(t, err)
	assert.Equal(t, models.CategoryGeneral, c.Category)
}

func TestUpdateStatusTransitions(t *testing.T) {
	citizen := newIdentity(t, "asha", models.RoleCitizen)
	authority := newIdentity(t, "officer", models.RoleAuthority)
	svc, _ := newLifecycle(t, citizen, authority)
	ctx := context.Background()

	c, err := svc.CreateComplaint(ctx, models.ComplaintDraft{Title: "Overflowing garbage bin"}, citizen)
	require.NoError(t, err)
	id := c.ID.Hex()

	// Pending -> In Progress
	updated, err := svc.UpdateStatus(ctx, id, models.StatusInProgress, "", nil, authority)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, updated.Status)

	// In Progress -> Pending (backward move is allowed)
	updated, err = svc.UpdateStatus(ctx, id, models.StatusPending, "", nil, authority)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, updated.Status)

	// Pending -> Resolved with resolution fields
	updated, err = svc.UpdateStatus(ctx, id, models.StatusResolved, "Bin replaced", []string{"after.jpg"}, authority)
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, updated.Status)
	assert.Equal(t, "Bin replaced", updated.ResolutionNotes)
	assert.Equal(t, []string{"after.jpg"}, updated.ResolutionPhotos)

	// Resolved is terminal: every outgoing move fails
	for _, target := range []models.Status{models.StatusPending, models.StatusInProgress, models.StatusRejected} {
		_, err = svc.UpdateStatus(ctx, id, target, "", nil, authority)
		assert.ErrorIs(t, err, models.ErrInvalidTransition, "Resolved -> %s", target)
	}
}

func TestUpdateStatusIdempotentRepeat(t *testing.T) {
	citizen := newIdentity(t, "asha", models.RoleCitizen)
	authority := newIdentity(t, "officer", models.RoleAuthority)
	svc, _ := newLifecycle(t, citizen, authority)
	ctx := context.Background()

	c, err := svc.CreateComplaint(ctx, models.ComplaintDraft{Title: "Water leak"}, citizen)
	require.NoError(t, err)
	id := c.ID.Hex()

	first, err := svc.UpdateStatus(ctx, id, models.StatusInProgress, "", nil, authority)
	require.NoError(t, err)

	// Repeating the current status succeeds without touching the record.
	second, err := svc.UpdateStatus(ctx, id, models.StatusInProgress, "", nil, authority)
	require.NoError(t, err)
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.UpdatedAt, second.UpdatedAt)

	// But repeating a terminal status still fails.
	_, err = svc.UpdateStatus(ctx, id, models.StatusResolved, "done", nil, authority)
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, id, models.StatusResolved, "done again", nil, authority)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestUpdateStatusAuthorization(t *testing.T) {
	citizen := newIdentity(t, "asha", models.RoleCitizen)
	admin := newIdentity(t, "root", models.RoleAdmin)
	svc, _ := newLifecycle(t, citizen, admin)
	ctx := context.Background()

	c, err := svc.CreateComplaint(ctx, models.ComplaintDraft{Title: "Blocked drainage"}, citizen)
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, c.ID.Hex(), models.StatusInProgress, "", nil, citizen)
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = svc.UpdateStatus(ctx, c.ID.Hex(), models.StatusInProgress, "", nil, admin)
	assert.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, c.ID.Hex(), "Closed", "", nil, admin)
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = svc.UpdateStatus(ctx, "ffffffffffffffffffffffff", models.StatusInProgress, "", nil, admin)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAssign(t *testing.T) {
	citizen := newIdentity(t, "asha", models.RoleCitizen)
	officer := newIdentity(t, "officer", models.RoleAuthority)
	another := newIdentity(t, "inspector", models.RoleAuthority)
	svc, _ := newLifecycle(t, citizen, officer, another)
	ctx := context.Background()

	c, err := svc.CreateComplaint(ctx, models.ComplaintDraft{Title: "Fallen tree"}, citizen)
	require.NoError(t, err)
	id := c.ID.Hex()

	updated, err := svc.Assign(ctx, id, officer.ID.String(), another)
	require.NoError(t, err)
	require.NotNil(t, updated.AssignedTo)
	assert.Equal(t, officer.ID.String(), updated.AssignedTo.ID)
	assert.Equal(t, officer.Name, updated.AssignedTo.Name)

	// Reassignment replaces the previous assignee.
	updated, err = svc.Assign(ctx, id, another.ID.String(), officer)
	require.NoError(t, err)
	assert.Equal(t, another.ID.String(), updated.AssignedTo.ID)

	// Citizens cannot be assignees.
	_, err = svc.Assign(ctx, id, citizen.ID.String(), officer)
	assert.ErrorIs(t, err, models.ErrInvalidAssignee)

	// Unknown assignee id.
	_, err = svc.Assign(ctx, id, uuid.NewString(), officer)
	assert.ErrorIs(t, err, models.ErrNotFound)

	// Citizens cannot assign.
	_, err = svc.Assign(ctx, id, officer.ID.String(), citizen)
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestAddComment(t *testing.T) {
	citizen := newIdentity(t, "asha", models.RoleCitizen)
	officer := newIdentity(t, "officer", models.RoleAuthority)
	svc, _ := newLifecycle(t, citizen, officer)
	ctx := context.Background()

	c, err := svc.CreateComplaint(ctx, models.ComplaintDraft{Title: "Noise complaint"}, citizen)
	require.NoError(t, err)
	id := c.ID.Hex()

	updated, err := svc.AddComment(ctx, id, "  Inspection scheduled for Monday  ", officer)
	require.NoError(t, err)
	require.Len(t, updated.Comments, 1)
	assert.Equal(t, "Inspection scheduled for Monday", updated.Comments[0].Message)
	assert.Equal(t, officer.ID.String(), updated.Comments[0].By.ID)
	assert.False(t, updated.Comments[0].CreatedAt.IsZero())

	updated, err = svc.AddComment(ctx, id, "Crew dispatched", officer)
	require.NoError(t, err)
	require.Len(t, updated.Comments, 2)
	assert.Equal(t, "Inspection scheduled for Monday", updated.Comments[0].Message)
	assert.Equal(t, "Crew dispatched", updated.Comments[1].Message)

	_, err = svc.AddComment(ctx, id, "   ", officer)
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = svc.AddComment(ctx, id, "hi", citizen)
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestListMineAndListAll(t *testing.T) {
	asha := newIdentity(t, "asha", models.RoleCitizen)
	ravi := newIdentity(t, "ravi", models.RoleCitizen)
	officer := newIdentity(t, "officer", models.RoleAuthority)
	svc, _ := newLifecycle(t, asha, ravi, officer)
	ctx := context.Background()

	_, err := svc.CreateComplaint(ctx, models.ComplaintDraft{Title: "Pothole A", Category: "pothole"}, asha)
	require.NoError(t, err)
	_, err = svc.CreateComplaint(ctx, models.ComplaintDraft{Title: "Pothole B", Category: "pothole"}, ravi)
	require.NoError(t, err)
	_, err = svc.CreateComplaint(ctx, models.ComplaintDraft{Title: "Garbage C", Category: "garbage"}, asha)
	require.NoError(t, err)

	mine, err := svc.ListMine(ctx, asha)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
	for _, c := range mine {
		assert.Equal(t, asha.ID.String(), c.CreatedBy.ID)
	}

	_, err = svc.ListAll(ctx, store.Filter{}, asha)
	assert.ErrorIs(t, err, models.ErrForbidden)

	all, err := svc.ListAll(ctx, store.Filter{}, officer)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	potholes, err := svc.ListAll(ctx, store.Filter{Category: "pothole"}, officer)
	require.NoError(t, err)
	assert.Len(t, potholes, 2)
}

func TestListPublicRedactsUserIDs(t *testing.T) {
	citizen := newIdentity(t, "asha", models.RoleCitizen)
	officer := newIdentity(t, "officer", models.RoleAuthority)
	svc, _ := newLifecycle(t, citizen, officer)
	ctx := context.Background()

	c, err := svc.CreateComplaint(ctx, models.ComplaintDraft{Title: "Leaking pipe"}, citizen)
	require.NoError(t, err)
	_, err = svc.Assign(ctx, c.ID.Hex(), officer.ID.String(), officer)
	require.NoError(t, err)
	_, err = svc.AddComment(ctx, c.ID.Hex(), "On it", officer)
	require.NoError(t, err)

	public, err := svc.ListPublic(ctx, store.PublicFilter{})
	require.NoError(t, err)
	require.Len(t, public, 1)

	got := public[0]
	assert.Empty(t, got.CreatedBy.ID)
	assert.Equal(t, "asha", got.CreatedBy.Name)
	require.NotNil(t, got.AssignedTo)
	assert.Empty(t, got.AssignedTo.ID)
	assert.Equal(t, "officer", got.AssignedTo.Name)
	require.Len(t, got.Comments, 1)
	assert.Empty(t, got.Comments[0].By.ID)
	assert.Equal(t, "officer", got.Comments[0].By.Name)
}

// Full lifecycle walk: file, start work, resolve with notes, then verify
// the record is frozen.
func TestLifecycleEndToEnd(t *testing.T) {
	citizen := newIdentity(t, "asha", models.RoleCitizen)
	officer := newIdentity(t, "officer", models.RoleAuthority)
	svc, _ := newLifecycle(t, citizen, officer)
	ctx := context.Background()

	c, err := svc.CreateComplaint(ctx, models.ComplaintDraft{
		Title:    "Streetlight out near the park",
		Category: "streetlight",
	}, citizen)
	require.NoError(t, err)
	id := c.ID.Hex()

	_, err = svc.Assign(ctx, id, officer.ID.String(), officer)
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, id, models.StatusInProgress, "", nil, officer)
	require.NoError(t, err)

	resolved, err := svc.UpdateStatus(ctx, id, models.StatusResolved, "Fixed bulb", nil, officer)
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, resolved.Status)
	assert.Equal(t, "Fixed bulb", resolved.ResolutionNotes)

	_, err = svc.UpdateStatus(ctx, id, models.StatusPending, "", nil, officer)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	final, err := svc.GetByID(ctx, id, citizen)
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, final.Status)
}

func TestPublicStats(t *testing.T) {
	citizen := newIdentity(t, "asha", models.RoleCitizen)
	officer := newIdentity(t, "officer", models.RoleAuthority)
	svc, _ := newLifecycle(t, citizen, officer)
	ctx := context.Background()

	a, err := svc.CreateComplaint(ctx, models.ComplaintDraft{Title: "A"}, citizen)
	require.NoError(t, err)
	_, err = svc.CreateComplaint(ctx, models.ComplaintDraft{Title: "B"}, citizen)
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, a.ID.Hex(), models.StatusResolved, "done", nil, officer)
	require.NoError(t, err)

	stats, err := svc.PublicStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.Pending)
	assert.Equal(t, int64(1), stats.Resolved)
}
