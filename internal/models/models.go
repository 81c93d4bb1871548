// Package models defines the data structures used across the application:
// identities, complaints and their embedded sub-records, plus the role and
// capability model.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role is the permission tier of an authenticated user.
type Role string

const (
	RoleCitizen   Role = "citizen"
	RoleAuthority Role = "authority"
	RoleAdmin     Role = "admin"
)

// ParseRole validates a raw role string. An empty string maps to citizen.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return RoleCitizen, true
	case RoleCitizen:
		return RoleCitizen, true
	case RoleAuthority:
		return RoleAuthority, true
	case RoleAdmin:
		return RoleAdmin, true
	}
	return "", false
}

// Identity is an authenticated actor.
type Identity struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Role      Role      `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Ref returns the display reference embedded into complaint records.
// Resolution happens once, here; consumers never re-check whether a
// creator field is an id or a record.
func (i *Identity) Ref() UserRef {
	return UserRef{ID: i.ID.String(), Name: i.Name}
}

// Status is the lifecycle state of a complaint.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "In Progress"
	StatusResolved   Status = "Resolved"
	StatusRejected   Status = "Rejected"
)

// ParseStatus validates a raw status string.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusPending, StatusInProgress, StatusResolved, StatusRejected:
		return Status(s), true
	}
	return "", false
}

// Terminal reports whether no further transition is permitted out of s.
func (s Status) Terminal() bool {
	return s == StatusResolved || s == StatusRejected
}

// Resolving reports whether s carries resolution notes/photos.
func (s Status) Resolving() bool {
	return s == StatusResolved || s == StatusRejected
}

// Category classifies a complaint.
type Category string

// CategoryGeneral is the fallback for unrecognized categories.
const CategoryGeneral Category = "general"

var categories = map[Category]bool{
	CategoryGeneral: true,
	"pothole":       true,
	"garbage":       true,
	"streetlight":   true,
	"water":         true,
	"drainage":      true,
	"roads":         true,
	"electricity":   true,
	"parks":         true,
	"other":         true,
}

// NormalizeCategory maps a raw category onto the enumerated set, falling
// back to "general" for anything unrecognized.
func NormalizeCategory(s string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if categories[c] {
		return c
	}
	return CategoryGeneral
}

// UserRef is a resolved reference to a user embedded in complaint documents.
// The ID is blanked on public payloads; the email is never embedded.
type UserRef struct {
	ID   string `bson:"id" json:"id,omitempty"`
	Name string `bson:"name" json:"name"`
}

// Location is an optional address with optional coordinates. A partial
// coordinate pair is tolerated.
type Location struct {
	Address   string   `bson:"address,omitempty" json:"address,omitempty"`
	Latitude  *float64 `bson:"latitude,omitempty" json:"latitude,omitempty"`
	Longitude *float64 `bson:"longitude,omitempty" json:"longitude,omitempty"`
}

// Comment is an append-only complaint comment. Comments keep insertion
// order; there is no edit or delete.
type Comment struct {
	By        UserRef   `bson:"by" json:"by"`
	Message   string    `bson:"message" json:"message"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// Complaint is the central record representing one reported civic issue.
type Complaint struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title            string             `bson:"title" json:"title"`
	Description      string             `bson:"description,omitempty" json:"description,omitempty"`
	Category         Category           `bson:"category" json:"category"`
	Location         Location           `bson:"location,omitempty" json:"location"`
	Photos           []string           `bson:"photos,omitempty" json:"photos,omitempty"`
	Status           Status             `bson:"status" json:"status"`
	CreatedBy        UserRef            `bson:"createdBy" json:"createdBy"`
	AssignedTo       *UserRef           `bson:"assignedTo,omitempty" json:"assignedTo,omitempty"`
	Comments         []Comment          `bson:"comments" json:"comments"`
	ResolutionNotes  string             `bson:"resolutionNotes,omitempty" json:"resolutionNotes,omitempty"`
	ResolutionPhotos []string           `bson:"resolutionPhotos,omitempty" json:"resolutionPhotos,omitempty"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// ComplaintDraft is the caller-supplied input for filing a new complaint.
// Status and creator are never taken from the draft.
type ComplaintDraft struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Location    Location `json:"location"`
	Photos      []string `json:"photos"`
}

// MaxPhotos is the photo reference limit at creation.
const MaxPhotos = 5

// PublicStats is the status breakdown shown on the public dashboard.
type PublicStats struct {
	Total      int64 `json:"total"`
	Pending    int64 `json:"pending"`
	InProgress int64 `json:"inProgress"`
	Resolved   int64 `json:"resolved"`
	Rejected   int64 `json:"rejected"`
}
