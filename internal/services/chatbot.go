package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/nagarseva/civic-server/internal/models"
	"github.com/nagarseva/civic-server/internal/store"
)

// Intent is the classified purpose of a chatbot query.
type Intent string

const (
	IntentStatusLookup Intent = "complaint_status_lookup"
	IntentNotFound     Intent = "not_found"
	IntentMyComplaints Intent = "my_complaints"
	IntentGuidance     Intent = "reporting_guidance"
	IntentUnrecognized Intent = "unrecognized"
)

// ChatReply is the single response produced per query. Exactly one intent
// per call; the complaint is attached only for successful lookups.
type ChatReply struct {
	Query     string            `json:"query"`
	Intent    Intent            `json:"intent"`
	Reply     string            `json:"reply"`
	Complaint *models.Complaint `json:"complaint,omitempty"`
}

// complaintIDPattern matches the store's identifier shape: a 24-character
// hexadecimal ObjectID token anywhere in the query.
var complaintIDPattern = regexp.MustCompile(`\b[0-9a-f]{24}\b`)

// myWordPattern matches "my" as a whole word, so "army" or "dismay"
// never trip the ownership fallback.
var myWordPattern = regexp.MustCompile(`\bmy\b`)

var ownershipKeywords = []string{
	"my complaint", "my complaints",
	"my issue", "my issues",
	"my report", "my reports",
}

var guidanceKeywords = []string{
	"how to report", "how do i report", "how can i report",
	"report an issue", "report a problem",
	"file a complaint", "submit a complaint", "new complaint",
}

// ChatbotService answers single-turn free-text queries about complaints.
// It only ever reads from the store; conversational history, if any, is
// the caller's concern.
type ChatbotService struct {
	store  store.ComplaintStore
	logger *zap.SugaredLogger
}

// NewChatbotService creates a new chatbot service.
func NewChatbotService(s store.ComplaintStore, logger *zap.SugaredLogger) *ChatbotService {
	return &ChatbotService{store: s, logger: logger}
}

// Query resolves a free-text query into exactly one intent. An embedded
// complaint id always wins over keyword classification, so pasting an id
// alongside other words still resolves that specific complaint. The actor
// may be nil for guests.
func (s *ChatbotService) Query(ctx context.Context, q string, actor *models.Identity) (*ChatReply, error) {
	normalized := strings.ToLower(strings.TrimSpace(q))

	if id := complaintIDPattern.FindString(normalized); id != "" {
		return s.lookup(ctx, q, id)
	}
	if containsAny(normalized, ownershipKeywords) || (myWordPattern.MatchString(normalized) && strings.Contains(normalized, "status")) {
		return s.myComplaints(ctx, q, actor)
	}
	if containsAny(normalized, guidanceKeywords) {
		return &ChatReply{
			Query:  q,
			Intent: IntentGuidance,
			Reply: "To report an issue, sign in and open \"Report New Complaint\". " +
				"Give it a clear title, pick a category, add the location, and attach " +
				"up to 5 photos. You'll receive a complaint ID you can use here to track progress.",
		}, nil
	}

	return &ChatReply{
		Query:  q,
		Intent: IntentUnrecognized,
		Reply: "I'm not sure I understood that. You can paste a complaint ID, " +
			"ask about the status of your complaints, or ask how to report an issue.",
	}, nil
}

func (s *ChatbotService) lookup(ctx context.Context, q, id string) (*ChatReply, error) {
	complaint, err := s.store.GetByID(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return &ChatReply{
			Query:  q,
			Intent: IntentNotFound,
			Reply:  fmt.Sprintf("I couldn't find a complaint with ID %s. Please double-check the ID and try again.", id),
		}, nil
	}
	if err != nil {
		return nil, err
	}

	reply := fmt.Sprintf("Complaint %q is currently %s.", complaint.Title, complaint.Status)
	if complaint.AssignedTo != nil {
		reply += fmt.Sprintf(" It is assigned to %s.", complaint.AssignedTo.Name)
	}
	if complaint.ResolutionNotes != "" {
		reply += fmt.Sprintf(" Resolution notes: %s", complaint.ResolutionNotes)
	}

	return &ChatReply{
		Query:     q,
		Intent:    IntentStatusLookup,
		Reply:     reply,
		Complaint: complaint,
	}, nil
}

func (s *ChatbotService) myComplaints(ctx context.Context, q string, actor *models.Identity) (*ChatReply, error) {
	if actor == nil {
		return &ChatReply{
			Query:  q,
			Intent: IntentMyComplaints,
			Reply:  "Please sign in to see the status of your complaints.",
		}, nil
	}

	complaints, err := s.store.ListByCreator(ctx, actor.ID.String())
	if err != nil {
		return nil, err
	}
	if len(complaints) == 0 {
		return &ChatReply{
			Query:  q,
			Intent: IntentMyComplaints,
			Reply:  "You haven't filed any complaints yet. Open \"Report New Complaint\" to file your first one.",
		}, nil
	}

	latest := complaints[0]
	for _, c := range complaints[1:] {
		if c.UpdatedAt.After(latest.UpdatedAt) {
			latest = c
		}
	}

	return &ChatReply{
		Query:  q,
		Intent: IntentMyComplaints,
		Reply: fmt.Sprintf("You have %d complaint(s). Your most recently updated one, %q, is currently %s.",
			len(complaints), latest.Title, latest.Status),
	}, nil
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
