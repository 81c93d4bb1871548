package services

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/nagarseva/civic-server/internal/models"
)

// AuditService records who did what to which complaint. Entries are
// written best-effort after successful mutations and never block them.
type AuditService struct {
	db     *pgxpool.Pool
	logger *zap.SugaredLogger
}

// NewAuditService creates a new audit service.
func NewAuditService(db *pgxpool.Pool, logger *zap.SugaredLogger) *AuditService {
	return &AuditService{db: db, logger: logger}
}

// Record appends an audit entry.
func (s *AuditService) Record(ctx context.Context, complaintID, action string, actor *models.Identity, detail string) error {
	query := `
		INSERT INTO audit_records (complaint_id, action, actor_id, actor_name, detail)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.Exec(ctx, query, complaintID, action, actor.ID.String(), actor.Name, detail)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}

	s.logger.Infow("Audit recorded",
		"complaint", complaintID,
		"action", action,
		"actor", actor.ID,
	)
	return nil
}

// Ledger returns audit entries in their stable ledger order, oldest
// first. The integrity tree is built over this ordering so a given entry
// keeps its leaf index while the trail only appends.
func (s *AuditService) Ledger(ctx context.Context, limit int) ([]models.AuditRecord, error) {
	query := `
		SELECT id, complaint_id, action, actor_id, actor_name, detail, created_at
		FROM audit_records
		ORDER BY created_at ASC, id ASC
		LIMIT $1
	`
	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit ledger: %w: %v", models.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var records []models.AuditRecord
	for rows.Next() {
		var rec models.AuditRecord
		if err := rows.Scan(&rec.ID, &rec.ComplaintID, &rec.Action, &rec.ActorID,
			&rec.ActorName, &rec.Detail, &rec.CreatedAt); err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// ForComplaint returns the audit trail for one complaint, newest first.
func (s *AuditService) ForComplaint(ctx context.Context, complaintID string, limit int) ([]models.AuditRecord, error) {
	query := `
		SELECT id, complaint_id, action, actor_id, actor_name, detail, created_at
		FROM audit_records
		WHERE complaint_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := s.db.Query(ctx, query, complaintID, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w: %v", models.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var records []models.AuditRecord
	for rows.Next() {
		var rec models.AuditRecord
		if err := rows.Scan(&rec.ID, &rec.ComplaintID, &rec.Action, &rec.ActorID,
			&rec.ActorName, &rec.Detail, &rec.CreatedAt); err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}
