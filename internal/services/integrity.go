package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nagarseva/civic-server/internal/models"
)

// IntegrityService maintains a Merkle tree over the audit trail, making
// the trail tamper-evident: republishing the root after every rebuild
// means any later rewrite of a recorded entry changes the root and is
// detectable by anyone who kept an earlier proof.
type IntegrityService struct {
	mu            sync.RWMutex
	leaves        []string
	layers        [][]string
	root          string
	lastBuildTime time.Time
	logger        *zap.SugaredLogger
}

// NewIntegrityService creates an empty integrity service.
func NewIntegrityService(logger *zap.SugaredLogger) *IntegrityService {
	return &IntegrityService{logger: logger}
}

// BuildFromRecords rebuilds the tree from the audit trail. Records must
// arrive in their stable ledger order (oldest first) so an entry keeps
// its leaf index across rebuilds that only append.
func (s *IntegrityService) BuildFromRecords(records []models.AuditRecord) {
	leaves := make([]string, len(records))
	for i, rec := range records {
		leaves[i] = hashAuditRecord(rec)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.leaves = leaves
	s.buildTree()
	s.lastBuildTime = time.Now()

	s.logger.Infow("Audit integrity tree rebuilt",
		"leaves", len(s.leaves),
		"root", s.root,
	)
}

// Root returns the current Merkle root, or "" before the first build.
func (s *IntegrityService) Root() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.root
}

// LeafCount returns the number of audit entries covered by the root.
func (s *IntegrityService) LeafCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.leaves)
}

// LastBuildTime returns when the tree was last rebuilt.
func (s *IntegrityService) LastBuildTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastBuildTime
}

// Proof generates a Merkle proof for the audit entry at the given leaf
// index.
func (s *IntegrityService) Proof(index int) (*models.MerkleProof, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if index < 0 || index >= len(s.leaves) {
		return nil, fmt.Errorf("%w: leaf index %d out of range", models.ErrNotFound, index)
	}

	proof := &models.MerkleProof{
		LeafHash: s.leaves[index],
		Root:     s.root,
		Index:    index,
		Proof:    []models.ProofStep{},
	}

	currentIndex := index
	for i := 0; i < len(s.layers)-1; i++ {
		layer := s.layers[i]
		isRight := currentIndex%2 == 1
		siblingIndex := currentIndex + 1
		if isRight {
			siblingIndex = currentIndex - 1
		}

		if siblingIndex < len(layer) {
			position := "right"
			if isRight {
				position = "left"
			}
			proof.Proof = append(proof.Proof, models.ProofStep{
				Hash:     layer[siblingIndex],
				Position: position,
			})
		} else {
			// Odd tail node: the tree pairs it with itself, so the
			// proof must too or the recomputed root diverges.
			proof.Proof = append(proof.Proof, models.ProofStep{
				Hash:     layer[currentIndex],
				Position: "right",
			})
		}

		currentIndex /= 2
	}

	return proof, nil
}

// VerifyProof recomputes the root from the leaf hash and the proof path
// and compares it to the root the proof claims.
func VerifyProof(p *models.MerkleProof) bool {
	if p == nil || p.LeafHash == "" || p.Root == "" {
		return false
	}

	current := p.LeafHash
	for _, step := range p.Proof {
		if step.Position == "left" {
			current = hashPair(step.Hash, current)
		} else {
			current = hashPair(current, step.Hash)
		}
	}
	return current == p.Root
}

// buildTree constructs the tree from leaves. Caller holds the write lock.
func (s *IntegrityService) buildTree() {
	if len(s.leaves) == 0 {
		s.root = ""
		s.layers = nil
		return
	}

	currentLayer := make([]string, len(s.leaves))
	copy(currentLayer, s.leaves)
	s.layers = [][]string{currentLayer}

	for len(currentLayer) > 1 {
		nextLayer := make([]string, 0, (len(currentLayer)+1)/2)
		for i := 0; i < len(currentLayer); i += 2 {
			left := currentLayer[i]
			// An odd node is paired with itself.
			right := left
			if i+1 < len(currentLayer) {
				right = currentLayer[i+1]
			}
			nextLayer = append(nextLayer, hashPair(left, right))
		}
		s.layers = append(s.layers, nextLayer)
		currentLayer = nextLayer
	}

	s.root = currentLayer[0]
}

// hashAuditRecord canonicalizes one audit entry into a leaf hash. Every
// field that gives the entry its meaning participates, so editing any of
// them in place changes the leaf.
func hashAuditRecord(rec models.AuditRecord) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s|%s|%s|%d",
		rec.ID, rec.ComplaintID, rec.Action, rec.ActorID, rec.ActorName,
		rec.Detail, rec.CreatedAt.UnixNano())
	return hex.EncodeToString(h.Sum(nil))
}

// hashPair combines and hashes two sibling nodes.
func hashPair(left, right string) string {
	h := sha256.New()
	h.Write([]byte(left + right))
	return hex.EncodeToString(h.Sum(nil))
}

// IntegrityWorker periodically rebuilds the audit integrity tree from
// the persisted trail.
type IntegrityWorker struct {
	integrity *IntegrityService
	audit     *AuditService
	logger    *zap.SugaredLogger
}

// NewIntegrityWorker creates a new background integrity worker.
func NewIntegrityWorker(is *IntegrityService, as *AuditService, logger *zap.SugaredLogger) *IntegrityWorker {
	return &IntegrityWorker{integrity: is, audit: as, logger: logger}
}

// Start runs the rebuild loop until the context is cancelled. An initial
// build happens immediately so the root is available right after boot.
func (w *IntegrityWorker) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.rebuild(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Integrity worker stopped")
			return
		case <-ticker.C:
			w.rebuild(ctx)
		}
	}
}

func (w *IntegrityWorker) rebuild(ctx context.Context) {
	records, err := w.audit.Ledger(ctx, maxIntegrityLeaves)
	if err != nil {
		w.logger.Warnw("Integrity rebuild skipped", "error", err)
		return
	}
	w.integrity.BuildFromRecords(records)
}

// maxIntegrityLeaves bounds one rebuild. TODO: anchor on the previous
// root instead of rebuilding the full window once the trail outgrows it.
const maxIntegrityLeaves = 100000
