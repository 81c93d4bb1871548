package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nagarseva/civic-server/internal/models"
)

func auditFixture(t *testing.T, n int) []models.AuditRecord {
	t.Helper()
	records := make([]models.AuditRecord, n)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := range records {
		records[i] = models.AuditRecord{
			ID:          uuid.New(),
			ComplaintID: "64a000000000000000000001",
			Action:      models.AuditActionStatusChanged,
			ActorID:     "actor-1",
			ActorName:   "officer",
			Detail:      "status set to In Progress",
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}
	}
	return records
}

func TestIntegrityBuildAndRoot(t *testing.T) {
	svc := NewIntegrityService(zap.NewNop().Sugar())
	assert.Empty(t, svc.Root())
	assert.Zero(t, svc.LeafCount())

	records := auditFixture(t, 4)
	svc.BuildFromRecords(records)

	root := svc.Root()
	assert.NotEmpty(t, root)
	assert.Equal(t, 4, svc.LeafCount())
	assert.False(t, svc.LastBuildTime().IsZero())

	// Same records, same root.
	svc.BuildFromRecords(records)
	assert.Equal(t, root, svc.Root())

	// Editing one entry in place changes the root.
	tampered := make([]models.AuditRecord, len(records))
	copy(tampered, records)
	tampered[2].Detail = "status set to Resolved"
	svc.BuildFromRecords(tampered)
	assert.NotEqual(t, root, svc.Root())
}

func TestIntegrityProofVerifies(t *testing.T) {
	svc := NewIntegrityService(zap.NewNop().Sugar())

	// Odd leaf count exercises the self-paired node.
	svc.BuildFromRecords(auditFixture(t, 5))

	for i := 0; i < 5; i++ {
		proof, err := svc.Proof(i)
		require.NoError(t, err, "leaf %d", i)
		assert.Equal(t, svc.Root(), proof.Root)
		assert.True(t, VerifyProof(proof), "leaf %d", i)
	}
}

func TestIntegrityProofRejectsTampering(t *testing.T) {
	svc := NewIntegrityService(zap.NewNop().Sugar())
	svc.BuildFromRecords(auditFixture(t, 4))

	proof, err := svc.Proof(1)
	require.NoError(t, err)
	require.True(t, VerifyProof(proof))

	proof.LeafHash = "0000000000000000000000000000000000000000000000000000000000000000"
	assert.False(t, VerifyProof(proof))

	assert.False(t, VerifyProof(nil))
	assert.False(t, VerifyProof(&models.MerkleProof{}))
}

func TestIntegrityProofIndexBounds(t *testing.T) {
	svc := NewIntegrityService(zap.NewNop().Sugar())
	svc.BuildFromRecords(auditFixture(t, 3))

	_, err := svc.Proof(-1)
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = svc.Proof(3)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestIntegritySingleLeaf(t *testing.T) {
	svc := NewIntegrityService(zap.NewNop().Sugar())
	svc.BuildFromRecords(auditFixture(t, 1))

	proof, err := svc.Proof(0)
	require.NoError(t, err)
	assert.Equal(t, proof.LeafHash, proof.Root)
	assert.Empty(t, proof.Proof)
	assert.True(t, VerifyProof(proof))
}
