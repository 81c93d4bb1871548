package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/nagarseva/civic-server/internal/models"
	"github.com/nagarseva/civic-server/internal/services"
)

// IntegrityHandler exposes the audit-trail Merkle root and proofs so
// anyone can check that recorded complaint history has not been
// rewritten.
type IntegrityHandler struct {
	svc    *services.IntegrityService
	logger *zap.SugaredLogger
}

// NewIntegrityHandler creates a new integrity handler.
func NewIntegrityHandler(svc *services.IntegrityService, logger *zap.SugaredLogger) *IntegrityHandler {
	return &IntegrityHandler{svc: svc, logger: logger}
}

// Root handles GET /api/integrity/root.
func (h *IntegrityHandler) Root(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"root":       h.svc.Root(),
		"leaf_count": h.svc.LeafCount(),
		"timestamp":  h.svc.LastBuildTime(),
	})
}

// Proof handles GET /api/integrity/proof/{index}.
func (h *IntegrityHandler) Proof(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid leaf index")
		return
	}

	proof, err := h.svc.Proof(index)
	if err != nil {
		respondTaxonomy(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, proof)
}

// Verify handles POST /api/integrity/verify. The caller submits a proof
// it obtained earlier; the server recomputes the path.
func (h *IntegrityHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var proof models.MerkleProof
	if err := json.NewDecoder(r.Body).Decode(&proof); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	verified := services.VerifyProof(&proof)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"verified":     verified,
		"current_root": h.svc.Root(),
	})
}
