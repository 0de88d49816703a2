package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/okian/gestura/internal/domain/pipeline"
	"github.com/okian/gestura/internal/domain/types"
)

// ChainLister lists the augmentation chains a run may name.
type ChainLister interface {
	Chains() []types.ChainInfo
}

// StatsProvider reports service statistics.
type StatsProvider interface {
	GetStats(ctx context.Context) types.Stats
}

// CatalogHandler serves the read-only service descriptions: chains and stats.
type CatalogHandler struct {
	chains ChainLister
	stats  StatsProvider
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(chains ChainLister, stats StatsProvider) *CatalogHandler {
	return &CatalogHandler{chains: chains, stats: stats}
}

// HandleListChains handles GET /chains.
func (h *CatalogHandler) HandleListChains(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.chains.Chains())
}

// HandleGetChain handles GET /chains/{id}. The id accepts every spelling a
// run submission accepts, e.g. "simple" for "Simple Chain".
func (h *CatalogHandler) HandleGetChain(w http.ResponseWriter, r *http.Request) {
	const op = "get chain"
	id, err := pipeline.Parse(r.PathValue("id"))
	if err != nil {
		fail(w, op, fmt.Errorf("%w: %w", ErrNotFound, err))
		return
	}
	for _, info := range h.chains.Chains() {
		if info.ID == id {
			writeJSON(w, http.StatusOK, info)
			return
		}
	}
	fail(w, op, fmt.Errorf("%w: chain %s is not served", ErrNotFound, id))
}

// HandleStats handles GET /stats.
func (h *CatalogHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.stats.GetStats(r.Context()))
}
