package handlers

import (
	"context"
	"net/http"

	"github.com/wonny/stockrank/internal/stockdata"
	"github.com/wonny/stockrank/pkg/logger"
)

// CacheManager inspects and clears the stock data cache, usually a *stockdata.Cacher
type CacheManager interface {
	Status(ctx context.Context, accountID string) (*stockdata.Status, error)
	Clear(ctx context.Context, accountID string) error
}

// CacheHandler handles stock data cache endpoints
type CacheHandler struct {
	cache     CacheManager
	accountID string
	logger    *logger.Logger
}

// NewCacheHandler creates a new cache handler
func NewCacheHandler(cache CacheManager, accountID string, log *logger.Logger) *CacheHandler {
	return &CacheHandler{cache: cache, accountID: accountID, logger: log}
}

// GetStatus reports the cached entry
// GET /api/cache
func (h *CacheHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.cache.Status(r.Context(), h.accountID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to read cache status")
		respondError(w, http.StatusInternalServerError, "failed to read cache status")
		return
	}
	respondJSON(w, http.StatusOK, status)
}

// Clear drops the cached entry
// DELETE /api/cache
func (h *CacheHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.cache.Clear(r.Context(), h.accountID); err != nil {
		h.logger.WithError(err).Error("Failed to clear cache")
		respondError(w, http.StatusInternalServerError, "failed to clear cache")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
