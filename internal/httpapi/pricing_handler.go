package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cost_engine/internal/models"
	"cost_engine/internal/storage"
	"cost_engine/internal/utils"
)

var validPricingModes = map[models.PricingMode]bool{
	models.PricingModeNone:         true,
	models.PricingModePerRequest:   true,
	models.PricingModePackageTotal: true,
	models.PricingModeMonthlyFee:   true,
}

// handlePricing saves a pricing draft. Saves go through the autosave
// controller so an unchanged draft is a no-op, and a successful save
// invalidates the cached pages and snapshot that priced the old config.
func (d *Dependencies) handlePricing(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut && r.Method != http.MethodPost {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var draft models.PricingDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if draft.Provider == "" && len(draft.GroupProviders) == 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "Provider is required")
		return
	}
	if !validPricingModes[draft.Mode] {
		utils.RespondWithError(w, http.StatusBadRequest, "Unknown pricing mode")
		return
	}
	for _, entry := range draft.Schedule {
		if entry.Amount <= 0 {
			utils.RespondWithError(w, http.StatusBadRequest, "Schedule amounts must be positive")
			return
		}
		if entry.ExpiresAt != nil && !entry.StartsAt.Before(*entry.ExpiresAt) {
			utils.RespondWithError(w, http.StatusBadRequest, "Schedule entry expires before it starts")
			return
		}
	}

	if err := d.Autosave.Save(r.Context(), draft); err != nil {
		d.Logger.Error("pricing save failed", "target", draft.TargetKey(), "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to save pricing")
		return
	}

	d.PageCache.Clear()
	go d.refreshSnapshot()

	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

// handlePricingProvider serves GET and DELETE for a single provider's pricing.
func (d *Dependencies) handlePricingProvider(w http.ResponseWriter, r *http.Request) {
	provider := strings.TrimPrefix(r.URL.Path, "/v1/pricing/")
	if provider == "" || strings.Contains(provider, "/") {
		utils.RespondWithError(w, http.StatusNotFound, "Unknown provider path")
		return
	}

	switch r.Method {
	case http.MethodGet:
		cfg, err := d.Pricing.GetByProvider(r.Context(), provider)
		if err != nil {
			if errors.Is(err, storage.ErrPricingConfigNotFound) {
				utils.RespondWithError(w, http.StatusNotFound, "Pricing config not found")
				return
			}
			d.Logger.Error("pricing lookup failed", "provider", provider, "error", err)
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to get pricing")
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, cfg)

	case http.MethodDelete:
		if v := r.URL.Query().Get("starts_at_ms"); v != "" {
			ms, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				utils.RespondWithError(w, http.StatusBadRequest, "Invalid starts_at_ms")
				return
			}
			err = d.Pricing.ClearEntry(r.Context(), provider, time.UnixMilli(ms).UTC())
			if errors.Is(err, storage.ErrScheduleEntryNotFound) {
				utils.RespondWithError(w, http.StatusNotFound, "Schedule entry not found")
				return
			}
			if err != nil {
				d.Logger.Error("schedule entry delete failed", "provider", provider, "error", err)
				utils.RespondWithError(w, http.StatusInternalServerError, "Failed to delete entry")
				return
			}
		} else {
			err := d.Pricing.Delete(r.Context(), provider)
			if errors.Is(err, storage.ErrPricingConfigNotFound) {
				utils.RespondWithError(w, http.StatusNotFound, "Pricing config not found")
				return
			}
			if err != nil {
				d.Logger.Error("pricing delete failed", "provider", provider, "error", err)
				utils.RespondWithError(w, http.StatusInternalServerError, "Failed to delete pricing")
				return
			}
		}

		d.PageCache.Clear()
		go d.refreshSnapshot()
		utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "deleted"})

	default:
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// refreshSnapshot recomputes the engine snapshot right after a pricing change
// instead of waiting out the refresh interval.
func (d *Dependencies) refreshSnapshot() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := d.Engine.Refresh(ctx); err != nil {
		d.Logger.Warn("post-save snapshot refresh failed", "error", err)
	}
}
