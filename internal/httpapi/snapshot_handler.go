package httpapi

import (
	"net/http"

	"cost_engine/internal/utils"
)

// handleGroups serves the provider display groups from the latest snapshot.
func (d *Dependencies) handleGroups(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	snap := d.Engine.Snapshot()
	if snap == nil {
		utils.RespondWithError(w, http.StatusServiceUnavailable, "Snapshot not ready yet")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"groups":       snap.Groups,
		"generated_at": snap.GeneratedAt,
	})
}

// handleSummary serves the cross-group totals and averages.
func (d *Dependencies) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	snap := d.Engine.Snapshot()
	if snap == nil {
		utils.RespondWithError(w, http.StatusServiceUnavailable, "Snapshot not ready yet")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"window":       snap.Window,
		"totals":       snap.Totals,
		"generated_at": snap.GeneratedAt,
	})
}
