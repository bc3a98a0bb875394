package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"cost_engine/internal/utils"
)

// handleSpendHistory serves the recorded daily spend for one display group.
func (d *Dependencies) handleSpendHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	group := r.URL.Query().Get("group")
	if group == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "group is required")
		return
	}

	days := 30
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 366 {
			utils.RespondWithError(w, http.StatusBadRequest, "days must be between 1 and 366")
			return
		}
		days = n
	}

	history, err := d.Spend.History(r.Context(), group, days, time.Now())
	if err != nil {
		d.Logger.Error("spend history read failed", "group", group, "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to read spend history")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"group":   group,
		"history": history,
	})
}
