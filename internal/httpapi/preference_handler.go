package httpapi

import (
	"encoding/json"
	"net/http"

	"cost_engine/internal/currency"
	"cost_engine/internal/utils"
)

type currencyPreferenceRequest struct {
	Provider  string `json:"provider"`
	APIKeyRef string `json:"api_key_ref,omitempty"`
	Currency  string `json:"currency"`
}

// handleCurrencyPreference reads or writes the display currency preference
// for a provider or shared account.
func (d *Dependencies) handleCurrencyPreference(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		provider := r.URL.Query().Get("provider")
		keyRef := r.URL.Query().Get("api_key_ref")
		if provider == "" && keyRef == "" {
			utils.RespondWithError(w, http.StatusBadRequest, "provider or api_key_ref is required")
			return
		}

		code, err := d.Preferences.Get(r.Context(), currency.PreferenceKey(provider, keyRef))
		if err != nil {
			d.Logger.Error("preference lookup failed", "provider", provider, "error", err)
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to get preference")
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, map[string]string{"currency": code})

	case http.MethodPut:
		var req currencyPreferenceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
			return
		}
		if req.Provider == "" && req.APIKeyRef == "" {
			utils.RespondWithError(w, http.StatusBadRequest, "provider or api_key_ref is required")
			return
		}

		key := currency.PreferenceKey(req.Provider, req.APIKeyRef)
		if err := d.Preferences.Set(r.Context(), key, req.Currency); err != nil {
			d.Logger.Error("preference save failed", "provider", req.Provider, "error", err)
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "saved"})

	default:
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
