package telegram

import (
	"encoding/json"
	"net/http"
)

const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

// Handler builds an http.Handler that verifies the pre-shared webhook
// secret (§6) before decoding the update and invoking onUpdate.
func Handler(secretToken string, onUpdate func(Update)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if secretToken != "" && r.Header.Get(secretHeader) != secretToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		var update Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		onUpdate(update)
		w.WriteHeader(http.StatusOK)
	})
}
