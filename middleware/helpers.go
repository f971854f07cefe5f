package middleware

import (
	"encoding/json"
	"mime"
	"net/http"
	"strings"
)

// WantsJSON: клиент просит JSON через Accept (или шлёт JSON-тело).
func WantsJSON(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mt, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err == nil && mt == "application/json" {
			return true
		}
	}
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return mt == "application/json"
}

func deny(w http.ResponseWriter, r *http.Request, status int, redirectTo, message string) {
	if WantsJSON(r) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
		return
	}
	http.Redirect(w, r, redirectTo, http.StatusSeeOther)
}
