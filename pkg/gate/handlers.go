// pkg/gate/handlers.go
package gate

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/joeydtaylor/steeze-auth/pkg/middleware/auth"
)

var (
	handlersMu sync.RWMutex
	handlers   = map[string]http.Handler{
		"whoami": http.HandlerFunc(handleWhoami),
		"echo":   http.HandlerFunc(handleEcho),
	}
)

// RegisterHandler lets embedding services add routeable handlers by name.
func RegisterHandler(name string, h http.Handler) {
	handlersMu.Lock()
	handlers[name] = h
	handlersMu.Unlock()
}

func lookupHandler(name string) (http.Handler, bool) {
	handlersMu.RLock()
	h, ok := handlers[name]
	handlersMu.RUnlock()
	return h, ok
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleWhoami reports the caller's identity summary: what downstream
// services would see after the gate.
func handleWhoami(w http.ResponseWriter, r *http.Request) {
	tok, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"anonymous": true})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"anonymous":  false,
		"subject":    tok.Subject,
		"username":   tok.PreferredUsername(),
		"email":      tok.Email(),
		"issuer":     tok.Issuer,
		"audiences":  tok.Audiences,
		"realmRoles": tok.RealmRoles(),
		"expiresAt":  tok.ExpiresAt,
	})
}

func handleEcho(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"method": r.Method,
		"path":   r.URL.Path,
		"query":  r.URL.RawQuery,
	})
}
