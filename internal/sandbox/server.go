// Package sandbox implements an in-memory stand-in for the ice-plant
// operations API: token auth, CRUD resources for inventory, maintenance and
// groups, and optional latency/failure injection. It backs the
// iceops-sandbox CLI and the SDK's sandbox runtime mode.
package sandbox

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"time"

	"github.com/iceops/iceops_sdk_go/internal/devseed"
)

// Config controls sandbox behaviour.
type Config struct {
	// Secret signs session tokens. A process-unique default is generated
	// when empty.
	Secret string
	// TokenTTL bounds token validity. Defaults to 12h.
	TokenTTL time.Duration
	// Users maps usernames to passwords accepted by the login endpoint.
	// Defaults to admin/admin.
	Users map[string]string
	// Latency is injected before every response.
	Latency time.Duration
	// FailRate in [0,1) makes a request fail with FailStatus at random.
	FailRate   float64
	FailStatus int
	// Now overrides the clock (token expiry tests).
	Now func() time.Time
}

// Server holds the sandbox state.
type Server struct {
	secret   []byte
	tokenTTL time.Duration
	users    map[string]string
	latency  time.Duration
	failRate float64
	failCode int
	now      func() time.Time

	inventory   *collection
	maintenance *collection
	groups      *collection
}

// New constructs a sandbox server from cfg.
func New(cfg Config) *Server {
	if cfg.Secret == "" {
		cfg.Secret = fmt.Sprintf("iceops-sandbox-%d", time.Now().UnixNano())
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 12 * time.Hour
	}
	if len(cfg.Users) == 0 {
		cfg.Users = map[string]string{"admin": "admin"}
	}
	if cfg.FailStatus == 0 {
		cfg.FailStatus = http.StatusInternalServerError
	}
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	return &Server{
		secret:      []byte(cfg.Secret),
		tokenTTL:    cfg.TokenTTL,
		users:       cfg.Users,
		latency:     cfg.Latency,
		failRate:    cfg.FailRate,
		failCode:    cfg.FailStatus,
		now:         now,
		inventory:   newCollection(now),
		maintenance: newCollection(now),
		groups:      newCollection(now),
	}
}

// Seed loads initial users and entities.
func (s *Server) Seed(seed *devseed.Seed) {
	if seed == nil {
		return
	}
	for username, password := range seed.Users {
		s.users[username] = password
	}
	for _, obj := range seed.Inventory {
		s.inventory.insert(obj)
	}
	for _, obj := range seed.Maintenance {
		s.maintenance.insert(obj)
	}
	for _, obj := range seed.Groups {
		s.groups.insert(obj)
	}
}

// Handler returns the API routed under the /api/ prefix.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/login/{$}", s.handleLogin)

	s.mountCRUD(mux, "inventory", s.inventory)
	mux.HandleFunc("GET /api/inventory/low-stock/{$}", s.requireAuth(s.handleLowStock))

	s.mountCRUD(mux, "maintenance", s.maintenance)
	mux.HandleFunc("POST /api/maintenance/{id}/complete/{$}", s.requireAuth(s.handleComplete))

	s.mountCRUD(mux, "groups", s.groups)
	mux.HandleFunc("GET /api/groups/{id}/members/{$}", s.requireAuth(s.handleMembersList))
	mux.HandleFunc("POST /api/groups/{id}/members/{$}", s.requireAuth(s.handleMemberAdd))
	mux.HandleFunc("DELETE /api/groups/{id}/members/{member}/{$}", s.requireAuth(s.handleMemberRemove))

	return s.withInjection(mux)
}

// Start serves the sandbox on a loopback port for the life of the process and
// returns the API base URL.
func (s *Server) Start() (string, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("sandbox: listen: %w", err)
	}
	go func() {
		_ = http.Serve(listener, s.Handler())
	}()
	return fmt.Sprintf("http://%s/api/", listener.Addr()), nil
}

func (s *Server) withInjection(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.latency > 0 {
			time.Sleep(s.latency)
		}
		if s.failRate > 0 && rand.Float64() < s.failRate {
			writeError(w, s.failCode, "injected failure")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) mountCRUD(mux *http.ServeMux, name string, col *collection) {
	base := "/api/" + name + "/"

	mux.HandleFunc("GET "+base+"{$}", s.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		items := col.list(queryFilter(r))
		writeJSON(w, http.StatusOK, items)
	}))

	mux.HandleFunc("POST "+base+"{$}", s.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		var obj map[string]any
		if err := decodeJSON(r, &obj); err != nil {
			writeError(w, http.StatusBadRequest, "malformed request body")
			return
		}
		writeJSON(w, http.StatusCreated, col.insert(obj))
	}))

	mux.HandleFunc("GET "+base+"{id}/{$}", s.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		item, ok := col.get(r.PathValue("id"))
		if !ok {
			writeError(w, http.StatusNotFound, "Not found.")
			return
		}
		writeJSON(w, http.StatusOK, item)
	}))

	mux.HandleFunc("PATCH "+base+"{id}/{$}", s.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		var fields map[string]any
		if err := decodeJSON(r, &fields); err != nil {
			writeError(w, http.StatusBadRequest, "malformed request body")
			return
		}
		item, ok := col.patch(r.PathValue("id"), fields)
		if !ok {
			writeError(w, http.StatusNotFound, "Not found.")
			return
		}
		writeJSON(w, http.StatusOK, item)
	}))

	mux.HandleFunc("PUT "+base+"{id}/{$}", s.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		var obj map[string]any
		if err := decodeJSON(r, &obj); err != nil {
			writeError(w, http.StatusBadRequest, "malformed request body")
			return
		}
		item, ok := col.replace(r.PathValue("id"), obj)
		if !ok {
			writeError(w, http.StatusNotFound, "Not found.")
			return
		}
		writeJSON(w, http.StatusOK, item)
	}))

	mux.HandleFunc("DELETE "+base+"{id}/{$}", s.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		if !col.delete(r.PathValue("id")) {
			writeError(w, http.StatusNotFound, "Not found.")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
}

// queryFilter matches entities whose string fields equal every query
// parameter, e.g. ?category=block-ice or ?status=pending.
func queryFilter(r *http.Request) func(map[string]any) bool {
	query := r.URL.Query()
	if len(query) == 0 {
		return nil
	}
	return func(obj map[string]any) bool {
		for key, values := range query {
			if len(values) == 0 {
				continue
			}
			if strField(obj, key) != values[0] {
				return false
			}
		}
		return true
	}
}

func (s *Server) handleLowStock(w http.ResponseWriter, r *http.Request) {
	items := s.inventory.list(func(obj map[string]any) bool {
		quantity, ok := numField(obj, "quantity")
		if !ok {
			return false
		}
		threshold, ok := numField(obj, "low_stock_threshold")
		if !ok {
			return false
		}
		return quantity <= threshold
	})
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	item, ok := s.maintenance.patch(r.PathValue("id"), map[string]any{
		"status":       "completed",
		"completed_at": s.now().Format(time.RFC3339),
	})
	if !ok {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleMembersList(w http.ResponseWriter, r *http.Request) {
	group, ok := s.groups.get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}
	members, _ := group["members"].([]any)
	if members == nil {
		members = []any{}
	}
	writeJSON(w, http.StatusOK, members)
}

func (s *Server) handleMemberAdd(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		User string `json:"user"`
	}
	if err := decodeJSON(r, &payload); err != nil || payload.User == "" {
		writeError(w, http.StatusBadRequest, "user is required")
		return
	}

	id := r.PathValue("id")
	group, ok := s.groups.get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}
	members, _ := group["members"].([]any)
	for _, m := range members {
		if m == payload.User {
			writeError(w, http.StatusBadRequest, "user already in group")
			return
		}
	}
	updated, _ := s.groups.patch(id, map[string]any{"members": append(members, payload.User)})
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleMemberRemove(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	group, ok := s.groups.get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}
	member := r.PathValue("member")
	members, _ := group["members"].([]any)
	kept := make([]any, 0, len(members))
	removed := false
	for _, m := range members {
		if m == member {
			removed = true
			continue
		}
		kept = append(kept, m)
	}
	if !removed {
		writeError(w, http.StatusNotFound, "user not in group")
		return
	}
	s.groups.patch(id, map[string]any{"members": kept})
	w.WriteHeader(http.StatusNoContent)
}

func decodeJSON(r *http.Request, out any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
