package sandbox

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iceops/iceops_sdk_go/internal/devseed"
)

func startSandbox(t *testing.T, cfg Config) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(New(cfg).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func login(t *testing.T, srv *httptest.Server, username, password string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, err := http.Post(srv.URL+"/api/auth/login/", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.NotEmpty(t, payload.Token)
	return payload.Token
}

func doAuthed(t *testing.T, srv *httptest.Server, token, method, path string, body any) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	srv := startSandbox(t, Config{})
	token := login(t, srv, "admin", "admin")

	resp := doAuthed(t, srv, token, http.MethodGet, "/api/inventory/", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	srv := startSandbox(t, Config{})

	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "nope"})
	resp, err := http.Post(srv.URL+"/api/auth/login/", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestResourceRoutesRequireToken(t *testing.T) {
	srv := startSandbox(t, Config{})

	resp := doAuthed(t, srv, "", http.MethodGet, "/api/inventory/", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doAuthed(t, srv, "garbage", http.MethodGet, "/api/inventory/", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestExpiredTokenIsRejected(t *testing.T) {
	current := time.Now().UTC()
	server := New(Config{
		TokenTTL: time.Minute,
		Now:      func() time.Time { return current },
	})
	srv := httptest.NewServer(server.Handler())
	defer srv.Close()

	token := login(t, srv, "admin", "admin")

	resp := doAuthed(t, srv, token, http.MethodGet, "/api/inventory/", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	current = current.Add(2 * time.Minute)
	resp = doAuthed(t, srv, token, http.MethodGet, "/api/inventory/", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCRUDAndFilters(t *testing.T) {
	server := New(Config{})
	server.Seed(&devseed.Seed{
		Inventory: []map[string]any{
			{"name": "Block Ice 10kg", "category": "block-ice", "quantity": 50, "low_stock_threshold": 10},
			{"name": "Crushed Ice Bag", "category": "bagged-ice", "quantity": 4, "low_stock_threshold": 20},
		},
	})
	srv := httptest.NewServer(server.Handler())
	defer srv.Close()

	token := login(t, srv, "admin", "admin")

	t.Run("category filter", func(t *testing.T) {
		resp := doAuthed(t, srv, token, http.MethodGet, "/api/inventory/?category=block-ice", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var items []map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&items))
		require.Len(t, items, 1)
		assert.Equal(t, "Block Ice 10kg", items[0]["name"])
	})

	t.Run("low stock listing", func(t *testing.T) {
		resp := doAuthed(t, srv, token, http.MethodGet, "/api/inventory/low-stock/", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var items []map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&items))
		require.Len(t, items, 1)
		assert.Equal(t, "Crushed Ice Bag", items[0]["name"])
	})

	t.Run("patch merges fields and keeps id immutable", func(t *testing.T) {
		resp := doAuthed(t, srv, token, http.MethodPost, "/api/inventory/", map[string]any{
			"name": "Salt Sack", "category": "consumables", "quantity": 9, "low_stock_threshold": 2,
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		var created map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
		id := created["id"].(string)
		require.NotEmpty(t, id)

		resp = doAuthed(t, srv, token, http.MethodPatch, "/api/inventory/"+id+"/", map[string]any{
			"quantity": 5, "id": "hijack",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var updated map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&updated))
		assert.Equal(t, id, updated["id"])
		assert.EqualValues(t, 5, updated["quantity"])
		assert.Equal(t, "Salt Sack", updated["name"])
	})

	t.Run("delete answers 204 then 404", func(t *testing.T) {
		resp := doAuthed(t, srv, token, http.MethodPost, "/api/inventory/", map[string]any{"name": "Temp"})
		var created map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
		id := created["id"].(string)

		resp = doAuthed(t, srv, token, http.MethodDelete, "/api/inventory/"+id+"/", nil)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)

		resp = doAuthed(t, srv, token, http.MethodDelete, "/api/inventory/"+id+"/", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestMaintenanceCompleteAction(t *testing.T) {
	server := New(Config{})
	server.Seed(&devseed.Seed{
		Maintenance: []map[string]any{
			{"id": "m1", "machine": "compressor-2", "status": "pending"},
		},
	})
	srv := httptest.NewServer(server.Handler())
	defer srv.Close()

	token := login(t, srv, "admin", "admin")

	resp := doAuthed(t, srv, token, http.MethodPost, "/api/maintenance/m1/complete/", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var record map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&record))
	assert.Equal(t, "completed", record["status"])
	assert.NotEmpty(t, record["completed_at"])
}

func TestGroupMembership(t *testing.T) {
	server := New(Config{})
	server.Seed(&devseed.Seed{
		Groups: []map[string]any{
			{"id": "g1", "name": "operators", "permissions": []any{"inventory.read"}},
		},
	})
	srv := httptest.NewServer(server.Handler())
	defer srv.Close()

	token := login(t, srv, "admin", "admin")

	resp := doAuthed(t, srv, token, http.MethodPost, "/api/groups/g1/members/", map[string]string{"user": "u1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doAuthed(t, srv, token, http.MethodGet, "/api/groups/g1/members/", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var members []string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&members))
	assert.Equal(t, []string{"u1"}, members)

	resp = doAuthed(t, srv, token, http.MethodPost, "/api/groups/g1/members/", map[string]string{"user": "u1"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "duplicate membership is rejected")

	resp = doAuthed(t, srv, token, http.MethodDelete, "/api/groups/g1/members/u1/", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doAuthed(t, srv, token, http.MethodDelete, "/api/groups/g1/members/u1/", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFailureInjection(t *testing.T) {
	srv := startSandbox(t, Config{FailRate: 1, FailStatus: http.StatusBadGateway})

	resp, err := http.Get(srv.URL + "/api/inventory/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}
