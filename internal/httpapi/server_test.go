package httpapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/organizational/internal/cache"
	"github.com/mesh-intelligence/organizational/internal/memstore"
	"github.com/mesh-intelligence/organizational/internal/metrics"
	"github.com/mesh-intelligence/organizational/pkg/organizational"
	"github.com/mesh-intelligence/organizational/pkg/types"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	clock := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	store := memstore.New(memstore.WithClock(func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}))
	c, err := cache.Open(cache.Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	reg, err := types.NewRegistry(types.RegistryOptions{
		Fabricated: []types.FabricatedSlot{{Name: "lead_people", Base: types.TypePerson}},
	})
	require.NoError(t, err)

	promReg := prometheus.NewRegistry()
	m, err := metrics.New(promReg)
	require.NoError(t, err)

	n := 0
	svc := organizational.New(store, c, reg, organizational.Options{
		OptionStore: store,
		Metrics:     m,
		NewID: func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		},
	})
	ts := httptest.NewServer(New(svc, Options{Gatherer: promReg}))
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, ts *httptest.Server, method, path, body string) (int, []byte, http.Header) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, ts.URL+path, r)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw, resp.Header
}

func create(t *testing.T, ts *httptest.Server, body string) itemResponse {
	t.Helper()
	status, raw, _ := do(t, ts, http.MethodPost, "/api/items", body)
	require.Equal(t, http.StatusCreated, status, string(raw))
	var out itemResponse
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

type entry struct {
	ID        string `json:"id"`
	StorageID int64  `json:"storage_id"`
	Name      string `json:"name"`
}

func decodeEntries(t *testing.T, raw []byte) []entry {
	t.Helper()
	var out []entry
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestHealthAndRequestID(t *testing.T) {
	ts := newTestServer(t)

	status, raw, hdr := do(t, ts, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok","version":"`+organizational.Version+`"}`, string(raw))
	assert.Len(t, hdr.Get(RequestIDHeader), 26, "ULID request id")
}

func TestTypes(t *testing.T) {
	ts := newTestServer(t)
	status, raw, _ := do(t, ts, http.MethodGet, "/api/types", "")
	require.Equal(t, http.StatusOK, status)

	var infos []struct {
		Type  string `json:"type"`
		Slots []struct {
			Name string `json:"name"`
		} `json:"slots"`
	}
	require.NoError(t, json.Unmarshal(raw, &infos))
	require.Len(t, infos, 4)
	assert.Equal(t, "person", infos[0].Type)
	assert.Equal(t, "project", infos[1].Type)
	var names []string
	for _, s := range infos[1].Slots {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"person", "entity", "publication", "lead_people"}, names)
}

func TestItemLifecycle(t *testing.T) {
	ts := newTestServer(t)

	ada := create(t, ts, `{"type":"person","title":"Ada Lovelace","status":"publish","fields":{"last_name":"Lovelace"}}`)
	assert.Equal(t, types.StableID("id-1"), ada.UniqueID)
	assert.Equal(t, "ada-lovelace", ada.Slug)
	assert.Equal(t, map[string]string{"last_name": "Lovelace"}, ada.Fields)

	engine := create(t, ts, `{"type":"project","title":"Engine","status":"publish","assign":{"people":["id-1"],"lead_people":["id-1lead_people"]}}`)

	status, raw, _ := do(t, ts, http.MethodGet, fmt.Sprintf("/api/items/%d/objects/project", ada.ID), "")
	require.Equal(t, http.StatusOK, status, string(raw))
	got := decodeEntries(t, raw)
	require.Len(t, got, 1)
	assert.Equal(t, "Engine", got[0].Name)
	assert.Equal(t, engine.ID, got[0].StorageID)

	status, raw, _ = do(t, ts, http.MethodGet, fmt.Sprintf("/api/items/%d/objects/lead_people", engine.ID), "")
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.Len(t, decodeEntries(t, raw), 1)

	status, raw, _ = do(t, ts, http.MethodPut, fmt.Sprintf("/api/items/%d", engine.ID), `{"title":"Analytical Engine","assign":{"people":[]}}`)
	require.Equal(t, http.StatusOK, status, string(raw))
	var updated itemResponse
	require.NoError(t, json.Unmarshal(raw, &updated))
	assert.Equal(t, "Analytical Engine", updated.Title)
	assert.Equal(t, types.StatusPublish, updated.Status, "omitted fields keep their values")

	status, raw, _ = do(t, ts, http.MethodGet, fmt.Sprintf("/api/items/%d/objects/project", ada.ID), "")
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, decodeEntries(t, raw))

	status, _, _ = do(t, ts, http.MethodDelete, fmt.Sprintf("/api/items/%d", engine.ID), "")
	assert.Equal(t, http.StatusOK, status)
	status, raw, _ = do(t, ts, http.MethodGet, fmt.Sprintf("/api/items/%d", engine.ID), "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(raw), `"status":"trash"`)

	status, _, _ = do(t, ts, http.MethodDelete, fmt.Sprintf("/api/items/%d?force=true", engine.ID), "")
	assert.Equal(t, http.StatusOK, status)
	status, _, _ = do(t, ts, http.MethodGet, fmt.Sprintf("/api/items/%d", engine.ID), "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestListFiltersByRelated(t *testing.T) {
	ts := newTestServer(t)
	ada := create(t, ts, `{"type":"person","title":"Ada","status":"publish"}`)
	create(t, ts, `{"type":"person","title":"Grace","status":"publish"}`)
	create(t, ts, `{"type":"project","title":"Engine","status":"publish","assign":{"people":["id-1"]}}`)

	status, raw, _ := do(t, ts, http.MethodGet, "/api/items?type=person&org_project=engine", "")
	require.Equal(t, http.StatusOK, status, string(raw))
	var items []types.Item
	require.NoError(t, json.Unmarshal(raw, &items))
	require.Len(t, items, 1)
	assert.Equal(t, ada.ID, items[0].ID)

	status, raw, _ = do(t, ts, http.MethodGet, "/api/items?type=person", "")
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(raw, &items))
	assert.Len(t, items, 2)

	status, raw, _ = do(t, ts, http.MethodGet, "/api/items?type=person&org_project=nothing", "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(raw))
}

func TestDirectoryArchiveAndWidget(t *testing.T) {
	ts := newTestServer(t)
	ada := create(t, ts, `{"type":"person","title":"Ada Lovelace","status":"publish"}`)
	create(t, ts, `{"type":"project","title":"Loom","status":"publish"}`)
	create(t, ts, `{"type":"project","title":"Engine","status":"publish"}`)

	status, raw, _ := do(t, ts, http.MethodGet, "/api/types/projects/objects", "")
	require.Equal(t, http.StatusOK, status)
	dir := decodeEntries(t, raw)
	require.Len(t, dir, 2)
	assert.Equal(t, "Engine", dir[0].Name, "newest first")

	status, raw, _ = do(t, ts, http.MethodGet, "/api/types/project/archive", "")
	require.Equal(t, http.StatusOK, status)
	var items []types.Item
	require.NoError(t, json.Unmarshal(raw, &items))
	require.Len(t, items, 2)
	assert.Equal(t, "Engine", items[0].Title)
	assert.Equal(t, "Loom", items[1].Title)

	status, raw, _ = do(t, ts, http.MethodGet, fmt.Sprintf("/api/items/%d/widget/projects?q=lo", ada.ID), "")
	require.Equal(t, http.StatusOK, status, string(raw))
	var w struct {
		Field     string `json:"field"`
		Available []struct {
			Label string `json:"label"`
		} `json:"available"`
	}
	require.NoError(t, json.Unmarshal(raw, &w))
	assert.Equal(t, "assign_projects_ids", w.Field)
	require.NotEmpty(t, w.Available)
	assert.Equal(t, "Loom", w.Available[0].Label)
}

func TestErrorStatuses(t *testing.T) {
	ts := newTestServer(t)
	ada := create(t, ts, `{"type":"person","title":"Ada","status":"publish"}`)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"unknown type", http.MethodGet, "/api/types/widgets/objects", "", http.StatusBadRequest},
		{"missing item", http.MethodGet, "/api/items/999", "", http.StatusNotFound},
		{"non-numeric id", http.MethodGet, "/api/items/abc", "", http.StatusNotFound},
		{"bad payload", http.MethodPost, "/api/items", `{"type":`, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/api/items", `{"type":"person","title":"x","colour":"red"}`, http.StatusBadRequest},
		{"blank title", http.MethodPost, "/api/items", `{"type":"person","title":" "}`, http.StatusBadRequest},
		{"bad email", http.MethodPost, "/api/items", `{"type":"person","title":"x","fields":{"email":"nope"}}`, http.StatusBadRequest},
		{"unknown slot", http.MethodPost, "/api/items", `{"type":"person","title":"x","assign":{"gizmos":["a"]}}`, http.StatusBadRequest},
		{"own type", http.MethodGet, fmt.Sprintf("/api/items/%d/objects/person", ada.ID), "", http.StatusUnprocessableEntity},
		{"widget own type", http.MethodGet, fmt.Sprintf("/api/items/%d/widget/people", ada.ID), "", http.StatusUnprocessableEntity},
		{"bad limit", http.MethodGet, "/api/items?limit=-1", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, raw, _ := do(t, ts, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, status, string(raw))
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	create(t, ts, `{"type":"person","title":"Ada","status":"publish"}`)

	status, raw, _ := do(t, ts, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(raw), "organizational_")
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)
	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/items", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://admin.example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
