package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odooscope/odooscope/internal/config"
)

const libraryAppDir = "../../testdata/library_app"

func newTestServer(t *testing.T) *Server {
	t.Helper()
	srv, err := NewServer(&config.Config{
		Port:         8080,
		Env:          "test",
		WorkspaceDir: t.TempDir(),
	}, nil)
	require.NoError(t, err)
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

// createTestAnalysis runs a local-path analysis and returns its id.
func createTestAnalysis(t *testing.T, srv *Server) string {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/analyses",
		map[string]string{"path": libraryAppDir})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var summary map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	id, ok := summary["id"].(string)
	require.True(t, ok)
	return id
}

func TestHealthCheck(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestReadyCheck_NoStore(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateAnalysis(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/analyses",
		map[string]string{"path": libraryAppDir})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var summary struct {
		ID         string `json:"id"`
		ModuleName string `json:"module_name"`
		Models     int    `json:"models"`
		Views      int    `json:"views"`
		Rules      int    `json:"rules"`
		Menus      int    `json:"menus"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.NotEmpty(t, summary.ID)
	assert.Equal(t, "Library Management", summary.ModuleName)
	assert.Equal(t, 4, summary.Models)
	assert.Equal(t, 3, summary.Views)
	assert.Equal(t, 7, summary.Rules)
	assert.Equal(t, 3, summary.Menus)
}

func TestCreateAnalysis_Validation(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name string
		body map[string]string
		code int
	}{
		{"neither source", map[string]string{}, http.StatusBadRequest},
		{"both sources", map[string]string{
			"path": libraryAppDir, "repo_url": "https://github.com/a/b",
		}, http.StatusBadRequest},
		{"bad repo url", map[string]string{
			"repo_url": "https://gitlab.com/a/b",
		}, http.StatusBadRequest},
		{"missing module root", map[string]string{
			"path": "/no/such/module",
		}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, srv, http.MethodPost, "/api/v1/analyses", tt.body)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
		})
	}
}

func TestListAndGetAnalysis(t *testing.T) {
	srv := newTestServer(t)
	id := createTestAnalysis(t, srv)

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/analyses", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0]["id"])

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/analyses/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var detail struct {
		Manifest map[string]any `json:"manifest"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, "Library Management", detail.Manifest["name"])
}

func TestGetAnalysis_NotFound(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet,
		"/api/v1/analyses/00000000-0000-0000-0000-000000000000", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/analyses/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestModelEndpoints(t *testing.T) {
	srv := newTestServer(t)
	id := createTestAnalysis(t, srv)

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/analyses/"+id+"/models", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var models map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &models))
	assert.Len(t, models, 4)
	assert.Contains(t, models, "library.book")

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/analyses/"+id+"/models/library.book", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var model struct {
		Name   string                     `json:"name"`
		Fields map[string]json.RawMessage `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &model))
	assert.Equal(t, "library.book", model.Name)
	assert.Contains(t, model.Fields, "author_id")

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/analyses/"+id+"/models/no.such.model", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGraphEndpoint(t *testing.T) {
	srv := newTestServer(t)
	id := createTestAnalysis(t, srv)

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/analyses/"+id+"/graph", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var graph struct {
		Nodes      []map[string]any `json:"nodes"`
		Edges      []map[string]any `json:"edges"`
		EdgeCounts map[string]int   `json:"edge_counts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &graph))
	assert.Len(t, graph.Nodes, 4)
	assert.NotEmpty(t, graph.Edges)
	assert.Equal(t, 1, graph.EdgeCounts["inherits"], "library.loan inherits mail.thread")
}

func TestStatsAndQualityEndpoints(t *testing.T) {
	srv := newTestServer(t)
	id := createTestAnalysis(t, srv)

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/analyses/"+id+"/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats struct {
		TotalModels      int `json:"total_models"`
		SecurityCoverage struct {
			CoveragePercentage float64 `json:"coverage_percentage"`
		} `json:"security_coverage"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 4, stats.TotalModels)
	assert.Equal(t, 100.0, stats.SecurityCoverage.CoveragePercentage)

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/analyses/"+id+"/quality", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var quality struct {
		PerformanceConcerns []string `json:"performance_concerns"`
		SecurityGaps        []string `json:"security_gaps"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &quality))
	assert.NotEmpty(t, quality.PerformanceConcerns, "availability is computed but not stored")
	assert.Empty(t, quality.SecurityGaps)
}

func TestExportEndpoint(t *testing.T) {
	srv := newTestServer(t)
	id := createTestAnalysis(t, srv)

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/analyses/"+id+"/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "module_data.json")

	var doc struct {
		ModuleName string                     `json:"module_name"`
		Models     map[string]json.RawMessage `json:"models"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "Library Management", doc.ModuleName)
	assert.Len(t, doc.Models, 4)
}

func TestCollectionEndpoints(t *testing.T) {
	srv := newTestServer(t)
	id := createTestAnalysis(t, srv)

	for path, want := range map[string]int{"views": 3, "security": 7, "menus": 3} {
		rec := doJSON(t, srv, http.MethodGet,
			fmt.Sprintf("/api/v1/analyses/%s/%s", id, path), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var items map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
		assert.Len(t, items, want, path)
	}
}
