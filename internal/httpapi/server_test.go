package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rsbalchii/anchoros/internal/config"
	"github.com/rsbalchii/anchoros/internal/engine"
)

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	root := t.TempDir()
	e, err := engine.Open(root, 2)
	if err != nil {
		t.Fatalf("open engine: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return New(e, config.ServerConfig{}), root
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHTTPAPI_IngestThenSearchRoundTrip(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.routes()

	rec := doJSON(t, h, http.MethodPost, "/v1/ingest", ingestRequest{
		Path:    "/workspace/inbox/personal/note.md",
		Content: "a rocket launched successfully today",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("ingest status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodPost, "/v1/search", searchRequest{Query: "rocket"})
	if rec.Code != http.StatusOK {
		t.Fatalf("search status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp engine.SearchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal search response: %v", err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("expected one search result, got %+v", resp.Results)
	}
}

func TestHTTPAPI_SearchWithEmptyQueryAndNoTagsIsBadRequest(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.routes()

	rec := doJSON(t, h, http.MethodPost, "/v1/search", searchRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHTTPAPI_RequiresAPIKeyWhenConfigured(t *testing.T) {
	root := t.TempDir()
	e, err := engine.Open(root, 2)
	if err != nil {
		t.Fatalf("open engine: %v", err)
	}
	t.Cleanup(func() { e.Close() })

	s := New(e, config.ServerConfig{APIKey: "secret"})
	h := s.routes()

	rec := doJSON(t, h, http.MethodGet, "/v1/buckets", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a key, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/buckets", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with the correct key, got %d", rec.Code)
	}
}

func TestHTTPAPI_WatchPathAddListRemoveRoundTrip(t *testing.T) {
	s, root := newTestServer(t)
	h := s.routes()
	extra := root + "/extra"

	rec := doJSON(t, h, http.MethodPost, "/v1/watch_paths", map[string]string{"path": extra})
	if rec.Code != http.StatusOK {
		t.Fatalf("add watch path status = %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/v1/watch_paths", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list watch paths status = %d", rec.Code)
	}
	var listed map[string][]string
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("unmarshal watch paths: %v", err)
	}
	if len(listed["paths"]) != 1 || listed["paths"][0] != extra {
		t.Fatalf("expected %q listed, got %+v", extra, listed["paths"])
	}

	req := httptest.NewRequest(http.MethodDelete, "/v1/watch_paths?path="+extra, nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("remove watch path status = %d", rec.Code)
	}
}
