//go:build integration
// +build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apihttp "github.com/panekit/panekit/internal/api/http"
)

// newRouter builds the REST surface over a fresh in-process stack.
func newRouter(t *testing.T) (*gin.Engine, *stack) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := newStack(t)
	handlers := apihttp.NewHandlers(s.views, s.bridge, s.gate, s.services,
		s.presets, s.workspaces, nil, "test")

	router := gin.New()
	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	router.POST("/views", handlers.CreateView)
	router.GET("/views", handlers.ListViews)
	router.GET("/views/:id", handlers.GetView)
	router.POST("/views/:id/content", handlers.SetContent)
	router.POST("/views/:id/title", handlers.SetTitle)
	router.POST("/views/:id/reveal", handlers.Reveal)
	router.POST("/views/:id/messages", handlers.PostMessage)
	router.GET("/views/:id/inspect", handlers.Inspect)
	router.DELETE("/views/:id", handlers.DisposeView)
	router.GET("/presets", handlers.ListPresets)
	router.POST("/presets/:id/launch", handlers.LaunchPreset)
	router.POST("/workspaces/save", handlers.SaveWorkspace)
	router.GET("/workspaces", handlers.ListWorkspaces)
	router.POST("/workspaces/:id/restore", handlers.RestoreWorkspace)
	router.DELETE("/workspaces/:id", handlers.DeleteWorkspace)

	return router, s
}

func do(t *testing.T, router *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var decoded map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	}
	return w, decoded
}

func createViewHTTP(t *testing.T, router *gin.Engine, title string) string {
	t.Helper()
	w, resp := do(t, router, "POST", "/views", map[string]interface{}{
		"title": title,
		"html":  testDoc,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	v := resp["view"].(map[string]interface{})
	return v["id"].(string)
}

func TestRESTViewLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	router, _ := newRouter(t)

	w, resp := do(t, router, "GET", "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "PaneHost", resp["service"])

	id := createViewHTTP(t, router, "docs")

	w, resp = do(t, router, "GET", "/views/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	v := resp["view"].(map[string]interface{})
	assert.Equal(t, "docs", v["title"])
	assert.Equal(t, "visible", v["state"])

	w, resp = do(t, router, "GET", "/views", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, resp["views"], 1)

	// Replace the document and rename the view.
	w, _ = do(t, router, "POST", "/views/"+id+"/content", map[string]interface{}{
		"html": "<!DOCTYPE html><html><head><title>v2</title></head><body>two</body></html>",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, router, "POST", "/views/"+id+"/title", map[string]interface{}{
		"title": "renamed",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w, resp = do(t, router, "GET", "/views/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	v = resp["view"].(map[string]interface{})
	assert.Equal(t, "renamed", v["title"])

	// Dispose is terminal: the id answers 410 afterwards, an unknown id 404.
	w, _ = do(t, router, "DELETE", "/views/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, router, "GET", "/views/"+id+"/inspect", nil)
	assert.Equal(t, http.StatusGone, w.Code)

	w, _ = do(t, router, "DELETE", "/views/"+id, nil)
	assert.Equal(t, http.StatusGone, w.Code)

	w, _ = do(t, router, "POST", "/views/view-0000000000000000000000000/messages", map[string]interface{}{
		"payload": map[string]interface{}{"type": "noop"},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRESTMessagesAndInspect(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	router, _ := newRouter(t)
	id := createViewHTTP(t, router, "inbox")

	w, _ := do(t, router, "POST", "/views/"+id+"/messages", map[string]interface{}{
		"payload": map[string]interface{}{"type": "notify", "body": "hi"},
	})
	assert.Equal(t, http.StatusAccepted, w.Code)

	// A scalar payload is rejected before it reaches the bridge.
	w, _ = do(t, router, "POST", "/views/"+id+"/messages", map[string]interface{}{
		"payload": "just a string",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, resp := do(t, router, "GET", "/views/"+id+"/inspect", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, resp, "summary")
	assert.Contains(t, resp, "audit")
}

func TestRESTRejectsFragment(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	router, _ := newRouter(t)

	w, _ := do(t, router, "POST", "/views", map[string]interface{}{
		"title": "frag",
		"html":  "<p>not a document</p>",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRESTPresets(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	router, _ := newRouter(t)

	w, resp := do(t, router, "GET", "/presets", nil)
	require.Equal(t, http.StatusOK, w.Code)
	presets := resp["presets"].([]interface{})
	require.NotEmpty(t, presets)

	first := presets[0].(map[string]interface{})
	w, resp = do(t, router, "POST", fmt.Sprintf("/presets/%s/launch", first["id"]), nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, resp, "view")

	w, _ = do(t, router, "POST", "/presets/no-such-preset/launch", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRESTWorkspaceRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	router, s := newRouter(t)
	createViewHTTP(t, router, "alpha")
	createViewHTTP(t, router, "beta")

	w, resp := do(t, router, "POST", "/workspaces/save", map[string]interface{}{
		"name": "pair",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	meta := resp["workspace"].(map[string]interface{})
	wsID := meta["id"].(string)
	assert.Equal(t, float64(2), meta["view_count"])

	// Dispose everything, then restore the pair.
	s.views.DisposeAll(context.Background())

	w, _ = do(t, router, "POST", "/workspaces/"+wsID+"/restore", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, resp = do(t, router, "GET", "/views", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, resp["views"], 2)

	w, _ = do(t, router, "DELETE", "/workspaces/"+wsID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, resp = do(t, router, "GET", "/workspaces", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, resp["workspaces"])
}
