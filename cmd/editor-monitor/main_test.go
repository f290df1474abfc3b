package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upb/publish-guard/internal/editormonitor"
	"github.com/upb/publish-guard/internal/publishguard"
)

const classicSnapshot = `<html><body>
<form id="post">
  <div id="postimagediv">%s</div>
  <input type="submit" id="publish" value="Publish">
</form></body></html>`

func writeSnapshot(t *testing.T, image string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "edit.html")
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(classicSnapshot, image)), 0o600))
	return path
}

func execute(t *testing.T, args ...string) ([]editormonitor.Status, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--log-level", "error"))

	err := cmd.ExecuteContext(context.Background())

	var statuses []editormonitor.Status
	sc := bufio.NewScanner(&out)
	for sc.Scan() {
		var s editormonitor.Status
		if json.Unmarshal(sc.Bytes(), &s) == nil {
			statuses = append(statuses, s)
		}
	}
	return statuses, err
}

func TestEditorMonitor_OfflineMissingImage(t *testing.T) {
	snapshot := writeSnapshot(t, "")
	out := filepath.Join(t.TempDir(), "checked.html")

	statuses, err := execute(t, "--snapshot", snapshot, "--ticks", "1", "--out", out, "--locale", "es-CO")
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.True(t, statuses[0].Blocked)
	assert.Equal(t, publishguard.ReasonMissingImage, statuses[0].Reason)
	assert.Equal(t, "classic", statuses[0].Editor)

	checked, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(checked), `id="nofeature-message"`)
	assert.Contains(t, string(checked), `disabled="disabled"`)
}

func TestEditorMonitor_FromServer(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1200, 630))))
	hero := buf.Bytes()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/items/item-1/editor-bootstrap", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"enforced":true,"missing_image_message":"missing","too_small_message":"small","min_width":800,"min_height":600}}`))
	})
	mux.HandleFunc("/uploads/hero.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(hero)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	snapshot := writeSnapshot(t, `<img src="/uploads/hero-150x150.png">`)
	out := filepath.Join(t.TempDir(), "checked.html")

	statuses, err := execute(t,
		"--snapshot", snapshot,
		"--server", server.URL,
		"--item", "item-1",
		"--token", "tok",
		"--ticks", "2",
		"--interval", "10ms",
		"--out", out)
	require.NoError(t, err)
	require.Len(t, statuses, 2)

	// the first check runs before the image size is known
	assert.True(t, statuses[0].Blocked)
	assert.Equal(t, publishguard.ReasonImageTooSmall, statuses[0].Reason)
	assert.False(t, statuses[1].Blocked)
	assert.Equal(t, publishguard.ReasonSatisfied, statuses[1].Reason)

	checked, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.NotContains(t, string(checked), "nofeature-message")
	assert.NotContains(t, string(checked), "disabled")
}

func TestEditorMonitor_FlagErrors(t *testing.T) {
	snapshot := writeSnapshot(t, "")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing snapshot flag", []string{}, "snapshot"},
		{"server without item", []string{"--snapshot", snapshot, "--server", "http://localhost"}, "--server and --item"},
		{"negative ticks", []string{"--snapshot", snapshot, "--ticks", "-1"}, "--ticks"},
		{"unknown locale", []string{"--snapshot", snapshot, "--locale", "xx-YY"}, "unsupported locale"},
		{"missing file", []string{"--snapshot", filepath.Join(t.TempDir(), "nope.html")}, "open snapshot"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
