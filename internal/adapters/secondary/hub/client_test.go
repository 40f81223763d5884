package hub

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vision-pipeline-service/internal/config"
	"vision-pipeline-service/internal/core/ports/output"
)

func newTestClient(t *testing.T, handler http.Handler) (ports.HubClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewHubClient(&config.HubConfig{
		Enabled: true,
		URL:     srv.URL,
		APIKey:  "test-key",
	})
	return client, srv
}

func exportArchive(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("data.yaml")
	require.NoError(t, err)
	_, err = w.Write([]byte("nc: 1\nnames: [widget]\n"))
	require.NoError(t, err)
	w, err = zw.Create("train/images/sample.jpg")
	require.NoError(t, err)
	_, err = w.Write([]byte("jpeg"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestHubClient_Disabled(t *testing.T) {
	client := NewHubClient(&config.HubConfig{Enabled: false})
	assert.False(t, client.IsAvailable())

	client = NewHubClient(&config.HubConfig{Enabled: true, APIKey: ""})
	assert.False(t, client.IsAvailable())
}

func TestHubClient_DownloadExport(t *testing.T) {
	archive := exportArchive(t)

	mux := http.NewServeMux()
	var srvURL string
	mux.HandleFunc("/acme/widgets/3/yolov5pytorch", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))
		fmt.Fprintf(w, `{"export":{"link":"%s/archive.zip","size":%d}}`, srvURL, len(archive))
	})
	mux.HandleFunc("/archive.zip", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(archive)
	})

	client, srv := newTestClient(t, mux)
	srvURL = srv.URL

	destDir := filepath.Join(t.TempDir(), "widgets-v3")
	result, err := client.DownloadExport(context.Background(), ports.ExportRequest{
		Workspace: "acme",
		Project:   "widgets",
		Version:   3,
		Format:    "yolov5pytorch",
	}, destDir)
	require.NoError(t, err)

	assert.Equal(t, destDir, result.Dir)
	assert.Equal(t, int64(len(archive)), result.SizeBytes)
	assert.FileExists(t, filepath.Join(destDir, "data.yaml"))
	assert.FileExists(t, filepath.Join(destDir, "train", "images", "sample.jpg"))
	assert.NoFileExists(t, filepath.Join(destDir, "export.zip"))
}

func TestHubClient_DownloadExport_BadStatus(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
	}))

	_, err := client.DownloadExport(context.Background(), ports.ExportRequest{
		Workspace: "acme", Project: "widgets", Version: 3, Format: "yolov5pytorch",
	}, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestHubClient_Upload(t *testing.T) {
	file := filepath.Join(t.TempDir(), "scene-0001.png")
	require.NoError(t, os.WriteFile(file, []byte("png bytes"), 0o644))

	var gotSplit, gotBatch, gotName string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/dataset/widgets/upload", r.URL.Path)
		gotSplit = r.URL.Query().Get("split")
		gotBatch = r.URL.Query().Get("batch")
		gotName = r.URL.Query().Get("name")

		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, header, err := r.FormFile("file")
		require.NoError(t, err)
		assert.Equal(t, "scene-0001.png", header.Filename)
		fmt.Fprint(w, `{"success":true}`)
	}))

	err := client.Upload(context.Background(), ports.UploadRequest{
		Workspace: "acme",
		Project:   "widgets",
		FilePath:  file,
		Split:     "train",
		BatchName: "synthetic-batch-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "train", gotSplit)
	assert.Equal(t, "synthetic-batch-1", gotBatch)
	assert.Equal(t, "scene-0001.png", gotName)
}

func TestHubClient_Upload_ServerError(t *testing.T) {
	file := filepath.Join(t.TempDir(), "x.png")
	require.NoError(t, os.WriteFile(file, []byte("png"), 0o644))

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusBadGateway)
	}))

	err := client.Upload(context.Background(), ports.UploadRequest{
		Workspace: "acme", Project: "widgets", FilePath: file, Split: "train",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
