package fsutil

import (
	"archive/zip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownload(t *testing.T) {
	payload := []byte("not really a dataset archive")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "exports", "dataset.zip")
	size, err := Download(context.Background(), srv.Client(), srv.URL, dest, false)
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), size)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestDownload_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := Download(context.Background(), srv.Client(), srv.URL, filepath.Join(t.TempDir(), "out.zip"), false)
	assert.Error(t, err)
}

func TestDownload_CanceledContext(t *testing.T) {
	started := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		// Stall so the transfer is still in flight when the caller cancels.
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := Download(ctx, srv.Client(), srv.URL, filepath.Join(t.TempDir(), "out.zip"), false)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUnzip(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "export.zip")

	f, err := os.Create(archive)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("train/images/img-0001.jpg")
	require.NoError(t, err)
	_, err = w.Write([]byte("jpeg bytes"))
	require.NoError(t, err)
	w, err = zw.Create("data.yaml")
	require.NoError(t, err)
	_, err = w.Write([]byte("nc: 2\nnames: [cat, dog]\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	dest := filepath.Join(dir, "out")
	require.NoError(t, Unzip(archive, dest))

	assert.True(t, FileExists(filepath.Join(dest, "train", "images", "img-0001.jpg")))
	assert.True(t, FileExists(filepath.Join(dest, "data.yaml")))
}

func TestUnzip_RejectsEscapingEntries(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "evil.zip")

	f, err := os.Create(archive)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("../outside.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("nope"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	err = Unzip(archive, filepath.Join(dir, "out"))
	assert.Error(t, err)
}
