package diffusion

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vision-pipeline-service/internal/config"
	"vision-pipeline-service/internal/core/ports/output"
)

func TestDiffusionClient_Disabled(t *testing.T) {
	client := NewDiffusionClient(&config.DiffusionConfig{Enabled: false})
	assert.False(t, client.IsAvailable())

	_, err := client.Generate(context.Background(), ports.Txt2ImgRequest{Prompt: "a widget"})
	require.Error(t, err)
}

func TestDiffusionClient_Generate(t *testing.T) {
	first := []byte("png-one")
	second := []byte("png-two")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sdapi/v1/txt2img", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req txt2imgRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "a widget on a conveyor belt", req.Prompt)
		assert.Equal(t, 2, req.BatchSize)
		assert.Equal(t, 512, req.Width)
		assert.Equal(t, 512, req.Height)

		resp := txt2imgResponse{Images: []string{
			base64.StdEncoding.EncodeToString(first),
			base64.StdEncoding.EncodeToString(second),
		}}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	client := NewDiffusionClient(&config.DiffusionConfig{
		Enabled:   true,
		URL:       srv.URL,
		AuthToken: "secret",
		Width:     512,
		Height:    512,
	})
	require.True(t, client.IsAvailable())

	images, err := client.Generate(context.Background(), ports.Txt2ImgRequest{
		Prompt:    "a widget on a conveyor belt",
		BatchSize: 2,
		Steps:     30,
		Seed:      -1,
	})
	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.Equal(t, first, images[0])
	assert.Equal(t, second, images[1])
}

func TestDiffusionClient_Generate_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewDiffusionClient(&config.DiffusionConfig{Enabled: true, URL: srv.URL})
	_, err := client.Generate(context.Background(), ports.Txt2ImgRequest{Prompt: "x", BatchSize: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestDiffusionClient_Generate_BadBase64(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"images":["not base64!!"]}`))
	}))
	defer srv.Close()

	client := NewDiffusionClient(&config.DiffusionConfig{Enabled: true, URL: srv.URL})
	_, err := client.Generate(context.Background(), ports.Txt2ImgRequest{Prompt: "x", BatchSize: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode image")
}
