package diffusion

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"vision-pipeline-service/internal/config"
	"vision-pipeline-service/internal/core/ports/output"
)

// txt2imgRequest is the wire shape of the diffusion backend's txt2img
// endpoint. The backend returns images base64 encoded.
type txt2imgRequest struct {
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negative_prompt,omitempty"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	Steps          int     `json:"steps"`
	CFGScale       float64 `json:"cfg_scale"`
	BatchSize      int     `json:"batch_size"`
	Seed           int64   `json:"seed"`
}

type txt2imgResponse struct {
	Images []string `json:"images"`
}

type diffusionClient struct {
	baseURL   string
	authToken string
	client    *http.Client
	enabled   bool
	width     int
	height    int
}

// NewDiffusionClient builds a txt2img client against the configured diffusion
// backend. A client with no URL configured reports itself unavailable.
func NewDiffusionClient(cfg *config.DiffusionConfig) ports.DiffusionClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Minute
	}
	return &diffusionClient{
		baseURL:   cfg.URL,
		authToken: cfg.AuthToken,
		client:    &http.Client{Timeout: timeout},
		enabled:   cfg.Enabled && cfg.URL != "",
		width:     cfg.Width,
		height:    cfg.Height,
	}
}

func (c *diffusionClient) IsAvailable() bool {
	return c.enabled
}

func (c *diffusionClient) Generate(ctx context.Context, req ports.Txt2ImgRequest) ([][]byte, error) {
	if !c.enabled {
		return nil, fmt.Errorf("diffusion backend is not configured")
	}

	width := req.Width
	if width == 0 {
		width = c.width
	}
	height := req.Height
	if height == 0 {
		height = c.height
	}

	payload, err := json.Marshal(txt2imgRequest{
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		Width:          width,
		Height:         height,
		Steps:          req.Steps,
		CFGScale:       req.GuidanceScale,
		BatchSize:      req.BatchSize,
		Seed:           req.Seed,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal txt2img request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/sdapi/v1/txt2img", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build txt2img request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call txt2img: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("call txt2img: unexpected status %s: %s", resp.Status, bytes.TrimSpace(body))
	}

	var decoded txt2imgResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode txt2img response: %w", err)
	}
	if len(decoded.Images) == 0 {
		return nil, fmt.Errorf("txt2img response carries no images")
	}

	images := make([][]byte, 0, len(decoded.Images))
	for i, encoded := range decoded.Images {
		raw, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("decode image %d: %w", i, err)
		}
		images = append(images, raw)
	}
	return images, nil
}

var _ ports.DiffusionClient = (*diffusionClient)(nil)
