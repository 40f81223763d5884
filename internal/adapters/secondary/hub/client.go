// Package hub implements the dataset-hosting service client. The hub owns
// dataset packaging, annotation and the wire protocol; this adapter only
// drives its documented REST surface.
package hub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"vision-pipeline-service/internal/config"
	"vision-pipeline-service/internal/core/ports/output"
	"vision-pipeline-service/internal/fsutil"
)

type hubClient struct {
	baseURL  string
	apiKey   string
	client   *http.Client
	enabled  bool
	progress bool
}

// NewHubClient creates a new dataset hub client adapter
func NewHubClient(cfg *config.HubConfig) ports.HubClient {
	if !cfg.Enabled || cfg.APIKey == "" {
		return &hubClient{enabled: false}
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 2 * time.Minute
	}

	return &hubClient{
		baseURL:  cfg.URL,
		apiKey:   cfg.APIKey,
		enabled:  true,
		progress: cfg.Progress,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *hubClient) IsAvailable() bool {
	return c.enabled
}

// exportResponse is the hub's answer to an export request: a link to the
// packaged archive.
type exportResponse struct {
	Export struct {
		Link string `json:"link"`
		Size int64  `json:"size"`
	} `json:"export"`
}

func (c *hubClient) DownloadExport(ctx context.Context, req ports.ExportRequest, destDir string) (*ports.ExportResult, error) {
	params := url.Values{}
	params.Set("api_key", c.apiKey)

	reqURL := fmt.Sprintf("%s/%s/%s/%d/%s?%s",
		c.baseURL, req.Workspace, req.Project, req.Version, req.Format, params.Encode())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request export: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request export: unexpected status %s: %s", resp.Status, readErrorBody(resp.Body))
	}

	var export exportResponse
	if err := json.NewDecoder(resp.Body).Decode(&export); err != nil {
		return nil, fmt.Errorf("decode export response: %w", err)
	}
	if export.Export.Link == "" {
		return nil, fmt.Errorf("export response carries no archive link")
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("create export directory: %w", err)
	}
	archive := filepath.Join(destDir, "export.zip")
	size, err := fsutil.Download(ctx, c.client, export.Export.Link, archive, c.progress)
	if err != nil {
		return nil, fmt.Errorf("download export archive: %w", err)
	}
	if err := fsutil.Unzip(archive, destDir); err != nil {
		return nil, fmt.Errorf("extract export archive: %w", err)
	}
	if err := os.Remove(archive); err != nil {
		return nil, fmt.Errorf("remove export archive: %w", err)
	}

	return &ports.ExportResult{Dir: destDir, SizeBytes: size}, nil
}

func (c *hubClient) Upload(ctx context.Context, req ports.UploadRequest) error {
	file, err := os.Open(req.FilePath)
	if err != nil {
		return fmt.Errorf("open upload file: %w", err)
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filepath.Base(req.FilePath))
	if err != nil {
		return fmt.Errorf("build multipart body: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("read upload file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finalize multipart body: %w", err)
	}

	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("name", filepath.Base(req.FilePath))
	params.Set("split", req.Split)
	if req.BatchName != "" {
		params.Set("batch", req.BatchName)
	}

	reqURL := fmt.Sprintf("%s/dataset/%s/upload?%s", c.baseURL, req.Project, params.Encode())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, body)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("upload %s: %w", filepath.Base(req.FilePath), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("upload %s: unexpected status %s: %s",
			filepath.Base(req.FilePath), resp.Status, readErrorBody(resp.Body))
	}
	return nil
}

func readErrorBody(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, 1024))
	return string(data)
}

// Ensure interface compliance
var _ ports.HubClient = (*hubClient)(nil)
