package ports

import "context"

// Txt2ImgRequest is one batched call to the diffusion server.
type Txt2ImgRequest struct {
	Prompt         string
	NegativePrompt string
	BatchSize      int
	Steps          int
	GuidanceScale  float64
	Seed           int64 // -1 lets the server pick
	Width          int
	Height         int
}

// DiffusionClient invokes the external pretrained text-to-image pipeline.
// Sampling, scheduling and model concerns live entirely on the server side.
type DiffusionClient interface {
	IsAvailable() bool

	// Generate returns one PNG-encoded image per requested batch slot.
	Generate(ctx context.Context, req Txt2ImgRequest) ([][]byte, error)
}
