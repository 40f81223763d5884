package dto

import (
	"time"

	"github.com/dustin/go-humanize"

	"vision-pipeline-service/internal/core/services"
)

type ArtifactResponse struct {
	Name      string `json:"name"`
	SizeBytes int64  `json:"size_bytes"`
	Size      string `json:"size"`
	ModTime   string `json:"mod_time"`
}

type ListArtifactsResponse struct {
	Items []ArtifactResponse `json:"items"`
	Total int                `json:"total"`
}

func ToArtifactResponse(a services.Artifact) ArtifactResponse {
	return ArtifactResponse{
		Name:      a.Name,
		SizeBytes: a.SizeBytes,
		Size:      humanize.IBytes(uint64(a.SizeBytes)),
		ModTime:   a.ModTime.Format(time.RFC3339),
	}
}
