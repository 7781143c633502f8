// Package api provides the HTTP API for feeding conversation turns to memoir
// and for inspecting and curating the stored profile.
package api

import (
	"context"
	"net/http"

	"github.com/papercomputeco/memoir/pkg/extract"
	"github.com/papercomputeco/memoir/pkg/metrics"
	"github.com/papercomputeco/memoir/pkg/organize"
	"github.com/papercomputeco/memoir/pkg/worker"
)

// TurnProcessor extracts a turn inline.
type TurnProcessor interface {
	ProcessInput(ctx context.Context, user, assistant string) (*extract.Result, error)
}

// TurnQueue hands turns to background extraction.
type TurnQueue interface {
	Enqueue(job worker.Job) bool
	Processing() int64
}

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8081")
	ListenAddr string

	// Extractor serves POST /v1/turns?sync=true. Optional.
	Extractor TurnProcessor

	// Queue serves asynchronous POST /v1/turns. Optional.
	Queue TurnQueue

	// Organizer serves the /v1/organize routes. Optional.
	Organizer *organize.Organizer

	// Metrics is exposed on /metrics when set.
	Metrics *metrics.Recorder

	// MCPHandler is mounted on /mcp when set.
	MCPHandler http.Handler

	// RecentEpisodes caps the episodes in GET /v1/profile.
	RecentEpisodes int
}
