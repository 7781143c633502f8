package api

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/memoir/pkg/memory"
	"github.com/papercomputeco/memoir/pkg/organize"
	"github.com/papercomputeco/memoir/pkg/progress"
	"github.com/papercomputeco/memoir/pkg/utils"
	"github.com/papercomputeco/memoir/pkg/worker"
)

// TurnRequest is the body of POST /v1/turns.
type TurnRequest struct {
	User      string `json:"user"`
	Assistant string `json:"assistant"`
}

// TurnQueuedResponse acknowledges an asynchronous turn.
type TurnQueuedResponse struct {
	Queued bool `json:"queued"`
}

// ProcessingStatus reports background work.
type ProcessingStatus struct {
	IsProcessing bool  `json:"is_processing"`
	Pending      int64 `json:"pending"`
	Organizing   bool  `json:"organizing"`
}

// OrganizeLogResponse is the body of GET /v1/organize/log.
type OrganizeLogResponse struct {
	Running bool             `json:"running"`
	Events  []progress.Event `json:"events"`
	// Next is the since value that returns only newer events.
	Next int `json:"next"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

func (s *Server) handleVersion(c *fiber.Ctx) error {
	return c.JSON(utils.Build())
}

// handleTurn accepts one conversation turn. By default extraction is queued
// and the reply is 202; ?sync=true extracts inline and returns the result.
func (s *Server) handleTurn(c *fiber.Ctx) error {
	var req TurnRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.User == "" {
		return errorJSON(c, fiber.StatusBadRequest, "user utterance is required")
	}

	if c.QueryBool("sync") {
		if s.config.Extractor == nil {
			return errorJSON(c, fiber.StatusServiceUnavailable, "extraction is not configured")
		}
		res, err := s.config.Extractor.ProcessInput(c.UserContext(), req.User, req.Assistant)
		if err != nil {
			s.logger.Error("inline extraction failed", "error", err)
			return errorJSON(c, fiber.StatusInternalServerError, "extraction failed")
		}
		return c.JSON(res)
	}

	if s.config.Queue == nil {
		return errorJSON(c, fiber.StatusServiceUnavailable, "extraction is not configured")
	}
	if !s.config.Queue.Enqueue(worker.Job{User: req.User, Assistant: req.Assistant}) {
		return errorJSON(c, fiber.StatusServiceUnavailable, "extraction queue is full")
	}
	return c.Status(fiber.StatusAccepted).JSON(TurnQueuedResponse{Queued: true})
}

func (s *Server) handleProcessingStatus(c *fiber.Ctx) error {
	var status ProcessingStatus
	if s.config.Queue != nil {
		status.Pending = s.config.Queue.Processing()
		status.IsProcessing = status.Pending > 0
	}
	if s.config.Organizer != nil {
		status.Organizing = s.config.Organizer.Running()
	}
	return c.JSON(status)
}

// handleOrganize starts an organization run in the background and returns
// 202, or 409 when a run is already in flight. ?sync=true runs it inline
// and returns the summary.
func (s *Server) handleOrganize(c *fiber.Ctx) error {
	org := s.config.Organizer
	if org == nil {
		return errorJSON(c, fiber.StatusServiceUnavailable, "organizer is not configured")
	}

	if c.QueryBool("sync") {
		if org.Running() {
			return errorJSON(c, fiber.StatusConflict, organize.ErrAlreadyRunning.Error())
		}
		return c.JSON(org.OrganizeAll(c.UserContext()))
	}

	err := org.Start(context.Background(), func(sum *organize.Summary) {
		s.logger.Info("organization finished", "run_id", sum.RunID, "error", sum.Error)
	})
	if errors.Is(err, organize.ErrAlreadyRunning) {
		return errorJSON(c, fiber.StatusConflict, err.Error())
	}
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, err.Error())
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "started"})
}

// handleOrganizeLog returns the progress events of the current or last run.
// ?since=N skips the first N events.
func (s *Server) handleOrganizeLog(c *fiber.Ctx) error {
	org := s.config.Organizer
	if org == nil {
		return errorJSON(c, fiber.StatusServiceUnavailable, "organizer is not configured")
	}

	since := 0
	if raw := c.Query("since"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return errorJSON(c, fiber.StatusBadRequest, "since must be a non-negative integer")
		}
		since = n
	}

	events := org.Progress().Events()
	if since > len(events) {
		since = len(events)
	}

	return c.JSON(OrganizeLogResponse{
		Running: org.Running(),
		Events:  events[since:],
		Next:    len(events),
	})
}

// handleProfile returns the profile as JSON, or the rendered prompt text with
// ?format=text. Episodes returned here count as accessed.
func (s *Server) handleProfile(c *fiber.Ctx) error {
	profile, err := memory.LoadProfile(c.UserContext(), s.store, s.config.RecentEpisodes)
	if err != nil {
		s.logger.Error("loading profile", "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "failed to load profile")
	}

	if c.Query("format") == "text" {
		return c.SendString(profile.Format())
	}
	return c.JSON(profile)
}
