package api

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/memoir/pkg/memory"
)

// CreateRecordRequest is the body of POST /v1/{category}. Attributes use Name
// and Value; the other categories use Content. Category is the episode or
// request kind.
type CreateRecordRequest struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Content  string `json:"content"`
	Category string `json:"category"`
	Priority int    `json:"priority"`
}

// UpdateRecordRequest is the body of PATCH /v1/{category}/{id}. Only set
// fields are written.
type UpdateRecordRequest struct {
	Name     *string `json:"name"`
	Value    *string `json:"value"`
	Content  *string `json:"content"`
	Category *string `json:"category"`
	Active   *bool   `json:"active"`
	Status   *string `json:"status"`
	Priority *int    `json:"priority"`
}

// CompressionRequest is the body of PUT /v1/{category}/{id}/compression.
type CompressionRequest struct {
	Level *int `json:"level"`
}

// CreatedResponse carries the id of a created (or upserted) record.
type CreatedResponse struct {
	ID int64 `json:"id"`
}

func (s *Server) handleListRecords(c *fiber.Ctx) error {
	category, err := memory.ParseCategory(c.Params("category"))
	if err != nil {
		return errorJSON(c, fiber.StatusNotFound, err.Error())
	}

	opts := memory.ListOptions{
		IncludeInactive: c.QueryBool("include_inactive"),
		Kind:            c.Query("kind"),
		Limit:           c.QueryInt("limit"),
	}
	if raw := c.Query("status"); raw != "" {
		status, err := memory.ParseGoalStatus(raw)
		if err != nil {
			return errorJSON(c, fiber.StatusBadRequest, err.Error())
		}
		opts.Status = status
	}
	switch c.Query("order") {
	case "", "oldest":
	case "recent":
		opts.Order = memory.OrderRecent
	case "priority":
		opts.Order = memory.OrderPriority
	default:
		return errorJSON(c, fiber.StatusBadRequest, "order must be one of oldest, recent, priority")
	}

	ctx := c.UserContext()
	var rows any
	switch category {
	case memory.CategoryAttributes:
		rows, err = s.store.ListAttributes(ctx, opts)
	case memory.CategoryEpisodes:
		rows, err = s.store.ListEpisodes(ctx, opts)
	case memory.CategoryGoals:
		rows, err = s.store.ListGoals(ctx, opts)
	case memory.CategoryRequests:
		rows, err = s.store.ListRequests(ctx, opts)
	}
	if err != nil {
		return s.storeError(c, err)
	}
	return c.JSON(rows)
}

func (s *Server) handleCreateRecord(c *fiber.Ctx) error {
	category, err := memory.ParseCategory(c.Params("category"))
	if err != nil {
		return errorJSON(c, fiber.StatusNotFound, err.Error())
	}

	var req CreateRecordRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid request body")
	}

	ctx := c.UserContext()
	var id int64
	switch category {
	case memory.CategoryAttributes:
		if req.Name == "" || req.Value == "" {
			return errorJSON(c, fiber.StatusBadRequest, "name and value are required")
		}
		id, err = s.store.AddAttribute(ctx, req.Name, req.Value)
	case memory.CategoryEpisodes:
		if req.Content == "" {
			return errorJSON(c, fiber.StatusBadRequest, "content is required")
		}
		id, err = s.store.AddEpisode(ctx, req.Content, memory.NormalizeEpisodeKind(req.Category))
	case memory.CategoryGoals:
		if req.Content == "" {
			return errorJSON(c, fiber.StatusBadRequest, "content is required")
		}
		id, err = s.store.AddGoal(ctx, req.Content, req.Priority)
	case memory.CategoryRequests:
		if req.Content == "" {
			return errorJSON(c, fiber.StatusBadRequest, "content is required")
		}
		id, err = s.store.AddRequest(ctx, req.Content, memory.NormalizeRequestKind(req.Category))
	}
	if err != nil {
		return s.storeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(CreatedResponse{ID: id})
}

func (s *Server) handleGetRecord(c *fiber.Ctx) error {
	category, id, ok := recordParams(c)
	if !ok {
		return nil
	}

	ctx := c.UserContext()
	var (
		row any
		err error
	)
	switch category {
	case memory.CategoryAttributes:
		row, err = s.store.GetAttribute(ctx, id)
	case memory.CategoryEpisodes:
		row, err = s.store.GetEpisode(ctx, id)
	case memory.CategoryGoals:
		row, err = s.store.GetGoal(ctx, id)
	case memory.CategoryRequests:
		row, err = s.store.GetRequest(ctx, id)
	}
	if err != nil {
		return s.storeError(c, err)
	}
	return c.JSON(row)
}

func (s *Server) handleUpdateRecord(c *fiber.Ctx) error {
	category, id, ok := recordParams(c)
	if !ok {
		return nil
	}

	var req UpdateRecordRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := s.applyPatch(c.UserContext(), category, id, req); err != nil {
		return s.storeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) applyPatch(ctx context.Context, category memory.Category, id int64, req UpdateRecordRequest) error {
	switch category {
	case memory.CategoryAttributes:
		return s.store.UpdateAttribute(ctx, id, memory.AttributePatch{Name: req.Name, Value: req.Value})
	case memory.CategoryEpisodes:
		patch := memory.EpisodePatch{Content: req.Content, Active: req.Active}
		if req.Category != nil {
			kind := memory.NormalizeEpisodeKind(*req.Category)
			patch.Category = &kind
		}
		return s.store.UpdateEpisode(ctx, id, patch)
	case memory.CategoryGoals:
		patch := memory.GoalPatch{Content: req.Content, Priority: req.Priority}
		if req.Status != nil {
			status, err := memory.ParseGoalStatus(*req.Status)
			if err != nil {
				return err
			}
			patch.Status = &status
		}
		return s.store.UpdateGoal(ctx, id, patch)
	case memory.CategoryRequests:
		patch := memory.RequestPatch{Content: req.Content, Active: req.Active}
		if req.Category != nil {
			kind := memory.NormalizeRequestKind(*req.Category)
			patch.Category = &kind
		}
		return s.store.UpdateRequest(ctx, id, patch)
	}
	return nil
}

// handleDeleteRecord removes a record. Episodes are soft-deleted unless
// ?hard=true.
func (s *Server) handleDeleteRecord(c *fiber.Ctx) error {
	category, id, ok := recordParams(c)
	if !ok {
		return nil
	}

	ctx := c.UserContext()
	var err error
	switch category {
	case memory.CategoryAttributes:
		err = s.store.DeleteAttribute(ctx, id)
	case memory.CategoryEpisodes:
		err = s.store.DeleteEpisode(ctx, id, c.QueryBool("hard"))
	case memory.CategoryGoals:
		err = s.store.DeleteGoal(ctx, id)
	case memory.CategoryRequests:
		err = s.store.DeleteRequest(ctx, id)
	}
	if err != nil {
		return s.storeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// handleOverrideCompression sets a compression level without the monotonic
// check. It is the only path that may lower a level.
func (s *Server) handleOverrideCompression(c *fiber.Ctx) error {
	if _, err := memory.ParseCategory(c.Params("category")); err != nil {
		return errorJSON(c, fiber.StatusNotFound, err.Error())
	}
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return errorJSON(c, fiber.StatusBadRequest, "id must be a positive integer")
	}

	var req CompressionRequest
	if err := c.BodyParser(&req); err != nil || req.Level == nil {
		return errorJSON(c, fiber.StatusBadRequest, "level is required")
	}

	s.logger.Warn("overriding compression level", "table", c.Params("category"), "id", id, "level", *req.Level)
	if err := s.store.OverrideCompressionLevel(c.UserContext(), c.Params("category"), id, *req.Level); err != nil {
		return s.storeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// recordParams parses the category and id path parameters. When they are
// invalid it writes the error response and reports false.
func recordParams(c *fiber.Ctx) (memory.Category, int64, bool) {
	category, err := memory.ParseCategory(c.Params("category"))
	if err != nil {
		_ = errorJSON(c, fiber.StatusNotFound, err.Error())
		return "", 0, false
	}
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		_ = errorJSON(c, fiber.StatusBadRequest, "id must be a positive integer")
		return "", 0, false
	}
	return category, id, true
}

func (s *Server) storeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, memory.ErrNotFound):
		return errorJSON(c, fiber.StatusNotFound, err.Error())
	case memory.IsValidationError(err), errors.Is(err, memory.ErrCompressionRegression):
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	default:
		s.logger.Error("store operation failed", "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "store operation failed")
	}
}
