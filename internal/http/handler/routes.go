package handler

import (
	"context"
	"database/sql"
	"io"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"docanchor/internal/backend"
	"docanchor/internal/service"
)

type uploadRequest struct {
	OwnerRef    string `json:"owner_ref"`
	PropertyRef string `json:"property_ref"`
}

type updateRequest struct {
	Requester string `json:"requester"`
	Reason    string `json:"reason"`
}

type reviewRequest struct {
	ReviewerRef string `json:"reviewer_ref"`
	Reason      string `json:"reason"`
}

type batchRequest struct {
	IDs         []string `json:"ids"`
	ReviewerRef string   `json:"reviewer_ref"`
	Reason      string   `json:"reason"`
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Handlers stay thin: parse, delegate, map errors.
func RegisterRoutes(app *fiber.App, db *sql.DB, anchorSvc service.AnchorService, integritySvc service.IntegrityService, backends *backend.Backends, reg *prometheus.Registry, production bool) {
	// Health endpoint: checks DB connectivity only.
	app.Get("/health", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	})

	// Simple liveness probe.
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// List documents with limit & offset.
	app.Get("/documents", func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}
		res, err := anchorSvc.List(c.UserContext(), limit, offset)
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(res)
	})

	// Upload and anchor a document (multipart/form-data, field name: file).
	app.Post("/documents", func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}
		var req uploadRequest
		req.OwnerRef = c.FormValue("owner_ref")
		req.PropertyRef = c.FormValue("property_ref")
		if req.OwnerRef == "" {
			return writeError(c, fiber.StatusBadRequest, "OWNER_REQUIRED", "owner_ref is required")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()
		content, err := io.ReadAll(f)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_READ_ERROR", "cannot read uploaded file")
		}

		out, err := anchorSvc.Upload(c.UserContext(), req.OwnerRef, req.PropertyRef, content, fh.Filename)
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(out)
	})

	// Get document by ID.
	app.Get("/documents/:id", func(c *fiber.Ctx) error {
		id, ok := parseID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		doc, err := anchorSvc.Get(c.UserContext(), id)
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(doc)
	})

	// Update document content (multipart; file optional metadata-only update).
	app.Put("/documents/:id", func(c *fiber.Ctx) error {
		id, ok := parseID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		req := updateRequest{
			Requester: c.FormValue("requester"),
			Reason:    c.FormValue("reason"),
		}
		if req.Requester == "" {
			return writeError(c, fiber.StatusBadRequest, "REQUESTER_REQUIRED", "requester is required")
		}

		var content []byte
		if fh, err := c.FormFile("file"); err == nil {
			f, err := fh.Open()
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
			}
			defer f.Close()
			content, err = io.ReadAll(f)
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "FILE_READ_ERROR", "cannot read uploaded file")
			}
		}

		doc, err := anchorSvc.Update(c.UserContext(), id, req.Requester, content, req.Reason)
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(doc)
	})

	// Reviewer verify.
	app.Post("/documents/:id/verify", func(c *fiber.Ctx) error {
		id, ok := parseID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		var req reviewRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		}
		doc, err := anchorSvc.Verify(c.UserContext(), id, req.ReviewerRef)
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(doc)
	})

	// Reviewer reject.
	app.Post("/documents/:id/reject", func(c *fiber.Ctx) error {
		id, ok := parseID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		var req reviewRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		}
		doc, err := anchorSvc.Reject(c.UserContext(), id, req.ReviewerRef, req.Reason)
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(doc)
	})

	// Archive (soft delete).
	app.Delete("/documents/:id", func(c *fiber.Ctx) error {
		id, ok := parseID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		requester := c.Query("requester")
		if requester == "" {
			return writeError(c, fiber.StatusBadRequest, "REQUESTER_REQUIRED", "requester is required")
		}
		if err := anchorSvc.Archive(c.UserContext(), id, requester); err != nil {
			return writeDomainError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	// Batch verify.
	app.Post("/documents/verify-batch", func(c *fiber.Ctx) error {
		var req batchRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		}
		out, err := anchorSvc.BatchVerify(c.UserContext(), req.IDs, req.ReviewerRef)
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(out)
	})

	// Batch reject.
	app.Post("/documents/reject-batch", func(c *fiber.Ctx) error {
		var req batchRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		}
		out, err := anchorSvc.BatchReject(c.UserContext(), req.IDs, req.ReviewerRef, req.Reason)
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(out)
	})

	// Single reconciliation check.
	app.Get("/documents/:id/integrity", func(c *fiber.Ctx) error {
		id, ok := parseID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		res, err := integritySvc.Check(c.UserContext(), id)
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(res)
	})

	// Batch reconciliation.
	app.Post("/documents/integrity-batch", func(c *fiber.Ctx) error {
		var req batchRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		}
		res, err := integritySvc.BatchCheck(c.UserContext(), req.IDs)
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(res)
	})

	// Administrative reset of simulated backend state. Not registered in
	// production configurations.
	if !production {
		app.Post("/admin/reset-simulated", func(c *fiber.Ctx) error {
			if err := backends.ResetSimulated(); err != nil {
				return writeError(c, fiber.StatusConflict, "RESET_UNAVAILABLE", err.Error())
			}
			return c.JSON(fiber.Map{"status": "reset"})
		})
	}
}

func parseID(c *fiber.Ctx) (string, bool) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}
