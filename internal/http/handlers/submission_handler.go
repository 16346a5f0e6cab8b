package handlers

import (
	"github.com/gofiber/fiber/v2"

	"lukamath/internal/apperr"
	applog "lukamath/internal/log"
	"lukamath/internal/services"
)

type SubmissionHandler struct {
	Homework *services.HomeworkService
}

type gradeRequest struct {
	Grade    string `json:"grade"`
	Feedback string `json:"feedback"`
}

// PUT /api/submissions/:id
func (h *SubmissionHandler) Update(c *fiber.Ctx) error {
	var in contentRequest
	if err := parseBody(c, &in); err != nil {
		return err
	}
	sub, err := h.Homework.UpdateSubmission(c.UserContext(), actor(c), c.Params("id"), in.Content)
	if err != nil {
		return denied(c, "submission", err)
	}
	applog.Audit(c, "submission.update", map[string]any{"submission_id": sub.ID})
	return ok(c, fiber.StatusOK, fiber.Map{"submission": sub})
}

// POST /api/submissions/:id/grade
func (h *SubmissionHandler) Grade(c *fiber.Ctx) error {
	var in gradeRequest
	if err := parseBody(c, &in); err != nil {
		return err
	}
	sub, err := h.Homework.Grade(c.UserContext(), actor(c), c.Params("id"), in.Grade, in.Feedback)
	if err != nil {
		return denied(c, "submission", err)
	}
	applog.Audit(c, "submission.grade", map[string]any{"submission_id": sub.ID, "grade": in.Grade})
	return ok(c, fiber.StatusOK, fiber.Map{"submission": sub})
}

// POST /api/submissions/:id/files (multipart field "file")
func (h *SubmissionHandler) Upload(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return apperr.Validation("file is required")
	}
	src, err := fh.Open()
	if err != nil {
		return apperr.Wrap(apperr.ServerError, "could not read upload", err)
	}
	defer src.Close()

	f, err := h.Homework.AttachFile(c.UserContext(), actor(c), c.Params("id"),
		fh.Filename, fh.Header.Get(fiber.HeaderContentType), src)
	if err != nil {
		return denied(c, "submission", err)
	}
	applog.Audit(c, "submission.file.upload", map[string]any{"submission_id": f.SubmissionID, "file_id": f.ID, "size": f.Size})
	return ok(c, fiber.StatusCreated, fiber.Map{"file": f})
}

// GET /api/submissions/:id/files/:fileId
func (h *SubmissionHandler) Download(c *fiber.Ctx) error {
	f, path, err := h.Homework.File(c.UserContext(), actor(c), c.Params("id"), c.Params("fileId"))
	if err != nil {
		return denied(c, "submission", err)
	}
	return c.Download(path, f.Filename)
}
