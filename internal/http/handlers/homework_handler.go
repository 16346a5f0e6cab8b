package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "lukamath/internal/log"
	"lukamath/internal/services"
)

type HomeworkHandler struct {
	Homework *services.HomeworkService
}

type contentRequest struct {
	Content string `json:"content"`
}

// GET /api/homework
func (h *HomeworkHandler) List(c *fiber.Ctx) error {
	list, err := h.Homework.List(c.UserContext(), actor(c))
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, fiber.Map{"homework": list})
}

// POST /api/homework
func (h *HomeworkHandler) Create(c *fiber.Ctx) error {
	var in services.HomeworkInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	hw, err := h.Homework.Create(c.UserContext(), actor(c), in)
	if err != nil {
		return denied(c, "homework", err)
	}
	applog.Audit(c, "homework.create", map[string]any{"homework_id": hw.ID, "student_id": hw.StudentID})
	return ok(c, fiber.StatusCreated, fiber.Map{"homework": hw})
}

// GET /api/homework/:id
func (h *HomeworkHandler) Get(c *fiber.Ctx) error {
	hw, err := h.Homework.Get(c.UserContext(), actor(c), c.Params("id"))
	if err != nil {
		return denied(c, "homework", err)
	}
	return ok(c, fiber.StatusOK, fiber.Map{"homework": hw})
}

// PUT /api/homework/:id
func (h *HomeworkHandler) Update(c *fiber.Ctx) error {
	var in services.HomeworkInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	hw, err := h.Homework.Update(c.UserContext(), actor(c), c.Params("id"), in)
	if err != nil {
		return denied(c, "homework", err)
	}
	applog.Audit(c, "homework.update", map[string]any{"homework_id": hw.ID})
	return ok(c, fiber.StatusOK, fiber.Map{"homework": hw})
}

// DELETE /api/homework/:id
func (h *HomeworkHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.Homework.Delete(c.UserContext(), actor(c), id); err != nil {
		return denied(c, "homework", err)
	}
	applog.Audit(c, "homework.delete", map[string]any{"homework_id": id})
	return ok(c, fiber.StatusOK, nil)
}

// GET /api/homework/:id/submissions
func (h *HomeworkHandler) Submissions(c *fiber.Ctx) error {
	subs, err := h.Homework.ListSubmissions(c.UserContext(), actor(c), c.Params("id"))
	if err != nil {
		return denied(c, "homework", err)
	}
	return ok(c, fiber.StatusOK, fiber.Map{"submissions": subs})
}

// POST /api/homework/:id/submissions
func (h *HomeworkHandler) Submit(c *fiber.Ctx) error {
	var in contentRequest
	if err := parseBody(c, &in); err != nil {
		return err
	}
	sub, err := h.Homework.Submit(c.UserContext(), actor(c), c.Params("id"), in.Content)
	if err != nil {
		return denied(c, "submission", err)
	}
	applog.Audit(c, "submission.create", map[string]any{"submission_id": sub.ID, "homework_id": sub.HomeworkID})
	return ok(c, fiber.StatusCreated, fiber.Map{"submission": sub})
}
