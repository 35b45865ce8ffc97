package api

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/meikuraledutech/ost"
	"github.com/meikuraledutech/ost/logging"
)

// errorBody is the JSON shape of every non-2xx response.
type errorBody struct {
	Message string `json:"message"`
}

func list[T any](s *server, fn func(context.Context) ([]T, error)) fiber.Handler {
	return func(c fiber.Ctx) error {
		ctx, cancel := s.ctx(c)
		defer cancel()
		items, err := fn(ctx)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(items)
	}
}

func create[T any](s *server, fn func(context.Context, T) (*T, error)) fiber.Handler {
	return func(c fiber.Ctx) error {
		var body T
		if err := c.Bind().JSON(&body); err != nil {
			return badRequest(c, "invalid body")
		}
		if err := s.validate.Struct(body); err != nil {
			return badRequest(c, validationMessage(err))
		}
		ctx, cancel := s.ctx(c)
		defer cancel()
		out, err := fn(ctx, body)
		if err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(out)
	}
}

// update binds a {id, ...fields} body. The patch type P decides which fields
// are recognised.
func update[P, T any](s *server, fn func(context.Context, string, P) (*T, error)) fiber.Handler {
	return func(c fiber.Ctx) error {
		var target struct {
			ID string `json:"id"`
		}
		var patch P
		if err := c.Bind().JSON(&target); err != nil {
			return badRequest(c, "invalid body")
		}
		if err := c.Bind().JSON(&patch); err != nil {
			return badRequest(c, "invalid body")
		}
		if target.ID == "" {
			return badRequest(c, "id is required")
		}
		if err := s.validate.Struct(patch); err != nil {
			return badRequest(c, validationMessage(err))
		}
		ctx, cancel := s.ctx(c)
		defer cancel()
		out, err := fn(ctx, target.ID, patch)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(out)
	}
}

func remove(s *server, fn func(context.Context, string) error) fiber.Handler {
	return func(c fiber.Ctx) error {
		ctx, cancel := s.ctx(c)
		defer cancel()
		if err := fn(ctx, c.Params("id")); err != nil {
			return fail(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func badRequest(c fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(errorBody{Message: msg})
}

// fail maps store errors onto status codes.
func fail(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ost.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(errorBody{Message: err.Error()})
	case errors.Is(err, ost.ErrInvalidParent):
		return c.Status(fiber.StatusBadRequest).JSON(errorBody{Message: err.Error()})
	case errors.Is(err, ost.ErrCycle):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(errorBody{Message: "cycle detected"})
	case errors.Is(err, context.DeadlineExceeded):
		return c.Status(fiber.StatusGatewayTimeout).JSON(errorBody{Message: "store timed out"})
	}
	logging.FromContext(c.Context()).Error("store call failed", "path", c.Path(), "err", err)
	return c.Status(fiber.StatusInternalServerError).JSON(errorBody{Message: "internal error"})
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		if fe.Param() != "" {
			return fe.Field() + " must satisfy " + fe.Tag() + "=" + fe.Param()
		}
		return fe.Field() + " is " + fe.Tag()
	}
	return err.Error()
}

// errorHandler renders errors that escape handlers, such as unknown routes.
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	msg := err.Error()
	if code == fiber.StatusInternalServerError {
		msg = "internal error"
	}
	return c.Status(code).JSON(errorBody{Message: msg})
}
