package server

import (
	"errors"

	"resonance/internal/middleware"
	"resonance/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten means a helper already wrote the response. Returning it from a
// handler would let the ErrorHandler overwrite that response.
var errResponseWritten = errors.New("response already written")

type Pagination struct {
	Limit  int
	Offset int
}

const maxPaginationLimit = 100

// parsePagination reads ?limit and ?offset. Limit is capped at maxPaginationLimit.
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}

	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	return Pagination{Limit: limit, Offset: offset}
}

// parseID reads the :id route parameter as a positive uint. On failure it has already
// answered 400 and returns errResponseWritten; handlers then return nil.
func parseID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid ID"))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// parseKind reads the :kind route parameter. On failure it writes a 400 response.
func parseKind(c *fiber.Ctx) (models.TargetKind, error) {
	kind, ok := models.ParseTargetKind(c.Params("kind"))
	if !ok {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Unknown target kind"))
		return "", errResponseWritten
	}
	return kind, nil
}

// fail answers with the status the error's code maps to.
func fail(c *fiber.Ctx, err error) error {
	return models.RespondWithError(c, models.HTTPStatus(err), err)
}

// currentUser returns the caller resolved by the auth middleware.
func currentUser(c *fiber.Ctx) uint {
	return middleware.CurrentUserID(c)
}

func invalidBody(c *fiber.Ctx) error {
	return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid request body"))
}
