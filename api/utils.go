package api

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/pkgshield/pkgshield/pkg/lifecycle"
)

// serviceFromCtx returns the lifecycle service injected by the server
// middleware.
func serviceFromCtx(c *fiber.Ctx) *lifecycle.Service {
	return c.Locals("service").(*lifecycle.Service)
}

// serviceError translates a service error into the right status code
// with the wire error shape. Unclassified errors become opaque 500s.
func serviceError(c *fiber.Ctx, err error) error {
	var status int
	switch lifecycle.Kind(err) {
	case lifecycle.KindNotFound:
		status = fiber.StatusNotFound
	case lifecycle.KindAlreadyExists, lifecycle.KindConflict:
		status = fiber.StatusConflict
	case lifecycle.KindInvalid:
		status = fiber.StatusBadRequest
	case lifecycle.KindUnauthorized:
		status = fiber.StatusUnauthorized
	case lifecycle.KindUpstream:
		status = fiber.StatusBadGateway
	default:
		log.Error().Err(err).Str("path", c.Path()).Msg("Unhandled service error")
		return c.Status(fiber.StatusInternalServerError).JSON(Error{
			Detail: "An unexpected error occurred. Please try again later.",
		})
	}
	return c.Status(status).JSON(Error{Detail: err.Error()})
}

// queryString returns the query parameter and whether it was present in
// the request at all. An empty value still counts as present.
func queryString(c *fiber.Ctx, key string) (string, bool) {
	if !c.Request().URI().QueryArgs().Has(key) {
		return "", false
	}
	return c.Query(key), true
}

// queryUnixTime parses a query parameter holding a unix timestamp.
func queryUnixTime(c *fiber.Ctx, key string) (time.Time, bool, error) {
	raw, ok := queryString(c, key)
	if !ok {
		return time.Time{}, false, nil
	}
	seconds, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		log.Error().Err(err).Str("parameter", key).Msg("Error parsing timestamp query parameter")
		return time.Time{}, true, err
	}
	return time.Unix(seconds, 0).UTC(), true, nil
}
