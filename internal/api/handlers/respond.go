package handlers

import (
	"errors"

	"github.com/go-logr/logr"
	"github.com/gofiber/fiber/v2"

	"github.com/dns-automate/zone-manager/internal/service"
)

// Response bodies are {"message", "data"} on success and
// {"message", "error"} on failure.

func success(c *fiber.Ctx, status int, message string, data any) error {
	body := fiber.Map{"message": message}
	if data != nil {
		body["data"] = data
	}
	return c.Status(status).JSON(body)
}

func fail(c *fiber.Ctx, status int, message, detail string) error {
	body := fiber.Map{"message": message}
	if detail != "" {
		body["error"] = detail
	}
	return c.Status(status).JSON(body)
}

// StatusFor maps a service error to an HTTP status.
func StatusFor(err error) int {
	switch service.Kind(err) {
	case service.KindValidation, service.KindConflict:
		return fiber.StatusBadRequest
	case service.KindNotFound:
		return fiber.StatusNotFound
	case service.KindUnauthorized:
		return fiber.StatusUnauthorized
	default:
		return fiber.StatusInternalServerError
	}
}

// serviceError writes err with the status its kind maps to. message names
// the failed operation, e.g. "Error adding DNS record".
func serviceError(c *fiber.Ctx, log logr.Logger, message string, err error) error {
	status := StatusFor(err)
	body := fiber.Map{"message": message, "error": err.Error()}

	switch service.Kind(err) {
	case service.KindNotFound:
		body["message"] = "Hosted zone not found"
	case service.KindConflict:
		var nee *service.ZoneNotEmptyError
		if errors.As(err, &nee) {
			body["records"] = nee.Records
		}
	case service.KindProvider:
		log.Error(err, message, "path", c.Path())
	case service.KindInternal:
		log.Error(err, message, "path", c.Path())
		body["error"] = "internal server error"
	}

	return c.Status(status).JSON(body)
}
