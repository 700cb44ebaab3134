package handlers

import (
	"net/url"

	"github.com/go-logr/logr"
	"github.com/gofiber/fiber/v2"

	"github.com/dns-automate/zone-manager/internal/service"
)

// ZoneHandler handles hosted zone routes.
type ZoneHandler struct {
	zones *service.ZoneService
	log   logr.Logger
}

// NewZoneHandler creates a new zone handler.
func NewZoneHandler(zones *service.ZoneService, log logr.Logger) *ZoneHandler {
	return &ZoneHandler{
		zones: zones,
		log:   log,
	}
}

type createZoneRequest struct {
	DomainName string `json:"domainName"`
	Comment    string `json:"comment"`
}

// domainParam returns the unescaped :domainName path parameter.
func domainParam(c *fiber.Ctx) string {
	raw := c.Params("domainName")
	if name, err := url.PathUnescape(raw); err == nil {
		return name
	}
	return raw
}

// CreateHostedZone handles POST /route53/create-hosted-zone.
func (h *ZoneHandler) CreateHostedZone(c *fiber.Ctx) error {
	var req createZoneRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body", err.Error())
	}

	zone, err := h.zones.CreateZone(c.UserContext(), req.DomainName, req.Comment)
	if err != nil {
		return serviceError(c, h.log, "Error creating hosted zone", err)
	}
	return success(c, fiber.StatusCreated, "Hosted zone created successfully", zone)
}

// DeleteHostedZone handles DELETE /route53/delete-hosted-zone/:domainName.
func (h *ZoneHandler) DeleteHostedZone(c *fiber.Ctx) error {
	info, err := h.zones.DeleteZone(c.UserContext(), domainParam(c))
	if err != nil {
		return serviceError(c, h.log, "Error deleting hosted zone", err)
	}
	return success(c, fiber.StatusOK, "Hosted zone deleted successfully", info)
}

// ListHostedZones handles GET /route53/hosted-zones.
func (h *ZoneHandler) ListHostedZones(c *fiber.Ctx) error {
	zones, err := h.zones.ListZones(c.UserContext())
	if err != nil {
		return serviceError(c, h.log, "Error fetching hosted zones", err)
	}
	return c.JSON(fiber.Map{"hostedZones": zones})
}

// GetHostedZone handles GET /route53/hosted-zones/:domainName.
func (h *ZoneHandler) GetHostedZone(c *fiber.Ctx) error {
	zone, err := h.zones.GetZone(c.UserContext(), domainParam(c))
	if err != nil {
		return serviceError(c, h.log, "Error fetching hosted zone", err)
	}
	return c.JSON(fiber.Map{"hostedZone": zone})
}

// ListRecords handles GET /route53/hosted-zones/:domainName/records.
func (h *ZoneHandler) ListRecords(c *fiber.Ctx) error {
	records, err := h.zones.ListRecords(c.UserContext(), domainParam(c))
	if err != nil {
		return serviceError(c, h.log, "Error fetching records", err)
	}
	return c.JSON(fiber.Map{"records": records})
}
