package handlers

import (
	"github.com/go-logr/logr"
	"github.com/gofiber/fiber/v2"

	"github.com/dns-automate/zone-manager/internal/route53"
	"github.com/dns-automate/zone-manager/internal/service"
)

// DefaultTTL applies when a request omits ttl.
const DefaultTTL = 300

// RecordHandler handles record mutation routes.
type RecordHandler struct {
	zones *service.ZoneService
	log   logr.Logger
}

// NewRecordHandler creates a new record handler.
func NewRecordHandler(zones *service.ZoneService, log logr.Logger) *RecordHandler {
	return &RecordHandler{
		zones: zones,
		log:   log,
	}
}

type recordRequest struct {
	DomainName   string   `json:"domainName"`
	RecordName   string   `json:"recordName"`
	RecordType   string   `json:"recordType"`
	RecordValue  string   `json:"recordValue"`
	RecordValues []string `json:"recordValues"`
	TTL          *int64   `json:"ttl"`
}

func (r recordRequest) recordSet() route53.RecordSet {
	return buildRecord(r.RecordName, r.RecordType, r.RecordValue, r.RecordValues, r.TTL)
}

type editRecordRequest struct {
	DomainName      string   `json:"domainName"`
	OldRecordName   string   `json:"oldRecordName"`
	OldRecordType   string   `json:"oldRecordType"`
	OldRecordValue  string   `json:"oldRecordValue"`
	OldRecordValues []string `json:"oldRecordValues"`
	OldTTL          *int64   `json:"oldTtl"`
	NewRecordName   string   `json:"newRecordName"`
	NewRecordType   string   `json:"newRecordType"`
	NewRecordValue  string   `json:"newRecordValue"`
	NewRecordValues []string `json:"newRecordValues"`
	NewTTL          *int64   `json:"newTtl"`
}

// buildRecord merges the single and multi-value request forms.
func buildRecord(name, rtype, value string, values []string, ttl *int64) route53.RecordSet {
	r := route53.RecordSet{
		Name: name,
		Type: rtype,
		TTL:  DefaultTTL,
	}
	if ttl != nil {
		r.TTL = *ttl
	}
	if value != "" {
		r.Values = append(r.Values, value)
	}
	r.Values = append(r.Values, values...)
	return r
}

// AddRecord handles POST /route53/add-record.
func (h *RecordHandler) AddRecord(c *fiber.Ctx) error {
	var req recordRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body", err.Error())
	}

	info, err := h.zones.UpsertRecord(c.UserContext(), req.DomainName, req.recordSet())
	if err != nil {
		return serviceError(c, h.log, "Error adding DNS record", err)
	}
	return success(c, fiber.StatusCreated, "DNS record added successfully", info)
}

// DeleteRecord handles POST /route53/delete-record.
func (h *RecordHandler) DeleteRecord(c *fiber.Ctx) error {
	var req recordRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body", err.Error())
	}

	info, err := h.zones.DeleteRecord(c.UserContext(), req.DomainName, req.recordSet())
	if err != nil {
		return serviceError(c, h.log, "Error deleting DNS record", err)
	}
	return success(c, fiber.StatusOK, "DNS record deleted successfully", info)
}

// EditRecord handles POST /route53/edit-record.
func (h *RecordHandler) EditRecord(c *fiber.Ctx) error {
	var req editRecordRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body", err.Error())
	}

	var oldRecord route53.RecordSet
	if req.OldRecordName != "" {
		oldRecord = buildRecord(req.OldRecordName, req.OldRecordType, req.OldRecordValue, req.OldRecordValues, req.OldTTL)
	}
	newRecord := buildRecord(req.NewRecordName, req.NewRecordType, req.NewRecordValue, req.NewRecordValues, req.NewTTL)

	info, err := h.zones.EditRecord(c.UserContext(), req.DomainName, oldRecord, newRecord)
	if err != nil {
		return serviceError(c, h.log, "Error editing DNS record", err)
	}
	return success(c, fiber.StatusOK, "DNS record edited successfully", info)
}
