package httptransport

import (
	"errors"

	"github.com/gin-gonic/gin"

	"catalogdns/internal/admin"
	"catalogdns/internal/catalog"
)

// AdminHandler serves the administrative surface: health, stats, list,
// add, delete, force_verify.
type AdminHandler struct {
	svc *admin.Service
}

// NewAdminHandler returns a handler backed by svc.
func NewAdminHandler(svc *admin.Service) *AdminHandler {
	return &AdminHandler{svc: svc}
}

// Health reports the process's diagnostic checks.
func (h *AdminHandler) Health(c *gin.Context) {
	report := h.svc.Health(c.Request.Context())
	Success(c, report)
}

// Stats returns the lifecycle counts and zone cache size.
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		InternalError(c, MsgStatsFailed)
		return
	}
	Success(c, stats)
}

// List returns every catalogued domain.
func (h *AdminHandler) List(c *gin.Context) {
	domains, err := h.svc.List(c.Request.Context())
	if err != nil {
		InternalError(c, MsgDomainListFailed)
		return
	}
	Success(c, domains)
}

// Get returns a single domain by name.
func (h *AdminHandler) Get(c *gin.Context) {
	name := c.Param("name")
	d, err := h.svc.Get(c.Request.Context(), name)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			NotFound(c, GetErrorMessage(catalog.ErrNotFound))
			return
		}
		InternalError(c, MsgDomainGetFailed)
		return
	}
	Success(c, d)
}

// addDomainRequest is the JSON body accepted by Add.
type addDomainRequest struct {
	Name        string   `json:"name" binding:"required"`
	Address     string   `json:"address" binding:"required"`
	MailHost    string   `json:"mail_host"`
	MXPriority  uint16   `json:"mx_priority"`
	Nameservers []string `json:"nameservers"`
	Discord     bool     `json:"discord"`
	Description *string  `json:"description"`
	Tags        []string `json:"tags"`
}

// Add upserts a domain into the catalogue.
func (h *AdminHandler) Add(c *gin.Context) {
	var req addDomainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidJSON)
		return
	}

	d, result, err := h.svc.Add(c.Request.Context(), admin.AddRequest{
		Name:        req.Name,
		Address:     req.Address,
		MailHost:    req.MailHost,
		MXPriority:  req.MXPriority,
		Nameservers: req.Nameservers,
		Discord:     req.Discord,
		Description: req.Description,
		Tags:        req.Tags,
	})
	if err != nil {
		if catalog.IsValidationError(err) {
			BadRequest(c, err.Error())
			return
		}
		InternalError(c, MsgDomainAddFailed)
		return
	}

	if result == catalog.Created {
		Created(c, d)
		return
	}
	Success(c, d)
}

// Delete removes a domain from the catalogue.
func (h *AdminHandler) Delete(c *gin.Context) {
	name := c.Param("name")

	result, err := h.svc.Delete(c.Request.Context(), name)
	if err != nil {
		InternalError(c, MsgDomainDeleteFailed)
		return
	}

	if result == catalog.Absent {
		NotFound(c, MsgDomainNotFound)
		return
	}
	NoContent(c)
}

// ForceVerify triggers an out-of-band verification of a single domain.
func (h *AdminHandler) ForceVerify(c *gin.Context) {
	name := c.Param("name")

	d, err := h.svc.ForceVerify(c.Request.Context(), name)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			NotFound(c, MsgDomainNotFound)
			return
		}
		InternalError(c, MsgForceVerifyFailed)
		return
	}
	Success(c, d)
}
