package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arklim/admin-panel-api/internal/usecase"
)

// AuditHandler exposes read access over the audit trail.
type AuditHandler struct {
	audit *usecase.AuditService
}

// NewAuditHandler constructs AuditHandler.
func NewAuditHandler(audit *usecase.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// RegisterRoutes binds the audit listing route under the provided group.
func (h *AuditHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("", h.list)
}

func (h *AuditHandler) list(c *gin.Context) {
	page := parseIntQuery(c, "page", 1)
	limit := parseIntQuery(c, "limit", 10)
	action := c.Query("action")

	result, err := h.audit.List(c.Request.Context(), page, limit, action)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list audit logs"))
		return
	}

	views := make([]AuditEntryView, 0, len(result.Logs))
	for _, log := range result.Logs {
		view := AuditEntryView{
			ID:        log.Entry.ID,
			Action:    log.Entry.Action,
			UserID:    log.Entry.UserID,
			Details:   log.Entry.Details,
			IPAddress: log.Entry.IPAddress,
			UserAgent: log.Entry.UserAgent,
			CreatedAt: log.Entry.CreatedAt,
		}
		if log.Actor != nil {
			actor := newUserView(*log.Actor)
			view.Actor = &actor
		}
		views = append(views, view)
	}

	c.JSON(http.StatusOK, AuditListResponse{
		Logs:       views,
		Total:      result.Total,
		Page:       result.Page,
		Limit:      result.Limit,
		TotalPages: result.TotalPages,
	})
}
