package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	dbaudit "github.com/mrlokans/calibre-bridge/internal/database/audit"
	"github.com/mrlokans/calibre-bridge/internal/entities"
)

type AuditController struct {
	store AuditStore
}

func NewAuditController(store AuditStore) *AuditController {
	return &AuditController{store: store}
}

// GetInvocations returns recorded calibredb invocations, most recent first.
// GET /api/audit?command=add&status=failed&limit=25&offset=0
func (ac *AuditController) GetInvocations(c *gin.Context) {
	limit, offset, ok := parsePagination(c, 25, 100)
	if !ok {
		return
	}

	filter := dbaudit.EventFilter{
		Command: c.Query("command"),
		Status:  entities.AuditStatus(c.Query("status")),
	}

	events, total, err := ac.store.GetEvents(filter, limit, offset)
	if err != nil {
		respondInternalError(c, err, "audit events")
		return
	}

	c.JSON(http.StatusOK, newPaginatedResponse(events, total, limit, offset))
}
