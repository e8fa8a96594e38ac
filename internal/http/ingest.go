package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/calibre-bridge/internal/entities"
)

// IngestController exposes the inbox ingestion ledger and a manual trigger.
type IngestController struct {
	runner IngestRunner
	store  IngestStore
}

func NewIngestController(runner IngestRunner, store IngestStore) *IngestController {
	return &IngestController{runner: runner, store: store}
}

// GetStatus handles GET /api/ingest
func (ic *IngestController) GetStatus(c *gin.Context) {
	limit, offset, ok := parsePagination(c, 25, 100)
	if !ok {
		return
	}

	response := gin.H{
		"scheduled": false,
		"ingesting": false,
	}
	if ic.runner != nil {
		response["scheduled"] = ic.runner.IsRunning()
		response["ingesting"] = ic.runner.IsIngesting()
		response["next_run"] = ic.runner.GetNextRunTime()
		response["last_run"] = ic.runner.LastSummary()
	}

	if ic.store != nil {
		records, total, err := ic.store.GetRecords(entities.IngestStatus(c.Query("status")), limit, offset)
		if err != nil {
			respondInternalError(c, err, "ingest records")
			return
		}
		counts, err := ic.store.CountByStatus()
		if err != nil {
			respondInternalError(c, err, "ingest counts")
			return
		}
		response["records"] = newPaginatedResponse(records, total, limit, offset)
		response["totals"] = counts
	}

	c.JSON(http.StatusOK, response)
}

// RunNow handles POST /api/ingest/run
func (ic *IngestController) RunNow(c *gin.Context) {
	if ic.runner == nil {
		respondError(c, http.StatusServiceUnavailable, "ingestion is not configured")
		return
	}
	if ic.runner.IsIngesting() {
		c.JSON(http.StatusConflict, ErrorResponse{Error: "ingestion already in progress"})
		return
	}
	if err := ic.runner.RunNow(); err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	respondAccepted(c, "ingestion started", nil)
}
