package http

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/calibre-bridge/internal/calibre"
)

// --- Response Types ---

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`    // machine-readable error code
	Details any    `json:"details,omitempty"` // additional context (book id, library path, etc.)
}

// SuccessResponse is a standard success response with optional data.
type SuccessResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// PaginatedResponse wraps paginated data with metadata.
type PaginatedResponse struct {
	Data       any   `json:"data"`
	Total      int64 `json:"total"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
	HasMore    bool  `json:"has_more"`
	TotalPages int   `json:"total_pages,omitempty"`
}

func newPaginatedResponse(data any, total int64, limit, offset int) PaginatedResponse {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return PaginatedResponse{
		Data:       data,
		Total:      total,
		Limit:      limit,
		Offset:     offset,
		HasMore:    int64(offset+limit) < total,
		TotalPages: totalPages,
	}
}

// Error codes returned in ErrorResponse.Code
const (
	CodeInvalidRequest  = "invalid_request"
	CodeInvalidOptions  = "invalid_options"
	CodeBookNotFound    = "book_not_found"
	CodeLibraryNotFound = "library_not_found"
	CodeToolMissing     = "tool_missing"
	CodeDecodeFailed    = "decode_failed"
	CodeCommandFailed   = "command_failed"
	CodeInternal        = "internal_error"
)

// --- Error Response Helpers ---

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message, Code: CodeInvalidRequest})
}

// respondError sends an error response with the given status code.
func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Error: message})
}

// respondInternalError logs the error and sends a 500 Internal Server Error response.
// The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, err error, context string) {
	log.Printf("Internal error (%s): %v", context, err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Code: CodeInternal})
}

// respondCalibreError maps a calibredb failure to an HTTP status.
func respondCalibreError(c *gin.Context, err error, context string) {
	status, response := calibreErrorResponse(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[CALIBRE] %s failed: %v", context, err)
	}
	c.JSON(status, response)
}

func calibreErrorResponse(err error) (int, ErrorResponse) {
	if errors.Is(err, calibre.ErrInvalidOptions) {
		return http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: CodeInvalidOptions}
	}

	var cerr *calibre.Error
	if !errors.As(err, &cerr) {
		return http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Code: CodeInternal}
	}

	switch cerr.Kind {
	case calibre.KindNotFound:
		return http.StatusNotFound, ErrorResponse{
			Error:   cerr.Error(),
			Code:    CodeBookNotFound,
			Details: gin.H{"book_id": cerr.BookID},
		}
	case calibre.KindLibraryNotFound:
		return http.StatusNotFound, ErrorResponse{
			Error:   cerr.Error(),
			Code:    CodeLibraryNotFound,
			Details: gin.H{"library_path": cerr.LibraryPath},
		}
	case calibre.KindToolMissing:
		return http.StatusServiceUnavailable, ErrorResponse{Error: cerr.Error(), Code: CodeToolMissing}
	case calibre.KindDecode:
		return http.StatusBadGateway, ErrorResponse{Error: cerr.Error(), Code: CodeDecodeFailed}
	default:
		return http.StatusBadGateway, ErrorResponse{Error: cerr.Error(), Code: CodeCommandFailed}
	}
}

// --- Success Response Helpers ---

// respondAccepted sends a 202 Accepted response (for async operations).
func respondAccepted(c *gin.Context, message string, data any) {
	c.JSON(http.StatusAccepted, SuccessResponse{Message: message, Data: data})
}

// --- Parameter Parsing ---

// parseIntQuery reads a non-negative integer query parameter, falling back to
// def when absent. Responds with 400 and returns false on malformed input.
func parseIntQuery(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		respondBadRequest(c, "invalid "+name)
		return 0, false
	}
	return n, true
}

// parsePagination reads limit and offset, clamping limit to [1, maxLimit].
func parsePagination(c *gin.Context, defLimit, maxLimit int) (limit, offset int, ok bool) {
	if limit, ok = parseIntQuery(c, "limit", defLimit); !ok {
		return 0, 0, false
	}
	if offset, ok = parseIntQuery(c, "offset", 0); !ok {
		return 0, 0, false
	}
	if limit < 1 || limit > maxLimit {
		limit = defLimit
	}
	return limit, offset, true
}
