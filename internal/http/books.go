package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/calibre-bridge/internal/calibre"
	"github.com/mrlokans/calibre-bridge/internal/tasks"
)

// maxListLimit caps limit on list and search requests.
const maxListLimit = 1000

type BooksController struct {
	library Library
	queue   TaskQueue
}

// NewBooksController creates a BooksController. queue may be nil.
func NewBooksController(library Library, queue TaskQueue) *BooksController {
	return &BooksController{
		library: library,
		queue:   queue,
	}
}

// ListBooks handles GET /api/books
// Query: fields (comma-separated), sort, order (asc|desc), search, limit.
func (controller *BooksController) ListBooks(c *gin.Context) {
	opts, ok := listOptionsFromQuery(c)
	if !ok {
		return
	}

	books, err := controller.library.List(c.Request.Context(), opts)
	if err != nil {
		respondCalibreError(c, err, "list")
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{"books": books, "count": len(books)})
}

func listOptionsFromQuery(c *gin.Context) (calibre.ListOptions, bool) {
	var opts calibre.ListOptions

	if raw := c.Query("fields"); raw != "" {
		fields, err := calibre.ParseFields(raw)
		if err != nil {
			respondCalibreError(c, err, "list")
			return opts, false
		}
		opts.Fields = fields
	}

	opts.SortBy = calibre.Field(c.Query("sort"))

	order, err := calibre.ParseSortOrder(c.Query("order"))
	if err != nil {
		respondCalibreError(c, err, "list")
		return opts, false
	}
	opts.Order = order
	opts.Search = c.Query("search")

	limit, ok := parseIntQuery(c, "limit", 0)
	if !ok {
		return opts, false
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	opts.Limit = limit

	return opts, true
}

// SearchBooks handles GET /api/books/search?q=<expression>&limit=<n>
// Returns matching book ids; no match is an empty list.
func (controller *BooksController) SearchBooks(c *gin.Context) {
	expression := c.Query("q")
	if expression == "" {
		respondBadRequest(c, "q query parameter is required")
		return
	}
	limit, ok := parseIntQuery(c, "limit", 0)
	if !ok {
		return
	}

	ids, err := controller.library.Search(c.Request.Context(), expression, limit)
	if err != nil {
		respondCalibreError(c, err, "search")
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{"ids": ids, "count": len(ids)})
}

// AddBooksRequest is the body of POST /api/books.
// Paths are resolved on the server's filesystem.
type AddBooksRequest struct {
	Paths   []string           `json:"paths"`
	Options calibre.AddOptions `json:"options"`
	Async   bool               `json:"async"`
}

// AddBooks handles POST /api/books
// Runs calibredb add inline, or enqueues it when async is set.
func (controller *BooksController) AddBooks(c *gin.Context) {
	var req AddBooksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	mode, err := calibre.ParseDuplicateMode(string(req.Options.Duplicates))
	if err != nil {
		respondCalibreError(c, err, "add")
		return
	}
	req.Options.Duplicates = mode

	if err := req.Options.Validate(req.Paths); err != nil {
		respondCalibreError(c, err, "add")
		return
	}

	if req.Async {
		controller.enqueue(c, tasks.AddBooksTask{Paths: req.Paths, Options: req.Options})
		return
	}

	ids, err := controller.library.Add(c.Request.Context(), req.Paths, req.Options)
	if err != nil {
		respondCalibreError(c, err, "add")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ids": ids, "count": len(ids)})
}

// RemoveBooksRequest is the body of DELETE /api/books.
type RemoveBooksRequest struct {
	IDs       []int `json:"ids"`
	Permanent bool  `json:"permanent"`
	Async     bool  `json:"async"`
}

// RemoveBooks handles DELETE /api/books
// Removing ids that do not exist succeeds.
func (controller *BooksController) RemoveBooks(c *gin.Context) {
	var req RemoveBooksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if len(req.IDs) == 0 {
		respondBadRequest(c, "ids is required")
		return
	}
	for _, id := range req.IDs {
		if id <= 0 {
			respondBadRequest(c, fmt.Sprintf("invalid book id %d", id))
			return
		}
	}

	if req.Async {
		controller.enqueue(c, tasks.RemoveBooksTask{IDs: req.IDs, Permanent: req.Permanent})
		return
	}

	if err := controller.library.Remove(c.Request.Context(), req.IDs, req.Permanent); err != nil {
		respondCalibreError(c, err, "remove")
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": req.IDs, "permanent": req.Permanent})
}

func (controller *BooksController) enqueue(c *gin.Context, task backlite.Task) {
	if controller.queue == nil {
		respondError(c, http.StatusServiceUnavailable, "task queue is not enabled")
		return
	}

	taskID, err := controller.queue.Enqueue(task)
	if err != nil {
		respondInternalError(c, err, "enqueue")
		return
	}
	respondAccepted(c, "task enqueued", gin.H{"task_id": taskID, "queue": task.Config().Name})
}
