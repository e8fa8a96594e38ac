package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/calibre-bridge/internal/calibre"
	"github.com/mrlokans/calibre-bridge/internal/scheduler"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeLibrary struct {
	mu sync.Mutex

	books     []calibre.Book
	listOpts  []calibre.ListOptions
	listErr   error
	searchIDs []int
	searchErr error
	addIDs    []int
	addPaths  [][]string
	addOpts   []calibre.AddOptions
	addErr    error
	removed   [][]int
	permanent []bool
	removeErr error
}

func (f *fakeLibrary) List(_ context.Context, opts calibre.ListOptions) ([]calibre.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listOpts = append(f.listOpts, opts)
	if f.listErr != nil {
		return nil, f.listErr
	}
	if f.books == nil {
		return []calibre.Book{}, nil
	}
	return f.books, nil
}

func (f *fakeLibrary) Search(_ context.Context, _ string, _ int) ([]int, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if f.searchIDs == nil {
		return []int{}, nil
	}
	return f.searchIDs, nil
}

func (f *fakeLibrary) Add(_ context.Context, paths []string, opts calibre.AddOptions) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addPaths = append(f.addPaths, paths)
	f.addOpts = append(f.addOpts, opts)
	if f.addErr != nil {
		return nil, f.addErr
	}
	if f.addIDs == nil {
		return []int{}, nil
	}
	return f.addIDs, nil
}

func (f *fakeLibrary) Remove(_ context.Context, ids []int, permanent bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, ids)
	f.permanent = append(f.permanent, permanent)
	return f.removeErr
}

type fakeQueue struct {
	tasks    []backlite.Task
	statuses map[string]backlite.TaskStatus
	err      error
}

func (q *fakeQueue) Enqueue(task backlite.Task) (string, error) {
	if q.err != nil {
		return "", q.err
	}
	q.tasks = append(q.tasks, task)
	return "task-1", nil
}

func (q *fakeQueue) Status(_ context.Context, taskID string) (backlite.TaskStatus, error) {
	if q.err != nil {
		return 0, q.err
	}
	status, ok := q.statuses[taskID]
	if !ok {
		return backlite.TaskStatusNotFound, nil
	}
	return status, nil
}

type fakeTool struct {
	path string
	err  error
}

func (f fakeTool) CheckTool() (string, error) { return f.path, f.err }

type fakePinger struct{ err error }

func (f fakePinger) Ping() error { return f.err }

type fakeIngest struct {
	running   bool
	ingesting bool
	runErr    error
	runs      int
	summary   *scheduler.IngestSummary
}

func (f *fakeIngest) RunNow() error {
	if f.runErr != nil {
		return f.runErr
	}
	f.runs++
	return nil
}
func (f *fakeIngest) IsRunning() bool                       { return f.running }
func (f *fakeIngest) IsIngesting() bool                     { return f.ingesting }
func (f *fakeIngest) LastSummary() *scheduler.IngestSummary { return f.summary }
func (f *fakeIngest) GetNextRunTime() *time.Time {
	if !f.running {
		return nil
	}
	t := time.Now().Add(time.Minute)
	return &t
}

func classified(command, output string) error {
	return calibre.Classify(errors.New("exit status 1"), command, output)
}

func performRequest(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func newRequestWithAuth(method, path, authorization string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", authorization)
	return req
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}
