package http_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/atinyakov/StudyDesk/internal/models"
	handler "github.com/atinyakov/StudyDesk/internal/server/handler/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTodoService struct {
	receivedFilter models.TodoFilter
	receivedInput  models.TodoInput
	receivedPatch  models.TodoPatch
	todo           *models.Todo
	todos          []models.Todo
	err            error
}

func (f *fakeTodoService) List(_ context.Context, _ string, filter models.TodoFilter) ([]models.Todo, error) {
	f.receivedFilter = filter
	return f.todos, f.err
}

func (f *fakeTodoService) Get(context.Context, string, string) (*models.Todo, error) {
	return f.todo, f.err
}

func (f *fakeTodoService) Create(_ context.Context, _ string, in models.TodoInput) (*models.Todo, error) {
	f.receivedInput = in
	return f.todo, f.err
}

func (f *fakeTodoService) Update(_ context.Context, _, _ string, patch models.TodoPatch) (*models.Todo, error) {
	f.receivedPatch = patch
	return f.todo, f.err
}

func (f *fakeTodoService) Delete(context.Context, string, string) error {
	return f.err
}

func TestTodoHandler_ListFilters(t *testing.T) {
	fake := &fakeTodoService{todos: []models.Todo{}}
	h := &handler.TodoHandler{TodoService: fake}

	req := httptest.NewRequest(http.MethodGet, "/api/todos?planId=p-1", nil)
	rec := serve("/api/todos", http.MethodGet, h.List, req, "alice")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, fake.receivedFilter.PlanID)
	assert.Equal(t, "p-1", *fake.receivedFilter.PlanID)

	req = httptest.NewRequest(http.MethodGet, "/api/todos?standalone=true", nil)
	rec = serve("/api/todos", http.MethodGet, h.List, req, "alice")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, fake.receivedFilter.PlanID)
	assert.True(t, fake.receivedFilter.Standalone)

	req = httptest.NewRequest(http.MethodGet, "/api/todos?standalone=maybe", nil)
	rec = serve("/api/todos", http.MethodGet, h.List, req, "alice")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTodoHandler_CreateDecodesDueDate(t *testing.T) {
	fake := &fakeTodoService{todo: &models.Todo{ID: "t-1", Title: "Essay"}}
	h := &handler.TodoHandler{TodoService: fake}

	body := `{"planId":"p-1","title":"Essay","dueDate":"2024-09-10T00:00:00Z","ownerId":"mallory"}`
	req := httptest.NewRequest(http.MethodPost, "/api/todos", bytes.NewBufferString(body))
	rec := serve("/api/todos", http.MethodPost, h.Create, req, "alice")

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, fake.receivedInput.DueDate)
	assert.True(t, time.Date(2024, 9, 10, 0, 0, 0, 0, time.UTC).Equal(*fake.receivedInput.DueDate))
	assert.Equal(t, "p-1", *fake.receivedInput.PlanID)
}

func TestTodoHandler_ToggleOnly(t *testing.T) {
	fake := &fakeTodoService{todo: &models.Todo{ID: "t-1", Title: "Essay", IsCompleted: true}}
	h := &handler.TodoHandler{TodoService: fake}

	req := httptest.NewRequest(http.MethodPut, "/api/todos/t-1", bytes.NewBufferString(`{"isCompleted":true,"planId":"other"}`))
	rec := serve("/api/todos/{id}", http.MethodPut, h.Update, req, "alice")

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, fake.receivedPatch.IsCompleted)
	assert.True(t, *fake.receivedPatch.IsCompleted)
	assert.Nil(t, fake.receivedPatch.Title)
	assert.Equal(t, true, decodeError(t, rec)["isCompleted"])
}
