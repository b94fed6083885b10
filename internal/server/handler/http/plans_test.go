package http_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/atinyakov/StudyDesk/internal/apperr"
	"github.com/atinyakov/StudyDesk/internal/models"
	handler "github.com/atinyakov/StudyDesk/internal/server/handler/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlanService struct {
	receivedInput models.PlanInput
	plan          *models.Plan
	plans         []models.Plan
	removed       int64
	err           error
}

func (f *fakePlanService) List(context.Context, string) ([]models.Plan, error) {
	return f.plans, f.err
}

func (f *fakePlanService) Get(context.Context, string, string) (*models.Plan, error) {
	return f.plan, f.err
}

func (f *fakePlanService) Create(_ context.Context, _ string, in models.PlanInput) (*models.Plan, error) {
	f.receivedInput = in
	return f.plan, f.err
}

func (f *fakePlanService) Update(context.Context, string, string, models.PlanPatch) (*models.Plan, error) {
	return f.plan, f.err
}

func (f *fakePlanService) Delete(context.Context, string, string) (int64, error) {
	return f.removed, f.err
}

func TestPlanHandler_CreateEmptyTitle(t *testing.T) {
	v := apperr.NewValidationError()
	v.Add("title", "Title is required")
	h := &handler.PlanHandler{PlanService: &fakePlanService{err: v}}

	req := httptest.NewRequest(http.MethodPost, "/api/plans", bytes.NewBufferString(`{"title":""}`))
	rec := serve("/api/plans", http.MethodPost, h.Create, req, "alice")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Title is required","fields":{"title":"Title is required"}}`, rec.Body.String())
}

func TestPlanHandler_GetWithTasks(t *testing.T) {
	plan := &models.Plan{ID: "p-1", Title: "Homework", Tasks: []models.Todo{
		{ID: "t-1", PlanID: ptr("p-1"), Title: "Read ch.3"},
		{ID: "t-2", PlanID: ptr("p-1"), Title: "Problems 1-10", IsCompleted: true},
	}}
	h := &handler.PlanHandler{PlanService: &fakePlanService{plan: plan}}

	req := httptest.NewRequest(http.MethodGet, "/api/plans/p-1", nil)
	rec := serve("/api/plans/{id}", http.MethodGet, h.Get, req, "alice")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeError(t, rec)
	tasks := body["tasks"].([]any)
	require.Len(t, tasks, 2)
	assert.Equal(t, "Read ch.3", tasks[0].(map[string]any)["title"])
	assert.Equal(t, true, tasks[1].(map[string]any)["isCompleted"])
}

func TestPlanHandler_EmptyPlanHasEmptyTasks(t *testing.T) {
	h := &handler.PlanHandler{PlanService: &fakePlanService{plan: &models.Plan{ID: "p-1", Title: "x", Tasks: []models.Todo{}}}}

	req := httptest.NewRequest(http.MethodPost, "/api/plans", bytes.NewBufferString(`{"title":"x"}`))
	rec := serve("/api/plans", http.MethodPost, h.Create, req, "alice")

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, []any{}, decodeError(t, rec)["tasks"])
}

func TestPlanHandler_DeleteReportsRemovedTasks(t *testing.T) {
	h := &handler.PlanHandler{PlanService: &fakePlanService{removed: 2}}

	req := httptest.NewRequest(http.MethodDelete, "/api/plans/p-1", nil)
	rec := serve("/api/plans/{id}", http.MethodDelete, h.Delete, req, "alice")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"deletedTasks":2}`, rec.Body.String())
}

func ptr[T any](v T) *T { return &v }
