package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/dkrasner/taskmind/internal/database"
	"github.com/dkrasner/taskmind/internal/models"
	"github.com/dkrasner/taskmind/internal/request"
	"github.com/dkrasner/taskmind/internal/services/ai"
)

type mockTaskRepo struct {
	tasks        map[uuid.UUID]*models.Task
	pendingCount int
	stats        *models.TaskStats
	created      []*models.Task
	links        [][2]uuid.UUID
}

func newMockTaskRepo() *mockTaskRepo {
	return &mockTaskRepo{tasks: make(map[uuid.UUID]*models.Task)}
}

func (m *mockTaskRepo) Create(_ context.Context, task *models.Task) error {
	task.CreatedAt = time.Now()
	task.UpdatedAt = task.CreatedAt
	m.tasks[task.ID] = task
	m.created = append(m.created, task)
	return nil
}

func (m *mockTaskRepo) GetByID(_ context.Context, userID, id uuid.UUID) (*models.Task, error) {
	task, ok := m.tasks[id]
	if !ok || task.UserID != userID {
		return nil, fmt.Errorf("task not found")
	}
	copied := *task
	return &copied, nil
}

func (m *mockTaskRepo) GetByUserID(_ context.Context, userID uuid.UUID, filter database.TaskFilter) ([]*models.Task, error) {
	var result []*models.Task
	for _, task := range m.tasks {
		if task.UserID != userID {
			continue
		}
		if filter.Status != nil && task.Status != *filter.Status {
			continue
		}
		result = append(result, task)
	}
	return result, nil
}

func (m *mockTaskRepo) Update(_ context.Context, task *models.Task) error {
	if _, ok := m.tasks[task.ID]; !ok {
		return fmt.Errorf("task not found")
	}
	task.UpdatedAt = time.Now()
	m.tasks[task.ID] = task
	return nil
}

func (m *mockTaskRepo) Delete(_ context.Context, userID, id uuid.UUID) error {
	task, ok := m.tasks[id]
	if !ok || task.UserID != userID {
		return fmt.Errorf("task not found")
	}
	delete(m.tasks, id)
	return nil
}

func (m *mockTaskRepo) CountPending(_ context.Context, _ uuid.UUID) (int, error) {
	return m.pendingCount, nil
}

func (m *mockTaskRepo) Stats(_ context.Context, _ uuid.UUID) (*models.TaskStats, error) {
	if m.stats == nil {
		return &models.TaskStats{}, nil
	}
	return m.stats, nil
}

func (m *mockTaskRepo) LinkContextEntry(_ context.Context, taskID, entryID uuid.UUID) error {
	m.links = append(m.links, [2]uuid.UUID{taskID, entryID})
	return nil
}

type mockCategoryRepo struct {
	categories map[string]*models.Category
	byID       map[uuid.UUID]*models.Category
	usageBumps int
}

func newMockCategoryRepo() *mockCategoryRepo {
	return &mockCategoryRepo{
		categories: make(map[string]*models.Category),
		byID:       make(map[uuid.UUID]*models.Category),
	}
}

func (m *mockCategoryRepo) Create(_ context.Context, category *models.Category) error {
	m.categories[category.Name] = category
	m.byID[category.ID] = category
	return nil
}

func (m *mockCategoryRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Category, error) {
	category, ok := m.byID[id]
	if !ok {
		return nil, fmt.Errorf("category not found")
	}
	return category, nil
}

func (m *mockCategoryRepo) GetOrCreate(_ context.Context, name string) (*models.Category, error) {
	if category, ok := m.categories[name]; ok {
		return category, nil
	}
	category := &models.Category{ID: uuid.New(), Name: name, Color: models.DefaultCategoryColor}
	m.categories[name] = category
	m.byID[category.ID] = category
	return category, nil
}

func (m *mockCategoryRepo) List(_ context.Context) ([]*models.Category, error) {
	var result []*models.Category
	for _, category := range m.categories {
		result = append(result, category)
	}
	return result, nil
}

func (m *mockCategoryRepo) Update(_ context.Context, _ *models.Category) error {
	return nil
}

func (m *mockCategoryRepo) IncrementUsage(_ context.Context, _ uuid.UUID) error {
	m.usageBumps++
	return nil
}

func (m *mockCategoryRepo) Delete(_ context.Context, _ uuid.UUID) error {
	return nil
}

type mockEntryRepo struct {
	recent []models.ContextEntry
}

func (m *mockEntryRepo) Create(_ context.Context, _ *models.ContextEntry) error { return nil }

func (m *mockEntryRepo) GetByID(_ context.Context, _, _ uuid.UUID) (*models.ContextEntry, error) {
	return nil, fmt.Errorf("context entry not found")
}

func (m *mockEntryRepo) GetByUserID(_ context.Context, _ uuid.UUID, _ *models.SourceType) ([]*models.ContextEntry, error) {
	return nil, nil
}

func (m *mockEntryRepo) GetRecent(_ context.Context, _ uuid.UUID) ([]models.ContextEntry, error) {
	return m.recent, nil
}

func (m *mockEntryRepo) Update(_ context.Context, _ *models.ContextEntry) error { return nil }
func (m *mockEntryRepo) Delete(_ context.Context, _, _ uuid.UUID) error         { return nil }

type taskTestEnv struct {
	handler      *TaskHandler
	taskRepo     *mockTaskRepo
	categoryRepo *mockCategoryRepo
	entryRepo    *mockEntryRepo
	router       *mux.Router
	user         *models.User
}

// newTaskTestEnv wires a handler against mocks and a nil completion provider,
// so every enrichment takes the deterministic heuristic path
func newTaskTestEnv() *taskTestEnv {
	return newTaskTestEnvWithProvider(nil)
}

func newTaskTestEnvWithProvider(provider ai.CompletionProvider) *taskTestEnv {
	taskRepo := newMockTaskRepo()
	categoryRepo := newMockCategoryRepo()
	entryRepo := &mockEntryRepo{}
	engine := ai.NewSuggestionEngine(provider, zap.NewNop())
	handler := NewTaskHandler(taskRepo, categoryRepo, entryRepo, engine, zap.NewNop())

	router := mux.NewRouter()
	handler.RegisterRoutes(router.PathPrefix("/tasks").Subrouter())

	return &taskTestEnv{
		handler:      handler,
		taskRepo:     taskRepo,
		categoryRepo: categoryRepo,
		entryRepo:    entryRepo,
		router:       router,
		user:         &models.User{ID: uuid.New(), Email: "test@example.com"},
	}
}

func (e *taskTestEnv) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}

	req := httptest.NewRequest(method, path, &buf)
	req = req.WithContext(request.WithUser(req.Context(), e.user))
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeData[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&envelope); err != nil {
		t.Fatalf("Failed to decode envelope: %v", err)
	}
	if !envelope.Success {
		t.Fatalf("Expected success envelope, body: %s", w.Body.String())
	}

	var data T
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		t.Fatalf("Failed to decode data: %v", err)
	}
	return data
}

func TestCreateTaskEnrichesWithHeuristics(t *testing.T) {
	t.Parallel()

	env := newTaskTestEnv()
	env.taskRepo.pendingCount = 2

	w := env.do("POST", "/tasks", CreateTaskRequest{
		Title: "Submit the urgent report asap",
	})

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	task := decodeData[models.Task](t, w)

	if task.PriorityScore != 0.9 {
		t.Errorf("Expected priority score 0.9 for two urgency words, got %v", task.PriorityScore)
	}
	if task.SuggestedDeadline == nil {
		t.Error("Expected a suggested deadline")
	}
	if task.Priority != models.TaskPriorityMedium {
		t.Errorf("Expected default priority medium, got %s", task.Priority)
	}
	if task.Status != models.TaskStatusPending {
		t.Errorf("Expected status pending, got %s", task.Status)
	}
	if task.CategoryID == nil {
		t.Fatal("Expected a category to be assigned")
	}
	category, ok := env.categoryRepo.byID[*task.CategoryID]
	if !ok {
		t.Fatal("Assigned category does not exist")
	}
	if category.Name != "Personal" {
		t.Errorf("Expected category 'Personal', got %q", category.Name)
	}
	if env.categoryRepo.usageBumps != 1 {
		t.Errorf("Expected category usage to be bumped once, got %d", env.categoryRepo.usageBumps)
	}
	if task.AIEnhancedDescription == "" {
		t.Error("Expected an enhanced description")
	}
}

func TestCreateTaskLinksRecentContextEntries(t *testing.T) {
	t.Parallel()

	env := newTaskTestEnv()
	first := models.ContextEntry{ID: uuid.New(), UserID: env.user.ID, Content: "boss wants the report by friday"}
	second := models.ContextEntry{ID: uuid.New(), UserID: env.user.ID, Content: "quarterly numbers are in"}
	env.entryRepo.recent = []models.ContextEntry{first, second}

	w := env.do("POST", "/tasks", CreateTaskRequest{Title: "Write the quarterly report"})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	task := decodeData[models.Task](t, w)

	if len(env.taskRepo.links) != 2 {
		t.Fatalf("Expected 2 context links, got %d", len(env.taskRepo.links))
	}
	for i, entryID := range []uuid.UUID{first.ID, second.ID} {
		if env.taskRepo.links[i][0] != task.ID {
			t.Errorf("Link %d: expected task %s, got %s", i, task.ID, env.taskRepo.links[i][0])
		}
		if env.taskRepo.links[i][1] != entryID {
			t.Errorf("Link %d: expected entry %s, got %s", i, entryID, env.taskRepo.links[i][1])
		}
	}
}

func TestCreateTaskWithoutRecentContextLinksNothing(t *testing.T) {
	t.Parallel()

	env := newTaskTestEnv()

	w := env.do("POST", "/tasks", CreateTaskRequest{Title: "Water the garden"})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", w.Code)
	}

	if len(env.taskRepo.links) != 0 {
		t.Errorf("Expected no context links, got %d", len(env.taskRepo.links))
	}
}

func TestCreateTaskCategoryBuckets(t *testing.T) {
	t.Parallel()

	env := newTaskTestEnv()

	w := env.do("POST", "/tasks", CreateTaskRequest{Title: "Prepare meeting agenda"})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", w.Code)
	}

	task := decodeData[models.Task](t, w)
	if task.CategoryID == nil {
		t.Fatal("Expected a category to be assigned")
	}
	if env.categoryRepo.byID[*task.CategoryID].Name != "Work" {
		t.Errorf("Expected category 'Work', got %q", env.categoryRepo.byID[*task.CategoryID].Name)
	}
	if len(task.Tags) != 2 || task.Tags[0] != "work" || task.Tags[1] != "professional" {
		t.Errorf("Expected tags [work professional], got %v", task.Tags)
	}
}

func TestCreateTaskValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       CreateTaskRequest
		wantStatus int
	}{
		{
			name:       "missing title",
			body:       CreateTaskRequest{Description: "no title"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid priority",
			body:       CreateTaskRequest{Title: "ok", Priority: "extreme"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "past due date",
			body: CreateTaskRequest{
				Title:   "ok",
				DueDate: timePtr(time.Now().Add(-24 * time.Hour)),
			},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := newTaskTestEnv()
			w := env.do("POST", "/tasks", tt.body)
			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestCreateTaskRequiresUser(t *testing.T) {
	t.Parallel()

	env := newTaskTestEnv()

	body, _ := json.Marshal(CreateTaskRequest{Title: "ok"})
	req := httptest.NewRequest("POST", "/tasks", bytes.NewReader(body))
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

func TestGetTask(t *testing.T) {
	t.Parallel()

	env := newTaskTestEnv()
	task := &models.Task{ID: uuid.New(), UserID: env.user.ID, Title: "existing", Status: models.TaskStatusPending}
	env.taskRepo.tasks[task.ID] = task

	w := env.do("GET", "/tasks/"+task.ID.String(), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	got := decodeData[models.Task](t, w)
	if got.ID != task.ID {
		t.Errorf("Expected task %s, got %s", task.ID, got.ID)
	}
}

func TestGetTaskNotFound(t *testing.T) {
	t.Parallel()

	env := newTaskTestEnv()

	w := env.do("GET", "/tasks/"+uuid.NewString(), nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}

	w = env.do("GET", "/tasks/not-a-uuid", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for invalid ID, got %d", w.Code)
	}
}

func TestUpdateTaskStatusKeepsCompletedAtConsistent(t *testing.T) {
	t.Parallel()

	env := newTaskTestEnv()
	task := &models.Task{ID: uuid.New(), UserID: env.user.ID, Title: "existing", Status: models.TaskStatusPending}
	env.taskRepo.tasks[task.ID] = task

	completed := models.TaskStatusCompleted
	w := env.do("PATCH", "/tasks/"+task.ID.String(), UpdateTaskRequest{Status: &completed})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	got := decodeData[models.Task](t, w)
	if got.Status != models.TaskStatusCompleted {
		t.Errorf("Expected status completed, got %s", got.Status)
	}
	if got.CompletedAt == nil {
		t.Error("Expected completed_at to be set")
	}

	pending := models.TaskStatusPending
	w = env.do("PATCH", "/tasks/"+task.ID.String(), UpdateTaskRequest{Status: &pending})
	got = decodeData[models.Task](t, w)
	if got.CompletedAt != nil {
		t.Error("Expected completed_at to be cleared on leaving completed")
	}
}

func TestUpdateTaskRejectsUnknownCategory(t *testing.T) {
	t.Parallel()

	env := newTaskTestEnv()
	task := &models.Task{ID: uuid.New(), UserID: env.user.ID, Title: "existing", Status: models.TaskStatusPending}
	env.taskRepo.tasks[task.ID] = task

	missing := uuid.New()
	w := env.do("PATCH", "/tasks/"+task.ID.String(), UpdateTaskRequest{CategoryID: &missing})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestToggleTaskStatus(t *testing.T) {
	t.Parallel()

	env := newTaskTestEnv()
	task := &models.Task{ID: uuid.New(), UserID: env.user.ID, Title: "existing", Status: models.TaskStatusPending}
	env.taskRepo.tasks[task.ID] = task

	w := env.do("PATCH", "/tasks/"+task.ID.String()+"/toggle", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	got := decodeData[models.Task](t, w)
	if got.Status != models.TaskStatusCompleted {
		t.Errorf("Expected status completed after toggle, got %s", got.Status)
	}
	if got.CompletedAt == nil {
		t.Error("Expected completed_at to be set after toggle")
	}

	w = env.do("PATCH", "/tasks/"+task.ID.String()+"/toggle", nil)
	got = decodeData[models.Task](t, w)
	if got.Status != models.TaskStatusPending {
		t.Errorf("Expected status pending after second toggle, got %s", got.Status)
	}
}

func TestDeleteTask(t *testing.T) {
	t.Parallel()

	env := newTaskTestEnv()
	task := &models.Task{ID: uuid.New(), UserID: env.user.ID, Title: "existing", Status: models.TaskStatusPending}
	env.taskRepo.tasks[task.ID] = task

	w := env.do("DELETE", "/tasks/"+task.ID.String(), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	if _, ok := env.taskRepo.tasks[task.ID]; ok {
		t.Error("Expected task to be deleted")
	}

	w = env.do("DELETE", "/tasks/"+task.ID.String(), nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for repeated delete, got %d", w.Code)
	}
}

func TestListTasksRejectsInvalidFilter(t *testing.T) {
	t.Parallel()

	env := newTaskTestEnv()

	w := env.do("GET", "/tasks?status=bogus", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestGetStats(t *testing.T) {
	t.Parallel()

	env := newTaskTestEnv()
	env.taskRepo.stats = &models.TaskStats{
		Total:          3,
		Completed:      1,
		Pending:        2,
		CompletionRate: 33.3,
	}

	w := env.do("GET", "/tasks/stats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	got := decodeData[models.TaskStats](t, w)
	if got.Total != 3 || got.CompletionRate != 33.3 {
		t.Errorf("Unexpected stats: %+v", got)
	}
}

func TestGetSuggestionsDoesNotPersist(t *testing.T) {
	t.Parallel()

	env := newTaskTestEnv()
	env.taskRepo.pendingCount = 1

	w := env.do("POST", "/tasks/suggestions", SuggestionsRequest{Title: "Read a chapter of the book"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	got := decodeData[SuggestionsResponse](t, w)
	if got.Category != "Learning" {
		t.Errorf("Expected category 'Learning', got %q", got.Category)
	}
	if got.PriorityScore != 0.5 {
		t.Errorf("Expected priority score 0.5, got %v", got.PriorityScore)
	}
	if got.SuggestedDeadline == nil {
		t.Error("Expected a suggested deadline")
	}
	if got.EnhancedDescription == "" {
		t.Error("Expected an enhanced description")
	}

	if len(env.taskRepo.created) != 0 {
		t.Errorf("Expected no tasks to be created, got %d", len(env.taskRepo.created))
	}
}

// promptRecordingProvider captures every prompt it receives and always
// reports the completion service as unavailable
type promptRecordingProvider struct {
	prompts []string
}

func (p *promptRecordingProvider) Complete(_ context.Context, prompt string) (string, error) {
	p.prompts = append(p.prompts, prompt)
	return "", ai.Unavailable(fmt.Errorf("connection refused"))
}

func TestGetSuggestionsConsultsEngineInCreationOrder(t *testing.T) {
	t.Parallel()

	provider := &promptRecordingProvider{}
	env := newTaskTestEnvWithProvider(provider)

	w := env.do("POST", "/tasks/suggestions", SuggestionsRequest{Title: "Plan the week"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	wantPrefixes := []string{
		"Calculate a priority score",
		"Suggest a realistic deadline",
		"Suggest a category and tags",
		"Enhance this task description",
	}
	if len(provider.prompts) != len(wantPrefixes) {
		t.Fatalf("Expected %d prompts, got %d", len(wantPrefixes), len(provider.prompts))
	}
	for i, prefix := range wantPrefixes {
		if !strings.HasPrefix(provider.prompts[i], prefix) {
			t.Errorf("Prompt %d: expected prefix %q, got %q", i, prefix, provider.prompts[i])
		}
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}
