package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/comment-widget-api/internal/api"
	"github.com/comment-widget-api/internal/cache"
	"github.com/comment-widget-api/internal/config"
	"github.com/comment-widget-api/internal/mocks"
	"github.com/comment-widget-api/internal/models"
	"github.com/comment-widget-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type testStack struct {
	router    *gin.Engine
	services  *service.Services
	comments  *mocks.MockCommentRepository
	pages     *mocks.MockPageRepository
	projects  *mocks.MockProjectRepository
	users     *mocks.MockUserRepository
	usage     *mocks.MockUsageRepository
	mail      *mocks.MockSender
	transport *mocks.MockTransport
}

func setupTestRouter(t *testing.T) *testStack {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repos, comments, pages, projects, users, usage, _ := mocks.NewMockRepositories()
	mail := mocks.NewMockSender()
	transport := mocks.NewMockTransport()

	cfg := &config.Config{
		Server: config.ServerConfig{Port: "8080"},
		Auth: config.AuthConfig{
			JWTSecret:      "test-secret",
			SessionTimeout: time.Hour,
		},
		Site:    config.SiteConfig{URL: "https://comments.test"},
		Webhook: config.WebhookConfig{Timeout: 2 * time.Second},
	}

	log := zerolog.Nop()
	services := service.NewServices(repos, cache.Nop(), mail, transport, cfg, log)
	router := api.NewRouter(services, cfg, log)

	return &testStack{
		router:    router,
		services:  services,
		comments:  comments,
		pages:     pages,
		projects:  projects,
		users:     users,
		usage:     usage,
		mail:      mail,
		transport: transport,
	}
}

func (s *testStack) seedProject(id, ownerID string) *models.Project {
	owner := &models.User{
		ID:                           ownerID,
		Email:                        ownerID + "@example.com",
		Name:                         ownerID,
		EnableNewCommentNotification: true,
	}
	s.users.Users[ownerID] = owner

	project := &models.Project{
		ID:                 id,
		Title:              "Project " + id,
		OwnerID:            ownerID,
		Token:              "token-" + id,
		EnableNotification: true,
		CreatedAt:          time.Now(),
	}
	s.projects.Projects[id] = project
	return project
}

func doJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	stack := setupTestRouter(t)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	stack.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	if response["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got %v", response["status"])
	}
}

func TestGetCommentsUnknownProjectReturnsEmptyEnvelope(t *testing.T) {
	stack := setupTestRouter(t)

	w := doJSON(stack.router, "GET", "/api/open/comments?appId=ghost&pageId=/p", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var response struct {
		Data models.CommentWrapper `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response.Data.CommentCount != 0 {
		t.Errorf("Expected empty envelope, got count %d", response.Data.CommentCount)
	}
	if response.Data.Data == nil {
		t.Error("Expected data to be an empty array, not null")
	}
}

func TestGetCommentsDeletedProjectReturnsEmptyEnvelope(t *testing.T) {
	stack := setupTestRouter(t)
	project := stack.seedProject("proj-1", "owner-1")
	now := time.Now()
	project.DeletedAt = &now

	w := doJSON(stack.router, "GET", "/api/open/comments?appId=proj-1&pageId=/p", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var response struct {
		Data models.CommentWrapper `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &response)
	if response.Data.CommentCount != 0 || len(response.Data.Data) != 0 {
		t.Errorf("Expected empty envelope for deleted project, got %+v", response.Data)
	}
}

func TestPostCommentCreatesPending(t *testing.T) {
	stack := setupTestRouter(t)
	stack.seedProject("proj-1", "owner-1")

	w := doJSON(stack.router, "POST", "/api/open/comments", map[string]interface{}{
		"appId":    "proj-1",
		"pageId":   "/post",
		"content":  "hello there",
		"nickname": "alice",
	})
	stack.services.Hook.Wait()

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var response struct {
		Data models.Comment `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response.Data.Approved {
		t.Error("New visitor comments must start pending")
	}

	// The owner got a notification email
	if len(stack.mail.SentMails()) != 1 {
		t.Errorf("Expected 1 notification email, got %d", len(stack.mail.SentMails()))
	}
}

func TestPostCommentMissingFields(t *testing.T) {
	stack := setupTestRouter(t)

	w := doJSON(stack.router, "POST", "/api/open/comments", map[string]interface{}{
		"appId": "proj-1",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestPostCommentMissingNickname(t *testing.T) {
	stack := setupTestRouter(t)
	stack.seedProject("proj-1", "owner-1")

	w := doJSON(stack.router, "POST", "/api/open/comments", map[string]interface{}{
		"appId":   "proj-1",
		"pageId":  "/post",
		"content": "hello there",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 without a nickname, got %d", w.Code)
	}
}

func TestPostCommentUnknownParentReturnsNotFound(t *testing.T) {
	stack := setupTestRouter(t)
	stack.seedProject("proj-1", "owner-1")

	// Callers control the parentId string, so any junk value must come
	// back as a clean 404
	w := doJSON(stack.router, "POST", "/api/open/comments", map[string]interface{}{
		"appId":    "proj-1",
		"pageId":   "/post",
		"content":  "hello there",
		"nickname": "alice",
		"parentId": "definitely-not-an-id",
	})
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for an unknown parent, got %d: %s", w.Code, w.Body.String())
	}
}

func TestApproveWithInvalidToken(t *testing.T) {
	stack := setupTestRouter(t)

	req := httptest.NewRequest("GET", "/api/open/approve?token=garbage", nil)
	w := httptest.NewRecorder()
	stack.router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for a bad approval token, got %d", w.Code)
	}
}

func TestApproveByTokenFlow(t *testing.T) {
	stack := setupTestRouter(t)
	stack.seedProject("proj-1", "owner-1")
	stack.pages.Pages["page-1"] = &models.Page{ID: "page-1", ProjectID: "proj-1", Slug: "/p"}
	stack.comments.Comments["c-1"] = &models.Comment{
		ID: "c-1", PageID: "page-1", Content: "hi", ByNickname: "alice", CreatedAt: time.Now(),
	}

	signed, err := stack.services.Tokens.IssueApproveToken(context.Background(), "c-1")
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}

	req := httptest.NewRequest("GET", "/api/open/approve?token="+signed, nil)
	w := httptest.NewRecorder()
	stack.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if !stack.comments.Comments["c-1"].Approved {
		t.Error("Comment should be approved after following the link")
	}
}

func TestQuickApproveQuotaExhausted(t *testing.T) {
	stack := setupTestRouter(t)
	stack.seedProject("proj-1", "owner-1")
	stack.pages.Pages["page-1"] = &models.Page{ID: "page-1", ProjectID: "proj-1", Slug: "/p"}
	stack.comments.Comments["c-1"] = &models.Comment{
		ID: "c-1", PageID: "page-1", Content: "hi", ByNickname: "alice", CreatedAt: time.Now(),
	}
	stack.usage.Counters["owner-1:quick_approve"] = 10

	signed, err := stack.services.Tokens.IssueApproveToken(context.Background(), "c-1")
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}

	w := doJSON(stack.router, "POST", "/api/open/approve?token="+signed, nil)
	if w.Code != http.StatusPaymentRequired {
		t.Fatalf("Expected status 402, got %d: %s", w.Code, w.Body.String())
	}
	if stack.comments.Comments["c-1"].Approved {
		t.Error("Comment must stay pending when the quota blocks quick approve")
	}
}

func TestQuickApproveWithReply(t *testing.T) {
	stack := setupTestRouter(t)
	stack.seedProject("proj-1", "owner-1")
	stack.pages.Pages["page-1"] = &models.Page{ID: "page-1", ProjectID: "proj-1", Slug: "/p"}
	stack.comments.Comments["c-1"] = &models.Comment{
		ID: "c-1", PageID: "page-1", Content: "hi", ByNickname: "alice", CreatedAt: time.Now(),
	}

	signed, err := stack.services.Tokens.IssueApproveToken(context.Background(), "c-1")
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}

	w := doJSON(stack.router, "POST", "/api/open/approve?token="+signed, map[string]interface{}{
		"replyContent": "thanks for commenting",
	})
	stack.services.Hook.Wait()

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if !stack.comments.Comments["c-1"].Approved {
		t.Error("Comment should be approved")
	}
	if stack.usage.Counters["owner-1:quick_approve"] != 1 {
		t.Errorf("Expected quick_approve counter 1, got %d", stack.usage.Counters["owner-1:quick_approve"])
	}

	// The moderator reply was created under the parent
	replies := 0
	for _, comment := range stack.comments.Comments {
		if comment.ParentID != nil && *comment.ParentID == "c-1" {
			replies++
			if !comment.Approved {
				t.Error("Moderator replies must be approved at creation")
			}
		}
	}
	if replies != 1 {
		t.Errorf("Expected 1 reply, got %d", replies)
	}
}

func TestDashboardRequiresSession(t *testing.T) {
	stack := setupTestRouter(t)

	w := doJSON(stack.router, "GET", "/api/projects", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 without a session, got %d", w.Code)
	}

	req := httptest.NewRequest("GET", "/api/projects", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	stack.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 with a bad session, got %d", rec.Code)
	}
}

func TestRegisterLoginAndDashboardAccess(t *testing.T) {
	stack := setupTestRouter(t)

	w := doJSON(stack.router, "POST", "/api/auth/register", map[string]interface{}{
		"email":    "alice@example.com",
		"password": "s3cret-pass",
		"name":     "Alice",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var response struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response.Data.Token == "" {
		t.Fatal("Expected a session token")
	}

	// Create a project with the session
	var buf bytes.Buffer
	json.NewEncoder(&buf).Encode(map[string]string{"title": "My Blog"})
	req := httptest.NewRequest("POST", "/api/projects", &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+response.Data.Token)
	rec := httptest.NewRecorder()
	stack.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestDashboardListRequiresProjectID(t *testing.T) {
	stack := setupTestRouter(t)

	w := doJSON(stack.router, "POST", "/api/auth/register", map[string]interface{}{
		"email":    "bob@example.com",
		"password": "s3cret-pass",
		"name":     "Bob",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var response struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	req := httptest.NewRequest("GET", "/api/comment", nil)
	req.Header.Set("Authorization", "Bearer "+response.Data.Token)
	rec := httptest.NewRecorder()
	stack.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 without projectId, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestUnsubscribeFlow(t *testing.T) {
	stack := setupTestRouter(t)
	stack.seedProject("proj-1", "owner-1")

	signed, err := stack.services.Tokens.IssueUnsubscribeToken("owner-1")
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}

	req := httptest.NewRequest("GET", "/api/open/unsubscribe?token="+signed, nil)
	w := httptest.NewRecorder()
	stack.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if stack.users.Users["owner-1"].EnableNewCommentNotification {
		t.Error("Owner should be unsubscribed")
	}

	// An approve token must not pass as an unsubscribe token
	stack.pages.Pages["page-1"] = &models.Page{ID: "page-1", ProjectID: "proj-1", Slug: "/p"}
	stack.comments.Comments["c-1"] = &models.Comment{ID: "c-1", PageID: "page-1", CreatedAt: time.Now()}
	approve, err := stack.services.Tokens.IssueApproveToken(context.Background(), "c-1")
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}
	req = httptest.NewRequest("GET", "/api/open/unsubscribe?token="+approve, nil)
	rec := httptest.NewRecorder()
	stack.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for a cross-purpose token, got %d", rec.Code)
	}
}

func TestConfirmFlow(t *testing.T) {
	stack := setupTestRouter(t)
	stack.seedProject("proj-1", "owner-1")
	stack.pages.Pages["page-1"] = &models.Page{ID: "page-1", ProjectID: "proj-1", Slug: "/p"}
	stack.comments.Comments["c-1"] = &models.Comment{ID: "c-1", PageID: "page-1", CreatedAt: time.Now()}

	signed, err := stack.services.Tokens.IssueAcceptNotifyToken("c-1")
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}

	req := httptest.NewRequest("GET", "/api/open/confirm?token="+signed, nil)
	w := httptest.NewRecorder()
	stack.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if !stack.comments.Comments["c-1"].AcceptNotify {
		t.Error("Comment should have reply notifications enabled")
	}
}

func TestLatestCommentsRequiresProjectToken(t *testing.T) {
	stack := setupTestRouter(t)
	stack.seedProject("proj-1", "owner-1")
	stack.pages.Pages["page-1"] = &models.Page{ID: "page-1", ProjectID: "proj-1", Slug: "/p"}
	stack.comments.Comments["c-1"] = &models.Comment{
		ID: "c-1", PageID: "page-1", Content: "pending", ByNickname: "alice", CreatedAt: time.Now(),
	}

	w := doJSON(stack.router, "GET", "/api/open/project/proj-1/comments/latest?token=wrong", nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("Expected status 403 for a wrong token, got %d", w.Code)
	}

	w = doJSON(stack.router, "GET", "/api/open/project/proj-1/comments/latest?token=token-proj-1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var response struct {
		Data []models.LatestComment `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &response)
	if len(response.Data) != 1 {
		t.Errorf("Expected 1 latest comment, got %d", len(response.Data))
	}
}
