package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"edusloth/app/config"
	"edusloth/app/middleware"
	"edusloth/app/model"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newAuthTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&model.User{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg := &config.Config{
		JWT: config.JWTConfig{Secret: "test-secret", ExpireTime: 1, Issuer: "edusloth-test"},
	}
	h := NewAuthHandler(cfg, db)

	router := gin.New()
	api := router.Group("/api")
	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)

	protected := api.Group("/")
	protected.Use(middleware.JWTAuth(cfg))
	protected.GET("/users/me", h.Me)
	protected.PUT("/users/me", h.UpdateMe)
	protected.GET("/users/:id", h.GetUser)

	return router, db
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body any) (*httptest.ResponseRecorder, ApiResponse) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp ApiResponse
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return w, resp
}

func loginToken(t *testing.T, router *gin.Engine, email, password string) string {
	t.Helper()
	w, resp := doJSON(t, router, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": email, "password": password,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d: %v", w.Code, resp.Message)
	}
	data, _ := json.Marshal(resp.Data)
	var login LoginResponse
	if err := json.Unmarshal(data, &login); err != nil {
		t.Fatalf("decode login data: %v", err)
	}
	return login.Token
}

// TestUpdateMe verifies profile update with password re-hash: after the
// update the old password stops working and the new one logs in.
func TestUpdateMe(t *testing.T) {
	router, _ := newAuthTestRouter(t)

	w, _ := doJSON(t, router, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "sloth@example.com", "password": "old-password", "full_name": "树懒",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("register status = %d", w.Code)
	}

	token := loginToken(t, router, "sloth@example.com", "old-password")

	w, resp := doJSON(t, router, http.MethodPut, "/api/users/me", token, map[string]string{
		"full_name": "勤奋的树懒", "password": "new-password",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d: %v", w.Code, resp.Message)
	}
	data, _ := json.Marshal(resp.Data)
	var user model.User
	if err := json.Unmarshal(data, &user); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	if user.FullName != "勤奋的树懒" {
		t.Fatalf("full_name = %q", user.FullName)
	}

	// 旧密码不再可用
	w, _ = doJSON(t, router, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "sloth@example.com", "password": "old-password",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("old password login status = %d, want 401", w.Code)
	}

	loginToken(t, router, "sloth@example.com", "new-password")
}

// TestUpdateMeDuplicateEmail verifies the email uniqueness check.
func TestUpdateMeDuplicateEmail(t *testing.T) {
	router, _ := newAuthTestRouter(t)

	for _, email := range []string{"a@example.com", "b@example.com"} {
		w, _ := doJSON(t, router, http.MethodPost, "/api/auth/register", "", map[string]string{
			"email": email, "password": "password-123",
		})
		if w.Code != http.StatusOK {
			t.Fatalf("register %s status = %d", email, w.Code)
		}
	}

	token := loginToken(t, router, "a@example.com", "password-123")
	w, _ := doJSON(t, router, http.MethodPut, "/api/users/me", token, map[string]string{
		"email": "b@example.com",
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("update status = %d, want 409", w.Code)
	}
}

// TestGetUserPermissions verifies the by-id lookup is limited to the
// user themselves unless they are a superuser.
func TestGetUserPermissions(t *testing.T) {
	router, db := newAuthTestRouter(t)

	for _, email := range []string{"a@example.com", "b@example.com"} {
		if w, _ := doJSON(t, router, http.MethodPost, "/api/auth/register", "", map[string]string{
			"email": email, "password": "password-123",
		}); w.Code != http.StatusOK {
			t.Fatalf("register %s status = %d", email, w.Code)
		}
	}

	var userA, userB model.User
	if err := db.First(&userA, "email = ?", "a@example.com").Error; err != nil {
		t.Fatalf("load user a: %v", err)
	}
	if err := db.First(&userB, "email = ?", "b@example.com").Error; err != nil {
		t.Fatalf("load user b: %v", err)
	}

	tokenA := loginToken(t, router, "a@example.com", "password-123")

	// 本人可查
	if w, _ := doJSON(t, router, http.MethodGet, "/api/users/"+userA.ID, tokenA, nil); w.Code != http.StatusOK {
		t.Fatalf("self lookup status = %d", w.Code)
	}
	// 他人不可查
	if w, _ := doJSON(t, router, http.MethodGet, "/api/users/"+userB.ID, tokenA, nil); w.Code != http.StatusForbidden {
		t.Fatalf("other lookup status = %d, want 403", w.Code)
	}

	// 超级管理员可查任何人
	if err := db.Model(&model.User{}).Where("id = ?", userA.ID).Update("is_superuser", true).Error; err != nil {
		t.Fatalf("promote user a: %v", err)
	}
	if w, _ := doJSON(t, router, http.MethodGet, "/api/users/"+userB.ID, tokenA, nil); w.Code != http.StatusOK {
		t.Fatalf("superuser lookup status = %d", w.Code)
	}
}
