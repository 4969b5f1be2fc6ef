package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"edusloth/app/model"
)

func respond(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"code":    0,
		"message": "ok",
		"data":    data,
	})
}

// TestClientLoginStoresToken verifies the token is kept and sent on
// subsequent requests.
func TestClientLoginStoresToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			respond(w, http.StatusOK, map[string]any{
				"token":     "token-123",
				"user":      map[string]any{"id": "u1", "email": "sloth@example.com"},
				"expire_at": 0,
			})
		case "/api/users/me":
			if r.Header.Get("Authorization") != "Bearer token-123" {
				t.Errorf("authorization header = %q", r.Header.Get("Authorization"))
			}
			respond(w, http.StatusOK, map[string]any{"id": "u1", "email": "sloth@example.com"})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, testLogger())
	defer c.Close()

	result, err := c.Login(context.Background(), "sloth@example.com", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.Token != "token-123" || c.Token() != "token-123" {
		t.Fatalf("token = %q", c.Token())
	}

	user, err := c.Me(context.Background())
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if user.Email != "sloth@example.com" {
		t.Fatalf("email = %s", user.Email)
	}
}

// TestClientUnauthorizedEvictsToken verifies a 401 clears the stored token.
func TestClientUnauthorizedEvictsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(srv.URL, testLogger())
	defer c.Close()
	c.SetToken("stale-token")

	if _, err := c.Me(context.Background()); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
	if c.Token() != "" {
		t.Fatal("token should be evicted after 401")
	}
}

// TestClientNotFound verifies 404 maps to ErrNotFound.
func TestClientNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL, testLogger())
	defer c.Close()

	if _, err := c.GetTranscription(context.Background(), "c1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

// TestClientFetchJobDispatch verifies the job key routes to the right
// endpoint for transcriptions and generations.
func TestClientFetchJobDispatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/transcription/c1":
			respond(w, http.StatusOK, map[string]any{"content_id": "c1", "status": "completed", "text": "hello"})
		case "/api/ai/generated/c1/quiz":
			respond(w, http.StatusOK, map[string]any{"content_id": "c1", "type": "quiz", "status": "processing"})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, testLogger())
	defer c.Close()

	view, err := c.FetchJob(context.Background(), JobKey{ContentID: "c1"})
	if err != nil {
		t.Fatalf("fetch transcription job: %v", err)
	}
	if view.Status != model.JobStatusCompleted || view.Transcription == nil || view.Transcription.Text != "hello" {
		t.Fatalf("view = %+v", view)
	}

	view, err = c.FetchJob(context.Background(), JobKey{ContentID: "c1", GenerationType: "quiz"})
	if err != nil {
		t.Fatalf("fetch generation job: %v", err)
	}
	if view.Status != model.JobStatusProcessing || view.Generation == nil {
		t.Fatalf("view = %+v", view)
	}
}

// TestClientAPIError verifies a non-zero envelope code surfaces the
// server message.
func TestClientAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{"code": 400, "message": "该内容不支持转写", "data": nil})
	}))
	defer srv.Close()

	c := New(srv.URL, testLogger())
	defer c.Close()

	_, err := c.StartTranscription(context.Background(), "c1")
	if err == nil {
		t.Fatal("expected error")
	}
}
