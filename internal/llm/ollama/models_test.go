package ollama

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != tagsPath {
			t.Errorf("expected path %s, got %s", tagsPath, r.URL.Path)
		}
		io.WriteString(w, `{"models":[
			{"name":"gemma:2b","model":"gemma:2b","size":1678447520,"modified_at":"2024-05-01T10:00:00Z"},
			{"name":"llama3.2:1b","size":1321098329,"modified_at":"2024-06-01T10:00:00Z"}
		]}`)
	}))
	defer srv.Close()

	models, err := New(srv.URL).Models(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("expected 2 models, got %d", len(models))
	}
	if models[0].Name != "gemma:2b" || models[0].Size != 1678447520 {
		t.Errorf("unexpected first model %+v", models[0])
	}
	if want := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC); !models[0].ModifiedAt.Equal(want) {
		t.Errorf("expected modified_at %v, got %v", want, models[0].ModifiedAt)
	}
	if models[1].Name != "llama3.2:1b" {
		t.Errorf("expected llama3.2:1b, got %s", models[1].Name)
	}
}

func TestModels_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL).Models(context.Background())
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.StatusCode != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", se.StatusCode)
	}
}

func TestModels_Unreachable(t *testing.T) {
	_, err := New(refusedURL(t)).Models(context.Background())
	if err == nil || !strings.Contains(err.Error(), "list models") {
		t.Fatalf("expected wrapped list models error, got %v", err)
	}
}

func TestWaitReady(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	if err := New(srv.URL).WaitReady(context.Background(), time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWaitReady_GivesUp(t *testing.T) {
	start := time.Now()
	err := New(refusedURL(t)).WaitReady(context.Background(), 50*time.Millisecond)
	if err == nil {
		t.Fatal("expected error for unreachable server")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("expected to give up quickly, took %v", elapsed)
	}
}
