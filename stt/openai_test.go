package stt

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mrsingh-rishi/voice-translator/model"
)

func testUtterance() model.Utterance {
	return model.NewUtterance(make([]byte, 3200), 16000, "en")
}

func TestOpenAITranscribe(t *testing.T) {
	var gotLanguage, gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		gotLanguage = r.FormValue("language")
		gotModel = r.FormValue("model")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":" hello "}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient("test-key", srv.URL, "whisper-large-v3", 5*time.Second)
	text, err := c.Transcribe(context.Background(), testUtterance(), "en")
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if text != "hello" {
		t.Errorf("expected hello, got %q", text)
	}
	if gotLanguage != "en" {
		t.Errorf("expected language en, got %q", gotLanguage)
	}
	if gotModel != "whisper-large-v3" {
		t.Errorf("expected model whisper-large-v3, got %q", gotModel)
	}
}

func TestOpenAITranscribeAutoOmitsLanguage(t *testing.T) {
	var gotLanguage string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseMultipartForm(1 << 20)
		gotLanguage = r.FormValue("language")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":"bonjour"}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient("test-key", srv.URL, "", 5*time.Second)
	if _, err := c.Transcribe(context.Background(), testUtterance(), "auto"); err != nil {
		t.Fatal(err)
	}
	if gotLanguage != "" {
		t.Errorf("expected no language for auto, got %q", gotLanguage)
	}
}

func TestOpenAITranscribeNotUnderstood(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":""}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient("test-key", srv.URL, "", 5*time.Second)
	_, err := c.Transcribe(context.Background(), testUtterance(), "en")
	if !errors.Is(err, ErrNotUnderstood) {
		t.Fatalf("expected ErrNotUnderstood, got %v", err)
	}
}

func TestOpenAITranscribeServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient("test-key", srv.URL, "", 5*time.Second)
	_, err := c.Transcribe(context.Background(), testUtterance(), "en")

	var se *ServiceError
	if !errors.As(err, &se) {
		t.Fatalf("expected *ServiceError, got %v", err)
	}
	if se.Backend != "openai" {
		t.Errorf("expected backend openai, got %q", se.Backend)
	}
}

func TestOpenAITranscribeEmptyAudio(t *testing.T) {
	c := NewOpenAIClient("test-key", "http://127.0.0.1:1", "", time.Second)
	_, err := c.Transcribe(context.Background(), model.Utterance{SampleRate: 16000}, "en")

	var se *ServiceError
	if !errors.As(err, &se) {
		t.Fatalf("expected *ServiceError for empty audio, got %v", err)
	}
}
