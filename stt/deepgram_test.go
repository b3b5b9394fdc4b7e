package stt

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	gws "github.com/gorilla/websocket"
)

// fakeDeepgram accepts audio until CloseStream, then replies with scripted messages.
func fakeDeepgram(t *testing.T, replies []string, gotAudio *int, gotQuery *string) *httptest.Server {
	upgrader := gws.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Token dg-key" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		*gotQuery = r.URL.RawQuery
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		for {
			mt, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if mt == gws.BinaryMessage {
				*gotAudio += len(msg)
				continue
			}
			if strings.Contains(string(msg), "CloseStream") {
				break
			}
		}
		for _, reply := range replies {
			conn.WriteMessage(gws.TextMessage, []byte(reply))
		}
		conn.WriteMessage(gws.CloseMessage, gws.FormatCloseMessage(gws.CloseNormalClosure, ""))
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestDeepgramTranscribe(t *testing.T) {
	var audioBytes int
	var query string
	srv := fakeDeepgram(t, []string{
		`{"type":"Results","is_final":false,"channel":{"alternatives":[{"transcript":"hel"}]}}`,
		`{"type":"Results","is_final":true,"channel":{"alternatives":[{"transcript":"hello"}]}}`,
		`{"type":"Results","is_final":true,"channel":{"alternatives":[{"transcript":"world"}]}}`,
		`{"type":"Metadata"}`,
	}, &audioBytes, &query)
	defer srv.Close()

	dg, err := NewDeepgramClient("dg-key", wsURL(srv), "")
	if err != nil {
		t.Fatal(err)
	}
	dg.ChunkSize = 1000

	u := testUtterance()
	text, err := dg.Transcribe(context.Background(), u, "en")
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if text != "hello world" {
		t.Errorf("expected %q, got %q", "hello world", text)
	}
	if audioBytes != len(u.PCM) {
		t.Errorf("expected %d audio bytes sent, got %d", len(u.PCM), audioBytes)
	}
	if !strings.Contains(query, "language=en") || !strings.Contains(query, "sample_rate=16000") {
		t.Errorf("unexpected query %q", query)
	}
}

func TestDeepgramNotUnderstood(t *testing.T) {
	var audioBytes int
	var query string
	srv := fakeDeepgram(t, []string{
		`{"type":"Results","is_final":true,"channel":{"alternatives":[{"transcript":""}]}}`,
		`{"type":"Metadata"}`,
	}, &audioBytes, &query)
	defer srv.Close()

	dg, _ := NewDeepgramClient("dg-key", wsURL(srv), "")
	_, err := dg.Transcribe(context.Background(), testUtterance(), "auto")
	if !errors.Is(err, ErrNotUnderstood) {
		t.Fatalf("expected ErrNotUnderstood, got %v", err)
	}
	if !strings.Contains(query, "language=multi") {
		t.Errorf("expected multi-language query for auto, got %q", query)
	}
}

func TestDeepgramDialFailure(t *testing.T) {
	var audioBytes int
	var query string
	srv := fakeDeepgram(t, nil, &audioBytes, &query)
	defer srv.Close()

	dg, _ := NewDeepgramClient("wrong-key", wsURL(srv), "")
	_, err := dg.Transcribe(context.Background(), testUtterance(), "en")

	var se *ServiceError
	if !errors.As(err, &se) {
		t.Fatalf("expected *ServiceError, got %v", err)
	}
}

func TestNewDeepgramClientRequiresKey(t *testing.T) {
	if _, err := NewDeepgramClient("", "", ""); err == nil {
		t.Error("expected error without API key")
	}
}
