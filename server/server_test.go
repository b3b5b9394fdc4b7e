package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mrsingh-rishi/voice-translator/audio"
	"github.com/mrsingh-rishi/voice-translator/metrics"
	"github.com/mrsingh-rishi/voice-translator/model"
	"github.com/mrsingh-rishi/voice-translator/pipeline"
	"github.com/mrsingh-rishi/voice-translator/stt"
	"github.com/mrsingh-rishi/voice-translator/translate"
	"github.com/mrsingh-rishi/voice-translator/tts"
)

type dictTranslator struct {
	err error
}

func (d dictTranslator) Translate(ctx context.Context, text, target, source string) (string, error) {
	if d.err != nil {
		return "", d.err
	}
	return text + "->" + target + "(" + source + ")", nil
}

type stubTranscriber struct {
	text string
	err  error
}

func (s stubTranscriber) Transcribe(ctx context.Context, u model.Utterance, language string) (string, error) {
	return s.text, s.err
}

type stubSynth struct {
	err error
}

func (s stubSynth) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []byte("mp3:" + text), nil
}

type fakePipeline struct {
	mu       sync.Mutex
	running  bool
	target   string
	source   string
	startErr error
}

func (p *fakePipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.startErr != nil {
		return p.startErr
	}
	if p.running {
		return pipeline.ErrAlreadyRunning
	}
	p.running = true
	return nil
}

func (p *fakePipeline) Stop() {
	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
}

func (p *fakePipeline) Status() pipeline.Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := pipeline.Status{State: pipeline.Stopped, Target: p.target, Source: p.source}
	if p.running {
		st.State = pipeline.Running
	}
	return st
}

func (p *fakePipeline) SetLanguages(target, source string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return pipeline.ErrRunning
	}
	p.target, p.source = target, source
	return nil
}

func newTestServer(t *testing.T, deps Deps) *Server {
	t.Helper()
	if deps.Translation == nil {
		svc, err := translate.NewService(dictTranslator{}, nil)
		if err != nil {
			t.Fatal(err)
		}
		deps.Translation = svc
	}
	if deps.Transcriber == nil {
		deps.Transcriber = stubTranscriber{text: "hello"}
	}
	if deps.Synthesizer == nil {
		deps.Synthesizer = stubSynth{}
	}
	return New(context.Background(), 4, deps)
}

func do(t *testing.T, s *Server, req *http.Request) (int, map[string]any) {
	t.Helper()
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	out := map[string]any{}
	if len(body) > 0 && body[0] == '{' {
		if err := json.Unmarshal(body, &out); err != nil {
			t.Fatalf("decode %s: %v", body, err)
		}
	}
	return resp.StatusCode, out
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func audioRequest(t *testing.T, file []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if file != nil {
		fw, err := mw.CreateFormFile("audio", "clip.wav")
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(file)
	}
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/translate-audio", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func testWAV(t *testing.T) []byte {
	t.Helper()
	pcm := make([]byte, 3200)
	for i := range pcm {
		pcm[i] = byte(i)
	}
	wav, err := audio.EncodeWAV(pcm, 16000)
	if err != nil {
		t.Fatal(err)
	}
	return wav
}

func TestHealthAndLanguages(t *testing.T) {
	s := newTestServer(t, Deps{})

	code, body := do(t, s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if code != http.StatusOK || body["ok"] != true {
		t.Fatalf("healthz = %d %v", code, body)
	}

	code, body = do(t, s, httptest.NewRequest(http.MethodGet, "/languages", nil))
	if code != http.StatusOK {
		t.Fatalf("languages status %d", code)
	}
	langs := body["languages"].([]any)
	found := false
	for _, l := range langs {
		entry := l.(map[string]any)
		if entry["name"] == "hindi" && entry["code"] == "hi" {
			found = true
		}
	}
	if !found {
		t.Errorf("hindi missing from %v", langs)
	}
}

func TestTranslate(t *testing.T) {
	s := newTestServer(t, Deps{})
	code, body := do(t, s, jsonRequest(http.MethodPost, "/translate", `{"text":"hello","srcLang":"English","destLang":"Hindi"}`))
	if code != http.StatusOK {
		t.Fatalf("status %d: %v", code, body)
	}
	if body["translatedText"] != "hello->hi(en)" {
		t.Errorf("translatedText = %v", body["translatedText"])
	}
}

func TestTranslateFailureKeepsLegacyText(t *testing.T) {
	svc, _ := translate.NewService(dictTranslator{err: errors.New("quota")}, nil)
	s := newTestServer(t, Deps{Translation: svc})
	code, body := do(t, s, jsonRequest(http.MethodPost, "/translate", `{"text":"hello","srcLang":"en","destLang":"fr"}`))
	if code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if got := body["translatedText"].(string); !strings.HasPrefix(got, translate.ErrorPrefix) {
		t.Errorf("translatedText = %q", got)
	}
}

func TestTranslateBadRequest(t *testing.T) {
	s := newTestServer(t, Deps{})
	for _, payload := range []string{`{`, `{"text":"","destLang":"hi"}`} {
		code, _ := do(t, s, jsonRequest(http.MethodPost, "/translate", payload))
		if code != http.StatusBadRequest {
			t.Errorf("%s: status %d", payload, code)
		}
	}
}

func TestTranslateAudio(t *testing.T) {
	s := newTestServer(t, Deps{})
	code, body := do(t, s, audioRequest(t, testWAV(t), map[string]string{"target_lang": "hindi"}))
	if code != http.StatusOK {
		t.Fatalf("status %d: %v", code, body)
	}
	if body["recognized_text"] != "hello" || body["basic_translation"] != "hello->hi(auto)" {
		t.Errorf("body = %v", body)
	}
	if body["ai_translation"] != body["basic_translation"] {
		t.Errorf("ai_translation should equal basic without an enhancer: %v", body)
	}
	audioBytes, err := base64.StdEncoding.DecodeString(body["audio_base64"].(string))
	if err != nil || string(audioBytes) != "mp3:hello->hi(auto)" {
		t.Errorf("audio = %q, %v", audioBytes, err)
	}
}

func TestTranslateAudioErrors(t *testing.T) {
	tests := []struct {
		name   string
		deps   Deps
		file   []byte
		status int
		msg    string
	}{
		{"no file", Deps{}, nil, http.StatusBadRequest, "No audio file provided"},
		{"not understood", Deps{Transcriber: stubTranscriber{err: stt.ErrNotUnderstood}}, testWAV(t), http.StatusBadRequest, "Could not understand the audio"},
		{"recognition service", Deps{Transcriber: stubTranscriber{err: &stt.ServiceError{Backend: "openai", Err: errors.New("503")}}}, testWAV(t), http.StatusInternalServerError, "Speech recognition error"},
		{"synthesis", Deps{Synthesizer: stubSynth{err: &tts.ServiceError{Backend: "google", Err: errors.New("429")}}}, testWAV(t), http.StatusInternalServerError, "Text-to-speech error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.deps)
			code, body := do(t, s, audioRequest(t, tt.file, nil))
			if code != tt.status {
				t.Fatalf("status %d, want %d (%v)", code, tt.status, body)
			}
			if msg, _ := body["error"].(string); !strings.HasPrefix(msg, tt.msg) {
				t.Errorf("error = %q, want prefix %q", msg, tt.msg)
			}
		})
	}
}

func TestPipelineRoutes(t *testing.T) {
	p := &fakePipeline{target: "en", source: "auto"}
	s := newTestServer(t, Deps{Pipeline: p})

	code, body := do(t, s, jsonRequest(http.MethodPost, "/pipeline/start", `{"target":"hindi"}`))
	if code != http.StatusOK || body["state"] != "running" || body["target"] != "hindi" || body["source"] != "auto" {
		t.Fatalf("start = %d %v", code, body)
	}

	code, _ = do(t, s, jsonRequest(http.MethodPost, "/pipeline/start", ``))
	if code != http.StatusConflict {
		t.Fatalf("second start = %d, want 409", code)
	}

	code, body = do(t, s, httptest.NewRequest(http.MethodPost, "/pipeline/stop", nil))
	if code != http.StatusOK || body["state"] != "stopped" {
		t.Fatalf("stop = %d %v", code, body)
	}

	code, body = do(t, s, httptest.NewRequest(http.MethodGet, "/pipeline/status", nil))
	if code != http.StatusOK || body["state"] != "stopped" {
		t.Fatalf("status = %d %v", code, body)
	}
}

func TestPipelineUnavailable(t *testing.T) {
	s := newTestServer(t, Deps{})
	code, _ := do(t, s, httptest.NewRequest(http.MethodGet, "/pipeline/status", nil))
	if code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := newTestServer(t, Deps{Metrics: metrics.New(reg), Gatherer: reg})

	do(t, s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `translator_http_requests_total{endpoint="/healthz",method="GET",status_code="200"} 1`) {
		t.Errorf("metrics output missing healthz counter:\n%s", body)
	}
}

func TestResultsFeed(t *testing.T) {
	hub := NewHub()
	s := newTestServer(t, Deps{Hub: hub})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	go s.App().Listener(ln)
	defer s.Shutdown(time.Second)

	conn, _, err := gws.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/ws/results", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	hub.Publish(model.TranslationResult{OriginalText: "hello", BasicTranslation: "नमस्ते", TargetCode: "hi"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got model.TranslationResult
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.OriginalText != "hello" || got.BasicTranslation != "नमस्ते" || got.TargetCode != "hi" {
		t.Errorf("got %+v", got)
	}
}

func TestPublishDoesNotBlockOnStalledClient(t *testing.T) {
	hub := NewHub()
	s := newTestServer(t, Deps{Hub: hub})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	go s.App().Listener(ln)
	defer s.Shutdown(time.Second)

	// connected but never reads
	conn, _, err := gws.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/ws/results", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	big := model.TranslationResult{OriginalText: strings.Repeat("x", 256*1024)}
	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			hub.Publish(big)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a client that stopped reading")
	}
}
