package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kitamura/hanasu/internal/stt"
	"github.com/kitamura/hanasu/internal/translate"
	"github.com/kitamura/hanasu/internal/tts"
)

type fakeSTT struct {
	transcript string
	err        error
	calls      int
}

func (f *fakeSTT) Transcribe(_ context.Context, _ []byte) (string, error) {
	f.calls++
	return f.transcript, f.err
}

type fakeTranslate struct {
	translated string
	err        error
}

func (f *fakeTranslate) Translate(_ context.Context, _, _ string) (string, error) {
	return f.translated, f.err
}

type fakeTTS struct {
	audio []byte
	err   error
}

func (f *fakeTTS) Synthesize(_ context.Context, _ string) ([]byte, error) {
	return f.audio, f.err
}

type testServer struct {
	ts        *httptest.Server
	registry  *SessionRegistry
	stt       *fakeSTT
	translate *fakeTranslate
	tts       *fakeTTS
}

func newTestServer(t *testing.T, cfg RouterConfig) *testServer {
	t.Helper()

	srv := &testServer{
		registry:  NewSessionRegistry(),
		stt:       &fakeSTT{transcript: "hello"},
		translate: &fakeTranslate{translated: "こんにちは"},
		tts:       &fakeTTS{audio: []byte{0xFF, 0xFB}},
	}

	factory := func(apiKey string) (stt.Client, translate.Client, tts.Client) {
		return srv.stt, srv.translate, srv.tts
	}

	if cfg.MinAudioBytes == 0 {
		cfg.MinAudioBytes = 16000
	}
	handler := NewRouter(cfg, log.New(io.Discard, "", 0), srv.registry, factory)
	srv.ts = httptest.NewServer(handler)
	t.Cleanup(srv.ts.Close)
	return srv
}

func (s *testServer) createSession(t *testing.T, body string) string {
	t.Helper()
	resp, err := http.Post(s.ts.URL+"/api/sessions", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create session status = %d, want 201", resp.StatusCode)
	}
	var data struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if data.ID == "" {
		t.Fatal("create session returned empty id")
	}
	return data.ID
}

func (s *testServer) submitAudio(t *testing.T, sessionID, source string, size int) (*http.Response, map[string]any) {
	t.Helper()
	url := s.ts.URL + "/api/sessions/" + sessionID + "/audio?source=" + source
	resp, err := http.Post(url, "audio/wav", bytes.NewReader(make([]byte, size)))
	if err != nil {
		t.Fatalf("submit audio: %v", err)
	}
	defer resp.Body.Close()
	var data map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&data)
	return resp, data
}

func defaultCfg() RouterConfig {
	return RouterConfig{OpenAIAPIKey: "test-key"}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, defaultCfg())

	resp, err := http.Get(srv.ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", resp.StatusCode)
	}
}

func TestIndexServed(t *testing.T) {
	srv := newTestServer(t, defaultCfg())

	resp, err := http.Get(srv.ts.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("index status = %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(string(body), "音声翻訳アプリ") {
		t.Error("index page should contain the app title")
	}
}

func TestSubmitAudio_ShortClipWarning(t *testing.T) {
	srv := newTestServer(t, defaultCfg())
	id := srv.createSession(t, "{}")

	// 15000 bytes is below the 16000-byte threshold.
	resp, data := srv.submitAudio(t, id, "english", 15000)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	if data["warning"] == nil {
		t.Error("short clips should produce a user-visible warning")
	}
	if srv.stt.calls != 0 {
		t.Errorf("stt calls = %d, want 0 for short clip", srv.stt.calls)
	}
}

func TestSubmitAudio_Success(t *testing.T) {
	srv := newTestServer(t, defaultCfg())
	id := srv.createSession(t, "{}")

	resp, data := srv.submitAudio(t, id, "english", 20000)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	msg, ok := data["message"].(map[string]any)
	if !ok {
		t.Fatalf("response missing message: %v", data)
	}
	if msg["original"] != "hello" {
		t.Errorf("original = %q, want %q", msg["original"], "hello")
	}
	if msg["translated"] != "こんにちは" {
		t.Errorf("translated = %q, want %q", msg["translated"], "こんにちは")
	}
	if data["audio_b64"] == "" {
		t.Error("response should carry the synthesized audio for autoplay")
	}

	// Exactly one message landed in the english log.
	entry, _ := srv.registry.Get(id)
	if entry.sess.Len() != 1 {
		t.Errorf("session has %d messages, want 1", entry.sess.Len())
	}
}

func TestSubmitAudio_DuplicateDroppedSilently(t *testing.T) {
	srv := newTestServer(t, defaultCfg())
	srv.stt.transcript = "ありがとう"
	id := srv.createSession(t, "{}")

	srv.submitAudio(t, id, "japanese", 20000)
	resp, data := srv.submitAudio(t, id, "japanese", 20000)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200 for silent drop", resp.StatusCode)
	}
	if data["duplicate"] != true {
		t.Errorf("response = %v, want duplicate flag", data)
	}

	entry, _ := srv.registry.Get(id)
	if entry.sess.Len() != 1 {
		t.Errorf("session has %d messages, want exactly 1", entry.sess.Len())
	}
}

func TestSubmitAudio_InvalidSource(t *testing.T) {
	srv := newTestServer(t, defaultCfg())
	id := srv.createSession(t, "{}")

	resp, _ := srv.submitAudio(t, id, "german", 20000)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestSubmitAudio_GatewayFailure(t *testing.T) {
	srv := newTestServer(t, defaultCfg())
	srv.translate.err = io.ErrUnexpectedEOF
	id := srv.createSession(t, "{}")

	resp, data := srv.submitAudio(t, id, "english", 20000)
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
	if data["error"] == nil {
		t.Error("gateway failure should be reported")
	}

	entry, _ := srv.registry.Get(id)
	if entry.sess.Len() != 0 {
		t.Error("failed submission must not mutate the store")
	}
}

func TestSubmitAudio_NoCredential(t *testing.T) {
	srv := newTestServer(t, RouterConfig{}) // no server-side key
	id := srv.createSession(t, "{}")

	resp, _ := srv.submitAudio(t, id, "english", 20000)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
	if srv.stt.calls != 0 {
		t.Error("missing credential must block all gateway calls")
	}
}

func TestSubmitAudio_SessionCredentialOverride(t *testing.T) {
	srv := newTestServer(t, RouterConfig{}) // no server-side key
	id := srv.createSession(t, `{"api_key": "sk-user-supplied"}`)

	resp, _ := srv.submitAudio(t, id, "english", 20000)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200 with session credential", resp.StatusCode)
	}
}

func TestSubmitAudio_UnknownSession(t *testing.T) {
	srv := newTestServer(t, defaultCfg())

	resp, _ := srv.submitAudio(t, "no-such-session", "english", 20000)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestSubmitAudio_RejectedWhileDraining(t *testing.T) {
	srv := newTestServer(t, defaultCfg())
	id := srv.createSession(t, "{}")

	srv.registry.StartDraining()

	resp, _ := srv.submitAudio(t, id, "english", 20000)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503 while draining", resp.StatusCode)
	}
}

func TestTranscript_HTML(t *testing.T) {
	srv := newTestServer(t, defaultCfg())
	id := srv.createSession(t, "{}")
	srv.submitAudio(t, id, "english", 20000)

	resp, err := http.Get(srv.ts.URL + "/api/sessions/" + id + "/transcript?autoplay=1")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	html := string(body)

	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "text/html") {
		t.Errorf("Content-Type = %q, want text/html", ct)
	}
	for _, want := range []string{"hello", "こんにちは", "message-container right", "autoplay", "data:audio/mp3;base64,"} {
		if !strings.Contains(html, want) {
			t.Errorf("transcript HTML missing %q", want)
		}
	}
}

func TestTranscript_JSON(t *testing.T) {
	srv := newTestServer(t, defaultCfg())
	id := srv.createSession(t, "{}")
	srv.submitAudio(t, id, "english", 20000)

	req, _ := http.NewRequest("GET", srv.ts.URL+"/api/sessions/"+id+"/transcript", nil)
	req.Header.Set("Accept", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var data struct {
		Bubbles []map[string]any `json:"bubbles"`
		Count   int              `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		t.Fatalf("decode transcript JSON: %v", err)
	}
	if data.Count != 1 || len(data.Bubbles) != 1 {
		t.Fatalf("bubbles = %d, want 1", len(data.Bubbles))
	}
	if data.Bubbles[0]["primary_text"] != "hello" {
		t.Errorf("primary_text = %q, want %q", data.Bubbles[0]["primary_text"], "hello")
	}
	if data.Bubbles[0]["align"] != "right" {
		t.Errorf("align = %q, want right for english", data.Bubbles[0]["align"])
	}
}

func TestSessionLifecycle(t *testing.T) {
	srv := newTestServer(t, defaultCfg())
	id := srv.createSession(t, "{}")

	// Metadata is readable.
	resp, err := http.Get(srv.ts.URL + "/api/sessions/" + id + "/")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("get session status = %d, want 200", resp.StatusCode)
	}

	// Delete ends the session.
	req, _ := http.NewRequest("DELETE", srv.ts.URL+"/api/sessions/"+id+"/", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", resp.StatusCode)
	}

	// Gone afterwards.
	resp, err = http.Get(srv.ts.URL + "/api/sessions/" + id + "/")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get deleted session status = %d, want 404", resp.StatusCode)
	}
}

func TestEventsEndpoint(t *testing.T) {
	srv := newTestServer(t, defaultCfg())
	id := srv.createSession(t, "{}")
	srv.submitAudio(t, id, "english", 20000)

	resp, err := http.Get(srv.ts.URL + "/api/sessions/" + id + "/events")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var data struct {
		Count  int              `json:"count"`
		Events []map[string]any `json:"events"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		t.Fatal(err)
	}
	if data.Count == 0 {
		t.Error("a successful submission should leave pipeline events")
	}

	var committed bool
	for _, e := range data.Events {
		if e["type"] == "message_committed" {
			committed = true
		}
	}
	if !committed {
		t.Error("events should include message_committed")
	}
}

func TestCostsEndpoint(t *testing.T) {
	srv := newTestServer(t, defaultCfg())
	id := srv.createSession(t, "{}")
	srv.submitAudio(t, id, "english", 20000)

	resp, err := http.Get(srv.ts.URL + "/api/sessions/" + id + "/costs")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var data struct {
		Usage struct {
			STTAudioSeconds float64 `json:"stt_audio_seconds"`
			TTSCharacters   int     `json:"tts_characters"`
		} `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		t.Fatal(err)
	}
	if data.Usage.STTAudioSeconds == 0 {
		t.Error("usage should record transcribed audio")
	}
	if data.Usage.TTSCharacters == 0 {
		t.Error("usage should record synthesized characters")
	}
}
