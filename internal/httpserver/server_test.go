package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/tinytelemetry/logfollow/internal/broker"
	"github.com/tinytelemetry/logfollow/internal/model"
	"github.com/tinytelemetry/logfollow/internal/registry"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type sentMessage struct {
	message string
	id      string
}

type stubAPI struct {
	mu      sync.Mutex
	sent    []sentMessage
	sources []model.LogPath
	clients []model.ClientInfo
}

func (a *stubAPI) ListSources() []model.LogPath    { return a.sources }
func (a *stubAPI) ListClients() []model.ClientInfo { return a.clients }
func (a *stubAPI) Send(message, id string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sent = append(a.sent, sentMessage{message: message, id: id})
	return 1
}

func newTestServer(t *testing.T, api model.OperatorAPI, staticRoot string) (*Server, *gin.Engine) {
	t.Helper()

	srv := NewServer("", api, registry.NewClients(), ServerConfig{StaticRoot: staticRoot})
	srv.startTime = time.Now()

	r := gin.New()
	r.Use(gin.Recovery())
	srv.routes(r)
	return srv, r
}

func postForm(r *gin.Engine, target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestBroadcast_ToAll(t *testing.T) {
	api := &stubAPI{}
	_, r := newTestServer(t, api, t.TempDir())

	w := postForm(r, "/", url.Values{"message": {"deploy starting"}})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if w.Body.String() != "message send." {
		t.Errorf("body = %q, want %q", w.Body.String(), "message send.")
	}
	if len(api.sent) != 1 || api.sent[0] != (sentMessage{message: "deploy starting"}) {
		t.Fatalf("sent = %+v", api.sent)
	}
}

func TestBroadcast_ToOneID(t *testing.T) {
	api := &stubAPI{}
	_, r := newTestServer(t, api, t.TempDir())

	postForm(r, "/", url.Values{"message": {"hi"}, "id": {"abc"}})

	if len(api.sent) != 1 || api.sent[0] != (sentMessage{message: "hi", id: "abc"}) {
		t.Fatalf("sent = %+v", api.sent)
	}
}

func TestBroadcast_QueryString(t *testing.T) {
	api := &stubAPI{}
	_, r := newTestServer(t, api, t.TempDir())

	w := postForm(r, "/?message=from+query&id=xyz", url.Values{})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if len(api.sent) != 1 || api.sent[0] != (sentMessage{message: "from query", id: "xyz"}) {
		t.Fatalf("sent = %+v", api.sent)
	}
}

func TestBroadcast_MissingMessage(t *testing.T) {
	api := &stubAPI{}
	_, r := newTestServer(t, api, t.TempDir())

	w := postForm(r, "/", url.Values{"id": {"abc"}})

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if len(api.sent) != 0 {
		t.Errorf("sent = %+v, want nothing", api.sent)
	}
}

func TestConsole(t *testing.T) {
	root := t.TempDir()
	_, r := newTestServer(t, &stubAPI{}, root)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing console status = %d, want %d", w.Code, http.StatusNotFound)
	}

	if err := os.WriteFile(filepath.Join(root, ConsoleFile), []byte("<h1>console</h1>"), 0644); err != nil {
		t.Fatalf("write console: %v", err)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("console status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), "console") {
		t.Errorf("console body = %q", w.Body.String())
	}
}

func TestStaticAssets(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "css"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "css", "app.css"), []byte("body{}"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, r := newTestServer(t, &stubAPI{}, root)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/static/css/app.css", nil))
	if w.Code != http.StatusOK || w.Body.String() != "body{}" {
		t.Fatalf("static status = %d body = %q", w.Code, w.Body.String())
	}
}

func TestHealthEndpoint(t *testing.T) {
	api := &stubAPI{
		sources: []model.LogPath{"/a", "/b"},
		clients: []model.ClientInfo{{ID: "x"}},
	}
	_, r := newTestServer(t, api, t.TempDir())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d, want %d", w.Code, http.StatusOK)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal health: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
	if body["sources"] != float64(2) || body["clients"] != float64(1) {
		t.Errorf("sources = %v clients = %v, want 2 and 1", body["sources"], body["clients"])
	}
}

func TestSourcesEndpoint(t *testing.T) {
	api := &stubAPI{sources: []model.LogPath{"/var/log/a.log"}}
	_, r := newTestServer(t, api, t.TempDir())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sources", nil))

	var body struct {
		Sources []string `json:"sources"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(body.Sources) != 1 || body.Sources[0] != "/var/log/a.log" {
		t.Fatalf("sources = %v", body.Sources)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, r := newTestServer(t, &stubAPI{}, t.TempDir())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "logfollow_") {
		t.Error("metrics output should include logfollow collectors")
	}
}

func TestViewerWebSocket(t *testing.T) {
	b := broker.New()
	srv := NewServer("127.0.0.1:0", b, b.Clients, ServerConfig{StaticRoot: t.TempDir()})
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = srv.Stop() })

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+srv.Addr()+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"command":"follow","logs":["/var/log/app.log"]}`)); err != nil {
		t.Fatalf("write follow: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"command":"nope"}`)); err != nil {
		t.Fatalf("write unknown: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read status: %v", err)
	}
	if string(data) != `{"type":"status","status":"ERROR","description":"Undefined command"}` {
		t.Fatalf("status reply = %s", data)
	}

	b.Router.Route(model.NewEntry("/var/log/other.log", "ignored"))
	b.Router.Route(model.NewEntry("/var/log/app.log", "hello"))

	_, data, err = conn.ReadMessage()
	if err != nil {
		t.Fatalf("read entry: %v", err)
	}
	if string(data) != `{"type":"entry","entries":["hello"],"log":"/var/log/app.log"}` {
		t.Fatalf("entry = %s", data)
	}

	conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for b.Clients.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("viewer was not deregistered after disconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestClientsEndpoint(t *testing.T) {
	api := &stubAPI{clients: []model.ClientInfo{
		{ID: "a", Following: []model.LogPath{"/var/log/x.log"}},
		{ID: "b", Following: []model.LogPath{}},
	}}
	_, r := newTestServer(t, api, t.TempDir())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/clients", nil))

	want := `{"clients":[{"id":"a","following":["/var/log/x.log"]},{"id":"b","following":[]}]}`
	if w.Body.String() != want {
		t.Errorf("body = %s, want %s", w.Body.String(), want)
	}
}
