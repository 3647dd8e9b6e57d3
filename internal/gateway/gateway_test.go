package gateway

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/yengalvez/a-movies/internal/agent"
	"github.com/yengalvez/a-movies/internal/assistant"
	"github.com/yengalvez/a-movies/internal/importer"
	"github.com/yengalvez/a-movies/internal/memstore"
	"github.com/yengalvez/a-movies/internal/memstore/memstoretest"
	"github.com/yengalvez/a-movies/internal/record"
	"github.com/yengalvez/a-movies/internal/trakt"
)

type stubChat struct {
	reply assistant.Reply
	err   error

	lastSessionID string
	lastMessage   string
}

func (s *stubChat) Chat(_ context.Context, sessionID, message string) (assistant.Reply, error) {
	s.lastSessionID = sessionID
	s.lastMessage = message
	if s.err != nil {
		return assistant.Reply{}, s.err
	}
	reply := s.reply
	if reply.SessionID == "" {
		reply.SessionID = "sess-1"
	}
	return reply, nil
}

func (s *stubChat) ChatStream(_ context.Context, sessionID, message string) (string, <-chan agent.StreamEvent, error) {
	s.lastSessionID = sessionID
	s.lastMessage = message
	if s.err != nil {
		return "", nil, s.err
	}
	ch := make(chan agent.StreamEvent, 2)
	ch <- agent.StreamEvent{Type: agent.StreamEventText, Content: s.reply.Content}
	ch <- agent.StreamEvent{Type: agent.StreamEventDone, Final: &agent.Response{Content: s.reply.Content}}
	close(ch)
	return "sess-1", ch, nil
}

// traktServer is a fake tracking-service endpoint that counts hits and can
// be switched to failure mode.
type traktServer struct {
	*httptest.Server
	hits atomic.Int32
	fail atomic.Bool
}

func newTraktServer(t *testing.T) *traktServer {
	t.Helper()
	ts := &traktServer{}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.hits.Add(1)
		if ts.fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasPrefix(r.URL.Path, "/sync/history/movies"):
			_, _ = w.Write([]byte(`[{"id":1,"watched_at":"2024-03-01T20:00:00Z","action":"watch","type":"movie","movie":{"title":"Heat","year":1995,"ids":{"trakt":1,"imdb":"tt0113277"}}}]`))
		case r.URL.Path == "/sync/watchlist/remove":
			_, _ = w.Write([]byte(`{"deleted":{"movies":1}}`))
		default:
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"added":{"movies":1}}`))
		}
	}))
	t.Cleanup(ts.Server.Close)
	return ts
}

type testEnv struct {
	handler http.Handler
	store   *memstoretest.MockStore
	chat    *stubChat
	trakt   *traktServer
}

// newTestEnv wires a gateway against in-memory doubles. traktURL empty
// means an unconfigured tracking-service client.
func newTestEnv(t *testing.T, traktURL string, cfg Config) *testEnv {
	t.Helper()

	store := memstoretest.NewMockStore()
	uploader := memstore.NewUploader(store, t.TempDir(), nil)
	searcher := memstore.NewSearcher(store, nil)

	traktCfg := trakt.Config{BaseURL: traktURL}
	if traktURL != "" {
		traktCfg.ClientID = "cid"
		traktCfg.AccessToken = "token"
	}
	client := trakt.NewClient(traktCfg)

	chat := &stubChat{reply: assistant.Reply{Content: "noted"}}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	g := New(cfg, Deps{
		Codec:    record.NewCodec(),
		Uploader: uploader,
		Searcher: searcher,
		Trakt:    client,
		Importer: importer.New(client, uploader, logger),
		Chat:     chat,
		Model:    "test-model",
	}, logger)

	return &testEnv{handler: g.Handler(), store: store, chat: chat}
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("response is not JSON: %v\n%s", err, rec.Body.String())
		}
	}
	return rec, decoded
}

func storedFact(t *testing.T, store *memstoretest.MockStore, fileID string) record.Fact {
	t.Helper()
	content := store.FileContent(fileID)
	if content == "" {
		t.Fatalf("no content stored for %s", fileID)
	}
	fact, _, err := record.Decode([]byte(strings.TrimSpace(content)))
	if err != nil {
		t.Fatalf("stored line does not decode: %v", err)
	}
	return fact
}

func TestMarkSeen_MissingTitleMakesNoExternalCalls(t *testing.T) {
	t.Parallel()
	ts := newTraktServer(t)
	env := newTestEnv(t, ts.URL, Config{})

	for _, body := range []string{`{}`, `{"title":"  "}`, `{"title":123}`} {
		rec, _ := doJSON(t, env.handler, http.MethodPost, "/mark-seen", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, rec.Code)
		}
	}
	if env.store.UploadCalls != 0 {
		t.Errorf("UploadCalls = %d, want 0", env.store.UploadCalls)
	}
	if n := ts.hits.Load(); n != 0 {
		t.Errorf("tracking service hits = %d, want 0", n)
	}
}

func TestMarkSeen_WritesRecordAndMirrors(t *testing.T) {
	t.Parallel()
	ts := newTraktServer(t)
	env := newTestEnv(t, ts.URL, Config{})

	rec, resp := doJSON(t, env.handler, http.MethodPost, "/mark-seen",
		`{"title":"Heat","year":1995,"trakt_id":1,"imdb":"tt0113277","rating":9.5,"tags":["crime"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if resp["ok"] != true {
		t.Fatalf("ok = %v, want true", resp["ok"])
	}

	fileID, _ := resp["file_id"].(string)
	fact := storedFact(t, env.store, fileID)
	if fact.Type != record.TypeMovieSeen || fact.State != record.StateSeen {
		t.Errorf("type/state = %s/%s", fact.Type, fact.State)
	}
	if fact.Title != "Heat" || fact.Source != "manual" {
		t.Errorf("title/source = %s/%s", fact.Title, fact.Source)
	}
	if fact.TraktID == nil || *fact.TraktID != "1" {
		t.Errorf("trakt_id not normalized from number: %v", fact.TraktID)
	}

	tr, ok := resp["trakt"].(map[string]any)
	if !ok || tr["synced"] != true {
		t.Errorf("trakt detail = %v, want synced", resp["trakt"])
	}
	if n := ts.hits.Load(); n != 1 {
		t.Errorf("tracking service hits = %d, want 1", n)
	}
}

func TestMarkSeen_MirrorFailureKeepsRecord(t *testing.T) {
	t.Parallel()
	ts := newTraktServer(t)
	ts.fail.Store(true)
	env := newTestEnv(t, ts.URL, Config{})

	rec, resp := doJSON(t, env.handler, http.MethodPost, "/mark-seen",
		`{"title":"Heat","imdb":"tt0113277"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if resp["ok"] != true {
		t.Fatalf("ok = %v, want true", resp["ok"])
	}
	tr, ok := resp["trakt"].(map[string]any)
	if !ok || tr["error"] == nil {
		t.Fatalf("trakt detail = %v, want nested error", resp["trakt"])
	}
	if env.store.UploadCalls != 1 {
		t.Errorf("UploadCalls = %d, want 1", env.store.UploadCalls)
	}
}

func TestMarkSeen_UnconfiguredTraktSkipsMirror(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "", Config{})

	rec, resp := doJSON(t, env.handler, http.MethodPost, "/mark-seen",
		`{"title":"Heat","imdb":"tt0113277"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if resp["ok"] != true || resp["trakt"] != nil {
		t.Errorf("resp = %v, want ok with no trakt detail", resp)
	}
	if env.store.UploadCalls != 1 {
		t.Errorf("UploadCalls = %d, want 1", env.store.UploadCalls)
	}
}

func TestMarkSeen_SyncOptOut(t *testing.T) {
	t.Parallel()
	ts := newTraktServer(t)
	env := newTestEnv(t, ts.URL, Config{})

	rec, _ := doJSON(t, env.handler, http.MethodPost, "/mark-seen",
		`{"title":"Heat","imdb":"tt0113277","syncTrakt":false}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if n := ts.hits.Load(); n != 0 {
		t.Errorf("tracking service hits = %d, want 0", n)
	}
}

func TestMarkSeen_StoreFailure(t *testing.T) {
	t.Parallel()
	ts := newTraktServer(t)
	env := newTestEnv(t, ts.URL, Config{})
	env.store.UploadErr = memstoretest.ErrNotFound

	rec, resp := doJSON(t, env.handler, http.MethodPost, "/mark-seen", `{"title":"Heat"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if resp["error"] == nil || resp["details"] == nil {
		t.Errorf("resp = %v, want error with details", resp)
	}
	if n := ts.hits.Load(); n != 0 {
		t.Errorf("tracking service hits = %d, want 0 after store failure", n)
	}
}

func TestWatchlist_RequiresExternalID(t *testing.T) {
	t.Parallel()
	ts := newTraktServer(t)
	env := newTestEnv(t, ts.URL, Config{})

	rec, _ := doJSON(t, env.handler, http.MethodPost, "/trakt/watchlist/add", `{"title":"Heat"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if env.store.UploadCalls != 0 || ts.hits.Load() != 0 {
		t.Errorf("external calls made despite validation failure")
	}
}

func TestWatchlist_AddAndRemoveRecordTypes(t *testing.T) {
	t.Parallel()
	ts := newTraktServer(t)
	env := newTestEnv(t, ts.URL, Config{})

	rec, resp := doJSON(t, env.handler, http.MethodPost, "/trakt/watchlist/add",
		`{"title":"Heat","imdb":"tt0113277"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("add status = %d", rec.Code)
	}
	fact := storedFact(t, env.store, resp["file_id"].(string))
	if fact.Type != record.TypeMovieWatchlist || fact.State != record.StateInWatchlist {
		t.Errorf("add type/state = %s/%s", fact.Type, fact.State)
	}

	rec, resp = doJSON(t, env.handler, http.MethodPost, "/trakt/watchlist/remove",
		`{"title":"Heat","imdb":"tt0113277"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("remove status = %d", rec.Code)
	}
	fact = storedFact(t, env.store, resp["file_id"].(string))
	if fact.Type != record.TypeMovieWatchlistRemoved || fact.State != record.StateRemovedFromWatchlist {
		t.Errorf("remove type/state = %s/%s", fact.Type, fact.State)
	}
}

func TestWatchlist_MirrorFailureWithoutMemoryWriteFails(t *testing.T) {
	t.Parallel()
	ts := newTraktServer(t)
	ts.fail.Store(true)
	env := newTestEnv(t, ts.URL, Config{})

	rec, _ := doJSON(t, env.handler, http.MethodPost, "/trakt/watchlist/add",
		`{"imdb":"tt0113277","writeMemory":false}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	if env.store.UploadCalls != 0 {
		t.Errorf("UploadCalls = %d, want 0", env.store.UploadCalls)
	}
}

func TestWatchlist_MirrorFailureWithMemoryWriteSucceeds(t *testing.T) {
	t.Parallel()
	ts := newTraktServer(t)
	ts.fail.Store(true)
	env := newTestEnv(t, ts.URL, Config{})

	rec, resp := doJSON(t, env.handler, http.MethodPost, "/trakt/watchlist/add",
		`{"imdb":"tt0113277"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	tr, ok := resp["trakt"].(map[string]any)
	if !ok || tr["error"] == nil {
		t.Errorf("trakt detail = %v, want nested error", resp["trakt"])
	}
	if env.store.UploadCalls != 1 {
		t.Errorf("UploadCalls = %d, want 1", env.store.UploadCalls)
	}
}

func TestImport_UnconfiguredReturns503(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "", Config{})

	rec, _ := doJSON(t, env.handler, http.MethodPost, "/import-trakt-history", `{}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestImport_BatchesHistory(t *testing.T) {
	t.Parallel()
	ts := newTraktServer(t)
	env := newTestEnv(t, ts.URL, Config{})

	rec, resp := doJSON(t, env.handler, http.MethodPost, "/import-trakt-history", `{"limit":10}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if resp["imported"] != float64(1) {
		t.Errorf("imported = %v, want 1", resp["imported"])
	}
	if env.store.UploadCalls != 1 {
		t.Errorf("UploadCalls = %d, want 1", env.store.UploadCalls)
	}
}

func TestImport_NegativeLimit(t *testing.T) {
	t.Parallel()
	ts := newTraktServer(t)
	env := newTestEnv(t, ts.URL, Config{})

	rec, _ := doJSON(t, env.handler, http.MethodPost, "/import-trakt-history", `{"limit":-1}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if n := ts.hits.Load(); n != 0 {
		t.Errorf("tracking service hits = %d, want 0", n)
	}
}

func TestChat_MissingMessage(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "", Config{})

	rec, _ := doJSON(t, env.handler, http.MethodPost, "/agent/chat", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestChat_ReturnsReplyAndSession(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "", Config{})

	rec, resp := doJSON(t, env.handler, http.MethodPost, "/agent/chat",
		`{"message":"I watched Heat","sessionId":"abc"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if resp["reply"] != "noted" || resp["sessionId"] != "sess-1" {
		t.Errorf("resp = %v", resp)
	}
	if env.chat.lastSessionID != "abc" || env.chat.lastMessage != "I watched Heat" {
		t.Errorf("chat got session %q message %q", env.chat.lastSessionID, env.chat.lastMessage)
	}
}

func TestSearch_ScansStoredRecords(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "", Config{})
	env.store.Seed(`{"type":"movie_seen","title":"Heat","tags":["crime"],"marked_at":"2024-01-01T00:00:00Z"}` + "\n")

	req := httptest.NewRequest(http.MethodGet, "/memory/search?q=heat&tags=crime", nil)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		OK      bool                    `json:"ok"`
		Results []memstore.SearchResult `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Kind != "movie_seen" {
		t.Fatalf("results = %+v", resp.Results)
	}
}

func TestSearch_Validation(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "", Config{})

	for _, path := range []string{"/memory/search", "/memory/search?q=x&top_k=51", "/memory/search?q=x&top_k=no"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", path, rec.Code)
		}
	}
}

func TestAuth_BearerToken(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "", Config{BearerToken: "secret"})

	req := httptest.NewRequest(http.MethodPost, "/agent/chat", strings.NewReader(`{"message":"hi"}`))
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("without token: status = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/agent/chat", strings.NewReader(`{"message":"hi"}`))
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("with token: status = %d, want 200", rec.Code)
	}

	// Public routes stay open.
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("health: status = %d, want 200", rec.Code)
	}
}

func TestInfoAndMetricsEndpoints(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "", Config{})

	rec, resp := doJSON(t, env.handler, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK || resp["name"] != "a-movies" {
		t.Errorf("info: status = %d resp = %v", rec.Code, resp)
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	mrec := httptest.NewRecorder()
	env.handler.ServeHTTP(mrec, req)
	if mrec.Code != http.StatusOK {
		t.Errorf("metrics: status = %d, want 200", mrec.Code)
	}
}
