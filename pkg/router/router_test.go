package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"lume-companion/backend/ai"
	"lume-companion/backend/internal/service"
	"lume-companion/backend/internal/store"
	"lume-companion/backend/internal/typing"
	"lume-companion/backend/internal/ws"
	"lume-companion/backend/pkg/cache"
	"lume-companion/backend/pkg/config"
	"lume-companion/backend/pkg/di"
	"lume-companion/backend/pkg/health"
	"lume-companion/backend/pkg/logger"
	"lume-companion/backend/pkg/notify"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.New(logger.Config{Level: "error", JSON: true})
	st := store.NewKVStore(store.NewMemoryKV(), log)
	notifier := notify.NewBroadcaster(log)

	roster, err := service.NewRoster(st, notifier, log)
	require.NoError(t, err)

	genClient := ai.NewClient(log, notifier, ai.WithTimeout(time.Second))
	presenter := typing.NewPresenter(time.Millisecond)
	hub := ws.NewHub(nil, log)
	chat := service.NewChat(roster, genClient, presenter, log, service.ChatOptions{
		Timeout: time.Second,
		Events:  hub,
	})
	hub.SetSubmitter(chat)

	checker := health.NewChecker(log, time.Hour)
	checker.RegisterStoreCheck(func() error {
		_, err := st.LoadCharacters()
		return err
	})
	checker.RunChecks()

	container := &di.Container{
		Config:      config.New(),
		Logger:      log,
		Store:       st,
		Notifier:    notifier,
		Roster:      roster,
		Presenter:   presenter,
		GenClient:   genClient,
		ImageClient: ai.NewImageClient(log, notifier),
		Chat:        chat,
		Hub:         hub,
		ModelCache:  cache.NewCache(cache.DefaultOptions()),
		Health:      checker,
	}

	r := New(container)
	r.SetupRoutes()
	return r
}

func doRequest(r *Router, method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.Engine.ServeHTTP(w, req)
	return w
}

func TestHealthRoute(t *testing.T) {
	r := newTestRouter(t)

	w := doRequest(r, http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestCharacterLifecycleOverHTTP(t *testing.T) {
	r := newTestRouter(t)

	w := doRequest(r, http.MethodPost, "/api/v1/characters",
		`{"name":"Maya","description":"a cheerful baker","personality":{"kinkiness":20,"dominance":50,"submissiveness":50}}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Maya"`)

	w = doRequest(r, http.MethodGet, "/api/v1/characters", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Maya")
}

func TestCreateCharacterWithoutNameRejected(t *testing.T) {
	r := newTestRouter(t)

	w := doRequest(r, http.MethodPost, "/api/v1/characters", `{"description":"nameless"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "CHARACTER_NAME_REQUIRED")
}

func TestUnknownCharacterRoutesReturn404(t *testing.T) {
	r := newTestRouter(t)

	w := doRequest(r, http.MethodGet, "/api/v1/characters/ghost", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "CHARACTER_NOT_FOUND")

	w = doRequest(r, http.MethodGet, "/api/v1/characters/ghost/messages", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(r, http.MethodDelete, "/api/v1/characters/ghost", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPostMessageAccepted(t *testing.T) {
	r := newTestRouter(t)

	w := doRequest(r, http.MethodPost, "/api/v1/characters",
		`{"name":"Maya","personality":{"kinkiness":50}}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	// The submit is accepted with the committed user message; the reply
	// arrives later over the websocket.
	w = doRequest(r, http.MethodPost, "/api/v1/characters/"+created.ID+"/messages", `{"content":"hello"}`)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), `"isUser":true`)

	w = doRequest(r, http.MethodPost, "/api/v1/characters/"+created.ID+"/messages", `{"content":"  "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "EMPTY_MESSAGE")
}

func TestSettingsRoutes(t *testing.T) {
	r := newTestRouter(t)

	w := doRequest(r, http.MethodGet, "/api/v1/settings", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"llm"`)

	w = doRequest(r, http.MethodPut, "/api/v1/settings/models/llm", `{"name":"llama3"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"llama3"`)

	w = doRequest(r, http.MethodPut, "/api/v1/settings/models/bogus", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "UNKNOWN_BACKEND")

	w = doRequest(r, http.MethodPut, "/api/v1/settings/card-size", `{"cardSize":"large"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"cardSize":"large"`)
}

func TestWebSocketRouteRegistered(t *testing.T) {
	r := newTestRouter(t)

	// A plain GET without upgrade headers is rejected by the upgrader, but
	// the route itself must exist.
	w := doRequest(r, http.MethodGet, "/ws", "")
	assert.NotEqual(t, http.StatusNotFound, w.Code)
}
