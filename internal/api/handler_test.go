package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskmarket/internal/eventbus"
	"github.com/kazz187/taskmarket/internal/store/kvstore"
	"github.com/kazz187/taskmarket/internal/workflow"
	"github.com/kazz187/taskmarket/pkg/cerr"
	"github.com/kazz187/taskmarket/pkg/clog"
	"github.com/kazz187/taskmarket/pkg/storage"
)

type testServer struct {
	t      *testing.T
	srv    *httptest.Server
	events <-chan *eventbus.Event
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	bus := eventbus.New()
	_, events := bus.Subscribe(64)
	h := NewHandler(workflow.NewEngine(kvstore.New(local)), bus)

	r := chi.NewRouter()
	r.Use(clog.SlogChiMiddleware(), cerr.NewJSONResponseChiMiddleware())
	r.Mount("/api/v1", h.Routes())
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testServer{t: t, srv: srv, events: events}
}

type who struct {
	id, role string
}

var (
	emp     = who{"emp", "employer"}
	legacy  = who{"emp", "employeer"}
	workerA = who{"worker-a", "worker"}
	workerB = who{"worker-b", "worker"}
)

func (ts *testServer) do(as who, method, path, body string) (int, map[string]any) {
	ts.t.Helper()
	var rd *bytes.Reader
	if body != "" {
		rd = bytes.NewReader([]byte(body))
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, ts.srv.URL+"/api/v1"+path, rd)
	require.NoError(ts.t, err)
	if as.id != "" {
		req.Header.Set(HeaderActorID, as.id)
		req.Header.Set(HeaderActorRole, as.role)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(ts.t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(ts.t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func (ts *testServer) nextEvent() *eventbus.Event {
	ts.t.Helper()
	select {
	case ev := <-ts.events:
		return ev
	default:
		ts.t.Fatal("no event published")
		return nil
	}
}

func TestHandler_Lifecycle(t *testing.T) {
	ts := newTestServer(t)

	status, body := ts.do(emp, http.MethodPost, "/tasks", `{"title":"Fix the sink","budget":"¥100","location":"Kyoto"}`)
	require.Equal(t, http.StatusCreated, status, body)
	taskID := body["id"].(string)
	assert.Equal(t, "Open", body["status"])
	assert.InDelta(t, 100, body["budget"], 0)
	assert.Equal(t, eventbus.TaskCreated, ts.nextEvent().Type)

	status, body = ts.do(workerA, http.MethodGet, "/tasks/"+taskID, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "submit_offer", body["primary"])

	status, body = ts.do(workerA, http.MethodPost, "/tasks/"+taskID+"/offers", `{"amount":80}`)
	require.Equal(t, http.StatusCreated, status, body)
	offerID := body["id"].(string)
	assert.Equal(t, eventbus.OfferSubmitted, ts.nextEvent().Type)

	status, _ = ts.do(workerA, http.MethodPost, "/tasks/"+taskID+"/offers", `{"amount":"70"}`)
	assert.Equal(t, cerr.FailedPrecondition.HTTPCode(), status)

	status, body = ts.do(workerB, http.MethodPost, "/tasks/"+taskID+"/offers", `{"amount":"abc"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_argument", body["code"])

	status, body = ts.do(legacy, http.MethodPost, "/tasks/"+taskID+"/offers/"+offerID+"/accept", "")
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "Assigned", body["status"])
	ev := ts.nextEvent()
	assert.Equal(t, eventbus.OfferAccepted, ev.Type)
	assert.Equal(t, "worker-a", ev.Metadata["worker_id"])
	assert.Equal(t, "emp", ev.Metadata["employer_id"])

	status, body = ts.do(emp, http.MethodGet, "/tasks/"+taskID, "")
	require.Equal(t, http.StatusOK, status)
	assert.InDelta(t, 80, body["price"], 0)

	status, _ = ts.do(emp, http.MethodPost, "/tasks/"+taskID+"/offers/"+offerID+"/accept", "")
	assert.Equal(t, cerr.FailedPrecondition.HTTPCode(), status)

	status, body = ts.do(workerA, http.MethodPost, "/tasks/"+taskID+"/done", "")
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "Applied", body["status"])

	status, body = ts.do(workerA, http.MethodPost, "/tasks/"+taskID+"/pay", "")
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "permission_denied", body["code"])

	status, body = ts.do(emp, http.MethodPost, "/tasks/"+taskID+"/pay", "")
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "Completed", body["status"])
	assert.Equal(t, true, body["paid"])

	status, body = ts.do(workerA, http.MethodGet, "/tasks/mine", "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["tasks"], 1)
}

func TestHandler_ListingAndEdit(t *testing.T) {
	ts := newTestServer(t)
	for _, title := range []string{"Bake bread", "assemble shelf", "Clean windows"} {
		status, _ := ts.do(emp, http.MethodPost, "/tasks", `{"title":"`+title+`","budget":50}`)
		require.Equal(t, http.StatusCreated, status)
	}

	status, body := ts.do(workerA, http.MethodGet, "/tasks?sort=title", "")
	require.Equal(t, http.StatusOK, status)
	tasks := body["tasks"].([]any)
	require.Len(t, tasks, 3)
	assert.Equal(t, "assemble shelf", tasks[0].(map[string]any)["title"])

	status, body = ts.do(workerA, http.MethodGet, "/tasks?q=BREAD", "")
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body["tasks"], 1)
	id := body["tasks"].([]any)[0].(map[string]any)["id"].(string)

	status, _ = ts.do(workerA, http.MethodGet, "/tasks?sort=popularity", "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = ts.do(emp, http.MethodPatch, "/tasks/"+id, `{"budget":"1,500"}`)
	require.Equal(t, http.StatusOK, status, body)
	assert.InDelta(t, 1500, body["budget"], 0)

	status, _ = ts.do(workerA, http.MethodPatch, "/tasks/"+id, `{"title":"mine now"}`)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = ts.do(emp, http.MethodGet, "/tasks/mine", "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["tasks"], 3)

	status, _ = ts.do(emp, http.MethodDelete, "/tasks/"+id, "")
	require.Equal(t, http.StatusOK, status)
	status, body = ts.do(emp, http.MethodGet, "/tasks/"+id, "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", body["code"])
}

func TestHandler_RejectsMissingActor(t *testing.T) {
	ts := newTestServer(t)
	status, body := ts.do(who{}, http.MethodGet, "/tasks", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "unauthenticated", body["code"])

	status, _ = ts.do(who{"x", "admin"}, http.MethodGet, "/tasks", "")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestHandler_RejectsBadBodies(t *testing.T) {
	ts := newTestServer(t)
	status, body := ts.do(emp, http.MethodPost, "/tasks", `{"title":"x","budget":10,"colour":"red"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid request body", body["message"])

	status, body = ts.do(emp, http.MethodPost, "/tasks", `{"title":"","budget":10}`)
	assert.Equal(t, http.StatusBadRequest, status)
	details, _ := body["details"].([]any)
	require.NotEmpty(t, details)
	assert.True(t, strings.Contains(details[0].(map[string]any)["message"].(string), "title"))

	status, _ = ts.do(workerA, http.MethodPost, "/tasks", `{"title":"x","budget":10}`)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestAmount_UnmarshalJSON(t *testing.T) {
	var a Amount
	require.NoError(t, json.Unmarshal([]byte(`80`), &a))
	assert.Equal(t, Amount(80), a)
	require.NoError(t, json.Unmarshal([]byte(`"1,200"`), &a))
	assert.Equal(t, Amount(1200), a)
	require.NoError(t, json.Unmarshal([]byte(`12.6`), &a))
	assert.Equal(t, Amount(13), a)
	assert.Error(t, json.Unmarshal([]byte(`"nope"`), &a))
	assert.Error(t, json.Unmarshal([]byte(`true`), &a))
}
