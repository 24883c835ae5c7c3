package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"github.com/km-arc/go-inject/framework/container"
	gohttp "github.com/km-arc/go-inject/framework/http"
)

// ── helpers ──────────────────────────────────────────────────────────────────

func newResponse(t *testing.T) (*gohttp.Response, *httptest.ResponseRecorder) {
	t.Helper()
	rr := httptest.NewRecorder()
	return gohttp.NewResponse(rr), rr
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&m); err != nil {
		t.Fatalf("decodeJSON: %v", err)
	}
	return m
}

// ── Request ───────────────────────────────────────────────────────────────────

func TestRequest_Bind(t *testing.T) {
	req := gohttp.NewRequest(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Ada"}`)))

	var body struct{ Name string }
	if err := req.Bind(&body); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if body.Name != "Ada" {
		t.Errorf("Name: got %q want %q", body.Name, "Ada")
	}
}

func TestRequest_BindRejects(t *testing.T) {
	for name, payload := range map[string]string{"empty": "", "invalid": "{nope"} {
		t.Run(name, func(t *testing.T) {
			req := gohttp.NewRequest(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload)))
			var bad *gohttp.BadRequestError
			if err := req.Bind(&struct{}{}); !errors.As(err, &bad) {
				t.Errorf("expected BadRequestError, got %v", err)
			}
		})
	}
}

func TestRequest_QueryAndRouteParam(t *testing.T) {
	r := chi.NewRouter()
	var lang, fallback, name string
	r.Get("/greet/{name}", func(w http.ResponseWriter, raw *http.Request) {
		req := gohttp.NewRequest(raw)
		lang = req.Query("lang")
		fallback = req.Query("missing", "en")
		name = req.RouteParam("name")
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/greet/ada?lang=es", nil))

	if lang != "es" || fallback != "en" || name != "ada" {
		t.Errorf("got lang=%q fallback=%q name=%q", lang, fallback, name)
	}
}

// ── Response ──────────────────────────────────────────────────────────────────

func TestResponse_Success(t *testing.T) {
	res, rr := newResponse(t)
	res.Success([]string{"en", "es"})

	if rr.Code != http.StatusOK {
		t.Errorf("status: got %d want 200", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q want application/json", ct)
	}
	m := decodeJSON(t, rr)
	data, ok := m["data"].([]any)
	if !ok || len(data) != 2 {
		t.Fatalf("expected data envelope, got %v", m["data"])
	}
}

func TestResponse_NotFound(t *testing.T) {
	res, rr := newResponse(t)
	res.NotFound("nothing here")

	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d want 404", rr.Code)
	}
	if m := decodeJSON(t, rr); m["message"] != "nothing here" {
		t.Errorf("message: got %v", m["message"])
	}
}

func TestResponse_Failure(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		kind   any
	}{
		{"bad request", &gohttp.BadRequestError{Reason: "empty request body"}, http.StatusBadRequest, nil},
		{"cycle", errors.Wrap(container.ErrCircularDependency, "A -> B -> A"), http.StatusInternalServerError, "circular_dependency"},
		{"configuration", &container.ConfigError{Reason: "bad"}, http.StatusInternalServerError, "configuration"},
		{"construction", &container.ReflectError{Member: "NewThing", Cause: errors.New("boom")}, http.StatusInternalServerError, "construction"},
		{"plain", errors.New("boom"), http.StatusInternalServerError, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, rr := newResponse(t)
			res.Failure(tt.err)

			if rr.Code != tt.status {
				t.Errorf("status: got %d want %d", rr.Code, tt.status)
			}
			if m := decodeJSON(t, rr); m["kind"] != tt.kind {
				t.Errorf("kind: got %v want %v", m["kind"], tt.kind)
			}
		})
	}
}
