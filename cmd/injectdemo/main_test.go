package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-inject/framework/config"
)

func newServer(t *testing.T) http.Handler {
	t.Helper()
	cfg := &config.Config{
		App:      config.AppConfig{Name: "injectdemo", Env: "testing", Port: "0"},
		Inject:   config.InjectConfig{AllowedPackage: reflect.TypeFor[English]().PkgPath()},
		Log:      config.LogConfig{Level: "error", Format: "console"},
		Provided: map[string]string{"greeting_prefix": "Howdy"},
	}
	application, err := build(cfg)
	require.NoError(t, err)
	h, err := application.Handler()
	require.NoError(t, err)
	return h
}

func get(t *testing.T, h http.Handler, path string) (int, map[string]any) {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	return rr.Code, body
}

func TestGreet(t *testing.T) {
	h := newServer(t)

	tests := []struct {
		path    string
		status  int
		message string
	}{
		{"/greet/Ada", http.StatusOK, "Howdy, Ada!"},
		{"/greet/Ada?lang=es", http.StatusOK, "¡Hola, Ada!"},
		{"/greet/Ada?lang=fr", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			code, body := get(t, h, tt.path)
			require.Equal(t, tt.status, code)
			if tt.message == "" {
				assert.Equal(t, "unknown language fr", body["message"])
				return
			}
			data := body["data"].(map[string]any)
			assert.Equal(t, tt.message, data["message"])
			assert.NotEmpty(t, data["at"])
		})
	}
}

func TestGreet_FreshReceiptPerRequest(t *testing.T) {
	h := newServer(t)

	_, first := get(t, h, "/greet/Ada")
	_, second := get(t, h, "/greet/Grace")

	n1 := first["data"].(map[string]any)["receipt"].(float64)
	n2 := second["data"].(map[string]any)["receipt"].(float64)
	assert.Greater(t, n2, n1)
}

func TestLanguagesAndSingletons(t *testing.T) {
	h := newServer(t)

	code, body := get(t, h, "/greet/")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []any{"en", "es"}, body["data"])

	get(t, h, "/greet/Ada")
	code, body = get(t, h, "/singletons")
	require.Equal(t, http.StatusOK, code)
	names := body["data"].([]any)
	assert.Contains(t, names, "main.GreetingController")
	assert.Contains(t, names, "main.systemClock")
	assert.NotContains(t, names, "main.Receipt")
}
