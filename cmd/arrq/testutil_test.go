package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockServer builds an httptest.Server that checks the request path and
// method before running its handler.
type mockServer struct {
	t          *testing.T
	handler    http.HandlerFunc
	expectPath string
	expectMeth string
	lastQuery  string
	lastBody   []byte
}

func newMockServer(t *testing.T) *mockServer {
	t.Helper()
	return &mockServer{t: t}
}

func (m *mockServer) ExpectPath(path string) *mockServer {
	m.expectPath = path
	return m
}

func (m *mockServer) ExpectMethod(method string) *mockServer {
	m.expectMeth = method
	return m
}

// RespondJSON responds with v encoded as JSON.
func (m *mockServer) RespondJSON(code int, v any) *mockServer {
	m.handler = func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		if err := json.NewEncoder(w).Encode(v); err != nil {
			m.t.Errorf("failed to encode JSON response: %v", err)
		}
	}
	return m
}

// RespondStatus responds with just a status code.
func (m *mockServer) RespondStatus(code int) *mockServer {
	m.handler = func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(code)
	}
	return m
}

// RespondError responds with an error status and body.
func (m *mockServer) RespondError(code int, message string) *mockServer {
	m.handler = func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(code)
		_, _ = w.Write([]byte(message))
	}
	return m
}

// Build starts the server and points serverURL at it until the test ends.
func (m *mockServer) Build() *httptest.Server {
	m.t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.expectPath != "" {
			assert.Equal(m.t, m.expectPath, r.URL.Path, "unexpected request path")
		}
		if m.expectMeth != "" {
			assert.Equal(m.t, m.expectMeth, r.Method, "unexpected request method")
		}
		m.lastQuery = r.URL.RawQuery
		m.lastBody, _ = io.ReadAll(r.Body)
		if m.handler != nil {
			m.handler(w, r)
		}
	}))
	m.t.Cleanup(srv.Close)

	old := serverURL
	serverURL = srv.URL
	m.t.Cleanup(func() { serverURL = old })
	return srv
}

// setFlags sets flags on cmd and restores their defaults when the test ends.
func setFlags(t *testing.T, cmd *cobra.Command, kv map[string]string) {
	t.Helper()
	for name, value := range kv {
		f := cmd.Flags().Lookup(name)
		require.NotNil(t, f, "unknown flag %s", name)
		def := f.DefValue
		require.NoError(t, cmd.Flags().Set(name, value))
		t.Cleanup(func() {
			if sv, ok := f.Value.(interface{ Replace([]string) error }); ok {
				_ = sv.Replace(nil)
			} else {
				_ = f.Value.Set(def)
			}
			f.Changed = false
		})
	}
}
