package k8s

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/oapi/v1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"kind":"APIResourceList","groupVersion":"v1","resources":[
			{"name":"routes","namespaced":true,"kind":"Route","verbs":["get"]},
			{"name":"routes/status","namespaced":true,"kind":"Route","verbs":["get"]},
			{"name":"templates","namespaced":true,"kind":"Template","verbs":["get"]}]}`))
	})
	mux.HandleFunc("/api/v1/namespaces/demo/secrets", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"kind":"SecretList","items":[]}`))
	})
	mux.HandleFunc("/api/v1/namespaces/demo/secrets/missing", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"kind":"Status","status":"Failure","reason":"NotFound","code":404}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestTransport_Read(t *testing.T) {
	srv := newTestServer(t)
	tr, err := NewTransport(srv.URL, "tok", true)
	require.NoError(t, err)

	body, err := tr.Read(context.Background(), "/api/v1/namespaces/demo/secrets")
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"SecretList","items":[]}`, string(body))
}

func TestTransport_ReadErrorKeepsPayload(t *testing.T) {
	srv := newTestServer(t)
	tr, err := NewTransport(srv.URL, "tok", true)
	require.NoError(t, err)

	_, err = tr.Read(context.Background(), "/api/v1/namespaces/demo/secrets/missing")
	var readErr *ReadError
	require.True(t, errors.As(err, &readErr))
	assert.True(t, readErr.NotFound())
	assert.Contains(t, string(readErr.Body), "NotFound")
}

func TestTransport_Discover(t *testing.T) {
	srv := newTestServer(t)
	tr, err := NewTransport(srv.URL, "tok", true)
	require.NoError(t, err)

	names, err := tr.Discover(context.Background(), "/oapi/v1")
	require.NoError(t, err)
	assert.Equal(t, []string{"routes", "routes/status", "templates"}, names)
}

func TestCredentialsFromKubeconfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")
	kubeconfig := `apiVersion: v1
kind: Config
current-context: dev
clusters:
- name: c1
  cluster:
    server: https://api.example:8443
contexts:
- name: dev
  context:
    cluster: c1
    user: u1
users:
- name: u1
  user:
    token: sha256~abc
`
	require.NoError(t, os.WriteFile(path, []byte(kubeconfig), 0600))

	creds, err := CredentialsFromKubeconfig(path)
	require.NoError(t, err)
	assert.Equal(t, "dev", creds.Context)
	assert.Equal(t, "https://api.example:8443", creds.Server)
	assert.Equal(t, "sha256~abc", creds.Token)
}
