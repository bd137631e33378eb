package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	path   string
	auth   string
	fields map[string]string
}

func fakeService(t *testing.T, status int, response string) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var requests []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fields := map[string]string{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&fields))
		requests = append(requests, recordedRequest{path: r.URL.Path, auth: r.Header.Get("Authorization"), fields: fields})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func run(args ...string) (string, error) {
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestContextCommand(t *testing.T) {
	srv, requests := fakeService(t, http.StatusOK, `{"context":"=== KONTEXT ===","sessionCount":25,"loadedCount":20}`)

	out, err := run("context", "user-1", "--couple", "couple-1", "--server", srv.URL+"/", "--token", "abc")
	require.NoError(t, err)
	assert.Contains(t, out, "Sessions: 25 (loaded 20)")
	assert.Contains(t, out, "=== KONTEXT ===")

	require.Len(t, *requests, 1)
	req := (*requests)[0]
	assert.Equal(t, "/api/v1/memory/context", req.path)
	assert.Equal(t, "Bearer abc", req.auth)
	assert.Equal(t, map[string]string{"userId": "user-1", "coupleId": "couple-1"}, req.fields)
}

func TestContextCommandEmpty(t *testing.T) {
	srv, _ := fakeService(t, http.StatusOK, `{"context":"","sessionCount":0}`)

	out, err := run("context", "user-1", "--server", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "No analyzed sessions.")
}

func TestEraseCommand(t *testing.T) {
	srv, requests := fakeService(t, http.StatusOK, `{"success":true,"deleted":"all","consentRevoked":true}`)

	out, err := run("erase", "user-1", "--scope", "all", "--yes", "--server", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Erased: all")
	assert.Contains(t, out, "Memory consent revoked.")
	assert.Equal(t, map[string]string{"userId": "user-1", "deleteType": "all"}, (*requests)[0].fields)
	assert.Empty(t, (*requests)[0].auth)
}

func TestEraseCommandRequiresConfirmation(t *testing.T) {
	srv, requests := fakeService(t, http.StatusOK, `{}`)

	_, err := run("erase", "user-1", "--scope", "personal", "--server", srv.URL)
	assert.ErrorContains(t, err, "--yes")
	assert.Empty(t, *requests)
}

func TestEraseCommandServiceError(t *testing.T) {
	srv, _ := fakeService(t, http.StatusBadRequest, `{"error":"Invalid deleteType"}`)

	_, err := run("erase", "user-1", "--scope", "bogus", "--yes", "--server", srv.URL)
	assert.EqualError(t, err, "Invalid deleteType (status 400)")
}
