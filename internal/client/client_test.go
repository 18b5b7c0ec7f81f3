package client_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kiranshivaraju/keyserver/internal/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method string
	path   string
	body   map[string]string
}

// newServer answers every request with status and body, recording what it saw.
func newServer(t *testing.T, status int, body string) (*httptest.Server, *recorded) {
	t.Helper()
	rec := &recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.method = r.Method
		rec.path = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		if len(raw) > 0 {
			require.NoError(t, json.Unmarshal(raw, &rec.body))
		}
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func TestVerify(t *testing.T) {
	srv, rec := newServer(t, http.StatusOK, `{"key":"ABC123"}`)
	c := client.New(srv.URL, "")

	resp, err := c.Verify(context.Background(), "ABC123", "M1")
	require.NoError(t, err)

	assert.True(t, resp.OK())
	assert.Equal(t, `{"key":"ABC123"}`, resp.Body)
	assert.Equal(t, http.MethodPost, rec.method)
	assert.Equal(t, "/api/verify", rec.path)
	assert.Equal(t, map[string]string{"key": "ABC123", "machine_id": "M1"}, rec.body)
}

func TestAdd_SendsAdminKey(t *testing.T) {
	srv, rec := newServer(t, http.StatusCreated, "Activation key added")
	c := client.New(srv.URL+"/", "s3cret")

	resp, err := c.Add(context.Background(), "ABC123", "a@b.com", "")
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, resp.Status)
	assert.Equal(t, "/api/add", rec.path)
	assert.Equal(t, "s3cret", rec.body["admin"])
	assert.NotContains(t, rec.body, "expires")
}

func TestAdd_WithExpiry(t *testing.T) {
	srv, rec := newServer(t, http.StatusCreated, "")
	c := client.New(srv.URL, "s3cret")

	_, err := c.Add(context.Background(), "ABC123", "a@b.com", "2030-01-01")
	require.NoError(t, err)
	assert.Equal(t, "2030-01-01", rec.body["expires"])
}

func TestTable_NoContent(t *testing.T) {
	srv, rec := newServer(t, http.StatusNoContent, "")
	c := client.New(srv.URL, "s3cret")

	resp, err := c.Table(context.Background())
	require.NoError(t, err)

	assert.Equal(t, http.StatusNoContent, resp.Status)
	assert.Empty(t, resp.Body)
	assert.Equal(t, "/api/table", rec.path)
}

func TestRemove_SpecificKey(t *testing.T) {
	srv, rec := newServer(t, http.StatusOK, "Activation key(s) removed for user a@b.com")
	c := client.New(srv.URL, "s3cret")

	resp, err := c.Remove(context.Background(), "a@b.com", "K1")
	require.NoError(t, err)

	assert.True(t, resp.OK())
	assert.Equal(t, http.MethodDelete, rec.method)
	assert.Equal(t, "/api/delete", rec.path)
	assert.Equal(t, "K1", rec.body["specify_key"])
}

func TestRemove_AllKeys(t *testing.T) {
	srv, rec := newServer(t, http.StatusOK, "")
	c := client.New(srv.URL, "s3cret")

	_, err := c.Remove(context.Background(), "a@b.com", "")
	require.NoError(t, err)
	assert.NotContains(t, rec.body, "specify_key")
}

func TestBuyLink(t *testing.T) {
	srv, rec := newServer(t, http.StatusOK, `{"link":"https://example.com/buy"}`)
	c := client.New(srv.URL, "")

	resp, err := c.BuyLink(context.Background())
	require.NoError(t, err)

	assert.Equal(t, http.MethodGet, rec.method)
	assert.Equal(t, "/where-buy", rec.path)
	assert.Nil(t, rec.body)
	assert.Contains(t, resp.Body, "example.com/buy")
}

func TestErrorStatusIsNotAnError(t *testing.T) {
	srv, _ := newServer(t, http.StatusForbidden, "Activation key is already in use on another machine")
	c := client.New(srv.URL, "")

	resp, err := c.Verify(context.Background(), "ABC123", "M2")
	require.NoError(t, err)
	assert.False(t, resp.OK())
	assert.Equal(t, http.StatusForbidden, resp.Status)
}

func TestUnreachableServer(t *testing.T) {
	c := client.New("http://127.0.0.1:1", "")

	_, err := c.BuyLink(context.Background())
	require.Error(t, err)
}
