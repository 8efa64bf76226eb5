package source_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"contentsync/internal/source"

	"github.com/stretchr/testify/require"
)

func TestFetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/src-1/records", r.URL.Path)
		require.Equal(t, "secret", r.URL.Query().Get("token"))
		require.Equal(t, "SUCCEEDED", r.URL.Query().Get("status"))
		w.Write([]byte(`[
			{"contentType":"post","title":"Hello"},
			{"contentType":"product","title":"Mug","meta":{"price":"12.00"}}
		]`))
	}))
	defer srv.Close()

	client := source.NewClient(srv.URL)
	records, err := client.Fetch(context.Background(), "secret", "src-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "Hello", records[0].Title)
	require.Equal(t, "product", records[1].ContentType)
}

func TestFetch_MissingToken(t *testing.T) {
	// The check happens before any network I/O: no server at all.
	client := source.NewClient("https://api.provider.example/v2/datasets")
	_, err := client.Fetch(context.Background(), "", "src-1")
	require.ErrorIs(t, err, source.ErrMissingToken)
}

func TestFetch_UpstreamStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := source.NewClient(srv.URL)
	_, err := client.Fetch(context.Background(), "secret", "src-1")

	var statusErr *source.UpstreamStatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusInternalServerError, statusErr.Code)
}

func TestFetch_EmptyDataset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := source.NewClient(srv.URL)
	_, err := client.Fetch(context.Background(), "secret", "src-1")
	require.ErrorIs(t, err, source.ErrEmptyDataset)
}

func TestFetch_Transport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused

	client := source.NewClient(srv.URL)
	_, err := client.Fetch(context.Background(), "secret", "src-1")
	require.ErrorIs(t, err, source.ErrTransport)
}

func TestFetch_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not":"an array"}`))
	}))
	defer srv.Close()

	client := source.NewClient(srv.URL)
	_, err := client.Fetch(context.Background(), "secret", "src-1")
	require.Error(t, err)
	require.False(t, errors.Is(err, source.ErrEmptyDataset))
}
