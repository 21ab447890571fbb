package ocr

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClientRecognize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ocr", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("zoom"))
		assert.Equal(t, "eng+mon", r.URL.Query().Get("lang"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "%PDF-fake", string(body))
		_ = json.NewEncoder(w).Encode(map[string]any{"pages": []string{"page one", "page two"}})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, time.Second)
	pages, err := client.Recognize(context.Background(), []byte("%PDF-fake"), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"page one", "page two"}, pages)
}

func TestHTTPClientServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "tesseract crashed"})
	}))
	defer server.Close()

	_, err := NewHTTPClient(server.URL, time.Second).Recognize(context.Background(), []byte("x"), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tesseract crashed")
}

func TestDisabled(t *testing.T) {
	_, err := Disabled{}.Recognize(context.Background(), nil, DefaultOptions())
	assert.True(t, errors.Is(err, ErrUnavailable))
}
