package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoaderFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "puzzle.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleRecord), 0o644))

	p, err := NewLoader(time.Second).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "2741", p.GameNr)
	assert.Len(t, p.Questions, 4)
}

func TestLoaderStdin(t *testing.T) {
	l := NewLoader(time.Second)
	l.stdin = strings.NewReader(sampleRecord)

	p, err := l.Load(context.Background(), "-")
	require.NoError(t, err)
	assert.Equal(t, 5, p.Grid.Cols)
}

func TestLoaderHTTP(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/game/2741" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(sampleRecord))
	}))
	defer ts.Close()

	l := NewLoader(time.Second)
	p, err := l.Load(context.Background(), ts.URL+"/game/2741")
	require.NoError(t, err)
	assert.Equal(t, 2741, p.GameID)

	_, err = l.Load(context.Background(), ts.URL+"/game/1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestLoaderHTTPCanceled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleRecord))
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewLoader(time.Second).Load(ctx, ts.URL)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoaderMissingFile(t *testing.T) {
	_, err := NewLoader(time.Second).Load(context.Background(), filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
