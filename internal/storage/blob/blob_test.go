package blob

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/receiptsplit/internal/storage"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func TestFSStore(t *testing.T) {
	ctx := context.Background()
	store, err := NewFSStore(t.TempDir(), "http://localhost:8080/blobs/", 1024)
	require.NoError(t, err)

	t.Run("put detects type and builds URL", func(t *testing.T) {
		obj, err := store.Put(ctx, "receipts/r1/photo", pngHeader)
		require.NoError(t, err)
		assert.Equal(t, "receipts/r1/photo.png", obj.Key)
		assert.Equal(t, "image/png", obj.ContentType)
		assert.Equal(t, "http://localhost:8080/blobs/receipts/r1/photo.png", obj.URL)

		key, ok := store.KeyFromURL(obj.URL)
		assert.True(t, ok)
		assert.Equal(t, obj.Key, key)

		rc, err := store.Open(ctx, obj.Key)
		require.NoError(t, err)
		defer rc.Close()
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, pngHeader, data)
	})

	t.Run("rejects non images", func(t *testing.T) {
		_, err := store.Put(ctx, "receipts/r1/notes", []byte("just some text"))
		assert.ErrorIs(t, err, ErrUnsupportedType)
	})

	t.Run("rejects oversized blobs", func(t *testing.T) {
		big := make([]byte, 2048)
		copy(big, pngHeader)
		_, err := store.Put(ctx, "receipts/r1/big", big)
		assert.ErrorIs(t, err, ErrTooLarge)
	})

	t.Run("rejects escaping keys", func(t *testing.T) {
		_, err := store.Open(ctx, "../etc/passwd")
		assert.ErrorIs(t, err, ErrInvalidKey)
		_, err = store.Open(ctx, "/abs")
		assert.ErrorIs(t, err, ErrInvalidKey)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		obj, err := store.Put(ctx, "receipts/r2/photo", []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00"))
		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", obj.ContentType)

		require.NoError(t, store.Delete(ctx, obj.Key))
		require.NoError(t, store.Delete(ctx, obj.Key))

		_, err = store.Open(ctx, obj.Key)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestFSStoreHandler(t *testing.T) {
	ctx := context.Background()
	store, err := NewFSStore(t.TempDir(), "http://localhost:8080/blobs", 1024)
	require.NoError(t, err)
	obj, err := store.Put(ctx, "receipts/r1/photo", pngHeader)
	require.NoError(t, err)

	srv := httptest.NewServer(store.Handler())
	t.Cleanup(srv.Close)

	get := func(t *testing.T, method, path string) *http.Response {
		t.Helper()
		req, err := http.NewRequest(method, srv.URL+path, nil)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	t.Run("serves a stored blob", func(t *testing.T) {
		resp := get(t, http.MethodGet, "/"+obj.Key)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, pngHeader, body)
	})

	t.Run("does not list directories", func(t *testing.T) {
		for _, p := range []string{"/", "/receipts", "/receipts/", "/receipts/r1/"} {
			resp := get(t, http.MethodGet, p)
			assert.Equal(t, http.StatusNotFound, resp.StatusCode, p)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.NotContains(t, string(body), "r1", p)
		}
	})

	t.Run("missing and escaping keys", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, get(t, http.MethodGet, "/receipts/r1/other.png").StatusCode)
		assert.Equal(t, http.StatusNotFound, get(t, http.MethodGet, "/receipts/../../etc/passwd").StatusCode)
	})

	t.Run("read only", func(t *testing.T) {
		assert.Equal(t, http.StatusMethodNotAllowed, get(t, http.MethodDelete, "/"+obj.Key).StatusCode)
	})
}
