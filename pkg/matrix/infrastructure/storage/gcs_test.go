package storage

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGCSObjectName(t *testing.T) {
	t.Run("JoinsPrefixKeyAndName", func(t *testing.T) {
		store := gcsStore{prefix: "ds-tex/builds"}

		assert.Equal(t, "ds-tex/builds/bindings-a/ds-tex.x86_64-unknown-linux-gnu.node", store.objectName("bindings-a", "ds-tex.x86_64-unknown-linux-gnu.node"))
		assert.Equal(t, "ds-tex/builds/bindings-a/", store.objectName("bindings-a", ""))
		assert.Equal(t, "ds-tex/builds/", store.objectName("", ""))
	})

	t.Run("OmitsEmptyPrefix", func(t *testing.T) {
		store := gcsStore{}

		assert.Equal(t, "bindings-a/x.node", store.objectName("bindings-a", "x.node"))
		assert.Equal(t, "", store.objectName("", ""))
	})
}

func TestGCSStoreKeys(t *testing.T) {
	t.Run("ListsKeyDirectoriesUnderPrefix", func(t *testing.T) {
		var query string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasSuffix(r.URL.Path, "/b/artifacts/o") {
				http.NotFound(w, r)
				return
			}
			query = r.URL.Query().Get("prefix")
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"kind":     "storage#objects",
				"prefixes": []string{"runs/bindings-b/", "runs/bindings-a/"},
			})
		}))
		defer server.Close()
		t.Setenv("STORAGE_EMULATOR_HOST", strings.TrimPrefix(server.URL, "http://"))
		client, err := storage.NewClient(context.Background())
		require.Nil(t, err)
		defer client.Close()

		// act
		keys, err := NewGCSStore(client, "artifacts", "/runs/").Keys(context.Background(), "bindings-")

		assert.Nil(t, err)
		assert.Equal(t, "runs/bindings-", query)
		assert.Equal(t, []string{"bindings-a", "bindings-b"}, keys)
	})
}

func TestGCSStoreDelete(t *testing.T) {
	t.Run("DeletesEveryObjectUnderKey", func(t *testing.T) {
		var query string
		var deleted []string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch {
			case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/b/artifacts/o"):
				query = r.URL.Query().Get("prefix")
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(map[string]interface{}{
					"kind": "storage#objects",
					"items": []map[string]string{
						{"kind": "storage#object", "bucket": "artifacts", "name": "runs/0123abc/bindings-a/ds-tex.x86_64-unknown-linux-gnu.node"},
					},
				})
			case r.Method == http.MethodDelete:
				deleted = append(deleted, r.URL.Path[strings.Index(r.URL.Path, "/o/")+len("/o/"):])
				w.WriteHeader(http.StatusNoContent)
			default:
				http.NotFound(w, r)
			}
		}))
		defer server.Close()
		t.Setenv("STORAGE_EMULATOR_HOST", strings.TrimPrefix(server.URL, "http://"))
		client, err := storage.NewClient(context.Background())
		require.Nil(t, err)
		defer client.Close()

		// act
		err = NewGCSStore(client, "artifacts", "runs").Delete(context.Background(), "0123abc/bindings-a")

		assert.Nil(t, err)
		assert.Equal(t, "runs/0123abc/bindings-a/", query)
		assert.Equal(t, []string{"runs/0123abc/bindings-a/ds-tex.x86_64-unknown-linux-gnu.node"}, deleted)
	})
}
