package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmvelichko/refsync/internal/logger"
	"github.com/dmvelichko/refsync/internal/utils"
	"github.com/dmvelichko/refsync/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPClient(ClientConfig{BaseURL: srv.URL, APIKey: "secret-key"}, logger.Nop())
}

func TestHTTPClient_Fetch_SendsVersionGate(t *testing.T) {
	var gotHeader, gotSince, gotAuth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("If-Modified-Since-Version")
		gotSince = r.URL.Query().Get("since")
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Last-Modified-Version", "12")
		w.Write([]byte(`[]`))
	})

	batch, err := client.Fetch(context.Background(), models.CustomLibrary(1), models.ObjectItem, 10)
	require.NoError(t, err)
	assert.Equal(t, "10", gotHeader)
	assert.Equal(t, "10", gotSince)
	assert.Equal(t, "Bearer secret-key", gotAuth)
	assert.Equal(t, 12, batch.Version)
}

func TestHTTPClient_PropagatesTraceID(t *testing.T) {
	var gotTrace string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotTrace = r.Header.Get("X-Trace-Id")
		w.Header().Set("Last-Modified-Version", "1")
		w.Write([]byte(`[]`))
	})

	ctx := utils.WithTraceID(context.Background(), "run-42")
	_, err := client.Fetch(ctx, models.CustomLibrary(1), models.ObjectItem, 0)
	require.NoError(t, err)
	assert.Equal(t, "run-42", gotTrace)

	// Without a trace id in the context the header stays off the wire.
	_, err = client.Fetch(context.Background(), models.CustomLibrary(1), models.ObjectItem, 0)
	require.NoError(t, err)
	assert.Empty(t, gotTrace)
}

func TestHTTPClient_Fetch_NotModified(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotModified)
	})

	_, err := client.Fetch(context.Background(), models.CustomLibrary(1), models.ObjectCollection, 42)
	require.ErrorIs(t, err, ErrNotModified)
}

func TestHTTPClient_Fetch_DecodesCollections(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/1/collections", r.URL.Path)
		w.Header().Set("Last-Modified-Version", "7")
		w.Write([]byte(`[
			{"key":"ROOT0001","version":7,"data":{"name":"Papers","parentCollection":false}},
			{"key":"CHLD0001","version":7,"data":{"name":"Drafts","parentCollection":"ROOT0001","deleted":1}}
		]`))
	})

	batch, err := client.Fetch(context.Background(), models.CustomLibrary(1), models.ObjectCollection, 0)
	require.NoError(t, err)
	require.Len(t, batch.Collections, 2)

	root := batch.Collections[0]
	assert.Nil(t, root.ParentKey)
	assert.False(t, root.Trashed)

	child := batch.Collections[1]
	require.NotNil(t, child.ParentKey)
	assert.Equal(t, "ROOT0001", *child.ParentKey)
	assert.True(t, child.Trashed)
}

func TestHTTPClient_Fetch_SplitsItemFields(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Last-Modified-Version", "3")
		w.Write([]byte(`[{
			"key":"ABCD1234","version":3,
			"data":{
				"itemType":"journalArticle",
				"title":"On Sync Engines",
				"publicationTitle":"J. Systems",
				"creators":[{"creatorType":"author","firstName":"Ada","lastName":"L."}],
				"collections":["ROOT0001"],
				"tags":[{"tag":"sync"}]
			}
		}]`))
	})

	batch, err := client.Fetch(context.Background(), models.GroupLibrary(2), models.ObjectItem, 0)
	require.NoError(t, err)
	require.Len(t, batch.Items, 1)

	item := batch.Items[0]
	assert.Equal(t, "journalArticle", item.Type)
	// Structural keys must not leak into the free-form field map.
	assert.Equal(t, "On Sync Engines", item.Fields["title"])
	assert.Equal(t, "J. Systems", item.Fields["publicationTitle"])
	assert.NotContains(t, item.Fields, "itemType")
	assert.NotContains(t, item.Fields, "creators")
	require.Len(t, item.Creators, 1)
	assert.Equal(t, []string{"ROOT0001"}, item.Collections)
}

func TestHTTPClient_Fetch_MissingVersionHeader(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	_, err := client.Fetch(context.Background(), models.CustomLibrary(1), models.ObjectItem, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Last-Modified-Version")
}

func TestHTTPClient_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{"unauthorized", http.StatusUnauthorized, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrUnauthorized)
		}},
		{"forbidden", http.StatusForbidden, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrForbidden)
		}},
		{"server error is retryable", http.StatusServiceUnavailable, func(t *testing.T, err error) {
			var netErr *NetworkError
			require.ErrorAs(t, err, &netErr)
			assert.True(t, netErr.Retryable())
		}},
		{"client error is not retryable", http.StatusNotFound, func(t *testing.T, err error) {
			var netErr *NetworkError
			require.ErrorAs(t, err, &netErr)
			assert.False(t, netErr.Retryable())
		}},
		{"too many requests is retryable", http.StatusTooManyRequests, func(t *testing.T, err error) {
			var netErr *NetworkError
			require.ErrorAs(t, err, &netErr)
			assert.True(t, netErr.Retryable())
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})
			_, err := client.Fetch(context.Background(), models.CustomLibrary(1), models.ObjectItem, 0)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestHTTPClient_WriteObjects_PreconditionCarriesBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "10", r.Header.Get("If-Unmodified-Since-Version"))
		w.WriteHeader(http.StatusPreconditionFailed)
		w.Write([]byte(`{"removed":{"items":["GONE0001"]}}`))
	})

	_, err := client.WriteObjects(context.Background(), models.CustomLibrary(1),
		[]models.Item{{Key: "ABCD1234"}}, 10)

	var precondition *PreconditionError
	require.ErrorAs(t, err, &precondition)
	assert.Contains(t, string(precondition.Body), "GONE0001")
}

func TestHTTPClient_WriteObjects_ReturnsNewVersion(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/1/items", r.URL.Path)
		w.Header().Set("Last-Modified-Version", "13")
		w.Write([]byte(`{}`))
	})

	version, err := client.WriteObjects(context.Background(), models.CustomLibrary(1),
		[]models.Item{{Key: "ABCD1234", Type: "note"}}, 12)
	require.NoError(t, err)
	assert.Equal(t, 13, version)
}

func TestHTTPClient_Deletions(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/groups/2/deleted", r.URL.Path)
		w.Header().Set("Last-Modified-Version", "20")
		w.Write([]byte(`{"collections":[],"searches":[],"items":["AAAA0000"],"tags":["old"]}`))
	})

	deleted, version, err := client.Deletions(context.Background(), models.GroupLibrary(2), 15)
	require.NoError(t, err)
	assert.Equal(t, 20, version)
	assert.Equal(t, []string{"AAAA0000"}, deleted.Items)
	assert.Equal(t, []string{"old"}, deleted.Tags)
	assert.False(t, deleted.Empty())
}

func TestHTTPClient_DownloadAttachment_StreamsBody(t *testing.T) {
	content := "%PDF-1.7 file body"
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/1/items/ATTA0001/file", r.URL.Path)
		w.Write([]byte(content))
	})

	body, length, err := client.DownloadAttachment(context.Background(), models.CustomLibrary(1), "ATTA0001")
	require.NoError(t, err)
	defer body.Close()

	got, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, content, string(got))
	assert.Equal(t, int64(len(content)), length)
}

func TestHTTPClient_DownloadAttachment_ErrorStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, _, err := client.DownloadAttachment(context.Background(), models.CustomLibrary(1), "ATTA0001")
	require.ErrorIs(t, err, ErrForbidden)
}

func TestHTTPClient_AuthorizeUpload_Exists(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"exists":1}`))
	})

	_, err := client.AuthorizeUpload(context.Background(), models.CustomLibrary(1),
		models.Attachment{Key: "ATTA0001", MD5: "abc"}, 100)
	require.ErrorIs(t, err, ErrUploadExists)
}

func TestHTTPClient_AuthorizeUpload_ReturnsAuthorization(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "abc", r.PostForm.Get("md5"))
		assert.Equal(t, "100", r.PostForm.Get("filesize"))
		w.Write([]byte(`{"url":"https://storage.example.org/up","params":{"key":"k"},"uploadKey":"UK1"}`))
	})

	auth, err := client.AuthorizeUpload(context.Background(), models.CustomLibrary(1),
		models.Attachment{Key: "ATTA0001", MD5: "abc", Filename: "paper.pdf"}, 100)
	require.NoError(t, err)
	assert.Equal(t, "UK1", auth.UploadKey)
	assert.Equal(t, "https://storage.example.org/up", auth.URL)
	assert.Equal(t, "k", auth.Params["key"])
}

func TestHTTPClient_TransportErrorIsRetryable(t *testing.T) {
	// Point the client at a closed server to force a transport failure.
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()
	client := NewHTTPClient(ClientConfig{BaseURL: srv.URL, APIKey: "k"}, logger.Nop())

	_, err := client.Groups(context.Background(), 1)
	require.Error(t, err)

	var netErr *NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.True(t, netErr.Retryable())
}
