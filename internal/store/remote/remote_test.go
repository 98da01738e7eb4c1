package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/dropDatabas3/widgetauth/internal/store"
	"github.com/stretchr/testify/require"
)

// fakeStore emula /act guardando documentos en memoria.
type fakeStore struct {
	mu     sync.Mutex
	docs   map[string][]map[string]any
	status int // si != 0 responde siempre ese status
	calls  int
}

func newFake() *fakeStore { return &fakeStore{docs: map[string][]map[string]any{}} }

func (f *fakeStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	if r.URL.Path != "/act" {
		http.NotFound(w, r)
		return
	}
	if f.status != 0 {
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(`{"error":"forced"}`))
		return
	}
	if r.Method == http.MethodHead {
		return
	}

	if r.Method == http.MethodGet {
		q := r.URL.Query()
		if q.Get("role") != "store" || q.Get("cmd") != "filter" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		for _, d := range f.docs[q.Get("coll")] {
			if v, ok := d[q.Get("filter")].(string); ok && v == q.Get("filter_value") {
				_ = json.NewEncoder(w).Encode(d)
				return
			}
		}
		_, _ = w.Write([]byte("null"))
		return
	}

	var env struct {
		Role     string         `json:"role"`
		Cmd      string         `json:"cmd"`
		Coll     string         `json:"coll"`
		Entity   map[string]any `json:"entity"`
		Criteria map[string]any `json:"criteria"`
	}
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil || env.Role != "store" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	switch env.Cmd {
	case "create":
		env.Entity["_id"] = "id-" + env.Coll
		env.Entity["last_modified_date"] = 1700000000000
		f.docs[env.Coll] = append(f.docs[env.Coll], env.Entity)
		_ = json.NewEncoder(w).Encode(env.Entity)
	case "delete":
		kept := f.docs[env.Coll][:0]
		n := 0
		for _, d := range f.docs[env.Coll] {
			if d["token"] == env.Criteria["token"] {
				n++
				continue
			}
			kept = append(kept, d)
		}
		f.docs[env.Coll] = kept
		_ = json.NewEncoder(w).Encode(map[string]int{"deleted": n})
	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

type doc struct {
	ID    string `json:"_id,omitempty"`
	Token string `json:"token"`
}

func TestCreateFilterDelete(t *testing.T) {
	fake := newFake()
	srv := httptest.NewServer(fake)
	defer srv.Close()

	c, err := New(srv.URL, 0)
	require.NoError(t, err)
	ctx := context.Background()

	var created doc
	require.NoError(t, c.Create(ctx, "access_token", doc{Token: "abc"}, &created))
	require.Equal(t, "id-access_token", created.ID)

	var got doc
	found, err := c.Filter(ctx, "access_token", "token", "abc", &got)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "abc", got.Token)

	res, err := c.Delete(ctx, "access_token", map[string]any{"token": "abc"})
	require.NoError(t, err)
	require.Equal(t, 1, res.Deleted)

	found, err = c.Filter(ctx, "access_token", "token", "abc", &got)
	require.NoError(t, err)
	require.False(t, found)

	res, err = c.Delete(ctx, "access_token", map[string]any{"token": "abc"})
	require.NoError(t, err)
	require.Equal(t, 0, res.Deleted)
}

func TestServerErrorIsTransport(t *testing.T) {
	fake := newFake()
	fake.status = http.StatusBadGateway
	srv := httptest.NewServer(fake)
	defer srv.Close()

	c := NewWithHTTPClient(srv.URL, srv.Client())
	_, err := c.Filter(context.Background(), "account", "username", "bob", nil)
	require.True(t, store.IsTransport(err))
	require.Error(t, c.Ping(context.Background()))
}

func TestClientErrorIsRejected(t *testing.T) {
	fake := newFake()
	fake.status = http.StatusForbidden
	srv := httptest.NewServer(fake)
	defer srv.Close()

	c := NewWithHTTPClient(srv.URL, srv.Client())
	_, err := c.Filter(context.Background(), "account", "username", "bob", nil)
	var se *store.Error
	require.ErrorAs(t, err, &se)
	require.Equal(t, store.KindRejected, se.Kind)
	require.Equal(t, http.StatusForbidden, se.Status)
	require.False(t, store.IsTransport(err))
}

func TestUnreachableIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(url, 0)
	require.NoError(t, err)
	_, err = c.Filter(context.Background(), "account", "username", "bob", nil)
	require.True(t, store.IsTransport(err))
}

func TestCanceledContextStillCompletes(t *testing.T) {
	fake := newFake()
	srv := httptest.NewServer(fake)
	defer srv.Close()

	c := NewWithHTTPClient(srv.URL, srv.Client())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var created doc
	require.NoError(t, c.Create(ctx, "access_token", doc{Token: "late"}, &created))
	require.Equal(t, "late", created.Token)
}

func TestNewRejectsInvalidURL(t *testing.T) {
	_, err := New("not a url", 0)
	require.Error(t, err)
}
