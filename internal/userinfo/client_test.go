package userinfo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		h(w, r)
	}))
	t.Cleanup(srv.Close)

	c, err := New(Config{URL: srv.URL + "/user/info", MaxAttempts: 3, RetryDelay: 5 * time.Millisecond})
	require.NoError(t, err)
	return c, &calls
}

func TestValidateOK(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "abc", r.URL.Query().Get("access_token"))
		_, _ = w.Write([]byte(`{"audience":{"_id":"u1","username":"ana"},"scope":"user","expires_in":120,"isValid":true}`))
	})

	res, err := c.Validate(context.Background(), "abc")
	require.NoError(t, err)
	require.Equal(t, "u1", res.Credentials["_id"])
	require.Equal(t, "user", res.Scope)
	require.EqualValues(t, 120, res.ExpiresIn)
	require.EqualValues(t, 1, atomic.LoadInt32(calls))
}

func TestValidateInvalidTokenIsNotRetried(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_token"}`))
	})

	_, err := c.Validate(context.Background(), "abc")
	require.ErrorIs(t, err, ErrInvalidToken)
	require.EqualValues(t, 1, atomic.LoadInt32(calls))
}

func TestValidateRetriesServerErrors(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.Validate(context.Background(), "abc")
	require.ErrorIs(t, err, ErrUnavailable)
	require.EqualValues(t, 3, atomic.LoadInt32(calls))
}

func TestValidateRecoversAfterTransientFailure(t *testing.T) {
	var n int32
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&n, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"audience":{"_id":"c1"},"scope":"*","expires_in":5,"isValid":true}`))
	})

	res, err := c.Validate(context.Background(), "abc")
	require.NoError(t, err)
	require.Equal(t, "*", res.Scope)
	require.EqualValues(t, 2, atomic.LoadInt32(calls))
}

func TestValidateIntegrity(t *testing.T) {
	for _, body := range []string{
		`{"isValid":true}`,
		`{"audience":"not-an-object","isValid":true}`,
		`{"audience":null,"isValid":true}`,
		`not json`,
	} {
		c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		})
		_, err := c.Validate(context.Background(), "abc")
		require.ErrorIs(t, err, ErrIntegrity, body)
		require.EqualValues(t, 1, atomic.LoadInt32(calls))
	}
}

func TestValidateNotValidFlag(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"audience":{},"isValid":false}`))
	})
	_, err := c.Validate(context.Background(), "abc")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	c, err := New(Config{URL: addr, MaxAttempts: 2, RetryDelay: time.Millisecond})
	require.NoError(t, err)
	_, err = c.Validate(context.Background(), "abc")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New(Config{URL: "::"})
	require.Error(t, err)
}
