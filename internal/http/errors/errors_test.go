package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteErrorAppError(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, ErrInsufficientScopes.WithDetail("required scope: admin"))

	require.Equal(t, http.StatusForbidden, rr.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "INSUFFICIENT_SCOPES", body["code"])
	require.Equal(t, "required scope: admin", body["detail"])
	// el predefinido no se muta
	require.Empty(t, ErrInsufficientScopes.Detail)
}

func TestWriteErrorGenericIs500(t *testing.T) {
	rr := httptest.NewRecorder()
	cause := fmt.Errorf("boom")
	WriteError(rr, cause)

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.NotContains(t, rr.Body.String(), "boom")
	require.ErrorIs(t, FromError(cause), cause)
}

func TestWriteOAuthError(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteOAuthError(rr, http.StatusBadRequest, "invalid_token", "")

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
	require.JSONEq(t, `{"error":"invalid_token"}`, rr.Body.String())
}
