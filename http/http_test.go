package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/require"
)

func TestHandleReadyCheck(t *testing.T) {
	ready := false
	h := HandleReadyCheck(func() bool { return ready })

	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	ready = true
	w = httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusOK, w.Code)
}

func TestHandleVersion(t *testing.T) {
	w := httptest.NewRecorder()
	HandleVersion("v1.2.3")(w, httptest.NewRequest(http.MethodGet, "/version", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "v1.2.3", w.Body.String())
}

func TestHandleWithCORS(t *testing.T) {
	called := false
	h := HandleWithCORS(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	t.Run("preflight", func(t *testing.T) {
		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodOptions, "/state", nil))
		require.Equal(t, http.StatusNoContent, w.Code)
		require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		require.False(t, called)
	})

	t.Run("request", func(t *testing.T) {
		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodGet, "/state", nil))
		require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		require.True(t, called)
	})
}

func TestWriteError(t *testing.T) {
	statusCodes := map[string]int{
		"not_found": http.StatusNotFound,
	}

	t.Run("known type", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, errors.New("variable not found").WithType("not_found"), statusCodes)
		require.Equal(t, http.StatusNotFound, w.Code)
		require.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var res ErrorResponse
		err := json.Unmarshal(w.Body.Bytes(), &res)
		require.NoError(t, err)
		require.Equal(t, "not_found", res.Type)
		require.Contains(t, res.Message, "variable not found")
	})

	t.Run("unknown type", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, errors.New("boom"), statusCodes)
		require.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestMetricsPathFormatter(t *testing.T) {
	require.Empty(t, MetricsPathFormatter(http.StatusNotFound, "/nope"))
	require.Empty(t, MetricsPathFormatter(http.StatusBadRequest, "/show"))
	require.Equal(t, "/show", MetricsPathFormatter(http.StatusOK, "/show"))
}
