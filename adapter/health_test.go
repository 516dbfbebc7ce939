package adapter

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srediag/dataport/pkg/dataport"
)

func readyStatus(t *testing.T, h *Health) int {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	return rec.Code
}

func TestPortCheckReady(t *testing.T) {
	d, err := dataport.Create(make([]byte, dataport.HeaderSize+8))
	require.NoError(t, err)

	h := NewHealth()
	h.AddPortCheck("uart0", d)

	assert.Equal(t, http.StatusOK, readyStatus(t, h))

	d.Write([]byte("1234"))
	assert.Equal(t, http.StatusOK, readyStatus(t, h))
}

func TestPortPressureCheckFailsWhenFull(t *testing.T) {
	d, err := dataport.Create(make([]byte, dataport.HeaderSize+4))
	require.NoError(t, err)

	h := NewHealth()
	h.AddPortPressureCheck("uart0", d)
	assert.Equal(t, http.StatusOK, readyStatus(t, h))

	d.Write([]byte("full"))
	assert.Equal(t, http.StatusServiceUnavailable, readyStatus(t, h))

	d.Read(make([]byte, 1))
	assert.Equal(t, http.StatusOK, readyStatus(t, h))
}

func TestLivenessGoroutineBudget(t *testing.T) {
	h := NewHealth()
	h.AddGoroutineBudget(100000)

	rec := httptest.NewRecorder()
	h.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
