package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandleMetrics(t *testing.T) {
	before := SessionsFinalized.Load()
	SessionsFinalized.Add(2)

	rec := httptest.NewRecorder()
	HandleMetrics(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, "text/plain; version=0.0.4", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "autocare_sessions_finalized_total ")
	assert.Contains(t, rec.Body.String(), "autocare_alerts_suppressed_total ")
	assert.Equal(t, before+2, SessionsFinalized.Load())
}
