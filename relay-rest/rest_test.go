package relayrest

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tj/assert"
)

func TestCacheControl(t *testing.T) {
	handler := CacheControl(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}, 5)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/feeds", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "max-age=5", w.Header().Get("Cache-Control"))
}
