package telegram

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandlerRejectsMissingSecret(t *testing.T) {
	h := Handler("s3cret", func(Update) {})
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandlerDeliversUpdateOnValidSecret(t *testing.T) {
	var got Update
	h := Handler("s3cret", func(u Update) { got = u })

	body := []byte(`{"update_id":7,"message":{"chat":{"id":5},"text":"/queue"}}`)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	req.Header.Set(secretHeader, "s3cret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(7), got.UpdateID)
	assert.Equal(t, "/queue", got.Message.Text)
}
