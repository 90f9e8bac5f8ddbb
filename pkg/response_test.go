package pkg

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriteResponse(t *testing.T) {
	w := httptest.NewRecorder()
	WriteResponse(w, ContentType.Text, "oh deer", http.StatusConflict)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, ContentType.Text, w.Header().Get("Content-Type"))
	assert.Equal(t, "oh deer", w.Body.String())
}

func TestWriteResponse_noContentType(t *testing.T) {
	w := httptest.NewRecorder()
	WriteResponse(w, "", "ok then", http.StatusOK)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Content-Type"))
	assert.Equal(t, "ok then", w.Body.String())
}

func TestWriteTextResponseOK(t *testing.T) {
	w := httptest.NewRecorder()
	WriteTextResponseOK(w, "all good")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, ContentType.Text, w.Header().Get("Content-Type"))
	assert.Equal(t, "all good", w.Body.String())
}

func TestWriteJSONResponseOK(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSONResponseOK(w, `{"status":"ok"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, ContentType.JSON, w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestWriteResponseBytesOK(t *testing.T) {
	w := httptest.NewRecorder()
	WriteResponseBytesOK(w, ContentType.HTML, []byte("<html></html>"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, ContentType.HTML, w.Header().Get("Content-Type"))
	assert.Equal(t, "<html></html>", w.Body.String())
}
