package webhook

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaymind/conduit/internal/obslog"
)

type fakeDispatcher struct {
	calls []struct{ externalID, handle, text string }
	err   error
}

func (f *fakeDispatcher) HandleInbound(ctx context.Context, externalID, handle, text string) error {
	f.calls = append(f.calls, struct{ externalID, handle, text string }{externalID, handle, text})
	return f.err
}

func newTestServer(d Dispatcher) *Server {
	return New(d, obslog.New(obslog.Config{Level: "error"}), "/webhook")
}

func TestHandleInbound_ValidPayloadReturnsAccepted(t *testing.T) {
	d := &fakeDispatcher{}
	s := newTestServer(d)

	body := `{"external_id":"ext-1","handle":"user-1","text":"hi"}`
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, d.calls, 1)
	assert.Equal(t, "ext-1", d.calls[0].externalID)
	assert.Equal(t, "user-1", d.calls[0].handle)
}

func TestHandleInbound_MissingFieldsRejected(t *testing.T) {
	d := &fakeDispatcher{}
	s := newTestServer(d)

	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewBufferString(`{"text":"hi"}`))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, d.calls)
}

func TestHandleInbound_InvalidJSONRejected(t *testing.T) {
	d := &fakeDispatcher{}
	s := newTestServer(d)

	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewBufferString(`not json`))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleInbound_DispatcherErrorReturns500(t *testing.T) {
	d := &fakeDispatcher{err: assertError{"boom"}}
	s := newTestServer(d)

	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewBufferString(`{"external_id":"e","handle":"h","text":"t"}`))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealthz_ReturnsOK(t *testing.T) {
	s := newTestServer(&fakeDispatcher{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

type assertError struct{ msg string }

func (e assertError) Error() string { return e.msg }
