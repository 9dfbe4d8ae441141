package apikey_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/scrapekit/handler"
	"github.com/dmitrymomot/scrapekit/pkg/auth"
	"github.com/dmitrymomot/scrapekit/svc/apikey"
)

func serve(t *testing.T, h http.Handler, userID uuid.UUID, req *http.Request) (*httptest.ResponseRecorder, handler.JSONResponse) {
	t.Helper()
	if userID != uuid.Nil {
		req = req.WithContext(auth.WithUserID(req.Context(), userID))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body handler.JSONResponse
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHTTPCreateAndList(t *testing.T) {
	t.Parallel()
	userID := uuid.New()

	store := &mockStore{}
	store.On("ListAPIKeys", mock.Anything, userID).Return([]apikey.Key{
		{ID: uuid.New(), Name: "old", Prefix: "sk_live_abcd", Last4: "wxyz", CreatedAt: fixedNow},
	}, nil)
	store.On("CreateAPIKey", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	h := newService(store).Handle()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"crawler"}`))
	req.Header.Set("Content-Type", "application/json")
	rec, body := serve(t, h, userID, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	data := body.Data.(map[string]any)
	assert.True(t, strings.HasPrefix(data["secret"].(string), "sk_live_"))
	assert.NotContains(t, rec.Body.String(), `"hash"`)

	rec, body = serve(t, h, userID, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	list := body.Data.([]any)
	require.Len(t, list, 1)
	item := list[0].(map[string]any)
	assert.Equal(t, "sk_live_abcd••••••••wxyz", item["masked"])
	assert.Equal(t, true, item["active"])
}

func TestHTTPErrors(t *testing.T) {
	t.Parallel()
	userID, keyID := uuid.New(), uuid.New()

	store := &mockStore{}
	store.On("RevokeAPIKey", mock.Anything, userID, keyID, fixedNow).Return(apikey.ErrKeyNotFound)
	h := newService(store).Handle()

	rec, _ := serve(t, h, uuid.Nil, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, body := serve(t, h, userID, httptest.NewRequest(http.MethodDelete, "/"+keyID.String(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "api_key_not_found", body.Error.Code)

	rec, _ = serve(t, h, userID, httptest.NewRequest(http.MethodDelete, "/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":""}`))
	req.Header.Set("Content-Type", "application/json")
	rec, body = serve(t, h, userID, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, body.Error.Details, "name")
}

func TestAuthenticateAsKeyResolver(t *testing.T) {
	t.Parallel()
	var resolver auth.KeyResolver = newService(&mockStore{}).Authenticate
	_, err := resolver(context.Background(), "bogus")
	assert.ErrorIs(t, err, apikey.ErrInvalidKey)
}
