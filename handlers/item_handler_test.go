package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/upb/publish-guard/middleware"
	"github.com/upb/publish-guard/models"
	"github.com/upb/publish-guard/services"
	"github.com/upb/publish-guard/services/content"
)

// MockContentService is a mock implementation of ContentService
type MockContentService struct {
	mock.Mock
}

func (m *MockContentService) Create(ctx context.Context, postType, title string) (*models.ContentItem, error) {
	args := m.Called(ctx, postType, title)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ContentItem), args.Error(1)
}

func (m *MockContentService) Get(ctx context.Context, id uuid.UUID) (*models.ContentItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ContentItem), args.Error(1)
}

func (m *MockContentService) SetFeaturedImage(ctx context.Context, id uuid.UUID, url string, width, height int) (*models.ContentItem, error) {
	args := m.Called(ctx, id, url, width, height)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ContentItem), args.Error(1)
}

func (m *MockContentService) ClearFeaturedImage(ctx context.Context, id uuid.UUID) (*models.ContentItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ContentItem), args.Error(1)
}

func (m *MockContentService) TransitionStatus(ctx context.Context, req content.TransitionRequest) (*content.TransitionResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*content.TransitionResult), args.Error(1)
}

func (m *MockContentService) EditorBootstrap(ctx context.Context, id uuid.UUID, tag language.Tag) (*content.Bootstrap, error) {
	args := m.Called(ctx, id, tag)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*content.Bootstrap), args.Error(1)
}

// withURLParam attaches a chi route parameter to the request
func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func jsonBody(t *testing.T, v interface{}) *bytes.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func TestHandleCreateItem(t *testing.T) {
	t.Run("creates a draft", func(t *testing.T) {
		svc := new(MockContentService)
		item := models.NewContentItem("post", "Hello")
		svc.On("Create", mock.Anything, "post", "Hello").Return(item, nil)

		handler := NewItemHandler(svc, zap.NewNop())
		req := httptest.NewRequest(http.MethodPost, "/api/v1/items", jsonBody(t, CreateItemRequest{PostType: "post", Title: "Hello"}))
		w := httptest.NewRecorder()

		handler.HandleCreateItem(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		var response map[string]map[string]interface{}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, item.ID.String(), response["data"]["id"])
		assert.Equal(t, "draft", response["data"]["status"])
		svc.AssertExpectations(t)
	})

	t.Run("rejects bad post type", func(t *testing.T) {
		svc := new(MockContentService)
		handler := NewItemHandler(svc, zap.NewNop())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/items", jsonBody(t, CreateItemRequest{PostType: "Blog Post"}))
		w := httptest.NewRecorder()
		handler.HandleCreateItem(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "post_type")
		svc.AssertNotCalled(t, "Create")
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		svc := new(MockContentService)
		handler := NewItemHandler(svc, zap.NewNop())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/items", bytes.NewBufferString(`{"post_type":"post","status":"publish"}`))
		w := httptest.NewRecorder()
		handler.HandleCreateItem(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandleGetItem(t *testing.T) {
	t.Run("invalid id", func(t *testing.T) {
		handler := NewItemHandler(new(MockContentService), zap.NewNop())
		req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/items/abc", nil), "id", "abc")
		w := httptest.NewRecorder()

		handler.HandleGetItem(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("not found", func(t *testing.T) {
		svc := new(MockContentService)
		id := uuid.New()
		svc.On("Get", mock.Anything, id).Return(nil, services.ErrItemNotFound)

		handler := NewItemHandler(svc, zap.NewNop())
		req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/items/"+id.String(), nil), "id", id.String())
		w := httptest.NewRecorder()

		handler.HandleGetItem(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestHandleSetFeaturedImage(t *testing.T) {
	item := models.NewContentItem("post", "x")

	t.Run("links image", func(t *testing.T) {
		svc := new(MockContentService)
		svc.On("SetFeaturedImage", mock.Anything, item.ID, "https://cdn.example.com/a.jpg", 1200, 630).Return(item, nil)

		handler := NewItemHandler(svc, zap.NewNop())
		body := jsonBody(t, SetFeaturedImageRequest{URL: "https://cdn.example.com/a.jpg", Width: 1200, Height: 630})
		req := withURLParam(httptest.NewRequest(http.MethodPut, "/", body), "id", item.ID.String())
		w := httptest.NewRecorder()

		handler.HandleSetFeaturedImage(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("negative size", func(t *testing.T) {
		svc := new(MockContentService)
		handler := NewItemHandler(svc, zap.NewNop())
		body := jsonBody(t, SetFeaturedImageRequest{URL: "https://cdn.example.com/a.jpg", Width: -1})
		req := withURLParam(httptest.NewRequest(http.MethodPut, "/", body), "id", item.ID.String())
		w := httptest.NewRecorder()

		handler.HandleSetFeaturedImage(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "SetFeaturedImage")
	})

	t.Run("clear", func(t *testing.T) {
		svc := new(MockContentService)
		svc.On("ClearFeaturedImage", mock.Anything, item.ID).Return(item, nil)

		handler := NewItemHandler(svc, zap.NewNop())
		req := withURLParam(httptest.NewRequest(http.MethodDelete, "/", nil), "id", item.ID.String())
		w := httptest.NewRecorder()

		handler.HandleClearFeaturedImage(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestHandleTransition(t *testing.T) {
	item := models.NewContentItem("post", "x")
	french := language.MustParse("fr-FR")

	newRequest := func(t *testing.T, query string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/items/"+item.ID.String()+"/status"+query,
			jsonBody(t, TransitionRequest{Status: "publish"}))
		req.RemoteAddr = "10.0.0.7:51234"
		req.Header.Set("User-Agent", "editor/1.0")
		ctx := middleware.WithRequestID(req.Context(), "req-42")
		ctx = middleware.WithLocale(ctx, french)
		return withURLParam(req.WithContext(ctx), "id", item.ID.String())
	}

	t.Run("allowed publish returns the item", func(t *testing.T) {
		svc := new(MockContentService)
		published := *item
		published.Status = models.PostStatusPublish
		svc.On("TransitionStatus", mock.Anything, mock.MatchedBy(func(r content.TransitionRequest) bool {
			return r.ItemID == item.ID &&
				r.NewStatus == models.PostStatusPublish &&
				!r.Bypass &&
				r.Locale == french &&
				r.RequestID == "req-42" &&
				r.IPAddress == "10.0.0.7" &&
				r.UserAgent == "editor/1.0"
		})).Return(&content.TransitionResult{Item: &published}, nil)

		handler := NewItemHandler(svc, zap.NewNop())
		w := httptest.NewRecorder()
		handler.HandleTransition(w, newRequest(t, ""))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		svc.AssertExpectations(t)
	})

	t.Run("denied publish is a hard stop", func(t *testing.T) {
		svc := new(MockContentService)
		reverted := *item
		reverted.Status = models.PostStatusDraft
		msg := "You cannot publish without a featured image."
		svc.On("TransitionStatus", mock.Anything, mock.Anything).Return(&content.TransitionResult{
			Item:   &reverted,
			Denial: &content.Denial{Message: msg, Reason: "missing_image", RevertedTo: models.PostStatusDraft},
		}, nil)

		handler := NewItemHandler(svc, zap.NewNop())
		w := httptest.NewRecorder()
		handler.HandleTransition(w, newRequest(t, ""))

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
		assert.Equal(t, msg, w.Body.String())
	})

	t.Run("user locale switch bypasses", func(t *testing.T) {
		svc := new(MockContentService)
		svc.On("TransitionStatus", mock.Anything, mock.MatchedBy(func(r content.TransitionRequest) bool {
			return r.Bypass
		})).Return(&content.TransitionResult{Item: item}, nil)

		handler := NewItemHandler(svc, zap.NewNop())
		w := httptest.NewRecorder()
		handler.HandleTransition(w, newRequest(t, "?_locale=user"))

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("other locale values do not bypass", func(t *testing.T) {
		svc := new(MockContentService)
		svc.On("TransitionStatus", mock.Anything, mock.MatchedBy(func(r content.TransitionRequest) bool {
			return !r.Bypass
		})).Return(&content.TransitionResult{Item: item}, nil)

		handler := NewItemHandler(svc, zap.NewNop())
		w := httptest.NewRecorder()
		handler.HandleTransition(w, newRequest(t, "?_locale=site"))

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("unknown status", func(t *testing.T) {
		svc := new(MockContentService)
		handler := NewItemHandler(svc, zap.NewNop())

		req := httptest.NewRequest(http.MethodPost, "/", jsonBody(t, TransitionRequest{Status: "live"}))
		req = withURLParam(req, "id", item.ID.String())
		w := httptest.NewRecorder()
		handler.HandleTransition(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "TransitionStatus")
	})

	t.Run("service error", func(t *testing.T) {
		svc := new(MockContentService)
		svc.On("TransitionStatus", mock.Anything, mock.Anything).Return(nil, services.ErrItemNotFound)

		handler := NewItemHandler(svc, zap.NewNop())
		w := httptest.NewRecorder()
		handler.HandleTransition(w, newRequest(t, ""))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestHandleEditorBootstrap(t *testing.T) {
	id := uuid.New()
	svc := new(MockContentService)
	svc.On("EditorBootstrap", mock.Anything, id, language.German).Return(&content.Bootstrap{
		Enforced:            true,
		MissingImageMessage: "missing",
		TooSmallMessage:     "small",
		MinWidth:            800,
		MinHeight:           600,
	}, nil)

	handler := NewItemHandler(svc, zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(middleware.WithLocale(req.Context(), language.German))
	req = withURLParam(req, "id", id.String())
	w := httptest.NewRecorder()

	handler.HandleEditorBootstrap(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"enforced":true,"missing_image_message":"missing","too_small_message":"small","min_width":800,"min_height":600}}`, w.Body.String())
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "[::1]:8080"
	assert.Equal(t, "::1", clientIP(req))

	req.RemoteAddr = "192.0.2.1"
	assert.Equal(t, "192.0.2.1", clientIP(req))
}
