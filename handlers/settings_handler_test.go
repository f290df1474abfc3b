package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/upb/publish-guard/models"
	"github.com/upb/publish-guard/services"
)

// MockSettingsService is a mock implementation of SettingsService
type MockSettingsService struct {
	mock.Mock
}

func (m *MockSettingsService) Policy(ctx context.Context) (models.PolicyConfig, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.PolicyConfig), args.Error(1)
}

func (m *MockSettingsService) AvailablePostTypes() []string {
	args := m.Called()
	if v := args.Get(0); v != nil {
		return v.([]string)
	}
	return nil
}

func (m *MockSettingsService) SetEnforcedTypes(ctx context.Context, types []string) (models.PostTypeSet, error) {
	args := m.Called(ctx, types)
	if v := args.Get(0); v != nil {
		return v.(models.PostTypeSet), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSettingsService) SetMinimumSize(ctx context.Context, size models.MinimumSize) error {
	args := m.Called(ctx, size)
	return args.Error(0)
}

var settingsStart = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func currentPolicy() models.PolicyConfig {
	return models.PolicyConfig{
		EnforcedTypes:    models.NewPostTypeSet("post"),
		MinimumSize:      models.MinimumSize{Width: 800, Height: 600},
		EnforcementStart: settingsStart,
	}
}

func TestHandleGetSettings(t *testing.T) {
	svc := new(MockSettingsService)
	svc.On("Policy", mock.Anything).Return(currentPolicy(), nil)
	svc.On("AvailablePostTypes").Return([]string{"page", "post"})

	handler := NewSettingsHandler(svc, zap.NewNop())
	w := httptest.NewRecorder()
	handler.HandleGetSettings(w, httptest.NewRequest(http.MethodGet, "/api/v1/settings", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{
		"post_types":["post"],
		"minimum_size":{"width":800,"height":600},
		"enforcement_start":"2024-03-01T00:00:00Z",
		"available_post_types":["page","post"]
	}}`, w.Body.String())
}

func TestHandleGetSettings_PolicyError(t *testing.T) {
	svc := new(MockSettingsService)
	svc.On("Policy", mock.Anything).Return(models.PolicyConfig{}, services.WrapInternal("failed to read minimum size", errors.New("db down")))

	handler := NewSettingsHandler(svc, zap.NewNop())
	w := httptest.NewRecorder()
	handler.HandleGetSettings(w, httptest.NewRequest(http.MethodGet, "/api/v1/settings", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHandleUpdatePostTypes(t *testing.T) {
	t.Run("updates and returns settings", func(t *testing.T) {
		svc := new(MockSettingsService)
		svc.On("SetEnforcedTypes", mock.Anything, []string{"post", "page", "post"}).
			Return(models.NewPostTypeSet("page", "post"), nil)
		policy := currentPolicy()
		policy.EnforcedTypes = models.NewPostTypeSet("page", "post")
		svc.On("Policy", mock.Anything).Return(policy, nil)
		svc.On("AvailablePostTypes").Return(nil)

		handler := NewSettingsHandler(svc, zap.NewNop())
		req := httptest.NewRequest(http.MethodPut, "/api/v1/settings/post-types",
			bytes.NewBufferString(`{"post_types":["post","page","post"]}`))
		w := httptest.NewRecorder()

		handler.HandleUpdatePostTypes(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var response struct {
			Data SettingsResponse `json:"data"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, []string{"page", "post"}, response.Data.PostTypes)
		assert.Equal(t, []string{}, response.Data.AvailablePostTypes)
		svc.AssertExpectations(t)
	})

	t.Run("unknown post type from service", func(t *testing.T) {
		svc := new(MockSettingsService)
		svc.On("SetEnforcedTypes", mock.Anything, []string{"product"}).Return(nil,
			services.NewDomainError(services.ErrorTypeValidation, "invalid post type", nil).WithDetail("post_type", "product"))

		handler := NewSettingsHandler(svc, zap.NewNop())
		req := httptest.NewRequest(http.MethodPut, "/", bytes.NewBufferString(`{"post_types":["product"]}`))
		w := httptest.NewRecorder()

		handler.HandleUpdatePostTypes(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "product")
	})

	t.Run("malformed type key", func(t *testing.T) {
		svc := new(MockSettingsService)
		handler := NewSettingsHandler(svc, zap.NewNop())
		req := httptest.NewRequest(http.MethodPut, "/", bytes.NewBufferString(`{"post_types":["Post Type"]}`))
		w := httptest.NewRecorder()

		handler.HandleUpdatePostTypes(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "SetEnforcedTypes")
	})
}

func TestHandleUpdateMinimumSize(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCall   bool
	}{
		{name: "valid", body: `{"width":1024,"height":768}`, wantStatus: http.StatusOK, wantCall: true},
		{name: "zero disables", body: `{"width":0,"height":0}`, wantStatus: http.StatusOK, wantCall: true},
		{name: "negative width", body: `{"width":-1,"height":768}`, wantStatus: http.StatusBadRequest},
		{name: "not json", body: `800x600`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockSettingsService)
			svc.On("SetMinimumSize", mock.Anything, mock.Anything).Return(nil)
			svc.On("Policy", mock.Anything).Return(currentPolicy(), nil)
			svc.On("AvailablePostTypes").Return([]string{"post"})

			handler := NewSettingsHandler(svc, zap.NewNop())
			req := httptest.NewRequest(http.MethodPut, "/api/v1/settings/minimum-size", bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()

			handler.HandleUpdateMinimumSize(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantCall {
				svc.AssertCalled(t, "SetMinimumSize", mock.Anything, mock.Anything)
			} else {
				svc.AssertNotCalled(t, "SetMinimumSize", mock.Anything, mock.Anything)
			}
		})
	}
}
