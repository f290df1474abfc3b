package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/upb/publish-guard/services/audit"
)

type staticAuditStatus audit.Stats

func (s staticAuditStatus) GetStats() audit.Stats { return audit.Stats(s) }

func decodeHealth(t *testing.T, w *httptest.ResponseRecorder) (string, map[string]interface{}) {
	t.Helper()
	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	data := response["data"].(map[string]interface{})
	checks, _ := data["checks"].(map[string]interface{})
	return data["status"].(string), checks
}

func TestHandleHealth(t *testing.T) {
	handler := NewHealthHandler(nil, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	handler.HandleHealth(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	status, _ := decodeHealth(t, w)
	assert.Equal(t, "healthy", status)
}

func TestHandleReadiness(t *testing.T) {
	logger := zap.NewNop()

	t.Run("healthy when database is available", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectPing()
		mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

		handler := NewHealthHandler(db, logger)
		w := httptest.NewRecorder()
		handler.HandleReadiness(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		status, checks := decodeHealth(t, w)
		assert.Equal(t, "healthy", status)
		assert.Equal(t, "healthy", checks["database"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unhealthy when database ping fails", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectPing().WillReturnError(sql.ErrConnDone)

		handler := NewHealthHandler(db, logger)
		w := httptest.NewRecorder()
		handler.HandleReadiness(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		status, checks := decodeHealth(t, w)
		assert.Equal(t, "unhealthy", status)
		assert.Equal(t, "unhealthy", checks["database"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unhealthy when database query fails", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectPing()
		mock.ExpectQuery("SELECT 1").WillReturnError(sql.ErrConnDone)

		handler := NewHealthHandler(db, logger)
		w := httptest.NewRecorder()
		handler.HandleReadiness(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		_, checks := decodeHealth(t, w)
		assert.Equal(t, "unhealthy", checks["database"])
	})

	t.Run("unhealthy when audit pipeline stopped", func(t *testing.T) {
		handler := NewHealthHandler(nil, logger).WithAudit(staticAuditStatus{Started: false})
		w := httptest.NewRecorder()
		handler.HandleReadiness(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		status, checks := decodeHealth(t, w)
		assert.Equal(t, "unhealthy", status)
		assert.Equal(t, "healthy", checks["database"])
		assert.Equal(t, "unhealthy", checks["audit"])
	})

	t.Run("healthy with running audit and no database", func(t *testing.T) {
		handler := NewHealthHandler(nil, logger).WithAudit(staticAuditStatus{Started: true, WorkerCount: 2})
		w := httptest.NewRecorder()
		handler.HandleReadiness(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		_, checks := decodeHealth(t, w)
		assert.Equal(t, "healthy", checks["audit"])
	})
}
