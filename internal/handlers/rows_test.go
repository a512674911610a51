package handlers

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func deleteRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Delete("/api/deleteRow/{id}", DeleteRow)
	r.Delete("/api/deleteAllRows", DeleteAllRows)
	return r
}

func TestDeleteRow(t *testing.T) {
	mock := newMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM user_data WHERE id = $1")).
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 1))

	req := httptest.NewRequest(http.MethodDelete, "/api/deleteRow/7", nil)
	rec := httptest.NewRecorder()
	deleteRouter().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Row with ID 7 deleted successfully.")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteRowMissingIDStillSucceeds(t *testing.T) {
	mock := newMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM user_data WHERE id = $1")).
		WithArgs(99).
		WillReturnResult(sqlmock.NewResult(0, 0))

	req := httptest.NewRequest(http.MethodDelete, "/api/deleteRow/99", nil)
	rec := httptest.NewRecorder()
	deleteRouter().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteRowRejectsBadID(t *testing.T) {
	req := httptest.NewRequest(http.MethodDelete, "/api/deleteRow/abc", nil)
	rec := httptest.NewRecorder()
	deleteRouter().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid row ID")
}

func TestDeleteAllRows(t *testing.T) {
	mock := newMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM user_data WHERE id = ANY($1::int[])")).
		WithArgs(pq.Array([]int{2, 5, 9})).
		WillReturnResult(sqlmock.NewResult(0, 3))

	req := httptest.NewRequest(http.MethodDelete, "/api/deleteAllRows", strings.NewReader(`{"ids":[2,5,9]}`))
	rec := httptest.NewRecorder()
	deleteRouter().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Selected rows deleted successfully.")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteAllRowsEmptyList(t *testing.T) {
	mock := newMockDB(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/deleteAllRows", strings.NewReader(`{"ids":[]}`))
	rec := httptest.NewRecorder()
	deleteRouter().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteAllRowsRejectsMalformedBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodDelete, "/api/deleteAllRows", strings.NewReader("[1,2"))
	rec := httptest.NewRecorder()
	deleteRouter().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid request body")
}
