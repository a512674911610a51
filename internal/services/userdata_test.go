package services

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formgrid/formgrid-backend/internal/database"
)

var recordColumns = []string{"id", "first_name", "last_name", "email", "gender", "age", "country", "bio", "dob", "notification"}

func newMockDB(t *testing.T) sqlmock.Sqlmock {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	prev := database.PostgresDB
	database.PostgresDB = db
	t.Cleanup(func() {
		database.PostgresDB = prev
		db.Close()
	})
	return mock
}

func addRecord(rows *sqlmock.Rows, id int, firstName string) *sqlmock.Rows {
	return rows.AddRow(id, firstName, "Doe", firstName+"@example.com", "female", 30, "US", nil, nil, "email")
}

func TestListUserData(t *testing.T) {
	mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM user_data")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(30))
	rows := sqlmock.NewRows(recordColumns)
	addRecord(rows, 26, "Ada")
	addRecord(rows, 27, "Grace")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, first_name, last_name, email, gender, age, country, bio, dob, notification FROM user_data ORDER BY id OFFSET $1 LIMIT $2")).
		WithArgs(75, 25).
		WillReturnRows(rows)
	mock.ExpectCommit()

	result, err := ListUserData(context.Background(), 4, 25, 25)

	require.NoError(t, err)
	assert.Equal(t, int64(30), result.TotalRows)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, 26, result.Rows[0].ID)
	assert.Equal(t, "Ada", result.Rows[0].FirstName)
	assert.Empty(t, result.Rows[0].Bio)
	assert.Nil(t, result.Rows[0].DOB)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListUserDataEmptyTable(t *testing.T) {
	mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM user_data")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM user_data ORDER BY id")).
		WithArgs(0, 25).
		WillReturnRows(sqlmock.NewRows(recordColumns))
	mock.ExpectCommit()

	result, err := ListUserData(context.Background(), 1, 25, 25)

	require.NoError(t, err)
	assert.Equal(t, int64(0), result.TotalRows)
	assert.Empty(t, result.Rows)
	assert.NotNil(t, result.Rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListUserDataChunkSizeCapsLimit(t *testing.T) {
	mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM user_data")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(100))
	mock.ExpectQuery(regexp.QuoteMeta("FROM user_data ORDER BY id")).
		WithArgs(50, 10).
		WillReturnRows(sqlmock.NewRows(recordColumns))
	mock.ExpectCommit()

	_, err := ListUserData(context.Background(), 2, 50, 10)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListUserDataClampsPage(t *testing.T) {
	mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM user_data")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))
	mock.ExpectQuery(regexp.QuoteMeta("FROM user_data ORDER BY id")).
		WithArgs(0, 25).
		WillReturnRows(sqlmock.NewRows(recordColumns))
	mock.ExpectCommit()

	_, err := ListUserData(context.Background(), 0, 25, 25)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchUserData(t *testing.T) {
	mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM user_data WHERE LOWER(first_name) LIKE LOWER($1)")).
		WithArgs("%ada%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	rows := sqlmock.NewRows(recordColumns)
	addRecord(rows, 3, "Ada")
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY id OFFSET $2 LIMIT $3")).
		WithArgs("%ada%", 0, 25).
		WillReturnRows(rows)
	mock.ExpectCommit()

	result, err := SearchUserData(context.Background(), "ada", 1, 25)

	require.NoError(t, err)
	assert.Equal(t, int64(1), result.TotalRows)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "Ada", result.Rows[0].FirstName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchUserDataNoMatches(t *testing.T) {
	mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM user_data WHERE")).
		WithArgs("%nobody%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY id OFFSET $2 LIMIT $3")).
		WithArgs("%nobody%", 0, 25).
		WillReturnRows(sqlmock.NewRows(recordColumns))
	mock.ExpectCommit()

	result, err := SearchUserData(context.Background(), "nobody", 1, 25)

	require.NoError(t, err)
	assert.Equal(t, int64(0), result.TotalRows)
	assert.Empty(t, result.Rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserData(t *testing.T) {
	mock := newMockDB(t)

	dob := time.Date(1990, 3, 14, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(recordColumns).
		AddRow(8, "Ada", "Lovelace", "ada@example.com", "female", 36, "UK", "mathematician", dob, "sms")
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO user_data (first_name, last_name, email, gender, age, country, bio, dob, notification)")).
		WithArgs("Ada", "Lovelace", "ada@example.com", "female", 36, "UK", sqlmock.AnyArg(), sqlmock.AnyArg(), "sms").
		WillReturnRows(rows)

	rec, err := CreateUserData(context.Background(), NewUserData{
		FirstName:    "Ada",
		LastName:     "Lovelace",
		Email:        "ada@example.com",
		Gender:       "female",
		Age:          36,
		Country:      "UK",
		Bio:          "mathematician",
		DOB:          &dob,
		Notification: "sms",
	})

	require.NoError(t, err)
	assert.Equal(t, 8, rec.ID)
	assert.Equal(t, "mathematician", rec.Bio)
	require.NotNil(t, rec.DOB)
	assert.Equal(t, dob, *rec.DOB)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteUserDataIdempotent(t *testing.T) {
	mock := newMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM user_data WHERE id = $1")).
		WithArgs(99).
		WillReturnResult(sqlmock.NewResult(0, 0))

	// Zero rows matched is still a success
	require.NoError(t, DeleteUserData(context.Background(), 99))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteUserDataBatch(t *testing.T) {
	mock := newMockDB(t)

	ids := []int{2, 5, 9}
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM user_data WHERE id = ANY($1::int[])")).
		WithArgs(pq.Array(ids)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, DeleteUserDataBatch(context.Background(), ids))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteUserDataBatchEmptyIsNoop(t *testing.T) {
	mock := newMockDB(t)

	require.NoError(t, DeleteUserDataBatch(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAutocompleteUserData(t *testing.T) {
	mock := newMockDB(t)

	rows := sqlmock.NewRows(recordColumns)
	addRecord(rows, 1, "Ada")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT id, first_name")).
		WithArgs("%ada%", AutocompleteLimit).
		WillReturnRows(rows)

	records, err := AutocompleteUserData(context.Background(), "ada")

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Ada", records[0].FirstName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAutocompleteFirstNames(t *testing.T) {
	mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT first_name FROM user_data")).
		WillReturnRows(sqlmock.NewRows([]string{"first_name"}).AddRow("Ada").AddRow("Grace"))

	names, err := AutocompleteFirstNames(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"Ada", "Grace"}, names)
	assert.NoError(t, mock.ExpectationsWereMet())
}
