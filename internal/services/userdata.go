package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/formgrid/formgrid-backend/internal/database"
	"github.com/formgrid/formgrid-backend/internal/models"
)

const userDataColumns = "id, first_name, last_name, email, gender, age, country, bio, dob, notification"

// FirstNamesCacheKey is the Redis cache key for the distinct first-name suggestions.
const FirstNamesCacheKey = "user_data:first_names"

// AutocompleteLimit bounds the /api/autocomplete result set.
const AutocompleteLimit = 10

// ListResult is one window of the user_data table plus the total count
// matching the active filter (full table count when unfiltered).
type ListResult struct {
	Rows      []models.UserRecord
	TotalRows int64
}

// NewUserData carries the create fields; the store assigns the id.
type NewUserData struct {
	FirstName    string
	LastName     string
	Email        string
	Gender       string
	Age          int
	Country      string
	Bio          string
	DOB          *time.Time
	Notification string
}

func scanUserRecord(s interface{ Scan(dest ...interface{}) error }) (models.UserRecord, error) {
	var rec models.UserRecord
	var bio sql.NullString
	var dob sql.NullTime

	err := s.Scan(&rec.ID, &rec.FirstName, &rec.LastName, &rec.Email, &rec.Gender,
		&rec.Age, &rec.Country, &bio, &dob, &rec.Notification)
	if err != nil {
		return rec, err
	}
	if bio.Valid {
		rec.Bio = bio.String
	}
	if dob.Valid {
		t := dob.Time
		rec.DOB = &t
	}
	return rec, nil
}

func collectUserRecords(rows *sql.Rows) ([]models.UserRecord, error) {
	defer rows.Close()

	records := make([]models.UserRecord, 0)
	for rows.Next() {
		rec, err := scanUserRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ListUserData returns one page of user_data ordered by id ascending.
// page is 1-based; the window is offset = (page-1)*rowsPerPage. chunkSize
// caps the page size when smaller than rowsPerPage. Count and page are read
// in a single read-only transaction so they reflect the same snapshot.
// A window past the last row yields an empty page, not an error.
func ListUserData(ctx context.Context, page, rowsPerPage, chunkSize int) (*ListResult, error) {
	if page < 1 {
		page = 1
	}
	limit := rowsPerPage
	if chunkSize > 0 && chunkSize < limit {
		limit = chunkSize
	}
	offset := (page - 1) * rowsPerPage

	tx, err := database.PostgresDB.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var total int64
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM user_data").Scan(&total); err != nil {
		return nil, err
	}

	rows, err := tx.QueryContext(ctx,
		"SELECT "+userDataColumns+" FROM user_data ORDER BY id OFFSET $1 LIMIT $2",
		offset, limit)
	if err != nil {
		return nil, err
	}
	records, err := collectUserRecords(rows)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &ListResult{Rows: records, TotalRows: total}, nil
}

const searchCondition = "LOWER(first_name) LIKE LOWER($1) OR LOWER(last_name) LIKE LOWER($1) OR LOWER(email) LIKE LOWER($1)"

// SearchUserData returns one page of rows whose first name, last name or
// email contains searchTerm case-insensitively. TotalRows is the filtered
// count, read in the same transaction as the page.
func SearchUserData(ctx context.Context, searchTerm string, page, rowsPerPage int) (*ListResult, error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * rowsPerPage
	pattern := "%" + searchTerm + "%"

	tx, err := database.PostgresDB.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var total int64
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM user_data WHERE "+searchCondition, pattern).Scan(&total); err != nil {
		return nil, err
	}

	rows, err := tx.QueryContext(ctx,
		"SELECT "+userDataColumns+" FROM user_data WHERE "+searchCondition+" ORDER BY id OFFSET $2 LIMIT $3",
		pattern, offset, rowsPerPage)
	if err != nil {
		return nil, err
	}
	records, err := collectUserRecords(rows)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &ListResult{Rows: records, TotalRows: total}, nil
}

// CreateUserData persists one new row and returns it including the assigned id.
func CreateUserData(ctx context.Context, data NewUserData) (*models.UserRecord, error) {
	var bio sql.NullString
	if data.Bio != "" {
		bio = sql.NullString{String: data.Bio, Valid: true}
	}
	var dob sql.NullTime
	if data.DOB != nil {
		dob = sql.NullTime{Time: *data.DOB, Valid: true}
	}

	row := database.PostgresDB.QueryRowContext(ctx, `
		INSERT INTO user_data (first_name, last_name, email, gender, age, country, bio, dob, notification)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+userDataColumns,
		data.FirstName, data.LastName, data.Email, data.Gender, data.Age,
		data.Country, bio, dob, data.Notification)

	rec, err := scanUserRecord(row)
	if err != nil {
		return nil, err
	}

	invalidateFirstNames(ctx)
	return &rec, nil
}

// DeleteUserData removes the row with the given id. Deleting an id that does
// not exist matches zero rows and is still a success (idempotent contract).
func DeleteUserData(ctx context.Context, id int) error {
	_, err := database.PostgresDB.ExecContext(ctx, "DELETE FROM user_data WHERE id = $1", id)
	if err != nil {
		return err
	}
	invalidateFirstNames(ctx)
	return nil
}

// DeleteUserDataBatch removes all rows whose id is in ids with a single
// statement, so the batch is atomic per call. Missing ids are not an error.
func DeleteUserDataBatch(ctx context.Context, ids []int) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := database.PostgresDB.ExecContext(ctx,
		"DELETE FROM user_data WHERE id = ANY($1::int[])", pq.Array(ids))
	if err != nil {
		return err
	}
	invalidateFirstNames(ctx)
	return nil
}

// AutocompleteUserData returns up to AutocompleteLimit rows where any
// column contains searchTerm case-insensitively.
func AutocompleteUserData(ctx context.Context, searchTerm string) ([]models.UserRecord, error) {
	pattern := "%" + searchTerm + "%"

	rows, err := database.PostgresDB.QueryContext(ctx, `
		SELECT DISTINCT `+userDataColumns+` FROM user_data
		WHERE LOWER(id::TEXT) LIKE LOWER($1)
		   OR LOWER(first_name) LIKE LOWER($1)
		   OR LOWER(last_name) LIKE LOWER($1)
		   OR LOWER(email) LIKE LOWER($1)
		   OR LOWER(gender) LIKE LOWER($1)
		   OR LOWER(country) LIKE LOWER($1)
		   OR LOWER(notification) LIKE LOWER($1)
		   OR LOWER(bio) LIKE LOWER($1)
		LIMIT $2`, pattern, AutocompleteLimit)
	if err != nil {
		return nil, err
	}
	return collectUserRecords(rows)
}

// AutocompleteFirstNames returns the distinct first names in user_data,
// served from Redis when the cache is warm. A cache fault falls through
// to the database.
func AutocompleteFirstNames(ctx context.Context) ([]string, error) {
	if database.RedisClient != nil {
		var cached []string
		if hit, err := Cache.Get(ctx, FirstNamesCacheKey, &cached); err == nil && hit {
			return cached, nil
		}
	}

	rows, err := database.PostgresDB.QueryContext(ctx, "SELECT DISTINCT first_name FROM user_data")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if database.RedisClient != nil {
		// Best effort: a failed cache write only costs the next request a query
		_ = Cache.Set(ctx, FirstNamesCacheKey, names)
	}
	return names, nil
}

func invalidateFirstNames(ctx context.Context) {
	if database.RedisClient != nil {
		_ = Cache.Delete(ctx, FirstNamesCacheKey)
	}
}
