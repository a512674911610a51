package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/formgrid/formgrid-backend/internal/middleware"
	"github.com/formgrid/formgrid-backend/internal/models"
	"github.com/formgrid/formgrid-backend/internal/services"
)

// handlerTimeout bounds every store call issued by a handler.
const handlerTimeout = 5 * time.Second

// DefaultRowsPerPage is used when the client omits rowsPerPage.
const DefaultRowsPerPage = 25

// UserDataResponse matches the wire contract of the table client: totalRows
// is reported as a string, the way COUNT(*) comes back from Postgres.
type UserDataResponse struct {
	UserData  []models.UserRecord `json:"userData"`
	TotalRows string              `json:"totalRows"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

func queryInt(r *http.Request, name string, defaultValue int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return defaultValue, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return value, true
}

func badRequest(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}

func internalError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(ErrorResponse{Error: "Internal Server Error"})
}

// GetUserData handles GET /api/getUserData: one unfiltered page of rows
// ordered by id, plus the full table count.
func GetUserData(w http.ResponseWriter, r *http.Request) {
	page, ok := queryInt(r, "page", 1)
	if !ok {
		badRequest(w, "Invalid page")
		return
	}
	rowsPerPage, ok := queryInt(r, "rowsPerPage", DefaultRowsPerPage)
	if !ok || rowsPerPage < 1 {
		badRequest(w, "Invalid rowsPerPage")
		return
	}
	// chunkSize can only narrow the window; omitted means the full page
	chunkSize, ok := queryInt(r, "chunkSize", rowsPerPage)
	if !ok {
		badRequest(w, "Invalid chunkSize")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	result, err := services.ListUserData(ctx, page, rowsPerPage, chunkSize)
	if err != nil {
		log.Printf("Error fetching user data (request %s): %v", middleware.GetRequestID(r.Context()), err)
		internalError(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(UserDataResponse{
		UserData:  result.Rows,
		TotalRows: strconv.FormatInt(result.TotalRows, 10),
	})
}

// SearchUserData handles GET /api/searchUserData: one page of rows whose
// first name, last name or email contains searchTerm, plus the filtered count.
func SearchUserData(w http.ResponseWriter, r *http.Request) {
	searchTerm := r.URL.Query().Get("searchTerm")

	page, ok := queryInt(r, "page", 1)
	if !ok {
		badRequest(w, "Invalid page")
		return
	}
	rowsPerPage, ok := queryInt(r, "rowsPerPage", DefaultRowsPerPage)
	if !ok || rowsPerPage < 1 {
		badRequest(w, "Invalid rowsPerPage")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	result, err := services.SearchUserData(ctx, searchTerm, page, rowsPerPage)
	if err != nil {
		log.Printf("Error searching user data (request %s): %v", middleware.GetRequestID(r.Context()), err)
		internalError(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(UserDataResponse{
		UserData:  result.Rows,
		TotalRows: strconv.FormatInt(result.TotalRows, 10),
	})
}
