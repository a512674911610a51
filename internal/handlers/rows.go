package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/formgrid/formgrid-backend/internal/middleware"
	"github.com/formgrid/formgrid-backend/internal/services"
)

// DeleteResponse is the body of a successful delete.
type DeleteResponse struct {
	Message string `json:"message"`
}

// DeleteRowsRequest lists the row ids to remove in one call.
type DeleteRowsRequest struct {
	IDs []int `json:"ids"`
}

// DeleteRow handles DELETE /api/deleteRow/{id}. Deleting an id that no
// longer exists still succeeds; the second delete is a no-op.
func DeleteRow(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "Invalid row ID")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	if err := services.DeleteUserData(ctx, id); err != nil {
		log.Printf("Error deleting row with ID %d (request %s): %v", id, middleware.GetRequestID(r.Context()), err)
		internalError(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(DeleteResponse{
		Message: fmt.Sprintf("Row with ID %d deleted successfully.", id),
	})
}

// DeleteAllRows handles DELETE /api/deleteAllRows: removes every listed id
// in a single statement. Ids that do not exist are skipped, not errors.
func DeleteAllRows(w http.ResponseWriter, r *http.Request) {
	var req DeleteRowsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "Invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	if err := services.DeleteUserDataBatch(ctx, req.IDs); err != nil {
		log.Printf("Error deleting selected rows (request %s): %v", middleware.GetRequestID(r.Context()), err)
		internalError(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(DeleteResponse{
		Message: "Selected rows deleted successfully.",
	})
}
