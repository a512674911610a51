package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/formgrid/formgrid-backend/internal/middleware"
	"github.com/formgrid/formgrid-backend/internal/models"
	"github.com/formgrid/formgrid-backend/internal/services"
)

// AutocompleteOptionsResponse carries the distinct first names used to seed
// the search suggestion list.
type AutocompleteOptionsResponse struct {
	AutocompleteOptions []string `json:"autocompleteOptions"`
}

// AutocompleteResponse carries full-row matches for the typed search term.
type AutocompleteResponse struct {
	Values []models.UserRecord `json:"values"`
}

// GetAutocompleteOptions handles GET /api/getAutocompleteOptions.
func GetAutocompleteOptions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	names, err := services.AutocompleteFirstNames(ctx)
	if err != nil {
		log.Printf("Error fetching autocomplete options (request %s): %v", middleware.GetRequestID(r.Context()), err)
		internalError(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(AutocompleteOptionsResponse{AutocompleteOptions: names})
}

// Autocomplete handles GET /api/autocomplete: up to ten rows where any
// column contains the search term.
func Autocomplete(w http.ResponseWriter, r *http.Request) {
	searchTerm := r.URL.Query().Get("searchTerm")

	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	values, err := services.AutocompleteUserData(ctx, searchTerm)
	if err != nil {
		log.Printf("Error fetching autocomplete results (request %s): %v", middleware.GetRequestID(r.Context()), err)
		internalError(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(AutocompleteResponse{Values: values})
}
