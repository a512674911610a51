package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/formgrid/formgrid-backend/internal/handlers"
)

func SetupRoutes(r *chi.Mux) {
	// Listing routes (paginated table view)
	r.Get("/api/getUserData", handlers.GetUserData)
	r.Get("/api/searchUserData", handlers.SearchUserData)

	// Registration form routes
	r.Post("/api/submitForm", handlers.SubmitForm)

	// Row deletion routes
	r.Delete("/api/deleteRow/{id}", handlers.DeleteRow)
	r.Delete("/api/deleteAllRows", handlers.DeleteAllRows)

	// Search suggestion routes
	r.Get("/api/getAutocompleteOptions", handlers.GetAutocompleteOptions)
	r.Get("/api/autocomplete", handlers.Autocomplete)
}
