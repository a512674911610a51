package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/formgrid/formgrid-backend/internal/middleware"
	"github.com/formgrid/formgrid-backend/internal/models"
	"github.com/formgrid/formgrid-backend/internal/services"
)

// SubmitFormRequest carries the registration form fields. Field names follow
// the form inputs, not the column names; age arrives as text and selectedDate
// as an ISO timestamp or bare date.
type SubmitFormRequest struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Email        string `json:"email"`
	Gender       string `json:"gender"`
	Age          string `json:"age"`
	Country      string `json:"country"`
	Bio          string `json:"bio"`
	SelectedDate string `json:"selectedDate"`
	Notification string `json:"notification"`
}

// validateSubmitForm checks the required fields and coerces the wire types.
// Returns the message of the first failed check, or the create payload.
func validateSubmitForm(req SubmitFormRequest) (*services.NewUserData, string) {
	if strings.TrimSpace(req.FirstName) == "" {
		return nil, "First name is required"
	}
	if strings.TrimSpace(req.LastName) == "" {
		return nil, "Last name is required"
	}
	if strings.TrimSpace(req.Email) == "" {
		return nil, "Email is required"
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return nil, "Email is not valid"
	}
	if strings.TrimSpace(req.Gender) == "" {
		return nil, "Gender is required"
	}
	if strings.TrimSpace(req.Country) == "" {
		return nil, "Country is required"
	}

	age, err := strconv.Atoi(strings.TrimSpace(req.Age))
	if err != nil || age <= 0 {
		return nil, "Age must be a positive number"
	}

	notification := req.Notification
	if notification == "" {
		notification = models.NotificationEmail
	}
	if notification != models.NotificationEmail && notification != models.NotificationSMS {
		return nil, "Notification must be email or sms"
	}

	var dob *time.Time
	if req.SelectedDate != "" {
		parsed, err := parseFormDate(req.SelectedDate)
		if err != nil {
			return nil, "Date of birth is not valid"
		}
		dob = &parsed
	}

	return &services.NewUserData{
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Email:        strings.TrimSpace(req.Email),
		Gender:       req.Gender,
		Age:          age,
		Country:      strings.TrimSpace(req.Country),
		Bio:          req.Bio,
		DOB:          dob,
		Notification: notification,
	}, ""
}

func parseFormDate(value string) (time.Time, error) {
	// Date pickers send either a full ISO timestamp or a bare date
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}

// SubmitForm handles POST /api/submitForm: validates the registration form,
// persists one row and returns it including the assigned id.
func SubmitForm(w http.ResponseWriter, r *http.Request) {
	var req SubmitFormRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "Invalid request body")
		return
	}

	data, message := validateSubmitForm(req)
	if message != "" {
		badRequest(w, message)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	record, err := services.CreateUserData(ctx, *data)
	if err != nil {
		log.Printf("Error inserting data (request %s): %v", middleware.GetRequestID(r.Context()), err)
		internalError(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(record)
}
