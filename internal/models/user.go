package models

import "time"

// Notification preference values accepted on create.
const (
	NotificationEmail = "email"
	NotificationSMS   = "sms"
)

// UserRecord is one row of the user_data table. JSON field names follow the
// column names, which is the shape the table client renders.
type UserRecord struct {
	ID           int        `json:"id"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Email        string     `json:"email"`
	Gender       string     `json:"gender"`
	Age          int        `json:"age"`
	Country      string     `json:"country"`
	Bio          string     `json:"bio"`
	DOB          *time.Time `json:"dob"`
	Notification string     `json:"notification"`
}
