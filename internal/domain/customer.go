/**
 * @description
 * This file defines the core domain models for the kyc-service: the customer
 * record with its KYC fields and review status, plus the DTO used by the
 * public registration endpoint.
 *
 * @notes
 * - The customer record is the only shared mutable resource in the system.
 *   All status transitions and PDF attachment happen through explicit store
 *   operations, never by mutating a struct fetched elsewhere.
 * - ApprovedAt and RejectedAt are mutually exclusive: setting one clears the
 *   other. A fresh approval clears PdfPath/PdfGeneratedAt so a new dossier is
 *   generated; reject leaves any existing dossier reference on the record.
 */

package domain

import (
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Customer statuses. A customer starts as pending and moves to approved or
// rejected through the admin review endpoints.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Customer represents a registered KYC applicant. It maps directly to the
// `customers` table.
type Customer struct {
	ID               uuid.UUID  `json:"id"`
	FirstName        string     `json:"firstName"`
	LastName         string     `json:"lastName"`
	Email            string     `json:"email"`
	Phone            string     `json:"phone"`
	DateOfBirth      time.Time  `json:"dateOfBirth"`
	Nationality      string     `json:"nationality"`
	Gender           string     `json:"gender"`
	Age              int        `json:"age"`
	YearlyIncome     float64    `json:"yearlyIncome"`
	CurrentAddress   string     `json:"currentAddress"`
	PermanentAddress string     `json:"permanentAddress"`
	Notes            string     `json:"notes,omitempty"`
	Summary          string     `json:"summary,omitempty"`
	Status           string     `json:"status"`
	ApprovedAt       *time.Time `json:"approvedAt,omitempty"`
	RejectedAt       *time.Time `json:"rejectedAt,omitempty"`
	PdfPath          *string    `json:"pdfPath,omitempty"`
	PdfGeneratedAt   *time.Time `json:"pdfGeneratedAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// FullName returns the customer's display name, falling back to "Customer"
// when both name fields are blank.
func (c *Customer) FullName() string {
	name := strings.TrimSpace(strings.TrimSpace(c.FirstName) + " " + strings.TrimSpace(c.LastName))
	if name == "" {
		return "Customer"
	}
	return name
}

// CustomerInput is the DTO for the public registration endpoint. Validation
// tags mirror the registration form's rules.
type CustomerInput struct {
	FirstName        string  `json:"firstName" validate:"required"`
	LastName         string  `json:"lastName" validate:"required"`
	Email            string  `json:"email" validate:"required,email,gmail"`
	Phone            string  `json:"phone" validate:"required"`
	DateOfBirth      string  `json:"dateOfBirth" validate:"required,datetime=2006-01-02"`
	Nationality      string  `json:"nationality" validate:"required"`
	Gender           string  `json:"gender" validate:"required,oneof=Male Female Other"`
	Age              int     `json:"age" validate:"required,gte=18"`
	YearlyIncome     float64 `json:"yearlyIncome" validate:"gte=0"`
	CurrentAddress   string  `json:"currentAddress" validate:"required"`
	PermanentAddress string  `json:"permanentAddress" validate:"required"`
	Notes            string  `json:"notes"`
}

var gmailPattern = regexp.MustCompile(`(?i)^[a-zA-Z0-9._%+-]+@gmail\.com$`)

var customerValidate = newCustomerValidator()

func newCustomerValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("gmail", func(fl validator.FieldLevel) bool {
		return gmailPattern.MatchString(fl.Field().String())
	})
	return v
}

// validationMessages maps field+tag pairs to the human-readable messages the
// front end displays next to each form input.
var validationMessages = map[string]string{
	"FirstName.required":        "First name required",
	"LastName.required":         "Last name required",
	"Email.required":            "Invalid email format",
	"Email.email":               "Invalid email format",
	"Email.gmail":               "Email must be a gmail.com address",
	"Phone.required":            "Phone number required",
	"DateOfBirth.required":      "Date of birth required",
	"DateOfBirth.datetime":      "Date of birth required",
	"Nationality.required":      "Nationality required",
	"Gender.required":           "Gender required",
	"Gender.oneof":              "Gender required",
	"Age.required":              "Age must be at least 18",
	"Age.gte":                   "Age must be at least 18",
	"YearlyIncome.gte":          "Yearly income must be positive",
	"CurrentAddress.required":   "Current address required",
	"PermanentAddress.required": "Permanent address required",
}

// Validate normalizes and validates a registration payload. It returns the
// list of human-readable field errors, or nil when the input is acceptable.
func (in *CustomerInput) Validate() []string {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.DateOfBirth = strings.TrimSpace(in.DateOfBirth)
	in.Nationality = strings.TrimSpace(in.Nationality)
	in.CurrentAddress = strings.TrimSpace(in.CurrentAddress)
	in.PermanentAddress = strings.TrimSpace(in.PermanentAddress)

	err := customerValidate.Struct(in)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{err.Error()}
	}

	details := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if msg, ok := validationMessages[fe.Field()+"."+fe.Tag()]; ok {
			details = append(details, msg)
		} else {
			details = append(details, fe.Field()+": invalid value")
		}
	}
	return details
}

// BirthDate parses the validated dateOfBirth field. Call only after Validate
// has succeeded.
func (in *CustomerInput) BirthDate() time.Time {
	t, _ := time.Parse("2006-01-02", in.DateOfBirth)
	return t
}
