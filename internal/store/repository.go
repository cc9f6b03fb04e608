/**
 * @description
 * This file defines the `Repository` interface, which specifies the contract
 * for all data access operations required by the kyc-service. The interface
 * decouples the business logic in the `app` layer from PostgreSQL, which keeps
 * the dispatcher and workers testable with in-memory fakes.
 *
 * @dependencies
 * - context, errors, time: Standard Go libraries.
 * - github.com/google/uuid: For identifier handling.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/onboardhq/kyc-service/internal/domain"
)

var (
	// ErrCustomerNotFound is returned when a lookup or transition targets a
	// customer that does not exist (or no longer exists).
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrAdminNotFound is returned when no admin matches the given email.
	ErrAdminNotFound = errors.New("admin not found")
	// ErrEmailTaken is returned when an admin signup collides with an
	// existing account.
	ErrEmailTaken = errors.New("email already registered")
)

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// Customer methods
	CreateCustomer(ctx context.Context, customer *domain.Customer) error
	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	FindCustomerByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error)
	DeleteCustomer(ctx context.Context, id uuid.UUID) error
	CountCustomers(ctx context.Context) (int64, error)

	// Status transitions. Each is a single UPDATE returning the updated row,
	// so the caller always sees a consistent record.
	ApproveCustomer(ctx context.Context, id uuid.UUID, at time.Time) (*domain.Customer, error)
	RejectCustomer(ctx context.Context, id uuid.UUID, at time.Time) (*domain.Customer, error)

	// PDF attachment methods
	ClearCustomerPDF(ctx context.Context, id uuid.UUID) (*domain.Customer, error)
	AttachCustomerPDF(ctx context.Context, id uuid.UUID, pdfPath string, generatedAt time.Time) (*domain.Customer, error)

	// Admin methods
	CreateAdmin(ctx context.Context, admin *domain.Admin) error
	FindAdminByEmail(ctx context.Context, email string) (*domain.Admin, error)
}
