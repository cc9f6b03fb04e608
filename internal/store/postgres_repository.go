/**
 * @description
 * This file implements the `Repository` interface against PostgreSQL using the
 * pgx connection pool. It owns every query touching the `customers` and
 * `admins` tables.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: Driver, pgx.ErrNoRows mapping.
 * - github.com/jackc/pgx/v5/pgxpool: Connection pool.
 *
 * @notes
 * - Status transitions and PDF attachment are single UPDATE ... RETURNING
 *   statements. The returned row is what handlers and workers report back, so
 *   a response never mixes pre- and post-transition state.
 */

package store

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/onboardhq/kyc-service/internal/domain"
)

// PostgresRepository is the PostgreSQL implementation of the Repository.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const customerColumns = `
	id, first_name, last_name, email, phone, date_of_birth, nationality,
	gender, age, yearly_income, current_address, permanent_address, notes,
	summary, status, approved_at, rejected_at, pdf_path, pdf_generated_at,
	created_at, updated_at
`

func scanCustomer(row pgx.Row) (*domain.Customer, error) {
	var c domain.Customer
	err := row.Scan(
		&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.DateOfBirth,
		&c.Nationality, &c.Gender, &c.Age, &c.YearlyIncome, &c.CurrentAddress,
		&c.PermanentAddress, &c.Notes, &c.Summary, &c.Status, &c.ApprovedAt,
		&c.RejectedAt, &c.PdfPath, &c.PdfGeneratedAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	return &c, nil
}

// CreateCustomer inserts a new customer record, filling in the generated
// identifier and timestamps on the given struct.
func (r *PostgresRepository) CreateCustomer(ctx context.Context, customer *domain.Customer) error {
	query := `
        INSERT INTO customers (
            first_name, last_name, email, phone, date_of_birth, nationality,
            gender, age, yearly_income, current_address, permanent_address,
            notes, summary, status
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
        RETURNING id, status, created_at, updated_at
    `
	err := r.db.QueryRow(ctx, query,
		customer.FirstName,
		customer.LastName,
		customer.Email,
		customer.Phone,
		customer.DateOfBirth,
		customer.Nationality,
		customer.Gender,
		customer.Age,
		customer.YearlyIncome,
		customer.CurrentAddress,
		customer.PermanentAddress,
		customer.Notes,
		customer.Summary,
		domain.StatusPending,
	).Scan(&customer.ID, &customer.Status, &customer.CreatedAt, &customer.UpdatedAt)
	if err != nil {
		log.Printf("level=error component=store msg=\"insert customer failed\" err=%v", err)
		return err
	}
	return nil
}

// ListCustomers returns all customers, newest first.
func (r *PostgresRepository) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		log.Printf("level=error component=store msg=\"list customers failed\" err=%v", err)
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, *c)
	}
	return customers, rows.Err()
}

// FindCustomerByID fetches a single customer record.
func (r *PostgresRepository) FindCustomerByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`
	return scanCustomer(r.db.QueryRow(ctx, query, id))
}

// DeleteCustomer removes a customer record.
func (r *PostgresRepository) DeleteCustomer(ctx context.Context, id uuid.UUID) error {
	commandTag, err := r.db.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		log.Printf("level=error component=store msg=\"delete customer failed\" customer_id=%s err=%v", id, err)
		return err
	}
	if commandTag.RowsAffected() == 0 {
		return ErrCustomerNotFound
	}
	return nil
}

// CountCustomers returns the total number of registered customers. The API
// layer uses this to enforce the registration cap.
func (r *PostgresRepository) CountCustomers(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM customers`).Scan(&count); err != nil {
		log.Printf("level=error component=store msg=\"count customers failed\" err=%v", err)
		return 0, err
	}
	return count, nil
}

// ApproveCustomer transitions a customer to approved. RejectedAt and any
// stale PDF artifact references are cleared in the same statement.
func (r *PostgresRepository) ApproveCustomer(ctx context.Context, id uuid.UUID, at time.Time) (*domain.Customer, error) {
	query := `
        UPDATE customers
        SET status = $2, approved_at = $3, rejected_at = NULL,
            pdf_path = NULL, pdf_generated_at = NULL, updated_at = NOW()
        WHERE id = $1
        RETURNING ` + customerColumns
	return scanCustomer(r.db.QueryRow(ctx, query, id, domain.StatusApproved, at))
}

// RejectCustomer transitions a customer to rejected, clearing ApprovedAt.
func (r *PostgresRepository) RejectCustomer(ctx context.Context, id uuid.UUID, at time.Time) (*domain.Customer, error) {
	query := `
        UPDATE customers
        SET status = $2, rejected_at = $3, approved_at = NULL, updated_at = NOW()
        WHERE id = $1
        RETURNING ` + customerColumns
	return scanCustomer(r.db.QueryRow(ctx, query, id, domain.StatusRejected, at))
}

// ClearCustomerPDF removes the PDF artifact reference before a regeneration.
func (r *PostgresRepository) ClearCustomerPDF(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	query := `
        UPDATE customers
        SET pdf_path = NULL, pdf_generated_at = NULL, updated_at = NOW()
        WHERE id = $1
        RETURNING ` + customerColumns
	return scanCustomer(r.db.QueryRow(ctx, query, id))
}

// AttachCustomerPDF persists the path and timestamp of a freshly rendered
// dossier.
func (r *PostgresRepository) AttachCustomerPDF(ctx context.Context, id uuid.UUID, pdfPath string, generatedAt time.Time) (*domain.Customer, error) {
	query := `
        UPDATE customers
        SET pdf_path = $2, pdf_generated_at = $3, updated_at = NOW()
        WHERE id = $1
        RETURNING ` + customerColumns
	return scanCustomer(r.db.QueryRow(ctx, query, id, pdfPath, generatedAt))
}

// CreateAdmin inserts a new admin record. A unique constraint violation on
// the email column is reported as ErrEmailTaken so the handler can return a
// 409 Conflict.
func (r *PostgresRepository) CreateAdmin(ctx context.Context, admin *domain.Admin) error {
	query := `
        INSERT INTO admins (email, password_hash)
        VALUES ($1, $2)
        RETURNING id, created_at, updated_at
    `
	err := r.db.QueryRow(ctx, query, admin.Email, admin.PasswordHash).
		Scan(&admin.ID, &admin.CreatedAt, &admin.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrEmailTaken
		}
		log.Printf("level=error component=store msg=\"insert admin failed\" err=%v", err)
		return err
	}
	return nil
}

// FindAdminByEmail fetches an admin account for login.
func (r *PostgresRepository) FindAdminByEmail(ctx context.Context, email string) (*domain.Admin, error) {
	query := `
        SELECT id, email, password_hash, created_at, updated_at
        FROM admins
        WHERE email = $1
    `
	var a domain.Admin
	err := r.db.QueryRow(ctx, query, email).
		Scan(&a.ID, &a.Email, &a.PasswordHash, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAdminNotFound
		}
		log.Printf("level=error component=store msg=\"find admin failed\" err=%v", err)
		return nil, err
	}
	return &a, nil
}
