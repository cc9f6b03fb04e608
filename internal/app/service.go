/**
 * @description
 * This file contains the core application logic for the kyc-service: customer
 * registration with AI summary generation, the admin review transitions
 * (approve/reject), and on-demand dossier regeneration. Each review operation
 * applies the call-site policy the dispatcher honors: attempt the queued path
 * when the broker is available, fall through to inline execution when it is
 * not, and never surface broker failures to the end user.
 */

package app

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/onboardhq/kyc-service/internal/domain"
	"github.com/onboardhq/kyc-service/internal/store"
	"github.com/onboardhq/kyc-service/pkg/llmclient"
)

var (
	// ErrRegistrationLimit is returned when the registration cap is reached.
	ErrRegistrationLimit = errors.New("registration limit reached")
	// ErrNotApproved is returned when a dossier is requested for a customer
	// that is not in the approved state.
	ErrNotApproved = errors.New("only approved customers can generate PDFs")
)

// SummaryClient generates one-sentence profile summaries.
type SummaryClient interface {
	Summarize(ctx context.Context, fields llmclient.ProfileFields) (string, error)
}

// Service implements the application's business logic on top of the store
// and the job dispatcher.
type Service struct {
	repo         store.Repository
	dispatcher   *Dispatcher
	summaries    SummaryClient
	maxCustomers int64
}

// NewService creates a new application service.
func NewService(repo store.Repository, dispatcher *Dispatcher, summaries SummaryClient, maxCustomers int64) *Service {
	return &Service{
		repo:         repo,
		dispatcher:   dispatcher,
		summaries:    summaries,
		maxCustomers: maxCustomers,
	}
}

// RegisterCustomer validates nothing itself (the handler validates the DTO);
// it enforces the registration cap, generates the AI summary (best-effort)
// and persists the new pending customer.
func (s *Service) RegisterCustomer(ctx context.Context, in domain.CustomerInput) (*domain.Customer, error) {
	count, err := s.repo.CountCustomers(ctx)
	if err != nil {
		return nil, err
	}
	if count >= s.maxCustomers {
		return nil, ErrRegistrationLimit
	}

	customer := &domain.Customer{
		FirstName:        in.FirstName,
		LastName:         in.LastName,
		Email:            in.Email,
		Phone:            in.Phone,
		DateOfBirth:      in.BirthDate(),
		Nationality:      in.Nationality,
		Gender:           in.Gender,
		Age:              in.Age,
		YearlyIncome:     in.YearlyIncome,
		CurrentAddress:   in.CurrentAddress,
		PermanentAddress: in.PermanentAddress,
		Notes:            in.Notes,
		Summary:          s.generateSummary(ctx, in),
		Status:           domain.StatusPending,
	}

	if err := s.repo.CreateCustomer(ctx, customer); err != nil {
		return nil, err
	}
	return customer, nil
}

// generateSummary asks the LLM provider for a profile summary. Registration
// never fails on summary problems: an unconfigured or failing provider yields
// a deterministic placeholder.
func (s *Service) generateSummary(ctx context.Context, in domain.CustomerInput) string {
	if s.summaries != nil {
		summary, err := s.summaries.Summarize(ctx, llmclient.ProfileFields{
			FirstName:        in.FirstName,
			LastName:         in.LastName,
			Email:            in.Email,
			Phone:            in.Phone,
			DateOfBirth:      in.DateOfBirth,
			Nationality:      in.Nationality,
			Gender:           in.Gender,
			Age:              in.Age,
			YearlyIncome:     in.YearlyIncome,
			CurrentAddress:   in.CurrentAddress,
			PermanentAddress: in.PermanentAddress,
			Notes:            in.Notes,
		})
		if err != nil {
			log.Printf("level=warn component=service msg=\"summary generation failed; using placeholder\" err=%v", err)
		} else if summary != "" {
			return summary
		}
	}
	return in.FirstName + " " + in.LastName + " - Customer registered for KYC verification."
}

// ListCustomers returns all customers, newest first.
func (s *Service) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	return s.repo.ListCustomers(ctx)
}

// GetCustomer fetches a single customer.
func (s *Service) GetCustomer(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	return s.repo.FindCustomerByID(ctx, id)
}

// DeleteCustomer removes a customer record.
func (s *Service) DeleteCustomer(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteCustomer(ctx, id)
}

// ApproveCustomer transitions the customer to approved and arranges dossier
// generation. It returns the customer record and whether the work was queued
// (202) rather than executed inline (200). No email is sent on approve; the
// approved notification goes out with the explicit PDF regeneration action.
func (s *Service) ApproveCustomer(ctx context.Context, id uuid.UUID) (*domain.Customer, bool, error) {
	customer, err := s.repo.ApproveCustomer(ctx, id, time.Now())
	if err != nil {
		return nil, false, err
	}

	if s.dispatcher.BrokerEnabled() {
		err := s.dispatcher.EnqueuePdfJob(ctx, customer.ID, false)
		if err == nil {
			return customer, true, nil
		}
		log.Printf("level=warn component=service msg=\"queue unavailable, generating inline\" customer_id=%s err=%v", id, err)
	}

	updated, err := s.dispatcher.GenerateAndAttachPdf(ctx, customer)
	if err != nil {
		return nil, false, err
	}
	return updated, false, nil
}

// RejectCustomer transitions the customer to rejected and sends (or queues)
// the rejection notification. Mail failure never fails the rejection itself.
func (s *Service) RejectCustomer(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	customer, err := s.repo.RejectCustomer(ctx, id, time.Now())
	if err != nil {
		return nil, err
	}

	s.sendOutcomeMail(ctx, domain.MailJob{
		CustomerID: customer.ID.String(),
		Type:       domain.MailTypeRejected,
	})
	return customer, nil
}

// RegeneratePDF clears the previous artifact and arranges a fresh dossier
// plus an approved notification. Returns the customer, the new pdfPath (when
// inline) and whether the work was queued.
func (s *Service) RegeneratePDF(ctx context.Context, id uuid.UUID) (*domain.Customer, bool, error) {
	customer, err := s.repo.FindCustomerByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if customer.Status != domain.StatusApproved {
		return nil, false, ErrNotApproved
	}

	customer, err = s.repo.ClearCustomerPDF(ctx, id)
	if err != nil {
		return nil, false, err
	}

	if s.dispatcher.BrokerEnabled() {
		err := s.dispatcher.EnqueuePdfJob(ctx, customer.ID, true)
		if err == nil {
			return customer, true, nil
		}
		log.Printf("level=warn component=service msg=\"queue unavailable, generating inline\" customer_id=%s err=%v", id, err)
	}

	updated, err := s.dispatcher.GenerateAndAttachPdf(ctx, customer)
	if err != nil {
		return nil, false, err
	}

	mailJob := domain.MailJob{
		CustomerID: updated.ID.String(),
		Type:       domain.MailTypeApproved,
	}
	if updated.PdfPath != nil {
		mailJob.PdfPath = *updated.PdfPath
	}
	s.sendOutcomeMail(ctx, mailJob)

	return updated, false, nil
}

// sendOutcomeMail delivers a notification as a best-effort side effect:
// queued when the broker is available, inline otherwise, with enqueue
// failures falling through to the inline send. Failures are logged as
// warnings and swallowed; they never change the primary action's outcome.
func (s *Service) sendOutcomeMail(ctx context.Context, job domain.MailJob) {
	if s.dispatcher.BrokerEnabled() {
		err := s.dispatcher.EnqueueMailJob(ctx, job)
		if err == nil {
			return
		}
		log.Printf("level=warn component=service msg=\"mail enqueue failed; sending inline\" customer_id=%s err=%v", job.CustomerID, err)
	}
	if err := s.dispatcher.SendMailNow(ctx, job); err != nil {
		log.Printf("level=warn component=service msg=\"mail send failed\" customer_id=%s type=%s err=%v", job.CustomerID, job.Type, err)
	}
}
