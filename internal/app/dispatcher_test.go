package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/onboardhq/kyc-service/internal/domain"
	"github.com/onboardhq/kyc-service/internal/store"
)

func TestEnqueueDisabledByConfig(t *testing.T) {
	repo := newFakeRepository()
	d := NewDispatcher(repo, &fakeRenderer{}, nil, t.TempDir(), "amqp://localhost", false)

	if d.BrokerEnabled() {
		t.Fatal("expected broker disabled by configuration")
	}
	err := d.EnqueuePdfJob(context.Background(), uuid.New(), false)
	if !errors.Is(err, ErrBrokerUnavailable) {
		t.Fatalf("expected ErrBrokerUnavailable, got %v", err)
	}
}

func TestDisableIsPermanent(t *testing.T) {
	repo := newFakeRepository()
	d := NewDispatcher(repo, &fakeRenderer{}, nil, t.TempDir(), "amqp://localhost", true)

	if !d.BrokerEnabled() {
		t.Fatal("expected broker available before first failure")
	}
	d.disable("test-induced failure")
	if d.BrokerEnabled() {
		t.Fatal("expected broker to stay disabled after failure")
	}

	// Further failures are a no-op; the flag never flips back.
	d.disable("second failure")
	if d.BrokerEnabled() {
		t.Fatal("expected broker to remain disabled")
	}
	err := d.EnqueueMailJob(context.Background(), domain.MailJob{CustomerID: uuid.NewString(), Type: domain.MailTypeApproved})
	if !errors.Is(err, ErrBrokerUnavailable) {
		t.Fatalf("expected ErrBrokerUnavailable, got %v", err)
	}
}

func TestGenerateAndAttachPdfWritesArtifact(t *testing.T) {
	repo := newFakeRepository()
	dir := t.TempDir()
	d := NewDispatcher(repo, &fakeRenderer{}, nil, dir, "amqp://localhost", false)

	fixed := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	d.now = func() time.Time { return fixed }

	customer := seedCustomer(t, repo, domain.StatusApproved)
	updated, err := d.GenerateAndAttachPdf(context.Background(), customer)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	wantPath := fmt.Sprintf("/pdfs/%s-%d.pdf", customer.ID, fixed.UnixMilli())
	if updated.PdfPath == nil || *updated.PdfPath != wantPath {
		t.Fatalf("expected pdfPath %q, got %v", wantPath, updated.PdfPath)
	}
	if updated.PdfGeneratedAt == nil || !updated.PdfGeneratedAt.Equal(fixed) {
		t.Errorf("expected pdfGeneratedAt %v, got %v", fixed, updated.PdfGeneratedAt)
	}

	onDisk := filepath.Join(dir, filepath.Base(wantPath))
	if _, err := os.Stat(onDisk); err != nil {
		t.Errorf("expected artifact on disk at %s: %v", onDisk, err)
	}
}

func TestGenerateAndAttachPdfRenderFailure(t *testing.T) {
	repo := newFakeRepository()
	d := NewDispatcher(repo, &fakeRenderer{err: errors.New("disk full")}, nil, t.TempDir(), "amqp://localhost", false)

	customer := seedCustomer(t, repo, domain.StatusApproved)
	if _, err := d.GenerateAndAttachPdf(context.Background(), customer); err == nil {
		t.Fatal("expected error from failing renderer")
	}

	// The record must be untouched when rendering fails.
	current, err := repo.FindCustomerByID(context.Background(), customer.ID)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if current.PdfPath != nil {
		t.Errorf("expected no pdfPath after render failure, got %q", *current.PdfPath)
	}
}

func TestSendMailNowWithoutSMTP(t *testing.T) {
	repo := newFakeRepository()
	d := NewDispatcher(repo, &fakeRenderer{}, nil, t.TempDir(), "amqp://localhost", false)

	err := d.SendMailNow(context.Background(), domain.MailJob{CustomerID: uuid.NewString(), Type: domain.MailTypeApproved})
	if !errors.Is(err, ErrSMTPNotConfigured) {
		t.Fatalf("expected ErrSMTPNotConfigured, got %v", err)
	}
}

func TestSendMailNowInvalidCustomerID(t *testing.T) {
	repo := newFakeRepository()
	d := NewDispatcher(repo, &fakeRenderer{}, &fakeMailer{}, t.TempDir(), "amqp://localhost", false)

	err := d.SendMailNow(context.Background(), domain.MailJob{CustomerID: "not-a-uuid", Type: domain.MailTypeApproved})
	if !errors.Is(err, store.ErrCustomerNotFound) {
		t.Fatalf("expected ErrCustomerNotFound, got %v", err)
	}
}

func TestSendMailNowMissingRecipient(t *testing.T) {
	repo := newFakeRepository()
	mailer := &fakeMailer{}
	d := NewDispatcher(repo, &fakeRenderer{}, mailer, t.TempDir(), "amqp://localhost", false)

	customer := &domain.Customer{FirstName: "Ada", Status: domain.StatusApproved}
	if err := repo.CreateCustomer(context.Background(), customer); err != nil {
		t.Fatalf("seed customer: %v", err)
	}

	err := d.SendMailNow(context.Background(), domain.MailJob{CustomerID: customer.ID.String(), Type: domain.MailTypeApproved})
	if !errors.Is(err, ErrMissingRecipient) {
		t.Fatalf("expected ErrMissingRecipient, got %v", err)
	}
	if mailer.sentCount() != 0 {
		t.Errorf("expected no send attempt, got %d", mailer.sentCount())
	}
}

func TestSendMailNowRefetchesCustomer(t *testing.T) {
	repo := newFakeRepository()
	mailer := &fakeMailer{}
	d := NewDispatcher(repo, &fakeRenderer{}, mailer, t.TempDir(), "amqp://localhost", false)

	customer := seedCustomer(t, repo, domain.StatusApproved)
	job := domain.MailJob{CustomerID: customer.ID.String(), Type: domain.MailTypeRejected}
	if err := d.SendMailNow(context.Background(), job); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	last, ok := mailer.lastSent()
	if !ok {
		t.Fatal("expected a sent mail")
	}
	if last.customerID != customer.ID {
		t.Errorf("expected recipient %s, got %s", customer.ID, last.customerID)
	}
	if last.mailType != domain.MailTypeRejected {
		t.Errorf("expected mail type %q, got %q", domain.MailTypeRejected, last.mailType)
	}
}
