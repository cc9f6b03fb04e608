package app

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/onboardhq/kyc-service/internal/domain"
)

func marshalJob(t *testing.T, job any) []byte {
	t.Helper()
	body, err := json.Marshal(job)
	if err != nil {
		t.Fatalf("marshal job: %v", err)
	}
	return body
}

func TestHandlePdfJobAcksOnSuccess(t *testing.T) {
	repo := newFakeRepository()
	d := NewDispatcher(repo, &fakeRenderer{}, nil, t.TempDir(), "amqp://localhost", false)
	customer := seedCustomer(t, repo, domain.StatusApproved)

	body := marshalJob(t, domain.PdfJob{CustomerID: customer.ID.String(), Notify: false})
	if !d.handlePdfJob(body) {
		t.Fatal("expected ack for successful pdf job")
	}

	current, err := repo.FindCustomerByID(context.Background(), customer.ID)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if current.PdfPath == nil {
		t.Fatal("expected pdfPath after worker run")
	}
}

func TestHandlePdfJobNotifySendsApprovedMail(t *testing.T) {
	repo := newFakeRepository()
	mailer := &fakeMailer{}
	d := NewDispatcher(repo, &fakeRenderer{}, mailer, t.TempDir(), "amqp://localhost", false)
	customer := seedCustomer(t, repo, domain.StatusApproved)

	body := marshalJob(t, domain.PdfJob{CustomerID: customer.ID.String(), Notify: true})
	if !d.handlePdfJob(body) {
		t.Fatal("expected ack for successful pdf job")
	}

	// The broker is degraded, so the notification falls through to the
	// inline send.
	last, ok := mailer.lastSent()
	if !ok {
		t.Fatal("expected approved mail after notify job")
	}
	if last.mailType != domain.MailTypeApproved {
		t.Errorf("expected mail type %q, got %q", domain.MailTypeApproved, last.mailType)
	}
	if last.pdfHint == "" {
		t.Error("expected attachment hint from fresh artifact")
	}
}

func TestHandlePdfJobBarePayloadFallback(t *testing.T) {
	repo := newFakeRepository()
	mailer := &fakeMailer{}
	d := NewDispatcher(repo, &fakeRenderer{}, mailer, t.TempDir(), "amqp://localhost", false)
	customer := seedCustomer(t, repo, domain.StatusApproved)

	// A raw identifier published by hand is treated as notify=true.
	if !d.handlePdfJob([]byte(customer.ID.String())) {
		t.Fatal("expected ack for bare-identifier payload")
	}
	if mailer.sentCount() != 1 {
		t.Errorf("expected one notification, got %d", mailer.sentCount())
	}
}

func TestHandlePdfJobDeadLettersUnknownCustomer(t *testing.T) {
	repo := newFakeRepository()
	d := NewDispatcher(repo, &fakeRenderer{}, nil, t.TempDir(), "amqp://localhost", false)

	body := marshalJob(t, domain.PdfJob{CustomerID: uuid.NewString(), Notify: false})
	if d.handlePdfJob(body) {
		t.Fatal("expected dead-letter for deleted customer")
	}
}

func TestHandlePdfJobDeadLettersInvalidID(t *testing.T) {
	repo := newFakeRepository()
	d := NewDispatcher(repo, &fakeRenderer{}, nil, t.TempDir(), "amqp://localhost", false)

	if d.handlePdfJob([]byte("garbage-that-is-not-a-uuid")) {
		t.Fatal("expected dead-letter for unparseable identifier")
	}
}

func TestMailWorkerAvailability(t *testing.T) {
	repo := newFakeRepository()

	withoutSMTP := NewDispatcher(repo, &fakeRenderer{}, nil, t.TempDir(), "amqp://localhost", true)
	if withoutSMTP.mailWorkerAvailable() {
		t.Error("expected no mail worker without an smtp transport")
	}

	withSMTP := NewDispatcher(repo, &fakeRenderer{}, &fakeMailer{}, t.TempDir(), "amqp://localhost", true)
	if !withSMTP.mailWorkerAvailable() {
		t.Error("expected mail worker with an smtp transport")
	}
}

func TestHandleMailJobAcksOnSuccess(t *testing.T) {
	repo := newFakeRepository()
	mailer := &fakeMailer{}
	d := NewDispatcher(repo, &fakeRenderer{}, mailer, t.TempDir(), "amqp://localhost", false)
	customer := seedCustomer(t, repo, domain.StatusRejected)

	body := marshalJob(t, domain.MailJob{CustomerID: customer.ID.String(), Type: domain.MailTypeRejected})
	if !d.handleMailJob(body) {
		t.Fatal("expected ack for successful mail job")
	}
	if mailer.sentCount() != 1 {
		t.Errorf("expected one send, got %d", mailer.sentCount())
	}
}

func TestHandleMailJobDeadLettersUnknownCustomer(t *testing.T) {
	repo := newFakeRepository()
	d := NewDispatcher(repo, &fakeRenderer{}, &fakeMailer{}, t.TempDir(), "amqp://localhost", false)

	body := marshalJob(t, domain.MailJob{CustomerID: uuid.NewString(), Type: domain.MailTypeApproved})
	if d.handleMailJob(body) {
		t.Fatal("expected dead-letter for deleted customer")
	}
}

func TestHandleMailJobBarePayloadFallback(t *testing.T) {
	repo := newFakeRepository()
	mailer := &fakeMailer{}
	d := NewDispatcher(repo, &fakeRenderer{}, mailer, t.TempDir(), "amqp://localhost", false)
	customer := seedCustomer(t, repo, domain.StatusApproved)

	if !d.handleMailJob([]byte(customer.ID.String())) {
		t.Fatal("expected ack for bare-identifier payload")
	}
	last, ok := mailer.lastSent()
	if !ok {
		t.Fatal("expected a sent mail")
	}
	if last.mailType != domain.MailTypeApproved {
		t.Errorf("expected default mail type %q, got %q", domain.MailTypeApproved, last.mailType)
	}
}
