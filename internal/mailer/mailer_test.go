package mailer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/onboardhq/kyc-service/internal/domain"
	gomail "gopkg.in/gomail.v2"
)

func newCaptureMailer(storageDir string) (*Mailer, *[]*gomail.Message) {
	var captured []*gomail.Message
	m := &Mailer{
		from:       "no-reply@example.com",
		storageDir: storageDir,
		send: func(msg *gomail.Message) error {
			captured = append(captured, msg)
			return nil
		},
	}
	return m, &captured
}

func approvedCustomer() *domain.Customer {
	return &domain.Customer{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada.lovelace@gmail.com",
		Summary:   "Ada Lovelace is a Swiss applicant.",
		Status:    domain.StatusApproved,
	}
}

func TestSendOutcomeApprovedHeaders(t *testing.T) {
	m, captured := newCaptureMailer(t.TempDir())

	if err := m.SendOutcome(approvedCustomer(), domain.MailTypeApproved, ""); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if len(*captured) != 1 {
		t.Fatalf("expected 1 message, got %d", len(*captured))
	}

	msg := (*captured)[0]
	if got := msg.GetHeader("Subject"); len(got) != 1 || got[0] != "KYC Approved & PDF Attached" {
		t.Errorf("unexpected subject %v", got)
	}
	if got := msg.GetHeader("To"); len(got) != 1 || got[0] != "ada.lovelace@gmail.com" {
		t.Errorf("unexpected recipient %v", got)
	}
}

func TestSendOutcomeRejectedHasNoAttachment(t *testing.T) {
	m, captured := newCaptureMailer(t.TempDir())

	if err := m.SendOutcome(approvedCustomer(), domain.MailTypeRejected, "/pdfs/should-be-ignored.pdf"); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	msg := (*captured)[0]
	if got := msg.GetHeader("Subject"); len(got) != 1 || got[0] != "KYC Rejected" {
		t.Errorf("unexpected subject %v", got)
	}
}

func TestSendOutcomeUnknownType(t *testing.T) {
	m, _ := newCaptureMailer(t.TempDir())
	if err := m.SendOutcome(approvedCustomer(), "exploded", ""); err == nil {
		t.Fatal("expected error for unknown mail type")
	}
}

func TestResolveAttachment(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "abc-123.pdf")
	if err := os.WriteFile(file, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	m, _ := newCaptureMailer(dir)

	tests := []struct {
		name string
		hint string
		want string
	}{
		{name: "stored path", hint: "/pdfs/abc-123.pdf", want: file},
		{name: "bare file name", hint: "abc-123.pdf", want: file},
		{name: "traversal stripped", hint: "../../etc/abc-123.pdf", want: file},
		{name: "missing file", hint: "/pdfs/nope.pdf", want: ""},
		{name: "empty hint", hint: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.resolveAttachment(tt.hint); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
