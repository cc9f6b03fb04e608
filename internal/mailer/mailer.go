/**
 * @description
 * This package implements the notifier: composing and transmitting outcome
 * emails for reviewed customers over SMTP.
 *
 * Key features:
 * - "approved" emails greet the customer, include the AI summary and attach
 *   the dossier PDF when the hinted file exists on disk. A missing file is
 *   not an error; the attachment is silently omitted.
 * - "rejected" emails invite resubmission and carry no attachment.
 *
 * @dependencies
 * - gopkg.in/gomail.v2: SMTP transport with attachment support.
 *
 * @notes
 * - The mailer fails fast and never retries. Whether a send failure matters
 *   is the caller's decision (primary action vs best-effort side effect).
 */
package mailer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/onboardhq/kyc-service/internal/domain"
	gomail "gopkg.in/gomail.v2"
)

// Mailer sends outcome notifications for reviewed customers.
type Mailer struct {
	from       string
	storageDir string
	send       func(*gomail.Message) error
}

// New builds a Mailer backed by an SMTP dialer. Port 465 switches the dialer
// to implicit TLS.
func New(host string, port int, user, pass, from, storageDir string) *Mailer {
	dialer := gomail.NewDialer(host, port, user, pass)
	dialer.SSL = port == 465
	return &Mailer{
		from:       from,
		storageDir: storageDir,
		send: func(msg *gomail.Message) error {
			return dialer.DialAndSend(msg)
		},
	}
}

// SendOutcome composes and transmits the email for the given outcome type.
// pdfHint is the stored artifact path ("/pdfs/<file>") used to locate the
// attachment for approved mails.
func (m *Mailer) SendOutcome(customer *domain.Customer, mailType, pdfHint string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", customer.Email)

	switch mailType {
	case domain.MailTypeApproved:
		msg.SetHeader("Subject", "KYC Approved & PDF Attached")
		msg.SetBody("text/plain", fmt.Sprintf(
			"Hello %s, your KYC was approved. Summary: %s",
			customer.FirstName, customer.Summary,
		))
		if abs := m.resolveAttachment(pdfHint); abs != "" {
			msg.Attach(abs)
		}
	case domain.MailTypeRejected:
		msg.SetHeader("Subject", "KYC Rejected")
		msg.SetBody("text/plain", fmt.Sprintf(
			"Hello %s, your KYC submission was rejected. Please resubmit with the required details.",
			customer.FirstName,
		))
	default:
		return fmt.Errorf("unknown mail type %q", mailType)
	}

	return m.send(msg)
}

// resolveAttachment maps the stored artifact path to a file under the storage
// directory, returning "" when the hint is empty or the file does not exist.
// Only the base name of the hint is used, so a stored path can never escape
// the storage directory.
func (m *Mailer) resolveAttachment(pdfHint string) string {
	hint := strings.TrimSpace(pdfHint)
	if hint == "" {
		return ""
	}
	abs := filepath.Join(m.storageDir, filepath.Base(hint))
	if _, err := os.Stat(abs); err != nil {
		return ""
	}
	return abs
}
