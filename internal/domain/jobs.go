/**
 * @description
 * This file defines the payloads carried through the message broker (RabbitMQ).
 * Job messages are transient: they reference the customer by identifier only,
 * and workers always re-fetch the current record before acting. The one
 * exception is PdfPath on MailJob, which is a hint for attachment lookup.
 */
package domain

// Mail job types.
const (
	MailTypeApproved = "approved"
	MailTypeRejected = "rejected"
)

// PdfJob is published to the pdf_jobs queue when a dossier should be
// generated. Notify requests an "approved" notification email after a
// successful render.
type PdfJob struct {
	CustomerID string `json:"customerId"`
	Notify     bool   `json:"notify"`
}

// MailJob is published to the mail_jobs queue when a notification email
// should be sent.
type MailJob struct {
	CustomerID string `json:"customerId"`
	Type       string `json:"type"`
	PdfPath    string `json:"pdfPath,omitempty"`
}
