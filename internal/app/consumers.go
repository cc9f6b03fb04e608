/**
 * @description
 * This file contains the worker loops that drain the pdf_jobs and mail_jobs
 * queues. Both loops are structurally identical: one message at a time,
 * re-fetch the customer, perform the inline operation, acknowledge on
 * success. Any processing failure dead-letters the message (rejected without
 * requeue). Jobs get exactly one attempt, so a poison message can never
 * stall the queue.
 *
 * @notes
 * - A payload that fails to parse as JSON is treated as a bare customer
 *   identifier with notify/type defaulting to "proceed". This keeps manually
 *   published test messages working.
 * - The mail-after-PDF step is a best-effort side effect: its failure is
 *   logged and the PDF job still acknowledges.
 */

package app

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/onboardhq/kyc-service/internal/domain"
)

const jobTimeout = 30 * time.Second

// StartWorkers begins consuming the queues. It is called once at startup
// when the broker is enabled; failure to start is reported to the caller,
// which logs it and continues in inline mode. Without an SMTP transport the
// mail consumer is not started at all: queued mail jobs stay durable on the
// broker instead of being dead-lettered one by one, and a restart with SMTP
// configured drains them.
func (d *Dispatcher) StartWorkers() error {
	pdfQueue, err := d.queue(PdfQueue)
	if err != nil {
		return err
	}
	if err := pdfQueue.Consume(d.handlePdfJob); err != nil {
		d.disable("pdf consumer start failed: " + err.Error())
		return err
	}

	if !d.mailWorkerAvailable() {
		log.Printf("level=warn component=workers msg=\"smtp not configured; mail consumer not started\" queue=%s", MailQueue)
		log.Printf("level=info component=workers msg=\"queue workers started\" queues=%q", PdfQueue)
		return nil
	}

	mailQueue, err := d.queue(MailQueue)
	if err != nil {
		return err
	}
	if err := mailQueue.Consume(d.handleMailJob); err != nil {
		d.disable("mail consumer start failed: " + err.Error())
		return err
	}

	log.Printf("level=info component=workers msg=\"queue workers started\" queues=\"%s,%s\"", PdfQueue, MailQueue)
	return nil
}

// mailWorkerAvailable reports whether a mail consumer can do useful work.
// Every mail job needs the SMTP transport, so a nil mailer means consuming
// would only dead-letter durable jobs.
func (d *Dispatcher) mailWorkerAvailable() bool {
	return d.mailer != nil
}

// handlePdfJob processes one pdf_jobs message. It returns true to acknowledge
// the message; false dead-letters it.
func (d *Dispatcher) handlePdfJob(body []byte) bool {
	var job domain.PdfJob
	if err := json.Unmarshal(body, &job); err != nil {
		// Fall back to treating the raw payload as a bare identifier.
		job = domain.PdfJob{CustomerID: strings.TrimSpace(string(body)), Notify: true}
	}

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	customerID, err := uuid.Parse(job.CustomerID)
	if err != nil {
		log.Printf("level=error component=workers queue=%s msg=\"invalid customer id in job\" customer_id=%q err=%v", PdfQueue, job.CustomerID, err)
		return false
	}

	customer, err := d.repo.FindCustomerByID(ctx, customerID)
	if err != nil {
		log.Printf("level=error component=workers queue=%s msg=\"customer fetch failed\" customer_id=%s err=%v", PdfQueue, customerID, err)
		return false
	}

	updated, err := d.GenerateAndAttachPdf(ctx, customer)
	if err != nil {
		log.Printf("level=error component=workers queue=%s msg=\"pdf job failed\" customer_id=%s err=%v", PdfQueue, customerID, err)
		return false
	}

	if job.Notify {
		d.notifyApproved(ctx, updated)
	}
	return true
}

// notifyApproved queues (or, when the broker has degraded mid-flight, sends
// inline) the approved-outcome email for a freshly generated dossier. This is
// best-effort: failures are logged and never fail the PDF job.
func (d *Dispatcher) notifyApproved(ctx context.Context, customer *domain.Customer) {
	mailJob := domain.MailJob{
		CustomerID: customer.ID.String(),
		Type:       domain.MailTypeApproved,
	}
	if customer.PdfPath != nil {
		mailJob.PdfPath = *customer.PdfPath
	}

	if err := d.EnqueueMailJob(ctx, mailJob); err != nil {
		if sendErr := d.SendMailNow(ctx, mailJob); sendErr != nil {
			log.Printf("level=warn component=workers msg=\"mail notify after pdf failed\" customer_id=%s enqueue_err=%v send_err=%v", customer.ID, err, sendErr)
		}
	}
}

// handleMailJob processes one mail_jobs message.
func (d *Dispatcher) handleMailJob(body []byte) bool {
	var job domain.MailJob
	if err := json.Unmarshal(body, &job); err != nil {
		job = domain.MailJob{CustomerID: strings.TrimSpace(string(body)), Type: domain.MailTypeApproved}
	}

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if err := d.SendMailNow(ctx, job); err != nil {
		log.Printf("level=error component=workers queue=%s msg=\"mail job failed\" customer_id=%q err=%v", MailQueue, job.CustomerID, err)
		return false
	}
	return true
}
