/**
 * @description
 * This file implements the job dispatcher: the layer that decides, per
 * triggering event, whether work (PDF generation, notification email) runs
 * later via the message broker or inline within the originating request.
 *
 * Key features:
 * - A single broker-availability flag, initialized true and flipped to false
 *   permanently on any connection- or channel-level failure. Once degraded,
 *   the dispatcher never reconnects for the remainder of the process; callers
 *   fall back to inline execution. Transient broker blips are deliberately
 *   not retried; this trades resilience for predictability.
 * - Lazy, memoized queue establishment: the connection is dialed at most once
 *   per process, and concurrent callers share the same attempt.
 * - The inline operations (GenerateAndAttachPdf, SendMailNow) that both the
 *   fallback path and the worker loops execute.
 *
 * @dependencies
 * - internal/store: Customer re-fetch and PDF attachment persistence.
 * - pkg/rabbitmq: Broker connection, durable queues, persistent publishing.
 */

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/onboardhq/kyc-service/internal/domain"
	"github.com/onboardhq/kyc-service/internal/store"
	"github.com/onboardhq/kyc-service/pkg/rabbitmq"
)

// Queue names for the two job kinds.
const (
	PdfQueue  = "pdf_jobs"
	MailQueue = "mail_jobs"
)

var (
	// ErrBrokerUnavailable is returned by the enqueue operations when the
	// broker is disabled by configuration or permanently degraded. Call sites
	// treat it as the signal to execute inline; it is never surfaced to the
	// end user.
	ErrBrokerUnavailable = errors.New("message broker unavailable")
	// ErrSMTPNotConfigured is returned by SendMailNow when no SMTP transport
	// credentials are present.
	ErrSMTPNotConfigured = errors.New("smtp not configured")
	// ErrMissingRecipient is returned when the referenced customer has no
	// email address on file.
	ErrMissingRecipient = errors.New("customer email missing")
)

// DossierRenderer renders a customer dossier to an absolute file path.
type DossierRenderer interface {
	Render(customer *domain.Customer, absolutePath string) error
}

// OutcomeMailer composes and sends an outcome email for a customer.
type OutcomeMailer interface {
	SendOutcome(customer *domain.Customer, mailType, pdfHint string) error
}

// Dispatcher mediates between synchronous request handling and best-effort
// asynchronous processing. Availability state is held here, injected into
// handlers, never in package globals.
type Dispatcher struct {
	repo       store.Repository
	renderer   DossierRenderer
	mailer     OutcomeMailer // nil when SMTP is not configured
	storageDir string
	brokerURL  string
	enabled    bool

	mu        sync.Mutex
	available bool
	client    *rabbitmq.Client
	queues    map[string]*rabbitmq.Queue
	dialed    bool

	now func() time.Time
}

// NewDispatcher creates a Dispatcher. mailer may be nil when SMTP is not
// configured; enqueue and rendering still work, only SendMailNow fails.
func NewDispatcher(repo store.Repository, renderer DossierRenderer, mailer OutcomeMailer, storageDir, brokerURL string, enabled bool) *Dispatcher {
	return &Dispatcher{
		repo:       repo,
		renderer:   renderer,
		mailer:     mailer,
		storageDir: storageDir,
		brokerURL:  brokerURL,
		enabled:    enabled,
		available:  true,
		queues:     make(map[string]*rabbitmq.Queue),
		now:        time.Now,
	}
}

// BrokerEnabled reports whether the queued path should be attempted at all.
func (d *Dispatcher) BrokerEnabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.enabled && d.available
}

// disable flips the availability flag permanently. Only a process restart
// brings the broker path back.
func (d *Dispatcher) disable(reason string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.available {
		return
	}
	d.available = false
	log.Printf("level=warn component=dispatcher msg=\"broker disabled; degrading to inline execution\" reason=%q", reason)
}

// queue returns the handle for the named durable queue, dialing the broker on
// first use. The mutex serializes establishment so concurrent callers share a
// single in-flight attempt and no duplicate connections are created.
func (d *Dispatcher) queue(name string) (*rabbitmq.Queue, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.enabled || !d.available {
		return nil, ErrBrokerUnavailable
	}

	if d.client == nil {
		if d.dialed {
			// A previous dial failed; the flag flip below has already
			// happened, but guard against racing callers anyway.
			return nil, ErrBrokerUnavailable
		}
		d.dialed = true
		client, err := rabbitmq.Dial(d.brokerURL)
		if err != nil {
			d.available = false
			log.Printf("level=warn component=dispatcher msg=\"broker disabled; degrading to inline execution\" reason=%q", err.Error())
			return nil, fmt.Errorf("broker dial failed: %w", err)
		}
		d.client = client
		go d.watchConnection(client)
	}

	if q, ok := d.queues[name]; ok {
		return q, nil
	}
	q, err := d.client.OpenQueue(name)
	if err != nil {
		d.available = false
		log.Printf("level=warn component=dispatcher msg=\"broker disabled; degrading to inline execution\" reason=%q", err.Error())
		return nil, fmt.Errorf("queue %s declare failed: %w", name, err)
	}
	d.queues[name] = q
	return q, nil
}

// watchConnection degrades the dispatcher when the broker connection closes
// underneath it.
func (d *Dispatcher) watchConnection(client *rabbitmq.Client) {
	if err, ok := <-client.NotifyClose(); ok && err != nil {
		d.disable("connection closed: " + err.Error())
	}
}

// EnqueuePdfJob publishes a persistent PDF-generation job. Notify requests an
// "approved" email after a successful render.
func (d *Dispatcher) EnqueuePdfJob(ctx context.Context, customerID uuid.UUID, notify bool) error {
	return d.publish(ctx, PdfQueue, domain.PdfJob{CustomerID: customerID.String(), Notify: notify})
}

// EnqueueMailJob publishes a persistent notification-mail job.
func (d *Dispatcher) EnqueueMailJob(ctx context.Context, job domain.MailJob) error {
	return d.publish(ctx, MailQueue, job)
}

func (d *Dispatcher) publish(ctx context.Context, queueName string, payload any) error {
	q, err := d.queue(queueName)
	if err != nil {
		return err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal job payload: %w", err)
	}
	if err := q.Publish(ctx, body); err != nil {
		d.disable("publish failed: " + err.Error())
		return fmt.Errorf("publish to %s failed: %w", queueName, err)
	}
	return nil
}

// GenerateAndAttachPdf renders the dossier for the given customer inline,
// persists the artifact path and timestamp, and returns the updated record.
// Each call produces a distinct artifact (new file name, new timestamp).
func (d *Dispatcher) GenerateAndAttachPdf(ctx context.Context, customer *domain.Customer) (*domain.Customer, error) {
	if err := os.MkdirAll(d.storageDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}

	generatedAt := d.now()
	fileName := fmt.Sprintf("%s-%d.pdf", customer.ID, generatedAt.UnixMilli())
	absolutePath := filepath.Join(d.storageDir, fileName)

	if err := d.renderer.Render(customer, absolutePath); err != nil {
		return nil, fmt.Errorf("dossier render failed: %w", err)
	}

	updated, err := d.repo.AttachCustomerPDF(ctx, customer.ID, "/pdfs/"+fileName, generatedAt)
	if err != nil {
		return nil, err
	}
	log.Printf("level=info component=dispatcher msg=\"dossier generated\" customer_id=%s pdf_path=%s", customer.ID, "/pdfs/"+fileName)
	return updated, nil
}

// SendMailNow composes and sends the outcome email for the job synchronously.
// The customer is always re-fetched; the job payload is trusted only for the
// identifier, the outcome type and the attachment hint.
func (d *Dispatcher) SendMailNow(ctx context.Context, job domain.MailJob) error {
	if d.mailer == nil {
		return ErrSMTPNotConfigured
	}

	customerID, err := uuid.Parse(job.CustomerID)
	if err != nil {
		return store.ErrCustomerNotFound
	}
	customer, err := d.repo.FindCustomerByID(ctx, customerID)
	if err != nil {
		return err
	}
	if customer.Email == "" {
		return ErrMissingRecipient
	}

	return d.mailer.SendOutcome(customer, job.Type, job.PdfPath)
}

// Close releases the broker connection if one was established.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.client != nil {
		d.client.Close()
		d.client = nil
	}
}
