package app

import (
	"context"
	"errors"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/onboardhq/kyc-service/internal/domain"
	"github.com/onboardhq/kyc-service/internal/store"
	"github.com/onboardhq/kyc-service/pkg/llmclient"
)

// fakeRepository is an in-memory store.Repository for exercising the service
// and worker logic without a database.
type fakeRepository struct {
	mu        sync.Mutex
	customers map[uuid.UUID]*domain.Customer
	admins    map[string]*domain.Admin

	countErr error
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		customers: make(map[uuid.UUID]*domain.Customer),
		admins:    make(map[string]*domain.Admin),
	}
}

func (f *fakeRepository) CreateCustomer(ctx context.Context, customer *domain.Customer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if customer.ID == uuid.Nil {
		customer.ID = uuid.New()
	}
	now := time.Now()
	customer.CreatedAt = now
	customer.UpdatedAt = now
	clone := *customer
	f.customers[customer.ID] = &clone
	return nil
}

func (f *fakeRepository) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Customer, 0, len(f.customers))
	for _, c := range f.customers {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeRepository) FindCustomerByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.customers[id]
	if !ok {
		return nil, store.ErrCustomerNotFound
	}
	clone := *c
	return &clone, nil
}

func (f *fakeRepository) DeleteCustomer(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.customers[id]; !ok {
		return store.ErrCustomerNotFound
	}
	delete(f.customers, id)
	return nil
}

func (f *fakeRepository) CountCustomers(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.countErr != nil {
		return 0, f.countErr
	}
	return int64(len(f.customers)), nil
}

func (f *fakeRepository) ApproveCustomer(ctx context.Context, id uuid.UUID, at time.Time) (*domain.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.customers[id]
	if !ok {
		return nil, store.ErrCustomerNotFound
	}
	c.Status = domain.StatusApproved
	approvedAt := at
	c.ApprovedAt = &approvedAt
	c.RejectedAt = nil
	c.PdfPath = nil
	c.PdfGeneratedAt = nil
	c.UpdatedAt = at
	clone := *c
	return &clone, nil
}

func (f *fakeRepository) RejectCustomer(ctx context.Context, id uuid.UUID, at time.Time) (*domain.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.customers[id]
	if !ok {
		return nil, store.ErrCustomerNotFound
	}
	c.Status = domain.StatusRejected
	rejectedAt := at
	c.RejectedAt = &rejectedAt
	c.ApprovedAt = nil
	c.UpdatedAt = at
	clone := *c
	return &clone, nil
}

func (f *fakeRepository) ClearCustomerPDF(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.customers[id]
	if !ok {
		return nil, store.ErrCustomerNotFound
	}
	c.PdfPath = nil
	c.PdfGeneratedAt = nil
	clone := *c
	return &clone, nil
}

func (f *fakeRepository) AttachCustomerPDF(ctx context.Context, id uuid.UUID, pdfPath string, generatedAt time.Time) (*domain.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.customers[id]
	if !ok {
		return nil, store.ErrCustomerNotFound
	}
	path := pdfPath
	at := generatedAt
	c.PdfPath = &path
	c.PdfGeneratedAt = &at
	c.UpdatedAt = generatedAt
	clone := *c
	return &clone, nil
}

func (f *fakeRepository) CreateAdmin(ctx context.Context, admin *domain.Admin) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.admins[admin.Email]; ok {
		return store.ErrEmailTaken
	}
	if admin.ID == uuid.Nil {
		admin.ID = uuid.New()
	}
	admin.CreatedAt = time.Now()
	admin.UpdatedAt = admin.CreatedAt
	clone := *admin
	f.admins[admin.Email] = &clone
	return nil
}

func (f *fakeRepository) FindAdminByEmail(ctx context.Context, email string) (*domain.Admin, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.admins[email]
	if !ok {
		return nil, store.ErrAdminNotFound
	}
	clone := *a
	return &clone, nil
}

// fakeRenderer writes a marker file so the attachment path exists on disk.
type fakeRenderer struct {
	mu      sync.Mutex
	renders int
	err     error
}

func (r *fakeRenderer) Render(customer *domain.Customer, absolutePath string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.renders++
	return os.WriteFile(absolutePath, []byte("%PDF-1.4 fake"), 0o644)
}

type sentMail struct {
	customerID uuid.UUID
	mailType   string
	pdfHint    string
}

// fakeMailer records outcome sends.
type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) SendOutcome(customer *domain.Customer, mailType, pdfHint string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{customerID: customer.ID, mailType: mailType, pdfHint: pdfHint})
	return nil
}

func (m *fakeMailer) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *fakeMailer) lastSent() (sentMail, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return sentMail{}, false
	}
	return m.sent[len(m.sent)-1], true
}

// fakeSummaries returns a canned summary or error.
type fakeSummaries struct {
	summary string
	err     error
}

func (s *fakeSummaries) Summarize(ctx context.Context, fields llmclient.ProfileFields) (string, error) {
	return s.summary, s.err
}

var errSummaryDown = errors.New("summary provider down")
