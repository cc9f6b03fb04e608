/**
 * @description
 * This package implements the document renderer: a deterministic mapping from
 * a customer record to a formatted, human-readable PDF dossier on disk.
 *
 * Key features:
 * - Title block, generation timestamp and customer identifier.
 * - Every KYC field labeled and formatted; missing optionals render as "N/A".
 * - AI summary section with a placeholder when no summary was generated.
 * - Notes section only when notes are present.
 *
 * @dependencies
 * - github.com/go-pdf/fpdf: PDF document construction.
 *
 * @notes
 * - Render resolves only once the file write completes; a write error
 *   propagates to the caller. There is no retry at this layer.
 */
package pdf

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/onboardhq/kyc-service/internal/domain"
)

const summaryPlaceholder = "Summary not available."

// Renderer builds customer dossier PDFs.
type Renderer struct {
	// now is swappable in tests to pin the generation timestamp.
	now func() time.Time
}

// NewRenderer creates a Renderer.
func NewRenderer() *Renderer {
	return &Renderer{now: time.Now}
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "N/A"
	}
	return t.Format("1/2/2006")
}

func formatDateTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "N/A"
	}
	return t.Format("1/2/2006, 3:04:05 PM")
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// Render writes the dossier for the given customer to absolutePath. The
// operation returns only after the underlying file write has completed.
func (r *Renderer) Render(customer *domain.Customer, absolutePath string) error {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(18, 18, 18)
	doc.AddPage()

	// Title block
	doc.SetFont("Helvetica", "B", 20)
	doc.CellFormat(0, 12, "KYC Customer Dossier", "", 1, "C", false, 0, "")
	doc.Ln(4)

	doc.SetFont("Helvetica", "", 12)
	doc.CellFormat(0, 6, "Generated: "+r.now().Format("1/2/2006, 3:04:05 PM"), "", 1, "L", false, 0, "")
	doc.CellFormat(0, 6, "Customer ID: "+customer.ID.String(), "", 1, "L", false, 0, "")
	doc.Ln(6)

	doc.SetFont("Helvetica", "U", 14)
	doc.CellFormat(0, 8, "Personal Information", "", 1, "L", false, 0, "")
	doc.Ln(2)

	status := customer.Status
	if status == "" {
		status = domain.StatusPending
	}

	income := "N/A"
	if customer.YearlyIncome > 0 {
		income = "$" + strconv.FormatFloat(customer.YearlyIncome, 'f', -1, 64)
	}

	dob := customer.DateOfBirth
	lines := [][2]string{
		{"Name", customer.FullName()},
		{"Email", orNA(customer.Email)},
		{"Phone", orNA(customer.Phone)},
		{"Date of Birth", formatDate(&dob)},
		{"Age / Gender", fmt.Sprintf("%d / %s", customer.Age, orNA(customer.Gender))},
		{"Nationality", orNA(customer.Nationality)},
		{"Yearly Income", income},
		{"Current Address", orNA(customer.CurrentAddress)},
		{"Permanent Address", orNA(customer.PermanentAddress)},
		{"Status", strings.ToUpper(status)},
		{"Approved At", formatDateTime(customer.ApprovedAt)},
	}

	doc.SetFont("Helvetica", "", 12)
	for _, line := range lines {
		doc.SetFont("Helvetica", "B", 12)
		doc.CellFormat(doc.GetStringWidth(line[0]+": ")+1, 6, line[0]+": ", "", 0, "L", false, 0, "")
		doc.SetFont("Helvetica", "", 12)
		doc.MultiCell(0, 6, orNA(line[1]), "", "L", false)
	}

	doc.Ln(6)
	doc.SetFont("Helvetica", "B", 12)
	doc.CellFormat(0, 6, "AI Summary", "", 1, "L", false, 0, "")
	doc.Ln(2)
	doc.SetFont("Helvetica", "", 12)
	summary := customer.Summary
	if summary == "" {
		summary = summaryPlaceholder
	}
	doc.MultiCell(0, 6, summary, "", "J", false)

	if customer.Notes != "" {
		doc.Ln(6)
		doc.SetFont("Helvetica", "B", 12)
		doc.CellFormat(0, 6, "Notes", "", 1, "L", false, 0, "")
		doc.Ln(2)
		doc.SetFont("Helvetica", "", 12)
		doc.MultiCell(0, 6, customer.Notes, "", "J", false)
	}

	return doc.OutputFileAndClose(absolutePath)
}
