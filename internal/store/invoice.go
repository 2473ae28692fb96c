package store

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"payment-reconciliation-backend/internal/apperr"
	"payment-reconciliation-backend/internal/models"
)

// amountTolerance is the ±0.01 monetary tolerance named throughout spec
// §§3-6 (exact-amount matching, never fuzzy on amount).
var amountTolerance = decimal.NewFromFloat(0.01)

// CreateInvoice inserts an invoice, ignoring conflicts on invoice_number
// (grounded on the teacher's clause.OnConflict{DoNothing: true} usage).
func (s *Store) CreateInvoice(inv *models.Invoice) error {
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = nowUTC()
	}
	if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(inv).Error; err != nil {
		return apperr.Wrap(apperr.KindTransientStore, "create invoice", err)
	}
	return nil
}

// GetInvoice fetches one invoice by id (spec §4.G get_invoice).
func (s *Store) GetInvoice(id uuid.UUID) (*models.Invoice, error) {
	var inv models.Invoice
	if err := s.db.First(&inv, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("invoice %s not found", id)
		}
		return nil, apperr.Wrap(apperr.KindTransientStore, "get invoice", err)
	}
	return &inv, nil
}

// GetInvoiceByNumber fetches one invoice by its human invoice number.
func (s *Store) GetInvoiceByNumber(number string) (*models.Invoice, error) {
	var inv models.Invoice
	if err := s.db.First(&inv, "invoice_number = ?", number).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("invoice %s not found", number)
		}
		return nil, apperr.Wrap(apperr.KindTransientStore, "get invoice by number", err)
	}
	return &inv, nil
}

// InvoiceExists reports whether an invoice id exists (spec §4.G
// invoice_exists, used by manual_match's "invoice exists" requirement).
func (s *Store) InvoiceExists(id uuid.UUID) (bool, error) {
	var count int64
	if err := s.db.Model(&models.Invoice{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, apperr.Wrap(apperr.KindTransientStore, "check invoice exists", err)
	}
	return count > 0, nil
}

// CandidateInvoice is the projection find_candidate_invoices_by_amounts
// returns (spec §4.G): just enough to run the matcher.
type CandidateInvoice struct {
	ID            uuid.UUID
	InvoiceNumber string
	CustomerName  string
	Amount        decimal.Decimal
	DueDate       time.Time
}

// FindCandidateInvoicesByAmounts runs the single bulk query spec §4.G
// names (`find_candidate_invoices_by_amounts`): every unpaid invoice
// whose amount falls within ±0.01 of one of the requested amounts,
// grouped by amount.toFixed(2) string for O(1) chunk lookup.
func (s *Store) FindCandidateInvoicesByAmounts(amounts []decimal.Decimal) (map[string][]CandidateInvoice, error) {
	if len(amounts) == 0 {
		return map[string][]CandidateInvoice{}, nil
	}

	lowHigh := make([]interface{}, 0, len(amounts)*2)
	conds := make([]string, 0, len(amounts))
	for _, amt := range amounts {
		lo := amt.Sub(amountTolerance)
		hi := amt.Add(amountTolerance)
		conds = append(conds, "(amount BETWEEN ? AND ?)")
		lowHigh = append(lowHigh, lo, hi)
	}

	var rows []models.Invoice
	query := s.db.Model(&models.Invoice{}).
		Where("status <> ?", models.InvoiceStatusPaid).
		Where(strings.Join(conds, " OR "), lowHigh...)
	if err := query.Find(&rows).Error; err != nil {
		return nil, apperr.Wrap(apperr.KindTransientStore, "find candidate invoices", err)
	}

	requested := make(map[string]decimal.Decimal, len(amounts))
	for _, amt := range amounts {
		requested[amt.StringFixed(2)] = amt
	}

	grouped := make(map[string][]CandidateInvoice)
	for _, r := range rows {
		candidate := CandidateInvoice{
			ID:            r.ID,
			InvoiceNumber: r.InvoiceNumber,
			CustomerName:  r.CustomerName,
			Amount:        r.Amount,
			DueDate:       r.DueDate,
		}
		for key, amt := range requested {
			if r.Amount.Sub(amt).Abs().LessThanOrEqual(amountTolerance) {
				grouped[key] = append(grouped[key], candidate)
			}
		}
	}
	return grouped, nil
}

// InvoiceSearchFilter is the predicate set for SearchInvoices (spec §4.M
// "Invoice search").
type InvoiceSearchFilter struct {
	Amount       *decimal.Decimal
	Statuses     []string
	CustomerName string
	Limit        int
}

// SearchInvoices backs the manual-match invoice search endpoint
// (spec §4.M, §6 GET /invoices/search).
func (s *Store) SearchInvoices(f InvoiceSearchFilter) ([]models.Invoice, error) {
	query := s.db.Model(&models.Invoice{})

	if f.Amount != nil {
		lo := f.Amount.Sub(amountTolerance)
		hi := f.Amount.Add(amountTolerance)
		query = query.Where("amount BETWEEN ? AND ?", lo, hi)
	}
	if len(f.Statuses) > 0 {
		query = query.Where("status IN ?", f.Statuses)
	} else {
		query = query.Where("status <> ?", models.InvoiceStatusPaid)
	}
	if f.CustomerName != "" {
		query = query.Where("LOWER(customer_name) LIKE ?", "%"+strings.ToLower(f.CustomerName)+"%")
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}

	var invoices []models.Invoice
	if err := query.Order("due_date ASC, created_at DESC").Limit(limit).Find(&invoices).Error; err != nil {
		return nil, apperr.Wrap(apperr.KindTransientStore, "search invoices", err)
	}
	return invoices, nil
}
