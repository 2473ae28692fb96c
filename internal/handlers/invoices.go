package handlers

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"payment-reconciliation-backend/internal/apperr"
	"payment-reconciliation-backend/internal/csvstream"
	"payment-reconciliation-backend/internal/models"
	"payment-reconciliation-backend/internal/query"
	"payment-reconciliation-backend/internal/store"
)

// InvoiceHandler serves invoice search/lookup plus the two admin
// convenience endpoints the teacher's own code already had (ad-hoc
// creation and CSV bulk upload) that sit outside the reconciliation
// pipeline's correctness envelope.
type InvoiceHandler struct {
	store *store.Store
	query *query.Service
	log   *logrus.Entry
}

func NewInvoiceHandler(s *store.Store, q *query.Service, log *logrus.Entry) *InvoiceHandler {
	return &InvoiceHandler{store: s, query: q, log: log}
}

// Search handles GET /invoices/search (spec §6, §4.M).
func (h *InvoiceHandler) Search(c *gin.Context) {
	filter := store.InvoiceSearchFilter{
		CustomerName: c.Query("q"),
		Limit:        clampInt(queryInt(c, "limit", 20), 1, 50),
	}

	if raw := c.Query("amount"); raw != "" {
		amt, err := decimal.NewFromString(raw)
		if err != nil {
			badRequest(c, "amount is not a valid number: %q", raw)
			return
		}
		filter.Amount = &amt
	}

	if raw := c.Query("status"); raw != "" {
		filter.Statuses = splitCSV(raw)
	} else if c.Query("includePaid") == "true" {
		filter.Statuses = []string{
			models.InvoiceStatusDraft,
			models.InvoiceStatusSent,
			models.InvoiceStatusOverdue,
			models.InvoiceStatusPaid,
		}
	}

	invoices, err := h.query.SearchInvoices(filter)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"invoices": invoices})
}

// Candidates handles GET /invoices/candidates: invoices matching a given
// amount within tolerance, for manual-match UIs (spec §6).
func (h *InvoiceHandler) Candidates(c *gin.Context) {
	raw := c.Query("amount")
	if raw == "" {
		badRequest(c, "amount is required")
		return
	}
	amt, err := decimal.NewFromString(raw)
	if err != nil {
		badRequest(c, "amount is not a valid number: %q", raw)
		return
	}
	limit := clampInt(queryInt(c, "limit", 10), 1, 50)

	invoices, err := h.query.SearchInvoices(store.InvoiceSearchFilter{Amount: &amt, Limit: limit})
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"invoices": invoices})
}

// GetByID handles GET /invoices/:id.
func (h *InvoiceHandler) GetByID(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	invoice, err := h.store.GetInvoice(id)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"invoice": invoice})
}

// GetByNumber handles GET /invoices/by-number/:n.
func (h *InvoiceHandler) GetByNumber(c *gin.Context) {
	number := c.Param("n")
	invoice, err := h.store.GetInvoiceByNumber(number)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"invoice": invoice})
}

type createInvoicePayload struct {
	InvoiceNumber string  `json:"invoiceNumber"`
	CustomerName  string  `json:"customerName"`
	CustomerEmail string  `json:"customerEmail"`
	Amount        float64 `json:"amount"`
	Status        string  `json:"status"`
	DueDate       string  `json:"dueDate"`
}

// Create handles POST /invoices (JSON body): the ad-hoc single-invoice
// admin convenience carried over from the teacher's CreateInvoice, kept
// outside the pipeline's correctness envelope.
func (h *InvoiceHandler) Create(c *gin.Context) {
	var payload createInvoicePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, "invalid request body: %v", err)
		return
	}
	if payload.CustomerName == "" || payload.Amount <= 0 {
		badRequest(c, "customerName and a positive amount are required")
		return
	}

	dueDate, err := time.Parse("2006-01-02", payload.DueDate)
	if err != nil {
		badRequest(c, "dueDate must be YYYY-MM-DD, got %q", payload.DueDate)
		return
	}

	status := payload.Status
	if status == "" {
		status = models.InvoiceStatusSent
	}
	number := payload.InvoiceNumber
	if number == "" {
		number = "INV-" + uuid.NewString()[:8]
	}

	invoice := &models.Invoice{
		ID:            uuid.New(),
		InvoiceNumber: number,
		CustomerName:  payload.CustomerName,
		CustomerEmail: payload.CustomerEmail,
		Amount:        decimal.NewFromFloat(payload.Amount),
		Status:        status,
		DueDate:       dueDate,
	}
	if err := h.store.CreateInvoice(invoice); err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"invoice": invoice})
}

// BulkUploadCSV handles POST /invoices/upload: the teacher's UploadInvoices
// convenience for seeding invoices from a CSV, kept as an admin endpoint
// outside the pipeline's correctness envelope. Reuses csvstream's
// tolerant row parsing shape but with the invoice column set.
func (h *InvoiceHandler) BulkUploadCSV(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "multipart file field %q is required", "file")
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		respondError(c, apperr.Wrap(apperr.KindInternal, "open uploaded file", err))
		return
	}
	defer f.Close()

	inserted, err := csvstream.ParseInvoiceRows(f, func(inv *models.Invoice) error {
		return h.store.CreateInvoice(inv)
	})
	if err != nil {
		respondError(c, err)
		return
	}

	ok(c, gin.H{"file": fileHeader.Filename, "invoicesAdded": inserted})
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
