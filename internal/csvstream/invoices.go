package csvstream

import (
	"encoding/csv"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"payment-reconciliation-backend/internal/models"
)

var invoiceDateLayouts = []string{"2006-01-02", "02-01-2006"}

// ParseInvoiceRows is the admin bulk-invoice-seed convenience (grounded on
// the teacher's UploadInvoices handler): tolerant, skip-on-error, not part
// of the reconciliation pipeline's correctness envelope. Header columns
// are matched by name, case-insensitively, same as the transaction
// parser, but the required set differs: invoice_number is optional (a
// number is generated when blank).
func ParseInvoiceRows(r io.Reader, insert func(*models.Invoice) error) (int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return 0, nil
	}
	columns := make(map[string]int, len(header))
	for i, col := range header {
		columns[strings.ToLower(strings.TrimSpace(col))] = i
	}

	field := func(record []string, name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	inserted := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}

		customerName := field(record, "customer_name")
		amountStr := field(record, "amount")
		if customerName == "" || amountStr == "" {
			continue
		}
		amount, err := decimal.NewFromString(strings.NewReplacer("$", "", ",", "").Replace(amountStr))
		if err != nil || amount.Sign() <= 0 {
			continue
		}

		var dueDate time.Time
		dueDateStr := field(record, "due_date")
		for _, layout := range invoiceDateLayouts {
			if t, perr := time.Parse(layout, dueDateStr); perr == nil {
				dueDate = t
				break
			}
		}
		if dueDate.IsZero() {
			continue
		}

		number := field(record, "invoice_number")
		if number == "" {
			number = "INV-" + uuid.NewString()[:8]
		}

		status := field(record, "status")
		if status == "" {
			status = models.InvoiceStatusSent
		}

		invoice := &models.Invoice{
			ID:            uuid.New(),
			InvoiceNumber: number,
			CustomerName:  customerName,
			CustomerEmail: field(record, "customer_email"),
			Amount:        amount.Round(2),
			Status:        status,
			DueDate:       dueDate,
		}
		if err := insert(invoice); err != nil {
			return inserted, err
		}
		inserted++
	}

	return inserted, nil
}
