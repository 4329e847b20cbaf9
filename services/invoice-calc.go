package services

import (
	"time"

	"subsidy-crm/crm-service/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// round2 rounds to two decimal places; every persisted money value goes
// through it.
func round2(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// NormalizeLineItems drops items without a description, clamps quantity and
// unit price to zero and recomputes each line amount. Client-supplied amounts
// are never trusted.
func NormalizeLineItems(items []models.LineItem) []models.LineItem {
	normalized := make([]models.LineItem, 0, len(items))
	for _, item := range items {
		if item.Description == "" {
			continue
		}
		if item.ID == "" {
			item.ID = uuid.New().String()
		}
		if item.Quantity <= 0 {
			if item.Quantity < 0 {
				item.Quantity = 0
			} else {
				item.Quantity = 1
			}
		}
		if item.UnitPrice < 0 {
			item.UnitPrice = 0
		}
		item.Amount = round2(decimal.NewFromFloat(item.Quantity).Mul(decimal.NewFromFloat(item.UnitPrice)))
		normalized = append(normalized, item)
	}
	return normalized
}

// ComputeTotals derives every money field from the normalized line items, the
// tax and discount inputs and the recorded payments.
func ComputeTotals(inv *models.Invoice) {
	subTotal := decimal.Zero
	for _, item := range inv.LineItems {
		subTotal = subTotal.Add(decimal.NewFromFloat(item.Amount))
	}

	taxPercent := decimal.NewFromFloat(inv.TaxPercent)
	if taxPercent.IsNegative() {
		taxPercent = decimal.Zero
	}
	discount := decimal.NewFromFloat(inv.DiscountAmount)
	if discount.IsNegative() {
		discount = decimal.Zero
	}

	subTotal = subTotal.Round(2)
	taxAmount := subTotal.Mul(taxPercent).Div(decimal.NewFromInt(100)).Round(2)
	total := subTotal.Add(taxAmount).Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	total = total.Round(2)

	paid := decimal.Zero
	for _, payment := range inv.Payments {
		paid = paid.Add(decimal.NewFromFloat(payment.Amount))
	}
	paid = paid.Round(2)

	balance := total.Sub(paid)
	if balance.IsNegative() {
		balance = decimal.Zero
	}

	inv.SubTotal = subTotal.InexactFloat64()
	inv.TaxAmount = taxAmount.InexactFloat64()
	inv.TotalAmount = total.InexactFloat64()
	inv.PaidAmount = paid.InexactFloat64()
	inv.BalanceAmount = balance.Round(2).InexactFloat64()
}

// DeriveInvoiceStatus re-derives the status after totals, in strict priority
// order; the first matching rule wins. CANCELLED and DRAFT are sticky and only
// leave via the explicit transition operation.
func DeriveInvoiceStatus(inv *models.Invoice, now time.Time) models.InvoiceStatus {
	switch inv.Status {
	case models.InvoiceCancelled:
		return models.InvoiceCancelled
	case models.InvoiceDraft:
		return models.InvoiceDraft
	}

	total := decimal.NewFromFloat(inv.TotalAmount)
	paid := decimal.NewFromFloat(inv.PaidAmount)
	balance := decimal.NewFromFloat(inv.BalanceAmount)

	if total.IsPositive() && paid.GreaterThanOrEqual(total) {
		return models.InvoicePaid
	}
	if paid.IsPositive() && balance.IsPositive() {
		return models.InvoicePartiallyPaid
	}
	if inv.DueDate != nil && inv.DueDate.Before(now) && balance.IsPositive() {
		return models.InvoiceOverdue
	}
	return models.InvoiceIssued
}

// SyncInvoice is the computation entry point invoked before every persist:
// normalize line items, clamp inputs, compute totals, derive status.
func SyncInvoice(inv *models.Invoice, now time.Time) {
	inv.LineItems = NormalizeLineItems(inv.LineItems)
	if inv.TaxPercent < 0 {
		inv.TaxPercent = 0
	}
	if inv.DiscountAmount < 0 {
		inv.DiscountAmount = 0
	}
	ComputeTotals(inv)
	inv.Status = DeriveInvoiceStatus(inv, now)
	inv.UpdatedAt = now
}
