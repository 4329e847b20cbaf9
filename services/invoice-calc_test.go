package services

import (
	"testing"
	"time"

	"subsidy-crm/crm-service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLineItems(t *testing.T) {
	items := NormalizeLineItems([]models.LineItem{
		{Description: "Consulting fee", Quantity: 2, UnitPrice: 5000, Amount: 1},
		{Description: ""},
		{Description: "Site visit", Quantity: -3, UnitPrice: 1200},
		{Description: "Filing charge", Quantity: 0, UnitPrice: 750.50},
		{Description: "Adjustment", Quantity: 1, UnitPrice: -100},
	})

	require.Len(t, items, 4, "items without a description are dropped")

	assert.Equal(t, 10000.0, items[0].Amount, "client-supplied amount is recomputed")
	assert.NotEmpty(t, items[0].ID)

	assert.Equal(t, 0.0, items[1].Quantity, "negative quantity clamps to zero")
	assert.Equal(t, 0.0, items[1].Amount)

	assert.Equal(t, 1.0, items[2].Quantity, "absent quantity defaults to one")
	assert.Equal(t, 750.50, items[2].Amount)

	assert.Equal(t, 0.0, items[3].UnitPrice, "negative price clamps to zero")
	assert.Equal(t, 0.0, items[3].Amount)
}

func TestSyncInvoiceTotals(t *testing.T) {
	now := time.Now()
	inv := &models.Invoice{
		Status:         models.InvoiceIssued,
		TaxPercent:     18,
		DiscountAmount: 500,
		LineItems: []models.LineItem{
			{Description: "Subsidy consulting", Quantity: 2, UnitPrice: 5000},
		},
	}

	SyncInvoice(inv, now)

	assert.Equal(t, 10000.0, inv.SubTotal)
	assert.Equal(t, 1800.0, inv.TaxAmount)
	assert.Equal(t, 11300.0, inv.TotalAmount)
	assert.Equal(t, 0.0, inv.PaidAmount)
	assert.Equal(t, 11300.0, inv.BalanceAmount)
	assert.Equal(t, models.InvoiceIssued, inv.Status)
}

func TestSyncInvoicePaymentsDriveStatus(t *testing.T) {
	now := time.Now()
	base := func() *models.Invoice {
		return &models.Invoice{
			Status:         models.InvoiceIssued,
			TaxPercent:     18,
			DiscountAmount: 500,
			LineItems: []models.LineItem{
				{Description: "Subsidy consulting", Quantity: 2, UnitPrice: 5000},
			},
		}
	}

	t.Run("partial payment", func(t *testing.T) {
		inv := base()
		inv.Payments = []models.Payment{{Amount: 3000}}
		SyncInvoice(inv, now)
		assert.Equal(t, 3000.0, inv.PaidAmount)
		assert.Equal(t, 8300.0, inv.BalanceAmount)
		assert.Equal(t, models.InvoicePartiallyPaid, inv.Status)
	})

	t.Run("full payment", func(t *testing.T) {
		inv := base()
		inv.Payments = []models.Payment{{Amount: 3000}, {Amount: 8300}}
		SyncInvoice(inv, now)
		assert.Equal(t, 0.0, inv.BalanceAmount)
		assert.Equal(t, models.InvoicePaid, inv.Status)
	})

	t.Run("overpayment never goes negative", func(t *testing.T) {
		inv := base()
		inv.Payments = []models.Payment{{Amount: 20000}}
		SyncInvoice(inv, now)
		assert.Equal(t, 0.0, inv.BalanceAmount)
		assert.Equal(t, models.InvoicePaid, inv.Status)
	})
}

func TestSyncInvoiceOverdue(t *testing.T) {
	now := time.Now()
	past := now.Add(-48 * time.Hour)
	future := now.Add(48 * time.Hour)

	inv := &models.Invoice{
		Status:    models.InvoiceIssued,
		DueDate:   &past,
		LineItems: []models.LineItem{{Description: "Fee", Quantity: 1, UnitPrice: 1000}},
	}
	SyncInvoice(inv, now)
	assert.Equal(t, models.InvoiceOverdue, inv.Status)

	inv.DueDate = &future
	SyncInvoice(inv, now)
	assert.Equal(t, models.InvoiceIssued, inv.Status)

	// A partial payment outranks the overdue rule.
	inv.DueDate = &past
	inv.Payments = []models.Payment{{Amount: 100}}
	SyncInvoice(inv, now)
	assert.Equal(t, models.InvoicePartiallyPaid, inv.Status)
}

func TestSyncInvoiceStickyStatuses(t *testing.T) {
	now := time.Now()

	for _, status := range []models.InvoiceStatus{models.InvoiceDraft, models.InvoiceCancelled} {
		inv := &models.Invoice{
			Status:    status,
			LineItems: []models.LineItem{{Description: "Fee", Quantity: 1, UnitPrice: 1000}},
			Payments:  []models.Payment{{Amount: 1000}},
		}
		SyncInvoice(inv, now)
		assert.Equal(t, status, inv.Status, "payments must not pull an invoice out of %s", status)
	}
}

func TestSyncInvoiceClampsNegativeInputs(t *testing.T) {
	now := time.Now()
	inv := &models.Invoice{
		Status:         models.InvoiceIssued,
		TaxPercent:     -5,
		DiscountAmount: -200,
		LineItems:      []models.LineItem{{Description: "Fee", Quantity: 1, UnitPrice: 1000}},
	}

	SyncInvoice(inv, now)

	assert.Equal(t, 0.0, inv.TaxPercent)
	assert.Equal(t, 0.0, inv.DiscountAmount)
	assert.Equal(t, 1000.0, inv.TotalAmount)
}

func TestSyncInvoiceDiscountCannotPushTotalNegative(t *testing.T) {
	now := time.Now()
	inv := &models.Invoice{
		Status:         models.InvoiceIssued,
		DiscountAmount: 5000,
		LineItems:      []models.LineItem{{Description: "Fee", Quantity: 1, UnitPrice: 1000}},
	}

	SyncInvoice(inv, now)

	assert.Equal(t, 0.0, inv.TotalAmount)
	assert.Equal(t, 0.0, inv.BalanceAmount)
}

func TestSyncInvoiceRoundsFractions(t *testing.T) {
	now := time.Now()
	inv := &models.Invoice{
		Status:     models.InvoiceIssued,
		TaxPercent: 18,
		LineItems:  []models.LineItem{{Description: "Fee", Quantity: 3, UnitPrice: 33.33}},
	}

	SyncInvoice(inv, now)

	assert.Equal(t, 99.99, inv.SubTotal)
	assert.Equal(t, 18.0, inv.TaxAmount)
	assert.Equal(t, 117.99, inv.TotalAmount)
}
