package services

import (
	"testing"
	"time"

	"subsidy-crm/crm-service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// issuedInvoice builds an issued invoice with totals 10000 + 1800 tax - 500
// discount = 11300 and no payments yet.
func issuedInvoice(now time.Time) *models.Invoice {
	inv := &models.Invoice{
		Number:         "INV-0001",
		Status:         models.InvoiceIssued,
		TaxPercent:     18,
		DiscountAmount: 500,
		LineItems: []models.LineItem{
			{Description: "Subsidy consulting", Quantity: 2, UnitPrice: 5000},
		},
	}
	SyncInvoice(inv, now)
	return inv
}

func TestApplyStatusChangePartialPayment(t *testing.T) {
	admin := models.Actor{Username: "ana", Role: models.RoleAdmin}
	now := time.Now()
	inv := issuedInvoice(now)
	require.Equal(t, 11300.0, inv.BalanceAmount)

	before, err := applyStatusChange(inv, admin, StatusChangeInput{
		Status: models.InvoicePartiallyPaid,
		Amount: 3000,
		Method: models.PaymentUPI,
	}, now)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceIssued, before)

	require.Len(t, inv.Payments, 1)
	assert.Equal(t, 3000.0, inv.Payments[0].Amount)
	assert.Equal(t, models.PaymentUPI, inv.Payments[0].Method)
	assert.Equal(t, "ana", inv.Payments[0].RecordedBy)

	assert.Equal(t, models.InvoicePartiallyPaid, inv.Status)
	assert.Equal(t, 3000.0, inv.PaidAmount)
	assert.Equal(t, 8300.0, inv.BalanceAmount)

	assert.Equal(t, 1, timelineCount(inv.Timeline, models.TimelineStatusChanged))
}

func TestApplyStatusChangeClampsToBalance(t *testing.T) {
	admin := models.Actor{Username: "ana", Role: models.RoleAdmin}
	now := time.Now()
	inv := issuedInvoice(now)

	_, err := applyStatusChange(inv, admin, StatusChangeInput{
		Status: models.InvoicePartiallyPaid,
		Amount: 50000,
	}, now)
	require.NoError(t, err)

	require.Len(t, inv.Payments, 1)
	assert.Equal(t, 11300.0, inv.Payments[0].Amount, "payment clamps to the open balance")
	assert.Equal(t, 0.0, inv.BalanceAmount)
	assert.Equal(t, models.InvoicePaid, inv.Status, "a clamped full payment re-derives to PAID")
}

func TestApplyStatusChangePaidAutoPayment(t *testing.T) {
	admin := models.Actor{Username: "ana", Role: models.RoleAdmin}
	now := time.Now()

	t.Run("remaining balance is settled", func(t *testing.T) {
		inv := issuedInvoice(now)
		inv.Payments = []models.Payment{{ID: "p-1", Amount: 3000, PaidOn: now}}
		SyncInvoice(inv, now)
		require.Equal(t, 8300.0, inv.BalanceAmount)

		_, err := applyStatusChange(inv, admin, StatusChangeInput{Status: models.InvoicePaid}, now)
		require.NoError(t, err)

		require.Len(t, inv.Payments, 2)
		assert.Equal(t, 8300.0, inv.Payments[1].Amount)
		assert.Equal(t, models.InvoicePaid, inv.Status)
		assert.Equal(t, 0.0, inv.BalanceAmount)
	})

	t.Run("already settled appends nothing", func(t *testing.T) {
		inv := issuedInvoice(now)
		inv.Payments = []models.Payment{{ID: "p-1", Amount: 11300, PaidOn: now}}
		SyncInvoice(inv, now)
		require.Equal(t, 0.0, inv.BalanceAmount)

		_, err := applyStatusChange(inv, admin, StatusChangeInput{Status: models.InvoicePaid}, now)
		require.NoError(t, err)
		assert.Len(t, inv.Payments, 1)
	})
}

func TestApplyStatusChangeForceAppliedStatuses(t *testing.T) {
	admin := models.Actor{Username: "ana", Role: models.RoleAdmin}
	now := time.Now()

	for _, target := range []models.InvoiceStatus{models.InvoiceCancelled, models.InvoiceDraft, models.InvoiceOverdue} {
		inv := issuedInvoice(now)
		inv.Payments = []models.Payment{{ID: "p-1", Amount: 3000, PaidOn: now}}
		SyncInvoice(inv, now)

		before, err := applyStatusChange(inv, admin, StatusChangeInput{Status: target}, now)
		require.NoError(t, err)
		assert.Equal(t, models.InvoicePartiallyPaid, before)
		assert.Equal(t, target, inv.Status, "derivation must not override an explicit %s", target)
	}
}

func TestApplyStatusChangeUnsticksDraft(t *testing.T) {
	admin := models.Actor{Username: "ana", Role: models.RoleAdmin}
	now := time.Now()
	inv := issuedInvoice(now)
	inv.Status = models.InvoiceDraft

	_, err := applyStatusChange(inv, admin, StatusChangeInput{Status: models.InvoiceIssued}, now)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceIssued, inv.Status)
}

func TestApplyStatusChangeValidation(t *testing.T) {
	admin := models.Actor{Username: "ana", Role: models.RoleAdmin}
	now := time.Now()

	t.Run("unknown status", func(t *testing.T) {
		inv := issuedInvoice(now)
		_, err := applyStatusChange(inv, admin, StatusChangeInput{Status: "SHIPPED"}, now)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown invoice status")
	})

	t.Run("unknown payment method", func(t *testing.T) {
		inv := issuedInvoice(now)
		_, err := applyStatusChange(inv, admin, StatusChangeInput{
			Status: models.InvoicePartiallyPaid,
			Amount: 100,
			Method: "BARTER",
		}, now)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown payment method")
	})

	t.Run("missing amount for PARTIALLY_PAID", func(t *testing.T) {
		inv := issuedInvoice(now)
		_, err := applyStatusChange(inv, admin, StatusChangeInput{Status: models.InvoicePartiallyPaid}, now)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "payment amount is required")
		assert.Empty(t, inv.Payments)
	})
}
