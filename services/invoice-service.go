package services

import (
	"context"
	"fmt"
	"time"

	"subsidy-crm/crm-service/models"
	"subsidy-crm/crm-service/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type InvoiceService struct {
	InvoicesCollection *mongo.Collection
	ClientsCollection  *mongo.Collection
	Counters           *CounterService
	Settings           SettingsAccessor
	Dispatcher         *SideEffectDispatcher
	// Strict enables the optimistic version check on aggregate saves.
	Strict bool
}

func NewInvoiceService(
	invoicesCollection, clientsCollection *mongo.Collection,
	counters *CounterService,
	settings SettingsAccessor,
	dispatcher *SideEffectDispatcher,
	strict bool,
) *InvoiceService {
	return &InvoiceService{
		InvoicesCollection: invoicesCollection,
		ClientsCollection:  clientsCollection,
		Counters:           counters,
		Settings:           settings,
		Dispatcher:         dispatcher,
		Strict:             strict,
	}
}

type CreateInvoiceInput struct {
	ClientID       string            `json:"clientId"`
	ProjectID      string            `json:"projectId"`
	Currency       string            `json:"currency"`
	InvoiceDate    *time.Time        `json:"invoiceDate"`
	DueDate        *time.Time        `json:"dueDate"`
	BillTo         *models.BillTo    `json:"billTo"`
	LineItems      []models.LineItem `json:"lineItems"`
	TaxPercent     *float64          `json:"taxPercent"`
	DiscountAmount float64           `json:"discountAmount"`
	Draft          bool              `json:"draft"`
}

// CreateInvoice snapshots the bill-to from the client, assigns the INV
// sequence number and runs the computation sync before the first insert.
func (s *InvoiceService) CreateInvoice(ctx context.Context, actor models.Actor, input CreateInvoiceInput) (*models.Invoice, error) {
	clientID, err := primitive.ObjectIDFromHex(input.ClientID)
	if err != nil {
		return nil, utils.Validation("invalid client ID format")
	}
	var client models.Client
	if err := s.ClientsCollection.FindOne(ctx, bson.M{"_id": clientID}).Decode(&client); err != nil {
		return nil, utils.NotFound("client not found")
	}

	seq, err := s.Counters.Next(ctx, SeqInvoices)
	if err != nil {
		return nil, err
	}

	settings := s.Settings.Get(ctx)
	now := time.Now()

	invoice := &models.Invoice{
		ID:             primitive.NewObjectID(),
		Number:         FormatSequence("INV", seq),
		ClientID:       clientID,
		Status:         models.InvoiceIssued,
		Currency:       input.Currency,
		InvoiceDate:    now,
		DueDate:        input.DueDate,
		LineItems:      input.LineItems,
		TaxPercent:     settings.DefaultTaxPercent,
		DiscountAmount: input.DiscountAmount,
		Timeline: []models.TimelineEntry{
			newTimelineEntry(models.TimelineCreated, fmt.Sprintf("Invoice created for client %s", client.Name), actor.Username, now),
		},
		CreatedAt: now,
	}
	if input.Draft {
		invoice.Status = models.InvoiceDraft
	}
	if input.Currency == "" {
		invoice.Currency = settings.DefaultCurrency
	}
	if input.InvoiceDate != nil {
		invoice.InvoiceDate = *input.InvoiceDate
	}
	if input.TaxPercent != nil {
		invoice.TaxPercent = *input.TaxPercent
	}
	if input.ProjectID != "" {
		projectID, err := primitive.ObjectIDFromHex(input.ProjectID)
		if err != nil {
			return nil, utils.Validation("invalid project ID format")
		}
		invoice.ProjectID = &projectID
	}
	if input.BillTo != nil {
		invoice.BillTo = *input.BillTo
	} else {
		invoice.BillTo = models.BillTo{
			Name:    client.Name,
			Email:   client.Email,
			Phone:   client.Phone,
			Address: client.Address,
			GSTIN:   client.GSTIN,
		}
	}

	SyncInvoice(invoice, now)

	if _, err := s.InvoicesCollection.InsertOne(ctx, invoice); err != nil {
		return nil, fmt.Errorf("failed to create invoice: %v", err)
	}

	s.Dispatcher.AfterCommit(
		&models.AuditLog{Action: "INVOICE_CREATED", EntityType: "invoice", EntityID: invoice.ID.Hex(), Actor: actor.Username, After: invoice},
		&NotificationInput{
			Type:               "INVOICE_CREATED",
			Title:              "New invoice",
			Message:            fmt.Sprintf("Invoice %s was created for %s", invoice.Number, invoice.BillTo.Name),
			ActorID:            actor.ID,
			ShowInLiveActivity: true,
		},
	)
	return invoice, nil
}

// GetInvoiceByID loads one invoice.
func (s *InvoiceService) GetInvoiceByID(ctx context.Context, invoiceID string) (*models.Invoice, error) {
	objectID, err := primitive.ObjectIDFromHex(invoiceID)
	if err != nil {
		return nil, utils.Validation("invalid invoice ID format")
	}
	var invoice models.Invoice
	err = s.InvoicesCollection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&invoice)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, utils.NotFound("invoice not found")
		}
		return nil, fmt.Errorf("error fetching invoice: %v", err)
	}
	return &invoice, nil
}

// GetAllInvoices returns every invoice.
func (s *InvoiceService) GetAllInvoices(ctx context.Context) ([]models.Invoice, error) {
	cursor, err := s.InvoicesCollection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve invoices: %v", err)
	}
	defer cursor.Close(ctx)

	var invoices []models.Invoice
	if err := cursor.All(ctx, &invoices); err != nil {
		return nil, fmt.Errorf("failed to decode invoices: %v", err)
	}
	return invoices, nil
}

func (s *InvoiceService) save(ctx context.Context, invoice *models.Invoice) error {
	filter := bson.M{"_id": invoice.ID}
	if s.Strict {
		filter["version"] = invoice.Version
	}
	invoice.Version++

	result, err := s.InvoicesCollection.ReplaceOne(ctx, filter, invoice)
	if err != nil {
		invoice.Version--
		return fmt.Errorf("failed to save invoice: %v", err)
	}
	if result.MatchedCount == 0 {
		invoice.Version--
		if s.Strict {
			return utils.Conflict("invoice was modified concurrently, reload and retry")
		}
		return utils.NotFound("invoice not found")
	}
	return nil
}

type InvoicePatch struct {
	Currency       *string            `json:"currency"`
	InvoiceDate    *time.Time         `json:"invoiceDate"`
	DueDate        *time.Time         `json:"dueDate"`
	BillTo         *models.BillTo     `json:"billTo"`
	LineItems      *[]models.LineItem `json:"lineItems"`
	TaxPercent     *float64           `json:"taxPercent"`
	DiscountAmount *float64           `json:"discountAmount"`
}

// UpdateInvoice edits invoice inputs and re-derives everything else.
func (s *InvoiceService) UpdateInvoice(ctx context.Context, actor models.Actor, invoiceID string, patch InvoicePatch) (*models.Invoice, error) {
	invoice, err := s.GetInvoiceByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.Status == models.InvoiceCancelled {
		return nil, utils.Conflict("a cancelled invoice cannot be edited")
	}

	if patch.Currency != nil && *patch.Currency != "" {
		invoice.Currency = *patch.Currency
	}
	if patch.InvoiceDate != nil {
		invoice.InvoiceDate = *patch.InvoiceDate
	}
	if patch.DueDate != nil {
		invoice.DueDate = patch.DueDate
	}
	if patch.BillTo != nil {
		invoice.BillTo = *patch.BillTo
	}
	if patch.LineItems != nil {
		invoice.LineItems = *patch.LineItems
	}
	if patch.TaxPercent != nil {
		invoice.TaxPercent = *patch.TaxPercent
	}
	if patch.DiscountAmount != nil {
		invoice.DiscountAmount = *patch.DiscountAmount
	}

	SyncInvoice(invoice, time.Now())
	if err := s.save(ctx, invoice); err != nil {
		return nil, err
	}

	s.Dispatcher.AfterCommit(
		&models.AuditLog{Action: "INVOICE_UPDATED", EntityType: "invoice", EntityID: invoice.ID.Hex(), Actor: actor.Username, After: invoice},
		nil,
	)
	return invoice, nil
}

type PaymentInput struct {
	Amount    float64              `json:"amount"`
	PaidOn    *time.Time           `json:"paidOn"`
	Method    models.PaymentMethod `json:"method"`
	Reference string               `json:"reference"`
	Note      string               `json:"note"`
}

// AddPayment appends a payment record and re-derives the money fields and
// status. Cancelled invoices reject payments outright.
func (s *InvoiceService) AddPayment(ctx context.Context, actor models.Actor, invoiceID string, input PaymentInput) (*models.Invoice, error) {
	invoice, err := s.GetInvoiceByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.Status == models.InvoiceCancelled {
		return nil, utils.Conflict("payments cannot be added to a cancelled invoice")
	}
	if input.Amount <= 0 {
		return nil, utils.Validation("payment amount must be greater than zero")
	}
	if !models.IsValidPaymentMethod(input.Method) {
		return nil, utils.Validation("unknown payment method: %s", input.Method)
	}

	now := time.Now()
	paidOn := now
	if input.PaidOn != nil {
		paidOn = *input.PaidOn
	}
	invoice.Payments = append(invoice.Payments, models.Payment{
		ID:         uuid.New().String(),
		Amount:     input.Amount,
		PaidOn:     paidOn,
		Method:     input.Method,
		Reference:  input.Reference,
		Note:       input.Note,
		RecordedBy: actor.Username,
		RecordedAt: now,
	})
	invoice.Timeline = append(invoice.Timeline, newTimelineEntry(models.TimelinePaymentRecorded,
		fmt.Sprintf("Payment of %.2f %s recorded via %s", input.Amount, invoice.Currency, input.Method), actor.Username, now))

	SyncInvoice(invoice, now)
	if err := s.save(ctx, invoice); err != nil {
		return nil, err
	}

	s.Dispatcher.AfterCommit(
		&models.AuditLog{Action: "INVOICE_PAYMENT_ADDED", EntityType: "invoice", EntityID: invoice.ID.Hex(), Actor: actor.Username, After: invoice},
		&NotificationInput{
			Type:               "INVOICE_PAYMENT",
			Title:              "Payment recorded",
			Message:            fmt.Sprintf("Payment recorded on invoice %s, balance %.2f", invoice.Number, invoice.BalanceAmount),
			ActorID:            actor.ID,
			ShowInLiveActivity: true,
		},
	)
	return invoice, nil
}

type StatusChangeInput struct {
	Status models.InvoiceStatus `json:"status"`
	Amount float64              `json:"amount"`
	Method models.PaymentMethod `json:"method"`
	Note   string               `json:"note"`
}

// applyStatusChange is the explicit transition, pure over the aggregate.
// PARTIALLY_PAID requires a payment amount (clamped to the balance); PAID with
// a remaining balance auto-appends a payment for exactly that balance. The
// sync then re-derives, and CANCELLED/DRAFT/OVERDUE are force-applied
// afterwards since the derivation could compute a different status from the
// payment just added. Returns the status the invoice held before.
func applyStatusChange(invoice *models.Invoice, actor models.Actor, input StatusChangeInput, now time.Time) (models.InvoiceStatus, error) {
	if !models.IsValidInvoiceStatus(input.Status) {
		return "", utils.Validation("unknown invoice status: %s", input.Status)
	}

	before := invoice.Status
	method := input.Method
	if method == "" {
		method = models.PaymentBankTransfer
	}
	if !models.IsValidPaymentMethod(method) {
		return "", utils.Validation("unknown payment method: %s", method)
	}

	switch input.Status {
	case models.InvoicePartiallyPaid:
		if input.Amount <= 0 {
			return "", utils.Validation("a payment amount is required for a PARTIALLY_PAID transition")
		}
		amount := decimal.NewFromFloat(input.Amount)
		balance := decimal.NewFromFloat(invoice.BalanceAmount)
		if amount.GreaterThan(balance) {
			amount = balance
		}
		invoice.Payments = append(invoice.Payments, models.Payment{
			ID:         uuid.New().String(),
			Amount:     amount.Round(2).InexactFloat64(),
			PaidOn:     now,
			Method:     method,
			Note:       input.Note,
			RecordedBy: actor.Username,
			RecordedAt: now,
		})
	case models.InvoicePaid:
		if invoice.BalanceAmount > 0 {
			invoice.Payments = append(invoice.Payments, models.Payment{
				ID:         uuid.New().String(),
				Amount:     invoice.BalanceAmount,
				PaidOn:     now,
				Method:     method,
				Note:       input.Note,
				RecordedBy: actor.Username,
				RecordedAt: now,
			})
		}
	}

	// Clear the sticky DRAFT/CANCELLED hold so the derivation can run from
	// the requested target.
	invoice.Status = input.Status
	SyncInvoice(invoice, now)

	switch input.Status {
	case models.InvoiceCancelled, models.InvoiceDraft, models.InvoiceOverdue:
		invoice.Status = input.Status
	}

	message := fmt.Sprintf("Status changed from %s to %s", before, invoice.Status)
	if input.Note != "" {
		message = fmt.Sprintf("%s (%s)", message, input.Note)
	}
	invoice.Timeline = append(invoice.Timeline, newTimelineEntry(models.TimelineStatusChanged, message, actor.Username, now))
	return before, nil
}

// ChangeStatus applies the explicit transition to the stored invoice. Admin
// only.
func (s *InvoiceService) ChangeStatus(ctx context.Context, actor models.Actor, invoiceID string, input StatusChangeInput) (*models.Invoice, error) {
	if err := RequireAdmin(actor); err != nil {
		return nil, err
	}

	invoice, err := s.GetInvoiceByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	before, err := applyStatusChange(invoice, actor, input, time.Now())
	if err != nil {
		return nil, err
	}

	if err := s.save(ctx, invoice); err != nil {
		return nil, err
	}

	s.Dispatcher.AfterCommit(
		&models.AuditLog{Action: "INVOICE_STATUS_CHANGED", EntityType: "invoice", EntityID: invoice.ID.Hex(), Actor: actor.Username, Before: before, After: invoice.Status},
		&NotificationInput{
			Type:               "INVOICE_STATUS_CHANGED",
			Title:              "Invoice status changed",
			Message:            fmt.Sprintf("Invoice %s is now %s", invoice.Number, invoice.Status),
			ActorID:            actor.ID,
			ShowInLiveActivity: true,
		},
	)
	return invoice, nil
}
