package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type InvoiceStatus string

const (
	InvoiceDraft         InvoiceStatus = "DRAFT"
	InvoiceIssued        InvoiceStatus = "ISSUED"
	InvoicePartiallyPaid InvoiceStatus = "PARTIALLY_PAID"
	InvoicePaid          InvoiceStatus = "PAID"
	InvoiceOverdue       InvoiceStatus = "OVERDUE"
	InvoiceCancelled     InvoiceStatus = "CANCELLED"
)

func IsValidInvoiceStatus(s InvoiceStatus) bool {
	switch s {
	case InvoiceDraft, InvoiceIssued, InvoicePartiallyPaid, InvoicePaid, InvoiceOverdue, InvoiceCancelled:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentUPI          PaymentMethod = "UPI"
	PaymentCheque       PaymentMethod = "CHEQUE"
	PaymentCash         PaymentMethod = "CASH"
	PaymentCard         PaymentMethod = "CARD"
	PaymentOther        PaymentMethod = "OTHER"
)

func IsValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case PaymentBankTransfer, PaymentUPI, PaymentCheque, PaymentCash, PaymentCard, PaymentOther:
		return true
	}
	return false
}

type LineItem struct {
	ID          string  `json:"id" bson:"id"`
	Description string  `json:"description" bson:"description"`
	Quantity    float64 `json:"quantity" bson:"quantity"`
	UnitPrice   float64 `json:"unitPrice" bson:"unitPrice"`
	Amount      float64 `json:"amount" bson:"amount"`
}

type Payment struct {
	ID         string        `json:"id" bson:"id"`
	Amount     float64       `json:"amount" bson:"amount"`
	PaidOn     time.Time     `json:"paidOn" bson:"paidOn"`
	Method     PaymentMethod `json:"method" bson:"method"`
	Reference  string        `json:"reference,omitempty" bson:"reference,omitempty"`
	Note       string        `json:"note,omitempty" bson:"note,omitempty"`
	RecordedBy string        `json:"recordedBy" bson:"recordedBy"`
	RecordedAt time.Time     `json:"recordedAt" bson:"recordedAt"`
}

// BillTo is a snapshot of the client at issue time, captured independently of
// the live client record.
type BillTo struct {
	Name    string `json:"name" bson:"name"`
	Email   string `json:"email,omitempty" bson:"email,omitempty"`
	Phone   string `json:"phone,omitempty" bson:"phone,omitempty"`
	Address string `json:"address,omitempty" bson:"address,omitempty"`
	GSTIN   string `json:"gstin,omitempty" bson:"gstin,omitempty"`
}

// Invoice is an aggregate root like Project: line items and payments are
// embedded and the document is replaced whole. Derived money fields are never
// trusted from a client; the computation engine rewrites them on every sync.
type Invoice struct {
	ID             primitive.ObjectID  `json:"id,omitempty" bson:"_id,omitempty"`
	Number         string              `json:"number" bson:"number"`
	ClientID       primitive.ObjectID  `json:"clientId" bson:"clientId"`
	ProjectID      *primitive.ObjectID `json:"projectId,omitempty" bson:"projectId,omitempty"`
	Status         InvoiceStatus       `json:"status" bson:"status"`
	Currency       string              `json:"currency" bson:"currency"`
	InvoiceDate    time.Time           `json:"invoiceDate" bson:"invoiceDate"`
	DueDate        *time.Time          `json:"dueDate,omitempty" bson:"dueDate,omitempty"`
	BillTo         BillTo              `json:"billTo" bson:"billTo"`
	LineItems      []LineItem          `json:"lineItems" bson:"lineItems"`
	TaxPercent     float64             `json:"taxPercent" bson:"taxPercent"`
	DiscountAmount float64             `json:"discountAmount" bson:"discountAmount"`
	SubTotal       float64             `json:"subTotal" bson:"subTotal"`
	TaxAmount      float64             `json:"taxAmount" bson:"taxAmount"`
	TotalAmount    float64             `json:"totalAmount" bson:"totalAmount"`
	PaidAmount     float64             `json:"paidAmount" bson:"paidAmount"`
	BalanceAmount  float64             `json:"balanceAmount" bson:"balanceAmount"`
	Payments       []Payment           `json:"payments" bson:"payments"`
	Timeline       []TimelineEntry     `json:"timeline" bson:"timeline"`
	Version        int64               `json:"version" bson:"version"`
	CreatedAt      time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time           `json:"updatedAt" bson:"updatedAt"`
}
