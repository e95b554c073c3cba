package einvoice

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	StatusIssued   = "ISSUED"
	StatusApproved = "APPROVED"
)

// InvoiceRecord one e-invoice as reported by the tax service. Read only.
type InvoiceRecord struct {
	ID           string          `json:"id"`
	Type         InvoiceType     `json:"type"`
	Status       string          `json:"status"`
	Series       string          `json:"series,omitempty"`
	Number       string          `json:"number,omitempty"`
	SupplierTin  string          `json:"supplierTin"`
	SupplierName string          `json:"supplierName,omitempty"`
	BuyerTin     string          `json:"buyerTin"`
	BuyerName    string          `json:"buyerName,omitempty"`
	IssuedAt     time.Time       `json:"issuedAt"`
	Currency     string          `json:"currency,omitempty"`
	TotalAmount  decimal.Decimal `json:"totalAmount"`
	TotalVat     decimal.Decimal `json:"totalVat"`
	TotalWithVat decimal.Decimal `json:"totalWithVat"`
}

// InvoiceItem line item; the payload shape depends on the invoice type.
type InvoiceItem struct {
	InvoiceID string          `json:"invoiceId"`
	Payload   json.RawMessage `json:"payload"`
}

// InvoiceDetail fields missing from the items response (bank, supplier identity).
type InvoiceDetail struct {
	SupplierTin     string `json:"supplierTin,omitempty"`
	SupplierName    string `json:"supplierName,omitempty"`
	SupplierAddress string `json:"supplierAddress,omitempty"`
	SupplierBank    string `json:"supplierBank,omitempty"`
	SupplierAccNo   string `json:"supplierAccNo,omitempty"`
	BuyerTin        string `json:"buyerTin,omitempty"`
	Currency        string `json:"currency,omitempty"`
}

// InvoicePartnerData supplier metadata consumed by partner reconciliation.
type InvoicePartnerData struct {
	SupplierTin     string      `json:"supplierTin"`
	SupplierName    string      `json:"supplierName"`
	SupplierAddress string      `json:"supplierAddress"`
	SupplierBank    string      `json:"supplierBank"`
	SupplierAccNo   string      `json:"supplierAccNo"`
	Currency        string      `json:"currency"`
	InvoiceType     InvoiceType `json:"invoiceType"`
}

// DefaultCurrency used when neither the record nor its detail carries one.
const DefaultCurrency = "AMD"

// NewPartnerData merges a record with its optional detail; detail fields win when present.
func NewPartnerData(rec InvoiceRecord, detail *InvoiceDetail) InvoicePartnerData {
	d := InvoicePartnerData{
		SupplierTin:  rec.SupplierTin,
		SupplierName: rec.SupplierName,
		Currency:     rec.Currency,
		InvoiceType:  rec.Type,
	}
	if detail != nil {
		d.SupplierTin = firstNonEmpty(detail.SupplierTin, d.SupplierTin)
		d.SupplierName = firstNonEmpty(detail.SupplierName, d.SupplierName)
		d.SupplierAddress = detail.SupplierAddress
		d.SupplierBank = detail.SupplierBank
		d.SupplierAccNo = detail.SupplierAccNo
		d.Currency = firstNonEmpty(detail.Currency, d.Currency)
	}
	if d.Currency == "" {
		d.Currency = DefaultCurrency
	}
	return d
}

func firstNonEmpty(v ...string) string {
	for _, s := range v {
		if s != "" {
			return s
		}
	}
	return ""
}

const (
	PartnerTypeSupplier   = "supplier"
	AccountTypeBank       = "bank"
	WarehouseTypeSupplier = "supplier"
)

type Partner struct {
	ID          uuid.UUID  `json:"id"`
	Tin         string     `json:"tin"`
	Name        string     `json:"name"`
	Address     string     `json:"address"`
	Type        string     `json:"type"`
	AccountID   *uuid.UUID `json:"accountId"`
	WarehouseID *uuid.UUID `json:"warehouseId"`
}

type Account struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Type     string    `json:"type"`
	Bank     string    `json:"bank"`
	Number   string    `json:"number"`
	Currency string    `json:"currency"`
}

type Warehouse struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Address string    `json:"address"`
	Type    string    `json:"type"`
}
