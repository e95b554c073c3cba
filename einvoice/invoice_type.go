package einvoice

import (
	"fmt"
	"strings"
)

type InvoiceType string

const (
	Goods          InvoiceType = "GOODS"
	Excise         InvoiceType = "EXCISE"
	Services       InvoiceType = "SERVICES"
	Leasing        InvoiceType = "LEASING"
	VatReturn      InvoiceType = "VAT_RETURN"
	AccDocGoods    InvoiceType = "ACC_DOC_GOODS"
	AccDocServices InvoiceType = "ACC_DOC_SERVICES"
	AccDocExcise   InvoiceType = "ACC_DOC_EXCISE"
	AccDocLeasing  InvoiceType = "ACC_DOC_LEASING"
)

// Endpoints per invoice type. ItemsPath is queried with the invoice id,
// DetailPath with the record id of the same document.
type Endpoints struct {
	ItemsPath  string
	DetailPath string
}

var invoiceEndpoints = map[InvoiceType]Endpoints{
	Goods:          {ItemsPath: "/goods-invoice-items/by-invoice-id", DetailPath: "/goods-invoices/by-id"},
	Excise:         {ItemsPath: "/excise-invoice-items/by-invoice-id", DetailPath: "/excise-invoices/by-id"},
	Services:       {ItemsPath: "/service-invoice-items/by-invoice-id", DetailPath: "/service-invoices/by-id"},
	Leasing:        {ItemsPath: "/leasing-invoice-items/by-invoice-id", DetailPath: "/leasing-invoices/by-id"},
	VatReturn:      {ItemsPath: "/vat-return-items/by-invoice-id", DetailPath: "/vat-returns/by-id"},
	AccDocGoods:    {ItemsPath: "/acc-doc-goods-items/by-invoice-id", DetailPath: "/acc-doc-goods/by-id"},
	AccDocServices: {ItemsPath: "/acc-doc-service-items/by-invoice-id", DetailPath: "/acc-doc-services/by-id"},
	AccDocExcise:   {ItemsPath: "/acc-doc-excise-items/by-invoice-id", DetailPath: "/acc-doc-excise/by-id"},
	AccDocLeasing:  {ItemsPath: "/acc-doc-leasing-items/by-invoice-id", DetailPath: "/acc-doc-leasing/by-id"},
}

// AllInvoiceTypes in the order the tax service documents them.
var AllInvoiceTypes = []InvoiceType{
	Goods, Excise, Services, Leasing, VatReturn,
	AccDocGoods, AccDocServices, AccDocExcise, AccDocLeasing,
}

// Endpoints returns the item/detail paths; ok is false for types the service does not know.
func (t InvoiceType) Endpoints() (Endpoints, bool) {
	e, ok := invoiceEndpoints[t]
	return e, ok
}

func (t InvoiceType) Valid() bool {
	_, ok := invoiceEndpoints[t]
	return ok
}

// IsServices services documents never move stock, so no warehouse is created for them.
func (t InvoiceType) IsServices() bool {
	return t == Services
}

func ParseInvoiceType(s string) (InvoiceType, error) {
	t := InvoiceType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown invoice type: %q", s)
	}
	return t, nil
}
