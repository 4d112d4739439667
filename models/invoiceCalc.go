package models

import "github.com/shopspring/decimal"

var oneHundred = decimal.NewFromInt(100)

// LineItemSpec is the caller's description of one invoice line. Percentage
// charges win over fixed ones when both are present.
type LineItemSpec struct {
	Type               InvoiceItemType  `json:"type"`
	ProductId          *int             `json:"product_id"`
	ItemName           string           `json:"item_name"`
	Description        string           `json:"description"`
	Quantity           int              `json:"quantity"`
	UnitPrice          decimal.Decimal  `json:"unit_price"`
	TaxPercentage      *decimal.Decimal `json:"tax_percentage"`
	TaxFixed           *decimal.Decimal `json:"tax_fixed"`
	DiscountPercentage *decimal.Decimal `json:"discount_percentage"`
	DiscountAmount     *decimal.Decimal `json:"discount_amount"`
}

type ComputedLine struct {
	Spec           LineItemSpec
	Subtotal       decimal.Decimal
	TaxAmount      decimal.Decimal
	DiscountAmount decimal.Decimal
	Total          decimal.Decimal
}

type InvoiceTotals struct {
	Lines          []ComputedLine
	Subtotal       decimal.Decimal
	TaxAmount      decimal.Decimal
	DiscountAmount decimal.Decimal
	TotalAmount    decimal.Decimal
}

// chargeAmount resolves a percentage-or-fixed charge against a base amount.
// A set percentage takes precedence; a fixed charge applies as a flat
// amount; neither set means zero.
func chargeAmount(base decimal.Decimal, percentage *decimal.Decimal, fixed *decimal.Decimal) decimal.Decimal {
	if percentage != nil {
		return base.Mul(*percentage).Div(oneHundred)
	}
	if fixed != nil {
		return *fixed
	}
	return decimal.Zero
}

// ComputeLine prices one line: subtotal = quantity x unit price, then tax
// and discount on the subtotal, total = subtotal + tax - discount.
func ComputeLine(spec LineItemSpec) (*ComputedLine, error) {
	if spec.Quantity < 1 {
		return nil, NewError(ErrInvalidLineItem, "quantity must be at least 1")
	}
	if spec.UnitPrice.IsNegative() {
		return nil, NewError(ErrInvalidLineItem, "unit price must not be negative")
	}
	if spec.TaxPercentage != nil && spec.TaxPercentage.IsNegative() {
		return nil, NewError(ErrInvalidLineItem, "tax percentage must not be negative")
	}
	if spec.TaxFixed != nil && spec.TaxFixed.IsNegative() {
		return nil, NewError(ErrInvalidLineItem, "tax amount must not be negative")
	}
	if spec.DiscountPercentage != nil && spec.DiscountPercentage.IsNegative() {
		return nil, NewError(ErrInvalidLineItem, "discount percentage must not be negative")
	}
	if spec.DiscountAmount != nil && spec.DiscountAmount.IsNegative() {
		return nil, NewError(ErrInvalidLineItem, "discount amount must not be negative")
	}

	subtotal := spec.UnitPrice.Mul(decimal.NewFromInt(int64(spec.Quantity)))
	tax := chargeAmount(subtotal, spec.TaxPercentage, spec.TaxFixed)
	discount := chargeAmount(subtotal, spec.DiscountPercentage, spec.DiscountAmount)

	return &ComputedLine{
		Spec:           spec,
		Subtotal:       subtotal,
		TaxAmount:      tax,
		DiscountAmount: discount,
		Total:          subtotal.Add(tax).Sub(discount),
	}, nil
}

// ComputeInvoice prices all lines and sums them into invoice totals.
// Pure: no rounding happens here; amounts round to 2 places only at the
// persistence boundary.
func ComputeInvoice(specs []LineItemSpec) (*InvoiceTotals, error) {
	if len(specs) == 0 {
		return nil, NewError(ErrInvalidLineItem, "invoice requires at least one line item")
	}

	totals := InvoiceTotals{
		Lines:          make([]ComputedLine, 0, len(specs)),
		Subtotal:       decimal.Zero,
		TaxAmount:      decimal.Zero,
		DiscountAmount: decimal.Zero,
		TotalAmount:    decimal.Zero,
	}

	for _, spec := range specs {
		line, err := ComputeLine(spec)
		if err != nil {
			return nil, err
		}
		totals.Lines = append(totals.Lines, *line)
		totals.Subtotal = totals.Subtotal.Add(line.Subtotal)
		totals.TaxAmount = totals.TaxAmount.Add(line.TaxAmount)
		totals.DiscountAmount = totals.DiscountAmount.Add(line.DiscountAmount)
	}
	totals.TotalAmount = totals.Subtotal.Add(totals.TaxAmount).Sub(totals.DiscountAmount)

	return &totals, nil
}
