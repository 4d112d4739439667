package models_test

import (
	"testing"

	"bitbucket.org/mmdatafocus/clinic_backend/models"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func TestComputeInvoiceWorkedExample(t *testing.T) {
	// 2 x 100.00 with 10% tax and a 10.00 flat discount.
	totals, err := models.ComputeInvoice([]models.LineItemSpec{
		{
			Type:           models.InvoiceItemTypeService,
			ItemName:       "Consultation",
			Quantity:       2,
			UnitPrice:      dec("100.00"),
			TaxPercentage:  decPtr("10"),
			DiscountAmount: decPtr("10.00"),
		},
	})
	if err != nil {
		t.Fatalf("ComputeInvoice: %v", err)
	}

	if !totals.Subtotal.Equal(dec("200")) {
		t.Fatalf("subtotal=%s, want 200", totals.Subtotal)
	}
	if !totals.TaxAmount.Equal(dec("20")) {
		t.Fatalf("tax=%s, want 20", totals.TaxAmount)
	}
	if !totals.DiscountAmount.Equal(dec("10")) {
		t.Fatalf("discount=%s, want 10", totals.DiscountAmount)
	}
	if !totals.TotalAmount.Equal(dec("210")) {
		t.Fatalf("total=%s, want 210", totals.TotalAmount)
	}
}

func TestComputeLinePercentageWinsOverFixed(t *testing.T) {
	line, err := models.ComputeLine(models.LineItemSpec{
		ItemName:      "Vaccine",
		Quantity:      1,
		UnitPrice:     dec("50.00"),
		TaxPercentage: decPtr("5"),
		TaxFixed:      decPtr("99.00"),
	})
	if err != nil {
		t.Fatalf("ComputeLine: %v", err)
	}
	if !line.TaxAmount.Equal(dec("2.5")) {
		t.Fatalf("tax=%s, want 2.5 (percentage must win)", line.TaxAmount)
	}
}

func TestComputeLineFixedIsFlatNotPerUnit(t *testing.T) {
	line, err := models.ComputeLine(models.LineItemSpec{
		ItemName:  "Dewormer",
		Quantity:  3,
		UnitPrice: dec("10.00"),
		TaxFixed:  decPtr("2.00"),
	})
	if err != nil {
		t.Fatalf("ComputeLine: %v", err)
	}
	if !line.TaxAmount.Equal(dec("2.00")) {
		t.Fatalf("tax=%s, want 2.00 flat", line.TaxAmount)
	}
	if !line.Total.Equal(dec("32.00")) {
		t.Fatalf("total=%s, want 32.00", line.Total)
	}
}

func TestComputeLineNoChargesDefaultsToZero(t *testing.T) {
	line, err := models.ComputeLine(models.LineItemSpec{
		ItemName:  "Nail trim",
		Quantity:  1,
		UnitPrice: dec("15.00"),
	})
	if err != nil {
		t.Fatalf("ComputeLine: %v", err)
	}
	if !line.TaxAmount.IsZero() || !line.DiscountAmount.IsZero() {
		t.Fatalf("tax=%s discount=%s, want both zero", line.TaxAmount, line.DiscountAmount)
	}
	if !line.Total.Equal(dec("15.00")) {
		t.Fatalf("total=%s, want 15.00", line.Total)
	}
}

func TestComputeInvoiceRejectsBadLines(t *testing.T) {
	cases := []struct {
		name string
		spec models.LineItemSpec
	}{
		{"zero quantity", models.LineItemSpec{ItemName: "x", Quantity: 0, UnitPrice: dec("1")}},
		{"negative price", models.LineItemSpec{ItemName: "x", Quantity: 1, UnitPrice: dec("-1")}},
		{"negative tax pct", models.LineItemSpec{ItemName: "x", Quantity: 1, UnitPrice: dec("1"), TaxPercentage: decPtr("-5")}},
		{"negative tax fixed", models.LineItemSpec{ItemName: "x", Quantity: 1, UnitPrice: dec("1"), TaxFixed: decPtr("-5")}},
		{"negative discount", models.LineItemSpec{ItemName: "x", Quantity: 1, UnitPrice: dec("1"), DiscountAmount: decPtr("-5")}},
	}
	for _, tc := range cases {
		_, err := models.ComputeInvoice([]models.LineItemSpec{tc.spec})
		if !models.IsKind(err, models.ErrInvalidLineItem) {
			t.Fatalf("%s: got %v, want invalid line item", tc.name, err)
		}
	}

	if _, err := models.ComputeInvoice(nil); !models.IsKind(err, models.ErrInvalidLineItem) {
		t.Fatalf("empty invoice: got %v, want invalid line item", err)
	}
}

func TestDeriveInvoiceStatus(t *testing.T) {
	total := dec("100.00")

	sequence := []struct {
		paid string
		want models.InvoiceStatus
	}{
		{"0", models.InvoiceStatusPending},
		{"50.00", models.InvoiceStatusPartiallyPaid},
		{"100.00", models.InvoiceStatusPaid},
		{"150.00", models.InvoiceStatusPaid},
	}
	for _, step := range sequence {
		got := models.DeriveInvoiceStatus(models.InvoiceStatusPending, dec(step.paid), total)
		if got != step.want {
			t.Fatalf("paid=%s: status=%s, want %s", step.paid, got, step.want)
		}
	}

	// Reversal falls back.
	if got := models.DeriveInvoiceStatus(models.InvoiceStatusPaid, dec("50.00"), total); got != models.InvoiceStatusPartiallyPaid {
		t.Fatalf("reverse to 50: status=%s, want partially_paid", got)
	}
	if got := models.DeriveInvoiceStatus(models.InvoiceStatusPartiallyPaid, dec("0"), total); got != models.InvoiceStatusPending {
		t.Fatalf("reverse to 0: status=%s, want pending", got)
	}

	// Explicit statuses stay put.
	if got := models.DeriveInvoiceStatus(models.InvoiceStatusDraft, dec("100"), total); got != models.InvoiceStatusDraft {
		t.Fatalf("draft: status=%s, want draft", got)
	}
	if got := models.DeriveInvoiceStatus(models.InvoiceStatusCancelled, dec("100"), total); got != models.InvoiceStatusCancelled {
		t.Fatalf("cancelled: status=%s, want cancelled", got)
	}
}
