package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/clinic_backend/config"
	"bitbucket.org/mmdatafocus/clinic_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Payment struct {
	ID              int             `gorm:"primary_key" json:"id"`
	InvoiceId       int             `gorm:"index;not null" json:"invoice_id" binding:"required"`
	Amount          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	PaymentMethod   PaymentMethod   `gorm:"type:enum('cash','credit_card','debit_card','bank_transfer','mobile_payment','other');default:cash" json:"payment_method"`
	PaymentDate     time.Time       `gorm:"not null" json:"payment_date"`
	ReceivedBy      int             `json:"received_by"`
	ReferenceNumber string          `gorm:"size:100" json:"reference_number"`
	Notes           string          `gorm:"type:text" json:"notes"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewPayment struct {
	InvoiceId       int             `json:"invoice_id" binding:"required"`
	Amount          decimal.Decimal `json:"amount" binding:"required"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	PaymentDate     *time.Time      `json:"payment_date"`
	ReferenceNumber string          `json:"reference_number"`
	Notes           string          `json:"notes"`
}

// fetchInvoiceForUpdate loads the invoice row with a FOR UPDATE lock so
// paid_amount mutations serialize on the row.
func fetchInvoiceForUpdate(tx *gorm.DB, invoiceId int) (*Invoice, error) {
	var invoice Invoice
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&invoice, invoiceId).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewError(ErrNotFound, "invoice %d not found", invoiceId)
		}
		return nil, err
	}
	return &invoice, nil
}

// applyToInvoice shifts the invoice's paid amount by delta and re-derives
// its status. The invoice row must already be locked by the caller's
// transaction.
func applyToInvoice(tx *gorm.DB, invoice *Invoice, delta decimal.Decimal) error {
	paid := roundMoney(invoice.PaidAmount.Add(delta))
	if paid.IsNegative() {
		paid = decimal.Zero
	}
	status := DeriveInvoiceStatus(invoice.Status, paid, invoice.TotalAmount)

	err := tx.Model(&Invoice{}).Where("id = ?", invoice.ID).
		Updates(map[string]interface{}{
			"paid_amount": paid,
			"status":      status,
		}).Error
	if err != nil {
		return err
	}
	invoice.PaidAmount = paid
	invoice.Status = status
	return nil
}

// CreatePayment records a payment and applies it to the invoice in one
// transaction.
func CreatePayment(ctx context.Context, input *NewPayment) (*Payment, error) {

	logger := config.GetLogger()

	if !input.Amount.GreaterThan(decimal.Zero) {
		return nil, NewError(ErrInvalidLineItem, "payment amount must be positive")
	}
	method := input.PaymentMethod
	if method == "" {
		method = PaymentMethodCash
	}
	if !method.Valid() {
		return nil, NewError(ErrInvalidLineItem, "invalid payment method %q", method)
	}

	paymentDate := Now()
	if input.PaymentDate != nil {
		paymentDate = *input.PaymentDate
	}
	receivedBy, _ := utils.GetUserIdFromContext(ctx)

	payment := Payment{
		InvoiceId:       input.InvoiceId,
		Amount:          roundMoney(input.Amount),
		PaymentMethod:   method,
		PaymentDate:     paymentDate,
		ReceivedBy:      receivedBy,
		ReferenceNumber: input.ReferenceNumber,
		Notes:           input.Notes,
	}

	err := runInTx(ctx, func(tx *gorm.DB) error {
		invoice, err := fetchInvoiceForUpdate(tx, input.InvoiceId)
		if err != nil {
			return err
		}
		if invoice.Status == InvoiceStatusCancelled || invoice.Status == InvoiceStatusDraft {
			return NewError(ErrInvalidTransition, "cannot pay a %s invoice", invoice.Status)
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}
		return applyToInvoice(tx, invoice, payment.Amount)
	})
	if err != nil {
		config.LogError(logger, "payment", "CreatePayment", "transaction failed", input, err)
		return nil, err
	}

	return &payment, nil
}

// UpdatePayment re-applies the payment with its new amount: the invoice's
// paid amount moves by the delta between new and old.
func UpdatePayment(ctx context.Context, id int, input *NewPayment) (*Payment, error) {

	logger := config.GetLogger()

	if !input.Amount.GreaterThan(decimal.Zero) {
		return nil, NewError(ErrInvalidLineItem, "payment amount must be positive")
	}
	if input.PaymentMethod != "" && !input.PaymentMethod.Valid() {
		return nil, NewError(ErrInvalidLineItem, "invalid payment method %q", input.PaymentMethod)
	}

	var payment Payment

	err := runInTx(ctx, func(tx *gorm.DB) error {
		if err := tx.First(&payment, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewError(ErrNotFound, "payment %d not found", id)
			}
			return err
		}

		invoice, err := fetchInvoiceForUpdate(tx, payment.InvoiceId)
		if err != nil {
			return err
		}

		newAmount := roundMoney(input.Amount)
		delta := newAmount.Sub(payment.Amount)

		payment.Amount = newAmount
		if input.PaymentMethod != "" {
			payment.PaymentMethod = input.PaymentMethod
		}
		if input.PaymentDate != nil {
			payment.PaymentDate = *input.PaymentDate
		}
		if input.ReferenceNumber != "" {
			payment.ReferenceNumber = input.ReferenceNumber
		}
		if input.Notes != "" {
			payment.Notes = input.Notes
		}

		if err := tx.Save(&payment).Error; err != nil {
			return err
		}
		return applyToInvoice(tx, invoice, delta)
	})
	if err != nil {
		config.LogError(logger, "payment", "UpdatePayment", "transaction failed", input, err)
		return nil, err
	}

	return &payment, nil
}

// DeletePayment reverses a payment: the row is removed and the invoice's
// paid amount and status fall back accordingly.
func DeletePayment(ctx context.Context, id int) (*Payment, error) {

	logger := config.GetLogger()

	var payment Payment

	err := runInTx(ctx, func(tx *gorm.DB) error {
		if err := tx.First(&payment, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewError(ErrNotFound, "payment %d not found", id)
			}
			return err
		}

		invoice, err := fetchInvoiceForUpdate(tx, payment.InvoiceId)
		if err != nil {
			return err
		}

		if err := tx.Delete(&payment).Error; err != nil {
			return err
		}
		return applyToInvoice(tx, invoice, payment.Amount.Neg())
	})
	if err != nil {
		config.LogError(logger, "payment", "DeletePayment", "transaction failed", id, err)
		return nil, err
	}

	return &payment, nil
}

func GetPayment(ctx context.Context, id int) (*Payment, error) {
	payment, err := utils.FetchModel[Payment](ctx, id)
	if err != nil {
		return nil, NewError(ErrNotFound, "payment %d not found", id)
	}
	return payment, nil
}

// GetPaymentsByInvoice lists the payments applied to one invoice.
func GetPaymentsByInvoice(ctx context.Context, invoiceId int) ([]*Payment, error) {

	db := config.GetDB()
	var results []*Payment

	err := db.WithContext(ctx).
		Where("invoice_id = ?", invoiceId).
		Order("payment_date").
		Find(&results).Error
	if err != nil {
		return nil, WrapStorageError(err)
	}
	return results, nil
}
