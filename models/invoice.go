package models

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/clinic_backend/config"
	"bitbucket.org/mmdatafocus/clinic_backend/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Invoice struct {
	ID             int             `gorm:"primary_key" json:"id"`
	InvoiceNumber  string          `gorm:"size:50;not null;unique" json:"invoice_number"`
	UserId         int             `gorm:"index;not null" json:"user_id"`
	PetId          *int            `gorm:"index" json:"pet_id"`
	AppointmentId  *int            `gorm:"index" json:"appointment_id"`
	CreatedBy      int             `json:"created_by"`
	InvoiceDate    time.Time       `gorm:"not null" json:"invoice_date"`
	DueDate        *time.Time      `json:"due_date"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"subtotal"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tax_amount"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"discount_amount"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	PaidAmount     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"paid_amount"`
	Status         InvoiceStatus   `gorm:"type:enum('draft','pending','paid','partially_paid','overdue','cancelled');default:pending" json:"status"`
	Notes          string          `gorm:"type:text" json:"notes"`
	Items          []InvoiceItem   `gorm:"foreignKey:InvoiceId" json:"items,omitempty"`
	Payments       []Payment       `gorm:"foreignKey:InvoiceId" json:"payments,omitempty"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt  `gorm:"index" json:"-"`
}

// InvoiceItem rows are immutable once created; invoice edits touch
// metadata only.
type InvoiceItem struct {
	ID                 int              `gorm:"primary_key" json:"id"`
	InvoiceId          int              `gorm:"index;not null" json:"invoice_id"`
	Type               InvoiceItemType  `gorm:"type:enum('product','service','consultation');default:service" json:"type"`
	ProductId          *int             `gorm:"index" json:"product_id"`
	ItemName           string           `gorm:"size:255;not null" json:"item_name"`
	Description        string           `gorm:"type:text" json:"description"`
	Quantity           int              `gorm:"not null;default:1" json:"quantity"`
	UnitPrice          decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	TaxPercentage      *decimal.Decimal `gorm:"type:decimal(20,4);default:null" json:"tax_percentage"`
	TaxFixed           *decimal.Decimal `gorm:"type:decimal(20,4);default:null" json:"tax_fixed"`
	DiscountPercentage *decimal.Decimal `gorm:"type:decimal(20,4);default:null" json:"discount_percentage"`
	DiscountFixed      *decimal.Decimal `gorm:"type:decimal(20,4);default:null" json:"discount_fixed"`
	TaxAmount          decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"tax_amount"`
	DiscountAmount     decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"discount_amount"`
	Total              decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"total"`
	CreatedAt          time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewInvoice struct {
	UserId        int            `json:"user_id" binding:"required"`
	PetId         *int           `json:"pet_id"`
	AppointmentId *int           `json:"appointment_id"`
	InvoiceDate   *time.Time     `json:"invoice_date"`
	DueDate       *time.Time     `json:"due_date"`
	Status        InvoiceStatus  `json:"status"`
	Notes         string         `json:"notes"`
	Items         []LineItemSpec `json:"items" binding:"required"`
}

// generateInvoiceNumber builds INV-yyyymmdd-XXXXXX with a random suffix.
// The unique column catches the rare collision; runInTx retries cover it.
func generateInvoiceNumber(date time.Time) string {
	suffix := strings.ToUpper(uuid.New().String()[:6])
	return fmt.Sprintf("INV-%s-%s", date.Format("20060102"), suffix)
}

// roundMoney rounds to 2 places at the persistence boundary.
func roundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// DeriveInvoiceStatus applies the payment-derived status rule. Draft and
// cancelled invoices keep their explicit status.
func DeriveInvoiceStatus(current InvoiceStatus, paid decimal.Decimal, total decimal.Decimal) InvoiceStatus {
	if current == InvoiceStatusDraft || current == InvoiceStatusCancelled {
		return current
	}
	switch {
	case paid.GreaterThanOrEqual(total) && total.GreaterThan(decimal.Zero):
		return InvoiceStatusPaid
	case paid.GreaterThan(decimal.Zero):
		return InvoiceStatusPartiallyPaid
	default:
		return InvoiceStatusPending
	}
}

// CreateInvoice prices the line items, persists the invoice with its items,
// and deducts stock for every tracked product line, all in one transaction.
// Product rows are locked in id order to keep lock acquisition stable.
func CreateInvoice(ctx context.Context, input *NewInvoice) (*Invoice, error) {

	logger := config.GetLogger()

	if err := utils.ValidateResourceId[User](ctx, input.UserId); err != nil {
		return nil, NewError(ErrNotFound, "user %d not found", input.UserId)
	}
	if input.PetId != nil {
		if err := utils.ValidateResourceId[Pet](ctx, *input.PetId); err != nil {
			return nil, NewError(ErrNotFound, "pet %d not found", *input.PetId)
		}
	}
	if input.AppointmentId != nil {
		if err := utils.ValidateResourceId[Appointment](ctx, *input.AppointmentId); err != nil {
			return nil, NewError(ErrNotFound, "appointment %d not found", *input.AppointmentId)
		}
	}

	status := input.Status
	if status == "" {
		status = InvoiceStatusPending
	}
	if status != InvoiceStatusDraft && status != InvoiceStatusPending {
		return nil, NewError(ErrInvalidTransition, "new invoices must be draft or pending")
	}

	totals, err := ComputeInvoice(input.Items)
	if err != nil {
		return nil, err
	}

	invoiceDate := Now()
	if input.InvoiceDate != nil {
		invoiceDate = *input.InvoiceDate
	}
	dueDate := input.DueDate
	if dueDate == nil {
		d := invoiceDate.AddDate(0, 0, 30)
		dueDate = &d
	}

	createdBy, _ := utils.GetUserIdFromContext(ctx)

	invoice := Invoice{
		InvoiceNumber:  generateInvoiceNumber(invoiceDate),
		UserId:         input.UserId,
		PetId:          input.PetId,
		AppointmentId:  input.AppointmentId,
		CreatedBy:      createdBy,
		InvoiceDate:    invoiceDate,
		DueDate:        dueDate,
		Subtotal:       roundMoney(totals.Subtotal),
		TaxAmount:      roundMoney(totals.TaxAmount),
		DiscountAmount: roundMoney(totals.DiscountAmount),
		TotalAmount:    roundMoney(totals.TotalAmount),
		PaidAmount:     decimal.Zero,
		Status:         status,
		Notes:          input.Notes,
	}

	err = runInTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&invoice).Error; err != nil {
			return err
		}

		items := make([]InvoiceItem, 0, len(totals.Lines))
		for _, line := range totals.Lines {
			itemType := line.Spec.Type
			if itemType == "" {
				itemType = InvoiceItemTypeService
			}
			items = append(items, InvoiceItem{
				InvoiceId:          invoice.ID,
				Type:               itemType,
				ProductId:          line.Spec.ProductId,
				ItemName:           line.Spec.ItemName,
				Description:        line.Spec.Description,
				Quantity:           line.Spec.Quantity,
				UnitPrice:          line.Spec.UnitPrice,
				TaxPercentage:      line.Spec.TaxPercentage,
				TaxFixed:           line.Spec.TaxFixed,
				DiscountPercentage: line.Spec.DiscountPercentage,
				DiscountFixed:      line.Spec.DiscountAmount,
				TaxAmount:          roundMoney(line.TaxAmount),
				DiscountAmount:     roundMoney(line.DiscountAmount),
				Total:              roundMoney(line.Total),
			})
		}
		if err := tx.Create(&items).Error; err != nil {
			return err
		}
		invoice.Items = items

		return deductStockForLines(ctx, tx, totals.Lines, invoice.ID, createdBy)
	})
	if err != nil {
		config.LogError(logger, "invoice", "CreateInvoice", "transaction failed", input, err)
		return nil, err
	}

	return &invoice, nil
}

// deductStockForLines removes sold quantities from stock. Product rows are
// visited in ascending id order, each locked FOR UPDATE, and each deduction
// appends a ledger movement pointing back at the invoice.
func deductStockForLines(ctx context.Context, tx *gorm.DB, lines []ComputedLine, invoiceId int, createdBy int) error {

	quantities := make(map[int]int)
	for _, line := range lines {
		if line.Spec.ProductId != nil {
			quantities[*line.Spec.ProductId] += line.Spec.Quantity
		}
	}
	if len(quantities) == 0 {
		return nil
	}

	productIds := make([]int, 0, len(quantities))
	for id := range quantities {
		productIds = append(productIds, id)
	}
	sort.Ints(productIds)

	ref := &MovementReference{Kind: ReferenceKindInvoice, ID: invoiceId}

	for _, productId := range productIds {
		product, err := fetchProductForUpdate(tx, productId)
		if err != nil {
			return err
		}
		if !product.TracksStock() {
			continue
		}
		notes := fmt.Sprintf("sold on invoice #%d", invoiceId)
		if _, err := recordMovement(ctx, tx, product, StockMovementTypeOut, -quantities[productId], ref, notes, createdBy); err != nil {
			return err
		}
	}
	return nil
}

/* Queries and metadata updates */

func GetInvoice(ctx context.Context, id int) (*Invoice, error) {
	invoice, err := utils.FetchModel[Invoice](ctx, id, "Items", "Payments")
	if err != nil {
		return nil, NewError(ErrNotFound, "invoice %d not found", id)
	}
	return invoice, nil
}

func GetAllInvoices(ctx context.Context) ([]*Invoice, error) {

	db := config.GetDB()
	var results []*Invoice

	err := db.WithContext(ctx).
		Preload("Items").
		Order("invoice_date DESC").
		Find(&results).Error
	if err != nil {
		return nil, WrapStorageError(err)
	}
	return results, nil
}

// GetOverdueInvoices lists unpaid invoices whose due date has passed.
func GetOverdueInvoices(ctx context.Context) ([]*Invoice, error) {

	db := config.GetDB()
	var results []*Invoice

	err := db.WithContext(ctx).
		Where("due_date < ?", Now()).
		Where("status IN ?", []InvoiceStatus{InvoiceStatusPending, InvoiceStatusPartiallyPaid, InvoiceStatusOverdue}).
		Order("due_date").
		Find(&results).Error
	if err != nil {
		return nil, WrapStorageError(err)
	}
	return results, nil
}

// MarkOverdueInvoices flips past-due pending and partially paid invoices to
// overdue. Returns the number of invoices flipped.
func MarkOverdueInvoices(ctx context.Context, asOf time.Time) (int64, error) {

	db := config.GetDB()

	result := db.WithContext(ctx).Model(&Invoice{}).
		Where("due_date < ?", asOf).
		Where("status IN ?", []InvoiceStatus{InvoiceStatusPending, InvoiceStatusPartiallyPaid}).
		Update("status", InvoiceStatusOverdue)
	if result.Error != nil {
		return 0, WrapStorageError(result.Error)
	}
	return result.RowsAffected, nil
}

type InvoiceMetadataUpdate struct {
	DueDate *time.Time `json:"due_date"`
	Notes   *string    `json:"notes"`
}

// UpdateInvoiceMetadata edits the mutable surface of an invoice. Line
// items, totals, and paid amount never change here.
func UpdateInvoiceMetadata(ctx context.Context, id int, input *InvoiceMetadataUpdate) (*Invoice, error) {

	db := config.GetDB()

	var invoice Invoice
	if err := db.WithContext(ctx).First(&invoice, id).Error; err != nil {
		return nil, NewError(ErrNotFound, "invoice %d not found", id)
	}

	updates := map[string]interface{}{}
	if input.DueDate != nil {
		updates["due_date"] = *input.DueDate
	}
	if input.Notes != nil {
		updates["notes"] = *input.Notes
	}
	if len(updates) == 0 {
		return &invoice, nil
	}

	if err := db.WithContext(ctx).Model(&invoice).Updates(updates).Error; err != nil {
		return nil, WrapStorageError(err)
	}
	return &invoice, nil
}

// CancelInvoice voids an unpaid invoice.
func CancelInvoice(ctx context.Context, id int) (*Invoice, error) {

	db := config.GetDB()

	result := db.WithContext(ctx).Model(&Invoice{}).
		Where("id = ? AND status IN ?", id,
			[]InvoiceStatus{InvoiceStatusDraft, InvoiceStatusPending, InvoiceStatusOverdue}).
		Update("status", InvoiceStatusCancelled)
	if result.Error != nil {
		return nil, WrapStorageError(result.Error)
	}

	var invoice Invoice
	if err := db.WithContext(ctx).First(&invoice, id).Error; err != nil {
		return nil, NewError(ErrNotFound, "invoice %d not found", id)
	}
	if result.RowsAffected == 0 {
		return nil, NewError(ErrInvalidTransition, "invoice %d cannot be cancelled from %s", id, invoice.Status)
	}
	return &invoice, nil
}
