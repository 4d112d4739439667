package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/clinic_backend/config"
	"gorm.io/gorm"
)

// MovementReference points a stock movement at the document that caused it.
// Kind is restricted to the known document kinds; the kind resolves to its
// table through ResolveReferenceTable.
type MovementReference struct {
	Kind ReferenceKind `json:"kind"`
	ID   int           `json:"id"`
}

// StockMovement is an append-only ledger row. Quantity is the signed delta
// applied to the product's stock; QuantityBefore/After are captured under
// the product row lock inside the same transaction.
type StockMovement struct {
	ID             int               `gorm:"primary_key" json:"id"`
	ProductId      int               `gorm:"index;not null" json:"product_id"`
	Product        *Product          `gorm:"foreignKey:ProductId" json:"product,omitempty"`
	Type           StockMovementType `gorm:"type:enum('in','out','adjustment','damaged','expired');not null" json:"type"`
	Quantity       int               `gorm:"not null" json:"quantity"`
	QuantityBefore int               `gorm:"not null" json:"quantity_before"`
	QuantityAfter  int               `gorm:"not null" json:"quantity_after"`
	ReferenceKind  *ReferenceKind    `gorm:"type:enum('invoice');default:null" json:"reference_kind"`
	ReferenceId    *int              `json:"reference_id"`
	Notes          string            `gorm:"type:text" json:"notes"`
	CreatedBy      int               `json:"created_by"`
	CreatedAt      time.Time         `gorm:"autoCreateTime" json:"created_at"`
}

// recordMovement applies a signed stock delta to an already-locked product
// row and appends the matching ledger entry. The caller owns the transaction
// and must have fetched the product with a FOR UPDATE lock.
func recordMovement(ctx context.Context, tx *gorm.DB, product *Product, movementType StockMovementType, delta int, ref *MovementReference, notes string, createdBy int) (*StockMovement, error) {

	before := product.QuantityInStock
	after := before + delta
	if after < 0 {
		return nil, NewError(ErrInsufficientStock,
			"insufficient stock for product %d: have %d, need %d", product.ID, before, -delta)
	}

	movement := StockMovement{
		ProductId:      product.ID,
		Type:           movementType,
		Quantity:       delta,
		QuantityBefore: before,
		QuantityAfter:  after,
		Notes:          notes,
		CreatedBy:      createdBy,
	}
	if ref != nil {
		if _, ok := ResolveReferenceTable(ref.Kind); !ok {
			return nil, NewError(ErrStorage, "unknown movement reference kind %q", ref.Kind)
		}
		kind := ref.Kind
		id := ref.ID
		movement.ReferenceKind = &kind
		movement.ReferenceId = &id
	}

	if err := tx.Create(&movement).Error; err != nil {
		return nil, err
	}
	if err := tx.Model(&Product{}).Where("id = ?", product.ID).
		UpdateColumn("quantity_in_stock", after).Error; err != nil {
		return nil, err
	}
	product.QuantityInStock = after

	return &movement, nil
}

// GetStockMovements lists the movement history of one product, newest first.
func GetStockMovements(ctx context.Context, productId int) ([]*StockMovement, error) {

	db := config.GetDB()
	var results []*StockMovement

	err := db.WithContext(ctx).
		Where("product_id = ?", productId).
		Order("id DESC").
		Find(&results).Error
	if err != nil {
		return nil, WrapStorageError(err)
	}
	return results, nil
}

// GetAllStockMovements lists recent movements across products.
func GetAllStockMovements(ctx context.Context, limit int) ([]*StockMovement, error) {

	db := config.GetDB()
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var results []*StockMovement

	err := db.WithContext(ctx).
		Preload("Product").
		Order("id DESC").
		Limit(limit).
		Find(&results).Error
	if err != nil {
		return nil, WrapStorageError(err)
	}
	return results, nil
}
