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

type Product struct {
	ID                int              `gorm:"primary_key" json:"id"`
	Name              string           `gorm:"size:100;not null" json:"name" binding:"required"`
	Sku               string           `gorm:"size:100;not null;unique" json:"sku" binding:"required"`
	Description       string           `gorm:"type:text" json:"description"`
	Category          string           `gorm:"size:100;index" json:"category"`
	Price             decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"price"`
	Cost              decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"cost"`
	QuantityInStock   int              `gorm:"not null;default:0" json:"quantity_in_stock"`
	ReorderThreshold  int              `gorm:"not null;default:0" json:"reorder_threshold"`
	LowStockThreshold int              `gorm:"not null;default:0" json:"low_stock_threshold"`
	TrackStock        *bool            `gorm:"not null;default:true" json:"track_stock"`
	TaxPercentage     *decimal.Decimal `gorm:"type:decimal(20,4);default:null" json:"tax_percentage"`
	TaxFixed          *decimal.Decimal `gorm:"type:decimal(20,4);default:null" json:"tax_fixed"`
	IsActive          *bool            `gorm:"not null;default:true" json:"is_active"`
	ExpiryDate        *time.Time       `json:"expiry_date"`
	CreatedAt         time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt         gorm.DeletedAt   `gorm:"index" json:"-"`
}

type NewProduct struct {
	Name              string           `json:"name" binding:"required"`
	Sku               string           `json:"sku" binding:"required"`
	Description       string           `json:"description"`
	Category          string           `json:"category"`
	Price             decimal.Decimal  `json:"price"`
	Cost              decimal.Decimal  `json:"cost"`
	QuantityInStock   int              `json:"quantity_in_stock"`
	ReorderThreshold  int              `json:"reorder_threshold"`
	LowStockThreshold int              `json:"low_stock_threshold"`
	TrackStock        *bool            `json:"track_stock"`
	TaxPercentage     *decimal.Decimal `json:"tax_percentage"`
	TaxFixed          *decimal.Decimal `json:"tax_fixed"`
	IsActive          *bool            `json:"is_active"`
	ExpiryDate        *time.Time       `json:"expiry_date"`
}

func (p *Product) TracksStock() bool {
	return p.TrackStock == nil || *p.TrackStock
}

func CreateProduct(ctx context.Context, input *NewProduct) (*Product, error) {

	db := config.GetDB()

	if err := utils.ValidateUnique[Product](ctx, "sku", input.Sku, 0); err != nil {
		return nil, err
	}
	if input.Price.IsNegative() || input.Cost.IsNegative() {
		return nil, errors.New("price and cost must not be negative")
	}
	if input.QuantityInStock < 0 {
		return nil, errors.New("quantity in stock must not be negative")
	}

	trackStock := input.TrackStock
	if trackStock == nil {
		trackStock = utils.NewTrue()
	}
	isActive := input.IsActive
	if isActive == nil {
		isActive = utils.NewTrue()
	}

	product := Product{
		Name:              input.Name,
		Sku:               input.Sku,
		Description:       input.Description,
		Category:          input.Category,
		Price:             input.Price,
		Cost:              input.Cost,
		QuantityInStock:   input.QuantityInStock,
		ReorderThreshold:  input.ReorderThreshold,
		LowStockThreshold: input.LowStockThreshold,
		TrackStock:        trackStock,
		TaxPercentage:     input.TaxPercentage,
		TaxFixed:          input.TaxFixed,
		IsActive:          isActive,
		ExpiryDate:        input.ExpiryDate,
	}

	if err := db.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, WrapStorageError(err)
	}
	return &product, nil
}

func GetProduct(ctx context.Context, id int) (*Product, error) {
	product, err := utils.FetchModel[Product](ctx, id)
	if err != nil {
		return nil, NewError(ErrNotFound, "product %d not found", id)
	}
	return product, nil
}

func GetAllProducts(ctx context.Context) ([]*Product, error) {
	return utils.FetchAllModels[Product](ctx)
}

// GetLowStockProducts lists active tracked products at or below their
// low-stock threshold.
func GetLowStockProducts(ctx context.Context) ([]*Product, error) {

	db := config.GetDB()
	var results []*Product

	err := db.WithContext(ctx).
		Where("is_active = ? AND track_stock = ?", true, true).
		Where("quantity_in_stock <= low_stock_threshold").
		Order("quantity_in_stock").
		Find(&results).Error
	if err != nil {
		return nil, WrapStorageError(err)
	}
	return results, nil
}

// GetReorderProducts lists tracked products at or below their reorder
// threshold.
func GetReorderProducts(ctx context.Context) ([]*Product, error) {

	db := config.GetDB()
	var results []*Product

	err := db.WithContext(ctx).
		Where("is_active = ? AND track_stock = ?", true, true).
		Where("quantity_in_stock <= reorder_threshold").
		Order("quantity_in_stock").
		Find(&results).Error
	if err != nil {
		return nil, WrapStorageError(err)
	}
	return results, nil
}

func (input *Product) UpdateProduct(ctx context.Context, id int) (*Product, error) {

	db := config.GetDB()

	var product Product
	if err := db.WithContext(ctx).First(&product, id).Error; err != nil {
		return nil, NewError(ErrNotFound, "product %d not found", id)
	}

	if input.Sku != "" && input.Sku != product.Sku {
		if err := utils.ValidateUnique[Product](ctx, "sku", input.Sku, id); err != nil {
			return nil, err
		}
	}

	// Stock quantity only moves through the ledger operations below;
	// metadata updates never touch quantity_in_stock.
	err := db.WithContext(ctx).Model(&product).
		Select("name", "sku", "description", "category", "price", "cost",
			"reorder_threshold", "low_stock_threshold", "track_stock",
			"tax_percentage", "tax_fixed", "is_active", "expiry_date").
		Updates(Product{
			Name:              input.Name,
			Sku:               input.Sku,
			Description:       input.Description,
			Category:          input.Category,
			Price:             input.Price,
			Cost:              input.Cost,
			ReorderThreshold:  input.ReorderThreshold,
			LowStockThreshold: input.LowStockThreshold,
			TrackStock:        input.TrackStock,
			TaxPercentage:     input.TaxPercentage,
			TaxFixed:          input.TaxFixed,
			IsActive:          input.IsActive,
			ExpiryDate:        input.ExpiryDate,
		}).Error
	if err != nil {
		return nil, WrapStorageError(err)
	}
	return &product, nil
}

func DeleteProduct(ctx context.Context, id int) (*Product, error) {

	db := config.GetDB()

	var product Product
	if err := db.WithContext(ctx).First(&product, id).Error; err != nil {
		return nil, NewError(ErrNotFound, "product %d not found", id)
	}

	if err := db.WithContext(ctx).Delete(&product).Error; err != nil {
		return nil, WrapStorageError(err)
	}
	return &product, nil
}

/* Stock ledger operations */

// fetchProductForUpdate loads a product row with a FOR UPDATE lock inside tx.
func fetchProductForUpdate(tx *gorm.DB, productId int) (*Product, error) {
	var product Product
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&product, productId).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewError(ErrNotFound, "product %d not found", productId)
		}
		return nil, err
	}
	return &product, nil
}

// AddStock receives quantity units into stock (movement type "in").
func AddStock(ctx context.Context, productId int, quantity int, notes string) (*StockMovement, error) {
	if quantity <= 0 {
		return nil, NewError(ErrInvalidLineItem, "quantity must be positive")
	}
	return applyStockChange(ctx, productId, StockMovementTypeIn, quantity, notes)
}

// RemoveStock issues quantity units out of stock (movement type "out").
func RemoveStock(ctx context.Context, productId int, quantity int, notes string) (*StockMovement, error) {
	if quantity <= 0 {
		return nil, NewError(ErrInvalidLineItem, "quantity must be positive")
	}
	return applyStockChange(ctx, productId, StockMovementTypeOut, -quantity, notes)
}

// MarkDamaged writes off quantity units as damaged.
func MarkDamaged(ctx context.Context, productId int, quantity int, notes string) (*StockMovement, error) {
	if quantity <= 0 {
		return nil, NewError(ErrInvalidLineItem, "quantity must be positive")
	}
	return applyStockChange(ctx, productId, StockMovementTypeDamaged, -quantity, notes)
}

// MarkExpired writes off quantity units as expired.
func MarkExpired(ctx context.Context, productId int, quantity int, notes string) (*StockMovement, error) {
	if quantity <= 0 {
		return nil, NewError(ErrInvalidLineItem, "quantity must be positive")
	}
	return applyStockChange(ctx, productId, StockMovementTypeExpired, -quantity, notes)
}

// AdjustStock sets the stock level to newQuantity, recording the delta as
// an adjustment movement.
func AdjustStock(ctx context.Context, productId int, newQuantity int, notes string) (*StockMovement, error) {
	if newQuantity < 0 {
		return nil, NewError(ErrInvalidLineItem, "stock cannot be adjusted below zero")
	}

	createdBy, _ := utils.GetUserIdFromContext(ctx)
	var movement *StockMovement

	err := runInTx(ctx, func(tx *gorm.DB) error {
		product, err := fetchProductForUpdate(tx, productId)
		if err != nil {
			return err
		}
		delta := newQuantity - product.QuantityInStock
		movement, err = recordMovement(ctx, tx, product, StockMovementTypeAdjustment, delta, nil, notes, createdBy)
		return err
	})
	if err != nil {
		return nil, err
	}
	return movement, nil
}

func applyStockChange(ctx context.Context, productId int, movementType StockMovementType, delta int, notes string) (*StockMovement, error) {

	createdBy, _ := utils.GetUserIdFromContext(ctx)
	var movement *StockMovement

	err := runInTx(ctx, func(tx *gorm.DB) error {
		product, err := fetchProductForUpdate(tx, productId)
		if err != nil {
			return err
		}
		movement, err = recordMovement(ctx, tx, product, movementType, delta, nil, notes, createdBy)
		return err
	})
	if err != nil {
		return nil, err
	}
	return movement, nil
}
