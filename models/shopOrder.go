package models

import (
	"context"
	"fmt"
	"strings"

	"bitbucket.org/mmdatafocus/clinic_backend/config"
	"github.com/shopspring/decimal"
)

// Shop orders are the self-service storefront path: customers pick
// products, pricing comes from the catalog, and the order persists as a
// regular invoice through the same atomic orchestrator.

type ShopOrderItem struct {
	ProductId int `json:"product_id" binding:"required"`
	Quantity  int `json:"quantity" binding:"required"`
}

type NewShopOrder struct {
	UserId          int             `json:"user_id" binding:"required"`
	Items           []ShopOrderItem `json:"items" binding:"required"`
	ShippingName    string          `json:"shipping_name" binding:"required"`
	ShippingPhone   string          `json:"shipping_phone" binding:"required"`
	ShippingAddress string          `json:"shipping_address" binding:"required"`
	Notes           string          `json:"notes"`
}

// CreateShopOrder turns a storefront cart into a pending invoice. Unit
// prices and taxes are read from the product catalog, never from the
// request; shipping details fold into the invoice notes.
func CreateShopOrder(ctx context.Context, input *NewShopOrder) (*Invoice, error) {

	db := config.GetDB()

	if len(input.Items) == 0 {
		return nil, NewError(ErrInvalidLineItem, "order requires at least one item")
	}

	specs := make([]LineItemSpec, 0, len(input.Items))
	for _, item := range input.Items {
		if item.Quantity < 1 {
			return nil, NewError(ErrInvalidLineItem, "quantity must be at least 1")
		}

		var product Product
		err := db.WithContext(ctx).
			Where("id = ? AND is_active = ?", item.ProductId, true).
			First(&product).Error
		if err != nil {
			return nil, NewError(ErrNotFound, "product %d not found", item.ProductId)
		}

		productId := product.ID
		spec := LineItemSpec{
			Type:        InvoiceItemTypeProduct,
			ProductId:   &productId,
			ItemName:    product.Name,
			Description: product.Description,
			Quantity:    item.Quantity,
			UnitPrice:   product.Price,
		}
		if product.TaxPercentage != nil {
			spec.TaxPercentage = product.TaxPercentage
		} else if product.TaxFixed != nil {
			// Catalog fixed tax is per unit; the line charge scales with
			// the quantity ordered.
			lineTax := product.TaxFixed.Mul(decimal.NewFromInt(int64(item.Quantity)))
			spec.TaxFixed = &lineTax
		}
		specs = append(specs, spec)
	}

	notes := buildShippingNotes(input)

	return CreateInvoice(ctx, &NewInvoice{
		UserId: input.UserId,
		Status: InvoiceStatusPending,
		Notes:  notes,
		Items:  specs,
	})
}

func buildShippingNotes(input *NewShopOrder) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Ship to: %s, %s, %s", input.ShippingName, input.ShippingPhone, input.ShippingAddress)
	if strings.TrimSpace(input.Notes) != "" {
		fmt.Fprintf(&b, "\n%s", input.Notes)
	}
	return b.String()
}
