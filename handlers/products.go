package handlers

import (
	"net/http"
	"strconv"

	"bitbucket.org/mmdatafocus/clinic_backend/models"
	"github.com/gin-gonic/gin"
)

func ListProductsHandler(c *gin.Context) {
	switch c.Query("filter") {
	case "low_stock":
		products, err := models.GetLowStockProducts(c.Request.Context())
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, products)
	case "reorder":
		products, err := models.GetReorderProducts(c.Request.Context())
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, products)
	default:
		products, err := models.GetAllProducts(c.Request.Context())
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, products)
	}
}

func GetProductHandler(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	product, err := models.GetProduct(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func CreateProductHandler(c *gin.Context) {
	var input models.NewProduct
	if err := c.ShouldBindJSON(&input); err != nil {
		abortWithBindingError(c, err)
		return
	}
	product, err := models.CreateProduct(c.Request.Context(), &input)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func UpdateProductHandler(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	var input models.Product
	if err := c.ShouldBindJSON(&input); err != nil {
		abortWithBindingError(c, err)
		return
	}
	product, err := input.UpdateProduct(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func DeleteProductHandler(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	product, err := models.DeleteProduct(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

/* Stock ledger */

type stockChangeRequest struct {
	Quantity int    `json:"quantity" binding:"required"`
	Notes    string `json:"notes"`
}

type stockAdjustRequest struct {
	NewQuantity *int   `json:"new_quantity" binding:"required"`
	Notes       string `json:"notes"`
}

func stockChangeHandler(apply func(c *gin.Context, productId int, quantity int, notes string) (*models.StockMovement, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramId(c)
		if !ok {
			return
		}
		var req stockChangeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithBindingError(c, err)
			return
		}
		movement, err := apply(c, id, req.Quantity, req.Notes)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusCreated, movement)
	}
}

func AddStockHandler() gin.HandlerFunc {
	return stockChangeHandler(func(c *gin.Context, productId int, quantity int, notes string) (*models.StockMovement, error) {
		return models.AddStock(c.Request.Context(), productId, quantity, notes)
	})
}

func RemoveStockHandler() gin.HandlerFunc {
	return stockChangeHandler(func(c *gin.Context, productId int, quantity int, notes string) (*models.StockMovement, error) {
		return models.RemoveStock(c.Request.Context(), productId, quantity, notes)
	})
}

func MarkDamagedHandler() gin.HandlerFunc {
	return stockChangeHandler(func(c *gin.Context, productId int, quantity int, notes string) (*models.StockMovement, error) {
		return models.MarkDamaged(c.Request.Context(), productId, quantity, notes)
	})
}

func MarkExpiredHandler() gin.HandlerFunc {
	return stockChangeHandler(func(c *gin.Context, productId int, quantity int, notes string) (*models.StockMovement, error) {
		return models.MarkExpired(c.Request.Context(), productId, quantity, notes)
	})
}

func AdjustStockHandler(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	var req stockAdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithBindingError(c, err)
		return
	}
	movement, err := models.AdjustStock(c.Request.Context(), id, *req.NewQuantity, req.Notes)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, movement)
}

func ListStockMovementsHandler(c *gin.Context) {
	if productParam := c.Query("product_id"); productParam != "" {
		productId, err := strconv.Atoi(productParam)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product_id"})
			return
		}
		movements, err := models.GetStockMovements(c.Request.Context(), productId)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, movements)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	movements, err := models.GetAllStockMovements(c.Request.Context(), limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, movements)
}
