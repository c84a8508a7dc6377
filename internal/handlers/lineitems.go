package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"cantina-system/internal/database/models"
)

type LineItemHandler struct {
	db *gorm.DB
}

func NewLineItemHandler(db *gorm.DB) *LineItemHandler {
	return &LineItemHandler{db: db}
}

type AddLineRequest struct {
	ItemID    int32   `json:"item_id" binding:"required"`
	Quantity  int32   `json:"quantity" binding:"required,min=1"`
	UnitPrice *string `json:"unit_price,omitempty"`
	Comment   *string `json:"comment,omitempty"`
}

type UpdateLineRequest struct {
	Quantity  *int32  `json:"quantity,omitempty"`
	UnitPrice *string `json:"unit_price,omitempty"`
	Comment   *string `json:"comment,omitempty"`
}

// recomputeOrderTotal rewrites the parent order's stored total and points
// from its current lines. Runs inside the caller's transaction so lines
// and header never drift apart.
func recomputeOrderTotal(tx *gorm.DB, orderID int64) error {
	var lines []models.LineItem
	if err := tx.Where("order_id = ?", orderID).Find(&lines).Error; err != nil {
		return err
	}

	total := decimal.Zero
	for _, line := range lines {
		subtotal, err := decimal.NewFromString(line.Subtotal)
		if err != nil {
			return err
		}
		total = total.Add(subtotal)
	}

	return tx.Model(&models.Order{}).Where("id = ?", orderID).Updates(map[string]interface{}{
		"total_amount":  total.StringFixed(2),
		"points_earned": pointsForTotal(total),
	}).Error
}

func (h *LineItemHandler) AddLine(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid order ID"))
		return
	}

	var req AddLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, validationResponse(err))
		return
	}

	var order models.Order
	if err := h.db.First(&order, orderID).Error; err != nil {
		writeDBError(c, err, "Order not found")
		return
	}

	if !canAccessOrder(c, &order) {
		forbidOrderAccess(c)
		return
	}

	var item models.MenuItem
	if err := h.db.First(&item, req.ItemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnprocessableEntity, fieldError("item_id", "menu item does not exist"))
			return
		}
		writeDBError(c, err, "Menu item not found")
		return
	}

	priceStr := item.UnitPrice
	if req.UnitPrice != nil {
		priceStr = *req.UnitPrice
	}
	unitPrice, err := parseMoney(priceStr)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, fieldError("unit_price", "must be a non-negative amount"))
		return
	}

	line := models.LineItem{
		OrderId:   orderID,
		ItemId:    req.ItemID,
		Quantity:  req.Quantity,
		UnitPrice: unitPrice.StringFixed(2),
		Subtotal:  unitPrice.Mul(decimal.NewFromInt32(req.Quantity)).StringFixed(2),
		Comment:   req.Comment,
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&line).Error; err != nil {
			return err
		}
		return recomputeOrderTotal(tx, orderID)
	})
	if err != nil {
		writeDBError(c, err, "Order not found")
		return
	}

	c.JSON(http.StatusCreated, successResponse("Line item added successfully", line))
}

func (h *LineItemHandler) UpdateLine(c *gin.Context) {
	lineID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid line item ID"))
		return
	}

	var req UpdateLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, validationResponse(err))
		return
	}

	var line models.LineItem
	if err := h.db.First(&line, lineID).Error; err != nil {
		writeDBError(c, err, "Line item not found")
		return
	}

	var order models.Order
	if err := h.db.First(&order, line.OrderId).Error; err != nil {
		writeDBError(c, err, "Order not found")
		return
	}
	if !canAccessOrder(c, &order) {
		forbidOrderAccess(c)
		return
	}

	// Merge supplied fields over the stored ones, then recompute the
	// subtotal from scratch.
	quantity := line.Quantity
	if req.Quantity != nil {
		if *req.Quantity < 1 {
			c.JSON(http.StatusUnprocessableEntity, fieldError("quantity", "must be at least 1"))
			return
		}
		quantity = *req.Quantity
	}

	priceStr := line.UnitPrice
	if req.UnitPrice != nil {
		priceStr = *req.UnitPrice
	}
	unitPrice, err := parseMoney(priceStr)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, fieldError("unit_price", "must be a non-negative amount"))
		return
	}

	updates := map[string]interface{}{
		"quantity":   quantity,
		"unit_price": unitPrice.StringFixed(2),
		"subtotal":   unitPrice.Mul(decimal.NewFromInt32(quantity)).StringFixed(2),
	}
	if req.Comment != nil {
		updates["comment"] = *req.Comment
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&line).Updates(updates).Error; err != nil {
			return err
		}
		return recomputeOrderTotal(tx, line.OrderId)
	})
	if err != nil {
		writeDBError(c, err, "Line item not found")
		return
	}

	c.JSON(http.StatusOK, successResponse("Line item updated successfully", line))
}

func (h *LineItemHandler) DeleteLine(c *gin.Context) {
	lineID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid line item ID"))
		return
	}

	var line models.LineItem
	if err := h.db.First(&line, lineID).Error; err != nil {
		writeDBError(c, err, "Line item not found")
		return
	}

	var order models.Order
	if err := h.db.First(&order, line.OrderId).Error; err != nil {
		writeDBError(c, err, "Order not found")
		return
	}
	if !canAccessOrder(c, &order) {
		forbidOrderAccess(c)
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.LineItem{}, lineID).Error; err != nil {
			return err
		}
		return recomputeOrderTotal(tx, line.OrderId)
	})
	if err != nil {
		writeDBError(c, err, "Line item not found")
		return
	}

	c.JSON(http.StatusOK, successResponse("Line item deleted successfully", nil))
}
