package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"cantina-system/internal/database/models"
)

type DeliveryHandler struct {
	db *gorm.DB
}

func NewDeliveryHandler(db *gorm.DB) *DeliveryHandler {
	return &DeliveryHandler{db: db}
}

type CreateDeliveryRequest struct {
	OrderID      int64      `json:"order_id" binding:"required"`
	Address      string     `json:"address" binding:"required"`
	ScheduledAt  *time.Time `json:"scheduled_at,omitempty"`
	Latitude     *float64   `json:"latitude,omitempty"`
	Longitude    *float64   `json:"longitude,omitempty"`
	CourierID    *int64     `json:"courier_id,omitempty"`
	Instructions *string    `json:"instructions,omitempty"`
}

type UpdateDeliveryStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func validCoordinates(lat, lon *float64) bool {
	if lat != nil && (*lat < -90 || *lat > 90) {
		return false
	}
	if lon != nil && (*lon < -180 || *lon > 180) {
		return false
	}
	// a pair must come together
	return (lat == nil) == (lon == nil)
}

func (h *DeliveryHandler) CreateDelivery(c *gin.Context) {
	var req CreateDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, validationResponse(err))
		return
	}

	if !validCoordinates(req.Latitude, req.Longitude) {
		c.JSON(http.StatusUnprocessableEntity, fieldError("latitude", "coordinates out of bounds or incomplete"))
		return
	}

	var order models.Order
	if err := h.db.First(&order, req.OrderID).Error; err != nil {
		writeDBError(c, err, "Order not found")
		return
	}

	if !canAccessOrder(c, &order) {
		forbidOrderAccess(c)
		return
	}

	if order.ServiceType != models.ServiceDelivery {
		c.JSON(http.StatusUnprocessableEntity, fieldError("order_id", "order is not a delivery order"))
		return
	}

	delivery := models.Delivery{
		OrderId:      req.OrderID,
		Address:      req.Address,
		Status:       models.DeliveryPending,
		ScheduledAt:  req.ScheduledAt,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		CourierId:    req.CourierID,
		Instructions: req.Instructions,
	}

	if err := h.db.Create(&delivery).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, errorResponse("Order already has a delivery"))
			return
		}
		writeDBError(c, err, "Order not found")
		return
	}

	c.JSON(http.StatusCreated, successResponse("Delivery created successfully", delivery))
}

func (h *DeliveryHandler) GetDelivery(c *gin.Context) {
	deliveryID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid delivery ID"))
		return
	}

	var delivery models.Delivery
	if err := h.db.Preload("Courier").First(&delivery, deliveryID).Error; err != nil {
		writeDBError(c, err, "Delivery not found")
		return
	}

	var order models.Order
	if err := h.db.First(&order, delivery.OrderId).Error; err != nil {
		writeDBError(c, err, "Order not found")
		return
	}
	if !canAccessOrder(c, &order) {
		forbidOrderAccess(c)
		return
	}

	c.JSON(http.StatusOK, successResponse("Delivery retrieved successfully", delivery))
}

// UpdateStatus walks the delivery state machine and keeps the parent order
// in step: in_progress pushes a ready order into in_delivery, delivered
// closes an in_delivery order.
func (h *DeliveryHandler) UpdateStatus(c *gin.Context) {
	deliveryID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid delivery ID"))
		return
	}

	var req UpdateDeliveryStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, validationResponse(err))
		return
	}
	newStatus := models.DeliveryStatus(req.Status)

	var delivery models.Delivery
	if err := h.db.First(&delivery, deliveryID).Error; err != nil {
		writeDBError(c, err, "Delivery not found")
		return
	}

	var parent models.Order
	if err := h.db.First(&parent, delivery.OrderId).Error; err != nil {
		writeDBError(c, err, "Order not found")
		return
	}
	if !canAccessOrder(c, &parent) {
		forbidOrderAccess(c)
		return
	}

	if !delivery.Status.CanTransition(newStatus) {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid delivery status transition"))
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{"status": newStatus}
		if newStatus == models.DeliveryDelivered {
			now := time.Now()
			updates["delivered_at"] = &now
		}
		if err := tx.Model(&delivery).Updates(updates).Error; err != nil {
			return err
		}

		var order models.Order
		if err := tx.First(&order, delivery.OrderId).Error; err != nil {
			return err
		}

		switch newStatus {
		case models.DeliveryInProgress:
			if order.Status == models.OrderReady {
				return tx.Model(&order).Update("status", models.OrderInDelivery).Error
			}
		case models.DeliveryDelivered:
			if order.Status == models.OrderInDelivery {
				return tx.Model(&order).Update("status", models.OrderDelivered).Error
			}
		}
		return nil
	})
	if err != nil {
		writeDBError(c, err, "Delivery not found")
		return
	}

	delivery.Status = newStatus
	c.JSON(http.StatusOK, successResponse("Delivery status updated successfully", delivery))
}
