package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"cantina-system/internal/database/models"
	"cantina-system/internal/middleware"
	"cantina-system/internal/utils"
)

const (
	defaultPageSize     = 15
	maxPageSize         = 100
	orderNumberAttempts = 3
)

type OrderHandler struct {
	db *gorm.DB
}

func NewOrderHandler(db *gorm.DB) *OrderHandler {
	return &OrderHandler{db: db}
}

// canAccessOrder gates order-scoped operations: staff act on any order,
// students only on their own.
func canAccessOrder(c *gin.Context, order *models.Order) bool {
	if c.GetString(middleware.CtxRole) != models.RoleStudent {
		return true
	}
	return order.UserId == c.GetInt64(middleware.CtxUserID)
}

func forbidOrderAccess(c *gin.Context) {
	c.JSON(http.StatusForbidden, errorResponse("Cannot access another user's order"))
}

func parseMoney(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, errors.New("negative amount")
	}
	return d, nil
}

// pointsForTotal awards one loyalty point per 100 currency units spent.
func pointsForTotal(total decimal.Decimal) int32 {
	return int32(total.Div(decimal.NewFromInt(100)).IntPart())
}

type CreateLineRequest struct {
	ItemID    int32   `json:"item_id" binding:"required"`
	Quantity  int32   `json:"quantity" binding:"required,min=1"`
	UnitPrice *string `json:"unit_price,omitempty"`
	Comment   *string `json:"comment,omitempty"`
}

type CreateOrderRequest struct {
	UserID      *int64              `json:"user_id,omitempty"`
	ServiceType string              `json:"service_type" binding:"required"`
	Lines       []CreateLineRequest `json:"lines" binding:"required,min=1,dive"`
	ArrivalTime *time.Time          `json:"arrival_time,omitempty"`
	TotalAmount *string             `json:"total_amount,omitempty"`
}

type UpdateOrderRequest struct {
	Status      *string    `json:"status,omitempty"`
	ArrivalTime *time.Time `json:"arrival_time,omitempty"`
}

type ListOrdersQuery struct {
	Page        int     `form:"page,default=1"`
	PerPage     int     `form:"per_page,default=15"`
	UserID      *int64  `form:"user_id,omitempty"`
	Status      *string `form:"status,omitempty"`
	ServiceType *string `form:"service_type,omitempty"`
	StartDate   string  `form:"start_date,omitempty"`
	EndDate     string  `form:"end_date,omitempty"`
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, validationResponse(err))
		return
	}

	serviceType := models.ServiceType(req.ServiceType)
	if !models.ValidServiceType(serviceType) {
		c.JSON(http.StatusUnprocessableEntity, fieldError("service_type", "must be dine-in, takeaway or delivery"))
		return
	}

	authUserID := c.GetInt64(middleware.CtxUserID)
	role := c.GetString(middleware.CtxRole)

	ownerID := authUserID
	if req.UserID != nil {
		ownerID = *req.UserID
	}
	if ownerID != authUserID && role == models.RoleStudent {
		c.JSON(http.StatusForbidden, errorResponse("Cannot create orders for another user"))
		return
	}

	// Price every line against the catalog before opening the transaction.
	lines := make([]models.LineItem, 0, len(req.Lines))
	total := decimal.Zero
	for _, lr := range req.Lines {
		var item models.MenuItem
		if err := h.db.First(&item, lr.ItemID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusUnprocessableEntity, fieldError("item_id", "menu item does not exist"))
				return
			}
			writeDBError(c, err, "Menu item not found")
			return
		}
		if !item.IsAvailable {
			c.JSON(http.StatusUnprocessableEntity, fieldError("item_id", "menu item is not available"))
			return
		}

		priceStr := item.UnitPrice
		if lr.UnitPrice != nil {
			priceStr = *lr.UnitPrice
		}
		unitPrice, err := parseMoney(priceStr)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, fieldError("unit_price", "must be a non-negative amount"))
			return
		}

		subtotal := unitPrice.Mul(decimal.NewFromInt32(lr.Quantity))
		total = total.Add(subtotal)

		lines = append(lines, models.LineItem{
			ItemId:    lr.ItemID,
			Quantity:  lr.Quantity,
			UnitPrice: unitPrice.StringFixed(2),
			Subtotal:  subtotal.StringFixed(2),
			Comment:   lr.Comment,
		})
	}

	// A caller-supplied total is verified, never trusted.
	if req.TotalAmount != nil {
		claimed, err := parseMoney(*req.TotalAmount)
		if err != nil || !claimed.Equal(total) {
			c.JSON(http.StatusUnprocessableEntity, fieldError("total_amount", "does not match the sum of line subtotals"))
			return
		}
	}

	order := models.Order{
		UserId:       ownerID,
		ServiceType:  serviceType,
		Status:       models.OrderPending,
		TotalAmount:  total.StringFixed(2),
		PointsEarned: pointsForTotal(total),
		ArrivalTime:  req.ArrivalTime,
		Lines:        lines,
	}

	// Header and lines commit together; the random order number retries
	// under the unique index until it sticks.
	var err error
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		order.OrderNumber = utils.NewOrderNumber(time.Now())
		err = h.db.Transaction(func(tx *gorm.DB) error {
			return tx.Create(&order).Error
		})
		if err == nil || !errors.Is(err, gorm.ErrDuplicatedKey) {
			break
		}
		order.ID = 0
	}
	if err != nil {
		writeDBError(c, err, "Order not found")
		return
	}

	c.JSON(http.StatusCreated, successResponse("Order created successfully", order))
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid order ID"))
		return
	}

	var order models.Order
	if err := h.db.
		Preload("Lines.Item").
		Preload("Payment").
		Preload("Delivery").
		Preload("Comments").
		First(&order, orderID).Error; err != nil {
		writeDBError(c, err, "Order not found")
		return
	}

	if !canAccessOrder(c, &order) {
		forbidOrderAccess(c)
		return
	}

	c.JSON(http.StatusOK, successResponse("Order retrieved successfully", order))
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	var query ListOrdersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusUnprocessableEntity, validationResponse(err))
		return
	}

	if query.PerPage <= 0 {
		query.PerPage = defaultPageSize
	}
	if query.PerPage > maxPageSize {
		query.PerPage = maxPageSize
	}
	if query.Page <= 0 {
		query.Page = 1
	}

	q := h.db.Model(&models.Order{})

	// Students only ever see their own orders, whatever filter they send.
	if c.GetString(middleware.CtxRole) == models.RoleStudent {
		q = q.Where("user_id = ?", c.GetInt64(middleware.CtxUserID))
	} else if query.UserID != nil {
		q = q.Where("user_id = ?", *query.UserID)
	}
	if query.Status != nil {
		q = q.Where("status = ?", *query.Status)
	}
	if query.ServiceType != nil {
		q = q.Where("service_type = ?", *query.ServiceType)
	}
	if query.StartDate != "" {
		start, err := time.Parse(time.RFC3339, query.StartDate)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, fieldError("start_date", "must be an RFC 3339 timestamp"))
			return
		}
		q = q.Where("created_at >= ?", start)
	}
	if query.EndDate != "" {
		end, err := time.Parse(time.RFC3339, query.EndDate)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, fieldError("end_date", "must be an RFC 3339 timestamp"))
			return
		}
		q = q.Where("created_at <= ?", end)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		writeDBError(c, err, "Orders not found")
		return
	}

	var orders []models.Order
	offset := (query.Page - 1) * query.PerPage
	if err := q.Preload("Lines").Order("created_at desc").
		Offset(offset).Limit(query.PerPage).Find(&orders).Error; err != nil {
		writeDBError(c, err, "Orders not found")
		return
	}

	meta := PageMeta{Page: query.Page, PerPage: query.PerPage, Total: total}
	c.JSON(http.StatusOK, successWithMetaResponse("Orders retrieved successfully", orders, meta))
}

func (h *OrderHandler) UpdateOrder(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid order ID"))
		return
	}

	var req UpdateOrderRequest
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

	updates := map[string]interface{}{}
	if req.Status != nil {
		newStatus := models.OrderStatus(*req.Status)
		if !models.ValidOrderStatus(newStatus) {
			c.JSON(http.StatusUnprocessableEntity, fieldError("status", "unknown order status"))
			return
		}
		if !order.Status.CanTransition(newStatus, order.ServiceType) {
			c.JSON(http.StatusBadRequest, errorResponse("Invalid order status transition"))
			return
		}
		updates["status"] = newStatus
	}
	if req.ArrivalTime != nil {
		updates["arrival_time"] = req.ArrivalTime
	}

	if len(updates) > 0 {
		if err := h.db.Model(&order).Updates(updates).Error; err != nil {
			writeDBError(c, err, "Order not found")
			return
		}
	}

	c.JSON(http.StatusOK, successResponse("Order updated successfully", order))
}

func (h *OrderHandler) CancelOrder(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid order ID"))
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

	// Conditional update so a concurrent delivery confirmation cannot race
	// the cancellation past a terminal state.
	res := h.db.Model(&models.Order{}).
		Where("id = ? AND status NOT IN ?", orderID,
			[]models.OrderStatus{models.OrderDelivered, models.OrderCancelled}).
		Update("status", models.OrderCancelled)
	if res.Error != nil {
		writeDBError(c, res.Error, "Order not found")
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusBadRequest, errorResponse("Order is already in a terminal state"))
		return
	}

	order.Status = models.OrderCancelled
	c.JSON(http.StatusOK, successResponse("Order cancelled successfully", order))
}
