package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"cantina-system/internal/database/models"
	"cantina-system/internal/utils"
)

const paymentRefAttempts = 3

type PaymentHandler struct {
	db *gorm.DB
}

func NewPaymentHandler(db *gorm.DB) *PaymentHandler {
	return &PaymentHandler{db: db}
}

type CreatePaymentRequest struct {
	OrderID       int64   `json:"order_id" binding:"required"`
	Amount        string  `json:"amount" binding:"required"`
	Method        string  `json:"method" binding:"required"`
	TransactionID *string `json:"transaction_id,omitempty"`
	PointsAmount  *string `json:"points_amount,omitempty"`
	CashAmount    *string `json:"cash_amount,omitempty"`
}

type UpdatePaymentRequest struct {
	Status        *string `json:"status,omitempty"`
	TransactionID *string `json:"transaction_id,omitempty"`
}

func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, validationResponse(err))
		return
	}

	method := models.PaymentMethod(req.Method)
	if !models.ValidPaymentMethod(method) {
		c.JSON(http.StatusUnprocessableEntity, fieldError("method", "must be cash, card, loyalty_points or mixed"))
		return
	}

	amount, err := parseMoney(req.Amount)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, fieldError("amount", "must be a non-negative amount"))
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

	orderTotal, err := decimal.NewFromString(order.TotalAmount)
	if err != nil {
		writeDBError(c, err, "Order not found")
		return
	}
	if amount.GreaterThan(orderTotal) {
		c.JSON(http.StatusUnprocessableEntity, fieldError("amount", "exceeds the order total"))
		return
	}

	payment := models.Payment{
		OrderId: req.OrderID,
		Amount:  amount.StringFixed(2),
		Method:  method,
		Status:  models.PaymentPending,
	}

	if method == models.MethodMixed {
		if req.PointsAmount == nil || req.CashAmount == nil {
			c.JSON(http.StatusUnprocessableEntity, fieldError("points_amount", "mixed payments require points_amount and cash_amount"))
			return
		}
		points, perr := parseMoney(*req.PointsAmount)
		cash, cerr := parseMoney(*req.CashAmount)
		if perr != nil || cerr != nil || !points.Add(cash).Equal(amount) {
			c.JSON(http.StatusUnprocessableEntity, fieldError("points_amount", "points and cash split must sum to the amount"))
			return
		}
		pointsStr := points.StringFixed(2)
		cashStr := cash.StringFixed(2)
		payment.PointsAmount = &pointsStr
		payment.CashAmount = &cashStr
	}

	if req.TransactionID != nil {
		payment.TransactionId = req.TransactionID
	} else if method == models.MethodCard {
		txnID := uuid.NewString()
		payment.TransactionId = &txnID
	}

	// The order_id unique index rejects a second payment for the same
	// order; the reference index triggers a regeneration retry.
	for attempt := 0; attempt < paymentRefAttempts; attempt++ {
		payment.Reference = utils.NewPaymentReference(time.Now())
		err = h.db.Create(&payment).Error
		if err == nil || !errors.Is(err, gorm.ErrDuplicatedKey) {
			break
		}
		var existing models.Payment
		if h.db.Where("order_id = ?", req.OrderID).First(&existing).Error == nil {
			c.JSON(http.StatusConflict, errorResponse("Order already has a payment"))
			return
		}
		payment.ID = 0
	}
	if err != nil {
		writeDBError(c, err, "Order not found")
		return
	}

	c.JSON(http.StatusCreated, successResponse("Payment created successfully", payment))
}

// pointsSpent returns the whole-unit currency value a payment settles with
// loyalty points: the full amount for points payments, the points share for
// mixed ones, zero otherwise.
func pointsSpent(p models.Payment) int64 {
	var amountStr string
	switch p.Method {
	case models.MethodPoints:
		amountStr = p.Amount
	case models.MethodMixed:
		if p.PointsAmount == nil {
			return 0
		}
		amountStr = *p.PointsAmount
	default:
		return 0
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return 0
	}
	return amount.IntPart()
}

// ValidatePayment advances a pending payment to validated and credits the
// owner's loyalty ledger in the same transaction.
func (h *PaymentHandler) ValidatePayment(c *gin.Context) {
	paymentID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid payment ID"))
		return
	}

	var payment models.Payment
	if err := h.db.First(&payment, paymentID).Error; err != nil {
		writeDBError(c, err, "Payment not found")
		return
	}

	var order models.Order
	if err := h.db.First(&order, payment.OrderId).Error; err != nil {
		writeDBError(c, err, "Order not found")
		return
	}
	if !canAccessOrder(c, &order) {
		forbidOrderAccess(c)
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Payment{}).
			Where("id = ? AND status = ?", paymentID, models.PaymentPending).
			Update("status", models.PaymentValidated)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errInvalidTransition
		}

		if err := creditLedgerForOrder(tx, order.UserId, order.TotalAmount, order.PointsEarned); err != nil {
			return err
		}
		return debitLedgerPoints(tx, order.UserId, pointsSpent(payment))
	})
	if err != nil {
		if errors.Is(err, errInvalidTransition) {
			c.JSON(http.StatusBadRequest, errorResponse("Payment is not pending"))
			return
		}
		writeDBError(c, err, "Payment not found")
		return
	}

	payment.Status = models.PaymentValidated
	c.JSON(http.StatusOK, successResponse("Payment validated successfully", payment))
}

func (h *PaymentHandler) UpdatePayment(c *gin.Context) {
	paymentID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid payment ID"))
		return
	}

	var req UpdatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, validationResponse(err))
		return
	}

	var payment models.Payment
	if err := h.db.First(&payment, paymentID).Error; err != nil {
		writeDBError(c, err, "Payment not found")
		return
	}

	var order models.Order
	if err := h.db.First(&order, payment.OrderId).Error; err != nil {
		writeDBError(c, err, "Order not found")
		return
	}
	if !canAccessOrder(c, &order) {
		forbidOrderAccess(c)
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{}
		if req.TransactionID != nil {
			updates["transaction_id"] = *req.TransactionID
		}

		if req.Status == nil {
			if len(updates) == 0 {
				return nil
			}
			return tx.Model(&payment).Updates(updates).Error
		}

		newStatus := models.PaymentStatus(*req.Status)
		if !payment.Status.CanTransition(newStatus) {
			return errInvalidTransition
		}
		updates["status"] = newStatus

		// Guard the write on the status the check ran against: a
		// concurrent update that already moved the payment makes this a
		// no-op instead of a double transition (and a double credit).
		res := tx.Model(&models.Payment{}).
			Where("id = ? AND status = ?", payment.ID, payment.Status).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errInvalidTransition
		}

		if newStatus == models.PaymentValidated {
			if err := creditLedgerForOrder(tx, order.UserId, order.TotalAmount, order.PointsEarned); err != nil {
				return err
			}
			return debitLedgerPoints(tx, order.UserId, pointsSpent(payment))
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errInvalidTransition) {
			c.JSON(http.StatusBadRequest, errorResponse("Invalid payment status transition"))
			return
		}
		writeDBError(c, err, "Payment not found")
		return
	}

	if req.Status != nil {
		payment.Status = models.PaymentStatus(*req.Status)
	}
	if req.TransactionID != nil {
		payment.TransactionId = req.TransactionID
	}
	c.JSON(http.StatusOK, successResponse("Payment updated successfully", payment))
}

func (h *PaymentHandler) GetPayment(c *gin.Context) {
	paymentID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid payment ID"))
		return
	}

	var payment models.Payment
	if err := h.db.First(&payment, paymentID).Error; err != nil {
		writeDBError(c, err, "Payment not found")
		return
	}

	var order models.Order
	if err := h.db.First(&order, payment.OrderId).Error; err != nil {
		writeDBError(c, err, "Order not found")
		return
	}
	if !canAccessOrder(c, &order) {
		forbidOrderAccess(c)
		return
	}

	c.JSON(http.StatusOK, successResponse("Payment retrieved successfully", payment))
}
