package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"cantina-system/internal/database/models"
)

type PromotionHandler struct {
	db *gorm.DB
}

func NewPromotionHandler(db *gorm.DB) *PromotionHandler {
	return &PromotionHandler{db: db}
}

type CreatePromotionRequest struct {
	Title       string    `json:"title" binding:"required,max=128"`
	Code        *string   `json:"code,omitempty"`
	Percentage  *string   `json:"percentage,omitempty"`
	FixedAmount *string   `json:"fixed_amount,omitempty"`
	StartsAt    time.Time `json:"starts_at" binding:"required"`
	EndsAt      time.Time `json:"ends_at" binding:"required"`
	UsageLimit  *int32    `json:"usage_limit,omitempty"`
}

type ValidateCodeRequest struct {
	Code string `json:"code" binding:"required"`
}

func (h *PromotionHandler) CreatePromotion(c *gin.Context) {
	var req CreatePromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, validationResponse(err))
		return
	}

	// Exactly one discount mode.
	if (req.Percentage == nil) == (req.FixedAmount == nil) {
		c.JSON(http.StatusUnprocessableEntity, fieldError("percentage", "exactly one of percentage or fixed_amount must be set"))
		return
	}
	if req.EndsAt.Before(req.StartsAt) {
		c.JSON(http.StatusUnprocessableEntity, fieldError("ends_at", "must not precede starts_at"))
		return
	}

	promo := models.Promotion{
		Title:      req.Title,
		Code:       req.Code,
		StartsAt:   req.StartsAt,
		EndsAt:     req.EndsAt,
		IsActive:   true,
		UsageLimit: req.UsageLimit,
	}

	if req.Percentage != nil {
		pct, err := decimal.NewFromString(*req.Percentage)
		if err != nil || pct.IsNegative() || pct.GreaterThan(decimal.NewFromInt(100)) {
			c.JSON(http.StatusUnprocessableEntity, fieldError("percentage", "must be between 0 and 100"))
			return
		}
		pctStr := pct.StringFixed(2)
		promo.Percentage = &pctStr
	}
	if req.FixedAmount != nil {
		fixed, err := parseMoney(*req.FixedAmount)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, fieldError("fixed_amount", "must be a non-negative amount"))
			return
		}
		fixedStr := fixed.StringFixed(2)
		promo.FixedAmount = &fixedStr
	}

	if err := h.db.Create(&promo).Error; err != nil {
		writeDBError(c, err, "Promotion not found")
		return
	}

	c.JSON(http.StatusCreated, successResponse("Promotion created successfully", promo))
}

func (h *PromotionHandler) ListPromotions(c *gin.Context) {
	query := h.db.Model(&models.Promotion{})
	if active := c.Query("is_active"); active != "" {
		query = query.Where("is_active = ?", active == "true")
	}

	var promos []models.Promotion
	if err := query.Order("starts_at desc").Find(&promos).Error; err != nil {
		writeDBError(c, err, "Promotions not found")
		return
	}

	c.JSON(http.StatusOK, successResponse("Promotions retrieved successfully", promos))
}

// ValidateCode is the read-only check: it never consumes a usage slot.
func (h *PromotionHandler) ValidateCode(c *gin.Context) {
	var req ValidateCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, validationResponse(err))
		return
	}

	var promo models.Promotion
	if err := h.db.Where("code = ?", req.Code).First(&promo).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, errorResponse("Promotion code not found"))
			return
		}
		writeDBError(c, err, "Promotion not found")
		return
	}

	if !promo.UsableAt(time.Now()) {
		c.JSON(http.StatusOK, successResponse("Promotion code is not usable", gin.H{
			"valid": false,
		}))
		return
	}

	c.JSON(http.StatusOK, successResponse("Promotion code is valid", gin.H{
		"valid": true,
		"data":  promo,
	}))
}

// ReserveCode consumes one usage slot with a single conditional update, so
// two concurrent checkouts can never both take the last slot.
func (h *PromotionHandler) ReserveCode(c *gin.Context) {
	var req ValidateCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, validationResponse(err))
		return
	}

	var promo models.Promotion
	if err := h.db.Where("code = ?", req.Code).First(&promo).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, errorResponse("Promotion code not found"))
			return
		}
		writeDBError(c, err, "Promotion not found")
		return
	}

	now := time.Now()
	res := h.db.Model(&models.Promotion{}).
		Where("code = ? AND is_active = ? AND starts_at <= ? AND ends_at >= ?", req.Code, true, now, now).
		Where("usage_limit IS NULL OR usage_count < usage_limit").
		Update("usage_count", gorm.Expr("usage_count + 1"))
	if res.Error != nil {
		writeDBError(c, res.Error, "Promotion not found")
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusConflict, errorResponse("Promotion code is no longer usable"))
		return
	}

	promo.UsageCount++
	c.JSON(http.StatusOK, successResponse("Promotion code reserved successfully", promo))
}

// applyDiscount returns the total after a promotion, floored at zero.
func applyDiscount(total decimal.Decimal, promo models.Promotion) decimal.Decimal {
	discounted := total
	if promo.Percentage != nil {
		pct, err := decimal.NewFromString(*promo.Percentage)
		if err == nil {
			discounted = total.Sub(total.Mul(pct).Div(decimal.NewFromInt(100)))
		}
	} else if promo.FixedAmount != nil {
		fixed, err := decimal.NewFromString(*promo.FixedAmount)
		if err == nil {
			discounted = total.Sub(fixed)
		}
	}
	if discounted.IsNegative() {
		return decimal.Zero
	}
	return discounted
}

type QuoteDiscountRequest struct {
	Code  string `json:"code" binding:"required"`
	Total string `json:"total" binding:"required"`
}

// QuoteDiscount prices a promotion against an order total without
// consuming a usage slot.
func (h *PromotionHandler) QuoteDiscount(c *gin.Context) {
	var req QuoteDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, validationResponse(err))
		return
	}

	total, err := parseMoney(req.Total)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, fieldError("total", "must be a non-negative amount"))
		return
	}

	var promo models.Promotion
	if err := h.db.Where("code = ?", req.Code).First(&promo).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, errorResponse("Promotion code not found"))
			return
		}
		writeDBError(c, err, "Promotion not found")
		return
	}

	if !promo.UsableAt(time.Now()) {
		c.JSON(http.StatusBadRequest, errorResponse("Promotion code is not usable"))
		return
	}

	discounted := applyDiscount(total, promo)
	c.JSON(http.StatusOK, successResponse("Discount quoted successfully", gin.H{
		"original_total":   total.StringFixed(2),
		"discounted_total": discounted.StringFixed(2),
		"discount":         total.Sub(discounted).StringFixed(2),
	}))
}
