package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"cantina-system/internal/database/models"
)

type ReferralHandler struct {
	db *gorm.DB
}

func NewReferralHandler(db *gorm.DB) *ReferralHandler {
	return &ReferralHandler{db: db}
}

type CreateReferralRequest struct {
	ReferrerID int64 `json:"referrer_id" binding:"required"`
	ReferredID int64 `json:"referred_id" binding:"required"`
}

type AttributeRewardRequest struct {
	Points int32 `json:"points" binding:"required,min=1"`
}

func (h *ReferralHandler) CreateReferral(c *gin.Context) {
	var req CreateReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, validationResponse(err))
		return
	}

	if req.ReferrerID == req.ReferredID {
		c.JSON(http.StatusUnprocessableEntity, fieldError("referred_id", "cannot refer yourself"))
		return
	}

	referral := models.Referral{
		ReferrerId: req.ReferrerID,
		ReferredId: req.ReferredID,
	}

	// The composite unique index is the duplicate guard; an application
	// pre-check alone would race concurrent submissions.
	if err := h.db.Create(&referral).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, errorResponse("Referral already exists"))
			return
		}
		writeDBError(c, err, "Referral not found")
		return
	}

	c.JSON(http.StatusCreated, successResponse("Referral created successfully", referral))
}

func (h *ReferralHandler) ListReferrals(c *gin.Context) {
	query := h.db.Model(&models.Referral{})
	if referrer := c.Query("referrer_id"); referrer != "" {
		query = query.Where("referrer_id = ?", referrer)
	}

	var referrals []models.Referral
	if err := query.Order("created_at desc").Find(&referrals).Error; err != nil {
		writeDBError(c, err, "Referrals not found")
		return
	}

	c.JSON(http.StatusOK, successResponse("Referrals retrieved successfully", referrals))
}

// AttributeReward grants the referral reward exactly once: the conditional
// update on reward_granted makes a second call a no-op rejected with 400.
func (h *ReferralHandler) AttributeReward(c *gin.Context) {
	referralID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid referral ID"))
		return
	}

	var req AttributeRewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, validationResponse(err))
		return
	}

	var referral models.Referral
	if err := h.db.First(&referral, referralID).Error; err != nil {
		writeDBError(c, err, "Referral not found")
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Referral{}).
			Where("id = ? AND reward_granted = ?", referralID, false).
			Updates(map[string]interface{}{
				"reward_granted": true,
				"points_awarded": req.Points,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errInvalidTransition
		}
		return creditLedgerReferral(tx, referral.ReferrerId, req.Points)
	})
	if err != nil {
		if errors.Is(err, errInvalidTransition) {
			c.JSON(http.StatusBadRequest, errorResponse("Reward already granted"))
			return
		}
		writeDBError(c, err, "Referral not found")
		return
	}

	referral.RewardGranted = true
	referral.PointsAwarded = req.Points
	c.JSON(http.StatusOK, successResponse("Reward attributed successfully", referral))
}
