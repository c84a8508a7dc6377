package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cantina-system/internal/database/models"
	"cantina-system/internal/middleware"
)

// errInvalidTransition is surfaced as a 400 by handlers; it marks state
// machine violations detected inside transactions.
var errInvalidTransition = errors.New("invalid state transition")

type LoyaltyHandler struct {
	db *gorm.DB
}

func NewLoyaltyHandler(db *gorm.DB) *LoyaltyHandler {
	return &LoyaltyHandler{db: db}
}

// creditLedgerForOrder records one completed order for a user: get-or-create
// the ledger row and add the counters in a single upsert statement, so
// concurrent orders for the same user never lose an update.
func creditLedgerForOrder(tx *gorm.DB, userID int64, amount string, points int32) error {
	ledger := models.LoyaltyLedger{
		UserId:        userID,
		TotalOrders:   1,
		TotalSpent:    amount,
		PointsEarned:  int64(points),
		AverageRating: "0",
	}
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"total_orders":  gorm.Expr("loyalty_ledgers.total_orders + 1"),
			"total_spent":   gorm.Expr("loyalty_ledgers.total_spent + ?", amount),
			"points_earned": gorm.Expr("loyalty_ledgers.points_earned + ?", points),
			"updated_at":    time.Now(),
		}),
	}).Create(&ledger).Error
}

// debitLedgerPoints records the currency value a validated payment settled
// with loyalty points. No-op for zero.
func debitLedgerPoints(tx *gorm.DB, userID int64, points int64) error {
	if points <= 0 {
		return nil
	}
	ledger := models.LoyaltyLedger{
		UserId:        userID,
		PointsUsed:    points,
		TotalSpent:    "0",
		AverageRating: "0",
	}
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"points_used": gorm.Expr("loyalty_ledgers.points_used + ?", points),
			"updated_at":  time.Now(),
		}),
	}).Create(&ledger).Error
}

// creditLedgerReferral bumps the referral counter and awarded points.
func creditLedgerReferral(tx *gorm.DB, userID int64, points int32) error {
	ledger := models.LoyaltyLedger{
		UserId:        userID,
		ReferralCount: 1,
		PointsEarned:  int64(points),
		TotalSpent:    "0",
		AverageRating: "0",
	}
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"referral_count": gorm.Expr("loyalty_ledgers.referral_count + 1"),
			"points_earned":  gorm.Expr("loyalty_ledgers.points_earned + ?", points),
			"updated_at":     time.Now(),
		}),
	}).Create(&ledger).Error
}

// refreshAverageRating overwrites the stored average with the mean over the
// user's order comments at this moment. Recomputed, never accumulated.
func refreshAverageRating(tx *gorm.DB, userID int64) error {
	var avg *float64
	err := tx.Model(&models.OrderComment{}).
		Select("AVG(order_comments.rating)").
		Joins("JOIN orders ON orders.id = order_comments.order_id").
		Where("orders.user_id = ?", userID).
		Scan(&avg).Error
	if err != nil {
		return err
	}

	rating := "0"
	if avg != nil {
		rating = strconv.FormatFloat(*avg, 'f', 2, 64)
	}

	ledger := models.LoyaltyLedger{
		UserId:        userID,
		TotalSpent:    "0",
		AverageRating: rating,
	}
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"average_rating": rating,
			"updated_at":     time.Now(),
		}),
	}).Create(&ledger).Error
}

func (h *LoyaltyHandler) GetMyLedger(c *gin.Context) {
	h.respondLedger(c, c.GetInt64(middleware.CtxUserID))
}

func (h *LoyaltyHandler) GetLedger(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid user ID"))
		return
	}
	h.respondLedger(c, userID)
}

func (h *LoyaltyHandler) respondLedger(c *gin.Context, userID int64) {
	var ledger models.LoyaltyLedger
	if err := h.db.Where("user_id = ?", userID).First(&ledger).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// No activity yet; an all-zero ledger is the honest answer.
			ledger = models.LoyaltyLedger{UserId: userID, TotalSpent: "0", AverageRating: "0"}
			c.JSON(http.StatusOK, successResponse("Ledger retrieved successfully", ledger))
			return
		}
		writeDBError(c, err, "Ledger not found")
		return
	}

	c.JSON(http.StatusOK, successResponse("Ledger retrieved successfully", ledger))
}

type statusCount struct {
	Status models.OrderStatus `json:"status"`
	Count  int64              `json:"count"`
}

// GlobalStatistics feeds the back-office dashboard.
func (h *LoyaltyHandler) GlobalStatistics(c *gin.Context) {
	var totalOrders int64
	if err := h.db.Model(&models.Order{}).Count(&totalOrders).Error; err != nil {
		writeDBError(c, err, "Statistics not found")
		return
	}

	var byStatus []statusCount
	if err := h.db.Model(&models.Order{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&byStatus).Error; err != nil {
		writeDBError(c, err, "Statistics not found")
		return
	}

	var revenue *string
	if err := h.db.Model(&models.LoyaltyLedger{}).
		Select("SUM(total_spent)").
		Scan(&revenue).Error; err != nil {
		writeDBError(c, err, "Statistics not found")
		return
	}
	totalRevenue := "0"
	if revenue != nil {
		totalRevenue = *revenue
	}

	var totalUsers int64
	if err := h.db.Model(&models.User{}).Count(&totalUsers).Error; err != nil {
		writeDBError(c, err, "Statistics not found")
		return
	}

	c.JSON(http.StatusOK, successResponse("Statistics retrieved successfully", gin.H{
		"total_orders":     totalOrders,
		"orders_by_status": byStatus,
		"total_revenue":    totalRevenue,
		"total_users":      totalUsers,
	}))
}
