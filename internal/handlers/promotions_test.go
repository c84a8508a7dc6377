package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"cantina-system/internal/database/models"
)

func strPtr(s string) *string { return &s }

func int32Ptr(v int32) *int32 { return &v }

func seedPromotion(t *testing.T, db *gorm.DB, promo models.Promotion) models.Promotion {
	t.Helper()
	require.NoError(t, db.Create(&promo).Error)
	return promo
}

func TestCreatePromotionRejectsBothDiscountModes(t *testing.T) {
	r, db := newTestRouter(t)
	token := tokenFor(t, seedUser(t, db, "manager", models.RoleEmployee))

	w := doJSON(t, r, "POST", "/api/v1/promotions", token, gin.H{
		"title":        "Double trouble",
		"percentage":   "10",
		"fixed_amount": "500.00",
		"starts_at":    time.Now().Format(time.RFC3339),
		"ends_at":      time.Now().Add(24 * time.Hour).Format(time.RFC3339),
	})
	requireStatus(t, w, http.StatusUnprocessableEntity)
}

func TestCreatePromotionRequiresStaff(t *testing.T) {
	r, db := newTestRouter(t)
	token := tokenFor(t, seedUser(t, db, "alice", models.RoleStudent))

	w := doJSON(t, r, "POST", "/api/v1/promotions", token, gin.H{
		"title":      "Nope",
		"percentage": "10",
		"starts_at":  time.Now().Format(time.RFC3339),
		"ends_at":    time.Now().Add(24 * time.Hour).Format(time.RFC3339),
	})
	requireStatus(t, w, http.StatusForbidden)
}

func TestValidateCodeOutsideWindow(t *testing.T) {
	r, db := newTestRouter(t)
	token := tokenFor(t, seedUser(t, db, "alice", models.RoleStudent))

	seedPromotion(t, db, models.Promotion{
		Title:      "Expired promo",
		Code:       strPtr("OLDNEWS"),
		Percentage: strPtr("10.00"),
		StartsAt:   time.Now().Add(-48 * time.Hour),
		EndsAt:     time.Now().Add(-24 * time.Hour),
		IsActive:   true,
	})

	w := doJSON(t, r, "POST", "/api/v1/promotions/validate", token, gin.H{"code": "OLDNEWS"})
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, false, decodeData(t, w)["valid"])
}

func TestValidateCodeDoesNotConsumeUsage(t *testing.T) {
	r, db := newTestRouter(t)
	token := tokenFor(t, seedUser(t, db, "alice", models.RoleStudent))

	promo := seedPromotion(t, db, models.Promotion{
		Title:      "Lunch deal",
		Code:       strPtr("LUNCH10"),
		Percentage: strPtr("10.00"),
		StartsAt:   time.Now().Add(-time.Hour),
		EndsAt:     time.Now().Add(time.Hour),
		IsActive:   true,
		UsageLimit: int32Ptr(5),
	})

	for i := 0; i < 3; i++ {
		w := doJSON(t, r, "POST", "/api/v1/promotions/validate", token, gin.H{"code": "LUNCH10"})
		requireStatus(t, w, http.StatusOK)
		assert.Equal(t, true, decodeData(t, w)["valid"])
	}

	var reloaded models.Promotion
	require.NoError(t, db.First(&reloaded, promo.ID).Error)
	assert.Equal(t, int32(0), reloaded.UsageCount)
}

func TestReserveCodeExhaustsUsageLimit(t *testing.T) {
	r, db := newTestRouter(t)
	token := tokenFor(t, seedUser(t, db, "alice", models.RoleStudent))

	seedPromotion(t, db, models.Promotion{
		Title:      "Two only",
		Code:       strPtr("SCARCE"),
		Percentage: strPtr("25.00"),
		StartsAt:   time.Now().Add(-time.Hour),
		EndsAt:     time.Now().Add(time.Hour),
		IsActive:   true,
		UsageLimit: int32Ptr(2),
	})

	for i := 0; i < 2; i++ {
		w := doJSON(t, r, "POST", "/api/v1/promotions/reserve", token, gin.H{"code": "SCARCE"})
		requireStatus(t, w, http.StatusOK)
	}

	w := doJSON(t, r, "POST", "/api/v1/promotions/reserve", token, gin.H{"code": "SCARCE"})
	requireStatus(t, w, http.StatusConflict)
}

func TestQuoteDiscountFloorsAtZero(t *testing.T) {
	r, db := newTestRouter(t)
	token := tokenFor(t, seedUser(t, db, "alice", models.RoleStudent))

	seedPromotion(t, db, models.Promotion{
		Title:       "Big rebate",
		Code:        strPtr("BIGFIX"),
		FixedAmount: strPtr("5000.00"),
		StartsAt:    time.Now().Add(-time.Hour),
		EndsAt:      time.Now().Add(time.Hour),
		IsActive:    true,
	})

	w := doJSON(t, r, "POST", "/api/v1/promotions/quote", token, gin.H{
		"code":  "BIGFIX",
		"total": "1200.00",
	})
	requireStatus(t, w, http.StatusOK)
	data := decodeData(t, w)
	assert.Equal(t, "0.00", data["discounted_total"])
	assert.Equal(t, "1200.00", data["discount"])
}

func TestQuoteDiscountPercentage(t *testing.T) {
	r, db := newTestRouter(t)
	token := tokenFor(t, seedUser(t, db, "alice", models.RoleStudent))

	seedPromotion(t, db, models.Promotion{
		Title:      "Ten off",
		Code:       strPtr("TEN"),
		Percentage: strPtr("10.00"),
		StartsAt:   time.Now().Add(-time.Hour),
		EndsAt:     time.Now().Add(time.Hour),
		IsActive:   true,
	})

	w := doJSON(t, r, "POST", "/api/v1/promotions/quote", token, gin.H{
		"code":  "TEN",
		"total": "2000.00",
	})
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, "1800.00", decodeData(t, w)["discounted_total"])
}
