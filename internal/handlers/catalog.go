package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"cantina-system/internal/database/models"
)

const (
	catalogItemsCacheKey      = "catalog:items"
	catalogCategoriesCacheKey = "catalog:categories"
	catalogCacheTTL           = 30 * time.Minute
)

type CatalogHandler struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewCatalogHandler(db *gorm.DB, redisClient *redis.Client) *CatalogHandler {
	return &CatalogHandler{db: db, redis: redisClient}
}

func (h *CatalogHandler) invalidateCatalogCaches(ctx context.Context) {
	if h.redis == nil {
		return
	}
	if err := h.redis.Del(ctx, catalogItemsCacheKey, catalogCategoriesCacheKey).Err(); err != nil {
		logrus.WithError(err).Warn("failed to invalidate catalog cache")
	}
}

type CreateCategoryRequest struct {
	CategoryName string  `json:"category_name" binding:"required,max=128"`
	Description  *string `json:"description,omitempty"`
	ImageUrl     *string `json:"image_url,omitempty"`
}

type CreateMenuItemRequest struct {
	ItemName    string  `json:"item_name" binding:"required,max=128"`
	Description *string `json:"description,omitempty"`
	UnitPrice   string  `json:"unit_price" binding:"required"`
	CategoryId  *int32  `json:"category_id,omitempty"`
	ImageUrl    *string `json:"image_url,omitempty"`
	IsAvailable *bool   `json:"is_available,omitempty"`
}

type UpdateMenuItemRequest struct {
	ItemName    *string `json:"item_name,omitempty"`
	Description *string `json:"description,omitempty"`
	UnitPrice   *string `json:"unit_price,omitempty"`
	CategoryId  *int32  `json:"category_id,omitempty"`
	ImageUrl    *string `json:"image_url,omitempty"`
	IsAvailable *bool   `json:"is_available,omitempty"`
}

func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, validationResponse(err))
		return
	}

	category := models.Category{
		CategoryName: req.CategoryName,
		Description:  req.Description,
		ImageUrl:     req.ImageUrl,
		IsActive:     true,
	}

	if err := h.db.Create(&category).Error; err != nil {
		writeDBError(c, err, "Category not found")
		return
	}

	h.invalidateCatalogCaches(c.Request.Context())
	c.JSON(http.StatusCreated, successResponse("Category created successfully", category))
}

func (h *CatalogHandler) ListCategories(c *gin.Context) {
	ctx := c.Request.Context()

	if h.redis != nil {
		if cached, err := h.redis.Get(ctx, catalogCategoriesCacheKey).Result(); err == nil {
			var categories []models.Category
			if json.Unmarshal([]byte(cached), &categories) == nil {
				c.JSON(http.StatusOK, successResponse("Categories retrieved successfully", categories))
				return
			}
		}
	}

	var categories []models.Category
	if err := h.db.Where("is_active = ?", true).Order("category_name").Find(&categories).Error; err != nil {
		writeDBError(c, err, "Categories not found")
		return
	}

	if h.redis != nil {
		if payload, err := json.Marshal(categories); err == nil {
			h.redis.Set(ctx, catalogCategoriesCacheKey, payload, catalogCacheTTL)
		}
	}

	c.JSON(http.StatusOK, successResponse("Categories retrieved successfully", categories))
}

func (h *CatalogHandler) CreateMenuItem(c *gin.Context) {
	var req CreateMenuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, validationResponse(err))
		return
	}

	price, err := decimal.NewFromString(req.UnitPrice)
	if err != nil || price.IsNegative() {
		c.JSON(http.StatusUnprocessableEntity, fieldError("unit_price", "must be a non-negative amount"))
		return
	}

	item := models.MenuItem{
		ItemName:    req.ItemName,
		Description: req.Description,
		UnitPrice:   price.StringFixed(2),
		CategoryId:  req.CategoryId,
		ImageUrl:    req.ImageUrl,
		IsAvailable: true,
	}
	if req.IsAvailable != nil {
		item.IsAvailable = *req.IsAvailable
	}

	if err := h.db.Create(&item).Error; err != nil {
		writeDBError(c, err, "Menu item not found")
		return
	}

	h.invalidateCatalogCaches(c.Request.Context())
	c.JSON(http.StatusCreated, successResponse("Menu item created successfully", item))
}

func (h *CatalogHandler) GetMenuItem(c *gin.Context) {
	itemID, err := strconv.ParseInt(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid menu item ID"))
		return
	}

	var item models.MenuItem
	if err := h.db.Preload("Category").First(&item, int32(itemID)).Error; err != nil {
		writeDBError(c, err, "Menu item not found")
		return
	}

	c.JSON(http.StatusOK, successResponse("Menu item retrieved successfully", item))
}

func (h *CatalogHandler) ListMenuItems(c *gin.Context) {
	ctx := c.Request.Context()

	if h.redis != nil && len(c.Request.URL.Query()) == 0 {
		if cached, err := h.redis.Get(ctx, catalogItemsCacheKey).Result(); err == nil {
			var items []models.MenuItem
			if json.Unmarshal([]byte(cached), &items) == nil {
				c.JSON(http.StatusOK, successResponse("Menu items retrieved successfully", items))
				return
			}
		}
	}

	query := h.db.Model(&models.MenuItem{}).Preload("Category")

	if categoryID := c.Query("category_id"); categoryID != "" {
		query = query.Where("category_id = ?", categoryID)
	}
	if available := c.Query("available"); available != "" {
		if isAvailable, err := strconv.ParseBool(available); err == nil {
			query = query.Where("is_available = ?", isAvailable)
		}
	}

	var items []models.MenuItem
	if err := query.Order("item_name").Find(&items).Error; err != nil {
		writeDBError(c, err, "Menu items not found")
		return
	}

	if h.redis != nil && len(c.Request.URL.Query()) == 0 {
		if payload, err := json.Marshal(items); err == nil {
			h.redis.Set(ctx, catalogItemsCacheKey, payload, catalogCacheTTL)
		}
	}

	c.JSON(http.StatusOK, successResponse("Menu items retrieved successfully", items))
}

func (h *CatalogHandler) UpdateMenuItem(c *gin.Context) {
	itemID, err := strconv.ParseInt(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid menu item ID"))
		return
	}

	var req UpdateMenuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, validationResponse(err))
		return
	}

	var item models.MenuItem
	if err := h.db.First(&item, int32(itemID)).Error; err != nil {
		writeDBError(c, err, "Menu item not found")
		return
	}

	updates := map[string]interface{}{}
	if req.ItemName != nil {
		updates["item_name"] = *req.ItemName
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.UnitPrice != nil {
		price, err := decimal.NewFromString(*req.UnitPrice)
		if err != nil || price.IsNegative() {
			c.JSON(http.StatusUnprocessableEntity, fieldError("unit_price", "must be a non-negative amount"))
			return
		}
		updates["unit_price"] = price.StringFixed(2)
	}
	if req.CategoryId != nil {
		updates["category_id"] = *req.CategoryId
	}
	if req.ImageUrl != nil {
		updates["image_url"] = *req.ImageUrl
	}
	if req.IsAvailable != nil {
		updates["is_available"] = *req.IsAvailable
	}

	if len(updates) > 0 {
		if err := h.db.Model(&item).Updates(updates).Error; err != nil {
			writeDBError(c, err, "Menu item not found")
			return
		}
	}

	h.invalidateCatalogCaches(c.Request.Context())
	c.JSON(http.StatusOK, successResponse("Menu item updated successfully", item))
}

func (h *CatalogHandler) DeleteMenuItem(c *gin.Context) {
	itemID, err := strconv.ParseInt(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid menu item ID"))
		return
	}

	res := h.db.Delete(&models.MenuItem{}, int32(itemID))
	if res.Error != nil {
		writeDBError(c, res.Error, "Menu item not found")
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, errorResponse("Menu item not found"))
		return
	}

	h.invalidateCatalogCaches(c.Request.Context())
	c.JSON(http.StatusOK, successResponse("Menu item deleted successfully", nil))
}
