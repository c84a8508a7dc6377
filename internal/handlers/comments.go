package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"cantina-system/internal/database/models"
	"cantina-system/internal/middleware"
)

type CommentHandler struct {
	db *gorm.DB
}

func NewCommentHandler(db *gorm.DB) *CommentHandler {
	return &CommentHandler{db: db}
}

type CreateCommentRequest struct {
	Rating int32  `json:"rating" binding:"required,min=1,max=5"`
	Body   string `json:"body" binding:"required"`
}

// CreateComment attaches feedback to an order and refreshes the owner's
// average rating in the same transaction.
func (h *CommentHandler) CreateComment(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid order ID"))
		return
	}

	var req CreateCommentRequest
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

	comment := models.OrderComment{
		OrderId: orderID,
		UserId:  c.GetInt64(middleware.CtxUserID),
		Rating:  req.Rating,
		Body:    req.Body,
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&comment).Error; err != nil {
			return err
		}
		return refreshAverageRating(tx, order.UserId)
	})
	if err != nil {
		writeDBError(c, err, "Order not found")
		return
	}

	c.JSON(http.StatusCreated, successResponse("Comment created successfully", comment))
}

func (h *CommentHandler) ListComments(c *gin.Context) {
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

	var comments []models.OrderComment
	if err := h.db.Where("order_id = ?", orderID).Order("created_at desc").Find(&comments).Error; err != nil {
		writeDBError(c, err, "Comments not found")
		return
	}

	c.JSON(http.StatusOK, successResponse("Comments retrieved successfully", comments))
}
