package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"cantina-system/internal/database/models"
	"cantina-system/internal/middleware"
	"cantina-system/internal/utils"
)

type AuthHandler struct {
	db       *gorm.DB
	tokenTTL time.Duration
}

func NewAuthHandler(db *gorm.DB, tokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{db: db, tokenTTL: tokenTTL}
}

type RegisterRequest struct {
	Username  string `json:"username" binding:"required,min=3,max=64"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	Firstname string `json:"firstname" binding:"required"`
	Lastname  string `json:"lastname" binding:"required"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, validationResponse(err))
		return
	}

	pwHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to hash password"))
		return
	}

	user := models.User{
		Username:  req.Username,
		Email:     req.Email,
		Password:  string(pwHash),
		Firstname: req.Firstname,
		Lastname:  req.Lastname,
		Role:      models.RoleStudent,
		IsActive:  true,
	}

	if err := h.db.Create(&user).Error; err != nil {
		writeDBError(c, err, "User not found")
		return
	}

	c.JSON(http.StatusCreated, successResponse("User registered successfully", user))
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, validationResponse(err))
		return
	}

	var user models.User
	if err := h.db.Where("username = ?", req.Username).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, errorResponse("Invalid credentials"))
		return
	}

	if !user.IsActive {
		c.JSON(http.StatusUnauthorized, errorResponse("Account disabled"))
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, errorResponse("Invalid credentials"))
		return
	}

	token, exp, err := utils.GenerateToken(user.ID, user.Username, user.Role, h.tokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to issue token"))
		return
	}

	now := time.Now()
	h.db.Model(&user).Update("last_login", &now)

	c.JSON(http.StatusOK, successResponse("Login successful", gin.H{
		"token":      token,
		"expires_at": exp,
		"user":       user,
	}))
}

// Me returns the authenticated account.
func (h *AuthHandler) Me(c *gin.Context) {
	userID := c.GetInt64(middleware.CtxUserID)

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		writeDBError(c, err, "User not found")
		return
	}

	c.JSON(http.StatusOK, successResponse("User retrieved successfully", user))
}
