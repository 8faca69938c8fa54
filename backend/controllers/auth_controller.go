package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"rainforest/backend/config"
	"rainforest/backend/models"
	"rainforest/backend/utils"
)

type AuthController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewAuthController(db *gorm.DB, cfg *config.Config) *AuthController {
	return &AuthController{DB: db, Cfg: cfg}
}

type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"omitempty,oneof=admin teacher student"`
}

// [+] Register godoc
// @Summary Register a new user
// @Description Creates a new user account and returns a JWT token
// @Tags auth
// @Accept json
// @Produce json
// @Param user body RegisterInput true "User registration data"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Router /auth/register [post]
func (ac *AuthController) Register(c *fiber.Ctx) error {
	var input RegisterInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if err := utils.ValidateStruct(&input); err != nil {
		return utils.FromError(c, err)
	}
	if input.Role == "" {
		input.Role = models.RoleStudent
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return utils.InternalServerError(c, "Could not hash password")
	}

	user := models.User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: string(hashedPassword),
		Role:         input.Role,
		IsActive:     true,
	}
	if err := ac.DB.Create(&user).Error; err != nil {
		return utils.BadRequest(c, "Could not create user: username or email already taken")
	}

	token, err := utils.GenerateJWTToken(user.ID, ac.Cfg)
	if err != nil {
		return utils.InternalServerError(c, "Could not generate token")
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user": fiber.Map{
			"id":       user.ID,
			"username": user.Username,
			"email":    user.Email,
			"role":     user.Role,
		},
	})
}

// [+] Login godoc
// @Summary User login
// @Description Authenticate user and return JWT token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body map[string]interface{} true "Login credentials"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} utils.ErrorResponse
// @Router /auth/login [post]
func (ac *AuthController) Login(c *fiber.Ctx) error {
	type LoginInput struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	var input LoginInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	var user models.User
	if err := ac.DB.Where("username = ?", input.Username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Unauthorized(c, "Invalid credentials")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return utils.Unauthorized(c, "Invalid credentials")
	}

	if !user.IsActive {
		return utils.Forbidden(c, "Account is inactive")
	}

	token, err := utils.GenerateJWTToken(user.ID, ac.Cfg)
	if err != nil {
		return utils.InternalServerError(c, "Could not generate token")
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user": fiber.Map{
			"id":       user.ID,
			"username": user.Username,
			"email":    user.Email,
			"role":     user.Role,
		},
	})
}
