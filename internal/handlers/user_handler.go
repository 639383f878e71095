package handlers

import (
	"net/http"

	"portfolio_backend/internal/middleware"
	"portfolio_backend/internal/services"
	"portfolio_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	*BaseHandler
	userService *services.UserService
}

func NewUserHandler(base *BaseHandler, userService *services.UserService) *UserHandler {
	return &UserHandler{
		BaseHandler: base,
		userService: userService,
	}
}

func (h *UserHandler) RegisterRoutes(rg *gin.RouterGroup, authn *middleware.Authenticator) {
	users := rg.Group("/users")
	users.Use(authn.AuthMiddleware())
	{
		// Self-service
		users.PUT("/me", h.UpdateMe)
		users.PUT("/me/cv", h.UpdateMyCV)

		// Admin
		admin := users.Group("")
		admin.Use(middleware.AdminOnly())
		admin.GET("", h.ListUsers)
		admin.POST("", h.CreateUser)
		admin.GET("/:id", h.GetUser)
		admin.PUT("/:id", h.UpdateUser)
		admin.DELETE("/:id", h.DeleteUser)
	}
}

// ListUsers godoc
// @Summary Список пользователей
// @Tags users
// @Security BearerAuth
// @Param role query string false "user | admin"
// @Param status query string false "pending | active | suspended | banned"
// @Param search query string false "Поиск по имени и email"
// @Param offset query int false "Смещение"
// @Param limit query int false "Размер страницы"
// @Success 200 {object} Response{data=[]dto.UserResponse}
// @Router /api/v1/users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	var query dto.UserListQuery
	if !h.BindAndValidate_Query(c, &query) {
		return
	}

	users, total, err := h.userService.List(h.GetDB(c), query)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	respondList(c, users, total)
}

func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.userService.GetByID(h.GetDB(c), c.Param("id"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	respond(c, http.StatusOK, user)
}

func (h *UserHandler) CreateUser(c *gin.Context) {
	var req dto.CreateUserRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	user, err := h.userService.Create(h.GetDB(c), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	respond(c, http.StatusCreated, user)
}

// UpdateUser godoc
// @Summary Обновить пользователя (admin)
// @Description Частичное обновление. Администратор не может понизить или заблокировать себя.
// @Tags users
// @Security BearerAuth
// @Param id path string true "ID пользователя"
// @Param request body dto.UpdateUserRequest true "Изменяемые поля"
// @Success 200 {object} Response{data=dto.UserResponse}
// @Failure 403 {object} apperrors.AppError
// @Router /api/v1/users/{id} [put]
func (h *UserHandler) UpdateUser(c *gin.Context) {
	actorID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateUserRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	user, err := h.userService.Update(h.GetDB(c), actorID, c.Param("id"), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	respond(c, http.StatusOK, user)
}

func (h *UserHandler) DeleteUser(c *gin.Context) {
	actorID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	if err := h.userService.Delete(h.GetDB(c), actorID, c.Param("id")); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	respondDeleted(c)
}

func (h *UserHandler) UpdateMe(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateProfileRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	user, err := h.userService.UpdateProfile(h.GetDB(c), userID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	respond(c, http.StatusOK, user)
}

// UpdateMyCV godoc
// @Summary Заменить CV
// @Description Сохраняет путь к загруженному CV; прежний файл удаляется
// @Tags users
// @Security BearerAuth
// @Param request body dto.UpdateCVRequest true "Путь из /uploads/cv"
// @Success 200 {object} Response{data=dto.UserResponse}
// @Router /api/v1/users/me/cv [put]
func (h *UserHandler) UpdateMyCV(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateCVRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	user, err := h.userService.UpdateCV(c.Request.Context(), h.GetDB(c), userID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	respond(c, http.StatusOK, user)
}
