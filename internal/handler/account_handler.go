package handler

import (
	"net/http"

	"github.com/Eursukkul/food-rescue/listing-service/internal/dto"
	"github.com/Eursukkul/food-rescue/listing-service/internal/middleware"
	"github.com/Eursukkul/food-rescue/listing-service/internal/models"
	"github.com/Eursukkul/food-rescue/listing-service/internal/service"
	"github.com/labstack/echo/v4"
)

type TokenIssuer interface {
	Issue(account *models.Account) (string, error)
}

type AccountHandler struct {
	svc    service.AccountService
	tokens TokenIssuer
}

func NewAccountHandler(svc service.AccountService, tokens TokenIssuer) *AccountHandler {
	return &AccountHandler{svc: svc, tokens: tokens}
}

func (h *AccountHandler) RegisterRoutes(g *echo.Group, requireAuth echo.MiddlewareFunc) {
	g.POST("/auth/register", h.Register)
	g.POST("/auth/login", h.Login)
	g.DELETE("/accounts/:id", h.DeleteAccount, requireAuth)
}

func (h *AccountHandler) Register(c echo.Context) error {
	var req dto.RegisterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	account, err := h.svc.Register(c.Request().Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     models.Role(req.Role),
		Location: req.Location,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return h.respondWithToken(c, http.StatusCreated, account)
}

func (h *AccountHandler) Login(c echo.Context) error {
	var req dto.LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	account, err := h.svc.Authenticate(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return toHTTPError(err)
	}
	return h.respondWithToken(c, http.StatusOK, account)
}

func (h *AccountHandler) DeleteAccount(c echo.Context) error {
	id := c.Param("id")
	if id != middleware.AccountID(c) {
		return echo.NewHTTPError(http.StatusForbidden, dto.ErrorResponse{
			Message: "accounts can only delete themselves",
			Code:    service.ErrNotOwner.Code,
		})
	}

	var req dto.DeleteAccountRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.svc.DeleteAccount(c.Request().Context(), id, req.Password); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "account deleted"})
}

func (h *AccountHandler) respondWithToken(c echo.Context, status int, account *models.Account) error {
	token, err := h.tokens.Issue(account)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(status, dto.AuthResponse{Token: token, Account: dto.ToAccountResponse(account)})
}
