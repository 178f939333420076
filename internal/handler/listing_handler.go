package handler

import (
	"net/http"

	"github.com/Eursukkul/food-rescue/listing-service/internal/dto"
	"github.com/Eursukkul/food-rescue/listing-service/internal/middleware"
	"github.com/Eursukkul/food-rescue/listing-service/internal/models"
	"github.com/Eursukkul/food-rescue/listing-service/internal/service"
	"github.com/labstack/echo/v4"
)

type ListingHandler struct {
	svc   service.ListingService
	audit service.AuditService
}

func NewListingHandler(svc service.ListingService, audit service.AuditService) *ListingHandler {
	return &ListingHandler{svc: svc, audit: audit}
}

func (h *ListingHandler) RegisterRoutes(g *echo.Group, requireAuth echo.MiddlewareFunc) {
	g.GET("/listings", h.ListAvailable)
	g.GET("/listings/:id", h.GetListing)
	g.GET("/listings/:id/events", h.ListEvents)
	g.GET("/hostels/:id/listings", h.ListByHostel)

	g.POST("/listings", h.CreateListing, requireAuth)
	g.POST("/listings/:id/reserve", h.Reserve, requireAuth)
	g.POST("/listings/:id/cancel", h.Cancel, requireAuth)
	g.POST("/listings/:id/collect", h.MarkCollected, requireAuth)
}

func (h *ListingHandler) CreateListing(c echo.Context) error {
	// The token's role is enough to turn away volunteers before the body is read.
	if role := middleware.Role(c); role != "" && role != models.RoleHostel {
		return toHTTPError(service.ErrInvalidHostel)
	}

	var req dto.CreateListingRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	listing, err := h.svc.CreateListing(c.Request().Context(), middleware.AccountID(c), service.CreateListingInput{
		FoodType:       models.FoodType(req.FoodType),
		Quantity:       req.Quantity,
		Name:           req.Name,
		Description:    req.Description,
		Location:       req.Location,
		AvailableUntil: req.AvailableUntil,
		ImageURL:       req.ImageURL,
	})
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusCreated, dto.ToListingResponse(listing))
}

func (h *ListingHandler) GetListing(c echo.Context) error {
	listing, err := h.svc.GetListing(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.ToListingResponse(listing))
}

func (h *ListingHandler) ListAvailable(c echo.Context) error {
	listings, err := h.svc.ListAvailable(c.Request().Context())
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.ToListingResponses(listings))
}

func (h *ListingHandler) ListByHostel(c echo.Context) error {
	listings, err := h.svc.ListByHostel(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.ToListingResponses(listings))
}

func (h *ListingHandler) ListEvents(c echo.Context) error {
	evs, err := h.audit.ListingEvents(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}

	resp := make([]dto.ListingEventResponse, len(evs))
	for i := range evs {
		resp[i] = dto.ToListingEventResponse(&evs[i])
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *ListingHandler) Reserve(c echo.Context) error {
	listing, err := h.svc.Reserve(c.Request().Context(), c.Param("id"), middleware.AccountID(c))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.ToListingResponse(listing))
}

func (h *ListingHandler) Cancel(c echo.Context) error {
	listing, err := h.svc.Cancel(c.Request().Context(), c.Param("id"), middleware.AccountID(c))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.ToListingResponse(listing))
}

func (h *ListingHandler) MarkCollected(c echo.Context) error {
	listing, err := h.svc.MarkCollected(c.Request().Context(), c.Param("id"), middleware.AccountID(c))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.ToListingResponse(listing))
}
