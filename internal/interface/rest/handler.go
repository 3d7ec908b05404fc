package rest

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/donatale/donatale"
	"github.com/donatale/donatale/internal/domain"
	"github.com/donatale/donatale/internal/interface/rest/presenter"
	"github.com/donatale/donatale/internal/usecase"
)

const reservedMessage = "Donation processed successfully"

type Handler struct {
	reservation *usecase.ReservationUsecase
	items       *usecase.ItemUsecase
	logger      zerolog.Logger
}

func NewHandler(
	reservation *usecase.ReservationUsecase,
	items *usecase.ItemUsecase,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		reservation: reservation,
		items:       items,
		logger:      logger,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/donate", h.handleDonate)
	e.GET("/api/items", h.handleItems)
	e.GET("/healthz", h.handleHealth)
}

func (h *Handler) handleDonate(c echo.Context) error {
	ctx := c.Request().Context()

	var req donatale.ReservationRequest
	err := c.Bind(&req)
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid request body")
	}

	result, err := h.reservation.Reserve(ctx, req)
	if err != nil {
		return presenter.Error(c, h.logger, err)
	}

	return presenter.OK(c, donatale.ReservationResponse{
		Message:         reservedMessage,
		DonationEventID: result.EventID,
	})
}

func (h *Handler) handleItems(c echo.Context) error {
	ctx := c.Request().Context()

	items, err := h.items.List(ctx)
	if err != nil {
		return presenter.Error(c, h.logger, err)
	}

	views := make([]donatale.DonationItemView, 0, len(items))
	for _, item := range items {
		views = append(views, toView(item))
	}
	return presenter.OK(c, donatale.ItemListResponse{Items: views})
}

func (h *Handler) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

func toView(item domain.DonationItem) donatale.DonationItemView {
	return donatale.DonationItemView{
		ID:          item.ID,
		Title:       item.Title,
		PersonName:  item.PersonName,
		Description: item.Description,
		Image:       donatale.Image{URL: item.ImageURL},
		Donated:     item.Claimed(),
	}
}
