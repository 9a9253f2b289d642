package api

import (
	"github.com/labstack/echo/v4"

	"LoserLab/internal/domain/models"
	"LoserLab/internal/usecase"
	xhttp "LoserLab/pkg/http"
	applogger "LoserLab/pkg/logger"
)

// ModelsHandler manages saved scoring models.
type ModelsHandler struct {
	uc *usecase.ModelsUseCase
	l  *applogger.Logger
}

func NewModelsHandler(l *applogger.Logger, uc *usecase.ModelsUseCase) *ModelsHandler {
	return &ModelsHandler{uc: uc, l: l}
}

func (h *ModelsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/models")
	g.GET("/defaults", h.Defaults)
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.DELETE("/:id", h.Delete)
}

func (h *ModelsHandler) Defaults(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.uc.Defaults())
}

func (h *ModelsHandler) List(c echo.Context) error {
	list, err := h.uc.List(c.Request().Context())
	if err != nil {
		h.l.Error("list models failed", applogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	if list == nil {
		list = []models.ScoringModel{}
	}
	return xhttp.ListResponse(c, list, int64(len(list)))
}

func (h *ModelsHandler) Create(c echo.Context) error {
	defer observe(c, "models.create")()

	req := &models.CreateModelRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	m, err := h.uc.Create(c.Request().Context(), *req)
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	h.l.Info("scoring model saved",
		applogger.String("model_id", m.ID),
		applogger.String("name", m.Name),
		applogger.String("mode", m.Formula.Mode),
	)
	return xhttp.CreatedResponse(c, m)
}

func (h *ModelsHandler) Get(c echo.Context) error {
	m, err := h.uc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, m)
}

func (h *ModelsHandler) Delete(c echo.Context) error {
	if err := h.uc.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.NoContentResponse(c)
}
