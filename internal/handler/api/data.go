package api

import (
	"strings"

	"github.com/labstack/echo/v4"

	"LoserLab/internal/usecase"
	xhttp "LoserLab/pkg/http"
	applogger "LoserLab/pkg/logger"
	"LoserLab/pkg/util"
)

// DataHandler exposes the universe and metadata backing the backtests.
type DataHandler struct {
	uc *usecase.DataUseCase
	l  *applogger.Logger
}

func NewDataHandler(l *applogger.Logger, uc *usecase.DataUseCase) *DataHandler {
	return &DataHandler{uc: uc, l: l}
}

func (h *DataHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/data")
	g.GET("/universe", h.Universe)
	g.GET("/tickers", h.Tickers)
	g.GET("/metadata/:ticker", h.Metadata)
	g.GET("/industries", h.Industries)
}

func (h *DataHandler) Universe(c echo.Context) error {
	info, err := h.uc.Universe(c.Request().Context())
	if err != nil {
		h.l.Error("load universe failed", applogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, info)
}

// Tickers lists the members eligible on ?date=YYYY-MM-DD.
func (h *DataHandler) Tickers(c echo.Context) error {
	date, ok := util.ParseDate(c.QueryParam("date"))
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("date must be YYYY-MM-DD").WithField("date"))
	}
	list, err := h.uc.TickersOn(c.Request().Context(), date)
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.ListResponse(c, list, int64(len(list)))
}

func (h *DataHandler) Metadata(c echo.Context) error {
	info, err := h.uc.Metadata(strings.ToUpper(c.Param("ticker")))
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, info)
}

func (h *DataHandler) Industries(c echo.Context) error {
	list := h.uc.Industries()
	return xhttp.ListResponse(c, list, int64(len(list)))
}
