package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"zhuoji-service/internal/middleware"
	"zhuoji-service/internal/service"
	"zhuoji-service/internal/service/ledger"
	"zhuoji-service/internal/settle"
	"zhuoji-service/internal/ws"
	appErr "zhuoji-service/pkg/errors"
	"zhuoji-service/pkg/logger"
	"zhuoji-service/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	services *service.Container
}

func RegisterRoutes(r *gin.Engine, services *service.Container) {
	handler := &Handler{services: services}
	wsHandler := ws.NewHandler(services.Ledger)

	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{"message": "pong"})
	})

	v1 := r.Group("/v1")
	{
		v1.GET("/rules", handler.GetRules)
		v1.POST("/settle/preview", handler.PreviewHand)

		sessions := v1.Group("/sessions")
		{
			sessions.POST("", handler.CreateSession)
			sessions.POST("/join", handler.JoinSession)
			sessions.GET("/:id", handler.GetSession)
			sessions.GET("/:id/hands", handler.ListHands)

			protected := sessions.Group("/:id")
			protected.Use(middleware.SessionAuthRequired())
			{
				protected.POST("/hands", handler.AppendHand)
				protected.POST("/close", handler.CloseSession)
			}
		}
	}

	r.GET("/ws/sessions/:id", wsHandler.HandleSessionWS)
}

type handBody struct {
	Facts       settle.HandFacts `json:"facts"`
	Multiplier  string           `json:"multiplier"`
	SubmittedBy string           `json:"submittedBy"`
}

func (b handBody) toInput() ledger.HandInput {
	return ledger.HandInput{
		Facts:       b.Facts,
		Multiplier:  b.Multiplier,
		SubmittedBy: b.SubmittedBy,
	}
}

type createSessionBody struct {
	Title   string          `json:"title"`
	Players []string        `json:"players" binding:"required,len=4"`
	Rules   *settle.Rules   `json:"rules"`
	Options *settle.Options `json:"options"`
}

type joinSessionBody struct {
	Code string `json:"code" binding:"required"`
}

func (h *Handler) GetRules(c *gin.Context) {
	response.Success(c, h.services.Ledger.DefaultRules())
}

func (h *Handler) PreviewHand(c *gin.Context) {
	var body handBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.services.Ledger.Preview(body.toInput())
	if err != nil {
		h.handleLedgerError(c, err)
		return
	}
	response.Success(c, result)
}

func (h *Handler) CreateSession(c *gin.Context) {
	var body createSessionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	session, err := h.services.Ledger.CreateSession(c.Request.Context(), ledger.CreateSessionParams{
		Title:   body.Title,
		Players: body.Players,
		Rules:   body.Rules,
		Options: body.Options,
	})
	if err != nil {
		h.handleLedgerError(c, err)
		return
	}
	response.Success(c, session)
}

func (h *Handler) JoinSession(c *gin.Context) {
	var body joinSessionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	session, err := h.services.Ledger.JoinSession(c.Request.Context(), body.Code)
	if err != nil {
		h.handleLedgerError(c, err)
		return
	}
	response.Success(c, session)
}

func (h *Handler) GetSession(c *gin.Context) {
	session, err := h.services.Ledger.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleLedgerError(c, err)
		return
	}
	response.Success(c, session)
}

func (h *Handler) ListHands(c *gin.Context) {
	page, err := parsePositiveIntQuery(c, "page", 1)
	if err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	size, err := parsePositiveIntQuery(c, "size", 20)
	if err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.services.Ledger.ListHands(c.Request.Context(), c.Param("id"), page, size)
	if err != nil {
		h.handleLedgerError(c, err)
		return
	}

	response.Page(c, result.Items, result.Total, page, size)
}

func (h *Handler) AppendHand(c *gin.Context) {
	var body handBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	hand, err := h.services.Ledger.AppendHand(c.Request.Context(), c.Param("id"), body.toInput())
	if err != nil {
		h.handleLedgerError(c, err)
		return
	}
	response.Success(c, hand)
}

func (h *Handler) CloseSession(c *gin.Context) {
	session, err := h.services.Ledger.CloseSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleLedgerError(c, err)
		return
	}
	response.Success(c, session)
}

func (h *Handler) handleLedgerError(c *gin.Context, err error) {
	switch {
	case settle.IsValidation(err):
		response.Error(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, appErr.ErrSessionNotFound):
		response.Error(c, http.StatusNotFound, err.Error())
	case errors.Is(err, appErr.ErrSessionClosed):
		response.Error(c, http.StatusConflict, err.Error())
	case errors.Is(err, appErr.ErrSessionBusy):
		response.Error(c, http.StatusTooManyRequests, err.Error())
	default:
		if errors.Is(err, appErr.ErrInvariantViolation) {
			logger.Log.Error("settlement defect", zap.String("path", c.FullPath()), zap.Error(err))
		}
		response.Error(c, http.StatusInternalServerError, err.Error())
	}
}

func parsePositiveIntQuery(c *gin.Context, key string, defaultVal int) (int, error) {
	val := c.Query(key)
	if val == "" {
		return defaultVal, nil
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return parsed, nil
}
