package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/geekfeedjapan/twilio-flex-conversations-adapters/internal/inbound"
	"github.com/geekfeedjapan/twilio-flex-conversations-adapters/internal/line"
)

const (
	// LineIncomingPath receives LINE webhook deliveries.
	LineIncomingPath = "/api/line/incoming"
	lineBodyLimit    = "1M"
)

// BatchHandler processes one signed webhook body.
type BatchHandler interface {
	HandleBatch(ctx context.Context, signature string, rawBody []byte) (inbound.BatchResult, error)
}

type LineWebhookHandler struct {
	router BatchHandler
	logger *slog.Logger
}

type errorResponse struct {
	Error string `json:"error"`
}

type successResponse struct {
	Success bool `json:"success"`
}

func NewLineWebhookHandler(log *slog.Logger, router BatchHandler) *LineWebhookHandler {
	if log == nil {
		log = slog.Default()
	}
	return &LineWebhookHandler{
		router: router,
		logger: log.With(slog.String("handler", "line_webhook")),
	}
}

func (h *LineWebhookHandler) Register(e *echo.Echo) {
	e.POST(LineIncomingPath, h.Incoming, middleware.BodyLimit(lineBodyLimit))
}

// Incoming verifies and processes a webhook batch. The signature is checked
// against the exact bytes received, so the body is never decoded by echo.
func (h *LineWebhookHandler) Incoming(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			return httpErr
		}
		return echo.NewHTTPError(http.StatusBadRequest, "read body failed")
	}

	// Processing continues if LINE drops the connection mid-batch.
	ctx := context.WithoutCancel(c.Request().Context())
	res, err := h.router.HandleBatch(ctx, c.Request().Header.Get(line.SignatureHeader), body)
	if err != nil {
		if errors.Is(err, inbound.ErrInvalidSignature) {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: "Invalid Signature"})
		}
		h.logger.Error("webhook batch failed",
			slog.String("batch_id", res.ID),
			slog.Int("handled", len(res.Events)),
			slog.Any("error", err),
		)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "outer catch error"})
	}
	return c.JSON(http.StatusOK, successResponse{Success: true})
}
