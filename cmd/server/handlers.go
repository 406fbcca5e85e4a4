package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/yourorg/wave-connector/internal/adapter"
	"github.com/yourorg/wave-connector/internal/logger"
)

type paymentRequest struct {
	MerchantID  string `json:"merchant_id"`
	PaymentID   string `json:"payment_id" binding:"required"`
	ReferenceID string `json:"reference_id"`
	Amount      int64  `json:"amount" binding:"required,gt=0"`
	Currency    string `json:"currency" binding:"required,len=3"`
	ReturnURL   string `json:"return_url" binding:"required,url"`
	Email       string `json:"email" binding:"omitempty,email"`
}

type cancelRequest struct {
	MerchantID string  `json:"merchant_id"`
	PaymentID  string  `json:"payment_id"`
	Reason     *string `json:"reason"`
}

type captureRequest struct {
	MerchantID string `json:"merchant_id"`
	PaymentID  string `json:"payment_id"`
	Amount     int64  `json:"amount"`
	Currency   string `json:"currency"`
}

type refundRequest struct {
	MerchantID             string  `json:"merchant_id"`
	RefundID               string  `json:"refund_id" binding:"required"`
	PaymentID              string  `json:"payment_id"`
	ConnectorTransactionID string  `json:"connector_transaction_id" binding:"required"`
	Amount                 int64   `json:"amount" binding:"required,gt=0"`
	Currency               string  `json:"currency" binding:"required,len=3"`
	Reason                 *string `json:"reason"`
}

func setupRouter(a *app) *gin.Engine {
	router := gin.New()
	router.Use(
		otelgin.Middleware(serviceName),
		logger.Recovery(a.logger),
		logger.GinMiddleware(a.logger),
	)

	router.POST("/payments", a.createPayment)
	router.GET("/payments/:id", a.syncPayment)
	router.POST("/payments/:id/cancel", a.cancelPayment)
	router.POST("/payments/:id/capture", a.capturePayment)
	router.POST("/refunds", a.createRefund)
	router.GET("/refunds/:id", a.syncRefund)
	router.GET("/reports/retrospective", a.retrospective)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return router
}

func (a *app) createPayment(c *gin.Context) {
	var req paymentRequest
	if !bindJSON(c, &req) {
		return
	}
	a.run(c, req.MerchantID, &adapter.AuthorizeRequest{
		PaymentID:   req.PaymentID,
		ReferenceID: req.ReferenceID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		ReturnURL:   req.ReturnURL,
		Email:       req.Email,
	})
}

func (a *app) syncPayment(c *gin.Context) {
	a.run(c, c.Query("merchant_id"), &adapter.SyncRequest{
		PaymentID:           c.Query("payment_id"),
		ConnectorResourceID: c.Param("id"),
	})
}

func (a *app) cancelPayment(c *gin.Context) {
	var req cancelRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	a.run(c, req.MerchantID, &adapter.CancelRequest{
		PaymentID:              req.PaymentID,
		ConnectorTransactionID: c.Param("id"),
		CancellationReason:     req.Reason,
	})
}

func (a *app) capturePayment(c *gin.Context) {
	var req captureRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	a.run(c, req.MerchantID, &adapter.CaptureRequest{
		PaymentID:              req.PaymentID,
		ConnectorTransactionID: c.Param("id"),
		Amount:                 req.Amount,
		Currency:               req.Currency,
	})
}

func (a *app) createRefund(c *gin.Context) {
	var req refundRequest
	if !bindJSON(c, &req) {
		return
	}
	a.run(c, req.MerchantID, &adapter.RefundRequest{
		RefundID:               req.RefundID,
		PaymentID:              req.PaymentID,
		ConnectorTransactionID: req.ConnectorTransactionID,
		RefundAmount:           req.Amount,
		Currency:               req.Currency,
		Reason:                 req.Reason,
	})
}

func (a *app) syncRefund(c *gin.Context) {
	a.run(c, c.Query("merchant_id"), &adapter.RefundSyncRequest{
		RefundID:          c.Query("refund_id"),
		ConnectorRefundID: c.Param("id"),
	})
}

func (a *app) retrospective(c *gin.Context) {
	entries := a.journal.Entries()
	if merchantID := c.Query("merchant_id"); merchantID != "" {
		filtered := entries[:0]
		for _, e := range entries {
			if e.MerchantID == merchantID {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}
	report, err := a.reporter.GenerateRetrospective(entries)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate report: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

// run executes req through the orchestrator and writes the flow result.
func (a *app) run(c *gin.Context, merchantID string, req any) {
	if merchantID == "" {
		merchantID = a.defaultMerchant
	}
	result, err := a.orchestrator.Execute(c.Request.Context(), merchantID, req)
	if err != nil {
		_ = c.Error(err)
		if result == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Merchant connector account unavailable: " + err.Error()})
			return
		}
		c.JSON(statusFor(err), gin.H{"error": err.Error(), "result": result})
		return
	}
	c.JSON(http.StatusOK, result)
}

// statusFor maps a flow error to the HTTP status the sandbox answers with.
func statusFor(err error) int {
	switch {
	case errors.Is(err, adapter.ErrNotImplemented), errors.Is(err, adapter.ErrWebhooksNotImplemented):
		return http.StatusNotImplemented
	case errors.Is(err, adapter.ErrGatewayRejected), errors.Is(err, adapter.ErrProcessingStepFailed):
		return http.StatusBadGateway
	case errors.Is(err, adapter.ErrFailedToObtainAuthType):
		return http.StatusUnauthorized
	case errors.Is(err, adapter.ErrInvalidConfiguration),
		errors.Is(err, adapter.ErrInvalidConnectorConfig),
		errors.Is(err, adapter.ErrMissingConnectorTransactionID),
		errors.Is(err, adapter.ErrRequestEncodingFailed):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return false
	}
	return true
}
