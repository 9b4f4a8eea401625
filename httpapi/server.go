// Package httpapi exposes the facilitator over HTTP and provides a client
// for remote facilitators.
package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	hederax402 "github.com/NirajBhattarai/hedera-x402-go"
	"github.com/NirajBhattarai/hedera-x402-go/facilitator"
)

// Server serves the facilitator endpoints.
type Server struct {
	cfg hederax402.Config
	log *zap.Logger
	svc *facilitator.Service
}

// NewServer creates a facilitator HTTP server. A nil logger disables
// logging.
func NewServer(cfg hederax402.Config, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		cfg: cfg,
		log: log,
		svc: facilitator.NewService(cfg, log),
	}
}

// Router builds the gin engine with all facilitator routes.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.POST("/verify", s.handleVerify)
	router.POST("/settle", s.handleSettle)
	router.GET("/supported", s.handleSupported)
	router.POST("/payload", s.handleCreatePayload)
	router.POST("/prepare", s.handlePrepare)

	return router
}

// Run starts the server on the configured listen address.
func (s *Server) Run() error {
	s.log.Info("facilitator listening", zap.String("addr", s.cfg.ListenAddr))
	return s.Router().Run(s.cfg.ListenAddr)
}

// handleVerify answers 400 for missing required fields, 500 for missing
// facilitator credentials, and 200 with isValid false for authorization
// failures, which are business outcomes rather than transport errors.
func (s *Server) handleVerify(c *gin.Context) {
	var req facilitator.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortError(c, hederax402.NewPaymentError(hederax402.ErrCodeValidation, "malformed verify request", err))
		return
	}
	if req.PaymentPayload.Payload.Transaction == "" || req.PaymentRequirements.Network == "" {
		s.abortError(c, hederax402.NewPaymentError(hederax402.ErrCodeValidation,
			"paymentPayload and paymentRequirements are required", hederax402.ErrValidation))
		return
	}

	resp, err := s.svc.Verify(c.Request.Context(), req)
	if err != nil {
		s.abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleSettle(c *gin.Context) {
	var req facilitator.SettleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortError(c, hederax402.NewPaymentError(hederax402.ErrCodeValidation, "malformed settle request", err))
		return
	}
	if req.PaymentPayload.Payload.Transaction == "" || req.PaymentRequirements.Network == "" {
		s.abortError(c, hederax402.NewPaymentError(hederax402.ErrCodeValidation,
			"paymentPayload and paymentRequirements are required", hederax402.ErrValidation))
		return
	}

	resp, err := s.svc.Settle(c.Request.Context(), req)
	if err != nil {
		s.abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleSupported(c *gin.Context) {
	resp, err := s.svc.Supported(c.Request.Context())
	if err != nil {
		s.abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleCreatePayload(c *gin.Context) {
	var req facilitator.CreatePayloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortError(c, hederax402.NewPaymentError(hederax402.ErrCodeValidation, "malformed payload request", err))
		return
	}

	payload, err := s.svc.CreatePayload(c.Request.Context(), req)
	if err != nil {
		s.abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, payload)
}

func (s *Server) handlePrepare(c *gin.Context) {
	var req facilitator.PrepareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortError(c, hederax402.NewPaymentError(hederax402.ErrCodeValidation, "malformed prepare request", err))
		return
	}

	prepared, err := s.svc.Prepare(c.Request.Context(), req)
	if err != nil {
		s.abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, prepared)
}

// abortError maps errors to transport status codes: missing facilitator
// credentials are a 500, everything else is malformed input and maps
// to a 400.
func (s *Server) abortError(c *gin.Context, err error) {
	status := http.StatusBadRequest
	if errors.Is(err, hederax402.ErrMissingConfig) {
		status = http.StatusInternalServerError
	}

	s.log.Warn("request failed",
		zap.String("path", c.FullPath()),
		zap.Int("status", status),
		zap.Error(err),
	)
	c.AbortWithStatusJSON(status, gin.H{
		"error":       err.Error(),
		"errorReason": string(hederax402.CodeFor(err)),
	})
}
