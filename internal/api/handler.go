package api

import (
	"context"
	"net/http"

	"github.com/emiago/sipgo/sip"
	"github.com/gin-gonic/gin"

	"callrouter/internal/ifc"
	"callrouter/internal/logger"
	"callrouter/internal/routing"
	"callrouter/internal/sipmsg"
	"callrouter/pkg/errors"
	"callrouter/pkg/logging"
)

// Service is the routing facade the handlers call.
type Service interface {
	ResolveServedUserAndAS(ctx context.Context, sc ifc.SessionCase, req *sip.Request, opts ...routing.ResolveOption) (string, []string)
	TranslateRequestURI(ctx context.Context, req *sip.Request) (string, error)
	TranslateNumber(ctx context.Context, raw string) string
	RouteToDomain(ctx context.Context, domain string) string
}

type BaseHandler struct {
	Service Service
	Logger  logger.Logger
}

func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	status := errors.ToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.Logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)
	} else {
		h.Logger.InfowCtx(c.Request.Context(), "Request rejected", "error", err, "path", c.Request.URL.Path)
	}

	c.JSON(status, errors.ToErrorResponse(err))
}

type Handler struct {
	BaseHandler
}

func NewHandler(service Service, log logger.Logger) *Handler {
	return &Handler{
		BaseHandler: BaseHandler{
			Service: service,
			Logger:  log,
		},
	}
}

func (h *Handler) RegisterRoutes(router gin.IRouter) {
	v1 := router.Group("/api/v1")
	{
		routes := v1.Group("/routing")
		{
			routes.POST("/application-servers", h.ApplicationServers)
			routes.POST("/request-uri", h.RequestURI)
		}

		v1.GET("/enum/:number", h.TranslateNumber)
		v1.GET("/bgcf/:domain", h.RouteToDomain)
	}
}

// ApplicationServers godoc
// @Summary      Select application servers
// @Description  Resolve the served user of a SIP request and the application servers its filter criteria select
// @Tags         routing
// @Accept       json
// @Produce      json
// @Param        request  body      ApplicationServersRequest  true  "Session case and raw SIP request"
// @Success      200      {object}  ApplicationServersResponse
// @Failure      400      {object}  map[string]interface{}
// @Failure      429      {object}  map[string]interface{}
// @Router       /routing/application-servers [post]
func (h *Handler) ApplicationServers(c *gin.Context) {
	var body ApplicationServersRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.HandleError(c, errors.ErrValidation.WithCause(err))
		return
	}

	sc, err := ifc.ParseSessionCase(body.SessionCase)
	if err != nil {
		h.HandleError(c, errors.ErrValidation.WithCause(err).WithDetail("field", "session_case"))
		return
	}

	req, ok := h.parseMessage(c, body.Message)
	if !ok {
		return
	}

	var opts []routing.ResolveOption
	if body.Registered != nil {
		opts = append(opts, routing.WithRegistered(*body.Registered))
	}

	servedUser, servers := h.Service.ResolveServedUserAndAS(c.Request.Context(), sc, req, opts...)
	c.JSON(http.StatusOK, ApplicationServersResponse{
		ServedUser:         servedUser,
		ApplicationServers: servers,
	})
}

// RequestURI godoc
// @Summary      Translate a request URI
// @Description  Translate a tel URI or numeric SIP request URI through ENUM; untranslated targets are echoed back
// @Tags         routing
// @Accept       json
// @Produce      json
// @Param        request  body      RequestURIRequest  true  "Raw SIP request"
// @Success      200      {object}  RequestURIResponse
// @Failure      400      {object}  map[string]interface{}
// @Failure      422      {object}  map[string]interface{}
// @Router       /routing/request-uri [post]
func (h *Handler) RequestURI(c *gin.Context) {
	var body RequestURIRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.HandleError(c, errors.ErrValidation.WithCause(err))
		return
	}

	req, ok := h.parseMessage(c, body.Message)
	if !ok {
		return
	}

	uri, err := h.Service.TranslateRequestURI(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if uri == "" {
		c.JSON(http.StatusOK, RequestURIResponse{URI: sipmsg.RequestURI(req)})
		return
	}
	c.JSON(http.StatusOK, RequestURIResponse{URI: uri, Translated: true})
}

// TranslateNumber godoc
// @Summary      ENUM lookup
// @Description  Translate a dialled number with the configured ENUM backend
// @Tags         enum
// @Produce      json
// @Param        number  path      string  true  "Dialled number"
// @Success      200     {object}  EnumResponse
// @Failure      404     {object}  map[string]interface{}
// @Router       /enum/{number} [get]
func (h *Handler) TranslateNumber(c *gin.Context) {
	number := c.Param("number")
	uri := h.Service.TranslateNumber(c.Request.Context(), number)
	if uri == "" {
		h.HandleError(c, errors.ErrNotFound.WithDetail("number", number))
		return
	}
	c.JSON(http.StatusOK, EnumResponse{Number: number, URI: uri})
}

// RouteToDomain godoc
// @Summary      BGCF route lookup
// @Description  Return the breakout route configured for a domain
// @Tags         bgcf
// @Produce      json
// @Param        domain  path      string  true  "Target domain"
// @Success      200     {object}  BGCFResponse
// @Failure      404     {object}  map[string]interface{}
// @Router       /bgcf/{domain} [get]
func (h *Handler) RouteToDomain(c *gin.Context) {
	domain := c.Param("domain")
	route := h.Service.RouteToDomain(c.Request.Context(), domain)
	if route == "" {
		h.HandleError(c, errors.ErrNotFound.WithDetail("domain", domain))
		return
	}
	c.JSON(http.StatusOK, BGCFResponse{Domain: domain, Route: route})
}

// parseMessage parses the SIP request carried in a JSON body and tags the
// request context with its Call-ID.
func (h *Handler) parseMessage(c *gin.Context, raw string) (*sip.Request, bool) {
	req, err := sipmsg.Parse(raw)
	if err != nil {
		h.HandleError(c, errors.ErrBadSIPMessage.WithCause(err))
		return nil, false
	}

	if callID := req.CallID(); callID != nil {
		c.Request = c.Request.WithContext(logging.WithCallID(c.Request.Context(), callID.Value()))
	}
	return req, true
}
