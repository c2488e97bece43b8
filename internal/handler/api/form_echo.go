package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"HeartForm/internal/domain/models"
	"HeartForm/internal/service/ratelimit"
	"HeartForm/internal/usecase"
	"HeartForm/internal/view"
	xhttp "HeartForm/pkg/http"
	xlogger "HeartForm/pkg/logger"
)

const DefaultSessionCookie = "hf_session"

// FormResponse is the JSON shape of a form state and its presentation.
type FormResponse struct {
	SessionID string        `json:"session_id"`
	State     usecase.State `json:"state"`
	View      view.View     `json:"view"`
}

func newFormResponse(id string, s usecase.State) FormResponse {
	return FormResponse{SessionID: id, State: s, View: view.Render(s)}
}

// FormEchoHandler serves the prediction form as an HTML page, a JSON API and
// a websocket channel. Each browser session gets its own form.
type FormEchoHandler struct {
	logger   *xlogger.Logger
	sessions *usecase.SessionRegistry
	limiter  *ratelimit.Limiter
	cookie   string
}

func NewFormEchoHandler(logger *xlogger.Logger, sessions *usecase.SessionRegistry, limiter *ratelimit.Limiter, cookieName string) *FormEchoHandler {
	if cookieName == "" {
		cookieName = DefaultSessionCookie
	}
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &FormEchoHandler{logger: logger, sessions: sessions, limiter: limiter, cookie: cookieName}
}

func (h *FormEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Page)
	e.POST("/", h.PostPage)
	e.GET("/ws", h.Socket)

	g := e.Group("/api/form")
	g.GET("", h.Get)
	g.PATCH("/fields", h.ChangeField)
	g.POST("/submit", h.Submit)
}

// session resolves the caller's form and refreshes the cookie if a new
// session had to be created.
func (h *FormEchoHandler) session(c echo.Context) (*usecase.PredictionForm, string) {
	var current string
	if ck, err := c.Cookie(h.cookie); err == nil {
		current = ck.Value
	}
	form, id := h.sessions.Get(c.Request().Context(), current)
	if id != current {
		c.SetCookie(&http.Cookie{
			Name:     h.cookie,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return form, id
}

func (h *FormEchoHandler) Page(c echo.Context) error {
	form, _ := h.session(c)
	return c.Render(http.StatusOK, view.PageTemplate, view.Render(form.Snapshot()))
}

// PostPage is the classic form post: apply every posted field, submit unless
// an attempt is already running, then redirect back to the page.
func (h *FormEchoHandler) PostPage(c echo.Context) error {
	form, id := h.session(c)
	ctx := c.Request().Context()

	params, err := c.FormParams()
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("", "invalid form body").WithError(err))
	}
	for _, spec := range models.Schema {
		if _, ok := params[spec.Name]; !ok {
			continue
		}
		if _, err := form.Change(ctx, spec.Name, params.Get(spec.Name), spec.Kind); err != nil {
			h.logger.Error("apply posted field", xlogger.String("field", spec.Name), xlogger.Error(err))
			return xhttp.AppErrorResponse(c, xhttp.InternalError("form unavailable"))
		}
	}

	if !form.Snapshot().Loading && h.limiter.Allow(id) {
		if _, err := form.Submit(ctx); err != nil && !errors.Is(err, usecase.ErrSubmitInProgress) {
			h.logger.Error("submit from page", xlogger.Error(err))
			return xhttp.AppErrorResponse(c, xhttp.InternalError("form unavailable"))
		}
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

func (h *FormEchoHandler) Get(c echo.Context) error {
	form, id := h.session(c)
	return xhttp.SuccessResponse(c, newFormResponse(id, form.Snapshot()))
}

func (h *FormEchoHandler) ChangeField(c echo.Context) error {
	req := &models.FieldChangeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	form, id := h.session(c)

	st, err := form.Change(c.Request().Context(), req.Field, req.Value, fieldKind(req.Field, req.Kind))
	if err != nil {
		return xhttp.AppErrorResponse(c, h.formError(err, req.Field))
	}
	return xhttp.SuccessResponse(c, newFormResponse(id, st))
}

func (h *FormEchoHandler) Submit(c echo.Context) error {
	form, id := h.session(c)

	// a busy session must not spend rate limit tokens
	if form.Snapshot().Loading {
		return xhttp.AppErrorResponse(c, xhttp.ConflictError(usecase.ErrSubmitInProgress.Error()))
	}
	if !h.limiter.Allow(id) {
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("too many prediction requests"))
	}

	st, err := form.Submit(c.Request().Context())
	if err != nil {
		return xhttp.AppErrorResponse(c, h.formError(err, ""))
	}
	return xhttp.AcceptedResponse(c, newFormResponse(id, st))
}

func (h *FormEchoHandler) formError(err error, field string) *xhttp.AppError {
	switch {
	case errors.Is(err, usecase.ErrUnknownField):
		return xhttp.BadRequestError(field, err.Error())
	case errors.Is(err, usecase.ErrSubmitInProgress):
		return xhttp.ConflictError(err.Error())
	}
	h.logger.Error("form usecase error", xlogger.Error(err))
	return xhttp.InternalError("form unavailable").WithError(err)
}

// fieldKind uses the declared kind when given, else the control the field is
// rendered with.
func fieldKind(field, declared string) models.InputKind {
	if declared != "" {
		return models.InputKind(declared)
	}
	if spec, ok := models.LookupField(field); ok {
		return spec.Kind
	}
	return models.KindText
}

// TemplateRenderer adapts view templates to echo.
type TemplateRenderer struct {
	templates *view.Templates
}

func NewTemplateRenderer(t *view.Templates) *TemplateRenderer {
	return &TemplateRenderer{templates: t}
}

func (r *TemplateRenderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	return r.templates.Execute(w, name, data)
}
