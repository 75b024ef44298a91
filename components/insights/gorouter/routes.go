package gorouter

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	router "github.com/goliatone/go-router"

	"github.com/goliatone/go-insights/components/insights"
	"github.com/goliatone/go-insights/components/insights/commands"
	"github.com/goliatone/go-insights/components/insights/httpapi"
)

// SessionResolver picks the session id for a request. form holds the
// decoded urlencoded body and may be empty.
type SessionResolver func(ctx router.Context, form url.Values) string

// LocaleResolver picks the number-formatting locale for a request.
type LocaleResolver func(ctx router.Context) string

// Config wires go-router with the insights controller, API, and hooks.
type Config[T any] struct {
	Router          router.Router[T]
	Controller      *insights.Controller
	API             *httpapi.Handlers
	Broadcast       *insights.BroadcastHook
	SessionResolver SessionResolver
	LocaleResolver  LocaleResolver
	Routes          RouteConfig
}

// RouteConfig customizes the relative paths used for insights endpoints.
type RouteConfig struct {
	Page       string
	Analyze    string
	Reset      string
	Dismiss    string
	APISession string
	APIAnalyze string
	WebSocket  string
}

// Register mounts the insights routes (HTML forms, JSON, WebSocket).
func Register[T any](cfg Config[T]) error {
	if cfg.Router == nil {
		return errors.New("gorouter: router is required")
	}
	if cfg.Controller == nil {
		return errors.New("gorouter: controller is required")
	}
	if cfg.API == nil || cfg.API.Analyze == nil || cfg.API.Reset == nil || cfg.API.Dismiss == nil || cfg.API.Snapshot == nil {
		return errors.New("gorouter: api handlers are required")
	}
	routes := defaultRouteConfig(cfg.Routes)
	sessions := cfg.SessionResolver
	if sessions == nil {
		sessions = defaultSessionResolver
	}
	locales := cfg.LocaleResolver
	if locales == nil {
		locales = inferLocale
	}
	api := cfg.API

	r := cfg.Router

	renderPage := func(ctx router.Context, sessionID string) error {
		viewer := insights.ViewerContext{SessionID: sessionID, Locale: locales(ctx)}
		var buf bytes.Buffer
		if err := cfg.Controller.RenderTemplate(ctx.Context(), viewer, &buf); err != nil {
			return respondError(ctx, http.StatusInternalServerError, err)
		}
		ctx.SetHeader("Content-Type", "text/html; charset=utf-8")
		return ctx.Send(buf.Bytes())
	}

	r.Get(routes.Page, router.WrapHandler(func(ctx router.Context) error {
		return renderPage(ctx, sessions(ctx, nil))
	}))

	r.Post(routes.Analyze, router.WrapHandler(func(ctx router.Context) error {
		form := parseForm(ctx)
		sessionID := sessions(ctx, form)
		input := commands.AnalyzeInput{SessionID: sessionID, Handle: form.Get("handle")}
		// An empty handle leaves the session untouched; the landing view
		// re-renders with submission disabled.
		if err := api.Analyze.Execute(ctx.Context(), input); err != nil && !insights.IsValidation(err) {
			return respondError(ctx, http.StatusInternalServerError, err)
		}
		return renderPage(ctx, sessionID)
	}))

	r.Post(routes.Reset, router.WrapHandler(func(ctx router.Context) error {
		sessionID := sessions(ctx, parseForm(ctx))
		if err := api.Reset.Execute(ctx.Context(), commands.ResetInput{SessionID: sessionID}); err != nil {
			return respondError(ctx, http.StatusInternalServerError, err)
		}
		return renderPage(ctx, sessionID)
	}))

	r.Post(routes.Dismiss, router.WrapHandler(func(ctx router.Context) error {
		sessionID := sessions(ctx, parseForm(ctx))
		if err := api.Dismiss.Execute(ctx.Context(), commands.DismissErrorInput{SessionID: sessionID}); err != nil {
			return respondError(ctx, http.StatusInternalServerError, err)
		}
		return renderPage(ctx, sessionID)
	}))

	r.Get(routes.APISession, router.WrapHandler(func(ctx router.Context) error {
		viewer := insights.ViewerContext{SessionID: sessions(ctx, nil), Locale: locales(ctx)}
		snap, err := api.Snapshot.Query(ctx.Context(), viewer)
		if err != nil {
			return respondError(ctx, http.StatusInternalServerError, err)
		}
		return ctx.JSON(http.StatusOK, snap)
	}))

	r.Post(routes.APIAnalyze, router.WrapHandler(func(ctx router.Context) error {
		var payload commands.AnalyzeInput
		if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
			return respondError(ctx, http.StatusBadRequest, err)
		}
		if payload.SessionID == "" {
			payload.SessionID = sessions(ctx, nil)
		}
		status, body := api.Analyzed(ctx.Context(), payload)
		return ctx.JSON(status, body)
	}))

	if cfg.Broadcast != nil {
		registerWebSocket(r, cfg.Broadcast, api, routes.WebSocket)
	}
	return nil
}

func registerWebSocket[T any](r router.Router[T], hook *insights.BroadcastHook, api *httpapi.Handlers, path string) {
	cfg := router.DefaultWebSocketConfig()
	r.WebSocket(path, cfg, func(ws router.WebSocketContext) error {
		sessionID := websocketSession(ws)
		if sessionID == "" {
			return ws.Close()
		}
		events, cancel := hook.Subscribe(sessionID)
		defer cancel()

		// The request may have resolved before the socket connected.
		snap, err := api.Snapshot.Query(ws.Context(), insights.ViewerContext{SessionID: sessionID})
		if err == nil && snap.State != insights.StateLoading {
			if err := ws.WriteJSON(insights.StateEvent{
				SessionID:  snap.SessionID,
				State:      snap.State,
				Generation: snap.Generation,
				Reason:     "sync",
			}); err != nil {
				return err
			}
		}

		for {
			select {
			case event, ok := <-events:
				if !ok {
					return nil
				}
				if err := ws.WriteJSON(event); err != nil {
					return err
				}
			case <-ws.Context().Done():
				return ws.Close()
			}
		}
	})
}

func websocketSession(ws router.WebSocketContext) string {
	if v, ok := ws.Locals("session_id").(string); ok && v != "" {
		return v
	}
	return strings.TrimSpace(ws.Query("session"))
}

func parseForm(ctx router.Context) url.Values {
	form, err := url.ParseQuery(string(ctx.Body()))
	if err != nil {
		return url.Values{}
	}
	return form
}

// defaultSessionResolver prefers the form field, then middleware locals,
// then ?session=, and mints a new id when none is present.
func defaultSessionResolver(ctx router.Context, form url.Values) string {
	if v := strings.TrimSpace(form.Get("session")); v != "" {
		return v
	}
	if v, ok := ctx.Locals("session_id").(string); ok && v != "" {
		return v
	}
	if v := strings.TrimSpace(ctx.Query("session")); v != "" {
		return v
	}
	return uuid.NewString()
}

func inferLocale(ctx router.Context) string {
	if locale, ok := ctx.Locals("locale").(string); ok && locale != "" {
		return locale
	}
	if locale := strings.TrimSpace(ctx.Query("locale")); locale != "" {
		return strings.ToLower(locale)
	}
	if header := ctx.Header("Accept-Language"); header != "" {
		if lang := parseAcceptLanguage(header); lang != "" {
			return lang
		}
	}
	return ""
}

func parseAcceptLanguage(header string) string {
	for _, token := range strings.Split(header, ",") {
		token = strings.TrimSpace(token)
		if idx := strings.Index(token, ";"); idx >= 0 {
			token = token[:idx]
		}
		if token != "" {
			return strings.ToLower(token)
		}
	}
	return ""
}

func respondError(ctx router.Context, status int, err error) error {
	return ctx.JSON(status, map[string]string{"error": err.Error()})
}

func defaultRouteConfig(routes RouteConfig) RouteConfig {
	if routes.Page == "" {
		routes.Page = "/"
	}
	if routes.Analyze == "" {
		routes.Analyze = "/analyze"
	}
	if routes.Reset == "" {
		routes.Reset = "/reset"
	}
	if routes.Dismiss == "" {
		routes.Dismiss = "/dismiss"
	}
	if routes.APISession == "" {
		routes.APISession = "/api/session"
	}
	if routes.APIAnalyze == "" {
		routes.APIAnalyze = "/api/analyze"
	}
	if routes.WebSocket == "" {
		routes.WebSocket = "/ws"
	}
	return routes
}
