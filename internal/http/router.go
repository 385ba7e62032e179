package http

import (
	"log/slog"
	"net/http"
)

type RouterConfig struct {
	Authenticator Authenticator
	Serializer    *Serializer
	Events        *EventHandler
	Series        *SeriesHandler
	Users         *UserHandler
	Tokens        *TokenHandler
	Settings      *SettingsHandler
	Notifications *NotificationHandler
	Logger        *slog.Logger
	Middleware    []func(http.Handler) http.Handler
}

// NewRouter mounts the public endpoints directly and everything else behind
// RequireToken.
func NewRouter(cfg RouterConfig) http.Handler {
	serializer := cfg.Serializer
	if serializer == nil {
		serializer = NewSerializer()
	}
	read, write := serializer.Shared, serializer.Exclusive

	public := http.NewServeMux()
	protected := http.NewServeMux()

	public.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		newResponder(cfg.Logger).writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if cfg.Events != nil {
		public.HandleFunc("GET /public/events", read(cfg.Events.ListPublic))
		protected.HandleFunc("GET /events", read(cfg.Events.List))
		protected.HandleFunc("POST /events", write(cfg.Events.Create))
		protected.HandleFunc("GET /events/unclaimed", read(cfg.Events.Unclaimed))
		protected.HandleFunc("GET /events/coverage", read(cfg.Events.Coverage))
		protected.HandleFunc("POST /events/assign", write(cfg.Events.Assign))
		protected.HandleFunc("POST /events/unassign", write(cfg.Events.Unassign))
		protected.HandleFunc("POST /events/update", write(cfg.Events.Update))
		protected.HandleFunc("POST /events/cancel", write(cfg.Events.Cancel))
		protected.HandleFunc("POST /events/ics", read(cfg.Events.ICS))
	}

	if cfg.Series != nil {
		protected.HandleFunc("GET /series", read(cfg.Series.List))
		protected.HandleFunc("POST /series", write(cfg.Series.Create))
		protected.HandleFunc("GET /series/{id}", read(cfg.Series.Get))
		protected.HandleFunc("PUT /series/{id}", write(cfg.Series.Update))
		protected.HandleFunc("DELETE /series/{id}", write(cfg.Series.Delete))
		protected.HandleFunc("GET /series/{id}/ics", read(cfg.Series.ICS))
	}

	if cfg.Users != nil {
		protected.HandleFunc("GET /me", read(cfg.Users.Me))
		protected.HandleFunc("PUT /me/out-of-office", write(cfg.Users.SetOutOfOffice))
		protected.HandleFunc("PUT /me/notification-settings", write(cfg.Users.UpdateNotificationSettings))
		protected.HandleFunc("GET /users", read(cfg.Users.List))
		protected.HandleFunc("POST /users", write(cfg.Users.Authorize))
		protected.HandleFunc("PUT /users/{id}", write(cfg.Users.Update))
		protected.HandleFunc("POST /users/{id}/disable", write(cfg.Users.Disable))
		protected.HandleFunc("POST /users/{id}/enable", write(cfg.Users.Enable))
	}

	if cfg.Tokens != nil {
		protected.HandleFunc("GET /users/{id}/tokens", read(cfg.Tokens.List))
		protected.HandleFunc("POST /users/{id}/tokens", write(cfg.Tokens.Issue))
		protected.HandleFunc("DELETE /tokens/{id}", write(cfg.Tokens.Revoke))
	}

	if cfg.Settings != nil {
		protected.HandleFunc("GET /settings", read(cfg.Settings.Get))
		protected.HandleFunc("PUT /settings", write(cfg.Settings.Update))
	}

	if cfg.Notifications != nil {
		protected.HandleFunc("GET /notifications/pending", read(cfg.Notifications.Pending))
		protected.HandleFunc("POST /notifications/{id}/sent", write(cfg.Notifications.MarkSent))
		protected.HandleFunc("POST /notifications/{id}/failed", write(cfg.Notifications.MarkFailed))
	}

	if cfg.Authenticator != nil {
		public.Handle("/", RequireToken(cfg.Authenticator, cfg.Logger)(protected))
	}

	var handler http.Handler = public
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}
