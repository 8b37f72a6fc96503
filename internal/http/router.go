package http

import (
	"net/http"
	"strings"
)

type RouterConfig struct {
	Settings   *SettingsHandler
	Templates  *TemplateHandler
	Scheduler  *SchedulerHandler
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.Settings != nil {
		mux.HandleFunc("/users/", func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/users/")
			parts := strings.Split(rest, "/")
			if len(parts) < 2 || parts[0] == "" {
				http.NotFound(w, r)
				return
			}

			ctx := ContextWithUserID(r.Context(), parts[0])
			r = r.WithContext(ctx)

			switch {
			case len(parts) == 2 && parts[1] == "reminder-settings":
				switch r.Method {
				case http.MethodGet:
					cfg.Settings.Get(w, r)
				case http.MethodPut:
					cfg.Settings.Put(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPut)
				}
			case len(parts) == 4 && parts[1] == "reminders" && parts[3] == "preview":
				if parts[2] == "" {
					http.NotFound(w, r)
					return
				}
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				r = r.WithContext(ContextWithReminderID(r.Context(), parts[2]))
				cfg.Settings.Preview(w, r)
			default:
				http.NotFound(w, r)
			}
		})
	}

	if cfg.Templates != nil {
		mux.HandleFunc("/templates", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Templates.List(w, r)
			case http.MethodPost:
				cfg.Templates.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/templates/", func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/templates/")
			parts := strings.Split(rest, "/")
			if parts[0] == "" {
				http.NotFound(w, r)
				return
			}

			r = r.WithContext(ContextWithTemplateID(r.Context(), parts[0]))

			switch {
			case len(parts) == 1:
				switch r.Method {
				case http.MethodGet:
					cfg.Templates.Get(w, r)
				case http.MethodDelete:
					cfg.Templates.Delete(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodDelete)
				}
			case len(parts) == 2 && parts[1] == "like":
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				cfg.Templates.Like(w, r)
			case len(parts) == 2 && parts[1] == "apply":
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				cfg.Templates.Apply(w, r)
			default:
				http.NotFound(w, r)
			}
		})
	}

	if cfg.Scheduler != nil {
		mux.HandleFunc("/scheduler/start", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Scheduler.Start(w, r)
		})
		mux.HandleFunc("/scheduler/stop", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Scheduler.Stop(w, r)
		})
		mux.HandleFunc("/scheduler/status", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Scheduler.Status(w, r)
		})
	}

	var handler http.Handler = mux
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}
	return handler
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
