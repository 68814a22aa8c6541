package http

import (
	"net/http"
	"strings"
)

type RouterConfig struct {
	Sessions   *SessionHandler
	Admission  *AdmissionHandler
	Breakouts  *BreakoutHandler
	Messaging  *MessagingHandler
	Health     *HealthHandler
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.Health != nil {
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Health.Healthz(w, r)
		})
		mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Health.Status(w, r)
		})
	}

	if cfg.Admission != nil {
		mux.HandleFunc("/redeem-link", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Admission.RedeemLink(w, r)
		})
	}

	mux.HandleFunc("/sessions", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Sessions == nil {
			http.NotFound(w, r)
			return
		}
		switch r.Method {
		case http.MethodGet:
			cfg.Sessions.List(w, r)
		case http.MethodPost:
			cfg.Sessions.Create(w, r)
		default:
			methodNotAllowed(w, http.MethodGet, http.MethodPost)
		}
	})

	mux.HandleFunc("/sessions/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/sessions/")
		segments := strings.Split(strings.Trim(rest, "/"), "/")
		if len(segments) == 0 || segments[0] == "" {
			http.NotFound(w, r)
			return
		}

		sessionID := segments[0]
		r = r.WithContext(ContextWithSessionID(r.Context(), sessionID))

		if len(segments) == 1 {
			if cfg.Sessions == nil {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Sessions.Get(w, r)
			return
		}

		switch segments[1] {
		case "settings":
			requireHandler(cfg.Sessions != nil, w, r, func() {
				dispatch(w, r, http.MethodPut, cfg.Sessions.UpdateSettings)
			})
		case "start":
			requireHandler(cfg.Sessions != nil, w, r, func() {
				dispatch(w, r, http.MethodPost, cfg.Sessions.Start)
			})
		case "complete":
			requireHandler(cfg.Sessions != nil, w, r, func() {
				dispatch(w, r, http.MethodPost, cfg.Sessions.Complete)
			})
		case "invites":
			requireHandler(cfg.Sessions != nil, w, r, func() {
				switch r.Method {
				case http.MethodGet:
					cfg.Sessions.ListInvites(w, r)
				case http.MethodPost:
					cfg.Sessions.Invite(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPost)
				}
			})
		case "admins":
			requireHandler(cfg.Sessions != nil, w, r, func() {
				switch r.Method {
				case http.MethodGet:
					cfg.Sessions.ListAdmins(w, r)
				case http.MethodPost:
					cfg.Sessions.GrantAdmin(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPost)
				}
			})
		case "join":
			requireHandler(cfg.Admission != nil, w, r, func() {
				dispatch(w, r, http.MethodPost, cfg.Admission.Join)
			})
		case "redeem-code":
			requireHandler(cfg.Admission != nil, w, r, func() {
				dispatch(w, r, http.MethodPost, cfg.Admission.RedeemCode)
			})
		case "waiting":
			requireHandler(cfg.Admission != nil, w, r, func() {
				dispatch(w, r, http.MethodGet, cfg.Admission.ListWaiting)
			})
		case "admissions":
			requireHandler(cfg.Admission != nil, w, r, func() {
				dispatch(w, r, http.MethodPost, cfg.Admission.Admit)
			})
		case "participants":
			requireHandler(cfg.Admission != nil, w, r, func() {
				dispatch(w, r, http.MethodGet, cfg.Admission.ListParticipants)
			})
		case "rooms":
			if cfg.Breakouts == nil {
				http.NotFound(w, r)
				return
			}
			switch {
			case len(segments) == 2:
				switch r.Method {
				case http.MethodGet:
					cfg.Breakouts.List(w, r)
				case http.MethodPost:
					cfg.Breakouts.Create(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPost)
				}
			case len(segments) == 4 && segments[3] == "members":
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				cfg.Breakouts.UpdateMembers(w, r, segments[2])
			case len(segments) == 4 && segments[3] == "available":
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Breakouts.ListAvailable(w, r, segments[2])
			default:
				http.NotFound(w, r)
			}
		case "messages":
			requireHandler(cfg.Messaging != nil, w, r, func() {
				switch r.Method {
				case http.MethodGet:
					cfg.Messaging.ListMessages(w, r)
				case http.MethodPost:
					cfg.Messaging.Send(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPost)
				}
			})
		case "summons":
			if cfg.Messaging == nil {
				http.NotFound(w, r)
				return
			}
			switch {
			case len(segments) == 2:
				switch r.Method {
				case http.MethodGet:
					cfg.Messaging.ListSummons(w, r)
				case http.MethodPost:
					cfg.Messaging.RaiseSummon(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPost)
				}
			case len(segments) == 3:
				if r.Method != http.MethodPut {
					methodNotAllowed(w, http.MethodPut)
					return
				}
				cfg.Messaging.AdvanceSummon(w, r, segments[2])
			default:
				http.NotFound(w, r)
			}
		default:
			http.NotFound(w, r)
		}
	})

	var handler http.Handler = mux
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		handler = cfg.Middleware[i](handler)
	}
	return handler
}

func requireHandler(configured bool, w http.ResponseWriter, r *http.Request, serve func()) {
	if !configured {
		http.NotFound(w, r)
		return
	}
	serve()
}

func dispatch(w http.ResponseWriter, r *http.Request, method string, serve http.HandlerFunc) {
	if r.Method != method {
		methodNotAllowed(w, method)
		return
	}
	serve(w, r)
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
