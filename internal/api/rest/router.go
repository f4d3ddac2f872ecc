package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/ayasaka/kidreel/internal/infra/metrics"
)

// NewRouter builds the HTTP route tree. m may be nil to disable the
// metrics endpoint and request counting.
func NewRouter(h *Handler, m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(metrics.RequestMiddleware(m))

	r.Get("/healthz", h.Healthz)
	r.Get("/videos", h.ListVideos)

	r.Route("/playback", func(r chi.Router) {
		r.Get("/state", h.PlaybackState)
		r.Post("/play", h.Play)
		r.Post("/pause", h.TogglePause)
		r.Post("/retry", h.Retry)
		r.Post("/reset", h.ResetVideo)
	})

	r.Route("/settings", func(r chi.Router) {
		r.Get("/", h.GetSettings)
		r.Post("/pin", h.SetPin)
		r.Post("/pin/verify", h.VerifyPin)
		r.Post("/selection", h.ToggleSelection)
		r.Post("/restricted-mode", h.ToggleRestrictedMode)
		r.Post("/clear", h.ClearSettings)
	})

	r.Post("/purchase", h.Purchase)

	if h.identity != nil {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signin", h.SignIn)
			r.Post("/signup", h.SignUp)
			r.Post("/signout", h.SignOut)
			r.Post("/reset-password", h.ResetPassword)
		})
	}

	if m != nil {
		r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
			m.Handler(func() {
				m.SetSelectedVideos(h.settings.SelectedCount())
			}).ServeHTTP(w, req)
		})
	}

	return r
}
