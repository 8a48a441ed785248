package http

import (
	"net/http"

	httpmw "github.com/cwrk-planet/relay-service/internal/transport/http/middleware"
	"github.com/cwrk-planet/relay-service/internal/transport/ws"

	"github.com/go-chi/chi/v5"
	middlewareChi "github.com/go-chi/chi/v5/middleware"
)

type GateConfig struct {
	AllowedOrigin string
	AllowDev      bool
}

func NewRouter(wsServer *ws.Server, gate GateConfig, assetsDir string) http.Handler {
	r := chi.NewRouter()
	r.Use(middlewareChi.RequestID)
	r.Use(middlewareChi.RealIP)
	r.Use(middlewareChi.Recoverer)

	// health вне gate, для проб
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// всё остальное только с разрешённого origin/referer
	r.Group(func(gr chi.Router) {
		gr.Use(httpmw.AccessGate(gate.AllowedOrigin, gate.AllowDev))

		gr.Get("/ws", wsServer.HandleWS)

		// статика клиента
		gr.Handle("/*", http.FileServer(http.Dir(assetsDir)))
	})

	return r
}
