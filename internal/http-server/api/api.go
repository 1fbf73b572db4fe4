package api

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
	"qreward/internal/config"
	"qreward/internal/http-server/handlers/errors"
	"qreward/internal/http-server/handlers/funnel"
	"qreward/internal/http-server/handlers/redeem"
	"qreward/internal/http-server/handlers/reward"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"qreward/internal/http-server/middleware/authenticate"
	"qreward/internal/http-server/middleware/timeout"
	"qreward/lib/sl"
)

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	log        *slog.Logger
}

type Handler interface {
	authenticate.Authenticate
	reward.Core
	redeem.Core
	funnel.Core
}

func New(conf *config.Config, log *slog.Logger, handler Handler) error {

	server := Server{
		conf: conf,
		log:  log.With(sl.Module("api.server")),
	}

	router := chi.NewRouter()
	router.Use(timeout.Timeout(5))
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(render.SetContentType(render.ContentTypeJSON))

	router.NotFound(errors.NotFound(log))
	router.MethodNotAllowed(errors.NotAllowed(log))

	router.Route("/v1", func(rootApi chi.Router) {
		rootApi.Use(authenticate.New(log, handler))
		rootApi.Route("/reward", func(rw chi.Router) {
			rw.Post("/issue", reward.Issue(log, handler))
			rw.Post("/review", reward.Review(log, handler))
		})
		rootApi.Route("/funnel", func(fn chi.Router) {
			fn.Post("/scan", funnel.Scan(log, handler))
		})
	})
	// redemption is customer-facing: the link is printed into QR codes and
	// carries its own unguessable token, so no Bearer auth here
	router.Post("/redeem/{code}", redeem.Redeem(log, handler))

	httpLog := slog.NewLogLogger(log.Handler(), slog.LevelError)
	server.httpServer = &http.Server{
		Handler:      router,
		ErrorLog:     httpLog,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverAddress := fmt.Sprintf("%s:%s", conf.Listen.BindIp, conf.Listen.Port)
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}

	server.log.Info("starting api server", slog.String("address", serverAddress))

	return server.httpServer.Serve(listener)
}
