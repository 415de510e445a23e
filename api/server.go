package api

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/nijks777/sudoku/adapter"
	aTLS "github.com/nijks777/sudoku/common/tls"
	C "github.com/nijks777/sudoku/constant"
	"github.com/nijks777/sudoku/game"
	"github.com/nijks777/sudoku/log"
	"github.com/nijks777/sudoku/option"
	"github.com/nijks777/sudoku/provider"
	"github.com/sagernet/cors"
	"github.com/sagernet/sing/common"
	E "github.com/sagernet/sing/common/exceptions"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

var _ adapter.LifecycleService = (*Server)(nil)

type Server struct {
	ctx        context.Context
	logger     log.ContextLogger
	httpServer *http.Server
	tlsConfig  aTLS.ServerConfig
}

func NewServer(ctx context.Context, logFactory log.ObservableFactory, handler *game.Handler, puzzleProvider *provider.PuzzleProvider, options option.APIOptions) (*Server, error) {
	logger := logFactory.NewLogger("api")
	listen := options.Listen
	if listen == "" {
		listen = C.DefaultAPIListen
	}
	chiRouter := chi.NewRouter()
	server := &Server{
		ctx:    ctx,
		logger: logger,
		httpServer: &http.Server{
			Addr:    listen,
			Handler: chiRouter,
		},
	}
	if options.TLS != nil {
		tlsConfig, err := aTLS.NewServer(ctx, logger, common.PtrValueOrDefault(options.TLS))
		if err != nil {
			return nil, E.Cause(err, "create TLS config")
		}
		server.tlsConfig = tlsConfig
	}
	cors := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	})
	chiRouter.Use(cors.Handler)
	chiRouter.Group(func(r chi.Router) {
		r.Use(authentication(options.Secret))
		r.Get("/", hello)
		r.Get("/version", version)
		r.Get("/status", status(puzzleProvider))
		r.Get("/logs", getLogs(logFactory))
		r.Mount("/puzzle", puzzleRouter(logger, puzzleProvider))
		r.Post("/scores", submitScore(puzzleProvider))
		r.Get("/leaderboard", leaderboard(puzzleProvider))
		r.Get("/room/{code}", getRoom(handler))
		r.Get("/multiplayer", multiplayer(logger, handler))
	})
	return server, nil
}

func (s *Server) Name() string {
	return "api server"
}

func (s *Server) Start(stage adapter.StartStage) error {
	if stage != adapter.StartStateStart {
		return nil
	}
	if s.tlsConfig != nil {
		err := s.tlsConfig.Start()
		if err != nil {
			return E.Cause(err, "start TLS")
		}
	}
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return E.Cause(err, "api listen error")
	}
	if s.tlsConfig != nil {
		stdConfig, err := s.tlsConfig.Config()
		if err != nil {
			return err
		}
		listener = tls.NewListener(listener, stdConfig)
	}
	s.logger.Info("restful api listening at ", listener.Addr())
	go func() {
		serveErr := s.httpServer.Serve(listener)
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			s.logger.Error("api serve error: ", serveErr)
		}
	}()
	return nil
}

func (s *Server) Close() error {
	return common.Close(
		common.PtrOrNil(s.httpServer),
		s.tlsConfig,
	)
}

func isWebsocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

func authentication(serverSecret string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			if serverSecret == "" {
				next.ServeHTTP(w, r)
				return
			}

			// Browser websocket not support custom header
			if isWebsocketUpgrade(r) && r.URL.Query().Get("token") != "" {
				token := r.URL.Query().Get("token")
				if token != serverSecret {
					render.Status(r, http.StatusUnauthorized)
					render.JSON(w, r, ErrUnauthorized)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			bearer, token, found := strings.Cut(header, " ")

			hasInvalidHeader := bearer != "Bearer"
			hasInvalidSecret := !found || token != serverSecret
			if hasInvalidHeader || hasInvalidSecret {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(fn)
	}
}

func hello(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, render.M{"hello": "sudoku"})
}

func version(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, render.M{"version": C.Version})
}

func status(puzzleProvider *provider.PuzzleProvider) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, render.M{"pools": puzzleProvider.PoolStatus()})
	}
}
