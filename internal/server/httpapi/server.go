// Package httpapi exposes the user directory over HTTP. Routing and
// middleware are built on gin; every request is resolved to a caller
// identity first and the domain service decides the rest.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/userdir/internal/logging"
	"github.com/dmitrijs2005/userdir/internal/server/users"
)

type HTTPServer struct {
	address       string
	logger        logging.Logger
	users         *users.Service
	authenticator Authenticator
}

func NewHTTPServer(address string, logger logging.Logger, us *users.Service, a Authenticator) *HTTPServer {
	return &HTTPServer{
		address:       address,
		logger:        logger.With("module", "http_server"),
		users:         us,
		authenticator: a,
	}
}

func (s *HTTPServer) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.resolveCaller())

	auth := r.Group("/api/auth")
	{
		auth.POST("/login", s.login)
		auth.POST("/refresh", s.refresh)
	}

	api := r.Group("/api/users")
	{
		api.POST("/create", s.createUser)
		api.PUT("/update/info", s.updateInfo)
		api.PUT("/update/password", s.changePassword)
		api.PUT("/update/login", s.changeLogin)
		api.GET("/active", s.activeUsers)
		api.GET("/by-login/:login", s.userByLogin)
		api.GET("/self", s.self)
		api.GET("/older-than/:age", s.usersOlderThan)
		api.DELETE("/:login", s.deleteUser)
		api.PUT("/restore/:login", s.restoreUser)
	}

	return r
}

func (s *HTTPServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.address,
		Handler: s.Router(),
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown error", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
