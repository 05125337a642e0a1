package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/shuleos/shule/core"
	"github.com/shuleos/shule/core/role"
	"github.com/shuleos/shule/core/school"
	"github.com/shuleos/shule/core/user"
)

type (
	Options struct {
		Address        string
		DisableReqLogs bool

		Conf      *core.Config
		Logger    core.Logger
		UserSvc   user.Service
		RoleSvc   role.Service
		SchoolSvc school.Service

		// SignalShutdown is called when an unrecoverable error is caught so
		// the process can stop gracefully. Optional.
		SignalShutdown func()
	}

	Server interface {
		http.Handler
		Start()
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		app  *echo.Echo
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	if opts.SignalShutdown == nil {
		opts.SignalShutdown = func() {}
	}
	s := &server{
		opts: opts,
		app:  echo.New(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.opts.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.SignalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)

	validate, translator := core.NewValidator()
	user.RegisterValidators(validate, translator)
	s.app.Use(translatorMiddleware(translator))

	v1 := s.app.Group("/v1")
	jwtConfig := newJWTConfig(conf)
	jwt := middleware.JWTWithConfig(jwtConfig)

	registerUserAPI(v1, jwt, s.opts, validate, translator)
	registerRoleAPI(v1, jwt, s.opts, validate, translator)
	registerSchoolAPI(v1, jwt, s.opts, validate)
}

func (s *server) Start() {
	s.app.Logger.Fatal(s.app.Start(s.opts.Address))
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Shule API!")
}
