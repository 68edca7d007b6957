// Package server exposes Kiwi over HTTP: tasks, grades, courses and the
// integration proxies used by the web frontend.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/kiwidesk/kiwi/internal/calendar"
	"github.com/kiwidesk/kiwi/internal/config"
	"github.com/kiwidesk/kiwi/internal/mail"
	"github.com/kiwidesk/kiwi/internal/spotify"
	"github.com/kiwidesk/kiwi/internal/weather"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

// WeatherService is the forecast and geocoding backend.
type WeatherService interface {
	Current(ctx context.Context, lat, lon float64) (*weather.Current, error)
	Forecast(ctx context.Context, lat, lon float64) (*weather.Forecast, error)
	ReverseGeocode(ctx context.Context, lat, lon float64) weather.Place
}

// CourseFeed supplies course events.
type CourseFeed interface {
	Events(ctx context.Context) ([]calendar.Event, error)
	Location() *time.Location
}

// Player is the music session and playback backend.
type Player interface {
	Configured() bool
	LoginURL() (string, error)
	Exchange(ctx context.Context, state, code string) error
	Logout(ctx context.Context) error
	Connected(ctx context.Context) bool
	CurrentlyPlaying(ctx context.Context) (*spotify.NowPlaying, error)
	Recent(ctx context.Context, limit int) ([]spotify.RecentTrack, error)
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
}

// StartOpts holds configuration for the HTTP server. Integrations left nil
// are built from Config.
type StartOpts struct {
	DB     *gorm.DB
	Config *config.Config
	Logger *slog.Logger
	Port   int
	Out    io.Writer

	Weather WeatherService
	Feed    CourseFeed
	Mail    mail.Mailbox
	Player  Player

	Now func() time.Time // clock for course listings; nil means time.Now
}

// handler carries the dependencies shared by every route.
type handler struct {
	db      *gorm.DB
	cfg     *config.Config
	log     *slog.Logger
	weather WeatherService
	feed    CourseFeed
	mail    mail.Mailbox
	player  Player
	now     func() time.Time
}

func newHandler(opts StartOpts) (*handler, error) {
	if opts.DB == nil {
		return nil, errors.New("server: db is required")
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	h := &handler{
		db:      opts.DB,
		cfg:     cfg,
		log:     log,
		weather: opts.Weather,
		feed:    opts.Feed,
		mail:    opts.Mail,
		player:  opts.Player,
		now:     opts.Now,
	}
	if h.now == nil {
		h.now = time.Now
	}

	if h.weather == nil {
		h.weather = weather.New(weather.Opts{UserAgent: cfg.HTTP.UserAgent, Timeout: cfg.HTTP.Timeout})
	}
	if h.feed == nil && cfg.Hyperplanning.URL != "" {
		loc, err := time.LoadLocation(cfg.Hyperplanning.Timezone)
		if err != nil {
			return nil, fmt.Errorf("server: hyperplanning timezone: %w", err)
		}
		feed, err := calendar.NewFeed(calendar.FeedOpts{
			URL:       cfg.Hyperplanning.URL,
			Location:  loc,
			UserAgent: cfg.HTTP.UserAgent,
			Timeout:   cfg.HTTP.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("server: %w", err)
		}
		h.feed = feed
	}
	if h.mail == nil {
		h.mail = mail.New(mail.Opts{
			IMAPAddr:    mail.Addr(cfg.Mail.IMAPHost, cfg.Mail.IMAPPort),
			SMTPAddr:    mail.Addr(cfg.Mail.SMTPHost, cfg.Mail.SMTPPort),
			User:        cfg.Mail.User,
			Password:    cfg.Mail.Password,
			InsecureTLS: cfg.Mail.InsecureTLS,
		})
	}
	if h.player == nil {
		h.player = spotify.New(spotify.Opts{
			ClientID:     cfg.Spotify.ClientID,
			ClientSecret: cfg.Spotify.ClientSecret,
			RedirectURI:  cfg.Spotify.RedirectURI,
			Scopes:       cfg.Spotify.Scopes,
			Store:        spotify.NewDBStore(opts.DB, "spotify"),
		})
	}
	return h, nil
}

// NewRouter builds the gin engine with middleware and every route.
func NewRouter(opts StartOpts) (*gin.Engine, error) {
	h, err := newHandler(opts)
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(h.log))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     h.cfg.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}))
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	registerRoutes(router, h)
	return router, nil
}

// Start launches the HTTP server. It blocks until ctx is cancelled, then
// shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Port <= 0 && opts.Config != nil {
		opts.Port = opts.Config.Server.Port
	}
	if opts.Port <= 0 {
		opts.Port = 8000
	}

	gin.SetMode(gin.ReleaseMode)
	router, err := NewRouter(opts)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Kiwi API running at http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}
