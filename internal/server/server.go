package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/Maahivarma/Exam-portal/internal/analytics"
	"github.com/Maahivarma/Exam-portal/internal/api"
	"github.com/Maahivarma/Exam-portal/internal/auth"
	"github.com/Maahivarma/Exam-portal/internal/blob"
	"github.com/Maahivarma/Exam-portal/internal/curation"
	"github.com/Maahivarma/Exam-portal/internal/event"
	"github.com/Maahivarma/Exam-portal/internal/generator"
	"github.com/Maahivarma/Exam-portal/internal/leaderboard"
	"github.com/Maahivarma/Exam-portal/internal/llm"
	"github.com/Maahivarma/Exam-portal/internal/notify"
	"github.com/Maahivarma/Exam-portal/internal/proctor"
	"github.com/Maahivarma/Exam-portal/internal/score"
	"github.com/Maahivarma/Exam-portal/internal/session"
	"github.com/Maahivarma/Exam-portal/internal/store"
	"github.com/Maahivarma/Exam-portal/internal/store/memory"
	"github.com/Maahivarma/Exam-portal/internal/store/postgres"
	"github.com/Maahivarma/Exam-portal/internal/telemetry"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"

	GraderBaseline   = "baseline"
	GraderSimilarity = "similarity"
)

type RedisConfig struct {
	// Addrs empty disables the features backed by this client.
	Addrs  []string
	Pass   string
	Prefix string
}

type Config struct {
	HTTP struct {
		Port int32
	}

	GRPC struct {
		Port int32
	}

	Log telemetry.LogConfig

	Storage struct {
		// Driver is postgres or memory. The memory store is seeded with the demo catalog.
		Driver string
	}

	Postgres postgres.Config

	Redis struct {
		Leaderboard RedisConfig
		Pubsub      RedisConfig
	}

	LLM llm.Config

	Generator struct {
		Timeout time.Duration
	}

	Session struct {
		LateGrace time.Duration
	}

	Scoring struct {
		// Grader is baseline or similarity.
		Grader string
	}

	Auth auth.Config
	Blob blob.Config

	Notify struct {
		Telegram notify.TelegramConfig
	}
}

// DefaultConfig is overridden by the config file and the environment.
func DefaultConfig() Config {
	var c Config
	c.HTTP.Port = 8000
	c.GRPC.Port = 9000
	c.Log = telemetry.LogConfig{Level: "info", Format: "text"}
	c.Storage.Driver = StorageMemory
	c.Redis.Leaderboard.Prefix = "exam"
	c.Redis.Pubsub.Prefix = "exam"
	c.LLM = llm.DefaultConfig()
	c.Generator.Timeout = 30 * time.Second
	c.Session.LateGrace = 30 * time.Second
	c.Scoring.Grader = GraderBaseline
	c.Auth = auth.DefaultConfig()
	c.Blob = blob.DefaultConfig()
	return c
}

func (c Config) Validate() error {
	switch c.Storage.Driver {
	case StorageMemory, StoragePostgres:
	default:
		return fmt.Errorf("storage.driver must be %s or %s, got %q", StorageMemory, StoragePostgres, c.Storage.Driver)
	}

	switch c.Scoring.Grader {
	case GraderBaseline, GraderSimilarity:
	default:
		return fmt.Errorf("scoring.grader must be %s or %s, got %q", GraderBaseline, GraderSimilarity, c.Scoring.Grader)
	}

	if c.Session.LateGrace < 0 {
		return fmt.Errorf("session.lategrace must not be negative")
	}

	return nil
}

type Server struct {
	c Config

	eb *event.Bus

	infra struct {
		store store.Store

		redis struct {
			leaderboard redis.UniversalClient
			pubsub      redis.UniversalClient
		}

		blob blob.Store
		auth *auth.Authenticator
	}

	service struct {
		session     *session.Service
		score       *score.Service
		proctor     *proctor.Service
		curation    *curation.Service
		analytics   *analytics.Service
		leaderboard *leaderboard.Service
		notifier    *notify.Notifier
	}

	health *health.Server
	http   *http.Server
	grpc   *grpc.Server
}

func Init(ctx context.Context, c Config) (*Server, error) {
	s := &Server{c: c}

	s.eb = event.NewBus()

	if err := s.initInfra(ctx); err != nil {
		return nil, fmt.Errorf("server: init infra: %w", err)
	}

	if err := s.initService(ctx); err != nil {
		return nil, fmt.Errorf("server: init service: %w", err)
	}

	s.initAPI()
	return s, nil
}

func (s *Server) initInfra(ctx context.Context) error {
	if err := s.initStore(ctx); err != nil {
		return fmt.Errorf("store: %w", err)
	}

	if err := s.initRedis(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	var err error
	s.infra.blob, err = blob.New(s.c.Blob)
	if err != nil {
		return err
	}

	s.infra.auth, err = auth.New(s.c.Auth)
	if err != nil {
		return err
	}

	return nil
}

func (s *Server) initStore(ctx context.Context) error {
	switch s.c.Storage.Driver {
	case StorageMemory:
		m := memory.New()
		m.Seed()
		s.infra.store = m
		slog.WarnContext(ctx, "server: using in-memory storage, data is lost on restart")
	case StoragePostgres:
		pg, err := postgres.Connect(ctx, s.c.Postgres)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		s.infra.store = pg
	default:
		return fmt.Errorf("unknown storage driver %q", s.c.Storage.Driver)
	}

	return nil
}

func (s *Server) initRedis() error {
	connect := func(c RedisConfig) (redis.UniversalClient, error) {
		if len(c.Addrs) == 0 {
			return nil, nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		r := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    c.Addrs,
			Password: c.Pass,
		})

		if err := telemetry.MonitorRedis(r); err != nil {
			return nil, err
		}

		if err := r.Ping(ctx).Err(); err != nil {
			return nil, err
		}

		return r, nil
	}

	var err error
	s.infra.redis.leaderboard, err = connect(s.c.Redis.Leaderboard)
	if err != nil {
		return fmt.Errorf("leaderboard: %w", err)
	}

	s.infra.redis.pubsub, err = connect(s.c.Redis.Pubsub)
	if err != nil {
		return fmt.Errorf("pubsub: %w", err)
	}

	return nil
}

func (s *Server) initService(ctx context.Context) error {
	st := s.infra.store

	s.service.session = session.NewService(session.Config{
		Store:     st,
		EventBus:  s.eb,
		LateGrace: s.c.Session.LateGrace,
	})

	var grader score.Grader
	switch s.c.Scoring.Grader {
	case GraderSimilarity:
		grader = score.NewSimilarityGrader()
	default:
		grader = score.NewBaselineGrader()
	}

	s.service.score = score.NewService(score.Config{
		EventBus: s.eb,
		Catalog:  st,
		Session:  s.service.session,
		Engine:   score.NewEngine(grader),
	})

	s.service.proctor = proctor.NewService(proctor.Config{
		Store:            st,
		Blob:             s.infra.blob,
		MaxSnapshotBytes: s.c.Blob.MaxBytes,
	})

	gen, err := s.newGenerator(ctx)
	if err != nil {
		return err
	}

	s.service.curation = curation.NewService(curation.Config{
		EventBus:  s.eb,
		Store:     st,
		Generator: gen,
	})

	s.service.analytics = analytics.NewService(analytics.Config{Store: st})

	if s.infra.redis.leaderboard != nil {
		s.service.leaderboard = leaderboard.NewService(leaderboard.Config{
			EventBus: s.eb,
			Redis:    s.infra.redis.leaderboard,
			Prefix:   s.c.Redis.Leaderboard.Prefix,
		})
	}

	nc := notify.Config{EventBus: s.eb, Prefix: s.c.Redis.Pubsub.Prefix}
	if s.infra.redis.pubsub != nil {
		nc.Redis = s.infra.redis.pubsub
	}
	if s.c.Notify.Telegram.Enabled() {
		tg, err := notify.NewTelegram(s.c.Notify.Telegram)
		if err != nil {
			return err
		}
		nc.Messenger = tg
	}
	s.service.notifier = notify.New(nc)

	return nil
}

func (s *Server) newGenerator(ctx context.Context) (generator.Generator, error) {
	gc := generator.Config{
		Timeout:   s.c.Generator.Timeout,
		MaxTokens: s.c.LLM.MaxTokens,
	}

	p, err := llm.NewProvider(ctx, s.c.LLM)
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		slog.InfoContext(ctx, "server: no LLM provider configured, questions come from templates")
	case err != nil:
		return nil, err
	default:
		gc.Provider = p
		slog.InfoContext(ctx, "server: LLM question generation enabled", "provider", s.c.LLM.Provider, "model", p.ModelID())
	}

	return generator.New(gc), nil
}

func (s *Server) initAPI() {
	e := gin.New()
	e.Use(gin.Recovery(), telemetry.GinMiddleware())
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))
	e.GET("/healthz", s.healthz)
	pprof.Register(e, "/debug/pprof")

	api.New(api.Config{
		Catalog:        s.infra.store,
		Session:        s.service.session,
		Score:          s.service.score,
		Proctor:        s.service.proctor,
		Curation:       s.service.curation,
		Analytics:      s.service.analytics,
		Leaderboard:    s.service.leaderboard,
		Auth:           s.infra.auth,
		MaxUploadBytes: s.c.Blob.MaxBytes,
	}).Register(e)

	s.grpc = grpc.NewServer(telemetry.GRPCServerInterceptors()...)
	s.health = health.NewServer()
	healthpb.RegisterHealthServer(s.grpc, s.health)
	reflection.Register(s.grpc)

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.c.HTTP.Port),
		Handler:           e,
		ReadHeaderTimeout: 60 * time.Second,
	}
}

// Handler is the HTTP handler served by Start.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.infra.store.Ping(ctx); err != nil {
		slog.WarnContext(ctx, "server: health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Start serves HTTP and gRPC until Shutdown is called or one of them fails.
func (s *Server) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.c.GRPC.Port))
	if err != nil {
		return fmt.Errorf("server: grpc listen: %w", err)
	}

	var eg errgroup.Group
	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: gRPC listening on port %d", s.c.GRPC.Port))
		return s.grpc.Serve(lis)
	})

	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: HTTP listening on port %d", s.c.HTTP.Port))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	return eg.Wait()
}

func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.health.Shutdown()
	s.grpc.GracefulStop()
	if err := s.http.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "server: shutdown HTTP failed", "error", err)
	}

	// Handlers may still write to redis and the store while draining.
	s.eb.Stop()

	for _, r := range []redis.UniversalClient{s.infra.redis.leaderboard, s.infra.redis.pubsub} {
		if r == nil {
			continue
		}
		if err := r.Close(); err != nil {
			slog.ErrorContext(ctx, "server: close redis failed", "error", err)
		}
	}
	s.infra.store.Close()

	slog.InfoContext(ctx, "server: shutdown completed")
}
