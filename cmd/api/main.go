package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/waktsa/elearning/internal/account"
	"github.com/waktsa/elearning/internal/auth"
	"github.com/waktsa/elearning/internal/cache"
	"github.com/waktsa/elearning/internal/config"
	"github.com/waktsa/elearning/internal/db"
	"github.com/waktsa/elearning/internal/domain/course"
	"github.com/waktsa/elearning/internal/domain/user"
	"github.com/waktsa/elearning/internal/guard"
	httpx "github.com/waktsa/elearning/internal/http"
	"github.com/waktsa/elearning/internal/http/handlers"
	"github.com/waktsa/elearning/internal/notifications"
	"github.com/waktsa/elearning/internal/observability"
	"github.com/waktsa/elearning/internal/queue/worker"
	"github.com/waktsa/elearning/internal/repo/memory"
	"github.com/waktsa/elearning/internal/repo/postgres"
	"github.com/waktsa/elearning/internal/security"
	"github.com/waktsa/elearning/internal/subscription"
)

type userStore interface {
	Create(ctx context.Context, in user.NewUser) (user.User, error)
	FindByEmail(ctx context.Context, email string) (user.User, error)
	FindByID(ctx context.Context, id int64) (user.User, error)
	Save(ctx context.Context, u user.User) error
	List(ctx context.Context, role *user.Role) ([]user.User, error)
	AdminExists(ctx context.Context) (bool, error)
	Ping(ctx context.Context) error
}

type courseStore interface {
	Create(ctx context.Context, req course.CourseRequest) (course.Course, error)
	List(ctx context.Context, f course.Filter) ([]course.Course, error)
	Update(ctx context.Context, id int64, req course.CourseRequest) (course.Course, error)
	Delete(ctx context.Context, id int64) error
}

func main() {
	// no signing secret, no server
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracer, err := observability.InitTracer(ctx, observability.TracingConfig{
		Service:     observability.ServiceName,
		Env:         cfg.Env,
		Endpoint:    cfg.OTLPEndpoint,
		SampleRatio: cfg.TraceSampleRatio,
	})
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	// record store
	var (
		users     userStore
		courses   courseStore
		readiness []handlers.ReadinessCheck
	)

	switch cfg.StoreDriver {
	case "memory":
		log.Warn("using in-memory store; data is lost on restart")
		users = memory.NewUsersRepo()
		courses = memory.NewCoursesRepo()
	default:
		pool, err := db.NewPool(ctx, cfg.DBURL)
		if err != nil {
			return fmt.Errorf("connect db: %w", err)
		}
		defer pool.Close()

		if err := db.Migrate(pool); err != nil {
			return err
		}

		users = postgres.NewUsersRepo(pool, prom)
		courses = postgres.NewCoursesRepo(pool, prom)
	}
	readiness = append(readiness, handlers.ReadinessCheck{Name: "store", Check: users.Ping})

	// course cache
	var courseCache cache.CourseLists
	if cfg.RedisAddr != "" {
		rdb := cache.NewRedisClient(cache.RedisConfig{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer rdb.Close()

		redisLists := cache.NewRedisCourseLists(rdb, cfg.CourseCacheTTL, log)
		courseCache = redisLists
		readiness = append(readiness, handlers.ReadinessCheck{Name: "redis", Check: redisLists.Ping})
	} else {
		courseCache = cache.NewMemoryCourseLists(cfg.CourseCacheTTL)
	}

	// core
	tokens := auth.NewManager(cfg.JWT)
	policy := subscription.NewPolicy(users)
	g := guard.New(tokens, users, policy)

	accounts, err := account.NewService(users, security.NewHasher(security.DefaultParams), tokens)
	if err != nil {
		return err
	}

	seedCtx, seedCancel := config.WithTimeout(10 * time.Second)
	err = db.EnsureAdminUser(seedCtx, accounts, db.AdminFromConfig(cfg), log)
	seedCancel()
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	// receipts
	notifier := notifications.NewProtectedNotifier(notifications.NewLogNotifier(log), notifications.ProtectedNotifierConfig{})
	receipts := worker.New(worker.Config{Concurrency: cfg.ReceiptWorkers}, notifier, log, prom)
	receipts.Start(ctx)
	readiness = append(readiness, handlers.ReadinessCheck{Name: "receipts", Check: func(context.Context) error {
		if !receipts.Ready() {
			return worker.ErrStopped
		}
		return nil
	}})

	router := httpx.NewRouter(httpx.Deps{
		Log:                log,
		Env:                cfg.Env,
		Guard:              g,
		Accounts:           accounts,
		Users:              users,
		Courses:            courses,
		Policy:             policy,
		CourseCache:        courseCache,
		Receipts:           receipts,
		Prom:               prom,
		Gatherer:           reg,
		Readiness:          readiness,
		ReadyExtra:         func() gin.H { return gin.H{"receipts": receipts.Stats(), "notifier": notifier.State()} },
		CookieSecure:       cfg.CookieSecure,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		LoginRatePerMinute: cfg.LoginRatePerMinute,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		log.Info("server shutting down", "signal", sig.String())
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, shutdownCancel := config.WithTimeout(10 * time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "err", err)
	}

	if err := receipts.Stop(shutdownCtx); err != nil {
		log.Error("receipt worker did not drain", "err", err)
	}

	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Error("tracer shutdown failed", "err", err)
	}

	log.Info("shutdown complete")
	return nil
}
