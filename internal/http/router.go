package http

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/waktsa/elearning/internal/cache"
	"github.com/waktsa/elearning/internal/domain/user"
	"github.com/waktsa/elearning/internal/http/handlers"
	"github.com/waktsa/elearning/internal/http/middlewares"
	"github.com/waktsa/elearning/internal/observability"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const maxBodyBytes = 1 << 20

type Deps struct {
	Log *slog.Logger
	Env string

	Guard    middlewares.Guard
	Accounts handlers.Accounts
	Users    handlers.SubscriptionUsers
	Courses  handlers.CoursesStore
	Policy   handlers.SubscriptionPolicy

	// optional
	CourseCache cache.CourseLists
	Receipts    handlers.ReceiptQueue
	Prom        *observability.Prom
	Gatherer    prometheus.Gatherer
	Readiness   []handlers.ReadinessCheck
	ReadyExtra  func() gin.H

	CookieSecure       bool
	CORSAllowedOrigins []string
	LoginRatePerMinute int
}

func NewRouter(d Deps) *gin.Engine {
	if d.Env != "dev" && d.Env != "test" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// middleware
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(observability.ServiceName))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(d.Log))
	r.Use(middlewares.SecurityHeaders(d.CookieSecure))
	r.Use(middlewares.CORSMiddleware(d.CORSAllowedOrigins))

	var (
		authObs     middlewares.DecisionObserver
		purchaseObs handlers.PurchaseObserver
	)
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
		authObs = d.Prom
		purchaseObs = d.Prom
	}

	authMW := middlewares.NewAuthMiddleware(d.Guard, authObs)
	requireAuth := authMW.RequireAuth()
	adminOnly := authMW.RequireRole(user.RoleAdmin)
	subscribed := authMW.RequireSubscription()
	limitBody := middlewares.MaxBodyBytes(maxBodyBytes)
	requireJSON := middlewares.RequireJSON()

	// service surface
	health := handlers.NewHealthHandler(d.ReadyExtra, d.Readiness...)
	r.GET("/", health.Home)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)

	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	// users
	loginRate := d.LoginRatePerMinute
	if loginRate <= 0 {
		loginRate = 20
	}
	loginLimiter := middlewares.NewRateLimiter(loginRate, time.Minute)

	authHandler := handlers.NewAuthHandler(d.Accounts, d.Users, d.CookieSecure)

	userGroup := r.Group("/user")
	{
		userGroup.POST("/register", limitBody, requireJSON, authHandler.Register)
		userGroup.POST("/login", loginLimiter.RateLimiterMiddleware(middlewares.KeyByIP), limitBody, requireJSON, authHandler.Login)
		userGroup.POST("/logout", authHandler.Logout)
		userGroup.GET("/me", requireAuth, authHandler.Me)
	}
	r.GET("/users", requireAuth, adminOnly, authHandler.ListUsers)

	studentGroup := r.Group("/student")
	{
		studentGroup.POST("/register", limitBody, requireJSON, authHandler.RegisterStudent)
		studentGroup.POST("/login", loginLimiter.RateLimiterMiddleware(middlewares.KeyByIP), limitBody, requireJSON, authHandler.Login)
	}

	// courses
	var coursesHandler *handlers.CoursesHandler
	if d.CourseCache != nil {
		coursesHandler = handlers.NewCoursesHandlerWithCache(d.Courses, d.CourseCache)
	} else {
		coursesHandler = handlers.NewCoursesHandler(d.Courses)
	}

	courseGroup := r.Group("/course")
	{
		courseGroup.GET("", requireAuth, subscribed, coursesHandler.ListCourses)
		courseGroup.GET("/:query", requireAuth, subscribed, coursesHandler.FilterCourses)
		courseGroup.POST("/add", requireAuth, adminOnly, limitBody, requireJSON, coursesHandler.CreateCourse)
		courseGroup.PUT("/update/:id", requireAuth, adminOnly, limitBody, requireJSON, coursesHandler.UpdateCourse)
		courseGroup.DELETE("/delete/:id", requireAuth, adminOnly, coursesHandler.DeleteCourse)
	}

	// subscriptions
	subsHandler := handlers.NewSubscriptionsHandler(d.Users, d.Policy, d.Receipts, purchaseObs)

	subGroup := r.Group("/subscription", requireAuth)
	{
		subGroup.POST("/purchase", subsHandler.PurchaseSelf)
		subGroup.POST("/purchase/:id", adminOnly, subsHandler.PurchaseFor)
		subGroup.GET("/status", subsHandler.Status)
		subGroup.GET("/check/:id", adminOnly, subsHandler.CheckFor)
	}
	r.GET("/students", requireAuth, adminOnly, subsHandler.ListStudents)

	return r
}
