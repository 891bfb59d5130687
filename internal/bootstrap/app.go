package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"taskloop-sync/internal/config"
	httpHandler "taskloop-sync/internal/handler/http"
	wsHandler "taskloop-sync/internal/handler/websocket"
	"taskloop-sync/internal/hub"
	"taskloop-sync/internal/infra/setup"
	"taskloop-sync/internal/middleware"
	"taskloop-sync/internal/repository"
	"taskloop-sync/internal/service"
)

// App is the bridge: a local HTTP/websocket server that hosts room
// controllers for UIs on this device.
type App struct {
	Config     *config.Config
	Log        *logrus.Logger
	Stores     *setup.Stores
	Hub        *hub.Hub
	HttpServer *http.Server
}

// NewApp loads configuration from configPath and wires every component.
func NewApp(configPath string) (*App, error) {
	// 1. config
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return nil, err
	}

	// 2. logger
	log := setup.NewLogger(cfg.AppEnv, cfg.LogLevel, os.Stdout)
	setup.ConfigureStandardLogger(log)
	log.Infof("Logger initialized (Level: %s)", log.GetLevel())

	// 3. storage
	stores, err := setup.InitStores(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to init stores: %w", err)
	}
	log.WithField("backend", cfg.Store.Backend).Info("Device store initialized")

	app, err := newApp(cfg, log, stores, setup.InitAPIs(cfg, stores.Device))
	if err != nil {
		_ = stores.Close()
		return nil, err
	}
	return app, nil
}

// newApp wires services, hub and router around ready infrastructure.
func newApp(cfg *config.Config, log *logrus.Logger, stores *setup.Stores, apis *setup.APIs) (*App, error) {
	// 4. services
	authService := service.NewAuthService(apis.Auth, stores.Device)
	roomService := service.NewRoomService(apis.Rooms, cfg.ShareBaseURL, cfg.Sync.CreateCheckInterval)

	// 5. hub
	factory := func(roomUUID string, nav service.Navigator) *service.SessionSync {
		return service.NewSessionSync(roomUUID, service.SyncDeps{
			Auth:      apis.Auth,
			Rooms:     apis.Rooms,
			Tasks:     apis.Tasks,
			Navigator: nav,
		}, service.SyncOptions{PollInterval: cfg.Sync.PollInterval})
	}
	hubInstance := hub.NewHub(factory, hub.Options{
		Boards:   stores.Boards,
		BoardTTL: cfg.Bridge.BoardCacheTTL,
		OnLogin: func(from string) {
			if err := stores.Device.Set(context.Background(), repository.KeyAuthRedirect, from); err != nil {
				log.WithError(err).Warn("Failed to remember route for after login")
			}
		},
	})

	// 6. handlers
	authHandler := httpHandler.NewAuthHandler(authService)
	roomHandler := httpHandler.NewRoomHandler(roomService, hubInstance)
	taskHandler := httpHandler.NewTaskHandler(hubInstance)
	wsH := wsHandler.NewWebSocketHandler(hubInstance, cfg.Bridge.AllowedOrigin)

	// 7. router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(log))
	router.Use(CORSMiddleware(cfg.Bridge.AllowedOrigin))

	guard := middleware.RequireSession(authService)
	mutating := []gin.HandlerFunc{guard}
	if stores.Redis != nil {
		mutating = append(mutating, middleware.RateLimit(stores.Redis, cfg.Store.KeyPrefix, cfg.Bridge.RateLimitMax, cfg.Bridge.RateLimitWindow))
	}

	api := router.Group("/api")
	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/login", authHandler.Login)
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/logout", authHandler.Logout)
		authRoutes.GET("/redirect", authHandler.Redirect)
		authRoutes.GET("/me", guard, authHandler.Me)
	}
	reads := api.Group("/rooms", guard)
	{
		reads.GET("", roomHandler.ListRooms)
		reads.GET("/:uuid/board", roomHandler.Board)
		reads.GET("/:uuid/share", roomHandler.ShareRoom)
	}
	writes := api.Group("/rooms", mutating...)
	{
		writes.POST("", roomHandler.CreateRoom)
		writes.PUT("/:uuid", roomHandler.RenameRoom)
		writes.DELETE("/:uuid", roomHandler.DeleteRoom)
		writes.POST("/:uuid/leave", roomHandler.LeaveRoom)
		writes.POST("/:uuid/tasks", taskHandler.AddTask)
		writes.POST("/:uuid/tasks/:taskId/toggle", taskHandler.ToggleTask)
		writes.PUT("/:uuid/tasks/:taskId", taskHandler.EditTask)
		writes.DELETE("/:uuid/tasks/:taskId", taskHandler.DeleteTask)
	}
	router.GET("/ws/rooms/:uuid", guard, wsH.HandleConnection)
	router.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "pong"}) })

	// 8. server
	httpServer := &http.Server{
		Addr:              ":" + cfg.Bridge.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		Config:     cfg,
		Log:        log,
		Stores:     stores,
		Hub:        hubInstance,
		HttpServer: httpServer,
	}, nil
}

// Start runs the hub loop and the HTTP server in the background.
func (a *App) Start() {
	go a.Hub.Run()
	a.Log.Info("Hub routine started")

	go func() {
		a.Log.Infof("HTTP server starting to listen on %s", a.HttpServer.Addr)
		if err := a.HttpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Log.Fatalf("Failed to start HTTP server: %v", err)
		}
		a.Log.Info("HTTP server stopped listening.")
	}()
}

// Shutdown stops accepting requests, closes every room controller and
// releases the storage backend.
func (a *App) Shutdown() {
	a.Log.Info("Shutting down application...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.HttpServer.Shutdown(ctx); err != nil {
		a.Log.Errorf("Error shutting down HTTP server: %v", err)
	} else {
		a.Log.Info("HTTP server shut down gracefully.")
	}

	if a.Hub != nil {
		a.Hub.Shutdown()
	}

	if a.Stores != nil {
		if err := a.Stores.Close(); err != nil {
			a.Log.Errorf("Error closing store: %v", err)
		}
	}
	a.Log.Info("Application shutdown complete.")
}

// LoggerMiddleware logs every request with its status and latency.
func LoggerMiddleware(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		c.Next()
		latency := time.Since(startTime)
		statusCode := c.Writer.Status()
		path := c.Request.URL.Path
		if c.Request.URL.RawQuery != "" {
			path = path + "?" + c.Request.URL.RawQuery
		}

		entry := log.WithFields(logrus.Fields{
			"status_code": statusCode,
			"latency_ms":  latency.Milliseconds(),
			"client_ip":   c.ClientIP(),
			"method":      c.Request.Method,
			"path":        path,
		})
		if errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String(); errorMessage != "" {
			entry.Error(errorMessage)
			return
		}
		switch {
		case statusCode >= 500:
			entry.Error("Server error")
		case statusCode >= 400:
			entry.Warn("Client error")
		default:
			entry.Info("Request handled")
		}
	}
}

// CORSMiddleware lets the local UI call the bridge from its dev server.
// allowedOrigin "" or "*" accepts any origin.
func CORSMiddleware(allowedOrigin string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if allowedOrigin == "" || allowedOrigin == "*" {
		cfg.AllowOriginFunc = func(string) bool { return true }
	} else {
		cfg.AllowOrigins = []string{allowedOrigin}
	}
	return cors.New(cfg)
}
