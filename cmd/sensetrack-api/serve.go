package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/whoamaiii/sensetrack/internal/config"
	"github.com/whoamaiii/sensetrack/internal/device"
	"github.com/whoamaiii/sensetrack/internal/handlers"
	"github.com/whoamaiii/sensetrack/internal/insights"
	"github.com/whoamaiii/sensetrack/internal/logger"
	"github.com/whoamaiii/sensetrack/internal/middleware"
	"github.com/whoamaiii/sensetrack/internal/repository"
	"github.com/whoamaiii/sensetrack/internal/service"
	"github.com/whoamaiii/sensetrack/internal/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long:  `Start the HTTP API server and listen for requests.`,
	RunE:  runServe,
}

var (
	port       string
	configFile string
)

func init() {
	serveCmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (overrides config)")
	serveCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to config file (enables hot reload)")
}

func runServe(cmd *cobra.Command, args []string) error {
	// Load configuration. A config file enables hot reload of the
	// analytics thresholds.
	var cfg *config.Config
	var holder *config.Holder
	if configFile != "" {
		var err error
		holder, err = config.NewHolder(configFile, logger.Default())
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg = holder.Get()
	} else {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
	}

	// Override port from flag if provided
	if port != "" {
		cfg.Server.Port = port
	}

	log := logger.NewSlogLogger(logger.Config{
		Level:  logger.ParseLevel(cfg.Logging.Level),
		Format: cfg.Logging.Format,
	})
	logger.SetDefault(log)

	log.Info("starting sensetrack api server",
		logger.String("env", cfg.Server.Env),
		logger.String("database", cfg.Database.Path),
	)

	// Initialize storage
	db, err := repository.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	// Initialize repositories
	studentRepo := repository.NewStudentRepository(db)
	trackingRepo := repository.NewTrackingRepository(db)
	goalRepo := repository.NewGoalRepository(db)

	// Initialize the analytics engine and the background export worker
	engine := insights.NewEngine(cfg.Analytics, log)
	jobs := worker.New(log, 16)

	serverCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go jobs.Run(serverCtx)

	// Drain worker messages from queued (async) export jobs into the log.
	go func() {
		for msg := range jobs.Messages() {
			if msg.Type == worker.MessageError {
				log.Error("export job failed",
					logger.String("request_id", msg.ID),
					logger.String("error", msg.Error),
				)
			} else if msg.Type == worker.MessageSuccess {
				log.Info("export job completed",
					logger.String("request_id", msg.ID),
					logger.String("kind", string(msg.Kind)),
					logger.Int("bytes", len(msg.Content)),
				)
			}
		}
	}()

	// Initialize services
	insightsService := service.NewInsightsService(trackingRepo, goalRepo, engine, cfg.Analytics, log)
	trackingService := service.NewTrackingService(trackingRepo, studentRepo, insightsService)
	studentService := service.NewStudentService(studentRepo, insightsService)
	exportService := service.NewExportService(trackingRepo, jobs)

	// New analytics thresholds change the task cache key, so previously
	// cached results miss without explicit invalidation.
	if holder != nil {
		if err := holder.WatchFile(); err != nil {
			log.Warn("config hot reload disabled", logger.Err(err))
		} else {
			defer holder.Stop()
		}
		holder.OnChange(func(newCfg *config.Config) {
			engine.UpdateConfig(newCfg.Analytics)
			insightsService.UpdateConfig(newCfg.Analytics)
		})
	}

	// Initialize handlers
	studentHandler := handlers.NewStudentHandler(studentService)
	trackingHandler := handlers.NewTrackingHandler(trackingService)
	insightsHandler := handlers.NewInsightsHandler(insightsService)
	exportHandler := handlers.NewExportHandler(exportService)

	// Precompute insights while the server is quiet, governed by the
	// device gate policy. Request traffic counts as activity.
	activity := device.NewActivityRecorder()
	gate := device.NewGate(device.Probes{
		Available: true,
		Activity:  activity,
		Memory:    device.NewRuntimeMemoryProbe(),
	})
	// Read the policy through the holder so a hot reload applies to the
	// next tick; without a config file the startup policy is fixed.
	precomputePolicy := func() config.PrecomputationConfig {
		if holder != nil {
			return holder.Get().Analytics.Precomputation
		}
		return cfg.Analytics.Precomputation
	}
	go precomputeLoop(serverCtx, gate, precomputePolicy, studentRepo, insightsService, log)

	// Set Gin mode based on environment
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())

	// Middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.Logger())
	router.Use(middleware.RateLimit())
	router.Use(func(c *gin.Context) {
		activity.Touch(time.Now())
		c.Next()
	})

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
			"env":    cfg.Server.Env,
		})
	})

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.GET("/students", studentHandler.ListStudents)
		v1.POST("/students", studentHandler.CreateStudent)
		v1.GET("/students/:studentId", studentHandler.GetStudent)
		v1.DELETE("/students/:studentId", studentHandler.DeleteStudent)

		v1.GET("/students/:studentId/entries", trackingHandler.GetEntries)
		v1.POST("/students/:studentId/entries", trackingHandler.CreateEntry)

		v1.GET("/students/:studentId/insights", insightsHandler.GetStudentInsights)
		v1.POST("/students/:studentId/insights/refresh", insightsHandler.RefreshStudentInsights)
		v1.GET("/students/:studentId/alerts", insightsHandler.GetStudentAlerts)

		v1.POST("/exports", middleware.RateLimitExports(), exportHandler.CreateExport)
	}

	log.Info("server listening", logger.String("port", cfg.Server.Port))
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// precomputeLoop periodically warms the insights cache for known students
// when the gate allows it. Cached results make the warm-up cheap. The
// policy is evaluated every tick so config reloads take effect.
func precomputeLoop(
	ctx context.Context,
	gate *device.Gate,
	policy func() config.PrecomputationConfig,
	studentRepo repository.StudentRepository,
	insightsService service.InsightsService,
	log logger.Logger,
) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		precomputeTick(ctx, gate, policy, studentRepo, insightsService, log)
	}
}

func precomputeTick(
	ctx context.Context,
	gate *device.Gate,
	policy func() config.PrecomputationConfig,
	studentRepo repository.StudentRepository,
	insightsService service.InsightsService,
	log logger.Logger,
) {
	if !gate.CanPrecompute(ctx, policy()) {
		return
	}

	students, err := studentRepo.List(ctx, 100, 0)
	if err != nil {
		log.Warn("precompute skipped, listing students failed", logger.Err(err))
		return
	}
	for _, student := range students {
		if ctx.Err() != nil {
			return
		}
		if _, err := insightsService.GetInsights(ctx, student.ID); err != nil {
			log.Debug("precompute failed for student",
				logger.String("student_id", student.ID),
				logger.Err(err),
			)
		}
	}
}
