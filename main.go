package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/storebridge/storebridge/api"
	"github.com/storebridge/storebridge/cache"
	"github.com/storebridge/storebridge/config"
	"github.com/storebridge/storebridge/db"
	"github.com/storebridge/storebridge/middleware"
	"github.com/storebridge/storebridge/providers"
	"github.com/storebridge/storebridge/security"
	"github.com/storebridge/storebridge/services"
	"github.com/storebridge/storebridge/stores"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorPurple = "\033[35m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

func printBanner() {
	fmt.Printf("%s%s", colorCyan, colorBold)
	fmt.Println("╔══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                                                              ║")
	fmt.Println("║  🔗 StoreBridge Command Sync                                ║")
	fmt.Println("║                                                              ║")
	fmt.Println("║  Signed storefront-to-ERP entity synchronization            ║")
	fmt.Println("║                                                              ║")
	fmt.Println("╚══════════════════════════════════════════════════════════════╝")
	fmt.Printf("%s", colorReset)
}

func printStep(step, message string) {
	fmt.Printf("%s[%s]%s %s%s%s\n", colorBlue, step, colorReset, colorBold, message, colorReset)
}

func printSuccess(message string) {
	fmt.Printf("%s✓%s %s\n", colorGreen, colorReset, message)
}

func printWarning(message string) {
	fmt.Printf("%s⚠%s %s\n", colorYellow, colorReset, message)
}

func printError(message string) {
	fmt.Printf("%s✗%s %s\n", colorRed, colorReset, message)
}

func printInfo(message string) {
	fmt.Printf("%sℹ%s %s\n", colorCyan, colorReset, message)
}

func main() {
	printBanner()
	fmt.Println()

	printStep("1/8", "Loading configuration...")
	cfg, err := config.LoadConfig()
	if err != nil {
		printError(fmt.Sprintf("Failed to load configuration: %v", err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		printError(fmt.Sprintf("Configuration validation failed: %v", err))
		os.Exit(1)
	}
	printSuccess(fmt.Sprintf("Configuration loaded (role: %s)", cfg.Role))

	printStep("2/8", "Connecting to database...")
	gdb, err := db.Connect(db.PoolConfig{
		URL:             cfg.GetDatabaseURL(),
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.MaxLifetime,
		ConnMaxIdleTime: cfg.Database.MaxIdleTime,
	})
	if err != nil {
		printError(fmt.Sprintf("Failed to connect to database: %v", err))
		os.Exit(1)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		printError(fmt.Sprintf("Failed to get database instance: %v", err))
		os.Exit(1)
	}
	defer sqlDB.Close()
	printSuccess(fmt.Sprintf("Connected to PostgreSQL at %s:%d", cfg.Database.Host, cfg.Database.Port))

	printStep("3/8", "Running migrations...")
	if err := db.Migrate(gdb); err != nil {
		printError(fmt.Sprintf("Migrations failed: %v", err))
		os.Exit(1)
	}
	printSuccess("Migrations applied")

	printStep("4/8", "Connecting to Redis...")
	var nonceCache *cache.RedisCache
	if cfg.Redis.Enabled {
		nonceCache, err = cache.NewRedisCache(cache.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			printWarning(fmt.Sprintf("Failed to connect to Redis: %v (nonce checks fall back to the database)", err))
			nonceCache = nil
		} else {
			defer nonceCache.Close()
			printSuccess(fmt.Sprintf("Connected to Redis at %s:%d", cfg.Redis.Host, cfg.Redis.Port))
		}
	} else {
		printInfo("Redis disabled; nonce checks use the database only")
	}

	printStep("5/8", "Initializing stores...")
	commandStore := stores.NewCommandStore(gdb)
	nonceStore := stores.NewNonceStore(gdb)
	idempotencyStore := stores.NewIdempotencyStore(gdb)
	skuSkipStore := stores.NewSkuSkipStore(gdb)
	printSuccess("Stores initialized")

	printStep("6/8", "Initializing protocol components...")
	replayGuard := security.NewReplayGuard(nonceStore, cfg.Connection.TimestampWindow())
	if nonceCache != nil {
		replayGuard = replayGuard.WithCache(nonceCache)
	}
	verifier := middleware.NewSignatureVerifier(cfg.Connection.InstanceID, cfg.Connection.SharedSecret, replayGuard)
	rateLimiter := security.NewRateLimiter()
	defer rateLimiter.Close()
	printSuccess("Replay guard and signature verifier ready")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go nonceStore.Sweep(rootCtx, cfg.Connection.TimestampWindow())

	printStep("7/8", "Wiring role services...")
	router := mux.NewRouter()
	router.Use(middleware.CorrelationID)
	router.Use(middleware.Logging)
	router.Use(middleware.Recovery)

	openRouter := router.PathPrefix("/api/v1").Subrouter()
	signedRouter := router.PathPrefix("/api/v1").Subrouter()
	signedRouter.Use(verifier.Middleware)

	erp := providers.NewMemoryERP()
	api.NewHealthHandler(cfg.Role, erp).RegisterRoutes(openRouter)

	if cfg.IsManager() {
		executorClient := providers.NewExecutorClient(
			cfg.Connection.ExecutorBaseURL,
			cfg.Connection.InstanceID,
			cfg.Connection.SharedSecret,
			cfg.Dispatch.AttemptTimeout,
		)
		dispatcher := services.NewDispatcher(commandStore, executorClient, &cfg.Connection, cfg.Dispatch)
		go dispatcher.Run(rootCtx)

		storefront := providers.NewHTTPStorefront(cfg.Connection.StorefrontBaseURL, cfg.Connection.StorefrontToken)
		coordinator := services.NewPullCoordinator(
			storefront,
			services.NewNormalizer(),
			dispatcher,
			skuSkipStore,
			rateLimiter,
			&cfg.Connection,
			cfg.Dispatch,
		)

		api.NewPullHandler(coordinator).RegisterRoutes(signedRouter)
		api.NewCommandHandler(commandStore).RegisterRoutes(openRouter)
		api.NewSkipHandler(skuSkipStore).RegisterRoutes(openRouter)
		printSuccess("Manager services ready (dispatcher running)")
	}

	if cfg.IsExecutor() {
		applier := services.NewApplier(&cfg.Connection, idempotencyStore, skuSkipStore, erp)
		api.NewReceiveHandler(applier).RegisterRoutes(signedRouter)

		managerClient := providers.NewManagerClient(
			cfg.Connection.ManagerBaseURL,
			cfg.Connection.InstanceID,
			cfg.Connection.SharedSecret,
			cfg.Dispatch.AttemptTimeout,
		)
		api.NewTriggerHandler(managerClient).RegisterRoutes(openRouter)
		if cfg.Role == config.RoleExecutor {
			api.NewSkipHandler(skuSkipStore).RegisterRoutes(openRouter)
		}
		printSuccess("Executor services ready")
	}

	printStep("8/8", "Starting HTTP server...")
	server := &http.Server{
		Addr:           ":" + cfg.Server.Port,
		Handler:        router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	fmt.Println()
	fmt.Printf("%s%s🎉 StoreBridge is ready!%s\n", colorGreen, colorBold, colorReset)
	fmt.Println()
	fmt.Printf("%s%sEndpoints:%s\n", colorPurple, colorBold, colorReset)
	fmt.Printf("  %s•%s Health:  %shttp://localhost:%s/api/v1/health%s\n", colorCyan, colorReset, colorYellow, cfg.Server.Port, colorReset)
	if cfg.IsExecutor() {
		fmt.Printf("  %s•%s Receive: %shttp://localhost:%s/api/v1/commands/receive%s\n", colorCyan, colorReset, colorYellow, cfg.Server.Port, colorReset)
	}
	if cfg.IsManager() {
		fmt.Printf("  %s•%s Pull:    %shttp://localhost:%s/api/v1/client/request_pull%s\n", colorCyan, colorReset, colorYellow, cfg.Server.Port, colorReset)
		fmt.Printf("  %s•%s Dead:    %shttp://localhost:%s/api/v1/commands/dead%s\n", colorCyan, colorReset, colorYellow, cfg.Server.Port, colorReset)
	}
	fmt.Println()
	fmt.Printf("%s%sEnvironment:%s %s%s%s\n", colorPurple, colorBold, colorReset, colorYellow, cfg.Environment, colorReset)
	fmt.Printf("%s%sRole:%s %s%s%s\n", colorPurple, colorBold, colorReset, colorYellow, cfg.Role, colorReset)
	fmt.Println()
	fmt.Printf("%s%sPress Ctrl+C to stop the server%s\n", colorYellow, colorBold, colorReset)
	fmt.Println()

	go func() {
		printInfo(fmt.Sprintf("Starting HTTP server on port %s...", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			printError(fmt.Sprintf("Server failed to start: %v", err))
			os.Exit(1)
		}
	}()

	<-rootCtx.Done()

	fmt.Println()
	printWarning("Shutting down StoreBridge...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		printError(fmt.Sprintf("Server forced to shutdown: %v", err))
		os.Exit(1)
	}

	printSuccess("StoreBridge stopped gracefully")
}
