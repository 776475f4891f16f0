package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/tsuitodo/tasklist-backend/internal/auth"
	"github.com/tsuitodo/tasklist-backend/internal/database"
	"github.com/tsuitodo/tasklist-backend/internal/domain"
	"github.com/tsuitodo/tasklist-backend/internal/logger"
	"github.com/tsuitodo/tasklist-backend/internal/repository"
	"github.com/tsuitodo/tasklist-backend/internal/server"
	"github.com/tsuitodo/tasklist-backend/internal/service"

	_ "github.com/joho/godotenv/autoload"
)

func gracefulShutdown(apiServer *http.Server, dbService database.Service, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	logger.Logger.Info("Shutting down gracefully, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	// Give in-flight requests 5 seconds to finish.
	ctxTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctxTimeout); err != nil {
		logger.Logger.Errorf("Server forced to shutdown with error: %v", err)
	}

	if dbService != nil {
		logger.Logger.Info("Closing database connection pool...")
		if err := dbService.Close(); err != nil {
			logger.Logger.Errorf("Error closing database connection pool: %v", err)
		}
	}

	logger.Logger.Info("Server exiting")

	done <- true
}

func main() {
	log := logger.Init()

	if err := auth.InitSessionSecret(); err != nil {
		log.Fatalf("Session secret: %v", err)
	}

	dbService := database.New()
	gormDB := dbService.GetDB()

	if err := gormDB.AutoMigrate(&domain.User{}, &domain.Todo{}, &domain.Task{}); err != nil {
		log.Fatalf("Failed to auto-migrate database: %v", err)
	}

	userRepo := repository.NewGormUserRepository(gormDB)
	todoRepo := repository.NewGormTodoRepository(gormDB)
	taskRepo := repository.NewGormTaskRepository(gormDB)

	identityService := service.NewIdentityService(userRepo)
	todoService := service.NewTodoService(todoRepo, taskRepo)

	apiServer := server.NewServer(identityService, todoService, dbService)

	done := make(chan bool, 1)
	go gracefulShutdown(apiServer, dbService, done)

	log.Infof("Starting server on %s", apiServer.Addr)
	err := apiServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("HTTP server ListenAndServe error: %v", err)
	}

	<-done
	log.Info("Graceful shutdown complete.")
}
