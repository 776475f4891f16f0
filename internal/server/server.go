package server

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/tsuitodo/tasklist-backend/internal/database"
	"github.com/tsuitodo/tasklist-backend/internal/logger"
	"github.com/tsuitodo/tasklist-backend/internal/service"
)

type Server struct {
	port            int
	identityService service.IdentityService
	todoService     service.TodoService
	db              database.Service
}

func NewServer(identityService service.IdentityService, todoService service.TodoService, dbService database.Service) *http.Server {
	portStr := os.Getenv("PORT")
	if portStr == "" {
		portStr = "8080"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		logger.Logger.Warnf("Invalid PORT environment variable '%s'. Using default 8080. Error: %v", portStr, err)
		port = 8080
	}

	appServer := &Server{
		port:            port,
		identityService: identityService,
		todoService:     todoService,
		db:              dbService,
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", appServer.port),
		Handler:      appServer.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return server
}
