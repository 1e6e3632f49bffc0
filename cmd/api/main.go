package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"database/sql"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/mpetrov/bank-cards/internal/config"
	"github.com/mpetrov/bank-cards/internal/handler"
	"github.com/mpetrov/bank-cards/internal/integrations/cbr"
	"github.com/mpetrov/bank-cards/internal/middleware"
	"github.com/mpetrov/bank-cards/internal/repository"
	"github.com/mpetrov/bank-cards/internal/scheduler"
	"github.com/mpetrov/bank-cards/internal/service"
	"github.com/mpetrov/bank-cards/internal/utils/email"
)

func main() {
	_ = godotenv.Load()

	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database
	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}

	// Initialize layers
	repo := repository.NewRepository(db, []byte(cfg.EncryptionKey), cfg.HMACSecret, cfg.LockTimeout)

	var notifier service.Notifier
	if cfg.SMTPHost != "" {
		notifier = email.NewSender(cfg, logger)
	}

	userSvc := service.NewUserService(repo, cfg, logger)
	cardSvc := service.NewCardService(repo, repo, repo, notifier, logger)
	transferSvc := service.NewTransferService(repo, repo, notifier, logger)
	sweeper := service.NewSweeper(repo, logger)
	h := handler.NewHandler(userSvc, cardSvc, transferSvc, logger)
	cbrClient := cbr.NewClient(cfg, logger)

	// Daily expiry sweep
	sched, err := scheduler.New(sweeper, cfg.SweepSpec, logger)
	if err != nil {
		logger.Fatalf("Failed to set up scheduler: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	// Setup router
	r := mux.NewRouter()
	r.Use(middleware.RequestLogger(logger))

	// Public routes
	r.HandleFunc("/register", h.Register).Methods("POST")
	r.HandleFunc("/login", h.Login).Methods("POST")
	r.HandleFunc("/key-rate", func(w http.ResponseWriter, r *http.Request) {
		rate, err := cbrClient.GetKeyRate(r.Context())
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to get key rate: %v", err), http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]float64{"key_rate": rate})
	}).Methods("GET")

	// Protected routes
	authRouter := r.PathPrefix("/").Subrouter()
	authRouter.Use(middleware.AuthMiddleware(cfg))
	authRouter.HandleFunc("/transfer", h.Transfer).Methods("POST")
	authRouter.HandleFunc("/cards", h.ListCards).Methods("GET")
	authRouter.HandleFunc("/cards/{id:[0-9]+}", h.GetCard).Methods("GET")
	authRouter.HandleFunc("/cards/{id:[0-9]+}/balance", h.GetCardBalance).Methods("GET")
	authRouter.HandleFunc("/cards/{id:[0-9]+}/block", h.RequestBlock).Methods("POST")
	authRouter.HandleFunc("/cards/{id:[0-9]+}/transfers", h.ListCardTransfers).Methods("GET")

	// Admin routes
	authRouter.Handle("/cards", middleware.RequireAdmin(http.HandlerFunc(h.CreateCard))).Methods("POST")
	authRouter.Handle("/cards/{id:[0-9]+}/status", middleware.RequireAdmin(http.HandlerFunc(h.SetCardStatus))).Methods("PATCH")
	authRouter.Handle("/cards/{id:[0-9]+}", middleware.RequireAdmin(http.HandlerFunc(h.DeleteCard))).Methods("DELETE")

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	logger.Infof("Starting server on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Server failed: %v", err)
	}
}
