package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/tejaswanole/automated-smart-parking-system/internal/api"
	"github.com/tejaswanole/automated-smart-parking-system/internal/config"
	"github.com/tejaswanole/automated-smart-parking-system/internal/iot"
	"github.com/tejaswanole/automated-smart-parking-system/internal/realtime"
	"github.com/tejaswanole/automated-smart-parking-system/internal/repository/postgresql"
	"github.com/tejaswanole/automated-smart-parking-system/internal/service"
)

func main() {
	cfg := config.Load()

	db, err := postgresql.NewDB(cfg)
	if err != nil {
		log.Fatalf("could not connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to database.")

	userRepo := postgresql.NewPgUserRepository(db)
	parkingRepo := postgresql.NewPgParkingRepository(db)
	requestRepo := postgresql.NewPgRequestRepository(db)
	visitRepo := postgresql.NewPgVisitRepository(db)

	hub := realtime.NewHub()

	authService := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTExpirationHours)
	parkingService := service.NewParkingService(parkingRepo, userRepo, hub)
	requestService := service.NewRequestService(requestRepo, userRepo)
	visitService := service.NewVisitService(visitRepo, parkingRepo, userRepo, cfg.VisitVerifyRadiusMeters)

	var wg sync.WaitGroup
	consumerCtx, cancelConsumer := context.WithCancel(context.Background())

	if cfg.SQSDetectionQueueURL == "" {
		log.Println("SQS_DETECTION_QUEUE_URL is not set; detection queue consumer disabled.")
	} else {
		awsSDKCfg, err := awsconfig.LoadDefaultConfig(context.TODO(), awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			log.Fatalf("could not load AWS SDK config: %v", err)
		}
		sqsClient := sqs.NewFromConfig(awsSDKCfg)
		sqsConsumer := iot.NewSQSConsumer(sqsClient, cfg, parkingService)
		wg.Add(1)
		go func() {
			defer wg.Done()
			sqsConsumer.Start(consumerCtx)
			log.Println("SQS consumer stopped.")
		}()
	}

	router := api.SetupRouter(cfg, authService, parkingService, requestService, visitService, hub)

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		log.Printf("Server listening on port %s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("ListenAndServe: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	cancelConsumer()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}

	if cfg.SQSDetectionQueueURL != "" {
		done := make(chan struct{})
		go func() {
			defer close(done)
			wg.Wait()
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			log.Println("SQS consumer did not stop within the grace period.")
		}
	}

	log.Println("Server stopped.")
}
