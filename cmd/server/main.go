package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nanitabeyo/internal/config"
	"nanitabeyo/internal/handler"
	"nanitabeyo/internal/infrastructure/cache"
	"nanitabeyo/internal/infrastructure/database"
	"nanitabeyo/internal/infrastructure/mq"
	"nanitabeyo/internal/job"
	"nanitabeyo/internal/repository"
	"nanitabeyo/internal/service"
	"nanitabeyo/pkg/idgen"

	"github.com/spf13/pflag"
)

func main() {
	configPath := pflag.String("config", "config/config.yaml", "path to the yaml config")
	pflag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if err := idgen.Init(cfg.Server.WorkerID); err != nil {
		log.Fatalf("init id generator: %v", err)
	}

	db, err := database.InitMySQL(&cfg.MySQL)
	if err != nil {
		log.Fatalf("init mysql: %v", err)
	}

	redisClient, err := cache.InitRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("init redis: %v", err)
	}
	defer redisClient.Close()

	publisher, err := mq.InitKafka(&cfg.Kafka)
	if err != nil {
		log.Fatalf("init kafka: %v", err)
	}
	defer publisher.Close()

	allocator, err := service.NewPoolAllocator(cfg.Business.ContributorShareBps)
	if err != nil {
		log.Fatalf("init allocator: %v", err)
	}
	payoutService := service.NewPayoutService(db, repository.NewCatalogRepository(db), allocator, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	outboxSender := job.NewOutboxSender(db, publisher, cfg)
	go outboxSender.Start(ctx)

	locker := job.NewRedisLocker(redisClient, cfg.Business.SettleLockExpire())
	settlementJob := job.NewSettlementJob(db, payoutService, locker, cfg)
	go settlementJob.Start(ctx)

	h, err := handler.NewHandler(db, cfg)
	if err != nil {
		log.Fatalf("init handler: %v", err)
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler.SetupRouter(h),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("settlement service listening on :%d (worker %d)", cfg.Server.Port, cfg.Server.WorkerID)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	// stop the jobs first so no new outbox rows are picked up mid-shutdown
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}

	log.Println("stopped")
}
