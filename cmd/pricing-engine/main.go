package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rzzdr/quant-options-lab/config"
	"github.com/rzzdr/quant-options-lab/internal/kafka"
	"github.com/rzzdr/quant-options-lab/internal/service"
	"github.com/rzzdr/quant-options-lab/pkg/metrics"
	"github.com/rzzdr/quant-options-lab/pkg/utils/logger"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
)

func main() {
	flag.Parse()

	log := logger.GetLogger("pricing-engine.main")

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Init(cfg.App.LogLevel, cfg.App.Environment)
	log = logger.GetLogger("pricing-engine.main")
	log.Infof("Starting %s pricing engine", cfg.App.Name)

	if !cfg.Kafka.Enabled {
		log.Fatal("kafka.enabled is false; the pricing engine has nothing to consume")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var recorder *metrics.Recorder
	var metricsServer *metrics.PrometheusServer
	if cfg.Metrics.Enabled {
		recorder = metrics.NewRecorder()
		metricsServer = metrics.NewPrometheusServer(cfg.Metrics.Port, recorder)
		go func() {
			if err := metricsServer.Start(); err != nil {
				log.Errorf("Metrics server error: %v", err)
			}
		}()
		go metrics.CollectSystemStats(ctx, recorder, cfg.Metrics.Interval)
	}

	kafkaConfig := kafka.DefaultConfig()
	kafkaConfig.Brokers = cfg.Kafka.Brokers
	kafkaConfig.GroupID = cfg.Kafka.GroupID
	kafkaConfig.BatchTimeout = cfg.Kafka.BatchTimeout

	kafkaClient, err := kafka.NewClient(kafkaConfig)
	if err != nil {
		log.Fatalf("Failed to create Kafka client: %v", err)
	}

	consumer := kafkaClient.NewConsumer(cfg.Kafka.RequestTopic, "")
	producer := kafkaClient.NewProducer(cfg.Kafka.ResultTopic)

	calculator := service.New(service.DefaultsFromConfig(cfg), recorder)
	engine := kafka.NewEngine(consumer, producer, calculator, recorder, cfg.Kafka.Workers)

	done := make(chan error, 1)
	go func() {
		done <- engine.Run(ctx)
	}()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Infof("Received signal %v, initiating shutdown", sig)
		cancel()
		if err := <-done; err != nil {
			log.Errorf("Pricing engine error: %v", err)
		}
	case err := <-done:
		if err != nil {
			log.Errorf("Pricing engine error: %v", err)
		}
		log.Info("Pricing engine stopped, initiating shutdown")
	}

	if err := consumer.Close(); err != nil {
		log.Errorf("Consumer shutdown error: %v", err)
	}

	if err := producer.Close(); err != nil {
		log.Errorf("Producer shutdown error: %v", err)
	}

	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := metricsServer.Stop(shutdownCtx); err != nil {
			log.Errorf("Metrics server shutdown error: %v", err)
		}
	}

	log.Info("Shutdown complete")
}
