package main

import (
	"roomly/internal/bookings/event"
	"roomly/internal/bookings/handler"
	"roomly/internal/bookings/repository"
	"roomly/internal/bookings/service"
	"roomly/internal/bookings/validator"
	"roomly/pkg/app"
	"roomly/pkg/config"
	"roomly/pkg/kafka"
	kafka_config "roomly/pkg/kafka/config"
	kafka_middleware "roomly/pkg/kafka/middleware"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)
	cfg.Log.Info("Starting bookings service")

	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	scheduler, closeProducer := initServices(cfg)
	defer closeProducer()

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(handler.NewBookingHandler(scheduler, cfg.Log))
	serverApp.Run()
}

func initServices(cfg *config.Config) (service.Scheduler, func()) {
	kafkaCfg := kafka_config.Load()
	producer, err := kafka.NewProducer(kafkaCfg, cfg.EventsTopic, cfg.EventsDLQTopic)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
	producer.Use(kafka_middleware.MetricsProducerMiddleware())

	bookingValidator := validator.NewBookingValidator(cfg.Log)
	bookingRepo := repository.NewMongoBookingRepository(cfg)
	roomRepo := repository.NewMongoRoomRepository(cfg)
	lockRepo := repository.NewMongoRoomLockRepository(cfg)
	publisher := event.NewKafkaPublisher(producer, cfg.EventsTopic)

	scheduler := service.NewScheduler(
		bookingRepo,
		roomRepo,
		lockRepo,
		bookingValidator,
		publisher,
		cfg,
	)

	cfg.Log.Info("Booking scheduler initialized",
		"database", cfg.MongoDatabaseName,
		"events_topic", cfg.EventsTopic,
	)

	closeProducer := func() {
		if err := producer.Close(); err != nil {
			cfg.Log.Warn("Failed to close Kafka producer", "error", err)
		}
	}
	return scheduler, closeProducer
}
