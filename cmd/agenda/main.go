package main

import (
	_ "time/tzdata"

	"barberdesk/internal/agenda/events"
	"barberdesk/internal/agenda/handler"
	"barberdesk/internal/agenda/repository"
	"barberdesk/internal/agenda/service"
	"barberdesk/internal/agenda/slots"
	"barberdesk/internal/agenda/validator"
	"barberdesk/pkg/app"
	"barberdesk/pkg/config"
	"barberdesk/pkg/kafka"
	kafka_config "barberdesk/pkg/kafka/config"
	kafka_middleware "barberdesk/pkg/kafka/middleware"
	"barberdesk/pkg/middleware"
)

const ServiceName = "agenda"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetBarbershop()

	cfg.Log.Info("Starting Agenda service")
	publisher := initPublisher(cfg)
	sessions := service.NewSessionStore(cfg.SessionTTL, cfg.Log)
	agendaService := initServices(cfg, sessions, publisher)

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(
		handler.NewHealthHandler(cfg.Client.Mongo, cfg.Client.Barbershop, cfg.Log),
		handler.NewAgendaHandler(agendaService, validator.NewRequestValidator(cfg.Location, cfg.Log), cfg.Log),
		middleware.NewAuthenticator(cfg.JWTSecret, cfg.Log),
	)
	serverApp.OnShutdown(func() {
		if err := publisher.Close(); err != nil {
			cfg.Log.Error("Failed to close event publisher", "error", err)
		}
	})
	serverApp.OnShutdown(sessions.Stop)
	serverApp.Run()
}

func initServices(cfg *config.Config, sessions *service.SessionStore, publisher events.Publisher) service.AgendaService {
	generator := slots.NewGenerator(slots.DefaultSchedule, cfg.Location, cfg.SlotStep)
	reconciler := slots.NewReconciler(cfg.Client.Barbershop, generator, cfg.Log)
	reportRepo := repository.NewMongoSaveReportRepository(cfg)

	agendaService := service.NewAgendaService(
		cfg.Client.Barbershop,
		reconciler,
		sessions,
		reportRepo,
		publisher,
		cfg.Log,
		service.Options{
			Location:        cfg.Location,
			SaveConcurrency: cfg.SaveConcurrency,
		},
	)

	cfg.Log.Info("Agenda service initialized",
		"database", cfg.MongoDatabaseName,
		"time_zone", cfg.Location.String(),
	)
	return agendaService
}

func initPublisher(cfg *config.Config) events.Publisher {
	if !cfg.KafkaEnabled {
		cfg.Log.Info("Kafka disabled, domain events are dropped")
		return events.NopPublisher{}
	}

	kafkaCfg := kafka_config.Load()
	if err := kafkaCfg.Validate(); err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log.Info)

	producer, err := kafka.NewProducer(kafkaCfg, cfg.KafkaTopic, cfg.KafkaDLQTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	if kafkaCfg.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
	}
	return events.NewKafkaPublisher(producer)
}
