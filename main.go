package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

type Config struct {
	ListenAddr  string `json:"listen_addr"`
	DatabaseURL string `json:"database_url"`
	AMQPURL     string `json:"amqp_url"`
	Development bool   `json:"development"`
}

func loadConfig() (*Config, error) {
	config := &Config{ListenAddr: ":8080"}

	file, err := os.Open("config.json")
	if err == nil {
		defer file.Close()
		if err := json.NewDecoder(file).Decode(config); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	// Environment overrides for deployments that don't ship a config file.
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		config.ListenAddr = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		config.DatabaseURL = v
	}
	if v := os.Getenv("AMQP_URL"); v != "" {
		config.AMQPURL = v
	}
	return config, nil
}

func newLogger(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func main() {
	config, err := loadConfig()
	if err != nil {
		panic("could not load config: " + err.Error())
	}

	log, err := newLogger(config.Development)
	if err != nil {
		panic("could not initialize logger: " + err.Error())
	}
	defer log.Sync()

	ctx := context.Background()

	store, err := NewPostgresStore(ctx, config.DatabaseURL, log)
	if err != nil {
		log.Fatal("unable to initialize store", zap.Error(err))
	}
	defer store.Close()
	log.Info("connected to database")

	var publisher NotificationPublisher = NoopPublisher{}
	if config.AMQPURL != "" {
		rabbit, err := NewRabbitMQPublisher(config.AMQPURL, log)
		if err != nil {
			log.Fatal("unable to connect to RabbitMQ", zap.Error(err))
		}
		defer rabbit.Close()
		publisher = rabbit
	}

	accounts := NewAccountManager(store, publisher, systemClock{}, log)
	h := NewHandler(accounts, log)

	mux := chi.NewRouter()
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
	}))
	RegisterRoutes(mux, h)

	log.Info("starting server", zap.String("addr", config.ListenAddr))
	if err := http.ListenAndServe(config.ListenAddr, mux); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
