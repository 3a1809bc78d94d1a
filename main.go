package main

import (
	"context"
	"embed"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/middleware"

	tapmongo "github.com/tabletap/tabletap/internal/mongo"
	"github.com/tabletap/tabletap/internal/orders"
	"github.com/tabletap/tabletap/pkg"
)

const (
	appNamespace = "TABLETAP"
	appName      = "tabletap"
	appVersion   = "0.1.0"
)

//go:embed seed.json
var seedFS embed.FS

func main() {
	config, err := apt.LoadConfig(appNamespace, os.Args[1:])
	if err != nil {
		log.Fatalf("%s(%s) cannot setup: %v", appName, appVersion, err)
	}

	logLevel, _ := config.GetString("log.level")
	logger := apt.NewLogger(logLevel)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
	defer stop()

	seedCtx, cancelSeeds := context.WithCancel(ctx)
	defer cancelSeeds()

	baseRepo := tapmongo.NewBaseRepo(config, logger)
	err = baseRepo.Start(ctx)
	if err != nil {
		log.Fatalf("%s(%s) cannot start base repository: %v", appName, appVersion, err)
	}

	db := baseRepo.GetDatabase()
	if db == nil {
		log.Fatalf("%s(%s) cannot initialize repository database: %v", appName, appVersion, errors.New("repository database is nil"))
	}

	tableRepo := tapmongo.NewTableRepo(db)
	sessionRepo := tapmongo.NewSessionRepo(db)
	orderRepo := tapmongo.NewOrderRepo(db)

	if err := tableRepo.EnsureIndexes(ctx); err != nil {
		log.Fatalf("%s(%s) cannot create table indexes: %v", appName, appVersion, err)
	}
	if err := sessionRepo.EnsureIndexes(ctx); err != nil {
		log.Fatalf("%s(%s) cannot create session indexes: %v", appName, appVersion, err)
	}
	if err := orderRepo.EnsureIndexes(ctx); err != nil {
		log.Fatalf("%s(%s) cannot create order indexes: %v", appName, appVersion, err)
	}

	natsURL := config.GetStringOrDef("nats.url", "nats://localhost:4222")

	pub, err := pkg.NewNATSPublisher(natsURL)
	if err != nil {
		log.Fatalf("%s(%s) cannot connect to NATS publisher: %v", appName, appVersion, err)
	}

	sub, err := pkg.NewNATSSubscriber(natsURL)
	if err != nil {
		log.Fatalf("%s(%s) cannot connect to NATS subscriber: %v", appName, appVersion, err)
	}

	menuURL, _ := config.GetString("services.menu.url")
	menuClient := apt.NewServiceClient(menuURL)
	menuDA := orders.NewMenuDataAccess(menuClient)

	sessionTTLMinutes := config.GetStringOrDef("session.ttl.minutes", "30")
	sessionTTL, err := time.ParseDuration(sessionTTLMinutes + "m")
	if err != nil {
		log.Fatalf("%s(%s) invalid session ttl: %v", appName, appVersion, err)
	}

	service := orders.NewService(orders.ServiceDeps{
		Tables:     tableRepo,
		Sessions:   sessionRepo,
		Orders:     orderRepo,
		Tx:         baseRepo,
		Menu:       menuDA,
		Settings:   menuDA,
		Events:     orders.NewEventPublisher(pub, logger),
		Logger:     logger,
		SessionTTL: sessionTTL,
	})

	tableStatusSub := orders.NewTableStatusSubscriber(sub, tableRepo, logger)

	publisherLifecycle := apt.LifecycleHooks{
		OnStop: func(context.Context) error {
			return pub.Close()
		},
	}

	subLifecycle := apt.LifecycleHooks{
		OnStop: func(context.Context) error {
			return sub.Close()
		},
	}

	handler := orders.NewHandler(service, config, logger)

	// Seed the table layout when enabled
	seedEnabled, _ := config.GetString("seeding.tables")
	var seedHooks apt.LifecycleHooks
	if seedEnabled == "true" {
		logger.Info("Table seeding enabled")
		seedHooks = apt.LifecycleHooks{
			OnStart: func(context.Context) error {
				return orders.ApplyTableSeeds(seedCtx, tableRepo, seedFS, logger)
			},
			OnStop: func(context.Context) error {
				cancelSeeds()
				return nil
			},
		}
	}

	stack := middleware.DefaultStack(middleware.StackOptions{
		Logger: logger,
	})

	lifecycles := []interface{}{
		apt.LifecycleHooks{OnStop: baseRepo.Stop},
		tableStatusSub,
		publisherLifecycle,
		subLifecycle,
	}
	if seedEnabled == "true" {
		lifecycles = append(lifecycles, seedHooks)
	}

	options := []apt.Option{
		apt.WithConfig(config),
		apt.WithLogger(logger),
		apt.WithHTTPMiddleware(stack...),
		apt.WithHTTPServerModules("web.port", handler),
		apt.WithLifecycle(lifecycles...),
		apt.WithHealthChecks(appName),
	}

	ms := apt.NewMicro(options...)
	logger.Infof("Starting %s(%s)", appName, appVersion)

	err = ms.Run(ctx)
	if err != nil {
		_ = baseRepo.Stop(context.Background())
		log.Fatalf("%s(%s) stopped: %v", appName, appVersion, err)
	}

	logger.Infof("%s(%s) stopped", appName, appVersion)
}
