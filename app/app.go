package app

import (
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"job-marketplace-api/internal/config"
	"job-marketplace-api/internal/controller"
	"job-marketplace-api/internal/repo"
	"job-marketplace-api/internal/service"
	"job-marketplace-api/internal/sweeper"
	"job-marketplace-api/pkg/eventbus"
	"job-marketplace-api/pkg/http_server"
	"job-marketplace-api/pkg/paygate"
	"job-marketplace-api/pkg/postgres"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/labstack/echo"
)

func userAndPropertyTablesExist(pg *postgres.Postgres) (bool, error) {
	if err := pg.Database.Ping(); err != nil {
		return false, err
	}

	var id uuid.UUID
	err := pg.Database.QueryRow("select id from provider_service limit 1").Scan(&id)

	return err == nil, nil
}

func jobAndPaymentTablesExist(pg *postgres.Postgres) (bool, error) {
	if err := pg.Database.Ping(); err != nil {
		return false, err
	}

	var id uuid.UUID
	err := pg.Database.QueryRow("select id from job_request limit 1").Scan(&id)

	return err == nil, nil
}

func migrateTables(driver database.Driver, sourceUrl string, databaseName string) {
	migrations, err := migrate.NewWithDatabaseInstance(sourceUrl, databaseName, driver)
	if err != nil {
		log.Fatal(err)
	}

	if err := migrations.Up(); err != nil {
		if err.Error() == "no change" {
			log.Println("no change made by migration scripts")
		} else {
			log.Fatal(err)
		}
	}
}

func runMigrations(postgresDB *postgres.Postgres, driver database.Driver, databaseName string) {
	userPropertyTablesExist, err := userAndPropertyTablesExist(postgresDB)
	if err != nil {
		log.Fatal(err)
	}

	if !userPropertyTablesExist {
		migrateTables(driver, "file://migrations/user-property-migrations", databaseName)

		return
	}
	jobTablesExist, err := jobAndPaymentTablesExist(postgresDB)
	if err != nil {
		log.Fatal(err)
	}
	if !jobTablesExist {
		migrateTables(driver, "file://migrations/job-payment-migrations", databaseName)
	}
}

func Run() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log.Println("Connecting database...")
	postgresDB, err := postgres.NewDB(cfg.PostgresConn)
	if err != nil {
		log.Fatal("Error occurred while connecting to db: ", err)
	}
	defer postgresDB.Close()

	log.Println("Running migrations...")
	driver, err := pgmigrate.WithInstance(postgresDB.Database, &pgmigrate.Config{})
	if err != nil {
		log.Fatal(err)
	}
	runMigrations(postgresDB, driver, "")

	repositories := repo.NewRepositories(postgresDB)

	gateway := paygate.NewClient(cfg.GatewayBaseURL, cfg.GatewayAPIKey,
		time.Duration(cfg.GatewayTimeoutSeconds)*time.Second)

	services := service.NewServices(repositories, gateway, service.Options{
		DefaultFeePercent: cfg.DefaultPlatformFeePercent,
		ReleaseHold:       time.Duration(cfg.ReleaseHoldHours) * time.Hour,
		GatewayTimeout:    time.Duration(cfg.GatewayTimeoutSeconds) * time.Second,
		Currency:          cfg.Currency,
	})

	log.Println("Connecting event bus...")
	var events eventbus.Publisher
	events, err = eventbus.NewAMQPPublisher(cfg.RabbitMQURL, cfg.EventExchange)
	if err != nil {
		// the API works without the broker, events are just dropped
		log.Println("Event bus unavailable, continuing without it: ", err)
		events = eventbus.NewNoopPublisher(slog.Default())
	}
	defer events.Close()

	releaseSweeper := sweeper.New(services.JobRequest, events, slog.Default())
	if err := releaseSweeper.Start(cfg.ReleaseSweepSchedule); err != nil {
		log.Fatal("Sweeper start error: ", err)
	}

	handler := echo.New()

	log.Println("Setup routes...")
	controller.SetupRoutesHandlers(handler, services, events)

	log.Println("Starting server...")
	httpServer := http_server.New(handler, cfg.ServerAddress)

	log.Println("Ready to process requests...")

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	select {
	case s := <-interrupt:
		log.Println("Got signal: " + s.String())
	case err = <-httpServer.Notify():
		log.Fatal("Notify error: ", err)
	}

	log.Println("Shutting down...")
	releaseSweeper.Stop()
	err = httpServer.Shutdown()
	if err != nil {
		log.Fatal("Shutdown error: ", err)
	} else {
		log.Println("Successful shutdown")
	}
}
