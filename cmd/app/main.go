package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"orderflow/cmd"
	_ "orderflow/docs"
	httpin "orderflow/internal/adapters/in/http"
	"orderflow/internal/adapters/out/postgres/accessrepo"
	"orderflow/internal/adapters/out/postgres/orderrepo"
	"orderflow/internal/jobs"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	amqp "github.com/rabbitmq/amqp091-go"
	echoSwagger "github.com/swaggo/echo-swagger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

//	@title			Orderflow API
//	@version		1.0
//	@description	Order lifecycle service: placement, status transitions, partner assignment and live status streaming.
//	@BasePath		/api/v1

func main() {
	configs := getConfigs()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	gormDB := mustConnectDB(configs)
	amqpConn := connectAmqp(configs, logger)

	app, err := cmd.NewCompositionRoot(configs, gormDB, amqpConn, logger)
	if err != nil {
		log.Fatalf("Error building composition root: %v", err)
	}
	app.Start()
	defer app.Stop()

	jobManager := jobs.NewJobManager(
		app.CreateGetStaleProcessingOrdersQueryHandler(),
		app.CreateUpdateOrderStatusCommandHandler(),
		app.StaleOrderThreshold(),
		logger,
	)
	if err = jobManager.StartAll(); err != nil {
		log.Fatalf("Error starting jobs: %v", err)
	}
	defer jobManager.StopAll()

	startWebServer(&app, configs.HTTPPort)
}

func getConfigs() cmd.Config {
	config := cmd.Config{
		HTTPPort:            goDotEnvVariable("HTTP_PORT"),
		DBHost:              goDotEnvVariable("DB_HOST"),
		DBPort:              goDotEnvVariable("DB_PORT"),
		DBUser:              goDotEnvVariable("DB_USER"),
		DBPassword:          goDotEnvVariable("DB_PASSWORD"),
		DBName:              goDotEnvVariable("DB_NAME"),
		DBSslMode:           goDotEnvVariable("DB_SSLMODE"),
		AmqpURL:             goDotEnvVariable("AMQP_URL"),
		LockWaitTimeout:     goDotEnvVariable("LOCK_WAIT_TIMEOUT"),
		StaleOrderThreshold: goDotEnvVariable("STALE_ORDER_THRESHOLD"),
	}
	return config
}

func goDotEnvVariable(key string) string {
	err := godotenv.Load(".env")
	if err != nil {
		log.Fatalf("Error loading .env file")
	}
	return os.Getenv(key)
}

func mustConnectDB(configs cmd.Config) *gorm.DB {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		configs.DBHost, configs.DBPort, configs.DBUser,
		configs.DBPassword, configs.DBName, configs.DBSslMode)

	gormDB, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Error connecting to database: %v", err)
	}

	err = gormDB.AutoMigrate(
		&orderrepo.OrderDTO{},
		&orderrepo.StatusChangeDTO{},
		&accessrepo.RestaurantDTO{},
	)
	if err != nil {
		log.Fatalf("Error migrating database: %v", err)
	}

	return gormDB
}

func connectAmqp(configs cmd.Config, logger *slog.Logger) *amqp.Connection {
	if configs.AmqpURL == "" {
		logger.Warn("AMQP_URL not set, events will not reach the broker")
		return nil
	}

	conn, err := amqp.Dial(configs.AmqpURL)
	if err != nil {
		log.Fatalf("Error connecting to AMQP broker: %v", err)
	}
	return conn
}

func startWebServer(app *cmd.CompositionRoot, port string) {
	e := echo.New()

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "Healthy")
	})
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	server := httpin.NewServer(
		app.CreateCreateOrderCommandHandler(),
		app.CreateUpdateOrderStatusCommandHandler(),
		app.CreateAssignPartnerCommandHandler(),
		app.CreateGetOrderQueryHandler(),
		app.CreateGetActiveOrdersQueryHandler(),
		app.Hub(),
		app.Registry(),
		app.Gatekeeper(),
	)
	server.RegisterRoutes(e)

	e.Logger.Fatal(e.Start(fmt.Sprintf("0.0.0.0:%s", port)))
}
