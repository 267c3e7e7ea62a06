package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// ConnectDatabaseWithRetry blocks until the database answers.
// Call this from main() AFTER the HTTP server is listening.
func ConnectDatabaseWithRetry(settings Settings) *gorm.DB {
	var attempt int
	for {
		attempt++
		db, err := OpenDatabase(settings)
		if err == nil {
			log.Printf("connected to database (driver=%s attempt=%d)", settings.DBDriver, attempt)
			return db
		}

		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		log.Printf("failed to connect database (attempt=%d): %v; retrying in %s", attempt, err, sleep)
		time.Sleep(sleep)
	}
}

// OpenDatabase makes a single connection attempt with the configured driver.
func OpenDatabase(settings Settings) (*gorm.DB, error) {
	if settings.DBDriver == DriverSQLite {
		return OpenSQLite(settings.DBSqlitePath)
	}
	return openMySQL(settings)
}

func openMySQL(settings Settings) (*gorm.DB, error) {
	network := "tcp"
	address := fmt.Sprintf("%s:%s", settings.DBHost, settings.DBPort)

	// Cloud Run + Cloud SQL: when DB_HOST is "/cloudsql/<CONNECTION_NAME>",
	// connect using a Unix domain socket provided by Cloud SQL Auth Proxy.
	if strings.HasPrefix(settings.DBHost, "/cloudsql/") {
		network = "unix"
		address = settings.DBHost
	}

	// Row locks taken by SELECT ... FOR UPDATE must see the latest committed values,
	// so every pooled connection runs at READ COMMITTED.
	dsn := fmt.Sprintf("%s:%s@%s(%s)/%s?parseTime=true&loc=UTC&transaction_isolation=%%27READ-COMMITTED%%27",
		settings.DBUser,
		settings.DBPassword,
		network,
		address,
		settings.DBName,
	)

	db, err := OpenMySQLDSN(dsn)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if settings.DBMaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(settings.DBMaxOpenConns)
	}
	if settings.DBMaxIdleConns >= 0 {
		sqlDB.SetMaxIdleConns(settings.DBMaxIdleConns)
	}
	if settings.DBConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(settings.DBConnMaxLifetime)
	}
	if settings.DBConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(settings.DBConnMaxIdleTime)
	}
	return db, nil
}

// OpenMySQLDSN opens MySQL from a complete DSN. Include parseTime=true.
func OpenMySQLDSN(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), initConfig())
	if err != nil {
		return nil, err
	}
	installPlugins(db)
	return db, nil
}

// OpenSQLite opens a SQLite database (a file path or ":memory:").
// SQLite has no row locks, so the pool is pinned to one connection and
// transactions serialize instead.
func OpenSQLite(path string) (*gorm.DB, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=foreign_keys(1)"
	}
	db, err := gorm.Open(sqlite.Open(dsn), initConfig())
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	installPlugins(db)
	return db, nil
}

func installPlugins(db *gorm.DB) {
	if pluginErr := db.Use(otelgorm.NewPlugin()); pluginErr != nil {
		log.Printf("db connected but failed to install otelgorm plugin: %v", pluginErr)
	}
}

// initConfig Initialize Config
func initConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         initLog(),
		NamingStrategy: initNamingStrategy(),
	}
}

// initLog Connection Log Configuration
func initLog() logger.Interface {
	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags), // Output to standard output
		logger.Config{
			Colorful:                  false,
			LogLevel:                  logger.Error,
			SlowThreshold:             time.Second,
			IgnoreRecordNotFoundError: true,
		},
	)
	return newLogger
}

// initNamingStrategy Init NamingStrategy
func initNamingStrategy() *schema.NamingStrategy {
	return &schema.NamingStrategy{
		SingularTable: false,
		TablePrefix:   "",
	}
}
