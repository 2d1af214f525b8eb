package main

import (
	"flag"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"

	"github.com/sysverax/somerville-mobile-sub000/config"
	"github.com/sysverax/somerville-mobile-sub000/internal/pkg/database"
	"github.com/sysverax/somerville-mobile-sub000/internal/pkg/logger"
)

// gooseLogger routes goose output through the application logger.
type gooseLogger struct {
	log logger.Logger
}

func (g gooseLogger) Printf(format string, v ...interface{}) {
	g.log.Info(fmt.Sprintf(format, v...), nil)
}

func (g gooseLogger) Fatalf(format string, v ...interface{}) {
	g.log.Fatal("goose failed.", fmt.Errorf(format, v...))
}

func main() {
	log := logger.NewLogger("info")

	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file loaded, using the process environment.", nil)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Invalid configuration.", err)
	}

	var migrationsDir string
	flag.StringVar(&migrationsDir, "dir", "./sql", "directory with migration files")
	flag.Parse()

	db, err := database.NewPostgresDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("goose: failed to connect to DB.", err)
	}
	defer db.Close()

	goose.SetLogger(gooseLogger{log: log})
	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatal("goose: unsupported dialect.", err)
	}

	arguments := flag.Args()
	if len(arguments) == 0 {
		arguments = []string{"up"}
	}

	command := arguments[0]
	var args []string
	if len(arguments) > 1 {
		args = arguments[1:]
	}

	if err := goose.Run(command, db, migrationsDir, args...); err != nil {
		log.Fatal(fmt.Sprintf("goose %s failed.", command), err)
	}
	log.Info(fmt.Sprintf("goose %s success", command), nil)
}
