package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Applies schema migrations from the migrations directory. Commands:
//
//	migrate up
//	migrate down
//	migrate steps <n>
//	migrate version
//	migrate force <version>
func main() {
	path := flag.String("path", "migrations", "directory holding migration files")
	flag.Parse()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL must be set")
	}

	command := flag.Arg(0)
	if command == "" {
		command = "up"
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		log.Fatalf("postgres driver: %v", err)
	}

	m, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", *path), "postgres", driver)
	if err != nil {
		log.Fatalf("migrate init: %v", err)
	}
	defer func() {
		sourceErr, dbErr := m.Close()
		if sourceErr != nil {
			log.Printf("close source: %v", sourceErr)
		}
		if dbErr != nil {
			log.Printf("close database: %v", dbErr)
		}
	}()

	switch command {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	case "steps":
		n, parseErr := strconv.Atoi(flag.Arg(1))
		if parseErr != nil {
			log.Fatalf("steps requires an integer argument: %v", parseErr)
		}
		err = m.Steps(n)
	case "version":
		version, dirty, versionErr := m.Version()
		if versionErr != nil && versionErr != migrate.ErrNilVersion {
			log.Fatalf("version: %v", versionErr)
		}
		log.Printf("version=%d dirty=%v", version, dirty)
		return
	case "force":
		version, parseErr := strconv.Atoi(flag.Arg(1))
		if parseErr != nil {
			log.Fatalf("force requires an integer version: %v", parseErr)
		}
		err = m.Force(version)
	default:
		log.Fatalf("unknown command %q", command)
	}

	if err != nil && err != migrate.ErrNoChange {
		log.Fatalf("migration failed: %v", err)
	}
	if err == migrate.ErrNoChange {
		log.Println("no change")
		return
	}
	log.Println("done")
}
