package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"labsight/internal/config"
)

func main() {
	path := flag.String("path", "db/migrations", "directory holding the migration files")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	m, err := migrate.New("file://"+*path, cfg.DB.DSN())
	if err != nil {
		log.Fatalf("opening migrations: %v", err)
	}
	defer m.Close()

	if flag.NArg() < 1 {
		fmt.Println("Usage: migrate [-path dir] up|down|steps N|force N|version")
		os.Exit(1)
	}

	switch cmd := flag.Arg(0); cmd {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("migrate up: %v", err)
		}
		log.Println("schema is up to date")

	case "down":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("migrate down: %v", err)
		}
		log.Println("schema reverted")

	case "steps":
		n, err := stepArg()
		if err != nil {
			log.Fatal(err)
		}
		if err := m.Steps(n); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("migrate steps: %v", err)
		}
		log.Printf("applied %d migration steps", n)

	case "force":
		// Clears a dirty version marker after a failed migration was fixed by hand.
		n, err := stepArg()
		if err != nil {
			log.Fatal(err)
		}
		if err := m.Force(n); err != nil {
			log.Fatalf("migrate force: %v", err)
		}
		log.Printf("forced schema version to %d", n)

	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			fmt.Println("no migrations applied")
			return
		}
		if err != nil {
			log.Fatalf("reading schema version: %v", err)
		}
		fmt.Printf("version: %d, dirty: %v\n", version, dirty)

	default:
		fmt.Printf("unknown command: %s\n", cmd)
		fmt.Println("Usage: migrate [-path dir] up|down|steps N|force N|version")
		os.Exit(1)
	}
}

func stepArg() (int, error) {
	if flag.NArg() < 2 {
		return 0, errors.New("command requires a numeric argument")
	}
	n, err := strconv.Atoi(flag.Arg(1))
	if err != nil {
		return 0, fmt.Errorf("invalid numeric argument %q", flag.Arg(1))
	}
	return n, nil
}
