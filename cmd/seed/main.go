package main

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"realestate/internal/auth"
	"realestate/internal/config"
	"realestate/internal/database"
)

const demoEmail = "demo@realestate.local"

func main() {
	var (
		importData = flag.Bool("i", false, "create tables and import categories, prices and a demo user")
		wipe       = flag.Bool("e", false, "drop every application table")
		dbHost     = flag.String("db-host", "", "database host (default DATABASE_HOST or localhost)")
		dbPort     = flag.Int("db-port", 0, "database port (default DATABASE_PORT or 5432)")
		dbName     = flag.String("db-name", "", "database name (default POSTGRES_DB)")
		dbUser     = flag.String("db-user", "", "database user (default POSTGRES_USER)")
		dbPass     = flag.String("db-password", "", "database password (default POSTGRES_PASSWORD)")
		sslMode    = flag.String("db-sslmode", "", "database sslmode (default DATABASE_SSLMODE or disable)")
	)
	flag.Parse()

	if *importData == *wipe {
		fmt.Fprintln(os.Stderr, "use exactly one of -i (import) or -e (wipe)")
		flag.Usage()
		os.Exit(2)
	}

	dbCfg, err := databaseConfig(*dbHost, *dbPort, *dbName, *dbUser, *dbPass, *sslMode)
	if err != nil {
		log.Fatalf("load database config: %v", err)
	}
	db, err := database.InitDatabase(dbCfg)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}

	if *wipe {
		if err := database.Wipe(db); err != nil {
			log.Fatalf("wipe: %v", err)
		}
		fmt.Println("all tables dropped")
		return
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	if err := database.SeedReferenceData(db); err != nil {
		log.Fatalf("seed reference data: %v", err)
	}
	fmt.Printf("imported %d categories and %d price brackets\n", len(database.DefaultCategories), len(database.DefaultPrices))

	if err := seedDemoUser(db); err != nil {
		log.Fatalf("seed demo user: %v", err)
	}
}

func seedDemoUser(db *gorm.DB) error {
	var existing database.User
	switch err := db.Where("email = ?", demoEmail).First(&existing).Error; {
	case err == nil:
		fmt.Printf("demo user %s already exists\n", demoEmail)
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return fmt.Errorf("query user: %w", err)
	}

	password, err := randomPassword(18)
	if err != nil {
		return err
	}
	hashed, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	user := database.User{Name: "Demo", Email: demoEmail, PasswordHash: hashed, Confirmed: true}
	if err := db.Create(&user).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	fmt.Println("demo account created (the password is shown only once):")
	fmt.Printf("e-mail:   %s\n", demoEmail)
	fmt.Printf("password: %s\n", password)
	return nil
}

// databaseConfig 依次从命令行参数、环境变量、默认值解析每个配置项。
func databaseConfig(host string, port int, name, user, password, sslmode string) (config.DatabaseConfig, error) {
	pick := func(flagValue string, envs ...string) string {
		if v := strings.TrimSpace(flagValue); v != "" {
			return v
		}
		for _, env := range envs {
			if v := strings.TrimSpace(os.Getenv(env)); v != "" {
				return v
			}
		}
		return ""
	}

	cfg := config.DatabaseConfig{
		Host:     pick(host, "DATABASE_HOST"),
		Port:     port,
		Name:     pick(name, "POSTGRES_DB", "DB_NAME"),
		User:     pick(user, "POSTGRES_USER", "DB_USER"),
		Password: pick(password, "POSTGRES_PASSWORD", "DB_PASSWORD"),
		SSLMode:  pick(sslmode, "DATABASE_SSLMODE"),
	}
	if cfg.Port <= 0 {
		if env := strings.TrimSpace(os.Getenv("DATABASE_PORT")); env != "" {
			p, err := strconv.Atoi(env)
			if err != nil {
				return config.DatabaseConfig{}, fmt.Errorf("parse DATABASE_PORT: %w", err)
			}
			cfg.Port = p
		}
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port <= 0 {
		cfg.Port = 5432
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}

	switch {
	case cfg.Name == "":
		return config.DatabaseConfig{}, errors.New("database name is required (POSTGRES_DB)")
	case cfg.User == "":
		return config.DatabaseConfig{}, errors.New("database user is required (POSTGRES_USER)")
	case cfg.Password == "":
		return config.DatabaseConfig{}, errors.New("database password is required (POSTGRES_PASSWORD)")
	}
	return cfg, nil
}

func randomPassword(bytesLen int) (string, error) {
	buf := make([]byte, bytesLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
