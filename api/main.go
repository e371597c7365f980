package main

import (
	"context"
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
)

const version = "1.0.0"

type config struct {
	port int
	env  string
	db   struct {
		dsn                string
		maxOpenConnections int
		maxIdleConnections int
		maxIdleTime        time.Duration
	}
	mail struct {
		apiKey        string
		senderName    string
		senderAddress string
	}
	limiter struct {
		enabled             bool
		maxRequestPerSecond float64
		burst               int
	}
	cors struct {
		trustedOrigins []string
	}
	jwtSecret string
}

type application struct {
	config config
	store  store
	mailer *mailer
}

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load(); err != nil {
			log.Println("no .env file found, continuing")
		}
	}

	var cfg config
	flag.IntVar(&cfg.port, "port", 3000, "Server port")
	flag.StringVar(&cfg.env, "env", "development", "Environment [development|production]")

	flag.StringVar(&cfg.db.dsn, "db-dsn", os.Getenv("DB_DSN"), "PostgreSQL DSN")
	flag.IntVar(&cfg.db.maxOpenConnections, "db-max-open-conns", 25, "PostgreSQL max open connections")
	flag.IntVar(&cfg.db.maxIdleConnections, "db-max-idle-conns", 25, "PostgreSQL max idle connections")
	var maxIdleTime string
	flag.StringVar(&maxIdleTime, "db-max-idle-time", "15m", "PostgreSQL max connection idle time")

	flag.StringVar(&cfg.mail.apiKey, "sendgrid-api-key", os.Getenv("SENDGRID_API_KEY"), "SendGrid API key")
	flag.StringVar(&cfg.mail.senderName, "mail-sender-name", "Task Manager", "Notification sender name")
	flag.StringVar(&cfg.mail.senderAddress, "mail-sender-address", os.Getenv("MAIL_SENDER_ADDRESS"), "Notification sender address")

	flag.BoolVar(&cfg.limiter.enabled, "limiter-enabled", false, "Enable rate limiting")
	flag.Float64Var(&cfg.limiter.maxRequestPerSecond, "limiter-rps", 10, "Rate limiter max requests per second per IP")
	flag.IntVar(&cfg.limiter.burst, "limiter-burst", 20, "Rate limiter burst per IP")

	var trustedOrigins string
	flag.StringVar(&trustedOrigins, "cors-trusted-origins", "", "Trusted CORS origins (space separated)")

	flag.StringVar(&cfg.jwtSecret, "jwt-secret", os.Getenv("JWT_SECRET"), "JWT signing secret")
	flag.Parse()

	d, err := time.ParseDuration(maxIdleTime)
	if err != nil {
		cfg.db.maxIdleTime = 15 * time.Minute
		log.Printf(`invalid value %s for flag "db-max-idle-time" defaulting to %s`, maxIdleTime, cfg.db.maxIdleTime)
	} else {
		cfg.db.maxIdleTime = d
	}
	cfg.cors.trustedOrigins = strings.Fields(trustedOrigins)

	// Tokens signed with an ephemeral secret stop verifying after a
	// restart, which is fine for development.
	if cfg.jwtSecret == "" {
		secret := make([]byte, 32)
		_, err = rand.Read(secret)
		if err != nil {
			log.Fatal(err)
		}
		cfg.jwtSecret = string(secret)
		log.Println("no JWT secret configured, generated an ephemeral one")
	}

	db, err := openDB(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()
	log.Println("established a connection with database")

	app := &application{
		config: cfg,
		store:  newStorage(db),
		mailer: newMailer(cfg.mail.apiKey, cfg.mail.senderName, cfg.mail.senderAddress),
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.port),
		Handler:      composeRoutes(app),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	shutdownErr := make(chan error)
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit
		log.Printf("caught %s signal, shutting down", s)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		shutdownErr <- srv.Shutdown(ctx)
	}()

	log.Printf("Starting %s server on port %d\n", cfg.env, cfg.port)
	err = srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
	err = <-shutdownErr
	if err != nil {
		log.Fatal(err)
	}
	log.Println("server stopped")
}
