package cli

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"go.uber.org/zap"

	"trivia-match-service/internal/app"
	"trivia-match-service/internal/config"
	"trivia-match-service/internal/domain"
	"trivia-match-service/internal/infra/memory"
	pgstore "trivia-match-service/internal/infra/postgres"
	rediscatalog "trivia-match-service/internal/infra/redis"
	"trivia-match-service/internal/monitor"
	"trivia-match-service/internal/notify"
	transport "trivia-match-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the match engine server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync()
	log := logger.Sugar()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var source memory.QuestionSource = memory.NewStaticQuestionSource(sampleQuestions())
	if pool != nil {
		source = pgstore.NewQuestionLoader(pool)
	}

	catalogTTL := config.TTLDuration(cfg.Catalog.TTL, 10*time.Minute)
	var catalog app.QuestionCatalog
	if redisClient != nil {
		catalog = rediscatalog.NewQuestionCatalog(redisClient, source, catalogTTL)
	} else {
		catalog = memory.NewQuestionCatalog(source, catalogTTL)
	}

	var store app.MatchStore
	if cfg.Postgres.URL != "" {
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
		db := bun.NewDB(sqldb, pgdialect.New())
		defer db.Close()
		store = pgstore.NewMatchStore(db)
	} else {
		store = memory.NewMatchStore()
	}

	hub := notify.NewHub(log)
	metrics := monitor.New("trivia_match")
	service := app.NewMatchService(store, catalog, hub, log, app.Config{RoundSize: cfg.Match.RoundSize})

	apiHandler := transport.NewAPIHandler(service, metrics, log)
	wsHandler := transport.NewWSHandler(hub, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	apiHandler.Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Infow("starting match engine", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorw("server exited", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Infow("shutting down server")
	case <-ctx.Done():
		log.Infow("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuestions seeds a small catalog when no database is configured;
// production deployments load questions from Postgres.
func sampleQuestions() []domain.Question {
	return []domain.Question{
		domain.NewQuestion("science", "easy", "What planet is known as the Red Planet?", "Mars",
			[3]string{"Venus", "Jupiter", "Mercury"}),
		domain.NewQuestion("science", "easy", "What gas do plants absorb from the atmosphere?", "Carbon dioxide",
			[3]string{"Oxygen", "Nitrogen", "Helium"}),
		domain.NewQuestion("science", "medium", "What is the chemical symbol for gold?", "Au",
			[3]string{"Ag", "Gd", "Go"}),
		domain.NewQuestion("history", "easy", "In which year did World War II end?", "1945",
			[3]string{"1939", "1944", "1950"}),
		domain.NewQuestion("history", "medium", "Who was the first president of the United States?", "George Washington",
			[3]string{"Thomas Jefferson", "John Adams", "Benjamin Franklin"}),
	}
}
