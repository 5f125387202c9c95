package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"musicquiz-service/internal/app"
	"musicquiz-service/internal/config"
	"musicquiz-service/internal/domain"
	"musicquiz-service/internal/infra/memory"
	pgstore "musicquiz-service/internal/infra/postgres"
	rediscache "musicquiz-service/internal/infra/redis"
	"musicquiz-service/internal/match"
	"musicquiz-service/internal/scoring"
	transport "musicquiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the music quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
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

	var quizStore app.QuizStore
	var answerStore app.AnswerStore
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		store := pgstore.NewStore(pool, cfg.Postgres.TxAttempts)
		quizStore, answerStore = store, store
	} else {
		store := memory.NewStore()
		seedSampleQuiz(ctx, store)
		quizStore, answerStore = store, store
	}

	cacheTTL := config.TTLDuration(cfg.Quiz.CacheTTL, 10*time.Minute)
	var quizReader app.QuizReader
	var invalidator app.QuizInvalidator
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		cache := rediscache.NewQuizCache(redisClient, quizStore, cacheTTL)
		quizReader, invalidator = cache, cache
	} else {
		cache := memory.NewQuizCache(quizStore, cacheTTL)
		quizReader, invalidator = cache, cache
	}

	threshold := cfg.Scoring.Threshold
	if threshold <= 0 {
		threshold = match.DefaultThreshold
	}

	quizService := app.NewQuizService(quizStore, answerStore, invalidator)
	answerService := app.NewAnswerService(quizReader, answerStore, threshold)
	ratingService := app.NewRatingService(quizStore, invalidator)

	handler := transport.NewHandler(quizService, answerService, ratingService)
	wsHandler := transport.NewWSHandler(answerService)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	handler.Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting music quiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// seedSampleQuiz gives the no-Postgres demo mode something to play with.
func seedSampleQuiz(ctx context.Context, store *memory.Store) {
	questions := []domain.Question{
		{Artist: "Queen", Song: "Bohemian Rhapsody", SongLink: "https://example.com/v/1"},
		{Artist: "Blink-182", Song: "All the Small Things", SongLink: "https://example.com/v/2",
			Extra: "Release year?", CorrectExtraAnswer: "1999", Hint: "Pop punk"},
	}
	_ = store.CreateQuiz(ctx, domain.Quiz{
		ID:                 "quiz-1",
		Title:              "Demo quiz",
		Rules:              "Half a point per artist and song, bonus for the extra question.",
		Questions:          questions,
		Amount:             len(questions),
		MaxScorePerSong:    1.5,
		CalculatedMaxScore: scoring.MaxScore(questions),
		IsReady:            true,
		CreatedBy:          "demo-host",
	})
}
