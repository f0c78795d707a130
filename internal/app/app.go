package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/otabekdev/exchangebot/internal/bot"
	"github.com/otabekdev/exchangebot/internal/broadcast"
	"github.com/otabekdev/exchangebot/internal/config"
	"github.com/otabekdev/exchangebot/internal/dedup"
	"github.com/otabekdev/exchangebot/internal/pg"
	"github.com/otabekdev/exchangebot/internal/repo"
	"github.com/otabekdev/exchangebot/internal/service"
	"github.com/otabekdev/exchangebot/internal/telegram"
	"github.com/otabekdev/exchangebot/pkg/clients"
	"github.com/otabekdev/exchangebot/pkg/logger"
)

type ApplicationI interface {
	Start(ctx context.Context) error
	Wait(ctx context.Context, cancel context.CancelFunc) error
}

type Application struct {
	cfg    *config.Config
	repo   *repo.Repositories
	srv    *service.Services
	poller *bot.Poller

	errCh chan error
	wg    sync.WaitGroup
	ready bool
}

func New() *Application {
	return &Application{
		errCh: make(chan error),
	}
}

func (a *Application) Start(ctx context.Context) error {
	cfg := config.New()

	err := logger.InitLogger(cfg)
	if err != nil {
		return fmt.Errorf("can't init logger: %w", err)
	}

	if names := cfg.InvalidCardMethods(); len(names) > 0 {
		zap.L().Warn("payment methods with invalid card numbers", zap.String("methods", strings.Join(names, ", ")))
	}

	pool, err := getPgxpool(ctx, cfg)
	if err != nil {
		zap.L().Error("build pgx pool failed: ", zap.Error(err))
		return fmt.Errorf("can't build pgx pool: %w", err)
	}
	if err := pg.RunMigrations(pool); err != nil {
		zap.L().Error("migrations failed: ", zap.Error(err))
		return fmt.Errorf("can't run migrations: %w", err)
	}
	txManager := pg.NewTXManager(pool)

	conn := pg.New(pool)
	a.cfg = cfg
	a.repo = repo.New(conn, txManager)
	a.srv = service.New(cfg, a.repo)

	tgClient := telegram.NewClient(clients.NewHTTPClient(), cfg.TelegramAPIURL, cfg.TelegramToken)
	dispatcher := broadcast.New(cfg.BroadcastPace())
	handler := bot.NewHandler(tgClient, a.repo.Accounts, a.srv.Orders, a.srv.Review, dispatcher, cfg)
	a.poller = bot.NewPoller(tgClient, handler, a.dedupStore(ctx), cfg.PollTimeout)

	if err = a.startHTTPServer(ctx); err != nil {
		return fmt.Errorf("can't start http server: %w", err)
	}

	a.startPoller(ctx)

	a.ready = true
	zap.L().Info("all systems started successfully")
	return nil
}

// dedupStore is best effort: without redis the bot still runs, it just
// re-processes redelivered updates.
func (a *Application) dedupStore(ctx context.Context) bot.DedupStore {
	if a.cfg.RedisURL == "" {
		return nil
	}

	opt, err := redis.ParseURL(a.cfg.RedisURL)
	if err != nil {
		zap.L().Warn("bad redis url, update dedup disabled", zap.Error(err))
		return nil
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		zap.L().Warn("redis unreachable, update dedup disabled", zap.Error(err))
		return nil
	}
	return dedup.New(client, a.cfg.DedupTTL())
}

func getPgxpool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	cfgpool, err := pgxpool.ParseConfig(cfg.Database)
	if err != nil {
		return nil, err
	}
	dbpool, err := pgxpool.NewWithConfig(ctx, cfgpool)
	if err != nil {
		return nil, err
	}
	if err = dbpool.Ping(ctx); err != nil {
		return nil, err
	}
	return dbpool, nil
}

func (a *Application) startHTTPServer(ctx context.Context) error {
	router := chi.NewRouter()
	a.initRoutes(router)
	server := http.Server{
		Addr:    a.cfg.Address,
		Handler: router,
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		<-ctx.Done()

		sCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(sCtx)
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		zap.L().Info("starting ops http server", zap.String("address", a.cfg.Address))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.errCh <- fmt.Errorf("http server exited with error: %w", err)
		}
	}()

	return nil
}

func (a *Application) initRoutes(router chi.Router) {
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if !a.ready {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	router.Get("/api/stats", a.statsHandler)
}

func (a *Application) statsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := a.srv.Review.Stats(r.Context(), time.Now())
	if err != nil {
		http.Error(w, "can't collect stats", http.StatusInternalServerError)
		return
	}
	accounts, err := a.repo.Accounts.Count(r.Context())
	if err != nil {
		http.Error(w, "can't collect stats", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"accounts": accounts,
		"today": map[string]any{
			"orders":   stats.TodayTotal,
			"approved": stats.TodayApproved,
			"amount":   stats.TodayAmount,
		},
		"week": map[string]any{
			"orders":   stats.WeekTotal,
			"approved": stats.WeekApproved,
			"amount":   stats.WeekAmount,
		},
	})
}

func (a *Application) startPoller(ctx context.Context) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.poller.Run(ctx); err != nil {
			a.errCh <- fmt.Errorf("poller exited with error: %w", err)
		}
	}()
}

func (a *Application) Wait(ctx context.Context, cancel context.CancelFunc) error {
	var appErr error

	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()

		for err := range a.errCh {
			cancel()
			zap.L().Error(err.Error())
			appErr = err
		}
	}()

	<-ctx.Done()
	a.wg.Wait()
	close(a.errCh)
	wg.Wait()

	return appErr
}
