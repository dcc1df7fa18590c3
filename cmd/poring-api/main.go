// README: Entry point; loads config, wires stores and services, starts HTTP server.
package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"poring/internal/ai"
	"poring/internal/config"
	httptransport "poring/internal/http"
	"poring/internal/infra"
	"poring/internal/maps"
	"poring/internal/modules/bike"
	"poring/internal/modules/chat"
	"poring/internal/modules/hub"
	"poring/internal/modules/mission"
	"poring/internal/modules/rental"
	"poring/internal/modules/user"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal(err)
	}
	redisClient := infra.NewRedis(cfg.Redis.Addr)

	provider, err := ai.NewGeminiProvider(ctx, cfg.AI.GeminiKey)
	if err != nil {
		log.Fatalf("gemini init: %v", err)
	}
	defer provider.Close()

	// Walking ETA on nearby lookups is optional; without a key the field is omitted.
	var walker hub.WalkEstimator
	if cfg.Maps.APIKey != "" {
		routeSvc, err := maps.NewRouteService(cfg.Maps.APIKey)
		if err != nil {
			log.Fatalf("maps init: %v", err)
		}
		walker = routeSvc
	}

	hubStore := hub.NewStore(dbPool)
	hubSvc := hub.NewService(hubStore, walker)

	bikeStore := bike.NewStore(dbPool)
	userStore := user.NewStore(dbPool)

	rentalStore := rental.NewStore(dbPool)
	rentalSvc := rental.NewService(rentalStore, hubStore, bikeStore, userStore)

	missionStore := mission.NewStore(dbPool)
	missionSvc := mission.NewService(missionStore, hubStore, bikeStore, userStore,
		cfg.Ops.LowBatteryReward, cfg.Ops.ReturnDistanceM)

	chatStore := chat.NewStore(redisClient, dbPool,
		cfg.Chat.HistoryLimit, cfg.Chat.SessionTTL, cfg.Chat.MonthlyTokens)
	chatSvc := chat.NewService(chatStore, provider, hubSvc, bikeStore, rentalSvc, missionSvc, cfg.Ops)

	handler := httptransport.NewRouter(httptransport.RouterDeps{
		Hubs:     hubSvc,
		Bikes:    bikeStore,
		Users:    userStore,
		Rentals:  rentalSvc,
		Missions: missionSvc,
		Chat:     chatSvc,
		Logger:   logger,
		Ops:      cfg.Ops,
	})

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("listening", slog.String("addr", cfg.HTTP.Addr))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
