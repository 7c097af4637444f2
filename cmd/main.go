package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"go_kifu/internal/adapters"
	"go_kifu/internal/bootstrap"
	recordDelivery "go_kifu/internal/delivery/record"
	ownMiddleware "go_kifu/internal/middleware"
	repo "go_kifu/internal/repository"
	analysisUsecase "go_kifu/internal/usecase/analysis"
	recordUsecase "go_kifu/internal/usecase/record"
)

type dataBaseAdapters struct {
	redisAdapter *adapters.AdapterRedis
	mongoAdapter *adapters.AdapterMongo
}

func main() {
	logger := NewLogger()
	cfg, err := bootstrap.Setup(".env")
	if err != nil {
		logger.Error("Failed to setup configuration", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go handleShutdown(cancel, logger)

	databaseAdapters := initDatabaseAdapters(ctx, logger, *cfg)
	defer databaseAdapters.mongoAdapter.Close(ctx)
	defer databaseAdapters.redisAdapter.Close(ctx)

	katago, err := repo.NewKatagoClient(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to start analysis engine", zap.Error(err))
	}
	defer katago.Close()

	r := chi.NewRouter()
	handler := initializeDeliveryHandler(*cfg, logger, katago, databaseAdapters)
	Router(r, handler, cfg.IsLocalCors)

	port := cfg.ServerPort
	if port == "" {
		port = "8080"
	}
	if port[0] != ':' {
		port = ":" + port
	}
	logger.Infof("Server is running on port %s", port)
	if err := http.ListenAndServe(port, r); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}
}

func NewLogger() *zap.SugaredLogger {
	logger, err := zap.NewProduction()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	return logger.Sugar()
}

func Router(r *chi.Mux, h *recordDelivery.RecordHandler, isLocalCors bool) {
	if isLocalCors {
		r.Use(ownMiddleware.CORS)
	}
	r.Use(middleware.Logger)

	r.Get("/health", h.HandleHealth)
	r.Post("/record/upload", h.HandleUpload)
	r.Get("/record/list", h.HandleList)
	r.Get("/record", h.HandleRecord)
	r.Get("/record/board", h.HandleBoard)
	r.Post("/record/move", h.HandleMove)
	r.Post("/record/promote", h.HandlePromote)
	r.Get("/record/sgf", h.HandleSGF)
	r.Get("/record/line", h.HandleLine)
	r.Get("/record/resume", h.HandleResume)
	r.Get("/record/analyze", h.HandleAnalyze)
}

func initDatabaseAdapters(ctx context.Context, log *zap.SugaredLogger, cfg bootstrap.Config) *dataBaseAdapters {
	mongoAdapter := adapters.NewAdapterMongo(&cfg)
	if err := mongoAdapter.Init(ctx); err != nil {
		log.Fatal("Не удалось инициализировать MongoDB", zap.Error(err))
	}

	redisAdapter := adapters.NewAdapterRedis(&cfg)
	if err := redisAdapter.Init(ctx); err != nil {
		log.Fatal("Не удалось инициализировать Redis", zap.Error(err))
	}

	log.Info("Адаптеры баз данных инициализированы")
	return &dataBaseAdapters{
		redisAdapter: redisAdapter,
		mongoAdapter: mongoAdapter,
	}
}

func initializeDeliveryHandler(
	cfg bootstrap.Config,
	log *zap.SugaredLogger,
	katago *repo.KatagoClient,
	databaseAdapters *dataBaseAdapters,
) *recordDelivery.RecordHandler {
	recordRepo := repo.NewRecordRepository(cfg, log, databaseAdapters.redisAdapter.GetClient(), databaseAdapters.mongoAdapter.Database)
	sessions := repo.NewSessionRedisStorage(databaseAdapters.redisAdapter.GetClient())

	recordUC := recordUsecase.NewRecordUseCase(recordRepo, log, cfg.SgfStrict)
	analysisUC := analysisUsecase.NewAnalysisUseCase(cfg, log, katago, recordUC)

	return recordDelivery.NewRecordHandler(cfg, log, recordUC, analysisUC, sessions)
}

func handleShutdown(cancelFunc context.CancelFunc, log *zap.SugaredLogger) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	log.Info("Received shutdown signal")
	cancelFunc()
	time.Sleep(1 * time.Second) // дать время закрыть соединения
}
