package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"judgehub/internal/common/cache"
	"judgehub/internal/common/db"
	commonmw "judgehub/internal/common/http/middleware"
	"judgehub/internal/common/mq"
	"judgehub/internal/dispatch/auth"
	"judgehub/internal/dispatch/controller"
	"judgehub/internal/dispatch/judgeclient"
	"judgehub/internal/dispatch/language"
	"judgehub/internal/dispatch/pool"
	"judgehub/internal/dispatch/queue"
	"judgehub/internal/dispatch/repository"
	"judgehub/internal/dispatch/service"
	"judgehub/internal/dispatch/stats"
	"judgehub/pkg/utils/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const defaultConfigPath = "configs/judge_dispatcher.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	flag.Parse()

	appCfg, err := loadAppConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load app config failed: %v\n", err)
		return
	}

	if err := logger.Init(appCfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	mysqlDB, err := db.NewMySQLWithConfig(&appCfg.Database)
	if err != nil {
		logger.Error(context.Background(), "init database failed", zap.Error(err))
		return
	}
	defer func() {
		_ = mysqlDB.Close()
	}()

	redisCache, err := cache.NewRedisCacheWithConfig(&appCfg.Redis)
	if err != nil {
		logger.Error(context.Background(), "init redis failed", zap.Error(err))
		return
	}
	defer func() {
		_ = redisCache.Close()
	}()

	mqClient, err := mq.NewKafkaQueue(appCfg.Kafka.toMQConfig())
	if err != nil {
		logger.Error(context.Background(), "init kafka failed", zap.Error(err))
		return
	}
	defer func() {
		_ = mqClient.Close()
	}()

	dispatcher, rankSvc, err := buildServices(appCfg, mysqlDB, redisCache, mqClient)
	if err != nil {
		logger.Error(context.Background(), "init dispatcher failed", zap.Error(err))
		return
	}

	err = mqClient.SubscribeWithOptions(context.Background(), appCfg.Kafka.DispatchTopic, dispatcher.HandleMessage, appCfg.Kafka.subscribeOptions())
	if err != nil {
		logger.Error(context.Background(), "subscribe kafka failed", zap.Error(err))
		return
	}
	if err := mqClient.Start(); err != nil {
		logger.Error(context.Background(), "start kafka consumer failed", zap.Error(err))
		return
	}

	httpServer := buildHTTPServer(appCfg, dispatcher, rankSvc)
	listener, err := net.Listen("tcp", appCfg.Server.Addr)
	if err != nil {
		logger.Error(context.Background(), "init http listener failed", zap.Error(err))
		return
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(context.Background(), "judge dispatcher started",
			zap.String("addr", appCfg.Server.Addr),
			zap.String("dispatch_topic", appCfg.Kafka.DispatchTopic),
		)
		errCh <- httpServer.Serve(listener)
	}()

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), "http server stopped", zap.Error(err))
		}
	case <-shutdownCtx.Done():
		logger.Info(context.Background(), "shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error(context.Background(), "http server shutdown failed", zap.Error(err))
	}
	_ = mqClient.Stop()
}

func buildServices(cfg *AppConfig, database db.Database, redisCache cache.Cache, producer mq.Producer) (*service.Dispatcher, *service.RankService, error) {
	publisher, err := service.NewPublisher(producer, cfg.Kafka.DispatchTopic)
	if err != nil {
		return nil, nil, err
	}
	pending, err := queue.New(redisCache, publisher, cfg.Judge.PendingKey)
	if err != nil {
		return nil, nil, err
	}
	judgePool, err := pool.New(repository.NewJudgeServerRepository(database), pool.Config{
		HeartbeatTolerance: cfg.Judge.HeartbeatTolerance,
		TaskPerCore:        cfg.Judge.TaskPerCore,
	})
	if err != nil {
		return nil, nil, err
	}

	problems := repository.NewProblemRepository(database, redisCache)
	contests := repository.NewContestRepository(database, redisCache, cfg.Judge.ContestTTL)
	ranks := repository.NewRankRepository(database)
	rankCache, err := repository.NewRankCache(redisCache, ranks, cfg.Rank.RankCacheConfig)
	if err != nil {
		return nil, nil, err
	}
	submissions := repository.NewSubmissionRepository(database)
	aggregator, err := stats.New(stats.Deps{
		Transactor:  database,
		Submissions: submissions,
		Problems:    problems,
		Profiles:    repository.NewProfileRepository(database),
		Progress:    repository.NewProgressRepository(database),
		Ranks:       ranks,
		Invalidator: rankCache,
	}, cfg.Rank.Penalty)
	if err != nil {
		return nil, nil, err
	}

	languages, err := language.NewRegistry(cfg.Languages)
	if err != nil {
		return nil, nil, err
	}
	judge, err := judgeclient.New(cfg.Judge.Token, cfg.Judge.RequestTimeout)
	if err != nil {
		return nil, nil, err
	}

	dispatcher, err := service.NewDispatcher(service.Config{
		Transactor:     database,
		Pool:           judgePool,
		Pending:        pending,
		Publisher:      publisher,
		Submissions:    submissions,
		Problems:       problems,
		Contests:       contests,
		Status:         repository.NewStatusCache(redisCache, cfg.Judge.StatusKey),
		Locker:         redisCache,
		Judge:          judge,
		Aggregator:     aggregator,
		Languages:      languages,
		RequestTimeout: cfg.Judge.RequestTimeout,
		LockTTL:        cfg.Judge.LockTTL,
		MaxDiffEntries: cfg.Judge.MaxDiffEntries,
		JudgeToken:     cfg.Judge.Token,
	})
	if err != nil {
		return nil, nil, err
	}
	rankSvc, err := service.NewRankService(contests, rankCache, nil)
	if err != nil {
		return nil, nil, err
	}
	return dispatcher, rankSvc, nil
}

func buildHTTPServer(cfg *AppConfig, dispatcher *service.Dispatcher, rankSvc *service.RankService) *http.Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(commonmw.TraceContextMiddleware())
	router.Use(commonmw.RequestLogger())

	controller.Routes{
		Dispatch:      controller.NewDispatchController(dispatcher),
		Admin:         controller.NewAdminController(dispatcher),
		Rank:          controller.NewRankController(rankSvc),
		Authenticator: auth.NewAuthenticator(cfg.Auth.Secret, cfg.Auth.Issuer),
		JudgeToken:    cfg.Judge.Token,
		Metrics:       promhttp.Handler(),
	}.Register(router)

	return &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
}
