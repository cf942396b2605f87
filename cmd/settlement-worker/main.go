package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/sports-bankroll-ledger/internal/bankroll-service/bets"
	"github.com/radieske/sports-bankroll-ledger/internal/bankroll-service/domain"
	"github.com/radieske/sports-bankroll-ledger/internal/bankroll-service/ledger"
	kpub "github.com/radieske/sports-bankroll-ledger/internal/bankroll-service/producer"
	"github.com/radieske/sports-bankroll-ledger/internal/bankroll-service/repo"
	"github.com/radieske/sports-bankroll-ledger/internal/bankroll-service/ws"
	"github.com/radieske/sports-bankroll-ledger/internal/settlement-worker/consumer"
	"github.com/radieske/sports-bankroll-ledger/internal/shared/cache"
	"github.com/radieske/sports-bankroll-ledger/internal/shared/config"
	"github.com/radieske/sports-bankroll-ledger/internal/shared/db"
	"github.com/radieske/sports-bankroll-ledger/internal/shared/kafka"
	"github.com/radieske/sports-bankroll-ledger/internal/shared/logger"
	"github.com/radieske/sports-bankroll-ledger/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// O worker liquida direto no ledger compartilhado com o bankroll-service
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()
	if err := db.Migrate(ctx, pg); err != nil {
		log.Fatal("postgres migrate", zap.Error(err))
	}
	store := repo.NewPostgres(pg)

	// Redis opcional: só serve para avisar os websockets do bankroll-service
	var notifier bets.Notifier
	checks := []metrics.Check{{Name: "postgres", Fn: store.Ping}}
	rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		log.Warn("redis unavailable, balance push disabled", zap.Error(err))
	} else {
		defer rdb.Close()
		notifier = ws.NewRedisNotifier(rdb, cfg.RedisBalanceChannel)
		checks = append(checks, metrics.Check{Name: "redis", Fn: cache.Ping(rdb)})
	}

	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicGameOutcomes, cfg.ConsumerGroup)
	defer reader.Close()

	// Um writer sem tópico fixo atende eventos do ledger e a DLQ
	writer := kafka.NewWriter(cfg.KafkaBrokers, "")
	defer writer.Close()

	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "settlement_messages_consumed_total", Help: "mensagens consumidas"})
	settled := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "settlement_bets_settled_total", Help: "apostas liquidadas por resultado"}, []string{"status"})
	dlq := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "settlement_dlq_total", Help: "mensagens enviadas à DLQ"}, []string{"kind"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "settlement_errors_total", Help: "erros por estágio"}, []string{"stage"})
	published := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "settlement_events_published_total", Help: "eventos publicados no kafka"}, []string{"topic"})
	prometheus.MustRegister(consumed, settled, dlq, errorsBy, published)

	publ := kpub.NewKafkaPublisher(writer, kpub.Topics{
		BetPlaced:        cfg.TopicBetPlaced,
		BetSettled:       cfg.TopicBetSettled,
		BetCancelled:     cfg.TopicBetCancelled,
		BankrollAdjusted: cfg.TopicBankrollAdjusted,
	})
	publ.OnPublished = func(topic string) { published.WithLabelValues(topic).Inc() }
	publ.OnError = func(string) { errorsBy.WithLabelValues("publish").Inc() }

	svc := bets.NewService(log, store, ledger.New(store), publ, notifier)
	svc.MaxStake = domain.Money(cfg.MaxStakeCents)

	proc := &consumer.Processor{
		Log:        log,
		Reader:     reader,
		Settler:    svc,
		DLQ:        writer,
		DLQTopic:   cfg.TopicGameOutcomesDLQ,
		OnConsumed: func() { consumed.Inc() },
		OnSettled:  func(status string) { settled.WithLabelValues(status).Inc() },
		OnDLQ:      func(kind string) { dlq.WithLabelValues(kind).Inc() },
		OnError:    func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, metrics.All(checks...))
	defer metricsSrv.Close()
	log.Info("metrics/health", zap.String("addr", metricsSrv.Addr))

	log.Info("settlement-worker started",
		zap.String("consume", cfg.TopicGameOutcomes),
		zap.String("dlq", cfg.TopicGameOutcomesDLQ),
		zap.String("group", cfg.ConsumerGroup),
	)
	if err := proc.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("processor stopped with error", zap.Error(err))
	}
	log.Info("settlement-worker stopped")
}
