package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/sports-bankroll-ledger/internal/bankroll-service/bets"
	"github.com/radieske/sports-bankroll-ledger/internal/bankroll-service/domain"
	"github.com/radieske/sports-bankroll-ledger/internal/bankroll-service/forecast"
	bhttp "github.com/radieske/sports-bankroll-ledger/internal/bankroll-service/http"
	"github.com/radieske/sports-bankroll-ledger/internal/bankroll-service/ledger"
	kpub "github.com/radieske/sports-bankroll-ledger/internal/bankroll-service/producer"
	"github.com/radieske/sports-bankroll-ledger/internal/bankroll-service/repo"
	"github.com/radieske/sports-bankroll-ledger/internal/bankroll-service/stats"
	"github.com/radieske/sports-bankroll-ledger/internal/bankroll-service/ws"
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

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Armazenamento do ledger: Postgres em qualquer ambiente real, memória só para rodar local
	var store domain.Store
	var pg *sql.DB
	switch cfg.Store {
	case "memory":
		store = repo.NewMemory()
		log.Warn("using in-memory store, data is lost on restart")
	default:
		pg, err = db.ConnectPostgres(cfg.PostgresDSN)
		if err != nil {
			log.Fatal("postgres connect", zap.Error(err))
		}
		defer pg.Close()
		if err := db.Migrate(ctx, pg); err != nil {
			log.Fatal("postgres migrate", zap.Error(err))
		}
		store = repo.NewPostgres(pg)
		log.Info("postgres connected")
	}

	// Redis é opcional: sem ele não há cache de previsões nem push de saldo
	rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		log.Warn("redis unavailable, running without forecast cache and balance push", zap.Error(err))
	} else {
		defer rdb.Close()
		log.Info("redis connected")
	}

	// Kafka writer sem tópico fixo: cada evento informa o seu
	writer := kafka.NewWriter(cfg.KafkaBrokers, "")
	defer writer.Close()

	m := newServiceMetrics()
	prometheus.MustRegister(m.collectors()...)

	publ := kpub.NewKafkaPublisher(writer, kpub.Topics{
		BetPlaced:        cfg.TopicBetPlaced,
		BetSettled:       cfg.TopicBetSettled,
		BetCancelled:     cfg.TopicBetCancelled,
		BankrollAdjusted: cfg.TopicBankrollAdjusted,
	})
	publ.OnPublished = func(topic string) { m.published.WithLabelValues(topic).Inc() }
	publ.OnError = func(topic string) { m.publishErrors.WithLabelValues(topic).Inc() }

	var notifier bets.Notifier
	if rdb != nil {
		notifier = ws.NewRedisNotifier(rdb, cfg.RedisBalanceChannel)
	}

	svc := bets.NewService(log, store, ledger.New(store), publ, notifier)
	svc.MaxStake = domain.Money(cfg.MaxStakeCents)
	svc.OnPlaced = func(betType string) { m.placed.WithLabelValues(betType).Inc() }
	svc.OnSettled = func(status string) { m.settled.WithLabelValues(status).Inc() }
	svc.OnRejected = func(kind string) { m.rejected.WithLabelValues(kind).Inc() }

	// Previsões: client HTTP com cache Redis na frente
	var source forecast.Source = forecast.New(cfg.ForecastURL)
	if rdb != nil {
		cached := forecast.NewCached(log, rdb, source, cfg.ForecastCacheTTL)
		cached.OnHit = func() { m.forecastCache.WithLabelValues("hit").Inc() }
		cached.OnMiss = func() { m.forecastCache.WithLabelValues("miss").Inc() }
		source = cached
	}

	origins := splitList(cfg.CORSOrigins)
	hub := ws.NewHub(log, allowOrigin(origins))
	hub.OnConnect = func() { m.wsConnections.Inc() }
	hub.OnDisconnect = func() { m.wsConnections.Dec() }
	if rdb != nil {
		if err := ws.StartRedisSubscriber(ctx, log, rdb, cfg.RedisBalanceChannel, hub); err != nil {
			log.Warn("balance subscriber", zap.Error(err))
		}
	}

	api := &bhttp.API{
		Log:         log,
		Bets:        svc,
		Stats:       stats.NewService(store),
		Forecast:    source,
		WS:          hub.HandleWS,
		CORSOrigins: origins,
		OnRequest: func(route string, status int, d time.Duration) {
			m.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
			m.latency.WithLabelValues(route).Observe(d.Seconds())
		},
	}

	checks := []metrics.Check{{Name: "store", Fn: store.Ping}}
	if rdb != nil {
		checks = append(checks, metrics.Check{Name: "redis", Fn: cache.Ping(rdb)})
	}
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, metrics.All(checks...))
	log.Info("metrics/health", zap.String("addr", metricsSrv.Addr))

	apiSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("bankroll-service listening", zap.String("addr", apiSrv.Addr))
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("api", zap.Error(err))
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if err := apiSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("api shutdown", zap.Error(err))
	}
	_ = metricsSrv.Shutdown(shutdownCtx)
}

type serviceMetrics struct {
	placed        *prometheus.CounterVec
	settled       *prometheus.CounterVec
	rejected      *prometheus.CounterVec
	requests      *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	published     *prometheus.CounterVec
	publishErrors *prometheus.CounterVec
	forecastCache *prometheus.CounterVec
	wsConnections prometheus.Gauge
}

func newServiceMetrics() *serviceMetrics {
	return &serviceMetrics{
		placed:        prometheus.NewCounterVec(prometheus.CounterOpts{Name: "bankroll_bets_placed_total", Help: "apostas registradas"}, []string{"bet_type"}),
		settled:       prometheus.NewCounterVec(prometheus.CounterOpts{Name: "bankroll_bets_settled_total", Help: "apostas liquidadas por resultado"}, []string{"status"}),
		rejected:      prometheus.NewCounterVec(prometheus.CounterOpts{Name: "bankroll_operations_rejected_total", Help: "operações recusadas por tipo de erro"}, []string{"kind"}),
		requests:      prometheus.NewCounterVec(prometheus.CounterOpts{Name: "bankroll_http_requests_total", Help: "requisições HTTP"}, []string{"route", "status"}),
		latency:       prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: "bankroll_http_request_duration_seconds", Help: "latência por rota", Buckets: prometheus.DefBuckets}, []string{"route"}),
		published:     prometheus.NewCounterVec(prometheus.CounterOpts{Name: "bankroll_events_published_total", Help: "eventos publicados no kafka"}, []string{"topic"}),
		publishErrors: prometheus.NewCounterVec(prometheus.CounterOpts{Name: "bankroll_event_publish_errors_total", Help: "falhas de publicação no kafka"}, []string{"topic"}),
		forecastCache: prometheus.NewCounterVec(prometheus.CounterOpts{Name: "bankroll_forecast_cache_total", Help: "consultas ao cache de previsões"}, []string{"result"}),
		wsConnections: prometheus.NewGauge(prometheus.GaugeOpts{Name: "bankroll_ws_connections", Help: "conexões websocket abertas"}),
	}
}

func (m *serviceMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.placed, m.settled, m.rejected, m.requests, m.latency,
		m.published, m.publishErrors, m.forecastCache, m.wsConnections,
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// allowOrigin libera o upgrade do websocket para as mesmas origens do CORS
func allowOrigin(origins []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range origins {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}
