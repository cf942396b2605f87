package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/sports-bankroll-ledger/internal/settlement-worker/replay"
	"github.com/radieske/sports-bankroll-ledger/internal/shared/config"
	"github.com/radieske/sports-bankroll-ledger/internal/shared/kafka"
	"github.com/radieske/sports-bankroll-ledger/internal/shared/logger"
)

// dlq-replay devolve mensagens da DLQ do settlement-worker ao tópico de resultados.
// Uso: dlq-replay -kinds retries_exhausted -max 100 -timeout 10s
func main() {
	kinds := flag.String("kinds", "", "tipos de falha a reenviar, separados por vírgula (vazio = todos)")
	target := flag.String("target", "", "tópico de destino (vazio = tópico de origem de cada mensagem)")
	limit := flag.Int("max", 0, "máximo de mensagens lidas (0 = sem limite)")
	timeout := flag.Duration("timeout", 10*time.Second, "tempo máximo de execução; a DLQ não sinaliza fim, então a execução termina por aqui ou por -max")
	flag.Parse()

	cfg := config.Load()
	log, err := logger.New("dlq-replay", cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx, stop := context.WithTimeout(ctx, *timeout)
	defer stop()

	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicGameOutcomesDLQ, cfg.ConsumerGroup+"-replay")
	defer reader.Close()
	writer := kafka.NewWriter(cfg.KafkaBrokers, "")
	defer writer.Close()

	r := &replay.Replayer{Log: log, Reader: reader, Writer: writer, Target: *target, Max: *limit}
	if *kinds != "" {
		r.Kinds = map[string]bool{}
		for _, k := range strings.Split(*kinds, ",") {
			if k = strings.TrimSpace(k); k != "" {
				r.Kinds[k] = true
			}
		}
	}

	st, err := r.Run(ctx)
	if err != nil {
		log.Fatal("replay failed", zap.Error(err), zap.Int("replayed", st.Replayed))
	}
	log.Info("replay finished", zap.Int("replayed", st.Replayed), zap.Int("skipped", st.Skipped))
}
