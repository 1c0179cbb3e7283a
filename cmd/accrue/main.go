// Package main: одноразовое начисление дневного дохода (для внешнего cron).
// Использует ту же аренду в Redis, что и встроенный планировщик.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/goldmine/internal/app"
	"serotonyl.ru/goldmine/internal/config"
	"serotonyl.ru/goldmine/internal/jobs"
)

func main() {
	timeout := flag.Duration("timeout", 30*time.Minute, "максимальное время прохода")
	flag.Parse()

	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	log.SetOutput(os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Не удалось загрузить конфигурацию")
	}
	if cfg.StoreDriver == config.StoreMemory {
		log.Fatal("cmd/accrue не имеет смысла с STORE_DRIVER=memory")
	}
	if level, err := log.ParseLevel(cfg.AppLogLevel); err == nil {
		log.SetLevel(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	os.Exit(run(ctx, cfg))
}

func run(ctx context.Context, cfg *config.Config) int {
	core, err := app.NewCore(ctx, cfg)
	if err != nil {
		log.WithError(err).Error("Не удалось инициализировать хранилище")
		return 1
	}
	defer core.Close()

	report, err := core.Accrual.Run(ctx)
	if errors.Is(err, jobs.ErrLeaseHeld) {
		log.Info("Начисление уже выполняет другой экземпляр")
		return 0
	}
	fmt.Println(jobs.FormatReport(report, err))
	if err != nil {
		log.WithError(err).Error("Начисление завершилось с ошибками")
		return 1
	}
	return 0
}
