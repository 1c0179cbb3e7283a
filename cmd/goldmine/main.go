// Package main: точка входа сервиса: HTTP API, админ-консоль и планировщик.
// Поддерживает graceful shutdown по SIGINT/SIGTERM.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/goldmine/internal/app"
	"serotonyl.ru/goldmine/internal/config"
)

func main() {
	setupLogging()

	log.Info("=== GoldMine запускается ===")

	// Загружаем конфигурацию из .env и переменных окружения
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Не удалось загрузить конфигурацию")
	}

	if level, err := log.ParseLevel(cfg.AppLogLevel); err == nil {
		log.SetLevel(level)
	}

	// Контекст с отменой для graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application, err := app.New(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("Не удалось инициализировать приложение")
	}
	defer application.Close()

	// Обрабатываем сигналы остановки (Ctrl+C, docker stop)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-quit
		log.Infof("Получен сигнал %s, останавливаемся...", sig)
		cancel()
	}()

	log.WithField("addr", cfg.HTTPAddr).Info("=== GoldMine готов к работе ===")
	if err := application.Run(ctx); err != nil {
		log.WithError(err).Error("Приложение завершилось с ошибкой")
		return
	}

	log.Info("=== GoldMine остановлен ===")
}

// setupLogging настраивает формат логов.
func setupLogging() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.DebugLevel)
}
