// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание ежедневного начисления дохода.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/goldmine/internal/common"
	"serotonyl.ru/goldmine/internal/features/settlement"
)

// Scheduler запускает начисление по расписанию.
type Scheduler struct {
	cron     *cron.Cron
	spec     string
	job      *AccrualJob
	sendFunc func(text string)
}

// NewScheduler создаёт планировщик в часовом поясе loc.
// sendFunc (может быть nil) получает отчёт после каждого прохода.
func NewScheduler(job *AccrualJob, spec string, loc *time.Location, sendFunc func(text string)) (*Scheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("неверное расписание %q: %w", spec, err)
	}
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		spec:     spec,
		job:      job,
		sendFunc: sendFunc,
	}, nil
}

// Start запускает планировщик.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		log.Info("[CRON] Ежедневное начисление дохода")
		s.runAndReport(ctx)
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	log.WithField("spec", s.spec).Info("Планировщик задач запущен")
	return nil
}

func (s *Scheduler) runAndReport(ctx context.Context) {
	report, err := s.job.Run(ctx)
	switch {
	case errors.Is(err, ErrLeaseHeld):
		return
	case err != nil:
		log.WithError(err).Error("[CRON] Ошибка начисления")
	}
	if s.sendFunc != nil && report != nil {
		s.sendFunc(FormatReport(report, err))
	}
}

// Stop останавливает планировщик и ждёт завершения текущего прохода.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}

// FormatReport: текст отчёта о начислении для админ-консоли.
func FormatReport(r *settlement.AccrualReport, err error) string {
	if r == nil {
		return fmt.Sprintf("❌ Начисление не выполнено: %v", err)
	}
	day := r.Day
	if day == "" {
		day = "без привязки к дню"
	}
	text := fmt.Sprintf("💰 Начисление дохода (%s)\n"+
		"Активных покупок: %d\nНачислено: %d на %s\nЗавершено планов: %d\nПропущено: %d",
		day, r.Active, r.Credited, common.FormatMoney(r.Total), r.Completed, r.Skipped)
	if r.Failed > 0 || err != nil {
		text += fmt.Sprintf("\n⚠️ Ошибок: %d", r.Failed)
	}
	return text
}
