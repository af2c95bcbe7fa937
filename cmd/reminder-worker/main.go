package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/vidaplus/clinic-booking/internal/clock"
	"github.com/vidaplus/clinic-booking/internal/config"
	"github.com/vidaplus/clinic-booking/internal/db"
	"github.com/vidaplus/clinic-booking/internal/notify"
)

// The reminder worker sweeps for bookings starting within the reminder lead
// that have no sent reminder yet, and delivers one per booking. The
// notifications table keeps the sweep idempotent across restarts and
// replicas.
func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := zerolog.New(os.Stderr)
		boot.Fatal().Err(err).Msg("load config")
	}

	log := newLogger(cfg.Env).With().Str("service", "reminder-worker").Logger()
	log.Info().
		Str("env", cfg.Env).
		Dur("interval", cfg.WorkerInterval).
		Dur("lead", cfg.ReminderLead).
		Msg("starting")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pgPool.Close()

	if err := db.EnsureSchema(rootCtx, pgPool); err != nil {
		log.Fatal().Err(err).Msg("apply schema")
	}

	repo := notify.NewPgRepository(pgPool)
	sender := notify.LogSender{Log: log}
	svc := notify.NewService(repo, sender, clock.SystemClock{}, log)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	runSweep(rootCtx, svc, cfg.ReminderLead, log)

	for {
		select {
		case <-rootCtx.Done():
			log.Info().Msg("reminder-worker stopped")
			return
		case <-ticker.C:
			runSweep(rootCtx, svc, cfg.ReminderLead, log)
		}
	}
}

func runSweep(ctx context.Context, svc *notify.Service, lead time.Duration, log zerolog.Logger) {
	sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	sent, err := svc.SendDueReminders(sweepCtx, lead)
	if err != nil {
		log.Error().Err(err).Msg("reminder sweep failed")
		return
	}
	if sent > 0 {
		log.Info().Int("sent", sent).Msg("reminders sent")
	}
}

func newLogger(env string) zerolog.Logger {
	if env == "dev" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
