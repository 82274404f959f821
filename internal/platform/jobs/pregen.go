package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// DoctorLister supplies the doctors whose schedules get pre-generated.
type DoctorLister interface {
	ListDoctorIDs(ctx context.Context) ([]uuid.UUID, error)
}

// SlotSeeder materializes the day schedule for one doctor-day.
type SlotSeeder interface {
	EnsureSchedule(ctx context.Context, doctorID uuid.UUID, date time.Time) error
}

// Pregenerator keeps a rolling window of day schedules materialized ahead
// of time so the first booking of a busy morning does not pay the
// generation cost.
type Pregenerator struct {
	logger zerolog.Logger
	lister DoctorLister
	seeder SlotSeeder
	window int
	clock  func() time.Time
	cron   *cron.Cron
}

func NewPregenerator(logger zerolog.Logger, lister DoctorLister, seeder SlotSeeder, windowDays int) *Pregenerator {
	if windowDays <= 0 {
		windowDays = 7
	}
	return &Pregenerator{
		logger: logger,
		lister: lister,
		seeder: seeder,
		window: windowDays,
		clock:  time.Now,
	}
}

// Start schedules RunOnce on the given cron spec and runs it once
// immediately so a fresh deployment is covered right away.
func (p *Pregenerator) Start(spec string) error {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if err := p.RunOnce(context.Background()); err != nil {
			p.logger.Error().Err(err).Msg("schedule pre-generation run failed")
		}
	})
	if err != nil {
		return err
	}
	c.Start()
	p.cron = c

	go func() {
		if err := p.RunOnce(context.Background()); err != nil {
			p.logger.Error().Err(err).Msg("initial schedule pre-generation failed")
		}
	}()
	return nil
}

// Stop halts the cron scheduler. Running jobs finish.
func (p *Pregenerator) Stop() {
	if p.cron != nil {
		<-p.cron.Stop().Done()
	}
}

// RunOnce seeds schedules for every doctor over the rolling window
// starting today. Per-day failures are logged and do not stop the sweep.
func (p *Pregenerator) RunOnce(ctx context.Context) error {
	doctorIDs, err := p.lister.ListDoctorIDs(ctx)
	if err != nil {
		return err
	}

	today := p.clock()
	seeded, failed := 0, 0
	for _, id := range doctorIDs {
		for day := 0; day < p.window; day++ {
			date := today.AddDate(0, 0, day)
			if err := p.seeder.EnsureSchedule(ctx, id, date); err != nil {
				failed++
				p.logger.Error().Err(err).
					Str("doctor_id", id.String()).
					Str("date", date.Format("2006-01-02")).
					Msg("failed to pre-generate day schedule")
				continue
			}
			seeded++
		}
	}

	p.logger.Info().
		Int("doctors", len(doctorIDs)).
		Int("days_seeded", seeded).
		Int("days_failed", failed).
		Msg("schedule pre-generation sweep finished")
	return nil
}
