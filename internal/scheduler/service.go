package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/moodlog/emotion-journal/internal/config"
	"github.com/moodlog/emotion-journal/internal/models"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// DigestRunner builds and delivers a digest for a period
type DigestRunner interface {
	Run(ctx context.Context, period string) (*models.Digest, error)
}

// Service schedules periodic digests
type Service struct {
	config *config.Config
	digest DigestRunner
	cron   *cron.Cron
}

// NewService creates a new scheduler service
func NewService(cfg *config.Config, digest DigestRunner) *Service {
	return &Service{
		config: cfg,
		digest: digest,
		cron:   cron.New(cron.WithSeconds()),
	}
}

// CronExpression returns the schedule for a digest period
func CronExpression(schedule string) (string, error) {
	switch schedule {
	case "daily":
		// Every day at 9 AM
		return "0 0 9 * * *", nil
	case "weekly":
		// Mondays at 9 AM
		return "0 0 9 * * MON", nil
	default:
		return "", fmt.Errorf("unknown digest schedule %q", schedule)
	}
}

// Start registers the digest job. It is a no-op when no schedule is configured.
func (s *Service) Start() error {
	if s.config.DigestSchedule == "" {
		logrus.Info("Digest schedule not configured, scheduler idle")
		return nil
	}

	expression, err := CronExpression(s.config.DigestSchedule)
	if err != nil {
		return err
	}

	_, err = s.cron.AddFunc(expression, s.runDigest)
	if err != nil {
		return err
	}

	s.cron.Start()
	logrus.Infof("Scheduler started with %s digest schedule", s.config.DigestSchedule)
	return nil
}

func (s *Service) runDigest() {
	logrus.Info("Starting scheduled digest run")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if _, err := s.digest.Run(ctx, s.config.DigestSchedule); err != nil {
		logrus.Errorf("Scheduled digest run failed: %v", err)
	}
}

// Stop stops the scheduler
func (s *Service) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
		logrus.Info("Scheduler stopped")
	}
}
