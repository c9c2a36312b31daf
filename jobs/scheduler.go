package jobs

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"earnapp/service"
)

// OperatorChannel delivers messages to the operator channel
type OperatorChannel interface {
	Send(ctx context.Context, text string) error
}

// Scheduler runs the background jobs: a keep-alive ping so free-tier
// hosting does not idle the service out, and a daily activity summary
// for the operator.
type Scheduler struct {
	cron     *cron.Cron
	stats    service.StatsService
	operator OperatorChannel
	baseURL  string
	client   *http.Client
}

// NewScheduler creates the job scheduler. Jobs run on UTC so the daily
// summary aligns with the ledger's reset hour.
func NewScheduler(stats service.StatsService, operator OperatorChannel, baseURL string, resetHour int) *Scheduler {
	s := &Scheduler{
		cron:     cron.New(cron.WithLocation(time.UTC)),
		stats:    stats,
		operator: operator,
		baseURL:  baseURL,
		client:   &http.Client{Timeout: 15 * time.Second},
	}

	if s.baseURL != "" {
		s.cron.AddFunc("*/10 * * * *", s.keepAlive)
	}
	s.cron.AddFunc(fmt.Sprintf("5 %d * * *", resetHour), s.dailySummary)

	return s
}

// Start begins running the scheduled jobs
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Info("Job scheduler started")
}

// Stop halts the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Info("Job scheduler stopped")
}

func (s *Scheduler) keepAlive() {
	resp, err := s.client.Get(s.baseURL + "/healthz")
	if err != nil {
		log.WithError(err).Warn("Keep-alive ping failed")
		return
	}
	resp.Body.Close()
	log.WithField("status", resp.StatusCode).Debug("Keep-alive ping")
}

func (s *Scheduler) dailySummary() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stats, err := s.stats.GetDailyStats(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to collect daily stats")
		return
	}

	text := fmt.Sprintf(
		"📊 Daily summary for %s\n\nUsers: %d\nAds credited: %d\nPending withdrawals: %d",
		stats.PeriodStart.Format("2006-01-02"),
		stats.TotalUsers, stats.AdsWatched, stats.PendingWithdrawals,
	)
	if err := s.operator.Send(ctx, text); err != nil {
		log.WithError(err).Error("Failed to send daily summary")
	}
}
