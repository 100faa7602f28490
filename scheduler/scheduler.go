// Package scheduler loads the drug catalog at startup and refreshes it on a
// daily schedule, swapping it into the data container when it succeeds.
package scheduler

import (
	"fmt"
	"time"

	"github.com/giygas/prescriptions-api/interfaces"
	"github.com/giygas/prescriptions-api/logging"
	"github.com/go-co-op/gocron"
)

// Compile-time check to ensure Scheduler implements Scheduler interface
var _ interfaces.Scheduler = (*Scheduler)(nil)

const (
	staleCheckInterval = time.Hour
	staleAfter         = 25 * time.Hour
)

// Scheduler handles catalog refreshes using dependency injection
type Scheduler struct {
	dataStore interfaces.DataStore
	parser    interfaces.Parser
	validator interfaces.DataValidator
	refreshAt string
	scheduler *gocron.Scheduler
	stop      chan struct{}
}

// NewScheduler creates a new scheduler instance with injected dependencies.
// refreshAt is a gocron At() expression such as "06:00;18:00".
func NewScheduler(dataStore interfaces.DataStore, parser interfaces.Parser, validator interfaces.DataValidator, refreshAt string) *Scheduler {
	return &Scheduler{
		dataStore: dataStore,
		parser:    parser,
		validator: validator,
		refreshAt: refreshAt,
		scheduler: gocron.NewScheduler(time.Local),
		stop:      make(chan struct{}),
	}
}

// Start performs the initial load, then schedules the refreshes
func (s *Scheduler) Start() error {
	if err := s.updateData(); err != nil {
		logging.Error("Failed to perform initial catalog load", "error", err)
		return fmt.Errorf("initial catalog load failed: %w", err)
	}

	_, err := s.scheduler.Every(1).Days().At(s.refreshAt).Do(func() {
		if err := s.updateData(); err != nil {
			// The previous catalog keeps being served
			logging.Error("Failed to refresh catalog", "error", err)
		}
	})
	if err != nil {
		logging.Error("Failed to schedule refreshes", "error", err, "refresh_at", s.refreshAt)
		return fmt.Errorf("failed to schedule refreshes: %w", err)
	}

	s.scheduler.StartAsync()

	s.startHealthMonitoring()

	return nil
}

// Stop stops the scheduler and the monitoring goroutine
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
}

// updateData rebuilds the catalog and stores it
func (s *Scheduler) updateData() error {
	if !s.dataStore.BeginUpdate() {
		logging.Info("Update already in progress, skipping...")
		return nil
	}
	defer s.dataStore.EndUpdate()

	logging.Info(fmt.Sprintf("Starting catalog update at: %s", time.Now().Format(time.RFC3339)))
	start := time.Now()

	catalog, err := s.parser.ParseCatalog()
	if err != nil {
		logging.Error("Failed to build catalog", "error", err)
		return fmt.Errorf("failed to build catalog: %w", err)
	}

	previous := s.dataStore.GetCatalog()
	if s.dataStore.HasCatalog() && previous.Hash() == catalog.Hash() {
		// Same content, keep the catalog and its report, only refresh the timestamp
		s.dataStore.UpdateCatalog(previous, s.dataStore.GetQualityReport())
		logging.Info("Catalog unchanged", "duration", time.Since(start).String(), "entries", previous.Len())
		return nil
	}

	report := s.validator.ReportDataQuality(catalog)

	if report.LabelCollisions > 0 {
		logging.Warn("Catalog labels collide, later entries are not selectable",
			"count", report.LabelCollisions,
		)
	}

	if report.EntriesWithoutDose > 0 {
		logging.Warn("Catalog entries without dose",
			"count", report.EntriesWithoutDose,
			"sample", report.SampleWithoutDose,
		)
	}

	s.dataStore.UpdateCatalog(catalog, report)

	elapsed := time.Since(start)
	logging.Info("Catalog update completed", "duration", elapsed.String(), "entries", catalog.Len())

	return nil
}

// startHealthMonitoring warns when the catalog has not been refreshed for too long
func (s *Scheduler) startHealthMonitoring() {
	go func() {
		ticker := time.NewTicker(staleCheckInterval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				lastUpdate := s.dataStore.GetLastUpdated()
				if time.Since(lastUpdate) > staleAfter {
					logging.Warn("Catalog hasn't been updated in over 25 hours", "last_update", lastUpdate)
				}
			}
		}
	}()
}
