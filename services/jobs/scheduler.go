package jobs

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"justice_flow_go/config"
	"justice_flow_go/services"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	// OccupancyReportSpec runs the weekly report on Mondays at 07:00
	OccupancyReportSpec = "0 7 * * 1"
	// RetentionSweepSpec runs the nightly purge at 03:00
	RetentionSweepSpec = "0 3 * * *"
)

// StartScheduler registers the periodic jobs in the configured timezone and starts them.
// The caller stops the returned cron on shutdown.
func StartScheduler(database *gorm.DB, cfg *config.Config) (*cron.Cron, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Printf("[CRON] Unknown timezone %q, falling back to UTC", cfg.Timezone)
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc), cron.WithChain(cron.Recover(cron.DefaultLogger)))

	if _, err := c.AddFunc(OccupancyReportSpec, func() {
		log.Println("[CRON] Running weekly occupancy report")
		if err := SendOccupancyReport(context.Background(), database, cfg, services.Storage, time.Now().In(loc)); err != nil {
			log.Errorf("[CRON] Occupancy report failed: %v", err)
		}
	}); err != nil {
		return nil, fmt.Errorf("failed to schedule occupancy report: %w", err)
	}

	if _, err := c.AddFunc(RetentionSweepSpec, func() {
		log.Println("[CRON] Running retention sweep")
		if err := RunRetentionSweep(context.Background(), database, cfg); err != nil {
			log.Errorf("[CRON] Retention sweep failed: %v", err)
		}
	}); err != nil {
		return nil, fmt.Errorf("failed to schedule retention sweep: %w", err)
	}

	c.Start()
	log.Printf("[CRON] Scheduler started (%s)", loc)
	return c, nil
}

// SendOccupancyReport builds the occupancy workbook, archives it when storage is
// available and emails it to the report recipients
func SendOccupancyReport(ctx context.Context, database *gorm.DB, cfg *config.Config, storage services.StorageProvider, now time.Time) error {
	rows, err := services.PrisonOccupancy(database.WithContext(ctx))
	if err != nil {
		return err
	}
	workbook, err := services.BuildOccupancyWorkbook(rows, now)
	if err != nil {
		return err
	}

	if storage != nil {
		key := services.GenerateReportKey("occupancy", now)
		if _, err := storage.UploadReader(ctx, bytes.NewReader(workbook), key, services.XLSXContentType, int64(len(workbook))); err != nil {
			log.Warnf("[CRON] Failed to archive occupancy report: %v", err)
		}
	}

	if len(cfg.ReportRecipients) == 0 {
		log.Println("[CRON] No report recipients configured, skipping email")
		return nil
	}

	data := services.OccupancyReportEmailData{
		GeneratedAt: now.Format("2006-01-02 15:04"),
		PrisonCount: len(rows),
	}
	for _, r := range rows {
		data.Detained += r.Total
		if r.Rate > 1 {
			data.Overcrowded++
		}
	}
	email := services.BuildOccupancyReportEmail(cfg.ReportRecipients, data, workbook)
	if err := services.SendEmail(cfg, email); err != nil {
		return fmt.Errorf("failed to send occupancy report: %w", err)
	}
	log.Printf("[CRON] Occupancy report sent to %d recipients", len(cfg.ReportRecipients))
	return nil
}

// RunRetentionSweep purges expired audit rows and refresh credentials
func RunRetentionSweep(ctx context.Context, database *gorm.DB, cfg *config.Config) error {
	purged, err := services.PurgeExpiredAuditLogs(ctx, database, cfg.AuditRetentionDays)
	if err != nil {
		return err
	}
	tokens, err := services.CleanupExpiredRefreshTokens(database.WithContext(ctx))
	if err != nil {
		return err
	}

	services.Audit.LogActivity(ctx, services.SystemActor(), services.AuditEvent{
		Action:       "audit.retention_sweep",
		ResourceType: "AuditLog",
		Details:      fmt.Sprintf("purged=%d refresh_tokens=%d retention_days=%d", purged, tokens, cfg.AuditRetentionDays),
	})
	log.WithFields(log.Fields{"audit_rows": purged, "refresh_tokens": tokens}).Info("[CRON] Retention sweep completed")
	return nil
}
