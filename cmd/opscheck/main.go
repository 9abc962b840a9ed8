package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/garka/garka-backend/config"
	"github.com/garka/garka-backend/internal/app/repository"
	"github.com/garka/garka-backend/internal/app/service"
	"github.com/garka/garka-backend/internal/db"
	"github.com/garka/garka-backend/internal/storage"
	"github.com/garka/garka-backend/pkg/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		return service.OpsExitError
	}

	payoutThreshold := flag.Int64("payout-threshold", cfg.Ops.PendingPayoutThreshold, "stuck pending payouts that trigger exit code 2")
	heldThreshold := flag.Int64("held-threshold", cfg.Ops.HeldVerificationThreshold, "stuck held verifications that trigger exit code 3")
	hours := flag.Int("hours", cfg.Ops.PendingAgeHours, "age in hours before an item counts as stuck")
	archive := flag.Bool("archive", cfg.S3.Bucket != "", "upload the report to the ops S3 bucket")
	flag.Parse()

	// stdout carries the report; logs go to stderr
	logger.Initialize(logger.Config{
		Level:  cfg.Log.Level,
		Format: "json",
		Output: os.Stderr,
	})

	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Error("Failed to initialize database", err)
		return service.OpsExitError
	}
	defer db.Close()

	ops := service.NewOpsService(
		repository.NewVerificationRepository(db.GetDB()),
		repository.NewTransactionRepository(db.GetDB()),
	)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	report, code := ops.Check(ctx, service.OpsThresholds{
		PendingPayouts:    *payoutThreshold,
		HeldVerifications: *heldThreshold,
		Hours:             *hours,
	})

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		logger.Error("Failed to write report", err)
		return service.OpsExitError
	}

	if *archive {
		store, err := storage.NewS3Storage(ctx, cfg.S3.Region, cfg.S3.Bucket, cfg.S3.AccessKeyID, cfg.S3.SecretAccessKey, cfg.Ops.ReportPrefix)
		if err != nil {
			logger.Error("Failed to initialize report archive", err)
			return code
		}
		key, err := store.ArchiveJSON(ctx, "opscheck", report)
		if err != nil {
			logger.Error("Failed to archive ops report", err)
			return code
		}
		logger.Info("Archived ops report", map[string]interface{}{
			"bucket": cfg.S3.Bucket,
			"key":    key,
		})
	}

	return code
}
