package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
	"unicode/utf8"

	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/basel-ax/restyle/internal/config"
	"github.com/basel-ax/restyle/internal/domain"
	"github.com/basel-ax/restyle/internal/imageprep"
	"github.com/basel-ax/restyle/internal/infrastructure/mockbrain"
	"github.com/basel-ax/restyle/internal/repository"
	"github.com/basel-ax/restyle/internal/retry"
	"github.com/basel-ax/restyle/internal/service"
)

const (
	maxPromptLength = 999
)

// truncatePrompt safely truncates a string to the specified length while preserving UTF-8 characters
func truncatePrompt(s string, length int) string {
	if utf8.RuneCountInString(s) <= length {
		return s
	}

	var size, n int
	for i := 0; i < length && n < len(s); i++ {
		_, size = utf8.DecodeRuneInString(s[n:])
		n += size
	}

	return s[:n]
}

func main() {
	// Parse command line flags
	verbose := flag.Bool("verbose", false, "Enable verbose logging")
	runWorker := flag.Bool("worker", false, "Run the style job worker")
	runCron := flag.Bool("cron", false, "Run the style job worker on a schedule")
	flag.Parse()

	// Configure logging
	var zl *zap.Logger
	var err error
	if *verbose {
		zl, err = zap.NewDevelopment()
	} else {
		zl, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	defer zl.Sync()
	log := zl.Sugar()

	// Check if at least one workflow is selected
	if !*runWorker && !*runCron {
		log.Fatal("Please specify a workflow to run: -worker or -cron")
	}

	// Load configuration
	log.Info("Loading configuration...")
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	log.Info("Configuration loaded successfully")

	// Initialize database connection
	log.Info("Initializing database connection...")
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Configure connection pool
	db.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	db.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)
	log.Info("Database connection established")

	// Initialize repositories and the generation service
	jobRepo := repository.NewPostgresJobRepository(db)
	history := repository.NewHistoryStore(
		repository.NewPostgresBlob(db, cfg.HistoryKey),
		cfg.HistoryLimit,
		log,
	)

	client := mockbrain.NewClient(
		mockbrain.WithLatencyWindow(cfg.LatencyMin, cfg.LatencyMax, nil),
		mockbrain.WithOverloadProbability(cfg.OverloadProbability, nil),
	)
	preparer := imageprep.New(cfg.MaxUploadBytes, cfg.MaxImageEdge, cfg.JPEGQuality)
	policy := retry.Policy{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   cfg.BaseDelay,
		JitterBound: cfg.JitterBound,
	}

	log.Info("Initializing generation service...")
	svc := service.NewGenerationService(client, policy, history, preparer, log)
	log.Info("Generation service initialized")

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Infof("Received signal: %v, initiating shutdown...", sig)
		cancel()
	}()

	// Start selected workflow
	if *runCron {
		log.Info("Starting scheduled workflow...")
		startCronWorkflow(ctx, log, jobRepo, svc)
	} else {
		log.Info("Starting style job worker...")
		go styleJobsWorkflow(ctx, log, jobRepo, svc, cfg.WorkerInterval)

		// Wait for context cancellation
		<-ctx.Done()
	}

	log.Info("Shutting down gracefully...")
}

func startCronWorkflow(ctx context.Context, log *zap.SugaredLogger, repo repository.JobRepository, svc *service.GenerationService) {
	// Create a new cron scheduler
	c := cron.New(cron.WithSeconds())

	var cronMutex sync.Mutex

	// Drain pending jobs every minute
	_, err := c.AddFunc("0 * * * * *", func() {
		log.Info("[CRON] Attempting to start scheduled job drain...")
		cronMutex.Lock()
		defer cronMutex.Unlock()
		log.Info("[CRON] Running scheduled job drain...")
		drainPendingJobs(ctx, log, repo, svc)
		log.Info("[CRON] Finished scheduled job drain.")
	})
	if err != nil {
		log.Errorf("Error scheduling job drain: %v", err)
		return
	}

	// Start the cron scheduler
	c.Start()
	log.Info("Cron scheduler started successfully")

	// Keep the scheduler running until context is cancelled
	<-ctx.Done()
	c.Stop()
	log.Info("Cron scheduler stopped")
}

func styleJobsWorkflow(ctx context.Context, log *zap.SugaredLogger, repo repository.JobRepository, svc *service.GenerationService, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("Style job worker stopped")
			return
		case <-ticker.C:
			drainPendingJobs(ctx, log, repo, svc)
		}
	}
}

// drainPendingJobs processes queued style jobs sequentially until the
// queue is empty or the context is cancelled. One flow at a time: a new
// generation is only started after the prior one reached a terminal
// state.
func drainPendingJobs(ctx context.Context, log *zap.SugaredLogger, repo repository.JobRepository, svc *service.GenerationService) {
	for {
		if ctx.Err() != nil {
			return
		}

		job, err := repo.NextPending(ctx)
		if err != nil {
			log.Errorf("Error getting pending job: %v", err)
			return
		}
		if job == nil {
			return
		}

		// Truncate prompt if it exceeds the maximum length
		originalPrompt := job.Prompt
		job.Prompt = truncatePrompt(job.Prompt, maxPromptLength)
		if len(originalPrompt) != len(job.Prompt) {
			log.Infof("Prompt for job ID %d was truncated from %d to %d characters", job.ID, len(originalPrompt), len(job.Prompt))
		}

		style := domain.Style(job.Style)
		if !style.Valid() {
			log.Errorf("Job ID %d has unknown style %q", job.ID, job.Style)
			if err := repo.MarkFailed(ctx, job.ID, "unknown style: "+job.Style); err != nil {
				log.Errorf("Error updating status for job ID %d: %v", job.ID, err)
			}
			continue
		}

		log.Infof("Processing job ID %d with prompt: %s", job.ID, job.Prompt)

		res, err := svc.GenerateFromFile(ctx, job.ImagePath, job.Prompt, style)
		if err != nil {
			if domain.IsCancelled(err) {
				log.Infof("Job ID %d interrupted by shutdown", job.ID)
				return
			}
			log.Errorf("Error generating for job ID %d: %v", job.ID, err)
			if err := repo.MarkFailed(ctx, job.ID, err.Error()); err != nil {
				log.Errorf("Error updating status for job ID %d: %v", job.ID, err)
			}
			continue
		}

		if err := repo.MarkDone(ctx, job.ID, res.ID); err != nil {
			log.Errorf("Error updating status for job ID %d: %v", job.ID, err)
			continue
		}

		log.Infof("Successfully styled job ID %d, result %s", job.ID, res.ID)
	}
}
