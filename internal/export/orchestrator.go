package export

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"trading-analytics-go/internal/backend"
	"trading-analytics-go/internal/config"
	"trading-analytics-go/internal/models"
	"trading-analytics-go/internal/query"
)

const (
	// MsgStorageFailed is reported when the backend returns no artifact reference.
	MsgStorageFailed = "Export to S3 failed"
	// MsgExportFailed is the fallback for errors that carry no text.
	MsgExportFailed = "Export failed"
)

// JobStore is the ledger the orchestrator records jobs in.
type JobStore interface {
	Create(ctx context.Context, job *models.ExportJob) error
	Finish(ctx context.Context, rowID uint, status models.JobStatus, message, downloadURL string) (*models.ExportJob, error)
	Recent(ctx context.Context, limit int) ([]models.ExportJob, error)
}

// Request is one export submission.
type Request struct {
	Account  string     `json:"account"`
	Platform PlatformID `json:"platform"`
	Config   Config     `json:"config"`
}

// Orchestrator sequences export jobs. Jobs are independent and may run
// concurrently.
type Orchestrator struct {
	api          backend.API
	jobs         JobStore
	logger       *zap.Logger
	destinations map[PlatformID]Destination
	limit        int
	historySize  int
	now          func() time.Time
	wg           sync.WaitGroup
}

// NewOrchestrator wires the destinations from configuration. loc is used
// for dates embedded in dataset descriptions.
func NewOrchestrator(api backend.API, jobs JobStore, cfg config.Exports, loc *time.Location, logger *zap.Logger) *Orchestrator {
	o := &Orchestrator{
		api:         api,
		jobs:        jobs,
		logger:      logger.Named("export"),
		limit:       cfg.Limit,
		historySize: cfg.HistorySize,
		now:         time.Now,
	}
	o.destinations = map[PlatformID]Destination{
		GoogleDrive:  driveDestination{folder: cfg.DriveFolder},
		QuantConnect: quantConnectDestination{},
		Kaggle:       kaggleDestination{now: func() time.Time { return o.now() }, loc: loc},
		Local:        localDestination{},
	}
	return o
}

// Run executes an export synchronously and returns the finished job.
// Validation errors are returned before any job is created; failures after
// that are recorded on the job instead.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*models.ExportJob, error) {
	job, cfg, err := o.begin(ctx, req)
	if err != nil {
		return nil, err
	}
	return o.execute(ctx, job, req.Account, cfg), nil
}

// Submit creates the job and runs the workflow in the background. The
// returned job is a snapshot in the running state.
func (o *Orchestrator) Submit(ctx context.Context, req Request) (*models.ExportJob, error) {
	job, cfg, err := o.begin(ctx, req)
	if err != nil {
		return nil, err
	}
	snapshot := *job

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.execute(context.WithoutCancel(ctx), job, req.Account, cfg)
	}()
	return &snapshot, nil
}

// Wait blocks until every submitted job has finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Jobs returns the most recent jobs, newest first.
func (o *Orchestrator) Jobs(ctx context.Context) ([]models.ExportJob, error) {
	return o.jobs.Recent(ctx, o.historySize)
}

func (o *Orchestrator) begin(ctx context.Context, req Request) (*models.ExportJob, Config, error) {
	platform, err := LookupPlatform(req.Platform)
	if err != nil {
		return nil, Config{}, err
	}
	cfg, err := platform.Validate(req.Config)
	if err != nil {
		return nil, Config{}, err
	}

	now := o.now()
	job := &models.ExportJob{
		JobID:     fmt.Sprintf("export-%d", now.UnixMilli()),
		Platform:  string(platform.ID),
		Status:    models.JobRunning,
		Message:   fmt.Sprintf("Exporting to %s...", platform.Name),
		CreatedAt: now,
	}
	if err := o.jobs.Create(ctx, job); err != nil {
		return nil, Config{}, err
	}
	o.logger.Info("Export job started",
		zap.String("job_id", job.JobID),
		zap.String("platform", job.Platform),
		zap.String("account", req.Account),
	)
	return job, cfg, nil
}

// execute runs the workflow and records the single terminal transition.
func (o *Orchestrator) execute(ctx context.Context, job *models.ExportJob, account string, cfg Config) *models.ExportJob {
	logger := o.logger.With(zap.String("job_id", job.JobID), zap.String("platform", job.Platform))

	status, message, url := o.workflow(ctx, logger, PlatformID(job.Platform), account, cfg)

	done, err := o.jobs.Finish(ctx, job.RowID, status, message, url)
	if err != nil {
		logger.Error("Failed to record export outcome", zap.Error(err))
		job.Status, job.Message = status, message
		if job.DownloadURL == "" {
			job.DownloadURL = url
		}
		return job
	}

	if status == models.JobFailed {
		logger.Warn("Export job failed", zap.String("message", message))
	} else {
		logger.Info("Export job succeeded", zap.String("message", message), zap.String("url", url))
	}
	return done
}

func (o *Orchestrator) workflow(ctx context.Context, logger *zap.Logger, platform PlatformID, account string, cfg Config) (models.JobStatus, string, string) {
	// 1. Build query arguments from the export configuration
	args := query.Build(query.Options{
		Account: account,
		Range:   cfg.Range,
		Scope:   cfg.Scope,
		Limit:   o.limit,
	}, o.now())

	// 2. Materialize the artifact
	artifact, err := o.api.ExportCSV(ctx, backend.ExportRequest{
		Args:     args,
		Filename: cfg.Filename,
		Format:   string(cfg.Format),
	})
	if err != nil {
		logger.Warn("Export artifact request failed", zap.Error(err))
		if backend.Malformed(err) {
			return models.JobFailed, MsgStorageFailed, ""
		}
		return models.JobFailed, failureMessage(err), ""
	}

	// 3. Hand the artifact to the destination
	pub, publishErr := o.destinations[platform].Publish(ctx, o.api, artifact.S3Key, cfg)
	if publishErr != nil {
		logger.Warn("Destination upload failed", zap.Error(publishErr))
	}
	url := pub.URL

	// 4. Best-effort direct download link; a destination URL wins
	download, err := o.api.GetExportURL(ctx, artifact.S3Key)
	if err != nil {
		logger.Debug("No download URL for artifact", zap.String("s3_key", artifact.S3Key), zap.Error(err))
	} else if url == "" {
		url = download
	}

	if publishErr != nil {
		return models.JobFailed, failureMessage(publishErr), url
	}
	return models.JobSuccess, pub.Message, url
}

func failureMessage(err error) string {
	if err == nil || err.Error() == "" {
		return MsgExportFailed
	}
	return err.Error()
}
