package export

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trading-analytics-go/internal/backend"
	"trading-analytics-go/internal/timestamp"
)

// Publication is the outcome of a destination upload.
type Publication struct {
	// URL is the destination link, empty when the platform returned none.
	URL     string
	Message string
}

// Destination defines the interface for one publishing target.
type Destination interface {
	// Platform returns the id the destination serves.
	Platform() PlatformID

	// Publish hands the stored artifact to the platform.
	Publish(ctx context.Context, api backend.API, s3Key string, cfg Config) (Publication, error)
}

// noResult reports a destination reply that carried no usable result. The
// upload still happened; there is just no URL to record.
func noResult(err error) bool {
	return errors.Is(err, backend.ErrMissingResult) || errors.Is(err, backend.ErrMissingField)
}

type driveDestination struct {
	folder string
}

func (d driveDestination) Platform() PlatformID { return GoogleDrive }

func (d driveDestination) Publish(ctx context.Context, api backend.API, s3Key string, cfg Config) (Publication, error) {
	file := fmt.Sprintf("%s.%s", cfg.Filename, cfg.Format)
	res, err := api.UploadToDrive(ctx, backend.DriveUpload{S3Key: s3Key, Filename: file, Folder: d.folder})
	if err != nil && !noResult(err) {
		return Publication{}, err
	}
	pub := Publication{Message: fmt.Sprintf("Uploaded to Google Drive: %s/%s", d.folder, file)}
	if res != nil {
		pub.URL = res.DriveURL
	}
	return pub, nil
}

type quantConnectDestination struct{}

func (quantConnectDestination) Platform() PlatformID { return QuantConnect }

func (quantConnectDestination) Publish(ctx context.Context, api backend.API, s3Key string, cfg Config) (Publication, error) {
	res, err := api.SyncToQC(ctx, backend.QCSync{S3Key: s3Key, DatasetName: cfg.Filename, Format: string(cfg.Format)})
	if err != nil && !noResult(err) {
		return Publication{}, err
	}
	pub := Publication{Message: "Synced to QuantConnect: " + cfg.Filename}
	if res != nil {
		pub.URL = res.QCURL
	}
	return pub, nil
}

type kaggleDestination struct {
	now func() time.Time
	loc *time.Location
}

func (kaggleDestination) Platform() PlatformID { return Kaggle }

func (k kaggleDestination) Publish(ctx context.Context, api backend.API, s3Key string, cfg Config) (Publication, error) {
	exported := timestamp.FormatDate(k.now().UnixMilli(), k.loc)
	res, err := api.UploadToKaggle(ctx, backend.KaggleUpload{
		S3Key:       s3Key,
		DatasetName: cfg.Filename,
		Description: fmt.Sprintf("NQ Futures trading dataset - %s - exported %s", cfg.Scope, exported),
	})
	if err != nil && !noResult(err) {
		return Publication{}, err
	}
	pub := Publication{Message: "Published to Kaggle: " + cfg.Filename}
	if res != nil {
		pub.URL = res.KaggleURL
	}
	return pub, nil
}

// localDestination publishes nothing; the download link is the result.
type localDestination struct{}

func (localDestination) Platform() PlatformID { return Local }

func (localDestination) Publish(_ context.Context, _ backend.API, _ string, cfg Config) (Publication, error) {
	return Publication{Message: fmt.Sprintf("Export ready: %s.%s", cfg.Filename, cfg.Format)}, nil
}
