package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/pawmart/api/internal/domain"
	"github.com/pawmart/api/internal/platform/imaging"
	"github.com/pawmart/api/internal/platform/jobs"
	"github.com/pawmart/api/internal/repositories"
)

const (
	imageJobEventQueued    = "image.job.queued"
	imageJobEventCompleted = "image.job.completed"
	imageJobEventFailed    = "image.job.failed"
)

var (
	// ErrImageInvalidInput indicates the caller supplied invalid input.
	ErrImageInvalidInput = errors.New("image service: invalid input")
	// ErrImageJobNotFound indicates the requested job could not be located.
	ErrImageJobNotFound = errors.New("image service: job not found")
	// ErrImageNotFound indicates the requested image does not exist.
	ErrImageNotFound = errors.New("image service: image not found")
	// ErrImageQueueFull indicates the re-encode queue cannot accept more work.
	ErrImageQueueFull = errors.New("image service: queue is full")
	// ErrImageUnavailable indicates the image service cannot fulfil the request.
	ErrImageUnavailable = errors.New("image service: unavailable")
)

// ReEncodeQueue accepts re-encode tasks for background execution.
type ReEncodeQueue interface {
	Enqueue(ctx context.Context, task jobs.Task) error
}

// ImageServiceDeps wires the repositories, queue, and encoding parameters.
type ImageServiceDeps struct {
	Jobs           repositories.ImageJobRepository
	Images         repositories.ImageRepository
	Catalog        repositories.CatalogRepository
	Queue          ReEncodeQueue
	Quality        int
	MaxUploadBytes int64
	Clock          func() time.Time
	IDGenerator    func() string
	Logger         func(ctx context.Context, event string, fields map[string]any)
}

type imageService struct {
	jobs      repositories.ImageJobRepository
	images    repositories.ImageRepository
	catalog   repositories.CatalogRepository
	queue     ReEncodeQueue
	quality   int
	maxUpload int64
	newID     func() string
	now       func() time.Time
	logger    func(context.Context, string, map[string]any)
}

// NewImageService constructs an ImageService enforcing dependency validation.
func NewImageService(deps ImageServiceDeps) (ImageService, error) {
	if deps.Jobs == nil {
		return nil, errors.New("image service: job repository is required")
	}
	if deps.Images == nil {
		return nil, errors.New("image service: image repository is required")
	}
	if deps.Catalog == nil {
		return nil, errors.New("image service: catalog repository is required")
	}
	if deps.Queue == nil {
		return nil, errors.New("image service: queue is required")
	}

	quality := deps.Quality
	if quality <= 0 {
		quality = imaging.DefaultQuality
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &imageService{
		jobs:      deps.Jobs,
		images:    deps.Images,
		catalog:   deps.Catalog,
		queue:     deps.Queue,
		quality:   quality,
		maxUpload: deps.MaxUploadBytes,
		newID:     idGen,
		now:       func() time.Time { return clock().UTC() },
		logger:    logger,
	}, nil
}

// QueueReEncode records a job for the uploaded file and submits it to the
// background queue. When the queue rejects the task the job is marked failed
// so its record still tells the admin what happened.
func (s *imageService) QueueReEncode(ctx context.Context, cmd QueueImageReEncodeCommand) (ImageJob, error) {
	productID := strings.TrimSpace(cmd.ProductID)
	if productID == "" {
		return ImageJob{}, fmt.Errorf("%w: product id is required", ErrImageInvalidInput)
	}
	if len(cmd.Data) == 0 {
		return ImageJob{}, fmt.Errorf("%w: image data is required", ErrImageInvalidInput)
	}
	if s.maxUpload > 0 && int64(len(cmd.Data)) > s.maxUpload {
		return ImageJob{}, fmt.Errorf("%w: image exceeds %d bytes", ErrImageInvalidInput, s.maxUpload)
	}

	now := s.now()
	job := domain.ImageJob{
		ID:        s.newID(),
		ProductID: productID,
		Status:    domain.ImageJobStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	inserted, err := s.jobs.Insert(ctx, job)
	if err != nil {
		return ImageJob{}, ErrImageUnavailable
	}

	data := append([]byte(nil), cmd.Data...)
	productName := cmd.ProductName
	task := jobs.Task{
		ID: inserted.ID,
		Run: func(taskCtx context.Context) {
			s.process(taskCtx, inserted.ID, productID, productName, data)
		},
	}

	if err := s.queue.Enqueue(ctx, task); err != nil {
		failed := s.failJob(ctx, inserted.ID, fmt.Sprintf("enqueue re-encode: %v", err))
		if errors.Is(err, jobs.ErrQueueFull) {
			return failed, ErrImageQueueFull
		}
		return failed, ErrImageUnavailable
	}

	s.logger(ctx, imageJobEventQueued, map[string]any{
		"job_id":     inserted.ID,
		"product_id": productID,
		"bytes":      len(data),
	})
	return inserted, nil
}

// GetJob returns the job with the given identifier.
func (s *imageService) GetJob(ctx context.Context, jobID string) (ImageJob, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return ImageJob{}, fmt.Errorf("%w: job id is required", ErrImageInvalidInput)
	}
	job, err := s.jobs.FindByID(ctx, jobID)
	if err != nil {
		if isRepoNotFound(err) {
			return ImageJob{}, ErrImageJobNotFound
		}
		return ImageJob{}, ErrImageUnavailable
	}
	return job, nil
}

// GetImage returns a stored re-encoded image by file name.
func (s *imageService) GetImage(ctx context.Context, fileName string) (EncodedImage, error) {
	name, err := imaging.ValidateFileName(fileName)
	if err != nil {
		return EncodedImage{}, fmt.Errorf("%w: %v", ErrImageInvalidInput, err)
	}
	image, err := s.images.Get(ctx, name)
	if err != nil {
		if isRepoNotFound(err) {
			return EncodedImage{}, ErrImageNotFound
		}
		return EncodedImage{}, ErrImageUnavailable
	}
	return image, nil
}

// process runs on a queue worker: re-encode the upload, store the result, and
// point the product's image reference at the new file name.
func (s *imageService) process(ctx context.Context, jobID, productID, productName string, data []byte) {
	if _, err := s.jobs.UpdateStatus(ctx, jobID, domain.ImageJobStatusProcessing, repositories.ImageJobStatusUpdate{}); err != nil {
		s.logger(ctx, imageJobEventFailed, map[string]any{
			"job_id": jobID,
			"error":  "mark processing: " + err.Error(),
		})
		return
	}

	encoded, err := imaging.ReEncodeJPEG(data, s.quality)
	if err != nil {
		s.fail(ctx, jobID, err.Error())
		return
	}

	fileName, err := imaging.BuildImageFileName(productID, productName)
	if err != nil {
		s.fail(ctx, jobID, err.Error())
		return
	}

	now := s.now()
	if err := s.images.Save(ctx, domain.EncodedImage{FileName: fileName, Data: encoded, UpdatedAt: now}); err != nil {
		s.fail(ctx, jobID, "store image: "+err.Error())
		return
	}

	product, err := s.catalog.Get(ctx, productID)
	if err != nil {
		if isRepoNotFound(err) {
			s.fail(ctx, jobID, "product removed before re-encode completed")
		} else {
			s.fail(ctx, jobID, "load product: "+err.Error())
		}
		return
	}
	product.Image = fileName
	if err := s.catalog.Update(ctx, product); err != nil {
		s.fail(ctx, jobID, "update product image: "+err.Error())
		return
	}

	completedAt := s.now()
	if _, err := s.jobs.UpdateStatus(ctx, jobID, domain.ImageJobStatusSucceeded, repositories.ImageJobStatusUpdate{
		FileName:    &fileName,
		CompletedAt: &completedAt,
	}); err != nil {
		s.logger(ctx, imageJobEventFailed, map[string]any{
			"job_id": jobID,
			"error":  "mark succeeded: " + err.Error(),
		})
		return
	}

	s.logger(ctx, imageJobEventCompleted, map[string]any{
		"job_id":     jobID,
		"product_id": productID,
		"file_name":  fileName,
		"bytes":      len(encoded),
	})
}

func (s *imageService) fail(ctx context.Context, jobID, message string) {
	s.failJob(ctx, jobID, message)
	s.logger(ctx, imageJobEventFailed, map[string]any{
		"job_id": jobID,
		"error":  message,
	})
}

func (s *imageService) failJob(ctx context.Context, jobID, message string) ImageJob {
	completedAt := s.now()
	updated, err := s.jobs.UpdateStatus(ctx, jobID, domain.ImageJobStatusFailed, repositories.ImageJobStatusUpdate{
		Error:       &message,
		CompletedAt: &completedAt,
	})
	if err != nil {
		s.logger(ctx, imageJobEventFailed, map[string]any{
			"job_id": jobID,
			"error":  "mark failed: " + err.Error(),
		})
		return ImageJob{ID: jobID, Status: domain.ImageJobStatusFailed, Error: message}
	}
	return updated
}
