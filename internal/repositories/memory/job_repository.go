package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	domain "github.com/pawmart/api/internal/domain"
	"github.com/pawmart/api/internal/repositories"
)

// ImageJobRepository tracks image re-encode jobs in memory.
type ImageJobRepository struct {
	mu   sync.Mutex
	jobs map[string]domain.ImageJob
}

// NewImageJobRepository constructs an empty job repository.
func NewImageJobRepository() *ImageJobRepository {
	return &ImageJobRepository{jobs: make(map[string]domain.ImageJob)}
}

// Insert stores a new job record.
func (r *ImageJobRepository) Insert(_ context.Context, job domain.ImageJob) (domain.ImageJob, error) {
	if strings.TrimSpace(job.ID) == "" {
		return domain.ImageJob{}, invalidError("image job repository: insert", "job id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[job.ID]; ok {
		return domain.ImageJob{}, conflictError("image job repository: insert", "job "+job.ID+" already exists")
	}
	r.jobs[job.ID] = job
	return job, nil
}

// FindByID returns the job with the given ID.
func (r *ImageJobRepository) FindByID(_ context.Context, jobID string) (domain.ImageJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return domain.ImageJob{}, notFoundError("image job repository: find", "job "+jobID+" not found")
	}
	return job, nil
}

// UpdateStatus transitions the job to the given status and applies the
// optional field updates.
func (r *ImageJobRepository) UpdateStatus(_ context.Context, jobID string, status domain.ImageJobStatus, update repositories.ImageJobStatusUpdate) (domain.ImageJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return domain.ImageJob{}, notFoundError("image job repository: update", "job "+jobID+" not found")
	}

	job.Status = status
	job.UpdatedAt = time.Now().UTC()
	if update.FileName != nil {
		job.FileName = *update.FileName
	}
	if update.Error != nil {
		job.Error = *update.Error
	}
	if update.CompletedAt != nil {
		completed := update.CompletedAt.UTC()
		job.CompletedAt = &completed
	}
	r.jobs[jobID] = job
	return job, nil
}
