package scheduler

import "context"

// PipelineJob runs discovery followed by extraction
type PipelineJob struct {
	discovery  Job
	extraction Job
}

func NewPipelineJob(discovery, extraction Job) *PipelineJob {
	return &PipelineJob{discovery: discovery, extraction: extraction}
}

// Name returns the name of the job
func (j *PipelineJob) Name() string {
	return "pipeline"
}

// Run executes discovery and then extraction. Extraction reads whatever catalog
// is on disk, so it still runs when the feed was unavailable.
func (j *PipelineJob) Run(ctx context.Context) error {
	if err := j.discovery.Run(ctx); err != nil {
		return err
	}
	return j.extraction.Run(ctx)
}
