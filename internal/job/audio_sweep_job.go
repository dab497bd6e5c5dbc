package job

import (
	"context"

	"github.com/lectern-ai/lectern/internal/service"
)

// AudioSweepJob reconciles the audio directory against the podcast version
// rows, removing files leaked by a crash between row delete and file delete.
type AudioSweepJob struct {
	podcasts *service.PodcastService
}

func NewAudioSweepJob(podcasts *service.PodcastService) *AudioSweepJob {
	return &AudioSweepJob{podcasts: podcasts}
}

func (j *AudioSweepJob) Name() string {
	return "audio_sweep"
}

func (j *AudioSweepJob) Run(ctx context.Context) error {
	if j.podcasts == nil {
		return nil
	}
	return j.podcasts.SweepOrphans(ctx)
}
