package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/lectern-ai/lectern/internal/ai"
	"github.com/lectern-ai/lectern/internal/audio"
	"github.com/lectern-ai/lectern/internal/model"
	"github.com/lectern-ai/lectern/internal/pkg/errs"
	"github.com/lectern-ai/lectern/internal/repo"
	"github.com/lectern-ai/lectern/internal/task"
)

const turnGap = 500 * time.Millisecond

// PodcastService turns generated scripts into voiced audio. Versions are
// LRU-bounded per (workspace, topic, type); synthesis runs on the task
// runner and streams progress through the event bus.
type PodcastService struct {
	settings    *SettingsService
	generator   *GeneratorService
	versions    *repo.PodcastRepo
	artifacts   *repo.ArtifactRepo
	runner      *task.Runner
	audioDir    string
	maxVersions int
}

func NewPodcastService(settings *SettingsService, generator *GeneratorService, versions *repo.PodcastRepo,
	artifacts *repo.ArtifactRepo, runner *task.Runner, audioDir string, maxVersions int) *PodcastService {
	if maxVersions <= 0 {
		maxVersions = 3
	}
	return &PodcastService{
		settings:    settings,
		generator:   generator,
		versions:    versions,
		artifacts:   artifacts,
		runner:      runner,
		audioDir:    audioDir,
		maxVersions: maxVersions,
	}
}

func (s *PodcastService) MaxVersions() int {
	return s.maxVersions
}

// Create generates a script, opens a new version (audio pending), evicts
// beyond the version cap, and queues synthesis.
func (s *PodcastService) Create(ctx context.Context, workspaceID int64, topic string, podcastType model.PodcastType, voiceA, voiceB string) (*model.PodcastVersion, error) {
	if podcastType != model.PodcastSingle && podcastType != model.PodcastDuo {
		return nil, errs.Validationf("type must be single or duo")
	}
	if voiceA == "" {
		return nil, errs.Validationf("voice_a is required")
	}
	if podcastType == model.PodcastDuo && voiceB == "" {
		return nil, errs.Validationf("voice_b is required for duo podcasts")
	}

	script, _, err := s.generator.GenerateScript(ctx, workspaceID, topic, podcastType, voiceA, voiceB)
	if err != nil {
		return nil, err
	}

	version := &model.PodcastVersion{
		WorkspaceID: workspaceID,
		Topic:       topic,
		Type:        podcastType,
		VoiceA:      voiceA,
		VoiceB:      voiceB,
		VoiceAName:  ai.VoiceInfo(voiceA).Name,
		ScriptID:    script.ID,
	}
	if voiceB != "" {
		version.VoiceBName = ai.VoiceInfo(voiceB).Name
	}
	if err := s.versions.Create(ctx, version); err != nil {
		return nil, err
	}
	if err := s.evictBeyondCap(ctx, workspaceID, topic, podcastType); err != nil {
		return nil, err
	}
	if err := s.queueSynthesis(version.ID); err != nil {
		return nil, err
	}
	return version, nil
}

// Resynthesize re-voices the newest version for the key in place: same row,
// replaced audio, LRU untouched.
func (s *PodcastService) Resynthesize(ctx context.Context, workspaceID int64, topic string, podcastType model.PodcastType) (*model.PodcastVersion, error) {
	versions, err := s.versions.ListByKey(ctx, workspaceID, topic, podcastType)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, errs.NotFoundf("no podcast versions for topic %q", topic)
	}
	version := &versions[0]
	if err := s.queueSynthesis(version.ID); err != nil {
		return nil, err
	}
	return version, nil
}

func (s *PodcastService) queueSynthesis(versionID int64) error {
	submitted, err := s.runner.Submit(task.KindPodcast, task.PodcastKey(versionID), func(ctx context.Context) error {
		return s.synthesize(ctx, versionID)
	})
	if err != nil {
		return err
	}
	if !submitted {
		// A synthesis for this version is already queued or running.
		return nil
	}
	return nil
}

func (s *PodcastService) evictBeyondCap(ctx context.Context, workspaceID int64, topic string, podcastType model.PodcastType) error {
	versions, err := s.versions.ListByKey(ctx, workspaceID, topic, podcastType)
	if err != nil {
		return err
	}
	for i := len(versions) - 1; i >= s.maxVersions; i-- {
		oldest := versions[i]
		// Row first, file second: a crash may leak a file (the sweep
		// reclaims it) but never a dangling row.
		if err := s.versions.Delete(ctx, oldest.ID); err != nil {
			return err
		}
		s.removeAudioFile(ctx, oldest.AudioPath)
		logutil.GetLogger(ctx).Info("evicted podcast version",
			zap.Int64("version_id", oldest.ID),
			zap.String("topic", topic),
		)
	}
	return nil
}

// synthesize runs on the worker: one TTS call per script turn, stitched with
// half a second of silence, written out as a single WAV.
func (s *PodcastService) synthesize(ctx context.Context, versionID int64) error {
	key := task.PodcastKey(versionID)
	publish := func(status string, progress float64, message string) {
		s.runner.Bus().Publish(key, task.Event{Status: status, Progress: progress, Message: message})
	}

	version, err := s.versions.GetByID(ctx, versionID)
	if err != nil {
		publish("failed", 0, err.Error())
		return err
	}
	scriptArtifact, err := s.artifacts.GetByID(ctx, version.ScriptID)
	if err != nil {
		publish("failed", 0, err.Error())
		return err
	}
	var script model.PodcastScript
	if err := json.Unmarshal(scriptArtifact.Payload, &script); err != nil {
		publish("failed", 0, "script payload is corrupt")
		return err
	}
	tts, err := s.settings.TTSFor(ctx)
	if err != nil {
		publish("failed", 0, err.Error())
		return err
	}

	total := len(script.Script)
	segments := make([][]byte, 0, total)
	for i, turn := range script.Script {
		select {
		case <-ctx.Done():
			publish("failed", float64(i)/float64(total)*100, "cancelled")
			return ctx.Err()
		default:
		}
		publish("synthesizing", math.Floor(float64(i)/float64(total)*100), fmt.Sprintf("Turn %d/%d", i+1, total))
		wav, err := tts.Synthesize(ctx, turn.Text, turn.Voice)
		if err != nil {
			publish("failed", float64(i)/float64(total)*100, err.Error())
			return err
		}
		segments = append(segments, wav)
	}

	combined, err := audio.Concat(segments, turnGap)
	if err != nil {
		publish("failed", 99, err.Error())
		return err
	}

	filename := fmt.Sprintf("podcast_%s.wav", uuid.New().String())
	if err := os.MkdirAll(s.audioDir, 0o755); err != nil {
		publish("failed", 99, err.Error())
		return err
	}
	if err := os.WriteFile(filepath.Join(s.audioDir, filename), combined, 0o644); err != nil {
		publish("failed", 99, err.Error())
		return err
	}

	previous := version.AudioPath
	if err := s.versions.SetAudioPath(ctx, versionID, filename); err != nil {
		publish("failed", 99, err.Error())
		return err
	}
	if previous != "" && previous != filename {
		s.removeAudioFile(ctx, previous)
	}
	publish("complete", 100, "Synthesis complete")
	return nil
}

func (s *PodcastService) List(ctx context.Context, workspaceID int64, topic string, podcastType model.PodcastType) ([]model.PodcastVersion, error) {
	return s.versions.ListByKey(ctx, workspaceID, topic, podcastType)
}

func (s *PodcastService) Get(ctx context.Context, versionID int64) (*model.PodcastVersion, error) {
	return s.versions.GetByID(ctx, versionID)
}

func (s *PodcastService) Delete(ctx context.Context, versionID int64) error {
	version, err := s.versions.GetByID(ctx, versionID)
	if err != nil {
		return err
	}
	if err := s.versions.Delete(ctx, versionID); err != nil {
		return err
	}
	s.removeAudioFile(ctx, version.AudioPath)
	return nil
}

func (s *PodcastService) removeAudioFile(ctx context.Context, filename string) {
	if filename == "" {
		return
	}
	if err := os.Remove(filepath.Join(s.audioDir, filename)); err != nil && !os.IsNotExist(err) {
		logutil.GetLogger(ctx).Warn("failed to remove audio file",
			zap.String("file", filename), zap.Error(err))
	}
}

// SweepOrphans deletes audio files no version row references. Run at
// startup and periodically; eviction deletes rows before files, so a crash
// can only leak files, never rows.
func (s *PodcastService) SweepOrphans(ctx context.Context) error {
	referenced, err := s.versions.AllAudioPaths(ctx)
	if err != nil {
		return err
	}
	entries, err := os.ReadDir(s.audioDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || referenced[entry.Name()] {
			continue
		}
		if err := os.Remove(filepath.Join(s.audioDir, entry.Name())); err == nil {
			removed++
		}
	}
	if removed > 0 {
		logutil.GetLogger(ctx).Info("audio sweep removed orphans", zap.Int("count", removed))
	}
	return nil
}
