package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lectern-ai/lectern/internal/ai"
	"github.com/lectern-ai/lectern/internal/audio"
	"github.com/lectern-ai/lectern/internal/model"
	"github.com/lectern-ai/lectern/internal/repo"
	"github.com/lectern-ai/lectern/internal/task"
	"github.com/lectern-ai/lectern/internal/testutil"
)

type fakeTTS struct{}

func (fakeTTS) Name() string { return "fake" }

func (fakeTTS) Synthesize(ctx context.Context, text string, voice string) ([]byte, error) {
	pcm := make([]byte, 480)
	return audio.Encode(audio.Format{Channels: 1, SampleRate: 24000, BitsPerSample: 16}, pcm), nil
}

func (fakeTTS) ListVoices() []ai.Voice {
	return []ai.Voice{{ID: "af_bella", Name: "Bella", Gender: "female"}}
}

func init() {
	ai.RegisterTTS("fake", func(cfg ai.Config) (ai.TTS, error) {
		return fakeTTS{}, nil
	})
}

func newPodcastFixture(t *testing.T) (*PodcastService, *repo.PodcastRepo, *repo.ArtifactRepo, int64, string) {
	t.Helper()
	conn, cleanup := testutil.OpenTestDB(t)
	t.Cleanup(cleanup)
	testutil.Reset(t, conn)

	audioDir := t.TempDir()
	versions := repo.NewPodcastRepo(conn)
	artifacts := repo.NewArtifactRepo(conn)
	workspaces := repo.NewWorkspaceRepo(conn)

	ws, err := workspaces.Create(context.Background(), "podcasts")
	require.NoError(t, err)

	settings := &SettingsService{}
	settings.current = model.Settings{TTSProvider: "fake"}

	runner := task.NewRunner(task.NewBus(), 16)
	svc := NewPodcastService(settings, nil, versions, artifacts, runner, audioDir, 3)
	return svc, versions, artifacts, ws.ID, audioDir
}

func seedScript(t *testing.T, artifacts *repo.ArtifactRepo, workspaceID int64, turns int) *model.Artifact {
	t.Helper()
	script := model.PodcastScript{Topic: "t"}
	for i := 0; i < turns; i++ {
		script.Script = append(script.Script, model.ScriptTurn{
			Speaker: "Narrator", Voice: "af_bella", Text: fmt.Sprintf("turn %d", i),
		})
	}
	payload, err := json.Marshal(script)
	require.NoError(t, err)
	artifact := &model.Artifact{
		WorkspaceID: workspaceID, Topic: "t", Kind: model.KindPodcastScript, Payload: payload,
	}
	require.NoError(t, artifacts.Upsert(context.Background(), artifact))
	return artifact
}

func seedVersion(t *testing.T, versions *repo.PodcastRepo, workspaceID, scriptID int64, audioDir, audioFile string) *model.PodcastVersion {
	t.Helper()
	if audioFile != "" {
		require.NoError(t, os.WriteFile(filepath.Join(audioDir, audioFile), []byte("wav"), 0o644))
	}
	v := &model.PodcastVersion{
		WorkspaceID: workspaceID, Topic: "t", Type: model.PodcastDuo,
		VoiceA: "af_bella", VoiceB: "bm_lewis",
		VoiceAName: "Bella", VoiceBName: "Lewis",
		ScriptID: scriptID, AudioPath: audioFile,
	}
	require.NoError(t, versions.Create(context.Background(), v))
	return v
}

func TestEvictBeyondCapKeepsNewestThree(t *testing.T) {
	svc, versions, artifacts, ws, audioDir := newPodcastFixture(t)
	ctx := context.Background()
	script := seedScript(t, artifacts, ws, 1)

	for i := 0; i < 5; i++ {
		seedVersion(t, versions, ws, script.ID, audioDir, fmt.Sprintf("podcast_%d.wav", i))
	}
	require.NoError(t, svc.evictBeyondCap(ctx, ws, "t", model.PodcastDuo))

	remaining, err := versions.ListByKey(ctx, ws, "t", model.PodcastDuo)
	require.NoError(t, err)
	require.Len(t, remaining, 3)

	entries, err := os.ReadDir(audioDir)
	require.NoError(t, err)
	require.Len(t, entries, 3)
}

func TestSynthesizeWritesAudioAndStreamsProgress(t *testing.T) {
	svc, versions, artifacts, ws, audioDir := newPodcastFixture(t)
	ctx := context.Background()
	script := seedScript(t, artifacts, ws, 4)
	version := seedVersion(t, versions, ws, script.ID, audioDir, "")

	events, cancel := svc.runner.Bus().Subscribe(task.PodcastKey(version.ID))
	defer cancel()

	require.NoError(t, svc.synthesize(ctx, version.ID))

	updated, err := versions.GetByID(ctx, version.ID)
	require.NoError(t, err)
	require.NotEmpty(t, updated.AudioPath)
	_, err = os.Stat(filepath.Join(audioDir, updated.AudioPath))
	require.NoError(t, err)

	// Drain the published events: progress must be monotonic and end complete.
	var collected []task.Event
	for {
		select {
		case event := <-events:
			collected = append(collected, event)
		default:
		}
		if len(collected) > 0 && collected[len(collected)-1].Status == "complete" {
			break
		}
	}
	last := -1.0
	for _, event := range collected {
		require.GreaterOrEqual(t, event.Progress, last)
		last = event.Progress
	}
	require.Equal(t, 100.0, collected[len(collected)-1].Progress)
}

func TestResynthesisReplacesAudioInPlace(t *testing.T) {
	svc, versions, artifacts, ws, audioDir := newPodcastFixture(t)
	ctx := context.Background()
	script := seedScript(t, artifacts, ws, 2)
	version := seedVersion(t, versions, ws, script.ID, audioDir, "podcast_old.wav")

	require.NoError(t, svc.synthesize(ctx, version.ID))

	updated, err := versions.GetByID(ctx, version.ID)
	require.NoError(t, err)
	require.NotEqual(t, "podcast_old.wav", updated.AudioPath)

	// Same row, old audio gone, no extra version created.
	all, err := versions.ListByKey(ctx, ws, "t", model.PodcastDuo)
	require.NoError(t, err)
	require.Len(t, all, 1)
	_, err = os.Stat(filepath.Join(audioDir, "podcast_old.wav"))
	require.True(t, os.IsNotExist(err))
}

func TestSweepOrphansRemovesUnreferencedFiles(t *testing.T) {
	svc, versions, artifacts, ws, audioDir := newPodcastFixture(t)
	ctx := context.Background()
	script := seedScript(t, artifacts, ws, 1)
	seedVersion(t, versions, ws, script.ID, audioDir, "podcast_kept.wav")
	require.NoError(t, os.WriteFile(filepath.Join(audioDir, "podcast_leaked.wav"), []byte("x"), 0o644))

	require.NoError(t, svc.SweepOrphans(ctx))

	_, err := os.Stat(filepath.Join(audioDir, "podcast_kept.wav"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(audioDir, "podcast_leaked.wav"))
	require.True(t, os.IsNotExist(err))
}
