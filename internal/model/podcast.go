package model

type PodcastType string

const (
	PodcastSingle PodcastType = "single"
	PodcastDuo    PodcastType = "duo"
)

type PodcastVersion struct {
	ID          int64       `json:"id"`
	WorkspaceID int64       `json:"workspace_id"`
	Topic       string      `json:"topic"`
	Type        PodcastType `json:"type"`
	VoiceA      string      `json:"voice_a"`
	VoiceB      string      `json:"voice_b,omitempty"`
	VoiceAName  string      `json:"voice_a_name"`
	VoiceBName  string      `json:"voice_b_name,omitempty"`
	ScriptID    int64       `json:"script_id"`
	AudioPath   string      `json:"audio_path,omitempty"`
	CreatedAt   int64       `json:"created_at"`
}
