package model

import "encoding/json"

type ArtifactKind string

const (
	KindLesson        ArtifactKind = "lesson"
	KindFlashcards    ArtifactKind = "flashcards"
	KindQuiz          ArtifactKind = "quiz"
	KindMindmap       ArtifactKind = "mindmap"
	KindPodcastScript ArtifactKind = "podcast_script"
)

type Artifact struct {
	ID          int64           `json:"id"`
	WorkspaceID int64           `json:"workspace_id"`
	Topic       string          `json:"topic"`
	Kind        ArtifactKind    `json:"kind"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   int64           `json:"created_at"`
}

// Structured payload shapes, one per artifact kind. Validation tags mirror
// the contract the generators promise to callers.

type LessonSection struct {
	Title     string   `json:"title" validate:"required"`
	Content   string   `json:"content" validate:"required"`
	KeyPoints []string `json:"key_points"`
}

type LessonPlan struct {
	Topic    string          `json:"topic" validate:"required"`
	Sections []LessonSection `json:"sections" validate:"min=1,dive"`
}

type Flashcard struct {
	Front string `json:"front" validate:"required"`
	Back  string `json:"back" validate:"required"`
}

type FlashcardSet struct {
	Topic string      `json:"topic"`
	Cards []Flashcard `json:"cards" validate:"min=1,dive"`
}

type QuizQuestion struct {
	Question           string   `json:"question" validate:"required"`
	Options            []string `json:"options" validate:"len=4"`
	CorrectAnswerIndex int      `json:"correct_answer_index" validate:"gte=0,lte=3"`
	Explanation        string   `json:"explanation"`
}

type Quiz struct {
	Title     string         `json:"title" validate:"required"`
	Questions []QuizQuestion `json:"questions" validate:"min=1,dive"`
}

type MindmapNode struct {
	ID    string `json:"id" validate:"required"`
	Label string `json:"label" validate:"required"`
	Type  string `json:"type" validate:"oneof=input default output"`
}

type MindmapEdge struct {
	Source string `json:"source" validate:"required"`
	Target string `json:"target" validate:"required"`
	Label  string `json:"label"`
}

type Mindmap struct {
	Nodes []MindmapNode `json:"nodes" validate:"min=1,dive"`
	Edges []MindmapEdge `json:"edges" validate:"dive"`
}

type ScriptTurn struct {
	Speaker string `json:"speaker" validate:"required"`
	Voice   string `json:"voice" validate:"required"`
	Text    string `json:"text" validate:"required"`
}

type PodcastScript struct {
	Topic  string       `json:"topic"`
	Script []ScriptTurn `json:"script" validate:"min=1,dive"`
}
