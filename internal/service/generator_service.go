package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/lectern-ai/lectern/internal/ai"
	"github.com/lectern-ai/lectern/internal/model"
	"github.com/lectern-ai/lectern/internal/pkg/errs"
	"github.com/lectern-ai/lectern/internal/repo"
)

// GeneratorService produces the structured study artifacts. Every generator
// shares one template: retrieve context for the topic, run a JSON-constrained
// completion, validate, cache by (workspace, topic, kind).
type GeneratorService struct {
	settings  *SettingsService
	retriever *Retriever
	artifacts *repo.ArtifactRepo
}

func NewGeneratorService(settings *SettingsService, retriever *Retriever, artifacts *repo.ArtifactRepo) *GeneratorService {
	return &GeneratorService{settings: settings, retriever: retriever, artifacts: artifacts}
}

// Generate returns the cached artifact for (workspace, topic, kind) or
// produces and stores a new one. Generate does not produce podcast scripts;
// use GenerateScript.
func (s *GeneratorService) Generate(ctx context.Context, workspaceID int64, topic string, kind model.ArtifactKind) (*model.Artifact, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, errs.Validationf("topic is required")
	}
	if existing, err := s.artifacts.Get(ctx, workspaceID, topic, kind); err == nil {
		logutil.GetLogger(ctx).Debug("artifact served from cache",
			zap.String("kind", string(kind)), zap.String("topic", topic))
		return existing, nil
	} else if !errs.IsNotFound(err) {
		return nil, err
	}

	payload, err := s.generatePayload(ctx, workspaceID, topic, kind)
	if err != nil {
		return nil, err
	}
	artifact := &model.Artifact{
		WorkspaceID: workspaceID,
		Topic:       topic,
		Kind:        kind,
		Payload:     payload,
	}
	if err := s.artifacts.Upsert(ctx, artifact); err != nil {
		return nil, err
	}
	return artifact, nil
}

func (s *GeneratorService) generatePayload(ctx context.Context, workspaceID int64, topic string, kind model.ArtifactKind) (json.RawMessage, error) {
	hits, err := s.retriever.Retrieve(ctx, workspaceID, topic, generationRetrievalK)
	if err != nil {
		return nil, err
	}
	llm, err := s.settings.LLMFor(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	contextText := contextBlock(hits)

	switch kind {
	case model.KindLesson:
		var lesson model.LessonPlan
		if err := s.completeInto(ctx, llm, lessonPrompt, contextText, topic, &lesson); err != nil {
			return nil, err
		}
		if lesson.Topic == "" {
			lesson.Topic = topic
		}
		return json.Marshal(lesson)
	case model.KindFlashcards:
		var cards model.FlashcardSet
		if err := s.completeInto(ctx, llm, flashcardsPrompt, contextText, topic, &cards); err != nil {
			return nil, err
		}
		if cards.Topic == "" {
			cards.Topic = topic
		}
		return json.Marshal(cards)
	case model.KindQuiz:
		var quiz model.Quiz
		if err := s.completeInto(ctx, llm, quizPrompt, contextText, topic, &quiz); err != nil {
			return nil, err
		}
		return json.Marshal(quiz)
	case model.KindMindmap:
		var mindmap model.Mindmap
		if err := s.completeInto(ctx, llm, mindmapPrompt, contextText, topic, &mindmap); err != nil {
			return nil, err
		}
		if err := checkMindmap(&mindmap); err != nil {
			return nil, fmt.Errorf("%w: %v", errs.ErrGeneration, err)
		}
		return json.Marshal(mindmap)
	}
	return nil, errs.Validationf("unknown artifact kind: %s", kind)
}

func (s *GeneratorService) completeInto(ctx context.Context, llm ai.LLM, system, contextText, topic string, out interface{}) error {
	req := ai.CompleteRequest{
		Temperature: 0.7,
		Messages: []ai.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: fmt.Sprintf("CONTEXT:\n%s\nTOPIC: %s\n\nRespond with a single JSON object.", contextText, topic)},
		},
	}
	return ai.CompleteJSON(ctx, llm, req, out)
}

// GenerateScript writes a fresh podcast script artifact; scripts version
// rather than replace so each podcast keeps the script it was voiced from.
func (s *GeneratorService) GenerateScript(ctx context.Context, workspaceID int64, topic string, podcastType model.PodcastType, voiceA, voiceB string) (*model.Artifact, *model.PodcastScript, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, nil, errs.Validationf("topic is required")
	}
	hits, err := s.retriever.Retrieve(ctx, workspaceID, topic, generationRetrievalK)
	if err != nil {
		return nil, nil, err
	}
	llm, err := s.settings.LLMFor(ctx, workspaceID)
	if err != nil {
		return nil, nil, err
	}

	var system string
	if podcastType == model.PodcastDuo {
		hostVoice := ai.VoiceInfo(voiceA)
		expertVoice := ai.VoiceInfo(voiceB)
		system = fmt.Sprintf(duoScriptPrompt, hostVoice.Name, voiceA, expertVoice.Name, voiceB)
	} else {
		narrator := ai.VoiceInfo(voiceA)
		system = fmt.Sprintf(singleScriptPrompt, narrator.Name, voiceA)
	}

	var script model.PodcastScript
	if err := s.completeInto(ctx, llm, system, contextBlock(hits), topic, &script); err != nil {
		return nil, nil, err
	}
	if script.Topic == "" {
		script.Topic = topic
	}
	normalizeVoices(&script, podcastType, voiceA, voiceB)
	if podcastType == model.PodcastDuo && countSpeakers(&script) < 2 {
		return nil, nil, fmt.Errorf("%w: duo script has fewer than two speakers", errs.ErrGeneration)
	}

	payload, err := json.Marshal(script)
	if err != nil {
		return nil, nil, err
	}
	artifact := &model.Artifact{
		WorkspaceID: workspaceID,
		Topic:       topic,
		Kind:        model.KindPodcastScript,
		Payload:     payload,
	}
	if err := s.artifacts.Upsert(ctx, artifact); err != nil {
		return nil, nil, err
	}
	return artifact, &script, nil
}

// normalizeVoices pins every turn's voice to the caller's assignment; the
// model's own voice picks are advisory only.
func normalizeVoices(script *model.PodcastScript, podcastType model.PodcastType, voiceA, voiceB string) {
	if podcastType != model.PodcastDuo {
		for i := range script.Script {
			script.Script[i].Voice = voiceA
		}
		return
	}
	speakerVoice := map[string]string{}
	order := []string{voiceA, voiceB}
	for i := range script.Script {
		speaker := script.Script[i].Speaker
		if _, ok := speakerVoice[speaker]; !ok {
			if len(speakerVoice) < len(order) {
				speakerVoice[speaker] = order[len(speakerVoice)]
			} else {
				speakerVoice[speaker] = voiceB
			}
		}
		script.Script[i].Voice = speakerVoice[speaker]
	}
}

func countSpeakers(script *model.PodcastScript) int {
	seen := map[string]bool{}
	for _, turn := range script.Script {
		seen[turn.Speaker] = true
	}
	return len(seen)
}

// checkMindmap enforces what validator tags cannot: edges reference existing
// nodes and the graph is acyclic.
func checkMindmap(m *model.Mindmap) error {
	nodes := make(map[string]bool, len(m.Nodes))
	for _, node := range m.Nodes {
		if nodes[node.ID] {
			return fmt.Errorf("duplicate node id %q", node.ID)
		}
		nodes[node.ID] = true
	}
	adjacency := make(map[string][]string)
	for _, edge := range m.Edges {
		if !nodes[edge.Source] {
			return fmt.Errorf("edge source %q is not a node", edge.Source)
		}
		if !nodes[edge.Target] {
			return fmt.Errorf("edge target %q is not a node", edge.Target)
		}
		adjacency[edge.Source] = append(adjacency[edge.Source], edge.Target)
	}
	// Colored DFS cycle check.
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(nodes))
	var visit func(string) error
	visit = func(id string) error {
		color[id] = gray
		for _, next := range adjacency[id] {
			switch color[next] {
			case gray:
				return fmt.Errorf("cycle through node %q", next)
			case white:
				if err := visit(next); err != nil {
					return err
				}
			}
		}
		color[id] = black
		return nil
	}
	for id := range nodes {
		if color[id] == white {
			if err := visit(id); err != nil {
				return err
			}
		}
	}
	return nil
}

// GetExisting returns every cached artifact for (workspace, topic).
func (s *GeneratorService) GetExisting(ctx context.Context, workspaceID int64, topic string) (map[model.ArtifactKind]*model.Artifact, error) {
	return s.artifacts.ListByTopic(ctx, workspaceID, topic)
}

const lessonPrompt = `You are an expert educational content creator. Create a comprehensive lesson plan based strictly on the provided context.
Return JSON: {"topic": string, "sections": [{"title": string, "content": string, "key_points": [string]}]}.`

const flashcardsPrompt = `Create a set of 10-20 flashcards (front/back) based on the context to help a student learn the key concepts.
Return JSON: {"topic": string, "cards": [{"front": string, "back": string}]}.`

const quizPrompt = `Create a multiple choice quiz of at least 4 questions based on the context.
Every question has exactly 4 options; "correct_answer_index" is 0-3; include a short explanation.
Return JSON: {"title": string, "questions": [{"question": string, "options": [string, string, string, string], "correct_answer_index": int, "explanation": string}]}.`

const mindmapPrompt = `Build a concept map of the topic from the context.
Return JSON: {"nodes": [{"id": string, "label": string, "type": "input"|"default"|"output"}], "edges": [{"source": string, "target": string, "label": string}]}.
Node ids must be unique; every edge must reference existing node ids; the graph must be acyclic with the central concept as the single "input" node.`

const duoScriptPrompt = `You are a world-class podcast scriptwriter.
Create a conversational script for a podcast called "Deep Dive" based strictly on the provided context.
The podcast features two speakers:
1. %s (voice: %s): the curious host who asks insightful questions and keeps the energy high.
2. %s (voice: %s): the expert who explains complex concepts in simple terms.
The conversation should be engaging, natural, and educational. Use informal language, filler words (like "Right", "Interesting", "Exactly"), and emotional reactions.
Return JSON: {"topic": string, "script": [{"speaker": string, "voice": string, "text": string}]}.`

const singleScriptPrompt = `You are a world-class audiobook narrator.
Create a clear, engaging summary script based strictly on the provided context.
The narrator is %s (voice: %s).
Return JSON: {"topic": string, "script": [{"speaker": string, "voice": string, "text": string}]}.`
