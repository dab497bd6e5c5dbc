package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/lectern-ai/lectern/internal/ai"
	"github.com/lectern-ai/lectern/internal/model"
	"github.com/lectern-ai/lectern/internal/pkg/errs"
	"github.com/lectern-ai/lectern/internal/repo"
)

const chatMemoryWindow = 10

const chatSystemPrompt = `You are an educational assistant. Answer using ONLY the provided context from the user's study materials.
If the context does not support an answer, reply exactly: "I don't find that in the provided materials."
Be concise and cite the relevant concepts from the context.`

type ChatService struct {
	settings  *SettingsService
	retriever *Retriever
	history   *repo.ChatRepo
}

func NewChatService(settings *SettingsService, retriever *Retriever, history *repo.ChatRepo) *ChatService {
	return &ChatService{settings: settings, retriever: retriever, history: history}
}

// Chat answers one user turn grounded in the workspace's documents, with the
// last messages as conversational memory.
func (s *ChatService) Chat(ctx context.Context, workspaceID int64, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", errs.Validationf("message is required")
	}

	userTurn := &model.ChatMessage{WorkspaceID: workspaceID, Role: model.RoleUser, Content: message}
	if err := s.history.Append(ctx, userTurn); err != nil {
		return "", err
	}

	hits, err := s.retriever.Retrieve(ctx, workspaceID, message, chatRetrievalK)
	if err != nil {
		return "", err
	}

	// Memory excludes the turn just appended.
	memory, err := s.history.Recent(ctx, workspaceID, chatMemoryWindow+1)
	if err != nil {
		return "", err
	}
	if len(memory) > 0 && memory[len(memory)-1].ID == userTurn.ID {
		memory = memory[:len(memory)-1]
	}

	llm, err := s.settings.LLMFor(ctx, workspaceID)
	if err != nil {
		return "", err
	}

	messages := []ai.Message{
		{Role: "system", Content: chatSystemPrompt + "\n\nCONTEXT:\n" + contextBlock(hits)},
	}
	for _, m := range memory {
		messages = append(messages, ai.Message{Role: string(m.Role), Content: m.Content})
	}
	messages = append(messages, ai.Message{Role: "user", Content: message})

	answer, err := llm.Complete(ctx, ai.CompleteRequest{Messages: messages})
	if err != nil {
		return "", err
	}

	assistantTurn := &model.ChatMessage{WorkspaceID: workspaceID, Role: model.RoleAssistant, Content: answer}
	if err := s.history.Append(ctx, assistantTurn); err != nil {
		return "", err
	}
	return answer, nil
}

func (s *ChatService) History(ctx context.Context, workspaceID int64) ([]model.ChatMessage, error) {
	return s.history.History(ctx, workspaceID)
}

func contextBlock(hits []model.ScoredChunk) string {
	var sb strings.Builder
	for i, hit := range hits {
		fmt.Fprintf(&sb, "[%d] %s\n\n", i+1, hit.Content)
	}
	return sb.String()
}
