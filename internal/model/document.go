package model

type DocumentStatus string

const (
	DocumentPending    DocumentStatus = "pending"
	DocumentProcessing DocumentStatus = "processing"
	DocumentCompleted  DocumentStatus = "completed"
	DocumentFailed     DocumentStatus = "failed"
)

type FileType string

const (
	FileTypePDF   FileType = "pdf"
	FileTypeDocx  FileType = "docx"
	FileTypePptx  FileType = "pptx"
	FileTypeImage FileType = "image"
)

type Document struct {
	ID                int64          `json:"id"`
	WorkspaceID       int64          `json:"workspace_id"`
	Title             string         `json:"title"`
	FileType          FileType       `json:"file_type"`
	FilePath          string         `json:"file_path"`
	Status            DocumentStatus `json:"status"`
	ErrorMessage      string         `json:"error_message,omitempty"`
	EmbeddingProvider string         `json:"embedding_provider,omitempty"`
	EmbeddingModel    string         `json:"embedding_model,omitempty"`
	CreatedAt         int64          `json:"created_at"`
}
