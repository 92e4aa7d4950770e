package dto

import "time"

type SubmitInput struct {
	Path string
}

type FileInput struct {
	Name      string
	MediaType string
	Content   []byte
}

type AttemptOutput struct {
	ID          string
	FileName    string
	MediaType   string
	Status      string
	ChunkIDs    []string
	Succeeded   bool
	FailureKind string
	Message     string
	UpdatedAt   time.Time
}
