package domain

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	apperrors "ragstream/internal/platform/errors"
)

type Status string

const (
	StatusIdle       Status = "idle"
	StatusReading    Status = "reading"
	StatusSubmitting Status = "submitting"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
)

type FailureKind string

const (
	FailureValidation FailureKind = "validation"
	FailureRead       FailureKind = "read"
	FailureTransport  FailureKind = "transport"
	FailureService    FailureKind = "service"
)

const (
	RejectedMessage      = "Please upload a text file only."
	UnknownServiceDetail = "Unknown error"
)

// FileHandle is a file as handed over by drag-drop, a picker or the CLI.
type FileHandle struct {
	Name      string
	MediaType string
	Content   []byte
}

type Failure struct {
	Kind   FailureKind `json:"kind"`
	Detail string      `json:"detail"`
}

// Attempt is a single upload of one file. ChunkIDs is non-empty iff Status
// is StatusSucceeded.
type Attempt struct {
	ID             string
	FileName       string
	MediaType      string
	Status         Status
	EncodedPayload string
	ChunkIDs       []string
	Failure        *Failure
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func NewAttempt(id string, file FileHandle, at time.Time) Attempt {
	return Attempt{
		ID:        id,
		FileName:  file.Name,
		MediaType: file.MediaType,
		Status:    StatusIdle,
		CreatedAt: at,
		UpdatedAt: at,
	}
}

// Accepts applies the upload type policy: a text-like declared media type
// or a .txt/.md file name.
func Accepts(file FileHandle) bool {
	mediaType := strings.ToLower(file.MediaType)
	for _, allowed := range []string{"text", "application/json", "application/pdf"} {
		if strings.Contains(mediaType, allowed) {
			return true
		}
	}
	name := strings.ToLower(file.Name)
	return strings.HasSuffix(name, ".txt") || strings.HasSuffix(name, ".md")
}

func (a Attempt) Terminal() bool {
	return a.Status == StatusSucceeded || a.Status == StatusFailed
}

func (a Attempt) InFlight() bool {
	return a.Status == StatusReading || a.Status == StatusSubmitting
}

func (a *Attempt) BeginReading(at time.Time) error {
	if a.Status != StatusIdle {
		return a.transitionErr(StatusReading)
	}
	a.Status = StatusReading
	a.UpdatedAt = at
	return nil
}

func (a *Attempt) BeginSubmitting(payload string, at time.Time) error {
	if a.Status != StatusReading {
		return a.transitionErr(StatusSubmitting)
	}
	a.Status = StatusSubmitting
	a.EncodedPayload = payload
	a.UpdatedAt = at
	return nil
}

func (a *Attempt) Succeed(chunkIDs []string, at time.Time) error {
	if a.Status != StatusSubmitting {
		return a.transitionErr(StatusSucceeded)
	}
	if len(chunkIDs) == 0 {
		return fmt.Errorf("%w: success requires at least one chunk id", apperrors.ErrInvalidInput)
	}
	a.Status = StatusSucceeded
	a.ChunkIDs = append([]string(nil), chunkIDs...)
	a.UpdatedAt = at
	return nil
}

func (a *Attempt) Fail(kind FailureKind, detail string, at time.Time) error {
	if a.Terminal() {
		return a.transitionErr(StatusFailed)
	}
	a.Status = StatusFailed
	a.ChunkIDs = nil
	a.Failure = &Failure{Kind: kind, Detail: detail}
	a.UpdatedAt = at
	return nil
}

// Message is the single user-facing outcome line for the attempt.
func (a Attempt) Message() string {
	switch a.Status {
	case StatusIdle:
		return ""
	case StatusReading:
		return "Reading file..."
	case StatusSubmitting:
		return "Uploading..."
	case StatusSucceeded:
		return fmt.Sprintf("Successfully uploaded document with %d chunks.", len(a.ChunkIDs))
	}
	if a.Failure == nil {
		return "Error: " + UnknownServiceDetail
	}
	switch a.Failure.Kind {
	case FailureValidation:
		return RejectedMessage
	case FailureRead, FailureTransport:
		return "Error uploading file: " + a.Failure.Detail
	default:
		detail := a.Failure.Detail
		if detail == "" {
			detail = UnknownServiceDetail
		}
		return "Error: " + detail
	}
}

func (a Attempt) transitionErr(to Status) error {
	return fmt.Errorf("%w: attempt %s cannot move from %s to %s", apperrors.ErrInvalidTransition, a.ID, a.Status, to)
}

// Encode is the transport form of the file text: standard base64 over its
// UTF-8 bytes.
func Encode(text string) string {
	return base64.StdEncoding.EncodeToString([]byte(text))
}

func Decode(payload string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("decode payload: %w", err)
	}
	return string(raw), nil
}
