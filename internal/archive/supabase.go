package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/supabase-community/supabase-go"

	"github.com/GowthamiKadiyala/ai-interview-coach/internal/session"
)

// Config holds Supabase storage settings.
type Config struct {
	URL            string
	ServiceRoleKey string
	Bucket         string
}

// Store archives finished interviews (transcript + report JSON) to a
// Supabase storage bucket.
type Store struct {
	client *supabase.Client
	bucket string
}

// New constructs a Store. Returns an error when the client cannot be built
// so the caller can run without archiving instead of crashing.
func New(cfg Config) (*Store, error) {
	client, err := supabase.NewClient(cfg.URL, cfg.ServiceRoleKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("archive: create supabase client: %w", err)
	}
	return &Store{client: client, bucket: cfg.Bucket}, nil
}

type record struct {
	SessionID  string              `json:"sessionId"`
	EndedAt    time.Time           `json:"endedAt"`
	Transcript []session.Utterance `json:"transcript"`
	Report     *session.Report     `json:"report,omitempty"`
}

// Archive implements session.Archiver.
func (s *Store) Archive(ctx context.Context, sessionID uuid.UUID, transcript []session.Utterance, rep *session.Report) error {
	data, err := json.MarshalIndent(record{
		SessionID:  sessionID.String(),
		EndedAt:    time.Now().UTC(),
		Transcript: transcript,
		Report:     rep,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("archive: encode record: %w", err)
	}
	key := fmt.Sprintf("interviews/%s.json", sessionID)
	if _, err := s.client.Storage.UploadFile(s.bucket, key, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("archive: upload to supabase: %w", err)
	}
	return nil
}
