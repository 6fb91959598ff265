package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/GowthamiKadiyala/ai-interview-coach/internal/session"
)

// captureServer records the chat request and answers with a fixed reply.
func captureServer(t *testing.T, reply string, got *chatCompletionsRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		resp := chatCompletionsResponse{Choices: []chatChoice{{Message: Message{Role: "assistant", Content: reply}}}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func testInterviewer(srvURL string) *Interviewer {
	c := NewClient("key", "model")
	c.BaseURL = srvURL
	return NewInterviewer(c)
}

func TestInterviewer_OpeningTurnSendsStartLine(t *testing.T) {
	var got chatCompletionsRequest
	srv := captureServer(t, "Tell me about yourself.", &got)
	defer srv.Close()

	iv := testInterviewer(srv.URL)
	reply, err := iv.Infer(context.Background(), nil, session.InterviewContext{
		ResumeText:     "5 years Go backend",
		JobDescription: "Senior Go Engineer",
	})
	if err != nil {
		t.Fatalf("infer: %v", err)
	}
	if reply != "Tell me about yourself." {
		t.Fatalf("unexpected reply %q", reply)
	}
	if len(got.Messages) != 2 {
		t.Fatalf("expected system + opening user line, got %d messages", len(got.Messages))
	}
	if got.Messages[0].Role != "system" || !strings.Contains(got.Messages[0].Content, "Senior Technical Recruiter") {
		t.Fatalf("unexpected system message: %+v", got.Messages[0])
	}
	if !strings.Contains(got.Messages[0].Content, "5 years Go backend") {
		t.Fatalf("resume text missing from system prompt")
	}
	if got.Messages[1] != (Message{Role: "user", Content: openingUserLine}) {
		t.Fatalf("unexpected opening user message: %+v", got.Messages[1])
	}
}

func TestInterviewer_MapsTranscriptRoles(t *testing.T) {
	var got chatCompletionsRequest
	srv := captureServer(t, "Next question.", &got)
	defer srv.Close()

	transcript := []session.Utterance{
		{Speaker: session.SpeakerAgent, Text: "Tell me about yourself.", Sequence: 0},
		{Speaker: session.SpeakerUser, Text: "I build payment systems.", Sequence: 1},
	}
	iv := testInterviewer(srv.URL)
	if _, err := iv.Infer(context.Background(), transcript, session.InterviewContext{}); err != nil {
		t.Fatalf("infer: %v", err)
	}
	if len(got.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(got.Messages))
	}
	if got.Messages[1].Role != "assistant" || got.Messages[2].Role != "user" {
		t.Fatalf("role mapping wrong: %+v", got.Messages[1:])
	}
	// transcript already ends on a user line; no synthetic opener
	if got.Messages[2].Content != "I build payment systems." {
		t.Fatalf("last message must be the user's answer: %+v", got.Messages[2])
	}
}

func TestInterviewer_FallbackOnEmptyReply(t *testing.T) {
	var got chatCompletionsRequest
	srv := captureServer(t, "", &got)
	defer srv.Close()
	iv := testInterviewer(srv.URL)
	reply, err := iv.Infer(context.Background(), nil, session.InterviewContext{})
	if err != nil {
		t.Fatalf("infer: %v", err)
	}
	if reply != fallbackQuestion {
		t.Fatalf("expected fallback question, got %q", reply)
	}
}

func TestInterviewer_ClipsOversizedContext(t *testing.T) {
	var got chatCompletionsRequest
	srv := captureServer(t, "ok", &got)
	defer srv.Close()
	iv := testInterviewer(srv.URL)
	long := strings.Repeat("x", contextClip+500)
	if _, err := iv.Infer(context.Background(), nil, session.InterviewContext{ResumeText: long}); err != nil {
		t.Fatalf("infer: %v", err)
	}
	if strings.Contains(got.Messages[0].Content, strings.Repeat("x", contextClip+1)) {
		t.Fatalf("resume text was not clipped")
	}
}
