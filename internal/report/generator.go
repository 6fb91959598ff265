package report

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/GowthamiKadiyala/ai-interview-coach/internal/llm"
	"github.com/GowthamiKadiyala/ai-interview-coach/internal/session"
)

const scoringPrompt = `You are a Senior Technical Recruiter. Analyze the following interview transcript.
Return a JSON object with:
1. "score" (integer 1-10),
2. "feedback" (a short paragraph summary),
3. "improvements" (an array of 3 specific bullet points on what they could do better).

Be strict. Focus on the STAR method and technical clarity.`

// Generator grades a finished interview with the chat model in JSON mode.
// Pure function of the transcript snapshot; invoked once per session at
// Ended, plus explicit retries.
type Generator struct {
	client *llm.Client
}

// NewGenerator wraps a chat client as the report generator.
func NewGenerator(c *llm.Client) *Generator { return &Generator{client: c} }

type transcriptLine struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Score implements session.Scorer.
func (g *Generator) Score(ctx context.Context, transcript []session.Utterance, ic session.InterviewContext) (session.Report, error) {
	if len(transcript) == 0 {
		return session.Report{}, fmt.Errorf("report: no conversation to analyze")
	}
	lines := make([]transcriptLine, 0, len(transcript))
	for _, u := range transcript {
		role := "AI Coach"
		if u.Speaker == session.SpeakerUser {
			role = "You"
		}
		lines = append(lines, transcriptLine{Role: role, Text: u.Text})
	}
	payload, err := json.Marshal(lines)
	if err != nil {
		return session.Report{}, fmt.Errorf("report: encode transcript: %w", err)
	}

	out, err := g.client.CompleteJSON(ctx, []llm.Message{
		{Role: "system", Content: scoringPrompt},
		{Role: "user", Content: string(payload)},
	})
	if err != nil {
		return session.Report{}, fmt.Errorf("report: %w", err)
	}

	var rep session.Report
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		return session.Report{}, fmt.Errorf("report: decode model output: %w", err)
	}
	if rep.Score < 1 {
		rep.Score = 1
	}
	if rep.Score > 10 {
		rep.Score = 10
	}
	if rep.Improvements == nil {
		rep.Improvements = []string{}
	}
	return rep, nil
}
