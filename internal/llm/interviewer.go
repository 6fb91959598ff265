package llm

import (
	"context"
	"fmt"

	"github.com/GowthamiKadiyala/ai-interview-coach/internal/session"
)

// contextClip bounds how much resume/job-description text is inlined into
// the system prompt.
const contextClip = 2000

const openingUserLine = "Let's start the interview."

const fallbackQuestion = "Could you tell me about your experience?"

// Interviewer is the inference adapter: given the transcript so far plus
// the static interview context, it produces the recruiter's next utterance.
type Interviewer struct {
	client *Client
}

// NewInterviewer wraps a chat client as the interviewer.
func NewInterviewer(c *Client) *Interviewer { return &Interviewer{client: c} }

// Infer re-sends the full transcript every turn; the model holds no state
// between calls.
func (i *Interviewer) Infer(ctx context.Context, transcript []session.Utterance, ic session.InterviewContext) (string, error) {
	messages := make([]Message, 0, len(transcript)+2)
	messages = append(messages, Message{Role: "system", Content: systemPrompt(ic)})
	for _, u := range transcript {
		role := "assistant"
		if u.Speaker == session.SpeakerUser {
			role = "user"
		}
		messages = append(messages, Message{Role: role, Content: u.Text})
	}
	// The conversation sent to the model must end on a user message. The
	// opening turn has no user utterance yet.
	if len(transcript) == 0 || transcript[len(transcript)-1].Speaker != session.SpeakerUser {
		messages = append(messages, Message{Role: "user", Content: openingUserLine})
	}

	reply, err := i.client.Complete(ctx, messages)
	if err != nil {
		return "", err
	}
	if reply == "" {
		reply = fallbackQuestion
	}
	return reply, nil
}

func systemPrompt(ic session.InterviewContext) string {
	return fmt.Sprintf(`You are a Senior Technical Recruiter.
CONTEXT:
Resume: %q
Job Description: %q

STRICT RULES:
1. ASK ONLY ONE QUESTION AT A TIME. Do not ask multi-part questions.
2. After asking a question, STOP and wait for the user to provide a complete answer.
3. Acknowledge the user's previous answer briefly before asking the NEXT single question.
4. Do not provide feedback or a scorecard mid-interview.
5. Keep responses under 2 sentences.`, clip(ic.ResumeText), clip(ic.JobDescription))
}

func clip(s string) string {
	if len(s) > contextClip {
		return s[:contextClip]
	}
	return s
}
