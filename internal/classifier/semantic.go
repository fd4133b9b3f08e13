package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/autoresolve/internal/domain"
	apperrors "github.com/spec-kit/autoresolve/pkg/util/errorutil"
)

// Completer sends a chat-style prompt to a language model and returns its text.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// ErrIneligible marks transcripts that are never auto-resolved.
var ErrIneligible = errors.New("transcript not eligible for auto-resolution")

const (
	truthMarker        = "true"
	transcriptComments = 2
)

var ineligibleChannels = map[string]struct{}{
	"voice":            {},
	"chat":             {},
	"native_messaging": {},
}

const messagePrompt = `Analyze the message below. Decide whether the sender is only expressing gratitude (e.g. "thank you", "merci", "gracias") or making a conclusive closing statement, with no additional action item, request or question for the recipient.
Return true if the message is solely gratitude or a conclusive closing statement, and false otherwise. If you are unsure, return false.

Examples:

Message: "Thank you very much!" (English)
Response: true

Message: "Gracias, ¿cuánto cuestan los pepinillos?" (Spanish)
Response: false

Message: "Merci, c'est tout." (French)
Response: true

Message: "Thanks! Also, where is my refund?" (English)
Response: false

Answer with a single word: true or false.`

const transcriptPrompt = `Below are the last two public comments of a support conversation, oldest first.
Decide whether the conversation is finished: the final comment only expresses gratitude or is a conclusive closing statement, and nothing in the exchange is still waiting for an answer or an action.
Return true if the conversation is concluded, and false otherwise. If you are unsure, return false.

Answer with a single word: true or false.`

// SemanticClassifier asks a language model whether a conversation is concluded.
type SemanticClassifier struct {
	completer Completer
	timeout   time.Duration
}

// NewSemanticClassifier builds a classifier. A zero timeout leaves calls unbounded.
func NewSemanticClassifier(completer Completer, timeout time.Duration) *SemanticClassifier {
	return &SemanticClassifier{completer: completer, timeout: timeout}
}

// Classify returns the verdict for a single message.
func (s *SemanticClassifier) Classify(ctx context.Context, message string) (bool, error) {
	if strings.TrimSpace(message) == "" {
		return false, nil
	}
	return s.ask(ctx, messagePrompt, "Message: "+message)
}

// ClassifyTranscript returns the verdict for the tail of a ticket thread.
// Ineligible transcripts return ErrIneligible without calling the model.
func (s *SemanticClassifier) ClassifyTranscript(ctx context.Context, t domain.Transcript) (bool, error) {
	if err := Eligible(t); err != nil {
		return false, err
	}
	return s.ask(ctx, transcriptPrompt, RenderTranscript(t.LastPublic(transcriptComments)))
}

func (s *SemanticClassifier) ask(ctx context.Context, system, user string) (bool, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	answer, err := s.completer.Complete(ctx, system, user)
	if err != nil {
		return false, apperrors.NewClassifierUnavailable(err)
	}
	return ParseVerdict(answer), nil
}

// ParseVerdict reports whether a free-text answer contains the truth marker.
func ParseVerdict(answer string) bool {
	return strings.Contains(strings.ToLower(answer), truthMarker)
}

// Eligible rejects conversations on live channels and threads with fewer
// than two public comments.
func Eligible(t domain.Transcript) error {
	if err := EligibleChannel(t.Channel); err != nil {
		return err
	}
	if n := len(t.LastPublic(transcriptComments)); n < transcriptComments {
		return fmt.Errorf("%w: %d public comments", ErrIneligible, n)
	}
	return nil
}

// EligibleChannel rejects voice, chat and native messaging conversations.
func EligibleChannel(channel string) error {
	channel = strings.ToLower(strings.TrimSpace(channel))
	if _, skip := ineligibleChannels[channel]; skip {
		return fmt.Errorf("%w: channel %s", ErrIneligible, channel)
	}
	return nil
}

// RenderTranscript formats comments as "Name (role): body" lines.
func RenderTranscript(comments []domain.Comment) string {
	var b strings.Builder
	for i, c := range comments {
		if i > 0 {
			b.WriteString("\n\n")
		}
		name := c.AuthorName
		if name == "" {
			name = "Unknown"
		}
		fmt.Fprintf(&b, "%s (%s): %s", name, c.AuthorRole, strings.TrimSpace(c.Body))
	}
	return b.String()
}
