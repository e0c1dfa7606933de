package analyze

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/mail"
	"os"
	"strings"
	"time"

	"github.com/casetrace/casetrace-go/internal/llm"
	"github.com/casetrace/casetrace-go/internal/models"
)

const emailSystemPrompt = `You are a forensic communications examiner supporting a legal investigation.
Analyze the email envelope and body and report:
- a factual thread summary
- the communication pattern across the exchange
- whether escalation is detectable
- every named entity with confidence and context, including verbatim quoted statements with their speaker
- the legal significance (critical, high, medium, low)
- risk flags: short lowercase tags for concerning content
- a deference score per participant address: 0 means dominant, 0.5 neutral, 1 deferential
Be precise and conservative: never invent facts that are not in the message.`

// emailResponse is the structured LLM output; participant identity comes
// from the parsed headers and only the deference scoring comes from the
// model.
type emailResponse struct {
	ThreadSummary        string              `json:"thread_summary" validate:"required"`
	CommunicationPattern string              `json:"communication_pattern" validate:"required"`
	EscalationDetected   bool                `json:"escalation_detected"`
	Entities             []models.Entity     `json:"entities" validate:"dive"`
	LegalSignificance    models.Significance `json:"legal_significance" validate:"required,oneof=critical high medium low"`
	RiskFlags            []string            `json:"risk_flags"`
	Confidence           float64             `json:"confidence" validate:"gte=0,lte=1"`
	DeferenceScores      []struct {
		Address string  `json:"address" validate:"required"`
		Score   float64 `json:"score" validate:"gte=0,lte=1"`
	} `json:"deference_scores" validate:"dive"`
}

// EmailAnalyzer parses RFC 5322 headers, builds an envelope+body payload
// and produces EmailAnalysis records with full participant metadata.
type EmailAnalyzer struct {
	client *llm.Client
	logger *slog.Logger
}

// NewEmailAnalyzer builds an email analyzer.
func NewEmailAnalyzer(client *llm.Client) *EmailAnalyzer {
	return &EmailAnalyzer{
		client: client,
		logger: slog.Default().With("component", "email_analyzer"),
	}
}

// Analyze parses the message and runs the structured call.
func (a *EmailAnalyzer) Analyze(ctx context.Context, rawPath string, meta *models.FileMetadata) (*models.EmailAnalysis, error) {
	f, err := os.Open(rawPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	msg, err := mail.ReadMessage(f)
	if err != nil {
		return nil, fmt.Errorf("parse email %s: %w", meta.Filename, err)
	}

	participants, sentAt := parseParticipants(msg)
	body, err := io.ReadAll(io.LimitReader(msg.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	envelope := buildEnvelope(msg, participants)

	var resp emailResponse
	err = a.client.CallStructured(ctx, llm.Request{
		System: emailSystemPrompt,
		User:   fmt.Sprintf("%s\nBody:\n%s", envelope, string(body)),
		Schema: emailSchema,
	}, &resp)
	if err != nil {
		return nil, err
	}

	// Merge the model's deference scores onto the header-derived
	// participants. A participant the model did not score stays neutral.
	scores := make(map[string]float64, len(resp.DeferenceScores))
	for _, ds := range resp.DeferenceScores {
		scores[strings.ToLower(ds.Address)] = ds.Score
	}
	for i := range participants {
		if score, ok := scores[strings.ToLower(participants[i].Address)]; ok {
			participants[i].DeferenceScore = score
		} else {
			participants[i].DeferenceScore = 0.5
		}
		if sentAt != nil {
			participants[i].FirstInteraction = sentAt
			participants[i].LastInteraction = sentAt
		}
	}

	analysis := &models.EmailAnalysis{
		Participants:         participants,
		ThreadSummary:        resp.ThreadSummary,
		CommunicationPattern: resp.CommunicationPattern,
		EscalationDetected:   resp.EscalationDetected,
		Entities:             resp.Entities,
		LegalSignificance:    resp.LegalSignificance,
		RiskFlags:            resp.RiskFlags,
		Confidence:           resp.Confidence,
	}

	a.logger.Debug("email analyzed",
		"sha256", models.ShortSHA(meta.SHA256),
		"participants", len(participants),
		"pattern", analysis.CommunicationPattern,
	)
	return analysis, nil
}

func parseParticipants(msg *mail.Message) ([]models.Participant, *time.Time) {
	var participants []models.Participant
	seen := make(map[string]bool)

	add := func(header string, role models.ParticipantRole) {
		addrs, err := msg.Header.AddressList(header)
		if err != nil {
			return
		}
		for _, addr := range addrs {
			key := strings.ToLower(addr.Address)
			if seen[key] {
				continue
			}
			seen[key] = true
			participants = append(participants, models.Participant{
				Name:         addr.Name,
				Address:      addr.Address,
				Role:         role,
				MessageCount: 1,
			})
		}
	}

	add("From", models.RoleSender)
	add("To", models.RoleRecipient)
	add("Cc", models.RoleCC)
	add("Bcc", models.RoleBCC)

	var sentAt *time.Time
	if date, err := msg.Header.Date(); err == nil {
		utc := date.UTC()
		sentAt = &utc
	}
	return participants, sentAt
}

func buildEnvelope(msg *mail.Message, participants []models.Participant) string {
	var sb strings.Builder
	sb.WriteString("Envelope:\n")
	for _, h := range []string{"From", "To", "Cc", "Date", "Subject"} {
		if v := msg.Header.Get(h); v != "" {
			fmt.Fprintf(&sb, "  %s: %s\n", h, v)
		}
	}
	sb.WriteString("Participants:\n")
	for _, p := range participants {
		fmt.Fprintf(&sb, "  - %s <%s> (%s)\n", p.Name, p.Address, p.Role)
	}
	return sb.String()
}

// HeaderDate exposes the parsed Date header for timeline construction.
func HeaderDate(rawPath string) (*time.Time, error) {
	f, err := os.Open(rawPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	msg, err := mail.ReadMessage(f)
	if err != nil {
		return nil, err
	}
	date, err := msg.Header.Date()
	if err != nil {
		return nil, err
	}
	utc := date.UTC()
	return &utc, nil
}
