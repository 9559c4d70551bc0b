// Package assist wraps the Gemini API for the portal's helper features:
// autofilling a profile form from pasted free text, and sanity-checking a
// link before it goes into a camp description. Both are best-effort; the
// portal works fully with assist disabled.
package assist

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/cadetlink/cadetlink/internal/app/system/normalize"
)

const defaultModel = "gemini-2.0-flash"

// AutofillResult holds the profile fields extracted from free text.
// Empty fields were not found in the input.
type AutofillResult struct {
	Name             string `json:"name"`
	Rank             string `json:"rank"`
	Unit             string `json:"unit"`
	RegimentalNumber string `json:"regimental_number"`
	StudentID        string `json:"student_id"`
	Phone            string `json:"phone"`
	Year             int    `json:"year"`
}

// LinkVerdict is the assessment of a submitted link.
type LinkVerdict struct {
	Safe   bool   `json:"safe"`
	Reason string `json:"reason"`
}

// Service is the assist API used by handlers. Nil-able so routes can
// degrade when no API key is configured.
type Service interface {
	Autofill(ctx context.Context, raw string) (AutofillResult, error)
	VerifyLink(ctx context.Context, url string) (LinkVerdict, error)
}

// GeminiService implements Service over the Gemini API.
type GeminiService struct {
	client *genai.Client
	model  string
}

// NewGeminiService builds the assist service. apiKey must be set.
func NewGeminiService(ctx context.Context, apiKey, model string) (*GeminiService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("assist: API key is required")
	}
	if model == "" {
		model = defaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("assist: create client: %w", err)
	}
	return &GeminiService{client: client, model: model}, nil
}

const autofillPrompt = `Extract cadet profile fields from the text below.
Respond with ONLY a JSON object with these keys (omit or empty-string any
field not present): name, rank, unit, regimental_number, student_id,
phone (digits only), year (integer 1-3, 0 if unknown).

Text:
%s`

func (s *GeminiService) Autofill(ctx context.Context, raw string) (AutofillResult, error) {
	resp, err := s.client.Models.GenerateContent(ctx, s.model,
		genai.Text(fmt.Sprintf(autofillPrompt, raw)),
		&genai.GenerateContentConfig{ResponseMIMEType: "application/json"})
	if err != nil {
		return AutofillResult{}, fmt.Errorf("assist: autofill: %w", err)
	}
	return ParseAutofill(resp.Text())
}

const verifyLinkPrompt = `Assess whether this URL is plausible and safe to
include in a cadet training camp announcement. Respond with ONLY a JSON
object: {"safe": true|false, "reason": "<one sentence>"}.

URL: %s`

func (s *GeminiService) VerifyLink(ctx context.Context, url string) (LinkVerdict, error) {
	resp, err := s.client.Models.GenerateContent(ctx, s.model,
		genai.Text(fmt.Sprintf(verifyLinkPrompt, url)),
		&genai.GenerateContentConfig{ResponseMIMEType: "application/json"})
	if err != nil {
		return LinkVerdict{}, fmt.Errorf("assist: verify link: %w", err)
	}
	return ParseLinkVerdict(resp.Text())
}

// ParseAutofill decodes the model's JSON reply, tolerating markdown
// fences, and normalizes the extracted fields.
func ParseAutofill(reply string) (AutofillResult, error) {
	var res AutofillResult
	if err := json.Unmarshal([]byte(stripFences(reply)), &res); err != nil {
		return AutofillResult{}, fmt.Errorf("assist: bad autofill reply: %w", err)
	}
	res.Name = normalize.Name(res.Name)
	res.Phone = normalize.Digits(res.Phone)
	res.RegimentalNumber = normalize.RegimentalNumber(res.RegimentalNumber)
	if res.Year < 0 || res.Year > 3 {
		res.Year = 0
	}
	return res, nil
}

// ParseLinkVerdict decodes the model's JSON verdict, tolerating markdown
// fences. A malformed reply fails closed (not safe).
func ParseLinkVerdict(reply string) (LinkVerdict, error) {
	var v LinkVerdict
	if err := json.Unmarshal([]byte(stripFences(reply)), &v); err != nil {
		return LinkVerdict{}, fmt.Errorf("assist: bad verdict reply: %w", err)
	}
	return v, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
