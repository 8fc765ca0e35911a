// Package fallback resolves canonical fields the deterministic mapper
// could not fill by asking Claude about the row's leftover columns.
// Resolution is best effort: any failure merges zero fields and the row
// continues with the partial profile.
package fallback

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/yolwise/leadscore-cli/internal/mapper"
	"github.com/yolwise/leadscore-cli/internal/model"
	"github.com/yolwise/leadscore-cli/pkg/anthropic"
)

const (
	defaultModel     = "claude-haiku-4-5-20251001"
	defaultMaxTokens = 512

	// promptValueLimit caps each leftover value in the prompt; whole
	// paragraphs in a stray column must not blow up the payload.
	promptValueLimit = 100
)

// systemPrompt is the shared system instruction for fallback resolution.
const systemPrompt = `You are a data extraction assistant for a Turkish B2B lead list.

You receive spreadsheet columns that automated header matching could not place, plus the list of profile fields still missing. Decide which missing fields the unmapped columns actually contain.

Rules:
- Use only the provided column values; never fill a field from world knowledge
- Return ONLY the missing fields you can fill and omit everything else
- Keep values exactly as written in the source columns
- Respond with ONLY a valid JSON object, no prose before or after`

// Resolver fills missing profile fields from unmapped columns.
type Resolver struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	valueCap  int
	fields    map[string]mapper.FieldMapping
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithModel overrides the Claude model used for resolution calls.
func WithModel(model string) Option {
	return func(r *Resolver) {
		if model != "" {
			r.model = model
		}
	}
}

// WithMaxTokens overrides the response token ceiling.
func WithMaxTokens(n int64) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxTokens = n
		}
	}
}

// WithValueCap overrides the per-value length cap applied to unmapped
// column values in the prompt.
func WithValueCap(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.valueCap = n
		}
	}
}

// WithFieldTable supplies the field table whose length and numeric
// constraints resolved values must satisfy. Pass the same table the
// mapper runs with so both paths produce identical shapes.
func WithFieldTable(fields []mapper.FieldMapping) Option {
	return func(r *Resolver) {
		r.fields = indexFields(fields)
	}
}

// New returns a Resolver over the given client.
func New(client anthropic.Client, opts ...Option) *Resolver {
	r := &Resolver{
		client:    client,
		model:     defaultModel,
		maxTokens: defaultMaxTokens,
		valueCap:  promptValueLimit,
		fields:    indexFields(mapper.DefaultFieldTable()),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func indexFields(fields []mapper.FieldMapping) map[string]mapper.FieldMapping {
	idx := make(map[string]mapper.FieldMapping, len(fields))
	for _, fm := range fields {
		idx[fm.Field] = fm
	}
	return idx
}

// Resolve asks the model to place leftover columns into the missing
// fields and merges validated answers into the profile. Only currently
// empty fields are written. Returns how many fields were filled.
func (r *Resolver) Resolve(ctx context.Context, p *model.Profile, leftovers []mapper.HeaderValue, missing []string) int {
	if len(missing) == 0 || len(leftovers) == 0 {
		return 0
	}

	req := anthropic.MessageRequest{
		Model:     r.model,
		MaxTokens: r.maxTokens,
		System:    anthropic.BuildCachedSystemBlocks(systemPrompt),
		Messages: []anthropic.Message{
			{Role: "user", Content: buildUserMessage(missing, leftovers, r.valueCap)},
		},
	}

	resp, err := r.client.CreateMessage(ctx, req)
	if err != nil {
		zap.L().Warn("fallback resolution failed, continuing with partial profile",
			zap.Strings("missing", missing),
			zap.Error(err))
		return 0
	}
	resp.Usage.LogCost(r.model, "fallback")

	parsed, err := parseReply(resp)
	if err != nil {
		zap.L().Warn("fallback reply unusable, continuing with partial profile",
			zap.Strings("missing", missing),
			zap.Error(err))
		return 0
	}

	filled := r.merge(p, parsed, missing)
	zap.L().Debug("fallback resolution merged",
		zap.Int("filled", filled),
		zap.Int("requested", len(missing)))
	return filled
}

// buildUserMessage renders the missing field list and the unmapped
// columns into the per-row user message.
func buildUserMessage(missing []string, leftovers []mapper.HeaderValue, valueCap int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Missing fields: %s\n", strings.Join(missing, ", "))

	sb.WriteString("\nUnmapped columns:\n")
	for _, hv := range leftovers {
		fmt.Fprintf(&sb, "- %s: %s\n", hv.Header, mapper.Truncate(hv.Value, valueCap))
	}

	sb.WriteString("\nRespond with a JSON object whose keys come only from the missing fields list.")
	return sb.String()
}

// parseReply extracts the JSON object from the model reply.
func parseReply(resp *anthropic.MessageResponse) (map[string]any, error) {
	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "" || b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}

	text := strings.TrimSpace(sb.String())
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}
	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start >= 0 && end > start {
		text = text[start : end+1]
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &parsed); err != nil {
		return nil, err
	}
	return parsed, nil
}

// merge writes validated reply values into the profile. Replies are
// restricted to the requested fields; anything else is dropped. Values
// pass the same numeric extraction and length caps as mapped columns.
func (r *Resolver) merge(p *model.Profile, parsed map[string]any, missing []string) int {
	filled := 0
	for _, field := range missing {
		raw, ok := parsed[field]
		if !ok {
			continue
		}
		fm, known := r.fields[field]
		if !known {
			fm = mapper.FieldMapping{Field: field, MaxLen: 200}
		}

		if fm.Numeric {
			n := toNumber(raw)
			if n <= 0 {
				continue
			}
			if p.SetIfEmpty(field, n) {
				filled++
			}
			continue
		}

		s := toString(raw)
		if s == "" {
			continue
		}
		if p.SetIfEmpty(field, mapper.Truncate(s, fm.MaxLen)) {
			filled++
		}
	}
	return filled
}

func toNumber(v any) float64 {
	switch n := v.(type) {
	case float64:
		if n < 0 {
			return 0
		}
		return math.Floor(n)
	case string:
		return mapper.ExtractNumber(n)
	default:
		return 0
	}
}

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return ""
	}
}
