package fallback

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/yolwise/leadscore-cli/internal/mapper"
	"github.com/yolwise/leadscore-cli/internal/model"
	"github.com/yolwise/leadscore-cli/pkg/anthropic"
)

func replyWith(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		ID:         "msg_02",
		Model:      defaultModel,
		Content:    []anthropic.ContentBlock{{Type: "text", Text: text}},
		StopReason: "end_turn",
		Usage:      anthropic.TokenUsage{InputTokens: 400, OutputTokens: 60},
	}
}

func partialProfile() *model.Profile {
	p := model.NewProfile()
	p.Set(model.FieldCompanyName, "Boya Kimya San. A.Ş.")
	return p
}

func turkishLeftovers() []mapper.HeaderValue {
	return []mapper.HeaderValue{
		{Header: "Sektör Bilgisi", Value: "Kimya ve boya üretimi"},
		{Header: "Ciro 2025", Value: "250 milyon TL"},
		{Header: "Personel Sayısı", Value: "450"},
		{Header: "Merkez Ofis", Value: "Kocaeli"},
	}
}

func TestResolve_FillsMissingFields(t *testing.T) {
	client := &mockAnthropicClient{}
	client.On("CreateMessage", mock.Anything, mock.AnythingOfType("anthropic.MessageRequest")).
		Return(replyWith(`{"industry": "Kimya ve boya üretimi", "revenue_estimate": "250 milyon TL", "employees_estimate": 450, "headquarters": "Kocaeli"}`), nil).Once()

	r := New(client)
	p := partialProfile()
	missing := []string{
		model.FieldIndustry,
		model.FieldRevenueEstimate,
		model.FieldEmployeesEstimate,
		model.FieldHeadquarters,
	}

	filled := r.Resolve(context.Background(), p, turkishLeftovers(), missing)

	assert.Equal(t, 4, filled)
	assert.Equal(t, "Kimya ve boya üretimi", p.Str(model.FieldIndustry))
	assert.Equal(t, float64(250000000), p.Float(model.FieldRevenueEstimate))
	assert.Equal(t, float64(450), p.Float(model.FieldEmployeesEstimate))
	assert.Equal(t, "Kocaeli", p.Str(model.FieldHeadquarters))
	assert.Empty(t, p.MissingCritical())
	client.AssertExpectations(t)
}

func TestResolve_RequestShape(t *testing.T) {
	client := &mockAnthropicClient{}
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		if req.Model != defaultModel || req.MaxTokens != defaultMaxTokens {
			return false
		}
		if len(req.System) != 1 || req.System[0].CacheControl == nil {
			return false
		}
		msg := req.Messages[0].Content
		return strings.Contains(msg, "Missing fields: industry, headquarters") &&
			strings.Contains(msg, "- Sektör Bilgisi: Kimya ve boya üretimi")
	})).Return(replyWith(`{}`), nil).Once()

	r := New(client)
	r.Resolve(context.Background(), partialProfile(), turkishLeftovers(),
		[]string{model.FieldIndustry, model.FieldHeadquarters})
	client.AssertExpectations(t)
}

func TestResolve_SkipsWithoutMissingOrLeftovers(t *testing.T) {
	client := &mockAnthropicClient{}
	r := New(client)

	assert.Zero(t, r.Resolve(context.Background(), partialProfile(), turkishLeftovers(), nil))
	assert.Zero(t, r.Resolve(context.Background(), partialProfile(), nil, []string{model.FieldIndustry}))
	client.AssertNumberOfCalls(t, "CreateMessage", 0)
}

func TestResolve_DoesNotOverwriteExisting(t *testing.T) {
	client := &mockAnthropicClient{}
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(replyWith(`{"industry": "Kimya", "headquarters": "İzmit"}`), nil).Once()

	p := partialProfile()
	p.Set(model.FieldIndustry, "Lojistik")

	r := New(client)
	filled := r.Resolve(context.Background(), p, turkishLeftovers(),
		[]string{model.FieldIndustry, model.FieldHeadquarters})

	assert.Equal(t, 1, filled)
	assert.Equal(t, "Lojistik", p.Str(model.FieldIndustry))
	assert.Equal(t, "İzmit", p.Str(model.FieldHeadquarters))
}

func TestResolve_DropsUnrequestedAndEmpty(t *testing.T) {
	client := &mockAnthropicClient{}
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(replyWith(`{"website": "https://example.com.tr", "industry": "", "headquarters": "Bursa"}`), nil).Once()

	p := partialProfile()
	r := New(client)
	filled := r.Resolve(context.Background(), p, turkishLeftovers(),
		[]string{model.FieldIndustry, model.FieldHeadquarters})

	assert.Equal(t, 1, filled)
	assert.False(t, p.Has(model.FieldWebsite))
	assert.False(t, p.Has(model.FieldIndustry))
	assert.Equal(t, "Bursa", p.Str(model.FieldHeadquarters))
}

func TestResolve_FencedReply(t *testing.T) {
	client := &mockAnthropicClient{}
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(replyWith("```json\n{\"headquarters\": \"Gebze\"}\n```"), nil).Once()

	p := partialProfile()
	r := New(client)
	filled := r.Resolve(context.Background(), p, turkishLeftovers(), []string{model.FieldHeadquarters})

	assert.Equal(t, 1, filled)
	assert.Equal(t, "Gebze", p.Str(model.FieldHeadquarters))
}

func TestResolve_TransportError(t *testing.T) {
	client := &mockAnthropicClient{}
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(nil, errors.New("connection reset")).Once()

	p := partialProfile()
	r := New(client)
	filled := r.Resolve(context.Background(), p, turkishLeftovers(), []string{model.FieldIndustry})

	assert.Zero(t, filled)
	assert.False(t, p.Has(model.FieldIndustry))
}

func TestResolve_MalformedReply(t *testing.T) {
	client := &mockAnthropicClient{}
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(replyWith("Üzgünüm, bu kolonlardan alan çıkaramadım."), nil).Once()

	r := New(client)
	filled := r.Resolve(context.Background(), partialProfile(), turkishLeftovers(), []string{model.FieldIndustry})
	assert.Zero(t, filled)
}

func TestResolve_NumericExtraction(t *testing.T) {
	client := &mockAnthropicClient{}
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(replyWith(`{"revenue_estimate": "2.5k", "employees_estimate": -5}`), nil).Once()

	p := partialProfile()
	r := New(client)
	filled := r.Resolve(context.Background(), p, turkishLeftovers(),
		[]string{model.FieldRevenueEstimate, model.FieldEmployeesEstimate})

	assert.Equal(t, 1, filled)
	assert.Equal(t, float64(2500), p.Float(model.FieldRevenueEstimate))
	assert.False(t, p.Has(model.FieldEmployeesEstimate))
}

func TestResolve_TruncatesToFieldCap(t *testing.T) {
	long := strings.Repeat("ç", 150)
	client := &mockAnthropicClient{}
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(replyWith(`{"headquarters": "`+long+`"}`), nil).Once()

	p := partialProfile()
	r := New(client)
	r.Resolve(context.Background(), p, turkishLeftovers(), []string{model.FieldHeadquarters})

	// headquarters caps at 100 runes in the field table.
	assert.Equal(t, strings.Repeat("ç", 100), p.Str(model.FieldHeadquarters))
}

func TestBuildUserMessage_CapsLeftoverValues(t *testing.T) {
	long := strings.Repeat("a", 150)
	msg := buildUserMessage([]string{model.FieldIndustry}, []mapper.HeaderValue{
		{Header: "Açıklama", Value: long},
	}, promptValueLimit)

	assert.Contains(t, msg, "- Açıklama: "+strings.Repeat("a", 100)+"\n")
	assert.NotContains(t, msg, strings.Repeat("a", 101))
}
