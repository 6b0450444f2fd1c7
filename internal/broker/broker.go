// Package broker talks to the hosted inference marketplace: it discovers
// attested providers and sends chat-completion requests to the selected
// provider's OpenAI-compatible endpoint. Attestation is a vendor claim;
// nothing is re-verified locally.
package broker

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/safeguard-ai/safeguard/internal/models"
)

// inferenceTimeout is the caller-facing bound on a single completion.
// Third-party inference is slow; two minutes is deliberate.
const inferenceTimeout = 2 * time.Minute

// attestedVerifiability is the marketplace's TEE attestation marker.
const attestedVerifiability = "TeeML"

// ServiceTypeChatbot marks providers that accept conversational requests.
const ServiceTypeChatbot = "chatbot"

// Service describes one marketplace provider offering.
type Service struct {
	ProviderAddress string `json:"providerAddress"`
	Model           string `json:"model"`
	Endpoint        string `json:"endpoint"`
	ServiceType     string `json:"serviceType"`
	Verifiability   string `json:"verifiability"`
	InputPrice      string `json:"inputPrice"`
	OutputPrice     string `json:"outputPrice"`
}

// Attested reports whether the provider carries the TEE attestation claim.
func (s Service) Attested() bool { return s.Verifiability == attestedVerifiability }

// Completion is the result of one inference call.
type Completion struct {
	Content      string
	ChatID       string
	InputTokens  int
	OutputTokens int
}

// Inference is the capability the scorer and chat manager depend on.
type Inference interface {
	ListServices(ctx context.Context) ([]Service, error)
	Chat(ctx context.Context, svc Service, messages []models.ChatMessage, maxTokens int, temperature float32) (*Completion, error)
}

// Client implements Inference against a marketplace REST API and the
// providers' OpenAI-compatible chat endpoints.
type Client struct {
	http           *resty.Client
	marketplaceURL string
	apiKey         string
	logger         *zap.Logger
}

func NewClient(marketplaceURL, apiKey string, logger *zap.Logger) *Client {
	return &Client{
		http:           resty.New().SetTimeout(30 * time.Second),
		marketplaceURL: strings.TrimRight(marketplaceURL, "/"),
		apiKey:         apiKey,
		logger:         logger,
	}
}

// ListServices fetches the provider catalogue. A malformed payload is an
// upstream error, not a silent empty list.
func (c *Client) ListServices(ctx context.Context) ([]Service, error) {
	var services []Service
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+c.apiKey).
		SetResult(&services).
		Get(c.marketplaceURL + "/services")
	if err != nil {
		return nil, models.NewUpstreamError("inference marketplace unreachable", err)
	}
	if resp.StatusCode() != 200 {
		return nil, models.NewUpstreamError(
			fmt.Sprintf("inference marketplace returned status %d", resp.StatusCode()), nil)
	}
	return services, nil
}

// Chat sends the message list to the provider and returns its reply.
func (c *Client) Chat(ctx context.Context, svc Service, messages []models.ChatMessage, maxTokens int, temperature float32) (*Completion, error) {
	ctx, cancel := context.WithTimeout(ctx, inferenceTimeout)
	defer cancel()

	cfg := openai.DefaultConfig(c.apiKey)
	cfg.BaseURL = strings.TrimRight(svc.Endpoint, "/")
	client := openai.NewClientWithConfig(cfg)

	chatMessages := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		chatMessages = append(chatMessages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       svc.Model,
		Messages:    chatMessages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return nil, models.NewUpstreamError("inference request failed", err)
	}
	if len(resp.Choices) == 0 {
		return nil, models.NewUpstreamError("inference provider returned no choices", nil)
	}

	c.logger.Debug("inference completed",
		zap.String("provider", svc.ProviderAddress),
		zap.String("model", svc.Model),
		zap.Int("inputTokens", resp.Usage.PromptTokens),
		zap.Int("outputTokens", resp.Usage.CompletionTokens))

	return &Completion{
		Content:      resp.Choices[0].Message.Content,
		ChatID:       resp.ID,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

// SelectProvider picks an attested provider, preferring the first whose
// model name contains preferredModel (case-insensitive). serviceType
// filters the catalogue when non-empty.
func SelectProvider(services []Service, preferredModel, serviceType string) (*Service, error) {
	var attested []Service
	for _, s := range services {
		if !s.Attested() {
			continue
		}
		if serviceType != "" && s.ServiceType != serviceType {
			continue
		}
		attested = append(attested, s)
	}
	if len(attested) == 0 {
		return nil, models.NewUpstreamError("no attested inference provider available", nil)
	}
	if preferredModel != "" {
		want := strings.ToLower(preferredModel)
		for i := range attested {
			if strings.Contains(strings.ToLower(attested[i].Model), want) {
				return &attested[i], nil
			}
		}
	}
	return &attested[0], nil
}

// Cost converts token usage into a notional USD figure using the
// provider's wei-per-token prices.
func Cost(inputTokens, outputTokens int, svc Service) float64 {
	const (
		weiPerToken = 1e18
		tokenToUSD  = 0.01
	)
	inputPrice, _ := strconv.ParseFloat(svc.InputPrice, 64)
	outputPrice, _ := strconv.ParseFloat(svc.OutputPrice, 64)
	totalWei := float64(inputTokens)*inputPrice + float64(outputTokens)*outputPrice
	usd := totalWei / weiPerToken * tokenToUSD
	return float64(int(usd*1e6+0.5)) / 1e6
}
