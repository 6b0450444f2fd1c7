package scorer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/safeguard-ai/safeguard/internal/broker"
	"github.com/safeguard-ai/safeguard/internal/models"
)

// fakeInference scripts marketplace responses for remote scorer tests.
type fakeInference struct {
	services  []broker.Service
	reply     string
	chatID    string
	listErr   error
	chatCalls int
	gotModel  string
}

func (f *fakeInference) ListServices(context.Context) ([]broker.Service, error) {
	return f.services, f.listErr
}

func (f *fakeInference) Chat(_ context.Context, svc broker.Service, messages []models.ChatMessage, _ int, _ float32) (*broker.Completion, error) {
	f.chatCalls++
	f.gotModel = svc.Model
	return &broker.Completion{
		Content:      f.reply,
		ChatID:       f.chatID,
		InputTokens:  100,
		OutputTokens: 50,
	}, nil
}

func attestedService(model string) broker.Service {
	return broker.Service{
		ProviderAddress: "0xprovider",
		Model:           model,
		Endpoint:        "http://provider/v1",
		Verifiability:   "TeeML",
		InputPrice:      "0",
		OutputPrice:     "0",
	}
}

func TestRemoteScoreParsesReply(t *testing.T) {
	fake := &fakeInference{
		services: []broker.Service{attestedService("deepseek-chat")},
		reply:    "```json\n" + assessmentJSON + "\n```",
		chatID:   "chat-99",
	}
	r := NewRemote(fake, "deepseek", zap.NewNop())

	factors, verification, err := r.Score(context.Background(), Contract{
		Address: "0xabc",
		Network: models.NetworkEthereum,
		Code:    "contract T {}",
	})
	require.NoError(t, err)
	assert.Equal(t, 8.0, factors.RugPullRisk)
	assert.Equal(t, 1, fake.chatCalls)
	assert.Equal(t, "deepseek-chat", fake.gotModel)
	assert.True(t, verification.TEEVerified)
	assert.Equal(t, "chat-99", verification.StorageID)
	assert.Equal(t, "0xprovider", verification.Provider)
}

func TestRemoteScoreNoAttestedProvider(t *testing.T) {
	fake := &fakeInference{
		services: []broker.Service{{ProviderAddress: "0xp", Model: "m", Verifiability: "none"}},
	}
	r := NewRemote(fake, "", zap.NewNop())

	_, _, err := r.Score(context.Background(), Contract{Code: "x"})
	require.Error(t, err)
	assert.Equal(t, 0, fake.chatCalls)

	var apiErr *models.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, models.CodeUpstream, apiErr.Code)
}

func TestRemoteScoreUnparsableReplyNoFallback(t *testing.T) {
	fake := &fakeInference{
		services: []broker.Service{attestedService("gpt-4")},
		reply:    "sorry, no JSON here",
	}
	r := NewRemote(fake, "", zap.NewNop())

	_, _, err := r.Score(context.Background(), Contract{Code: "contract T { owner mint }"})
	require.Error(t, err)

	var apiErr *models.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, models.CodeUpstream, apiErr.Code)
}
