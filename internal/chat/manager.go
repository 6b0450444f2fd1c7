// Package chat holds interactive analysis sessions in memory and relays
// them to an attested chatbot provider. Sessions are ephemeral; restart
// loses them.
package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/safeguard-ai/safeguard/internal/broker"
	"github.com/safeguard-ai/safeguard/internal/chain"
	"github.com/safeguard-ai/safeguard/internal/models"
)

const (
	// DefaultIdleTimeout evicts sessions with no activity for a day.
	DefaultIdleTimeout = 24 * time.Hour
	// DefaultMaxSessions caps concurrent sessions.
	DefaultMaxSessions = 1000
	// DefaultSweepInterval is how often the idle sweeper runs.
	DefaultSweepInterval = 10 * time.Minute

	// contextWindow is how many trailing messages go to the provider.
	contextWindow = 10
	// codePreviewLimit bounds the contract code embedded in the system
	// message.
	codePreviewLimit = 2000

	chatMaxTokens   = 1000
	chatTemperature = 0.7
)

// preferredChatModel steers provider selection toward conversational
// models when several attested chatbots are listed.
const preferredChatModel = "deepseek"

const generalSystemPrompt = "You are an expert DeFi and smart contract security analyst. " +
	"Help users understand smart contract risks, analyze contracts, and answer questions about blockchain security."

type session struct {
	id              string
	contractAddress string
	network         models.Network
	messages        []models.ChatMessage
	createdAt       time.Time
	updatedAt       time.Time
}

func (s *session) visibleCount() int {
	n := 0
	for _, m := range s.messages {
		if m.Role != models.RoleSystem {
			n++
		}
	}
	return n
}

// Manager owns the session table and the provider round trips.
type Manager struct {
	chain     chain.Reader
	inference broker.Inference
	logger    *zap.Logger

	idleTimeout time.Duration
	maxSessions int
	now         func() time.Time

	mu       sync.RWMutex
	sessions map[string]*session

	sweepDone chan struct{}
	closeOnce sync.Once
}

// Option adjusts Manager construction.
type Option func(*Manager)

// WithIdleTimeout overrides the session eviction age.
func WithIdleTimeout(d time.Duration) Option {
	return func(m *Manager) { m.idleTimeout = d }
}

// WithMaxSessions overrides the concurrent session cap.
func WithMaxSessions(n int) Option {
	return func(m *Manager) { m.maxSessions = n }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager builds a session manager and starts its idle sweeper.
func NewManager(reader chain.Reader, inference broker.Inference, sweepInterval time.Duration, logger *zap.Logger, opts ...Option) *Manager {
	m := &Manager{
		chain:       reader,
		inference:   inference,
		logger:      logger,
		idleTimeout: DefaultIdleTimeout,
		maxSessions: DefaultMaxSessions,
		now:         time.Now,
		sessions:    make(map[string]*session),
		sweepDone:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	if sweepInterval > 0 {
		go m.sweepLoop(sweepInterval)
	}
	return m
}

// CreateSession opens a session, seeding the transcript with a contract
// context when an address is given. The code fetch is best effort: a
// chain failure downgrades to the general prompt instead of failing
// session creation.
func (m *Manager) CreateSession(ctx context.Context, contractAddress string, network models.Network) (string, error) {
	systemContent := generalSystemPrompt
	if contractAddress != "" && network != "" {
		if code, err := m.chain.ContractCode(ctx, contractAddress, network); err == nil {
			preview := code
			if len(preview) > codePreviewLimit {
				preview = preview[:codePreviewLimit]
			}
			systemContent = fmt.Sprintf(
				"You are an expert smart contract security analyst. The user is asking about a smart contract deployed at %s on %s network. Here's a preview of the contract code:\n\n%s\n\nProvide helpful, accurate analysis and answer questions about this contract's security, functionality, and risks.",
				contractAddress, network, preview,
			)
		} else {
			m.logger.Warn("could not fetch contract code for chat context",
				zap.String("contractAddress", contractAddress),
				zap.Error(err))
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) >= m.maxSessions {
		return "", models.NewRateLimitError("too many active chat sessions")
	}

	s := &session{
		id:              uuid.NewString(),
		contractAddress: contractAddress,
		network:         network,
		messages:        []models.ChatMessage{{Role: models.RoleSystem, Content: systemContent}},
		createdAt:       m.now().UTC(),
		updatedAt:       m.now().UTC(),
	}
	m.sessions[s.id] = s

	m.logger.Info("created chat session",
		zap.String("sessionID", s.id),
		zap.String("contractAddress", contractAddress),
		zap.String("network", string(network)))

	return s.id, nil
}

// SendMessage appends the user's message, runs one completion over the
// trailing context window, and appends the reply. The returned count
// includes the system message, matching what the provider saw grow.
func (m *Manager) SendMessage(ctx context.Context, sessionID, text string) (string, int, error) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return "", 0, models.NewNotFoundError("chat session not found")
	}
	s.messages = append(s.messages, models.ChatMessage{Role: models.RoleUser, Content: text})
	s.updatedAt = m.now().UTC()
	window := trailing(s.messages, contextWindow)
	m.mu.Unlock()

	services, err := m.inference.ListServices(ctx)
	if err != nil {
		return "", 0, err
	}
	svc, err := broker.SelectProvider(services, preferredChatModel, broker.ServiceTypeChatbot)
	if err != nil {
		return "", 0, err
	}
	if !strings.Contains(strings.ToLower(svc.Model), preferredChatModel) {
		if alt, altErr := broker.SelectProvider(services, "gpt", broker.ServiceTypeChatbot); altErr == nil {
			svc = alt
		}
	}

	m.logger.Info("selected chat provider",
		zap.String("provider", svc.ProviderAddress),
		zap.String("model", svc.Model))

	completion, err := m.inference.Chat(ctx, *svc, window, chatMaxTokens, chatTemperature)
	if err != nil {
		return "", 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// The session may have been swept while inference ran.
	s, ok = m.sessions[sessionID]
	if !ok {
		return "", 0, models.NewNotFoundError("chat session not found")
	}
	s.messages = append(s.messages, models.ChatMessage{Role: models.RoleAssistant, Content: completion.Content})
	s.updatedAt = m.now().UTC()

	m.logger.Info("chat reply generated",
		zap.String("sessionID", sessionID),
		zap.Int("messageCount", len(s.messages)),
		zap.Int("replyLength", len(completion.Content)))

	return completion.Content, len(s.messages), nil
}

// History returns the session transcript without system messages.
func (m *Manager) History(sessionID string) ([]models.ChatMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, models.NewNotFoundError("chat session not found")
	}
	history := make([]models.ChatMessage, 0, len(s.messages))
	for _, msg := range s.messages {
		if msg.Role == models.RoleSystem {
			continue
		}
		history = append(history, msg)
	}
	return history, nil
}

// DeleteSession removes a session, reporting whether it existed.
func (m *Manager) DeleteSession(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	return ok
}

// Sessions lists active sessions for the admin surface.
func (m *Manager) Sessions() []models.SessionSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.SessionSummary, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, models.SessionSummary{
			ID:              s.id,
			ContractAddress: s.contractAddress,
			Network:         s.network,
			MessageCount:    s.visibleCount(),
			CreatedAt:       s.createdAt,
			UpdatedAt:       s.updatedAt,
		})
	}
	return out
}

// Close stops the idle sweeper.
func (m *Manager) Close() {
	m.closeOnce.Do(func() { close(m.sweepDone) })
}

func (m *Manager) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.sweep()
		case <-m.sweepDone:
			return
		}
	}
}

func (m *Manager) sweep() {
	cutoff := m.now().UTC().Add(-m.idleTimeout)

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		if s.updatedAt.Before(cutoff) {
			delete(m.sessions, id)
			m.logger.Debug("evicted idle chat session", zap.String("sessionID", id))
		}
	}
}

func trailing(messages []models.ChatMessage, n int) []models.ChatMessage {
	if len(messages) <= n {
		return append([]models.ChatMessage(nil), messages...)
	}
	return append([]models.ChatMessage(nil), messages[len(messages)-n:]...)
}
