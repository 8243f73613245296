package chat

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/mindbridge/companion/backend/internal/analysis/crisis"
	"github.com/mindbridge/companion/backend/internal/model/chat"
	"github.com/mindbridge/companion/backend/internal/safety"
	"github.com/mindbridge/companion/backend/internal/service/ai"
	"github.com/mindbridge/companion/backend/internal/service/usercontext"
	"github.com/mindbridge/companion/backend/internal/store"
)

// MaxContentLength is the largest accepted message, in characters.
const MaxContentLength = 2000

// Classifier screens text for crisis indicators.
type Classifier interface {
	Classify(text string) crisis.Assessment
}

// ContextBuilder assembles advisory user context.
type ContextBuilder interface {
	Build(ctx context.Context, userID string) usercontext.UserContext
}

// Composer renders the system prompt.
type Composer interface {
	Compose(uc usercontext.UserContext) string
}

// Generator produces a raw reply or a *ai.BackendError.
type Generator interface {
	Generate(ctx context.Context, systemPrompt string, history []ai.Turn) (string, error)
}

// Dependencies wires the collaborators of a turn.
type Dependencies struct {
	Store      store.Store
	Classifier Classifier
	Context    ContextBuilder
	Composer   Composer
	Generator  Generator
	Safety     safety.Content
	Logger     *zap.Logger
	Now        func() time.Time
}

// Options tunes the orchestrator.
type Options struct {
	// HistoryLimit bounds how many stored messages are read for the prompt.
	HistoryLimit int
}

// Service sequences one conversational turn: pre-screen, escalate or
// generate, post-screen, persist.
type Service struct {
	store      store.Store
	classifier Classifier
	context    ContextBuilder
	composer   Composer
	generator  Generator
	safety     safety.Content
	logger     *zap.Logger
	now        func() time.Time
	opts       Options
	locks      *keyedMutex
}

// NewService builds the orchestrator. Store, Context, Composer and Generator
// are required.
func NewService(deps Dependencies, opts Options) *Service {
	if deps.Classifier == nil {
		deps.Classifier = crisis.NewClassifier(crisis.DefaultTiers()...)
	}
	if deps.Safety.Version == "" {
		deps.Safety = safety.Default()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 20
	}
	return &Service{
		store:      deps.Store,
		classifier: deps.Classifier,
		context:    deps.Context,
		composer:   deps.Composer,
		generator:  deps.Generator,
		safety:     deps.Safety,
		logger:     deps.Logger.Named("chat"),
		now:        deps.Now,
		opts:       opts,
		locks:      newKeyedMutex(),
	}
}

// SendRequest is one inbound user message.
type SendRequest struct {
	ConversationID string
	UserID         string
	Content        string
}

// TurnResult is what the caller receives for a completed turn.
type TurnResult struct {
	Message         chat.Message      `json:"message"`
	CrisisDetected  bool              `json:"crisisDetected"`
	CrisisResources []safety.Resource `json:"crisisResources,omitempty"`
}

// SendMessage runs one turn. It returns a *ValidationError,
// ErrConversationNotFound or a *StorageError; backend failures are absorbed
// into a fallback reply.
func (s *Service) SendMessage(ctx context.Context, req SendRequest) (*TurnResult, error) {
	content, err := validateContent(req.Content)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(req.ConversationID)
	defer unlock()

	conv, err := s.ownedConversation(ctx, req.ConversationID, req.UserID)
	if err != nil {
		return nil, err
	}

	assessment := s.classifier.Classify(content)

	userMsg, err := s.store.CreateMessage(ctx, chat.Message{
		ConversationID:  conv.ID,
		Role:            chat.RoleUser,
		Content:         content,
		IsCrisisFlagged: assessment.Severity == crisis.High,
		CreatedAt:       s.now(),
	})
	if err != nil {
		return nil, storageFailure("persist user message", err)
	}

	// The user message is durable; a caller hanging up must not lose the reply.
	ctx = context.WithoutCancel(ctx)

	var result *TurnResult
	if assessment.Severity == crisis.High {
		result, err = s.escalate(ctx, conv, userMsg, assessment)
	} else {
		result, err = s.respond(ctx, conv, userMsg, assessment)
	}
	if err != nil {
		return nil, err
	}

	if err := s.finishTurn(ctx, conv); err != nil {
		return nil, err
	}
	return result, nil
}

// escalate answers from the reviewed safety table without touching the
// generative backend.
func (s *Service) escalate(ctx context.Context, conv chat.Conversation, userMsg chat.Message, assessment crisis.Assessment) (*TurnResult, error) {
	if err := s.recordCrisis(ctx, conv, userMsg, crisis.TriggerKeyword, crisis.High, assessment.Pattern); err != nil {
		return nil, err
	}

	reply, err := s.persistAssistant(ctx, conv.ID, s.safety.EscalationResponse, true)
	if err != nil {
		return nil, err
	}
	return s.result(reply, true), nil
}

func (s *Service) respond(ctx context.Context, conv chat.Conversation, userMsg chat.Message, assessment crisis.Assessment) (*TurnResult, error) {
	medium := assessment.Severity == crisis.Medium

	uc := s.context.Build(ctx, conv.UserID)
	if uc.CurrentMood != nil {
		// Mood tracking is advisory; errors are only logged.
		if err := s.store.RecordConversationMood(ctx, conv.ID, *uc.CurrentMood); err != nil {
			s.logger.Warn("record conversation mood failed", zap.String("conversationId", conv.ID), zap.Error(err))
		}
	}
	systemPrompt := s.composer.Compose(uc)

	recent, err := s.store.RecentMessages(ctx, conv.ID, s.opts.HistoryLimit)
	if err != nil {
		return nil, storageFailure("load history", err)
	}
	history := make([]ai.Turn, 0, len(recent))
	for _, m := range recent {
		if m.Role == chat.RoleSystem {
			continue
		}
		history = append(history, ai.Turn{Role: m.Role, Text: m.Content})
	}

	raw, genErr := s.generator.Generate(ctx, systemPrompt, history)
	if genErr != nil {
		fields := []zap.Field{zap.String("conversationId", conv.ID), zap.Error(genErr)}
		var be *ai.BackendError
		if errors.As(genErr, &be) {
			fields = append(fields, zap.String("kind", string(be.Kind)), zap.String("provider", be.Provider))
		}
		s.logger.Warn("generative backend failed, sending fallback", fields...)

		if medium {
			if err := s.recordCrisis(ctx, conv, userMsg, crisis.TriggerKeyword, crisis.Medium, assessment.Pattern); err != nil {
				return nil, err
			}
		}
		reply, err := s.persistAssistant(ctx, conv.ID, s.safety.FallbackResponse, false)
		if err != nil {
			return nil, err
		}
		return s.result(reply, false), nil
	}

	interp := crisis.Interpret(raw)
	if interp.ModelFlaggedCrisis {
		if err := s.recordCrisis(ctx, conv, userMsg, crisis.TriggerModel, crisis.Medium, ""); err != nil {
			return nil, err
		}
	} else if medium {
		if err := s.recordCrisis(ctx, conv, userMsg, crisis.TriggerKeyword, crisis.Medium, assessment.Pattern); err != nil {
			return nil, err
		}
	}

	text := interp.CleanedText
	if text == "" {
		text = s.safety.EmptyReplyResponse
	}

	flagged := interp.ModelFlaggedCrisis || medium
	reply, err := s.persistAssistant(ctx, conv.ID, text, flagged)
	if err != nil {
		return nil, err
	}
	return s.result(reply, flagged), nil
}

// finishTurn bumps the conversation timestamp and, while no title exists,
// titles the conversation from its earliest user message. That message must be
// among the first two stored, so a turn that failed after persisting the user
// message still gets its title on the next turn.
func (s *Service) finishTurn(ctx context.Context, conv chat.Conversation) error {
	if err := s.store.TouchConversation(ctx, conv.ID, s.now()); err != nil {
		return storageFailure("touch conversation", err)
	}

	if conv.HasTitle() {
		return nil
	}
	head, err := s.store.ListMessages(ctx, conv.ID, 2, 0)
	if err != nil {
		return storageFailure("load opening messages", err)
	}
	for _, m := range head {
		if m.Role != chat.RoleUser {
			continue
		}
		if _, err := s.store.SetTitleIfEmpty(ctx, conv.ID, DeriveTitle(m.Content)); err != nil {
			return storageFailure("set conversation title", err)
		}
		break
	}
	return nil
}

func (s *Service) recordCrisis(ctx context.Context, conv chat.Conversation, userMsg chat.Message, trigger crisis.Trigger, severity crisis.Severity, pattern string) error {
	messageID := userMsg.ID
	event, err := s.store.RecordCrisisEvent(ctx, chat.CrisisEvent{
		UserID:         conv.UserID,
		ConversationID: conv.ID,
		MessageID:      &messageID,
		Trigger:        string(trigger),
		Severity:       string(severity),
		Pattern:        pattern,
		CreatedAt:      s.now(),
	})
	if err != nil {
		return storageFailure("record crisis event", err)
	}
	s.logger.Warn("crisis detected",
		zap.String("eventId", event.ID),
		zap.String("userId", conv.UserID),
		zap.String("conversationId", conv.ID),
		zap.String("trigger", event.Trigger),
		zap.String("severity", event.Severity),
		zap.String("pattern", pattern))
	return nil
}

func (s *Service) persistAssistant(ctx context.Context, conversationID, content string, flagged bool) (chat.Message, error) {
	msg, err := s.store.CreateMessage(ctx, chat.Message{
		ConversationID:  conversationID,
		Role:            chat.RoleAssistant,
		Content:         content,
		IsCrisisFlagged: flagged,
		CreatedAt:       s.now(),
	})
	if err != nil {
		return chat.Message{}, storageFailure("persist assistant message", err)
	}
	return msg, nil
}

func (s *Service) result(msg chat.Message, crisisDetected bool) *TurnResult {
	res := &TurnResult{Message: msg, CrisisDetected: crisisDetected}
	if crisisDetected {
		res.CrisisResources = s.safety.ResourcesCopy()
	}
	return res
}

func validateContent(raw string) (string, error) {
	content := strings.TrimSpace(raw)
	if content == "" {
		return "", &ValidationError{Field: "content", Message: "message cannot be empty"}
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return "", &ValidationError{Field: "content", Message: "message must be 2000 characters or fewer"}
	}
	return content, nil
}
