package pipeline

// #region imports
import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/mairylabs/triadic-controller/internal/memory"
	"github.com/mairylabs/triadic-controller/internal/orchestrator"
	"github.com/mairylabs/triadic-controller/internal/triad"
)

// #endregion

// #region contracts

// Embedder produces vectors for retrieval.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// MemoryStore is the two-channel exchange store used by the pipeline.
type MemoryStore interface {
	CreateThread(ctx context.Context, userKey string) (string, error)
	TouchThread(ctx context.Context, threadID string) error
	Persist(ctx context.Context, ex memory.Exchange, channel string, embedding []float32, threadID string) (string, error)
	Retrieve(ctx context.Context, query string, embedding []float32, limit int) ([]memory.Exchange, error)
	Statistics(ctx context.Context) (map[string]any, error)
}

// ContextProvider supplies the adaptive target for a turn and learns from
// completed interactions.
type ContextProvider interface {
	ComputeContext(ctx context.Context, inputTriad triad.Score, memories []memory.Exchange) (orchestrator.AdaptiveContext, error)
	UpdateFromInteraction(ctx context.Context, in, out triad.Score) error
	Trajectory(ctx context.Context) (string, error)
	StateSummary(ctx context.Context) (map[string]any, error)
}

// #endregion contracts

// #region request-result

// Request is one user turn entering the pipeline.
type Request struct {
	Message      string
	VisualDigest string // optional summary of attached visual input
	ThreadID     string // empty starts a new thread
	UserKey      string
}

// Result is the pipeline's answer to one turn.
type Result struct {
	Response        string
	ThreadID        string
	CandidateID     string
	AttemptsUsed    int
	FinalizerStatus orchestrator.Status
	InputTriad      triad.Score
	OutputTriad     triad.Score
	ShellTrajectory string
	Stats           map[string]any
}

// #endregion request-result

// #region pipeline

// Pipeline wires scoring, retrieval, the candidate loop and persistence
// into one message-processing façade.
type Pipeline struct {
	scorer   orchestrator.Scorer
	embedder Embedder
	store    MemoryStore
	provider ContextProvider
	engine   *orchestrator.Engine
	config   orchestrator.Config
}

// New assembles a Pipeline from its collaborators.
func New(scorer orchestrator.Scorer, embedder Embedder, store MemoryStore, provider ContextProvider, engine *orchestrator.Engine, config orchestrator.Config) *Pipeline {
	return &Pipeline{
		scorer:   scorer,
		embedder: embedder,
		store:    store,
		provider: provider,
		engine:   engine,
		config:   config,
	}
}

// #endregion pipeline

// #region process

// ProcessMessage runs one full turn: score the incoming message, retrieve
// related memories, run the candidate loop against the adaptive target,
// and persist the interaction when a candidate was approved. Limitation
// turns are returned to the caller but never persisted.
func (p *Pipeline) ProcessMessage(ctx context.Context, req Request) (Result, error) {
	input := mergeInput(req)

	inputTriad, err := p.scorer.ScoreTriad(ctx, input, triad.RoleRequester)
	if err != nil {
		return Result{}, fmt.Errorf("score input: %w", err)
	}

	embedding, err := p.embedder.Embed(ctx, input)
	if err != nil {
		return Result{}, fmt.Errorf("embed input: %w", err)
	}

	memories, err := p.store.Retrieve(ctx, input, embedding, p.config.MaxMemories)
	if err != nil {
		return Result{}, fmt.Errorf("retrieve memories: %w", err)
	}

	actx, err := p.provider.ComputeContext(ctx, inputTriad, memories)
	if err != nil {
		return Result{}, fmt.Errorf("compute context: %w", err)
	}

	outcome, err := p.engine.Run(ctx, input, memories, actx, inputTriad)
	if err != nil {
		return Result{}, fmt.Errorf("candidate loop: %w", err)
	}

	threadID := req.ThreadID
	if outcome.Status == orchestrator.StatusApproved {
		threadID, err = p.persistTurn(ctx, req, input, embedding, inputTriad, outcome)
		if err != nil {
			return Result{}, err
		}
		if err := p.provider.UpdateFromInteraction(ctx, inputTriad, outcome.Triad); err != nil {
			log.Printf("[PIPE] shell update failed: %v", err)
		}
	}

	trajectory, err := p.provider.Trajectory(ctx)
	if err != nil {
		log.Printf("[PIPE] trajectory read failed: %v", err)
	}

	return Result{
		Response:        outcome.Text,
		ThreadID:        threadID,
		CandidateID:     outcome.CandidateID,
		AttemptsUsed:    outcome.AttemptsUsed,
		FinalizerStatus: outcome.Status,
		InputTriad:      inputTriad,
		OutputTriad:     outcome.Triad,
		ShellTrajectory: trajectory,
		Stats:           p.collectStats(ctx),
	}, nil
}

// persistTurn stores both sides of an approved exchange in the contextual
// channel and keeps the thread's activity timestamp fresh.
func (p *Pipeline) persistTurn(ctx context.Context, req Request, input string, embedding []float32, inputTriad triad.Score, outcome orchestrator.Outcome) (string, error) {
	threadID := req.ThreadID
	if threadID == "" {
		var err error
		threadID, err = p.store.CreateThread(ctx, req.UserKey)
		if err != nil {
			return "", fmt.Errorf("create thread: %w", err)
		}
	}

	userEx := memory.Exchange{
		Role:          triad.RoleRequester,
		Content:       input,
		EmotionalTone: memory.InferTone(req.Message),
		Triad:         inputTriad,
	}
	if _, err := p.store.Persist(ctx, userEx, memory.ChannelContextual, embedding, threadID); err != nil {
		return "", fmt.Errorf("persist user exchange: %w", err)
	}

	responseEmbedding, err := p.embedder.Embed(ctx, outcome.Text)
	if err != nil {
		return "", fmt.Errorf("embed response: %w", err)
	}
	respEx := memory.Exchange{
		Role:          triad.RoleResponder,
		Content:       outcome.Text,
		EmotionalTone: "balanced",
		Triad:         outcome.Triad,
	}
	if _, err := p.store.Persist(ctx, respEx, memory.ChannelContextual, responseEmbedding, threadID); err != nil {
		return "", fmt.Errorf("persist response exchange: %w", err)
	}

	if err := p.store.TouchThread(ctx, threadID); err != nil {
		return "", fmt.Errorf("touch thread: %w", err)
	}
	return threadID, nil
}

func (p *Pipeline) collectStats(ctx context.Context) map[string]any {
	stats := map[string]any{}
	if memStats, err := p.store.Statistics(ctx); err == nil {
		for k, v := range memStats {
			stats[k] = v
		}
	} else {
		log.Printf("[PIPE] memory statistics failed: %v", err)
	}
	if shellStats, err := p.provider.StateSummary(ctx); err == nil {
		for k, v := range shellStats {
			stats[k] = v
		}
	} else {
		log.Printf("[PIPE] shell summary failed: %v", err)
	}
	return stats
}

// mergeInput folds an optional visual digest into the scored message.
func mergeInput(req Request) string {
	msg := strings.TrimSpace(req.Message)
	if req.VisualDigest == "" {
		return msg
	}
	return msg + "\n[Visual context: " + req.VisualDigest + "]"
}

// #endregion process
