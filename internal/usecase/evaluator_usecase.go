package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/leobui/alertflow/internal/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type RuleMatch struct {
	Rule       domain.Rule
	ProfileID  string
	Observed   decimal.Decimal
	ObservedAt time.Time
}

// Enqueuer is the fire-and-forget write side of the job queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, tenant domain.TenantID, kind string, payload []byte) uuid.UUID
}

// RefirePolicy decides whether a rule whose condition stayed satisfied
// across consecutive updates may fire again. The evaluator itself only
// fires on the unsatisfied-to-satisfied edge; everything beyond that is
// this hook's call.
type RefirePolicy interface {
	ShouldRefire(rule domain.Rule, lastFired, now time.Time) bool
}

// CooldownRefirePolicy re-fires recurring rules once a cooldown window
// has elapsed. ONCE rules never re-fire while satisfied.
type CooldownRefirePolicy struct {
	Cooldown time.Duration
}

func (p CooldownRefirePolicy) ShouldRefire(rule domain.Rule, lastFired, now time.Time) bool {
	if rule.Frequency != domain.FrequencyRecurring {
		return false
	}
	return now.Sub(lastFired) >= p.Cooldown
}

type fireState struct {
	satisfied bool
	lastFired time.Time
}

type symbolRunner struct {
	cancel context.CancelFunc
	done   chan struct{}
	kick   chan struct{}
}

// Evaluator consumes state-change events and emits candidate
// notifications for matching active rules. Updates to the same symbol
// are serialized through a per-symbol runner whose kick channel
// coalesces rapid bursts; evaluation always reads the latest state.
type Evaluator struct {
	tenants  domain.TenantRepository
	rules    domain.RuleRepository
	profiles domain.ProfileRepository
	states   domain.MarketStateStore
	queue    Enqueuer
	policy   RefirePolicy
	logger   *zap.Logger
	now      func() time.Time

	mu      sync.Mutex
	fired   map[domain.RuleID]*fireState
	runners map[string]*symbolRunner
}

func NewEvaluator(tenants domain.TenantRepository, rules domain.RuleRepository, profiles domain.ProfileRepository, states domain.MarketStateStore, queue Enqueuer, policy RefirePolicy, logger *zap.Logger) *Evaluator {
	return &Evaluator{
		tenants:  tenants,
		rules:    rules,
		profiles: profiles,
		states:   states,
		queue:    queue,
		policy:   policy,
		logger:   logger,
		now:      time.Now,
		fired:    make(map[domain.RuleID]*fireState),
		runners:  make(map[string]*symbolRunner),
	}
}

// OnStateChange applies one update synchronously and returns the rule
// matches it produced. Candidate notifications for the matches are
// enqueued as dispatch jobs.
func (e *Evaluator) OnStateChange(ctx context.Context, change domain.StateChange) ([]RuleMatch, error) {
	if err := e.states.Set(ctx, domain.MarketState{
		Symbol:      change.Symbol,
		Price:       change.Value,
		LastUpdated: change.ObservedAt,
	}); err != nil {
		return nil, err
	}
	return e.evaluateSymbol(ctx, change.Symbol)
}

// Ingest applies one update asynchronously: the snapshot write is
// immediate (last-write-wins) and evaluation is scheduled on the
// symbol's runner. Bursts against the same symbol coalesce into a
// single evaluation of the latest state.
func (e *Evaluator) Ingest(ctx context.Context, change domain.StateChange) error {
	if err := e.states.Set(ctx, domain.MarketState{
		Symbol:      change.Symbol,
		Price:       change.Value,
		LastUpdated: change.ObservedAt,
	}); err != nil {
		return err
	}

	runner := e.runnerFor(ctx, change.Symbol)
	select {
	case runner.kick <- struct{}{}:
	default:
	}
	return nil
}

func (e *Evaluator) StopAll() {
	e.mu.Lock()
	symbols := make([]string, 0, len(e.runners))
	for symbol := range e.runners {
		symbols = append(symbols, symbol)
	}
	e.mu.Unlock()

	for _, symbol := range symbols {
		e.stopRunner(symbol)
	}
}

func (e *Evaluator) runnerFor(ctx context.Context, symbol string) *symbolRunner {
	e.mu.Lock()
	defer e.mu.Unlock()

	if runner, ok := e.runners[symbol]; ok {
		return runner
	}

	childCtx, cancel := context.WithCancel(ctx)
	runner := &symbolRunner{
		cancel: cancel,
		done:   make(chan struct{}),
		kick:   make(chan struct{}, 1),
	}
	e.runners[symbol] = runner

	go func() {
		defer close(runner.done)
		for {
			select {
			case <-childCtx.Done():
				return
			case <-runner.kick:
				if _, err := e.evaluateSymbol(childCtx, symbol); err != nil {
					e.logger.Warn("evaluation failed", zap.String("symbol", symbol), zap.Error(err))
				}
			}
		}
	}()
	return runner
}

func (e *Evaluator) stopRunner(symbol string) {
	e.mu.Lock()
	runner, ok := e.runners[symbol]
	if ok {
		delete(e.runners, symbol)
	}
	e.mu.Unlock()

	if !ok {
		return
	}
	runner.cancel()
	select {
	case <-runner.done:
	case <-time.After(5 * time.Second):
		e.logger.Warn("timeout stopping symbol runner", zap.String("symbol", symbol))
	}
}

func (e *Evaluator) evaluateSymbol(ctx context.Context, symbol string) ([]RuleMatch, error) {
	state, err := e.states.Get(ctx, symbol)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	tenants, err := e.tenants.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	now := e.now()
	var matches []RuleMatch
	for _, tenant := range tenants {
		rules, err := e.rules.ListActiveBySymbol(ctx, tenant.ID, symbol)
		if err != nil {
			e.logger.Warn("failed to load rules",
				zap.String("tenant_id", tenant.ID.String()),
				zap.String("symbol", symbol),
				zap.Error(err))
			continue
		}

		for _, rule := range rules {
			if !e.shouldFire(rule, state.Price, now) {
				continue
			}
			match := RuleMatch{
				Rule:       rule,
				ProfileID:  rule.ProfileID,
				Observed:   state.Price,
				ObservedAt: state.LastUpdated,
			}
			matches = append(matches, match)
			e.emitCandidates(ctx, match)
		}
	}
	return matches, nil
}

// shouldFire applies edge-trigger semantics: a condition that was
// already satisfied on the previous observation does not fire again
// unless the refire policy allows it.
func (e *Evaluator) shouldFire(rule domain.Rule, observed decimal.Decimal, now time.Time) bool {
	satisfied := rule.Condition.Satisfied(observed)

	e.mu.Lock()
	defer e.mu.Unlock()

	state, ok := e.fired[rule.ID]
	if !ok {
		state = &fireState{}
		e.fired[rule.ID] = state
	}
	wasSatisfied := state.satisfied
	state.satisfied = satisfied

	if !satisfied {
		return false
	}
	if !wasSatisfied || e.policy.ShouldRefire(rule, state.lastFired, now) {
		state.lastFired = now
		return true
	}
	return false
}

func (e *Evaluator) emitCandidates(ctx context.Context, match RuleMatch) {
	rule := match.Rule
	profile, err := e.profiles.Get(ctx, rule.TenantID, match.ProfileID)
	if err != nil {
		e.logger.Warn("failed to load profile for match",
			zap.String("rule_id", rule.ID),
			zap.String("profile_id", match.ProfileID),
			zap.Error(err))
		return
	}

	content := fmt.Sprintf("%s %s %s: observed %s",
		rule.Symbol, rule.Condition.Operator, rule.Condition.Value, match.Observed)

	for _, ch := range profile.Channels {
		payload := domain.DispatchPayload{
			TenantID: rule.TenantID,
			Occurrence: domain.OccurrenceKey{
				SourceID:  rule.ID,
				ProfileID: profile.ProfileID,
				Channel:   ch,
			},
			ProfileID:       profile.ProfileID,
			Channel:         ch,
			Destination:     destinationFor(ch, profile),
			RenderedContent: content,
		}
		body, err := json.Marshal(payload)
		if err != nil {
			e.logger.Error("failed to encode dispatch payload", zap.Error(err))
			continue
		}
		jobID := e.queue.Enqueue(ctx, rule.TenantID, JobKindDispatch, body)
		e.logger.Info("candidate notification enqueued",
			zap.String("rule_id", rule.ID),
			zap.String("profile_id", profile.ProfileID),
			zap.String("channel", string(ch)),
			zap.String("job_id", jobID.String()))
	}
}

func destinationFor(ch domain.Channel, profile *domain.Profile) string {
	if ch == domain.ChannelEmail {
		return profile.Email
	}
	return profile.ProfileID
}
