// Package agent implements the per-tenant decision loop: a state machine
// that turns monitored news into gated, settled, explained trades.
package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bobmcallan/argus/internal/common"
	"github.com/bobmcallan/argus/internal/interfaces"
	"github.com/bobmcallan/argus/internal/models"
	"github.com/bobmcallan/argus/internal/services/risk"
)

// Settings holds the loop tunables for one agent.
type Settings struct {
	Backoff        time.Duration // delay after a no-progress or failed pass
	CallTimeout    time.Duration // bound on each external call
	EventBuffer    int           // in-memory event ring size
	FallbackPrice  float64       // reference price when no live quote exists
	MinContentSize int           // below this, attempt full-text extraction
	MinImpactScore float64       // analysis gate
	MinConfidence  float64       // analysis gate
	RiskLimits     risk.Limits
}

// normalize fills zero-valued settings with defaults.
func (s Settings) normalize() Settings {
	if s.Backoff <= 0 {
		s.Backoff = 30 * time.Second
	}
	if s.CallTimeout <= 0 {
		s.CallTimeout = 60 * time.Second
	}
	if s.EventBuffer <= 0 {
		s.EventBuffer = 100
	}
	if s.FallbackPrice <= 0 {
		s.FallbackPrice = 100.0
	}
	if s.MinContentSize <= 0 {
		s.MinContentSize = 200
	}
	if s.MinImpactScore <= 0 {
		s.MinImpactScore = 7
	}
	if s.MinConfidence <= 0 {
		s.MinConfidence = 0.75
	}
	return s
}

// Dependencies are the external collaborators of an agent.
type Dependencies struct {
	Store     interfaces.PortfolioStore
	News      interfaces.NewsClient
	Reasoning interfaces.ReasoningClient
	Quotes    interfaces.QuoteClient // optional; fallback price is used when nil
	Ledger    interfaces.LedgerClient
}

// Agent runs the decision loop for a single tenant. One goroutine owns
// the loop; all state reads from other goroutines go through the mutex.
type Agent struct {
	tenant   string
	deps     Dependencies
	settings Settings
	gate     *risk.Gate
	logger   *common.Logger

	hub    *hub
	events *eventRing

	mu       sync.Mutex
	state    models.AgentStateName
	running  bool
	walletID string
	news     *models.NewsArticle
	analysis *models.Analysis
	decision *models.Decision

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a stopped agent for a tenant.
func New(tenant string, deps Dependencies, settings Settings, logger *common.Logger) *Agent {
	settings = settings.normalize()
	return &Agent{
		tenant:   tenant,
		deps:     deps,
		settings: settings,
		gate:     risk.NewGate(settings.RiskLimits),
		logger:   logger,
		hub:      newHub(tenant, logger),
		events:   newEventRing(settings.EventBuffer),
		state:    models.StateIdle,
	}
}

// Start launches the loop goroutine. Returns an error if already running.
func (a *Agent) Start(ctx context.Context, walletID string) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("agent already running for tenant '%s'", a.tenant)
	}
	a.running = true
	a.walletID = walletID

	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.done = make(chan struct{})
	a.mu.Unlock()

	a.transition(runCtx, models.StateMonitoring)
	a.logEvent(runCtx, "info", "Agent started")

	go a.run(runCtx)
	return nil
}

// Stop requests a cooperative halt and waits for the loop to exit.
func (a *Agent) Stop(ctx context.Context) error {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return fmt.Errorf("agent not running for tenant '%s'", a.tenant)
	}
	cancel := a.cancel
	done := a.done
	a.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// run is the loop goroutine. Each pass attempts one full pipeline cycle;
// failures and idle passes back off before the next attempt.
func (a *Agent) run(ctx context.Context) {
	defer close(a.done)
	defer a.shutdown()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		progressed := a.safeCycle(ctx)
		if ctx.Err() != nil {
			return
		}
		if !progressed {
			select {
			case <-ctx.Done():
				return
			case <-time.After(a.settings.Backoff):
			}
		}
	}
}

// safeCycle runs one pipeline pass with panic recovery. A panic is
// reported like any other cycle failure and the loop continues.
func (a *Agent) safeCycle(ctx context.Context) (progressed bool) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error().
				Str("tenant", a.tenant).
				Interface("panic", r).
				Msg("Recovered from panic in agent cycle")
			a.errorEvent(ctx, fmt.Sprintf("internal error: %v", r))
			a.clearWorking(ctx)
			progressed = false
		}
	}()
	return a.cycle(ctx)
}

// shutdown records the stopped state after the loop exits. Uses a fresh
// context: the run context is already cancelled.
func (a *Agent) shutdown() {
	a.mu.Lock()
	a.running = false
	a.state = models.StateIdle
	a.news = nil
	a.analysis = nil
	a.decision = nil
	a.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	a.saveState(ctx)
	a.logEvent(ctx, "info", "Agent stopped")
	a.logger.Info().Str("tenant", a.tenant).Msg("Agent loop exited")
}

// transition moves the state machine and emits the stateChange event
// before any work of the new state begins.
func (a *Agent) transition(ctx context.Context, to models.AgentStateName) {
	a.mu.Lock()
	from := a.state
	a.state = to
	a.mu.Unlock()

	if from == to {
		return
	}

	a.logger.Debug().
		Str("tenant", a.tenant).
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("Agent state transition")

	a.saveState(ctx)
	a.emit(ctx, models.EventTypeStateChange, models.StateChangeData{From: from, To: to})
}

// clearWorking drops the in-flight article, analysis, and decision and
// returns the machine to MONITORING.
func (a *Agent) clearWorking(ctx context.Context) {
	a.mu.Lock()
	a.news = nil
	a.analysis = nil
	a.decision = nil
	a.mu.Unlock()

	a.transition(ctx, models.StateMonitoring)
}

// snapshot builds the snapshot payload for a new observer.
func (a *Agent) snapshot(ctx context.Context) models.SnapshotData {
	a.mu.Lock()
	data := models.SnapshotData{
		State:        a.state,
		Running:      a.running,
		WalletID:     a.walletID,
		RecentEvents: a.events.Snapshot(),
	}
	a.mu.Unlock()

	portfolio, err := a.deps.Store.GetPortfolio(ctx, a.tenant)
	if err != nil {
		a.logger.Warn().Err(err).Str("tenant", a.tenant).Msg("Failed to load portfolio for snapshot")
	} else {
		data.Portfolio = portfolio
	}
	return data
}

// Subscribe registers an event observer. The snapshot message is queued
// before any subsequent broadcast can reach the channel.
func (a *Agent) Subscribe(ctx context.Context) (<-chan *models.AgentEvent, func()) {
	return a.hub.Subscribe(a.snapshot(ctx))
}

// Status reports the agent's current state and working set.
func (a *Agent) Status() *interfaces.AgentStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return &interfaces.AgentStatus{
		Tenant:          a.tenant,
		State:           a.state,
		Running:         a.running,
		WalletID:        a.walletID,
		CurrentNews:     a.news,
		CurrentAnalysis: a.analysis,
		CurrentDecision: a.decision,
	}
}

// Running reports whether the loop goroutine is active.
func (a *Agent) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

// CloseObservers disconnects all observers, for process shutdown.
func (a *Agent) CloseObservers() {
	a.hub.CloseAll()
}

// emit records an event in the ring, persists it, and broadcasts it.
func (a *Agent) emit(ctx context.Context, eventType string, data interface{}) {
	event := &models.AgentEvent{
		Type:      eventType,
		Tenant:    a.tenant,
		Data:      data,
		Timestamp: time.Now(),
	}

	a.events.Append(event)
	if err := a.deps.Store.AppendEvent(ctx, event); err != nil {
		a.logger.Warn().Err(err).Str("tenant", a.tenant).Msg("Failed to persist event")
	}
	a.hub.Broadcast(event)
}

// logEvent writes a log line to the tenant's durable log history, the
// process log, and the event stream.
func (a *Agent) logEvent(ctx context.Context, level, message string) {
	entry := models.LogEntry{Level: level, Message: message, Timestamp: time.Now()}
	if err := a.deps.Store.AppendLog(ctx, a.tenant, entry); err != nil {
		a.logger.Warn().Err(err).Str("tenant", a.tenant).Msg("Failed to persist log entry")
	}

	switch level {
	case "error":
		a.logger.Error().Str("tenant", a.tenant).Msg(message)
	case "warn":
		a.logger.Warn().Str("tenant", a.tenant).Msg(message)
	default:
		a.logger.Info().Str("tenant", a.tenant).Msg(message)
	}

	a.emit(ctx, models.EventTypeLog, entry)
}

// errorEvent emits an error event and records it in the log history.
func (a *Agent) errorEvent(ctx context.Context, message string) {
	a.logEvent(ctx, "error", message)
	a.emit(ctx, models.EventTypeError, map[string]string{"message": message})
}

// saveState persists the resumable agent state.
func (a *Agent) saveState(ctx context.Context) {
	a.mu.Lock()
	state := &models.AgentState{
		Tenant:          a.tenant,
		State:           a.state,
		Running:         a.running,
		WalletID:        a.walletID,
		CurrentNews:     a.news,
		CurrentAnalysis: a.analysis,
		CurrentDecision: a.decision,
	}
	a.mu.Unlock()

	if err := a.deps.Store.SaveAgentState(ctx, state); err != nil {
		a.logger.Warn().Err(err).Str("tenant", a.tenant).Msg("Failed to persist agent state")
	}
}

// callCtx bounds an external call with the configured timeout.
func (a *Agent) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, a.settings.CallTimeout)
}
