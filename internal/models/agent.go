package models

import "time"

// AgentStateName identifies a stage of the orchestrator cycle
type AgentStateName string

const (
	StateIdle       AgentStateName = "IDLE"
	StateMonitoring AgentStateName = "MONITORING"
	StateAnalyzing  AgentStateName = "ANALYZING"
	StateDeciding   AgentStateName = "DECIDING"
	StateRiskCheck  AgentStateName = "RISK_CHECK"
	StateExecuting  AgentStateName = "EXECUTING"
	StateExplaining AgentStateName = "EXPLAINING"
)

// AgentState is the externally observable state of one tenant's agent.
// The working trio (news/analysis/decision) is persisted on every
// transition so a store-backed deployment can resume mid-pipeline.
type AgentState struct {
	Tenant          string         `json:"tenant"`
	State           AgentStateName `json:"state"`
	Running         bool           `json:"running"`
	WalletID        string         `json:"wallet_id,omitempty"`
	CurrentNews     *NewsArticle   `json:"current_news,omitempty"`
	CurrentAnalysis *Analysis      `json:"current_analysis,omitempty"`
	CurrentDecision *Decision      `json:"current_decision,omitempty"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// Event types emitted by the agent loop
const (
	EventTypeLog           = "log"
	EventTypeStateChange   = "stateChange"
	EventTypeTradeComplete = "tradeComplete"
	EventTypeError         = "error"
	EventTypeSnapshot      = "snapshot" // sent once per observer connection, never broadcast
)

// AgentEvent is one entry of a tenant's event stream
type AgentEvent struct {
	Type      string      `json:"type"`
	Tenant    string      `json:"tenant"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// StateChangeData is the payload of a stateChange event
type StateChangeData struct {
	From AgentStateName `json:"from"`
	To   AgentStateName `json:"to"`
}

// TradeCompleteData is the payload of a tradeComplete event
type TradeCompleteData struct {
	Article   *NewsArticle `json:"article"`
	Analysis  *Analysis    `json:"analysis"`
	Decision  *Decision    `json:"decision"`
	Trade     *Trade       `json:"trade"`
	Narrative string       `json:"narrative"`
}

// SnapshotData is the payload of the snapshot message sent to a new
// observer before any streamed events. RecentEvents lets a late
// observer catch up on activity it missed.
type SnapshotData struct {
	State        AgentStateName `json:"state"`
	Running      bool           `json:"running"`
	WalletID     string         `json:"wallet_id,omitempty"`
	Portfolio    *Portfolio     `json:"portfolio,omitempty"`
	RecentEvents []*AgentEvent  `json:"recent_events,omitempty"`
}

// LogEntry is one line of a tenant's bounded log history
type LogEntry struct {
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// RiskCheck reports each risk gate individually plus the overall result
type RiskCheck struct {
	SufficientBalance bool `json:"sufficient_balance"`
	PositionLimit     bool `json:"position_limit"`
	DailyTradeLimit   bool `json:"daily_trade_limit"`
	Passed            bool `json:"passed"`
}
