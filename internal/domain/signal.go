package domain

import "time"

// Bus channels and streams for liquidity events.
const (
	ChannelLiquidityAction = "liquidity_action"
	StreamLiquidityAction  = "stream:liquidity_action"
)

// ActionEvent is published after every add or withdraw.
type ActionEvent struct {
	ID         string        `json:"id"`
	Action     ActionKind    `json:"action"`
	Pool       string        `json:"pool"`
	Mode       Mode          `json:"mode"`
	Status     OutcomeStatus `json:"status"`
	TxIDs      []string      `json:"tx_ids"`
	Error      string        `json:"error,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// BotStatus is a summary of the process's operational state.
type BotStatus struct {
	Mode          string   `json:"mode"`
	UptimeSeconds int64    `json:"uptime_seconds"`
	Chains        []string `json:"chains"`
	Settlement    string   `json:"settlement"`
}
