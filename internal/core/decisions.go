package core

// Action is the kind of follow-up an automation decision recommends.
// Decisions are recommendations only; execution belongs to an external
// layer (PR creation, workflow regeneration, notification dispatch).
type Action string

const (
	ActionApprove            Action = "approve"
	ActionRequestReview      Action = "request-review"
	ActionRegenerateWorkflow Action = "regenerate-workflow"
	ActionNotify             Action = "notify"
	ActionNoAction           Action = "no-action"
)

// AutomationDecision is one recommended action produced by evaluating a
// change set against policy. Immutable once produced.
type AutomationDecision struct {
	Action         Action            `json:"action"`
	Reason         string            `json:"reason"`
	TargetWorkflow string            `json:"targetWorkflow,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}
