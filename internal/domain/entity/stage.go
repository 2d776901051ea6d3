package entity

// Stage is a step of the per-request pipeline.
type Stage string

const (
	StageReceived           Stage = "RECEIVED"
	StageValidated          Stage = "VALIDATED"
	StageRulesSelected      Stage = "RULES_SELECTED"
	StagePromptBuilt        Stage = "PROMPT_BUILT"
	StageCompletionPending  Stage = "COMPLETION_PENDING"
	StageCompletionReceived Stage = "COMPLETION_RECEIVED"
	StageNormalized         Stage = "NORMALIZED"
	StageEnveloped          Stage = "ENVELOPED"
	StageCompleted          Stage = "COMPLETED"
	StageFailed             Stage = "FAILED"
)
