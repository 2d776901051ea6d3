package entity

// ArtifactIssue is a non-fatal problem found in generated code. Issues are logged and counted,
// never returned to the caller.
type ArtifactIssue struct {
	Rule    string `json:"rule"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}
