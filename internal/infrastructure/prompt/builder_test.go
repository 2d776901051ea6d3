package prompt

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"archie/internal/domain/entity"
)

var sampleClasses = []entity.ClassModel{
	{
		ClassName: "Student",
		Attributes: []entity.Attribute{
			{Name: "id", Type: "UUID", Nature: "Identifying", Required: true},
		},
		Relationships: []entity.Relationship{
			{Source: "Student", Target: "Course", Nature: "Association", SourceType: "Many", TargetType: "Many", Label: "enrolls"},
		},
	},
}

func TestBuildDiagramPrompt_Order(t *testing.T) {
	msgs := BuildDiagramPrompt(entity.DiagramClass, "RULE-TEXT", "students enroll in courses", sampleClasses, entity.NotationPlantUML)
	require.Len(t, msgs, 2)
	assert.Equal(t, entity.RoleSystem, msgs[0].Role)
	assert.Equal(t, entity.RoleUser, msgs[1].Role)

	task := msgs[1].Content
	rules := strings.Index(task, "RULE-TEXT")
	classes := strings.Index(task, `"className": "Student"`)
	reqs := strings.Index(task, "students enroll in courses")
	require.True(t, rules >= 0 && classes >= 0 && reqs >= 0)
	assert.Less(t, rules, classes)
	assert.Less(t, classes, reqs)
}

func TestBuildDiagramPrompt_PlantUMLMarkers(t *testing.T) {
	msgs := BuildDiagramPrompt(entity.DiagramSequence, "r", "req", nil, entity.NotationPlantUML)

	assert.Contains(t, msgs[1].Content, "starts with @startuml and ends with @enduml")
	assert.Contains(t, msgs[0].Content, "PLANTUML")
	assert.Contains(t, msgs[1].Content, "[]")
}

func TestBuildDiagramPrompt_MermaidForbidsPlantUMLMarkers(t *testing.T) {
	msgs := BuildDiagramPrompt(entity.DiagramERD, "r", "req", nil, entity.NotationMermaid)

	task := msgs[1].Content
	assert.Contains(t, task, "Mermaid header")
	assert.Contains(t, task, "NEVER use @startuml or @enduml tags")
	assert.NotContains(t, task, "starts with @startuml")
}

func TestBuildArtifactPrompt_SourceContext(t *testing.T) {
	withCtx := BuildArtifactPrompt("DB-RULES", "@startuml\nentity A\n@enduml", "req", sampleClasses)
	assert.Contains(t, withCtx[1].Content, "Based on this Architecture Design")
	assert.Contains(t, withCtx[1].Content, "entity A")

	without := BuildArtifactPrompt("API-RULES", "", "req", sampleClasses)
	assert.NotContains(t, without[1].Content, "Architecture Design")
	assert.Contains(t, without[1].Content, "STRICT STRUCTURED DATA MODEL")
	assert.True(t, strings.HasPrefix(without[1].Content, "API-RULES"))
}

func TestBuildRefinementPrompt(t *testing.T) {
	diagram := BuildRefinementPrompt("REFINEMENT MODE: r", "@startuml\nA->B\n@enduml", "add C", entity.NotationPlantUML)
	assert.Contains(t, diagram[0].Content, "PLANTUML")
	assert.Contains(t, diagram[1].Content, "add C")
	assert.Contains(t, diagram[1].Content, "A->B")
	assert.Contains(t, diagram[1].Content, "ends with @enduml")

	artifact := BuildRefinementPrompt("DB-RULES", "CREATE TABLE a();", "add column", "")
	assert.Equal(t, artifactPersona, artifact[0].Content)
	assert.Contains(t, artifact[1].Content, "Code Generator")
}

func TestBuildExtractionPrompt_QuotesProjectName(t *testing.T) {
	msgs := BuildExtractionPrompt("a library system", `Lib "One"`)
	assert.Contains(t, msgs[1].Content, `"projectName": "Lib \"One\""`)
	assert.Contains(t, msgs[1].Content, "a library system")
}

func TestSerializeClasses_RoundTripsShape(t *testing.T) {
	var decoded []map[string]any
	require.NoError(t, json.Unmarshal([]byte(SerializeClasses(sampleClasses)), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "Student", decoded[0]["className"])
	rel := decoded[0]["relationships"].([]any)[0].(map[string]any)
	assert.Equal(t, "Many", rel["sourcetype"])
}
