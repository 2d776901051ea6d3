package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"archie/internal/domain/entity"
)

func rulesOf(issues []entity.ArtifactIssue) []string {
	out := make([]string, 0, len(issues))
	for _, i := range issues {
		out = append(out, i.Rule)
	}
	return out
}

func TestCheck_PlantUML(t *testing.T) {
	a := NewArtifactAnalyzer()

	assert.Empty(t, a.Check(entity.DiagramClass, entity.NotationPlantUML, "@startuml\nclass A\n@enduml"))

	issues := a.Check(entity.DiagramClass, entity.NotationPlantUML, "class A\nclass B")
	assert.ElementsMatch(t, []string{"plantuml.start", "plantuml.end"}, rulesOf(issues))
}

func TestCheck_Mermaid(t *testing.T) {
	a := NewArtifactAnalyzer()

	assert.Empty(t, a.Check(entity.DiagramSequence, entity.NotationMermaid, "sequenceDiagram\nA->>B: hi"))

	issues := a.Check(entity.DiagramSequence, entity.NotationMermaid, "@startuml\nA->B\n@enduml")
	assert.ElementsMatch(t, []string{"mermaid.plantuml_marker", "mermaid.header"}, rulesOf(issues))
	assert.Equal(t, 1, issues[0].Line)
}

func TestCheck_Database(t *testing.T) {
	a := NewArtifactAnalyzer()

	ok := "### SQL\nCREATE TABLE students(id INT PRIMARY KEY);\n\n### NoSQL\ndb.createCollection(\"students\", {})"
	assert.Empty(t, a.Check(entity.DiagramDatabase, "", ok))

	issues := a.Check(entity.DiagramDatabase, "", "CREATE TABLE a();")
	assert.ElementsMatch(t, []string{"database.sql_section", "database.nosql_section"}, rulesOf(issues))
}

func TestCheck_OpenAPI(t *testing.T) {
	a := NewArtifactAnalyzer()

	contract := "openapi: 3.1.0\ninfo:\n  title: Generated API\n  version: 1.0.0\npaths:\n  /students:\n    get: {}\n"
	assert.Empty(t, a.Check(entity.DiagramAPI, "", contract))

	issues := a.Check(entity.DiagramAPI, "", "info:\n  title: x\n")
	assert.ElementsMatch(t, []string{"openapi.version", "openapi.paths"}, rulesOf(issues))

	issues = a.Check(entity.DiagramAPI, "", "openapi: 2.0\npaths: {}\n")
	require.Len(t, issues, 1)
	assert.Equal(t, "openapi.version", issues[0].Rule)

	issues = a.Check(entity.DiagramAPI, "", "openapi: [3.1\n  bad")
	require.Len(t, issues, 1)
	assert.Equal(t, "openapi.yaml", issues[0].Rule)
}
