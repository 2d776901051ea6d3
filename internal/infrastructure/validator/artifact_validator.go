package validator

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"archie/internal/domain/entity"
	"archie/internal/domain/repository"
)

var mermaidHeaders = []string{
	"classDiagram", "sequenceDiagram", "erDiagram", "flowchart", "graph",
	"stateDiagram", "journey", "gantt", "pie", "mindmap", "C4Context",
}

// ArtifactAnalyzer performs cheap structural checks on generated code. It never rejects output;
// issues are reported for logging and metrics only.
type ArtifactAnalyzer struct{}

var _ repository.ArtifactChecker = (*ArtifactAnalyzer)(nil)

func NewArtifactAnalyzer() *ArtifactAnalyzer {
	return &ArtifactAnalyzer{}
}

func (a *ArtifactAnalyzer) Check(kind entity.DiagramType, notation entity.Notation, code string) []entity.ArtifactIssue {
	switch kind {
	case entity.DiagramDatabase:
		return a.checkDatabase(code)
	case entity.DiagramAPI:
		return a.checkOpenAPI(code)
	}
	if notation == entity.NotationMermaid {
		return a.checkMermaid(code)
	}
	return a.checkPlantUML(code)
}

func (a *ArtifactAnalyzer) checkPlantUML(code string) []entity.ArtifactIssue {
	var issues []entity.ArtifactIssue
	trimmed := strings.TrimSpace(code)
	if !strings.HasPrefix(trimmed, "@startuml") {
		issues = append(issues, entity.ArtifactIssue{Rule: "plantuml.start", Message: "diagram does not start with @startuml", Line: 1})
	}
	if !strings.HasSuffix(trimmed, "@enduml") {
		issues = append(issues, entity.ArtifactIssue{Rule: "plantuml.end", Message: "diagram does not end with @enduml", Line: lineCount(trimmed)})
	}
	return issues
}

func (a *ArtifactAnalyzer) checkMermaid(code string) []entity.ArtifactIssue {
	var issues []entity.ArtifactIssue
	if line := findLine(code, "@startuml", "@enduml"); line > 0 {
		issues = append(issues, entity.ArtifactIssue{Rule: "mermaid.plantuml_marker", Message: "Mermaid output contains PlantUML markers", Line: line})
	}
	first := firstLine(code)
	known := false
	for _, h := range mermaidHeaders {
		if strings.HasPrefix(first, h) {
			known = true
			break
		}
	}
	if !known {
		issues = append(issues, entity.ArtifactIssue{Rule: "mermaid.header", Message: fmt.Sprintf("unexpected Mermaid header %q", first), Line: 1})
	}
	return issues
}

func (a *ArtifactAnalyzer) checkDatabase(code string) []entity.ArtifactIssue {
	var issues []entity.ArtifactIssue
	if findLine(code, "### SQL") == 0 {
		issues = append(issues, entity.ArtifactIssue{Rule: "database.sql_section", Message: "missing ### SQL section"})
	}
	if findLine(code, "### NoSQL") == 0 {
		issues = append(issues, entity.ArtifactIssue{Rule: "database.nosql_section", Message: "missing ### NoSQL section"})
	}
	if line := findLine(code, "@startuml"); line > 0 {
		issues = append(issues, entity.ArtifactIssue{Rule: "database.plantuml_marker", Message: "schema output contains PlantUML markers", Line: line})
	}
	return issues
}

func (a *ArtifactAnalyzer) checkOpenAPI(code string) []entity.ArtifactIssue {
	var doc map[string]any
	if err := yaml.Unmarshal([]byte(code), &doc); err != nil {
		issue := entity.ArtifactIssue{Rule: "openapi.yaml", Message: fmt.Sprintf("contract is not valid YAML: %v", err)}
		var te *yaml.TypeError
		if errors.As(err, &te) {
			issue.Message = "contract is not a YAML mapping"
		}
		return []entity.ArtifactIssue{issue}
	}

	var issues []entity.ArtifactIssue
	version, ok := doc["openapi"]
	if !ok {
		issues = append(issues, entity.ArtifactIssue{Rule: "openapi.version", Message: "missing top-level openapi key", Line: 1})
	} else if s := fmt.Sprint(version); !strings.HasPrefix(s, "3") {
		issues = append(issues, entity.ArtifactIssue{Rule: "openapi.version", Message: fmt.Sprintf("unexpected openapi version %q", s), Line: 1})
	}
	if _, ok := doc["paths"]; !ok {
		issues = append(issues, entity.ArtifactIssue{Rule: "openapi.paths", Message: "missing paths section"})
	}
	return issues
}

// findLine returns the 1-based line of the first occurrence of any needle, or 0.
func findLine(code string, needles ...string) int {
	sc := bufio.NewScanner(strings.NewReader(code))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		for _, n := range needles {
			if strings.Contains(sc.Text(), n) {
				return line
			}
		}
	}
	return 0
}

func firstLine(code string) string {
	trimmed := strings.TrimSpace(code)
	if i := strings.IndexByte(trimmed, '\n'); i >= 0 {
		return strings.TrimSpace(trimmed[:i])
	}
	return trimmed
}

func lineCount(code string) int {
	if code == "" {
		return 0
	}
	return strings.Count(code, "\n") + 1
}
