package entity

import (
	"encoding/json"
	"strconv"
	"strings"
)

type DiagramType string

const (
	DiagramClass     DiagramType = "CLASS"
	DiagramSequence  DiagramType = "SEQUENCE"
	DiagramUseCase   DiagramType = "USE_CASE"
	DiagramComponent DiagramType = "COMPONENT"
	DiagramERD       DiagramType = "ERD"
	DiagramDatabase  DiagramType = "DATABASE"
	DiagramAPI       DiagramType = "API"
)

// RenderableKinds are rendered directly as a visual diagram.
var RenderableKinds = []DiagramType{DiagramClass, DiagramSequence, DiagramUseCase, DiagramComponent, DiagramERD}

// IsDerived reports whether the type is a code artifact (SQL/NoSQL, OpenAPI) rather than a diagram.
func (t DiagramType) IsDerived() bool {
	return t == DiagramDatabase || t == DiagramAPI
}

func ParseDiagramType(s string) DiagramType {
	return DiagramType(strings.ToUpper(strings.TrimSpace(s)))
}

type Notation string

const (
	NotationPlantUML Notation = "PLANTUML"
	NotationMermaid  Notation = "MERMAID"
)

var Notations = []Notation{NotationPlantUML, NotationMermaid}

func ParseNotation(s string) Notation {
	return Notation(strings.ToUpper(strings.TrimSpace(s)))
}

// Languages reported back for derived artifacts.
const (
	LanguageDatabase = "SQL/NoSQL"
	LanguageOpenAPI  = "OPENAPI"
)

type Attribute struct {
	Name     string `json:"name" validate:"required"`
	Type     string `json:"type"`
	Nature   string `json:"nature" validate:"omitempty,oneof=Identifying Descriptive Optional"`
	Required bool   `json:"required"`
}

// UnmarshalJSON accepts "required" as a bool, a quoted bool ("true") or 0/1. Values that do not
// read as a bool leave Required false.
func (a *Attribute) UnmarshalJSON(data []byte) error {
	type plain Attribute
	aux := struct {
		*plain
		Required json.RawMessage `json:"required"`
	}{plain: (*plain)(a)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	a.Required = looseBool(aux.Required)
	return nil
}

func looseBool(raw json.RawMessage) bool {
	text := strings.TrimSpace(string(raw))
	if unquoted, err := strconv.Unquote(text); err == nil {
		text = strings.TrimSpace(unquoted)
	}
	b, err := strconv.ParseBool(strings.ToLower(text))
	return err == nil && b
}

type Relationship struct {
	Source     string `json:"source" validate:"required"`
	Target     string `json:"target" validate:"required"`
	Nature     string `json:"nature" validate:"omitempty,oneof=Association Aggregation Composition"`
	SourceType string `json:"sourcetype" validate:"omitempty,oneof=One Many"`
	TargetType string `json:"targettype" validate:"omitempty,oneof=One Many"`
	Label      string `json:"label"`
}

type ClassModel struct {
	ClassName     string         `json:"className" validate:"required"`
	Attributes    []Attribute    `json:"attributes" validate:"dive"`
	Relationships []Relationship `json:"relationships" validate:"dive"`
}

// GenerateRequest asks for a diagram or derived artifact. DiagramLanguage is optional: empty means
// PLANTUML, unknown values resolve through the rule registry fallback, and it is ignored for
// DATABASE and API.
type GenerateRequest struct {
	DiagramType      string       `json:"diagramType" validate:"required,diagramtype"`
	DiagramLanguage  string       `json:"diagramLanguage"`
	RequirementsText string       `json:"requirementsText" validate:"required"`
	Classes          []ClassModel `json:"classes" validate:"dive"`
}

type RefineRequest struct {
	DiagramType         string `json:"diagramType" validate:"required,diagramtype"`
	DiagramLanguage     string `json:"diagramLanguage"`
	ExistingDiagramCode string `json:"existingDiagramCode" validate:"required_without=ExistingCode"`
	ExistingCode        string `json:"existingCode" validate:"required_without=ExistingDiagramCode"`
	UserInstruction     string `json:"userInstruction" validate:"required"`
}

// Code returns whichever of the two accepted code fields was supplied.
func (r RefineRequest) Code() string {
	if r.ExistingDiagramCode != "" {
		return r.ExistingDiagramCode
	}
	return r.ExistingCode
}

type ExtractionRequest struct {
	RequirementsText string `json:"requirementsText" validate:"required"`
	ProjectName      string `json:"projectName"`
}

type DiagramResponse struct {
	DiagramType     DiagramType `json:"diagramType"`
	DiagramLanguage string      `json:"diagramLanguage"`
	DiagramCode     string      `json:"diagramCode"`
	IsRenderable    bool        `json:"isRenderable"`
	CorrelationID   string      `json:"correlation_id"`
}

// ProjectStructure is the class-extraction shape. Error and RawSnippet are set only on the
// degraded path when the completion could not be parsed.
type ProjectStructure struct {
	ProjectName string       `json:"projectName"`
	Classes     []ClassModel `json:"classes"`
	Error       string       `json:"error,omitempty"`
	RawSnippet  *string      `json:"raw_snippet,omitempty"`
}
