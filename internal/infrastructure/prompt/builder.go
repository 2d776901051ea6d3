// Package prompt assembles the two-message instruction payload (persona, then task) sent to the
// completion service.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"archie/internal/domain/entity"
)

const (
	PlantUMLStart = "@startuml"
	PlantUMLEnd   = "@enduml"
)

const mermaidHeaders = "erDiagram, sequenceDiagram, classDiagram, flowchart LR, graph TD, etc."

// SerializeClasses renders the structured class data as an indented JSON block.
func SerializeClasses(classes []entity.ClassModel) string {
	if classes == nil {
		classes = []entity.ClassModel{}
	}
	data, err := json.MarshalIndent(classes, "", "  ")
	if err != nil {
		// ClassModel holds only strings, bools and slices of them.
		return "[]"
	}
	return string(data)
}

func persona(notation entity.Notation) string {
	return fmt.Sprintf("You are a software architect expert in %s. You output ONLY valid, error-free %s code "+
		"without markdown decoration, explanatory prose or code fences.", notation, notation)
}

func notationConstraint(notation entity.Notation) string {
	if notation == entity.NotationMermaid {
		return fmt.Sprintf("Constraint: Return ONLY raw Mermaid.js code.\n"+
			"NO markdown (```), NO introductory text.\n"+
			"Ensure the code starts with the appropriate Mermaid header (%s).\n"+
			"NEVER use %s or %s tags.", mermaidHeaders, PlantUMLStart, PlantUMLEnd)
	}
	return fmt.Sprintf("Constraint: Return ONLY raw PlantUML code.\n"+
		"NO markdown (```), NO introductory text.\n"+
		"Ensure code starts with %s and ends with %s. Never leave the diagram unmarked.", PlantUMLStart, PlantUMLEnd)
}

// BuildDiagramPrompt asks for a renderable diagram. The task embeds, in order, the formatting
// rules, the serialized class data and the free-text requirements.
func BuildDiagramPrompt(kind entity.DiagramType, rules, requirements string, classes []entity.ClassModel, notation entity.Notation) []entity.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: Generate a %s diagram in %s.\n\n", kind, notation)
	fmt.Fprintf(&b, "Critical Formatting Rules:\nSTRICT SCHEMA MAPPING: Transform the provided JSON into a %s. %s\n\n",
		kind, strings.TrimSpace(rules))
	fmt.Fprintf(&b, "STRICT ARCHITECTURAL STRUCTURE TO FOLLOW:\n%s\n\n", SerializeClasses(classes))
	fmt.Fprintf(&b, "User Requirements:\n%s\n\n", strings.TrimSpace(requirements))
	b.WriteString(notationConstraint(notation))

	return []entity.Message{
		{Role: entity.RoleSystem, Content: persona(notation)},
		{Role: entity.RoleUser, Content: b.String()},
	}
}

const artifactPersona = "You are a specialized bot that converts UML designs into raw code (YAML/SQL). " +
	"You never use markdown, never use conversational filler, never use code fences and never use PlantUML tags."

const artifactInstruction = "### FINAL INSTRUCTION\n" +
	"You are a Code Generator, NOT a diagram generator.\n" +
	"- If this is API: Return ONLY valid YAML.\n" +
	"- If this is DATABASE: Return ONLY valid SQL and MongoDB commands.\n" +
	"- REJECT all PlantUML tags. If you output '" + PlantUMLStart + "', the system will fail."

// BuildArtifactPrompt asks for a derived artifact. sourceContext is the intermediate diagram and
// is omitted entirely when empty.
func BuildArtifactPrompt(rules, sourceContext, requirements string, classes []entity.ClassModel) []entity.Message {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(rules))
	b.WriteString("\n\n### DATA SOURCE\n")
	if strings.TrimSpace(sourceContext) != "" {
		fmt.Fprintf(&b, "Based on this Architecture Design:\n%s\n\n", strings.TrimSpace(sourceContext))
	}
	fmt.Fprintf(&b, "STRICT STRUCTURED DATA MODEL (SOURCE OF TRUTH):\n%s\n\n", SerializeClasses(classes))
	fmt.Fprintf(&b, "Original User Requirements:\n%s\n\n", strings.TrimSpace(requirements))
	b.WriteString(artifactInstruction)

	return []entity.Message{
		{Role: entity.RoleSystem, Content: artifactPersona},
		{Role: entity.RoleUser, Content: b.String()},
	}
}

// BuildRefinementPrompt asks for a modified version of existing code. With a notation the diagram
// constraints apply; without one the artifact persona is used.
func BuildRefinementPrompt(rules, existingCode, instruction string, notation entity.Notation) []entity.Message {
	var b strings.Builder
	b.WriteString("Task: Apply the requested change to the existing code and return the complete updated version.\n\n")
	fmt.Fprintf(&b, "Critical Formatting Rules:\n%s\n\n", strings.TrimSpace(rules))
	fmt.Fprintf(&b, "Existing Code:\n%s\n\n", strings.TrimSpace(existingCode))
	fmt.Fprintf(&b, "Requested Change:\n%s\n\n", strings.TrimSpace(instruction))
	b.WriteString("Keep every element the change does not touch.\n")

	system := artifactPersona
	if notation != "" {
		b.WriteString(notationConstraint(notation))
		system = persona(notation)
	} else {
		b.WriteString(artifactInstruction)
	}

	return []entity.Message{
		{Role: entity.RoleSystem, Content: system},
		{Role: entity.RoleUser, Content: b.String()},
	}
}

// BuildExtractionPrompt asks for the class-extraction JSON shape.
func BuildExtractionPrompt(requirements, projectName string) []entity.Message {
	name, _ := json.Marshal(projectName)
	task := fmt.Sprintf(`Task: Analyze the requirements and extract a structured Class Diagram JSON.

Rules for Enums:
- Attribute "nature": Must be one of ["Identifying", "Descriptive", "Optional"]
- Relationship "nature": Must be one of ["Association", "Aggregation", "Composition"]
- Relationship "sourcetype"/"targettype": Must be one of ["One", "Many"]

Constraint: Return ONLY a raw JSON object. No markdown, no triple backticks (`+"```"+`).

Structure:
{
  "projectName": %s,
  "classes": [
    {
      "className": "Name",
      "attributes": [
        { "name": "attrName", "type": "String", "nature": "Identifying", "required": true }
      ],
      "relationships": [
        { "source": "ClassA", "target": "ClassB", "nature": "Association", "sourcetype": "One", "targettype": "Many", "label": "has" }
      ]
    }
  ]
}

User Requirements:
%s`, name, strings.TrimSpace(requirements))

	return []entity.Message{
		{Role: entity.RoleSystem, Content: "You are a software architect that outputs ONLY valid JSON based on class structures."},
		{Role: entity.RoleUser, Content: task},
	}
}
