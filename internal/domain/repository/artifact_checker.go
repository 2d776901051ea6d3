package repository

import "archie/internal/domain/entity"

// ArtifactChecker inspects generated code for structural problems without failing the request.
type ArtifactChecker interface {
	Check(kind entity.DiagramType, notation entity.Notation, code string) []entity.ArtifactIssue
}
