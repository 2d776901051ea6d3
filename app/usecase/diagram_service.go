package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"archie/internal/domain/entity"
	"archie/internal/domain/repository"
	"archie/internal/infrastructure/correlation"
	"archie/internal/infrastructure/metrics"
	"archie/internal/infrastructure/normalizer"
	"archie/internal/infrastructure/prompt"
	"archie/internal/infrastructure/rules"
)

type DiagramUsecase interface {
	Generate(ctx context.Context, req entity.GenerateRequest) (entity.DiagramResponse, error)
	Extract(ctx context.Context, req entity.ExtractionRequest) (entity.ProjectStructure, error)
	Refine(ctx context.Context, req entity.RefineRequest) (entity.DiagramResponse, error)
}

// RuleSelector supplies formatting instructions per diagram kind and notation. Lookups are pure;
// the service reports fallbacks.
type RuleSelector interface {
	Resolve(kind, notation string) rules.Resolution
	ResolveRefinement(kind, notation string) rules.Resolution
	Derived(kind entity.DiagramType) (string, error)
}

type DiagramService struct {
	rules   RuleSelector
	llm     repository.CompletionGateway
	checker repository.ArtifactChecker
	logger  *slog.Logger
}

var _ DiagramUsecase = (*DiagramService)(nil)

func NewDiagramService(
	selector RuleSelector,
	llm repository.CompletionGateway,
	checker repository.ArtifactChecker,
	logger *slog.Logger,
) *DiagramService {
	return &DiagramService{
		rules:   selector,
		llm:     llm,
		checker: checker,
		logger:  logger.With("component", "diagram_service"),
	}
}

// Generate renders a diagram, or for DATABASE/API a derived code artifact.
func (s *DiagramService) Generate(ctx context.Context, req entity.GenerateRequest) (entity.DiagramResponse, error) {
	kind := entity.ParseDiagramType(req.DiagramType)
	run := s.track(ctx, "generate", kind)
	run.advance(entity.StageValidated)

	var (
		resp entity.DiagramResponse
		err  error
	)
	switch kind {
	case entity.DiagramDatabase:
		resp, err = s.generateDatabase(run, req)
	case entity.DiagramAPI:
		resp, err = s.generateAPI(run, req)
	default:
		var (
			code     string
			notation entity.Notation
		)
		code, notation, err = s.generateDiagram(run, kind, notationOrDefault(req.DiagramLanguage), req.RequirementsText, req.Classes)
		resp = entity.DiagramResponse{
			DiagramType:     kind,
			DiagramLanguage: string(notation),
			DiagramCode:     code,
			IsRenderable:    true,
		}
	}
	if err != nil {
		return entity.DiagramResponse{}, run.fail(err)
	}

	s.check(run, kind, entity.ParseNotation(resp.DiagramLanguage), resp.DiagramCode)
	resp.CorrelationID = correlation.Current(ctx)
	run.done()
	return resp, nil
}

// generateDiagram runs the renderable-diagram pipeline once and returns cleaned code with the
// notation it was actually produced in. An unknown requested notation resolves to the fallback
// table and the output follows that table's notation.
func (s *DiagramService) generateDiagram(run *pipelineRun, kind entity.DiagramType, requested entity.Notation, requirements string, classes []entity.ClassModel) (string, entity.Notation, error) {
	res := s.rules.Resolve(string(kind), string(requested))
	s.reportFallback(run, res, requested)
	run.advance(entity.StageRulesSelected)

	messages := prompt.BuildDiagramPrompt(kind, res.Text, requirements, classes, res.Notation)
	run.advance(entity.StagePromptBuilt)

	code, err := s.complete(run, messages)
	return code, res.Notation, err
}

// generateDatabase is two-stage. The intermediate ERD is always PlantUML whatever the caller
// asked for: it is only consumed by the second stage and never returned.
func (s *DiagramService) generateDatabase(run *pipelineRun, req entity.GenerateRequest) (entity.DiagramResponse, error) {
	intermediate, _, err := s.generateDiagram(run, entity.DiagramERD, entity.NotationPlantUML, req.RequirementsText, req.Classes)
	if err != nil {
		return entity.DiagramResponse{}, fmt.Errorf("intermediate ERD: %w", err)
	}
	s.logger.DebugContext(run.ctx, "intermediate diagram generated", "length", len(intermediate))

	code, err := s.generateArtifact(run, entity.DiagramDatabase, intermediate, req.RequirementsText, req.Classes)
	if err != nil {
		return entity.DiagramResponse{}, err
	}
	return entity.DiagramResponse{
		DiagramType:     entity.DiagramDatabase,
		DiagramLanguage: entity.LanguageDatabase,
		DiagramCode:     code,
		IsRenderable:    false,
	}, nil
}

func (s *DiagramService) generateAPI(run *pipelineRun, req entity.GenerateRequest) (entity.DiagramResponse, error) {
	code, err := s.generateArtifact(run, entity.DiagramAPI, "", req.RequirementsText, req.Classes)
	if err != nil {
		return entity.DiagramResponse{}, err
	}
	return entity.DiagramResponse{
		DiagramType:     entity.DiagramAPI,
		DiagramLanguage: entity.LanguageOpenAPI,
		DiagramCode:     code,
		IsRenderable:    false,
	}, nil
}

func (s *DiagramService) generateArtifact(run *pipelineRun, kind entity.DiagramType, sourceContext, requirements string, classes []entity.ClassModel) (string, error) {
	block, err := s.rules.Derived(kind)
	if err != nil {
		return "", err
	}
	run.advance(entity.StageRulesSelected)

	if kind != entity.DiagramDatabase {
		sourceContext = ""
	}
	messages := prompt.BuildArtifactPrompt(block, sourceContext, requirements, classes)
	run.advance(entity.StagePromptBuilt)

	return s.complete(run, messages)
}

// Extract turns free text into class-model JSON. Unparseable completions produce a degraded
// result rather than an error.
func (s *DiagramService) Extract(ctx context.Context, req entity.ExtractionRequest) (entity.ProjectStructure, error) {
	run := s.track(ctx, "extract", "")
	run.advance(entity.StageValidated)

	messages := prompt.BuildExtractionPrompt(req.RequirementsText, req.ProjectName)
	run.advance(entity.StagePromptBuilt)

	run.advance(entity.StageCompletionPending)
	raw, err := s.llm.Complete(ctx, messages)
	if err != nil {
		return entity.ProjectStructure{}, run.fail(err)
	}
	run.advance(entity.StageCompletionReceived)

	out := normalizer.ExtractStructured(raw, req.ProjectName)
	run.advance(entity.StageNormalized)
	if out.Degraded {
		metrics.IncExtractionDegraded()
		s.logger.ErrorContext(ctx, "JSON parsing error", "project", req.ProjectName, "err", out.ParseErr)
	} else {
		s.logger.InfoContext(ctx, "structure extracted", "project", out.Result.ProjectName, "classes", len(out.Result.Classes))
	}

	run.done()
	return out.Result, nil
}

// Refine applies a user instruction to previously generated code. diagramLanguage is ignored for
// derived artifacts.
func (s *DiagramService) Refine(ctx context.Context, req entity.RefineRequest) (entity.DiagramResponse, error) {
	kind := entity.ParseDiagramType(req.DiagramType)
	run := s.track(ctx, "refine", kind)
	run.advance(entity.StageValidated)

	var resp entity.DiagramResponse
	if kind.IsDerived() {
		block, err := s.rules.Derived(kind)
		if err != nil {
			return entity.DiagramResponse{}, run.fail(err)
		}
		run.advance(entity.StageRulesSelected)

		resp = entity.DiagramResponse{DiagramType: kind, DiagramLanguage: entity.LanguageOpenAPI}
		if kind == entity.DiagramDatabase {
			resp.DiagramLanguage = entity.LanguageDatabase
		}
		messages := prompt.BuildRefinementPrompt(block, req.Code(), req.UserInstruction, "")
		run.advance(entity.StagePromptBuilt)

		code, err := s.complete(run, messages)
		if err != nil {
			return entity.DiagramResponse{}, run.fail(err)
		}
		resp.DiagramCode = code
	} else {
		requested := notationOrDefault(req.DiagramLanguage)
		res := s.rules.ResolveRefinement(string(kind), string(requested))
		s.reportFallback(run, res, requested)
		notation := res.Notation
		run.advance(entity.StageRulesSelected)

		messages := prompt.BuildRefinementPrompt("REFINEMENT MODE: "+res.Text, req.Code(), req.UserInstruction, notation)
		run.advance(entity.StagePromptBuilt)

		code, err := s.complete(run, messages)
		if err != nil {
			return entity.DiagramResponse{}, run.fail(err)
		}
		resp = entity.DiagramResponse{
			DiagramType:     kind,
			DiagramLanguage: string(notation),
			DiagramCode:     code,
			IsRenderable:    true,
		}
	}

	s.check(run, kind, entity.ParseNotation(resp.DiagramLanguage), resp.DiagramCode)
	resp.CorrelationID = correlation.Current(ctx)
	run.done()
	return resp, nil
}

// complete is the single suspension point of a request: prompt assembly has happened before it
// and normalization happens after it.
func (s *DiagramService) complete(run *pipelineRun, messages []entity.Message) (string, error) {
	run.advance(entity.StageCompletionPending)
	raw, err := s.llm.Complete(run.ctx, messages)
	if err != nil {
		return "", err
	}
	run.advance(entity.StageCompletionReceived)

	code := normalizer.CleanCode(raw)
	run.advance(entity.StageNormalized)
	return code, nil
}

func (s *DiagramService) check(run *pipelineRun, kind entity.DiagramType, notation entity.Notation, code string) {
	if s.checker == nil {
		return
	}
	issues := s.checker.Check(kind, notation, code)
	if len(issues) == 0 {
		metrics.IncArtifactCheck(string(kind), "pass")
		return
	}
	metrics.IncArtifactCheck(string(kind), "warn")
	for _, issue := range issues {
		s.logger.WarnContext(run.ctx, "generated artifact check", "kind", kind, "rule", issue.Rule, "message", issue.Message, "line", issue.Line)
	}
}

// reportFallback makes a rule fallback visible in logs and metrics.
func (s *DiagramService) reportFallback(run *pipelineRun, res rules.Resolution, requested entity.Notation) {
	if res.NotationFallback {
		metrics.IncRuleFallback("notation")
		s.logger.WarnContext(run.ctx, "unknown notation, using fallback table",
			"notation", requested, "fallback", res.Notation)
	}
	if res.Generic {
		metrics.IncRuleFallback("kind")
		s.logger.WarnContext(run.ctx, "no rule entry for diagram kind, using generic instructions",
			"kind", run.kind, "notation", res.Notation)
	}
}

// notationOrDefault maps an absent notation to PlantUML. Unknown values pass through so the rule
// registry can resolve them.
func notationOrDefault(language string) entity.Notation {
	if n := entity.ParseNotation(language); n != "" {
		return n
	}
	return entity.NotationPlantUML
}

// pipelineRun follows one request through its stages for logging and metrics.
type pipelineRun struct {
	ctx    context.Context
	logger *slog.Logger
	op     string
	kind   entity.DiagramType
	stage  entity.Stage
	start  time.Time
}

func (s *DiagramService) track(ctx context.Context, op string, kind entity.DiagramType) *pipelineRun {
	run := &pipelineRun{
		ctx:    ctx,
		logger: s.logger,
		op:     op,
		kind:   kind,
		stage:  entity.StageReceived,
		start:  time.Now(),
	}
	run.logger.InfoContext(ctx, "process started", "op", op, "kind", kind)
	return run
}

func (r *pipelineRun) advance(stage entity.Stage) {
	r.logger.DebugContext(r.ctx, "stage transition", "op", r.op, "from", r.stage, "to", stage)
	r.stage = stage
}

func (r *pipelineRun) fail(err error) error {
	r.logger.ErrorContext(r.ctx, "pipeline failed", "op", r.op, "kind", r.kind, "stage", r.stage,
		"failure", entity.Classify(err), "err", err)
	r.stage = entity.StageFailed
	if r.op != "extract" {
		metrics.IncGeneration(string(r.kind), "failure")
	}
	return err
}

func (r *pipelineRun) done() {
	if r.op != "extract" {
		metrics.IncGeneration(string(r.kind), "success")
	}
	r.logger.InfoContext(r.ctx, "process finished", "op", r.op, "kind", r.kind, "duration", time.Since(r.start))
}
