package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
)

// ErrEmptyQuery is returned before any agent is contacted.
var ErrEmptyQuery = errors.New("query is required")

// ErrPerspectiveCount rejects requests that override the perspective list
// with anything other than three perspectives.
var ErrPerspectiveCount = errors.New("exactly three perspectives are required")

// Pipeline runs the six-step ensemble flow: baseline, three staged
// perspective steps, final judge evaluation, performance logging. The judge
// assesses every stage along the way.
type Pipeline struct {
	agents []*AgentClient
	judge  *AgentClient
	runLog *RunLog
}

func NewPipeline(agents []*AgentClient, judge *AgentClient, runLog *RunLog) *Pipeline {
	return &Pipeline{agents: agents, judge: judge, runLog: runLog}
}

func (p *Pipeline) agentNames() []string {
	names := make([]string, len(p.agents))
	for i, agent := range p.agents {
		names[i] = agent.Name
	}
	return names
}

// assessmentOrder is the canonical judge assessment sequence for a run.
func assessmentOrder(perspectives []string) []string {
	return []string{
		"initial",
		"step1_" + perspectives[0],
		"step2_" + perspectives[1],
		"step3_" + perspectives[2],
		"final",
	}
}

// Run executes the full pipeline. Per-agent failures degrade to placeholder
// values and judge failures are recorded as error text; only validation and
// context cancellation abort the run. Nothing is persisted on abort.
func (p *Pipeline) Run(ctx context.Context, req AnalysisRequest) (*RunResult, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	perspectives := req.Perspectives
	if len(perspectives) == 0 {
		perspectives = DefaultPerspectives
	}
	if len(perspectives) != 3 {
		return nil, ErrPerspectiveCount
	}

	start := time.Now()
	names := p.agentNames()
	result := &RunResult{
		Query:              query,
		Perspectives:       perspectives,
		Baselines:          make(map[string]BaselineResponse),
		Analyses:           make(map[string]*ModelAnalysis),
		JudgeAssessments:   make(map[string]JudgeAssessment),
		ImprovementMetrics: make(map[string]float64),
	}

	guidance := func(perspective string) string {
		return req.PerspectiveGuidance[perspective]
	}

	// Step 1 of 6: unguided baselines plus the judge's initial read.
	log.Printf("Generating baseline responses for query: %.80s", query)
	p.runBaselines(ctx, query, result)
	result.CompletionStatus.BaselinesComplete = true
	p.judgeAssess(ctx, result, "initial", 1, judgeInitialPrompt(query, perspectives))

	if err := p.checkAborted(ctx, result, start); err != nil {
		return result, err
	}

	// Step 2 of 6: first perspective across all agents.
	log.Printf("Step 1: %s perspective analysis", perspectives[0])
	p.runStep1(ctx, query, perspectives[0], req.UniversalGuidance, guidance(perspectives[0]), result)
	result.CompletionStatus.Step1Complete = true
	p.judgeAssess(ctx, result, "step1_"+perspectives[0], 2,
		judgeStep1Prompt(query, perspectives[0], names, p.step1Contents(result), p.baselineContents(result)))

	if err := p.checkAborted(ctx, result, start); err != nil {
		return result, err
	}

	// Step 3 of 6: integrate the second perspective with each agent's own
	// first-perspective analysis.
	log.Printf("Step 2: adding %s perspective", perspectives[1])
	p.runStep2(ctx, query, perspectives[0], perspectives[1], guidance(perspectives[1]), result)
	result.CompletionStatus.Step2Complete = true
	p.judgeAssess(ctx, result, "step2_"+perspectives[1], 3,
		judgeStep2Prompt(query, perspectives[0], perspectives[1], names, p.step2Contents(result), p.step1Contents(result)))

	if err := p.checkAborted(ctx, result, start); err != nil {
		return result, err
	}

	// Step 4 of 6: complete three-perspective synthesis.
	log.Printf("Step 3: complete %s synthesis", perspectives[2])
	p.runStep3(ctx, query, perspectives, guidance(perspectives[2]), result)
	result.CompletionStatus.Step3Complete = true
	p.judgeAssess(ctx, result, "step3_"+perspectives[2], 4,
		judgeStep3Prompt(query, perspectives, names, p.step3Contents(result), p.step2Contents(result)))

	if err := p.checkAborted(ctx, result, start); err != nil {
		return result, err
	}

	// Step 5 of 6: the judge's final comprehensive evaluation.
	log.Println("Final judge evaluation and synthesis")
	p.runJudgeEvaluation(ctx, query, perspectives, result)
	result.CompletionStatus.JudgingComplete = true

	// Step 6 of 6: derived metrics and the persisted run record.
	log.Println("Performance comparison and logging")
	p.computeMetrics(result)
	result.ProcessingTime = time.Since(start).Seconds()
	if err := p.runLog.Append(buildRunRecord(result)); err != nil {
		log.Printf("Error logging run: %v", err)
	} else {
		result.CompletionStatus.LoggingComplete = true
	}

	return result, nil
}

func (p *Pipeline) checkAborted(ctx context.Context, result *RunResult, start time.Time) error {
	if err := ctx.Err(); err != nil {
		result.ProcessingTime = time.Since(start).Seconds()
		return fmt.Errorf("analysis aborted: %w", err)
	}
	return nil
}

func (p *Pipeline) runBaselines(ctx context.Context, query string, result *RunResult) {
	prompt := baselinePrompt(query)
	prompts := make(map[string]string, len(p.agents))
	for _, agent := range p.agents {
		prompts[agent.Name] = prompt
	}

	for name, res := range queryAgentsParallel(ctx, p.agents, prompts) {
		if res.Err != nil {
			result.Baselines[name] = BaselineResponse{Agent: name, Content: "Error: " + res.Err.Error(), Confidence: 0.0}
			continue
		}
		result.Baselines[name] = BaselineResponse{Agent: name, Content: res.Content, Confidence: 0.5}
	}
}

func (p *Pipeline) runStep1(ctx context.Context, query, perspective, universal, specific string, result *RunResult) {
	prompt := perspectivePrompt(query, perspective, universal, specific)
	prompts := make(map[string]string, len(p.agents))
	for _, agent := range p.agents {
		prompts[agent.Name] = prompt
	}

	for name, res := range queryAgentsParallel(ctx, p.agents, prompts) {
		var parsed PerspectiveResponse
		if res.Err != nil {
			parsed = PerspectiveResponse{
				Perspective: perspective,
				Content:     "Error: " + res.Err.Error(),
				Reasoning:   "Error occurred",
				Confidence:  0.0,
			}
		} else {
			parsed = PerspectiveResponse{
				Perspective: perspective,
				Content:     extractSection(res.Content, "PERSPECTIVE_ANALYSIS", modelResponseTags),
				Reasoning:   extractSection(res.Content, "REASONING", modelResponseTags),
				Confidence:  extractConfidence(res.Content),
			}
		}
		step1 := parsed
		result.Analyses[name] = &ModelAnalysis{
			Agent:              name,
			Step1:              &step1,
			ReasoningEvolution: []string{fmt.Sprintf("Step 1: %s analysis completed", perspective)},
		}
	}
}

func (p *Pipeline) runStep2(ctx context.Context, query, firstPerspective, secondPerspective, specific string, result *RunResult) {
	prompts := make(map[string]string, len(p.agents))
	for _, agent := range p.agents {
		analysis := result.Analyses[agent.Name]
		prompts[agent.Name] = comparisonPrompt(query, analysis.Step1.Content, firstPerspective, secondPerspective, specific)
	}

	for name, res := range queryAgentsParallel(ctx, p.agents, prompts) {
		analysis := result.Analyses[name]
		if res.Err != nil {
			analysis.Step2Integration = "Error in step 2 analysis: " + res.Err.Error()
			analysis.ReasoningEvolution = append(analysis.ReasoningEvolution,
				fmt.Sprintf("Step 2: %s comparison failed", secondPerspective))
			continue
		}
		analysis.Step2Integration = res.Content
		analysis.ReasoningEvolution = append(analysis.ReasoningEvolution,
			fmt.Sprintf("Step 2: %s comparison completed", secondPerspective))
	}
}

func (p *Pipeline) runStep3(ctx context.Context, query string, perspectives []string, specific string, result *RunResult) {
	prompts := make(map[string]string, len(p.agents))
	for _, agent := range p.agents {
		analysis := result.Analyses[agent.Name]
		prompts[agent.Name] = synthesisPrompt(query, perspectives, analysis.Step1.Content, analysis.Step2Integration, specific)
	}

	for name, res := range queryAgentsParallel(ctx, p.agents, prompts) {
		analysis := result.Analyses[name]
		if res.Err != nil {
			analysis.Step3Synthesis = "Error in final synthesis: " + res.Err.Error()
			analysis.FinalConfidence = 0.0
			analysis.ReasoningEvolution = append(analysis.ReasoningEvolution, "Step 3: synthesis failed")
			continue
		}
		analysis.Step3Synthesis = extractSection(res.Content, "COMPREHENSIVE_SYNTHESIS", modelResponseTags)
		analysis.FinalConfidence = extractConfidence(res.Content)
		analysis.ReasoningEvolution = append(analysis.ReasoningEvolution,
			fmt.Sprintf("Step 3: complete synthesis with %s perspective", perspectives[2]))
	}
}

func (p *Pipeline) runJudgeEvaluation(ctx context.Context, query string, perspectives []string, result *RunResult) {
	names := p.agentNames()
	prompt := judgeFinalPrompt(query, names, result.JudgeAssessments,
		assessmentOrder(perspectives)[:4], result.Baselines, result.Analyses)

	content, err := p.judge.Invoke(ctx, prompt, JudgeQueryTimeout)
	if err != nil {
		log.Printf("Error in judge evaluation: %v", err)
		result.JudgeEvaluation = JudgeEvaluation{
			FinalEvaluation: "Error in judge evaluation: " + err.Error(),
			FinalSynthesis:  "Unable to complete judge evaluation",
			QualityScores:   make(map[string]float64),
		}
		result.JudgeAssessments["final"] = JudgeAssessment{
			Stage:      "final",
			Assessment: "Error in final judge assessment: " + err.Error(),
			Confidence: 0.0,
			Timestamp:  time.Now().UTC().Format(time.RFC3339),
			Step:       5,
		}
		return
	}

	known := judgeTagsFor(p.agents)
	scores := make(map[string]float64, len(names))
	for _, name := range names {
		scores[name] = extractScore(content, scoreTag(name))
	}
	result.JudgeEvaluation = JudgeEvaluation{
		FinalEvaluation:         extractSection(content, "FINAL_EVALUATION", known),
		AgreementsDisagreements: extractSection(content, "AGREEMENTS_DISAGREEMENTS", known),
		BestInsights:            extractSection(content, "BEST_INSIGHTS", known),
		FinalSynthesis:          extractSection(content, "FINAL_SYNTHESIS", known),
		MethodologyAssessment:   extractSection(content, "METHODOLOGY_ASSESSMENT", known),
		QualityScores:           scores,
	}
	result.JudgeAssessments["final"] = JudgeAssessment{
		Stage:      "final",
		Assessment: content,
		Confidence: extractConfidence(content),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Step:       5,
	}
}

func (p *Pipeline) baselineContents(result *RunResult) map[string]string {
	contents := make(map[string]string, len(result.Baselines))
	for name, baseline := range result.Baselines {
		contents[name] = baseline.Content
	}
	return contents
}

func (p *Pipeline) step1Contents(result *RunResult) map[string]string {
	contents := make(map[string]string, len(result.Analyses))
	for name, analysis := range result.Analyses {
		if analysis.Step1 != nil {
			contents[name] = analysis.Step1.Content
		}
	}
	return contents
}

func (p *Pipeline) step2Contents(result *RunResult) map[string]string {
	contents := make(map[string]string, len(result.Analyses))
	for name, analysis := range result.Analyses {
		contents[name] = analysis.Step2Integration
	}
	return contents
}

func (p *Pipeline) step3Contents(result *RunResult) map[string]string {
	contents := make(map[string]string, len(result.Analyses))
	for name, analysis := range result.Analyses {
		contents[name] = analysis.Step3Synthesis
	}
	return contents
}

// judgeAssess runs one stage assessment. A judge failure never aborts the
// stage; the error is stored as the assessment text.
func (p *Pipeline) judgeAssess(ctx context.Context, result *RunResult, stage string, step int, prompt string) {
	assessment := JudgeAssessment{
		Stage:     stage,
		Step:      step,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	content, err := p.judge.Invoke(ctx, prompt, JudgeQueryTimeout)
	if err != nil {
		log.Printf("Error in %s judge assessment: %v", stage, err)
		assessment.Assessment = fmt.Sprintf("Error in %s judge assessment: %v", stage, err)
		assessment.Confidence = 0.0
	} else {
		assessment.Assessment = content
		assessment.Confidence = extractConfidence(content)
	}
	result.JudgeAssessments[stage] = assessment
}

// computeMetrics derives the improvement metrics and methodology
// effectiveness from the completed run. The length-improvement ratio is
// capped at 5.0 so a one-word baseline cannot dominate the average.
func (p *Pipeline) computeMetrics(result *RunResult) {
	finalSynthesis := result.JudgeEvaluation.FinalSynthesis

	var ratioSum float64
	var ratioCount int
	if finalSynthesis != "" {
		for name, baseline := range result.Baselines {
			baselineLen := len(baseline.Content)
			if baselineLen < 1 {
				baselineLen = 1
			}
			ratio := float64(len(finalSynthesis)) / float64(baselineLen)
			if ratio > 5.0 {
				ratio = 5.0
			}
			result.ImprovementMetrics[name+"_length_improvement"] = ratio
			ratioSum += ratio
			ratioCount++
		}
	}
	if ratioCount > 0 {
		result.ImprovementMetrics["average_length_improvement"] = ratioSum / float64(ratioCount)
	}

	var baselineSum, finalSum float64
	var baselineCount, finalCount int
	for _, baseline := range result.Baselines {
		baselineSum += baseline.Confidence
		baselineCount++
	}
	for _, analysis := range result.Analyses {
		finalSum += analysis.FinalConfidence
		finalCount++
	}
	if baselineCount > 0 && finalCount > 0 {
		avgBaseline := baselineSum / float64(baselineCount)
		avgFinal := finalSum / float64(finalCount)
		result.ImprovementMetrics["average_baseline_confidence"] = avgBaseline
		result.ImprovementMetrics["average_final_confidence"] = avgFinal
		result.ImprovementMetrics["confidence_improvement"] = avgFinal - avgBaseline
	}

	status := result.CompletionStatus
	completed := 0
	for _, done := range []bool{
		status.BaselinesComplete, status.Step1Complete, status.Step2Complete,
		status.Step3Complete, status.JudgingComplete,
	} {
		if done {
			completed++
		}
	}

	integrated := len(result.Analyses) > 0
	for _, analysis := range result.Analyses {
		if analysis.Step3Synthesis == "" || strings.HasPrefix(analysis.Step3Synthesis, "Error") {
			integrated = false
		}
	}

	judged := true
	for _, stage := range assessmentOrder(result.Perspectives) {
		assessment, ok := result.JudgeAssessments[stage]
		if !ok || strings.HasPrefix(assessment.Assessment, "Error") {
			judged = false
			break
		}
	}

	result.MethodologyEffectiveness = MethodologyEffectiveness{
		StepCompletionRate:            float64(completed) / 5.0,
		PerspectiveIntegrationSuccess: integrated,
		JudgeInvolvementAtEachStage:   judged,
	}
}

// buildRunRecord flattens a run result into the persisted record shape.
func buildRunRecord(result *RunResult) RunRecord {
	summaries := make(map[string]ModelRunSummary, len(result.Analyses))
	for name, analysis := range result.Analyses {
		summary := ModelRunSummary{
			Step2:           analysis.Step2Integration,
			Step3:           analysis.Step3Synthesis,
			FinalConfidence: analysis.FinalConfidence,
		}
		if analysis.Step1 != nil {
			summary.Step1 = analysis.Step1.Content
		}
		if baseline, ok := result.Baselines[name]; ok {
			summary.Baseline = baseline.Content
		}
		summaries[name] = summary
	}

	return RunRecord{
		Query:            result.Query,
		FinalSynthesis:   result.JudgeEvaluation.FinalSynthesis,
		JudgeAnalysis:    result.JudgeEvaluation.FinalEvaluation,
		ConfidenceScores: result.JudgeEvaluation.QualityScores,
		ModelResponses:   summaries,
		ProcessingTime:   result.ProcessingTime,
		TotalIterations:  6,
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
	}
}
