package main

// BaselineResponse is one model's unguided answer to the raw query.
// Confidence is fixed at 0.5 on success and 0.0 when the agent call failed.
type BaselineResponse struct {
	Agent      string  `json:"agent"`
	Content    string  `json:"content"`
	Confidence float64 `json:"confidence"`
}

// PerspectiveResponse is a parsed single-perspective analysis from one model.
type PerspectiveResponse struct {
	Perspective string  `json:"perspective"`
	Content     string  `json:"content"`
	Reasoning   string  `json:"reasoning"`
	Confidence  float64 `json:"confidence"`
}

// ModelAnalysis accumulates one model's outputs across the three perspective
// steps. Fields are filled in additively as stages complete; an empty stage
// field means that stage's call failed for this model.
type ModelAnalysis struct {
	Agent              string               `json:"agent"`
	Step1              *PerspectiveResponse `json:"step1,omitempty"`
	Step2Integration   string               `json:"step2_integration,omitempty"`
	Step3Synthesis     string               `json:"step3_synthesis,omitempty"`
	FinalConfidence    float64              `json:"final_confidence"`
	ReasoningEvolution []string             `json:"reasoning_evolution"`
}

// JudgeAssessment is the judge's verdict on one pipeline stage.
type JudgeAssessment struct {
	Stage      string  `json:"stage"`
	Assessment string  `json:"assessment"`
	Confidence float64 `json:"confidence"`
	Timestamp  string  `json:"timestamp"`
	Step       int     `json:"step"`
}

// JudgeEvaluation is the parsed final comprehensive judge response.
type JudgeEvaluation struct {
	FinalEvaluation         string             `json:"final_evaluation"`
	AgreementsDisagreements string             `json:"agreements_disagreements"`
	BestInsights            string             `json:"best_insights"`
	FinalSynthesis          string             `json:"final_synthesis"`
	MethodologyAssessment   string             `json:"methodology_assessment"`
	QualityScores           map[string]float64 `json:"quality_scores"`
}

// CompletionStatus records which pipeline stages finished.
type CompletionStatus struct {
	BaselinesComplete bool `json:"baselines_complete"`
	Step1Complete     bool `json:"step1_complete"`
	Step2Complete     bool `json:"step2_complete"`
	Step3Complete     bool `json:"step3_complete"`
	JudgingComplete   bool `json:"judging_complete"`
	LoggingComplete   bool `json:"logging_complete"`
}

// MethodologyEffectiveness summarizes how well the staged approach worked.
type MethodologyEffectiveness struct {
	StepCompletionRate            float64 `json:"step_completion_rate"`
	PerspectiveIntegrationSuccess bool    `json:"perspective_integration_success"`
	JudgeInvolvementAtEachStage   bool    `json:"judge_involvement_at_each_stage"`
}

// RunResult is the full aggregate of one pipeline run.
type RunResult struct {
	Query                    string                      `json:"query"`
	Perspectives             []string                    `json:"perspectives"`
	Baselines                map[string]BaselineResponse `json:"baseline_responses"`
	Analyses                 map[string]*ModelAnalysis   `json:"multi_perspective_analyses"`
	JudgeAssessments         map[string]JudgeAssessment  `json:"judge_assessments"`
	JudgeEvaluation          JudgeEvaluation             `json:"judge_evaluation"`
	ImprovementMetrics       map[string]float64          `json:"improvement_metrics"`
	MethodologyEffectiveness MethodologyEffectiveness    `json:"methodology_effectiveness"`
	CompletionStatus         CompletionStatus            `json:"completion_status"`
	ProcessingTime           float64                     `json:"processing_time"`
}

// ModelRunSummary is the per-model slice of a persisted run record.
type ModelRunSummary struct {
	Baseline        string  `json:"baseline"`
	Step1           string  `json:"step1_economic"`
	Step2           string  `json:"step2_economic_environmental"`
	Step3           string  `json:"step3_complete_synthesis"`
	FinalConfidence float64 `json:"final_confidence"`
}

// RunRecord is the flat record appended to the run log after each run.
type RunRecord struct {
	Query            string                     `json:"query"`
	FinalSynthesis   string                     `json:"final_synthesis"`
	JudgeAnalysis    string                     `json:"judge_analysis"`
	ConfidenceScores map[string]float64         `json:"confidence_scores"`
	ModelResponses   map[string]ModelRunSummary `json:"model_responses"`
	ProcessingTime   float64                    `json:"processing_time"`
	TotalIterations  int                        `json:"total_iterations"`
	Timestamp        string                     `json:"timestamp"`
}

// RunStats aggregates the run log for the stats endpoint.
type RunStats struct {
	TotalRuns             int                `json:"total_queries_processed"`
	AverageProcessingTime float64            `json:"average_processing_time"`
	AverageIterations     float64            `json:"average_iterations"`
	AverageConfidences    map[string]float64 `json:"average_model_confidences"`
	BestPerformingModel   string             `json:"best_performing_model"`
	LatestQuery           string             `json:"latest_query"`
	LatestTimestamp       string             `json:"latest_timestamp"`
}

// AnalysisRequest is one pipeline invocation. Perspectives defaults to
// economic/environmental/technological; guidance strings default to the
// built-in chain-of-thought text when empty.
type AnalysisRequest struct {
	Query               string            `json:"query"`
	Perspectives        []string          `json:"perspectives,omitempty"`
	UniversalGuidance   string            `json:"universalCot,omitempty"`
	PerspectiveGuidance map[string]string `json:"perspectiveCots,omitempty"`
}

// ClientCommand is a decoded client-to-server websocket message.
type ClientCommand struct {
	Type            string            `json:"type"`
	Query           string            `json:"query"`
	UniversalCot    string            `json:"universalCot"`
	PerspectiveCots map[string]string `json:"perspectiveCots"`
}

// ChatMessage represents a chat-completions API message
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest represents a chat-completions API request
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// ChatAPIResponse represents the chat-completions API response structure
type ChatAPIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}
