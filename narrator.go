package main

import (
	"fmt"
	"time"
)

// narrationStage is one entry in the scripted progress sequence. The window
// is the longest the narrator lingers on the stage before moving on.
type narrationStage struct {
	step    int
	stage   string
	window  time.Duration
	isJudge bool
}

// narrationUpdatePause spaces consecutive synthetic agent updates so the
// script reads as live work instead of an instant burst.
const narrationUpdatePause = 300 * time.Millisecond

func narrationScript(perspectives []string) []narrationStage {
	if len(perspectives) != 3 {
		perspectives = DefaultPerspectives
	}
	return []narrationStage{
		{step: 1, stage: "baseline", window: 3 * time.Second},
		{step: 2, stage: perspectives[0], window: 5 * time.Second},
		{step: 3, stage: perspectives[1], window: 4 * time.Second},
		{step: 4, stage: perspectives[2], window: 3 * time.Second},
		{step: 5, stage: "judge", window: 2 * time.Second, isJudge: true},
	}
}

// narrateProgress walks the scripted stages while the real run is in flight,
// emitting step completions and synthetic agent updates so the client sees
// movement. Every event is tagged synthetic; the authoritative results come
// from streamResults. The script is cut short the moment the run resolves.
func narrateProgress(client *wsClient, agents []string, perspectives []string, done <-chan struct{}) {
	for _, stage := range narrationScript(perspectives) {
		select {
		case <-done:
			return
		default:
		}

		client.sendEvent(wsEvent{"type": "step_complete", "step": stage.step})

		names := agents
		if stage.isJudge {
			names = []string{"judge"}
		}
		for _, agent := range names {
			client.sendEvent(syntheticAgentUpdate(agent, "thinking", stage,
				fmt.Sprintf("Working on %s analysis...", stage.stage)))
			if waitOrDone(narrationUpdatePause, done) {
				return
			}
			client.sendEvent(syntheticAgentUpdate(agent, "completed", stage,
				fmt.Sprintf("%s analysis complete", stage.stage)))
			if waitOrDone(narrationUpdatePause, done) {
				return
			}
		}

		if waitOrDone(stage.window, done) {
			return
		}
	}
}

func syntheticAgentUpdate(agent, status string, stage narrationStage, output string) wsEvent {
	return wsEvent{
		"type":              "agent_update",
		"agent":             agent,
		"status":            status,
		"perspective":       stage.stage,
		"output":            output,
		"step":              stage.step,
		"cotApplied":        stage.step > 1 && !stage.isJudge,
		"isJudgeAssessment": stage.isJudge,
		"synthetic":         true,
	}
}

// waitOrDone sleeps for the window unless the run resolves first. Reports
// whether the run resolved.
func waitOrDone(window time.Duration, done <-chan struct{}) bool {
	timer := time.NewTimer(window)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}

// streamResults sends the authoritative run output to the initiating client:
// one baseline_response per agent, the judge assessments in stage order, one
// multi_perspective_update per agent, then exactly one analysis_complete.
func (h *Hub) streamResults(client *wsClient, result *RunResult) {
	client.sendEvent(wsEvent{"type": "step_complete", "step": 6})

	for _, name := range h.pipeline.agentNames() {
		baseline, ok := result.Baselines[name]
		if !ok || baseline.Content == "" {
			continue
		}
		client.sendEvent(wsEvent{
			"type":       "baseline_response",
			"agent":      name,
			"content":    baseline.Content,
			"confidence": baseline.Confidence,
		})
	}

	for _, stage := range assessmentOrder(result.Perspectives) {
		assessment, ok := result.JudgeAssessments[stage]
		if !ok {
			continue
		}
		client.sendEvent(wsEvent{
			"type":       "judge_assessment",
			"stage":      assessment.Stage,
			"assessment": assessment.Assessment,
			"confidence": assessment.Confidence,
			"timestamp":  assessment.Timestamp,
			"step":       assessment.Step,
		})
	}

	for _, name := range h.pipeline.agentNames() {
		analysis := result.Analyses[name]
		if analysis == nil {
			continue
		}
		client.sendEvent(wsEvent{
			"type":                         "multi_perspective_update",
			"agent":                        name,
			"step1_economic":               analysis.Step1,
			"step2_economic_environmental": analysis.Step2Integration,
			"step3_complete_synthesis":     analysis.Step3Synthesis,
			"final_confidence":             analysis.FinalConfidence,
			"reasoning_evolution":          analysis.ReasoningEvolution,
		})
	}

	client.sendEvent(wsEvent{
		"type":            "analysis_complete",
		"results":         result,
		"processing_time": result.ProcessingTime,
	})
}
