package main

import (
	"fmt"
	"strings"
)

// Canned chain-of-thought guidance used whenever a request does not supply
// its own. The universal block applies to every perspective; the map holds
// per-perspective defaults.
const defaultUniversalGuidance = `UNIVERSAL REASONING PRINCIPLES:
1. Break down complex issues into manageable components
2. Consider both immediate and long-term implications
3. Look for interconnections and system-level effects
4. Acknowledge uncertainties and limitations in your analysis
5. Consider multiple stakeholder viewpoints within your perspective
6. Balance theoretical knowledge with practical constraints
7. Be explicit about your assumptions and reasoning steps
8. Consider unintended consequences and edge cases`

var defaultPerspectiveGuidance = map[string]string{
	"economic": `ECONOMIC PERSPECTIVE GUIDANCE:
- Consider cost-benefit analysis and financial viability
- Examine market dynamics, supply and demand factors
- Analyze economic efficiency and resource allocation
- Consider short-term costs vs long-term economic benefits
- Examine impacts on different economic stakeholders
- Consider macroeconomic and microeconomic effects
- Analyze competitive advantages and market positioning`,
	"environmental": `ENVIRONMENTAL PERSPECTIVE GUIDANCE:
- Assess environmental impact and sustainability
- Consider resource consumption and waste generation
- Examine ecosystem effects and biodiversity impacts
- Analyze long-term environmental consequences
- Consider circular economy principles
- Examine climate change implications
- Assess environmental justice and equity issues`,
	"technological": `TECHNOLOGICAL PERSPECTIVE GUIDANCE:
- Analyze technical feasibility and implementation challenges
- Consider scalability and infrastructure requirements
- Examine innovation potential and technological advancement
- Assess cybersecurity and safety implications
- Consider user experience and adoption barriers
- Analyze integration with existing technologies
- Examine future technological trends and dependencies`,
}

func universalGuidanceOrDefault(guidance string) string {
	if strings.TrimSpace(guidance) != "" {
		return guidance
	}
	return defaultUniversalGuidance
}

func perspectiveGuidanceOrDefault(perspective, guidance string) string {
	if strings.TrimSpace(guidance) != "" {
		return guidance
	}
	return defaultPerspectiveGuidance[strings.ToLower(perspective)]
}

// baselinePrompt is deliberately unguided so the baseline measures what each
// model does on its own.
func baselinePrompt(query string) string {
	return fmt.Sprintf("Please provide a comprehensive answer to this query: %s", query)
}

// perspectivePrompt builds the step 1 single-perspective prompt. The response
// contract is PERSPECTIVE_ANALYSIS / REASONING / CONFIDENCE.
func perspectivePrompt(query, perspective, universal, specific string) string {
	upper := strings.ToUpper(perspective)
	return fmt.Sprintf(`You are analyzing this query from the %s perspective using enhanced chain-of-thought reasoning.

QUERY: %s
PERSPECTIVE FOCUS: %s

UNIVERSAL GUIDANCE:
%s

%s SPECIFIC GUIDANCE:
%s

Apply the following reasoning chain:
1. PERSPECTIVE_UNDERSTANDING: interpret the query through the %s lens
2. DOMAIN_BREAKDOWN: break it down into %s-relevant components
3. PERSPECTIVE_REASONING: apply %s-specific logic and frameworks
4. IMPLICATIONS: identify %s implications and consequences
5. LIMITATIONS: note what this %s view might miss

Format your response as:
PERSPECTIVE_ANALYSIS: [Your comprehensive %s analysis]
REASONING: [Your step-by-step %s reasoning chain]
CONFIDENCE: [0.0-1.0]`,
		upper, query, upper,
		universalGuidanceOrDefault(universal),
		upper, perspectiveGuidanceOrDefault(perspective, specific),
		perspective, perspective, perspective, perspective, perspective,
		perspective, perspective)
}

// comparisonPrompt builds the step 2 prompt integrating a new perspective
// with the model's own step 1 analysis. The reply is used as raw text.
func comparisonPrompt(query, previousAnalysis, previousPerspective, newPerspective, guidance string) string {
	prevUpper := strings.ToUpper(previousPerspective)
	newUpper := strings.ToUpper(newPerspective)
	return fmt.Sprintf(`You are now integrating the %s perspective with your previous %s analysis.

ORIGINAL QUERY: %s

YOUR PREVIOUS %s ANALYSIS:
%s

%s GUIDANCE:
%s

Apply enhanced reasoning to integrate the perspectives:

NEW_PERSPECTIVE_ANALYSIS:
- Analyze the query from the %s perspective
- What new insights does the %s view reveal?
- How does the %s approach differ from the %s one?

PERSPECTIVE_COMPARISON:
- Where do the %s and %s perspectives align?
- Where do they conflict or create tension?
- Which perspective offers stronger insights for different aspects?

INTEGRATION_REASONING:
- How can these perspectives be synthesized?
- What trade-offs or balances need to be considered?

ENHANCED_SYNTHESIS:
- Provide a more comprehensive answer integrating both perspectives
- Address conflicts and tensions explicitly`,
		newUpper, prevUpper, query, prevUpper, previousAnalysis,
		newUpper, perspectiveGuidanceOrDefault(newPerspective, guidance),
		newPerspective, newPerspective, newPerspective, previousPerspective,
		previousPerspective, newPerspective)
}

// synthesisPrompt builds the step 3 prompt completing the three-perspective
// synthesis. The response contract is COMPREHENSIVE_SYNTHESIS /
// FINAL_CONFIDENCE.
func synthesisPrompt(query string, perspectives []string, firstAnalysis, secondAnalysis, guidance string) string {
	first := strings.ToUpper(perspectives[0])
	second := strings.ToUpper(perspectives[1])
	final := strings.ToUpper(perspectives[2])
	all := strings.ToUpper(strings.Join(perspectives, ", "))
	return fmt.Sprintf(`You are now performing the FINAL SYNTHESIS integrating the %s perspectives.

ORIGINAL QUERY: %s

YOUR PREVIOUS ANALYSES:
%s ANALYSIS: %s

%s + %s INTEGRATION: %s

%s GUIDANCE:
%s

Apply comprehensive multi-perspective reasoning:
- Analyze the query from the %s perspective
- Compare priorities across all perspectives and identify tensions
- Examine how the dimensions interact systemically
- Integrate insights from every perspective into a balanced answer

Format your response as:
COMPREHENSIVE_SYNTHESIS: [Final integrated answer across all perspectives]
FINAL_CONFIDENCE: [0.0-1.0]`,
		all, query,
		first, firstAnalysis,
		first, second, secondAnalysis,
		final, perspectiveGuidanceOrDefault(perspectives[2], guidance),
		perspectives[2])
}

// judgeInitialPrompt asks the judge for its pre-analysis read of the query.
func judgeInitialPrompt(query string, perspectives []string) string {
	return fmt.Sprintf(`You are evaluating a query that will be analyzed through a multi-perspective approach.

QUERY: %s

Provide your initial assessment:
INITIAL_ASSESSMENT: [Your direct analysis of this query]
KEY_CONSIDERATIONS: [Important aspects to consider for multi-perspective analysis]
EXPECTED_PERSPECTIVES: [How the %s perspectives might differ]
CONFIDENCE: [0.0-1.0]`,
		query, strings.Join(perspectives, ", "))
}

// judgeStep1Prompt asks the judge to compare the single-perspective analyses
// against the unguided baselines.
func judgeStep1Prompt(query, perspective string, agents []string, analyses, baselines map[string]string) string {
	upper := strings.ToUpper(perspective)
	var b strings.Builder
	fmt.Fprintf(&b, "You are evaluating Step 1 of a multi-perspective analysis focused on the %s perspective.\n\n", upper)
	fmt.Fprintf(&b, "ORIGINAL QUERY: %s\n\n", query)
	fmt.Fprintf(&b, "STEP 1 %s ANALYSES:\n", upper)
	writeAgentSections(&b, agents, analyses)
	b.WriteString("\nBASELINE RESPONSES:\n")
	writeAgentSections(&b, agents, baselines)
	fmt.Fprintf(&b, `
Assess:
STEP1_ANALYSIS: [How well did each model analyze the %s perspective?]
IMPROVEMENTS_OVER_BASELINE: [How do the %s analyses compare to the baselines?]
MISSING_ASPECTS: [What %s factors might be missing?]
CONFIDENCE: [0.0-1.0]`, perspective, perspective, perspective)
	return b.String()
}

// judgeStep2Prompt asks the judge to assess how well each model integrated
// the second perspective with its first.
func judgeStep2Prompt(query, firstPerspective, secondPerspective string, agents []string, integrations, step1Analyses map[string]string) string {
	firstUpper := strings.ToUpper(firstPerspective)
	secondUpper := strings.ToUpper(secondPerspective)
	var b strings.Builder
	fmt.Fprintf(&b, "You are evaluating Step 2 of a multi-perspective analysis where the %s perspective was added to the %s one.\n\n", secondUpper, firstUpper)
	fmt.Fprintf(&b, "ORIGINAL QUERY: %s\n\n", query)
	fmt.Fprintf(&b, "STEP 2 %s + %s ANALYSES:\n", firstUpper, secondUpper)
	writeAgentSections(&b, agents, integrations)
	b.WriteString("\nSTEP 1 CONTEXT:\n")
	writeAgentSections(&b, agents, step1Analyses)
	fmt.Fprintf(&b, `
Assess:
STEP2_ANALYSIS: [How well did each model integrate the %s and %s perspectives?]
PERSPECTIVE_CONFLICTS: [What conflicts or tensions emerged between the views?]
SYNTHESIS_QUALITY: [How effectively did models synthesize the two perspectives?]
CONFIDENCE: [0.0-1.0]`, secondPerspective, firstPerspective)
	return b.String()
}

// judgeStep3Prompt asks the judge to assess the complete syntheses.
func judgeStep3Prompt(query string, perspectives []string, agents []string, syntheses, integrations map[string]string) string {
	all := strings.ToUpper(strings.Join(perspectives, ", "))
	var b strings.Builder
	fmt.Fprintf(&b, "You are evaluating Step 3 of a multi-perspective analysis where the %s perspectives were fully integrated.\n\n", all)
	fmt.Fprintf(&b, "ORIGINAL QUERY: %s\n\n", query)
	b.WriteString("STEP 3 COMPLETE SYNTHESES:\n")
	writeAgentSections(&b, agents, syntheses)
	b.WriteString("\nPREVIOUS STEP CONTEXT:\n")
	writeAgentSections(&b, agents, integrations)
	b.WriteString(`
Assess:
STEP3_ANALYSIS: [How well did each model integrate all perspectives?]
COMPREHENSIVE_COVERAGE: [How comprehensively were all aspects addressed?]
SYNTHESIS_SOPHISTICATION: [How sophisticated and nuanced are the final syntheses?]
CONFIDENCE: [0.0-1.0]`)
	return b.String()
}

// judgeFinalPrompt assembles everything the judge has seen into the final
// comprehensive evaluation request. The contract is the five judge sections
// plus one <AGENT>_SCORE line per analysis agent.
func judgeFinalPrompt(query string, agents []string, assessments map[string]JudgeAssessment, assessmentOrder []string, baselines map[string]BaselineResponse, analyses map[string]*ModelAnalysis) string {
	var b strings.Builder
	b.WriteString("You are conducting the FINAL COMPREHENSIVE EVALUATION of a multi-perspective AI ensemble analysis.\n")
	b.WriteString("You have been involved throughout the entire process, providing assessments at each stage.\n\n")
	fmt.Fprintf(&b, "ORIGINAL QUERY: %s\n\n", query)

	b.WriteString("=== YOUR PREVIOUS STAGE ASSESSMENTS ===\n")
	for _, stage := range assessmentOrder {
		if a, ok := assessments[stage]; ok {
			fmt.Fprintf(&b, "%s: %s\n", stage, a.Assessment)
		}
	}

	b.WriteString("\n=== BASELINE RESPONSES (No Guidance) ===\n")
	for _, name := range agents {
		content := "N/A"
		if baseline, ok := baselines[name]; ok {
			content = baseline.Content
		}
		fmt.Fprintf(&b, "%s Baseline: %s\n", name, content)
	}

	b.WriteString("\n=== FINAL MULTI-PERSPECTIVE SYNTHESES ===\n")
	for _, name := range agents {
		analysis := analyses[name]
		if analysis == nil {
			fmt.Fprintf(&b, "%s Final Synthesis: N/A\n", name)
			continue
		}
		fmt.Fprintf(&b, "%s Final Synthesis: %s\n(Confidence: %.2f)\n", name, analysis.Step3Synthesis, analysis.FinalConfidence)
	}

	b.WriteString("\n=== REASONING EVOLUTION TRACKING ===\n")
	for _, name := range agents {
		if analysis := analyses[name]; analysis != nil {
			fmt.Fprintf(&b, "%s Evolution: %s\n", name, strings.Join(analysis.ReasoningEvolution, "; "))
		}
	}

	b.WriteString(`
Based on your involvement throughout this process, provide your FINAL evaluation:

FINAL_EVALUATION: [Your comprehensive evaluation of the entire multi-perspective process and final results]
AGREEMENTS_DISAGREEMENTS: [Key agreements and disagreements between models across all stages]
BEST_INSIGHTS: [The most valuable insights extracted from the entire process]
FINAL_SYNTHESIS: [Your ultimate synthesized answer representing the best possible response to the original query]
METHODOLOGY_ASSESSMENT: [Effectiveness of the multi-perspective methodology vs the simple baseline responses]
`)
	for _, name := range agents {
		fmt.Fprintf(&b, "%s: [0.0-1.0 - considering the entire process, not just the final result]\n", scoreTag(name))
	}
	return b.String()
}

// writeAgentSections emits "name: content" lines in the given agent order,
// substituting N/A for missing entries.
func writeAgentSections(b *strings.Builder, agents []string, sections map[string]string) {
	for _, name := range agents {
		content, ok := sections[name]
		if !ok || content == "" {
			content = "N/A"
		}
		fmt.Fprintf(b, "%s: %s\n", name, content)
	}
}
