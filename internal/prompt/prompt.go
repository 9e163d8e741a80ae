// Package prompt builds the natural-language prompts sent to the chat model.
// Every builder is pure: same input, same prompt.
package prompt

import (
	"fmt"
	"strings"

	"github.com/sells-group/lab-assistant/internal/model"
)

// NotSpecified replaces optional experiment fields left blank.
const NotSpecified = "Not specified"

// ReportSections are the sections a complete lab report is expected to have.
var ReportSections = []string{
	"Title",
	"Objective",
	"Hypothesis",
	"Materials",
	"Procedure",
	"Observations",
	"Results",
	"Conclusion",
	"References",
}

// Experiment builds the prompt for a step-by-step experiment guide.
func Experiment(e model.Experiment) string {
	var sb strings.Builder
	sb.WriteString("Create a comprehensive guide for a science experiment with the following details:\n\n")
	fmt.Fprintf(&sb, "Experiment Name: %s\n", strings.TrimSpace(e.Name))
	fmt.Fprintf(&sb, "Hypothesis: %s\n", strings.TrimSpace(e.Hypothesis))
	fmt.Fprintf(&sb, "Materials: %s\n", orNotSpecified(e.Materials))
	fmt.Fprintf(&sb, "Procedure: %s\n", orNotSpecified(e.Procedure))
	sb.WriteString(`
Please provide:
1. A clear explanation of the scientific concept behind the experiment
2. Step-by-step instructions for conducting the experiment
3. Safety precautions
4. Expected results and why they're expected
5. How to interpret the results
`)
	return sb.String()
}

// Analysis builds the lab report evaluation prompt. The reply format it asks
// for is the one report.Parse understands.
func Analysis(report string) string {
	var sb strings.Builder
	sb.WriteString("You are a science teacher evaluating a student's lab report. Please provide a comprehensive analysis:\n")
	sb.WriteString("Lab Report:\n")
	sb.WriteString(report)
	sb.WriteString("\nEvaluation Guidelines:\n")

	sb.WriteString("1. **Section Check**: Identify which of these sections are present and which are missing:\n")
	for _, s := range ReportSections {
		fmt.Fprintf(&sb, "    - %s\n", s)
	}

	sb.WriteString(`
2. **Completeness Score**:
    - Assign a numerical score from 1-10 based on completeness
    - Justify the score based on missing sections and content quality

3. **Improvement Tips**:
    - For each missing section, explain why it's important
    - Provide specific suggestions for improvement (e.g., "Try writing a more detailed observation section by including quantitative data")
    - Highlight any sections that need more detail or clarity

4. **Structure Response**:
`)
	fmt.Fprintf(&sb, "    - Start with: %q\n", model.HeadingMissing)
	fmt.Fprintf(&sb, "    - Then: %q\n", model.HeadingScore)
	fmt.Fprintf(&sb, "    - Then: %q\n", model.HeadingTips)
	fmt.Fprintf(&sb, "    - Finally: %q\n", model.HeadingFeedback)
	sb.WriteString("\nBe concise but thorough in your analysis.\n")
	return sb.String()
}

// Followup builds a question about the report.
func Followup(report, question string) string {
	return fmt.Sprintf(`Lab Report:
%s

Question: %s

Answer the question based on the lab report. If the question can't be answered from the report, suggest what information the student should add to answer it.
`, report, strings.TrimSpace(question))
}

// Glossary builds a one-line request to define a term for a student.
func Glossary(term string) string {
	return fmt.Sprintf("Explain the term '%s' in simple words for a student.", strings.TrimSpace(term))
}

func orNotSpecified(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return NotSpecified
	}
	return s
}
