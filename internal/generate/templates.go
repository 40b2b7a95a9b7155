// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"bytes"
	"fmt"
	"text/template"
)

// Stage templates are parsed once at package init, so a malformed template
// fails at program start rather than mid-pipeline. Each template executes
// against a typed input struct: the slot set is fixed by the struct fields,
// and a template referencing a slot the struct does not carry fails parsing
// the first test run rather than interpolating empty text.

type postsecondaryInput struct {
	StudentInfo string
	Context     string
}

var postsecondaryTmpl = template.Must(template.New("postsecondary_goals").Parse(`You are an expert special education professional. Based on the following student information and relevant context, generate appropriate measurable postsecondary goals.

Student Information:
{{.StudentInfo}}

Relevant Context (Occupational Data, Standards, and Best Practices):
{{.Context}}

Generate the following postsecondary goals:

1. EMPLOYMENT GOAL: A specific, measurable employment goal that aligns with the student's interests and abilities.

2. EDUCATION/TRAINING GOAL: A specific goal for post-high school education or training that supports the employment goal.

3. INDEPENDENT LIVING GOAL (if appropriate): A goal related to independent living skills.

For each goal:
- Make it specific and measurable
- Include the timeframe ("After high school")
- Connect it to the student's interests and assessment results
- Ensure it aligns with realistic career opportunities

Format your response as:

EMPLOYMENT GOAL:
[Your goal here]

EDUCATION/TRAINING GOAL:
[Your goal here]

INDEPENDENT LIVING GOAL:
[Your goal here, or "Not applicable" if not needed]
`))

type annualGoalInput struct {
	StudentInfo        string
	PostsecondaryGoals string
	Context            string
}

var annualGoalTmpl = template.Must(template.New("annual_goal").Parse(`Based on the student information, postsecondary goals, and relevant context, generate a measurable annual goal that will help the student progress toward their postsecondary goals.

Student Information:
{{.StudentInfo}}

Postsecondary Goals:
{{.PostsecondaryGoals}}

Relevant Context (Standards and Skills):
{{.Context}}

Generate ONE comprehensive annual goal that:
- Is measurable with clear criteria for success
- Includes a specific timeframe (e.g., "In 36 weeks")
- Aligns with educational standards and employability skills
- Supports the student's postsecondary employment goal
- Specifies the context where the skill will be demonstrated
- Includes measurable criteria (e.g., "in 4 out of 5 opportunities")

Then, identify which standards this goal aligns with:
- Occupational Outlook Handbook requirements
- 21st Century Skills
- Employability Skills

Format your response as:

ANNUAL GOAL:
[Your measurable annual goal here]

ALIGNMENT TO STANDARDS:
- Occupational Outlook Handbook: [Specific requirements this goal addresses]
- 21st Century Skills: [Specific skills this goal develops]
- Employability Skills: [Specific employability skills this goal targets]
`))

type objectivesInput struct {
	StudentInfo string
	AnnualGoal  string
	Context     string
}

var objectivesTmpl = template.Must(template.New("short_term_objectives").Parse(`Based on the student information, annual goal, and relevant context, generate 4 short-term objectives (benchmarks) that break down the annual goal into smaller, sequential steps.

Student Information:
{{.StudentInfo}}

Annual Goal:
{{.AnnualGoal}}

Relevant Context:
{{.Context}}

Generate 4 short-term objectives that:
- Progress sequentially from less to more independent
- Build on each other toward the annual goal
- Are measurable with clear criteria
- Include specific timeframes (by quarter or date)
- Move from controlled settings to more natural environments
- Follow a logical progression (e.g., role-play, simulated settings, community-based instruction, work-based learning)

Format your response as:

SHORT-TERM OBJECTIVE 1 (First Quarter):
[Objective with criterion]

SHORT-TERM OBJECTIVE 2 (Second Quarter):
[Objective with criterion]

SHORT-TERM OBJECTIVE 3 (Third Quarter):
[Objective with criterion]

SHORT-TERM OBJECTIVE 4 (Fourth Quarter):
[Objective with criterion]
`))

type explanationInput struct {
	StudentInfo        string
	PostsecondaryGoals string
	AnnualGoal         string
	Objectives         string
	Context            string
}

var explanationTmpl = template.Must(template.New("explanation").Parse(`Based on all the generated IEP components, provide a clear explanation of how everything connects together.

Student Information:
{{.StudentInfo}}

Postsecondary Goals:
{{.PostsecondaryGoals}}

Annual Goal:
{{.AnnualGoal}}

Short-term Objectives:
{{.Objectives}}

Relevant Context:
{{.Context}}

Provide a clear, concise explanation that addresses:

1. How the postsecondary goals align with the student's interests and assessment results
2. How the annual goal supports the postsecondary employment goal
3. How the goals connect to specific industry requirements from the Occupational Outlook Handbook
4. How the goals align with educational standards (21st Century Skills and Employability Skills)
5. How the short-term objectives provide a logical progression toward the annual goal

Keep your explanation clear and organized. Use specific examples from the goals and standards.

Format your response in clear sections.
`))

type completeDocumentInput struct {
	StudentInfo string
	Context     string
}

var completeDocumentTmpl = template.Must(template.New("complete_document").Parse(`You are an expert special education professional. Based on the student information and relevant context, generate a complete set of IEP transition goals.

STUDENT INFORMATION:
{{.StudentInfo}}

RELEVANT CONTEXT (Career Information, Standards, and Best Practices):
{{.Context}}

Generate a complete IEP transition plan including:

1. MEASURABLE POSTSECONDARY GOALS
   - Employment Goal
   - Education/Training Goal
   - Independent Living Goal (if appropriate)

2. MEASURABLE ANNUAL GOAL
   - Include timeframe, specific skill, context, and criteria for success
   - Ensure it aligns with and supports the postsecondary goals

3. ALIGNMENT TO STANDARDS
   - Specific Occupational Outlook Handbook requirements
   - Relevant 21st Century Skills
   - Relevant Employability Skills

4. SHORT-TERM OBJECTIVES/BENCHMARKS
   - Four sequential objectives that build toward the annual goal
   - Include timeframes and measurable criteria
   - Show progression from structured to natural settings

5. EXPLANATION OF CONNECTIONS
   - How goals align with student's interests and needs
   - How goals connect to industry and educational standards
   - How objectives support goal achievement

Make all goals and objectives:
- Specific and measurable
- Appropriate for the student's age and disability
- Aligned with the student's interests
- Connected to realistic career opportunities
- Compliant with IDEA 2004 requirements

Format your response with clear section headers and organized content.
`))

// renderTemplate executes a stage template with its typed input.
func renderTemplate(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering %s prompt: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}
