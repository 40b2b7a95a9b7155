// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"strings"

	"github.com/pdiddy/goal-engine/pkg/types"
)

// formatProfile renders a student profile as labeled lines for prompt
// interpolation. Empty fields are omitted entirely: an absent field must
// never appear as a blank labeled line, since the completion service would
// read it as meaningful.
func formatProfile(p types.StudentProfile) string {
	var lines []string
	add := func(label, value string) {
		if value != "" {
			lines = append(lines, label+": "+value)
		}
	}

	add("Name", p.Name)
	add("Age", p.Age)
	add("Grade", p.Grade)
	add("Disability", p.Disability)
	add("Interests", p.Interests)
	add("Career Interest", p.CareerInterest)
	add("Assessment Results", p.AssessmentResults)
	add("Additional Information", p.AdditionalInfo)

	return strings.Join(lines, "\n")
}
