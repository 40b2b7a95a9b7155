// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// StudentProfile describes the student a document is generated for. Name,
// Age, Grade, and CareerInterest are required by the pipeline entry points;
// the remaining fields are optional free text and are omitted entirely when
// the profile is rendered into a prompt.
type StudentProfile struct {
	// Name is the student's first name.
	Name string `json:"name" yaml:"name"`

	// Age is the student's current age, kept as text ("15").
	Age string `json:"age" yaml:"age"`

	// Grade is the current grade level ("10th grade (Sophomore)").
	Grade string `json:"grade" yaml:"grade"`

	// Disability is the primary disability category, if any.
	Disability string `json:"disability,omitempty" yaml:"disability,omitempty"`

	// Interests is free text describing interests and strengths.
	Interests string `json:"interests,omitempty" yaml:"interests,omitempty"`

	// CareerInterest is free text naming the careers the student is
	// working toward.
	CareerInterest string `json:"career_interest" yaml:"career_interest"`

	// AssessmentResults is free text summarizing career assessments and
	// interest inventories.
	AssessmentResults string `json:"assessment_results,omitempty" yaml:"assessment_results,omitempty"`

	// AdditionalInfo is any other relevant information.
	AdditionalInfo string `json:"additional_info,omitempty" yaml:"additional_info,omitempty"`
}
