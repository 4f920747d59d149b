package editor

import (
	"strings"

	"cvbuilder/internal/cv"
)

// Step 是向导步骤，也是就地编辑器的标签页。
type Step int

const (
	StepBasic Step = iota
	StepEducation
	StepExperience
	StepProjects
	StepSkills
	StepSocial
	StepDesign
)

// Steps 按顺序列出全部步骤。
var Steps = []Step{StepBasic, StepEducation, StepExperience, StepProjects, StepSkills, StepSocial, StepDesign}

var stepTitles = [...]string{"Basic", "Education", "Experience", "Projects", "Skills", "Social", "Design"}

var stepSections = map[Step]cv.Section{
	StepEducation:  cv.SectionEducation,
	StepExperience: cv.SectionExperience,
	StepProjects:   cv.SectionProjects,
	StepSkills:     cv.SectionSkills,
	StepSocial:     cv.SectionSocial,
}

const lastStep = StepDesign

func (s Step) String() string {
	if !s.Valid() {
		return "Unknown"
	}
	return stepTitles[s]
}

// Valid 判断步骤是否在范围内。
func (s Step) Valid() bool {
	return s >= StepBasic && s <= lastStep
}

// Section 返回列表类步骤对应的分区。
func (s Step) Section() (cv.Section, bool) {
	sec, ok := stepSections[s]
	return sec, ok
}

// ValidateStep 执行某一步的校验，失败时返回 *cv.ValidationError。
func ValidateStep(doc cv.Document, step Step) error {
	switch step {
	case StepBasic:
		if strings.TrimSpace(doc.Basic.Name) == "" || strings.TrimSpace(doc.Basic.Email) == "" {
			return &cv.ValidationError{Field: "basic", Message: "Name and Email are required."}
		}
		if !cv.ValidEmail(doc.Basic.Email) {
			return &cv.ValidationError{Field: "basic.email", Message: "Invalid email format."}
		}
	case StepEducation:
		if !allFilled(doc.Education, "degree", "institution", "percentage") {
			return &cv.ValidationError{Field: "education", Message: "All Education fields are required."}
		}
	case StepExperience:
		if !allFilled(doc.Experience, "organization", "position") {
			return &cv.ValidationError{Field: "experience", Message: "All Experience fields are required."}
		}
	case StepProjects:
		if !allFilled(doc.Projects, "title", "description") {
			return &cv.ValidationError{Field: "projects", Message: "All Project fields are required."}
		}
	case StepSkills:
		for _, skill := range doc.Skills {
			if strings.TrimSpace(skill.Get("name")) == "" {
				return &cv.ValidationError{Field: "skills", Message: "Each skill must have a name and valid percentage."}
			}
			if p := skill.Get("percentage"); strings.TrimSpace(p) != "" {
				if _, ok := cv.ParsePercentage(p); !ok {
					return &cv.ValidationError{Field: "skills", Message: "Each skill must have a name and valid percentage."}
				}
			}
		}
	case StepSocial:
		for _, soc := range doc.Social {
			if link := soc.Get("link"); link != "" && !cv.ValidAbsoluteURL(link) {
				return &cv.ValidationError{Field: "social", Message: "Invalid URL format for social link."}
			}
		}
	case StepDesign:
	}
	return nil
}

func allFilled(records []cv.Record, keys ...string) bool {
	for _, r := range records {
		for _, k := range keys {
			if strings.TrimSpace(r.Get(k)) == "" {
				return false
			}
		}
	}
	return true
}
