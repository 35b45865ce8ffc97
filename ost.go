// Package ost models opportunity solution trees: outcomes, the opportunities
// that move them, and the solutions that address those opportunities, plus the
// interviews and evidence that back them up.
package ost

import (
	"slices"
	"time"
)

// OutcomeStatus tracks progress against an outcome's target metric.
type OutcomeStatus string

const (
	OutcomeOnTrack  OutcomeStatus = "ON_TRACK"
	OutcomeAtRisk   OutcomeStatus = "AT_RISK"
	OutcomeAchieved OutcomeStatus = "ACHIEVED"
	OutcomeArchived OutcomeStatus = "ARCHIVED"
)

// WorkStatus is the workflow state shared by opportunities and solutions.
type WorkStatus string

const (
	StatusBacklog    WorkStatus = "BACKLOG"
	StatusDiscovery  WorkStatus = "DISCOVERY"
	StatusInProgress WorkStatus = "IN_PROGRESS"
	StatusDone       WorkStatus = "DONE"
	StatusBlocked    WorkStatus = "BLOCKED"
)

// EvidenceType classifies a piece of research data.
type EvidenceType string

const (
	EvidenceQuote     EvidenceType = "QUOTE"
	EvidencePainPoint EvidenceType = "PAIN_POINT"
	EvidenceDesire    EvidenceType = "DESIRE"
	EvidenceInsight   EvidenceType = "INSIGHT"
)

// Outcome is a measurable business goal. It is always the root of a tree.
type Outcome struct {
	ID           string        `json:"id,omitempty"`
	Name         string        `json:"name" validate:"required"`
	Status       OutcomeStatus `json:"status" validate:"omitempty,oneof=ON_TRACK AT_RISK ACHIEVED ARCHIVED"`
	TargetMetric string        `json:"targetMetric"`
	CurrentValue *float64      `json:"currentValue"`
	X            float64       `json:"x_position"`
	Y            float64       `json:"y_position"`
}

// Opportunity is a customer need nested under an outcome or another
// opportunity. When ParentID is set it takes precedence over OutcomeID.
type Opportunity struct {
	ID                 string              `json:"id,omitempty"`
	Name               string              `json:"name" validate:"required"`
	Status             WorkStatus          `json:"status" validate:"omitempty,oneof=BACKLOG DISCOVERY IN_PROGRESS DONE BLOCKED"`
	X                  float64             `json:"x_position"`
	Y                  float64             `json:"y_position"`
	OutcomeID          *string             `json:"outcomeId"`
	ParentID           *string             `json:"parentId"`
	EvidenceIDs        []string            `json:"evidenceIds"`
	Evidence           []Evidence          `json:"evidence,omitempty"`
	SolutionCandidates []SolutionCandidate `json:"solutionCandidates"`
}

// SolutionCandidate is a lightweight idea kept on an opportunity until it is
// promoted to a Solution.
type SolutionCandidate struct {
	Title       string   `json:"title"`
	Assumptions []string `json:"assumptions"`
}

// Solution is a candidate response to an opportunity.
type Solution struct {
	ID            string     `json:"id,omitempty"`
	Name          string     `json:"name" validate:"required"`
	Status        WorkStatus `json:"status" validate:"omitempty,oneof=BACKLOG DISCOVERY IN_PROGRESS DONE BLOCKED"`
	X             float64    `json:"x_position"`
	Y             float64    `json:"y_position"`
	OpportunityID string     `json:"opportunityId" validate:"required"`
}

// Interview is a customer conversation that evidence is extracted from.
type Interview struct {
	ID          string     `json:"id,omitempty"`
	Title       string     `json:"title" validate:"required"`
	Interviewee string     `json:"interviewee"`
	ConductedAt *time.Time `json:"conductedAt"`
	Notes       string     `json:"notes"`
}

// Evidence is a unit of qualitative research taken from one interview.
// Interview is populated on reads only.
type Evidence struct {
	ID          string       `json:"id,omitempty"`
	InterviewID string       `json:"interviewId" validate:"required"`
	Type        EvidenceType `json:"type" validate:"required,oneof=QUOTE PAIN_POINT DESIRE INSIGHT"`
	Content     string       `json:"content"`
	Interview   *Interview   `json:"interview,omitempty"`
}

// Clone returns a deep copy of o.
func (o Outcome) Clone() Outcome {
	o.CurrentValue = clonePtr(o.CurrentValue)
	return o
}

// Clone returns a deep copy of o.
func (o Opportunity) Clone() Opportunity {
	o.OutcomeID = clonePtr(o.OutcomeID)
	o.ParentID = clonePtr(o.ParentID)
	o.EvidenceIDs = slices.Clone(o.EvidenceIDs)
	o.Evidence = slices.Clone(o.Evidence)
	o.SolutionCandidates = slices.Clone(o.SolutionCandidates)
	return o
}

// HasEvidence reports whether evidenceID is linked to the opportunity.
func (o *Opportunity) HasEvidence(evidenceID string) bool {
	for _, id := range o.EvidenceIDs {
		if id == evidenceID {
			return true
		}
	}
	return false
}

// StructuralParent returns the id of the node the opportunity hangs from.
func (o *Opportunity) StructuralParent() string {
	if o.ParentID != nil && *o.ParentID != "" {
		return *o.ParentID
	}
	if o.OutcomeID != nil {
		return *o.OutcomeID
	}
	return ""
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }
