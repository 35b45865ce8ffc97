package ost

import (
	"encoding/json"
	"time"
)

// Optional is a field that may be absent, explicitly null, or set.
// Absent fields are omitted when marshalled with the omitzero tag.
type Optional[T any] struct {
	Set   bool
	Value *T
}

// Some returns an Optional holding v.
func Some[T any](v T) Optional[T] { return Optional[T]{Set: true, Value: &v} }

// Null returns an Optional that clears the field.
func Null[T any]() Optional[T] { return Optional[T]{Set: true} }

// IsZero reports an absent field, so omitzero drops it.
func (o Optional[T]) IsZero() bool { return !o.Set }

// MarshalJSON writes the value, or null when cleared.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*o.Value)
}

// UnmarshalJSON marks the field present; a JSON null clears it.
func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// or returns next when it is set and o otherwise.
func (o Optional[T]) or(next Optional[T]) Optional[T] {
	if next.Set {
		return next
	}
	return o
}

// Patch is a partial update of one canvas entity.
type Patch interface {
	Kind() Kind
	// Merge returns the patch with next's fields layered on top.
	Merge(next Patch) Patch
}

// OutcomePatch is a partial Outcome update. Nil fields are left untouched.
type OutcomePatch struct {
	Name         *string           `json:"name,omitempty" validate:"omitempty,min=1"`
	Status       *OutcomeStatus    `json:"status,omitempty" validate:"omitempty,oneof=ON_TRACK AT_RISK ACHIEVED ARCHIVED"`
	TargetMetric *string           `json:"targetMetric,omitempty"`
	CurrentValue Optional[float64] `json:"currentValue,omitzero"`
	X            *float64          `json:"x_position,omitempty"`
	Y            *float64          `json:"y_position,omitempty"`
}

// Kind reports the node kind the patch applies to.
func (OutcomePatch) Kind() Kind { return KindOutcome }

// Merge overlays next onto p. Fields set in next win.
func (p OutcomePatch) Merge(next Patch) Patch {
	n, ok := next.(OutcomePatch)
	if !ok {
		return p
	}
	p.Name = orPtr(p.Name, n.Name)
	p.Status = orPtr(p.Status, n.Status)
	p.TargetMetric = orPtr(p.TargetMetric, n.TargetMetric)
	p.CurrentValue = p.CurrentValue.or(n.CurrentValue)
	p.X = orPtr(p.X, n.X)
	p.Y = orPtr(p.Y, n.Y)
	return p
}

// ApplyTo merges the patch into o.
func (p OutcomePatch) ApplyTo(o *Outcome) {
	setIf(&o.Name, p.Name)
	setIf(&o.Status, p.Status)
	setIf(&o.TargetMetric, p.TargetMetric)
	if p.CurrentValue.Set {
		o.CurrentValue = clonePtr(p.CurrentValue.Value)
	}
	setIf(&o.X, p.X)
	setIf(&o.Y, p.Y)
}

// OpportunityPatch is a partial Opportunity update. EvidenceIDs, when set,
// replaces the whole linked set.
type OpportunityPatch struct {
	Name               *string              `json:"name,omitempty" validate:"omitempty,min=1"`
	Status             *WorkStatus          `json:"status,omitempty" validate:"omitempty,oneof=BACKLOG DISCOVERY IN_PROGRESS DONE BLOCKED"`
	X                  *float64             `json:"x_position,omitempty"`
	Y                  *float64             `json:"y_position,omitempty"`
	OutcomeID          Optional[string]     `json:"outcomeId,omitzero"`
	ParentID           Optional[string]     `json:"parentId,omitzero"`
	EvidenceIDs        *[]string            `json:"evidenceIds,omitempty"`
	SolutionCandidates *[]SolutionCandidate `json:"solutionCandidates,omitempty"`
}

// Kind reports the node kind the patch applies to.
func (OpportunityPatch) Kind() Kind { return KindOpportunity }

// Merge overlays next onto p. Fields set in next win.
func (p OpportunityPatch) Merge(next Patch) Patch {
	n, ok := next.(OpportunityPatch)
	if !ok {
		return p
	}
	p.Name = orPtr(p.Name, n.Name)
	p.Status = orPtr(p.Status, n.Status)
	p.X = orPtr(p.X, n.X)
	p.Y = orPtr(p.Y, n.Y)
	p.OutcomeID = p.OutcomeID.or(n.OutcomeID)
	p.ParentID = p.ParentID.or(n.ParentID)
	p.EvidenceIDs = orPtr(p.EvidenceIDs, n.EvidenceIDs)
	p.SolutionCandidates = orPtr(p.SolutionCandidates, n.SolutionCandidates)
	return p
}

// ApplyTo merges the patch into o.
func (p OpportunityPatch) ApplyTo(o *Opportunity) {
	setIf(&o.Name, p.Name)
	setIf(&o.Status, p.Status)
	setIf(&o.X, p.X)
	setIf(&o.Y, p.Y)
	if p.OutcomeID.Set {
		o.OutcomeID = clonePtr(p.OutcomeID.Value)
	}
	if p.ParentID.Set {
		o.ParentID = clonePtr(p.ParentID.Value)
	}
	if p.EvidenceIDs != nil {
		o.EvidenceIDs = append([]string{}, (*p.EvidenceIDs)...)
	}
	if p.SolutionCandidates != nil {
		o.SolutionCandidates = append([]SolutionCandidate{}, (*p.SolutionCandidates)...)
	}
}

// SolutionPatch is a partial Solution update.
type SolutionPatch struct {
	Name          *string     `json:"name,omitempty" validate:"omitempty,min=1"`
	Status        *WorkStatus `json:"status,omitempty" validate:"omitempty,oneof=BACKLOG DISCOVERY IN_PROGRESS DONE BLOCKED"`
	X             *float64    `json:"x_position,omitempty"`
	Y             *float64    `json:"y_position,omitempty"`
	OpportunityID *string     `json:"opportunityId,omitempty" validate:"omitempty,min=1"`
}

// Kind reports the node kind the patch applies to.
func (SolutionPatch) Kind() Kind { return KindSolution }

// Merge overlays next onto p. Fields set in next win.
func (p SolutionPatch) Merge(next Patch) Patch {
	n, ok := next.(SolutionPatch)
	if !ok {
		return p
	}
	p.Name = orPtr(p.Name, n.Name)
	p.Status = orPtr(p.Status, n.Status)
	p.X = orPtr(p.X, n.X)
	p.Y = orPtr(p.Y, n.Y)
	p.OpportunityID = orPtr(p.OpportunityID, n.OpportunityID)
	return p
}

// ApplyTo merges the patch into s.
func (p SolutionPatch) ApplyTo(s *Solution) {
	setIf(&s.Name, p.Name)
	setIf(&s.Status, p.Status)
	setIf(&s.X, p.X)
	setIf(&s.Y, p.Y)
	setIf(&s.OpportunityID, p.OpportunityID)
}

// PositionPatch returns the patch that moves an entity of kind k to pos.
func PositionPatch(k Kind, pos Position) Patch {
	x, y := Ptr(pos.X), Ptr(pos.Y)
	switch k {
	case KindOutcome:
		return OutcomePatch{X: x, Y: y}
	case KindOpportunity:
		return OpportunityPatch{X: x, Y: y}
	default:
		return SolutionPatch{X: x, Y: y}
	}
}

// InterviewPatch is a partial Interview update.
type InterviewPatch struct {
	Title       *string             `json:"title,omitempty" validate:"omitempty,min=1"`
	Interviewee *string             `json:"interviewee,omitempty"`
	ConductedAt Optional[time.Time] `json:"conductedAt,omitzero"`
	Notes       *string             `json:"notes,omitempty"`
}

// ApplyTo merges the patch into i.
func (p InterviewPatch) ApplyTo(i *Interview) {
	setIf(&i.Title, p.Title)
	setIf(&i.Interviewee, p.Interviewee)
	if p.ConductedAt.Set {
		i.ConductedAt = clonePtr(p.ConductedAt.Value)
	}
	setIf(&i.Notes, p.Notes)
}

// EvidencePatch is a partial Evidence update.
type EvidencePatch struct {
	InterviewID *string       `json:"interviewId,omitempty" validate:"omitempty,min=1"`
	Type        *EvidenceType `json:"type,omitempty" validate:"omitempty,oneof=QUOTE PAIN_POINT DESIRE INSIGHT"`
	Content     *string       `json:"content,omitempty"`
}

// ApplyTo merges the patch into e.
func (p EvidencePatch) ApplyTo(e *Evidence) {
	setIf(&e.InterviewID, p.InterviewID)
	setIf(&e.Type, p.Type)
	setIf(&e.Content, p.Content)
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func orPtr[T any](cur, next *T) *T {
	if next != nil {
		return next
	}
	return cur
}
