package ost

import (
	"context"
	"errors"
)

var (
	ErrNotFound              = errors.New("ost: entity not found")
	ErrNodeNotFound          = errors.New("ost: node not on canvas")
	ErrCycle                 = errors.New("ost: connection would create a cycle")
	ErrInvalidParent         = errors.New("ost: invalid parent for node type")
	ErrUnsupportedConnection = errors.New("ost: unsupported connection")
	ErrKindMismatch          = errors.New("ost: patch does not match node type")
)

// Store defines the contract for persisting opportunity solution trees.
// Updates return the stored entity and ErrNotFound when it does not exist.
// Deletes are idempotent and cascade to dependent entities.
type Store interface {
	// Schema
	CreateSchema(ctx context.Context) error
	DropSchema(ctx context.Context) error

	// Outcomes
	ListOutcomes(ctx context.Context) ([]Outcome, error)
	CreateOutcome(ctx context.Context, o Outcome) (*Outcome, error)
	UpdateOutcome(ctx context.Context, id string, p OutcomePatch) (*Outcome, error)
	DeleteOutcome(ctx context.Context, id string) error

	// Opportunities. Lists include linked evidence with its interview.
	ListOpportunities(ctx context.Context) ([]Opportunity, error)
	CreateOpportunity(ctx context.Context, o Opportunity) (*Opportunity, error)
	UpdateOpportunity(ctx context.Context, id string, p OpportunityPatch) (*Opportunity, error)
	DeleteOpportunity(ctx context.Context, id string) error

	// Solutions
	ListSolutions(ctx context.Context) ([]Solution, error)
	CreateSolution(ctx context.Context, s Solution) (*Solution, error)
	UpdateSolution(ctx context.Context, id string, p SolutionPatch) (*Solution, error)
	DeleteSolution(ctx context.Context, id string) error

	// Interviews
	ListInterviews(ctx context.Context) ([]Interview, error)
	CreateInterview(ctx context.Context, i Interview) (*Interview, error)
	UpdateInterview(ctx context.Context, id string, p InterviewPatch) (*Interview, error)
	DeleteInterview(ctx context.Context, id string) error

	// Evidence
	ListEvidence(ctx context.Context) ([]Evidence, error)
	CreateEvidence(ctx context.Context, e Evidence) (*Evidence, error)
	UpdateEvidence(ctx context.Context, id string, p EvidencePatch) (*Evidence, error)
	DeleteEvidence(ctx context.Context, id string) error
}
