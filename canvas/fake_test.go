package canvas

import (
	"context"
	"sync"
	"testing"

	"github.com/meikuraledutech/ost"
	"github.com/meikuraledutech/ost/memory"
)

// fakeAPI records calls against an in-memory backend and can fail or hold
// any of them.
type fakeAPI struct {
	*memory.Store

	mu      sync.Mutex
	calls   []string
	fails   map[string]error
	gates   map[string]chan struct{}
	entered map[string]chan struct{}
	patches []ost.Patch
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		Store:   memory.New(),
		fails:   make(map[string]error),
		gates:   make(map[string]chan struct{}),
		entered: make(map[string]chan struct{}),
	}
}

func (f *fakeAPI) failOn(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.fails, method)
		return
	}
	f.fails[method] = err
}

// hold makes the next call to method wait until release is called. entered
// is closed once the call has started.
func (f *fakeAPI) hold(method string) (entered <-chan struct{}, release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate, in := make(chan struct{}), make(chan struct{})
	f.gates[method] = gate
	f.entered[method] = in
	return in, func() { close(gate) }
}

func (f *fakeAPI) enter(method string) error {
	f.mu.Lock()
	f.calls = append(f.calls, method)
	gate, in := f.gates[method], f.entered[method]
	delete(f.gates, method)
	delete(f.entered, method)
	err := f.fails[method]
	f.mu.Unlock()

	if gate != nil {
		close(in)
		<-gate
	}
	return err
}

func (f *fakeAPI) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == method {
			n++
		}
	}
	return n
}

func (f *fakeAPI) lastPatch() ost.Patch {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.patches) == 0 {
		return nil
	}
	return f.patches[len(f.patches)-1]
}

func (f *fakeAPI) record(p ost.Patch) {
	f.mu.Lock()
	f.patches = append(f.patches, p)
	f.mu.Unlock()
}

func (f *fakeAPI) ListOutcomes(ctx context.Context) ([]ost.Outcome, error) {
	if err := f.enter("ListOutcomes"); err != nil {
		return nil, err
	}
	return f.Store.ListOutcomes(ctx)
}

func (f *fakeAPI) CreateOutcome(ctx context.Context, o ost.Outcome) (*ost.Outcome, error) {
	if err := f.enter("CreateOutcome"); err != nil {
		return nil, err
	}
	return f.Store.CreateOutcome(ctx, o)
}

func (f *fakeAPI) UpdateOutcome(ctx context.Context, id string, p ost.OutcomePatch) (*ost.Outcome, error) {
	f.record(p)
	if err := f.enter("UpdateOutcome"); err != nil {
		return nil, err
	}
	return f.Store.UpdateOutcome(ctx, id, p)
}

func (f *fakeAPI) DeleteOutcome(ctx context.Context, id string) error {
	if err := f.enter("DeleteOutcome"); err != nil {
		return err
	}
	return f.Store.DeleteOutcome(ctx, id)
}

func (f *fakeAPI) ListOpportunities(ctx context.Context) ([]ost.Opportunity, error) {
	if err := f.enter("ListOpportunities"); err != nil {
		return nil, err
	}
	return f.Store.ListOpportunities(ctx)
}

func (f *fakeAPI) CreateOpportunity(ctx context.Context, o ost.Opportunity) (*ost.Opportunity, error) {
	if err := f.enter("CreateOpportunity"); err != nil {
		return nil, err
	}
	return f.Store.CreateOpportunity(ctx, o)
}

func (f *fakeAPI) UpdateOpportunity(ctx context.Context, id string, p ost.OpportunityPatch) (*ost.Opportunity, error) {
	f.record(p)
	if err := f.enter("UpdateOpportunity"); err != nil {
		return nil, err
	}
	return f.Store.UpdateOpportunity(ctx, id, p)
}

func (f *fakeAPI) DeleteOpportunity(ctx context.Context, id string) error {
	if err := f.enter("DeleteOpportunity"); err != nil {
		return err
	}
	return f.Store.DeleteOpportunity(ctx, id)
}

func (f *fakeAPI) ListSolutions(ctx context.Context) ([]ost.Solution, error) {
	if err := f.enter("ListSolutions"); err != nil {
		return nil, err
	}
	return f.Store.ListSolutions(ctx)
}

func (f *fakeAPI) CreateSolution(ctx context.Context, s ost.Solution) (*ost.Solution, error) {
	if err := f.enter("CreateSolution"); err != nil {
		return nil, err
	}
	return f.Store.CreateSolution(ctx, s)
}

func (f *fakeAPI) UpdateSolution(ctx context.Context, id string, p ost.SolutionPatch) (*ost.Solution, error) {
	f.record(p)
	if err := f.enter("UpdateSolution"); err != nil {
		return nil, err
	}
	return f.Store.UpdateSolution(ctx, id, p)
}

func (f *fakeAPI) DeleteSolution(ctx context.Context, id string) error {
	if err := f.enter("DeleteSolution"); err != nil {
		return err
	}
	return f.Store.DeleteSolution(ctx, id)
}

// recorder collects notifications.
type recorder struct {
	mu  sync.Mutex
	all []Notification
}

func (r *recorder) Notify(_ context.Context, n Notification) {
	r.mu.Lock()
	r.all = append(r.all, n)
	r.mu.Unlock()
}

func (r *recorder) failures() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Notification
	for _, n := range r.all {
		if n.Level == Failure {
			out = append(out, n)
		}
	}
	return out
}

func newTestStore(t *testing.T) (*Store, *fakeAPI, *recorder) {
	t.Helper()
	api := newFakeAPI()
	rec := &recorder{}
	return New(api, WithNotifier(rec)), api, rec
}

// seedTree stores an outcome with two opportunities, one nested under the
// other, and a solution under the nested one, then loads the canvas.
func seedTree(t *testing.T, s *Store, api *fakeAPI) (outcome, opp, nested, sol string) {
	t.Helper()
	ctx := context.Background()
	o, err := api.Store.CreateOutcome(ctx, ost.Outcome{Name: "Grow retention"})
	if err != nil {
		t.Fatal(err)
	}
	p, err := api.Store.CreateOpportunity(ctx, ost.Opportunity{Name: "Onboarding", OutcomeID: &o.ID, Y: 150})
	if err != nil {
		t.Fatal(err)
	}
	n, err := api.Store.CreateOpportunity(ctx, ost.Opportunity{Name: "Invites", ParentID: &p.ID, Y: 300})
	if err != nil {
		t.Fatal(err)
	}
	so, err := api.Store.CreateSolution(ctx, ost.Solution{Name: "Guided invite", OpportunityID: n.ID, Y: 450})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.LoadCanvas(ctx); err != nil {
		t.Fatal(err)
	}
	return o.ID, p.ID, n.ID, so.ID
}

func inbound(edges []ost.Edge, target string) []string {
	var out []string
	for _, e := range edges {
		if e.Target == target {
			out = append(out, e.Source)
		}
	}
	return out
}
