package canvas

import (
	"context"
	"errors"
	"sync"

	"github.com/meikuraledutech/ost"
)

// DeleteResult is the outcome of one node's remote delete.
type DeleteResult struct {
	ID  string
	Err error
}

// DeleteResults holds one result per requested node, in request order.
type DeleteResults []DeleteResult

// Err joins the failed deletes, or returns nil when all succeeded.
func (r DeleteResults) Err() error {
	var errs []error
	for _, res := range r {
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	return errors.Join(errs...)
}

// OnNodesDelete removes ids and their edges from the canvas, then deletes each
// node remotely in its own goroutine. Each result is notified on its own; a
// failed delete does not restore the node or reload the canvas.
func (s *Store) OnNodesDelete(ctx context.Context, ids []string) DeleteResults {
	const op = "delete node"

	results := make(DeleteResults, 0, len(ids))
	kinds := make(map[string]ost.Kind, len(ids))

	s.mu.Lock()
	for _, id := range ids {
		if _, dup := kinds[id]; dup {
			continue
		}
		n, ok := s.nodes[id]
		if !ok {
			results = append(results, DeleteResult{ID: id, Err: nodeNotFound(op, id)})
			kinds[id] = ""
			continue
		}
		kinds[id] = n.Kind
		results = append(results, DeleteResult{ID: id})
		s.remove(id)
	}
	s.mu.Unlock()

	var wg sync.WaitGroup
	for i := range results {
		res := &results[i]
		if res.Err != nil {
			s.fail(ctx, op, res.ID, res.Err)
			continue
		}
		s.pending(ctx, op, res.ID)
		wg.Go(func() {
			if err := s.destroy(ctx, kinds[res.ID], res.ID); err != nil {
				res.Err = err
				s.fail(ctx, op, res.ID, err)
				return
			}
			s.succeed(ctx, op, res.ID)
		})
	}
	wg.Wait()
	return results
}

// DeleteNode deletes id together with every node below it. Each node gets its
// own remote delete, as with OnNodesDelete.
func (s *Store) DeleteNode(ctx context.Context, id string) DeleteResults {
	s.mu.Lock()
	ids := append([]string{id}, s.descendants(id)...)
	s.mu.Unlock()
	return s.OnNodesDelete(ctx, ids)
}
