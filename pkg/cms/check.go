package cms

import (
	"context"
	"errors"
	"fmt"

	"github.com/calvinalkan/cms/pkg/content"
)

// Report is the result of [API.Check].
type Report struct {
	// Checked counts the documents that were read.
	Checked int

	// Problems holds one error per failing document or collection. Entries
	// are [*DocumentError] for bad content and adapter errors otherwise.
	Problems []error
}

// OK reports whether no problems were found.
func (r Report) OK() bool { return len(r.Problems) == 0 }

// Check validates every static document and every collection member and
// reports each failure instead of stopping at the first one. A missing
// collection directory is not a problem: the collection is empty.
//
// Check only returns an error when ctx is done.
func (a *API) Check(ctx context.Context) (Report, error) {
	var r Report

	for _, name := range a.StaticNames() {
		s, _ := a.Static(name)

		_, err := s.Get(ctx)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return r, ctxErr
		}

		r.Checked++

		if err != nil {
			r.Problems = append(r.Problems, fmt.Errorf("static %s: %w", name, err))
		}
	}

	for _, name := range a.CollectionNames() {
		c, _ := a.Collection(name)

		ids, err := c.IDs(ctx)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return r, ctxErr
		}

		if err != nil {
			if !errors.Is(err, content.ErrNotFound) {
				r.Problems = append(r.Problems, fmt.Errorf("collection %s: %w", name, err))
			}

			continue
		}

		for _, id := range ids {
			_, err := c.Get(ctx, id)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return r, ctxErr
			}

			r.Checked++

			if err != nil {
				r.Problems = append(r.Problems, fmt.Errorf("collection %s: %w", name, err))
			}
		}
	}

	if len(r.Problems) > 0 {
		a.log.Warn().Int("problems", len(r.Problems)).Int("checked", r.Checked).Msg("content check failed")
	}

	return r, nil
}
