package infra

import (
	"context"
	"errors"

	"devtools-api/middleware/admission/domain"
)

// StatsFanout grava o mesmo evento em vários stores.
// Um store com erro não impede os outros; os erros voltam juntos.
type StatsFanout []domain.StatsStore

func (f StatsFanout) Record(ctx context.Context, ev domain.StatsEvent) error {
	var errs []error
	for _, s := range f {
		if s == nil {
			continue
		}
		if err := s.Record(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
