package pipeline

import (
	"context"
	"errors"

	"github.com/ejsimon0408/BostonWeatherETL/internal/domain"
)

// FanOut delivers to every sink in order. A failing sink does not stop the
// others; their errors are joined.
type FanOut []Sink

func (f FanOut) LoadTable(ctx context.Context, meta RunMeta, table domain.MergedTable) error {
	var errs []error
	for _, s := range f {
		errs = append(errs, s.LoadTable(ctx, meta, table))
	}
	return errors.Join(errs...)
}

func (f FanOut) LoadReport(ctx context.Context, report RunReport) error {
	var errs []error
	for _, s := range f {
		errs = append(errs, s.LoadReport(ctx, report))
	}
	return errors.Join(errs...)
}
