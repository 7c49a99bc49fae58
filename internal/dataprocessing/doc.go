// Package dataprocessing turns an uploaded workbook into an analysis
// report. It is organized as four stages, each producing a new dataset:
//
//  1. Load: read the first (or chosen) worksheet into typed columns.
//  2. Resolve: pick the date column, coerce it and sort by date.
//  3. Filter: keep rows within an inclusive calendar range.
//  4. Aggregate: descriptive statistics, correlation and the chart series.
//
// # Usage
//
//	p := dataprocessing.NewPipeline(logger)
//	report, err := p.Run(ctx, dataprocessing.Input{Workbook: data})
//	if errors.Is(err, dataprocessing.ErrNoDateColumn) {
//	    // ask the user for a date column and run again
//	}
//
// Every stage is a pure function of its inputs, so running the same input
// twice yields the same report.
package dataprocessing
