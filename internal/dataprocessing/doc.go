// Package dataprocessing turns uploaded playlist tables into dashboard views.
// It consolidates ingestion, cleaning, filtering, ranking, daily aggregation
// and presentation into a set of pure functions, composed by Pipeline.
//
// # Architecture
//
//  1. Parser: reads CSV or Excel uploads into raw records, deriving the artist
//     from the file name and parsing optional dates
//  2. Clean: drops rows without streams or listeners
//  3. Filter: narrows by artist and, when the data has dates, a date range
//  4. TopN / DailyAggregate: ranking and per-day sums
//  5. Present: chart specs and table projections for a view selection
//
// # Usage
//
//	p := dataprocessing.NewPipeline(nil, logger, tracer, metrics)
//	ds, report, err := p.Build(ctx, uploads)
//	if err != nil {
//	    return err
//	}
//	view := p.View(ctx, ds, domain.FilterState{Artist: "All"}, domain.ViewSelection{
//	    Kind: domain.ViewTopByStreams,
//	    Mode: domain.DisplayBoth,
//	    TopN: 10,
//	})
//
// Data quality problems never fail a build: unreadable numbers become missing
// values and are dropped by Clean, unreadable dates become nil. Only a file
// that cannot be read as a table at all is rejected.
package dataprocessing
