// Package pkg provides the core libraries for photoaffix.
//
// # Overview
//
// Photoaffix stacks an ordered list of photos into one image, vertically or
// horizontally, and scales the result down when the full-size canvas would
// not fit in memory. The pkg directory is organized into three areas:
//
//  1. Engine - bounds inspection, layout planning, composition, encoding
//  2. Orchestration - the stage runner and the request coordinator
//  3. Support - memory budgets, caching, configuration, errors, hooks
//
// # Architecture
//
// The data flow of one request:
//
//	photos (paths or a scanned directory)
//	         ↓
//	    [bounds] read dimensions and EXIF orientation from headers
//	         ↓
//	    [layout] choose the largest scale whose peak memory fits [budget]
//	         ↓
//	    (optional size confirmation through [affix.View])
//	         ↓
//	    [compose] decode one photo at a time and draw it onto the canvas
//	         ↓
//	    [encode] write the canvas atomically as png, jpeg, tiff or bmp
//
// # Quick Start
//
// Run every stage with defaults:
//
//	runner := pipeline.NewRunner(nil, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    URIs:      []string{"a.jpg", "b.jpg"},
//	    Direction: layout.Vertical,
//	    Spacing:   8,
//	})
//	fmt.Println(result.Output, result.Plan.Scale)
//
// Drive requests interactively, with a view that answers the sizing dialog:
//
//	coord := affix.New(runner, affix.Options{Settings: settings})
//	defer coord.Close()
//	coord.Attach(view)
//	coord.Process(photos)
//	res := <-coord.Results()
//
// # Main Packages
//
// ## Engine
//
// [bounds] - Header-only dimension and orientation reads, fanned out over a
// bounded number of goroutines.
//
// [layout] - Canvas geometry and the power-of-two scale search under a
// memory budget.
//
// [compose] - Sequential decode-and-draw with a release-as-you-go memory
// ledger.
//
// [encode] - Output formats and the temp-file-and-rename writer.
//
// ## Orchestration
//
// [pipeline] - The stage runner shared by the CLI and the coordinator. Adds
// bounds caching and observability hooks around each stage.
//
// [affix] - The request state machine. Supersedes in-flight requests, keeps
// one terminal report for a detached view.
//
// ## Support
//
// [budget] - Memory budget estimators and the allocation ledger.
//
// [cache] - File cache for inspected bounds.
//
// [config] - TOML configuration and live direction/spacing settings.
//
// [errors] - Error codes shared by every stage.
//
// [observability] - Hooks for logging or metrics around stages and cache
// access.
//
// [source] - Photo and image types, URI resolution, directory scans.
//
// [buildinfo] - Version information injected at build time.
//
// [affix]: https://pkg.go.dev/github.com/matzehuels/photoaffix/pkg/affix
// [affix.View]: https://pkg.go.dev/github.com/matzehuels/photoaffix/pkg/affix#View
// [bounds]: https://pkg.go.dev/github.com/matzehuels/photoaffix/pkg/bounds
// [budget]: https://pkg.go.dev/github.com/matzehuels/photoaffix/pkg/budget
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/photoaffix/pkg/buildinfo
// [cache]: https://pkg.go.dev/github.com/matzehuels/photoaffix/pkg/cache
// [compose]: https://pkg.go.dev/github.com/matzehuels/photoaffix/pkg/compose
// [config]: https://pkg.go.dev/github.com/matzehuels/photoaffix/pkg/config
// [encode]: https://pkg.go.dev/github.com/matzehuels/photoaffix/pkg/encode
// [errors]: https://pkg.go.dev/github.com/matzehuels/photoaffix/pkg/errors
// [layout]: https://pkg.go.dev/github.com/matzehuels/photoaffix/pkg/layout
// [observability]: https://pkg.go.dev/github.com/matzehuels/photoaffix/pkg/observability
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/photoaffix/pkg/pipeline
// [source]: https://pkg.go.dev/github.com/matzehuels/photoaffix/pkg/source
package pkg
