package texpack

import "log/slog"

// Option configures a Packer during creation.
//
// Example:
//
//	p := texpack.New(exec,
//	    texpack.WithExporter(&export.FileExporter{Path: "out/packed.png"}),
//	    texpack.WithLogger(logger),
//	)
type Option func(*packerOptions)

// packerOptions holds optional configuration for Packer creation.
type packerOptions struct {
	exporter Exporter
	logger   *slog.Logger
}

// defaultOptions returns the default packer options.
func defaultOptions() packerOptions {
	return packerOptions{
		exporter: nil, // finalizing requests succeed without export
		logger:   nil, // package logger
	}
}

// WithExporter sets the exporter invoked for finalizing requests.
func WithExporter(e Exporter) Option {
	return func(o *packerOptions) {
		o.exporter = e
	}
}

// WithLogger sets a logger for this Packer instead of the package logger.
// Executors implementing SetLogger(*slog.Logger) receive it too.
func WithLogger(l *slog.Logger) Option {
	return func(o *packerOptions) {
		o.logger = l
	}
}
