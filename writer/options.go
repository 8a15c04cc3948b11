package writer

import (
	"io"

	"github.com/tacofoundation/tortilla/internal/options"
)

// Config holds the writer's tunables. Zero value is invalid; Write starts
// from defaultConfig and applies any Option overrides on top.
type Config struct {
	Workers         int
	ChunkSizeBytes  uint64
	WriteChunkBytes uint64
	Quiet           bool
	ProgressOutput  io.Writer
}

// Option configures a writer Config.
type Option = options.Option[*Config]

// WithWorkers sets the number of concurrent copy workers.
func WithWorkers(n int) Option {
	return options.NoError[*Config](func(c *Config) { c.Workers = n })
}

// WithChunkSizeBytes sets the per-output-file size budget used for
// greedy partitioning into multiple parts.
func WithChunkSizeBytes(n uint64) Option {
	return options.NoError[*Config](func(c *Config) { c.ChunkSizeBytes = n })
}

// WithWriteChunkBytes sets the streaming granularity used when copying an
// item's bytes from its source path into the mapped output.
func WithWriteChunkBytes(n uint64) Option {
	return options.NoError[*Config](func(c *Config) { c.WriteChunkBytes = n })
}

// WithQuiet disables progress bar output entirely.
func WithQuiet() Option {
	return options.NoError[*Config](func(c *Config) { c.Quiet = true })
}

// WithProgressOutput redirects the progress bar to w instead of the
// package default (os.Stderr).
func WithProgressOutput(w io.Writer) Option {
	return options.NoError[*Config](func(c *Config) { c.ProgressOutput = w })
}

func defaultConfig() *Config {
	return &Config{
		Workers:         defaultWorkers(),
		ChunkSizeBytes:  1 << 34, // 16GiB
		WriteChunkBytes: 1 << 20, // 1MiB
	}
}
