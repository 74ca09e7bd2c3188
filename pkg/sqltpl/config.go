package sqltpl

// Config holds all configuration options for the SQL template engine.
type Config struct {
	// BindPrefix is the key prefix used for parameters generated by the
	// bind template function (bp0, bp1, ...).
	BindPrefix string

	// MaxListExpansion sets a hard upper limit on the total number of
	// placeholders a single render may generate through list parameter
	// expansion. This prevents a template from producing an unbounded
	// IN clause from attacker-sized input.
	MaxListExpansion int

	// MaxTemplateSize sets the maximum size, in bytes, of an inline
	// template accepted by Render.
	MaxTemplateSize int
}

// DefaultConfig returns a Config with safe default values.
func DefaultConfig() *Config {
	return &Config{
		BindPrefix:       "bp",
		MaxListExpansion: 1000,
		MaxTemplateSize:  1 << 20, // 1MB
	}
}
