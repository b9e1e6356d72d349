package launcher

// Defaults bundles the baseline configuration values the launcher uses
// before flags override them.
type Defaults struct {
	Node    NodeDefaults
	Logging LoggingDefaults
}

// NodeDefaults captures top-level instance settings.
type NodeDefaults struct {
	DataDir string // filesystem root where the instance keeps its data
	Name    string // instance name surfaced in logs
}

// LoggingDefaults controls log verbosity/format.
type LoggingDefaults struct {
	Verbosity int    // 0=fatal, 1=error, 2=warn, 3=info, 4=debug, 5=trace
	Format    string // text or json
	Color     bool   // ANSI colors; disable when piping to files
}

// DefaultConfig returns a fully populated Defaults instance.
func DefaultConfig() Defaults {
	return Defaults{
		Node: NodeDefaults{
			DataDir: "~/.tower",
			Name:    "tower",
		},
		Logging: LoggingDefaults{
			Verbosity: 3,
			Format:    "text",
			Color:     true,
		},
	}
}
