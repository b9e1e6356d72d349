// Package integration assembles complete ledger runtimes: a token ledger,
// a fake chain for randomness, a stack or tower engine restored from the
// store when prior state exists, and a deterministic simulation driver.
// Presets bundle simulation parameters into named profiles so operators
// can exercise a deployment without tweaking individual flags.
//
// Usage:
//
//	p := integration.SmokePreset() // quick sanity run
//	p := integration.DemoPreset()  // readable demonstration trace
//	p := integration.SoakPreset()  // long run, exercises topples and expiry
package integration

import "fmt"

// PresetConfig captures the tunable parameters of a simulation run.
// Scale parameters vary across profiles; behavioural cadences (how often
// to claim, skip a reveal, or persist) have sensible shared defaults.
type PresetConfig struct {
	Name      string // human-readable identifier (e.g. "smoke", "soak")
	Entries   int    // number of entries the run performs
	Accounts  int    // number of funded accounts entries are drawn from
	Seed      uint64 // seed for the run's deterministic randomness
	SaveEvery int    // persist state to the store every N entries (0 disables)

	// ClaimEvery claims one account's accrued rewards every N entries.
	ClaimEvery int

	// SkipRevealEvery leaves every Nth commitment unrevealed so the run
	// exercises the expiry path. Tower variant only; 0 disables.
	SkipRevealEvery int
}

func DefaultPreset() PresetConfig {
	return PresetConfig{
		Name:            "default",
		Entries:         256,
		Accounts:        8,
		Seed:            1,
		SaveEvery:       64,
		ClaimEvery:      16,
		SkipRevealEvery: 20,
	}
}

// SmokePreset returns a minimal profile for quick sanity runs: few enough
// entries to finish instantly, few enough accounts that every one gets
// exercised, and no intermediate persistence.
func SmokePreset() PresetConfig {
	cfg := DefaultPreset()
	cfg.Name = "smoke"
	cfg.Entries = 32
	cfg.Accounts = 4
	cfg.SaveEvery = 0
	return cfg
}

// DemoPreset returns the default profile: a run long enough that the
// accumulator, instant rewards and (usually) at least one topple show up
// in the trace, while staying readable.
func DemoPreset() PresetConfig {
	cfg := DefaultPreset()
	cfg.Name = "demo"
	return cfg
}

// SoakPreset returns a long-running profile sized so the tower variant
// statistically topples many times and the expiry path fires repeatedly.
// Useful for shaking out accounting drift across round seals.
func SoakPreset() PresetConfig {
	cfg := DefaultPreset()
	cfg.Name = "soak"
	cfg.Entries = 5000
	cfg.Accounts = 16
	cfg.SaveEvery = 500
	return cfg
}

// GetPresetByName looks up a preset by its string identifier. This helper
// backs CLI flags like --preset=soak.
func GetPresetByName(name string) (PresetConfig, error) {
	switch name {
	case "smoke":
		return SmokePreset(), nil
	case "demo":
		return DemoPreset(), nil
	case "soak":
		return SoakPreset(), nil
	case "default":
		return DefaultPreset(), nil
	default:
		return PresetConfig{}, fmt.Errorf("unknown preset: %q (valid: smoke, demo, soak, default)", name)
	}
}

// ApplyPreset merges a preset into an existing config. Zero-valued scale
// fields in the preset leave the target untouched, so presets can be layered
// on top of flag overrides without clobbering them.
func ApplyPreset(target *PresetConfig, preset PresetConfig) {
	if preset.Entries > 0 {
		target.Entries = preset.Entries
	}
	if preset.Accounts > 0 {
		target.Accounts = preset.Accounts
	}
	if preset.Seed > 0 {
		target.Seed = preset.Seed
	}
	if preset.SaveEvery > 0 {
		target.SaveEvery = preset.SaveEvery
	}
	if preset.ClaimEvery > 0 {
		target.ClaimEvery = preset.ClaimEvery
	}
	if preset.SkipRevealEvery > 0 {
		target.SkipRevealEvery = preset.SkipRevealEvery
	}
	if preset.Name != "" {
		target.Name = preset.Name
	}
}
