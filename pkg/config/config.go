package config

import (
	"fmt"
	"strings"

	"github.com/xplshn/lrc/pkg/cli"
	"modernc.org/libqbe"
)

type Feature int

const (
	FeatFold Feature = iota
	FeatAsmComments
	FeatTrace
	FeatStrictDecl
	FeatCount
)

type Warning int

const (
	WarnImplicitDecl Warning = iota
	WarnUnused
	WarnDeadStore
	WarnUnreachableCode
	WarnExtra
	WarnCount
)

const (
	BackendRISCV = "riscv"
	BackendQBE   = "qbe"
)

// DefaultRegisters is the size of the t0..t6 pool.
const DefaultRegisters = 7

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

type Config struct {
	Features   map[Feature]Info
	Warnings   map[Warning]Info
	FeatureMap map[string]Feature
	WarningMap map[string]Warning
	Backend    string
	QbeTarget  string
	GOOS       string
	GOARCH     string
	Registers  int
	Verbose    bool
}

func NewConfig() *Config {
	cfg := &Config{
		Features:   make(map[Feature]Info),
		Warnings:   make(map[Warning]Info),
		FeatureMap: make(map[string]Feature),
		WarningMap: make(map[string]Warning),
		Backend:    BackendRISCV,
		Registers:  DefaultRegisters,
	}

	features := map[Feature]Info{
		FeatFold:        {"fold", true, "Fold arithmetic on two constants while legalizing."},
		FeatAsmComments: {"asm-comments", true, "Annotate every assembly line with the IR it came from."},
		FeatTrace:       {"trace", false, "Log every shift, reduce and accept of the parser to stderr."},
		FeatStrictDecl:  {"strict-decl", false, "Treat identifiers used without an 'int' declaration as errors."},
	}

	warnings := map[Warning]Info{
		WarnImplicitDecl:    {"implicit-decl", true, "Warn about identifiers used without an 'int' declaration."},
		WarnUnused:          {"unused", true, "Warn about declared variables that are never referenced."},
		WarnDeadStore:       {"dead-store", false, "Warn about assignments whose value is never read."},
		WarnUnreachableCode: {"unreachable-code", true, "Warn about statements after the first 'return'."},
		WarnExtra:           {"extra", false, "Enable extra miscellaneous warnings."},
	}

	cfg.Features, cfg.Warnings = features, warnings
	for ft, info := range features {
		cfg.FeatureMap[info.Name] = ft
	}
	for wt, info := range warnings {
		cfg.WarningMap[info.Name] = wt
	}

	return cfg
}

// Clone returns a deep copy, so per-file directives do not leak between files.
func (c *Config) Clone() *Config {
	n := *c
	n.Features = make(map[Feature]Info, len(c.Features))
	n.Warnings = make(map[Warning]Info, len(c.Warnings))
	for k, v := range c.Features {
		n.Features[k] = v
	}
	for k, v := range c.Warnings {
		n.Warnings[k] = v
	}
	return &n
}

// SetTarget selects the backend from a "backend[/target]" string. An empty
// string selects the riscv emitter; "qbe" without a target uses the host's
// QBE target.
func (c *Config) SetTarget(goos, goarch, target string) error {
	c.GOOS, c.GOARCH = goos, goarch
	backend, qbeTarget, _ := strings.Cut(target, "/")

	switch backend {
	case "", BackendRISCV:
		if qbeTarget != "" {
			return fmt.Errorf("backend '%s' does not take a target, got '%s'", BackendRISCV, qbeTarget)
		}
		c.Backend, c.QbeTarget = BackendRISCV, ""
	case BackendQBE:
		c.Backend = BackendQBE
		if qbeTarget == "" {
			qbeTarget = libqbe.DefaultTarget(goos, goarch)
		}
		switch qbeTarget {
		case "amd64_sysv", "amd64_apple", "arm64", "arm64_apple", "rv64":
		default:
			return fmt.Errorf("unsupported QBE target '%s'", qbeTarget)
		}
		c.QbeTarget = qbeTarget
	default:
		return fmt.Errorf("unsupported backend '%s'. Supported: '%s', '%s'", backend, BackendRISCV, BackendQBE)
	}
	return nil
}

func (c *Config) SetRegisters(n int) error {
	if n < 1 {
		return fmt.Errorf("register pool must hold at least one register, got %d", n)
	}
	c.Registers = n
	return nil
}

func (c *Config) SetFeature(ft Feature, enabled bool) {
	if info, ok := c.Features[ft]; ok {
		info.Enabled = enabled
		c.Features[ft] = info
	}
}

func (c *Config) IsFeatureEnabled(ft Feature) bool { return c.Features[ft].Enabled }

func (c *Config) SetWarning(wt Warning, enabled bool) {
	if info, ok := c.Warnings[wt]; ok {
		info.Enabled = enabled
		c.Warnings[wt] = info
	}
}

func (c *Config) IsWarningEnabled(wt Warning) bool { return c.Warnings[wt].Enabled }

func (c *Config) applyFlag(flag string) error {
	trimmed := strings.TrimPrefix(flag, "-")

	var name string
	var isWarning bool
	switch {
	case strings.HasPrefix(trimmed, "W"):
		name, isWarning = strings.TrimPrefix(trimmed, "W"), true
	case strings.HasPrefix(trimmed, "F"):
		name = strings.TrimPrefix(trimmed, "F")
	default:
		return fmt.Errorf("unknown directive flag '%s'", flag)
	}
	name, isNo := strings.CutPrefix(name, "no-")
	enable := !isNo

	if name == "all" && isWarning {
		for i := Warning(0); i < WarnCount; i++ {
			c.SetWarning(i, enable)
		}
		return nil
	}

	if isWarning {
		w, ok := c.WarningMap[name]
		if !ok {
			return fmt.Errorf("unknown warning '%s'", name)
		}
		c.SetWarning(w, enable)
		return nil
	}
	f, ok := c.FeatureMap[name]
	if !ok {
		return fmt.Errorf("unknown feature '%s'", name)
	}
	c.SetFeature(f, enable)
	return nil
}

// ProcessDirectiveFlags applies a whitespace separated list such as
// "-Wno-unused -Fno-fold".
func (c *Config) ProcessDirectiveFlags(flagStr string) error {
	for _, flag := range strings.Fields(flagStr) {
		if err := c.applyFlag(flag); err != nil {
			return err
		}
	}
	return nil
}

// SetupFlagGroups registers -W<name>/-Wno-<name> and -F<name>/-Fno-<name>
// on fs. The returned entries are indexed by Warning and Feature.
func (c *Config) SetupFlagGroups(fs *cli.FlagSet) (warningFlags, featureFlags []cli.FlagGroupEntry) {
	warningFlags = make([]cli.FlagGroupEntry, WarnCount)
	for i := Warning(0); i < WarnCount; i++ {
		info := c.Warnings[i]
		enabled, disabled := info.Enabled, false
		warningFlags[i] = cli.FlagGroupEntry{Name: info.Name, Prefix: "W", Usage: info.Description, Enabled: &enabled, Disabled: &disabled}
	}
	featureFlags = make([]cli.FlagGroupEntry, FeatCount)
	for i := Feature(0); i < FeatCount; i++ {
		info := c.Features[i]
		enabled, disabled := info.Enabled, false
		featureFlags[i] = cli.FlagGroupEntry{Name: info.Name, Prefix: "F", Usage: info.Description, Enabled: &enabled, Disabled: &disabled}
	}
	fs.AddFlagGroup("Warning Flags", "Enable or disable specific warnings", "warning", "Available Warnings:", warningFlags)
	fs.AddFlagGroup("Feature Flags", "Enable or disable specific features", "feature", "Available Features:", featureFlags)
	return warningFlags, featureFlags
}

// ApplyFlagGroups copies parsed flag group values back into the config.
// A -Wno-x given on the command line wins over -Wx.
func (c *Config) ApplyFlagGroups(warningFlags, featureFlags []cli.FlagGroupEntry) {
	for i, entry := range warningFlags {
		if entry.Enabled != nil {
			c.SetWarning(Warning(i), *entry.Enabled)
		}
		if entry.Disabled != nil && *entry.Disabled {
			c.SetWarning(Warning(i), false)
		}
	}
	for i, entry := range featureFlags {
		if entry.Enabled != nil {
			c.SetFeature(Feature(i), *entry.Enabled)
		}
		if entry.Disabled != nil && *entry.Disabled {
			c.SetFeature(Feature(i), false)
		}
	}
}
