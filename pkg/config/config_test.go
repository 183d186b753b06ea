package config

import (
	"testing"

	"github.com/xplshn/lrc/pkg/cli"
	"modernc.org/libqbe"
)

func TestDefaults(t *testing.T) {
	cfg := NewConfig()
	if cfg.Backend != BackendRISCV || cfg.Registers != DefaultRegisters {
		t.Errorf("Backend = %q, Registers = %d", cfg.Backend, cfg.Registers)
	}
	for ft, want := range map[Feature]bool{FeatFold: true, FeatAsmComments: true, FeatTrace: false, FeatStrictDecl: false} {
		if got := cfg.IsFeatureEnabled(ft); got != want {
			t.Errorf("feature %s enabled = %v, want %v", cfg.Features[ft].Name, got, want)
		}
	}
	for wt, want := range map[Warning]bool{WarnImplicitDecl: true, WarnUnused: true, WarnDeadStore: false, WarnUnreachableCode: true, WarnExtra: false} {
		if got := cfg.IsWarningEnabled(wt); got != want {
			t.Errorf("warning %s enabled = %v, want %v", cfg.Warnings[wt].Name, got, want)
		}
	}
	if len(cfg.FeatureMap) != int(FeatCount) || len(cfg.WarningMap) != int(WarnCount) {
		t.Errorf("name maps hold %d features and %d warnings", len(cfg.FeatureMap), len(cfg.WarningMap))
	}
}

func TestProcessDirectiveFlags(t *testing.T) {
	cfg := NewConfig()
	if err := cfg.ProcessDirectiveFlags("-Wno-unused  -Fno-fold -Ftrace -Wdead-store"); err != nil {
		t.Fatal(err)
	}
	if cfg.IsWarningEnabled(WarnUnused) || cfg.IsFeatureEnabled(FeatFold) {
		t.Error("-no- flags were not applied")
	}
	if !cfg.IsFeatureEnabled(FeatTrace) || !cfg.IsWarningEnabled(WarnDeadStore) {
		t.Error("enabling flags were not applied")
	}

	if err := cfg.ProcessDirectiveFlags("-Wall"); err != nil {
		t.Fatal(err)
	}
	for w := Warning(0); w < WarnCount; w++ {
		if !cfg.IsWarningEnabled(w) {
			t.Errorf("-Wall left %s disabled", cfg.Warnings[w].Name)
		}
	}
	if err := cfg.ProcessDirectiveFlags("-Wno-all"); err != nil {
		t.Fatal(err)
	}
	if cfg.IsWarningEnabled(WarnImplicitDecl) {
		t.Error("-Wno-all left implicit-decl enabled")
	}

	for _, bad := range []string{"-Wnope", "-Fall", "-Xfoo", "unused"} {
		if err := NewConfig().ProcessDirectiveFlags(bad); err == nil {
			t.Errorf("ProcessDirectiveFlags(%q) succeeded", bad)
		}
	}
}

func TestClone(t *testing.T) {
	cfg := NewConfig()
	c := cfg.Clone()
	c.SetFeature(FeatFold, false)
	c.SetWarning(WarnUnused, false)
	if !cfg.IsFeatureEnabled(FeatFold) || !cfg.IsWarningEnabled(WarnUnused) {
		t.Error("changes to the clone leaked into the original")
	}
}

func TestSetTarget(t *testing.T) {
	tests := []struct {
		target    string
		backend   string
		qbeTarget string
		wantErr   bool
	}{
		{target: "", backend: BackendRISCV},
		{target: "riscv", backend: BackendRISCV},
		{target: "qbe", backend: BackendQBE, qbeTarget: libqbe.DefaultTarget("linux", "amd64")},
		{target: "qbe/rv64", backend: BackendQBE, qbeTarget: "rv64"},
		{target: "qbe/arm64_apple", backend: BackendQBE, qbeTarget: "arm64_apple"},
		{target: "qbe/pdp11", wantErr: true},
		{target: "riscv/rv64", wantErr: true},
		{target: "llvm", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			cfg := NewConfig()
			err := cfg.SetTarget("linux", "amd64", tt.target)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SetTarget(%q) error = %v, wantErr %v", tt.target, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if cfg.Backend != tt.backend || cfg.QbeTarget != tt.qbeTarget {
				t.Errorf("Backend = %q, QbeTarget = %q; want %q, %q", cfg.Backend, cfg.QbeTarget, tt.backend, tt.qbeTarget)
			}
			if cfg.GOOS != "linux" || cfg.GOARCH != "amd64" {
				t.Errorf("GOOS/GOARCH = %s/%s", cfg.GOOS, cfg.GOARCH)
			}
		})
	}
}

func TestSetRegisters(t *testing.T) {
	cfg := NewConfig()
	if err := cfg.SetRegisters(0); err == nil {
		t.Error("SetRegisters(0) succeeded")
	}
	if err := cfg.SetRegisters(3); err != nil || cfg.Registers != 3 {
		t.Errorf("SetRegisters(3) = %v, Registers = %d", err, cfg.Registers)
	}
}

func TestFlagGroups(t *testing.T) {
	cfg := NewConfig()
	fs := cli.NewFlagSet("test")
	warningFlags, featureFlags := cfg.SetupFlagGroups(fs)
	if err := fs.Parse([]string{"-Wno-unused", "-Wdead-store", "-Fstrict-decl", "-Fno-asm-comments"}); err != nil {
		t.Fatal(err)
	}
	cfg.ApplyFlagGroups(warningFlags, featureFlags)

	if cfg.IsWarningEnabled(WarnUnused) || !cfg.IsWarningEnabled(WarnDeadStore) || !cfg.IsWarningEnabled(WarnImplicitDecl) {
		t.Error("warning flags were not applied")
	}
	if !cfg.IsFeatureEnabled(FeatStrictDecl) || cfg.IsFeatureEnabled(FeatAsmComments) || !cfg.IsFeatureEnabled(FeatFold) {
		t.Error("feature flags were not applied")
	}
}
