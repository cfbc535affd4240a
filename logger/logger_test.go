package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitialize(t *testing.T) {
	tests := []struct {
		name       string
		jsonOutput bool
		verbosity  int
	}{
		{name: "JSON output mode", jsonOutput: true, verbosity: 0},
		{name: "Console output mode", jsonOutput: false, verbosity: 1},
		{name: "Console debug mode", jsonOutput: false, verbosity: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Logger = nil
			JSONOutput = false

			if err := Initialize(tt.jsonOutput, tt.verbosity); err != nil {
				t.Fatalf("Initialize() error = %v", err)
			}
			if Logger == nil {
				t.Fatal("Initialize() did not set global Logger")
			}
			if JSONOutput != tt.jsonOutput {
				t.Errorf("Initialize() JSONOutput = %v, want %v", JSONOutput, tt.jsonOutput)
			}
			if !Logger.Desugar().Core().Enabled(VerbosityToLevel(tt.verbosity)) {
				t.Errorf("level %v should be enabled", VerbosityToLevel(tt.verbosity))
			}

			Logger.Sync()
			Logger = zap.NewNop().Sugar()
		})
	}
}

func TestVerbosityToLevel(t *testing.T) {
	tests := []struct {
		verbosity int
		want      zapcore.Level
	}{
		{-1, zapcore.WarnLevel},
		{0, zapcore.WarnLevel},
		{1, zapcore.InfoLevel},
		{2, zapcore.DebugLevel},
		{7, zapcore.DebugLevel},
	}
	for _, tt := range tests {
		if got := VerbosityToLevel(tt.verbosity); got != tt.want {
			t.Errorf("VerbosityToLevel(%d) = %v, want %v", tt.verbosity, got, tt.want)
		}
	}
}

func TestLevelName(t *testing.T) {
	if got := LevelName(0); got != "User" {
		t.Errorf("LevelName(0) = %q", got)
	}
	if got := LevelName(5); got != "Debug (-vv+)" {
		t.Errorf("LevelName(5) = %q", got)
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatal("OrNop(nil) returned nil")
	}
	l := zap.NewExample().Sugar()
	if OrNop(l) != l {
		t.Error("OrNop should return the given logger unchanged")
	}
}

func TestWithSymbolAndContextFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	base := zap.New(core).Sugar()

	ctx := WithOperation(WithComponent(context.Background(), "table"), "insert")
	FromContext(ctx, WithSymbol(base, "⊔")).Infow("Inserted rows", FieldCount, 3)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields[FieldSymbol] != "⊔" {
		t.Errorf("symbol field = %v", fields[FieldSymbol])
	}
	if fields[FieldComponent] != "table" || fields[FieldOperation] != "insert" {
		t.Errorf("context fields missing: %v", fields)
	}
	if fields[FieldCount] != int64(3) {
		t.Errorf("count field = %v (%T)", fields[FieldCount], fields[FieldCount])
	}
}

func TestFieldsFromEmptyContext(t *testing.T) {
	if fields := FieldsFromContext(context.Background()); len(fields) != 0 {
		t.Errorf("expected no fields, got %v", fields)
	}
}

func TestShouldOutput(t *testing.T) {
	tests := []struct {
		verbosity int
		category  OutputCategory
		want      bool
	}{
		{VerbosityUser, OutputResults, true},
		{VerbosityUser, OutputSummary, false},
		{VerbosityInfo, OutputSummary, true},
		{VerbosityInfo, OutputTiming, false},
		{VerbosityDebug, OutputSQL, true},
		{VerbosityDebug, OutputCategory(99), true},
		{VerbosityInfo, OutputCategory(99), false},
	}
	for _, tt := range tests {
		if got := ShouldOutput(tt.verbosity, tt.category); got != tt.want {
			t.Errorf("ShouldOutput(%d, %s) = %v, want %v", tt.verbosity, CategoryName(tt.category), got, tt.want)
		}
	}
}
