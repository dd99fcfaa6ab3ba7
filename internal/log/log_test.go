package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" INFO ":  slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := NewText(&buf, slog.LevelInfo, ComponentBill)
	l.Info("hello", "k", "v")
	l.Debug("hidden")

	out := buf.String()
	if !strings.Contains(out, "component=bill") || !strings.Contains(out, "k=v") {
		t.Fatalf("missing fields in %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line should be filtered at info level: %q", out)
	}
}

func TestWithComponentReplacesComponent(t *testing.T) {
	var buf bytes.Buffer
	l := NewText(&buf, slog.LevelInfo, ComponentApp).With("request_id", "r1").WithComponent(ComponentHTTP)
	l.Info("hello")

	out := buf.String()
	if strings.Count(out, "component=") != 1 || !strings.Contains(out, "component=http") {
		t.Fatalf("want a single http component in %q", out)
	}
	if !strings.Contains(out, "request_id=r1") || l.Component() != ComponentHTTP {
		t.Fatalf("attributes lost: %q", out)
	}
}

func TestStructuredLoggerBillFields(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(NewText(&buf, slog.LevelDebug, ComponentApp))
	ctx := context.Background()

	sl.LogBillChanged(ctx, OpCreate, "id-1", "Power", 12050, "Utilities")
	sl.LogOptimized(ctx, 5000, 4, 2, 4500)
	sl.LogError(ctx, "boom", errors.New("disk full"), ComponentStorage, OpCreate, NewFields())

	out := buf.String()
	for _, want := range []string{
		"bill_id=id-1", "amount_cents=12050", "category=Utilities", "operation=create",
		"budget_cents=5000", "selected_count=2", "selected_cents=4500", "candidates=4",
		`error="disk full"`, "component=storage",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	base := NewText(&buf, slog.LevelInfo, ComponentHTTP)

	got := FromContext(NewContext(context.Background(), base.With(FieldRequestID, "req-9")))
	got.Info("inside")

	if got.Component() != ComponentHTTP {
		t.Fatalf("component = %q", got.Component())
	}
	if !strings.Contains(buf.String(), "request_id=req-9") {
		t.Fatalf("request id missing: %q", buf.String())
	}

	if fallback := FromContext(context.Background()); fallback.Component() != "unknown" {
		t.Fatalf("fallback component = %q", fallback.Component())
	}
}
