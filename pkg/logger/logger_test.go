package logger

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestGetBeforeInit(t *testing.T) {
	mu.Lock()
	saved := global
	global = nil
	mu.Unlock()
	defer func() {
		mu.Lock()
		global = saved
		mu.Unlock()
	}()

	l := Get()
	if l == nil {
		t.Fatal("Get returned nil before Init")
	}
	l.Info(context.Background(), "dropped")
}

func TestInitWithJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWith(&buf, FormatJSON); err != nil {
		t.Fatalf("init: %v", err)
	}
	defer func() { _ = Init() }()
	_ = SetLevelString("info")

	Get().Info(context.Background(), "settled",
		String("run", "abc"),
		Int("participants", 3),
		Float64("pool", 1.2),
		Bool("reseeded", false),
		Duration("took", 1500*time.Millisecond),
		Error(errors.New("boom")),
	)

	out := buf.String()
	for _, want := range []string{`"msg":"settled"`, `"run":"abc"`, `"participants":3`, `"pool":1.2`, `"took":"1.5s"`, `"source":`} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWith(&buf, FormatText); err != nil {
		t.Fatalf("init: %v", err)
	}
	defer func() {
		_ = SetLevelString("info")
		_ = Init()
	}()

	if err := SetLevelString("warn"); err != nil {
		t.Fatalf("set level: %v", err)
	}
	ctx := context.Background()
	Get().Debug(ctx, "debug-line")
	Get().Info(ctx, "info-line")
	Get().Warn(ctx, "warn-line")

	out := buf.String()
	if strings.Contains(out, "debug-line") || strings.Contains(out, "info-line") {
		t.Errorf("lower levels leaked: %q", out)
	}
	if !strings.Contains(out, "warn-line") {
		t.Errorf("warn line missing: %q", out)
	}
}

func TestNamedGroupsFields(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWith(&buf, FormatJSON); err != nil {
		t.Fatalf("init: %v", err)
	}
	defer func() { _ = Init() }()
	_ = SetLevelString("info")

	Named("settlement").Info(context.Background(), "hello", String("k", "v"))
	if !strings.Contains(buf.String(), `"settlement":{"k":"v"`) {
		t.Errorf("named group missing: %q", buf.String())
	}
}

func TestInitWithUnknownFormat(t *testing.T) {
	if err := InitWith(&bytes.Buffer{}, "xml"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestSetLevelString(t *testing.T) {
	defer func() { _ = SetLevelString("info") }()
	for _, lvl := range []string{"debug", "INFO", "warning", "error", ""} {
		if err := SetLevelString(lvl); err != nil {
			t.Errorf("level %q: %v", lvl, err)
		}
	}
	if err := SetLevelString("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}
