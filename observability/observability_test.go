package observability

import (
	"bytes"
	"strings"
	"testing"
)

func TestFieldsCarryKeyAndValue(t *testing.T) {
	f := String("page", "3")
	if f.Key() != "page" || f.Value() != "3" {
		t.Fatalf("unexpected field: %s=%v", f.Key(), f.Value())
	}
	n := Int("count", 7)
	if n.Value() != 7 {
		t.Fatalf("unexpected int field value: %v", n.Value())
	}
}

func TestZerologLoggerWritesStructuredOutput(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerologLogger(ZerologConfig{Level: "debug", Output: &buf})
	log.Info("page arbitrated", String("source", "hybrid"), Int("page", 2))

	out := buf.String()
	if !strings.Contains(out, `"source":"hybrid"`) {
		t.Fatalf("missing string field in output: %s", out)
	}
	if !strings.Contains(out, `"page":2`) {
		t.Fatalf("missing int field in output: %s", out)
	}
}

func TestZerologLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerologLogger(ZerologConfig{Level: "error", Output: &buf})
	log.Info("should be suppressed")
	if buf.Len() != 0 {
		t.Fatalf("info logged at error level: %s", buf.String())
	}
}

func TestWithAttachesContext(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerologLogger(ZerologConfig{Level: "info", Output: &buf})
	log.With(String("file", "scan.pdf")).Info("document built")
	if !strings.Contains(buf.String(), `"file":"scan.pdf"`) {
		t.Fatalf("context field missing: %s", buf.String())
	}
}
