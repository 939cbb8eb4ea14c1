package canvasrenderer

import (
	"bytes"
	"math"
	"testing"

	"github.com/ByLCY/marginalia/errors"
	"github.com/ByLCY/marginalia/layout"
	"github.com/ByLCY/marginalia/renderer"
)

func sampleResult(t *testing.T, ts layout.Typesetter) *layout.Result {
	t.Helper()
	res, err := layout.Compute(layout.Input{
		Text: "Woman in NAD with h/o CAD, MD2, asthma and HTN on rampil for 8 years.",
		Annotations: []layout.AnnotationGroup{
			{Key: "diagnosis", Values: []layout.Span{{Start: 9, End: 12}, {Start: 22, End: 25}}},
			{Key: "medication", Color: "#f58231", Values: []layout.Span{{Start: 50, End: 56}}},
		},
		Relations: []layout.RelationGroup{
			{Key: "treats", Directional: true, Values: []layout.RelationSpan{{FromStart: 50, FromEnd: 56, ToStart: 43, ToEnd: 46}}},
		},
		Meta: layout.DocumentMeta{Title: "Triage note", Creator: "marginalia"},
	}, layout.BuildOptions{Typesetter: ts, UI: layout.UIOptions{ContainerWidth: 300}})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	return res
}

func TestCharWidthMeasuresMonospaceFont(t *testing.T) {
	r := NewRenderer()
	w20, err := r.CharWidth(20)
	if err != nil {
		t.Fatalf("CharWidth: %v", err)
	}
	if w20 <= 0 || w20 >= 20 {
		t.Fatalf("unexpected char width %g for 20px", w20)
	}
	w40, _ := r.CharWidth(40)
	if math.Abs(w40-2*w20) > 1e-6 {
		t.Fatalf("char width should scale with font size: %g vs %g", w40, w20)
	}

	res := sampleResult(t, r)
	if math.Abs(res.Metrics.CharWidth-w20) > 1e-9 {
		t.Fatalf("layout did not use the measured width: %g vs %g", res.Metrics.CharWidth, w20)
	}
}

func TestRenderFormats(t *testing.T) {
	r := NewRenderer()
	res := sampleResult(t, r)
	signatures := map[renderer.Format][]byte{
		renderer.FormatPDF: []byte("%PDF"),
		renderer.FormatSVG: []byte("<svg"),
		renderer.FormatPNG: []byte("\x89PNG"),
	}
	for format, sig := range signatures {
		data, err := r.Render(res, format)
		if err != nil {
			t.Fatalf("Render(%s): %v", format, err)
		}
		if !bytes.Contains(data[:min(len(data), 256)], sig) {
			t.Fatalf("Render(%s) output does not look like %s", format, format)
		}
	}
}

func TestRenderErrors(t *testing.T) {
	r := NewRenderer()
	if _, err := r.Render(nil, renderer.FormatPDF); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT, got %v", err)
	}
	if _, err := r.Render(sampleResult(t, nil), renderer.Format("gif")); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Fatalf("expected INVALID_FORMAT, got %v", err)
	}
	bad := NewRendererWithOptions(Options{Font: "embed:missing"})
	if _, err := bad.CharWidth(20); !errors.Is(err, errors.ErrCodeInternal) {
		t.Fatalf("expected INTERNAL_ERROR for missing font, got %v", err)
	}
}
