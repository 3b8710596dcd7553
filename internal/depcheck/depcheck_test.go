package depcheck

import (
	"strings"
	"testing"
)

func TestProbeReportsMissingTools(t *testing.T) {
	sum := Probe([]string{"definitely-not-a-real-binary-xyzzy"})
	if len(sum.Statuses) != 1 {
		t.Fatalf("statuses = %d, want 1", len(sum.Statuses))
	}
	if sum.Statuses[0].OK {
		t.Error("nonexistent binary reported as found")
	}
	missing := sum.Missing()
	if len(missing) != 1 || missing[0] != "definitely-not-a-real-binary-xyzzy" {
		t.Errorf("missing = %v", missing)
	}
}

func TestProbeFindsCommonBinary(t *testing.T) {
	// "sh" exists on every platform this pipeline supports.
	sum := Probe([]string{"sh"})
	if !sum.Statuses[0].OK {
		t.Skip("sh not on PATH; environment too minimal to assert")
	}
	if sum.Statuses[0].Path == "" {
		t.Error("found tool has empty path")
	}
	if len(sum.Missing()) != 0 {
		t.Errorf("missing = %v, want none", sum.Missing())
	}
}

func TestMissingErrorMessage(t *testing.T) {
	err := &MissingError{Tools: []string{Java, Rscript}}
	msg := err.Error()
	for _, want := range []string{"java", "Rscript", "plaac.jar"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error message %q missing %q", msg, want)
		}
	}
}

func TestProbeHasNoSideEffects(t *testing.T) {
	// Probing twice must yield identical results; a probe never installs.
	a := Probe([]string{Java, Rscript, Pdftoppm})
	b := Probe([]string{Java, Rscript, Pdftoppm})
	for i := range a.Statuses {
		if a.Statuses[i].OK != b.Statuses[i].OK {
			t.Errorf("probe result for %s changed between calls", a.Statuses[i].Tool)
		}
	}
}
