package onboarding

import "testing"

func TestSectionOrder(t *testing.T) {
	want := []string{"personal", "experience", "education", "skills", "projects"}
	sections := Sections()
	if len(sections) != len(want) {
		t.Fatalf("expected %d sections, got %d", len(want), len(sections))
	}
	for i, s := range sections {
		if s.String() != want[i] {
			t.Errorf("section %d: expected %q got %q", i, want[i], s.String())
		}
	}
}

func TestParseRoundTrip(t *testing.T) {
	for _, s := range Sections() {
		parsed, err := Parse(s.String())
		if err != nil {
			t.Fatalf("parse %q: %v", s.String(), err)
		}
		if parsed != s {
			t.Errorf("round trip %q: got %v", s.String(), parsed)
		}
	}

	if _, err := Parse("bogus"); err == nil {
		t.Error("expected error for unknown section name")
	}
}

func TestAdvanceWalksWholeFlow(t *testing.T) {
	current := First()
	steps := 0
	for !current.IsTerminal() {
		next := Advance(current)
		if next != current+1 {
			t.Fatalf("advance from %v: expected %v got %v", current, current+1, next)
		}
		current = next
		steps++
		if steps > len(Sections()) {
			t.Fatal("advance did not terminate")
		}
	}
	if current != SectionProjects {
		t.Fatalf("flow should end at projects, got %v", current)
	}
}

func TestAdvanceAtTerminalStays(t *testing.T) {
	if got := Advance(SectionProjects); got != SectionProjects {
		t.Fatalf("terminal section should not advance, got %v", got)
	}
	if _, ok := SectionProjects.Next(); ok {
		t.Fatal("terminal section should have no next")
	}
}
