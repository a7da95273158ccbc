package quiz

import (
	"errors"
	"testing"
	"time"
)

func sampleQuestion() Question {
	return Question{
		Prompt:      "What is 10% of 200?",
		Options:     []string{"10", "20", "30", "40"},
		Answer:      "20",
		Explanation: "200 * 10 / 100 = 20",
	}
}

func TestQuestion_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(q *Question)
		wantErr bool
	}{
		{"valid", func(q *Question) {}, false},
		{"empty prompt", func(q *Question) { q.Prompt = "  " }, true},
		{"one option", func(q *Question) { q.Options = []string{"20"} }, true},
		{"answer not an option", func(q *Question) { q.Answer = "25" }, true},
		{"duplicate options", func(q *Question) { q.Options = []string{"20", "20", "30"} }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := sampleQuestion()
			tt.mutate(&q)
			err := q.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidQuestion) {
					t.Fatalf("Validate() = %v, want ErrInvalidQuestion", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() = %v, want nil", err)
			}
		})
	}
}

func TestQuestion_AnswerIndex(t *testing.T) {
	q := sampleQuestion()
	if got := q.AnswerIndex(); got != 1 {
		t.Errorf("AnswerIndex() = %d, want 1", got)
	}
	if q.HasOption("25") {
		t.Error("HasOption(25) = true, want false")
	}
}

func TestSanitize(t *testing.T) {
	bad := sampleQuestion()
	bad.Answer = "nope"
	items := []Question{sampleQuestion(), bad, sampleQuestion(), sampleQuestion()}

	kept, dropped := Sanitize(items, 2)
	if len(kept) != 2 {
		t.Errorf("kept = %d, want 2", len(kept))
	}
	if dropped != 1 {
		t.Errorf("dropped = %d, want 1", dropped)
	}

	kept, _ = Sanitize(items, 0)
	if len(kept) != 3 {
		t.Errorf("kept without limit = %d, want 3", len(kept))
	}
}

func TestScore(t *testing.T) {
	qs := []Question{sampleQuestion(), sampleQuestion(), sampleQuestion()}
	answers := map[int]string{0: "20", 1: "10", 7: "20"}

	if got := Score(qs, answers, nil); got != 1 {
		t.Errorf("Score = %d, want 1", got)
	}
	if got := Score(qs, nil, ExactMatch); got != 0 {
		t.Errorf("Score with no answers = %d, want 0", got)
	}
}

func TestGraders(t *testing.T) {
	if ExactMatch(" 20", "20") {
		t.Error("ExactMatch should not trim")
	}
	if !Normalized(" Twenty ", "twenty") {
		t.Error("Normalized should trim and fold case")
	}
	if _, err := GraderFor("fuzzy"); err == nil {
		t.Error("expected error for unknown grader")
	}
	g, err := GraderFor("")
	if err != nil || g("a", "A") {
		t.Error("default grader should be exact")
	}
}

func TestParseMode(t *testing.T) {
	for _, in := range []string{"easy", "Moderate", " HARD ", "final"} {
		if _, err := ParseMode(in); err != nil {
			t.Errorf("ParseMode(%q) error: %v", in, err)
		}
	}
	if _, err := ParseMode("insane"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestMode_CountsAndBudgets(t *testing.T) {
	if ModeEasy.QuestionCount() != 20 || ModeFinal.QuestionCount() != 50 {
		t.Error("unexpected question counts")
	}
	if ModeHard.TimeBudget() != 1800*time.Second || ModeFinal.TimeBudget() != 3600*time.Second {
		t.Error("unexpected time budgets")
	}
}

func TestMode_Previous(t *testing.T) {
	if _, ok := ModeEasy.Previous(); ok {
		t.Error("easy should have no previous mode")
	}
	prev, ok := ModeFinal.Previous()
	if !ok || prev != ModeHard {
		t.Errorf("final.Previous() = %q, %v; want hard, true", prev, ok)
	}
}

func TestLookupTopic(t *testing.T) {
	tp, err := LookupTopic("percentages")
	if err != nil {
		t.Fatalf("LookupTopic error: %v", err)
	}
	if tp.Name != "Percentages" || tp.Section != SectionQuant {
		t.Errorf("unexpected topic %+v", tp)
	}
	if _, err := LookupTopic("Astrology"); err == nil {
		t.Error("expected error for unknown topic")
	}
	total := 0
	for _, s := range AllSections() {
		total += len(BySection(s))
	}
	if total != len(AllTopics()) {
		t.Errorf("sections cover %d topics, want %d", total, len(AllTopics()))
	}
}
