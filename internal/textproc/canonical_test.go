package textproc

import (
	"regexp"
	"strings"
	"testing"
)

func TestCanonicalizeStripsEnglishSentence(t *testing.T) {
	got := Canonicalize("Good morning aap kaise hain?")
	want := "Good morning aap kaise hain"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestCanonicalizeHindiSentence(t *testing.T) {
	got := Canonicalize("नमस्ते! आज कैसा दिन है?")
	want := "नमस्ते आज कैसा दिन है"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestCanonicalizeShortTextUntouched(t *testing.T) {
	// Short utterances keep their punctuation; restructuring them is not
	// worth the risk.
	got := Canonicalize("  नमस्ते!  ")
	if got != "नमस्ते!" {
		t.Fatalf("got %q", got)
	}
}

func TestCanonicalizeWhitespaceOnlyUnchanged(t *testing.T) {
	input := "   \t  "
	if got := Canonicalize(input); got != input {
		t.Fatalf("whitespace-only input changed: %q", got)
	}
}

func TestCanonicalizeMixedContent(t *testing.T) {
	input := "Hello यह एक test है, आज का weather बहुत अच्छा है!"
	got := Canonicalize(input)
	for _, bad := range []string{"!", "?", "।", ",", ";", ":"} {
		if strings.Contains(got, bad) {
			t.Fatalf("splitting punctuation %q survived: %q", bad, got)
		}
	}
	if strings.Contains(got, "  ") {
		t.Fatalf("double space survived: %q", got)
	}
}

func TestCanonicalizeIdempotent(t *testing.T) {
	inputs := []string{
		"Good morning aap kaise hain?",
		"नमस्ते! आज कैसा दिन है?",
		"Hello यह एक test है, आज का weather बहुत अच्छा है!",
		"What -- is   this?? \"Quoted\" text… okay then; fine:",
		"नमस्ते।। आज कैसा दिन है।",
		"a long sentence with no punctuation at all in it",
	}
	for _, input := range inputs {
		once := Canonicalize(input)
		twice := Canonicalize(once)
		if once != twice {
			t.Fatalf("not idempotent for %q:\n once=%q\ntwice=%q", input, once, twice)
		}
	}
}

func TestCanonicalizeQuotesAndDashes(t *testing.T) {
	got := Canonicalize("\"Quoted\" text – with dashes — and 'more' here")
	if strings.ContainsAny(got, "\"'–—") {
		t.Fatalf("quotes or dashes survived: %q", got)
	}
}

var punctAndSpace = regexp.MustCompile(`[\s.!?।,;:]+`)

func TestPlanStreamReconstruction(t *testing.T) {
	input := "नमस्ते दोस्तों कैसे हैं आप सब. Today is a really good day everyone! मौसम बहुत अच्छा लग रहा है आज."
	plan := PlanStream(input)
	if len(plan.Chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(plan.Chunks))
	}
	var texts []string
	for i, chunk := range plan.Chunks {
		if chunk.Index != i {
			t.Fatalf("chunk %d carries index %d", i, chunk.Index)
		}
		texts = append(texts, chunk.Text)
	}
	joined := punctAndSpace.ReplaceAllString(strings.Join(texts, " "), " ")
	whole := punctAndSpace.ReplaceAllString(Canonicalize(input), " ")
	if strings.TrimSpace(joined) != strings.TrimSpace(whole) {
		t.Fatalf("reconstruction mismatch:\nchunks=%q\n whole=%q", joined, whole)
	}
}

func TestPlanStreamChunkLanguages(t *testing.T) {
	plan := PlanStream("This sentence is English only. यह वाक्य पूरी तरह हिंदी है।")
	if len(plan.Chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(plan.Chunks))
	}
	if plan.Chunks[0].Lang != LangEnglish {
		t.Fatalf("chunk 0 lang %q, want en", plan.Chunks[0].Lang)
	}
	if plan.Chunks[1].Lang != LangHindi {
		t.Fatalf("chunk 1 lang %q, want hi", plan.Chunks[1].Lang)
	}
}

func TestPlanStreamDropsEmptySentences(t *testing.T) {
	plan := PlanStream("First sentence here...!!! ...")
	if len(plan.Chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(plan.Chunks))
	}
}

func TestPlanSingleAlwaysOneChunk(t *testing.T) {
	input := "One sentence. Two sentences! तीन वाक्य। Four sentences?"
	plan := PlanSingle(input)
	if len(plan.Chunks) != 1 {
		t.Fatalf("single-shot plan must have exactly one chunk, got %d", len(plan.Chunks))
	}
	if plan.Chunks[0].Index != 0 {
		t.Fatalf("unexpected chunk index %d", plan.Chunks[0].Index)
	}
}

func TestLanguageThreshold(t *testing.T) {
	// Ratio 0.25 is below the 0.3 line: English wins. 0.4 crosses it.
	en := PlanSingle("one two three हाँ")
	if en.Language != LangEnglish {
		t.Fatalf("ratio 0.25 should tag en, got %q", en.Language)
	}
	hi := PlanSingle("one two three हाँ नहीं")
	if hi.Language != LangHindi {
		t.Fatalf("ratio 0.4 should tag hi, got %q", hi.Language)
	}
}
