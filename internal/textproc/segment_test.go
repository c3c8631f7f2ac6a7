package textproc

import "testing"

func TestSegmentTagsOnlyHindiOrEnglish(t *testing.T) {
	inputs := []string{
		"Good morning aap kaise hain?",
		"नमस्ते! आज कैसा दिन है?",
		"Hello यह एक test है 123 ...",
		"",
		"   ",
	}
	for _, input := range inputs {
		tokens := Segment(input)
		for _, tok := range tokens {
			if tok.Lang != LangHindi && tok.Lang != LangEnglish {
				t.Fatalf("token %q got tag %q", tok.Text, tok.Lang)
			}
		}
		ratio := HindiRatio(tokens)
		if ratio < 0 || ratio > 1 {
			t.Fatalf("hindi ratio out of range for %q: %f", input, ratio)
		}
	}
}

func TestSegmentEmptyInput(t *testing.T) {
	if tokens := Segment("   "); tokens != nil {
		t.Fatalf("expected nil tokens for whitespace input, got %v", tokens)
	}
	if ratio := HindiRatio(nil); ratio != 0 {
		t.Fatalf("expected ratio 0 for no tokens, got %f", ratio)
	}
}

func TestSegmentRomanHindiIsEnglish(t *testing.T) {
	// Script-only detection: romanized Hindi carries no Devanagari code
	// points, so every token is tagged "en".
	tokens := Segment("Good morning aap kaise hain?")
	if len(tokens) != 5 {
		t.Fatalf("expected 5 tokens, got %d", len(tokens))
	}
	for _, tok := range tokens {
		if tok.Lang != LangEnglish {
			t.Fatalf("token %q tagged %q, want en", tok.Text, tok.Lang)
		}
	}
	if ratio := HindiRatio(tokens); ratio != 0 {
		t.Fatalf("expected ratio 0, got %f", ratio)
	}
}

func TestSegmentDevanagariIsHindi(t *testing.T) {
	tokens := Segment("नमस्ते! आज कैसा दिन है?")
	if ratio := HindiRatio(tokens); ratio != 1 {
		t.Fatalf("expected ratio 1, got %f", ratio)
	}
}

func TestSegmentPunctuationDefaultsToHindi(t *testing.T) {
	tokens := Segment("... 123 !!")
	for _, tok := range tokens {
		if tok.Lang != LangHindi {
			t.Fatalf("ambiguous token %q tagged %q, want hi", tok.Text, tok.Lang)
		}
	}
}
