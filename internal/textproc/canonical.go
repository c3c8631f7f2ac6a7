package textproc

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Empirically tuned constants. The thresholds come from listening tests on
// code-mixed material; behavior parity matters more than the exact values,
// so they are kept as-is rather than re-derived.
const (
	// Inputs at or below this rune count are returned untouched; short
	// utterances are not worth restructuring.
	shortTextLimit = 20

	// Strictly between these two ratios the text is treated as mixed
	// (Hinglish) content and gets the transition-smoothing pass.
	mixedLowRatio  = 0.2
	mixedHighRatio = 0.8

	// Above this ratio a chunk is synthesized as Hindi.
	hindiChunkRatio = 0.3
)

// Punctuation the synthesis engine treats as hard sentence boundaries.
// Leaving any of it in place makes the engine re-split text internally,
// which bleeds voice and language across sentence fragments.
var (
	wsRun          = regexp.MustCompile(`\s+`)
	hardSplitters  = regexp.MustCompile(`[!।?]`)
	clauseSplitter = regexp.MustCompile(`[,;:]`)
	periodBeforeWS = regexp.MustCompile(`\.(\s)`)
	trailingPeriod = regexp.MustCompile(`\.$`)
	quoteMarks     = regexp.MustCompile("[\"“”'‘’`]")
	dashVariants   = regexp.MustCompile(`[-–—]`)

	multiComma  = regexp.MustCompile(`,{2,}`)
	multiPeriod = regexp.MustCompile(`\.{2,}`)
	multiDanda  = regexp.MustCompile(`।{2,}`)

	latinThenDeva = regexp.MustCompile(`([A-Za-z])\s{2,}(\p{Devanagari})`)
	devaThenLatin = regexp.MustCompile(`(\p{Devanagari})\s{2,}([A-Za-z])`)

	// Spacing repair covers surviving splitters and commas only. Periods
	// are excluded: inserting a space after an embedded period would give
	// a second pass new boundaries to rewrite, and canonical output has to
	// be a fixpoint of Canonicalize.
	splitterThenGlyph = regexp.MustCompile(`([।!?])\s*(\S)`)
	commaThenGlyph    = regexp.MustCompile(`(,)(\S)`)

	sentenceEnders = regexp.MustCompile(`[.!?।]+`)
)

// Canonicalize rewrites text so the engine synthesizes it in a single pass.
// The result is stable: canonicalizing a canonical string returns it
// unchanged.
func Canonicalize(text string) string {
	if strings.TrimSpace(text) == "" {
		// No tokens at all; hand the input back untouched.
		return text
	}
	if utf8.RuneCountInString(text) <= shortTextLimit {
		return strings.TrimSpace(text)
	}

	out := strings.TrimSpace(wsRun.ReplaceAllString(text, " "))
	ratio := HindiRatio(Segment(out))

	out = hardSplitters.ReplaceAllString(out, " ")
	out = clauseSplitter.ReplaceAllString(out, " ")
	out = periodBeforeWS.ReplaceAllString(out, " $1")
	out = trailingPeriod.ReplaceAllString(out, "")
	out = quoteMarks.ReplaceAllString(out, "")
	out = dashVariants.ReplaceAllString(out, " ")

	if ratio > mixedLowRatio && ratio < mixedHighRatio {
		// Mixed content: collapse stray punctuation runs and the
		// multi-space gaps the strip above leaves at script switches.
		out = multiComma.ReplaceAllString(out, ",")
		out = multiPeriod.ReplaceAllString(out, ".")
		out = latinThenDeva.ReplaceAllString(out, "$1 $2")
		out = devaThenLatin.ReplaceAllString(out, "$1 $2")
	} else {
		// Near-monolingual: collapse repeated enders and keep a single
		// space after any splitter that survived the strip.
		out = multiDanda.ReplaceAllString(out, "।")
		out = multiPeriod.ReplaceAllString(out, ".")
		out = splitterThenGlyph.ReplaceAllString(out, "$1 $2")
	}

	out = commaThenGlyph.ReplaceAllString(out, "$1 $2")
	return strings.TrimSpace(wsRun.ReplaceAllString(out, " "))
}

// Chunk is one synthesis unit: the raw sentence, its synthesis-safe form,
// and the single language the engine will be told to use for it.
type Chunk struct {
	Index int
	Raw   string
	Text  string
	Lang  string
}

// Plan is an ordered chunk sequence for one request.
type Plan struct {
	Chunks     []Chunk
	HindiRatio float64
	Language   string
}

// PlanSingle returns a one-chunk plan covering the whole input. Single-shot
// requests always synthesize in one engine call regardless of length.
func PlanSingle(text string) Plan {
	ratio := HindiRatio(Segment(text))
	return Plan{
		Chunks: []Chunk{{
			Index: 0,
			Raw:   strings.TrimSpace(text),
			Text:  Canonicalize(text),
			Lang:  languageFor(ratio),
		}},
		HindiRatio: ratio,
		Language:   languageFor(ratio),
	}
}

// PlanStream splits the input into natural sentence units for streaming.
// Boundaries come from the pre-strip text, since canonicalization removes
// the very punctuation that marks them. Sentences keep their input order
// and are never length-capped: fixed windows truncate mid-phrase and bring
// the boundary artifacts back.
func PlanStream(text string) Plan {
	normalized := strings.TrimSpace(wsRun.ReplaceAllString(text, " "))
	ratio := HindiRatio(Segment(normalized))

	var chunks []Chunk
	for _, sentence := range sentenceEnders.Split(normalized, -1) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Raw:   sentence,
			Text:  Canonicalize(sentence),
			Lang:  languageFor(HindiRatio(Segment(sentence))),
		})
	}
	return Plan{Chunks: chunks, HindiRatio: ratio, Language: languageFor(ratio)}
}

func languageFor(hindiRatio float64) string {
	if hindiRatio > hindiChunkRatio {
		return LangHindi
	}
	return LangEnglish
}
