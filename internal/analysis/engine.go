// Package analysis scores resume text against fixed heuristic rubrics.
package analysis

import (
	"math"
	"regexp"
	"strings"
)

const (
	minContentScore = 2.0
	maxScore        = 10.0
	baseScore       = 5.0

	sufficientWords = 300
	minBlankLines   = 5
	minBulletLines  = 5
	minSections     = 3
	maxSuggestions  = 5
)

const (
	contentWeight    = 0.4
	formattingWeight = 0.3
	atsWeight        = 0.3
)

// Findings emitted by the rubrics.
const (
	StrengthLength     = "Resume has sufficient length."
	WeaknessLength     = "Resume is too short. Aim for at least 300 words."
	StrengthSummary    = "Resume includes a summary or objective section."
	WeaknessSummary    = "Consider adding a summary or objective section."
	StrengthWhitespace = "Good use of whitespace for readability."
	WeaknessWhitespace = "Consider adding more spacing for better readability."
	StrengthBullets    = "Effective use of bullet points."
	WeaknessBullets    = "Use bullet points to structure content more clearly."
	StrengthNoTables   = "No tables detected, good for ATS parsing."
	WeaknessTables     = "Avoid using tables; they can confuse ATS."
	StrengthSections   = "Resume contains standard sections recognizable by ATS."
	WeaknessSections   = "Include standard sections like Experience, Education, Skills."

	SuggestionPrefix = "Improve: "
)

var bulletMarkers = []string{"-", "•"}

var sectionPatterns = func() []*regexp.Regexp {
	names := []string{"experience", "education", "skills", "projects"}
	out := make([]*regexp.Regexp, len(names))
	for i, name := range names {
		out[i] = regexp.MustCompile(`\b` + name + `\b`)
	}
	return out
}()

// Result is the outcome of scoring one text.
type Result struct {
	ContentScore    float64
	FormattingScore float64
	ATSScore        float64
	OverallScore    float64
	Strengths       []string
	Weaknesses      []string
	Suggestions     []string
}

type rubric struct {
	score      float64
	strengths  []string
	weaknesses []string
}

func (r *rubric) check(ok bool, strength, weakness string) bool {
	if ok {
		r.strengths = append(r.strengths, strength)
	} else {
		r.weaknesses = append(r.weaknesses, weakness)
	}
	return ok
}

// Analyze scores text. It is a pure function of its input.
func Analyze(text string) Result {
	rubrics := []rubric{
		contentQuality(text),
		formatting(text),
		atsCompatibility(text),
	}

	res := Result{
		ContentScore:    rubrics[0].score,
		FormattingScore: rubrics[1].score,
		ATSScore:        rubrics[2].score,
		Strengths:       []string{},
		Weaknesses:      []string{},
		Suggestions:     []string{},
	}
	res.OverallScore = round2(res.ContentScore*contentWeight + res.FormattingScore*formattingWeight + res.ATSScore*atsWeight)

	for _, r := range rubrics {
		res.Strengths = append(res.Strengths, r.strengths...)
		res.Weaknesses = append(res.Weaknesses, r.weaknesses...)
	}
	for i, w := range res.Weaknesses {
		if i == maxSuggestions {
			break
		}
		res.Suggestions = append(res.Suggestions, SuggestionPrefix+w)
	}
	return res
}

func contentQuality(text string) rubric {
	var r rubric
	words := len(strings.Fields(text))
	r.check(words >= sufficientWords, StrengthLength, WeaknessLength)

	lower := strings.ToLower(text)
	r.check(strings.Contains(lower, "summary") || strings.Contains(lower, "objective"), StrengthSummary, WeaknessSummary)

	r.score = clamp(float64(words)/1000*10, minContentScore, maxScore)
	return r
}

func formatting(text string) rubric {
	r := rubric{score: baseScore}
	var blank, bullets int
	for _, line := range splitLines(text) {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			blank++
			continue
		}
		for _, m := range bulletMarkers {
			if strings.HasPrefix(trimmed, m) {
				bullets++
				break
			}
		}
	}

	if r.check(blank > minBlankLines, StrengthWhitespace, WeaknessWhitespace) {
		r.score += 2
	} else {
		r.score--
	}
	if r.check(bullets >= minBulletLines, StrengthBullets, WeaknessBullets) {
		r.score += 2
	} else {
		r.score--
	}
	r.score = math.Min(r.score, maxScore)
	return r
}

func atsCompatibility(text string) rubric {
	r := rubric{score: baseScore}
	if r.check(!strings.Contains(text, "\t"), StrengthNoTables, WeaknessTables) {
		r.score += 2
	} else {
		r.score -= 2
	}

	lower := strings.ToLower(text)
	detected := 0
	for _, re := range sectionPatterns {
		if re.MatchString(lower) {
			detected++
		}
	}
	r.check(detected >= minSections, StrengthSections, WeaknessSections)
	r.score = math.Min(r.score+float64(detected), maxScore)
	return r
}

// splitLines splits on \n, \r\n and \r. A trailing line break does not start
// a new line and empty text has no lines.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.TrimSuffix(text, "\n")
	return strings.Split(text, "\n")
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
