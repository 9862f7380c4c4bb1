// Package matching scores resume text against a list of required skills.
package matching

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"unicode"

	"resume-pipeline/internal/artifacts"
)

// ErrContentNotFound is returned when a resume has no extracted content.
var ErrContentNotFound = errors.New("resume not found or not parsed yet")

// Match is the result of scoring one resume.
type Match struct {
	ResumeID string   `json:"resumeId"`
	Score    float64  `json:"matchScore"`
	Matched  []string `json:"matchedSkills"`
	Missing  []string `json:"missingSkills"`
}

// Score returns the percentage of distinct skills found among the tokens of
// text, rounded to two decimals. No skills scores 0.
func Score(text string, skills []string) float64 {
	m := score(text, skills)
	return m.Score
}

func score(text string, skills []string) Match {
	required := normalizeSkills(skills)
	if len(required) == 0 {
		return Match{Score: 0, Matched: []string{}, Missing: []string{}}
	}
	tokens := Tokens(text)

	matched := []string{}
	missing := []string{}
	for _, skill := range required {
		if _, ok := tokens[skill]; ok {
			matched = append(matched, skill)
		} else {
			missing = append(missing, skill)
		}
	}
	pct := float64(len(matched)) / float64(len(required)) * 100
	return Match{
		Score:   math.Round(pct*100) / 100,
		Matched: matched,
		Missing: missing,
	}
}

// Tokens splits lowercased text into a set of words. A word is a run of
// letters, digits and the characters + # . so that c++, c# and node.js stay
// whole; trailing periods are dropped.
func Tokens(text string) map[string]struct{} {
	out := make(map[string]struct{})
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '+' || r == '#' || r == '.')
	})
	for _, f := range fields {
		f = strings.TrimRight(f, ".")
		if f == "" {
			continue
		}
		out[f] = struct{}{}
	}
	return out
}

func normalizeSkills(skills []string) []string {
	seen := make(map[string]struct{}, len(skills))
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Service matches stored resume content.
type Service struct {
	contents artifacts.ContentReader
}

// NewService creates a Service reading content from r.
func NewService(r artifacts.ContentReader) *Service {
	return &Service{contents: r}
}

// MatchResume scores the stored raw text of resumeID against skills.
func (s *Service) MatchResume(ctx context.Context, resumeID string, skills []string) (Match, error) {
	doc, found, err := s.contents.GetContent(ctx, resumeID)
	if err != nil {
		return Match{}, err
	}
	if !found {
		return Match{}, ErrContentNotFound
	}
	m := score(doc.RawText, skills)
	m.ResumeID = resumeID
	return m, nil
}
