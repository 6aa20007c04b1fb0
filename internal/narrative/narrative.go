// Package narrative answers descriptive questions ("what are the main
// risks", "describe the business") by ranking filing sections against the
// question with lexical overlap scoring, then optionally summarizing the top
// snippets through a configured language model. Without a model the answer
// is extractive: the best-matching passages verbatim.
package narrative

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/seenimoa/filingiq/internal/llm"
)

// Section is one titled block of filing text.
type Section struct {
	Heading string `json:"heading"`
	Text    string `json:"text"`
	Source  string `json:"source,omitempty"`
}

// Snippet is a ranked passage returned by Search.
type Snippet struct {
	Section Section
	Score   float64
}

// stopwords excluded from overlap scoring. Question scaffolding like "what"
// and "the" would otherwise dominate the match.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "has": true,
	"have": true, "how": true, "in": true, "is": true, "it": true,
	"its": true, "of": true, "on": true, "or": true, "that": true,
	"the": true, "this": true, "to": true, "was": true, "were": true,
	"what": true, "which": true, "with": true, "does": true, "do": true,
	"company": true, "companys": true,
}

// tokenize lowercases, strips punctuation, and drops stopwords.
func tokenize(text string) []string {
	var tokens []string
	var b strings.Builder
	flush := func() {
		if b.Len() == 0 {
			return
		}
		tok := b.String()
		b.Reset()
		if !stopwords[tok] && len(tok) > 1 {
			tokens = append(tokens, tok)
		}
	}
	for _, r := range strings.ToLower(text) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

// Search ranks sections by lexical overlap with the question and returns the
// top k. Heading hits count double: section titles are the strongest signal
// of topical relevance in a filing.
func Search(sections []Section, question string, k int) []Snippet {
	qTokens := tokenize(question)
	if len(qTokens) == 0 || len(sections) == 0 {
		return nil
	}
	qSet := make(map[string]bool, len(qTokens))
	for _, t := range qTokens {
		qSet[t] = true
	}

	snippets := make([]Snippet, 0, len(sections))
	for _, sec := range sections {
		score := 0.0
		for _, t := range tokenize(sec.Heading) {
			if qSet[t] {
				score += 2
			}
		}
		bodyTokens := tokenize(sec.Text)
		hits := 0
		for _, t := range bodyTokens {
			if qSet[t] {
				hits++
			}
		}
		if len(bodyTokens) > 0 {
			// Normalize by length so long boilerplate sections do not win
			// on raw hit count alone.
			score += float64(hits) * 100 / float64(len(bodyTokens))
		}
		if score > 0 {
			snippets = append(snippets, Snippet{Section: sec, Score: score})
		}
	}

	sort.SliceStable(snippets, func(i, j int) bool {
		return snippets[i].Score > snippets[j].Score
	})
	if k > 0 && len(snippets) > k {
		snippets = snippets[:k]
	}
	return snippets
}

const summarySystemPrompt = "You summarize excerpts from SEC filings. " +
	"Answer only from the provided excerpts. If they do not contain the " +
	"answer, say so."

// maxExcerptChars bounds the prompt handed to the model.
const maxExcerptChars = 6000

// Answer produces a narrative answer for the question. The top snippets are
// retrieved lexically; if the provider can complete, its summary is used,
// otherwise the answer degrades to the excerpts themselves. The returned
// sources list names the sections the answer drew on.
func Answer(ctx context.Context, provider llm.Provider, sections []Section, question string) (text string, sources []string, err error) {
	snippets := Search(sections, question, 3)
	if len(snippets) == 0 {
		return "No relevant filing text found for this question.", nil, nil
	}

	var excerpts strings.Builder
	for _, sn := range snippets {
		if sn.Section.Source != "" {
			sources = append(sources, sn.Section.Source)
		} else if sn.Section.Heading != "" {
			sources = append(sources, sn.Section.Heading)
		}
		fmt.Fprintf(&excerpts, "## %s\n%s\n\n", sn.Section.Heading, sn.Section.Text)
		if excerpts.Len() > maxExcerptChars {
			break
		}
	}

	if provider != nil {
		prompt := fmt.Sprintf("Question: %s\n\nExcerpts:\n%s", question, excerpts.String())
		summary, cerr := provider.Complete(ctx, summarySystemPrompt, prompt)
		if cerr == nil && summary != "" {
			return summary, sources, nil
		}
		// A dead or unconfigured model is not an error for the caller;
		// fall through to the extractive answer.
	}

	return strings.TrimSpace(excerpts.String()), sources, nil
}
