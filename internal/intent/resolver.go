// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package intent

import (
	"path/filepath"
	"sort"
	"strings"
)

// Actions the resolver distinguishes
const (
	ActionGeneralQuestion  = "general_question"
	ActionFileQuestion     = "file_grounded_question"
	ActionMemoryWrite      = "memory_write_request"
	ActionDirectiveRequest = "directive_request"
)

// Turn is one conversation message as maintained by the caller
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Intent classifies a user utterance. It drives context assembly and is
// returned to the caller as-is for observability.
type Intent struct {
	Action          string   `json:"action"`
	ReferencedFiles []string `json:"referenced_files"`
	Domains         []string `json:"domains"`
	Confidence      float64  `json:"confidence"`
}

// Resolver classifies utterances. Implementations may be rule-based or
// model-based; callers depend only on this contract.
type Resolver interface {
	Classify(text string, activeFiles []string, history []Turn) Intent
}

// memoryTriggers open an utterance that asks Mindy to remember something
var memoryTriggers = []string{
	"lembre-se que", "lembre-se de que", "lembre que", "lembre-se",
	"anote que", "anote", "memorize que", "memorize", "guarde que",
	"remember that", "remember", "note that",
}

// directiveTriggers open an utterance that registers a standing goal
var directiveTriggers = []string{
	"nova diretriz:", "nova diretriz", "diretriz:",
	"foco de longo prazo:", "foco de longo prazo",
	"priorize daqui em diante", "priorize",
	"new directive:", "new directive", "long-term focus:",
}

// fileCues mark a question as grounded on a document even without an
// exact filename match
var fileCues = []string{
	"no arquivo", "do arquivo", "o arquivo", "no documento", "do documento",
	"no texto", "baseado no arquivo", "segundo o documento", "leia o arquivo",
	"in the file", "the document", "the attached",
}

// RuleResolver is the deterministic, table-driven Resolver. The
// keyword-to-domain table comes from configuration; a built-in table is
// used when none is given.
type RuleResolver struct {
	domains map[string][]string
}

// DefaultDomainTable returns the built-in keyword-to-domain table
func DefaultDomainTable() map[string][]string {
	return map[string][]string{
		"esg":      {"esg", "sustentabilidade", "sustentável", "carbono", "ambiental"},
		"ia":       {"ia", "inteligência artificial", "modelo", "machine learning", "llm"},
		"financas": {"financeiro", "finanças", "orçamento", "custo", "investimento"},
	}
}

// NewRuleResolver creates a rule-based resolver with the given
// keyword-to-domain table (nil or empty falls back to the default table)
func NewRuleResolver(domains map[string][]string) *RuleResolver {
	if len(domains) == 0 {
		domains = DefaultDomainTable()
	}
	return &RuleResolver{domains: domains}
}

// Classify maps an utterance to an Intent using literal and fuzzy
// filename matches, the keyword table, and trigger phrases.
func (r *RuleResolver) Classify(text string, activeFiles []string, history []Turn) Intent {
	lower := strings.ToLower(strings.TrimSpace(text))

	out := Intent{
		Action:          ActionGeneralQuestion,
		ReferencedFiles: matchFiles(lower, activeFiles),
		Domains:         r.matchDomains(lower),
		Confidence:      0.4,
	}

	switch {
	case hasTrigger(lower, directiveTriggers):
		out.Action = ActionDirectiveRequest
		out.Confidence = 0.9
	case hasTrigger(lower, memoryTriggers):
		out.Action = ActionMemoryWrite
		out.Confidence = 0.9
	case len(out.ReferencedFiles) > 0:
		out.Action = ActionFileQuestion
		out.Confidence = 0.75
	case len(activeFiles) > 0 && hasCue(lower, fileCues):
		// Document-style phrasing without a filename match: treat the
		// whole active selection as referenced
		out.Action = ActionFileQuestion
		out.ReferencedFiles = append([]string{}, activeFiles...)
		out.Confidence = 0.6
	case len(out.Domains) > 0:
		out.Confidence = 0.6
	}

	return out
}

// ExtractNoteText returns the note body of a memory-write utterance,
// with the trigger phrase stripped. Falls back to the full utterance.
func ExtractNoteText(text string) string {
	return stripTrigger(text, memoryTriggers)
}

// ExtractDirectiveText returns the goal description of a directive
// request, with the trigger phrase stripped.
func ExtractDirectiveText(text string) string {
	return stripTrigger(text, directiveTriggers)
}

func stripTrigger(text string, triggers []string) string {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)
	for _, trig := range triggers {
		if strings.HasPrefix(lower, trig) {
			rest := strings.TrimSpace(trimmed[len(trig):])
			rest = strings.TrimLeft(rest, ":,.;- ")
			if rest != "" {
				return rest
			}
		}
	}
	return trimmed
}

// matchFiles returns the active filenames whose name or stem appears in
// the utterance, in stable sorted order.
func matchFiles(lower string, activeFiles []string) []string {
	matched := []string{}
	for _, name := range activeFiles {
		nameLower := strings.ToLower(name)
		stem := strings.TrimSuffix(nameLower, filepath.Ext(nameLower))
		if strings.Contains(lower, nameLower) || (len(stem) >= 3 && strings.Contains(lower, stem)) {
			matched = append(matched, name)
		}
	}
	sort.Strings(matched)
	return matched
}

func (r *RuleResolver) matchDomains(lower string) []string {
	matched := []string{}
	for domain, keywords := range r.domains {
		for _, kw := range keywords {
			if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
				matched = append(matched, domain)
				break
			}
		}
	}
	sort.Strings(matched)
	return matched
}

func hasTrigger(lower string, triggers []string) bool {
	for _, trig := range triggers {
		if strings.HasPrefix(lower, trig) {
			return true
		}
	}
	return false
}

func hasCue(lower string, cues []string) bool {
	for _, cue := range cues {
		if strings.Contains(lower, cue) {
			return true
		}
	}
	return false
}
