// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package assembler

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/synapse-labs/mindy/internal/config"
	"github.com/synapse-labs/mindy/internal/directives"
	"github.com/synapse-labs/mindy/internal/intent"
	"github.com/synapse-labs/mindy/internal/memory"
)

// FileContent is one selected file's bounded text content
type FileContent struct {
	Filename  string `json:"filename"`
	Content   string `json:"content"`
	Truncated bool   `json:"truncated"`
}

// Bundle is the transient per-turn composition of history, notes,
// directives and file content. It is recomputed every turn and never
// persisted.
type Bundle struct {
	History    []intent.Turn
	Notes      []memory.Note
	Directives []directives.Directive
	Files      []FileContent
}

// Meta records what went into the bundle, for observability
type Meta struct {
	NoteIDs        []int64  `json:"note_ids"`
	DirectiveIDs   []int64  `json:"directive_ids"`
	FilesIncluded  []string `json:"files_included"`
	FilesTruncated []string `json:"files_truncated"`
	FilesMissing   []string `json:"files_missing"`
	ContextChars   int      `json:"context_chars"`
}

// FileReader is the slice of the file repository the assembler needs
type FileReader interface {
	GetFileContent(filename string, maxChars int) (string, error)
}

// NoteSource provides the persisted note collection
type NoteSource interface {
	Load() memory.Collection
}

// DirectiveSource provides the active directives
type DirectiveSource interface {
	List(limit int) []directives.Directive
}

// Assembler selects the subset of stored knowledge relevant to a turn,
// under the configured size budget. It never fails a turn: missing or
// unreadable inputs degrade to "no extra context" and are flagged in
// Meta.
type Assembler struct {
	cfg        config.ContextConfig
	notes      NoteSource
	directives DirectiveSource
	files      FileReader
}

// New creates a context assembler over the three stores
func New(cfg config.ContextConfig, notes NoteSource, dirs DirectiveSource, fr FileReader) *Assembler {
	return &Assembler{cfg: cfg, notes: notes, directives: dirs, files: fr}
}

// Assemble builds the bundle for one turn
func (a *Assembler) Assemble(history []intent.Turn, activeFiles []string, in intent.Intent) (Bundle, Meta) {
	bundle := Bundle{
		History:    boundHistory(history, a.cfg.MaxHistoryTurns),
		Notes:      a.selectNotes(in),
		Directives: a.selectDirectives(in),
	}

	meta := Meta{
		NoteIDs:        []int64{},
		DirectiveIDs:   []int64{},
		FilesIncluded:  []string{},
		FilesTruncated: []string{},
		FilesMissing:   []string{},
	}
	for _, n := range bundle.Notes {
		meta.NoteIDs = append(meta.NoteIDs, n.ID)
	}
	for _, d := range bundle.Directives {
		meta.DirectiveIDs = append(meta.DirectiveIDs, d.ID)
	}

	// All budgets count characters (runes), matching the per-file bound
	used := 0
	for _, d := range bundle.Directives {
		used += utf8.RuneCountInString(d.Text)
	}
	for _, n := range bundle.Notes {
		used += utf8.RuneCountInString(n.Text)
	}

	bundle.Files = a.selectFiles(activeFiles, in, a.cfg.BudgetChars-used, &meta)
	for _, f := range bundle.Files {
		used += utf8.RuneCountInString(f.Content)
	}
	meta.ContextChars = used

	return bundle, meta
}

// boundHistory keeps only the most recent maxTurns turns
func boundHistory(history []intent.Turn, maxTurns int) []intent.Turn {
	if maxTurns > 0 && len(history) > maxTurns {
		history = history[len(history)-maxTurns:]
	}
	out := make([]intent.Turn, len(history))
	copy(out, history)
	return out
}

// selectNotes picks domain-matching notes most-recent-first, or the
// most recent few as general background when the intent carries no
// domain signal. This keeps every turn from re-sending the whole store.
func (a *Assembler) selectNotes(in intent.Intent) []memory.Note {
	col := a.notes.Load()
	items := make([]memory.Note, len(col.Items))
	copy(items, col.Items)
	sort.SliceStable(items, func(i, j int) bool { return items[i].ID > items[j].ID })

	if len(in.Domains) > 0 {
		limit := a.cfg.MaxNotes
		out := []memory.Note{}
		for _, n := range items {
			if !tagsIntersect(n.Tags, in.Domains) {
				continue
			}
			out = append(out, n)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
		return out
	}

	recent := a.cfg.RecentNotes
	if recent <= 0 || recent > len(items) {
		recent = len(items)
	}
	return items[:recent]
}

// selectDirectives returns the active directives relevant to the turn.
// Directives are long-term priorities: when everything active fits
// under the cap they are all included; otherwise domain-matching ones
// win.
func (a *Assembler) selectDirectives(in intent.Intent) []directives.Directive {
	active := a.directives.List(0)
	limit := a.cfg.MaxDirectives

	if limit <= 0 || len(active) <= limit || len(in.Domains) == 0 {
		if limit > 0 && len(active) > limit {
			active = active[:limit]
		}
		return active
	}

	out := []directives.Directive{}
	for _, d := range active {
		if tagsIntersect(d.Domains, in.Domains) {
			out = append(out, d)
			if len(out) >= limit {
				break
			}
		}
	}
	return out
}

// selectFiles fetches the caller-selected files in priority order:
// files the utterance explicitly references first, then selection
// order. Each file is bounded per-file; when the remaining budget runs
// short the lowest-priority files are truncated first. Missing or
// unreadable files are omitted and flagged, never an error.
func (a *Assembler) selectFiles(activeFiles []string, in intent.Intent, budget int, meta *Meta) []FileContent {
	ordered := prioritize(activeFiles, in.ReferencedFiles)

	out := []FileContent{}
	for _, name := range ordered {
		if budget <= 0 {
			meta.FilesTruncated = append(meta.FilesTruncated, name)
			continue
		}

		limit := a.cfg.PerFileChars
		if budget < limit {
			limit = budget
		}

		content, err := a.files.GetFileContent(name, limit)
		if err != nil {
			meta.FilesMissing = append(meta.FilesMissing, name)
			continue
		}
		runes := utf8.RuneCountInString(content)

		// Only a file that fills its limit can have been cut; probe one
		// character past the bound to tell a cut from an exact fit
		truncated := false
		if runes == limit {
			probe, probeErr := a.files.GetFileContent(name, limit+1)
			truncated = probeErr == nil && utf8.RuneCountInString(probe) > runes
		}

		out = append(out, FileContent{Filename: name, Content: content, Truncated: truncated})
		meta.FilesIncluded = append(meta.FilesIncluded, name)
		if truncated {
			meta.FilesTruncated = append(meta.FilesTruncated, name)
		}
		budget -= runes
	}
	return out
}

// prioritize orders the active selection with explicitly referenced
// files first, preserving selection order within each group.
func prioritize(activeFiles, referenced []string) []string {
	refSet := make(map[string]bool, len(referenced))
	for _, name := range referenced {
		refSet[name] = true
	}

	out := make([]string, 0, len(activeFiles))
	for _, name := range activeFiles {
		if refSet[name] {
			out = append(out, name)
		}
	}
	for _, name := range activeFiles {
		if !refSet[name] {
			out = append(out, name)
		}
	}
	return out
}

func tagsIntersect(tags, domains []string) bool {
	for _, t := range tags {
		for _, d := range domains {
			if strings.EqualFold(t, d) {
				return true
			}
		}
	}
	return false
}

// RenderSystemPrompt flattens the bundle into the system prompt handed
// to the text-generation capability.
func (b *Bundle) RenderSystemPrompt() string {
	var sb strings.Builder

	sb.WriteString("Você é a Mindy, uma assistente cognitiva pessoal.\n")

	if len(b.Directives) > 0 {
		sb.WriteString("\nDiretrizes cognitivas ativas (focos de longo prazo):\n")
		for _, d := range b.Directives {
			if len(d.Domains) > 0 {
				sb.WriteString(fmt.Sprintf("- [%s] %s\n", strings.Join(d.Domains, ", "), d.Text))
			} else {
				sb.WriteString(fmt.Sprintf("- %s\n", d.Text))
			}
		}
	}

	if len(b.Notes) > 0 {
		sb.WriteString("\nNotas relevantes da memória:\n")
		for _, n := range b.Notes {
			sb.WriteString(fmt.Sprintf("- %s\n", n.Text))
		}
	}

	for _, f := range b.Files {
		sb.WriteString(fmt.Sprintf("\n--- Arquivo: %s ---\n%s\n", f.Filename, f.Content))
		if f.Truncated {
			sb.WriteString("(conteúdo truncado)\n")
		}
	}

	return sb.String()
}
