// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package kernel orchestrates one conversational turn: intent
// resolution, store side effects, context assembly and reply
// generation. The kernel owns no conversation state; history arrives
// from the caller on every turn.
package kernel

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/synapse-labs/mindy/internal/assembler"
	"github.com/synapse-labs/mindy/internal/directives"
	"github.com/synapse-labs/mindy/internal/generation"
	"github.com/synapse-labs/mindy/internal/intent"
	"github.com/synapse-labs/mindy/internal/memory"
)

// Result is the complete outcome of one processed turn
type Result struct {
	Reply  string        `json:"reply"`
	Intent intent.Intent `json:"intent"`
	Meta   Meta          `json:"meta"`
}

// Meta aggregates observability data for the turn
type Meta struct {
	Context          assembler.Meta        `json:"context"`
	NoteAdded        *memory.Note          `json:"note_added,omitempty"`
	DirectiveAdded   *directives.Directive `json:"directive_added,omitempty"`
	GenerationFailed bool                  `json:"generation_failed,omitempty"`
}

// Kernel processes turns. It is safe for sequential use; concurrent
// turns for the same user are serialized by the underlying stores.
type Kernel struct {
	resolver  intent.Resolver
	assembler *assembler.Assembler
	notes     *memory.Store
	dirs      *directives.Store
	generator generation.Generator
	logger    *zap.Logger
}

// New wires a kernel over its collaborators
func New(resolver intent.Resolver, asm *assembler.Assembler, notes *memory.Store, dirs *directives.Store, gen generation.Generator, logger *zap.Logger) *Kernel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Kernel{
		resolver:  resolver,
		assembler: asm,
		notes:     notes,
		dirs:      dirs,
		generator: gen,
		logger:    logger,
	}
}

// Process runs one turn. Store mutations for memory-write and directive
// requests happen before generation, so a persisted fact survives even
// when the reply fails, and the reply can confirm what was stored.
// A generation failure never loses the turn: the result is well formed
// with an error reply and the failure flagged in Meta.
func (k *Kernel) Process(ctx context.Context, userText string, history []intent.Turn, temperature float32, activeFiles []string) Result {
	in := k.resolver.Classify(userText, activeFiles, history)

	k.logger.Debug("turn classified",
		zap.String("action", in.Action),
		zap.Strings("domains", in.Domains),
		zap.Strings("referenced_files", in.ReferencedFiles),
		zap.Float64("confidence", in.Confidence))

	result := Result{Intent: in}

	switch in.Action {
	case intent.ActionMemoryWrite:
		k.applyMemoryWrite(userText, in, &result)
	case intent.ActionDirectiveRequest:
		k.applyDirectiveRequest(userText, in, &result)
	}

	bundle, ctxMeta := k.assembler.Assemble(history, activeFiles, in)
	result.Meta.Context = ctxMeta

	reply, err := k.generator.Generate(ctx, generation.Request{
		System:      bundle.RenderSystemPrompt(),
		History:     bundle.History,
		UserText:    userText,
		Temperature: temperature,
	})
	if err != nil {
		k.logger.Error("generation failed", zap.Error(err))
		result.Meta.GenerationFailed = true
		result.Reply = k.fallbackReply(result)
		return result
	}

	result.Reply = reply
	return result
}

// applyMemoryWrite persists the note before generation runs
func (k *Kernel) applyMemoryWrite(userText string, in intent.Intent, result *Result) {
	text := intent.ExtractNoteText(userText)
	col, err := k.notes.Add(text, memory.KindManual, in.Domains, memory.SourceUser)
	if err != nil {
		k.logger.Error("failed to persist note", zap.Error(err))
		return
	}
	note := col.Items[len(col.Items)-1]
	result.Meta.NoteAdded = &note
	k.logger.Info("note persisted", zap.Int64("id", note.ID), zap.Strings("tags", note.Tags))
}

// applyDirectiveRequest persists the directive before generation runs
func (k *Kernel) applyDirectiveRequest(userText string, in intent.Intent, result *Result) {
	text := intent.ExtractDirectiveText(userText)
	d, err := k.dirs.Create(text, in.Domains)
	if err != nil {
		k.logger.Error("failed to persist directive", zap.Error(err))
		return
	}
	result.Meta.DirectiveAdded = &d
	k.logger.Info("directive persisted", zap.Int64("id", d.ID), zap.Strings("domains", d.Domains))
}

// fallbackReply composes the degraded answer for a failed generation.
// When the turn already mutated a store, the fallback still confirms
// the persisted side effect.
func (k *Kernel) fallbackReply(result Result) string {
	var sb strings.Builder

	switch {
	case result.Meta.NoteAdded != nil:
		sb.WriteString(fmt.Sprintf("Anotei: %q. ", result.Meta.NoteAdded.Text))
	case result.Meta.DirectiveAdded != nil:
		sb.WriteString(fmt.Sprintf("Diretriz registrada: %q. ", result.Meta.DirectiveAdded.Text))
	}

	sb.WriteString("Não consegui gerar uma resposta agora. Tente novamente em instantes.")
	return sb.String()
}
