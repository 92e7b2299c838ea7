// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package generation

import (
	"context"

	"github.com/synapse-labs/mindy/internal/intent"
)

// Request carries everything the text-generation capability needs for
// one turn. The system prompt is the rendered context bundle.
type Request struct {
	System      string
	History     []intent.Turn
	UserText    string
	Temperature float32
}

// Generator is the opaque text-generation capability. The kernel treats
// it as a single synchronous call; failures are surfaced to the caller
// as an error reply, never a crash.
type Generator interface {
	// Generate produces the reply text for a turn
	Generate(ctx context.Context, req Request) (string, error)
	// Available reports whether the capability is configured and usable
	Available() bool
}

// Static is a canned Generator used in tests and as a degraded fallback
type Static struct {
	Reply string
	Err   error
}

// Generate returns the canned reply or error
func (s *Static) Generate(ctx context.Context, req Request) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	return s.Reply, nil
}

// Available reports whether a canned reply is configured
func (s *Static) Available() bool {
	return s.Err == nil
}
