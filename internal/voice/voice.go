// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package voice holds the optional speech-synthesis capability. Its
// availability is resolved once at startup; when disabled every caller
// sees the same explicit "not enabled" answer instead of a partial
// failure mid-session.
package voice

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/synapse-labs/mindy/internal/config"
)

// Capability is the speech-synthesis boundary
type Capability interface {
	// Enabled reports whether synthesis is available this session
	Enabled() bool
	// Synthesize renders text to audio bytes (MP3)
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Disabled is the no-op capability used when voice is turned off or not
// configured
type Disabled struct{}

func (Disabled) Enabled() bool { return false }

func (Disabled) Synthesize(ctx context.Context, text string) ([]byte, error) {
	return nil, fmt.Errorf("voice capability is not enabled")
}

// OpenAITTS synthesizes speech through the OpenAI audio API
type OpenAITTS struct {
	client  *openai.Client
	model   string
	voice   string
	timeout time.Duration
}

// Resolve decides the session's capability from configuration. A voice
// section that is disabled, or enabled without an API key, resolves to
// Disabled.
func Resolve(cfg config.VoiceConfig) Capability {
	if !cfg.Enabled {
		return Disabled{}
	}
	apiKey := os.Getenv(cfg.APIKeyEnv)
	if apiKey == "" {
		return Disabled{}
	}

	return &OpenAITTS{
		client:  openai.NewClient(apiKey),
		model:   cfg.Model,
		voice:   cfg.Voice,
		timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
	}
}

func (t *OpenAITTS) Enabled() bool { return true }

// Synthesize renders text to MP3 audio
func (t *OpenAITTS) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("cannot synthesize empty text")
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	resp, err := t.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(t.model),
		Voice:          openai.SpeechVoice(t.voice),
		Input:          text,
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, fmt.Errorf("speech synthesis failed: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read synthesized audio: %w", err)
	}
	return audio, nil
}
