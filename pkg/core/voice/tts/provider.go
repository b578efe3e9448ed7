// Package tts provides text-to-speech synthesis for spoken call turns.
package tts

import "context"

// Provider is the interface for speech-synthesis backends.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// Synthesize converts text to one complete audio artifact.
	Synthesize(ctx context.Context, text string, opts SynthesizeOptions) (*Synthesis, error)
}

// SynthesizeOptions configures synthesis.
type SynthesizeOptions struct {
	Voice      string // Voice identifier
	Format     string // Output format: "mp3" or "pcm"
	SampleRate int    // Sample rate, provider default when 0
}

// Synthesis is the result of synthesis.
type Synthesis struct {
	Audio       []byte // Audio data
	ContentType string // MIME type for serving the audio
}

// ContentTypeFor maps an output format to the MIME type the carrier fetch
// endpoint serves.
func ContentTypeFor(format string) string {
	switch format {
	case "pcm":
		return "audio/l16"
	default:
		return "audio/mpeg"
	}
}
