// Package speech declares the transcription and synthesis collaborators.
// The core consumes them as text-in/text-out and text-in/audio-out boxes;
// STT failure degrades to an empty user text for the turn and TTS failure
// degrades to a text-only response, never aborting the turn.
package speech

import "context"

// Transcriber converts captured audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Audio is one synthesized utterance.
type Audio struct {
	Data        []byte
	ContentType string
}

// Synthesizer converts agent replies into audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (Audio, error)
}

// TranscribeOrEmpty applies the STT degradation rule: any failure becomes
// empty user text for the turn.
func TranscribeOrEmpty(ctx context.Context, t Transcriber, audio []byte) string {
	if t == nil {
		return ""
	}
	text, err := t.Transcribe(ctx, audio)
	if err != nil {
		return ""
	}
	return text
}

// SynthesizeOrNone applies the TTS degradation rule: any failure yields no
// audio and the response stays text-only.
func SynthesizeOrNone(ctx context.Context, s Synthesizer, text string) (Audio, bool) {
	if s == nil {
		return Audio{}, false
	}
	audio, err := s.Synthesize(ctx, text)
	if err != nil || len(audio.Data) == 0 {
		return Audio{}, false
	}
	return audio, true
}
