package speech

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"time"
)

// MockSynthesizer produces silent WAV audio sized to the input text, for
// development and dry runs where no real TTS backend is configured.
type MockSynthesizer struct {
	SampleRate int
}

// Synthesize generates a silent WAV clip whose duration tracks text length.
func (m MockSynthesizer) Synthesize(_ context.Context, text string) (Audio, error) {
	rate := m.SampleRate
	if rate <= 0 {
		rate = 16000
	}
	return Audio{
		Data:        silentWAV(estimateDuration(text), rate),
		ContentType: "audio/wav",
	}, nil
}

func estimateDuration(text string) time.Duration {
	if len(text) == 0 {
		return 2 * time.Second
	}
	seconds := math.Max(float64(len([]rune(text)))/12.0, 2)
	return time.Duration(seconds * float64(time.Second))
}

func silentWAV(duration time.Duration, sampleRate int) []byte {
	totalSamples := int(math.Ceil(duration.Seconds() * float64(sampleRate)))
	if totalSamples < sampleRate {
		totalSamples = sampleRate
	}
	dataSize := totalSamples * 2
	buf := bytes.NewBuffer(make([]byte, 0, 44+dataSize))
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1))
	binary.Write(buf, binary.LittleEndian, uint16(1))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate*2))
	binary.Write(buf, binary.LittleEndian, uint16(2))
	binary.Write(buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(dataSize))
	buf.Write(make([]byte, dataSize))
	return buf.Bytes()
}

var _ Synthesizer = MockSynthesizer{}
