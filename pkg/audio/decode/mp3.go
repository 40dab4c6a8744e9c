// ABOUTME: MP3 audio decoder
// ABOUTME: Decodes an in-memory MP3 stream to 16-bit stereo PCM
package decode

import (
	"bytes"
	"fmt"
	"io"

	"github.com/Resonate-Protocol/ambient-go/pkg/audio"
	"github.com/hajimehoshi/go-mp3"
)

// MP3Decoder decodes MP3 audio
type MP3Decoder struct{}

// NewMP3 creates a new MP3 decoder
func NewMP3() Decoder {
	return &MP3Decoder{}
}

// Decode converts MP3 bytes to PCM
func (d *MP3Decoder) Decode(data []byte) (audio.PCM, error) {
	if !hasMP3Signature(data) {
		return audio.PCM{}, fmt.Errorf("%w: missing ID3 tag or MPEG frame sync", ErrInvalidFormat)
	}

	decoder, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return audio.PCM{}, fmt.Errorf("%w: open mp3 stream: %w", ErrDecodeFailure, err)
	}

	return drain(&mp3Source{decoder: decoder}, string(ContainerMP3))
}

func hasMP3Signature(data []byte) bool {
	if len(data) >= 3 && string(data[:3]) == "ID3" {
		return true
	}
	// MPEG audio frame sync: 11 set bits
	return len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0
}

// mp3Source reads the decoder's stereo little-endian byte stream
type mp3Source struct {
	decoder *mp3.Decoder
	scratch []byte
}

func (s *mp3Source) SampleRate() int { return s.decoder.SampleRate() }

// Channels is always 2: go-mp3 outputs stereo
func (s *mp3Source) Channels() int { return 2 }

func (s *mp3Source) ReadSamples(dst []int16) (int, error) {
	if cap(s.scratch) < len(dst)*2 {
		s.scratch = make([]byte, len(dst)*2)
	}
	buf := s.scratch[:len(dst)*2]

	n, err := io.ReadFull(s.decoder, buf)
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	samples := audio.Int16FromBytes(buf[:n])
	copy(dst, samples)
	return len(samples), err
}
