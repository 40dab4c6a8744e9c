// ABOUTME: Ogg Vorbis audio decoder
// ABOUTME: Decodes an in-memory Ogg Vorbis stream to 16-bit PCM
package decode

import (
	"bytes"
	"fmt"

	"github.com/Resonate-Protocol/ambient-go/pkg/audio"
	"github.com/jfreymuth/oggvorbis"
)

var oggSignature = []byte("OggS")

// OggDecoder decodes Ogg Vorbis audio
type OggDecoder struct{}

// NewOgg creates a new Ogg Vorbis decoder
func NewOgg() Decoder {
	return &OggDecoder{}
}

// Decode converts Ogg Vorbis bytes to PCM
func (d *OggDecoder) Decode(data []byte) (pcm audio.PCM, err error) {
	if !hasOggSignature(data) {
		return audio.PCM{}, fmt.Errorf("%w: missing OggS signature", ErrInvalidFormat)
	}

	// the page parser indexes into headers without bounds checks
	defer recoverDecode(&pcm, &err, string(ContainerOgg))

	// bytes.Reader gives the vorbis reader the seek access it uses for indexing
	reader, err := oggvorbis.NewReader(bytes.NewReader(data))
	if err != nil {
		return audio.PCM{}, fmt.Errorf("%w: open vorbis stream: %w", ErrDecodeFailure, err)
	}

	return drain(&vorbisSource{reader: reader}, string(ContainerOgg))
}

func hasOggSignature(data []byte) bool {
	return len(data) >= len(oggSignature) && bytes.Equal(data[:len(oggSignature)], oggSignature)
}

// vorbisSource adapts the float32 vorbis reader to 16-bit samples
type vorbisSource struct {
	reader  *oggvorbis.Reader
	scratch []float32
}

func (s *vorbisSource) SampleRate() int { return s.reader.SampleRate() }
func (s *vorbisSource) Channels() int   { return s.reader.Channels() }

func (s *vorbisSource) ReadSamples(dst []int16) (int, error) {
	if cap(s.scratch) < len(dst) {
		s.scratch = make([]float32, len(dst))
	}
	buf := s.scratch[:len(dst)]

	n, err := s.reader.Read(buf)
	for i := 0; i < n; i++ {
		dst[i] = audio.SampleFromFloat32(buf[i])
	}
	return n, err
}
