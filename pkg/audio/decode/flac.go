// ABOUTME: FLAC audio decoder
// ABOUTME: Decodes an in-memory FLAC stream to 16-bit PCM
package decode

import (
	"bytes"
	"fmt"

	"github.com/Resonate-Protocol/ambient-go/pkg/audio"
	"github.com/mewkiz/flac"
)

var flacSignature = []byte("fLaC")

// FLACDecoder decodes FLAC audio
type FLACDecoder struct{}

// NewFLAC creates a new FLAC decoder
func NewFLAC() Decoder {
	return &FLACDecoder{}
}

// Decode converts FLAC bytes to PCM
func (d *FLACDecoder) Decode(data []byte) (audio.PCM, error) {
	if !hasFLACSignature(data) {
		return audio.PCM{}, fmt.Errorf("%w: missing fLaC signature", ErrInvalidFormat)
	}

	stream, err := flac.New(bytes.NewReader(data))
	if err != nil {
		return audio.PCM{}, fmt.Errorf("%w: open flac stream: %w", ErrDecodeFailure, err)
	}
	defer stream.Close()

	return drain(&flacSource{stream: stream}, string(ContainerFLAC))
}

func hasFLACSignature(data []byte) bool {
	return len(data) >= len(flacSignature) && bytes.Equal(data[:len(flacSignature)], flacSignature)
}

// flacSource interleaves FLAC frames into 16-bit samples
type flacSource struct {
	stream  *flac.Stream
	pending []int16
}

func (s *flacSource) SampleRate() int { return int(s.stream.Info.SampleRate) }
func (s *flacSource) Channels() int   { return int(s.stream.Info.NChannels) }

func (s *flacSource) ReadSamples(dst []int16) (int, error) {
	for len(s.pending) == 0 {
		frame, err := s.stream.ParseNext()
		if err != nil {
			return 0, err
		}

		// FLAC stores samples at the stream bit depth; narrow or widen to 16
		shift := int(s.stream.Info.BitsPerSample) - audio.BitDepth16
		channels := len(frame.Subframes)
		for i := 0; i < int(frame.BlockSize); i++ {
			for ch := 0; ch < channels; ch++ {
				sample := frame.Subframes[ch].Samples[i]
				if shift > 0 {
					sample >>= shift
				} else if shift < 0 {
					sample <<= -shift
				}
				s.pending = append(s.pending, int16(sample))
			}
		}
	}

	n := copy(dst, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}
