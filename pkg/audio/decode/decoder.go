// ABOUTME: Decoder interface definition and container dispatch
// ABOUTME: Common interface, sentinel errors and the chunked sample pump
package decode

import (
	"errors"
	"fmt"
	"io"

	"github.com/Resonate-Protocol/ambient-go/pkg/audio"
)

// ChunkBytes is the size of each pull from a decoder, in output bytes
const ChunkBytes = 4096

// Decode errors
var (
	ErrInvalidFormat = errors.New("invalid container format")
	ErrDecodeFailure = errors.New("decode failure")
	ErrNoAudioData   = errors.New("no audio data")
)

// Container names a supported compressed container
type Container string

const (
	ContainerOgg  Container = "ogg"
	ContainerFLAC Container = "flac"
	ContainerMP3  Container = "mp3"
	ContainerAuto Container = "auto"
)

// Decoder decodes a complete in-memory container to 16-bit PCM
type Decoder interface {
	// Decode converts the container bytes to PCM
	Decode(data []byte) (audio.PCM, error)
}

// New creates a decoder for the specified container
func New(container Container) (Decoder, error) {
	switch container {
	case ContainerOgg:
		return NewOgg(), nil
	case ContainerFLAC:
		return NewFLAC(), nil
	case ContainerMP3:
		return NewMP3(), nil
	default:
		return nil, fmt.Errorf("unsupported container: %q", container)
	}
}

// Decode decodes an Ogg Vorbis container
func Decode(data []byte) (audio.PCM, error) {
	return NewOgg().Decode(data)
}

// DecodeAs decodes data as the given container; ContainerAuto sniffs the signature
func DecodeAs(container Container, data []byte) (audio.PCM, error) {
	if container == ContainerAuto {
		sniffed, ok := Sniff(data)
		if !ok {
			return audio.PCM{}, fmt.Errorf("%w: unrecognised signature", ErrInvalidFormat)
		}
		container = sniffed
	}

	decoder, err := New(container)
	if err != nil {
		return audio.PCM{}, fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	}
	return decoder.Decode(data)
}

// Sniff identifies the container from its leading signature
func Sniff(data []byte) (Container, bool) {
	switch {
	case hasOggSignature(data):
		return ContainerOgg, true
	case hasFLACSignature(data):
		return ContainerFLAC, true
	case hasMP3Signature(data):
		return ContainerMP3, true
	default:
		return "", false
	}
}

// sampleSource is a pull-based reader of interleaved 16-bit samples
type sampleSource interface {
	SampleRate() int
	Channels() int
	// ReadSamples fills dst and returns io.EOF once the stream is exhausted
	ReadSamples(dst []int16) (int, error)
}

// drain pulls src to the end in ChunkBytes pieces and concatenates the result.
// Any read error discards everything decoded so far.
func drain(src sampleSource, codec string) (pcm audio.PCM, err error) {
	defer recoverDecode(&pcm, &err, codec)

	format := audio.Format{
		Codec:      codec,
		SampleRate: src.SampleRate(),
		Channels:   src.Channels(),
		BitDepth:   audio.BitDepth16,
	}
	if format.SampleRate <= 0 {
		return audio.PCM{}, fmt.Errorf("%w: invalid sample rate %d", ErrDecodeFailure, format.SampleRate)
	}
	if format.Channels != 1 && format.Channels != 2 {
		return audio.PCM{}, fmt.Errorf("%w: unsupported channel count %d", ErrDecodeFailure, format.Channels)
	}

	chunk := make([]int16, ChunkBytes/2)
	var data []byte
	for {
		n, err := src.ReadSamples(chunk)
		if n > 0 {
			data = audio.AppendInt16(data, chunk[:n])
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return audio.PCM{}, fmt.Errorf("%w: %s read: %w", ErrDecodeFailure, codec, err)
		}
	}

	if len(data) == 0 {
		return audio.PCM{}, ErrNoAudioData
	}

	return audio.PCM{Data: data, Format: format}, nil
}

// recoverDecode turns a panic inside a codec library into ErrDecodeFailure
func recoverDecode(pcm *audio.PCM, err *error, codec string) {
	if r := recover(); r != nil {
		*pcm = audio.PCM{}
		*err = fmt.Errorf("%w: %s stream corrupt: %v", ErrDecodeFailure, codec, r)
	}
}
