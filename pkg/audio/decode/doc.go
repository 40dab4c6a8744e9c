// ABOUTME: Audio decoder package for compressed container assets
// ABOUTME: Provides Decoder interface and implementations for Ogg Vorbis, FLAC, MP3
// Package decode turns a complete compressed audio file held in memory into
// interleaved signed 16-bit PCM.
//
// Supports: Ogg Vorbis (the default asset container), FLAC, MP3
//
// All decoders validate the container's magic signature before decoding,
// pull the stream in fixed 4096-byte chunks and always produce 16-bit
// samples regardless of the source bit depth. Failures are reported with
// the sentinel errors ErrInvalidFormat, ErrDecodeFailure and ErrNoAudioData.
//
// Example:
//
//	pcm, err := decode.Decode(oggBytes)
//	if errors.Is(err, decode.ErrInvalidFormat) {
//	    // not an Ogg stream
//	}
package decode
