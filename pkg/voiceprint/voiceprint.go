// Package voiceprint computes GE2E speaker embeddings from audio files.
//
// # Pipeline
//
// An utterance flows through four stages:
//
//  1. [Preprocessor.PreprocessFile]: decode, resample, normalize volume
//     and trim long silences
//  2. [Preprocessor.ExtractMelPartials]: cut the waveform into fixed
//     length, overlapping mel spectrogram windows ("partials")
//  3. [Encoder.EmbedUtterance]: embed each partial, average, and
//     L2-normalize
//  4. [Hasher.Hash]: optionally project the embedding into a short
//     locality-sensitive hash for coarse grouping
//
// Two encoders are provided: [LSTMEncoder] runs the recurrent network
// natively on the CPU from a msgpack checkpoint, and the ONNX encoder
// runs an exported graph through ONNX Runtime (CPU or CUDA) when the
// binary is built with the onnxruntime tag. [LoadEncoder] picks one from
// the checkpoint path.
//
// # Voice Hashes
//
// Voice hashes support multi-level precision via prefix truncation,
// similar to geohash:
//
//	16 bit: A3F8  ← exact match
//	12 bit: A3F   ← fuzzy match
//	 8 bit: A3    ← group level
//	 4 bit: A     ← coarse partition
package voiceprint

import "errors"

var (
	// ErrAudioTooShort is returned when nothing is left of an utterance
	// after silence trimming.
	ErrAudioTooShort = errors.New("voiceprint: audio too short")

	// ErrShapeMismatch is returned when checkpoint tensors or encoder
	// inputs do not have the expected shape.
	ErrShapeMismatch = errors.New("voiceprint: shape mismatch")

	// ErrNoCheckpoint is returned when no checkpoint file can be found
	// for a checkpoint path.
	ErrNoCheckpoint = errors.New("voiceprint: checkpoint not found")

	// ErrBackendUnavailable is returned when the requested inference
	// backend is not compiled in or cannot serve the requested device.
	ErrBackendUnavailable = errors.New("voiceprint: backend unavailable")
)
