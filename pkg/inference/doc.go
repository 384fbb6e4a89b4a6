// Package inference runs the batch embedding job: it discovers the audio
// files under an input directory, embeds each one with a
// [voiceprint.Encoder] and writes the result as a .npy file at the
// mirrored path under the output location.
//
//	input/spk1/a.wav      ->  output/spk1/a.npy
//	input/spk2/sub/b.wav  ->  output/spk2/sub/b.npy
//
// Files are processed one at a time in sorted order. The first failure
// aborts the run.
package inference
