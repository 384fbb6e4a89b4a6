package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
)

// Sentinel errors.
var (
	// ErrFrozen is returned when a frozen Config is merged into.
	ErrFrozen = errors.New("cli: config is frozen")

	// ErrUnknownKey is returned when an override names a key that does
	// not exist in the configuration tree.
	ErrUnknownKey = errors.New("cli: unknown config key")
)

// DataConfig holds the audio front-end parameters.
type DataConfig struct {
	// SamplingRate is the rate every waveform is resampled to, in Hz.
	SamplingRate int `yaml:"sampling_rate" json:"sampling_rate"`

	// AudioNormTargetDBFS is the loudness target for volume normalization.
	AudioNormTargetDBFS float64 `yaml:"audio_norm_target_dBFS" json:"audio_norm_target_dBFS"`

	// VADWindowLength is the voice detection window in milliseconds.
	VADWindowLength int `yaml:"vad_window_length" json:"vad_window_length"`

	// VADMovingAverageWidth is the number of windows smoothed together.
	VADMovingAverageWidth int `yaml:"vad_moving_average_width" json:"vad_moving_average_width"`

	// VADMaxSilenceLength is the number of silent windows tolerated
	// inside a voiced region.
	VADMaxSilenceLength int `yaml:"vad_max_silence_length" json:"vad_max_silence_length"`

	// MelWindowLength is the STFT window in milliseconds.
	MelWindowLength int `yaml:"mel_window_length" json:"mel_window_length"`

	// MelWindowStep is the STFT hop in milliseconds.
	MelWindowStep int `yaml:"mel_window_step" json:"mel_window_step"`

	// NMels is the number of mel channels.
	NMels int `yaml:"n_mels" json:"n_mels"`

	// PartialNFrames is the number of mel frames per partial.
	PartialNFrames int `yaml:"partial_n_frames" json:"partial_n_frames"`

	// MinPadCoverage is the minimum fraction of real audio the last
	// partial must hold to be kept.
	MinPadCoverage float64 `yaml:"min_pad_coverage" json:"min_pad_coverage"`

	// PartialOverlapRatio is the overlap between adjacent partials when
	// PartialOverlapFromCoverage is off.
	PartialOverlapRatio float64 `yaml:"partial_overlap_ratio" json:"partial_overlap_ratio"`

	// PartialOverlapFromCoverage makes MinPadCoverage double as the
	// partial overlap, as the reference GE2E inference script does.
	PartialOverlapFromCoverage bool `yaml:"partial_overlap_from_coverage" json:"partial_overlap_from_coverage"`
}

// PartialOverlap returns the overlap used to slice partials.
func (d DataConfig) PartialOverlap() float64 {
	if d.PartialOverlapFromCoverage {
		return d.MinPadCoverage
	}
	return d.PartialOverlapRatio
}

// ModelConfig holds the speaker encoder shape.
type ModelConfig struct {
	NumLayers     int `yaml:"num_layers" json:"num_layers"`
	HiddenSize    int `yaml:"hidden_size" json:"hidden_size"`
	EmbeddingSize int `yaml:"embedding_size" json:"embedding_size"`
}

// TrainingConfig is carried so that training config files merge cleanly.
// Inference does not read it.
type TrainingConfig struct {
	LearningRateWarmupSteps int     `yaml:"learning_rate_warmup_steps" json:"learning_rate_warmup_steps"`
	LearningRate            float64 `yaml:"learning_rate" json:"learning_rate"`
	MaxIteration            int     `yaml:"max_iteration" json:"max_iteration"`
	SaveInterval            int     `yaml:"save_interval" json:"save_interval"`
	ValidInterval           int     `yaml:"valid_interval" json:"valid_interval"`
	MaxGradNorm             float64 `yaml:"max_grad_norm" json:"max_grad_norm"`
}

// Config is the configuration tree of the ge2e tool. It is built from
// [DefaultConfig], then overlaid by [Config.MergeFromFile] and
// [Config.MergeFromList], and finally frozen.
type Config struct {
	Data     DataConfig     `yaml:"data" json:"data"`
	Model    ModelConfig    `yaml:"model" json:"model"`
	Training TrainingConfig `yaml:"training" json:"training"`

	frozen bool
}

// DefaultConfig returns the stock GE2E configuration.
func DefaultConfig() *Config {
	return &Config{
		Data: DataConfig{
			SamplingRate:          16000,
			AudioNormTargetDBFS:   -30,
			VADWindowLength:       30,
			VADMovingAverageWidth: 8,
			VADMaxSilenceLength:   6,
			MelWindowLength:       25,
			MelWindowStep:         10,
			NMels:                 40,
			PartialNFrames:        160,
			MinPadCoverage:        0.75,
			PartialOverlapRatio:   0.5,
		},
		Model: ModelConfig{
			NumLayers:     3,
			HiddenSize:    256,
			EmbeddingSize: 256,
		},
		Training: TrainingConfig{
			LearningRateWarmupSteps: 4000,
			LearningRate:            1e-4,
			MaxIteration:            1560000,
			SaveInterval:            10000,
			ValidInterval:           10000,
			MaxGradNorm:             3.0,
		},
	}
}

// MergeFromFile overlays the YAML file at path onto c. Keys missing from
// the file keep their current values; keys unknown to the tree are errors.
func (c *Config) MergeFromFile(path string) error {
	if c.frozen {
		return ErrFrozen
	}
	data, err := os.ReadFile(ExpandUser(path))
	if err != nil {
		return fmt.Errorf("cli: read config: %w", err)
	}
	if err := c.mergeYAML(data); err != nil {
		return fmt.Errorf("cli: parse %s: %w", path, err)
	}
	return nil
}

// MergeFromList overlays KEY VALUE pairs onto c. Keys are dotted paths
// such as "data.n_mels"; values are parsed as YAML scalars and must fit
// the type of the key they replace.
func (c *Config) MergeFromList(opts []string) error {
	if c.frozen {
		return ErrFrozen
	}
	if len(opts)%2 != 0 {
		return fmt.Errorf("cli: overrides must be KEY VALUE pairs, got %d items", len(opts))
	}
	known := c.keys()
	for i := 0; i < len(opts); i += 2 {
		key, raw := opts[i], opts[i+1]
		if _, ok := known[key]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownKey, key)
		}
		var value any
		if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
			return fmt.Errorf("cli: override %s: %w", key, err)
		}
		doc, err := yaml.Marshal(nest(strings.Split(key, "."), value))
		if err != nil {
			return fmt.Errorf("cli: override %s: %w", key, err)
		}
		if err := c.mergeYAML(doc); err != nil {
			return fmt.Errorf("cli: override %s=%s: %w", key, raw, err)
		}
	}
	return nil
}

// ParseOverrides turns KEY=VALUE strings into the flat KEY VALUE list
// accepted by [Config.MergeFromList].
func ParseOverrides(kvs []string) ([]string, error) {
	out := make([]string, 0, 2*len(kvs))
	for _, kv := range kvs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("cli: override %q is not KEY=VALUE", kv)
		}
		out = append(out, strings.TrimSpace(k), v)
	}
	return out, nil
}

func (c *Config) mergeYAML(data []byte) error {
	return yaml.UnmarshalWithOptions(data, c, yaml.Strict())
}

// keys returns the set of dotted leaf keys of the tree.
func (c *Config) keys() map[string]struct{} {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil
	}
	out := make(map[string]struct{})
	flatten("", tree, out)
	return out
}

func flatten(prefix string, node map[string]any, out map[string]struct{}) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if child, ok := v.(map[string]any); ok {
			flatten(key, child, out)
			continue
		}
		out[key] = struct{}{}
	}
}

func nest(path []string, value any) map[string]any {
	if len(path) == 1 {
		return map[string]any{path[0]: value}
	}
	return map[string]any{path[0]: nest(path[1:], value)}
}

// Freeze makes c read-only. Later merges return [ErrFrozen].
func (c *Config) Freeze() { c.frozen = true }

// Frozen reports whether c has been frozen.
func (c *Config) Frozen() bool { return c.frozen }

// Validate checks that the parameters describe a usable pipeline.
func (c *Config) Validate() error {
	d := c.Data
	var errs []error
	positive := func(name string, v int) {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", name, v))
		}
	}
	positive("data.sampling_rate", d.SamplingRate)
	positive("data.vad_window_length", d.VADWindowLength)
	positive("data.vad_moving_average_width", d.VADMovingAverageWidth)
	positive("data.mel_window_length", d.MelWindowLength)
	positive("data.mel_window_step", d.MelWindowStep)
	positive("data.n_mels", d.NMels)
	positive("data.partial_n_frames", d.PartialNFrames)
	positive("model.num_layers", c.Model.NumLayers)
	positive("model.hidden_size", c.Model.HiddenSize)
	positive("model.embedding_size", c.Model.EmbeddingSize)
	if d.VADMaxSilenceLength < 0 {
		errs = append(errs, fmt.Errorf("data.vad_max_silence_length must not be negative, got %d", d.VADMaxSilenceLength))
	}
	if d.MinPadCoverage <= 0 || d.MinPadCoverage > 1 {
		errs = append(errs, fmt.Errorf("data.min_pad_coverage must be in (0, 1], got %v", d.MinPadCoverage))
	}
	if d.PartialOverlapRatio < 0 || d.PartialOverlapRatio >= 1 {
		errs = append(errs, fmt.Errorf("data.partial_overlap_ratio must be in [0, 1), got %v", d.PartialOverlapRatio))
	}
	if d.PartialOverlapFromCoverage && d.MinPadCoverage >= 1 {
		errs = append(errs, fmt.Errorf("data.min_pad_coverage must be below 1 with partial_overlap_from_coverage, got %v", d.MinPadCoverage))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("cli: invalid config: %w", err)
	}
	return nil
}

// String renders the tree as YAML.
func (c *Config) String() string {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("<config: %v>", err)
	}
	return string(data)
}
