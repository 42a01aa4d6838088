package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "facescan"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "FACESCAN"
)

// Loader handles loading configuration from various sources.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader on the global viper instance so that flags
// bound by the root command take effect.
func NewLoader() *Loader {
	return &Loader{v: viper.GetViper()}
}

// NewLoaderWithViper creates a loader on an explicit viper instance.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{v: v}
}

// Load loads configuration from files, environment variables and defaults,
// then validates it.
func (l *Loader) Load() (*Config, error) {
	return l.load("", true)
}

// LoadWithoutValidation is Load without the validation step.
func (l *Loader) LoadWithoutValidation() (*Config, error) {
	return l.load("", false)
}

// LoadWithFile loads configuration from a specific file path. An empty path
// falls back to the search paths.
func (l *Loader) LoadWithFile(configFile string) (*Config, error) {
	return l.load(configFile, true)
}

// LoadWithFileWithoutValidation is LoadWithFile without the validation step.
func (l *Loader) LoadWithFileWithoutValidation(configFile string) (*Config, error) {
	return l.load(configFile, false)
}

func (l *Loader) load(configFile string, validate bool) (*Config, error) {
	if configFile != "" {
		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file does not exist: %s", configFile)
		}
		l.v.SetConfigFile(configFile)
	} else {
		l.v.SetConfigName(ConfigFileName)
		l.v.SetConfigType("yaml")
		l.addConfigPaths()
	}

	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// no config file: defaults and env vars only
	}

	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if validate {
		if err := config.Validate(); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}
	return &config, nil
}

// GetConfigFileUsed returns the path of the config file used.
func (l *Loader) GetConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// GetViper returns the underlying viper instance.
func (l *Loader) GetViper() *viper.Viper {
	return l.v
}

// addConfigPaths adds the standard configuration search paths.
func (l *Loader) addConfigPaths() {
	for _, p := range GetConfigSearchPaths() {
		l.v.AddConfigPath(p)
	}
}

// setupEnvironmentVariables maps FACESCAN_ANALYZE_OUTPUT_FILE to
// analyze.output_file and so on.
func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

// setDefaults sets default values for all configuration options. Every key
// needs a default for AutomaticEnv to pick up its variable during Unmarshal.
func (l *Loader) setDefaults() {
	defaults := DefaultConfig()

	l.v.SetDefault("models_dir", defaults.ModelsDir)
	l.v.SetDefault("log_level", defaults.LogLevel)
	l.v.SetDefault("verbose", defaults.Verbose)

	l.v.SetDefault("analyze.input_dir", defaults.Analyze.InputDir)
	l.v.SetDefault("analyze.output_file", defaults.Analyze.OutputFile)
	l.v.SetDefault("analyze.format", defaults.Analyze.Format)
	l.v.SetDefault("analyze.recursive", defaults.Analyze.Recursive)
	l.v.SetDefault("analyze.exclude", defaults.Analyze.ExcludePatterns)
	l.v.SetDefault("analyze.quiet", defaults.Analyze.Quiet)

	est := defaults.Estimator
	l.v.SetDefault("estimator.backend", est.Backend)
	l.v.SetDefault("estimator.enforce_detection", est.EnforceDetection)
	l.v.SetDefault("estimator.crop_padding", est.CropPadding)
	l.v.SetDefault("estimator.onnx.age_model", est.ONNX.AgeModel)
	l.v.SetDefault("estimator.onnx.gender_model", est.ONNX.GenderModel)
	l.v.SetDefault("estimator.onnx.race_model", est.ONNX.RaceModel)
	l.v.SetDefault("estimator.onnx.num_threads", est.ONNX.NumThreads)
	l.v.SetDefault("estimator.onnx.gpu.enabled", est.ONNX.GPU.UseGPU)
	l.v.SetDefault("estimator.onnx.gpu.device_id", est.ONNX.GPU.DeviceID)
	l.v.SetDefault("estimator.onnx.gpu.mem_limit", est.ONNX.GPU.GPUMemLimit)
	l.v.SetDefault("estimator.onnx.gpu.arena_extend_strategy", est.ONNX.GPU.ArenaExtendStrategy)
	l.v.SetDefault("estimator.onnx.gpu.cudnn_conv_algo_search", est.ONNX.GPU.CUDNNConvAlgoSearch)
	l.v.SetDefault("estimator.onnx.gpu.copy_in_default_stream", est.ONNX.GPU.DoCopyInDefaultStream)
	l.v.SetDefault("estimator.rekognition.region", est.Rekognition.Region)
	l.v.SetDefault("estimator.rekognition.profile", est.Rekognition.Profile)

	loc := defaults.Localizer
	l.v.SetDefault("localizer.backend", loc.Backend)
	l.v.SetDefault("localizer.cascade_path", loc.CascadePath)
	l.v.SetDefault("localizer.min_size", loc.MinSize)
	l.v.SetDefault("localizer.max_size", loc.MaxSize)
	l.v.SetDefault("localizer.shift_factor", loc.ShiftFactor)
	l.v.SetDefault("localizer.scale_factor", loc.ScaleFactor)
	l.v.SetDefault("localizer.iou_threshold", loc.IoUThreshold)
	l.v.SetDefault("localizer.score_threshold", loc.ScoreThreshold)

	ann := defaults.Annotate
	l.v.SetDefault("annotate.enabled", ann.Enabled)
	l.v.SetDefault("annotate.dir", ann.Dir)
	l.v.SetDefault("annotate.box_thickness", ann.BoxThickness)
	l.v.SetDefault("annotate.heatmap.size", ann.Heatmap.Size)
	l.v.SetDefault("annotate.heatmap.channel", ann.Heatmap.Channel)
	l.v.SetDefault("annotate.heatmap.threshold", ann.Heatmap.Threshold)
	l.v.SetDefault("annotate.heatmap.blur_sigma", ann.Heatmap.BlurSigma)
	l.v.SetDefault("annotate.heatmap.opacity", ann.Heatmap.Opacity)

	l.v.SetDefault("metrics.textfile", defaults.Metrics.Textfile)
}

// GetResolvedConfig returns the current resolved settings for debugging.
func (l *Loader) GetResolvedConfig() map[string]any {
	return l.v.AllSettings()
}

// WriteConfig writes cfg as YAML to w.
func WriteConfig(w io.Writer, cfg *Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}

// GenerateDefaultConfigFile writes the default configuration to filename
// (facescan.yaml when empty). An existing file is not overwritten.
func GenerateDefaultConfigFile(filename string) (string, error) {
	if filename == "" {
		filename = ConfigFileName + ".yaml"
	}
	f, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("create config file: %w", err)
	}
	defaults := DefaultConfig()
	if err := WriteConfig(f, &defaults); err != nil {
		_ = f.Close()
		return "", err
	}
	return filename, f.Close()
}

// GetConfigSearchPaths returns the paths where configuration files are searched.
func GetConfigSearchPaths() []string {
	paths := []string{"."}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, home)
	}

	if configDir, exists := os.LookupEnv("XDG_CONFIG_HOME"); exists {
		paths = append(paths, filepath.Join(configDir, "facescan"))
	} else if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "facescan"))
	}

	paths = append(paths, "/etc/facescan")
	return paths
}

// PrintConfigInfo prints information about configuration loading.
func (l *Loader) PrintConfigInfo(w io.Writer) {
	_, _ = fmt.Fprintf(w, "Configuration file used: %s\n", l.GetConfigFileUsed())
	_, _ = fmt.Fprintf(w, "Configuration search paths: %v\n", GetConfigSearchPaths())
	_, _ = fmt.Fprintf(w, "Environment prefix: %s\n", EnvPrefix)
}
