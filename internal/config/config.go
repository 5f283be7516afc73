package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/example/go-sentiprep/internal/errdefs"
	"github.com/example/go-sentiprep/internal/pipeline"
)

type Config struct {
	Data       DataConfig       `mapstructure:"data"`
	Preprocess PreprocessConfig `mapstructure:"preprocess"`
	Model      ModelConfig      `mapstructure:"model"`
	Runtime    RuntimeConfig    `mapstructure:"runtime"`
	Output     OutputConfig     `mapstructure:"output"`
	LogLevel   string           `mapstructure:"log_level"`
}

type DataConfig struct {
	TrainDataFilePos string `mapstructure:"train_data_file_pos"`
	TrainDataFileNeg string `mapstructure:"train_data_file_neg"`
	TestDataFile     string `mapstructure:"test_data_file"`
	EmbeddingDir     string `mapstructure:"embedding_dir"`
}

type PreprocessConfig struct {
	MaxNbWords        int     `mapstructure:"max_nb_words"`
	MaxSequenceLength int     `mapstructure:"max_sequence_length"`
	EmbeddingDim      int     `mapstructure:"embedding_dim"`
	ValidationSplit   float64 `mapstructure:"validation_split"`
	Seed              uint64  `mapstructure:"seed"`
	RemoveStopwords   bool    `mapstructure:"remove_stopwords"`
	StemWords         bool    `mapstructure:"stem_words"`
}

type ModelConfig struct {
	ModelName  string `mapstructure:"model_name"`
	ModelPath  string `mapstructure:"model_path"`
	InputName  string `mapstructure:"input_name"`
	OutputName string `mapstructure:"output_name"`
	InputDType string `mapstructure:"input_dtype"`
	BatchSize  int    `mapstructure:"batch_size"`
}

type RuntimeConfig struct {
	ORTLibraryPath string `mapstructure:"ort_library_path"`
	ORTVersion     string `mapstructure:"ort_version"`
	ORTAPIVersion  uint32 `mapstructure:"ort_api_version"`
}

type OutputConfig struct {
	Dir             string `mapstructure:"dir"`
	PredictionsPath string `mapstructure:"predictions_path"`
	VocabDB         string `mapstructure:"vocab_db"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

func DefaultConfig() Config {
	return Config{
		Data: DataConfig{
			TrainDataFilePos: "data/train_pos.txt",
			TrainDataFileNeg: "data/train_neg.txt",
			TestDataFile:     "data/test_data.txt",
			EmbeddingDir:     "data/glove.twitter.27B.200d.txt",
		},
		Preprocess: PreprocessConfig{
			MaxNbWords:        20000,
			MaxSequenceLength: 30,
			EmbeddingDim:      200,
			ValidationSplit:   0.2,
			Seed:              42,
		},
		Model: ModelConfig{
			ModelName:  "lstm",
			ModelPath:  "models/lstm.onnx",
			InputName:  "input",
			OutputName: "",
			InputDType: "int64",
			BatchSize:  256,
		},
		Runtime: RuntimeConfig{
			ORTLibraryPath: "",
			ORTVersion:     "",
			ORTAPIVersion:  23,
		},
		Output: OutputConfig{
			Dir:             "out",
			PredictionsPath: "predictions_csv/prediction.csv",
			VocabDB:         "out/sentiprep.db",
		},
		LogLevel: "info",
	}
}

// flagKeys maps every registered flag to its config key.
var flagKeys = map[string]string{
	"train-data-file-pos":      "data.train_data_file_pos",
	"train-data-file-neg":      "data.train_data_file_neg",
	"test-data-file":           "data.test_data_file",
	"embedding-dir":            "data.embedding_dir",
	"max-nb-words":             "preprocess.max_nb_words",
	"max-sequence-length":      "preprocess.max_sequence_length",
	"embedding-dim":            "preprocess.embedding_dim",
	"validation-split":         "preprocess.validation_split",
	"seed":                     "preprocess.seed",
	"remove-stopwords":         "preprocess.remove_stopwords",
	"stem-words":               "preprocess.stem_words",
	"model-name":               "model.model_name",
	"model-path":               "model.model_path",
	"model-input-name":         "model.input_name",
	"model-output-name":        "model.output_name",
	"model-input-dtype":        "model.input_dtype",
	"model-batch-size":         "model.batch_size",
	"runtime-ort-library-path": "runtime.ort_library_path",
	"ort-lib":                  "runtime.ort_library_path",
	"runtime-ort-version":      "runtime.ort_version",
	"runtime-ort-api-version":  "runtime.ort_api_version",
	"output-dir":               "output.dir",
	"predictions-path":         "output.predictions_path",
	"vocab-db":                 "output.vocab_db",
	"log-level":                "log_level",
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("train-data-file-pos", defaults.Data.TrainDataFilePos, "Positive training tweets, one per line")
	fs.String("train-data-file-neg", defaults.Data.TrainDataFileNeg, "Negative training tweets, one per line")
	fs.String("test-data-file", defaults.Data.TestDataFile, "Test tweets as id,text lines")
	fs.String("embedding-dir", defaults.Data.EmbeddingDir, "Pretrained embedding file (token f1 ... fn per line)")
	fs.Int("max-nb-words", defaults.Preprocess.MaxNbWords, "Vocabulary cap; ids at or above it are dropped")
	fs.Int("max-sequence-length", defaults.Preprocess.MaxSequenceLength, "Padded sequence length")
	fs.Int("embedding-dim", defaults.Preprocess.EmbeddingDim, "Embedding vector width")
	fs.Float64("validation-split", defaults.Preprocess.ValidationSplit, "Fraction of training rows held out for validation")
	fs.Uint64("seed", defaults.Preprocess.Seed, "Shuffle seed for the validation split")
	fs.Bool("remove-stopwords", defaults.Preprocess.RemoveStopwords, "Drop English stopwords before cleaning")
	fs.Bool("stem-words", defaults.Preprocess.StemWords, "Snowball-stem tokens after cleaning")
	fs.String("model-name", defaults.Model.ModelName, "Run name used for bundle, report and vocabulary records")
	fs.String("model-path", defaults.Model.ModelPath, "Exported ONNX classifier")
	fs.String("model-input-name", defaults.Model.InputName, "Classifier input tensor name")
	fs.String("model-output-name", defaults.Model.OutputName, "Classifier output tensor name (empty = only output)")
	fs.String("model-input-dtype", defaults.Model.InputDType, "Classifier input dtype (int64|float32)")
	fs.Int("model-batch-size", defaults.Model.BatchSize, "Rows per classifier run")
	fs.String("runtime-ort-library-path", defaults.Runtime.ORTLibraryPath, "Path to ONNX Runtime shared library")
	fs.String("ort-lib", defaults.Runtime.ORTLibraryPath, "Path to ONNX Runtime shared library (alias for --runtime-ort-library-path)")
	fs.String("runtime-ort-version", defaults.Runtime.ORTVersion, "Expected ONNX Runtime version")
	fs.Uint32("runtime-ort-api-version", defaults.Runtime.ORTAPIVersion, "ONNX Runtime C API version")
	fs.String("output-dir", defaults.Output.Dir, "Directory for tensor bundles and run reports")
	fs.String("predictions-path", defaults.Output.PredictionsPath, "Predictions CSV path")
	fs.String("vocab-db", defaults.Output.VocabDB, "SQLite vocabulary store")
	fs.String("log-level", defaults.LogLevel, "Log level (debug|info|warn|error)")
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		if err := bindFlags(v, opts.Cmd.Flags()); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	v.SetEnvPrefix("SENTIPREP")
	replacer := strings.NewReplacer("-", "_", ".", "_", "__", "_")
	v.SetEnvKeyReplacer(replacer)
	if err := v.BindEnv("runtime.ort_library_path", "SENTIPREP_ORT_LIB", "ORT_LIBRARY_PATH"); err != nil {
		return Config{}, fmt.Errorf("bind ort env vars: %w", err)
	}
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("sentiprep")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	return cfg, nil
}

// bindFlags binds each known flag to its nested key. Unchanged flags only
// supply defaults, so env and file values still win over them. --ort-lib is
// bound only when it was given and the long form was not.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		if name == "ort-lib" {
			continue
		}
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("flag %q: %w", name, err)
		}
	}

	alias := fs.Lookup("ort-lib")
	long := fs.Lookup("runtime-ort-library-path")
	if alias != nil && alias.Changed && (long == nil || !long.Changed) {
		if err := v.BindPFlag(flagKeys["ort-lib"], alias); err != nil {
			return fmt.Errorf("flag %q: %w", "ort-lib", err)
		}
	}

	return nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("data.train_data_file_pos", c.Data.TrainDataFilePos)
	v.SetDefault("data.train_data_file_neg", c.Data.TrainDataFileNeg)
	v.SetDefault("data.test_data_file", c.Data.TestDataFile)
	v.SetDefault("data.embedding_dir", c.Data.EmbeddingDir)
	v.SetDefault("preprocess.max_nb_words", c.Preprocess.MaxNbWords)
	v.SetDefault("preprocess.max_sequence_length", c.Preprocess.MaxSequenceLength)
	v.SetDefault("preprocess.embedding_dim", c.Preprocess.EmbeddingDim)
	v.SetDefault("preprocess.validation_split", c.Preprocess.ValidationSplit)
	v.SetDefault("preprocess.seed", c.Preprocess.Seed)
	v.SetDefault("preprocess.remove_stopwords", c.Preprocess.RemoveStopwords)
	v.SetDefault("preprocess.stem_words", c.Preprocess.StemWords)
	v.SetDefault("model.model_name", c.Model.ModelName)
	v.SetDefault("model.model_path", c.Model.ModelPath)
	v.SetDefault("model.input_name", c.Model.InputName)
	v.SetDefault("model.output_name", c.Model.OutputName)
	v.SetDefault("model.input_dtype", c.Model.InputDType)
	v.SetDefault("model.batch_size", c.Model.BatchSize)
	v.SetDefault("runtime.ort_library_path", c.Runtime.ORTLibraryPath)
	v.SetDefault("runtime.ort_version", c.Runtime.ORTVersion)
	v.SetDefault("runtime.ort_api_version", c.Runtime.ORTAPIVersion)
	v.SetDefault("output.dir", c.Output.Dir)
	v.SetDefault("output.predictions_path", c.Output.PredictionsPath)
	v.SetDefault("output.vocab_db", c.Output.VocabDB)
	v.SetDefault("log_level", c.LogLevel)
}

// Validate checks required paths and numeric ranges. Every failure wraps
// errdefs.ErrConfiguration, except an out-of-range split which wraps
// errdefs.ErrInvalidFraction.
func (c Config) Validate() error {
	var errs []error

	required := []struct{ key, val string }{
		{"data.train_data_file_pos", c.Data.TrainDataFilePos},
		{"data.train_data_file_neg", c.Data.TrainDataFileNeg},
		{"data.test_data_file", c.Data.TestDataFile},
		{"data.embedding_dir", c.Data.EmbeddingDir},
		{"model.model_name", c.Model.ModelName},
		{"output.dir", c.Output.Dir},
	}
	for _, r := range required {
		if strings.TrimSpace(r.val) == "" {
			errs = append(errs, fmt.Errorf("%w: %s is required", errdefs.ErrConfiguration, r.key))
		}
	}

	positive := []struct {
		key string
		val int
	}{
		{"preprocess.max_nb_words", c.Preprocess.MaxNbWords},
		{"preprocess.max_sequence_length", c.Preprocess.MaxSequenceLength},
		{"preprocess.embedding_dim", c.Preprocess.EmbeddingDim},
		{"model.batch_size", c.Model.BatchSize},
	}
	for _, p := range positive {
		if p.val < 1 {
			errs = append(errs, fmt.Errorf("%w: %s must be positive, got %d", errdefs.ErrConfiguration, p.key, p.val))
		}
	}

	if !(c.Preprocess.ValidationSplit > 0 && c.Preprocess.ValidationSplit < 1) {
		errs = append(errs, fmt.Errorf("%w: preprocess.validation_split %v is outside (0, 1)",
			errdefs.ErrInvalidFraction, c.Preprocess.ValidationSplit))
	}

	switch strings.ToLower(strings.TrimSpace(c.Model.InputDType)) {
	case "", "int64", "long", "float", "float32":
	default:
		errs = append(errs, fmt.Errorf("%w: model.input_dtype %q (want int64|float32)", errdefs.ErrConfiguration, c.Model.InputDType))
	}

	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", errdefs.ErrConfiguration, err))
	}

	return errors.Join(errs...)
}

// ParseLogLevel converts a case-insensitive level string to slog.Level.
// An empty string returns slog.LevelInfo. Unknown strings return an error.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (want debug|info|warn|error)", s)
	}
}

// PipelineConfig projects the data and preprocessing sections onto a
// pipeline.Config.
func (c Config) PipelineConfig() pipeline.Config {
	return pipeline.Config{
		PositivePath:      c.Data.TrainDataFilePos,
		NegativePath:      c.Data.TrainDataFileNeg,
		TestPath:          c.Data.TestDataFile,
		EmbeddingPath:     c.Data.EmbeddingDir,
		MaxWords:          c.Preprocess.MaxNbWords,
		MaxSequenceLength: c.Preprocess.MaxSequenceLength,
		EmbeddingDim:      c.Preprocess.EmbeddingDim,
		ValidationSplit:   c.Preprocess.ValidationSplit,
		Seed:              c.Preprocess.Seed,
		RemoveStopwords:   c.Preprocess.RemoveStopwords,
		StemWords:         c.Preprocess.StemWords,
	}
}
