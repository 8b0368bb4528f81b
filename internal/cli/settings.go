package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/siherrmann/grounder"
	"github.com/siherrmann/grounder/core/llm"
	"github.com/siherrmann/grounder/core/pipeline"
	"github.com/siherrmann/grounder/helper"
	"github.com/siherrmann/grounder/model"
	"github.com/spf13/viper"
)

// OpenAISettings is the generator section of the config file
type OpenAISettings struct {
	APIKey            string        `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL           string        `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int           `yaml:"burst" mapstructure:"burst"`
}

// Settings is the complete config file
type Settings struct {
	Engine         model.Config   `yaml:"engine" mapstructure:"engine"`
	OpenAI         OpenAISettings `yaml:"openai" mapstructure:"openai"`
	EmbeddingModel string         `yaml:"embedding_model" mapstructure:"embedding_model"`
	EmbeddingDim   int            `yaml:"embedding_dim" mapstructure:"embedding_dim"`
	Mentions       bool           `yaml:"mentions" mapstructure:"mentions"`
}

// DefaultSettings returns the built-in defaults
func DefaultSettings() Settings {
	return Settings{
		Engine: model.DefaultConfig(),
		OpenAI: OpenAISettings{
			Timeout:           60 * time.Second,
			RequestsPerSecond: 2,
			Burst:             4,
		},
		EmbeddingModel: pipeline.DefaultEmbeddingModel,
		EmbeddingDim:   pipeline.DefaultEmbeddingDim,
	}
}

// loadSettings merges config file and environment over the defaults.
func loadSettings() (Settings, error) {
	settings := DefaultSettings()
	err := viper.Unmarshal(&settings)
	if err != nil {
		return settings, fmt.Errorf("error reading config: %w", err)
	}
	if settings.OpenAI.APIKey == "" {
		settings.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	err = settings.Engine.Validate()
	if err != nil {
		return settings, err
	}
	return settings, nil
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	}
	return slog.New(helper.NewPrettyHandler(os.Stderr, helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{Level: level},
	}))
}

// openGrounder connects with the GROUNDER_DB_* environment. withPipeline loads
// the embedding model, which is only needed to answer queries.
func openGrounder(settings Settings, withPipeline bool) (*grounder.Grounder, error) {
	logger := newLogger()

	dbConfig, err := helper.NewDatabaseConfiguration()
	if err != nil {
		return nil, err
	}

	generator, err := llm.NewOpenAIGenerator(llm.OpenAIConfig{
		APIKey:            settings.OpenAI.APIKey,
		BaseURL:           settings.OpenAI.BaseURL,
		Timeout:           settings.OpenAI.Timeout,
		RequestsPerSecond: settings.OpenAI.RequestsPerSecond,
		Burst:             settings.OpenAI.Burst,
	}, logger)
	if err != nil {
		return nil, err
	}

	g, err := grounder.NewGrounder(dbConfig, generator,
		grounder.WithConfig(settings.Engine),
		grounder.WithEmbeddingModel(settings.EmbeddingModel),
		grounder.WithEmbeddingDim(settings.EmbeddingDim),
		grounder.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	if !withPipeline {
		return g, nil
	}

	err = g.UseDefaultPipeline()
	if err != nil {
		g.Close()
		return nil, err
	}
	if settings.Mentions {
		extractor, err := pipeline.DefaultMentionExtractor()
		if err != nil {
			g.Close()
			return nil, err
		}
		g.Pipeline.SetMentionExtractor(extractor)
	}

	return g, nil
}

func withTimeout(d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), d)
}
