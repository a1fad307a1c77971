package openai

import (
	"log/slog"
	"os"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Config for the OpenAI client.
type Config struct {
	APIKey      string        // if empty, falls back to env OPENAI_API_KEY
	BaseURL     string        // empty keeps the SDK default
	Model       string        // e.g., "gpt-4o"
	MaxTokens   int           // completion cap, default 1500
	Temperature float32       // 0 leaves the model default
	Timeout     time.Duration // 0 means no client-side timeout
}

type Client struct {
	cfg    Config
	api    openai.Client
	logger *slog.Logger
}

// NewClient builds a vision client. Retries are disabled: a failed call is
// reported to the operator as-is. Extra options are appended last, which lets
// tests point the client at a fake server.
func NewClient(cfg Config, logger *slog.Logger, extra ...option.RequestOption) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1500
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	opts = append(opts, extra...)

	return &Client{
		cfg:    cfg,
		api:    openai.NewClient(opts...),
		logger: logger,
	}
}
