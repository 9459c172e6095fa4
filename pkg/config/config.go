package config

import (
	"fmt"
	"time"

	"github.com/mnandhu/learningpath/internal/util"

	"github.com/go-playground/validator/v10"
)

// Config holds the immutable run configuration for the pipeline. It is
// constructed once at startup and threaded into each component's constructor.
type Config struct {
	Domain string `validate:"required"`
	Limit  int    `validate:"gt=0"`

	WikidataEndpoint   string `validate:"required,url"`
	WikidataUserAgent  string `validate:"required"`
	WikipediaAPIURL    string `validate:"required,url"`
	WikipediaUserAgent string `validate:"required"`

	// Requests per second and burst allowance per upstream service.
	WikidataRate   float64 `validate:"gt=0"`
	WikidataBurst  int     `validate:"gt=0"`
	WikipediaRate  float64 `validate:"gt=0"`
	WikipediaBurst int     `validate:"gt=0"`

	BatchSize        int `validate:"gt=0"`
	PageSize         int `validate:"gt=0"`
	MaxRetries       int `validate:"gt=0"`
	ParallelRequests int `validate:"gt=0"`

	// TokenEncoder and MaxEmbedTokens bound content_for_embedding to what
	// the embedding model accepts.
	TokenEncoder   string `validate:"required"`
	MaxEmbedTokens int    `validate:"gt=0"`

	RedisAddr string
	CacheTTL  time.Duration

	OutputDir string `validate:"required"`
}

// DefaultsFromEnv builds a Config from environment variables, falling back
// to the built-in defaults where a variable is unset.
func DefaultsFromEnv() Config {
	return Config{
		Domain: util.GetEnvString("KG_DOMAIN", DefaultDomain),
		Limit:  util.GetEnvInt("KG_LIMIT", 100),

		WikidataEndpoint:   util.GetEnvString("WIKIDATA_ENDPOINT", "https://query.wikidata.org/sparql"),
		WikidataUserAgent:  util.GetEnvString("WIKIDATA_USER_AGENT", "LearningPathGenerator/0.1"),
		WikipediaAPIURL:    util.GetEnvString("WIKIPEDIA_API_URL", "https://en.wikipedia.org/w/api.php"),
		WikipediaUserAgent: util.GetEnvString("WIKIPEDIA_USER_AGENT", "LearningPathGenerator/0.1 (https://github.com/mnandhu/learningpath)"),

		WikidataRate:   util.GetEnvFloat("WIKIDATA_RATE", 2),
		WikidataBurst:  util.GetEnvInt("WIKIDATA_BURST", 5),
		WikipediaRate:  util.GetEnvFloat("WIKIPEDIA_RATE", 2),
		WikipediaBurst: util.GetEnvInt("WIKIPEDIA_BURST", 5),

		BatchSize:        util.GetEnvInt("KG_BATCH_SIZE", 50),
		PageSize:         util.GetEnvInt("KG_PAGE_SIZE", 200),
		MaxRetries:       util.GetEnvInt("KG_MAX_RETRIES", 3),
		ParallelRequests: util.GetEnvInt("KG_PARALLEL_REQ", 10),

		TokenEncoder:   util.GetEnvString("KG_TOKEN_ENCODER", "cl100k_base"),
		MaxEmbedTokens: util.GetEnvInt("KG_MAX_EMBED_TOKENS", 8191),

		RedisAddr: util.GetEnv("REDIS_ADDR"),
		CacheTTL:  time.Duration(util.GetEnvInt("CACHE_TTL_SECONDS", 86400)) * time.Second,

		OutputDir: util.GetEnvString("KG_OUTPUT_DIR", "output"),
	}
}

// Validate checks the configuration and returns an error describing the
// first invalid field. A failed validation is fatal to the run.
func (c Config) Validate() error {
	if _, ok := Domains[c.Domain]; !ok {
		return fmt.Errorf("unknown domain %q", c.Domain)
	}
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
