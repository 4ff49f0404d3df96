package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	SQLite     SQLiteConfig
	Redis      RedisConfig
	Milvus     MilvusConfig
	LLM        LLMConfig
	Intent     IntentConfig
	Retrieval  RetrievalConfig
	Ranking    RankingConfig
	Fallback   FallbackConfig
	Escalation EscalationConfig
	Logging    LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Enabled     bool
	Host        string
	Port        int
	Password    string
	DB          int
	ResponseTTL int
}

type MilvusConfig struct {
	Enabled        bool
	Endpoint       string
	APIKey         string
	CollectionName string
	VectorDim      int
}

type LLMConfig struct {
	APIKey         string
	Model          string
	EmbeddingModel string
	Temperature    float32
	MaxTokens      int
	TimeoutSec     int
}

type IntentConfig struct {
	KeywordBoost float64
	TimeoutSec   int
}

type RetrievalConfig struct {
	LexicalWeight  float64
	SemanticWeight float64
	MinLexical     float64
	MinSemantic    float64
	TopK           int
}

type RankingConfig struct {
	RetrievalWeight float64
	IntentWeight    float64
}

type FallbackConfig struct {
	AcceptThreshold float64
	Message         string
}

type EscalationConfig struct {
	Enabled       bool
	Model         string
	TimeoutSec    int
	MaxConfidence float64
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/zimmer")

	viper.SetEnvPrefix("ZIMMER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 30)
	viper.SetDefault("server.bodyLimit", 1048576)

	viper.SetDefault("sqlite.path", "./data/zimmer.db")

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.responseTTL", 300)

	viper.SetDefault("milvus.enabled", false)
	viper.SetDefault("milvus.endpoint", "localhost:19530")
	viper.SetDefault("milvus.collectionName", "zimmer_faqs")
	viper.SetDefault("milvus.vectorDim", 1536)

	viper.SetDefault("llm.model", "gpt-4o-mini")
	viper.SetDefault("llm.embeddingModel", "text-embedding-3-small")
	viper.SetDefault("llm.temperature", 0.0)
	viper.SetDefault("llm.maxTokens", 512)
	viper.SetDefault("llm.timeoutSec", 10)

	viper.SetDefault("intent.keywordBoost", 0.2)
	viper.SetDefault("intent.timeoutSec", 6)

	viper.SetDefault("retrieval.lexicalWeight", 0.5)
	viper.SetDefault("retrieval.semanticWeight", 0.5)
	viper.SetDefault("retrieval.minLexical", 0.05)
	viper.SetDefault("retrieval.minSemantic", 0.35)
	viper.SetDefault("retrieval.topK", 4)

	viper.SetDefault("ranking.retrievalWeight", 0.6)
	viper.SetDefault("ranking.intentWeight", 0.4)

	viper.SetDefault("fallback.acceptThreshold", 0.55)
	viper.SetDefault("fallback.message", "متاسفانه پاسخ مناسبی برای سوال شما پیدا نکردم. لطفا سوال خود را واضح‌تر بیان کنید یا با پشتیبانی تماس بگیرید.")

	viper.SetDefault("escalation.enabled", false)
	viper.SetDefault("escalation.model", "gpt-4")
	viper.SetDefault("escalation.timeoutSec", 12)
	viper.SetDefault("escalation.maxConfidence", 0.75)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
