package config

// ElasticsearchConfig configures the event search index.
type ElasticsearchConfig struct {
	URL        string
	Username   string
	Password   string
	Index      string
	MaxRetries int
}
