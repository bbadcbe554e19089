package config

// FeedConfig configures the activity-feed consumer, which needs no
// database or JWT settings.
type FeedConfig struct {
	AMQPURL   string
	Queue     string
	Dir       string
	LogLevel  string
	LogFormat string
}

// LoadFeed reads the consumer settings.  AMQPURL is empty when neither
// RABBITMQ_URL nor AMQP_URL is set.
func LoadFeed() FeedConfig {
	return FeedConfig{
		AMQPURL:   amqpURL(),
		Queue:     getenv("ACTIVITY_QUEUE", "crm.activity"),
		Dir:       getenv("ACTIVITY_LOG_DIR", "logs"),
		LogLevel:  getenv("LOG_LEVEL", "info"),
		LogFormat: getenv("LOG_FORMAT", "json"),
	}
}
