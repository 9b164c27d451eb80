package config

import (
	"os"
)

type Config struct {
	PostgresAddress  string
	PostgresPort     string
	PostgresDB       string
	PostgresUsername string
	PostgresPassword string

	KafkaBootstrapServers string
	KafkaTopic            string
	KafkaGroupID          string

	ModelRegistryURI string
	ModelName        string

	RedisAddress  string
	RedisDB       string
	RedisPassword string

	SlackWebhookURL   string
	DiscordWebhookURL string
	TeamsWebhookURL   string
	CustomWebhookURL  string

	SMTPServer   string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	EmailFrom    string
	EmailTo      string

	APIKey      string
	HTTPPort    string
	MetricsPort string
}

func ProcessEnvironmentVariables() (*Config, error) {
	// In all cases the default behavior should be for the docker compose setup
	env := Config{
		PostgresAddress:  "localhost",
		PostgresPort:     "5432",
		PostgresDB:       "bankdb",
		PostgresUsername: "postgres",
		PostgresPassword: "testpassword",

		KafkaBootstrapServers: "localhost:9092",
		KafkaTopic:            "transactions_topic",
		KafkaGroupID:          "fraud-detectors",

		ModelRegistryURI: "http://localhost:5000",
		ModelName:        "fraud-detection-model",

		RedisAddress: "localhost:6379",
		RedisDB:      "0",

		SMTPServer: "smtp.gmail.com",
		SMTPPort:   "587",
		EmailFrom:  "fraud-alerts@company.com",
		EmailTo:    "security-team@company.com",

		HTTPPort:    "8000",
		MetricsPort: "8001",
	}

	overrides := map[string]*string{
		"POSTGRES_ADDRESS":        &env.PostgresAddress,
		"POSTGRES_PORT":           &env.PostgresPort,
		"POSTGRES_DB":             &env.PostgresDB,
		"POSTGRES_USERNAME":       &env.PostgresUsername,
		"POSTGRES_PASSWORD":       &env.PostgresPassword,
		"KAFKA_BOOTSTRAP_SERVERS": &env.KafkaBootstrapServers,
		"KAFKA_TOPIC":             &env.KafkaTopic,
		"KAFKA_GROUP_ID":          &env.KafkaGroupID,
		"MODEL_REGISTRY_URI":      &env.ModelRegistryURI,
		"MODEL_NAME":              &env.ModelName,
		"REDIS_ADDRESS":           &env.RedisAddress,
		"REDIS_DB":                &env.RedisDB,
		"REDIS_PASSWORD":          &env.RedisPassword,
		"SLACK_WEBHOOK_URL":       &env.SlackWebhookURL,
		"DISCORD_WEBHOOK_URL":     &env.DiscordWebhookURL,
		"TEAMS_WEBHOOK_URL":       &env.TeamsWebhookURL,
		"CUSTOM_WEBHOOK_URL":      &env.CustomWebhookURL,
		"SMTP_SERVER":             &env.SMTPServer,
		"SMTP_PORT":               &env.SMTPPort,
		"SMTP_USERNAME":           &env.SMTPUsername,
		"SMTP_PASSWORD":           &env.SMTPPassword,
		"EMAIL_FROM":              &env.EmailFrom,
		"EMAIL_TO":                &env.EmailTo,
		"API_KEY":                 &env.APIKey,
		"HTTP_PORT":               &env.HTTPPort,
		"METRICS_PORT":            &env.MetricsPort,
	}

	for name, target := range overrides {
		if value := os.Getenv(name); len(value) != 0 {
			*target = value
		}
	}

	return &env, nil
}

// PostgresURL assembles the connection string used by both the service
// process and the migration runner.
func (c *Config) PostgresURL() string {
	return "postgres://" + c.PostgresUsername + ":" +
		c.PostgresPassword + "@" + c.PostgresAddress + ":" +
		c.PostgresPort + "/" + c.PostgresDB + "?sslmode=disable"
}
