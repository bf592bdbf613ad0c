package config

type Config struct {
	BaseURL  string
	HttpPort int
	Db       struct {
		Dsn         string
		Automigrate bool
	}
	Jwt struct {
		SecretKey string
	}
	Badge struct {
		SecretKey string
	}
	Admin struct {
		Username       string
		HashedPassword string
	}
	Notifications struct {
		Email string
	}
	Smtp struct {
		Host     string
		Port     int
		Username string
		Password string
		From     string
	}
	FileUploader struct {
		CloudName string
		ApiKey    string
		ApiSecret string
	}
	Ledger struct {
		Endpoint   string
		Jwt        string
		SigningKey string
	}
	RedisServer  string
	KafkaServers string
}
