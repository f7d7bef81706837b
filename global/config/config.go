package config

import (
	"os"
	"time"
)

// Service wiring comes from the environment; every field has a development
// default so a bare `go run` works against local backing services.

type Mongo struct {
	URI      string
	Database string
}

type Redis struct {
	Addr     string
	Password string
	DB       int
}

type Nats struct {
	URL string
}

type SMTP struct {
	Host string
	Port string
	User string
	Pass string
	From string
}

type ChatServer struct {
	Addr        string
	Mongo       Mongo
	JWTSecret   []byte
	UserService string // base URL of the user service
	UploadDir   string
	UploadBase  string // public URL prefix for stored uploads
}

type UserServer struct {
	Addr      string
	Mongo     Mongo
	Redis     Redis
	Nats      Nats
	JWTSecret []byte
	JWTTTL    time.Duration
}

type MailWorker struct {
	Nats Nats
	SMTP SMTP
}

func LoadChatServer() ChatServer {
	return ChatServer{
		Addr: getenv("CHAT_ADDR", ":5002"),
		Mongo: Mongo{
			URI:      getenv("MONGO_URI", "mongodb://127.0.0.1:27017"),
			Database: getenv("MONGO_DB", "chatwave"),
		},
		JWTSecret:   []byte(getenv("JWT_SECRET", "dev-secret")),
		UserService: getenv("USER_SERVICE_URL", "http://127.0.0.1:5000"),
		UploadDir:   getenv("UPLOAD_DIR", "./uploads"),
		UploadBase:  getenv("UPLOAD_BASE_URL", "/uploads"),
	}
}

func LoadUserServer() UserServer {
	return UserServer{
		Addr: getenv("USER_ADDR", ":5000"),
		Mongo: Mongo{
			URI:      getenv("MONGO_URI", "mongodb://127.0.0.1:27017"),
			Database: getenv("MONGO_DB", "chatwave"),
		},
		Redis: Redis{
			Addr:     getenv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		Nats:      Nats{URL: getenv("NATS_URL", "nats://127.0.0.1:4222")},
		JWTSecret: []byte(getenv("JWT_SECRET", "dev-secret")),
		JWTTTL:    24 * time.Hour,
	}
}

func LoadMailWorker() MailWorker {
	return MailWorker{
		Nats: Nats{URL: getenv("NATS_URL", "nats://127.0.0.1:4222")},
		SMTP: SMTP{
			Host: getenv("SMTP_HOST", "smtp.gmail.com"),
			Port: getenv("SMTP_PORT", "587"),
			User: os.Getenv("SMTP_USER"),
			Pass: os.Getenv("SMTP_PASSWORD"),
			From: getenv("SMTP_FROM", "ChatWave"),
		},
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
