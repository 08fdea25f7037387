package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Settings struct {
	MariaDBDSN      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ServerPort      int

	RedisAddr     string
	RedisPassword string
	SeenTTL       time.Duration

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	LocalDir string

	ArchiveURL      string
	ArchiveUsername string
	ArchiveAPIKey   string

	BotToken    string
	BotAdminIDs []int64

	JWTPublicKey string

	Retries             int
	RequestTimeout      time.Duration
	MaxParallelDownload int

	DouyinAPI string
	XhsAPI    string
	XhsCookie string

	// Per-site destination and filename templates. Empty values fall
	// back to the handler defaults.
	BilibiliFilePath string
	BilibiliFileName string
	TwitterFilePath  string
	TwitterFileName  string
	DouyinFilePath   string
	DouyinFileName   string
	XhsFilePath      string
	XhsFileName      string
}

func Load() (*Settings, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found; proceeding with OS environment variables")
	}

	viper.AutomaticEnv()

	viper.SetConfigFile(".env")
	viper.SetConfigType("env")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: could not read .env file: %v", err)
	}

	if !viper.IsSet("MARIADB_DSN") {
		return nil, fmt.Errorf("MARIADB_DSN is required")
	}
	if !viper.IsSet("MARIADB_MAX_OPEN_CONN") {
		return nil, fmt.Errorf("MARIADB_MAX_OPEN_CONN is required")
	}
	if !viper.IsSet("MARIADB_MAX_IDLE_CONNS") {
		return nil, fmt.Errorf("MARIADB_MAX_IDLE_CONNS is required")
	}
	if !viper.IsSet("MARIADB_CONN_MAX_LIFETIME") {
		return nil, fmt.Errorf("MARIADB_CONN_MAX_LIFETIME is required")
	}
	if !viper.IsSet("SERVER_PORT") {
		return nil, fmt.Errorf("SERVER_PORT is required")
	}

	viper.SetDefault("RETRIES", 3)
	viper.SetDefault("REQUEST_TIMEOUT", 20)
	viper.SetDefault("MAX_PARALLEL_DOWNLOAD", 5)
	viper.SetDefault("LOCAL_DIR", "archives")

	return &Settings{
		MariaDBDSN:      viper.GetString("MARIADB_DSN"),
		MaxOpenConns:    viper.GetInt("MARIADB_MAX_OPEN_CONN"),
		MaxIdleConns:    viper.GetInt("MARIADB_MAX_IDLE_CONNS"),
		ConnMaxLifetime: time.Duration(viper.GetInt("MARIADB_CONN_MAX_LIFETIME")) * time.Second,
		ServerPort:      viper.GetInt("SERVER_PORT"),

		RedisAddr:     viper.GetString("REDIS_ADDR"),
		RedisPassword: viper.GetString("REDIS_PASSWORD"),
		SeenTTL:       time.Duration(viper.GetInt("SEEN_TTL")) * time.Second,

		MinioEndpoint:  viper.GetString("MINIO_ENDPOINT"),
		MinioAccessKey: viper.GetString("MINIO_ACCESS_KEY"),
		MinioSecretKey: viper.GetString("MINIO_SECRET_KEY"),
		MinioBucket:    viper.GetString("MINIO_BUCKET"),
		MinioUseSSL:    viper.GetBool("MINIO_USE_SSL"),

		LocalDir: viper.GetString("LOCAL_DIR"),

		ArchiveURL:      viper.GetString("ARCHIVE_URL"),
		ArchiveUsername: viper.GetString("ARCHIVE_USERNAME"),
		ArchiveAPIKey:   viper.GetString("ARCHIVE_API_KEY"),

		BotToken:    viper.GetString("BOT_TOKEN"),
		BotAdminIDs: toInt64Slice(viper.GetIntSlice("BOT_ADMIN_IDS")),

		JWTPublicKey: viper.GetString("JWT_PUBLIC_KEY"),

		Retries:             viper.GetInt("RETRIES"),
		RequestTimeout:      time.Duration(viper.GetInt("REQUEST_TIMEOUT")) * time.Second,
		MaxParallelDownload: viper.GetInt("MAX_PARALLEL_DOWNLOAD"),

		DouyinAPI: viper.GetString("DOUYIN_API"),
		XhsAPI:    viper.GetString("XHS_API"),
		XhsCookie: viper.GetString("XHS_COOKIE"),

		BilibiliFilePath: viper.GetString("BILIBILI_FILE_PATH"),
		BilibiliFileName: viper.GetString("BILIBILI_FILE_NAME"),
		TwitterFilePath:  viper.GetString("TWITTER_FILE_PATH"),
		TwitterFileName:  viper.GetString("TWITTER_FILE_NAME"),
		DouyinFilePath:   viper.GetString("DOUYIN_FILE_PATH"),
		DouyinFileName:   viper.GetString("DOUYIN_FILE_NAME"),
		XhsFilePath:      viper.GetString("XHS_FILE_PATH"),
		XhsFileName:      viper.GetString("XHS_FILE_NAME"),
	}, nil
}

func toInt64Slice(in []int) []int64 {
	if len(in) == 0 {
		return nil
	}
	out := make([]int64, len(in))
	for i, v := range in {
		out[i] = int64(v)
	}
	return out
}
