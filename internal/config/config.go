package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort          string
	DatabaseDSN       string
	JWTSecret         string
	JWTTTL            time.Duration
	CORSOrigins       string
	LogLevel          string
	PrometheusEnabled bool

	// Kasa ayarları
	TabCount         int           // kasadaki müşteri sekmesi sayısı
	CheckoutPolicy   string        // optimistic | hold
	DefaultPriceList int           // yeni oturumlarda kullanılan fiyat listesi
	SubmitTimeout    time.Duration // satış gönderimi üst süresi, 0 = süresiz
}

const defaultDSN = "host=localhost user=postgres password=postgres dbname=pos port=5432 sslmode=disable"

func Load() *Config {
	// .env yoksa sorun değil, ortam değişkenleri kullanılır
	_ = godotenv.Load()

	cfg := &Config{
		HTTPPort:          getEnv("HTTP_PORT", "8080"),
		DatabaseDSN:       getEnv("DATABASE_DSN", defaultDSN),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		JWTTTL:            getEnvDuration("JWT_TTL", 12*time.Hour),
		CORSOrigins:       getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		PrometheusEnabled: getEnvBool("PROMETHEUS_ENABLED", true),
		TabCount:          getEnvInt("POS_TAB_COUNT", 5),
		CheckoutPolicy:    getEnv("POS_CHECKOUT_POLICY", "optimistic"),
		DefaultPriceList:  getEnvInt("POS_DEFAULT_PRICE_LIST", 1),
		SubmitTimeout:     getEnvDuration("SUBMIT_TIMEOUT", 15*time.Second),
	}

	// Production güvenlik kontrolleri
	if cfg.JWTSecret == "" {
		log.Fatal("[FATAL] JWT_SECRET environment değişkeni tanımlanmamış! Production için zorunludur.")
	}
	if len(cfg.JWTSecret) < 32 {
		log.Fatal("[FATAL] JWT_SECRET en az 32 karakter olmalıdır! Güvenlik riski.")
	}
	if cfg.TabCount < 1 {
		log.Fatal("[FATAL] POS_TAB_COUNT en az 1 olmalıdır.")
	}
	if cfg.DatabaseDSN == defaultDSN {
		log.Println("[WARN] DATABASE_DSN varsayılan değer kullanılıyor, production için mutlaka kendi Postgres bağlantı bilgisini tanımla.")
	}
	if cfg.CORSOrigins == "http://localhost:5173" {
		log.Println("[WARN] CORS_ALLOWED_ORIGINS varsayılan değer kullanılıyor, production için mutlaka kendi domain'ini tanımla.")
	}

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[WARN] %s sayı değil (%q), varsayılan %d kullanılıyor", key, v, def)
		return def
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("[WARN] %s bool değil (%q), varsayılan %t kullanılıyor", key, v, def)
		return def
	}
	return b
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("[WARN] %s süre değil (%q), varsayılan %s kullanılıyor", key, v, def)
		return def
	}
	return d
}
