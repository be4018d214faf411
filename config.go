package main

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// Config holds all startup configuration.
type Config struct {
	Filter   QueryFilter
	Contract PortalContract
	Browser  BrowserConfig
	OCR      OCRConfig
	Timing   TimingConfig
	Judgment JudgmentConfig
	Output   OutputConfig
	Redis    RedisConfig
	Postgres PostgresConfig
	S3       S3Config
	Log      LogConfig
}

type BrowserConfig struct {
	Bin      string
	Headless bool
}

type OCRConfig struct {
	Tesseract string
	Lang      string
	PSM       int
	Scale     int
}

// TimingConfig bounds every wait in the pipeline.
type TimingConfig struct {
	Poll           time.Duration
	Wait           time.Duration
	Popup          time.Duration
	Detail         time.Duration
	CaptchaVerify  time.Duration
	Settle         time.Duration
	MaxPages       int
	MaxPageRetries int
}

type JudgmentConfig struct {
	Enabled         bool
	Dir             string
	DownloadTimeout time.Duration
	Settle          time.Duration
}

type OutputConfig struct {
	Path       string
	IncludePDF bool
}

type RedisConfig struct {
	Host string
	Port string
	DB   int
	TTL  time.Duration
}

func (r RedisConfig) Enabled() bool { return r.Host != "" }

type PostgresConfig struct {
	DSN string
}

func (p PostgresConfig) Enabled() bool { return p.DSN != "" }

type S3Config struct {
	Region     string
	AccessKey  string
	SecretKey  string
	Bucket     string
	BasePath   string
	PresignTTL time.Duration
}

func (s S3Config) Enabled() bool { return s.Bucket != "" }

type LogConfig struct {
	Level  string
	Format string
}

// LoadConfig reads .env (if present) and then the process environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "load .env")
	}

	status, err := parseDisposalStatus(getEnv("DISPOSAL_STATUS", string(Disposed)))
	if err != nil {
		return nil, err
	}
	contract, err := LoadPortalContract(getEnv("PORTAL_CONTRACT_FILE", ""))
	if err != nil {
		return nil, err
	}
	if base := getEnv("ECOURTS_BASE_URL", ""); base != "" {
		contract.BaseURL = base
	}

	cfg := &Config{
		Filter: QueryFilter{
			StateCode:        getEnv("STATE_CODE", "1"),
			DistrictCode:     getEnv("DISTRICT_CODE", "25"),
			CourtComplexCode: getEnv("COURT_COMPLEX_CODE", "1010303@1,2,3,22,23@N"),
			CaseTypeCode:     getEnv("CASE_TYPE_CODE", "12^23"),
			Year:             getEnv("CASE_YEAR", "2015"),
			DisposalStatus:   status,
		},
		Contract: contract,
		Browser: BrowserConfig{
			Bin:      getEnv("BROWSER_BIN", ""),
			Headless: getEnvAsBool("HEADLESS", true),
		},
		OCR: OCRConfig{
			Tesseract: getEnv("TESSERACT_PATH", "tesseract"),
			Lang:      getEnv("TESSERACT_LANG", "eng"),
			PSM:       getEnvAsInt("TESSERACT_PSM", 6),
			Scale:     getEnvAsInt("CAPTCHA_SCALE", 2),
		},
		Timing: TimingConfig{
			Poll:           getEnvAsDuration("POLL_INTERVAL", 250*time.Millisecond),
			Wait:           getEnvAsDuration("WAIT_TIMEOUT", 10*time.Second),
			Popup:          getEnvAsDuration("POPUP_TIMEOUT", 5*time.Second),
			Detail:         getEnvAsDuration("DETAIL_TIMEOUT", 10*time.Second),
			CaptchaVerify:  getEnvAsDuration("CAPTCHA_VERIFY_TIMEOUT", 10*time.Second),
			Settle:         getEnvAsDuration("SETTLE_INTERVAL", 5*time.Second),
			MaxPages:       getEnvAsInt("MAX_PAGES", 0),
			MaxPageRetries: getEnvAsInt("MAX_PAGE_RETRIES", 1),
		},
		Judgment: JudgmentConfig{
			Enabled:         getEnvAsBool("DOWNLOAD_JUDGMENTS", true),
			Dir:             getEnv("JUDGMENT_DIR", "./judgments"),
			DownloadTimeout: getEnvAsDuration("DOWNLOAD_TIMEOUT", 30*time.Second),
			Settle:          getEnvAsDuration("DOWNLOAD_SETTLE", 3*time.Second),
		},
		Output: OutputConfig{
			Path:       getEnv("OUTPUT_PATH", "case_details.csv"),
			IncludePDF: getEnvAsBool("INCLUDE_PDF_COLUMN", true),
		},
		Redis: RedisConfig{
			Host: getEnv("REDIS_HOST", ""),
			Port: getEnv("REDIS_PORT", "6379"),
			DB:   getEnvAsInt("REDIS_DB", 0),
			TTL:  getEnvAsDuration("REDIS_TTL", 0),
		},
		Postgres: PostgresConfig{
			DSN: getEnv("DATABASE_URL", ""),
		},
		S3: S3Config{
			Region:     getEnv("AWS_REGION", "ap-south-1"),
			AccessKey:  getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Bucket:     getEnv("S3_BUCKET_NAME", ""),
			BasePath:   getEnv("S3_BASE_PATH", "judgments"),
			PresignTTL: getEnvAsDuration("S3_PRESIGN_TTL", 15*time.Minute),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}
	return cfg, cfg.Validate()
}

// Validate collects every problem instead of stopping at the first one.
func (c *Config) Validate() error {
	var problems []string
	if err := c.Filter.Validate(); err != nil {
		problems = append(problems, err.Error())
	}
	if err := c.Contract.Validate(); err != nil {
		problems = append(problems, err.Error())
	}
	if c.Output.Path == "" {
		problems = append(problems, "OUTPUT_PATH is required")
	}
	if c.OCR.Tesseract == "" {
		problems = append(problems, "TESSERACT_PATH is required")
	}
	if c.Timing.Wait <= 0 || c.Timing.Popup <= 0 || c.Timing.Detail <= 0 || c.Timing.CaptchaVerify <= 0 {
		problems = append(problems, "wait timeouts must be positive")
	}
	if c.Timing.MaxPageRetries < 0 {
		problems = append(problems, "MAX_PAGE_RETRIES must not be negative")
	}
	if c.Judgment.Enabled && c.Judgment.Dir == "" {
		problems = append(problems, "JUDGMENT_DIR is required when DOWNLOAD_JUDGMENTS is on")
	}
	if len(problems) > 0 {
		return errors.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
