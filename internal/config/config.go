package config

import (
    "fmt"
    "os"
    "time"

    "cosmossdk.io/math"
)

type Config struct {
    Env        string
    ListenAddr string

    HistoryBackend string
    DatabaseURL    string
    RedisAddr      string
    HistoryLimit   int

    GatewayURL string
    LedgerURL  string

    Account           string
    ExecutorAddress   string
    WorkerpoolAddress string
    AccessCount       int
    AppMaxPrice       int64
    WorkerpoolMaxPrice int64
    RequiredStakeNano int64
    OutputPath        string
    PipelineTimeout   time.Duration
}

func (c Config) RequiredStake() math.Int {
    return math.NewInt(c.RequiredStakeNano)
}

func getenv(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

func Load() (Config, error) {
    cfg := Config{
        Env:        getenv("APP_ENV", "development"),
        ListenAddr: getenv("LISTEN_ADDR", ":8080"),

        HistoryBackend: getenv("HISTORY_BACKEND", "postgres"),
        DatabaseURL:    os.Getenv("DATABASE_URL"),
        RedisAddr:      getenv("REDIS_ADDR", "localhost:6379"),
        HistoryLimit:   getenvInt("HISTORY_LIMIT", 50),

        GatewayURL: getenv("GATEWAY_URL", "http://localhost:9090"),
        LedgerURL:  getenv("LEDGER_URL", "http://localhost:9091"),

        Account:            os.Getenv("ACCOUNT_ADDRESS"),
        ExecutorAddress:    getenv("EXECUTOR_ADDRESS", "0x5748CCBf68D8Fde7cE4e83b0d328A9D9e0Ee5514"),
        WorkerpoolAddress:  getenv("WORKERPOOL_ADDRESS", "0xb967057a21dc6a66a29721d96b8aa7454b7c383f"),
        AccessCount:        getenvInt("ACCESS_COUNT", 99),
        AppMaxPrice:        getenvInt64("APP_MAX_PRICE", 100000000),
        WorkerpoolMaxPrice: getenvInt64("WORKERPOOL_MAX_PRICE", 100000000),
        RequiredStakeNano:  getenvInt64("REQUIRED_STAKE_NANO", 200000000),
        OutputPath:         getenv("OUTPUT_PATH", "result.json"),
        PipelineTimeout:    getenvDuration("PIPELINE_TIMEOUT", 15*time.Minute),
    }
    switch cfg.HistoryBackend {
    case "postgres":
        if cfg.DatabaseURL == "" {
            return cfg, fmt.Errorf("DATABASE_URL not set")
        }
    case "redis":
    default:
        return cfg, fmt.Errorf("unknown HISTORY_BACKEND %q", cfg.HistoryBackend)
    }
    return cfg, nil
}

func getenvInt(key string, def int) int {
    if v := os.Getenv(key); v != "" {
        var out int
        _, err := fmt.Sscanf(v, "%d", &out)
        if err == nil { return out }
    }
    return def
}

func getenvInt64(key string, def int64) int64 {
    if v := os.Getenv(key); v != "" {
        var out int64
        _, err := fmt.Sscanf(v, "%d", &out)
        if err == nil { return out }
    }
    return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
    if v := os.Getenv(key); v != "" {
        if d, err := time.ParseDuration(v); err == nil {
            return d
        }
    }
    return def
}
