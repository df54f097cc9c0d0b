package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr        string
	DBDSN           string
	JWTIssuer       string
	JWTSecret       string
	JWTTTL          time.Duration
	InternalToken   string
	WebSocketOrigin string
	QuoteAPIURL     string
	QuoteAPIRPS     float64
	LockWait        time.Duration
	PendingTradeTTL time.Duration
	SweepSpec       string
	ExpiryWindow    time.Duration
	ExpirySpec      string
}

func Load() (Config, error) {
	// .env is a developer convenience; absent in production
	_ = godotenv.Load()

	var c Config
	var missing []string
	c.HTTPAddr = os.Getenv("HTTP_ADDR")
	if c.HTTPAddr == "" {
		missing = append(missing, "HTTP_ADDR")
	}
	c.DBDSN = os.Getenv("DB_DSN")
	if c.DBDSN == "" {
		missing = append(missing, "DB_DSN")
	}
	c.JWTIssuer = os.Getenv("JWT_ISSUER")
	if c.JWTIssuer == "" {
		missing = append(missing, "JWT_ISSUER")
	}
	c.JWTSecret = os.Getenv("JWT_SECRET")
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	jwtTTL := os.Getenv("JWT_TTL")
	if jwtTTL == "" {
		missing = append(missing, "JWT_TTL")
	} else {
		d, err := time.ParseDuration(jwtTTL)
		if err != nil {
			return c, err
		}
		c.JWTTTL = d
	}
	c.InternalToken = os.Getenv("INTERNAL_API_TOKEN")
	if c.InternalToken == "" {
		missing = append(missing, "INTERNAL_API_TOKEN")
	}
	c.WebSocketOrigin = os.Getenv("WS_ORIGIN")
	if c.WebSocketOrigin == "" {
		missing = append(missing, "WS_ORIGIN")
	}
	c.QuoteAPIURL = strings.TrimSpace(os.Getenv("QUOTE_API_URL"))
	c.QuoteAPIRPS = 1
	if raw := os.Getenv("QUOTE_API_RPS"); raw != "" {
		rps, err := strconv.ParseFloat(raw, 64)
		if err != nil || rps <= 0 {
			return c, errors.New("invalid QUOTE_API_RPS")
		}
		c.QuoteAPIRPS = rps
	}
	c.LockWait = 3 * time.Second
	if raw := os.Getenv("POSITION_LOCK_WAIT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return c, errors.New("invalid POSITION_LOCK_WAIT")
		}
		c.LockWait = d
	}
	c.PendingTradeTTL = time.Hour
	if raw := os.Getenv("PENDING_TRADE_TTL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return c, errors.New("invalid PENDING_TRADE_TTL")
		}
		c.PendingTradeTTL = d
	}
	c.SweepSpec = os.Getenv("PENDING_SWEEP_CRON")
	if c.SweepSpec == "" {
		c.SweepSpec = "@every 10m"
	}
	c.ExpiryWindow = 7 * 24 * time.Hour
	if raw := os.Getenv("OPTION_EXPIRY_WINDOW"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return c, errors.New("invalid OPTION_EXPIRY_WINDOW")
		}
		c.ExpiryWindow = d
	}
	c.ExpirySpec = os.Getenv("OPTION_EXPIRY_CRON")
	if c.ExpirySpec == "" {
		c.ExpirySpec = "@daily"
	}
	if len(missing) > 0 {
		return c, errors.New("missing required env: " + strings.Join(missing, ","))
	}
	return c, nil
}
