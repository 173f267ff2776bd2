package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"
)

type Mode string

const (
	ModeLive Mode = "live"
	ModeSim  Mode = "sim"
)

// Config is the process-wide settings, loaded once at startup and never
// mutated afterwards.
type Config struct {
	Symbols        []string
	PositionUSD    float64
	IgnoreWindow   time.Duration
	OTMThreshold   float64
	ExpDaysAhead   int
	Timezone       string
	Loc            *time.Location
	Mode           Mode
	TakeProfitPct  float64
	PartialSellPct float64
	StopLossPct    float64
	EODHour        int
	EODMinute      int
	DataFeed       string
	BrokerBaseURL  string
	APIKey         string
	APISecret      string
	PolygonAPIKey  string
	FillPoll       time.Duration
	FillTimeout    time.Duration
	LogFile        string
	JournalPath    string
}

// Load reads flags with environment fallbacks, loading a .env file first if
// one is present.
func Load() (Config, error) {
	loadDotEnvIfPresent(".env")

	var cfg Config
	var symbols, mode, timezone, eod string
	var ignoreMinutes int

	flag.StringVar(&symbols, "symbols", envOr("SYMBOLS", "SPY"), "comma-separated underlying symbols")
	flag.Float64Var(&cfg.PositionUSD, "position-usd", envOrFloat("POSITION_USD", 10000), "notional budget per trade")
	flag.IntVar(&ignoreMinutes, "ignore-minutes", envOrInt("IGNORE_MINUTES", 15), "session warm-up window to skip")
	flag.Float64Var(&cfg.OTMThreshold, "otm-threshold", envOrFloat("OTM_THRESHOLD", 1.0), "max strike distance before the fallback strike")
	flag.IntVar(&cfg.ExpDaysAhead, "exp-days-ahead", envOrInt("EXP_DAYS_AHEAD", 1), "calendar days until expiry")
	flag.StringVar(&timezone, "timezone", envOr("TIMEZONE", "US/Mountain"), "trading timezone")
	flag.StringVar(&mode, "mode", envOr("MODE", string(ModeSim)), "run mode: live or sim")
	flag.Float64Var(&cfg.TakeProfitPct, "take-profit-pct", envOrFloat("TAKE_PROFIT_PCT", 0.10), "take-profit distance from fill")
	flag.Float64Var(&cfg.PartialSellPct, "partial-sell-pct", envOrFloat("PARTIAL_SELL_PCT", 0.90), "share of the fill sold at take-profit")
	flag.Float64Var(&cfg.StopLossPct, "stop-loss-pct", envOrFloat("STOP_LOSS_PCT", 0.10), "stop-loss distance from fill")
	flag.StringVar(&eod, "eod-time", envOr("EOD_TIME", "15:50"), "end-of-day cutoff, HH:MM local")
	flag.StringVar(&cfg.DataFeed, "data-feed", envOr("DATA_FEED", "iex"), "bar source: iex, sip or polygon")
	flag.StringVar(&cfg.BrokerBaseURL, "broker-base-url", envOr("BROKER_BASE_URL", "https://paper-api.alpaca.markets"), "trading API base URL")
	flag.DurationVar(&cfg.FillPoll, "fill-poll", envOrDuration("FILL_POLL", time.Second), "interval between fill checks")
	flag.DurationVar(&cfg.FillTimeout, "fill-timeout", envOrDuration("FILL_TIMEOUT", 30*time.Second), "max wait for an entry fill")
	flag.StringVar(&cfg.LogFile, "log-file", envOr("LOG_FILE", "strategy.log"), "log destination, mirrored to stdout")
	flag.StringVar(&cfg.JournalPath, "journal-path", envOr("JOURNAL_PATH", "journal.csv"), "per-run trade journal")
	flag.Parse()

	cfg.Symbols = splitSymbols(symbols)
	cfg.IgnoreWindow = time.Duration(ignoreMinutes) * time.Minute
	cfg.Mode = Mode(mode)
	cfg.Timezone = timezone
	cfg.APIKey = os.Getenv("APCA_API_KEY_ID")
	cfg.APISecret = os.Getenv("APCA_API_SECRET_KEY")
	cfg.PolygonAPIKey = os.Getenv("POLYGON_API_KEY")

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return cfg, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	cfg.Loc = loc

	hour, minute, err := parseClock(eod)
	if err != nil {
		return cfg, fmt.Errorf("invalid eod-time %q: %w", eod, err)
	}
	cfg.EODHour, cfg.EODMinute = hour, minute

	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	if len(cfg.Symbols) == 0 {
		return fmt.Errorf("at least one symbol is required")
	}
	if cfg.Mode != ModeLive && cfg.Mode != ModeSim {
		return fmt.Errorf("invalid mode: %s", cfg.Mode)
	}
	if cfg.PositionUSD <= 0 {
		return fmt.Errorf("position-usd must be > 0")
	}
	if cfg.IgnoreWindow < 0 {
		return fmt.Errorf("ignore-minutes must be >= 0")
	}
	if cfg.OTMThreshold < 0 {
		return fmt.Errorf("otm-threshold must be >= 0")
	}
	if cfg.ExpDaysAhead < 0 {
		return fmt.Errorf("exp-days-ahead must be >= 0")
	}
	if cfg.TakeProfitPct <= 0 {
		return fmt.Errorf("take-profit-pct must be > 0")
	}
	if cfg.StopLossPct <= 0 || cfg.StopLossPct >= 1 {
		return fmt.Errorf("stop-loss-pct must be in (0, 1)")
	}
	if cfg.PartialSellPct < 0 || cfg.PartialSellPct > 1 {
		return fmt.Errorf("partial-sell-pct must be in [0, 1]")
	}
	switch cfg.DataFeed {
	case "iex", "sip", "polygon":
	default:
		return fmt.Errorf("invalid data-feed: %s", cfg.DataFeed)
	}
	if cfg.FillPoll <= 0 {
		return fmt.Errorf("fill-poll must be > 0")
	}
	if cfg.FillTimeout < cfg.FillPoll {
		return fmt.Errorf("fill-timeout must be >= fill-poll")
	}
	if cfg.Mode == ModeLive {
		if cfg.APIKey == "" || cfg.APISecret == "" {
			return fmt.Errorf("APCA_API_KEY_ID and APCA_API_SECRET_KEY are required in live mode")
		}
		if cfg.DataFeed == "polygon" && cfg.PolygonAPIKey == "" {
			return fmt.Errorf("POLYGON_API_KEY is required for the polygon feed")
		}
	}
	return nil
}

func splitSymbols(raw string) []string {
	parts := strings.Split(raw, ",")
	symbols := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			symbols = append(symbols, strings.ToUpper(s))
		}
	}
	return symbols
}

func parseClock(raw string) (int, int, error) {
	t, err := time.Parse("15:04", raw)
	if err != nil {
		return 0, 0, err
	}
	return t.Hour(), t.Minute(), nil
}
