// Package configpkg provides parsing functionality for environment variables.
package configpkg

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
//
// The values are read by viper fron a config file or environement variables.
type Config struct {
	ServerAddress string `mapstructure:"SERVER_ADDRESS"`
	Environement  string `mapstructure:"GO_ENV"`

	TokenType            string        `mapstructure:"TOKEN_TYPE"`
	TokenSymmetricKey    string        `mapstructure:"TOKEN_SYMMETRIC_KEY"`
	AccessTokenDuration  time.Duration `mapstructure:"ACCESS_TOKEN_DURATION"`
	OperatorUsername     string        `mapstructure:"OPERATOR_USERNAME"`
	OperatorPasswordHash string        `mapstructure:"OPERATOR_PASSWORD_HASH"`
	OperatorPassword     string        `mapstructure:"OPERATOR_PASSWORD"`

	SweepInterval   time.Duration `mapstructure:"SWEEP_INTERVAL"`
	ConvertingAfter time.Duration `mapstructure:"CONVERTING_AFTER"`
	InTransitAfter  time.Duration `mapstructure:"IN_TRANSIT_AFTER"`
	TransitDuration time.Duration `mapstructure:"TRANSIT_DURATION"`

	LimitDailyAmount   string `mapstructure:"LIMIT_DAILY_AMOUNT"`
	LimitDailyCount    int    `mapstructure:"LIMIT_DAILY_COUNT"`
	LimitWeeklyAmount  string `mapstructure:"LIMIT_WEEKLY_AMOUNT"`
	LimitWeeklyCount   int    `mapstructure:"LIMIT_WEEKLY_COUNT"`
	LimitMonthlyAmount string `mapstructure:"LIMIT_MONTHLY_AMOUNT"`
	LimitMonthlyCount  int    `mapstructure:"LIMIT_MONTHLY_COUNT"`

	CryptoFeeRate string `mapstructure:"CRYPTO_FEE_RATE"`

	LoanDecisionDelay       time.Duration `mapstructure:"LOAN_DECISION_DELAY"`
	LoanApprovalProbability float64       `mapstructure:"LOAN_APPROVAL_PROBABILITY"`
	LoanPolicySeed          int64         `mapstructure:"LOAN_POLICY_SEED"`

	EventSink string `mapstructure:"EVENT_SINK"`
	DBDriver  string `mapstructure:"DB_DRIVER"`
	DBSource  string `mapstructure:"DB_SOURCE"`

	SeedCurrency        string `mapstructure:"SEED_CURRENCY"`
	SeedCheckingBalance string `mapstructure:"SEED_CHECKING_BALANCE"`
	SeedSavingsBalance  string `mapstructure:"SEED_SAVINGS_BALANCE"`
}

// Load read configuration from file or environment variables.
func Load(path string) (Config, error) {
	var c Config

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")

	setDefaults(v)

	v.AutomaticEnv()

	err := v.ReadInConfig()
	if err != nil {
		return c, err
	}

	err = v.Unmarshal(&c)
	if err != nil {
		return c, err
	}

	return c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_ADDRESS", "0.0.0.0:8080")
	v.SetDefault("TOKEN_TYPE", "paseto")
	v.SetDefault("ACCESS_TOKEN_DURATION", 15*time.Minute)
	v.SetDefault("SWEEP_INTERVAL", time.Second)
	v.SetDefault("CONVERTING_AFTER", 5*time.Second)
	v.SetDefault("IN_TRANSIT_AFTER", 15*time.Second)
	v.SetDefault("TRANSIT_DURATION", 20*time.Second)
	v.SetDefault("LIMIT_DAILY_AMOUNT", "0")
	v.SetDefault("LIMIT_WEEKLY_AMOUNT", "0")
	v.SetDefault("LIMIT_MONTHLY_AMOUNT", "0")
	v.SetDefault("CRYPTO_FEE_RATE", "0.005")
	v.SetDefault("LOAN_DECISION_DELAY", 10*time.Second)
	v.SetDefault("LOAN_APPROVAL_PROBABILITY", 0.7)
	v.SetDefault("EVENT_SINK", "log")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("SEED_CURRENCY", "USD")
	v.SetDefault("SEED_CHECKING_BALANCE", "0")
	v.SetDefault("SEED_SAVINGS_BALANCE", "0")
}

// Decimal parses a decimal config value. An empty value is zero.
func Decimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}

	return decimal.NewFromString(s)
}
