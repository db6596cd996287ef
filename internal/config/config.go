package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env             string        `mapstructure:"ENV"`
	Port            string        `mapstructure:"PORT"`
	DatabaseURL     string        `mapstructure:"DATABASE_URL"`
	AdminKey        string        `mapstructure:"ADMIN_KEY"`
	CORSAllowed     string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RequestTimeout  time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	MaxUploadSizeMB int64         `mapstructure:"MAX_UPLOAD_MB"`
	CountryDefault  string        `mapstructure:"COUNTRY_DEFAULT"`

	// Allocation engine knobs. Load percents are 0..100.
	MinLoadPercent      float64 `mapstructure:"MIN_LOAD_PERCENT"`
	MaxLoadPercent      float64 `mapstructure:"MAX_LOAD_PERCENT"`
	StrictMinLoad       bool    `mapstructure:"STRICT_MIN_LOAD"`
	FuelPricePerLitre   float64 `mapstructure:"FUEL_PRICE_PER_LITRE"`
	FuelEfficiencyKmpl  float64 `mapstructure:"FUEL_EFFICIENCY_KMPL"`
	FallbackBoxWeightKg float64 `mapstructure:"FALLBACK_BOX_WEIGHT_KG"`
}

func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("MAX_UPLOAD_MB", 20)
	v.SetDefault("MIN_LOAD_PERCENT", 60)
	v.SetDefault("MAX_LOAD_PERCENT", 95)
	v.SetDefault("STRICT_MIN_LOAD", true)
	v.SetDefault("FUEL_PRICE_PER_LITRE", 90.0)
	v.SetDefault("FUEL_EFFICIENCY_KMPL", 4.0)
	v.SetDefault("FALLBACK_BOX_WEIGHT_KG", 10.0)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
