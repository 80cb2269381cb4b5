package config

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/spf13/viper"
)

// AppConfig holds the configuration for the application.
// Tags used:
// - mapstructure: used by viper to unmarshal
// - default: default value to set if missing
// - required: if "true", error if missing
type AppConfig struct {
	// Environment specifies the runtime environment (e.g., development, production).
	Environment string `mapstructure:"APP_ENV" default:"development"`
	// LogLevel defines the logging verbosity (e.g., debug, info, error).
	LogLevel string `mapstructure:"LOG_LEVEL" default:"info"`
	// ServerPort is the port where the server will listen.
	ServerPort int `mapstructure:"SERVER_PORT" default:"8080"`
	// OutboundTimeoutSeconds bounds every outbound carrier/gateway HTTP call.
	OutboundTimeoutSeconds int `mapstructure:"OUTBOUND_TIMEOUT_SECONDS" default:"15"`

	// RedisURL is the connection string for the document store.
	RedisURL string `mapstructure:"REDIS_URL" default:"redis://localhost:6379/0"`

	// Carriers holds credentials and endpoints for the shipping carriers.
	Carriers CarrierConfig `mapstructure:",squash"`

	// Gateways holds credentials for the payment gateways.
	Gateways GatewayConfig `mapstructure:",squash"`
}

// CarrierConfig holds per-carrier webhook secrets and API base URLs.
type CarrierConfig struct {
	// FedexURL is the base URL of the FedEx shipping API.
	FedexURL string `mapstructure:"FEDEX_URL" default:"https://apis.fedex.com"`
	// FedexWebhookSecret signs inbound FedEx webhook bodies.
	FedexWebhookSecret string `mapstructure:"FEDEX_WEBHOOK_SECRET" required:"true"`

	// ShiprocketURL is the base URL of the Shiprocket API.
	ShiprocketURL string `mapstructure:"SHIPROCKET_URL" default:"https://apiv2.shiprocket.in"`
	// ShiprocketToken is the static shared token Shiprocket sends in x-api-key.
	ShiprocketToken string `mapstructure:"SHIPROCKET_TOKEN" required:"true"`

	// UPSURL is the base URL of the UPS shipping API.
	UPSURL string `mapstructure:"UPS_URL" default:"https://onlinetools.ups.com"`
	// UPSWebhookSecret signs inbound UPS webhook bodies.
	UPSWebhookSecret string `mapstructure:"UPS_WEBHOOK_SECRET" required:"true"`
}

// GatewayConfig holds per-gateway webhook verification secrets.
type GatewayConfig struct {
	// RazorpayWebhookSecret verifies the X-Razorpay-Signature header.
	RazorpayWebhookSecret string `mapstructure:"RAZORPAY_WEBHOOK_SECRET" required:"true"`
	// StripeWebhookSecret verifies the Stripe-Signature header.
	StripeWebhookSecret string `mapstructure:"STRIPE_WEBHOOK_SECRET" required:"true"`
	// CashfreeWebhookSecret verifies the x-webhook-signature header.
	CashfreeWebhookSecret string `mapstructure:"CASHFREE_WEBHOOK_SECRET" required:"true"`
}

// Load loads configuration from .env files and environment variables.
func Load(path string) (*AppConfig, error) {
	v := viper.New()

	v.AutomaticEnv()

	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config AppConfig

	if err := processTags(v, &config); err != nil {
		return nil, err
	}

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := validateRequired(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// processTags iterates over the struct fields and sets default values in Viper.
func processTags(v *viper.Viper, config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := processTags(v, val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		key := field.Tag.Get("mapstructure")
		defaultValue := field.Tag.Get("default")

		if key != "" {
			v.BindEnv(key)
		}

		if key != "" && defaultValue != "" {
			v.SetDefault(key, defaultValue)
		}
	}
	return nil
}

// validateRequired checks if fields marked as required have non-zero values.
func validateRequired(config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := validateRequired(val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		required := field.Tag.Get("required")
		if required == "true" {
			value := val.Field(i)
			if isZero(value) {
				key := field.Tag.Get("mapstructure")
				return fmt.Errorf("missing required configuration: %s", key)
			}
		}
	}
	return nil
}

// isZero checks if a reflect.Value is the zero value for its type.
func isZero(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return v.String() == ""
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	default:
		return v.IsZero()
	}
}
