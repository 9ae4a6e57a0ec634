// Package config provides functions to read in the accounts file and
// optional .env credential overrides into defined types.
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// Structs

// Account holds all information parsed from one [accounts.NAME] table
// of the accounts TOML file.
type Account struct {
	URI         string   `toml:"uri"`
	UseSSL      bool     `toml:"use_ssl"`
	IdleRefresh duration `toml:"idle_refresh"`
	Folders     []string `toml:"folders"`
}

// Config holds all accounts parsed from the supplied TOML file, keyed
// by the name given to each [accounts.NAME] table.
type Config struct {
	Accounts map[string]Account `toml:"accounts"`
}

// duration lets a TOML string like "28m" decode straight into a
// time.Duration field via toml.Unmarshaler.
type duration time.Duration

func (d *duration) UnmarshalText(text []byte) error {

	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("[config.duration.UnmarshalText] Failed to parse duration %q: %w", string(text), err)
	}

	*d = duration(parsed)

	return nil
}

// Duration returns the account's idle-refresh interval as a
// time.Duration, defaulting to 28 minutes (under the 29-minute server
// inactivity kill) when the account left it unset.
func (a Account) Duration() time.Duration {

	if a.IdleRefresh == 0 {
		return 28 * time.Minute
	}

	return time.Duration(a.IdleRefresh)
}

// Functions

// LoadConfig takes in the path to the accounts file of aerc-go in
// TOML syntax and places the values from the file in the corresponding
// struct.
func LoadConfig(configFile string) (*Config, error) {

	conf := new(Config)

	if _, err := toml.DecodeFile(configFile, conf); err != nil {
		return nil, fmt.Errorf("[config.LoadConfig] Failed to read in TOML config file at '%s' with: %w", configFile, err)
	}

	return conf, nil
}
