package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Functions

// LoadEnv looks for an .env file in the current directory and reads
// in all defined values. It does not fail if the file does not exist;
// callers still reach the system environment either way.
func LoadEnv() error {

	if err := godotenv.Load(".env"); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("[config.LoadEnv] Failed to read in .env file with: %w", err)
		}
	}

	return nil
}

// PasswordFor returns the password configured for the named account
// via the ACCOUNT_<NAME>_PASSWORD environment variable (NAME upper-
// cased, non-alphanumeric characters replaced with '_'), keeping
// credentials out of the TOML accounts file.
func PasswordFor(account string) (string, bool) {

	key := "ACCOUNT_" + envSafe(account) + "_PASSWORD"

	password, ok := os.LookupEnv(key)

	return password, ok
}

func envSafe(name string) string {

	upper := strings.ToUpper(name)

	safe := make([]rune, 0, len(upper))
	for _, r := range upper {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			safe = append(safe, r)
		} else {
			safe = append(safe, '_')
		}
	}

	return string(safe)
}
