package config_test

import (
	"os"
	"testing"

	"github.com/aerc-go/aerc/config"
)

// TestLoadConfig executes a black-box test on the implemented
// functionality to load a TOML accounts file.
func TestLoadConfig(t *testing.T) {

	tmp, err := os.CreateTemp(t.TempDir(), "accounts-*.toml")
	if err != nil {
		t.Fatalf("[config.TestLoadConfig] Failed to create temp file: %s\n", err.Error())
	}

	_, err = tmp.WriteString(`
[accounts.personal]
uri = "imaps://jdoe@imap.example.com"
use_ssl = true
idle_refresh = "25m"
folders = ["INBOX", "Archive"]
`)
	if err != nil {
		t.Fatalf("[config.TestLoadConfig] Failed to write temp file: %s\n", err.Error())
	}
	tmp.Close()

	conf, err := config.LoadConfig(tmp.Name())
	if err != nil {
		t.Fatalf("[config.TestLoadConfig] Expected success while loading valid accounts file but received: '%s'\n", err.Error())
	}

	personal, ok := conf.Accounts["personal"]
	if !ok {
		t.Fatalf("[config.TestLoadConfig] Expected account 'personal' to be present")
	}

	if personal.URI != "imaps://jdoe@imap.example.com" {
		t.Fatalf("[config.TestLoadConfig] Expected '%s' but received '%s'\n", "imaps://jdoe@imap.example.com", personal.URI)
	}

	if personal.Duration().String() != "25m0s" {
		t.Fatalf("[config.TestLoadConfig] Expected idle refresh '25m0s' but received '%s'\n", personal.Duration().String())
	}

	// Try to load a non-existent accounts file. This should fail.
	if _, err := config.LoadConfig("does-not-exist.toml"); err == nil {
		t.Fatal("[config.TestLoadConfig] Expected fail while loading does-not-exist.toml but received 'nil' error.")
	}
}

// TestAccountDurationDefault checks that an account without an
// explicit idle_refresh falls back to the 28 minute default.
func TestAccountDurationDefault(t *testing.T) {

	a := config.Account{}

	if a.Duration().String() != "28m0s" {
		t.Fatalf("[config.TestAccountDurationDefault] Expected default '28m0s' but received '%s'\n", a.Duration().String())
	}
}
