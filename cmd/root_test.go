package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
)

const testConfig = `connections:
  default:
    driver: postgres
    host: testhost
    port: 5433
    user: testuser
    database: testdb
defaults:
  migrations: db/migrations
  format: json
  version_table: schema_versions
params:
  schema: app
`

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(testConfig), 0o600); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}
	return path
}

func TestInitConfig_FileNotFound(t *testing.T) {
	resetState(t)

	// A missing config file is not an error.
	initConfig()

	if viper.ConfigFileUsed() != "" && fileExists(viper.ConfigFileUsed()) {
		t.Errorf("no config file should be loaded, got %s", viper.ConfigFileUsed())
	}
	if got := viper.GetString("format"); got != "text" {
		t.Errorf("format = %q, want flag default %q", got, "text")
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestInitConfig_WithConfigFile(t *testing.T) {
	resetState(t)
	cfgFile = writeConfig(t)

	initConfig()

	tests := []struct {
		key  string
		want string
	}{
		{"driver", "postgres"},
		{"host", "testhost"},
		{"port", "5433"},
		{"user", "testuser"},
		{"database", "testdb"},
		{"migrations", "db/migrations"},
		{"format", "json"},
		{"version-table", "schema_versions"},
	}
	for _, tt := range tests {
		if got := viper.GetString(tt.key); got != tt.want {
			t.Errorf("viper.GetString(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
	if got := templateParams()["schema"]; got != "app" {
		t.Errorf("templateParams()[schema] = %v, want app", got)
	}
}

func TestInitConfig_FlagsOverrideConfig(t *testing.T) {
	resetState(t)
	cfgFile = writeConfig(t)

	if err := rootCmd.PersistentFlags().Set("host", "flaghost"); err != nil {
		t.Fatal(err)
	}
	initConfig()

	if got := viper.GetString("host"); got != "flaghost" {
		t.Errorf("host = %q, want flag value %q", got, "flaghost")
	}
	if got := viper.GetString("user"); got != "testuser" {
		t.Errorf("user = %q, want config value %q", got, "testuser")
	}
}

func TestInitConfig_EnvOverridesConfig(t *testing.T) {
	resetState(t)
	cfgFile = writeConfig(t)
	t.Setenv("DBSHIFT_VERSION_TABLE", "env_versions")

	initConfig()

	if got := viper.GetString("version-table"); got != "env_versions" {
		t.Errorf("version-table = %q, want env value %q", got, "env_versions")
	}
}

func TestConnectionConfig_Defaults(t *testing.T) {
	resetState(t)

	cfg, err := connectionConfig()
	if err != nil {
		t.Fatalf("connectionConfig() error = %v", err)
	}
	if cfg.Driver != "mysql" || cfg.Host != "127.0.0.1" || cfg.User != "dbshift" {
		t.Errorf("connectionConfig() = %+v, want mysql on 127.0.0.1 as dbshift", cfg)
	}
	if got := connectionInfo(cfg); got.Port != 3306 {
		t.Errorf("connectionInfo().Port = %d, want 3306", got.Port)
	}

	viper.Set("socket", "/tmp/mysql.sock")
	cfg, _ = connectionConfig()
	if cfg.Host != "" {
		t.Errorf("host = %q, want empty when a socket is set", cfg.Host)
	}
}

func TestEnvVar(t *testing.T) {
	if got := envVar("tls-ca"); got != "DBSHIFT_TLS_CA" {
		t.Errorf("envVar(tls-ca) = %q", got)
	}
}

func TestRootCmd_Commands(t *testing.T) {
	want := []string{"migrate", "rollback", "plan", "status", "connect", "config", "version"}
	registered := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		registered[c.Name()] = true
	}
	for _, name := range want {
		if !registered[name] {
			t.Errorf("%s command should be registered with root command", name)
		}
	}
}
