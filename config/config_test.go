package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORAGE_DIR", "/tmp/dss")
	t.Setenv("TOPIC_COUNT", "not-a-number")
	t.Setenv("CORS_ORIGINS", " http://a.test , ,http://b.test")

	cfg := Load()
	if cfg.DBDriver != "sqlite" {
		t.Errorf("DBDriver: got %q, want sqlite", cfg.DBDriver)
	}
	if cfg.SQLitePath != "/tmp/dss/dss.db" {
		t.Errorf("SQLitePath: got %q", cfg.SQLitePath)
	}
	if cfg.TopicCount != 4 {
		t.Errorf("TopicCount: got %d, want fallback 4", cfg.TopicCount)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "http://b.test" {
		t.Errorf("CORSOrigins: got %v", cfg.CORSOrigins)
	}
	if cfg.LatestDataPath() != "/tmp/dss/last_data.csv" {
		t.Errorf("LatestDataPath: got %q", cfg.LatestDataPath())
	}
}

func TestDSN(t *testing.T) {
	c := &Config{
		PostgresHost: "db", PostgresPort: "5432", PostgresUser: "u",
		PostgresPassword: "p", PostgresDB: "d", PostgresSSLMode: "disable",
	}
	want := "host=db port=5432 user=u password=p dbname=d sslmode=disable"
	if got := c.DSN(); got != want {
		t.Errorf("DSN: got %q, want %q", got, want)
	}
}
