package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSecret(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "secret.txt")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func TestResolveSecret(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		file    string // secret file content; "-" for a missing file
		want    string
		wantErr bool
	}{
		{name: "env only", env: "env-value", want: "env-value"},
		{name: "file wins and is trimmed", env: "env-value", file: "  file-value \n\n", want: "file-value"},
		{name: "neither set"},
		{name: "missing file", env: "env-value", file: "-", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SB_TEST_SECRET", tt.env)
			switch tt.file {
			case "":
				t.Setenv("SB_TEST_SECRET_FILE", "")
			case "-":
				t.Setenv("SB_TEST_SECRET_FILE", filepath.Join(t.TempDir(), "absent"))
			default:
				t.Setenv("SB_TEST_SECRET_FILE", writeSecret(t, tt.file))
			}

			got, err := ResolveSecret("SB_TEST_SECRET")
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoadSecrets(t *testing.T) {
	for _, env := range []string{EnvPostgresPassword, EnvMQTTPassword, EnvAdminUser, EnvAdminPass, EnvOperatorUser, EnvOperatorPass} {
		t.Setenv(env, "")
		t.Setenv(env+"_FILE", "")
	}
	t.Setenv(EnvPostgresPassword, "pg")
	t.Setenv(EnvAdminUser, "admin")
	t.Setenv(EnvAdminPass+"_FILE", writeSecret(t, "s3cret\n"))

	s, err := LoadSecrets()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.PostgresPassword != "pg" || s.AdminUser != "admin" || s.AdminPass != "s3cret" {
		t.Errorf("unexpected secrets %+v", s)
	}
	if s.MQTTPassword != "" || s.OperatorUser != "" || s.OperatorPass != "" {
		t.Errorf("expected unset secrets to be empty, got %+v", s)
	}
}

func TestLoadSecrets_UnreadableFile(t *testing.T) {
	t.Setenv(EnvMQTTPassword+"_FILE", "/nonexistent/mqtt")

	if _, err := LoadSecrets(); err == nil {
		t.Error("expected error for unreadable secret file")
	}
}
