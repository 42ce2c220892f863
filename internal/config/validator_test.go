package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		NIM: NIMConfig{
			RSHPath:     "/usr/lpp/bos.sysmgt/nim/methods/c_rsh",
			Concurrency: 8,
		},
		Altdisk: AltdiskConfig{
			DiskSizePolicy: "nearest",
			PollInterval:   10 * time.Second,
			StallLimit:     180,
		},
		HMC: HMCConfig{
			Host:    "hmc1.example.com",
			Port:    12443,
			Timeout: 30 * time.Second,
		},
		HTTP: HTTPConfig{
			Retry: RetryConfig{MaxRetries: 3, BaseDelay: time.Second},
		},
		Report: ReportConfig{
			OutputDir: "./reports",
			Timezone:  "UTC",
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	if err := Validate(validConfig()); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
}

func TestValidate_MissingRSHPath(t *testing.T) {
	cfg := validConfig()
	cfg.NIM.RSHPath = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Validate() should reject an empty rsh_path")
	}
	if !strings.Contains(err.Error(), "nim.rshpath") {
		t.Errorf("error should name the field, got %v", err)
	}
}

func TestValidate_BadPolicy(t *testing.T) {
	cfg := validConfig()
	cfg.Altdisk.DiskSizePolicy = "random"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Validate() should reject an unknown policy")
	}

	verrs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("error type = %T, want ValidationErrors", err)
	}
	found := false
	for _, ve := range verrs {
		if ve.Tag == "oneof" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a oneof violation, got %v", err)
	}
}

func TestValidate_TimeLimitFormat(t *testing.T) {
	tests := []struct {
		name    string
		limit   string
		wantErr bool
	}{
		{"empty is allowed", "", false},
		{"valid", "12/31/2025 23:59", false},
		{"iso format rejected", "2025-12-31 23:59", true},
		{"missing time", "12/31/2025", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Altdisk.TimeLimit = tt.limit
			err := Validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_BadTimezone(t *testing.T) {
	cfg := validConfig()
	cfg.Report.Timezone = "Mars/Olympus"

	if err := Validate(cfg); err == nil {
		t.Error("Validate() should reject an unknown timezone")
	}
}

func TestValidate_ExclusiveCredentials(t *testing.T) {
	cfg := validConfig()
	cfg.HMC.Password = "secret"
	cfg.HMC.PasswordFile = "/etc/hmc_passwd"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Validate() should reject password together with password_file")
	}
	if !strings.Contains(err.Error(), "mutually exclusive") {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestValidationError_Error(t *testing.T) {
	ve := &ValidationError{Field: "hmc.port", Message: "value must be less than or equal to 65535"}
	if ve.Error() != "value must be less than or equal to 65535" {
		t.Errorf("Error() = %v", ve.Error())
	}

	verrs := ValidationErrors{ve}
	if !strings.Contains(verrs.Error(), "hmc.port") {
		t.Errorf("ValidationErrors message should name the field, got %v", verrs.Error())
	}
}
