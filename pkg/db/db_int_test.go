package db

import (
	"os"
	"path/filepath"
	"testing"

	"liyu1981.xyz/sos-safety-service/pkg/common"
	constant "liyu1981.xyz/sos-safety-service/pkg/common"
)

func TestWithEnvPath(t *testing.T) {
	common.SetTestLoggerNop()

	if os.Getenv(constant.EnvKeyRunIntegrationTests) != "true" {
		t.Skip("Skipping integration test: RUN_INTEGRATION_TESTS environment variable not set")
	}

	testPath := filepath.Join(t.TempDir(), "test.db")
	t.Setenv(constant.EnvKeySosDbPath, testPath)

	instance, err := Open(UseSqliteDialector())
	if err != nil {
		t.Fatalf("Expected database to open: %v", err)
	}
	defer instance.Close()

	if _, err := os.Stat(testPath); os.IsNotExist(err) {
		t.Errorf("Expected database file to be created at %s", testPath)
	}

	// reopening an existing file keeps the recorded schema version
	if err := instance.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	reopened, err := Open(UseSqliteDialector())
	if err != nil {
		t.Fatalf("Expected database to reopen: %v", err)
	}
	defer reopened.Close()

	version, err := reopened.Version()
	if err != nil || version != constant.SchemaVersion {
		t.Errorf("expected schema version %d, got %d (%v)", constant.SchemaVersion, version, err)
	}
}
