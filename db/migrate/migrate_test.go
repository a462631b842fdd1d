package migrate

import (
	"strings"
	"testing"
)

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		filename    string
		wantVersion int
		wantName    string
		wantErr     bool
	}{
		{"001_sensor_data_raw.sql", 1, "sensor_data_raw", false},
		{"002_equipment_status.sql", 2, "equipment_status", false},
		{"100_future_migration.sql", 100, "future_migration", false},
		{"001_name_with_underscores.sql", 1, "name_with_underscores", false},
		{"invalid.sql", 0, "", true},
		{"abc_name.sql", 0, "", true},
		{"001.sql", 0, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			version, name, err := parseMigrationFilename(tt.filename)

			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %s, got nil", tt.filename)
				}
				return
			}

			if err != nil {
				t.Errorf("unexpected error for %s: %v", tt.filename, err)
				return
			}

			if version != tt.wantVersion {
				t.Errorf("version: got %d, want %d", version, tt.wantVersion)
			}
			if name != tt.wantName {
				t.Errorf("name: got %s, want %s", name, tt.wantName)
			}
		})
	}
}

func TestGetAvailableMigrationsHotTier(t *testing.T) {
	migrations, err := getAvailableMigrations(HotTier)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(migrations) == 0 {
		t.Fatal("expected at least one hot-tier migration, got none")
	}
	if migrations[0].version != 1 {
		t.Errorf("first migration version: got %d, want 1", migrations[0].version)
	}
	if !strings.Contains(migrations[0].sql, "sensor_data_raw") {
		t.Error("hot-tier migration 001 does not create sensor_data_raw")
	}
}

func TestGetAvailableMigrationsWarmTier(t *testing.T) {
	migrations, err := getAvailableMigrations(WarmTier)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 1; i < len(migrations); i++ {
		if migrations[i].version <= migrations[i-1].version {
			t.Errorf("migrations not sorted: %d comes after %d",
				migrations[i].version, migrations[i-1].version)
		}
	}

	var sawTenants bool
	for _, m := range migrations {
		if m.sql == "" {
			t.Errorf("migration %d (%s) has empty SQL", m.version, m.name)
		}
		if m.name == "tenants" {
			sawTenants = true
		}
	}
	if !sawTenants {
		t.Error("warm-tier migrations missing 002_tenants.sql")
	}
}

func TestMigrationFilesAreEmbedded(t *testing.T) {
	for _, tier := range []Tier{HotTier, WarmTier} {
		entries, err := migrationsFS.ReadDir("migrations/" + string(tier))
		if err != nil {
			t.Fatalf("failed to read embedded %s migrations: %v", tier, err)
		}
		if len(entries) == 0 {
			t.Fatalf("no migration files embedded for tier %s", tier)
		}
	}
}
