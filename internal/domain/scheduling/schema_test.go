package scheduling

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// loadTableDefs parses the migration DDL into table -> column -> column
// definition line, so tests can hold the schema and the repository column
// lists to the same truth.
func loadTableDefs(t *testing.T) map[string]map[string]string {
	t.Helper()
	dir := filepath.Join("..", "..", "..", "migrations")
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}

	tables := make(map[string]map[string]string)
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			t.Fatalf("read %s: %v", e.Name(), err)
		}
		var current map[string]string
		for _, line := range strings.Split(string(data), "\n") {
			trimmed := strings.TrimSpace(line)
			switch {
			case strings.HasPrefix(trimmed, "CREATE TABLE"):
				rest := strings.TrimPrefix(trimmed, "CREATE TABLE IF NOT EXISTS ")
				name := strings.Fields(rest)[0]
				current = make(map[string]string)
				tables[name] = current
			case current == nil:
			case strings.HasPrefix(trimmed, ")"):
				current = nil
			case strings.HasPrefix(trimmed, "CONSTRAINT"):
			default:
				fields := strings.Fields(trimmed)
				if len(fields) >= 2 {
					current[fields[0]] = strings.TrimSuffix(trimmed, ",")
				}
			}
		}
	}
	return tables
}

func splitColumnList(list string) []string {
	var cols []string
	for _, c := range strings.Split(list, ",") {
		cols = append(cols, strings.TrimSpace(c))
	}
	return cols
}

func TestMigrationsCoverRepositoryColumns(t *testing.T) {
	tables := loadTableDefs(t)

	cases := []struct {
		table string
		cols  string
	}{
		{"day_schedule", schedCols},
		{"appointment", apptCols},
		{"waitlist", waitlistCols},
	}
	for _, tc := range cases {
		defs, ok := tables[tc.table]
		if !ok {
			t.Fatalf("no CREATE TABLE for %s in migrations", tc.table)
		}
		for _, col := range splitColumnList(tc.cols) {
			if _, ok := defs[col]; !ok {
				t.Errorf("%s: column %q used by the repository is missing from the migrations", tc.table, col)
			}
		}
	}
}

func TestMigrationsAllowOptionalColumnsNull(t *testing.T) {
	tables := loadTableDefs(t)

	// These columns are bound to pointer fields and are written as SQL
	// NULL when unset. An explicit NULL bypasses the column DEFAULT, so
	// the schema must not mark them NOT NULL or the very first booking
	// would fail with a not-null violation.
	optional := map[string][]string{
		"appointment": {"reason", "cancelation_reason", "rescheduled_date", "modified_by"},
		"waitlist":    {"reason"},
	}
	for table, cols := range optional {
		for _, col := range cols {
			def := tables[table][col]
			if def == "" {
				t.Fatalf("%s.%s not found in migrations", table, col)
			}
			if strings.Contains(def, "NOT NULL") {
				t.Errorf("%s.%s must be nullable, got %q", table, col, def)
			}
		}
	}
}

func TestMigrationsConsultationTypeDefault(t *testing.T) {
	tables := loadTableDefs(t)
	def := tables["appointment"]["consultation_type"]
	if !strings.Contains(def, "'"+ConsultOffline+"'") {
		t.Errorf("consultation_type default %q does not match %q", def, ConsultOffline)
	}
}
