package db

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kiwidesk/kiwi/internal/config"
	"github.com/kiwidesk/kiwi/internal/models"
	"gorm.io/gorm"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		name     string
		host     string
		port     int
		user     string
		password string
		database string
		want     string
	}{
		{
			name:     "default local",
			host:     "127.0.0.1",
			port:     3306,
			user:     "root",
			database: "kiwi",
			want:     "root@tcp(127.0.0.1:3306)/kiwi?parseTime=true",
		},
		{
			name:     "with password",
			host:     "10.0.0.5",
			port:     3307,
			user:     "kiwi",
			password: "pw",
			database: "kiwi_prod",
			want:     "kiwi:pw@tcp(10.0.0.5:3307)/kiwi_prod?parseTime=true",
		},
		{
			name: "admin (no database)",
			host: "db.local",
			port: 3306,
			user: "root",
			want: "root@tcp(db.local:3306)/?parseTime=true",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DSN(tt.host, tt.port, tt.user, tt.password, tt.database)
			if got != tt.want {
				t.Errorf("DSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConnect_RequiresServer(t *testing.T) {
	var fn func(string, int, string, string, string, bool) (*gorm.DB, error) = Connect
	if fn == nil {
		t.Fatal("Connect function is nil")
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Driver: "oracle"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "unsupported driver") {
		t.Errorf("error = %q", err.Error())
	}
}

func TestAllModels_Count(t *testing.T) {
	if n := len(AllModels()); n != 3 {
		t.Errorf("AllModels() returned %d models, want 3", n)
	}
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := Open(config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := AutoMigrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

func TestAutoMigrate_CreatesTables(t *testing.T) {
	gdb := testDB(t)
	for _, table := range []string{"tasks", "grades", "oauth_tokens"} {
		if !gdb.Migrator().HasTable(table) {
			t.Errorf("table %s missing after migrate", table)
		}
	}
}

func TestScope_CommitsOnSuccess(t *testing.T) {
	gdb := testDB(t)

	err := Scope(context.Background(), gdb, func(tx *gorm.DB) error {
		return tx.Create(&models.Grade{Subject: "Math", Date: "01/02", Value: 15}).Error
	})
	if err != nil {
		t.Fatalf("Scope: %v", err)
	}

	var count int64
	gdb.Model(&models.Grade{}).Count(&count)
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestScope_RollsBackOnError(t *testing.T) {
	gdb := testDB(t)
	boom := errors.New("boom")

	err := Scope(context.Background(), gdb, func(tx *gorm.DB) error {
		if err := tx.Create(&models.Grade{Subject: "Math", Value: 15}).Error; err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Scope error = %v, want boom", err)
	}

	var count int64
	gdb.Model(&models.Grade{}).Count(&count)
	if count != 0 {
		t.Errorf("count = %d after rollback, want 0", count)
	}
}

func TestScope_RollsBackOnPanic(t *testing.T) {
	gdb := testDB(t)

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected panic to propagate")
			}
		}()
		Scope(context.Background(), gdb, func(tx *gorm.DB) error {
			tx.Create(&models.Grade{Subject: "Physics", Value: 9})
			panic("unexpected")
		})
	}()

	var count int64
	gdb.Model(&models.Grade{}).Count(&count)
	if count != 0 {
		t.Errorf("count = %d after panic, want 0", count)
	}
}

func TestScope_NilDB(t *testing.T) {
	err := Scope(context.Background(), nil, func(tx *gorm.DB) error { return nil })
	if err == nil {
		t.Fatal("expected error for nil db")
	}
}
