package backend

import (
	"context"
	"testing"

	"despesas/internal/config"
)

func TestFromAppConfig(t *testing.T) {
	tests := []struct {
		name      string
		appConfig *config.Config
		wantType  Type
		wantErr   bool
	}{
		{
			name:      "nil config",
			appConfig: nil,
			wantErr:   true,
		},
		{
			name:      "memory backend",
			appConfig: &config.Config{DataBackend: "memory"},
			wantType:  MemoryBackend,
		},
		{
			name:      "sqlite backend",
			appConfig: &config.Config{DataBackend: "sqlite", SQLiteDBPath: "./test.db"},
			wantType:  SQLiteBackend,
		},
		{
			name:      "postgres backend",
			appConfig: &config.Config{DataBackend: "postgres", PostgresURL: "postgres://localhost/despesas"},
			wantType:  PostgresBackend,
		},
		{
			name:      "unknown backend",
			appConfig: &config.Config{DataBackend: "sheets"},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromAppConfig(tt.appConfig)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FromAppConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if got.Type != tt.wantType {
				t.Errorf("FromAppConfig() Type = %v, want %v", got.Type, tt.wantType)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "memory", config: Config{Type: MemoryBackend}, wantErr: false},
		{name: "sqlite with path", config: Config{Type: SQLiteBackend, SQLiteDBPath: "./test.db"}, wantErr: false},
		{name: "sqlite without path", config: Config{Type: SQLiteBackend}, wantErr: true},
		{name: "postgres with url", config: Config{Type: PostgresBackend, PostgresURL: "postgres://localhost/despesas"}, wantErr: false},
		{name: "postgres without url", config: Config{Type: PostgresBackend}, wantErr: true},
		{name: "invalid type", config: Config{Type: "sheets"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFactory_CreateMemoryStore(t *testing.T) {
	factory := NewFactory(nil)

	result, err := factory.CreateStore(context.Background(), Config{Type: MemoryBackend})
	if err != nil {
		t.Fatalf("CreateStore() error = %v", err)
	}
	if result.Store == nil {
		t.Fatal("CreateStore() returned nil store")
	}
	if result.Cleanup != nil {
		t.Error("CreateStore() memory store should not need cleanup")
	}
}
