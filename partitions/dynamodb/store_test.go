//go:build !integration

package dynamodb

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/dhowell/go-offline-cache/partitions"
)

func TestNewDynamoDBStore(t *testing.T) {
	tests := []struct {
		name        string
		client      *dynamodb.Client
		config      *Config
		expectedErr bool
	}{
		{
			name:        "nil client returns error",
			client:      nil,
			config:      &Config{Table: "test-table"},
			expectedErr: true,
		},
		{
			name:        "nil config returns error",
			client:      &dynamodb.Client{},
			config:      nil,
			expectedErr: true,
		},
		{
			name:        "missing table returns error",
			client:      &dynamodb.Client{},
			config:      &Config{},
			expectedErr: true,
		},
		{
			name:        "valid config",
			client:      &dynamodb.Client{},
			config:      &Config{Table: "test-table"},
			expectedErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := New(context.Background(), tt.client, tt.config)

			if tt.expectedErr {
				var ve partitions.ValidationError
				if !errors.As(err, &ve) {
					t.Errorf("expected validation error, got %v", err)
				}
				if store != nil {
					t.Error("expected nil store")
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if store.table != tt.config.Table {
				t.Errorf("expected table %s, got %s", tt.config.Table, store.table)
			}
			if store.now == nil {
				t.Error("expected default time provider")
			}
		})
	}
}

func TestGobRoundTrip(t *testing.T) {
	entry := partitions.Entry{
		StatusCode: 200,
		Header:     map[string][]string{"Content-Type": {"application/json"}},
		Body:       []byte(`{"ok":true}`),
	}

	b, err := gobEncode(entry)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var decoded partitions.Entry
	if err := gobDecode(b, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if decoded.StatusCode != entry.StatusCode {
		t.Errorf("expected status %d, got %d", entry.StatusCode, decoded.StatusCode)
	}
	if string(decoded.Body) != string(entry.Body) {
		t.Errorf("expected body %s, got %s", entry.Body, decoded.Body)
	}
}
