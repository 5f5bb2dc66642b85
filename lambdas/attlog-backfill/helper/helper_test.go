package helper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSerialFromKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		serial  string
		wantErr bool
	}{
		{name: "plain key", key: "raw/7/ZK123456/abc-123.txt", serial: "ZK123456"},
		{name: "unknown tenant", key: "raw/unknown/ZK123456/abc-123.txt", serial: "ZK123456"},
		{name: "url encoded", key: "raw/7/ZK%2B123/abc-123.txt", serial: "ZK+123"},
		{name: "wrong prefix", key: "exports/7/ZK123456/abc.txt", wantErr: true},
		{name: "too few segments", key: "raw/ZK123456/abc.txt", wantErr: true},
		{name: "empty serial", key: "raw/7//abc.txt", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			serial, err := SerialFromKey(tt.key)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.serial, serial)
		})
	}
}
