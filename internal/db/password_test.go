package db

import (
	"strings"
	"testing"
)

func TestRunPasswordCommand(t *testing.T) {
	tests := []struct {
		name    string
		command string
		want    string
		wantErr string
	}{
		{name: "trims output", command: "echo   s3cret  ", want: "s3cret"},
		{name: "empty command", command: "   ", wantErr: "empty password command"},
		{name: "non-zero exit", command: "false", wantErr: "password command failed"},
		{name: "empty output", command: "true", wantErr: "empty password"},
		{name: "missing binary", command: "definitely-not-a-real-binary-pgconnect", wantErr: "password command failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RunPasswordCommand(tt.command)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("RunPasswordCommand(%q) error = %v, want %q", tt.command, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("RunPasswordCommand(%q) unexpected error: %v", tt.command, err)
			}
			if got != tt.want {
				t.Errorf("RunPasswordCommand(%q) = %q, want %q", tt.command, got, tt.want)
			}
		})
	}
}
