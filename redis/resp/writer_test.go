package resp

import (
	"bufio"
	"bytes"
	"testing"
)

func TestWriteCommand(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{
			name:     "single arg",
			args:     []string{"PING"},
			expected: "*1\r\n$4\r\nPING\r\n",
		},
		{
			name:     "get",
			args:     []string{"GET", "key"},
			expected: "*2\r\n$3\r\nGET\r\n$3\r\nkey\r\n",
		},
		{
			name:     "set with options",
			args:     []string{"SET", "key", "value", "EX", "60", "NX"},
			expected: "*6\r\n$3\r\nSET\r\n$3\r\nkey\r\n$5\r\nvalue\r\n$2\r\nEX\r\n$2\r\n60\r\n$2\r\nNX\r\n",
		},
		{
			name:     "empty arg",
			args:     []string{"SET", "key", ""},
			expected: "*3\r\n$3\r\nSET\r\n$3\r\nkey\r\n$0\r\n\r\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			bw := bufio.NewWriter(&buf)
			if err := WriteCommand(bw, tt.args...); err != nil {
				t.Fatalf("WriteCommand failed: %v", err)
			}
			if err := bw.Flush(); err != nil {
				t.Fatalf("Flush failed: %v", err)
			}
			if got := buf.String(); got != tt.expected {
				t.Errorf("WriteCommand() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestWriteCommandDoesNotFlush(t *testing.T) {
	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)

	if err := WriteCommand(bw, "PING"); err != nil {
		t.Fatalf("WriteCommand failed: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("WriteCommand flushed eagerly: underlying buffer has %d bytes", buf.Len())
	}
}

func TestFormatInt(t *testing.T) {
	tests := []struct {
		n        int64
		expected string
	}{
		{0, "0"},
		{60, "60"},
		{-1, "-1"},
		{9223372036854775807, "9223372036854775807"},
	}

	for _, tt := range tests {
		if got := FormatInt(tt.n); got != tt.expected {
			t.Errorf("FormatInt(%d) = %q, want %q", tt.n, got, tt.expected)
		}
	}
}
