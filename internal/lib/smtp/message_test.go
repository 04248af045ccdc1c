package smtp

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMessage_Bytes(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		msg     Message
		want    []string
		notWant []string
	}{
		{
			name: "ascii subject",
			msg:  Message{To: []string{"bob@example.com"}, Subject: "Alice invited you to share Netflix", Body: "Hi Bob"},
			want: []string{
				"From: noreply@example.com\r\n",
				"To: bob@example.com\r\n",
				"Subject: Alice invited you to share Netflix\r\n",
				"Date: Sun, 01 Jun 2025 12:00:00 +0000\r\n",
				"Content-Type: text/plain; charset=\"UTF-8\"\r\n",
				"\r\n\r\nHi Bob",
			},
		},
		{
			name:    "utf-8 subject is encoded",
			msg:     Message{To: []string{"bob@example.com"}, Subject: "Напоминание о продлении", Body: "x"},
			want:    []string{"Subject: =?utf-8?q?"},
			notWant: []string{"Напоминание"},
		},
		{
			name: "several recipients",
			msg:  Message{To: []string{"a@example.com", "b@example.com"}, Subject: "s", Body: "x"},
			want: []string{"To: a@example.com, b@example.com\r\n"},
		},
		{
			name:    "body lines end with CRLF",
			msg:     Message{To: []string{"a@example.com"}, Subject: "s", Body: "one\ntwo\r\nthree"},
			want:    []string{"one\r\ntwo\r\nthree"},
			notWant: []string{"\r\r\n"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(tt.msg.Bytes("noreply@example.com", now))
			for _, s := range tt.want {
				assert.Contains(t, got, s)
			}
			for _, s := range tt.notWant {
				assert.NotContains(t, got, s)
			}
			assert.True(t, strings.HasPrefix(got, "From: "))
		})
	}
}

func TestMessage_Validate(t *testing.T) {
	tests := []struct {
		name    string
		msg     Message
		wantErr string
	}{
		{name: "valid", msg: Message{To: []string{"a@example.com"}, Subject: "s"}},
		{name: "no recipients", msg: Message{Subject: "s"}, wantErr: "without recipients"},
		{name: "empty recipient", msg: Message{To: []string{""}}, wantErr: "invalid recipient"},
		{name: "header injection in recipient", msg: Message{To: []string{"a@example.com\r\nBcc: x@example.com"}}, wantErr: "invalid recipient"},
		{name: "multiline subject", msg: Message{To: []string{"a@example.com"}, Subject: "s\r\nBcc: x@example.com"}, wantErr: "single line"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
