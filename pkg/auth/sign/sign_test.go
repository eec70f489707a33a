package sign

import (
	"errors"
	"testing"
)

func TestChannelSignerRoundTrip(t *testing.T) {
	s := NewChannelSigner("app-key", "app-secret")
	auth := s.Sign("1234.5678", "private-order.42", "")
	if err := s.Verify("1234.5678", "private-order.42", "", auth); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestChannelSignerKnownVector(t *testing.T) {
	// 与 Pusher 官方文档中的示例一致
	s := NewChannelSigner("278d425bdf160c739803", "7ad3773142a6692b25b8")
	got := s.Sign("1234.1234", "private-foobar", "")
	want := "278d425bdf160c739803:58df8b0c36d6982b82c3ecf6b4662e34fe8c25bba48f5369f135bf843651c3a4"
	if got != want {
		t.Fatalf("Sign() = %s, want %s", got, want)
	}
}

func TestChannelSignerRejects(t *testing.T) {
	s := NewChannelSigner("app-key", "app-secret")
	auth := s.Sign("1.1", "private-order.42", "")

	tests := []struct {
		name    string
		socket  string
		channel string
		auth    string
		want    error
	}{
		{"other channel", "1.1", "private-order.43", auth, ErrInvalidSign},
		{"other socket", "1.2", "private-order.42", auth, ErrInvalidSign},
		{"other key", "1.1", "private-order.42", "evil" + auth[len("app-key"):], ErrInvalidSign},
		{"no separator", "1.1", "private-order.42", "garbage", ErrMalformedAuth},
		{"empty", "1.1", "private-order.42", "", ErrMalformedAuth},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.Verify(tt.socket, tt.channel, "", tt.auth); !errors.Is(err, tt.want) {
				t.Fatalf("Verify() = %v, want %v", err, tt.want)
			}
		})
	}
}
