package sign

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

var (
	ErrInvalidSign   = errors.New("invalid signature")
	ErrMalformedAuth = errors.New("malformed auth string")
)

// ChannelSigner 私有频道订阅签名
// 签名格式兼容 Pusher 协议: "<key>:<hex(hmac_sha256(secret, socket_id:channel[:channel_data]))>"
type ChannelSigner struct {
	key    string
	secret string
}

// NewChannelSigner 创建频道签名器
func NewChannelSigner(key, secret string) *ChannelSigner {
	return &ChannelSigner{key: key, secret: secret}
}

// Key 返回应用 key
func (s *ChannelSigner) Key() string {
	return s.key
}

// Sign 为 socket 与频道生成订阅凭证
func (s *ChannelSigner) Sign(socketID, channel, channelData string) string {
	return s.key + ":" + GenerateSignature(stringToSign(socketID, channel, channelData), s.secret)
}

// Verify 校验客户端订阅时带上的凭证
func (s *ChannelSigner) Verify(socketID, channel, channelData, auth string) error {
	key, signature, ok := strings.Cut(auth, ":")
	if !ok || key == "" || signature == "" {
		return ErrMalformedAuth
	}
	if key != s.key {
		return ErrInvalidSign
	}
	expected := GenerateSignature(stringToSign(socketID, channel, channelData), s.secret)
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return ErrInvalidSign
	}
	return nil
}

// GenerateSignature 生成签名
// 返回: 十六进制编码的 HMAC-SHA256
func GenerateSignature(message, secretKey string) string {
	h := hmac.New(sha256.New, []byte(secretKey))
	h.Write([]byte(message))
	return hex.EncodeToString(h.Sum(nil))
}

func stringToSign(socketID, channel, channelData string) string {
	message := socketID + ":" + channel
	if channelData != "" {
		message += ":" + channelData
	}
	return message
}
