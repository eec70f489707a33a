package v1

import (
	"fmt"

	"github.com/go-kratos/kratos/v2/errors"
)

// ErrorReason 聊天服务错误原因
type ErrorReason string

const (
	ErrorReason_UNAUTHENTICATED      ErrorReason = "UNAUTHENTICATED"
	ErrorReason_PERMISSION_DENIED    ErrorReason = "PERMISSION_DENIED"
	ErrorReason_CHANNEL_FORBIDDEN    ErrorReason = "CHANNEL_FORBIDDEN"
	ErrorReason_VALIDATION_FAILED    ErrorReason = "VALIDATION_FAILED"
	ErrorReason_PAYLOAD_TOO_LARGE    ErrorReason = "PAYLOAD_TOO_LARGE"
	ErrorReason_ORDER_NOT_FOUND      ErrorReason = "ORDER_NOT_FOUND"
	ErrorReason_MESSAGE_NOT_FOUND    ErrorReason = "MESSAGE_NOT_FOUND"
	ErrorReason_ATTACHMENT_NOT_FOUND ErrorReason = "ATTACHMENT_NOT_FOUND"
	ErrorReason_STORAGE_FAILED       ErrorReason = "STORAGE_FAILED"
	ErrorReason_ATTACHMENT_MISSING   ErrorReason = "ATTACHMENT_MISSING"
	ErrorReason_BROADCAST_FAILED     ErrorReason = "BROADCAST_FAILED"
	ErrorReason_QUEUE_UNAVAILABLE    ErrorReason = "QUEUE_UNAVAILABLE"
	ErrorReason_INTERNAL             ErrorReason = "INTERNAL"
)

func (r ErrorReason) String() string {
	return string(r)
}

func is(err error, code int, reason ErrorReason) bool {
	if err == nil {
		return false
	}
	e := errors.FromError(err)
	return e.Reason == reason.String() && int(e.Code) == code
}

func IsUnauthenticated(err error) bool {
	return is(err, 401, ErrorReason_UNAUTHENTICATED)
}

// ErrorUnauthenticated 未登录或令牌失效
func ErrorUnauthenticated(format string, args ...interface{}) *errors.Error {
	return errors.New(401, ErrorReason_UNAUTHENTICATED.String(), fmt.Sprintf(format, args...))
}

func IsPermissionDenied(err error) bool {
	return is(err, 403, ErrorReason_PERMISSION_DENIED)
}

// ErrorPermissionDenied 角色或归属校验失败
func ErrorPermissionDenied(format string, args ...interface{}) *errors.Error {
	return errors.New(403, ErrorReason_PERMISSION_DENIED.String(), fmt.Sprintf(format, args...))
}

func IsChannelForbidden(err error) bool {
	return is(err, 403, ErrorReason_CHANNEL_FORBIDDEN)
}

// ErrorChannelForbidden 频道订阅被拒绝
func ErrorChannelForbidden(format string, args ...interface{}) *errors.Error {
	return errors.New(403, ErrorReason_CHANNEL_FORBIDDEN.String(), fmt.Sprintf(format, args...))
}

func IsValidationFailed(err error) bool {
	return is(err, 422, ErrorReason_VALIDATION_FAILED)
}

// ErrorValidationFailed 请求参数不合法
func ErrorValidationFailed(format string, args ...interface{}) *errors.Error {
	return errors.New(422, ErrorReason_VALIDATION_FAILED.String(), fmt.Sprintf(format, args...))
}

func IsPayloadTooLarge(err error) bool {
	return is(err, 413, ErrorReason_PAYLOAD_TOO_LARGE)
}

// ErrorPayloadTooLarge 附件超过大小限制
func ErrorPayloadTooLarge(format string, args ...interface{}) *errors.Error {
	return errors.New(413, ErrorReason_PAYLOAD_TOO_LARGE.String(), fmt.Sprintf(format, args...))
}

func IsOrderNotFound(err error) bool {
	return is(err, 404, ErrorReason_ORDER_NOT_FOUND)
}

func ErrorOrderNotFound(format string, args ...interface{}) *errors.Error {
	return errors.New(404, ErrorReason_ORDER_NOT_FOUND.String(), fmt.Sprintf(format, args...))
}

func IsMessageNotFound(err error) bool {
	return is(err, 404, ErrorReason_MESSAGE_NOT_FOUND)
}

func ErrorMessageNotFound(format string, args ...interface{}) *errors.Error {
	return errors.New(404, ErrorReason_MESSAGE_NOT_FOUND.String(), fmt.Sprintf(format, args...))
}

func IsAttachmentNotFound(err error) bool {
	return is(err, 404, ErrorReason_ATTACHMENT_NOT_FOUND)
}

func ErrorAttachmentNotFound(format string, args ...interface{}) *errors.Error {
	return errors.New(404, ErrorReason_ATTACHMENT_NOT_FOUND.String(), fmt.Sprintf(format, args...))
}

func IsStorageFailed(err error) bool {
	return is(err, 500, ErrorReason_STORAGE_FAILED)
}

// ErrorStorageFailed 附件存储失败，可重试
func ErrorStorageFailed(format string, args ...interface{}) *errors.Error {
	return errors.New(500, ErrorReason_STORAGE_FAILED.String(), fmt.Sprintf(format, args...))
}

func IsAttachmentMissing(err error) bool {
	return is(err, 500, ErrorReason_ATTACHMENT_MISSING)
}

// ErrorAttachmentMissing 暂存文件已不存在，重试无意义
func ErrorAttachmentMissing(format string, args ...interface{}) *errors.Error {
	return errors.New(500, ErrorReason_ATTACHMENT_MISSING.String(), fmt.Sprintf(format, args...))
}

func IsBroadcastFailed(err error) bool {
	return is(err, 500, ErrorReason_BROADCAST_FAILED)
}

// ErrorBroadcastFailed 广播或通知失败，只记录日志
func ErrorBroadcastFailed(format string, args ...interface{}) *errors.Error {
	return errors.New(500, ErrorReason_BROADCAST_FAILED.String(), fmt.Sprintf(format, args...))
}

func IsQueueUnavailable(err error) bool {
	return is(err, 503, ErrorReason_QUEUE_UNAVAILABLE)
}

func ErrorQueueUnavailable(format string, args ...interface{}) *errors.Error {
	return errors.New(503, ErrorReason_QUEUE_UNAVAILABLE.String(), fmt.Sprintf(format, args...))
}

func IsInternal(err error) bool {
	return is(err, 500, ErrorReason_INTERNAL)
}

func ErrorInternal(format string, args ...interface{}) *errors.Error {
	return errors.New(500, ErrorReason_INTERNAL.String(), fmt.Sprintf(format, args...))
}
