package service

import (
	"context"
	"errors"
	"mime"
	"net/http"

	v1 "github.com/albertcharmelo/andycorporation-server-sub000/api/chat/v1"
	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/biz"
	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/biz/bo"
	"github.com/albertcharmelo/andycorporation-server-sub000/pkg/auth"

	"github.com/go-kratos/kratos/v2/log"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

const (
	// multipart 表单字段和边界的额外空间
	multipartOverhead = 1 << 20
	multipartMemory   = 8 << 20
)

var _ v1.ChatHTTPServer = (*ChatService)(nil)

type ChatService struct {
	log         *log.Helper
	uc          *biz.ChatUsecase
	attachments *biz.AttachmentPipeline
}

func NewChatService(logger log.Logger, uc *biz.ChatUsecase, attachments *biz.AttachmentPipeline) *ChatService {
	return &ChatService{
		log:         log.NewHelper(logger),
		uc:          uc,
		attachments: attachments,
	}
}

func (s *ChatService) ListMessages(ctx context.Context, req *v1.OrderRequest) (*v1.ListMessagesReply, error) {
	view, err := s.uc.List(ctx, auth.GetUserID(ctx), req.OrderId)
	if err != nil {
		return nil, err
	}
	reply := &v1.ListMessagesReply{
		Messages:    make([]*v1.Message, 0, len(view.Messages)),
		UserRole:    view.Role.String(),
		UnreadCount: view.UnreadCount,
	}
	for _, m := range view.Messages {
		reply.Messages = append(reply.Messages, toMessage(m))
	}
	return reply, nil
}

func (s *ChatService) MarkRead(ctx context.Context, req *v1.OrderRequest) (*v1.MarkReadReply, error) {
	n, err := s.uc.MarkRead(ctx, auth.GetUserID(ctx), req.OrderId)
	if err != nil {
		return nil, err
	}
	return &v1.MarkReadReply{UpdatedCount: n}, nil
}

func (s *ChatService) UnreadCount(ctx context.Context, req *v1.OrderRequest) (*v1.UnreadCountReply, error) {
	n, err := s.uc.UnreadCount(ctx, auth.GetUserID(ctx), req.OrderId)
	if err != nil {
		return nil, err
	}
	return &v1.UnreadCountReply{UnreadCount: n}, nil
}

func (s *ChatService) ChatStats(ctx context.Context, req *v1.OrderRequest) (*v1.ChatStatsReply, error) {
	stats, err := s.uc.Stats(ctx, auth.GetUserID(ctx), req.OrderId)
	if err != nil {
		return nil, err
	}
	return &v1.ChatStatsReply{
		TotalMessages:       stats.TotalMessages,
		UnreadMessages:      stats.UnreadMessages,
		DeliveryMessages:    stats.DeliveryMessages,
		PreDeliveryMessages: stats.PreDeliveryMessages,
		LastMessageAt:       stats.LastMessageAt,
	}, nil
}

// SendMessage 接收 JSON 或 multipart 请求
// 同步队列返回 201 和消息，异步队列返回 202 和 job_id
func (s *ChatService) SendMessage(ctx khttp.Context) error {
	var in v1.SendMessageRequest
	r := ctx.Request()
	var upload *biz.Upload
	if isMultipart(r) {
		r.Body = http.MaxBytesReader(ctx.Response(), r.Body, s.attachments.MaxBytes()+multipartOverhead)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return v1.ErrorPayloadTooLarge("request body exceeds %d bytes", tooLarge.Limit)
			}
			return v1.ErrorValidationFailed("invalid multipart body: %v", err)
		}
		defer func() {
			_ = r.MultipartForm.RemoveAll()
		}()
		in.Message = r.FormValue("message")
		in.MessageType = r.FormValue("message_type")
		file, header, err := r.FormFile("file")
		switch {
		case err == nil:
			defer file.Close()
			upload = &biz.Upload{Filename: header.Filename, Size: header.Size, Body: file}
		case !errors.Is(err, http.ErrMissingFile):
			return v1.ErrorValidationFailed("invalid file field: %v", err)
		}
	} else if err := ctx.Bind(&in); err != nil {
		return err
	}
	if err := ctx.BindVars(&in); err != nil {
		return err
	}

	khttp.SetOperation(ctx, v1.OperationChatSendMessage)
	h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
		return s.uc.Send(ctx, auth.GetUserID(ctx), req.(*biz.SendRequest))
	})
	out, err := h(ctx, &biz.SendRequest{
		OrderID: in.OrderId,
		Body:    in.Message,
		Type:    bo.MessageType(in.MessageType),
		Upload:  upload,
	})
	if err != nil {
		return err
	}
	res := out.(*biz.SendResult)
	if res.Queued {
		return ctx.Result(http.StatusAccepted, &v1.SendMessageReply{Status: "queued", JobId: res.JobID})
	}
	return ctx.Result(http.StatusCreated, &v1.SendMessageReply{Status: "sent", JobId: res.JobID, Message: toMessage(res.Message)})
}

type attachmentRequest struct {
	OrderId   uint64 `json:"id"`
	MessageId uint64 `json:"message_id"`
}

// DownloadAttachment 以原始 MIME 类型返回附件内容
func (s *ChatService) DownloadAttachment(ctx khttp.Context) error {
	var in attachmentRequest
	if err := ctx.BindVars(&in); err != nil {
		return err
	}
	khttp.SetOperation(ctx, v1.OperationChatDownloadAttachment)
	h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
		r := req.(*attachmentRequest)
		return s.uc.Attachment(ctx, auth.GetUserID(ctx), r.OrderId, r.MessageId)
	})
	out, err := h(ctx, &in)
	if err != nil {
		return err
	}
	att := out.(*biz.Attachment)
	defer att.Body.Close()
	ctx.Response().Header().Set("Content-Disposition",
		mime.FormatMediaType("inline", map[string]string{"filename": att.Filename}))
	if err := ctx.Stream(http.StatusOK, att.ContentType, att.Body); err != nil {
		// 响应头已写出，只记录日志
		s.log.WithContext(ctx).Errorf("stream attachment failed. message_id=%d, error=%v", in.MessageId, err)
	}
	return nil
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}
