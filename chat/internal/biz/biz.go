package biz

import "github.com/google/wire"

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(
	NewAccessPolicy,
	NewRequester,
	NewMessageStore,
	NewAttachmentPipeline,
	NewFanout,
	NewDeliverer,
	NewChatUsecase,
	NewChannelAuthorizer,
	NewLocationUsecase,
	NewDeliveryHandler,
	NewPushUsecase,
	NewHub,
)

