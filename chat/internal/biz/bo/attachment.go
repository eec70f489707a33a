package bo

// PendingAttachment 暂存中的附件
type PendingAttachment struct {
	TempPath     string      `json:"temp_path"`
	OriginalName string      `json:"original_name"`
	MimeType     string      `json:"mime_type"`
	ContentClass MessageType `json:"content_class"`
	Size         int64       `json:"size"`
	// FinalPath finalize 成功后记录，终止失败时一并删除
	FinalPath string `json:"final_path,omitempty"`
}
