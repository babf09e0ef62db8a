package model

// UploadResponse is returned by POST /upload
type UploadResponse struct {
	Sheets []string `json:"sheets"`
	File   string   `json:"file"`
}

// DownloadRequest is the body of POST /download
type DownloadRequest struct {
	FileName   string `json:"file_name"`
	SheetName  string `json:"sheet_name"`
	UserColumn string `json:"user_column,omitempty"` // used only when no header matches
}

// DownloadResponse is returned once a batch has been started
type DownloadResponse struct {
	Message    string `json:"message"`
	FolderName string `json:"folder_name"`
}

// ErrorResponse carries every 4xx/5xx message
type ErrorResponse struct {
	Error     string `json:"error"`
	AskColumn bool   `json:"ask_column,omitempty"`
}
