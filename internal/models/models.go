package models

type DownloadRequest struct {
	OnlyNew bool `json:"onlyNew"`
}

type SyncRequest struct {
	PruneExtra bool `json:"pruneExtra"`
}

type CreateWorkspaceRequest struct {
	ID       string   `json:"id" validate:"required,excludesall=/\\"`
	Metadata Metadata `json:"metadata"`
}

type ImportWorkspaceRequest struct {
	ID        string   `json:"id" validate:"required,excludesall=/\\"`
	SourceDir string   `json:"sourceDir" validate:"required"`
	Metadata  Metadata `json:"metadata"`
}

type AddURLRequest struct {
	URL string `json:"url" validate:"required,url"`
}

type AddCatalogModRequest struct {
	ModIDs  []int64 `json:"modIds" validate:"required,min=1,dive,gt=0"`
	Version string  `json:"version,omitempty"`
}

type AddFolderRequest struct {
	Name string `json:"name" validate:"required,excludesall=/\\"`
}

type ExportRequest struct {
	Zip bool `json:"zip"`
}

type ImportRemoteRequest struct {
	URL string `json:"url" validate:"required,url"`
}

type TaskResponse struct {
	TaskID  string `json:"task_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type TaskStatus struct {
	TaskID   string       `json:"task_id"`
	Kind     string       `json:"kind"`
	Target   string       `json:"target"`
	Status   string       `json:"status" validate:"oneof=running completed failed cancelled pending"`
	Progress *float64     `json:"progress,omitempty"`
	Error    *string      `json:"error,omitempty"`
	Result   *BatchResult `json:"result,omitempty"`
}

type ErrorResponse struct {
	Error    string `json:"error"`
	Code     string `json:"code,omitempty"`
	Category string `json:"category,omitempty"`
}

// Event names pushed to websocket subscribers.
const (
	EventDownloadStarted   = "download-started"
	EventModProgress       = "mod-download-progress"
	EventOverallProgress   = "mod-download-overall"
	EventDownloadCompleted = "download-completed"
	EventDownloadError     = "download-error"
	EventWorkspaceChanged  = "workspace-changed"
)

type Event struct {
	Type    string `json:"type"`
	TaskID  string `json:"taskId,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

type ItemProgressEvent struct {
	Filename   string  `json:"filename"`
	Downloaded int64   `json:"downloaded"`
	Total      int64   `json:"total"`
	Percent    float64 `json:"percent"`
}

type OverallProgressEvent struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}
