package admin

import "sync"

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notice is a short toast-style message for the admin.
type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

func Success(msg string) Notice { return Notice{Level: LevelSuccess, Message: msg} }
func Failure(msg string) Notice { return Notice{Level: LevelError, Message: msg} }

type Notifier interface {
	Notify(n Notice)
}

// NoticeRecorder buffers notices until the next response drains them.
type NoticeRecorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *NoticeRecorder) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

// Drain returns the buffered notices and clears the buffer.
func (r *NoticeRecorder) Drain() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.notices
	r.notices = nil
	if out == nil {
		out = []Notice{}
	}
	return out
}

const (
	msgAdded         = "Property added successfully"
	msgUpdated       = "Property updated successfully"
	msgSaveFailed    = "Error saving property"
	msgDeleted       = "Property deleted successfully"
	msgDeleteFailed  = "Error deleting property"
	msgLoadFailed    = "Error loading properties"
	msgInvalidType   = "Invalid file type. Use JPG, PNG, or WEBP"
	msgTooLarge      = "File too large. Max %dMB allowed"
	msgRequired      = "Please fill in all required fields"
	msgSaveInFlight  = "Save already in progress"
	MsgSignOutFailed = "Error logging out"
)
