package events

// FileEvent is the unit emitted downstream for a newly observed remote file.
// RemoteDirectory is absolute and always ends with "/"; RemoteFile is a base name.
type FileEvent struct {
	RemoteDirectory string `json:"remote_directory"`
	RemoteFile      string `json:"remote_file"`
}

// Key returns the dedup identity of the file: directory and name concatenated.
// The trailing separator on RemoteDirectory keeps the concatenation unambiguous.
func (f FileEvent) Key() string {
	return f.RemoteDirectory + f.RemoteFile
}

// Path returns the full remote path of the file.
func (f FileEvent) Path() string {
	return f.Key()
}

// NewFileDiscoveredEvent creates a new file_discovered event.
func NewFileDiscoveredEvent(file FileEvent) *BaseEvent {
	return NewEvent(EventTypeFileDiscovered, file)
}
