package device

//go:generate go tool mockgen -source=recorder.go -destination=mock_recorder_test.go -package=device

// Recorder persists telemetry. WriteHeaders is called whenever the logger
// announces its columns, WriteSample for every parsed DATA sentence. Calls
// are serialized by the Session.
type Recorder interface {
	WriteHeaders(serial string, headers []string) error
	WriteSample(sample Sample) error
}
