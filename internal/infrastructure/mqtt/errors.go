package mqtt

import "errors"

// Use errors.Is() to check for these errors in calling code.
var (
	// ErrDisabled is returned by Connect when MQTT is disabled in config.
	ErrDisabled = errors.New("mqtt: disabled")

	ErrNotConnected     = errors.New("mqtt: client not connected")
	ErrConnectionFailed = errors.New("mqtt: connection failed")
	ErrPublishFailed    = errors.New("mqtt: publish failed")

	// ErrInvalidQoS is returned for QoS levels other than 0, 1 or 2.
	ErrInvalidQoS   = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")
	ErrInvalidTopic = errors.New("mqtt: topic cannot be empty")
)
