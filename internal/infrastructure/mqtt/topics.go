package mqtt

import "fmt"

const (
	// TopicPrefix is the root of every Rentwise topic.
	TopicPrefix = "rentwise"

	TopicPrefixEvents = TopicPrefix + "/events"
	TopicPrefixSystem = TopicPrefix + "/system"
	TopicPrefixOwners = TopicPrefix + "/owners"
)

// Topics builds Rentwise MQTT topic names.
//
//	topic := mqtt.Topics{}.Event("rent_request.accepted")
//	// rentwise/events/rent_request.accepted
type Topics struct{}

// Event returns the topic for a domain event type.
func (Topics) Event(eventType string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixEvents, eventType)
}

// OwnerNotification returns the per-owner notification topic.
//
// Example: rentwise/owners/alice/notifications
func (Topics) OwnerNotification(username string) string {
	return fmt.Sprintf("%s/%s/notifications", TopicPrefixOwners, username)
}

// SystemStatus returns the retained online/offline status topic.
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// AllEvents matches every domain event.
func (Topics) AllEvents() string {
	return TopicPrefixEvents + "/#"
}
