package audio

import "strings"

// AddressTagPrefix introduces an explicit routing address inside Attributes.Tags
const AddressTagPrefix = "addr="

// Attributes carry the declared intent of a stream
type Attributes struct {
	ContentType ContentType `json:"contentType"`
	Usage       Usage       `json:"usage"`
	Source      Source      `json:"source"`
	Flags       uint32      `json:"flags,omitempty"`
	Tags        string      `json:"tags,omitempty"`
}

// Address returns the value of the first addr=<address> token of the
// ';'-separated tag string, or "" when there is none.
func (a Attributes) Address() string {
	for _, tag := range strings.Split(a.Tags, ";") {
		tag = strings.TrimSpace(tag)
		if strings.HasPrefix(tag, AddressTagPrefix) {
			return strings.TrimPrefix(tag, AddressTagPrefix)
		}
	}
	return ""
}
