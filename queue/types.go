package queue

import (
	"encoding/xml"
	"strings"
)

// Queue is an entry in a ListResult.
type Queue struct {
	Name     string            `xml:"Name"`
	Metadata map[string]string `xml:"-"`
}

// ListOptions narrows a List call.
type ListOptions struct {
	Prefix          string
	Marker          string
	MaxResults      int
	IncludeMetadata bool
	Timeout         int
}

// ListResult is one page of queues.
type ListResult struct {
	Queues     []Queue
	Prefix     string
	Marker     string
	NextMarker string
	MaxResults int
}

// CreateOptions configures queue creation.
type CreateOptions struct {
	Metadata map[string]string
	Timeout  int
}

// Metadata describes a queue's metadata and approximate depth.
type Metadata struct {
	ApproximateMessageCount int
	UserDefined             map[string]string
}

// PutMessageOptions configures message enqueueing. Zero values are omitted
// from the wire.
type PutMessageOptions struct {
	VisibilityTimeout int // seconds the message stays invisible after insert
	MessageTTL        int // seconds before the message expires
	Timeout           int
}

// GetMessagesOptions configures message retrieval. Zero values are omitted
// from the wire.
type GetMessagesOptions struct {
	NumOfMessages     int
	VisibilityTimeout int
	Timeout           int
}

// Message is a dequeued or peeked queue message. PopReceipt is empty on
// peeked messages.
type Message struct {
	ID              string `xml:"MessageId"`
	InsertionTime   string `xml:"InsertionTime"`
	ExpirationTime  string `xml:"ExpirationTime"`
	PopReceipt      string `xml:"PopReceipt"`
	TimeNextVisible string `xml:"TimeNextVisible"`
	DequeueCount    int    `xml:"DequeueCount"`
	Text            string `xml:"MessageText"`
}

// UpdateResult carries the renewed receipt after UpdateMessage.
type UpdateResult struct {
	PopReceipt      string
	TimeNextVisible string
}

type messageList struct {
	XMLName  xml.Name  `xml:"QueueMessagesList"`
	Messages []Message `xml:"QueueMessage"`
}

type putMessageBody struct {
	XMLName xml.Name `xml:"QueueMessage"`
	Text    string   `xml:"MessageText"`
}

// metadataMap decodes the service's <Metadata> element, whose children are
// arbitrarily named metadata entries.
type metadataMap map[string]string

func (m *metadataMap) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	out := make(map[string]string)
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch el := tok.(type) {
		case xml.StartElement:
			var value string
			if err := d.DecodeElement(&value, &el); err != nil {
				return err
			}
			out[strings.ToLower(el.Name.Local)] = value
		case xml.EndElement:
			if el.Name == start.Name {
				*m = out
				return nil
			}
		}
	}
}

type queueListEntry struct {
	Name     string      `xml:"Name"`
	Metadata metadataMap `xml:"Metadata"`
}

type listEnvelope struct {
	XMLName    xml.Name         `xml:"EnumerationResults"`
	Prefix     string           `xml:"Prefix"`
	Marker     string           `xml:"Marker"`
	NextMarker string           `xml:"NextMarker"`
	MaxResults int              `xml:"MaxResults"`
	Queues     []queueListEntry `xml:"Queues>Queue"`
}
