package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/sagarc03/azstore/blob"
	"github.com/sagarc03/azstore/config"
	"github.com/sagarc03/azstore/queue"
)

// formatter renders command results as human-readable text or JSON,
// driven by the --json and --quiet flags.
type formatter struct {
	json  bool
	quiet bool
}

func newFormatter() *formatter {
	return &formatter{json: jsonOutput, quiet: quiet}
}

func (f *formatter) writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ok prints a confirmation line unless quiet or JSON output is requested.
func (f *formatter) ok(w io.Writer, format string, args ...any) {
	if f.quiet || f.json {
		return
	}
	_, _ = fmt.Fprintf(w, format+"\n", args...)
}

func (f *formatter) queueList(w io.Writer, result *queue.ListResult) error {
	if f.json {
		type jsonQueue struct {
			Name     string            `json:"name"`
			Metadata map[string]string `json:"metadata,omitempty"`
		}
		output := struct {
			Queues     []jsonQueue `json:"queues"`
			NextMarker string      `json:"next_marker,omitempty"`
		}{Queues: make([]jsonQueue, len(result.Queues)), NextMarker: result.NextMarker}
		for i, q := range result.Queues {
			output.Queues[i] = jsonQueue{Name: q.Name, Metadata: q.Metadata}
		}
		return f.writeJSON(w, output)
	}

	if len(result.Queues) == 0 {
		_, _ = fmt.Fprintln(w, "No queues found")
		return nil
	}
	for _, q := range result.Queues {
		_, _ = fmt.Fprintln(w, q.Name)
	}
	if result.NextMarker != "" {
		_, _ = fmt.Fprintf(w, "\nNext page: use --marker %q\n", result.NextMarker)
	}
	return nil
}

func (f *formatter) queueStat(w io.Writer, name string, meta queue.Metadata) error {
	if f.json {
		output := struct {
			Name                    string            `json:"name"`
			ApproximateMessageCount int               `json:"approximate_message_count"`
			Metadata                map[string]string `json:"metadata,omitempty"`
		}{name, meta.ApproximateMessageCount, meta.UserDefined}
		return f.writeJSON(w, output)
	}

	_, _ = fmt.Fprintf(w, "Queue:    %s\n", name)
	_, _ = fmt.Fprintf(w, "Messages: ~%d\n", meta.ApproximateMessageCount)
	for k, v := range meta.UserDefined {
		_, _ = fmt.Fprintf(w, "Meta:     %s=%s\n", k, v)
	}
	return nil
}

func (f *formatter) messages(w io.Writer, msgs []queue.Message) error {
	if f.json {
		type jsonMessage struct {
			ID           string `json:"id"`
			Text         string `json:"text"`
			PopReceipt   string `json:"pop_receipt,omitempty"`
			Inserted     string `json:"inserted,omitempty"`
			Expires      string `json:"expires,omitempty"`
			NextVisible  string `json:"next_visible,omitempty"`
			DequeueCount int    `json:"dequeue_count"`
		}
		output := struct {
			Messages []jsonMessage `json:"messages"`
		}{Messages: make([]jsonMessage, len(msgs))}
		for i, m := range msgs {
			output.Messages[i] = jsonMessage{
				ID:           m.ID,
				Text:         m.Text,
				PopReceipt:   m.PopReceipt,
				Inserted:     m.InsertionTime,
				Expires:      m.ExpirationTime,
				NextVisible:  m.TimeNextVisible,
				DequeueCount: m.DequeueCount,
			}
		}
		return f.writeJSON(w, output)
	}

	if len(msgs) == 0 {
		_, _ = fmt.Fprintln(w, "No messages")
		return nil
	}
	for i := range msgs {
		m := &msgs[i]
		_, _ = fmt.Fprintf(w, "ID:      %s\n", m.ID)
		_, _ = fmt.Fprintf(w, "Text:    %s\n", m.Text)
		if m.PopReceipt != "" {
			_, _ = fmt.Fprintf(w, "Receipt: %s\n", m.PopReceipt)
		}
		if m.DequeueCount > 0 {
			_, _ = fmt.Fprintf(w, "Dequeued: %d time(s)\n", m.DequeueCount)
		}
		if i < len(msgs)-1 {
			_, _ = fmt.Fprintln(w)
		}
	}
	return nil
}

func (f *formatter) containerList(w io.Writer, result *blob.ListContainersResult) error {
	if f.json {
		type jsonContainer struct {
			Name         string `json:"name"`
			LastModified string `json:"last_modified,omitempty"`
			LeaseStatus  string `json:"lease_status,omitempty"`
			LeaseState   string `json:"lease_state,omitempty"`
		}
		output := struct {
			Containers []jsonContainer `json:"containers"`
			NextMarker string          `json:"next_marker,omitempty"`
		}{Containers: make([]jsonContainer, len(result.Containers)), NextMarker: result.NextMarker}
		for i, c := range result.Containers {
			output.Containers[i] = jsonContainer{
				Name:         c.Name,
				LastModified: c.Properties.LastModified,
				LeaseStatus:  c.Properties.LeaseStatus,
				LeaseState:   c.Properties.LeaseState,
			}
		}
		return f.writeJSON(w, output)
	}

	if len(result.Containers) == 0 {
		_, _ = fmt.Fprintln(w, "No containers found")
		return nil
	}

	maxNameLen := 4 // "NAME"
	for i := range result.Containers {
		if len(result.Containers[i].Name) > maxNameLen {
			maxNameLen = len(result.Containers[i].Name)
		}
	}
	_, _ = fmt.Fprintf(w, "%-*s  %-9s  %s\n", maxNameLen, "NAME", "LEASE", "MODIFIED")
	_, _ = fmt.Fprintf(w, "%s  %s  %s\n", strings.Repeat("-", maxNameLen), strings.Repeat("-", 9), strings.Repeat("-", 29))
	for i := range result.Containers {
		c := &result.Containers[i]
		_, _ = fmt.Fprintf(w, "%-*s  %-9s  %s\n", maxNameLen, c.Name, c.Properties.LeaseState, c.Properties.LastModified)
	}
	if result.NextMarker != "" {
		_, _ = fmt.Fprintf(w, "\nNext page: use --marker %q\n", result.NextMarker)
	}
	return nil
}

func (f *formatter) blobList(w io.Writer, result *blob.ListBlobsResult) error {
	if f.json {
		type jsonBlob struct {
			Name         string `json:"name"`
			Size         int64  `json:"size_bytes"`
			ContentType  string `json:"content_type,omitempty"`
			ETag         string `json:"etag,omitempty"`
			LastModified string `json:"last_modified,omitempty"`
		}
		output := struct {
			Blobs      []jsonBlob `json:"blobs"`
			NextMarker string     `json:"next_marker,omitempty"`
		}{Blobs: make([]jsonBlob, len(result.Blobs)), NextMarker: result.NextMarker}
		for i, b := range result.Blobs {
			output.Blobs[i] = jsonBlob{
				Name:         b.Name,
				Size:         b.Properties.ContentLength,
				ContentType:  b.Properties.ContentType,
				ETag:         b.Properties.ETag,
				LastModified: b.Properties.LastModified,
			}
		}
		return f.writeJSON(w, output)
	}

	if len(result.Blobs) == 0 {
		_, _ = fmt.Fprintln(w, "No blobs found")
		return nil
	}

	maxNameLen := 4 // "NAME"
	for i := range result.Blobs {
		if len(result.Blobs[i].Name) > maxNameLen {
			maxNameLen = len(result.Blobs[i].Name)
		}
	}
	if maxNameLen > 60 {
		maxNameLen = 60
	}
	_, _ = fmt.Fprintf(w, "%-*s  %10s  %s\n", maxNameLen, "NAME", "SIZE", "TYPE")
	_, _ = fmt.Fprintf(w, "%s  %s  %s\n", strings.Repeat("-", maxNameLen), strings.Repeat("-", 10), strings.Repeat("-", 24))
	var total int64
	for i := range result.Blobs {
		b := &result.Blobs[i]
		name := b.Name
		if len(name) > maxNameLen {
			name = name[:maxNameLen-3] + "..."
		}
		_, _ = fmt.Fprintf(w, "%-*s  %10s  %s\n", maxNameLen, name, formatSize(b.Properties.ContentLength), b.Properties.ContentType)
		total += b.Properties.ContentLength
	}
	_, _ = fmt.Fprintf(w, "\n%d blob(s) (%s total)\n", len(result.Blobs), formatSize(total))
	if result.NextMarker != "" {
		_, _ = fmt.Fprintf(w, "Next page: use --marker %q\n", result.NextMarker)
	}
	return nil
}

func (f *formatter) blobStat(w io.Writer, container, name string, props blob.PropertiesResult) error {
	if f.json {
		output := struct {
			Container   string            `json:"container"`
			Name        string            `json:"name"`
			Size        int64             `json:"size_bytes"`
			ContentType string            `json:"content_type"`
			ETag        string            `json:"etag"`
			LeaseStatus string            `json:"lease_status,omitempty"`
			LeaseState  string            `json:"lease_state,omitempty"`
			Metadata    map[string]string `json:"metadata,omitempty"`
		}{container, name, props.ContentLength, props.ContentType, props.ETag, props.LeaseStatus, props.LeaseState, props.Metadata}
		return f.writeJSON(w, output)
	}

	_, _ = fmt.Fprintf(w, "Blob:         %s/%s\n", container, name)
	_, _ = fmt.Fprintf(w, "Size:         %s\n", formatSize(props.ContentLength))
	_, _ = fmt.Fprintf(w, "Content-Type: %s\n", props.ContentType)
	_, _ = fmt.Fprintf(w, "ETag:         %s\n", props.ETag)
	if props.LeaseState != "" {
		_, _ = fmt.Fprintf(w, "Lease:        %s (%s)\n", props.LeaseState, props.LeaseStatus)
	}
	for k, v := range props.Metadata {
		_, _ = fmt.Fprintf(w, "Meta:         %s=%s\n", k, v)
	}
	return nil
}

func (f *formatter) profileList(w io.Writer, profiles []config.Profile, defaultName string, showKeys bool) error {
	if f.json {
		type jsonProfile struct {
			Name        string `json:"name"`
			Account     string `json:"account,omitempty"`
			Key         string `json:"key,omitempty"`
			Endpoint    string `json:"endpoint,omitempty"`
			Development bool   `json:"development,omitempty"`
			Default     bool   `json:"default,omitempty"`
		}
		output := struct {
			Profiles []jsonProfile `json:"profiles"`
		}{Profiles: make([]jsonProfile, len(profiles))}
		for i := range profiles {
			p := &profiles[i]
			output.Profiles[i] = jsonProfile{
				Name:        p.Name,
				Account:     p.Account,
				Key:         maskSecret(p.Key, showKeys),
				Endpoint:    p.Endpoint,
				Development: p.Development,
				Default:     p.Name == defaultName,
			}
		}
		return f.writeJSON(w, output)
	}

	maxNameLen := 4 // "NAME"
	maxAccountLen := 7
	for i := range profiles {
		if len(profiles[i].Name) > maxNameLen {
			maxNameLen = len(profiles[i].Name)
		}
		if len(profiles[i].Account) > maxAccountLen {
			maxAccountLen = len(profiles[i].Account)
		}
	}

	_, _ = fmt.Fprintf(w, "  %-*s  %-*s  %s\n", maxNameLen, "NAME", maxAccountLen, "ACCOUNT", "KEY")
	_, _ = fmt.Fprintf(w, "  %s  %s  %s\n", strings.Repeat("-", maxNameLen), strings.Repeat("-", maxAccountLen), strings.Repeat("-", 15))
	for i := range profiles {
		p := &profiles[i]
		marker := " "
		if p.Name == defaultName {
			marker = "*"
		}
		account := p.Account
		if p.Development {
			account = "(development)"
		}
		_, _ = fmt.Fprintf(w, "%s %-*s  %-*s  %s\n", marker, maxNameLen, p.Name, maxAccountLen, account, maskSecret(p.Key, showKeys))
	}
	return nil
}

func (f *formatter) profileShow(w io.Writer, p config.Profile, isDefault, showKeys bool) error {
	if f.json {
		output := struct {
			Name        string `json:"name"`
			Account     string `json:"account,omitempty"`
			Key         string `json:"key"`
			Endpoint    string `json:"endpoint,omitempty"`
			Development bool   `json:"development"`
			Default     bool   `json:"default"`
		}{p.Name, p.Account, maskSecret(p.Key, showKeys), p.Endpoint, p.Development, isDefault}
		return f.writeJSON(w, output)
	}

	_, _ = fmt.Fprintf(w, "Name:        %s", p.Name)
	if isDefault {
		_, _ = fmt.Fprintf(w, " (default)")
	}
	_, _ = fmt.Fprintln(w)
	if p.Development {
		_, _ = fmt.Fprintf(w, "Account:     (development emulator)\n")
	} else {
		_, _ = fmt.Fprintf(w, "Account:     %s\n", p.Account)
		_, _ = fmt.Fprintf(w, "Key:         %s\n", maskSecret(p.Key, showKeys))
	}
	if p.Endpoint != "" {
		_, _ = fmt.Fprintf(w, "Endpoint:    %s\n", p.Endpoint)
	}
	return nil
}

// maskSecret masks a secret string, showing only first 4 and last 4
// characters. If showSecrets is true, returns the original value.
func maskSecret(secret string, showSecrets bool) string {
	if showSecrets {
		return secret
	}
	if secret == "" {
		return "(not set)"
	}
	if len(secret) <= 8 {
		return "********"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}

// formatSize formats bytes as human-readable size.
func formatSize(bytes int64) string {
	const (
		kb = 1024
		mb = kb * 1024
		gb = mb * 1024
	)

	switch {
	case bytes >= gb:
		return fmt.Sprintf("%.1f GB", float64(bytes)/gb)
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/mb)
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/kb)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
