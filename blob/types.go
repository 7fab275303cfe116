package blob

import "encoding/xml"

// Container is an entry in a ListContainersResult.
type Container struct {
	Name       string              `xml:"Name"`
	Properties ContainerProperties `xml:"Properties"`
}

// ContainerProperties holds the subset of container properties the list and
// properties operations return.
type ContainerProperties struct {
	LastModified  string `xml:"Last-Modified"`
	ETag          string `xml:"Etag"`
	LeaseStatus   string `xml:"LeaseStatus"`
	LeaseState    string `xml:"LeaseState"`
	LeaseDuration string `xml:"LeaseDuration"`
}

// ListContainersResult is one page of containers.
type ListContainersResult struct {
	XMLName    xml.Name    `xml:"EnumerationResults"`
	Prefix     string      `xml:"Prefix"`
	Marker     string      `xml:"Marker"`
	NextMarker string      `xml:"NextMarker"`
	MaxResults int         `xml:"MaxResults"`
	Containers []Container `xml:"Containers>Container"`
}

// ListContainersOptions narrows a ListContainers call.
type ListContainersOptions struct {
	Prefix          string
	Marker          string
	MaxResults      int
	IncludeMetadata bool
	Timeout         int
}

// ContainerAccess is the public access level of a container.
type ContainerAccess string

const (
	// AccessPrivate requires authentication for every read.
	AccessPrivate ContainerAccess = ""
	// AccessBlob allows anonymous reads of blob data.
	AccessBlob ContainerAccess = "blob"
	// AccessContainer allows anonymous reads and listing.
	AccessContainer ContainerAccess = "container"
)

// CreateContainerOptions configures container creation.
type CreateContainerOptions struct {
	Access   ContainerAccess
	Metadata map[string]string
	Timeout  int
}

// Blob is an entry in a ListBlobsResult.
type Blob struct {
	Name       string         `xml:"Name"`
	Properties BlobProperties `xml:"Properties"`
}

// BlobProperties holds the subset of blob properties surfaced by list and
// head operations.
type BlobProperties struct {
	LastModified    string `xml:"Last-Modified"`
	ETag            string `xml:"Etag"`
	ContentLength   int64  `xml:"Content-Length"`
	ContentType     string `xml:"Content-Type"`
	ContentEncoding string `xml:"Content-Encoding"`
	ContentMD5      string `xml:"Content-MD5"`
	BlobType        string `xml:"BlobType"`
	LeaseStatus     string `xml:"LeaseStatus"`
	LeaseState      string `xml:"LeaseState"`
}

// ListBlobsResult is one page of blobs within a container.
type ListBlobsResult struct {
	XMLName    xml.Name `xml:"EnumerationResults"`
	Prefix     string   `xml:"Prefix"`
	Marker     string   `xml:"Marker"`
	NextMarker string   `xml:"NextMarker"`
	MaxResults int      `xml:"MaxResults"`
	Delimiter  string   `xml:"Delimiter"`
	Blobs      []Blob   `xml:"Blobs>Blob"`
}

// ListBlobsOptions narrows a ListBlobs call.
type ListBlobsOptions struct {
	Prefix     string
	Delimiter  string
	Marker     string
	MaxResults int
	Timeout    int
}

// PutOptions configures a block blob upload. Conditional headers left empty
// are stripped before signing and never reach the wire.
type PutOptions struct {
	ContentType string
	ContentMD5  bool // compute and attach a Content-MD5 integrity header
	Metadata    map[string]string
	LeaseID     string
	IfMatch     string
	IfNoneMatch string
	Timeout     int
}

// GetOptions configures a blob download.
type GetOptions struct {
	Range   string // e.g. "bytes=0-1023"
	LeaseID string
	IfMatch string
	Timeout int
}

// GetResult is a downloaded blob with the properties the service returned
// alongside it.
type GetResult struct {
	Content       []byte
	ContentType   string
	ContentLength int64
	ETag          string
	RequestID     string
}

// DeleteOptions configures blob deletion.
type DeleteOptions struct {
	LeaseID         string
	DeleteSnapshots string // "include" or "only"
	Timeout         int
}

// PropertiesResult holds a blob's properties from a HEAD request.
type PropertiesResult struct {
	ContentType   string
	ContentLength int64
	ETag          string
	LeaseStatus   string
	LeaseState    string
	Metadata      map[string]string
}
