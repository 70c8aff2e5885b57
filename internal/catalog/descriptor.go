// Package catalog maintains the virtual file catalog: every revision,
// language and mistakes file under the data root, partitioned by language.
package catalog

import (
	"fmt"
	"strings"

	"github.com/LISSConsulting/LISSTech.Revise/internal/table"
)

// Kind classifies a dataset file.
type Kind int

const (
	Unknown Kind = iota
	Revision
	Language
	Mistakes
	Ephemeral
)

var kindCodes = [...]string{Unknown: "unk", Revision: "rev", Language: "lng", Mistakes: "mst", Ephemeral: "eph"}

// String returns the short code used for directory names and ledger rows.
func (k Kind) String() string {
	if k >= Unknown && int(k) < len(kindCodes) {
		return kindCodes[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind maps a short code back to a Kind.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, code := range kindCodes {
		if code == s {
			return Kind(k), nil
		}
	}
	return Unknown, fmt.Errorf("catalog: unknown kind %q", s)
}

// scanKinds are the kinds that live on disk in a fixed subdirectory.
var scanKinds = []Kind{Revision, Language, Mistakes}

// Parent records where a temporary slice came from.
type Parent struct {
	Filepath string
	Length   int
}

// FileDescriptor describes one dataset the catalog or the dataset store
// knows about. Filepath is the unique key for on-disk files; temporary
// descriptors have no path and are keyed by Signature.
type FileDescriptor struct {
	Basename  string
	Filepath  string
	Language  string
	Kind      Kind
	Extension string
	Valid     bool
	Signature string
	Temporary bool
	Parent    *Parent

	// Data is the loaded table. Only the active descriptor should hold it.
	Data *table.Table
}

// Key returns the identity used in maps and logs.
func (fd *FileDescriptor) Key() string {
	if fd.Filepath != "" {
		return fd.Filepath
	}
	return "mem:" + fd.Signature
}

// String implements fmt.Stringer.
func (fd *FileDescriptor) String() string {
	return fmt.Sprintf("%s/%s/%s", fd.Language, fd.Kind, fd.Basename)
}
