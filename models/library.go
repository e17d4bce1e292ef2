package models

import (
	"fmt"
	"strconv"
	"strings"
)

// LibraryKind discriminates the two kinds of libraries a user can sync:
// the personal library and shared group libraries.
type LibraryKind int

const (
	// KindCustom is the user's personal library, keyed by user ID.
	KindCustom LibraryKind = 1

	// KindGroup is a shared group library, keyed by the numeric group ID.
	KindGroup LibraryKind = 2
)

// LibraryIdentifier identifies a library either as the user's personal
// library or as a numeric group. The zero value is invalid.
type LibraryIdentifier struct {
	Kind LibraryKind
	ID   int64
}

// CustomLibrary returns the identifier of the personal library of userID.
func CustomLibrary(userID int64) LibraryIdentifier {
	return LibraryIdentifier{Kind: KindCustom, ID: userID}
}

// GroupLibrary returns the identifier of the group library groupID.
func GroupLibrary(groupID int64) LibraryIdentifier {
	return LibraryIdentifier{Kind: KindGroup, ID: groupID}
}

// String renders the identifier in its storage form: "u/<id>" for the
// personal library, "g/<id>" for groups. The form is stable because it is
// used as a database key.
func (l LibraryIdentifier) String() string {
	switch l.Kind {
	case KindGroup:
		return "g/" + strconv.FormatInt(l.ID, 10)
	default:
		return "u/" + strconv.FormatInt(l.ID, 10)
	}
}

// APIPath returns the path prefix used by the remote API for this library.
func (l LibraryIdentifier) APIPath() string {
	if l.Kind == KindGroup {
		return fmt.Sprintf("groups/%d", l.ID)
	}
	return fmt.Sprintf("users/%d", l.ID)
}

// ParseLibraryIdentifier parses the storage form produced by String.
func ParseLibraryIdentifier(s string) (LibraryIdentifier, error) {
	prefix, raw, ok := strings.Cut(s, "/")
	if !ok {
		return LibraryIdentifier{}, fmt.Errorf("malformed library identifier %q", s)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return LibraryIdentifier{}, fmt.Errorf("malformed library identifier %q: %w", s, err)
	}
	switch prefix {
	case "u":
		return CustomLibrary(id), nil
	case "g":
		return GroupLibrary(id), nil
	default:
		return LibraryIdentifier{}, fmt.Errorf("unknown library kind %q", prefix)
	}
}

// Library is a top-level container of collections and items. Group
// libraries carry per-user edit permissions decided by the server.
type Library struct {
	ID      LibraryIdentifier `json:"id"`
	Name    string            `json:"name"`
	Version int               `json:"version"`

	// CanEditMetadata reports whether the current user may modify
	// collections and item metadata in this library.
	CanEditMetadata bool `json:"can_edit_metadata"`

	// CanEditFiles reports whether the current user may upload or replace
	// attachment files in this library.
	CanEditFiles bool `json:"can_edit_files"`
}
