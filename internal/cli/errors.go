package cli

import (
	"errors"
	"fmt"
	"strings"
)

var errNotConfigured = errors.New("rk is not configured; run: rk init <url> <api-key>")

type notFoundError struct {
	kind string
	ref  string
}

func (e notFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.kind, e.ref)
}

func errNotFound(kind, ref string) error {
	return notFoundError{kind: kind, ref: ref}
}

// ambiguousError is a title that matches several records.
type ambiguousError struct {
	kind    string
	ref     string
	matches []string
}

func (e ambiguousError) Error() string {
	return fmt.Sprintf("%d %ss match %q; use an id:\n  %s", len(e.matches), e.kind, e.ref, strings.Join(e.matches, "\n  "))
}

type notLinkedError struct {
	dir string
}

func (e notLinkedError) Error() string {
	return fmt.Sprintf("%s is not linked to a project; run: rk link <project> (or pass --project)", e.dir)
}
