// Package transfer fetches package payloads from repository mirrors into
// local files so they can be inspected during import.
package transfer

import (
	"context"
	"fmt"
	"net/url"
)

// Transfer downloads the resource at uri into the local file dest,
// overwriting it. Implementations handle one or more URI schemes.
type Transfer interface {
	TransferToLocalFile(ctx context.Context, uri string, dest string) error
}

// Dispatcher routes a transfer to the implementation registered for the
// URI scheme.
type Dispatcher struct {
	bySchemes map[string]Transfer
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{bySchemes: make(map[string]Transfer)}
}

// Register binds a scheme ("http", "s3", ...) to an implementation.
// Registering a scheme twice replaces the earlier binding.
func (d *Dispatcher) Register(scheme string, t Transfer) {
	d.bySchemes[scheme] = t
}

func (d *Dispatcher) TransferToLocalFile(ctx context.Context, uri string, dest string) error {
	u, err := url.Parse(uri)
	if err != nil {
		return fmt.Errorf("parse transfer uri: %w", err)
	}
	t, ok := d.bySchemes[u.Scheme]
	if !ok {
		return fmt.Errorf("no transfer registered for scheme %q", u.Scheme)
	}
	return t.TransferToLocalFile(ctx, uri, dest)
}
