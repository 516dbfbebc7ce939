package dataport

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	cmap "github.com/orcaman/concurrent-map/v2"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/srediag/dataport/internal/shm"
)

// ErrEmptyName is returned by Open when no port name was given.
var ErrEmptyName = errors.New("dataport: empty port name")

// DefaultShmDir is where named ports place their backing files unless
// OpenOptions.Path overrides it.
const DefaultShmDir = "/dev/shm"

// OpenOptions selects the region and role for Open.
type OpenOptions struct {
	// Name identifies the port process-wide and labels its metrics.
	Name string
	// Path overrides the backing file location, default DefaultShmDir/Name.
	// Ignored for memfd ports.
	Path string
	// Capacity is the data area size in bytes. Required when creating.
	Capacity int
	// Create makes this side the producer: it creates and initializes the
	// region. Attaching sides leave it false.
	Create bool
	// UseMemfd backs the region with an anonymous memfd instead of a file.
	// Attaching to a memfd port requires MemfdFd.
	UseMemfd bool
	// MemfdFd is the memfd received from the creating side.
	MemfdFd int

	// Meter and Tracer are optional observability handles; both may be nil.
	Meter  metric.Meter
	Tracer trace.Tracer
}

// Port is a registry-managed dataport bound to a mapped region. Ports are
// shared within the process by name and reference counted; Close releases
// one reference and unmaps on the last one.
type Port struct {
	*Dataport

	name    string
	region  *shm.Region
	refs    int
	creator bool
}

// Name returns the port's registry name.
func (p *Port) Name() string {
	return p.name
}

// Fd exposes the backing memfd so the creating side can hand it to its peer.
// Returns -1 for file-backed ports.
func (p *Port) Fd() int {
	return p.region.Fd
}

var openPorts = cmap.New[*Port]()

// Open creates or attaches the named port. Opening an already-open name
// returns the same Port with its reference count bumped, regardless of the
// remaining options.
func Open(ctx context.Context, opts OpenOptions) (*Port, error) {
	if opts.Name == "" {
		return nil, ErrEmptyName
	}
	if opts.Tracer != nil {
		var span trace.Span
		ctx, span = opts.Tracer.Start(ctx, "dataport.Open")
		defer span.End()
	}

	var firstErr error
	port := openPorts.Upsert(opts.Name, nil,
		func(exists bool, current, _ *Port) *Port {
			// A nil entry marks a failed open not yet cleaned up; treat it
			// as absent.
			if exists && current != nil {
				current.refs++
				return current
			}
			p, err := openPort(opts)
			if err != nil {
				firstErr = err
				return nil
			}
			return p
		})
	if firstErr != nil {
		// Clear only our own failure marker; a concurrent open may have
		// replaced it with a live port since.
		openPorts.RemoveCb(opts.Name, func(_ string, current *Port, exists bool) bool {
			return exists && current == nil
		})
		return nil, firstErr
	}

	if opts.Meter != nil {
		if c, err := opts.Meter.Int64Counter("dataport.opens"); err == nil {
			c.Add(ctx, 1)
		}
	}
	return port, nil
}

func openPort(opts OpenOptions) (*Port, error) {
	region, err := mapRegion(opts)
	if err != nil {
		return nil, err
	}

	var d *Dataport
	if opts.Create {
		d, err = Create(region.Mem)
	} else {
		d, err = Attach(region.Mem)
	}
	if err != nil {
		region.Unmap()
		return nil, fmt.Errorf("dataport: open port %s: %w", opts.Name, err)
	}
	d.instrument(opts.Name)

	return &Port{
		Dataport: d,
		name:     opts.Name,
		region:   region,
		refs:     1,
		creator:  opts.Create,
	}, nil
}

func mapRegion(opts OpenOptions) (*shm.Region, error) {
	if opts.UseMemfd {
		if opts.Create {
			return shm.CreateMemfd(opts.Name, HeaderSize+opts.Capacity)
		}
		return shm.AttachMemfd(opts.Name, opts.MemfdFd)
	}

	path := opts.Path
	if path == "" {
		path = filepath.Join(DefaultShmDir, opts.Name)
	}
	if opts.Create {
		return shm.Create(path, HeaderSize+opts.Capacity)
	}
	return shm.Attach(path)
}

// Close drops one reference to the port and unmaps the region when none
// remain. The creating side also removes the backing file.
func (p *Port) Close() {
	openPorts.RemoveCb(p.name, func(_ string, current *Port, exists bool) bool {
		if !exists || current == nil {
			return false
		}
		current.refs--
		if current.refs > 0 {
			return false
		}
		current.region.Unmap()
		return true
	})
}
