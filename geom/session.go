// Package geom carves the cylindrical airspace around an imported porous
// solid and classifies its bounding surfaces. All geometry lives in an
// explicit per-sample Session so no kernel state survives a sample.
package geom

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sort"

	"github.com/leafpore/plugmesh/trimesh"
)

// Entity dimensions within a session.
const (
	DimSurface = 2
	DimSolid   = 3
)

// Sentinel errors for the geometry stages.
var (
	// ErrKernel marks invariant violations inside the geometry kernel:
	// ambiguous surface classification, missing cap surfaces, failed
	// boolean results. Fatal for the sample.
	ErrKernel = errors.New("geometry kernel invariant violation")
	// ErrClosed is returned when operating on a torn-down session.
	ErrClosed = errors.New("session is closed")
)

// Entity is a handle to a registered solid or surface.
type Entity struct {
	Dim int
	Tag int
}

func (e Entity) String() string { return fmt.Sprintf("(%d,%d)", e.Dim, e.Tag) }

// record is the session-owned geometry behind an entity handle.
type record struct {
	mesh *trimesh.Mesh
	sdf  SDF3 // solids only
}

// Session owns the live set of geometric entities for one sample. It is
// not safe for concurrent use; each worker creates its own session and
// tears it down when the sample finishes.
type Session struct {
	resolution int
	entities   map[Entity]*record
	nextTag    int
	logger     *log.Logger
	closed     bool
}

// NewSession creates a session discretizing implicit solids on lattices of
// the given resolution along the longest axis. A nil logger discards
// kernel diagnostics.
func NewSession(resolution int, logger *log.Logger) (*Session, error) {
	if resolution < 2 {
		return nil, fmt.Errorf("session resolution %d too small, need at least 2", resolution)
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Session{
		resolution: resolution,
		entities:   make(map[Entity]*record),
		logger:     logger,
	}, nil
}

// register stores a record and returns its handle.
func (s *Session) register(dim int, rec *record) Entity {
	s.nextTag++
	e := Entity{Dim: dim, Tag: s.nextTag}
	s.entities[e] = rec
	return e
}

// Remove deregisters an entity, discarding its geometry.
func (s *Session) Remove(e Entity) error {
	if s.closed {
		return ErrClosed
	}
	if _, ok := s.entities[e]; !ok {
		return fmt.Errorf("remove entity %v: no such entity", e)
	}
	delete(s.entities, e)
	s.logger.Printf("geom: removed entity %v", e)
	return nil
}

// Mesh returns the boundary mesh of an entity.
func (s *Session) Mesh(e Entity) (*trimesh.Mesh, error) {
	rec, err := s.lookup(e)
	if err != nil {
		return nil, err
	}
	return rec.mesh, nil
}

// Solid returns the signed distance field of a solid entity.
func (s *Session) Solid(e Entity) (SDF3, error) {
	rec, err := s.lookup(e)
	if err != nil {
		return nil, err
	}
	if e.Dim != DimSolid || rec.sdf == nil {
		return nil, fmt.Errorf("entity %v is not a solid", e)
	}
	return rec.sdf, nil
}

// Entities lists the live handles in deterministic order.
func (s *Session) Entities() []Entity {
	out := make([]Entity, 0, len(s.entities))
	for e := range s.entities {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Dim != out[j].Dim {
			return out[i].Dim < out[j].Dim
		}
		return out[i].Tag < out[j].Tag
	})
	return out
}

// Logf writes to the session log.
func (s *Session) Logf(format string, args ...any) {
	s.logger.Printf(format, args...)
}

// Close tears the session down. Further operations fail with ErrClosed.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.entities = nil
	s.closed = true
	s.logger.Print("geom: session closed")
}

func (s *Session) lookup(e Entity) (*record, error) {
	if s.closed {
		return nil, ErrClosed
	}
	rec, ok := s.entities[e]
	if !ok {
		return nil, fmt.Errorf("lookup entity %v: no such entity", e)
	}
	return rec, nil
}
