// Package hooks provides ready-made saved-tensor hook pairs.
package hooks

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	gojson "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/gradia-ml/gradia/internal/autodiff/saved"
	"github.com/gradia-ml/gradia/internal/tensor"
)

// spill file layout: 8-byte little-endian header length, JSON header, payload.
type spillHeader struct {
	Shape tensor.Shape `json:"shape"`
	DType string       `json:"dtype"`
	Size  int          `json:"size"`
}

// spillHandle is the opaque payload the offload pair passes between pack
// and unpack: the path of the spill file.
type spillHandle struct {
	path string
}

// DiskOffloader spills tensors saved for backward to files and reads them
// back on demand, trading backward-pass latency for resident memory.
//
// Packs may run concurrently; each writes its own uuid-named file.
type DiskOffloader struct {
	dir             string
	tensorsPacked   atomic.Int64
	bytesPacked     atomic.Int64
	tensorsRestored atomic.Int64
}

// NewDiskOffloader creates an offloader spilling into a fresh directory
// under dir (os.TempDir() when dir is empty).
func NewDiskOffloader(dir string) (*DiskOffloader, error) {
	path, err := os.MkdirTemp(dir, "gradia-offload-")
	if err != nil {
		return nil, errors.Wrap(err, "offload: create spill directory")
	}
	return &DiskOffloader{dir: path}, nil
}

// Hooks returns the pack/unpack pair to install on an autodiff backend.
func (o *DiskOffloader) Hooks() saved.Hooks {
	return saved.Pair(o.pack, o.unpack)
}

// Dir returns the spill directory.
func (o *DiskOffloader) Dir() string {
	return o.dir
}

func (o *DiskOffloader) pack(t *tensor.RawTensor) (spillHandle, error) {
	hdr := spillHeader{
		Shape: t.Shape(),
		DType: t.DType().String(),
		Size:  t.ByteSize(),
	}
	hdrBytes, err := gojson.Marshal(hdr)
	if err != nil {
		return spillHandle{}, errors.Wrap(err, "offload: encode header")
	}

	buf := make([]byte, 8+len(hdrBytes)+hdr.Size)
	binary.LittleEndian.PutUint64(buf, uint64(len(hdrBytes)))
	copy(buf[8:], hdrBytes)
	copy(buf[8+len(hdrBytes):], t.Data()[:hdr.Size])

	path := filepath.Join(o.dir, uuid.NewString()+".gst")
	if err := os.WriteFile(path, buf, 0o600); err != nil {
		return spillHandle{}, errors.Wrapf(err, "offload: write %s", path)
	}

	o.tensorsPacked.Add(1)
	o.bytesPacked.Add(int64(hdr.Size))
	klog.V(2).Infof("offloaded %s tensor %v (%s) to %s",
		t.DType(), t.Shape(), humanize.Bytes(uint64(hdr.Size)), path)
	return spillHandle{path: path}, nil
}

func (o *DiskOffloader) unpack(h spillHandle) (*tensor.RawTensor, error) {
	buf, err := os.ReadFile(h.path)
	if err != nil {
		return nil, errors.Wrapf(err, "offload: read %s", h.path)
	}
	if len(buf) < 8 {
		return nil, errors.Errorf("offload: %s: truncated header", h.path)
	}

	hdrLen := binary.LittleEndian.Uint64(buf)
	if uint64(len(buf)) < 8+hdrLen {
		return nil, errors.Errorf("offload: %s: truncated header", h.path)
	}

	var hdr spillHeader
	if err := gojson.Unmarshal(buf[8:8+hdrLen], &hdr); err != nil {
		return nil, errors.Wrapf(err, "offload: decode header of %s", h.path)
	}

	dtype, err := tensor.ParseDataType(hdr.DType)
	if err != nil {
		return nil, errors.Wrapf(err, "offload: %s", h.path)
	}

	payload := buf[8+hdrLen:]
	if len(payload) != hdr.Size || hdr.Shape.NumElements()*dtype.Size() != hdr.Size {
		return nil, errors.Errorf("offload: %s: payload size %d does not match header", h.path, len(payload))
	}

	t, err := tensor.NewRaw(hdr.Shape, dtype, tensor.CPU)
	if err != nil {
		return nil, errors.Wrapf(err, "offload: %s", h.path)
	}
	copy(t.Data(), payload)

	o.tensorsRestored.Add(1)
	klog.V(2).Infof("restored %s tensor %v from %s", dtype, hdr.Shape, h.path)
	return t, nil
}

// OffloadStats is a snapshot of offloader counters.
type OffloadStats struct {
	TensorsPacked   int64
	BytesPacked     int64
	TensorsRestored int64
}

// String renders the stats with human-readable byte counts.
func (s OffloadStats) String() string {
	return humanize.Comma(s.TensorsPacked) + " tensors (" +
		humanize.Bytes(uint64(s.BytesPacked)) + ") spilled, " +
		humanize.Comma(s.TensorsRestored) + " restored"
}

// Stats returns a snapshot of the offloader's counters.
func (o *DiskOffloader) Stats() OffloadStats {
	return OffloadStats{
		TensorsPacked:   o.tensorsPacked.Load(),
		BytesPacked:     o.bytesPacked.Load(),
		TensorsRestored: o.tensorsRestored.Load(),
	}
}

// Cleanup removes the spill directory and everything in it. Tensors saved
// under this offloader cannot be unpacked afterwards.
func (o *DiskOffloader) Cleanup() error {
	return os.RemoveAll(o.dir)
}
