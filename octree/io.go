package octree

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"os"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	lzf "github.com/zhuyie/golzf"
	"go.uber.org/multierr"
)

// Stream layout, all integers little endian:
//
//	magic "SVO1" | flags u8 | maxDepth u32 | order u32 | scale f64 | rawLen u64 | [packedLen u64] | body
//
// The body is the pre-order node encoding: a child presence mask of ceil(order^3/8) bytes, a payload tag
// byte, the payload and then the present children in ascending slot order. With flagCompressed set the body
// is LZF compressed and packedLen is present.
const (
	streamMagic    = "SVO1"
	flagCompressed = 1 << 0
	maxStreamBody  = 1 << 40
	// lzfMaxExpansion bounds rawLen/packedLen. A single LZF back reference expands 3 bytes to at most 264.
	lzfMaxExpansion = 96
)

type ioMode uint8

const (
	ioIdle = ioMode(iota)
	ioWriting
	ioReading
)

// IOContext reads and writes trees from and to a file, a stream or an in-memory buffer. Every transfer is
// bracketed by one of the Begin methods and Finish; only one bracket may be open at a time. Several trees
// may be written to or read from one bracket in sequence.
type IOContext struct {
	expected *Context
	compress bool
	logger   golog.Logger

	mode     ioMode
	writer   *bufio.Writer
	reader   *bufio.Reader
	file     *os.File
	buf      *bytes.Buffer
	numBytes int
}

// NewIOContext returns an idle I/O context. When expected is not nil, reading a stream written with a
// different context fails with ErrIncompatibleContext. A nil logger falls back to the global logger.
func NewIOContext(expected *Context, logger golog.Logger) *IOContext {
	if logger == nil {
		logger = golog.Global()
	}
	return &IOContext{expected: expected, logger: logger}
}

// SetCompression enables LZF compression of written trees.
func (c *IOContext) SetCompression(compress bool) {
	c.compress = compress
}

func (c *IOContext) begin(mode ioMode) error {
	if c.mode != ioIdle {
		return errors.Wrap(ErrIO, "an io bracket is already open")
	}
	c.mode = mode
	c.numBytes = 0
	return nil
}

// BeginWrite opens a write bracket on w.
func (c *IOContext) BeginWrite(w io.Writer) error {
	if err := c.begin(ioWriting); err != nil {
		return err
	}
	c.writer = bufio.NewWriter(w)
	return nil
}

// BeginWriteFile creates or truncates the file at path and opens a write bracket on it.
func (c *IOContext) BeginWriteFile(path string) error {
	if c.mode != ioIdle {
		return errors.Wrap(ErrIO, "an io bracket is already open")
	}
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(ErrIO, "creating %q: %v", path, err)
	}
	if err := c.BeginWrite(f); err != nil {
		return multierr.Combine(err, f.Close())
	}
	c.file = f
	return nil
}

// BeginWriteBuffer opens a write bracket on a fresh in-memory buffer. Its content is available from Bytes.
func (c *IOContext) BeginWriteBuffer() error {
	buf := &bytes.Buffer{}
	if err := c.BeginWrite(buf); err != nil {
		return err
	}
	c.buf = buf
	return nil
}

// BeginRead opens a read bracket on r.
func (c *IOContext) BeginRead(r io.Reader) error {
	if err := c.begin(ioReading); err != nil {
		return err
	}
	c.reader = bufio.NewReader(r)
	return nil
}

// BeginReadFile opens the file at path and a read bracket on it.
func (c *IOContext) BeginReadFile(path string) error {
	if c.mode != ioIdle {
		return errors.Wrap(ErrIO, "an io bracket is already open")
	}
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(ErrIO, "opening %q: %v", path, err)
	}
	if err := c.BeginRead(f); err != nil {
		return multierr.Combine(err, f.Close())
	}
	c.file = f
	return nil
}

// BeginReadBuffer opens a read bracket on data.
func (c *IOContext) BeginReadBuffer(data []byte) error {
	return c.BeginRead(bytes.NewReader(data))
}

// Finish flushes and closes the open bracket.
func (c *IOContext) Finish() (err error) {
	if c.mode == ioIdle {
		return errors.Wrap(ErrIO, "no io bracket is open")
	}
	defer func() {
		if c.file != nil {
			if cerr := c.file.Close(); cerr != nil {
				err = multierr.Combine(err, errors.Wrapf(ErrIO, "closing: %v", cerr))
			}
		}
		c.mode = ioIdle
		c.writer = nil
		c.reader = nil
		c.file = nil
	}()
	if c.mode == ioWriting {
		if ferr := c.writer.Flush(); ferr != nil {
			return errors.Wrapf(ErrIO, "flushing: %v", ferr)
		}
	}
	return nil
}

// NumBytes returns the number of bytes transferred in the current or last bracket.
func (c *IOContext) NumBytes() int {
	return c.numBytes
}

// Bytes returns the content written by the last BeginWriteBuffer bracket.
func (c *IOContext) Bytes() []byte {
	if c.buf == nil {
		return nil
	}
	return c.buf.Bytes()
}

// Serialize appends t to the open write bracket.
func (c *IOContext) Serialize(t *Tree) error {
	if c.mode != ioWriting {
		return errors.Wrap(ErrIO, "serialize needs an open write bracket")
	}
	enc := &encoder{ctx: t.ctx, maskLen: maskLen(t.ctx), logger: c.logger}
	enc.node(t.root)
	raw := enc.buf.Bytes()

	flags := uint8(0)
	body := raw
	if c.compress {
		packed := make([]byte, len(raw)+len(raw)/16+64)
		n, err := lzf.Compress(raw, packed)
		if err == nil && n > 0 && n < len(raw) {
			flags |= flagCompressed
			body = packed[:n]
		} else {
			c.logger.Debugw("storing tree uncompressed", "raw_bytes", len(raw), "error", err)
		}
	}

	header := make([]byte, 0, 37)
	header = append(header, streamMagic...)
	header = append(header, flags)
	header = binary.LittleEndian.AppendUint32(header, uint32(t.ctx.MaxDepth()))
	header = binary.LittleEndian.AppendUint32(header, uint32(t.ctx.Order()))
	header = binary.LittleEndian.AppendUint64(header, math.Float64bits(t.ctx.Scale()))
	header = binary.LittleEndian.AppendUint64(header, uint64(len(raw)))
	if flags&flagCompressed != 0 {
		header = binary.LittleEndian.AppendUint64(header, uint64(len(body)))
	}
	for _, chunk := range [][]byte{header, body} {
		n, err := c.writer.Write(chunk)
		c.numBytes += n
		if err != nil {
			return errors.Wrapf(ErrIO, "writing tree: %v", err)
		}
	}
	return nil
}

// Deserialize reads the next tree from the open read bracket. With a nil target a new tree is returned.
// Otherwise the stream must match the target's context and either replaces the target's content or, with
// merge, is merged into it; the target is returned. A failed read leaves the target untouched.
func (c *IOContext) Deserialize(target *Tree, merge bool) (*Tree, error) {
	if c.mode != ioReading {
		return nil, errors.Wrap(ErrIO, "deserialize needs an open read bracket")
	}
	ctx, flags, raw, err := c.readFrame()
	if err != nil {
		return nil, err
	}
	if c.expected != nil {
		if !c.expected.Compatible(ctx) {
			return nil, errors.Wrapf(ErrIncompatibleContext, "stream has %v, expected %v", ctx, c.expected)
		}
		ctx = c.expected
	}
	if target != nil {
		if !target.ctx.Compatible(ctx) {
			return nil, errors.Wrapf(ErrIncompatibleContext, "stream has %v, target has %v", ctx, target.ctx)
		}
		ctx = target.ctx
	}

	if flags&flagCompressed != 0 {
		raw, err = decompress(raw.packed, raw.rawLen)
		if err != nil {
			return nil, err
		}
	}
	dec := &decoder{ctx: ctx, data: raw.data, maskLen: maskLen(ctx)}
	root, err := dec.node(0)
	if err != nil {
		return nil, err
	}
	if dec.pos != len(dec.data) {
		return nil, errors.Wrapf(ErrCorrupt, "%d trailing bytes after tree", len(dec.data)-dec.pos)
	}

	if target == nil {
		t := NewTree(ctx, c.logger)
		t.replaceRoot(root)
		return t, nil
	}
	if !merge {
		target.replaceRoot(root)
		return target, nil
	}
	loaded := NewTree(ctx, c.logger)
	loaded.replaceRoot(root)
	if _, err := target.Merge(loaded); err != nil {
		return nil, err
	}
	return target, nil
}

// frame is the body of one serialized tree.
type frame struct {
	data   []byte
	packed []byte
	rawLen uint64
}

// readFull fills buf. Running out of data is only a clean end of stream at the start of a frame.
func (c *IOContext) readFull(buf []byte, frameStart bool) error {
	n, err := io.ReadFull(c.reader, buf)
	c.numBytes += n
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || (!frameStart && errors.Is(err, io.EOF)) {
			return errors.Wrap(ErrCorrupt, "truncated stream")
		}
		return errors.Wrapf(ErrIO, "reading tree: %v", err)
	}
	return nil
}

func (c *IOContext) readFrame() (*Context, uint8, frame, error) {
	header := make([]byte, 29)
	if err := c.readFull(header, true); err != nil {
		return nil, 0, frame{}, err
	}
	if string(header[:4]) != streamMagic {
		return nil, 0, frame{}, errors.Wrapf(ErrCorrupt, "bad magic %q", header[:4])
	}
	flags := header[4]
	if flags&^flagCompressed != 0 {
		return nil, 0, frame{}, errors.Wrapf(ErrCorrupt, "unknown flags %#x", flags)
	}
	maxDepth := binary.LittleEndian.Uint32(header[5:])
	order := binary.LittleEndian.Uint32(header[9:])
	scale := math.Float64frombits(binary.LittleEndian.Uint64(header[13:]))
	rawLen := binary.LittleEndian.Uint64(header[21:])
	if maxDepth > math.MaxInt32 || order > math.MaxInt32 {
		return nil, 0, frame{}, errors.Wrapf(ErrCorrupt, "invalid context (%d, %d)", maxDepth, order)
	}
	ctx, err := NewContext(int(maxDepth), int(order), scale)
	if err != nil {
		return nil, 0, frame{}, errors.Wrapf(ErrCorrupt, "invalid context in stream: %v", err)
	}
	if rawLen > maxStreamBody {
		return nil, 0, frame{}, errors.Wrapf(ErrCorrupt, "body of %d bytes", rawLen)
	}

	bodyLen := rawLen
	if flags&flagCompressed != 0 {
		lenBuf := make([]byte, 8)
		if err := c.readFull(lenBuf, false); err != nil {
			return nil, 0, frame{}, err
		}
		bodyLen = binary.LittleEndian.Uint64(lenBuf)
		if bodyLen > rawLen {
			return nil, 0, frame{}, errors.Wrapf(ErrCorrupt, "packed body of %d bytes exceeds raw %d", bodyLen, rawLen)
		}
		if rawLen > bodyLen*lzfMaxExpansion {
			return nil, 0, frame{}, errors.Wrapf(ErrCorrupt, "packed body of %d bytes cannot expand to %d", bodyLen, rawLen)
		}
	}
	body, err := c.readBody(bodyLen)
	if err != nil {
		return nil, 0, frame{}, err
	}
	if flags&flagCompressed != 0 {
		return ctx, flags, frame{packed: body, rawLen: rawLen}, nil
	}
	return ctx, flags, frame{data: body, rawLen: rawLen}, nil
}

// readBody reads n bytes, growing the buffer as data arrives so that a header claiming more than the stream
// holds fails as truncated instead of allocating the claimed size.
func (c *IOContext) readBody(n uint64) ([]byte, error) {
	var body bytes.Buffer
	read, err := io.CopyN(&body, c.reader, int64(n))
	c.numBytes += int(read)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.Wrapf(ErrCorrupt, "truncated stream: body has %d of %d bytes", read, n)
		}
		return nil, errors.Wrapf(ErrIO, "reading tree: %v", err)
	}
	return body.Bytes(), nil
}

func decompress(packed []byte, rawLen uint64) (frame, error) {
	out := make([]byte, rawLen)
	n, err := lzf.Decompress(packed, out)
	if err != nil {
		return frame{}, errors.Wrapf(ErrCorrupt, "decompressing: %v", err)
	}
	if uint64(n) != rawLen {
		return frame{}, errors.Wrapf(ErrCorrupt, "decompressed %d bytes, expected %d", n, rawLen)
	}
	return frame{data: out, rawLen: rawLen}, nil
}

func maskLen(ctx *Context) int {
	return (ctx.NumChildren() + 7) / 8
}

type encoder struct {
	ctx     *Context
	maskLen int
	logger  golog.Logger
	buf     bytes.Buffer
}

func (e *encoder) node(n *Node) {
	mask := make([]byte, e.maskLen)
	for i := 0; i < n.Slots(); i++ {
		if n.Child(i) != nil {
			mask[i/8] |= 1 << (i % 8)
		}
	}
	e.buf.Write(mask)
	e.payload(n.payload)
	for i := 0; i < n.Slots(); i++ {
		if c := n.Child(i); c != nil {
			e.node(c)
		}
	}
}

func (e *encoder) payload(p Payload) {
	var scratch [8]byte
	switch v := p.(type) {
	case nil:
		e.buf.WriteByte(byte(PayloadEmpty))
	case Density:
		e.buf.WriteByte(byte(PayloadDensity))
		binary.LittleEndian.PutUint64(scratch[:], math.Float64bits(float64(v)))
		e.buf.Write(scratch[:])
	case ColorRGBA:
		e.buf.WriteByte(byte(PayloadColor))
		for _, f := range v {
			binary.LittleEndian.PutUint64(scratch[:], math.Float64bits(f))
			e.buf.Write(scratch[:])
		}
	case VoxelClass:
		e.buf.WriteByte(byte(PayloadVoxelClass))
		e.buf.WriteByte(byte(v))
	case FaceRefs:
		e.buf.WriteByte(byte(PayloadFaceRefs))
		binary.LittleEndian.PutUint32(scratch[:4], uint32(len(v)))
		e.buf.Write(scratch[:4])
		for _, id := range v {
			binary.LittleEndian.PutUint32(scratch[:4], uint32(id))
			e.buf.Write(scratch[:4])
		}
	default:
		e.logger.Warnw("payload type cannot be serialized, storing it as unknown", "type", p.Type())
		e.buf.WriteByte(byte(PayloadUnknown))
	}
}

type decoder struct {
	ctx     *Context
	data    []byte
	pos     int
	maskLen int
}

func (d *decoder) take(n int) ([]byte, error) {
	if n < 0 || len(d.data)-d.pos < n {
		return nil, errors.Wrapf(ErrCorrupt, "truncated body at byte %d", d.pos)
	}
	b := d.data[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *decoder) node(depth int) (*Node, error) {
	mask, err := d.take(d.maskLen)
	if err != nil {
		return nil, err
	}
	n := NewNode(d.ctx)
	if n.payload, err = d.payload(); err != nil {
		return nil, err
	}
	for i := 0; i < d.maskLen*8; i++ {
		if mask[i/8]&(1<<(i%8)) == 0 {
			continue
		}
		if i >= n.Slots() {
			return nil, errors.Wrapf(ErrCorrupt, "child slot %d out of range at depth %d", i, depth)
		}
		if depth >= d.ctx.LeafDepth() {
			return nil, errors.Wrapf(ErrCorrupt, "child below leaf depth %d", d.ctx.LeafDepth())
		}
		child, err := d.node(depth + 1)
		if err != nil {
			return nil, err
		}
		if err := n.setChild(i, child); err != nil {
			return nil, err
		}
	}
	return n, nil
}

func (d *decoder) payload() (Payload, error) {
	tag, err := d.take(1)
	if err != nil {
		return nil, err
	}
	switch PayloadType(tag[0]) {
	case PayloadEmpty, PayloadUnknown:
		return nil, nil
	case PayloadDensity:
		b, err := d.take(8)
		if err != nil {
			return nil, err
		}
		return Density(math.Float64frombits(binary.LittleEndian.Uint64(b))), nil
	case PayloadColor:
		b, err := d.take(32)
		if err != nil {
			return nil, err
		}
		var c ColorRGBA
		for i := range c {
			c[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[8*i:]))
		}
		return c, nil
	case PayloadVoxelClass:
		b, err := d.take(1)
		if err != nil {
			return nil, err
		}
		return VoxelClass(b[0]), nil
	case PayloadFaceRefs:
		b, err := d.take(4)
		if err != nil {
			return nil, err
		}
		count := int(binary.LittleEndian.Uint32(b))
		if count > (len(d.data)-d.pos)/4 {
			return nil, errors.Wrapf(ErrCorrupt, "face list of %d entries exceeds stream", count)
		}
		refs := make(FaceRefs, count)
		for i := range refs {
			b, _ := d.take(4)
			refs[i] = FaceID(binary.LittleEndian.Uint32(b))
		}
		return refs, nil
	case PayloadAny:
	}
	return nil, errors.Wrapf(ErrCorrupt, "unknown payload tag %d at byte %d", tag[0], d.pos-1)
}

// WriteFile serializes t to the file at path.
func WriteFile(path string, t *Tree, compress bool) (err error) {
	ioc := NewIOContext(t.ctx, t.logger)
	ioc.SetCompression(compress)
	if err := ioc.BeginWriteFile(path); err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, ioc.Finish())
	}()
	return ioc.Serialize(t)
}

// ReadFile deserializes the first tree stored in the file at path. A nil expected context accepts any.
func ReadFile(path string, expected *Context, logger golog.Logger) (t *Tree, err error) {
	ioc := NewIOContext(expected, logger)
	if err := ioc.BeginReadFile(path); err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Combine(err, ioc.Finish())
	}()
	return ioc.Deserialize(nil, false)
}
