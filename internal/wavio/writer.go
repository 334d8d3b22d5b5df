package wavio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// riffSizeLimit is the largest file size representable in a classic 32-bit
// RIFF/WAVE size field. Exceeding it forces the writer to split the output
// across multiple sequentially numbered files.
const riffSizeLimit = math.MaxUint32

const (
	bytesPerSample = 4 // float32 PCM
	bitsPerSample  = 32
)

// headerSize is the fixed byte length of the header written by writeHeader:
// 12 (RIFF/size/WAVE) + 48 (fmt chunk: 8-byte tag+size, 40-byte body) + 8
// (data chunk tag+size), before the first sample.
const headerSize = 12 + 48 + 8

// Writer is a random-access, 32-bit-float multichannel wav sink: frames are
// addressed by absolute sample index rather than append order. That matters
// because the panner's first/last-window special cases can leave a frame
// index unwritten or write indices out of strict append order; a seek-based
// writer turns a gap into silence instead of shifting every later frame.
//
// No library in the reference pack exposes a WAVE_FORMAT_EXTENSIBLE
// multichannel encoder with an explicit speaker mask, random-access sample
// addressing, and the ability to split a single logical stream across
// size-capped files, so this writer is hand-rolled against the RIFF/WAVE
// format directly (see DESIGN.md).
type Writer struct {
	stem           string
	ext            string
	sampleRate     int
	layout         Layout
	totalSamples   int
	samplesPerFile int
	numFiles       int
	bytesPerFrame  int

	files []*os.File // lazily opened, one per split file

	mu                  sync.Mutex
	totalSamplesWritten int
}

// NewWriter creates a writer that will emit totalSamples frames at
// sampleRate in the given layout, to path (split into multiple files if the
// data would exceed the RIFF 32-bit size limit). Every file is created and
// its header written immediately so later random-access writes only ever
// append holes, never resize a file out from under a concurrent reader.
func NewWriter(path string, sampleRate int, layout Layout, totalSamples int) (*Writer, error) {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)

	bytesPerFrame := layout.NumChannels() * bytesPerSample
	// Leave room for the header so the RIFF size field itself never wraps.
	maxFrameCount := (riffSizeLimit - headerSize) / bytesPerFrame

	numFiles := 1
	if totalSamples > 0 {
		numFiles = (totalSamples + maxFrameCount - 1) / maxFrameCount
	}

	w := &Writer{
		stem:           stem,
		ext:            ext,
		sampleRate:     sampleRate,
		layout:         layout,
		totalSamples:   totalSamples,
		samplesPerFile: maxFrameCount,
		numFiles:       numFiles,
		bytesPerFrame:  bytesPerFrame,
		files:          make([]*os.File, numFiles),
	}

	for i := 0; i < numFiles; i++ {
		if err := w.createFile(i); err != nil {
			return nil, err
		}
	}

	return w, nil
}

func (w *Writer) pathForFile(index int) string {
	if w.numFiles <= 1 {
		return w.stem + w.ext
	}
	return fmt.Sprintf("%s - %d of %d%s", w.stem, index+1, w.numFiles, w.ext)
}

func (w *Writer) framesInFile(index int) int {
	remainingTotal := w.totalSamples - (index * w.samplesPerFile)
	if remainingTotal > w.samplesPerFile {
		return w.samplesPerFile
	}
	if remainingTotal < 0 {
		return 0
	}
	return remainingTotal
}

func (w *Writer) createFile(index int) error {
	path := w.pathForFile(index)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	bw := bufio.NewWriter(f)
	if err := writeHeader(bw, w.sampleRate, w.layout, w.framesInFile(index)); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flushing header for %s: %w", path, err)
	}

	w.files[index] = f
	return nil
}

// WriteFrame writes frame at absoluteIndex, in channel-index order per
// layout.Indices(). Indices may arrive in any order within a single file;
// never-written indices stay silent (zero).
func (w *Writer) WriteFrame(absoluteIndex int, frame []float32) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	fileIndex := absoluteIndex / w.samplesPerFile
	if fileIndex < 0 || fileIndex >= len(w.files) {
		return fmt.Errorf("sample index %d out of range for %d output file(s)", absoluteIndex, len(w.files))
	}
	indexInFile := absoluteIndex % w.samplesPerFile

	offset := int64(headerSize) + int64(indexInFile)*int64(w.bytesPerFrame)

	buf := make([]byte, w.bytesPerFrame)
	for i, sample := range frame {
		binary.LittleEndian.PutUint32(buf[i*bytesPerSample:], math.Float32bits(sample))
	}

	if _, err := w.files[fileIndex].WriteAt(buf, offset); err != nil {
		return fmt.Errorf("writing sample %d: %w", absoluteIndex, err)
	}

	w.totalSamplesWritten++
	return nil
}

// TotalSamplesWritten returns how many frames have been written so far,
// across all split files. The Logger polls this.
func (w *Writer) TotalSamplesWritten() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.totalSamplesWritten
}

// Close flushes and closes every split file.
func (w *Writer) Close() error {
	var firstErr error
	for _, f := range w.files {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing wav file: %w", err)
		}
	}
	return firstErr
}

// writeHeader writes a canonical RIFF/WAVE_FORMAT_EXTENSIBLE header sized
// for numFrames frames of 32-bit float samples in layout.
func writeHeader(w *bufio.Writer, sampleRate int, layout Layout, numFrames int) error {
	numChannels := layout.NumChannels()
	dataSize := uint32(numFrames * numChannels * bytesPerSample)
	blockAlign := uint16(numChannels * bytesPerSample)
	byteRate := uint32(sampleRate * int(blockAlign))

	// fmt chunk: WAVE_FORMAT_EXTENSIBLE (22-byte extension) so the speaker
	// mask and channel count beyond stereo are unambiguous to readers.
	const fmtChunkSize = 40
	const extensionSize = 22
	riffSize := 4 + (8 + fmtChunkSize) + (8 + dataSize)

	write := func(v interface{}) error { return binary.Write(w, binary.LittleEndian, v) }

	if _, err := w.WriteString("RIFF"); err != nil {
		return err
	}
	if err := write(uint32(riffSize)); err != nil {
		return err
	}
	if _, err := w.WriteString("WAVE"); err != nil {
		return err
	}

	if _, err := w.WriteString("fmt "); err != nil {
		return err
	}
	if err := write(uint32(fmtChunkSize)); err != nil {
		return err
	}
	if err := write(uint16(0xFFFE)); err != nil { // WAVE_FORMAT_EXTENSIBLE
		return err
	}
	if err := write(uint16(numChannels)); err != nil {
		return err
	}
	if err := write(uint32(sampleRate)); err != nil {
		return err
	}
	if err := write(byteRate); err != nil {
		return err
	}
	if err := write(blockAlign); err != nil {
		return err
	}
	if err := write(uint16(bitsPerSample)); err != nil {
		return err
	}
	if err := write(uint16(extensionSize)); err != nil {
		return err
	}
	if err := write(uint16(bitsPerSample)); err != nil { // valid bits per sample
		return err
	}
	if err := write(layout.ChannelMask()); err != nil {
		return err
	}
	// SubFormat GUID for IEEE float: 00000003-0000-0010-8000-00aa00389b71
	subformat := [16]byte{
		0x03, 0x00, 0x00, 0x00,
		0x00, 0x00,
		0x10, 0x00,
		0x80, 0x00, 0x00, 0xaa, 0x00, 0x38, 0x9b, 0x71,
	}
	if _, err := w.Write(subformat[:]); err != nil {
		return err
	}

	if _, err := w.WriteString("data"); err != nil {
		return err
	}
	if err := write(dataSize); err != nil {
		return err
	}

	return nil
}
