// {{{ Copyright (c) Paul R. Tagliamonte <paul@k3xec.com>, 2020-2024
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE. }}}

package pipeline

import (
	"context"
	"os"

	"hz.tools/iqproc"
)

// IOFileWriterChunkSize is IO_FILE_WRITER_CHUNK_SIZE, spec.md §4.7: the
// largest slice the Writer reads out of the output ring per FileWriter.Write
// call.
const IOFileWriterChunkSize = 1024 * 1024

// Writer is the pipeline's final stage in file-output mode, spec.md §4.7.
// In stdout mode the PostProcessor bypasses the ring entirely and this
// stage instead just drains stdout_q, writing each chunk's bytes directly
// to the stdout writer and recycling it.
type Writer struct {
	res    *AppResources
	sink   iqproc.FileWriter // file mode
	stdout stdoutWriter      // stdout mode
}

// stdoutWriter is the minimal shape this stage needs from the process's
// standard output, so tests can substitute an in-memory buffer.
type stdoutWriter interface {
	Write([]byte) (int, error)
}

// NewFileWriterStage builds a Writer draining the output ring into sink,
// spec.md §4.7 file-output mode.
func NewFileWriterStage(res *AppResources, sink iqproc.FileWriter) *Writer {
	return &Writer{res: res, sink: sink}
}

// NewStdoutWriterStage builds a Writer draining stdout_q directly into
// out, spec.md §4.7 stdout mode. Defaults to os.Stdout when out is nil.
func NewStdoutWriterStage(res *AppResources, out stdoutWriter) *Writer {
	if out == nil {
		out = os.Stdout
	}
	return &Writer{res: res, stdout: out}
}

// Run drives whichever mode this Writer was built for.
func (w *Writer) Run(ctx context.Context) error {
	if w.sink != nil {
		return w.runFile(ctx)
	}
	return w.runStdout(ctx)
}

// runFile reads up to IOFileWriterChunkSize bytes at a time from the
// output ring into a scratch buffer and hands them to the FileWriter,
// until the ring reports clean EOF (closed and drained), then finalizes
// the sink's container trailers.
func (w *Writer) runFile(ctx context.Context) error {
	scratch := make([]byte, IOFileWriterChunkSize)
	for {
		n := w.res.OutputRing.Read(scratch)
		if n == 0 {
			break
		}
		if _, err := w.sink.Write(scratch[:n]); err != nil {
			w.res.Fail(err)
			return err
		}
	}
	if err := w.sink.Close(); err != nil {
		w.res.Fail(err)
		return err
	}
	return nil
}

// runStdout drains stdout_q directly, writing each chunk's final output
// bytes and recycling the chunk back to the free queue.
func (w *Writer) runStdout(ctx context.Context) error {
	for {
		c, ok := w.res.Queues.Stdout.Dequeue()
		if !ok {
			return nil
		}
		if len(c.FinalOutputData) > 0 {
			if _, err := w.stdout.Write(c.FinalOutputData); err != nil {
				w.res.Fail(err)
				return err
			}
		}
		last := c.IsLastChunk
		c.Reset()
		if !w.res.Queues.Free.Enqueue(c) {
			return nil
		}
		if last {
			return nil
		}
	}
}

// vim: foldmethod=marker
