// Copyright 2026 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package merge

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/klauspost/compress/gzip"
)

// Output/shard filename suffixes for the four pileup table kinds.  A
// merged table lives at <outprefix><suffix>; shard k of a partitioned run
// lives at <inprefix>.<k><suffix>.
const (
	DropletSuffix = ".pileup.cel.gz"
	SNPObsSuffix  = ".pileup.plp.gz"
	UMISuffix     = ".pileup.umi.gz"
	VariantSuffix = ".pileup.var.gz"
)

// destinationExists reports whether path currently exists.
func destinationExists(ctx context.Context, path string) bool {
	_, err := file.Stat(ctx, path)
	return err == nil
}

// checkDestination returns an errors.Exists error if path already exists.
// Merges are one-shot: an existing destination is never overwritten.
func checkDestination(ctx context.Context, path string) error {
	if destinationExists(ctx, path) {
		return errors.E(errors.Exists, fmt.Sprintf("destination file %s already exists", path))
	}
	return nil
}

// tableReader wraps a shard file with transparent decompression and
// buffering.  Close must be called on every exit path.
type tableReader struct {
	ctx context.Context
	f   file.File
	z   io.ReadCloser
	r   io.Reader
}

func openTable(ctx context.Context, path string) (*tableReader, error) {
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	tr := &tableReader{ctx: ctx, f: f}
	var r io.Reader = f.Reader(ctx)
	if u, compressed := compress.NewReaderPath(r, f.Name()); compressed {
		tr.z = u
		r = u
	}
	tr.r = bufio.NewReaderSize(r, 64<<10)
	return tr, nil
}

func (tr *tableReader) Reader() io.Reader { return tr.r }

func (tr *tableReader) Close() error {
	var err error
	if tr.z != nil {
		err = tr.z.Close()
	}
	if e := tr.f.Close(tr.ctx); e != nil && err == nil {
		err = e
	}
	return err
}

// CloseAndReport is the defer-friendly form of Close, mirroring
// file.CloseAndReport.
func (tr *tableReader) CloseAndReport(errp *error) {
	if err := tr.Close(); err != nil && *errp == nil {
		*errp = err
	}
}

// tableWriter layers a gzip stream over a newly created destination file.
type tableWriter struct {
	ctx    context.Context
	f      file.File
	gz     *gzip.Writer
	closed bool
}

func createTable(ctx context.Context, path string) (*tableWriter, error) {
	f, err := file.Create(ctx, path)
	if err != nil {
		return nil, err
	}
	return &tableWriter{ctx: ctx, f: f, gz: gzip.NewWriter(f.Writer(ctx))}, nil
}

func (tw *tableWriter) Writer() io.Writer { return tw.gz }

func (tw *tableWriter) Close() error {
	if tw.closed {
		return nil
	}
	tw.closed = true
	err := tw.gz.Close()
	if e := tw.f.Close(tw.ctx); e != nil && err == nil {
		err = e
	}
	return err
}

func (tw *tableWriter) CloseAndReport(errp *error) {
	if err := tw.Close(); err != nil && *errp == nil {
		*errp = err
	}
}
