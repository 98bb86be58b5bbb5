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
	"context"
	"fmt"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
)

// VariantRow is one row of a .pileup.var table.
type VariantRow struct {
	SNPID      int64  `tsv:"#SNP_ID"`
	Chrom      string `tsv:"CHROM"`
	Pos        int64  `tsv:"POS"`
	Ref        string `tsv:"REF"`
	Alt        string `tsv:"ALT"`
	AlleleFreq string `tsv:"AF"`
}

// VariantShard is one parsed partial variant table.
type VariantShard struct {
	Path string
	Rows []VariantRow
}

// A Reconciler selects which of several redundant variant shards becomes
// the canonical merged table.  It exists so the selection heuristic can
// be tightened or swapped without touching discovery or I/O.
type Reconciler interface {
	Reconcile(shards []VariantShard) (winner int, err error)
}

// PrefixConsistency picks the shard with the most rows, on the assumption
// that the upstream pileup tool writes every shard's variant table as a
// prefix of the same full table.  Before a larger shard displaces the
// current candidate, the candidate's last row must appear unchanged at
// the same position in the larger shard; a mismatch means the shards were
// not generated as nested supersets and the whole run must stop.  Only
// that one boundary row is compared, so divergence in the interior of a
// shard passes undetected.
type PrefixConsistency struct{}

// Reconcile implements Reconciler.  Ties keep the earlier shard.
func (PrefixConsistency) Reconcile(shards []VariantShard) (int, error) {
	winner := 0
	for i := 1; i < len(shards); i++ {
		cur, next := &shards[winner], &shards[i]
		if len(next.Rows) <= len(cur.Rows) {
			continue
		}
		if n := len(cur.Rows); n > 0 && cur.Rows[n-1] != next.Rows[n-1] {
			return 0, errors.E(errors.Integrity, fmt.Sprintf(
				"variant tables %s and %s disagree at row %d; shards are not nested supersets",
				cur.Path, next.Path, n-1))
		}
		winner = i
	}
	return winner, nil
}

// ReconcileVariants selects the most complete partial variant (VAR) table
// under inPrefix and copies it verbatim to <outPrefix>.pileup.var.gz.
// The winner's bytes are copied as-is so the merged table cannot drift
// from the shard it came from.  A nil strategy means PrefixConsistency.
// With zero shards no output is produced and no error is returned.
func ReconcileVariants(ctx context.Context, inPrefix, outPrefix string, strategy Reconciler) (err error) {
	dest := outPrefix + VariantSuffix
	if err = checkDestination(ctx, dest); err != nil {
		return err
	}
	paths, err := discoverShards(ctx, inPrefix, VariantSuffix)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		log.Printf("no partial pileup VAR files found; not writing %s", dest)
		return nil
	}
	shards := make([]VariantShard, 0, len(paths))
	for _, path := range paths {
		log.Printf("reading partial pileup VAR file %s", path)
		shard := VariantShard{Path: path}
		if shard.Rows, err = readVariantShard(ctx, path); err != nil {
			return err
		}
		shards = append(shards, shard)
	}
	if strategy == nil {
		strategy = PrefixConsistency{}
	}
	winner, err := strategy.Reconcile(shards)
	if err != nil {
		return err
	}
	log.Printf("writing pileup VAR full file %s from %s", dest, shards[winner].Path)
	return copyFile(ctx, shards[winner].Path, dest)
}

func readVariantShard(ctx context.Context, path string) (rows []VariantRow, err error) {
	in, err := openTable(ctx, path)
	if err != nil {
		return nil, err
	}
	defer in.CloseAndReport(&err)
	r := tsv.NewReader(in.Reader())
	r.HasHeaderRow = true
	r.UseHeaderNames = true
	for {
		var row VariantRow
		if err = r.Read(&row); err != nil {
			if err == io.EOF {
				err = nil
				break
			}
			return nil, errors.E(err, fmt.Sprintf("%s: malformed variant table", path))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func copyFile(ctx context.Context, src, dst string) (err error) {
	in, err := file.Open(ctx, src)
	if err != nil {
		return err
	}
	defer func() {
		if e := in.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	out, err := file.Create(ctx, dst)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, out, &err)
	_, err = io.Copy(out.Writer(ctx), in.Reader(ctx))
	return err
}
