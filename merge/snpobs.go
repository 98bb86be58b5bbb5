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
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
)

const snpObsHeader = "#DROPLET_ID\tSNP_ID\tALLELES\tBASEQS"

// Base-quality strings can contain arbitrary printable ASCII, so
// SNP-observation lines are split by hand rather than run through a
// csv-based parser.  Lines are bounded by the scanner buffer below.
const maxLineBytes = 256 << 20

// MergeSNPObservations concatenates all partial SNP-observation (PLP)
// tables under inPrefix, rewriting each row's partitioned droplet id to
// the global id assigned by MergeDroplets, and writes the result to
// <outPrefix>.pileup.plp.gz.  Shards are processed one at a time so that
// peak memory is bounded by one shard plus the droplet table.
//
// The rewrite is an inner join on (partition, partitioned droplet id):
// rows with no matching droplet entry are dropped.  Only the aggregate
// loss per shard is reported, and only as a diagnostic.
func MergeSNPObservations(ctx context.Context, droplets *DropletTable, inPrefix, outPrefix string) (err error) {
	dest := outPrefix + SNPObsSuffix
	if err = checkDestination(ctx, dest); err != nil {
		return err
	}
	shards, err := discoverShards(ctx, inPrefix, SNPObsSuffix)
	if err != nil {
		return err
	}
	log.Printf("writing pileup PLP full file %s", dest)
	out, err := createTable(ctx, dest)
	if err != nil {
		return err
	}
	defer out.CloseAndReport(&err)
	w := tsv.NewWriter(out.Writer())
	for i, path := range shards {
		// Only the first shard contributes a header row.
		if err = mergeSNPObservationShard(ctx, droplets, path, int32(i), i == 0, w); err != nil {
			return err
		}
	}
	return w.Flush()
}

func mergeSNPObservationShard(ctx context.Context, droplets *DropletTable, path string, partition int32, writeHeader bool, w *tsv.Writer) (err error) {
	log.Printf("reading partial pileup PLP file %s", path)
	in, err := openTable(ctx, path)
	if err != nil {
		return err
	}
	defer in.CloseAndReport(&err)
	sc := bufio.NewScanner(in.Reader())
	sc.Buffer(make([]byte, 0, 64<<10), maxLineBytes)
	if !sc.Scan() {
		if err = sc.Err(); err != nil {
			return errors.E(err, path)
		}
		return errors.E(errors.Invalid, path+": missing SNP-observation header")
	}
	if header := sc.Text(); header != snpObsHeader {
		return errors.E(errors.Invalid, fmt.Sprintf("%s: unexpected SNP-observation header %q", path, header))
	}
	if writeHeader {
		w.WriteString(snpObsHeader)
		if err = w.EndLine(); err != nil {
			return err
		}
	}
	var nRows, nJoined int64
	for sc.Scan() {
		line := sc.Text()
		idField, rest, ok := strings.Cut(line, "\t")
		if !ok {
			return errors.E(errors.Invalid, fmt.Sprintf("%s: SNP-observation row %d has a single column", path, nRows+1))
		}
		partitionedID, e := strconv.ParseInt(idField, 10, 64)
		if e != nil {
			return errors.E(errors.Invalid, fmt.Sprintf("%s: bad droplet id %q", path, idField))
		}
		snpField, _, ok := strings.Cut(rest, "\t")
		if !ok {
			return errors.E(errors.Invalid, fmt.Sprintf("%s: truncated SNP-observation row %d", path, nRows+1))
		}
		if _, e = strconv.ParseInt(snpField, 10, 64); e != nil {
			return errors.E(errors.Invalid, fmt.Sprintf("%s: bad SNP id %q", path, snpField))
		}
		nRows++
		globalID, ok := droplets.GlobalID(partition, partitionedID)
		if !ok {
			continue
		}
		nJoined++
		w.WriteInt64(globalID)
		w.WriteString(rest)
		if err = w.EndLine(); err != nil {
			return err
		}
	}
	if err = sc.Err(); err != nil {
		return errors.E(err, path)
	}
	if nJoined < nRows {
		log.Printf("%s: dropped %d of %d rows with no droplet match", path, nRows-nJoined, nRows)
	}
	return nil
}
