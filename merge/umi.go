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
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
)

// MergeUMIs concatenates all partial UMI tables under inPrefix into
// <outPrefix>.pileup.umi.gz, replacing each line's leading field with a
// running counter that starts at 0 and increments once per line across
// the whole concatenation.  The remainder of each line passes through
// untouched.
//
// Unlike the SNP-observation merge, this procedure performs no join: it
// trusts that the Nth UMI line across the shard-sorted concatenation
// corresponds to the Nth row of the merged droplet table.  That ordering
// is an invariant of the upstream pileup tool which the merger cannot
// verify.
func MergeUMIs(ctx context.Context, inPrefix, outPrefix string) (err error) {
	dest := outPrefix + UMISuffix
	if err = checkDestination(ctx, dest); err != nil {
		return err
	}
	shards, err := discoverShards(ctx, inPrefix, UMISuffix)
	if err != nil {
		return err
	}
	log.Printf("writing pileup UMI full file %s", dest)
	out, err := createTable(ctx, dest)
	if err != nil {
		return err
	}
	defer out.CloseAndReport(&err)
	w := tsv.NewWriter(out.Writer())
	var counter int64
	for _, path := range shards {
		if counter, err = renumberUMIShard(ctx, path, counter, w); err != nil {
			return err
		}
	}
	return w.Flush()
}

// renumberUMIShard streams one UMI shard, emitting counter<TAB>tail for
// every line, and returns the counter value for the next shard.
func renumberUMIShard(ctx context.Context, path string, counter int64, w *tsv.Writer) (next int64, err error) {
	log.Printf("reading partial pileup UMI file %s", path)
	in, err := openTable(ctx, path)
	if err != nil {
		return counter, err
	}
	defer in.CloseAndReport(&err)
	sc := bufio.NewScanner(in.Reader())
	sc.Buffer(make([]byte, 0, 64<<10), maxLineBytes)
	for sc.Scan() {
		_, rest, ok := strings.Cut(sc.Text(), "\t")
		if !ok {
			return counter, errors.E(errors.Invalid, fmt.Sprintf("%s: UMI line %d has no tab", path, counter))
		}
		w.WriteInt64(counter)
		w.WriteString(rest)
		if err = w.EndLine(); err != nil {
			return counter, err
		}
		counter++
	}
	if err = sc.Err(); err != nil {
		return counter, errors.E(err, path)
	}
	return counter, nil
}
