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
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
)

const dropletHeader = "#DROPLET_ID\tBARCODE\tNUM.READ\tNUM.UMI\tNUM.UMIwSNP\tNUM.SNP"

// dropletShardRow is one row of a partial .pileup.cel table.  The leading
// counter column holds a droplet id that is only meaningful within its own
// shard.
type dropletShardRow struct {
	DropletID  int64  `tsv:"#DROPLET_ID"`
	Barcode    string `tsv:"BARCODE"`
	NumRead    int64  `tsv:"NUM.READ"`
	NumUMI     int64  `tsv:"NUM.UMI"`
	NumUMIwSNP int64  `tsv:"NUM.UMIwSNP"`
	NumSNP     int64  `tsv:"NUM.SNP"`
}

// DropletRecord is one row of the merged droplet table.  GlobalID is the
// row's 0-based position in the shard-sorted concatenation; it is a
// sequential stamp of concatenation order, not a sort key over barcode or
// partition.
type DropletRecord struct {
	GlobalID      int64
	Partition     int32
	PartitionedID int64
	Barcode       string
	NumRead       int64
	NumUMI        int64
	NumUMIwSNP    int64
	NumSNP        int64
}

// CorrectionKey identifies one droplet in the partitioned id space.
type CorrectionKey struct {
	Partition     int32
	PartitionedID int64
}

// DropletTable is the merged droplet table together with its correction
// table: the mapping (partition, partitioned droplet id) -> global droplet
// id consumed by the SNP-observation merge.
type DropletTable struct {
	Records     []DropletRecord
	corrections map[CorrectionKey]int64
}

// GlobalID returns the global droplet id assigned to the given partitioned
// droplet id, if any.
func (t *DropletTable) GlobalID(partition int32, partitionedID int64) (int64, bool) {
	id, ok := t.corrections[CorrectionKey{Partition: partition, PartitionedID: partitionedID}]
	return id, ok
}

// MergeDroplets concatenates all partial droplet (CEL) tables under
// inPrefix in shard-sorted order, assigns each row a dense 0-based global
// droplet id, and writes the merged table to <outPrefix>.pileup.cel.gz
// with the global id in the leading counter column.  The returned table
// retains the partition and partitioned-id columns dropped from the file;
// it is the hard input of MergeSNPObservations.
func MergeDroplets(ctx context.Context, inPrefix, outPrefix string) (table *DropletTable, err error) {
	dest := outPrefix + DropletSuffix
	if err = checkDestination(ctx, dest); err != nil {
		return nil, err
	}
	shards, err := discoverShards(ctx, inPrefix, DropletSuffix)
	if err != nil {
		return nil, err
	}
	table = &DropletTable{corrections: map[CorrectionKey]int64{}}
	for i, path := range shards {
		log.Printf("reading partial pileup CEL file %s", path)
		if err = readDropletShard(ctx, path, int32(i), table); err != nil {
			return nil, err
		}
	}

	log.Printf("writing pileup CEL full file %s", dest)
	out, err := createTable(ctx, dest)
	if err != nil {
		return nil, err
	}
	defer out.CloseAndReport(&err)
	w := tsv.NewWriter(out.Writer())
	w.WriteString(dropletHeader)
	if err = w.EndLine(); err != nil {
		return nil, err
	}
	for _, rec := range table.Records {
		w.WriteInt64(rec.GlobalID)
		w.WriteString(rec.Barcode)
		w.WriteInt64(rec.NumRead)
		w.WriteInt64(rec.NumUMI)
		w.WriteInt64(rec.NumUMIwSNP)
		w.WriteInt64(rec.NumSNP)
		if err = w.EndLine(); err != nil {
			return nil, err
		}
	}
	if err = w.Flush(); err != nil {
		return nil, err
	}
	return table, nil
}

// readDropletShard parses one partial CEL table, tags its rows with the
// given partition index, and appends them to table in file order.
func readDropletShard(ctx context.Context, path string, partition int32, table *DropletTable) (err error) {
	in, err := openTable(ctx, path)
	if err != nil {
		return err
	}
	defer in.CloseAndReport(&err)
	r := tsv.NewReader(in.Reader())
	r.HasHeaderRow = true
	r.UseHeaderNames = true
	for {
		var row dropletShardRow
		if err = r.Read(&row); err != nil {
			if err == io.EOF {
				err = nil
				break
			}
			return errors.E(err, fmt.Sprintf("%s: malformed droplet table", path))
		}
		key := CorrectionKey{Partition: partition, PartitionedID: row.DropletID}
		if prev, ok := table.corrections[key]; ok {
			return errors.E(errors.Invalid, fmt.Sprintf(
				"%s: duplicate droplet id %d in partition %d (already mapped to global id %d)",
				path, row.DropletID, partition, prev))
		}
		globalID := int64(len(table.Records))
		table.corrections[key] = globalID
		table.Records = append(table.Records, DropletRecord{
			GlobalID:      globalID,
			Partition:     partition,
			PartitionedID: row.DropletID,
			Barcode:       row.Barcode,
			NumRead:       row.NumRead,
			NumUMI:        row.NumUMI,
			NumUMIwSNP:    row.NumUMIwSNP,
			NumSNP:        row.NumSNP,
		})
	}
	return nil
}
