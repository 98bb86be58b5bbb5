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

/*
When a droplet genotype-pileup run is partitioned across disjoint
cell-barcode subsets, each partition writes its own droplet (CEL),
SNP-observation (PLP), UMI, and variant (VAR) table, keyed by a droplet
id local to that partition.  bio-pileup-merge discovers the partial
tables under an input prefix and merges them into four full tables under
an output prefix, renumbering droplets into a single global id space.

Shards are ordered by filename sort; that order defines the partition
index of every table kind, so all four kinds must share it.  The droplet
tables are concatenated and stamped with dense global ids; the
SNP-observation tables are rewritten through the resulting (partition,
local id) -> global id mapping; the UMI tables are renumbered by
position; and the most complete variant table is selected and copied
verbatim after a prefix-consistency check between shards.

Existing destination files are never overwritten: if any of the four
output files already exists, the tool reports every offending path and
exits without merging anything.

Sample usage:
bio-pileup-merge \
    runs/sample1.partial \
    runs/sample1

reads runs/sample1.partial.*.pileup.{cel,plp,umi,var}.gz and writes
runs/sample1.pileup.{cel,plp,umi,var}.gz.
*/
package main
